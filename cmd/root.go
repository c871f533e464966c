package cmd

import (
	"context"
	"errors"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"claimflow/internal/bootstrap/logging"
	"claimflow/internal/errs"
)

var (
	cfgFile string
	actorID string
)

var rootCmd = &cobra.Command{
	Use:          "claimflow",
	Short:        "Vehicle damage assessment workflow engine",
	Long:         "Drives damage assessments through their stage lifecycle: intake, appointments, inspections, artifact provisioning, estimates and archive.",
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute(ctx context.Context) error {
	if ctx == nil {
		return errors.New("context is required")
	}

	ctx = logging.WithLogger(ctx, logging.New(rootCmd.ErrOrStderr(), "info", "text"))
	ctx = logging.WithAttrs(ctx, slog.String("app", "claimflow"))

	rootCmd.SetContext(ctx)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		logging.Error(ctx, "command execution failed", slog.Any("err", errs.Loggable(err)))
		return errs.Wrap(err, "execute root command")
	}

	return nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "configs/config.yaml", "Config file path")
	rootCmd.PersistentFlags().StringVar(&actorID, "actor", os.Getenv("CF_ACTOR"), "Acting user id from the actor directory (env CF_ACTOR)")
}

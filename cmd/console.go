package cmd

import (
	"log/slog"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"claimflow/internal/bootstrap/logging"
	"claimflow/internal/errs"
	"claimflow/internal/usecase/boardconsole"
)

var consoleCmd = &cobra.Command{
	Use:   "console",
	Short: "Terminal console commands",
}

var consoleBoardCmd = &cobra.Command{
	Use:   "board",
	Short: "Start the assessment stage board",
	RunE: withEngine(func(cmd *cobra.Command, eng *engine) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))
		actor, err := eng.actor(ctx)
		if err != nil {
			return err
		}

		stage, _ := cmd.Flags().GetString("stage")
		refreshInterval, _ := cmd.Flags().GetDuration("refresh-interval")
		if refreshInterval <= 0 {
			refreshInterval = 5 * time.Second
		}

		model := boardconsole.NewBoardModel(ctx, eng.service, boardconsole.BoardOptions{
			Actor:           actor,
			Stage:           stage,
			RefreshInterval: refreshInterval,
		})

		program := tea.NewProgram(model, tea.WithAltScreen())
		if _, err := program.Run(); err != nil {
			return errs.Wrap(err, "run board console")
		}
		return nil
	}),
}

func init() {
	rootCmd.AddCommand(consoleCmd)
	consoleCmd.AddCommand(consoleBoardCmd)
	consoleBoardCmd.Flags().String("stage", "request_submitted", "Initially selected stage")
	consoleBoardCmd.Flags().Duration("refresh-interval", 5*time.Second, "Auto refresh interval")
}

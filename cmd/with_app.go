package cmd

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/fx"

	"claimflow/internal/bootstrap"
	"claimflow/internal/bootstrap/logging"
	domain "claimflow/internal/domain/assessment"
	"claimflow/internal/errs"
	"claimflow/internal/infrastructure/metrics"
	"claimflow/internal/ports"
	"claimflow/internal/usecase/assessment"
)

// engine is what workflow commands run against.
type engine struct {
	app     *bootstrap.App
	service *assessment.Service
	actors  ports.ActorProvider
	metrics *metrics.Recorder
}

// actor resolves --actor against the directory.
func (e *engine) actor(ctx context.Context) (domain.Actor, error) {
	id := strings.TrimSpace(actorID)
	if id == "" {
		return domain.Actor{}, errors.New("--actor is required")
	}
	actor, err := e.actors.Actor(ctx, id)
	if err != nil {
		return domain.Actor{}, errs.Wrap(err, "resolve actor")
	}
	return actor, nil
}

func withApp(run func(cmd *cobra.Command, app *bootstrap.App) error) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		var app *bootstrap.App
		return runFx(cmd, func() error { return run(cmd, app) }, &app)
	}
}

func withEngine(run func(cmd *cobra.Command, eng *engine) error) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		eng := &engine{}
		return runFx(cmd, func() error { return run(cmd, eng) }, &eng.app, &eng.service, &eng.actors, &eng.metrics)
	}
}

func runFx(cmd *cobra.Command, run func() error, targets ...any) error {
	var app *bootstrap.App
	targets = append(targets, &app)

	ctx := logging.WithAttrs(
		cmd.Context(),
		slog.String("command", cmd.CommandPath()),
		slog.String("config_file", cfgFile),
	)

	fxApp := fx.New(
		bootstrap.Module,
		fx.NopLogger,
		fx.Provide(func() context.Context { return ctx }),
		fx.Provide(
			fx.Annotate(
				func() string { return cfgFile },
				fx.ResultTags(`name:"configFile"`),
			),
		),
		fx.Populate(targets...),
	)

	startCtx, cancelStart := context.WithTimeout(ctx, 10*time.Second)
	defer cancelStart()
	if err := fxApp.Start(startCtx); err != nil {
		logging.Error(ctx, "bootstrap application failed", slog.Any("err", errs.Loggable(err)))
		return errs.Wrap(err, "start fx application")
	}

	defer func() {
		stopCtx, cancelStop := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancelStop()
		if err := fxApp.Stop(stopCtx); err != nil {
			logging.Error(ctx, "fx application stop failed", slog.Any("err", errs.Loggable(err)))
		}
	}()

	// From here on commands log through the configured handler.
	logger := logging.New(cmd.ErrOrStderr(), app.Config.Log.Level, app.Config.Log.Format)
	cmd.SetContext(logging.WithLogger(cmd.Context(), logger))

	if err := run(); err != nil {
		return errs.Wrap(err, "run command")
	}
	return nil
}

package bootstrap

import (
	"context"
	"log/slog"
	"strings"

	"go.uber.org/fx"
	"gorm.io/gorm"

	"claimflow/internal/bootstrap/config"
	"claimflow/internal/bootstrap/database"
	"claimflow/internal/bootstrap/logging"
	"claimflow/internal/errs"
	"claimflow/internal/infrastructure/actors"
	"claimflow/internal/infrastructure/events"
	"claimflow/internal/infrastructure/metrics"
	sqliterepo "claimflow/internal/infrastructure/persistence/sqlite/repository"
	sqliteuow "claimflow/internal/infrastructure/persistence/sqlite/uow"
	"claimflow/internal/ports"
	"claimflow/internal/usecase/assessment"
)

var Module = fx.Options(
	fx.Provide(provideConfig),
	fx.Provide(provideDatabase),
	fx.Provide(provideApp),
	fx.Provide(
		fx.Annotate(
			sqliterepo.NewAssessmentRepository,
			fx.As(new(ports.AssessmentRepository)),
		),
	),
	fx.Provide(
		fx.Annotate(
			sqliterepo.NewArtifactRepository,
			fx.As(new(ports.ArtifactRepository)),
		),
	),
	fx.Provide(
		fx.Annotate(
			sqliterepo.NewHistoryRepository,
			fx.As(new(ports.HistoryRepository)),
		),
	),
	fx.Provide(
		fx.Annotate(
			sqliteuow.NewUnitOfWork,
			fx.As(new(ports.UnitOfWork)),
		),
	),
	fx.Provide(metrics.NewRecorder),
	fx.Provide(providePublisher),
	fx.Provide(provideActors),
	fx.Provide(provideService),
)

type configParams struct {
	fx.In

	Ctx        context.Context
	ConfigFile string `name:"configFile"`
}

func provideConfig(p configParams) (config.Config, error) {
	ctx := logging.WithAttrs(p.Ctx, slog.String("component", "bootstrap.fx"))
	return config.Load(ctx, p.ConfigFile)
}

func provideDatabase(lc fx.Lifecycle, ctx context.Context, cfg config.Config) (*gorm.DB, error) {
	logCtx := logging.WithAttrs(ctx, slog.String("component", "bootstrap.fx"))

	db, err := database.Open(logCtx, cfg.Database)
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.Close()
		},
	})

	return db, nil
}

func provideApp(cfg config.Config, db *gorm.DB) *App {
	return &App{
		Config: cfg,
		DB:     db,
	}
}

// providePublisher always logs stage_changed; NATS is added when configured.
func providePublisher(lc fx.Lifecycle, ctx context.Context, cfg config.Config) (ports.StageEventPublisher, error) {
	url := strings.TrimSpace(cfg.Events.NATSURL)
	if url == "" {
		return events.LogPublisher{}, nil
	}

	logCtx := logging.WithAttrs(ctx, slog.String("component", "bootstrap.fx"))
	natsPublisher, err := events.ConnectNATS(logCtx, url, cfg.Events.SubjectPrefix)
	if err != nil {
		return nil, errs.Wrap(err, "connect event bus")
	}
	lc.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			return natsPublisher.Close()
		},
	})
	return events.Fanout{events.LogPublisher{}, natsPublisher}, nil
}

func provideActors(cfg config.Config) (ports.ActorProvider, error) {
	directory, err := actors.LoadFile(cfg.Actors.File)
	if err != nil {
		return nil, errs.Wrap(err, "load actor directory")
	}
	return directory, nil
}

type serviceParams struct {
	fx.In

	Assessments ports.AssessmentRepository
	Artifacts   ports.ArtifactRepository
	History     ports.HistoryRepository
	UnitOfWork  ports.UnitOfWork
	Publisher   ports.StageEventPublisher
	Metrics     *metrics.Recorder
}

// provideService registers a stop hook after the publisher's, so in-flight
// publishes finish before the bus connection drains.
func provideService(lc fx.Lifecycle, p serviceParams) *assessment.Service {
	svc := assessment.NewService(assessment.Deps{
		Assessments: p.Assessments,
		Artifacts:   p.Artifacts,
		History:     p.History,
		UnitOfWork:  p.UnitOfWork,
		Publisher:   p.Publisher,
		Metrics:     p.Metrics,
	})
	lc.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			svc.WaitForEvents()
			return nil
		},
	})
	return svc
}

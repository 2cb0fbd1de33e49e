package bootstrap

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/bryanwahyu/dental-xray-ai/internal/application"
	appreports "github.com/bryanwahyu/dental-xray-ai/internal/application/reports"
	"github.com/bryanwahyu/dental-xray-ai/internal/config"
	"github.com/bryanwahyu/dental-xray-ai/internal/domain/document"
	"github.com/bryanwahyu/dental-xray-ai/internal/domain/patient"
	"github.com/bryanwahyu/dental-xray-ai/internal/infra/ai/openai"
	"github.com/bryanwahyu/dental-xray-ai/internal/infra/db/memory"
	mysqlp "github.com/bryanwahyu/dental-xray-ai/internal/infra/db/mysql"
	"github.com/bryanwahyu/dental-xray-ai/internal/infra/db/postgres"
	"github.com/bryanwahyu/dental-xray-ai/internal/infra/imagefile"
	"github.com/bryanwahyu/dental-xray-ai/internal/infra/storage"
	"github.com/bryanwahyu/dental-xray-ai/internal/middleware"
	"github.com/bryanwahyu/dental-xray-ai/internal/platform/logger"
)

// App is the wired service plus the resources main has to release.
type App struct {
	Service  *appreports.Service
	Checkers map[string]middleware.HealthChecker
	db       *sql.DB
}

// New wires repositories, storage, image loader and AI client from cfg.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	app := &App{Checkers: map[string]middleware.HealthChecker{}}

	docs, patients, err := app.openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	aiClient, err := openai.NewClient(cfg.AI)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("ai client: %w", err)
	}
	log.Info().
		Str("provider", cfg.AI.Provider).
		Str("model", cfg.AI.Model).
		Str("api_key", logger.KeyPrefix(cfg.AI.APIKey)).
		Msg("ai client configured")

	svc := &appreports.Service{
		Documents: docs,
		Patients:  patients,
		Images:    imagefile.NewLoader(cfg.Images.AllowedTypes, cfg.Images.MaxSize, cfg.Images.UploadRoot),
		AI:        aiClient,
		Clock:     application.SystemClock{},
	}

	// minio opsional, kosongkan endpoint untuk disable
	if cfg.MinioEnabled() {
		store, err := storage.New(ctx,
			cfg.Minio.Endpoint,
			cfg.Minio.Region,
			cfg.Minio.BucketName,
			cfg.Minio.AccessKey,
			cfg.Minio.SecretKey,
			cfg.Minio.UseSSL,
			cfg.Minio.PresignTTL,
		)
		if err != nil {
			app.Close()
			return nil, fmt.Errorf("minio init: %w", err)
		}
		svc.Artifacts = store
		log.Info().Str("bucket", cfg.Minio.BucketName).Msg("report archive enabled")
	}

	app.Service = svc
	return app, nil
}

func (a *App) openStore(ctx context.Context, cfg *config.Config) (document.Repository, patient.Repository, error) {
	switch cfg.Database.Driver {
	case "mysql":
		db, err := mysqlp.Connect(ctx, cfg.MySQLDSN())
		if err != nil {
			return nil, nil, fmt.Errorf("mysql connect: %w", err)
		}
		a.db = db
		if cfg.Database.Migrate {
			if err := mysqlp.EnsureSchema(ctx, db); err != nil {
				a.Close()
				return nil, nil, fmt.Errorf("mysql schema: %w", err)
			}
		}
		a.Checkers["database"] = &middleware.DatabaseHealthChecker{DB: db}
		return mysqlp.NewDocumentRepository(db), mysqlp.NewPatientRepository(db), nil
	case "postgres":
		db, err := postgres.Connect(ctx, cfg.PostgresDSN())
		if err != nil {
			return nil, nil, fmt.Errorf("postgres connect: %w", err)
		}
		a.db = db
		if cfg.Database.Migrate {
			if err := postgres.EnsureSchema(ctx, db); err != nil {
				a.Close()
				return nil, nil, fmt.Errorf("postgres schema: %w", err)
			}
		}
		a.Checkers["database"] = &middleware.DatabaseHealthChecker{DB: db}
		return postgres.NewDocumentRepository(db), postgres.NewPatientRepository(db), nil
	case "memory":
		log.Warn().Msg("using in-memory store, data is lost on restart")
		return memory.NewDocumentRepository(), memory.NewPatientRepository(), nil
	default:
		return nil, nil, fmt.Errorf("unsupported database driver %q", cfg.Database.Driver)
	}
}

// Close releases the database pool, if any.
func (a *App) Close() error {
	if a.db == nil {
		return nil
	}
	err := a.db.Close()
	a.db = nil
	return err
}

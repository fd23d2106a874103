package app

import (
	"context"
	"fmt"
	"os"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/mlimaops/teagrade-backend/internal/bootstrap"
	"github.com/mlimaops/teagrade-backend/internal/data/db"
	"github.com/mlimaops/teagrade-backend/internal/platform/dbctx"
	"github.com/mlimaops/teagrade-backend/internal/platform/logger"
)

type App struct {
	Log      *logger.Logger
	DB       *gorm.DB
	Router   *gin.Engine
	Cfg      Config
	Clients  Clients
	Repos    Repos
	Services Services
}

func New() (*App, error) {
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	log.Info("Loading environment variables...")
	cfg := LoadConfig()

	pg, err := db.NewPostgresService(log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init postgres: %w", err)
	}
	if err := pg.AutoMigrateAll(); err != nil {
		log.Sync()
		return nil, fmt.Errorf("postgres automigrate: %w", err)
	}
	theDB := pg.DB()

	clients, err := wireClients(log)
	if err != nil {
		log.Sync()
		return nil, err
	}

	reposet := wireRepos(theDB, log)
	serviceset := wireServices(log, cfg, clients, reposet)
	handlerset := wireHandlers(log, serviceset, clients, reposet)
	router := wireRouter(log, handlerset)

	a := &App{
		Log:      log,
		DB:       theDB,
		Router:   router,
		Cfg:      cfg,
		Clients:  clients,
		Repos:    reposet,
		Services: serviceset,
	}
	if err := a.seed(); err != nil {
		log.Sync()
		return nil, err
	}
	return a, nil
}

// seed applies declarative startup data when the seed paths are configured.
func (a *App) seed() error {
	if a.Cfg.SeedModelsDir == "" && a.Cfg.SeedSourcesFile == "" {
		return nil
	}
	seeder := bootstrap.NewSeeder(a.Log, a.Repos.GradingModels, a.Repos.Sources)
	dbc := dbctx.Context{Ctx: context.Background()}

	if a.Cfg.SeedModelsDir != "" {
		if err := seeder.SeedGradingModels(dbc, a.Cfg.SeedModelsDir); err != nil {
			return fmt.Errorf("seed grading models: %w", err)
		}
	}
	if a.Cfg.SeedSourcesFile != "" {
		if err := seeder.SeedSourceConfigs(dbc, a.Cfg.SeedSourcesFile); err != nil {
			return fmt.Errorf("seed source configs: %w", err)
		}
	}
	return nil
}

func (a *App) Run(addr string) error {
	if a == nil || a.Router == nil {
		return fmt.Errorf("app not initialized")
	}
	return a.Router.Run(addr)
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.Clients.Queue != nil {
		_ = a.Clients.Queue.Close()
	}
	if a.Clients.Publisher != nil {
		_ = a.Clients.Publisher.Close()
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}

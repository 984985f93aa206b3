// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/unclebandit/clippilot-backend/internal/config"
	"github.com/unclebandit/clippilot-backend/internal/controller"
	"github.com/unclebandit/clippilot-backend/internal/db"
	"github.com/unclebandit/clippilot-backend/internal/identity"
	"github.com/unclebandit/clippilot-backend/internal/logging"
	"github.com/unclebandit/clippilot-backend/internal/metrics"
	"github.com/unclebandit/clippilot-backend/internal/queue"
	"github.com/unclebandit/clippilot-backend/internal/repository"
	"github.com/unclebandit/clippilot-backend/internal/service"
	"github.com/unclebandit/clippilot-backend/internal/storage"
)

func main() {
	conf, err := config.Load()
	if err != nil {
		panic(err)
	}
	logger, err := logging.New(conf.Log.Level)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	if err := run(conf, logger); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func run(conf config.Config, logger *zap.Logger) error {
	if !conf.EnvFileLoaded {
		logger.Info("no .env file found, relying on OS environment variables")
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	database, err := db.Open(conf.Database, logger)
	if err != nil {
		return err
	}
	defer database.Close()
	if err := db.MigrateUp(database.DB); err != nil {
		return err
	}

	m := metrics.New(prometheus.DefaultRegisterer)

	// Without a broker the events are handled in-process.
	var q queue.Queue
	if conf.AMQP.URL != "" {
		amqpQueue, err := queue.DialAMQP(conf.AMQP.URL, logger)
		if err != nil {
			return err
		}
		q = amqpQueue
	} else {
		logger.Info("AMQP_URL not set, using in-memory queue")
		memQueue := queue.NewInMemoryQueue(logger)
		worker := service.NewWorker(service.LogAnnouncer{Logger: logger}, m, logger)
		if err := worker.Start(memQueue, conf.AMQP.Queue); err != nil {
			return err
		}
		q = memQueue
	}
	defer q.Close()

	objects, err := storage.NewS3Store(ctx, conf.Storage, logger)
	if err != nil {
		return err
	}

	campaignRepo := &repository.CampaignRepository{DB: database}
	versionRepo := &repository.VersionRepository{DB: database}
	approvalRepo := &repository.ApprovalRepository{DB: database}
	postRepo := &repository.PostRepository{DB: database}
	kpiRepo := &repository.KPIRepository{DB: database}
	teamRepo := &repository.TeamRepository{DB: database}
	userRepo := &repository.UserRepository{DB: database}
	templateRepo := &repository.TemplateRepository{DB: database}
	assetRepo := &repository.AssetRepository{DB: database}
	tx := repository.NewProvider(database)

	var identityClient identity.Provider = identity.NewClient(conf.Identity, logger)
	if conf.Identity.SessionCacheSeconds > 0 {
		identityClient = identity.NewCachedProvider(identityClient, 8*1024*1024, conf.Identity.SessionCacheSeconds, logger)
	}
	userService := &service.UserService{UserRepo: userRepo, Identity: identityClient, Logger: logger}
	campaignService := &service.CampaignService{
		CampaignRepo: campaignRepo,
		VersionRepo:  versionRepo,
		ApprovalRepo: approvalRepo,
		PostRepo:     postRepo,
		UserRepo:     userRepo,
		TeamRepo:     teamRepo,
		TemplateRepo: templateRepo,
		Tx:           tx,
		Queue:        q,
		Topic:        conf.AMQP.Queue,
		Policy:       conf.Policy,
		Metrics:      m,
		Logger:       logger,
	}

	router := controller.NewRouter(controller.RouterConfig{
		Campaigns: &controller.CampaignController{CampaignService: campaignService, Logger: logger},
		Templates: &controller.TemplateController{
			TemplateService: &service.TemplateService{TemplateRepo: templateRepo, TeamRepo: teamRepo, Logger: logger},
			Logger:          logger,
		},
		Teams: &controller.TeamController{
			TeamService: &service.TeamService{TeamRepo: teamRepo, Tx: tx, Logger: logger},
			Logger:      logger,
		},
		Assets: &controller.AssetController{
			AssetService: &service.AssetService{
				AssetRepo: assetRepo,
				TeamRepo:  teamRepo,
				Store:     objects,
				Metrics:   m,
				Logger:    logger,
			},
			MaxUploadBytes: conf.Storage.MaxUploadBytes,
			Logger:         logger,
		},
		Analytics: &controller.AnalyticsController{
			AnalyticsService: &service.AnalyticsService{
				CampaignRepo: campaignRepo,
				VersionRepo:  versionRepo,
				PostRepo:     postRepo,
				KPIRepo:      kpiRepo,
				TeamRepo:     teamRepo,
			},
			Logger: logger,
		},
		Members:     &controller.MemberController{UserService: userService, Logger: logger},
		Auth:        identity.Middleware(identityClient, userService, logger),
		Metrics:     m,
		Gatherer:    prometheus.DefaultGatherer,
		CORSOrigins: conf.Server.CORSOrigins,
		Health:      database.PingContext,
		Logger:      logger,
	})

	srv := &http.Server{
		Addr:              conf.Server.ListenString(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("server running", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

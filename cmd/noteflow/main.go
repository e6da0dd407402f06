package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logger"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/common/webapi"
	"go.uber.org/zap"

	"github.com/xxxsen/noteflow/internal/ai"
	"github.com/xxxsen/noteflow/internal/config"
	"github.com/xxxsen/noteflow/internal/db"
	"github.com/xxxsen/noteflow/internal/filestore"
	"github.com/xxxsen/noteflow/internal/handler"
	"github.com/xxxsen/noteflow/internal/job"
	"github.com/xxxsen/noteflow/internal/middleware"
	"github.com/xxxsen/noteflow/internal/repo"
	"github.com/xxxsen/noteflow/internal/schedule"
	"github.com/xxxsen/noteflow/internal/service"
)

const summaryUnstickSpec = "*/2 * * * *"

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "noteflow",
		Short: "noteflow backend server",
	}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run noteflow server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if configPath == "" {
				return fmt.Errorf("--config is required")
			}
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			logger.Init(
				cfg.LogConfig.File,
				cfg.LogConfig.Level,
				int(cfg.LogConfig.FileCount),
				int(cfg.LogConfig.FileSize),
				int(cfg.LogConfig.KeepDays),
				cfg.LogConfig.Console,
			)
			logutil.GetLogger(context.Background()).Info("config loaded", zap.String("config", configPath))

			conn, err := db.Open(cfg.Database)
			if err != nil {
				return fmt.Errorf("open db: %w", err)
			}
			if err := db.ApplyMigrations(conn); err != nil {
				return fmt.Errorf("migrations: %w", err)
			}
			return runServer(cfg, conn)
		},
	}

	runCmd.Flags().StringVar(&configPath, "config", "", "path to config.json")
	rootCmd.AddCommand(runCmd)

	if err := rootCmd.Execute(); err != nil {
		logutil.GetLogger(context.Background()).Fatal("startup error", zap.Error(err))
	}
}

func runServer(cfg *config.Config, conn *sql.DB) error {
	logutil.GetLogger(context.Background()).Info(
		"starting server",
		zap.Int("port", cfg.Port),
		zap.String("db_host", cfg.Database.Host),
		zap.String("file_store", cfg.FileStore.Type),
		zap.String("ai_provider", cfg.AI.Provider),
	)

	userRepo := repo.NewUserRepo(conn)
	noteRepo := repo.NewNoteRepo(conn)
	attachmentRepo := repo.NewAttachmentRepo(conn)

	// The file store only serves attachments uploaded before payloads moved
	// into the database; deployments without legacy data can omit it.
	var store filestore.Store
	if cfg.FileStore.Type != "" {
		s, err := filestore.New(cfg.FileStore)
		if err != nil {
			return fmt.Errorf("init file store: %w", err)
		}
		store = s
	}

	providerArgs := cfg.AI.Data
	if providerArgs == nil {
		providerArgs = cfg.AI
	}
	aiProvider, err := ai.NewProvider(cfg.AI.Provider, providerArgs)
	if err != nil {
		return fmt.Errorf("init ai provider: %w", err)
	}
	gateway := ai.NewGateway(aiProvider, cfg.AI.Model, time.Duration(cfg.AI.TimeoutSeconds)*time.Second)

	jwtSecret := []byte(cfg.JWTSecret)
	jwtTTL := time.Hour * time.Duration(cfg.JWTTTLHours)
	authService := service.NewAuthService(userRepo, jwtSecret, jwtTTL)
	noteService := service.NewNoteService(noteRepo, attachmentRepo, store)
	exportService := service.NewExportService(noteRepo)
	summaryService := service.NewSummaryService(noteRepo, attachmentRepo, store, gateway)

	deps := handler.RouterDeps{
		Auth:            handler.NewAuthHandler(authService),
		Notes:           handler.NewNoteHandler(noteService, exportService),
		AI:              handler.NewAIHandler(summaryService),
		JWTSecret:       jwtSecret,
		RateLimitWindow: time.Duration(cfg.RateLimitSeconds) * time.Second,
	}

	engine, err := webapi.NewEngine(
		"/api/v1",
		fmt.Sprintf("0.0.0.0:%d", cfg.Port),
		webapi.WithRegister(func(group *gin.RouterGroup) {
			handler.RegisterRoutes(group, deps)
		}),
		webapi.WithExtraMiddlewares(
			middleware.RequestID(),
			middleware.CORS(cfg.CORSAllowlist),
			gzip.Gzip(gzip.DefaultCompression),
		),
	)
	if err != nil {
		return fmt.Errorf("init web engine: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	scheduler := schedule.NewCronScheduler()
	if err := scheduler.AddJob(job.NewSummaryUnstickJob(summaryService), summaryUnstickSpec); err != nil {
		return fmt.Errorf("schedule unstick job: %w", err)
	}
	scheduler.Start(ctx)
	defer scheduler.Stop()

	logutil.GetLogger(context.Background()).Info("http server listening", zap.String("addr", fmt.Sprintf("0.0.0.0:%d", cfg.Port)))
	go func() {
		if err := engine.Run(); err != nil && err != http.ErrServerClosed {
			logutil.GetLogger(context.Background()).Error("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logutil.GetLogger(context.Background()).Info("server stopping...")
	return nil
}

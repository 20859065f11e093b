package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/locvowork/tasktracker/internal/config"
	"github.com/locvowork/tasktracker/internal/database"
	"github.com/locvowork/tasktracker/internal/export"
	"github.com/locvowork/tasktracker/internal/handler"
	"github.com/locvowork/tasktracker/internal/logger"
	"github.com/locvowork/tasktracker/internal/middleware"
	"github.com/locvowork/tasktracker/internal/repository"
	"github.com/locvowork/tasktracker/internal/security"
	"github.com/locvowork/tasktracker/internal/service"
)

const shutdownTimeout = 10 * time.Second

type App struct {
	Echo   *echo.Echo
	DB     *database.DB
	Config *config.EnvConfig

	logCloser io.Closer
}

func NewApp() *App {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	return &App{Echo: e}
}

func (a *App) Initialize(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	a.Config = cfg

	a.logCloser = logger.InitLogging(logger.Options{
		FilePath: cfg.LogFilePath,
		Level:    cfg.LogLevel,
		Format:   cfg.LogFormat,
	})
	logger.InfoLog(ctx, "configuration loaded, database driver %s", cfg.DBDriver)

	db, err := database.Open(ctx, DatabaseConfig(cfg))
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	a.DB = db

	return a.Wire()
}

// DatabaseConfig translates the process configuration into connection settings.
func DatabaseConfig(cfg *config.EnvConfig) database.Config {
	return database.Config{
		Driver:          database.Dialect(cfg.DBDriver),
		Host:            cfg.DBHost,
		Port:            cfg.DBPort,
		User:            cfg.DBUser,
		Password:        cfg.DBPassword,
		DBName:          cfg.DBName,
		SSLMode:         cfg.DBSSLMode,
		Path:            cfg.DBPath,
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
		ConnectRetries:  cfg.DBConnectRetries,
	}
}

// Wire builds repositories, services and handlers on top of a.DB and
// registers them. Config and DB must be set.
func (a *App) Wire() error {
	if a.Config == nil || a.DB == nil {
		return errors.New("app config and database are required")
	}

	tokens, err := security.NewTokenService(a.Config.JWTSecretKey, a.Config.JWTAlgorithm)
	if err != nil {
		return fmt.Errorf("failed to initialize token service: %w", err)
	}
	hasher := security.NewPasswordHasher(a.Config.BcryptCost)
	exporter, err := export.NewDefaultTaskExporter()
	if err != nil {
		return fmt.Errorf("failed to initialize exporter: %w", err)
	}

	userRepo := repository.NewUserRepository(a.DB)
	taskRepo := repository.NewTaskRepository(a.DB)

	authSvc := service.NewAuthService(userRepo, hasher, tokens, a.Config.AccessTokenTTL())
	taskSvc := service.NewTaskService(taskRepo)

	a.Echo.HTTPErrorHandler = handler.HTTPErrorHandler
	a.RegisterMiddlewares()
	a.RegisterRoutes(
		handler.NewHealthHandler(a.DB),
		handler.NewAuthHandler(authSvc),
		handler.NewTaskHandler(taskSvc, exporter),
		middleware.RequireAuth(authSvc),
	)
	return nil
}

func (a *App) RegisterMiddlewares() {
	a.Echo.Use(middleware.RequestID())
	a.Echo.Use(middleware.RequestLogger())
	a.Echo.Use(echomw.Recover())
	a.Echo.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:     a.Config.CORSOrigins,
		AllowCredentials: true,
		AllowMethods: []string{
			http.MethodGet, http.MethodPost, http.MethodPut,
			http.MethodPatch, http.MethodDelete, http.MethodOptions,
		},
		AllowHeaders: []string{
			echo.HeaderAuthorization, echo.HeaderContentType, echo.HeaderXRequestID,
		},
	}))
}

func (a *App) RegisterRoutes(health *handler.HealthHandler, auth *handler.AuthHandler, tasks *handler.TaskHandler, requireAuth echo.MiddlewareFunc) {
	a.Echo.GET("/", health.RootHandler)
	a.Echo.GET("/healthz", health.HealthzHandler)

	authGroup := a.Echo.Group("/auth")
	authGroup.POST("/register", auth.RegisterHandler)
	authGroup.POST("/login", auth.LoginHandler)
	authGroup.GET("/me", auth.MeHandler, requireAuth)

	taskGroup := a.Echo.Group("/tasks", requireAuth)
	taskGroup.POST("", tasks.CreateHandler)
	taskGroup.GET("", tasks.ListHandler)
	taskGroup.GET("/status/:completed", tasks.ListByStatusHandler)
	taskGroup.GET("/export", tasks.ExportHandler)
	taskGroup.GET("/:id", tasks.GetHandler)
	taskGroup.PUT("/:id", tasks.UpdateHandler)
	taskGroup.PATCH("/:id", tasks.UpdateHandler)
	taskGroup.DELETE("/:id", tasks.DeleteHandler)

	taskGroup.POST("/:id/subtasks", tasks.CreateSubtaskHandler)
	taskGroup.PUT("/:id/subtasks/:subtask_id", tasks.UpdateSubtaskHandler)
	taskGroup.PATCH("/:id/subtasks/:subtask_id", tasks.UpdateSubtaskHandler)
	taskGroup.DELETE("/:id/subtasks/:subtask_id", tasks.DeleteSubtaskHandler)
}

// Run serves until ctx is cancelled or SIGINT/SIGTERM arrives, then drains
// in-flight requests.
func (a *App) Run(ctx context.Context) error {
	defer a.close()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.InfoLog(ctx, "listening on %s", a.Config.ListenAddr())
		errCh <- a.Echo.Start(a.Config.ListenAddr())
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.InfoLog(context.Background(), "shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := a.Echo.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func (a *App) close() {
	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			logger.ErrorLog(context.Background(), "close database: %v", err)
		}
	}
	if a.logCloser != nil {
		_ = a.logCloser.Close()
	}
}

package main // Entry point package

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4" // Echo web framework
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/fintrack/internal/auth"
	"github.com/iliyamo/fintrack/internal/config" // Internal config loader
	"github.com/iliyamo/fintrack/internal/database"
	"github.com/iliyamo/fintrack/internal/handler"
	"github.com/iliyamo/fintrack/internal/logging"
	"github.com/iliyamo/fintrack/internal/mailer"
	"github.com/iliyamo/fintrack/internal/metrics"
	"github.com/iliyamo/fintrack/internal/middleware"
	"github.com/iliyamo/fintrack/internal/queue"
	"github.com/iliyamo/fintrack/internal/ratelimit"
	"github.com/iliyamo/fintrack/internal/repository"
	"github.com/iliyamo/fintrack/internal/router" // Internal router setup
	"github.com/iliyamo/fintrack/internal/service"
	"github.com/iliyamo/fintrack/internal/storage"
	"github.com/iliyamo/fintrack/internal/validate"
)

const serviceName = "fintrack"

func main() {
	_ = godotenv.Load() // .env is optional outside development

	cfg := config.Load() // Load environment config
	logger := logging.NewLogger(logging.Config{
		ServiceName: serviceName,
		Environment: cfg.Env,
		Level:       cfg.LogLevel,
	})
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 1) Database: migrate with goose on the raw handle, then wrap it in gorm.
	sqlDB, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		fatal("open database", err)
	}
	defer sqlDB.Close()
	if cfg.DBMigrate {
		if err := database.Migrate(ctx, sqlDB); err != nil {
			fatal("migrate database", err)
		}
	}
	gdb, err := database.OpenGorm(sqlDB, cfg.DBLogSQL)
	if err != nil {
		fatal("open gorm", err)
	}

	// 2) Redis is optional: without it limiters stay in-process and the
	// stats cache is off.
	rdb := config.NewRedisClient()
	if rdb == nil {
		slog.Warn("redis unavailable, using in-process limiters and no response cache")
	} else {
		defer rdb.Close()
	}

	rl := config.LoadRateLimitConfig()
	adminLimiter := newLimiter(rl, rdb, rl.AdminLogin)
	userLimiter := newLimiter(rl, rdb, rl.UserLogin)

	// 3) Mail: the queue transport hands messages to RabbitMQ and, when
	// enabled, this process also drains the queue over SMTP.
	mailCfg := config.LoadMailConfig()
	mail, err := mailer.NewFromConfig(mailCfg, cfg.BaseURL)
	if err != nil {
		fatal("mailer", err)
	}
	if mailCfg.Transport == "queue" && mailCfg.Consume {
		go func() {
			if err := queue.StartMailConsumer(ctx, mailCfg.AMQPURL, mailer.Deliver(mailer.NewSMTPTransport(mailCfg))); err != nil {
				slog.Error("mail consumer stopped", "error", err)
			}
		}()
	}

	// 4) File storage for avatars and generated reports.
	storeCfg := config.LoadStorageConfig()
	files, err := storage.New(ctx, storeCfg)
	if err != nil {
		fatal("storage", err)
	}

	// 5) Repositories, collaborators and handlers.
	users := repository.NewUserRepo(gdb)
	tokens := repository.NewTokenRepo(gdb)
	admins := repository.NewAdminRepo(gdb)
	adminLogs := repository.NewAdminLogRepo(gdb)
	sessions := repository.NewSessionRepo(gdb)
	sessionLogs := repository.NewSessionLogRepo(gdb)
	security := repository.NewSecurityEventRepo(gdb)
	budgets := repository.NewBudgetRepo(gdb)
	notifications := repository.NewNotificationRepo(gdb)
	reports := repository.NewReportRepo(gdb)
	privacyRepo := repository.NewPrivacyRepo(gdb)
	privacy := service.NewPrivacy(users, privacyRepo, budgets, notifications, reports, sessionLogs)

	issuer := auth.NewIssuer(cfg.JWTSecret)
	userCookie := auth.CookieConfig{Name: cfg.Cookies.SessionName, Domain: cfg.Cookies.Domain, Secure: cfg.Cookies.Secure}
	adminCookie := auth.CookieConfig{
		Name:     cfg.Cookies.AdminName,
		Domain:   cfg.Cookies.Domain,
		Secure:   cfg.Cookies.Secure,
		SameSite: http.SameSiteStrictMode,
	}

	authH := &handler.AuthHandler{
		Cfg: cfg, Users: users, Tokens: tokens, Sessions: sessions, SessionLogs: sessionLogs,
		Security: security, Mailer: mail, Issuer: issuer, Cookie: userCookie,
	}
	var oauthH *handler.OAuthHandler
	if oc := config.LoadOAuthConfig(); oc.Enabled() {
		oauthH = handler.NewOAuthHandler(authH, oc)
	}
	adminAuthH := &handler.AdminAuthHandler{
		Cfg: cfg, Admins: admins, Logs: adminLogs, Security: security,
		Limiter: adminLimiter, Issuer: issuer, Cookie: adminCookie,
	}
	adminH := &handler.AdminHandler{
		Cfg: cfg, Users: users, Tokens: tokens, Admins: admins, Logs: adminLogs,
		Sessions: sessions, SessionLogs: sessionLogs, Security: security,
		Budgets: budgets, Privacy: privacyRepo, Mailer: mail,
	}

	// 6) HTTP server.
	metrics.MustRegister(prometheus.DefaultRegisterer, serviceName)

	e := echo.New() // Create Echo instance
	e.HideBanner = true
	e.IPExtractor = middleware.IPExtractor(cfg.TrustedProxies)
	e.Validator = validate.New()
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogStatus:    true,
		LogURI:       true,
		LogMethod:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			attrs := []any{
				"method", v.Method, "uri", v.URI, "status", v.Status,
				"latency_ms", v.Latency.Milliseconds(), "request_id", v.RequestID,
			}
			if v.Error != nil {
				slog.Error("request", append(attrs, "error", v.Error)...)
				return nil
			}
			slog.Info("request", attrs...)
			return nil
		},
	}))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:     cfg.CORSOrigins,
		AllowCredentials: true,
	}))
	e.Use(echomw.BodyLimit("6M"))
	e.Use(metrics.Middleware())
	if rl.APIEnabled {
		e.Use(middleware.RateLimit("api", newLimiter(rl, rdb, rl.API), middleware.ByIdentity))
	}

	if local, ok := files.(*storage.Local); ok {
		e.Static("/uploads", local.Root())
	}

	router.RegisterRoutes(e, sqlDB)
	router.RegisterAuth(e, authH, oauthH, userLimiter)
	router.RegisterAdminAuth(e, adminAuthH)
	router.RegisterAdmin(e, adminH, adminAuthH, middleware.NewRedisCache(config.LoadCacheConfig(), rdb))
	router.RegisterUser(e, router.UserHandlers{
		Auth:          authH,
		Budgets:       &handler.BudgetHandler{Budgets: budgets, Notifications: notifications},
		Notifications: &handler.NotificationHandler{Notifications: notifications},
		Reports:       &handler.ReportHandler{Reports: reports, Budgets: budgets, Files: files},
		User: &handler.UserHandler{
			Cfg: cfg, Users: users, Sessions: sessions, SessionLogs: sessionLogs,
			Security: security, Files: files,
		},
		Privacy: &handler.PrivacyHandler{Privacy: privacy},
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port, // Address string with port
		Handler:           e,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		slog.Info("listening", "addr", srv.Addr, "env", cfg.Env) // Print startup info
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fatal("server", err)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown", "error", err)
	}
}

// newLimiter picks the shared Redis limiter when the backend asks for it
// and Redis is reachable; otherwise counters stay in this process.  Keys
// are namespaced by the callers ("admin_login:<ip>", "user_login:<ip>").
func newLimiter(cfg config.RateLimitConfig, rdb *redis.Client, rule config.LimitRule) ratelimit.Limiter {
	if cfg.Backend == "redis" && rdb != nil {
		return ratelimit.NewRedis(rdb, cfg.Prefix, rule.Max, rule.Window)
	}
	return ratelimit.NewMemory(rule.Max, rule.Window)
}

func fatal(msg string, err error) {
	slog.Error(msg, "error", err)
	os.Exit(1)
}

package main

import (
	"context"
	"errors"
	"net/http"
	"net/http/httputil"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/soaringjerry/epds/internal/api"
	"github.com/soaringjerry/epds/internal/classifier"
	"github.com/soaringjerry/epds/internal/config"
	"github.com/soaringjerry/epds/internal/middleware"
	"github.com/soaringjerry/epds/internal/platform/logger"
	"github.com/soaringjerry/epds/internal/platform/tracing"
	"github.com/soaringjerry/epds/internal/report"
	"github.com/soaringjerry/epds/internal/services"
	"github.com/soaringjerry/epds/internal/utils"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// The logger is not configured yet.
		_, _ = os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(2)
	}
	log, err := logger.New(cfg.LogMode, cfg.LogLevel, cfg.LogSalt)
	if err != nil {
		_, _ = os.Stderr.WriteString("logger: " + err.Error() + "\n")
		os.Exit(2)
	}
	defer log.Sync()

	if len(os.Args) > 1 && os.Args[1] == "migrate" {
		if err := Migrate(cfg, log); err != nil {
			log.Fatal("migration failed", "error", err)
		}
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Setup(ctx, log, tracing.Config{Exporter: cfg.TraceExporter, Endpoint: cfg.OTLPEndpoint, Version: cfg.Commit})
	if err != nil {
		log.Fatal("tracing setup failed", "error", err)
	}

	model, err := classifier.LoadModel(cfg.ModelPath)
	if err != nil {
		log.Fatal("failed to load model artifact", "path", cfg.ModelPath, "error", err)
	}
	labels, err := classifier.LoadLabels(cfg.LabelsPath)
	if err != nil {
		log.Fatal("failed to load label artifact", "path", cfg.LabelsPath, "error", err)
	}
	if err := classifier.CheckCompatible(model, labels); err != nil {
		log.Fatal("model and labels disagree", "error", err)
	}

	store, err := openStore(ctx, cfg, log)
	if err != nil {
		log.Fatal("failed to open session store", "backend", cfg.SessionBackend, "error", err)
	}
	defer func() {
		if cerr := store.Close(); cerr != nil {
			log.Warn("failed to close session store", "error", cerr)
		}
	}()
	if sw, ok := store.(api.Sweeper); ok {
		go api.RunJanitor(ctx, sw, time.Minute, log)
	}

	sessions := services.NewSessionService(store, services.NewRiskEvaluator(model, labels))
	tokens := middleware.NewSessionTokens(cfg.SessionSecret, cfg.SessionTTL)
	if cfg.SessionSecret == "" {
		log.Warn("EPDS_SESSION_SECRET not set, using development secret")
	}
	bands := services.RiskBands(labels, model.Classes())
	fonts, err := report.LoadFonts(cfg.PDFFontPath)
	if err != nil {
		log.Fatal("failed to load pdf font", "path", cfg.PDFFontPath, "error", err)
	}
	renderer := report.NewRenderer(model.Classes(), fonts)

	if cfg.LogMode == "prod" || cfg.LogMode == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(
		gin.Recovery(),
		otelgin.Middleware(tracing.ServiceName),
		middleware.RequestLogger(log),
		middleware.CORS(cfg.CORSOrigins),
		middleware.Locale(),
		middleware.NoStore(),
		middleware.SecureHeaders(),
	)
	if cfg.RateLimit > 0 {
		engine.Use(middleware.RateLimit(middleware.NewIPLimiters(cfg.RateLimit, cfg.RateBurst)))
	}
	api.NewRouter(sessions, tokens, bands, renderer, log).Register(engine)

	engine.GET("/health", func(c *gin.Context) {
		locale := middleware.LocaleFromContext(c.Request.Context())
		c.JSON(http.StatusOK, gin.H{
			"ok":         true,
			"name":       "EPDS API",
			"locale":     locale,
			"msg":        utils.T(locale, "health.ok"),
			"commit":     cfg.Commit,
			"build_time": cfg.BuildTime,
		})
	})
	engine.GET("/version", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"commit": cfg.Commit, "build_time": cfg.BuildTime})
	})

	// Frontend serving strategy (priority):
	// 1) Static files if EPDS_STATIC_DIR is set
	// 2) Dev proxy if EPDS_DEV_FRONTEND_URL is set
	if cfg.StaticDir != "" {
		fs := http.FileServer(http.Dir(cfg.StaticDir))
		engine.NoRoute(gin.WrapH(fs))
	} else if cfg.DevFrontendURL != "" {
		if u, err := url.Parse(cfg.DevFrontendURL); err == nil {
			rp := httputil.NewSingleHostReverseProxy(u)
			rp.ModifyResponse = func(res *http.Response) error {
				res.Header.Set("Cache-Control", "no-store, no-cache, must-revalidate, max-age=0")
				res.Header.Set("Pragma", "no-cache")
				res.Header.Set("Expires", "0")
				return nil
			}
			engine.NoRoute(gin.WrapH(rp))
		} else {
			log.Warn("invalid EPDS_DEV_FRONTEND_URL", "url", cfg.DevFrontendURL, "error", err)
		}
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Info("EPDS server listening", "addr", cfg.Addr, "backend", cfg.SessionBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server error", "error", err)
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Warn("tracer shutdown failed", "error", err)
	}
}

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"connectrpc.com/connect"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
	"golang.org/x/sync/errgroup"

	"github.com/mmynk/signin/internal/attendance"
	"github.com/mmynk/signin/internal/auth"
	"github.com/mmynk/signin/internal/clock"
	"github.com/mmynk/signin/internal/config"
	"github.com/mmynk/signin/internal/funds"
	"github.com/mmynk/signin/internal/metrics"
	"github.com/mmynk/signin/internal/middleware"
	"github.com/mmynk/signin/internal/notify"
	"github.com/mmynk/signin/internal/reconcile"
	"github.com/mmynk/signin/internal/service"
	"github.com/mmynk/signin/internal/storage"
	"github.com/mmynk/signin/internal/storage/postgres"
	"github.com/mmynk/signin/internal/storage/sqlite"
	"github.com/mmynk/signin/pkg/api/apiconnect"
	"github.com/mmynk/signin/pkg/logging"
)

const shutdownTimeout = 10 * time.Second

func main() {
	envFile := flag.String("env", ".env", "optional dotenv file")
	issueToken := flag.String("issue-token", "", "print a bearer token for the member ID and exit")
	flag.Parse()

	cfg, err := config.Load(*envFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}
	logger := logging.Setup(cfg.LogLevel)

	store, err := openStore(cfg, logger)
	if err != nil {
		slog.Error("Failed to initialize storage", "driver", cfg.StorageDriver, "error", err)
		os.Exit(1)
	}
	defer store.Close()
	slog.Info("Storage initialized", "driver", cfg.StorageDriver)

	var jwtManager *auth.JWTManager
	if cfg.JWTSecret != "" {
		jwtManager = auth.NewJWTManager(cfg.JWTSecret, cfg.TokenDuration)
	}

	if *issueToken != "" {
		if err := printToken(store, jwtManager, *issueToken); err != nil {
			slog.Error("Failed to issue token", "member_id", *issueToken, "error", err)
			store.Close()
			os.Exit(1)
		}
		return
	}

	if err := run(cfg, logger, store, jwtManager); err != nil {
		slog.Error("Server failed", "error", err)
		store.Close()
		os.Exit(1)
	}
}

func openStore(cfg *config.Config, logger *slog.Logger) (storage.Store, error) {
	if cfg.StorageDriver == "postgres" {
		return postgres.New(cfg.DatabaseURL, logger)
	}
	return sqlite.New(cfg.DBPath)
}

func printToken(store storage.Store, jwtManager *auth.JWTManager, memberID string) error {
	if jwtManager == nil {
		return errors.New("JWT_SECRET is not set")
	}
	member, err := store.GetMember(context.Background(), memberID)
	if err != nil {
		return err
	}
	token, err := jwtManager.Generate(member)
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}

func openNotifier(cfg *config.Config) notify.Notifier {
	if cfg.RabbitMQURL == "" {
		return notify.Nop{}
	}
	publisher, err := notify.NewAMQPPublisher(cfg.RabbitMQURL)
	if err != nil {
		slog.Warn("RabbitMQ unavailable, transitions will not be published", "error", err)
		return notify.Nop{}
	}
	slog.Info("Publishing transitions", "exchange", notify.Exchange)
	return publisher
}

func run(cfg *config.Config, logger *slog.Logger, store storage.Store, jwtManager *auth.JWTManager) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	notifier := openNotifier(cfg)
	defer notifier.Close()

	clk := clock.System{}
	attendanceSvc := attendance.New(store, clk, attendance.WithNotifier(notifier), attendance.WithMetrics(m))
	scheduler := reconcile.NewScheduler(logger, store, cfg.AutoSignout, clk,
		reconcile.WithInterval(cfg.SignoutInterval),
		reconcile.WithNotifier(notifier),
		reconcile.WithMetrics(m),
	)
	engine := funds.NewEngine(store, cfg.Zone)
	if cfg.AuthDisabled {
		slog.Warn("Authorization is disabled")
	}

	// Metrics first so rejected calls are counted; logging after Authorize so
	// the caller is known.
	interceptors := connect.WithInterceptors(
		m.Interceptor(),
		middleware.Authorize(jwtManager, cfg.AuthDisabled),
		middleware.LoggingInterceptor(),
	)

	mux := http.NewServeMux()
	mux.Handle(apiconnect.NewAttendanceServiceHandler(
		service.NewAttendanceService(attendanceSvc, scheduler, cfg.Zone), interceptors))
	mux.Handle(apiconnect.NewFundsServiceHandler(
		service.NewFundsService(engine), interceptors))
	mux.Handle(apiconnect.NewRegistryServiceHandler(
		service.NewRegistryService(store, clk, cfg.Zone, service.GraceDefaults{
			PreEventMinutes:  cfg.PreEventMinutes,
			PostEventMinutes: cfg.PostEventMinutes,
		}, jwtManager), interceptors))
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	// Wrap with h2c for HTTP/2 without TLS (required for Connect)
	handler := h2c.NewHandler(loggingMiddleware(corsMiddleware(mux)), &http2.Server{})
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("Connect server starting", "address", server.Addr, "url", fmt.Sprintf("http://localhost%s", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return scheduler.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// loggingMiddleware logs all incoming requests
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		slog.Debug("Request completed",
			"method", r.Method,
			"path", r.URL.Path,
			"remote_addr", r.RemoteAddr,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

// corsMiddleware adds CORS headers for browser access
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type, Connect-Protocol-Version, Connect-Timeout-Ms")
		w.Header().Set("Access-Control-Expose-Headers", "Connect-Protocol-Version, Connect-Timeout-Ms")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

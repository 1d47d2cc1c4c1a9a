package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"timeflow/internal/clock"
	"timeflow/internal/config"
	"timeflow/internal/handler"
	"timeflow/internal/i18n"
	"timeflow/internal/idle"
	"timeflow/internal/notify"
	"timeflow/internal/service"
	"timeflow/internal/store"
)

func main() {
	cfg := config.Load()

	policy, err := config.LoadPolicy(cfg.PolicyPath)
	if err != nil {
		log.Fatalf("Failed to load policy: %v", err)
	}

	i18n.Init(cfg.Locale)

	// Connect to MongoDB
	db, err := store.NewMongoDB(cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer db.Close(context.Background())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Stores
	timeLogs, err := store.NewTimeLogStore(ctx, db)
	if err != nil {
		log.Fatalf("Failed to init timelog store: %v", err)
	}
	breakLogs, err := store.NewBreakLogStore(ctx, db)
	if err != nil {
		log.Fatalf("Failed to init breaklog store: %v", err)
	}
	attendance, err := store.NewAttendanceStore(ctx, db)
	if err != nil {
		log.Fatalf("Failed to init attendance store: %v", err)
	}

	// Notification sink
	var sink notify.Sink = notify.LogSink{}
	if cfg.NotifySink == "dbus" {
		dbusSink, err := notify.NewDBusSink()
		if err != nil {
			log.Printf("WARN dbus sink unavailable, falling back to log: %v", err)
		} else {
			defer dbusSink.Close()
			sink = dbusSink
		}
	}

	clk := clock.New()
	notifier := notify.NewThrottler(sink, clk)

	// Services
	attendanceSvc := service.NewAttendanceService(attendance, timeLogs, clk, policy)
	reconciler := service.NewReconciler(timeLogs, breakLogs, attendanceSvc, clk, policy.Reconcile.Interval)
	sessionSvc := service.NewSessionService(timeLogs, breakLogs, attendanceSvc, reconciler, clk)

	go func() {
		if err := reconciler.Run(ctx); err != nil {
			log.Printf("ERROR reconciler: %v", err)
		}
	}()

	// Session watcher needs an idle source; without one it still enforces
	// auto-stop and break overtime.
	var idleSrc service.IdleSource = noIdle{}
	if cfg.IdleSource == "dbus" {
		src, err := idle.NewSource()
		if err != nil {
			log.Printf("WARN dbus idle source unavailable: %v", err)
		} else {
			defer src.Close()
			idleSrc = src
		}
	}
	watcher := service.NewWatcher(timeLogs, breakLogs, sessionSvc, idleSrc, notifier, clk, policy)
	go func() {
		if err := watcher.Run(ctx); err != nil {
			log.Printf("ERROR watcher: %v", err)
		}
	}()

	// Routes
	mux := http.NewServeMux()
	handler.NewTimeHandler(sessionSvc, policy).RegisterRoutes(mux)
	handler.NewAttendanceHandler(attendanceSvc).RegisterRoutes(mux)

	// Health checks
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("GET /ready", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	// Start server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler.LoggingMiddleware(mux),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("TimeFlow service started on :%s (env: %s)", cfg.Port, cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down...")
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	srv.Shutdown(shutdownCtx)
}

// noIdle reports no idle time; used when no idle source is configured.
type noIdle struct{}

func (noIdle) IdleDuration(context.Context, string) (time.Duration, error) { return 0, nil }

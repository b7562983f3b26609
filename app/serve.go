package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-co-op/gocron"

	"trend-signals/analysis"
	"trend-signals/api"
)

// Serve runs the scheduled acquisition, the HTTP API and the event stream until SIGINT or SIGTERM
func (a *App) Serve() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		a.broker.Run(ctx)
	}()

	scheduler := gocron.NewScheduler(time.UTC)
	scheduler.SingletonModeAll()
	if _, err := scheduler.Every(1).Day().At(a.config.Server.Schedule).Do(func() {
		if _, err := a.RunOnce(ctx); err != nil && !errors.Is(err, analysis.ErrInsufficientData) {
			log.Printf("⚠️  Scheduled run failed: %v", err)
		}
	}); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", a.config.Server.Schedule, err)
	}
	scheduler.StartAsync()
	log.Printf("⏰ Daily run scheduled at %s UTC", a.config.Server.Schedule)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.config.Server.Port),
		Handler:           api.NewServer(a, a.broker, a.registry).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Printf("🌐 API server listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("❌ API server error: %v", err)
		}
	}()

	err := a.gracefulShutdown(cancel, scheduler, server)
	wg.Wait()
	return err
}

// shutdownTimeout bounds the graceful shutdown
const shutdownTimeout = 10 * time.Second

// jobScheduler is the part of gocron.Scheduler used during shutdown
type jobScheduler interface {
	Stop()
}

// gracefulShutdown waits for SIGINT or SIGTERM, then shuts down
func (a *App) gracefulShutdown(cancel context.CancelFunc, scheduler jobScheduler, server *http.Server) error {
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)

	<-interrupt
	fmt.Println("\n🛑 Shutdown signal received, initiating graceful shutdown...")

	return a.shutdown(cancel, scheduler, server, shutdownTimeout)
}

// shutdown stops the scheduler, the API server and the infrastructure within timeout.
// gocron's Stop waits for a running job, and a run can sit in a 60s backoff, so the
// scheduler is stopped in the background; the run is abandoned at its next keyword.
func (a *App) shutdown(cancel context.CancelFunc, scheduler jobScheduler, server *http.Server, timeout time.Duration) error {
	// Acquisition only observes cancellation between keywords
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
	defer shutdownCancel()

	fmt.Println("⏰ Stopping scheduler...")
	go scheduler.Stop()
	if a.isRunning() {
		fmt.Println("⚠️  A run is in progress and will stop at its next keyword; its results are discarded")
	}

	shutdownComplete := make(chan struct{})
	go func() {
		fmt.Println("🌐 Stopping API server...")
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("Error stopping API server: %v", err)
		}

		a.Close()
		close(shutdownComplete)
	}()

	select {
	case <-shutdownComplete:
		fmt.Println("✅ Graceful shutdown completed")
		return nil
	case <-shutdownCtx.Done():
		fmt.Println("⚠️  Shutdown timeout exceeded, forcing exit")
		return fmt.Errorf("shutdown timeout")
	}
}

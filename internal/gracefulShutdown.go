package internal

import (
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// shutdownTimeout is how long shutdown tasks may take before the process is
// killed anyway. Kubernetes sends SIGTERM 30 seconds before the pod goes.
const shutdownTimeout = 30 * time.Second

type GracefulShutdownHandler interface {
	Shutdown()          // Triggers the shutdown programmatically.
	ShuttingDown() bool // Reports whether a shutdown is in progress.
	Wait()              // Blocks until the shutdown tasks are complete.
}

type gracefulShutdown struct {
	quit         chan os.Signal
	shuttingDown chan bool
	wg           sync.WaitGroup
}

// NewGracefulShutdown traps SIGINT/SIGTERM and runs onShutdown once a signal
// arrives, then exits the process. Tasks exceeding the timeout abort the
// process with a non-zero status.
func NewGracefulShutdown(onShutdown func() error) GracefulShutdownHandler {
	gs := &gracefulShutdown{
		quit:         make(chan os.Signal, 1),
		shuttingDown: make(chan bool, 1),
	}
	gs.wg.Add(1)

	go func() {
		defer gs.wg.Done()
		signal.Notify(gs.quit, syscall.SIGINT, syscall.SIGTERM)
		sig := <-gs.quit
		gs.shuttingDown <- true
		zap.S().Infow("Received signal, shutting down", "signal", sig.String())

		if onShutdown != nil {
			go func() {
				<-time.After(shutdownTimeout)
				zap.S().Errorw("Shutdown tasks did not complete in time", "timeout", shutdownTimeout)
				_ = zap.S().Sync()
				os.Exit(1)
			}()
			if err := onShutdown(); err != nil {
				zap.S().Errorw("Error during shutdown", "error", err)
				return
			}
		}
		zap.S().Info("Shutdown tasks completed. Ready to exit.")
		os.Exit(0)
	}()

	return gs
}

func (gs *gracefulShutdown) ShuttingDown() bool {
	select {
	case <-gs.shuttingDown:
		// Put the value back for later checks during shutdown.
		gs.shuttingDown <- true
		return true
	default:
		return false
	}
}

func (gs *gracefulShutdown) Shutdown() {
	if !gs.ShuttingDown() {
		gs.quit <- syscall.SIGTERM
	}
}

func (gs *gracefulShutdown) Wait() {
	gs.wg.Wait()
}

// Package service provides process lifecycle helpers for long-running
// responderctl commands and failure records for the installer.
package service

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"autoresponder/internal/logger"
)

// RunFunc is a blocking operation that returns when ctx is cancelled.
type RunFunc func(ctx context.Context) error

// RunUntilSignal runs fn until it returns or SIGINT/SIGTERM arrives. The
// first signal cancels fn's context and waits for it; a second signal
// returns immediately.
func RunUntilSignal(ctx context.Context, fn RunFunc) error {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	return runUntil(ctx, fn, sigChan)
}

func runUntil(ctx context.Context, fn RunFunc, sigChan <-chan os.Signal) error {
	log := logger.WithComponent("service")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- fn(ctx)
	}()

	select {
	case sig := <-sigChan:
		log.Debug().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()

		select {
		case err := <-done:
			return ignoreCanceled(err)
		case sig := <-sigChan:
			log.Warn().Str("signal", sig.String()).Msg("Received second signal, forcing exit")
			return nil
		}

	case err := <-done:
		return ignoreCanceled(err)
	}
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// SPDX-License-Identifier: MIT

package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/virajmehta/MetaCURE-Public/internal/log"
)

// Serve runs the API server until ctx is cancelled or the listener fails.
// On cancellation the server drains in-flight requests within the
// configured shutdown timeout; the bound is independent of the already
// cancelled parent context.
func (s *Server) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.rt.ListenAddr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: s.rt.ReadHeaderTimeout,
	}

	logger := log.WithComponent("server")
	errChan := make(chan error, 1)
	go func() {
		logger.Info().
			Str("event", "server.listening").
			Str(log.FieldAddr, s.rt.ListenAddr).
			Msg("runs API listening")

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("runs API server: %w", err)
		}
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.rt.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	logger.Info().Str("event", "server.stopped").Msg("runs API stopped")
	return nil
}

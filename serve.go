package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jocarsa/jocarsa-lavender/internal/handler"
	"github.com/jocarsa/jocarsa-lavender/internal/router"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP query API",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.auth.SeedAdmin(ctx, a.cfg.Auth.AdminUsername, a.cfg.Auth.AdminPassword); err != nil {
		a.log.Warn().Err(err).Msg("failed to seed admin")
	}

	httpLog := a.logs.Component("http")
	r := router.New(
		a.cfg.Server,
		httpLog,
		handler.NewQueryHandler(a.query, httpLog),
		handler.NewAuthHandler(a.auth, httpLog),
		handler.NewHealthHandler(a.store, httpLog),
	)
	var h http.Handler = r
	if a.cfg.Server.RequestTimeout > 0 {
		h = http.TimeoutHandler(r, a.cfg.Server.RequestTimeout, `{"ok":false,"error":"request timed out"}`)
	}
	srv := &http.Server{
		Addr:              a.cfg.Server.Addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		a.log.Info().Str("addr", srv.Addr).Msg("lavender server starting")
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	a.log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

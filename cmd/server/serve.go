package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/acme/autocert"

	"github.com/inam-1906/datock-website/internal/config"
	"github.com/inam-1906/datock-website/internal/email"
	"github.com/inam-1906/datock-website/internal/handler"
	"github.com/inam-1906/datock-website/internal/logger"
	"github.com/inam-1906/datock-website/internal/middleware"
	"github.com/inam-1906/datock-website/internal/render"
	"github.com/inam-1906/datock-website/internal/router"
	"github.com/inam-1906/datock-website/internal/service"
	"github.com/inam-1906/datock-website/web"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, opts)
		},
	}
}

func runServe(cmd *cobra.Command, opts *rootOptions) error {
	cfg, err := opts.load()
	if err != nil {
		return err
	}

	// Initialize logger
	log := logger.New(cfg.Log.Level, cfg.Log.Format)
	log.Info().Str("version", handler.Version).Msg("starting DaTock website")

	if cfg.InsecureSecret() {
		log.Warn().Msg("security.secret_key is not set; CSRF tokens use the built-in placeholder key")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Email delivery
	sender, err := email.NewFromConfig(ctx, cfg.Email, log)
	if err != nil {
		return fmt.Errorf("failed to configure email sender: %w", err)
	}
	contactSvc := service.NewContactService(sender, cfg, log)

	// Templates
	renderer, err := newRenderer(cfg)
	if err != nil {
		return err
	}
	if cfg.Site.DevMode {
		log.Info().Str("dir", cfg.Site.TemplateDir).Msg("dev mode: templates reload on every request")
	}

	// Initialize handlers and middleware
	h := handler.New(log, cfg, renderer, contactSvc, sender)
	mw := middleware.New(log, cfg)

	// Create HTTP server
	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router.New(h, mw, cfg),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	challengeSrv, err := configureTLS(srv, cfg.Server.TLS)
	if err != nil {
		return err
	}

	errCh := make(chan error, 2)
	if challengeSrv != nil {
		go func() {
			log.Info().Str("addr", challengeSrv.Addr).Msg("ACME challenge listener started")
			errCh <- challengeSrv.ListenAndServe()
		}()
	}
	go func() {
		log.Info().
			Str("addr", srv.Addr).
			Bool("tls", cfg.Server.TLS.Enabled).
			Msg("HTTP server listening")
		errCh <- listen(srv, cfg.Server.TLS)
	}()

	// Wait for a listener failure or an interrupt signal
	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if challengeSrv != nil {
		_ = challengeSrv.Shutdown(shutdownCtx)
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Info().Msg("server stopped")
	return nil
}

// newRenderer parses the embedded templates, or the on-disk template
// directory in dev mode so edits show up without a rebuild.
func newRenderer(cfg *config.Config) (*render.Renderer, error) {
	var (
		fsys   fs.FS = web.Templates()
		reload bool
	)
	if cfg.Site.DevMode && cfg.Site.TemplateDir != "" {
		fsys = os.DirFS(cfg.Site.TemplateDir)
		reload = true
	}

	renderer, err := render.New(fsys, render.WithReload(reload))
	if err != nil {
		return nil, fmt.Errorf("failed to load templates: %w", err)
	}
	for _, name := range handler.Templates() {
		if !renderer.HasPage(name) {
			return nil, fmt.Errorf("failed to load templates: missing page %q", name)
		}
	}
	return renderer, nil
}

// configureTLS prepares srv for HTTPS. With autocert it also returns the
// plain HTTP server answering ACME challenges on port 80.
func configureTLS(srv *http.Server, cfg config.TLSConfig) (*http.Server, error) {
	if !cfg.Enabled || cfg.CertFile != "" {
		return nil, nil
	}
	if len(cfg.AutocertDomains) == 0 {
		return nil, errors.New("tls is enabled but neither cert_file/key_file nor autocert_domains are set")
	}

	m := &autocert.Manager{
		Prompt:     autocert.AcceptTOS,
		HostPolicy: autocert.HostWhitelist(cfg.AutocertDomains...),
		Cache:      autocert.DirCache(cfg.CacheDir),
		Email:      cfg.AutocertEmail,
	}
	srv.TLSConfig = m.TLSConfig()

	return &http.Server{
		Addr:    ":http",
		Handler: m.HTTPHandler(nil),
	}, nil
}

func listen(srv *http.Server, cfg config.TLSConfig) error {
	switch {
	case !cfg.Enabled:
		return srv.ListenAndServe()
	case cfg.CertFile != "":
		return srv.ListenAndServeTLS(cfg.CertFile, cfg.KeyFile)
	default:
		// Certificates come from srv.TLSConfig
		return srv.ListenAndServeTLS("", "")
	}
}

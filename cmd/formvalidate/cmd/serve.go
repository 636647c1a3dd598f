package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-formvalidator/internal/server"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve form validation over HTTP",
		Long: `Load every form definition under forms.dir (and every OpenAPI operation
of forms.openapi) and serve:

  GET  /forms
  GET  /forms/{form}
  POST /forms/{form}/validate`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, a)
		},
	}

	flags := cmd.Flags()
	flags.String("addr", "", "listen address")
	flags.String("forms", "", "directory of form definitions")
	flags.String("openapi", "", "OpenAPI document path or URL")
	bindFlag(a.v, "server.addr", flags.Lookup("addr"))
	bindFlag(a.v, "forms.dir", flags.Lookup("forms"))
	bindFlag(a.v, "forms.openapi", flags.Lookup("openapi"))
	return cmd
}

func runServe(ctx context.Context, a *app) error {
	cfg := a.cfg

	forms, err := loadForms(ctx, cfg.Forms.Dir, cfg.Forms.OpenAPI)
	if err != nil {
		return err
	}
	translator, err := loadTranslator(cfg.I18n.File)
	if err != nil {
		return err
	}
	srv, err := server.New(forms,
		server.WithTranslator(translator),
		server.WithLocale(cfg.I18n.Locale),
		server.WithLogger(a.logger),
	)
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      srv.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("server listening",
			slog.String("addr", cfg.Server.Addr),
			slog.Any("forms", srv.Names()),
		)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	a.logger.Info("server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

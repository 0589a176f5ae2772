package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ChrisMcGann/CliqueKey/internal/server"
)

func init() {
	serveCmd.Flags().String("addr", ":8080", "Address to listen on")
	serveCmd.Flags().StringSlice("allowed-origins", nil, "CORS origins allowed to call the API (default: any)")
	serveCmd.Flags().Duration("shutdown-timeout", 10*time.Second, "Time allowed for in-flight requests on shutdown")
	registerGroupingFlags(serveCmd.Flags())
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve clique grouping over HTTP",
	Long: `Start an HTTP server answering POST /api/cliques with the clique of every
posted feature. Grouping flags set the defaults for requests that omit them.

Examples:
  cliquekey serve --addr :9000 --filter`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	log, err := newLogger()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	assigner, _, err := lookupAssigner()
	if err != nil {
		return err
	}

	h := server.NewHandler(log, server.Config{
		Params:         groupingParams(),
		Assigner:       assigner,
		AllowedOrigins: vip.GetStringSlice("allowed-origins"),
	})

	srv := &http.Server{
		Addr:              vip.GetString("addr"),
		Handler:           h.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errc := make(chan error, 1)
	go func() {
		log.Info("listening", zap.String("addr", srv.Addr))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), vip.GetDuration("shutdown-timeout"))
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

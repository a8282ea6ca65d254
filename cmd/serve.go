package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/papapumpkin/surveyor/internal/httpapi"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the import, export and totals HTTP API",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (default: serve.addr from config)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	addr, _ := cmd.Flags().GetString("addr")

	e, err := newEnv(cmd, true)
	if err != nil {
		return err
	}
	defer e.Close()
	if addr == "" {
		addr = e.cfg.Serve.Addr
	}

	if !e.cfg.Verbose {
		gin.SetMode(gin.ReleaseMode)
	}
	srv := &httpapi.Server{
		Importer: e.importer(cmd.ErrOrStderr()),
		Prices:   e.store,
		MaxBytes: e.cfg.MaxFileSizeBytes(),
	}
	if e.cfg.Verbose {
		srv.Logger = cmd.ErrOrStderr()
	}
	if err := srv.Start(addr); err != nil {
		return err
	}
	e.printer.Info("listening on http://%s", srv.Addr())

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

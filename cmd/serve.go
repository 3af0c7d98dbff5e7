package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/kozaktomas/face-session/internal/config"
	"github.com/kozaktomas/face-session/internal/constants"
	"github.com/kozaktomas/face-session/internal/web"
	"github.com/kozaktomas/face-session/internal/web/handlers"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Start an HTTP API over one session.

Routes:
  GET  /api/v1/health
  GET  /api/v1/identities
  POST /api/v1/recognize       image body
  POST /api/v1/learn?name=     image body

The model is saved when the server shuts down unless --dont-save is given.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 0, "Port to listen on (defaults to WEB_PORT or 8080)")
	serveCmd.Flags().String("host", "", "Host to bind to (defaults to WEB_HOST or 0.0.0.0)")
	serveCmd.Flags().Bool("reset", false, "Remove the saved model and retrain from the corpus")
	serveCmd.Flags().Bool("dont-save", false, "Do not save the model on shutdown")
}

// resolveServeHostPort applies flag overrides on top of the config.
func resolveServeHostPort(cmd *cobra.Command, cfg *config.Config) {
	if port := mustGetInt(cmd, "port"); port > 0 {
		cfg.Web.Port = port
	}
	if host := mustGetString(cmd, "host"); host != "" {
		cfg.Web.Host = host
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	resolveServeHostPort(cmd, cfg)

	s, err := openSession(cfg, mustGetBool(cmd, "reset"), mustGetBool(cmd, "dont-save"))
	if err != nil {
		return err
	}

	server := web.NewServer(cfg, handlers.NewFacesHandler(s))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	shutdownErr := make(chan error, 1)
	go func() {
		<-sigChan
		fmt.Println("\nShutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(ctx, constants.ShutdownTimeout)
		defer shutdownCancel()

		shutdownErr <- server.Shutdown(shutdownCtx)
	}()

	fmt.Printf("Starting Face Session API on http://%s:%d\n", cfg.Web.Host, cfg.Web.Port)
	fmt.Println("Press Ctrl+C to stop")

	if err := server.Start(); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}

	if err := <-shutdownErr; err != nil {
		return err
	}
	if !mustGetBool(cmd, "dont-save") {
		fmt.Printf("Model saved to %s\n", cfg.Model.Path)
	}
	return nil
}

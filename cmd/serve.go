package cmd

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/spf13/cobra"

	"github.com/streed/memo/internal/api"
	"github.com/streed/memo/internal/logger"
)

var (
	serveHost string
	servePort int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start HTTP API server",
	Long: heredoc.Doc(`
		Start the HTTP server that backs the memo web UI.

		The server exposes:

		  /api/notes, /api/search/notes   search with the query language
		  /api/notes/{id}                 note CRUD, trash and restore
		  /api/notes/{id}/tags            attach and detach tags
		  /api/tags/...                   favorite, other and all tags
		  /api/query/explain              show how a query compiles
		  /api/health                     liveness and database check
		  /metrics                        Prometheus metrics (enable_metrics)

		Static files are served from the configured web directory.

		Examples:
		  memo serve                              # Listen on the configured host and port
		  memo serve --host 127.0.0.1 --port 3000 # Override the listen address
	`),
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveHost, "host", "", "Host to bind the server to (default from config)")
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to bind the server to (default from config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	if cmd.Flags().Changed("host") {
		appConfig.Host = serveHost
	}
	if cmd.Flags().Changed("port") {
		appConfig.Port = servePort
	}
	if err := appConfig.Validate(); err != nil {
		return err
	}

	logger.Info("Initializing HTTP API server...")
	api.Version = Version
	apiServer := api.NewAPIServer(appConfig, db.Conn(), noteRepo, tagRepo, searcher, appMetrics)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		errChan <- apiServer.Start()
	}()

	out := cmd.OutOrStdout()
	base := "http://" + appConfig.Addr()
	fmt.Fprintf(out, "\nmemo HTTP API Server\n")
	fmt.Fprintf(out, "──────────────────────────────────────────\n")
	fmt.Fprintf(out, "Server URL: %s\n", base)
	fmt.Fprintf(out, "Health:     %s/api/health\n", base)
	if appConfig.EnableMetrics {
		fmt.Fprintf(out, "Metrics:    %s/metrics\n", base)
	}
	fmt.Fprintf(out, "\nExample:\n")
	fmt.Fprintf(out, "   curl '%s/api/notes?query=%%40tags%%3Awork'\n", base)
	fmt.Fprintf(out, "\nPress Ctrl+C to stop the server\n")
	fmt.Fprintf(out, "──────────────────────────────────────────\n\n")

	select {
	case sig := <-sigChan:
		logger.Info("Received signal %v, shutting down gracefully...", sig)
		if err := apiServer.Stop(); err != nil {
			logger.Error("Error during server shutdown: %v", err)
			return err
		}
		logger.Info("Server stopped successfully")
		return nil
	case err := <-errChan:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server error: %v", err)
			return err
		}
		return nil
	}
}

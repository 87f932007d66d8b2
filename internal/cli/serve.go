package cli

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/memlens/memlens-go/pkg/core"
	"github.com/memlens/memlens-go/pkg/server"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8422", "listen address")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := core.LoadConfigFromEnv()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	client, err := core.NewClient(cfg)
	if err != nil {
		return fmt.Errorf("init client: %w", err)
	}
	defer client.Close()

	srv := server.New(client, VersionString())
	httpServer := &http.Server{
		Addr:    serveAddr,
		Handler: srv,
	}

	// Graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		fmt.Fprintf(os.Stderr, "memlens serving on %s\n", serveAddr)
		fmt.Fprintf(os.Stderr, "  representation: %s\n", cfg.Representation.Provider)
		if cfg.Archive.Provider != "" {
			fmt.Fprintf(os.Stderr, "  archive: %s\n", cfg.Archive.Provider)
		}
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fmt.Fprintf(os.Stderr, "server error: %v\n", err)
			os.Exit(1)
		}
	}()

	<-done
	fmt.Fprintln(os.Stderr, "\nshutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return httpServer.Shutdown(ctx)
}

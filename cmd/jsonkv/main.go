package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sanonone/jsonkv/internal/server"
	"github.com/sanonone/jsonkv/pkg/config"
	"github.com/sanonone/jsonkv/pkg/engine"
)

func main() {
	configPath := flag.String("config", "", "Path to a YAML configuration file (optional)")
	httpAddr := flag.String("http-addr", ":3000", "Address and port of the HTTP server (e.g. :3000)")
	dataDir := flag.String("data-dir", ".", "Directory holding the store file")
	storeFile := flag.String("store-file", engine.DefaultFilename, "Name of the store file inside data-dir")
	authToken := flag.String("auth-token", "", "Bearer token required on data routes (empty disables auth)")

	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}

	// Flags given explicitly win over the configuration file.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "http-addr":
			cfg.HTTP.Addr = *httpAddr
		case "data-dir":
			cfg.Storage.DataDir = *dataDir
		case "store-file":
			cfg.Storage.Filename = *storeFile
		case "auth-token":
			cfg.HTTP.AuthToken = *authToken
		}
	})
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}

	logger := cfg.Log.NewLogger()

	opts := engine.DefaultOptions(cfg.Storage.DataDir)
	opts.Filename = cfg.Storage.Filename
	opts.NoSync = cfg.Storage.NoSync
	opts.MaxStoreBytes = cfg.Storage.MaxStoreBytes
	opts.Logger = logger

	eng, err := engine.Open(opts)
	if err != nil {
		var corrupt *engine.CorruptStoreError
		if errors.As(err, &corrupt) {
			logger.Error("Store file is corrupt, refusing to start", "path", corrupt.Path, "error", corrupt.Err)
		} else {
			logger.Error("Could not open the store", "error", err)
		}
		os.Exit(1)
	}

	srv, err := server.NewServer(eng, cfg, logger)
	if err != nil {
		logger.Error("Could not create the server", "error", err)
		eng.Close()
		os.Exit(1)
	}

	shutdownChan := make(chan os.Signal, 1)
	signal.Notify(shutdownChan, syscall.SIGINT, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Run()
	}()

	exitCode := 0
	select {
	case sig := <-shutdownChan:
		logger.Info("Shutdown signal received", "signal", sig.String())
		srv.Shutdown()
	case err := <-errChan:
		if err != nil {
			logger.Error("Server stopped", "error", err)
			exitCode = 1
		}
	}

	// Waits for an in-flight mutation to finish its durable write.
	if err := eng.Close(); err != nil {
		logger.Error("Engine close failed", "error", err)
		exitCode = 1
	}
	logger.Info("Shutdown complete")
	os.Exit(exitCode)
}

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/tcriess/lightspeed-collab/config"
	"github.com/tcriess/lightspeed-collab/globals"
	"github.com/tcriess/lightspeed-collab/persistence"
	"github.com/tcriess/lightspeed-collab/ws"
)

const shutdownTimeout = 10 * time.Second

var (
	configPath = pflag.StringP("config", "c", "", "path to config file or directory")
	envFile    = pflag.String("env-file", ".env", "dotenv file loaded into the environment (optional)")
)

func main() {
	flagSet := config.GetFlagSet()
	pflag.CommandLine.AddFlagSet(flagSet)
	pflag.Parse()

	if err := godotenv.Load(*envFile); err != nil && !os.IsNotExist(err) {
		globals.AppLogger.Warn("could not load env file", "file", *envFile, "error", err)
	}

	globalConfig, err := config.ReadConfiguration(*configPath, flagSet)
	if err != nil {
		globals.AppLogger.Error("could not read configuration", "error", err)
		os.Exit(1)
	}
	globals.AppLogger.SetLevel(hclog.LevelFromString(globalConfig.LogLevel))

	persister, err := persistence.NewPersister(globalConfig)
	if err != nil {
		globals.AppLogger.Error("could not open journal", "error", err)
		os.Exit(1)
	}
	if persister != nil {
		defer persister.Close()
	}

	hub, err := ws.NewHub(globalConfig, persister)
	if err != nil {
		globals.AppLogger.Error("could not create hub", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hubDone := make(chan error, 1)
	go func() {
		hubDone <- hub.Run(ctx)
	}()

	server := &http.Server{
		Addr:    globalConfig.ListenAddr(),
		Handler: ws.NewRouter(hub),
	}
	serverDone := make(chan error, 1)
	go func() {
		globals.AppLogger.Info("listening", "addr", server.Addr, "allowed_origin", globalConfig.AllowedOrigin)
		serverDone <- server.ListenAndServe()
	}()

	select {
	case err = <-serverDone:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			globals.AppLogger.Error("stopped listening", "error", err)
		}
		stop()
	case err = <-hubDone:
		if err != nil {
			globals.AppLogger.Error("hub stopped", "error", err)
		}
		stop()
	case <-ctx.Done():
		globals.AppLogger.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		globals.AppLogger.Error("could not shut down http server", "error", err)
	}
	hub.CloseAll()
	select {
	case <-hubDone:
	case <-shutdownCtx.Done():
		globals.AppLogger.Warn("hub did not stop in time")
	}
	globals.AppLogger.Info("server stopped")
}

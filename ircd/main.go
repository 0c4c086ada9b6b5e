package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"

	"github.com/presbrey/ircd/irc"
	"github.com/presbrey/ircd/irc/admind"
	"github.com/presbrey/ircd/irc/config"
	"github.com/presbrey/ircd/irc/log"
)

func main() {
	configPath := flag.String("config", "", "Path to a YAML/TOML/JSON configuration file")
	logLevel := flag.String("log-level", "", "Log level override (debug, info, warn, error)")
	adminEnable := flag.Bool("admin", false, "Enable the HTTP admin endpoint")
	flag.Usage = usage
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ircd: %v\n", err)
		os.Exit(1)
	}

	// Positional <port> <password> override the configuration file.
	switch flag.NArg() {
	case 0:
	case 2:
		port, err := strconv.Atoi(flag.Arg(0))
		if err != nil || port < 1 || port > 65535 {
			fmt.Fprintf(os.Stderr, "ircd: invalid port %q\n", flag.Arg(0))
			os.Exit(1)
		}
		cfg.Server.Port = port
		cfg.Server.Password = flag.Arg(1)
	default:
		usage()
		os.Exit(1)
	}

	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}
	if *adminEnable {
		cfg.Admin.Enabled = true
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "ircd: %v\n", err)
		os.Exit(1)
	}

	logger := log.New(cfg.Log.Level)

	server := irc.NewServer(cfg, logger)
	if err := server.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "ircd: %v\n", err)
		os.Exit(1)
	}

	var admin *admind.Server
	if cfg.Admin.Enabled {
		admin = admind.New(server, cfg, logger)
		go func() {
			if err := admin.Start(); err != nil {
				logger.Error().Err(err).Msg("admin endpoint error")
			}
		}()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	logger.Info().Msg("shutdown signal received")

	if admin != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		admin.Stop(ctx)
		cancel()
	}
	server.Stop()
}

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: %s [flags] <port> <password>\n", os.Args[0])
	flag.PrintDefaults()
}

package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"i4.energy/across/atgw/atc"
)

func parseLogLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func main() {
	flag.String("serial-port", "/dev/ttyUSB0", "Serial port to connect to the modem")
	flag.Int("baud-rate", 115200, "Baud rate for serial communication")
	flag.String("bind-address", "0.0.0.0:8080", "Bind address for the HTTP server")
	flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	flag.Int("poll-timeout-ms", 100, "Serial read poll interval in milliseconds")
	flag.Int("command-timeout-ms", 5000, "Default AT command timeout in milliseconds")
	flag.String("mqtt-broker", "", "MQTT broker URL (empty disables the bridge)")
	configPath := flag.String("config", "", "Path to a YAML configuration file")
	flag.Parse()

	config, err := LoadConfig(WithDefaults(), WithFile(*configPath), WithEnv(), WithFlags(flag.CommandLine))
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: parseLogLevel(config.LogLevel),
	}))

	atcConfig, err := atc.NewConfigBuilder().
		WithDialer(atc.SerialDialer{
			PortName: config.SerialPort,
			BaudRate: config.BaudRate,
		}).
		WithPollTimeout(time.Duration(config.PollTimeoutMS) * time.Millisecond).
		WithLogger(logger.With("component", "atc")).
		Build()
	if err != nil {
		logger.Error("Failed to build client config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client, err := atc.New(ctx, atcConfig)
	if err != nil {
		logger.Error("Failed to open modem", "error", err)
		os.Exit(1)
	}
	client.Start()

	cmdTimeout := time.Duration(config.CommandTimeoutMS) * time.Millisecond
	for _, cmd := range initCommands(cmdTimeout) {
		out, err := client.Send(cmd)
		if err != nil {
			logger.Error("Modem init failed", "command", cmd.Name, "error", err)
			client.Close()
			os.Exit(1)
		}
		if out.Status != atc.StatusSuccess {
			logger.Warn("Modem init command did not succeed", "command", cmd.Name, "outcome", out.String())
		}
	}

	hub := newEventHub(logger.With("component", "events"))

	bridge, err := startMQTT(config, logger, client)
	if err != nil {
		logger.Error("Failed to connect MQTT bridge", "broker", config.MQTTBroker, "error", err)
		client.Close()
		os.Exit(1)
	}

	sinks := []func(EventMessage){hub.broadcast}
	if bridge != nil {
		sinks = append(sinks, bridge.publishEvent)
	}
	if err := registerEvents(client, config.Events, sinks...); err != nil {
		logger.Error("Failed to register events", "error", err)
		client.Close()
		os.Exit(1)
	}

	httpServer := &http.Server{
		Addr: config.BindAddress,
		Handler: &Server{
			Logger: logger.With("component", "server"),
			Client: client,
			Hub:    hub,
		},
	}

	logger.Info("Starting AT gateway", "address", httpServer.Addr, "port", config.SerialPort)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("Failed to gracefully shutdown server", "error", err)
		}
		if bridge != nil {
			bridge.stop()
		}
		return client.Close()
	})

	if err := g.Wait(); err != nil {
		logger.Error("Gateway terminated", "error", err)
		os.Exit(1)
	}
	logger.Info("Gateway stopped")
}

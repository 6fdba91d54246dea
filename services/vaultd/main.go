package main

import (
	"context"
	"crypto/tls"
	"errors"
	"flag"
	"log"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	engineconfig "vaultrisk/config"
	"vaultrisk/native/vaults"
	"vaultrisk/observability/logging"
	"vaultrisk/observability/metrics"
	telemetry "vaultrisk/observability/otel"
	"vaultrisk/services/vaultd/chain"
	"vaultrisk/services/vaultd/config"
	"vaultrisk/services/vaultd/middleware"
	"vaultrisk/services/vaultd/server"
)

func main() {
	var cfgPath string
	flag.StringVar(&cfgPath, "config", "services/vaultd/config.yaml", "path to vaultd config")
	flag.Parse()

	env := strings.TrimSpace(os.Getenv("VAULTD_ENV"))
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logOpts := logging.Options{Service: "vaultd", Environment: env, Level: cfg.Log.Level}
	if cfg.Log.File.Path != "" {
		logOpts.File = &logging.FileOptions{
			Path:       cfg.Log.File.Path,
			MaxSizeMB:  cfg.Log.File.MaxSizeMB,
			MaxBackups: cfg.Log.File.MaxBackups,
			MaxAgeDays: cfg.Log.File.MaxAgeDays,
			Compress:   cfg.Log.File.Compress,
		}
	}
	logger, logCloser, err := logging.SetupWith(logOpts)
	if err != nil {
		log.Fatalf("configure logging: %v", err)
	}
	defer logCloser.Close()

	shutdownTelemetry, err := telemetry.Init(context.Background(), telemetry.FromEnv("vaultd", env))
	if err != nil {
		log.Fatalf("init telemetry: %v", err)
	}
	defer func() {
		if shutdownTelemetry != nil {
			_ = shutdownTelemetry(context.Background())
		}
	}()

	calc := vaults.Default()
	if cfg.EngineConfig != "" {
		engineCfg, err := engineconfig.Load(cfg.EngineConfig)
		if err != nil {
			log.Fatalf("load engine config: %v", err)
		}
		if calc, err = engineCfg.Calculator(); err != nil {
			log.Fatalf("engine config: %v", err)
		}
		logger.Info("engine constants loaded", "path", cfg.EngineConfig,
			"seconds_per_year", engineCfg.SecondsPerYear, "mkr_to_sky_ratio", engineCfg.MkrToSkyPriceRatio)
	}

	engineMetrics := metrics.Vaults()
	opts := []server.Option{server.WithLogger(logger), server.WithMetrics(engineMetrics)}
	if cfg.Chain.Enabled() {
		reader, err := newChainReader(cfg.Chain, engineMetrics)
		if err != nil {
			log.Fatalf("configure chain reader: %v", err)
		}
		opts = append(opts, server.WithChain(reader))
		logger.Info("chain reads enabled", "rpc", logging.MaskURL(cfg.Chain.RPCURL), "timeout", cfg.Chain.Timeout)
	} else {
		logger.Warn("chain reads disabled; /v1/ilks routes will return 503")
	}

	handler := server.NewRouter(server.New(calc, opts...), server.RouterConfig{
		ServiceName: "vaultd",
		RateLimit: middleware.RateLimit{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			Burst:             cfg.RateLimit.Burst,
		},
		LogRequests: true,
		Gatherers:   []prometheus.Gatherer{prometheus.DefaultGatherer},
	}, logger)

	listener, err := net.Listen("tcp", cfg.ListenAddress)
	if err != nil {
		log.Fatalf("listen on %s: %v", cfg.ListenAddress, err)
	}
	if !cfg.TLS.Enabled() {
		tcpAddr, _ := listener.Addr().(*net.TCPAddr)
		loopback := tcpAddr != nil && tcpAddr.IP != nil && tcpAddr.IP.IsLoopback()
		if !strings.EqualFold(env, "dev") && !loopback {
			log.Fatalf("plaintext vaultd mode is restricted to loopback listeners or dev environment")
		}
	}

	httpServer := &http.Server{
		Handler:           handler,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		ErrorLog:          slog.NewLogLogger(logger.Handler(), slog.LevelWarn),
	}
	if cfg.TLS.Enabled() {
		httpServer.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("vaultd listening", "address", cfg.ListenAddress, "tls", cfg.TLS.Enabled())
		if cfg.TLS.Enabled() {
			serverErr <- httpServer.ServeTLS(listener, cfg.TLS.CertPath, cfg.TLS.KeyPath)
			return
		}
		serverErr <- httpServer.Serve(listener)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("forcing server stop", "error", err)
			_ = httpServer.Close()
		}
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("serve http: %v", err)
		}
	}
}

func newChainReader(cfg config.ChainConfig, m *metrics.VaultMetrics) (*chain.Reader, error) {
	contracts, err := chain.ParseContracts(cfg.Contracts.Vat, cfg.Contracts.Spot, cfg.Contracts.Jug, cfg.Contracts.Pot)
	if err != nil {
		return nil, err
	}
	client, err := chain.DialClient(cfg.RPCURL)
	if err != nil {
		return nil, err
	}
	return chain.NewReader(client, contracts, chain.WithTimeout(cfg.Timeout), chain.WithMetrics(m)), nil
}

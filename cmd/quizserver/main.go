package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ruteri/driving-tests-backend/cmd/flags"
	"github.com/ruteri/driving-tests-backend/cryptoutils"
	"github.com/ruteri/driving-tests-backend/database"
	"github.com/ruteri/driving-tests-backend/directory"
	"github.com/ruteri/driving-tests-backend/httpserver"
	"github.com/ruteri/driving-tests-backend/leaderboard"
	"github.com/ruteri/driving-tests-backend/loader"
	"github.com/ruteri/driving-tests-backend/quiz"
	"github.com/ruteri/driving-tests-backend/scoring"
	"github.com/ruteri/driving-tests-backend/storage"
	"github.com/urfave/cli/v2"
)

const startupTimeout = 30 * time.Second

func main() {
	app := &cli.App{
		Name:  "quizserver",
		Usage: "Serve the driving-tests quiz API",
		Flags: append(append([]cli.Flag{
			flags.ListenAddrFlag,
			flags.PublicKeyFlag,
			flags.PrivateKeyFlag,
			flags.PrivateKeyPassphraseEnvFlag,
			flags.TestsFileFlag,
			flags.RedisURLFlag,
			flags.SelfSignedTLSFlag,
			flags.LogServiceFlagFn("drive-tests"),
		}, flags.DatabaseFlags...), flags.CommonFlags...),
		Action: runServer,
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func runServer(cCtx *cli.Context) error {
	logger := flags.SetupLogger(cCtx)

	ctx, cancel := context.WithTimeout(cCtx.Context, startupTimeout)
	defer cancel()

	// Key material
	sources := storage.NewKeySourceFactory(logger)
	publicSource, err := sources.KeySourceFor(cCtx.String(flags.PublicKeyFlag.Name))
	if err != nil {
		logger.Error("Invalid public key location", "err", err)
		return err
	}
	privateSource, err := sources.PrivateKeySourceFor(cCtx.String(flags.PrivateKeyFlag.Name))
	if err != nil {
		logger.Error("Invalid private key location", "err", err)
		return err
	}

	keys := cryptoutils.NewKeyStore(publicSource, privateSource, logger)
	if envName := cCtx.String(flags.PrivateKeyPassphraseEnvFlag.Name); envName != "" {
		passphrase := os.Getenv(envName)
		if passphrase == "" {
			return fmt.Errorf("passphrase environment variable %s is empty", envName)
		}
		keys = keys.WithPassphrase([]byte(passphrase))
	}
	if err := keys.Preload(ctx); err != nil {
		logger.Error("Failed to load RSA keys", "err", err)
		return err
	}
	if pub, err := keys.LoadPublicKey(ctx); err == nil {
		if fingerprint, err := cryptoutils.KeyFingerprint(pub); err == nil {
			logger.Info("Loaded RSA keys", "fingerprint", fingerprint, "public", publicSource.LocationURI())
		}
	}
	vault := cryptoutils.NewVault(keys, logger)

	// Store
	pool, err := database.Open(flags.ConfigureDatabase(cCtx), logger)
	if err != nil {
		logger.Error("Failed to open database", "err", err)
		return err
	}
	defer pool.Close()

	users := directory.NewDirectory(pool, vault, logger)
	engine := quiz.NewEngine(pool, logger)

	if testsFile := cCtx.String(flags.TestsFileFlag.Name); testsFile != "" {
		loaded, err := loader.NewLoader(engine, logger).LoadIfEmpty(ctx, testsFile)
		if err != nil {
			logger.Error("Failed to load quiz items", "err", err, "file", testsFile)
			return err
		}
		logger.Info("Quiz catalog ready", "loaded", loaded)
	}

	coordinator := scoring.NewCoordinator(users, engine, logger)

	if redisURL := cCtx.String(flags.RedisURLFlag.Name); redisURL != "" {
		client, err := leaderboard.NewRedisClient(ctx, redisURL)
		if err != nil {
			logger.Error("Failed to connect to leaderboard", "err", err)
			return err
		}
		defer client.Close()
		coordinator = coordinator.WithLeaderboard(leaderboard.NewRedisLeaderboard(client, leaderboard.DefaultKey, logger))
		logger.Info("Leaderboard enabled")
	}

	// HTTP
	cfg := flags.ConfigureServer(cCtx, logger, cCtx.String(flags.ListenAddrFlag.Name))
	cfg.PoolStats = func() (int, int, int) {
		stats := pool.Stats()
		return stats.OpenConnections, stats.InUse, stats.Idle
	}

	server, err := httpserver.New(cfg, coordinator)
	if err != nil {
		logger.Error("Failed to create server", "err", err)
		return err
	}

	logger.Info("Starting server")
	server.RunInBackground()

	// Wait for termination signal
	exit := make(chan os.Signal, 1)
	signal.Notify(exit, os.Interrupt, syscall.SIGTERM)

	logger.Info("Server is running, press Ctrl+C to stop")
	<-exit
	logger.Info("Shutdown signal received")

	server.Shutdown()
	logger.Info("Server shutdown complete")
	return nil
}

package flags

import (
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/ruteri/driving-tests-backend/common"
	"github.com/ruteri/driving-tests-backend/database"
	"github.com/ruteri/driving-tests-backend/httpserver"
	"github.com/urfave/cli/v2"
)

func SetupLogger(cCtx *cli.Context) (log *slog.Logger) {
	logJSON := cCtx.Bool(LogJsonFlag.Name)
	logDebug := cCtx.Bool(LogDebugFlag.Name)
	logUID := cCtx.Bool(LogUidFlag.Name)
	logService := cCtx.String("log-service")

	logger := common.SetupLogger(&common.LoggingOpts{
		Debug:   logDebug,
		JSON:    logJSON,
		Service: logService,
		Version: common.Version,
	})

	if logUID {
		id := uuid.Must(uuid.NewRandom())
		logger = logger.With("uid", id.String())
	}
	return logger
}

func ConfigureServer(cCtx *cli.Context, logger *slog.Logger, listenAddr string) *httpserver.HTTPServerConfig {
	metricsAddr := cCtx.String(MetricsAddrFlag.Name)
	enablePprof := cCtx.Bool(PprofFlag.Name)
	drainDuration := time.Duration(cCtx.Int64(DrainSecondsFlag.Name)) * time.Second

	return &httpserver.HTTPServerConfig{
		ListenAddr:               listenAddr,
		MetricsAddr:              metricsAddr,
		Log:                      logger,
		EnablePprof:              enablePprof,
		SelfSignedTLS:            cCtx.Bool(SelfSignedTLSFlag.Name),
		DrainDuration:            drainDuration,
		GracefulShutdownDuration: 30 * time.Second,
		ReadTimeout:              60 * time.Second,
		WriteTimeout:             30 * time.Second,
	}
}

// ConfigureDatabase builds the pool configuration from the database flags.
func ConfigureDatabase(cCtx *cli.Context) database.Config {
	cfg := database.DefaultConfig(cCtx.String(DBPathFlag.Name))
	cfg.MaxConns = cCtx.Int(DBMaxConnsFlag.Name)
	cfg.BusyTimeout = cCtx.Duration(DBBusyTimeoutFlag.Name)
	cfg.EnableWAL = !cCtx.Bool(DBDisableWALFlag.Name)
	cfg.EnableForeignKeys = !cCtx.Bool(DBDisableForeignKeysFlag.Name)
	return cfg
}

var ListenAddrFlag = &cli.StringFlag{
	Name:  "listen-addr",
	Value: "127.0.0.1:8080",
	Usage: "address to listen on for API",
}

var PublicKeyFlag = &cli.StringFlag{
	Name:  "public-key",
	Value: "public-key.pem",
	Usage: "location of the RSA public key: path, file://, s3://, vault:// or ipfs:// URI. Comma-separate for fallbacks",
}
var PrivateKeyFlag = &cli.StringFlag{
	Name:  "private-key",
	Value: "private-key.pem",
	Usage: "location of the RSA private key: path, file://, s3:// or vault:// URI. Comma-separate for fallbacks",
}
var PrivateKeyPassphraseEnvFlag = &cli.StringFlag{
	Name:  "private-key-passphrase-env",
	Value: "",
	Usage: "name of the environment variable holding the private key passphrase",
}

var DBPathFlag = &cli.StringFlag{
	Name:  "db-path",
	Value: "drive-tests.db",
	Usage: "path to the SQLite database file",
}
var DBMaxConnsFlag = &cli.IntFlag{
	Name:  "db-max-conns",
	Value: database.DefaultMaxConns,
	Usage: "maximum number of open database connections",
}
var DBBusyTimeoutFlag = &cli.DurationFlag{
	Name:  "db-busy-timeout",
	Value: database.DefaultBusyTimeout,
	Usage: "how long a statement waits on a locked database",
}
var DBDisableWALFlag = &cli.BoolFlag{
	Name:  "db-disable-wal",
	Value: false,
	Usage: "use the rollback journal instead of write-ahead logging",
}
var DBDisableForeignKeysFlag = &cli.BoolFlag{
	Name:  "db-disable-foreign-keys",
	Value: false,
	Usage: "do not enforce foreign keys",
}

var TestsFileFlag = &cli.StringFlag{
	Name:  "tests-file",
	Value: "",
	Usage: "JSON file of quiz items loaded at start-up when the catalog is empty",
}
var RedisURLFlag = &cli.StringFlag{
	Name:  "redis-url",
	Value: "",
	Usage: "redis:// URL of the leaderboard mirror. Leaderboard is disabled if empty",
}
var SelfSignedTLSFlag = &cli.BoolFlag{
	Name:  "self-signed-tls",
	Value: false,
	Usage: "serve HTTPS with a generated self-signed certificate (development only)",
}

var LogJsonFlag = &cli.BoolFlag{
	Name:  "log-json",
	Value: false,
	Usage: "log in JSON format",
}
var LogDebugFlag = &cli.BoolFlag{
	Name:  "log-debug",
	Value: false,
	Usage: "log debug messages",
}
var LogUidFlag = &cli.BoolFlag{
	Name:  "log-uid",
	Value: false,
	Usage: "generate a uuid and add to all log messages",
}

var LogServiceFlagFn = func(service string) *cli.StringFlag {
	return &cli.StringFlag{
		Name:  "log-service",
		Value: service,
		Usage: "add 'service' tag to logs",
	}
}

var PprofFlag = &cli.BoolFlag{
	Name:  "pprof",
	Value: false,
	Usage: "enable pprof debug endpoint",
}
var DrainSecondsFlag = &cli.Int64Flag{
	Name:  "drain-seconds",
	Value: 45,
	Usage: "seconds to wait in drain HTTP request",
}
var MetricsAddrFlag = &cli.StringFlag{
	Name:  "metrics-addr",
	Value: "127.0.0.1:8090",
	Usage: "address to listen on for Prometheus metrics",
}

var CommonFlags = []cli.Flag{
	LogJsonFlag,
	LogDebugFlag,
	LogUidFlag,
	PprofFlag,
	DrainSecondsFlag,
	MetricsAddrFlag,
}

var DatabaseFlags = []cli.Flag{
	DBPathFlag,
	DBMaxConnsFlag,
	DBBusyTimeoutFlag,
	DBDisableWALFlag,
	DBDisableForeignKeysFlag,
}

package main

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/joho/godotenv/autoload"
	_ "go.uber.org/automaxprocs"

	"github.com/bluesky-social/fedperson/content"
	"github.com/bluesky-social/fedperson/personstore"
	"github.com/bluesky-social/fedperson/util/cliutil"

	"github.com/carlmjohnson/versioninfo"
	"github.com/urfave/cli/v2"
	"gorm.io/gorm"
	"gorm.io/plugin/opentelemetry/tracing"
)

func main() {
	if err := run(os.Args); err != nil {
		slog.Error("exiting process", "err", err.Error())
		os.Exit(-1)
	}
}

func run(args []string) error {

	app := cli.App{
		Name:    "fedperson",
		Usage:   "person, follow and account store for a federated link aggregator",
		Version: versioninfo.Short(),
	}
	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:    "log-level",
			Usage:   "log verbosity level (eg: warn, info, debug)",
			EnvVars: []string{"FEDPERSON_LOG_LEVEL", "GO_LOG_LEVEL", "LOG_LEVEL"},
		},
		&cli.StringFlag{
			Name:    "log-format",
			Usage:   "log output format (json or text)",
			Value:   "json",
			EnvVars: []string{"FEDPERSON_LOG_FORMAT", "LOG_FORMAT"},
		},
		&cli.StringFlag{
			Name:    "db-url",
			Usage:   "database connection string for person database",
			Value:   "sqlite://data/fedperson/fedperson.sqlite",
			EnvVars: []string{"DATABASE_URL"},
		},
		&cli.IntFlag{
			Name:    "max-db-conn",
			Usage:   "limit on size of database connection pool",
			Value:   40,
			EnvVars: []string{"MAX_DB_CONNECTIONS"},
		},
	}
	app.Commands = []*cli.Command{
		&cli.Command{
			Name:   "serve",
			Usage:  "run the HTTP API daemon",
			Action: runServe,
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:    "hostname",
					Usage:   "public hostname (and optional port) of this instance; used for local profile URLs",
					Value:   "localhost:8536",
					EnvVars: []string{"FEDPERSON_HOSTNAME"},
				},
				&cli.BoolFlag{
					Name:    "tls",
					Usage:   "whether local profile URLs use https",
					EnvVars: []string{"FEDPERSON_TLS_ENABLED"},
				},
				&cli.StringFlag{
					Name:    "bind",
					Usage:   "IP or address, and port, to listen on for HTTP APIs",
					Value:   ":8536",
					EnvVars: []string{"FEDPERSON_API_BIND"},
				},
				&cli.StringFlag{
					Name:    "metrics-listen",
					Usage:   "IP or address, and port, to listen on for prometheus metrics",
					Value:   ":8537",
					EnvVars: []string{"FEDPERSON_METRICS_LISTEN"},
				},
				&cli.StringFlag{
					Name:    "admin-password",
					Usage:   "secret password for admin endpoints (random is used if not set)",
					EnvVars: []string{"FEDPERSON_ADMIN_PASSWORD"},
				},
				&cli.IntFlag{
					Name:    "cache-size",
					Usage:   "size of in-process person cache (by external identifier); 0 disables",
					Value:   100_000,
					EnvVars: []string{"FEDPERSON_CACHE_SIZE"},
				},
				&cli.StringFlag{
					Name:    "env",
					Value:   "dev",
					EnvVars: []string{"ENVIRONMENT"},
					Usage:   "declared hosting environment (prod, qa, etc); used in traces",
				},
				&cli.BoolFlag{
					Name:    "enable-db-tracing",
					EnvVars: []string{"FEDPERSON_ENABLE_DB_TRACING"},
				},
				&cli.StringFlag{
					Name:    "otel-exporter-otlp-endpoint",
					EnvVars: []string{"OTEL_EXPORTER_OTLP_ENDPOINT"},
				},
			},
		},
		&cli.Command{
			Name:   "migrate",
			Usage:  "create or update database tables, then exit",
			Action: runMigrate,
		},
	}
	return app.Run(args)
}

func openDatabase(cctx *cli.Context) (*gorm.DB, error) {
	dburl := cctx.String("db-url")
	maxConn := cctx.Int("max-db-conn")
	slog.Info("configuring database", "maxConn", maxConn)
	return cliutil.SetupDatabase(cctx.Context, dburl, maxConn)
}

func runMigrate(cctx *cli.Context) error {
	if _, err := cliutil.SetupSlog(os.Stdout, cctx.String("log-level"), cctx.String("log-format")); err != nil {
		return err
	}

	db, err := openDatabase(cctx)
	if err != nil {
		return err
	}
	store, err := personstore.NewStore(db, nil)
	if err != nil {
		return fmt.Errorf("migrating person tables: %w", err)
	}
	if _, err := content.NewService(db); err != nil {
		return fmt.Errorf("migrating content tables: %w", err)
	}
	store.Logger.Info("database migration complete")
	return nil
}

func runServe(cctx *cli.Context) error {
	logger, err := cliutil.SetupSlog(os.Stdout, cctx.String("log-level"), cctx.String("log-format"))
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cctx.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// start observability/tracing (OTEL)
	shutdownOTEL, err := setupOTEL(ctx, cctx.String("otel-exporter-otlp-endpoint"), cctx.String("env"))
	if err != nil {
		return err
	}
	defer shutdownOTEL()

	db, err := openDatabase(cctx)
	if err != nil {
		return err
	}
	if cctx.Bool("enable-db-tracing") {
		if err := db.Use(tracing.NewPlugin()); err != nil {
			return err
		}
	}

	storeConfig := personstore.DefaultStoreConfig()
	storeConfig.Settings.Hostname = cctx.String("hostname")
	storeConfig.Settings.TLSEnabled = cctx.Bool("tls")
	storeConfig.CacheSize = cctx.Int("cache-size")

	logger.Info("constructing person store", "hostname", storeConfig.Settings.Hostname, "tls", storeConfig.Settings.TLSEnabled)
	store, err := personstore.NewStore(db, storeConfig)
	if err != nil {
		return err
	}
	cs, err := content.NewService(db)
	if err != nil {
		return err
	}
	store.Content = cs

	svcConfig := DefaultServiceConfig()
	svcConfig.Bind = cctx.String("bind")
	svcConfig.MetricsListen = cctx.String("metrics-listen")
	if cctx.IsSet("admin-password") {
		svcConfig.AdminPassword = cctx.String("admin-password")
	} else {
		var rblob [10]byte
		_, _ = rand.Read(rblob[:])
		svcConfig.AdminPassword = base64.URLEncoding.EncodeToString(rblob[:])
		logger.Info("generated random admin password", "username", "admin", "password", svcConfig.AdminPassword)
	}

	svc := NewService(store, svcConfig)

	logger.Info("startup complete", "bind", svcConfig.Bind, "metrics", svcConfig.MetricsListen)
	if err := svc.Run(ctx); err != nil && err != context.Canceled {
		return err
	}
	logger.Info("shutdown complete")
	return nil
}

package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/redis/go-redis/v9"
	"github.com/ruteri/university-ledger/api/registryhandler"
	"github.com/ruteri/university-ledger/attendance"
	"github.com/ruteri/university-ledger/cmd/flags"
	"github.com/ruteri/university-ledger/credential"
	"github.com/ruteri/university-ledger/grade"
	"github.com/ruteri/university-ledger/httpserver"
	"github.com/ruteri/university-ledger/interfaces"
	"github.com/ruteri/university-ledger/ledger"
	"github.com/ruteri/university-ledger/notify"
	"github.com/ruteri/university-ledger/registry"
	"github.com/ruteri/university-ledger/storage"
	"github.com/urfave/cli/v2"
)

var (
	flagListenAddr = &cli.StringFlag{
		Name:    "listen-addr",
		Value:   "127.0.0.1:8080",
		EnvVars: []string{"LISTEN_ADDR"},
		Usage:   "address to listen on for API",
	}
	flagDeployer = &cli.StringFlag{
		Name:     "deployer",
		Required: true,
		EnvVars:  []string{"LEDGER_DEPLOYER"},
		Usage:    "root administrator address; deploys every component",
	}
	flagClassAddress = &cli.StringFlag{
		Name:  "class-address",
		Usage: "class component address to bind at initialization (reserved automatically if empty)",
	}
	flagStorage = &cli.StringSliceFlag{
		Name:    "storage",
		EnvVars: []string{"DOCUMENT_STORAGE"},
		Usage:   "credential document storage URI, repeatable (file://, s3://, ipfs://, vault://)",
	}
	flagRedisAddr = &cli.StringFlag{
		Name:    "redis-addr",
		EnvVars: []string{"REDIS_ADDR"},
		Usage:   "publish committed notifications to this Redis server",
	}
	flagRedisKey = &cli.StringFlag{
		Name:  "redis-key",
		Value: notify.DefaultRedisKey,
		Usage: "Redis list receiving notifications",
	}
	flagLogNotifications = &cli.BoolFlag{
		Name:  "log-notifications",
		Value: true,
		Usage: "log every committed notification",
	}
	flagFinalGradeStrategy = &cli.StringFlag{
		Name:  "final-grade-strategy",
		Value: grade.PendingPolicyName,
		Usage: fmt.Sprintf("final grade policy: %s or %s", grade.PendingPolicyName, grade.WeightedByMaxScoreName),
	}
	flagRequireRecognition = &cli.BoolFlag{
		Name:  "require-recognition",
		Value: false,
		Usage: "reject component writes until the authority has bound the component",
	}
	flagIssuerRoles = &cli.StringSliceFlag{
		Name:  "credential-issuer-roles",
		Usage: "roles allowed to issue and revoke credentials (unrestricted if empty)",
	}
)

func main() {
	app := &cli.App{
		Name:  "ledger-server",
		Usage: "Serve the university ledger registry API",
		Flags: append([]cli.Flag{
			flagListenAddr,
			flagDeployer,
			flagClassAddress,
			flagStorage,
			flagRedisAddr,
			flagRedisKey,
			flagLogNotifications,
			flagFinalGradeStrategy,
			flagRequireRecognition,
			flagIssuerRoles,
			flags.LogServiceFlagFn("ledger-server"),
		}, flags.CommonFlags...),
		Action: runServer,
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func runServer(cCtx *cli.Context) error {
	logger := flags.SetupLogger(cCtx)
	ctx := cCtx.Context

	opts, err := deployOptions(cCtx)
	if err != nil {
		logger.Error("Invalid configuration", "err", err)
		return err
	}

	l := ledger.New(ledger.SystemClock{}, logger)
	if cCtx.Bool(flagLogNotifications.Name) {
		l.AddSink(notify.NewLogSink(logger, slog.LevelInfo))
	}
	if addr := cCtx.String(flagRedisAddr.Name); addr != "" {
		client := redis.NewClient(&redis.Options{Addr: addr})
		defer client.Close()

		queue := notify.NewRedisQueue(client, cCtx.String(flagRedisKey.Name))
		if err := queue.Ping(ctx); err != nil {
			logger.Warn("Redis not reachable, notifications will be retried per publish", "addr", addr, "err", err)
		}
		l.AddSink(queue)
		logger.Info("Publishing notifications to Redis", "addr", addr, "key", queue.Key())
	}

	suite, err := registry.Deploy(ctx, l, opts, logger)
	if err != nil {
		logger.Error("Failed to deploy registry", "err", err)
		return err
	}
	components := suite.Components()
	logger.Info("Registry deployed",
		"authority", suite.Authority.Address().Hex(),
		"credential", components.Credential.Hex(),
		"attendance", components.Attendance.Hex(),
		"grade", components.Grade.Hex(),
		"class", components.Class.Hex())

	documents, err := documentStorage(cCtx, logger)
	if err != nil {
		logger.Error("Failed to configure document storage", "err", err)
		return err
	}

	handler := registryhandler.NewHandler(suite, documents, logger)
	cfg := flags.ConfigureServer(cCtx, logger, cCtx.String(flagListenAddr.Name))
	server, err := httpserver.New(cfg, handler)
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

	server.Drain()
	server.Shutdown()
	logger.Info("Server shutdown complete")
	return nil
}

func deployOptions(cCtx *cli.Context) (registry.Options, error) {
	deployer := cCtx.String(flagDeployer.Name)
	if !common.IsHexAddress(deployer) {
		return registry.Options{}, fmt.Errorf("invalid deployer address %q", deployer)
	}

	var class common.Address
	if s := cCtx.String(flagClassAddress.Name); s != "" {
		if !common.IsHexAddress(s) {
			return registry.Options{}, fmt.Errorf("invalid class address %q", s)
		}
		class = common.HexToAddress(s)
	}

	strategy, err := grade.StrategyByName(cCtx.String(flagFinalGradeStrategy.Name))
	if err != nil {
		return registry.Options{}, err
	}

	var issuerRoles []interfaces.Role
	for _, s := range cCtx.StringSlice(flagIssuerRoles.Name) {
		role, err := interfaces.ParseRole(s)
		if err != nil {
			return registry.Options{}, err
		}
		issuerRoles = append(issuerRoles, role)
	}

	recognition := cCtx.Bool(flagRequireRecognition.Name)
	return registry.Options{
		Deployer:     common.HexToAddress(deployer),
		ClassAddress: class,
		Credential:   credential.Config{IssuerRoles: issuerRoles, RequireRecognition: recognition},
		Attendance:   attendance.Config{RequireRecognition: recognition},
		Grade:        grade.Config{Strategy: strategy, RequireRecognition: recognition},
	}, nil
}

// documentStorage returns nil when no storage is configured; the document
// endpoints then answer 503.
func documentStorage(cCtx *cli.Context, logger *slog.Logger) (interfaces.StorageBackend, error) {
	uris := cCtx.StringSlice(flagStorage.Name)
	if len(uris) == 0 {
		logger.Warn("No document storage configured")
		return nil, nil
	}

	locations, err := storage.ParseLocations(uris)
	if err != nil {
		return nil, err
	}
	backend, err := storage.NewStorageBackendFactory(logger).CreateMultiBackend(locations)
	if err != nil {
		return nil, err
	}
	if !backend.Available(context.Background()) {
		logger.Warn("Document storage currently unavailable", "backend", backend.Name())
	}
	return backend, nil
}

package main

import (
	"context"
	"expvar"
	"fmt"
	"net/http"
	_ "net/http/pprof"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	echoapi "github.com/trezcool/academia/apps/api/echo"
	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/importer"
	"github.com/trezcool/academia/core/record"
	"github.com/trezcool/academia/core/roster"
	"github.com/trezcool/academia/core/user"
	appfs "github.com/trezcool/academia/fs"
	emailsvc "github.com/trezcool/academia/services/email"
	logsvc "github.com/trezcool/academia/services/logger"
	inmemcache "github.com/trezcool/academia/storage/cache/inmem"
	rediscache "github.com/trezcool/academia/storage/cache/redis"
	"github.com/trezcool/academia/storage/database"
	sqlxrepos "github.com/trezcool/academia/storage/database/sqlx"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	// set up loggers
	logger := logsvc.NewRollbarLogger(logsvc.NewStdLogger("API : "), conf)
	defer logger.Close()
	dbLogger := logsvc.NewRollbarLogger(logsvc.NewStdLogger("DB : "), conf)

	// set up DB
	db, err := setUpDB(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	defer func() {
		if err = db.Close(); err != nil {
			dbLogger.Fatal("Failed to close", err)
		}
	}()

	previews, closePreviews := setUpPreviewStore(conf, logger)
	defer closePreviews()

	// set up services
	mailSvc := emailsvc.NewService(conf, logger)
	usrSvc := user.NewService(sqlxrepos.NewUserRepository(db), mailSvc, conf)
	rosterSvc := roster.NewService(sqlxrepos.NewStudentRepository(db))
	recordSvc := record.NewService(sqlxrepos.NewRecordRepository(db), dbLogger)

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	importer.InitValidators(validate, translator)

	core.ParseEmailTemplates(appfs.FS, logger, false)
	user.LoadCommonPasswords(appfs.FS, logger)

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(echoapi.ServerDeps{
		Conf:       conf,
		Logger:     logger,
		UserSvc:    usrSvc,
		RosterSvc:  rosterSvc,
		RecordSvc:  recordSvc,
		Importer:   importer.New(conf.Import),
		Previews:   previews,
		Validate:   validate,
		Translator: translator,
	})

	go server.Start()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}

func setUpDB(conf *core.Config) (*sqlx.DB, error) {
	ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
	defer cancel()

	if err := database.CreateIfNotExist(ctx, conf); err != nil {
		return nil, err
	}

	db, err := database.Open(conf)
	if err != nil {
		return nil, err
	}
	if err = database.Ping(ctx, db); err != nil {
		return nil, errors.Wrap(err, "pinging database")
	}

	if err = database.Migrate(db, appfs.FS); err != nil {
		return nil, err
	}
	return db, nil
}

// setUpPreviewStore keeps import previews in redis, or in memory when redis is unreachable in debug mode.
func setUpPreviewStore(conf *core.Config, logger core.Logger) (importer.PreviewStore, func()) {
	ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
	defer cancel()

	client, err := rediscache.NewClient(ctx, conf.Redis)
	if err != nil {
		if !conf.Debug {
			logger.Fatal(fmt.Sprintf("setting up redis: %v", err), err)
		}
		logger.Warn("redis unavailable, keeping import previews in memory", err)
		return inmemcache.NewPreviewStore(conf.Redis.PreviewTTL), func() {}
	}
	return rediscache.NewPreviewStore(client, conf.Redis.PreviewTTL), func() {
		if err := client.Close(); err != nil {
			logger.Error("closing redis client", err)
		}
	}
}

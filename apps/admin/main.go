package main

import (
	"context"
	"os"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/roster"
	logsvc "github.com/trezcool/academia/services/logger"
	"github.com/trezcool/academia/storage/database"
	sqlxrepos "github.com/trezcool/academia/storage/database/sqlx"
)

func main() {
	conf := core.NewConfig()
	logger := logsvc.NewRollbarLogger(logsvc.NewStdLogger("ADMIN : "), conf)
	logger.Enable(false)

	// set up DB
	db, err := database.Open(conf)
	if err != nil {
		logger.Fatal("opening database", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
	defer cancel()
	if err = database.Ping(ctx, db); err != nil {
		_ = db.Close()
		logger.Fatal("pinging database", err)
	}

	validate := validator.New()
	core.InitValidators(validate, core.NewTranslator())

	// start CLI
	cli := commandLine{
		db:        db.DB,
		usrRepo:   sqlxrepos.NewUserRepository(db),
		rosterSvc: roster.NewService(sqlxrepos.NewStudentRepository(db)),
		validate:  validate,
		scanRows:  conf.Import.HeaderScanRows,
		out:       os.Stdout,
	}
	err = cli.run(os.Args)
	_ = db.Close()
	if err != nil {
		if err != errHelp {
			logger.Error("command failed", err)
		}
		os.Exit(1)
	}
}

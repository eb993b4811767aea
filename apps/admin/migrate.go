package main

import (
	"github.com/pressly/goose/v3"

	appfs "github.com/trezcool/academia/fs"
)

var gooseRunFunc = goose.Run // mockable

func (cli *commandLine) migrate(args []string) error {
	goose.SetBaseFS(appfs.FS)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	return gooseRunFunc(args[0], cli.db, "migrations", args[1:]...)
}

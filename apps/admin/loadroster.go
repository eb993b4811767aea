package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/trezcool/academia/core/importer"
	"github.com/trezcool/academia/core/roster"
)

// loadRoster adds the students of a class list spreadsheet to class.
func (cli *commandLine) loadRoster(path string, class roster.Filter) error {
	if err := class.Validate(cli.validate); err != nil {
		return err
	}

	f, err := os.Open(path)
	if err != nil {
		return errors.Wrap(err, "opening class list")
	}
	//goland:noinspection GoUnhandledErrorResult
	defer f.Close()

	grid, err := importer.ReadGrid(f, filepath.Base(path))
	if err != nil {
		return err
	}
	rows, err := importer.ReadClassList(grid, cli.scanRows)
	if err != nil {
		return err
	}

	students := make([]roster.NewStudent, 0, len(rows))
	for _, row := range rows {
		students = append(students, roster.NewStudent{
			RollNumber: row.RollNumber,
			Name:       row.Name,
			Branch:     class.Branch,
			Year:       class.Year,
			Semester:   class.Semester,
			Section:    class.Section,
		})
	}

	created, err := cli.rosterSvc.Load(context.Background(), students)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(cli.out, "%d students loaded into %s %d-%d %s\n", len(created), class.Branch, class.Year, class.Semester, class.Section)
	return nil
}

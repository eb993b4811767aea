package importer

import (
	"bytes"
	"encoding/csv"
	"io"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ReadGrid reads the first sheet of a spreadsheet into a grid of cell strings.
// The format is chosen from the filename extension.
func ReadGrid(r io.Reader, filename string) ([][]string, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx", ".xlsm", ".xltx", ".xltm":
		return readWorkbook(r)
	case ".csv":
		return readCSV(r)
	}
	return nil, ErrUnsupportedFormat
}

func readWorkbook(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, errors.Wrap(err, "opening workbook")
	}
	//goland:noinspection GoUnhandledErrorResult
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, &NoSheetsError{}
	}
	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, errors.Wrapf(err, "reading sheet %q", sheets[0])
	}
	return rows, nil
}

func readCSV(r io.Reader) ([][]string, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "reading csv")
	}
	rdr := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(content, utf8BOM)))
	rdr.FieldsPerRecord = -1
	rdr.LazyQuotes = true
	rdr.TrimLeadingSpace = true

	rows, err := rdr.ReadAll()
	if err != nil {
		return nil, errors.Wrap(err, "parsing csv")
	}
	return rows, nil
}

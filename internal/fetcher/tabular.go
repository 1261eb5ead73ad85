package fetcher

import (
	"bytes"
	"encoding/csv"
	"io"
	"net/url"
	"path"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// DecodeRows turns a raw holdings document into rows of string cells.
// XLSX documents are recognized by their location extension; anything
// else is treated as delimited text.
func DecodeRows(location string, data []byte) ([][]string, error) {
	if isXLSX(location) {
		return decodeXLSX(data)
	}
	return decodeCSV(data)
}

func isXLSX(location string) bool {
	p := location
	if u, err := url.Parse(location); err == nil && u.Path != "" {
		p = u.Path
	}
	return strings.EqualFold(path.Ext(p), ".xlsx")
}

// decodeCSV parses delimited text into rows. Provider exports often
// carry a UTF-8 or UTF-16 BOM; BOMOverride strips it before parsing.
func decodeCSV(data []byte) ([][]string, error) {
	dec := unicode.BOMOverride(unicode.UTF8.NewDecoder())
	r := transform.NewReader(bytes.NewReader(data), dec)

	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1 // iShares files vary row width around the disclaimer block

	var rows [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			return rows, nil
		}
		if err != nil {
			return nil, eris.Wrap(err, "fetcher: read csv row")
		}
		for i, field := range record {
			record[i] = strings.TrimSpace(field)
		}
		rows = append(rows, record)
	}
}

// decodeXLSX reads the first sheet of an XLSX workbook.
func decodeXLSX(data []byte) ([][]string, error) {
	f, err := xlsx.OpenBinary(data)
	if err != nil {
		return nil, eris.Wrap(err, "fetcher: open xlsx")
	}
	if len(f.Sheets) == 0 {
		return nil, eris.New("fetcher: xlsx has no sheets")
	}

	sheet := f.Sheets[0]
	rows := make([][]string, 0, len(sheet.Rows))
	for _, row := range sheet.Rows {
		cells := make([]string, len(row.Cells))
		for j, cell := range row.Cells {
			cells[j] = strings.TrimSpace(cell.String())
		}
		rows = append(rows, cells)
	}
	return rows, nil
}

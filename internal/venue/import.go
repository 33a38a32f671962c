package venue

import (
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/scenescout/extract-cli/internal/model"
)

// ImportOptions configures the workbook parser.
type ImportOptions struct {
	SheetIndex int    // default 0
	SheetName  string // if set, overrides SheetIndex
	SkipRows   int    // header rows to skip, default 1
}

// Column layout of a venue workbook: name, aliases (semicolon separated),
// address, city, lat, lng. Only name is required.
const (
	colName = iota
	colAliases
	colAddress
	colCity
	colLat
	colLng
)

// ReadWorkbook parses an XLSX venue workbook into registry entries. Rows
// that fail validation are logged and skipped rather than aborting the
// import.
func ReadWorkbook(path string, opts ImportOptions) ([]model.KnownVenue, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "venue: open workbook")
	}

	sheet, err := getSheet(f, opts)
	if err != nil {
		return nil, err
	}

	skip := opts.SkipRows
	if skip == 0 {
		skip = 1
	}

	var venues []model.KnownVenue
	for i, row := range sheet.Rows {
		if i < skip {
			continue
		}

		cells := make([]string, len(row.Cells))
		for j, cell := range row.Cells {
			cells[j] = strings.TrimSpace(cell.String())
		}

		v, err := rowToVenue(cells)
		if err != nil {
			zap.L().Warn("skipping workbook row",
				zap.Int("row", i+1), zap.Error(err))
			continue
		}
		if v == nil {
			continue // blank row
		}
		venues = append(venues, *v)
	}

	return venues, nil
}

func rowToVenue(cells []string) (*model.KnownVenue, error) {
	if cell(cells, colName) == "" {
		if strings.Join(cells, "") == "" {
			return nil, nil
		}
		return nil, eris.New("venue: row has no name")
	}

	v := model.KnownVenue{
		Name:    cell(cells, colName),
		Address: cell(cells, colAddress),
		City:    cell(cells, colCity),
	}

	for _, a := range strings.Split(cell(cells, colAliases), ";") {
		v.AddAlias(a)
	}

	if raw := cell(cells, colLat); raw != "" {
		lat, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, eris.Wrapf(err, "venue: bad latitude %q", raw)
		}
		v.Lat = &lat
	}
	if raw := cell(cells, colLng); raw != "" {
		lng, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, eris.Wrapf(err, "venue: bad longitude %q", raw)
		}
		v.Lng = &lng
	}

	if err := v.Validate(); err != nil {
		return nil, err
	}
	return &v, nil
}

func cell(cells []string, i int) string {
	if i < len(cells) {
		return cells[i]
	}
	return ""
}

func getSheet(f *xlsx.File, opts ImportOptions) (*xlsx.Sheet, error) {
	if opts.SheetName != "" {
		sheet, ok := f.Sheet[opts.SheetName]
		if !ok {
			return nil, eris.Errorf("venue: sheet %q not found", opts.SheetName)
		}
		return sheet, nil
	}
	if opts.SheetIndex >= len(f.Sheets) {
		return nil, eris.Errorf("venue: sheet index %d out of range (file has %d sheets)", opts.SheetIndex, len(f.Sheets))
	}
	return f.Sheets[opts.SheetIndex], nil
}

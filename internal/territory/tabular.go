package territory

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"slices"
	"sort"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// WriteCSV writes one row per (region, owning location), ordered by location
// name and then region id.
func WriteCSV(w io.Writer, locs []Location) error {
	sorted := slices.Clone(locs)
	col := collate.New(language.English, collate.IgnoreCase)
	sort.SliceStable(sorted, func(i, j int) bool {
		return col.CompareString(sorted[i].Name, sorted[j].Name) < 0
	})

	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"zip_code", "location_name", "location_address"}); err != nil {
		return err
	}
	for _, loc := range sorted {
		zips := slices.Clone(loc.Regions)
		sort.Strings(zips)
		for _, z := range zips {
			if err := cw.Write([]string{z, loc.Name, loc.Address}); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

// Row is one accepted line of a location upload. Lat, Lng and Color are
// optional and kept as text until the caller decides how to use them.
type Row struct {
	Line    int
	Name    string
	Address string
	Lat     string
	Lng     string
	Color   string
}

// HasCoordinates reports whether the row carries both lat and lng.
func (r Row) HasCoordinates() bool { return r.Lat != "" && r.Lng != "" }

// RowError describes a skipped line. Line numbers count the header as 1.
type RowError struct {
	Line    int    `json:"line"`
	Message string `json:"message"`
}

func (e RowError) Error() string { return fmt.Sprintf("Row %d: %s", e.Line, e.Message) }

// ParseCSV reads a location upload. Header names are trimmed and matched
// case-insensitively; name and address are required columns. Rows missing
// either value, or too malformed to read, are skipped and reported with
// their line number; the rest are returned.
func ParseCSV(r io.Reader) ([]Row, []RowError, error) {
	cr := csv.NewReader(bufio.NewReader(r))
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil, fmt.Errorf("%w: %q", ErrMissingColumn, "name")
	}
	if err != nil {
		return nil, nil, fmt.Errorf("csv parsing error: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	col := map[string]int{}
	for i, h := range header {
		col[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, k := range []string{"name", "address"} {
		if _, ok := col[k]; !ok {
			return nil, nil, fmt.Errorf("%w: %q", ErrMissingColumn, k)
		}
	}

	var rows []Row
	var rowErrs []RowError
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		var perr *csv.ParseError
		if errors.As(err, &perr) {
			// The reader resumes at the next record.
			rowErrs = append(rowErrs, RowError{Line: perr.StartLine, Message: perr.Err.Error()})
			continue
		}
		if err != nil {
			return nil, nil, fmt.Errorf("csv parsing error: %w", err)
		}
		line, _ := cr.FieldPos(0)
		get := func(name string) string {
			idx, ok := col[name]
			if !ok || idx >= len(rec) {
				return ""
			}
			return strings.TrimSpace(rec[idx])
		}

		name, address := get("name"), get("address")
		if name == "" {
			rowErrs = append(rowErrs, RowError{Line: line, Message: "Missing name"})
			continue
		}
		if address == "" {
			rowErrs = append(rowErrs, RowError{Line: line, Message: "Missing address"})
			continue
		}
		rows = append(rows, Row{
			Line:    line,
			Name:    name,
			Address: address,
			Lat:     get("lat"),
			Lng:     get("lng"),
			Color:   get("color"),
		})
	}
	return rows, rowErrs, nil
}

// TemplateCSV is the sample upload offered to users.
const TemplateCSV = `name,address
"Richmond Main Office","123 Main St, Richmond, VA 23220"
"Norfolk Branch","456 Harbor Blvd, Norfolk, VA 23510"
"DC Metro Office","789 K Street NW, Washington, DC 20001"
`

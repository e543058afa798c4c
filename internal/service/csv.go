package service

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
)

// SchemaError reports a CSV statement whose header is missing required
// columns. It aborts the whole batch.
type SchemaError struct {
	Missing []string
}

func (e *SchemaError) Error() string {
	return "statement missing required columns: " + strings.Join(e.Missing, ", ")
}

// columnAliases maps canonical column names to the header spellings seen in
// real bank exports.
var columnAliases = map[string][]string{
	"date":        {"date", "fecha", "transaction date", "fecha transacción", "posted date"},
	"category":    {"category", "categoría", "type", "tipo"},
	"description": {"description", "descripción", "detail", "detalle", "details"},
	"amount":      {"amount", "monto", "value", "valor"},
	"currency":    {"currency", "moneda"},
}

var requiredColumns = []string{"date", "category", "description", "amount"}

// CSVExtractor reads bank statement CSVs with a header row. Column order is
// irrelevant and header matching is case-insensitive.
type CSVExtractor struct{}

func (e *CSVExtractor) Format() string { return "csv" }

func (e *CSVExtractor) Extract(path string) ([]RawRow, []RejectedRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open statement: %w", err)
	}
	defer f.Close()
	return e.ExtractReader(f)
}

func (e *CSVExtractor) ExtractReader(r io.Reader) ([]RawRow, []RejectedRow, error) {
	csvr := csv.NewReader(bufio.NewReader(r))
	csvr.TrimLeadingSpace = true
	csvr.FieldsPerRecord = -1

	header, err := csvr.Read()
	if err == io.EOF {
		return nil, nil, &SchemaError{Missing: requiredColumns}
	}
	if err != nil {
		return nil, nil, fmt.Errorf("read header: %w", err)
	}

	index, missing := mapHeader(header)
	if len(missing) > 0 {
		return nil, nil, &SchemaError{Missing: missing}
	}

	var rows []RawRow
	var rejected []RejectedRow
	line := 1
	for {
		line++
		rec, err := csvr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			rejected = append(rejected, RejectedRow{Line: line, Reason: err.Error()})
			continue
		}
		get := func(col string) string {
			i, ok := index[col]
			if !ok || i >= len(rec) {
				return ""
			}
			return strings.TrimSpace(rec[i])
		}
		row := RawRow{
			Line:        line,
			Date:        get("date"),
			Category:    get("category"),
			Description: get("description"),
			Amount:      get("amount"),
			Currency:    get("currency"),
		}
		if row.Date == "" && row.Amount == "" {
			// blank filler line
			continue
		}
		rows = append(rows, row)
	}
	return rows, rejected, nil
}

// mapHeader resolves header cells to canonical column names and reports which
// required columns are absent.
func mapHeader(header []string) (map[string]int, []string) {
	index := make(map[string]int)
	for i, cell := range header {
		cell = strings.ToLower(strings.TrimSpace(cell))
		for canonical, aliases := range columnAliases {
			if _, taken := index[canonical]; taken {
				continue
			}
			for _, alias := range aliases {
				if cell == alias {
					index[canonical] = i
					break
				}
			}
		}
	}
	var missing []string
	for _, col := range requiredColumns {
		if _, ok := index[col]; !ok {
			missing = append(missing, col)
		}
	}
	return index, missing
}

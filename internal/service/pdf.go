package service

import (
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// Horizontal gaps (in points) used when rebuilding statement rows from
// positioned text. A small gap separates words inside one column; a large gap
// separates columns.
const (
	wordGap   = 1.0
	columnGap = 10.0
)

// PDFExtractor pulls transaction rows out of unstructured bank-statement
// PDFs. Extraction is layout-aware: text is grouped into lines by vertical
// position (the library's row grouping), then split into columns by
// horizontal position clustering. A line qualifies as a transaction row only
// when it carries a recognizable date token and an amount token; everything
// else is formatting noise. This is best-effort by design.
type PDFExtractor struct{}

func (e *PDFExtractor) Format() string { return "pdf" }

type textSpan struct {
	X float64
	W float64
	S string
}

func (e *PDFExtractor) Extract(path string) ([]RawRow, []RejectedRow, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open statement: %w", err)
	}
	defer f.Close()

	var rows []RawRow
	var rejected []RejectedRow
	line := 0
	for pageNum := 1; pageNum <= r.NumPage(); pageNum++ {
		page := r.Page(pageNum)
		if page.V.IsNull() {
			continue
		}
		pageRows, err := page.GetTextByRow()
		if err != nil {
			rejected = append(rejected, RejectedRow{Line: line, Reason: fmt.Sprintf("page %d: %v", pageNum, err)})
			continue
		}
		for _, pr := range pageRows {
			line++
			spans := make([]textSpan, 0, len(pr.Content))
			for _, t := range pr.Content {
				spans = append(spans, textSpan{X: t.X, W: t.W, S: t.S})
			}
			columns := clusterColumns(spans)
			row, ok, err := reconstructRow(line, columns)
			if err != nil {
				rejected = append(rejected, RejectedRow{Line: line, Raw: strings.Join(columns, " | "), Reason: err.Error()})
				continue
			}
			if !ok {
				// header, footer, running balance or other noise
				continue
			}
			rows = append(rows, row)
		}
	}
	return rows, rejected, nil
}

// clusterColumns joins positioned text fragments into column strings. The
// fragments arrive sorted by X; a gap wider than columnGap starts a new
// column, a gap wider than wordGap inserts a space.
func clusterColumns(spans []textSpan) []string {
	var columns []string
	var current strings.Builder
	prevEnd := 0.0
	for i, sp := range spans {
		if i > 0 {
			gap := sp.X - prevEnd
			switch {
			case gap > columnGap:
				columns = appendColumn(columns, &current)
			case gap > wordGap:
				current.WriteByte(' ')
			}
		}
		current.WriteString(sp.S)
		prevEnd = sp.X + sp.W
	}
	return appendColumn(columns, &current)
}

func appendColumn(columns []string, b *strings.Builder) []string {
	col := strings.TrimSpace(b.String())
	b.Reset()
	if col != "" {
		columns = append(columns, col)
	}
	return columns
}

// reconstructRow decides whether a clustered line is a transaction row.
// ok=false marks noise; an error marks a line that looked transactional but
// failed reconstruction and must be reported.
func reconstructRow(line int, columns []string) (RawRow, bool, error) {
	dateIdx := -1
	for i, col := range columns {
		if _, err := parseDate(col); err == nil {
			dateIdx = i
			break
		}
	}
	if dateIdx == -1 {
		return RawRow{}, false, nil
	}

	amountIdx := -1
	for i, col := range columns {
		if i == dateIdx {
			continue
		}
		if looksLikeAmount(col) {
			amountIdx = i
			break // first amount column; trailing ones are running balances
		}
	}
	if amountIdx == -1 {
		return RawRow{}, false, fmt.Errorf("no amount token")
	}

	description := ""
	for i, col := range columns {
		if i == dateIdx || i == amountIdx || looksLikeAmount(col) {
			continue
		}
		if len(col) > len(description) {
			description = col
		}
	}

	return RawRow{
		Line:        line,
		Date:        columns[dateIdx],
		Description: description,
		Category:    guessCategory(description),
		Amount:      columns[amountIdx],
	}, true, nil
}

func looksLikeAmount(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	hasDigit := false
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			hasDigit = true
		case r == '.' || r == ',' || r == '-' || r == '+':
		case r == '$' || r == '€' || r == '£' || r == '¥':
		default:
			return false
		}
	}
	if !hasDigit {
		return false
	}
	_, _, err := ParseAmount(s)
	return err == nil
}

// guessCategory assigns a coarse category from description keywords.
// Statements rarely carry categories; unmatched rows land in Other.
func guessCategory(desc string) string {
	d := strings.ToLower(desc)
	switch {
	case containsAny(d, "grocery", "supermarket", "aldi", "lidl", "tesco"):
		return "Groceries"
	case containsAny(d, "cinema", "netflix", "spotify", "entertainment"):
		return "Entertainment"
	case containsAny(d, "amazon", "electronics"):
		return "Electronics"
	case containsAny(d, "uber", "lyft", "taxi", "transit", "rail"):
		return "Transport"
	default:
		return "Other"
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

package service

import (
	"context"
	"crypto/sha256"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/AnluYaens/budgetbuddy/internal/currency"
	"github.com/AnluYaens/budgetbuddy/internal/database/repository"
)

// RawRow is the format-agnostic contract between the extractors and the
// normalize/dedup stage. All fields except Line are uninterpreted text.
type RawRow struct {
	Line        int
	Date        string
	Description string
	Category    string
	Amount      string
	Currency    string
}

// RejectedRow records one row that failed extraction or normalization.
type RejectedRow struct {
	Line   int
	Raw    string
	Reason string
}

// ImportSummary reports the outcome of one ingestion run.
type ImportSummary struct {
	Accepted   int
	Duplicates int
	Rejected   []RejectedRow
}

// Extractor converts one statement file into raw rows.
type Extractor interface {
	Extract(path string) ([]RawRow, []RejectedRow, error)
	Format() string
}

// acceptedDateFormats lists the date layouts normalization tries, in order.
// Day-first wins for ambiguous slash dates.
var acceptedDateFormats = []string{
	"2006-01-02",
	"02/01/2006",
	"2/01/2006",
	"01/02/2006",
	"2 Jan 2006",
	"Jan 2, 2006",
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range acceptedDateFormats {
		if t, err := time.Parse(layout, s); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

// Fingerprint derives the dedup key for a transaction: calendar date, amount
// rounded to minor units, case-folded whitespace-collapsed description and
// category. Two genuinely distinct same-day same-amount same-description
// transactions will collide; the first one wins. That false-positive rate is
// an accepted trade-off of statement re-import protection.
func Fingerprint(date time.Time, amount decimal.Decimal, description, category string) string {
	desc := strings.ToLower(strings.Join(strings.Fields(description), " "))
	joined := strings.Join([]string{
		date.Format("2006-01-02"),
		amount.Round(2).String(),
		desc,
		category,
	}, "|")
	sum := sha256.Sum256([]byte(joined))
	return fmt.Sprintf("%x", sum[:])
}

// IngestService turns bank statements into committed expenses. Extraction is
// format-specific; normalization and dedup are shared.
type IngestService struct {
	Expenses   *repository.ExpenseRepo
	Categories *repository.CategoryRepo
	Converter  *currency.Converter
	Vocab      *Vocabulary
	Home       string
	Log        zerolog.Logger
}

// ImportFile selects the extractor from the file extension and runs a full
// ingestion pass.
func (s *IngestService) ImportFile(ctx context.Context, path string) (ImportSummary, error) {
	var ex Extractor
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		ex = &CSVExtractor{}
	case ".pdf":
		ex = &PDFExtractor{}
	default:
		return ImportSummary{}, fmt.Errorf("unsupported statement format %q", filepath.Ext(path))
	}
	rows, rejected, err := ex.Extract(path)
	if err != nil {
		return ImportSummary{}, err
	}
	return s.Import(ctx, rows, rejected)
}

type candidate struct {
	date        time.Time
	category    string
	description string
	amount      decimal.Decimal
	currency    string
}

// Import normalizes, deduplicates and commits raw rows. Each accepted row is
// its own repository transaction, so a crash mid-import leaves committed rows
// intact and a retry recomputes duplicates correctly.
func (s *IngestService) Import(ctx context.Context, rows []RawRow, preRejected []RejectedRow) (ImportSummary, error) {
	summary := ImportSummary{Rejected: preRejected}
	seen := make(map[string]bool)

	for _, row := range rows {
		cand, err := s.normalize(row)
		if err != nil {
			summary.Rejected = append(summary.Rejected, RejectedRow{Line: row.Line, Raw: rawString(row), Reason: err.Error()})
			continue
		}

		fp := Fingerprint(cand.date, cand.amount, cand.description, cand.category)
		if seen[fp] {
			summary.Duplicates++
			continue
		}
		exists, err := s.Expenses.FingerprintExists(ctx, fp)
		if err != nil {
			return summary, err
		}
		if exists {
			summary.Duplicates++
			continue
		}

		// freeze the base value now; without a rate the row is rejected,
		// never committed half-converted
		conv, err := s.Converter.Convert(ctx, cand.amount, cand.currency, s.Home)
		if err != nil {
			summary.Rejected = append(summary.Rejected, RejectedRow{Line: row.Line, Raw: rawString(row), Reason: err.Error()})
			continue
		}

		if err := s.ensureCategory(ctx, cand.category); err != nil {
			summary.Rejected = append(summary.Rejected, RejectedRow{Line: row.Line, Raw: rawString(row), Reason: err.Error()})
			continue
		}

		if _, err := s.Expenses.Insert(ctx, repository.Expense{
			Date:         cand.date,
			Category:     cand.category,
			Description:  cand.description,
			Amount:       cand.amount,
			Currency:     cand.currency,
			BaseAmount:   conv.Amount,
			BaseCurrency: s.Home,
			Fingerprint:  fp,
		}); err != nil {
			summary.Rejected = append(summary.Rejected, RejectedRow{Line: row.Line, Raw: rawString(row), Reason: err.Error()})
			continue
		}
		seen[fp] = true
		summary.Accepted++
	}

	s.Log.Info().Int("accepted", summary.Accepted).Int("duplicates", summary.Duplicates).
		Int("rejected", len(summary.Rejected)).Msg("import complete")
	return summary, nil
}

func (s *IngestService) normalize(row RawRow) (candidate, error) {
	date, err := parseDate(row.Date)
	if err != nil {
		return candidate{}, err
	}
	amount, symbolCurrency, err := ParseAmount(row.Amount)
	if err != nil {
		return candidate{}, err
	}
	if amount.IsZero() {
		return candidate{}, fmt.Errorf("zero amount")
	}

	cur := strings.ToUpper(strings.TrimSpace(row.Currency))
	if cur == "" {
		cur = symbolCurrency
	}
	if cur == "" {
		cur = s.Home
	}
	if !isCurrencyCode(cur) {
		return candidate{}, fmt.Errorf("invalid currency %q", row.Currency)
	}

	rawCat := strings.TrimSpace(row.Category)
	if rawCat == "" || strings.EqualFold(rawCat, "nan") {
		rawCat = "Other"
	}
	category, _ := s.Vocab.Normalize(rawCat)

	return candidate{
		date:        date,
		category:    category,
		description: strings.TrimSpace(row.Description),
		amount:      amount,
		currency:    cur,
	}, nil
}

func (s *IngestService) ensureCategory(ctx context.Context, name string) error {
	for _, known := range s.Vocab.Names() {
		if known == name {
			return nil
		}
	}
	id := categoryID(name)
	if err := s.Categories.Upsert(ctx, repository.Category{ID: id, Name: name, SortOrder: len(s.Vocab.Names())}); err != nil {
		return fmt.Errorf("create category %q: %w", name, err)
	}
	s.Vocab.Add(name)
	return nil
}

func rawString(row RawRow) string {
	return strings.Join([]string{row.Date, row.Category, row.Description, row.Amount}, ",")
}

package ledger

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/rjmcleod/finch/internal/models"
)

// CSV import column order. A header row matching the first column name is
// skipped; everything else is parsed positionally.
var importColumns = []string{"type", "ticker", "account_id", "quantity", "price_per_unit", "fees", "date"}

var importDateLayouts = []string{"2006-01-02", time.RFC3339}

// ImportCSV ingests transactions from a CSV stream. Rows are applied
// through RecordBuy/RecordSell so they get the same validation and lot
// consumption as API writes; malformed rows are skipped and reported
// rather than aborting the import. Every affected pair is reconciled once
// more at the end.
func (s *Service) ImportCSV(ctx context.Context, userID string, r io.Reader) (*models.ImportSummary, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	summary := &models.ImportSummary{}
	line := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return summary, fmt.Errorf("failed to read CSV: %w", err)
		}
		line++

		if line == 1 && len(record) > 0 && strings.EqualFold(strings.TrimSpace(record[0]), importColumns[0]) {
			continue
		}

		if err := s.importRow(ctx, userID, record); err != nil {
			summary.Skipped++
			summary.Errors = append(summary.Errors, fmt.Sprintf("line %d: %v", line, err))
			s.logger.Warn().Int("line", line).Err(err).Msg("Skipped CSV row")
			continue
		}
		summary.Imported++
	}

	results, err := s.holdings.ReconcileAll(ctx, userID)
	if err != nil {
		return summary, fmt.Errorf("failed to reconcile after import: %w", err)
	}
	for _, res := range results {
		if res.Status.Wrote() {
			summary.Reconciled++
		}
	}

	s.logger.Info().
		Int("imported", summary.Imported).
		Int("skipped", summary.Skipped).
		Int("reconciled", summary.Reconciled).
		Msg("CSV import complete")
	return summary, nil
}

func (s *Service) importRow(ctx context.Context, userID string, record []string) error {
	if len(record) < len(importColumns) {
		return fmt.Errorf("expected %d columns, got %d", len(importColumns), len(record))
	}

	txType := strings.ToLower(strings.TrimSpace(record[0]))
	ticker := strings.TrimSpace(record[1])
	account := strings.TrimSpace(record[2])

	quantity, err := strconv.ParseFloat(strings.TrimSpace(record[3]), 64)
	if err != nil {
		return fmt.Errorf("invalid quantity %q", record[3])
	}
	price, err := strconv.ParseFloat(strings.TrimSpace(record[4]), 64)
	if err != nil {
		return fmt.Errorf("invalid price %q", record[4])
	}
	fees := 0.0
	if f := strings.TrimSpace(record[5]); f != "" {
		fees, err = strconv.ParseFloat(f, 64)
		if err != nil {
			return fmt.Errorf("invalid fees %q", record[5])
		}
	}
	date, err := parseImportDate(strings.TrimSpace(record[6]))
	if err != nil {
		return err
	}

	switch txType {
	case models.TransactionBuy:
		_, err = s.RecordBuy(ctx, userID, models.BuyRequest{
			AssetTicker:  ticker,
			AccountID:    account,
			Quantity:     quantity,
			PricePerUnit: price,
			Fees:         fees,
			Date:         date,
		})
	case models.TransactionSell:
		_, err = s.RecordSell(ctx, userID, models.SellRequest{
			AssetTicker:  ticker,
			AccountID:    account,
			Quantity:     quantity,
			PricePerUnit: price,
			Fees:         fees,
			Date:         date,
		})
	default:
		return fmt.Errorf("unknown transaction type %q", record[0])
	}
	return err
}

func parseImportDate(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, fmt.Errorf("date is required")
	}
	for _, layout := range importDateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q", value)
}

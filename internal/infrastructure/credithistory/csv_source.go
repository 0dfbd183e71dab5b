// Package credithistory resolves a borrower's net transaction balance from the
// transaction ledger export used for credit scoring.
package credithistory

import (
	"context"
	"credit-ledger/internal/domain/borrower"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	columnAadharID = "AADHARID"
	columnType     = "Transaction_type"
	columnAmount   = "Amount"

	transactionCredit = "CREDIT"
	transactionDebit  = "DEBIT"
)

// CSVSource scans the transactions file on every lookup. Wrap it in a CachedSource
// to avoid rereading the file for repeated identities.
type CSVSource struct {
	path   string
	logger *slog.Logger
}

var _ borrower.HistorySource = (*CSVSource)(nil)

func NewCSVSource(path string, logger *slog.Logger) *CSVSource {
	return &CSVSource{
		path:   path,
		logger: logger.With("component", "CSVHistorySource"),
	}
}

func (s *CSVSource) NetBalance(ctx context.Context, aadharID string) (decimal.Decimal, bool, error) {
	f, err := os.Open(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			s.logger.WarnContext(ctx, "Transactions file not found, treating borrower as having no history", slog.String("path", s.path))
			return decimal.Zero, false, nil
		}
		return decimal.Zero, false, fmt.Errorf("open transactions file: %w", err)
	}
	defer f.Close()

	return s.scan(ctx, f, aadharID)
}

func (s *CSVSource) scan(ctx context.Context, r io.Reader, aadharID string) (decimal.Decimal, bool, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return decimal.Zero, false, nil
		}
		return decimal.Zero, false, fmt.Errorf("read transactions header: %w", err)
	}
	idx, err := columnIndex(header)
	if err != nil {
		return decimal.Zero, false, err
	}

	balance := decimal.Zero
	found := false
	line := 1
	for {
		if err := ctx.Err(); err != nil {
			return decimal.Zero, false, err
		}
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return decimal.Zero, false, fmt.Errorf("read transactions line %d: %w", line, err)
		}
		if strings.TrimSpace(record[idx[columnAadharID]]) != aadharID {
			continue
		}

		amount, err := decimal.NewFromString(strings.TrimSpace(record[idx[columnAmount]]))
		if err != nil {
			s.logger.WarnContext(ctx, "Skipping transaction with unparsable amount", slog.Int("line", line), slog.Any("error", err))
			continue
		}
		switch strings.ToUpper(strings.TrimSpace(record[idx[columnType]])) {
		case transactionCredit:
			balance = balance.Add(amount)
		case transactionDebit:
			balance = balance.Sub(amount)
		default:
			s.logger.WarnContext(ctx, "Skipping transaction with unknown type", slog.Int("line", line))
			continue
		}
		found = true
	}

	return balance, found, nil
}

func columnIndex(header []string) (map[string]int, error) {
	idx := make(map[string]int, 3)
	for i, name := range header {
		idx[strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))] = i
	}
	for _, required := range []string{columnAadharID, columnType, columnAmount} {
		if _, ok := idx[required]; !ok {
			return nil, fmt.Errorf("transactions file missing column %q", required)
		}
	}
	return idx, nil
}

// Package txstore loads the corporate transaction dataset from CSV.
package txstore

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/rmartins/expense-audit/internal/domain"
)

// Columns required in the transaction CSV, using the dataset's own header
// names.
var requiredColumns = []string{
	"id_transacao", "data", "funcionario", "cargo", "descricao", "valor", "categoria",
}

var dateLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// LoadFile loads all transactions from a CSV file. Any ingestion problem
// (missing file, missing column, unparsable date or amount) is fatal for the
// whole run.
func LoadFile(path string) ([]domain.Transaction, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("LoadFile: opening transactions: %w", err)
	}
	defer f.Close()

	txs, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("LoadFile: %s: %w", path, err)
	}
	return txs, nil
}

// Load reads transactions from CSV content. The vendor field is derived from
// the description at load time and never mutated afterward.
func Load(r io.Reader) ([]domain.Transaction, error) {
	cr := csv.NewReader(r)

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}

	idx := make(map[string]int, len(header))
	for i, name := range header {
		idx[name] = i
	}
	for _, col := range requiredColumns {
		if _, ok := idx[col]; !ok {
			return nil, fmt.Errorf("missing required column %q", col)
		}
	}

	var txs []domain.Transaction
	for line := 2; ; line++ {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		date, err := parseDate(record[idx["data"]])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		amount, err := strconv.ParseFloat(record[idx["valor"]], 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid valor %q: %w", line, record[idx["valor"]], err)
		}

		description := record[idx["descricao"]]
		txs = append(txs, domain.Transaction{
			ID:          record[idx["id_transacao"]],
			Date:        date,
			Employee:    record[idx["funcionario"]],
			Role:        record[idx["cargo"]],
			Description: description,
			Amount:      amount,
			Category:    record[idx["categoria"]],
			Vendor:      domain.VendorFromDescription(description),
		})
	}

	return txs, nil
}

func parseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid data %q", s)
}

// ByID indexes transactions by their unique ID for lookups during
// consolidation.
func ByID(txs []domain.Transaction) map[string]domain.Transaction {
	m := make(map[string]domain.Transaction, len(txs))
	for _, tx := range txs {
		m[tx.ID] = tx
	}
	return m
}

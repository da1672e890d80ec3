package report

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rmartins/expense-audit/internal/domain"
)

const (
	timestampLayout = "20060102_150405"
	dateLayout      = "2006-01-02"
)

// findingsHeader matches the input dataset's column naming so downstream
// tooling can join the two files directly.
var findingsHeader = []string{
	"id_transacao", "data", "funcionario", "cargo", "descricao", "valor",
	"categoria", "fornecedor", "motivos", "origem", "confianca", "tipo_violacao",
}

// WriteFindingsCSV writes the consolidated findings to a timestamped CSV in
// dir and returns the path of the file it created.
func WriteFindingsCSV(dir string, findings []domain.Finding, now time.Time) (string, error) {
	path := filepath.Join(dir, fmt.Sprintf("audit_findings_%s.csv", now.Format(timestampLayout)))

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("WriteFindingsCSV: create file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(findingsHeader); err != nil {
		return "", fmt.Errorf("WriteFindingsCSV: write header: %w", err)
	}
	for _, fd := range findings {
		row := []string{
			fd.TransactionID,
			fd.Date.Format(dateLayout),
			fd.Employee,
			fd.Role,
			fd.Description,
			strconv.FormatFloat(fd.Amount, 'f', 2, 64),
			fd.Category,
			fd.Vendor,
			fd.Reasons,
			string(fd.Origin),
			strconv.Itoa(fd.Confidence),
			Classify(fd),
		}
		if err := w.Write(row); err != nil {
			return "", fmt.Errorf("WriteFindingsCSV: write row %s: %w", fd.TransactionID, err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("WriteFindingsCSV: flush: %w", err)
	}
	return path, nil
}

// WriteSummaryTXT writes the executive summary, including the
// manual-review queue, to a timestamped text file in dir and returns its
// path.
func WriteSummaryTXT(dir string, s Summary, review []domain.Transaction, now time.Time) (string, error) {
	path := filepath.Join(dir, fmt.Sprintf("audit_summary_%s.txt", now.Format(timestampLayout)))

	var b strings.Builder
	line := strings.Repeat("=", 70)

	fmt.Fprintln(&b, line)
	fmt.Fprintln(&b, "EXPENSE AUDIT - EXECUTIVE SUMMARY")
	fmt.Fprintf(&b, "Generated at: %s\n", now.Format("2006-01-02 15:04:05"))
	fmt.Fprintln(&b, line)
	fmt.Fprintln(&b)

	fmt.Fprintf(&b, "Total findings:          %d\n", s.TotalFindings)
	fmt.Fprintf(&b, "  Direct violations:     %d\n", s.DirectCount)
	fmt.Fprintf(&b, "  Contextual findings:   %d\n", s.ContextualCount)
	fmt.Fprintf(&b, "Total amount involved:   US$ %.2f\n", s.TotalAmount)
	fmt.Fprintln(&b)

	fmt.Fprintln(&b, "FINDINGS BY CATEGORY")
	fmt.Fprintln(&b, strings.Repeat("-", 70))
	for _, c := range s.ByCategory {
		fmt.Fprintf(&b, "  %-25s %4d findings   US$ %10.2f\n", c.Category, c.Count, c.Amount)
	}
	fmt.Fprintln(&b)

	fmt.Fprintln(&b, "TOP EMPLOYEES BY FLAGGED AMOUNT")
	fmt.Fprintln(&b, strings.Repeat("-", 70))
	for i, e := range s.TopEmployees {
		fmt.Fprintf(&b, "  %2d. %-25s %4d findings   US$ %10.2f\n", i+1, e.Employee, e.Count, e.Amount)
	}
	fmt.Fprintln(&b)

	fmt.Fprintln(&b, "REQUIRES REGIONAL-MANAGER APPROVAL CHECK")
	fmt.Fprintln(&b, strings.Repeat("-", 70))
	if len(review) == 0 {
		fmt.Fprintln(&b, "  (none)")
	}
	for _, tx := range review {
		fmt.Fprintf(&b, "  %s  %s  %-25s US$ %8.2f  %s\n",
			tx.ID, tx.Date.Format(dateLayout), tx.Employee, tx.Amount, tx.Description)
	}
	fmt.Fprintln(&b)
	fmt.Fprintln(&b, line)

	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return "", fmt.Errorf("WriteSummaryTXT: write file: %w", err)
	}
	return path, nil
}

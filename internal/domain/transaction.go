package domain

import (
	"strings"
	"time"
)

// Transaction is one row of the corporate expense dataset. It is immutable
// after loading; Vendor is derived from the description at load time.
type Transaction struct {
	ID          string    // from "id_transacao"
	Date        time.Time // from "data"
	Employee    string    // from "funcionario"
	Role        string    // from "cargo"
	Description string    // from "descricao"
	Amount      float64   // from "valor", USD
	Category    string    // from "categoria"
	Vendor      string    // derived: description before the first " - "
}

// VendorFromDescription extracts the vendor name from a free-text
// description: the part before the first " - " separator, or the whole
// string when no separator is present.
func VendorFromDescription(description string) string {
	if before, _, ok := strings.Cut(description, " - "); ok {
		return before
	}
	return description
}

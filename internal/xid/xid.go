package xid

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// New returns an opaque id such as "audit-3f0c9a...".
func New(prefix string) string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	if prefix == "" {
		return id
	}
	return prefix + "-" + id
}

// SaleInvoice formats a sale invoice number as S-<unix millis>-<4 hex>.
func SaleInvoice(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:4])
	return fmt.Sprintf("S-%d-%s", now.UnixMilli(), suffix)
}

package xid

import (
	"regexp"
	"strings"
	"testing"
	"time"
)

func TestSaleInvoiceFormat(t *testing.T) {
	at := time.UnixMilli(1700000000123)
	invoice := SaleInvoice(at)
	if !regexp.MustCompile(`^S-1700000000123-[0-9A-F]{4}$`).MatchString(invoice) {
		t.Fatalf("unexpected invoice format %q", invoice)
	}
}

func TestSaleInvoiceDiffersWithinSameMillisecond(t *testing.T) {
	at := time.Now()
	seen := make(map[string]struct{}, 64)
	for i := 0; i < 64; i++ {
		seen[SaleInvoice(at)] = struct{}{}
	}
	if len(seen) < 2 {
		t.Fatalf("expected distinct invoice suffixes, got %d unique", len(seen))
	}
}

func TestNewUsesPrefix(t *testing.T) {
	id := New("audit")
	if !strings.HasPrefix(id, "audit-") || len(id) != len("audit-")+32 {
		t.Fatalf("unexpected id %q", id)
	}
}

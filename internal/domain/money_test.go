package domain

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
)

func TestSaleTotalsArithmetic(t *testing.T) {
	items := []SaleItem{
		{ProductArtNo: "A", Quantity: 2, SellingPrice: decimal.NewFromInt(10)},
		{ProductArtNo: "B", Quantity: 3, SellingPrice: decimal.NewFromInt(5)},
	}
	for i := range items {
		items[i].Total = LineTotal(items[i].Quantity, items[i].SellingPrice)
	}

	if !items[0].Total.Equal(decimal.NewFromInt(20)) {
		t.Fatalf("expected first line total 20, got %s", items[0].Total)
	}
	if !items[1].Total.Equal(decimal.NewFromInt(15)) {
		t.Fatalf("expected second line total 15, got %s", items[1].Total)
	}

	subtotal := SaleSubtotal(items)
	if !subtotal.Equal(decimal.NewFromInt(35)) {
		t.Fatalf("expected subtotal 35, got %s", subtotal)
	}
	if total := SaleTotal(subtotal, decimal.NewFromInt(5)); !total.Equal(decimal.NewFromInt(30)) {
		t.Fatalf("expected total 30, got %s", total)
	}
}

func TestSaleTotalNeverNegative(t *testing.T) {
	total := SaleTotal(decimal.NewFromInt(10), decimal.NewFromInt(25))
	if !total.IsZero() {
		t.Fatalf("expected total floored at 0, got %s", total)
	}
}

func TestLineTotalRoundsToCents(t *testing.T) {
	total := LineTotal(3, decimal.RequireFromString("0.333"))
	if total.String() != "1" {
		t.Fatalf("expected 1, got %s", total)
	}
	total = LineTotal(3, decimal.RequireFromString("1.105"))
	if !total.Equal(decimal.RequireFromString("3.32")) {
		t.Fatalf("expected 3.32, got %s", total)
	}
}

func TestMoneyMarshalsAsNumber(t *testing.T) {
	payload, err := json.Marshal(PurchaseItem{Quantity: 2, PurchasePrice: decimal.NewFromInt(10), Total: decimal.NewFromInt(20)})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var raw map[string]any
	if err := json.Unmarshal(payload, &raw); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if _, ok := raw["total"].(float64); !ok {
		t.Fatalf("expected total to be a JSON number, got %T", raw["total"])
	}
}

func TestParsePermission(t *testing.T) {
	p, err := ParsePermission(" manage_sales ")
	if err != nil || p != PermManageSales {
		t.Fatalf("expected MANAGE_SALES, got %q (%v)", p, err)
	}
	if _, err := ParsePermission("LAUNCH_MISSILES"); err == nil {
		t.Fatalf("expected unknown permission to be rejected")
	}
}

func TestActorCan(t *testing.T) {
	admin := Actor{Role: RoleSuperAdmin}
	if !admin.Can(PermManageStaff) {
		t.Fatalf("super admin must bypass permission checks")
	}
	staff := Actor{Role: RoleStaff, Permissions: NewPermissionSet(PermManageSales)}
	if !staff.Can(PermManageSales) {
		t.Fatalf("expected granted permission to pass")
	}
	if staff.Can(PermManagePurchases) {
		t.Fatalf("expected missing permission to fail")
	}
}

func TestPaymentModeCanonicalSet(t *testing.T) {
	for _, mode := range []PaymentMode{PaymentCash, PaymentCard, PaymentUPI, PaymentCheque, PaymentOnline} {
		if !mode.Valid() {
			t.Fatalf("expected %s to be valid", mode)
		}
	}
	if PaymentMode("BARTER").Valid() {
		t.Fatalf("expected BARTER to be rejected")
	}
}

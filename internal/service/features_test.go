package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"testing"

	"github.com/cucumber/godog"
	"github.com/shopspring/decimal"

	"inventorypro/backend/internal/domain"
	"inventorypro/backend/internal/events"
	"inventorypro/backend/internal/store"
	"inventorypro/backend/internal/store/memory"
)

type inventoryFeature struct {
	svc          *Service
	repo         *memory.Store
	ctx          context.Context
	lastErr      error
	lastPurchase *domain.Purchase
	lastSale     *domain.Sale
}

func (f *inventoryFeature) reset() {
	f.repo = memory.New()
	f.svc = New(f.repo, nil, events.NoopPublisher{})
	f.ctx = WithActor(context.Background(), domain.Actor{UserID: 1, Username: "owner", Role: domain.RoleSuperAdmin})
	f.lastErr = nil
	f.lastPurchase = nil
	f.lastSale = nil
}

func (f *inventoryFeature) aProductWithQuantity(art string, qty int) error {
	_, err := f.svc.CreateProduct(f.ctx, domain.ProductCreateRequest{
		ArticleNumber: art,
		Name:          "Product " + art,
		SellingPrice:  decimal.NewFromInt(10),
		Quantity:      qty,
	})
	return err
}

type tableLine struct {
	art   string
	qty   int
	price decimal.Decimal
}

func parseLines(table *godog.Table) ([]tableLine, error) {
	if len(table.Rows) < 2 {
		return nil, fmt.Errorf("table needs a header and at least one row")
	}
	lines := make([]tableLine, 0, len(table.Rows)-1)
	for _, row := range table.Rows[1:] {
		qty, err := strconv.Atoi(row.Cells[1].Value)
		if err != nil {
			return nil, err
		}
		price, err := decimal.NewFromString(row.Cells[2].Value)
		if err != nil {
			return nil, err
		}
		lines = append(lines, tableLine{art: row.Cells[0].Value, qty: qty, price: price})
	}
	return lines, nil
}

func (f *inventoryFeature) recordPurchase(table *godog.Table) error {
	lines, err := parseLines(table)
	if err != nil {
		return err
	}
	req := domain.PurchaseCreateRequest{InvoiceNumber: "PO-FEATURE"}
	for _, line := range lines {
		req.Items = append(req.Items, domain.PurchaseItemRequest{ProductArtNo: line.art, Quantity: line.qty, PurchasePrice: line.price})
	}
	purchase, err := f.svc.CreatePurchase(f.ctx, req)
	f.lastErr = err
	if err == nil {
		f.lastPurchase = &purchase
	}
	return nil
}

func (f *inventoryFeature) recordSale(table *godog.Table) error {
	return f.recordSaleWithDiscount("0", table)
}

func (f *inventoryFeature) recordSaleWithDiscount(raw string, table *godog.Table) error {
	lines, err := parseLines(table)
	if err != nil {
		return err
	}
	discount, err := decimal.NewFromString(raw)
	if err != nil {
		return err
	}
	req := domain.SaleCreateRequest{PaymentMode: domain.PaymentCash, Discount: &discount}
	for _, line := range lines {
		req.Items = append(req.Items, domain.SaleItemRequest{ProductArtNo: line.art, Quantity: line.qty, SellingPrice: line.price})
	}
	resp, err := f.svc.CreateSale(f.ctx, req)
	f.lastErr = err
	if err == nil {
		f.lastSale = &resp.Sale
	}
	return nil
}

func (f *inventoryFeature) deleteLast(kind string) error {
	switch kind {
	case "purchase":
		if f.lastPurchase == nil {
			return fmt.Errorf("no purchase recorded")
		}
		_, f.lastErr = f.svc.DeletePurchase(f.ctx, f.lastPurchase.ID)
	case "sale":
		if f.lastSale == nil {
			return fmt.Errorf("no sale recorded")
		}
		_, f.lastErr = f.svc.DeleteSale(f.ctx, f.lastSale.ID)
	}
	return nil
}

func (f *inventoryFeature) requestSucceeds() error {
	if f.lastErr != nil {
		return fmt.Errorf("expected success, got %v", f.lastErr)
	}
	return nil
}

func (f *inventoryFeature) requestFailsWith(kind string) error {
	targets := map[string]error{
		"not found":          store.ErrNotFound,
		"insufficient stock": store.ErrInsufficientStock,
		"invalid input":      store.ErrInvalidInput,
		"conflict":           store.ErrConflict,
	}
	target, ok := targets[kind]
	if !ok {
		return fmt.Errorf("unknown failure kind %q", kind)
	}
	if !errors.Is(f.lastErr, target) {
		return fmt.Errorf("expected %s, got %v", kind, f.lastErr)
	}
	return nil
}

func (f *inventoryFeature) errorMentions(text string) error {
	if f.lastErr == nil || !strings.Contains(f.lastErr.Error(), text) {
		return fmt.Errorf("expected error containing %q, got %v", text, f.lastErr)
	}
	return nil
}

func (f *inventoryFeature) quantityIs(art string, want int) error {
	p, err := f.repo.GetProduct(context.Background(), art)
	if err != nil {
		return err
	}
	if p.Quantity != want {
		return fmt.Errorf("expected quantity %d for %s, got %d", want, art, p.Quantity)
	}
	return nil
}

func (f *inventoryFeature) totalIs(kind string, raw string) error {
	want, err := decimal.NewFromString(raw)
	if err != nil {
		return err
	}
	var got decimal.Decimal
	switch kind {
	case "purchase":
		if f.lastPurchase == nil {
			return fmt.Errorf("no purchase recorded")
		}
		got = f.lastPurchase.TotalAmount
	case "sale":
		if f.lastSale == nil {
			return fmt.Errorf("no sale recorded")
		}
		got = f.lastSale.TotalAmount
	}
	if !got.Equal(want) {
		return fmt.Errorf("expected %s total %s, got %s", kind, want, got)
	}
	return nil
}

func initializeInventoryScenario(sc *godog.ScenarioContext) {
	f := &inventoryFeature{}
	sc.Before(func(ctx context.Context, _ *godog.Scenario) (context.Context, error) {
		f.reset()
		return ctx, nil
	})

	sc.Step(`^a product "([^"]*)" with quantity (\d+)$`, f.aProductWithQuantity)
	sc.Step(`^I record a purchase with lines:$`, f.recordPurchase)
	sc.Step(`^I record a sale with lines:$`, f.recordSale)
	sc.Step(`^I record a sale with discount (\S+) and lines:$`, f.recordSaleWithDiscount)
	sc.Step(`^I delete the last (purchase|sale)$`, f.deleteLast)
	sc.Step(`^the request succeeds$`, f.requestSucceeds)
	sc.Step(`^the request fails with "([^"]*)"$`, f.requestFailsWith)
	sc.Step(`^the error mentions "([^"]*)"$`, f.errorMentions)
	sc.Step(`^the quantity of "([^"]*)" is (\d+)$`, f.quantityIs)
	sc.Step(`^the (purchase|sale) total is (\S+)$`, f.totalIs)
}

func TestInventoryFeatures(t *testing.T) {
	suite := godog.TestSuite{
		Name:                "inventory",
		ScenarioInitializer: initializeInventoryScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"features"},
			TestingT: t,
		},
	}
	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}

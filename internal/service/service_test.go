package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"testing"

	"github.com/shopspring/decimal"

	"inventorypro/backend/internal/cache"
	"inventorypro/backend/internal/domain"
	"inventorypro/backend/internal/events"
	"inventorypro/backend/internal/store"
	"inventorypro/backend/internal/store/memory"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []string
}

func (p *recordingPublisher) Publish(_ context.Context, routingKey string, _ any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, routingKey)
	return nil
}

func (p *recordingPublisher) count(routingKey string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, key := range p.events {
		if key == routingKey {
			n++
		}
	}
	return n
}

func newTestService() (*Service, *recordingPublisher) {
	pub := &recordingPublisher{}
	return New(memory.NewSeeded(), cache.NewLRUPermissionCache(0), pub), pub
}

func adminCtx() context.Context {
	return WithActor(context.Background(), domain.Actor{UserID: 1, Username: "superadmin", Role: domain.RoleSuperAdmin})
}

func staffCtx(perms ...domain.Permission) context.Context {
	return WithActor(context.Background(), domain.Actor{
		UserID:      2,
		Username:    "staff",
		Role:        domain.RoleStaff,
		Permissions: domain.NewPermissionSet(perms...),
	})
}

func TestCreateSaleDefaultsToCashAndGeneratesInvoice(t *testing.T) {
	svc, pub := newTestService()

	resp, err := svc.CreateSale(staffCtx(domain.PermManageSales), domain.SaleCreateRequest{
		Items: []domain.SaleItemRequest{{ProductArtNo: "ART-1001", Quantity: 2, SellingPrice: decimal.NewFromInt(610)}},
	})
	if err != nil {
		t.Fatalf("create sale failed: %v", err)
	}
	if resp.Sale.PaymentMode != domain.PaymentCash {
		t.Fatalf("expected CASH default, got %s", resp.Sale.PaymentMode)
	}
	if !strings.HasPrefix(resp.InvoiceNumber, "S-") || resp.InvoiceNumber != resp.Sale.InvoiceNumber {
		t.Fatalf("unexpected invoice number %q", resp.InvoiceNumber)
	}
	if !resp.Sale.TotalAmount.Equal(decimal.NewFromInt(1220)) {
		t.Fatalf("expected total 1220, got %s", resp.Sale.TotalAmount)
	}
	if pub.count(events.TypeStockAdjusted) != 1 {
		t.Fatalf("expected one stock.adjusted event, got %v", pub.events)
	}
}

func TestCreateSaleRejectsUnknownPaymentMode(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.CreateSale(adminCtx(), domain.SaleCreateRequest{
		PaymentMode: "BARTER",
		Items:       []domain.SaleItemRequest{{ProductArtNo: "ART-1001", Quantity: 1, SellingPrice: decimal.NewFromInt(1)}},
	})
	if !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestCreateSaleRejectsNegativeDiscount(t *testing.T) {
	svc, _ := newTestService()
	discount := decimal.NewFromInt(-1)

	_, err := svc.CreateSale(adminCtx(), domain.SaleCreateRequest{
		PaymentMode: domain.PaymentCard,
		Discount:    &discount,
		Items:       []domain.SaleItemRequest{{ProductArtNo: "ART-1001", Quantity: 1, SellingPrice: decimal.NewFromInt(1)}},
	})
	if !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestCreateSaleRequiresPermission(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.CreateSale(staffCtx(domain.PermViewPrices), domain.SaleCreateRequest{
		Items: []domain.SaleItemRequest{{ProductArtNo: "ART-1001", Quantity: 1, SellingPrice: decimal.NewFromInt(1)}},
	})
	if !errors.Is(err, store.ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	if err.Error() != "forbidden: missing permission MANAGE_SALES" {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestSaleIntoLowStockPublishesLowStockEvent(t *testing.T) {
	svc, pub := newTestService()

	_, err := svc.CreateSale(adminCtx(), domain.SaleCreateRequest{
		PaymentMode: domain.PaymentUPI,
		Items:       []domain.SaleItemRequest{{ProductArtNo: "ART-2002", Quantity: 20, SellingPrice: decimal.NewFromInt(110)}},
	})
	if err != nil {
		t.Fatalf("create sale failed: %v", err)
	}
	if pub.count(events.TypeStockLow) != 1 {
		t.Fatalf("expected one stock.low event, got %v", pub.events)
	}
}

func TestPurchaseLifecycleWritesAudit(t *testing.T) {
	svc, _ := newTestService()
	ctx := adminCtx()
	supplierID := int64(1)

	purchase, err := svc.CreatePurchase(ctx, domain.PurchaseCreateRequest{
		SupplierID:    &supplierID,
		InvoiceNumber: " PO-77 ",
		Items: []domain.PurchaseItemRequest{
			{ProductArtNo: "ART-1003", Quantity: 10, PurchasePrice: decimal.RequireFromString("131.555")},
		},
	})
	if err != nil {
		t.Fatalf("create purchase failed: %v", err)
	}
	if purchase.InvoiceNumber != "PO-77" || purchase.SupplierName != "Metro Wholesale" {
		t.Fatalf("unexpected purchase header %+v", purchase)
	}
	if !purchase.TotalAmount.Equal(decimal.RequireFromString("1315.6")) {
		t.Fatalf("expected rounded total 1315.60, got %s", purchase.TotalAmount)
	}

	product, err := svc.GetProduct(ctx, "ART-1003")
	if err != nil {
		t.Fatalf("get product: %v", err)
	}
	if *product.Quantity != 18 {
		t.Fatalf("expected quantity 18, got %d", *product.Quantity)
	}

	if _, err := svc.DeletePurchase(ctx, purchase.ID); err != nil {
		t.Fatalf("delete purchase failed: %v", err)
	}

	logs, err := svc.ListAuditLogs(ctx, 0)
	if err != nil {
		t.Fatalf("list audit logs: %v", err)
	}
	if len(logs) < 2 || logs[0].Action != "purchase_delete" || logs[1].Action != "purchase_create" {
		t.Fatalf("unexpected audit trail %+v", logs)
	}
}

func TestCreatePurchaseValidatesLines(t *testing.T) {
	svc, _ := newTestService()

	cases := []domain.PurchaseCreateRequest{
		{InvoiceNumber: "", Items: []domain.PurchaseItemRequest{{ProductArtNo: "ART-1001", Quantity: 1}}},
		{InvoiceNumber: "PO-1"},
		{InvoiceNumber: "PO-1", Items: []domain.PurchaseItemRequest{{ProductArtNo: "ART-1001", Quantity: 0}}},
		{InvoiceNumber: "PO-1", Items: []domain.PurchaseItemRequest{{ProductArtNo: "ART-1001", Quantity: 1, PurchasePrice: decimal.NewFromInt(-1)}}},
	}
	for i, req := range cases {
		if _, err := svc.CreatePurchase(adminCtx(), req); !errors.Is(err, store.ErrInvalidInput) {
			t.Fatalf("case %d: expected invalid input, got %v", i, err)
		}
	}
}

func TestProductRedactionForStaff(t *testing.T) {
	svc, _ := newTestService()

	products, err := svc.ListProducts(staffCtx(domain.PermManageSales), 0)
	if err != nil {
		t.Fatalf("list products: %v", err)
	}
	for _, p := range products {
		if p.PurchasePrice != nil || p.Quantity != nil || p.MinStock != nil {
			t.Fatalf("expected redacted product, got %+v", p)
		}
	}

	products, err = svc.ListProducts(staffCtx(domain.PermViewPrices), 0)
	if err != nil {
		t.Fatalf("list products: %v", err)
	}
	if products[0].PurchasePrice == nil || products[0].Quantity != nil {
		t.Fatalf("expected prices only, got %+v", products[0])
	}

	products, err = svc.ListProducts(adminCtx(), 0)
	if err != nil {
		t.Fatalf("list products: %v", err)
	}
	if products[0].PurchasePrice == nil || products[0].Quantity == nil {
		t.Fatalf("expected full view for super admin")
	}
}

func TestUpdateProductKeepsOmittedFields(t *testing.T) {
	svc, _ := newTestService()
	name := "Basmati Rice 5kg Premium"

	updated, err := svc.UpdateProduct(adminCtx(), "ART-1001", domain.ProductUpdateRequest{Name: &name})
	if err != nil {
		t.Fatalf("update product: %v", err)
	}
	if updated.Name != name || updated.Quantity != 40 || !updated.SellingPrice.Equal(decimal.NewFromInt(610)) {
		t.Fatalf("unexpected product after partial update %+v", updated)
	}

	negative := -1
	if _, err := svc.UpdateProduct(adminCtx(), "ART-1001", domain.ProductUpdateRequest{Quantity: &negative}); !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("expected invalid input for negative quantity, got %v", err)
	}
}

func TestLowStockSuggestsReorder(t *testing.T) {
	svc, _ := newTestService()

	report, err := svc.LowStock(staffCtx())
	if err != nil {
		t.Fatalf("low stock: %v", err)
	}
	if len(report.Items) != 1 || report.Items[0].ArticleNumber != "ART-1003" {
		t.Fatalf("unexpected low stock items %+v", report.Items)
	}
	if report.Items[0].SuggestedOrder != 16 {
		t.Fatalf("expected suggested order 16, got %d", report.Items[0].SuggestedOrder)
	}
	if suggestedOrder(domain.Product{Quantity: 5, MinStock: 0}) != 1 {
		t.Fatalf("expected suggested order floor of 1")
	}
}

func TestSetupOnlyWhenNoUsers(t *testing.T) {
	svc, _ := newTestService()
	if _, err := svc.Setup(context.Background(), domain.SetupRequest{Username: "owner", Password: "Str0ng@pass"}); !errors.Is(err, store.ErrForbidden) {
		t.Fatalf("expected forbidden on seeded store, got %v", err)
	}

	fresh := New(memory.New(), nil, nil)
	if _, err := fresh.Setup(context.Background(), domain.SetupRequest{Username: "owner", Password: "weakpass"}); !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("expected weak password to be rejected, got %v", err)
	}
	view, err := fresh.Setup(context.Background(), domain.SetupRequest{Username: "owner", Password: "Str0ng@pass", BusinessName: "Corner Shop"})
	if err != nil {
		t.Fatalf("setup failed: %v", err)
	}
	if view.Role != domain.RoleSuperAdmin {
		t.Fatalf("expected super admin, got %s", view.Role)
	}
	settings, err := fresh.GetSettings(WithActor(context.Background(), domain.Actor{UserID: view.ID, Role: view.Role}))
	if err != nil || settings.BusinessName != "Corner Shop" {
		t.Fatalf("expected business name to be stored, got %q err=%v", settings.BusinessName, err)
	}
}

func TestStrongPasswordRules(t *testing.T) {
	cases := map[string]bool{
		"Str0ng@pass":   true,
		"short@1A":      true,
		"Sh0rt@":        false,
		"nouppercase1!": false,
		"NoDigits@@":    false,
		"NoSpecial12":   false,
	}
	for password, want := range cases {
		if got := isStrongPassword(password); got != want {
			t.Fatalf("isStrongPassword(%q) = %v, want %v", password, got, want)
		}
	}
}

func TestAuthenticate(t *testing.T) {
	t.Setenv("SEED_ADMIN_PASSWORD", "Adm1n@secret")
	t.Setenv("SEED_STAFF_PASSWORD", "Staff@secret1")
	svc := New(memory.NewSeeded(), nil, nil)

	user, err := svc.Authenticate(context.Background(), domain.LoginRequest{Username: "SuperAdmin", Password: "Adm1n@secret"})
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if user.Role != domain.RoleSuperAdmin {
		t.Fatalf("unexpected role %s", user.Role)
	}

	if _, err := svc.Authenticate(context.Background(), domain.LoginRequest{Username: "superadmin", Password: "wrong"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials, got %v", err)
	}
	if _, err := svc.Authenticate(context.Background(), domain.LoginRequest{Username: "superadmin"}); !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("expected invalid input for missing password, got %v", err)
	}
	if _, err := svc.Authenticate(context.Background(), domain.LoginRequest{Username: strings.Repeat("a", 129), Password: "x"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials for oversized username, got %v", err)
	}
}

func TestStaffPermissionChangesReachResolvedActor(t *testing.T) {
	svc, _ := newTestService()
	ctx := adminCtx()

	created, err := svc.CreateStaff(ctx, domain.StaffCreateRequest{
		Username:    "cashier1",
		Password:    "cashier-pass",
		Permissions: []domain.Permission{"manage_sales"},
	})
	if err != nil {
		t.Fatalf("create staff: %v", err)
	}

	actor, err := svc.ResolveActor(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("resolve actor: %v", err)
	}
	if !actor.Can(domain.PermManageSales) || actor.Can(domain.PermManageProducts) {
		t.Fatalf("unexpected permissions %v", actor.Permissions.List())
	}

	if _, err := svc.UpdateStaffPermissions(ctx, created.ID, domain.StaffPermissionsRequest{
		Permissions: []domain.Permission{domain.PermManageProducts},
	}); err != nil {
		t.Fatalf("update permissions: %v", err)
	}
	actor, err = svc.ResolveActor(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("resolve actor: %v", err)
	}
	if actor.Can(domain.PermManageSales) || !actor.Can(domain.PermManageProducts) {
		t.Fatalf("expected cache to be invalidated, got %v", actor.Permissions.List())
	}

	if _, err := svc.DeactivateStaff(ctx, created.ID); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	if _, err := svc.ResolveActor(context.Background(), created.ID); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected deactivated user to be rejected, got %v", err)
	}
}

func TestStaffRulesProtectSuperAdmin(t *testing.T) {
	svc, _ := newTestService()
	ctx := adminCtx()

	if _, err := svc.DeactivateStaff(ctx, 1); !errors.Is(err, store.ErrForbidden) {
		t.Fatalf("expected forbidden when deactivating super admin, got %v", err)
	}
	if _, err := svc.CreateStaff(ctx, domain.StaffCreateRequest{Username: "bob", Password: "short"}); !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("expected short password rejection, got %v", err)
	}
	if _, err := svc.CreateStaff(ctx, domain.StaffCreateRequest{Username: "bob", Password: "long-enough", Permissions: []domain.Permission{"FLY"}}); !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("expected unknown permission rejection, got %v", err)
	}
	if _, err := svc.CreateStaff(ctx, domain.StaffCreateRequest{Username: "STAFF", Password: "long-enough"}); !errors.Is(err, store.ErrConflict) {
		t.Fatalf("expected duplicate username conflict, got %v", err)
	}
	if _, err := svc.ListStaff(staffCtx(domain.PermManageSales)); !errors.Is(err, store.ErrForbidden) {
		t.Fatalf("expected forbidden for staff without MANAGE_STAFF, got %v", err)
	}
}

func TestBackupIsSuperAdminOnly(t *testing.T) {
	svc, _ := newTestService()

	if _, err := svc.Backup(staffCtx(domain.PermManageStaff, domain.PermManageSettings)); !errors.Is(err, store.ErrForbidden) {
		t.Fatalf("expected forbidden for staff, got %v", err)
	}
	backup, err := svc.Backup(adminCtx())
	if err != nil {
		t.Fatalf("backup: %v", err)
	}
	if len(backup.Products) != 5 || len(backup.Users) != 2 || backup.ExportedAt == "" {
		t.Fatalf("unexpected backup contents: %d products, %d users", len(backup.Products), len(backup.Users))
	}
}

func TestUpdateSettingsPartial(t *testing.T) {
	svc, _ := newTestService()
	shelf := true
	empty := " "

	settings, err := svc.UpdateSettings(adminCtx(), domain.SettingsUpdateRequest{EnableShelfLocation: &shelf})
	if err != nil {
		t.Fatalf("update settings: %v", err)
	}
	if !settings.EnableShelfLocation || settings.BusinessName != "InventoryPro" {
		t.Fatalf("unexpected settings %+v", settings)
	}
	if _, err := svc.UpdateSettings(adminCtx(), domain.SettingsUpdateRequest{BusinessName: &empty}); !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("expected empty business name rejection, got %v", err)
	}
	if _, err := svc.UpdateSettings(staffCtx(), domain.SettingsUpdateRequest{EnableShelfLocation: &shelf}); !errors.Is(err, store.ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestMeListsFullCatalogueForSuperAdmin(t *testing.T) {
	svc, _ := newTestService()

	me, err := svc.Me(adminCtx())
	if err != nil {
		t.Fatalf("me: %v", err)
	}
	if len(me.Permissions) != len(domain.Permissions()) {
		t.Fatalf("expected all permissions, got %d", len(me.Permissions))
	}

	me, err = svc.Me(staffCtx())
	if err != nil {
		t.Fatalf("me: %v", err)
	}
	if len(me.Permissions) != 1 || me.Permissions[0].PermissionName != domain.PermManageSales {
		t.Fatalf("unexpected staff permissions %+v", me.Permissions)
	}
}

func TestInventoryRejectsQuantitiesBeyondStockRange(t *testing.T) {
	svc, pub := newTestService()
	ctx := adminCtx()

	_, err := svc.CreateSale(ctx, domain.SaleCreateRequest{
		Items: []domain.SaleItemRequest{
			{ProductArtNo: "ART-1003", Quantity: math.MaxInt, SellingPrice: decimal.NewFromInt(155)},
			{ProductArtNo: "ART-1003", Quantity: math.MaxInt, SellingPrice: decimal.NewFromInt(155)},
		},
	})
	if !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("expected invalid input for oversized sale lines, got %v", err)
	}

	_, err = svc.CreatePurchase(ctx, domain.PurchaseCreateRequest{
		InvoiceNumber: "PO-OVF",
		Items:         []domain.PurchaseItemRequest{{ProductArtNo: "ART-1001", Quantity: math.MaxInt, PurchasePrice: decimal.NewFromInt(1)}},
	})
	if !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("expected invalid input for oversized purchase line, got %v", err)
	}

	_, err = svc.CreatePurchase(ctx, domain.PurchaseCreateRequest{
		InvoiceNumber: "PO-FULL",
		Items:         []domain.PurchaseItemRequest{{ProductArtNo: "ART-1001", Quantity: domain.MaxStockQuantity, PurchasePrice: decimal.NewFromInt(1)}},
	})
	if !errors.Is(err, store.ErrConflict) {
		t.Fatalf("expected conflict when stock would exceed the range, got %v", err)
	}

	for art, want := range map[string]int{"ART-1003": 8, "ART-1001": 40} {
		p, err := svc.GetProduct(ctx, art)
		if err != nil {
			t.Fatalf("get %s: %v", art, err)
		}
		if p.Quantity == nil || *p.Quantity != want {
			t.Fatalf("expected %s stock %d, got %v", art, want, p.Quantity)
		}
	}
	if n := pub.count(events.TypeStockAdjusted); n != 0 {
		t.Fatalf("expected no stock events, got %d", n)
	}
}

func TestConcurrentSetupCreatesOneSuperAdmin(t *testing.T) {
	svc := New(memory.New(), nil, nil)

	const callers = 4
	var wg sync.WaitGroup
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Setup(context.Background(), domain.SetupRequest{
				Username: fmt.Sprintf("owner%d", i),
				Password: "Str0ng@pass",
			})
		}(i)
	}
	wg.Wait()

	created := 0
	for _, err := range errs {
		if err == nil {
			created++
			continue
		}
		if !errors.Is(err, store.ErrForbidden) {
			t.Fatalf("expected forbidden for the losing setup, got %v", err)
		}
	}
	if created != 1 {
		t.Fatalf("expected exactly one super admin, got %d", created)
	}
}

package memory

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"inventorypro/backend/internal/domain"
	"inventorypro/backend/internal/store"
)

type Store struct {
	mu        sync.RWMutex
	products  map[string]domain.Product
	suppliers map[int64]domain.Supplier
	customers map[int64]domain.Customer
	purchases map[int64]domain.Purchase
	sales     map[int64]domain.Sale
	users     map[int64]domain.User
	settings  *domain.Settings
	auditLogs []domain.AuditLog
	sequences map[string]int64
}

// New returns an empty store. The first account must be created through setup.
func New() *Store {
	return &Store{
		products:  make(map[string]domain.Product),
		suppliers: make(map[int64]domain.Supplier),
		customers: make(map[int64]domain.Customer),
		purchases: make(map[int64]domain.Purchase),
		sales:     make(map[int64]domain.Sale),
		users:     make(map[int64]domain.User),
		auditLogs: make([]domain.AuditLog, 0, 128),
		sequences: make(map[string]int64),
	}
}

// NewSeeded returns a store with demo catalogue data and two accounts for
// dev mode: "superadmin" and "staff" (sales only). Passwords come from
// SEED_ADMIN_PASSWORD and SEED_STAFF_PASSWORD.
func NewSeeded() *Store {
	s := New()
	now := time.Now().UTC()

	for _, p := range []domain.Product{
		{ArticleNumber: "ART-1001", Name: "Basmati Rice 5kg", Category: "grocery", Brand: "IndiaGate", PurchasePrice: decimal.NewFromInt(520), SellingPrice: decimal.NewFromInt(610), Quantity: 40, MinStock: 10},
		{ArticleNumber: "ART-1002", Name: "Sunflower Oil 1L", Category: "grocery", Brand: "Fortune", PurchasePrice: decimal.NewFromInt(118), SellingPrice: decimal.NewFromInt(140), Quantity: 60, MinStock: 15},
		{ArticleNumber: "ART-1003", Name: "Toor Dal 1kg", Category: "grocery", PurchasePrice: decimal.NewFromInt(132), SellingPrice: decimal.NewFromInt(155), Quantity: 8, MinStock: 12},
		{ArticleNumber: "ART-2001", Name: "Bath Soap 125g", Category: "household", Brand: "Mysore", PurchasePrice: decimal.NewFromInt(38), SellingPrice: decimal.NewFromInt(45), Quantity: 120, MinStock: 30},
		{ArticleNumber: "ART-2002", Name: "Detergent 1kg", Category: "household", PurchasePrice: decimal.RequireFromString("92.50"), SellingPrice: decimal.NewFromInt(110), Quantity: 25, MinStock: 10},
	} {
		p.DiscountValue = decimal.Zero
		p.DiscountType = domain.DiscountAmount
		p.TaxPercent = decimal.Zero
		p.Unit = "pcs"
		p.CreatedAt = now
		p.UpdatedAt = now
		s.products[p.ArticleNumber] = p
	}

	supplierID := s.next("suppliers")
	s.suppliers[supplierID] = domain.Supplier{ID: supplierID, Name: "Metro Wholesale", Contact: "+91 98450 00000", CreatedAt: now}
	customerID := s.next("customers")
	s.customers[customerID] = domain.Customer{ID: customerID, Name: "Walk-in Customer", CreatedAt: now}

	for _, u := range seedUsers(now) {
		u.ID = s.next("users")
		s.users[u.ID] = u
	}
	return s
}

func seedUsers(now time.Time) []domain.User {
	adminPwd := envOr("SEED_ADMIN_PASSWORD", "admin123")
	staffPwd := envOr("SEED_STAFF_PASSWORD", "staff123")
	if os.Getenv("SEED_ADMIN_PASSWORD") == "" || os.Getenv("SEED_STAFF_PASSWORD") == "" {
		log.Warn().Msg("memory store: using default dev credentials, set SEED_ADMIN_PASSWORD and SEED_STAFF_PASSWORD to override")
	}

	users := make([]domain.User, 0, 2)
	for _, u := range []struct {
		username string
		password string
		role     domain.Role
		perms    domain.PermissionSet
	}{
		{"superadmin", adminPwd, domain.RoleSuperAdmin, domain.NewPermissionSet()},
		{"staff", staffPwd, domain.RoleStaff, domain.NewPermissionSet(domain.PermManageSales)},
	} {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.password), bcrypt.DefaultCost)
		if err != nil {
			log.Fatal().Err(err).Str("username", u.username).Msg("memory store: hash seed password")
		}
		users = append(users, domain.User{
			Username:     u.username,
			PasswordHash: string(hash),
			Role:         u.role,
			Active:       true,
			Permissions:  u.perms,
			CreatedAt:    now,
		})
	}
	return users
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// next must be called with mu held.
func (s *Store) next(sequence string) int64 {
	s.sequences[sequence]++
	return s.sequences[sequence]
}

func (s *Store) ListProducts(_ context.Context, limit int) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	products := make([]domain.Product, 0, len(s.products))
	for _, p := range s.products {
		products = append(products, p)
	}
	sort.Slice(products, func(i, j int) bool {
		if products[i].CreatedAt.Equal(products[j].CreatedAt) {
			return products[i].ArticleNumber < products[j].ArticleNumber
		}
		return products[i].CreatedAt.After(products[j].CreatedAt)
	})
	return truncate(products, limit), nil
}

func (s *Store) GetProduct(_ context.Context, articleNumber string) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.products[articleNumber]
	if !ok {
		return nil, store.ProductNotFound(articleNumber)
	}
	return &p, nil
}

func (s *Store) GetProductsByArticleNumbers(_ context.Context, articleNumbers []string) (map[string]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[string]domain.Product, len(articleNumbers))
	for _, art := range articleNumbers {
		if p, ok := s.products[art]; ok {
			result[art] = p
		}
	}
	return result, nil
}

func (s *Store) CreateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.products[product.ArticleNumber]; exists {
		return nil, fmt.Errorf("%w: product with article number %s already exists", store.ErrConflict, product.ArticleNumber)
	}
	now := time.Now().UTC()
	product.CreatedAt = now
	product.UpdatedAt = now
	s.products[product.ArticleNumber] = product
	return &product, nil
}

func (s *Store) UpdateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.products[product.ArticleNumber]
	if !ok {
		return nil, store.ProductNotFound(product.ArticleNumber)
	}
	product.CreatedAt = existing.CreatedAt
	product.UpdatedAt = time.Now().UTC()
	s.products[product.ArticleNumber] = product
	return &product, nil
}

func (s *Store) DeleteProduct(_ context.Context, articleNumber string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.products[articleNumber]; !ok {
		return store.ProductNotFound(articleNumber)
	}
	for _, p := range s.purchases {
		for _, item := range p.Items {
			if item.ProductArtNo == articleNumber {
				return fmt.Errorf("%w: product %s is used in purchases", store.ErrConflict, articleNumber)
			}
		}
	}
	for _, sale := range s.sales {
		for _, item := range sale.Items {
			if item.ProductArtNo == articleNumber {
				return fmt.Errorf("%w: product %s is used in sales", store.ErrConflict, articleNumber)
			}
		}
	}
	delete(s.products, articleNumber)
	return nil
}

func (s *Store) ListLowStockProducts(_ context.Context) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	low := make([]domain.Product, 0, 16)
	for _, p := range s.products {
		if p.Quantity <= p.MinStock {
			low = append(low, p)
		}
	}
	sort.Slice(low, func(i, j int) bool {
		if low[i].Quantity == low[j].Quantity {
			return low[i].ArticleNumber < low[j].ArticleNumber
		}
		return low[i].Quantity < low[j].Quantity
	})
	return low, nil
}

func (s *Store) ListSuppliers(_ context.Context) ([]domain.Supplier, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	suppliers := make([]domain.Supplier, 0, len(s.suppliers))
	for _, sup := range s.suppliers {
		suppliers = append(suppliers, sup)
	}
	sort.Slice(suppliers, func(i, j int) bool { return suppliers[i].Name < suppliers[j].Name })
	return suppliers, nil
}

func (s *Store) GetSupplier(_ context.Context, id int64) (*domain.Supplier, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sup, ok := s.suppliers[id]
	if !ok {
		return nil, fmt.Errorf("supplier %d %w", id, store.ErrNotFound)
	}
	return &sup, nil
}

func (s *Store) CreateSupplier(_ context.Context, supplier domain.Supplier) (*domain.Supplier, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	supplier.ID = s.next("suppliers")
	supplier.CreatedAt = time.Now().UTC()
	s.suppliers[supplier.ID] = supplier
	return &supplier, nil
}

func (s *Store) UpdateSupplier(_ context.Context, supplier domain.Supplier) (*domain.Supplier, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.suppliers[supplier.ID]
	if !ok {
		return nil, fmt.Errorf("supplier %d %w", supplier.ID, store.ErrNotFound)
	}
	supplier.CreatedAt = existing.CreatedAt
	s.suppliers[supplier.ID] = supplier
	return &supplier, nil
}

func (s *Store) DeleteSupplier(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.suppliers[id]; !ok {
		return fmt.Errorf("supplier %d %w", id, store.ErrNotFound)
	}
	for _, p := range s.purchases {
		if p.SupplierID != nil && *p.SupplierID == id {
			return fmt.Errorf("%w: supplier %d is referenced by purchases", store.ErrConflict, id)
		}
	}
	delete(s.suppliers, id)
	return nil
}

func (s *Store) ListCustomers(_ context.Context) ([]domain.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	customers := make([]domain.Customer, 0, len(s.customers))
	for _, c := range s.customers {
		customers = append(customers, c)
	}
	sort.Slice(customers, func(i, j int) bool { return customers[i].Name < customers[j].Name })
	return customers, nil
}

func (s *Store) GetCustomer(_ context.Context, id int64) (*domain.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.customers[id]
	if !ok {
		return nil, fmt.Errorf("customer %d %w", id, store.ErrNotFound)
	}
	return &c, nil
}

func (s *Store) CreateCustomer(_ context.Context, customer domain.Customer) (*domain.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	customer.ID = s.next("customers")
	customer.CreatedAt = time.Now().UTC()
	s.customers[customer.ID] = customer
	return &customer, nil
}

func (s *Store) UpdateCustomer(_ context.Context, customer domain.Customer) (*domain.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.customers[customer.ID]
	if !ok {
		return nil, fmt.Errorf("customer %d %w", customer.ID, store.ErrNotFound)
	}
	customer.CreatedAt = existing.CreatedAt
	s.customers[customer.ID] = customer
	return &customer, nil
}

func (s *Store) DeleteCustomer(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.customers[id]; !ok {
		return fmt.Errorf("customer %d %w", id, store.ErrNotFound)
	}
	for _, sale := range s.sales {
		if sale.CustomerID != nil && *sale.CustomerID == id {
			return fmt.Errorf("%w: customer %d is referenced by sales", store.ErrConflict, id)
		}
	}
	delete(s.customers, id)
	return nil
}

func (s *Store) CreatePurchase(_ context.Context, purchase domain.Purchase) (*domain.Purchase, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(purchase.Items) == 0 {
		return nil, store.Invalid("purchase must contain at least one item")
	}
	deltas, err := domain.MergeStockLines(domain.PurchaseStockLines(purchase.Items, 1))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", store.ErrInvalidInput, err)
	}
	if purchase.SupplierID != nil {
		sup, ok := s.suppliers[*purchase.SupplierID]
		if !ok {
			return nil, fmt.Errorf("supplier %d %w", *purchase.SupplierID, store.ErrNotFound)
		}
		purchase.SupplierName = sup.Name
	}
	for _, item := range purchase.Items {
		if _, ok := s.products[item.ProductArtNo]; !ok {
			return nil, store.ProductNotFound(item.ProductArtNo)
		}
	}
	next, err := s.adjustedQuantities(deltas)
	if err != nil {
		return nil, err
	}

	// Nothing below can fail, so the purchase applies as a whole.
	now := time.Now().UTC()
	purchase.ID = s.next("purchases")
	purchase.CreatedAt = now
	if purchase.PurchaseDate.IsZero() {
		purchase.PurchaseDate = now
	}
	items := make([]domain.PurchaseItem, 0, len(purchase.Items))
	for _, item := range purchase.Items {
		item.ID = s.next("purchase_items")
		item.Total = domain.LineTotal(item.Quantity, item.PurchasePrice)
		items = append(items, item)
	}
	s.setQuantities(next, now)
	purchase.Items = items
	purchase.TotalAmount = domain.PurchaseTotal(items)

	s.purchases[purchase.ID] = clonePurchase(purchase)
	return ptr(clonePurchase(purchase)), nil
}

func (s *Store) DeletePurchase(_ context.Context, id int64) (*domain.Purchase, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	purchase, ok := s.purchases[id]
	if !ok {
		return nil, fmt.Errorf("purchase %d %w", id, store.ErrNotFound)
	}

	deltas, err := domain.MergeStockLines(domain.PurchaseStockLines(purchase.Items, -1))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", store.ErrConflict, err)
	}
	for _, line := range deltas {
		p, ok := s.products[line.ArticleNumber]
		if !ok {
			return nil, fmt.Errorf("%w: product %s no longer exists", store.ErrConflict, line.ArticleNumber)
		}
		if p.Quantity < -line.Delta {
			return nil, &store.StockError{ArticleNumber: line.ArticleNumber, Available: p.Quantity, Requested: -line.Delta, Reversal: true}
		}
	}
	next, err := s.adjustedQuantities(deltas)
	if err != nil {
		return nil, err
	}

	s.setQuantities(next, time.Now().UTC())
	delete(s.purchases, id)
	return ptr(clonePurchase(purchase)), nil
}

func (s *Store) ListPurchases(_ context.Context, limit int) ([]domain.Purchase, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	purchases := make([]domain.Purchase, 0, len(s.purchases))
	for _, p := range s.purchases {
		purchases = append(purchases, clonePurchase(p))
	}
	sort.Slice(purchases, func(i, j int) bool {
		if purchases[i].PurchaseDate.Equal(purchases[j].PurchaseDate) {
			return purchases[i].ID > purchases[j].ID
		}
		return purchases[i].PurchaseDate.After(purchases[j].PurchaseDate)
	})
	return truncate(purchases, limit), nil
}

func (s *Store) GetPurchase(_ context.Context, id int64) (*domain.Purchase, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.purchases[id]
	if !ok {
		return nil, fmt.Errorf("purchase %d %w", id, store.ErrNotFound)
	}
	return ptr(clonePurchase(p)), nil
}

func (s *Store) CreateSale(_ context.Context, sale domain.Sale) (*domain.Sale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(sale.Items) == 0 {
		return nil, store.Invalid("sale must contain at least one item")
	}
	requested, err := domain.MergeStockLines(domain.SaleStockLines(sale.Items, 1))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", store.ErrInvalidInput, err)
	}
	if sale.CustomerID != nil {
		c, ok := s.customers[*sale.CustomerID]
		if !ok {
			return nil, fmt.Errorf("customer %d %w", *sale.CustomerID, store.ErrNotFound)
		}
		sale.CustomerName = c.Name
	}
	for _, item := range sale.Items {
		if _, ok := s.products[item.ProductArtNo]; !ok {
			return nil, store.ProductNotFound(item.ProductArtNo)
		}
	}
	for _, line := range requested {
		p := s.products[line.ArticleNumber]
		if p.Quantity < line.Delta {
			return nil, &store.StockError{ArticleNumber: line.ArticleNumber, Available: p.Quantity, Requested: line.Delta}
		}
	}
	for _, existing := range s.sales {
		if existing.InvoiceNumber == sale.InvoiceNumber {
			return nil, fmt.Errorf("%w: invoice number %s already exists", store.ErrConflict, sale.InvoiceNumber)
		}
	}

	now := time.Now().UTC()
	sale.ID = s.next("sales")
	sale.CreatedAt = now
	if sale.SaleDate.IsZero() {
		sale.SaleDate = now
	}
	items := make([]domain.SaleItem, 0, len(sale.Items))
	for _, item := range sale.Items {
		item.ID = s.next("sale_items")
		item.Total = domain.LineTotal(item.Quantity, item.SellingPrice)
		items = append(items, item)
	}
	for _, line := range requested {
		p := s.products[line.ArticleNumber]
		p.Quantity -= line.Delta
		p.UpdatedAt = now
		s.products[line.ArticleNumber] = p
	}
	sale.Items = items
	sale.Subtotal = domain.SaleSubtotal(items)
	sale.TotalAmount = domain.SaleTotal(sale.Subtotal, sale.Discount)

	s.sales[sale.ID] = cloneSale(sale)
	return ptr(cloneSale(sale)), nil
}

func (s *Store) DeleteSale(_ context.Context, id int64) (*domain.Sale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sale, ok := s.sales[id]
	if !ok {
		return nil, fmt.Errorf("sale %d %w", id, store.ErrNotFound)
	}

	deltas, err := domain.MergeStockLines(domain.SaleStockLines(sale.Items, 1))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", store.ErrConflict, err)
	}
	for _, line := range deltas {
		if _, ok := s.products[line.ArticleNumber]; !ok {
			return nil, fmt.Errorf("%w: product %s no longer exists", store.ErrConflict, line.ArticleNumber)
		}
	}
	next, err := s.adjustedQuantities(deltas)
	if err != nil {
		return nil, err
	}

	s.setQuantities(next, time.Now().UTC())
	delete(s.sales, id)
	return ptr(cloneSale(sale)), nil
}

func (s *Store) ListSales(_ context.Context, limit int) ([]domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sales := make([]domain.Sale, 0, len(s.sales))
	for _, sale := range s.sales {
		sales = append(sales, cloneSale(sale))
	}
	sort.Slice(sales, func(i, j int) bool {
		if sales[i].SaleDate.Equal(sales[j].SaleDate) {
			return sales[i].ID > sales[j].ID
		}
		return sales[i].SaleDate.After(sales[j].SaleDate)
	})
	return truncate(sales, limit), nil
}

func (s *Store) GetSale(_ context.Context, id int64) (*domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sale, ok := s.sales[id]
	if !ok {
		return nil, fmt.Errorf("sale %d %w", id, store.ErrNotFound)
	}
	return ptr(cloneSale(sale)), nil
}

func (s *Store) CountUsers(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users), nil
}

func (s *Store) CreateUser(_ context.Context, user domain.User) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.users {
		if strings.EqualFold(existing.Username, user.Username) {
			return nil, fmt.Errorf("%w: username %s already exists", store.ErrConflict, user.Username)
		}
	}
	user.ID = s.next("users")
	user.CreatedAt = time.Now().UTC()
	user.Permissions = clonePermissions(user.Permissions)
	s.users[user.ID] = user
	return ptr(cloneUser(user)), nil
}

func (s *Store) CreateFirstUser(_ context.Context, user domain.User) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.users) > 0 {
		return nil, fmt.Errorf("%w: setup has already been completed", store.ErrForbidden)
	}
	user.ID = s.next("users")
	user.CreatedAt = time.Now().UTC()
	user.Permissions = clonePermissions(user.Permissions)
	s.users[user.ID] = user
	return ptr(cloneUser(user)), nil
}

func (s *Store) GetUserByID(_ context.Context, id int64) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, fmt.Errorf("user %d %w", id, store.ErrNotFound)
	}
	return ptr(cloneUser(u)), nil
}

func (s *Store) GetUserByUsername(_ context.Context, username string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if strings.EqualFold(u.Username, username) {
			return ptr(cloneUser(u)), nil
		}
	}
	return nil, fmt.Errorf("user %s %w", username, store.ErrNotFound)
}

// ListUsers returns users with the given role, or all users when role is empty.
func (s *Store) ListUsers(_ context.Context, role domain.Role) ([]domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]domain.User, 0, len(s.users))
	for _, u := range s.users {
		if role != "" && u.Role != role {
			continue
		}
		users = append(users, cloneUser(u))
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID > users[j].ID })
	return users, nil
}

func (s *Store) SetUserPermissions(_ context.Context, id int64, perms domain.PermissionSet) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return fmt.Errorf("user %d %w", id, store.ErrNotFound)
	}
	u.Permissions = clonePermissions(perms)
	s.users[id] = u
	return nil
}

func (s *Store) DeactivateUser(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return fmt.Errorf("user %d %w", id, store.ErrNotFound)
	}
	u.Active = false
	u.Permissions = domain.NewPermissionSet()
	s.users[id] = u
	return nil
}

func (s *Store) GetSettings(_ context.Context) (domain.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.settings == nil {
		defaults := domain.DefaultSettings()
		s.settings = &defaults
	}
	return *s.settings, nil
}

func (s *Store) SaveSettings(_ context.Context, settings domain.Settings) (domain.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	settings.UpdatedAt = time.Now().UTC()
	s.settings = &settings
	return settings, nil
}

func (s *Store) CreateAuditLog(_ context.Context, entry domain.AuditLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.auditLogs = append(s.auditLogs, entry)
	return nil
}

func (s *Store) ListAuditLogs(_ context.Context, limit int) ([]domain.AuditLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	logs := make([]domain.AuditLog, 0, len(s.auditLogs))
	for i := len(s.auditLogs) - 1; i >= 0; i-- {
		logs = append(logs, s.auditLogs[i])
	}
	return truncate(logs, limit), nil
}

// adjustedQuantities computes the post-change quantity of every touched
// product without mutating anything. Callers hold s.mu.
func (s *Store) adjustedQuantities(deltas []domain.StockLine) (map[string]int, error) {
	next := make(map[string]int, len(deltas))
	for _, line := range deltas {
		qty, err := domain.AdjustStock(line.ArticleNumber, s.products[line.ArticleNumber].Quantity, line.Delta)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", store.ErrConflict, err)
		}
		next[line.ArticleNumber] = qty
	}
	return next, nil
}

func (s *Store) setQuantities(next map[string]int, at time.Time) {
	for art, qty := range next {
		p := s.products[art]
		p.Quantity = qty
		p.UpdatedAt = at
		s.products[art] = p
	}
}

// truncate applies limit; zero or negative means no limit.
func truncate[T any](items []T, limit int) []T {
	if limit > 0 && len(items) > limit {
		return items[:limit]
	}
	return items
}

func ptr[T any](v T) *T {
	return &v
}

func clonePurchase(p domain.Purchase) domain.Purchase {
	p.Items = append([]domain.PurchaseItem(nil), p.Items...)
	if p.SupplierID != nil {
		id := *p.SupplierID
		p.SupplierID = &id
	}
	return p
}

func cloneSale(s domain.Sale) domain.Sale {
	s.Items = append([]domain.SaleItem(nil), s.Items...)
	if s.CustomerID != nil {
		id := *s.CustomerID
		s.CustomerID = &id
	}
	return s
}

func cloneUser(u domain.User) domain.User {
	u.Permissions = clonePermissions(u.Permissions)
	return u
}

func clonePermissions(perms domain.PermissionSet) domain.PermissionSet {
	out := make(domain.PermissionSet, len(perms))
	for p := range perms {
		out[p] = struct{}{}
	}
	return out
}

package store

import (
	"context"
	"errors"
	"fmt"

	"inventorypro/backend/internal/domain"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInvalidInput      = errors.New("invalid input")
	ErrConflict          = errors.New("conflict")
	ErrForbidden         = errors.New("forbidden")
)

// InputError is a validation failure with a caller-facing message.
type InputError struct {
	msg string
}

func Invalid(format string, args ...any) error {
	return &InputError{msg: fmt.Sprintf(format, args...)}
}

func (e *InputError) Error() string { return e.msg }

func (e *InputError) Is(target error) bool { return target == ErrInvalidInput }

// StockError reports the first line of a sale (or purchase reversal) that
// the current stock cannot cover.
type StockError struct {
	ArticleNumber string
	Available     int
	Requested     int
	Reversal      bool
}

func (e *StockError) Error() string {
	if e.Reversal {
		return fmt.Sprintf("cannot reverse: product %s has only %d in stock", e.ArticleNumber, e.Available)
	}
	return fmt.Sprintf("insufficient stock for product %s. Available: %d", e.ArticleNumber, e.Available)
}

func (e *StockError) Unwrap() error { return ErrInsufficientStock }

func ProductNotFound(articleNumber string) error {
	return fmt.Errorf("product %s %w", articleNumber, ErrNotFound)
}

type Repository interface {
	ListProducts(ctx context.Context, limit int) ([]domain.Product, error)
	GetProduct(ctx context.Context, articleNumber string) (*domain.Product, error)
	GetProductsByArticleNumbers(ctx context.Context, articleNumbers []string) (map[string]domain.Product, error)
	CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	DeleteProduct(ctx context.Context, articleNumber string) error
	ListLowStockProducts(ctx context.Context) ([]domain.Product, error)

	ListSuppliers(ctx context.Context) ([]domain.Supplier, error)
	GetSupplier(ctx context.Context, id int64) (*domain.Supplier, error)
	CreateSupplier(ctx context.Context, supplier domain.Supplier) (*domain.Supplier, error)
	UpdateSupplier(ctx context.Context, supplier domain.Supplier) (*domain.Supplier, error)
	DeleteSupplier(ctx context.Context, id int64) error

	ListCustomers(ctx context.Context) ([]domain.Customer, error)
	GetCustomer(ctx context.Context, id int64) (*domain.Customer, error)
	CreateCustomer(ctx context.Context, customer domain.Customer) (*domain.Customer, error)
	UpdateCustomer(ctx context.Context, customer domain.Customer) (*domain.Customer, error)
	DeleteCustomer(ctx context.Context, id int64) error

	// CreatePurchase inserts the header and items and adds every line
	// quantity to stock in one atomic unit.
	CreatePurchase(ctx context.Context, purchase domain.Purchase) (*domain.Purchase, error)
	// DeletePurchase subtracts every line quantity from stock and removes
	// the purchase in one atomic unit. It returns the removed purchase.
	DeletePurchase(ctx context.Context, id int64) (*domain.Purchase, error)
	ListPurchases(ctx context.Context, limit int) ([]domain.Purchase, error)
	GetPurchase(ctx context.Context, id int64) (*domain.Purchase, error)

	// CreateSale checks stock for every line before any change, then inserts
	// the header and items and subtracts stock in one atomic unit.
	CreateSale(ctx context.Context, sale domain.Sale) (*domain.Sale, error)
	DeleteSale(ctx context.Context, id int64) (*domain.Sale, error)
	ListSales(ctx context.Context, limit int) ([]domain.Sale, error)
	GetSale(ctx context.Context, id int64) (*domain.Sale, error)

	CountUsers(ctx context.Context) (int, error)
	CreateUser(ctx context.Context, user domain.User) (*domain.User, error)
	// CreateFirstUser creates user only while no user exists at all, checked
	// atomically with the insert. Otherwise it returns ErrForbidden.
	CreateFirstUser(ctx context.Context, user domain.User) (*domain.User, error)
	GetUserByID(ctx context.Context, id int64) (*domain.User, error)
	GetUserByUsername(ctx context.Context, username string) (*domain.User, error)
	ListUsers(ctx context.Context, role domain.Role) ([]domain.User, error)
	SetUserPermissions(ctx context.Context, id int64, perms domain.PermissionSet) error
	DeactivateUser(ctx context.Context, id int64) error

	GetSettings(ctx context.Context) (domain.Settings, error)
	SaveSettings(ctx context.Context, settings domain.Settings) (domain.Settings, error)

	CreateAuditLog(ctx context.Context, entry domain.AuditLog) error
	ListAuditLogs(ctx context.Context, limit int) ([]domain.AuditLog, error)
}

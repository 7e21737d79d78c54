package postgres

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"inventorypro/backend/internal/domain"
	"inventorypro/backend/internal/store"
)

//go:embed schema.sql
var schemaSQL string

type Store struct {
	db *sql.DB
}

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Migrate applies the embedded schema. Every statement is idempotent.
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range strings.Split(schemaSQL, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

const productColumns = `
	article_number, name, COALESCE(category,''), COALESCE(brand,''), purchase_price, selling_price,
	discount_value, discount_type, tax_enabled, tax_percent, quantity, min_stock, unit,
	COALESCE(shelf_number,''), created_at, updated_at`

func scanProduct(scan func(dest ...any) error) (domain.Product, error) {
	var p domain.Product
	var discountType string
	err := scan(&p.ArticleNumber, &p.Name, &p.Category, &p.Brand, &p.PurchasePrice, &p.SellingPrice,
		&p.DiscountValue, &discountType, &p.TaxEnabled, &p.TaxPercent, &p.Quantity, &p.MinStock, &p.Unit,
		&p.ShelfNumber, &p.CreatedAt, &p.UpdatedAt)
	p.DiscountType = domain.DiscountType(discountType)
	p.CreatedAt = p.CreatedAt.UTC()
	p.UpdatedAt = p.UpdatedAt.UTC()
	return p, err
}

func (s *Store) queryProducts(ctx context.Context, query string, args ...any) ([]domain.Product, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := make([]domain.Product, 0, 64)
	for rows.Next() {
		p, err := scanProduct(rows.Scan)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return products, nil
}

func (s *Store) ListProducts(ctx context.Context, limit int) ([]domain.Product, error) {
	return s.queryProducts(ctx, `SELECT `+productColumns+`
		FROM products
		ORDER BY created_at DESC, article_number ASC
		LIMIT $1`, limitArg(limit))
}

func (s *Store) GetProduct(ctx context.Context, articleNumber string) (*domain.Product, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE article_number = $1`, articleNumber)
	p, err := scanProduct(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ProductNotFound(articleNumber)
		}
		return nil, err
	}
	return &p, nil
}

func (s *Store) GetProductsByArticleNumbers(ctx context.Context, articleNumbers []string) (map[string]domain.Product, error) {
	if len(articleNumbers) == 0 {
		return map[string]domain.Product{}, nil
	}
	products, err := s.queryProducts(ctx, `SELECT `+productColumns+` FROM products WHERE article_number = ANY($1)`, articleNumbers)
	if err != nil {
		return nil, err
	}
	result := make(map[string]domain.Product, len(products))
	for _, p := range products {
		result[p.ArticleNumber] = p
	}
	return result, nil
}

func (s *Store) CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO products (
			article_number, name, category, brand, purchase_price, selling_price, discount_value,
			discount_type, tax_enabled, tax_percent, quantity, min_stock, unit, shelf_number,
			created_at, updated_at
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,now(),now())
		RETURNING created_at, updated_at
	`, product.ArticleNumber, product.Name, nullIfEmpty(product.Category), nullIfEmpty(product.Brand),
		product.PurchasePrice, product.SellingPrice, product.DiscountValue, string(product.DiscountType),
		product.TaxEnabled, product.TaxPercent, product.Quantity, product.MinStock, product.Unit,
		nullIfEmpty(product.ShelfNumber))
	if err := row.Scan(&product.CreatedAt, &product.UpdatedAt); err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: product with article number %s already exists", store.ErrConflict, product.ArticleNumber)
		}
		return nil, err
	}
	product.CreatedAt = product.CreatedAt.UTC()
	product.UpdatedAt = product.UpdatedAt.UTC()
	return &product, nil
}

func (s *Store) UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	row := s.db.QueryRowContext(ctx, `
		UPDATE products
		SET name = $2, category = $3, brand = $4, purchase_price = $5, selling_price = $6,
			discount_value = $7, discount_type = $8, tax_enabled = $9, tax_percent = $10,
			quantity = $11, min_stock = $12, unit = $13, shelf_number = $14, updated_at = now()
		WHERE article_number = $1
		RETURNING created_at, updated_at
	`, product.ArticleNumber, product.Name, nullIfEmpty(product.Category), nullIfEmpty(product.Brand),
		product.PurchasePrice, product.SellingPrice, product.DiscountValue, string(product.DiscountType),
		product.TaxEnabled, product.TaxPercent, product.Quantity, product.MinStock, product.Unit,
		nullIfEmpty(product.ShelfNumber))
	if err := row.Scan(&product.CreatedAt, &product.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ProductNotFound(product.ArticleNumber)
		}
		return nil, err
	}
	product.CreatedAt = product.CreatedAt.UTC()
	product.UpdatedAt = product.UpdatedAt.UTC()
	return &product, nil
}

func (s *Store) DeleteProduct(ctx context.Context, articleNumber string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM products WHERE article_number = $1`, articleNumber)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("%w: product %s is used in purchases or sales", store.ErrConflict, articleNumber)
		}
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.ProductNotFound(articleNumber)
	}
	return nil
}

func (s *Store) ListLowStockProducts(ctx context.Context) ([]domain.Product, error) {
	return s.queryProducts(ctx, `SELECT `+productColumns+`
		FROM products
		WHERE quantity <= min_stock
		ORDER BY quantity ASC, article_number ASC`)
}

func (s *Store) ListSuppliers(ctx context.Context) ([]domain.Supplier, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, COALESCE(contact,''), created_at
		FROM suppliers
		ORDER BY name ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	suppliers := make([]domain.Supplier, 0, 64)
	for rows.Next() {
		var item domain.Supplier
		if err := rows.Scan(&item.ID, &item.Name, &item.Contact, &item.CreatedAt); err != nil {
			return nil, err
		}
		item.CreatedAt = item.CreatedAt.UTC()
		suppliers = append(suppliers, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return suppliers, nil
}

func (s *Store) GetSupplier(ctx context.Context, id int64) (*domain.Supplier, error) {
	var item domain.Supplier
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, COALESCE(contact,''), created_at FROM suppliers WHERE id = $1
	`, id).Scan(&item.ID, &item.Name, &item.Contact, &item.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("supplier %d %w", id, store.ErrNotFound)
		}
		return nil, err
	}
	item.CreatedAt = item.CreatedAt.UTC()
	return &item, nil
}

func (s *Store) CreateSupplier(ctx context.Context, supplier domain.Supplier) (*domain.Supplier, error) {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO suppliers (name, contact, created_at)
		VALUES ($1,$2,now())
		RETURNING id, created_at
	`, supplier.Name, nullIfEmpty(supplier.Contact)).Scan(&supplier.ID, &supplier.CreatedAt)
	if err != nil {
		return nil, err
	}
	supplier.CreatedAt = supplier.CreatedAt.UTC()
	return &supplier, nil
}

func (s *Store) UpdateSupplier(ctx context.Context, supplier domain.Supplier) (*domain.Supplier, error) {
	err := s.db.QueryRowContext(ctx, `
		UPDATE suppliers SET name = $2, contact = $3 WHERE id = $1
		RETURNING created_at
	`, supplier.ID, supplier.Name, nullIfEmpty(supplier.Contact)).Scan(&supplier.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("supplier %d %w", supplier.ID, store.ErrNotFound)
		}
		return nil, err
	}
	supplier.CreatedAt = supplier.CreatedAt.UTC()
	return &supplier, nil
}

func (s *Store) DeleteSupplier(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM suppliers WHERE id = $1`, id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("%w: supplier %d is referenced by purchases", store.ErrConflict, id)
		}
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("supplier %d %w", id, store.ErrNotFound)
	}
	return nil
}

func (s *Store) ListCustomers(ctx context.Context) ([]domain.Customer, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, COALESCE(phone,''), COALESCE(address,''), created_at
		FROM customers
		ORDER BY name ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	customers := make([]domain.Customer, 0, 64)
	for rows.Next() {
		var item domain.Customer
		if err := rows.Scan(&item.ID, &item.Name, &item.Phone, &item.Address, &item.CreatedAt); err != nil {
			return nil, err
		}
		item.CreatedAt = item.CreatedAt.UTC()
		customers = append(customers, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return customers, nil
}

func (s *Store) GetCustomer(ctx context.Context, id int64) (*domain.Customer, error) {
	var item domain.Customer
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, COALESCE(phone,''), COALESCE(address,''), created_at FROM customers WHERE id = $1
	`, id).Scan(&item.ID, &item.Name, &item.Phone, &item.Address, &item.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("customer %d %w", id, store.ErrNotFound)
		}
		return nil, err
	}
	item.CreatedAt = item.CreatedAt.UTC()
	return &item, nil
}

func (s *Store) CreateCustomer(ctx context.Context, customer domain.Customer) (*domain.Customer, error) {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO customers (name, phone, address, created_at)
		VALUES ($1,$2,$3,now())
		RETURNING id, created_at
	`, customer.Name, nullIfEmpty(customer.Phone), nullIfEmpty(customer.Address)).Scan(&customer.ID, &customer.CreatedAt)
	if err != nil {
		return nil, err
	}
	customer.CreatedAt = customer.CreatedAt.UTC()
	return &customer, nil
}

func (s *Store) UpdateCustomer(ctx context.Context, customer domain.Customer) (*domain.Customer, error) {
	err := s.db.QueryRowContext(ctx, `
		UPDATE customers SET name = $2, phone = $3, address = $4 WHERE id = $1
		RETURNING created_at
	`, customer.ID, customer.Name, nullIfEmpty(customer.Phone), nullIfEmpty(customer.Address)).Scan(&customer.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("customer %d %w", customer.ID, store.ErrNotFound)
		}
		return nil, err
	}
	customer.CreatedAt = customer.CreatedAt.UTC()
	return &customer, nil
}

func (s *Store) DeleteCustomer(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM customers WHERE id = $1`, id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("%w: customer %d is referenced by sales", store.ErrConflict, id)
		}
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("customer %d %w", id, store.ErrNotFound)
	}
	return nil
}

func (s *Store) CountUsers(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM users`).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (s *Store) CreateUser(ctx context.Context, user domain.User) (*domain.User, error) {
	pgTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = pgTx.Rollback() }()

	err = pgTx.QueryRowContext(ctx, `
		INSERT INTO users (username, password_hash, role, active, created_at)
		VALUES ($1,$2,$3,$4,now())
		RETURNING id, created_at
	`, user.Username, user.PasswordHash, string(user.Role), user.Active).Scan(&user.ID, &user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: username %s already exists", store.ErrConflict, user.Username)
		}
		return nil, err
	}
	if err := insertPermissions(ctx, pgTx, user.ID, user.Permissions); err != nil {
		return nil, err
	}
	if err := pgTx.Commit(); err != nil {
		return nil, err
	}
	user.CreatedAt = user.CreatedAt.UTC()
	return &user, nil
}

// setupLockKey serializes first-user creation across connections.
const setupLockKey = 7_301_001

func (s *Store) CreateFirstUser(ctx context.Context, user domain.User) (*domain.User, error) {
	pgTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = pgTx.Rollback() }()

	if _, err := pgTx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, setupLockKey); err != nil {
		return nil, err
	}
	err = pgTx.QueryRowContext(ctx, `
		INSERT INTO users (username, password_hash, role, active, created_at)
		SELECT $1,$2,$3,$4,now()
		WHERE NOT EXISTS (SELECT 1 FROM users)
		RETURNING id, created_at
	`, user.Username, user.PasswordHash, string(user.Role), user.Active).Scan(&user.ID, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: setup has already been completed", store.ErrForbidden)
		}
		return nil, err
	}
	if err := insertPermissions(ctx, pgTx, user.ID, user.Permissions); err != nil {
		return nil, err
	}
	if err := pgTx.Commit(); err != nil {
		return nil, err
	}
	user.CreatedAt = user.CreatedAt.UTC()
	return &user, nil
}

func (s *Store) GetUserByID(ctx context.Context, id int64) (*domain.User, error) {
	return s.getUser(ctx, `id = $1`, id, fmt.Sprintf("user %d", id))
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	return s.getUser(ctx, `lower(username) = lower($1)`, username, "user "+username)
}

func (s *Store) getUser(ctx context.Context, where string, arg any, label string) (*domain.User, error) {
	var user domain.User
	var role string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, username, password_hash, role, active, created_at
		FROM users
		WHERE `+where, arg).Scan(&user.ID, &user.Username, &user.PasswordHash, &role, &user.Active, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s %w", label, store.ErrNotFound)
		}
		return nil, err
	}
	user.Role = domain.Role(role)
	user.CreatedAt = user.CreatedAt.UTC()

	perms, err := s.loadPermissions(ctx, []int64{user.ID})
	if err != nil {
		return nil, err
	}
	user.Permissions = perms[user.ID]
	if user.Permissions == nil {
		user.Permissions = domain.NewPermissionSet()
	}
	return &user, nil
}

func (s *Store) ListUsers(ctx context.Context, role domain.Role) ([]domain.User, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, username, password_hash, role, active, created_at
		FROM users
		WHERE $1 = '' OR role = $1
		ORDER BY created_at DESC, id DESC
	`, string(role))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]domain.User, 0, 32)
	ids := make([]int64, 0, 32)
	for rows.Next() {
		var user domain.User
		var userRole string
		if err := rows.Scan(&user.ID, &user.Username, &user.PasswordHash, &userRole, &user.Active, &user.CreatedAt); err != nil {
			return nil, err
		}
		user.Role = domain.Role(userRole)
		user.CreatedAt = user.CreatedAt.UTC()
		users = append(users, user)
		ids = append(ids, user.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	perms, err := s.loadPermissions(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range users {
		users[i].Permissions = perms[users[i].ID]
		if users[i].Permissions == nil {
			users[i].Permissions = domain.NewPermissionSet()
		}
	}
	return users, nil
}

func (s *Store) loadPermissions(ctx context.Context, userIDs []int64) (map[int64]domain.PermissionSet, error) {
	result := make(map[int64]domain.PermissionSet, len(userIDs))
	if len(userIDs) == 0 {
		return result, nil
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT user_id, permission
		FROM user_permissions
		WHERE granted = true AND user_id = ANY($1)
	`, userIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var userID int64
		var perm string
		if err := rows.Scan(&userID, &perm); err != nil {
			return nil, err
		}
		p := domain.Permission(perm)
		if !p.Valid() {
			continue
		}
		if result[userID] == nil {
			result[userID] = domain.NewPermissionSet()
		}
		result[userID][p] = struct{}{}
	}
	return result, rows.Err()
}

func (s *Store) SetUserPermissions(ctx context.Context, id int64, perms domain.PermissionSet) error {
	pgTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = pgTx.Rollback() }()

	var exists int64
	if err := pgTx.QueryRowContext(ctx, `SELECT id FROM users WHERE id = $1 FOR UPDATE`, id).Scan(&exists); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("user %d %w", id, store.ErrNotFound)
		}
		return err
	}
	if _, err := pgTx.ExecContext(ctx, `DELETE FROM user_permissions WHERE user_id = $1`, id); err != nil {
		return err
	}
	if err := insertPermissions(ctx, pgTx, id, perms); err != nil {
		return err
	}
	return pgTx.Commit()
}

func (s *Store) DeactivateUser(ctx context.Context, id int64) error {
	pgTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = pgTx.Rollback() }()

	res, err := pgTx.ExecContext(ctx, `UPDATE users SET active = false WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("user %d %w", id, store.ErrNotFound)
	}
	if _, err := pgTx.ExecContext(ctx, `DELETE FROM user_permissions WHERE user_id = $1`, id); err != nil {
		return err
	}
	return pgTx.Commit()
}

func insertPermissions(ctx context.Context, q queryer, userID int64, perms domain.PermissionSet) error {
	for _, p := range perms.List() {
		_, err := q.ExecContext(ctx, `
			INSERT INTO user_permissions (user_id, permission, granted)
			VALUES ($1,$2,true)
		`, userID, string(p))
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) GetSettings(ctx context.Context) (domain.Settings, error) {
	defaults := domain.DefaultSettings()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO settings (
			id, business_name, business_type, enable_shelf_location, enable_warehouse_mode,
			currency_symbol, enable_bulk_import, updated_at
		)
		VALUES (1,$1,$2,$3,$4,$5,$6,now())
		ON CONFLICT (id) DO NOTHING
	`, defaults.BusinessName, defaults.BusinessType, defaults.EnableShelfLocation,
		defaults.EnableWarehouseMode, defaults.CurrencySymbol, defaults.EnableBulkImport)
	if err != nil {
		return domain.Settings{}, err
	}

	var settings domain.Settings
	err = s.db.QueryRowContext(ctx, `
		SELECT business_name, business_type, enable_shelf_location, enable_warehouse_mode,
			currency_symbol, enable_bulk_import, updated_at
		FROM settings
		WHERE id = 1
	`).Scan(&settings.BusinessName, &settings.BusinessType, &settings.EnableShelfLocation,
		&settings.EnableWarehouseMode, &settings.CurrencySymbol, &settings.EnableBulkImport, &settings.UpdatedAt)
	if err != nil {
		return domain.Settings{}, err
	}
	settings.UpdatedAt = settings.UpdatedAt.UTC()
	return settings, nil
}

func (s *Store) SaveSettings(ctx context.Context, settings domain.Settings) (domain.Settings, error) {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO settings (
			id, business_name, business_type, enable_shelf_location, enable_warehouse_mode,
			currency_symbol, enable_bulk_import, updated_at
		)
		VALUES (1,$1,$2,$3,$4,$5,$6,now())
		ON CONFLICT (id) DO UPDATE SET
			business_name = EXCLUDED.business_name,
			business_type = EXCLUDED.business_type,
			enable_shelf_location = EXCLUDED.enable_shelf_location,
			enable_warehouse_mode = EXCLUDED.enable_warehouse_mode,
			currency_symbol = EXCLUDED.currency_symbol,
			enable_bulk_import = EXCLUDED.enable_bulk_import,
			updated_at = now()
		RETURNING updated_at
	`, settings.BusinessName, settings.BusinessType, settings.EnableShelfLocation,
		settings.EnableWarehouseMode, settings.CurrencySymbol, settings.EnableBulkImport).Scan(&settings.UpdatedAt)
	if err != nil {
		return domain.Settings{}, err
	}
	settings.UpdatedAt = settings.UpdatedAt.UTC()
	return settings, nil
}

func (s *Store) CreateAuditLog(ctx context.Context, entry domain.AuditLog) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_logs (id, actor_username, actor_role, action, entity_type, entity_id, detail, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, entry.ID, entry.ActorUsername, entry.ActorRole, entry.Action, entry.EntityType, entry.EntityID, entry.Detail, entry.CreatedAt)
	return err
}

func (s *Store) ListAuditLogs(ctx context.Context, limit int) ([]domain.AuditLog, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, actor_username, actor_role, action, entity_type, entity_id, detail, created_at
		FROM audit_logs
		ORDER BY created_at DESC
		LIMIT $1
	`, limitArg(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := make([]domain.AuditLog, 0, 64)
	for rows.Next() {
		var entry domain.AuditLog
		if err := rows.Scan(&entry.ID, &entry.ActorUsername, &entry.ActorRole, &entry.Action, &entry.EntityType, &entry.EntityID, &entry.Detail, &entry.CreatedAt); err != nil {
			return nil, err
		}
		entry.CreatedAt = entry.CreatedAt.UTC()
		logs = append(logs, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return logs, nil
}

// limitArg turns "no limit" into a NULL LIMIT, which postgres treats as ALL.
func limitArg(limit int) any {
	if limit <= 0 {
		return nil
	}
	return limit
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23503"
	}
	return false
}

func nullIfEmpty(val string) any {
	if val == "" {
		return nil
	}
	return val
}

package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"inventorypro/backend/internal/domain"
	"inventorypro/backend/internal/store"
)

// Inventory transactions run at READ COMMITTED with the touched product rows
// locked FOR UPDATE in article-number order. A concurrent sale of the same
// product blocks on the lock and then re-reads the committed quantity.
var inventoryTxOptions = &sql.TxOptions{Isolation: sql.LevelReadCommitted}

type lockedProduct struct {
	name     string
	quantity int
}

func lockProducts(ctx context.Context, tx *sql.Tx, articleNumbers []string) (map[string]lockedProduct, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT article_number, name, quantity
		FROM products
		WHERE article_number = ANY($1)
		ORDER BY article_number
		FOR UPDATE
	`, articleNumbers)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	locked := make(map[string]lockedProduct, len(articleNumbers))
	for rows.Next() {
		var art string
		var p lockedProduct
		if err := rows.Scan(&art, &p.name, &p.quantity); err != nil {
			return nil, err
		}
		locked[art] = p
	}
	return locked, rows.Err()
}

// checkAdjustments verifies every locked product stays within the stock range
// after its delta.
func checkAdjustments(locked map[string]lockedProduct, lines []domain.StockLine) error {
	for _, line := range lines {
		if _, err := domain.AdjustStock(line.ArticleNumber, locked[line.ArticleNumber].quantity, line.Delta); err != nil {
			return fmt.Errorf("%w: %w", store.ErrConflict, err)
		}
	}
	return nil
}

func applyDeltas(ctx context.Context, tx *sql.Tx, lines []domain.StockLine) error {
	for _, line := range lines {
		_, err := tx.ExecContext(ctx, `
			UPDATE products
			SET quantity = quantity + $1, updated_at = now()
			WHERE article_number = $2
		`, line.Delta, line.ArticleNumber)
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) CreatePurchase(ctx context.Context, purchase domain.Purchase) (*domain.Purchase, error) {
	if len(purchase.Items) == 0 {
		return nil, store.Invalid("purchase must contain at least one item")
	}
	deltas, err := domain.MergeStockLines(domain.PurchaseStockLines(purchase.Items, 1))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", store.ErrInvalidInput, err)
	}

	pgTx, err := s.db.BeginTx(ctx, inventoryTxOptions)
	if err != nil {
		return nil, err
	}
	defer func() { _ = pgTx.Rollback() }()

	if purchase.SupplierID != nil {
		err := pgTx.QueryRowContext(ctx, `SELECT name FROM suppliers WHERE id = $1`, *purchase.SupplierID).Scan(&purchase.SupplierName)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, fmt.Errorf("supplier %d %w", *purchase.SupplierID, store.ErrNotFound)
			}
			return nil, err
		}
	}

	locked, err := lockProducts(ctx, pgTx, articleNumbers(deltas))
	if err != nil {
		return nil, err
	}
	for _, item := range purchase.Items {
		if _, ok := locked[item.ProductArtNo]; !ok {
			return nil, store.ProductNotFound(item.ProductArtNo)
		}
	}
	if err := checkAdjustments(locked, deltas); err != nil {
		return nil, err
	}

	for i := range purchase.Items {
		purchase.Items[i].Total = domain.LineTotal(purchase.Items[i].Quantity, purchase.Items[i].PurchasePrice)
	}
	purchase.TotalAmount = domain.PurchaseTotal(purchase.Items)
	if purchase.PurchaseDate.IsZero() {
		purchase.PurchaseDate = time.Now().UTC()
	}

	err = pgTx.QueryRowContext(ctx, `
		INSERT INTO purchases (supplier_id, invoice_number, purchase_date, total_amount, created_at)
		VALUES ($1,$2,$3,$4,now())
		RETURNING id, created_at
	`, nullInt64(purchase.SupplierID), purchase.InvoiceNumber, purchase.PurchaseDate, purchase.TotalAmount).Scan(&purchase.ID, &purchase.CreatedAt)
	if err != nil {
		return nil, err
	}

	for i, item := range purchase.Items {
		err := pgTx.QueryRowContext(ctx, `
			INSERT INTO purchase_items (purchase_id, product_art_no, quantity, purchase_price, total)
			VALUES ($1,$2,$3,$4,$5)
			RETURNING id
		`, purchase.ID, item.ProductArtNo, item.Quantity, item.PurchasePrice, item.Total).Scan(&purchase.Items[i].ID)
		if err != nil {
			return nil, err
		}
	}

	if err := applyDeltas(ctx, pgTx, deltas); err != nil {
		return nil, err
	}
	if err := pgTx.Commit(); err != nil {
		return nil, err
	}

	purchase.CreatedAt = purchase.CreatedAt.UTC()
	purchase.PurchaseDate = purchase.PurchaseDate.UTC()
	return &purchase, nil
}

func (s *Store) DeletePurchase(ctx context.Context, id int64) (*domain.Purchase, error) {
	pgTx, err := s.db.BeginTx(ctx, inventoryTxOptions)
	if err != nil {
		return nil, err
	}
	defer func() { _ = pgTx.Rollback() }()

	purchases, err := queryPurchases(ctx, pgTx, `WHERE p.id = $1 FOR UPDATE OF p`, id)
	if err != nil {
		return nil, err
	}
	if len(purchases) == 0 {
		return nil, fmt.Errorf("purchase %d %w", id, store.ErrNotFound)
	}
	purchase := purchases[0]

	deltas, err := domain.MergeStockLines(domain.PurchaseStockLines(purchase.Items, -1))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", store.ErrConflict, err)
	}
	locked, err := lockProducts(ctx, pgTx, articleNumbers(deltas))
	if err != nil {
		return nil, err
	}
	for _, line := range deltas {
		p, ok := locked[line.ArticleNumber]
		if !ok {
			return nil, fmt.Errorf("%w: product %s no longer exists", store.ErrConflict, line.ArticleNumber)
		}
		if p.quantity < -line.Delta {
			return nil, &store.StockError{ArticleNumber: line.ArticleNumber, Available: p.quantity, Requested: -line.Delta, Reversal: true}
		}
	}
	if err := checkAdjustments(locked, deltas); err != nil {
		return nil, err
	}

	if err := applyDeltas(ctx, pgTx, deltas); err != nil {
		return nil, err
	}
	if _, err := pgTx.ExecContext(ctx, `DELETE FROM purchase_items WHERE purchase_id = $1`, id); err != nil {
		return nil, err
	}
	if _, err := pgTx.ExecContext(ctx, `DELETE FROM purchases WHERE id = $1`, id); err != nil {
		return nil, err
	}
	if err := pgTx.Commit(); err != nil {
		return nil, err
	}
	return &purchase, nil
}

func (s *Store) ListPurchases(ctx context.Context, limit int) ([]domain.Purchase, error) {
	return queryPurchases(ctx, s.db, `ORDER BY p.purchase_date DESC, p.id DESC LIMIT $1`, limitArg(limit))
}

func (s *Store) GetPurchase(ctx context.Context, id int64) (*domain.Purchase, error) {
	purchases, err := queryPurchases(ctx, s.db, `WHERE p.id = $1`, id)
	if err != nil {
		return nil, err
	}
	if len(purchases) == 0 {
		return nil, fmt.Errorf("purchase %d %w", id, store.ErrNotFound)
	}
	return &purchases[0], nil
}

func queryPurchases(ctx context.Context, q queryer, clause string, args ...any) ([]domain.Purchase, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT p.id, p.supplier_id, COALESCE(sp.name,''), p.invoice_number, p.purchase_date, p.total_amount, p.created_at
		FROM purchases p
		LEFT JOIN suppliers sp ON sp.id = p.supplier_id
		`+clause, args...)
	if err != nil {
		return nil, err
	}

	purchases := make([]domain.Purchase, 0, 32)
	ids := make([]int64, 0, 32)
	for rows.Next() {
		var p domain.Purchase
		var supplierID sql.NullInt64
		if err := rows.Scan(&p.ID, &supplierID, &p.SupplierName, &p.InvoiceNumber, &p.PurchaseDate, &p.TotalAmount, &p.CreatedAt); err != nil {
			_ = rows.Close()
			return nil, err
		}
		if supplierID.Valid {
			id := supplierID.Int64
			p.SupplierID = &id
		}
		p.PurchaseDate = p.PurchaseDate.UTC()
		p.CreatedAt = p.CreatedAt.UTC()
		purchases = append(purchases, p)
		ids = append(ids, p.ID)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, err
	}
	_ = rows.Close()

	if len(ids) == 0 {
		return purchases, nil
	}
	itemRows, err := q.QueryContext(ctx, `
		SELECT id, purchase_id, product_art_no, quantity, purchase_price, total
		FROM purchase_items
		WHERE purchase_id = ANY($1)
		ORDER BY id
	`, ids)
	if err != nil {
		return nil, err
	}
	defer itemRows.Close()

	items := make(map[int64][]domain.PurchaseItem, len(ids))
	for itemRows.Next() {
		var item domain.PurchaseItem
		var purchaseID int64
		if err := itemRows.Scan(&item.ID, &purchaseID, &item.ProductArtNo, &item.Quantity, &item.PurchasePrice, &item.Total); err != nil {
			return nil, err
		}
		items[purchaseID] = append(items[purchaseID], item)
	}
	if err := itemRows.Err(); err != nil {
		return nil, err
	}
	for i := range purchases {
		purchases[i].Items = items[purchases[i].ID]
		if purchases[i].Items == nil {
			purchases[i].Items = []domain.PurchaseItem{}
		}
	}
	return purchases, nil
}

func (s *Store) CreateSale(ctx context.Context, sale domain.Sale) (*domain.Sale, error) {
	if len(sale.Items) == 0 {
		return nil, store.Invalid("sale must contain at least one item")
	}
	requested, err := domain.MergeStockLines(domain.SaleStockLines(sale.Items, 1))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", store.ErrInvalidInput, err)
	}

	pgTx, err := s.db.BeginTx(ctx, inventoryTxOptions)
	if err != nil {
		return nil, err
	}
	defer func() { _ = pgTx.Rollback() }()

	if sale.CustomerID != nil {
		err := pgTx.QueryRowContext(ctx, `SELECT name FROM customers WHERE id = $1`, *sale.CustomerID).Scan(&sale.CustomerName)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, fmt.Errorf("customer %d %w", *sale.CustomerID, store.ErrNotFound)
			}
			return nil, err
		}
	}

	locked, err := lockProducts(ctx, pgTx, articleNumbers(requested))
	if err != nil {
		return nil, err
	}
	for _, item := range sale.Items {
		if _, ok := locked[item.ProductArtNo]; !ok {
			return nil, store.ProductNotFound(item.ProductArtNo)
		}
	}
	for _, line := range requested {
		if available := locked[line.ArticleNumber].quantity; available < line.Delta {
			return nil, &store.StockError{ArticleNumber: line.ArticleNumber, Available: available, Requested: line.Delta}
		}
	}

	for i := range sale.Items {
		sale.Items[i].Total = domain.LineTotal(sale.Items[i].Quantity, sale.Items[i].SellingPrice)
	}
	sale.Subtotal = domain.SaleSubtotal(sale.Items)
	sale.TotalAmount = domain.SaleTotal(sale.Subtotal, sale.Discount)
	if sale.SaleDate.IsZero() {
		sale.SaleDate = time.Now().UTC()
	}

	err = pgTx.QueryRowContext(ctx, `
		INSERT INTO sales (
			invoice_number, customer_id, payment_mode, subtotal, discount, total_amount, notes, sale_date, created_at
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,now())
		RETURNING id, created_at
	`, sale.InvoiceNumber, nullInt64(sale.CustomerID), string(sale.PaymentMode), sale.Subtotal, sale.Discount,
		sale.TotalAmount, nullIfEmpty(sale.Notes), sale.SaleDate).Scan(&sale.ID, &sale.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: invoice number %s already exists", store.ErrConflict, sale.InvoiceNumber)
		}
		return nil, err
	}

	for i, item := range sale.Items {
		err := pgTx.QueryRowContext(ctx, `
			INSERT INTO sale_items (sale_id, product_art_no, quantity, selling_price, total)
			VALUES ($1,$2,$3,$4,$5)
			RETURNING id
		`, sale.ID, item.ProductArtNo, item.Quantity, item.SellingPrice, item.Total).Scan(&sale.Items[i].ID)
		if err != nil {
			return nil, err
		}
	}

	if err := applyDeltas(ctx, pgTx, domain.SaleStockLines(sale.Items, -1)); err != nil {
		return nil, err
	}
	if err := pgTx.Commit(); err != nil {
		return nil, err
	}

	sale.CreatedAt = sale.CreatedAt.UTC()
	sale.SaleDate = sale.SaleDate.UTC()
	return &sale, nil
}

func (s *Store) DeleteSale(ctx context.Context, id int64) (*domain.Sale, error) {
	pgTx, err := s.db.BeginTx(ctx, inventoryTxOptions)
	if err != nil {
		return nil, err
	}
	defer func() { _ = pgTx.Rollback() }()

	sales, err := querySales(ctx, pgTx, `WHERE s.id = $1 FOR UPDATE OF s`, id)
	if err != nil {
		return nil, err
	}
	if len(sales) == 0 {
		return nil, fmt.Errorf("sale %d %w", id, store.ErrNotFound)
	}
	sale := sales[0]

	deltas, err := domain.MergeStockLines(domain.SaleStockLines(sale.Items, 1))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", store.ErrConflict, err)
	}
	locked, err := lockProducts(ctx, pgTx, articleNumbers(deltas))
	if err != nil {
		return nil, err
	}
	for _, line := range deltas {
		if _, ok := locked[line.ArticleNumber]; !ok {
			return nil, fmt.Errorf("%w: product %s no longer exists", store.ErrConflict, line.ArticleNumber)
		}
	}
	if err := checkAdjustments(locked, deltas); err != nil {
		return nil, err
	}

	if err := applyDeltas(ctx, pgTx, deltas); err != nil {
		return nil, err
	}
	if _, err := pgTx.ExecContext(ctx, `DELETE FROM sale_items WHERE sale_id = $1`, id); err != nil {
		return nil, err
	}
	if _, err := pgTx.ExecContext(ctx, `DELETE FROM sales WHERE id = $1`, id); err != nil {
		return nil, err
	}
	if err := pgTx.Commit(); err != nil {
		return nil, err
	}
	return &sale, nil
}

func (s *Store) ListSales(ctx context.Context, limit int) ([]domain.Sale, error) {
	return querySales(ctx, s.db, `ORDER BY s.sale_date DESC, s.id DESC LIMIT $1`, limitArg(limit))
}

func (s *Store) GetSale(ctx context.Context, id int64) (*domain.Sale, error) {
	sales, err := querySales(ctx, s.db, `WHERE s.id = $1`, id)
	if err != nil {
		return nil, err
	}
	if len(sales) == 0 {
		return nil, fmt.Errorf("sale %d %w", id, store.ErrNotFound)
	}
	return &sales[0], nil
}

func querySales(ctx context.Context, q queryer, clause string, args ...any) ([]domain.Sale, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT s.id, s.invoice_number, s.customer_id, COALESCE(c.name,''), s.payment_mode, s.subtotal,
			s.discount, s.total_amount, COALESCE(s.notes,''), s.sale_date, s.created_at
		FROM sales s
		LEFT JOIN customers c ON c.id = s.customer_id
		`+clause, args...)
	if err != nil {
		return nil, err
	}

	sales := make([]domain.Sale, 0, 32)
	ids := make([]int64, 0, 32)
	for rows.Next() {
		var sale domain.Sale
		var customerID sql.NullInt64
		var mode string
		if err := rows.Scan(&sale.ID, &sale.InvoiceNumber, &customerID, &sale.CustomerName, &mode, &sale.Subtotal,
			&sale.Discount, &sale.TotalAmount, &sale.Notes, &sale.SaleDate, &sale.CreatedAt); err != nil {
			_ = rows.Close()
			return nil, err
		}
		if customerID.Valid {
			id := customerID.Int64
			sale.CustomerID = &id
		}
		sale.PaymentMode = domain.PaymentMode(mode)
		sale.SaleDate = sale.SaleDate.UTC()
		sale.CreatedAt = sale.CreatedAt.UTC()
		sales = append(sales, sale)
		ids = append(ids, sale.ID)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, err
	}
	_ = rows.Close()

	if len(ids) == 0 {
		return sales, nil
	}
	itemRows, err := q.QueryContext(ctx, `
		SELECT id, sale_id, product_art_no, quantity, selling_price, total
		FROM sale_items
		WHERE sale_id = ANY($1)
		ORDER BY id
	`, ids)
	if err != nil {
		return nil, err
	}
	defer itemRows.Close()

	items := make(map[int64][]domain.SaleItem, len(ids))
	for itemRows.Next() {
		var item domain.SaleItem
		var saleID int64
		if err := itemRows.Scan(&item.ID, &saleID, &item.ProductArtNo, &item.Quantity, &item.SellingPrice, &item.Total); err != nil {
			return nil, err
		}
		items[saleID] = append(items[saleID], item)
	}
	if err := itemRows.Err(); err != nil {
		return nil, err
	}
	for i := range sales {
		sales[i].Items = items[sales[i].ID]
		if sales[i].Items == nil {
			sales[i].Items = []domain.SaleItem{}
		}
	}
	return sales, nil
}

func articleNumbers(lines []domain.StockLine) []string {
	arts := make([]string, 0, len(lines))
	for _, line := range lines {
		arts = append(arts, line.ArticleNumber)
	}
	sort.Strings(arts)
	return arts
}

func nullInt64(v *int64) any {
	if v == nil {
		return nil
	}
	return *v
}

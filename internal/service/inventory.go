package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"inventorypro/backend/internal/domain"
	"inventorypro/backend/internal/events"
	"inventorypro/backend/internal/store"
	"inventorypro/backend/internal/xid"
)

const publishTimeout = 3 * time.Second

func (s *Service) CreatePurchase(ctx context.Context, req domain.PurchaseCreateRequest) (domain.Purchase, error) {
	if _, err := s.authorize(ctx, domain.PermManagePurchases); err != nil {
		return domain.Purchase{}, err
	}

	invoice := strings.TrimSpace(req.InvoiceNumber)
	if invoice == "" {
		return domain.Purchase{}, store.Invalid("invoiceNumber is required")
	}
	if req.SupplierID != nil && *req.SupplierID < 1 {
		return domain.Purchase{}, store.Invalid("supplierId must be a positive integer")
	}
	if len(req.Items) == 0 {
		return domain.Purchase{}, store.Invalid("purchase must contain at least one item")
	}

	items := make([]domain.PurchaseItem, 0, len(req.Items))
	for i, line := range req.Items {
		art := strings.TrimSpace(line.ProductArtNo)
		if art == "" {
			return domain.Purchase{}, store.Invalid("items[%d].productArtNo is required", i)
		}
		if line.Quantity < 1 {
			return domain.Purchase{}, store.Invalid("items[%d].quantity must be greater than zero", i)
		}
		if line.Quantity > domain.MaxStockQuantity {
			return domain.Purchase{}, store.Invalid("items[%d].quantity must not exceed %d", i, domain.MaxStockQuantity)
		}
		if line.PurchasePrice.IsNegative() {
			return domain.Purchase{}, store.Invalid("items[%d].purchasePrice must not be negative", i)
		}
		items = append(items, domain.PurchaseItem{
			ProductArtNo:  art,
			Quantity:      line.Quantity,
			PurchasePrice: domain.RoundMoney(line.PurchasePrice),
		})
	}

	purchase := domain.Purchase{
		SupplierID:    req.SupplierID,
		InvoiceNumber: invoice,
		PurchaseDate:  s.now(),
		Items:         items,
	}
	if req.PurchaseDate != nil && !req.PurchaseDate.IsZero() {
		purchase.PurchaseDate = req.PurchaseDate.UTC()
	}

	created, err := s.repo.CreatePurchase(ctx, purchase)
	if err != nil {
		return domain.Purchase{}, err
	}

	s.logAudit(ctx, "purchase_create", "purchase", fmt.Sprint(created.ID),
		fmt.Sprintf("invoice=%s total=%s items=%d", created.InvoiceNumber, created.TotalAmount, len(created.Items)))
	s.publishStock(ctx, events.SourcePurchaseCreated, created.ID, created.InvoiceNumber, domain.PurchaseStockLines(created.Items, 1))
	return *created, nil
}

func (s *Service) DeletePurchase(ctx context.Context, id int64) (domain.DeleteResponse, error) {
	if _, err := s.authorize(ctx, domain.PermManagePurchases); err != nil {
		return domain.DeleteResponse{}, err
	}
	deleted, err := s.repo.DeletePurchase(ctx, id)
	if err != nil {
		return domain.DeleteResponse{}, err
	}

	s.logAudit(ctx, "purchase_delete", "purchase", fmt.Sprint(id), "invoice="+deleted.InvoiceNumber)
	s.publishStock(ctx, events.SourcePurchaseDeleted, deleted.ID, deleted.InvoiceNumber, domain.PurchaseStockLines(deleted.Items, -1))
	return domain.DeleteResponse{OK: true, Message: "purchase deleted and stock reversed"}, nil
}

func (s *Service) ListPurchases(ctx context.Context, limit int) ([]domain.Purchase, error) {
	if _, err := s.requireActor(ctx); err != nil {
		return nil, err
	}
	return s.repo.ListPurchases(ctx, limit)
}

func (s *Service) GetPurchase(ctx context.Context, id int64) (domain.Purchase, error) {
	if _, err := s.requireActor(ctx); err != nil {
		return domain.Purchase{}, err
	}
	purchase, err := s.repo.GetPurchase(ctx, id)
	if err != nil {
		return domain.Purchase{}, err
	}
	return *purchase, nil
}

func (s *Service) CreateSale(ctx context.Context, req domain.SaleCreateRequest) (domain.SaleCreateResponse, error) {
	if _, err := s.authorize(ctx, domain.PermManageSales); err != nil {
		return domain.SaleCreateResponse{}, err
	}

	mode := domain.PaymentMode(strings.ToUpper(strings.TrimSpace(string(req.PaymentMode))))
	if mode == "" {
		mode = domain.PaymentCash
	}
	if !mode.Valid() {
		return domain.SaleCreateResponse{}, store.Invalid("invalid payment mode %q", string(req.PaymentMode))
	}
	discount := decimal.Zero
	if req.Discount != nil {
		discount = domain.RoundMoney(*req.Discount)
	}
	if discount.IsNegative() {
		return domain.SaleCreateResponse{}, store.Invalid("discount must not be negative")
	}
	if req.CustomerID != nil && *req.CustomerID < 1 {
		return domain.SaleCreateResponse{}, store.Invalid("customerId must be a positive integer")
	}
	if len(req.Items) == 0 {
		return domain.SaleCreateResponse{}, store.Invalid("sale must contain at least one item")
	}

	items := make([]domain.SaleItem, 0, len(req.Items))
	for i, line := range req.Items {
		art := strings.TrimSpace(line.ProductArtNo)
		if art == "" {
			return domain.SaleCreateResponse{}, store.Invalid("items[%d].productArtNo is required", i)
		}
		if line.Quantity < 1 {
			return domain.SaleCreateResponse{}, store.Invalid("items[%d].quantity must be greater than zero", i)
		}
		if line.Quantity > domain.MaxStockQuantity {
			return domain.SaleCreateResponse{}, store.Invalid("items[%d].quantity must not exceed %d", i, domain.MaxStockQuantity)
		}
		if line.SellingPrice.IsNegative() {
			return domain.SaleCreateResponse{}, store.Invalid("items[%d].sellingPrice must not be negative", i)
		}
		items = append(items, domain.SaleItem{
			ProductArtNo: art,
			Quantity:     line.Quantity,
			SellingPrice: domain.RoundMoney(line.SellingPrice),
		})
	}

	now := s.now()
	created, err := s.repo.CreateSale(ctx, domain.Sale{
		InvoiceNumber: xid.SaleInvoice(now),
		CustomerID:    req.CustomerID,
		PaymentMode:   mode,
		Discount:      discount,
		Notes:         strings.TrimSpace(req.Notes),
		SaleDate:      now,
		Items:         items,
	})
	if err != nil {
		return domain.SaleCreateResponse{}, err
	}

	s.logAudit(ctx, "sale_create", "sale", fmt.Sprint(created.ID),
		fmt.Sprintf("invoice=%s total=%s payment=%s", created.InvoiceNumber, created.TotalAmount, created.PaymentMode))
	s.publishStock(ctx, events.SourceSaleCreated, created.ID, created.InvoiceNumber, domain.SaleStockLines(created.Items, -1))
	return domain.SaleCreateResponse{Sale: *created, InvoiceNumber: created.InvoiceNumber}, nil
}

func (s *Service) DeleteSale(ctx context.Context, id int64) (domain.DeleteResponse, error) {
	if _, err := s.authorize(ctx, domain.PermManageSales); err != nil {
		return domain.DeleteResponse{}, err
	}
	deleted, err := s.repo.DeleteSale(ctx, id)
	if err != nil {
		return domain.DeleteResponse{}, err
	}

	s.logAudit(ctx, "sale_delete", "sale", fmt.Sprint(id), "invoice="+deleted.InvoiceNumber)
	s.publishStock(ctx, events.SourceSaleDeleted, deleted.ID, deleted.InvoiceNumber, domain.SaleStockLines(deleted.Items, 1))
	return domain.DeleteResponse{OK: true, Message: "sale deleted and stock restored"}, nil
}

func (s *Service) ListSales(ctx context.Context, limit int) ([]domain.Sale, error) {
	if _, err := s.requireActor(ctx); err != nil {
		return nil, err
	}
	return s.repo.ListSales(ctx, limit)
}

func (s *Service) GetSale(ctx context.Context, id int64) (domain.Sale, error) {
	if _, err := s.requireActor(ctx); err != nil {
		return domain.Sale{}, err
	}
	sale, err := s.repo.GetSale(ctx, id)
	if err != nil {
		return domain.Sale{}, err
	}
	return *sale, nil
}

// publishStock emits stock.adjusted for a committed change and stock.low for
// every touched product now at or below its minimum. Delivery is best-effort.
func (s *Service) publishStock(ctx context.Context, source string, sourceID int64, reference string, raw []domain.StockLine) {
	lines, err := domain.MergeStockLines(raw)
	if err != nil {
		log.Warn().Err(err).Str("source", source).Int64("source_id", sourceID).Msg("skipping stock event")
		return
	}
	if len(lines) == 0 {
		return
	}
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	now := s.now()
	adjusted := events.NewStockAdjusted(source, sourceID, reference, lines, now)
	if err := s.publisher.Publish(pubCtx, events.TypeStockAdjusted, adjusted); err != nil {
		log.Warn().Err(err).Str("source", source).Int64("source_id", sourceID).Msg("failed to publish stock event")
	}

	arts := make([]string, 0, len(lines))
	for _, line := range lines {
		arts = append(arts, line.ArticleNumber)
	}
	products, err := s.repo.GetProductsByArticleNumbers(pubCtx, arts)
	if err != nil {
		log.Warn().Err(err).Msg("low stock check failed")
		return
	}
	for _, art := range arts {
		p, ok := products[art]
		if !ok || p.Quantity > p.MinStock {
			continue
		}
		if err := s.publisher.Publish(pubCtx, events.TypeStockLow, events.NewStockLow(p, now)); err != nil {
			log.Warn().Err(err).Str("article_number", art).Msg("failed to publish low stock event")
		}
	}
}

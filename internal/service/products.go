package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"inventorypro/backend/internal/domain"
	"inventorypro/backend/internal/store"
)

var hundred = decimal.NewFromInt(100)

// visibility reports which restricted product fields the actor may read.
func visibility(actor domain.Actor) (showPrices bool, showQuantities bool) {
	manage := actor.Can(domain.PermManageProducts)
	return manage || actor.Can(domain.PermViewPrices), manage || actor.Can(domain.PermViewQuantities)
}

func (s *Service) ListProducts(ctx context.Context, limit int) ([]domain.ProductView, error) {
	actor, err := s.requireActor(ctx)
	if err != nil {
		return nil, err
	}
	products, err := s.repo.ListProducts(ctx, limit)
	if err != nil {
		return nil, err
	}

	showPrices, showQuantities := visibility(actor)
	views := make([]domain.ProductView, 0, len(products))
	for _, p := range products {
		views = append(views, domain.NewProductView(p, showPrices, showQuantities))
	}
	return views, nil
}

func (s *Service) GetProduct(ctx context.Context, articleNumber string) (domain.ProductView, error) {
	actor, err := s.requireActor(ctx)
	if err != nil {
		return domain.ProductView{}, err
	}
	p, err := s.repo.GetProduct(ctx, strings.TrimSpace(articleNumber))
	if err != nil {
		return domain.ProductView{}, err
	}
	showPrices, showQuantities := visibility(actor)
	return domain.NewProductView(*p, showPrices, showQuantities), nil
}

func (s *Service) CreateProduct(ctx context.Context, req domain.ProductCreateRequest) (domain.Product, error) {
	if _, err := s.authorize(ctx, domain.PermManageProducts); err != nil {
		return domain.Product{}, err
	}

	product := domain.Product{
		ArticleNumber: strings.TrimSpace(req.ArticleNumber),
		Name:          strings.TrimSpace(req.Name),
		Category:      strings.TrimSpace(req.Category),
		Brand:         strings.TrimSpace(req.Brand),
		PurchasePrice: domain.RoundMoney(req.PurchasePrice),
		SellingPrice:  domain.RoundMoney(req.SellingPrice),
		DiscountValue: decimal.Zero,
		DiscountType:  req.DiscountType,
		TaxEnabled:    req.TaxEnabled,
		TaxPercent:    decimal.Zero,
		Quantity:      req.Quantity,
		MinStock:      req.MinStock,
		Unit:          strings.TrimSpace(req.Unit),
		ShelfNumber:   strings.TrimSpace(req.ShelfNumber),
	}
	if req.DiscountValue != nil {
		product.DiscountValue = domain.RoundMoney(*req.DiscountValue)
	}
	if req.TaxPercent != nil {
		product.TaxPercent = domain.RoundMoney(*req.TaxPercent)
	}
	if product.DiscountType == "" {
		product.DiscountType = domain.DiscountAmount
	}
	if product.Unit == "" {
		product.Unit = "pcs"
	}
	if product.ArticleNumber == "" {
		return domain.Product{}, store.Invalid("articleNumber is required")
	}
	if err := validateProduct(product); err != nil {
		return domain.Product{}, err
	}

	created, err := s.repo.CreateProduct(ctx, product)
	if err != nil {
		return domain.Product{}, err
	}
	s.logAudit(ctx, "product_create", "product", created.ArticleNumber, "name="+created.Name)
	return *created, nil
}

// UpdateProduct applies the fields present in req. Setting quantity here is a
// manual stock correction and bypasses the purchase and sale flows.
func (s *Service) UpdateProduct(ctx context.Context, articleNumber string, req domain.ProductUpdateRequest) (domain.Product, error) {
	if _, err := s.authorize(ctx, domain.PermManageProducts); err != nil {
		return domain.Product{}, err
	}
	existing, err := s.repo.GetProduct(ctx, strings.TrimSpace(articleNumber))
	if err != nil {
		return domain.Product{}, err
	}

	product := *existing
	changes := make([]string, 0, 4)
	if req.Name != nil {
		product.Name = strings.TrimSpace(*req.Name)
		changes = append(changes, "name")
	}
	if req.Category != nil {
		product.Category = strings.TrimSpace(*req.Category)
	}
	if req.Brand != nil {
		product.Brand = strings.TrimSpace(*req.Brand)
	}
	if req.PurchasePrice != nil {
		product.PurchasePrice = domain.RoundMoney(*req.PurchasePrice)
		changes = append(changes, "purchasePrice")
	}
	if req.SellingPrice != nil {
		product.SellingPrice = domain.RoundMoney(*req.SellingPrice)
		changes = append(changes, "sellingPrice")
	}
	if req.DiscountValue != nil {
		product.DiscountValue = domain.RoundMoney(*req.DiscountValue)
	}
	if req.DiscountType != nil {
		product.DiscountType = *req.DiscountType
	}
	if req.TaxEnabled != nil {
		product.TaxEnabled = *req.TaxEnabled
	}
	if req.TaxPercent != nil {
		product.TaxPercent = domain.RoundMoney(*req.TaxPercent)
	}
	if req.Quantity != nil {
		changes = append(changes, fmt.Sprintf("quantity:%d->%d", existing.Quantity, *req.Quantity))
		product.Quantity = *req.Quantity
	}
	if req.MinStock != nil {
		product.MinStock = *req.MinStock
	}
	if req.Unit != nil {
		product.Unit = strings.TrimSpace(*req.Unit)
		if product.Unit == "" {
			product.Unit = "pcs"
		}
	}
	if req.ShelfNumber != nil {
		product.ShelfNumber = strings.TrimSpace(*req.ShelfNumber)
	}
	if err := validateProduct(product); err != nil {
		return domain.Product{}, err
	}

	saved, err := s.repo.UpdateProduct(ctx, product)
	if err != nil {
		return domain.Product{}, err
	}
	s.logAudit(ctx, "product_update", "product", saved.ArticleNumber, strings.Join(changes, ","))
	return *saved, nil
}

func (s *Service) DeleteProduct(ctx context.Context, articleNumber string) error {
	if _, err := s.authorize(ctx, domain.PermManageProducts); err != nil {
		return err
	}
	articleNumber = strings.TrimSpace(articleNumber)
	if err := s.repo.DeleteProduct(ctx, articleNumber); err != nil {
		return err
	}
	s.logAudit(ctx, "product_delete", "product", articleNumber, "")
	return nil
}

// LowStock lists products at or below their minimum stock with a suggested
// reorder quantity that brings them back to twice the minimum.
func (s *Service) LowStock(ctx context.Context) (domain.LowStockReport, error) {
	if _, err := s.requireActor(ctx); err != nil {
		return domain.LowStockReport{}, err
	}
	products, err := s.repo.ListLowStockProducts(ctx)
	if err != nil {
		return domain.LowStockReport{}, err
	}

	items := make([]domain.LowStockItem, 0, len(products))
	for _, p := range products {
		items = append(items, domain.LowStockItem{
			ArticleNumber:  p.ArticleNumber,
			Name:           p.Name,
			Quantity:       p.Quantity,
			MinStock:       p.MinStock,
			SuggestedOrder: suggestedOrder(p),
		})
	}
	return domain.LowStockReport{
		GeneratedAt: s.now().Format(time.RFC3339),
		Items:       items,
	}, nil
}

func suggestedOrder(p domain.Product) int {
	qty := p.MinStock*2 - p.Quantity
	if qty < 1 {
		return 1
	}
	return qty
}

func validateProduct(p domain.Product) error {
	if p.Name == "" {
		return store.Invalid("name is required")
	}
	if len(p.ArticleNumber) > 64 {
		return store.Invalid("articleNumber must be at most 64 characters")
	}
	if p.PurchasePrice.IsNegative() || p.SellingPrice.IsNegative() {
		return store.Invalid("prices must not be negative")
	}
	if !p.DiscountType.Valid() {
		return store.Invalid("discountType must be AMOUNT or PERCENT")
	}
	if p.DiscountValue.IsNegative() {
		return store.Invalid("discountValue must not be negative")
	}
	if p.DiscountType == domain.DiscountPercent && p.DiscountValue.GreaterThan(hundred) {
		return store.Invalid("discountValue must not exceed 100 percent")
	}
	if p.TaxPercent.IsNegative() || p.TaxPercent.GreaterThan(hundred) {
		return store.Invalid("taxPercent must be between 0 and 100")
	}
	if p.Quantity < 0 || p.MinStock < 0 {
		return store.Invalid("quantity and minStock must not be negative")
	}
	if p.Quantity > domain.MaxStockQuantity || p.MinStock > domain.MaxStockQuantity {
		return store.Invalid("quantity and minStock must not exceed %d", domain.MaxStockQuantity)
	}
	return nil
}

package events

import (
	"context"
	"time"

	"github.com/google/uuid"

	"inventorypro/backend/internal/domain"
)

const (
	TypeStockAdjusted = "stock.adjusted"
	TypeStockLow      = "stock.low"
)

// Source values for StockAdjusted.
const (
	SourcePurchaseCreated = "purchase.created"
	SourcePurchaseDeleted = "purchase.deleted"
	SourceSaleCreated     = "sale.created"
	SourceSaleDeleted     = "sale.deleted"
)

type StockAdjusted struct {
	ID         string             `json:"id"`
	Type       string             `json:"type"`
	Source     string             `json:"source"`
	SourceID   int64              `json:"sourceId"`
	Reference  string             `json:"reference"`
	Lines      []domain.StockLine `json:"lines"`
	OccurredAt time.Time          `json:"occurredAt"`
}

type StockLow struct {
	ID            string    `json:"id"`
	Type          string    `json:"type"`
	ArticleNumber string    `json:"articleNumber"`
	Name          string    `json:"name"`
	Quantity      int       `json:"quantity"`
	MinStock      int       `json:"minStock"`
	OccurredAt    time.Time `json:"occurredAt"`
}

func NewStockAdjusted(source string, sourceID int64, reference string, lines []domain.StockLine, at time.Time) StockAdjusted {
	return StockAdjusted{
		ID:         uuid.NewString(),
		Type:       TypeStockAdjusted,
		Source:     source,
		SourceID:   sourceID,
		Reference:  reference,
		Lines:      lines,
		OccurredAt: at.UTC(),
	}
}

func NewStockLow(p domain.Product, at time.Time) StockLow {
	return StockLow{
		ID:            uuid.NewString(),
		Type:          TypeStockLow,
		ArticleNumber: p.ArticleNumber,
		Name:          p.Name,
		Quantity:      p.Quantity,
		MinStock:      p.MinStock,
		OccurredAt:    at.UTC(),
	}
}

// Publisher delivers stock events. Callers treat delivery as best-effort.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, event any) error
}

type NoopPublisher struct{}

func (NoopPublisher) Publish(_ context.Context, _ string, _ any) error {
	return nil
}

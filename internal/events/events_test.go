package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"inventorypro/backend/internal/domain"
)

func TestStockAdjustedPayload(t *testing.T) {
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	event := NewStockAdjusted(SourceSaleCreated, 12, "S-1-ABCD", []domain.StockLine{{ArticleNumber: "A", Delta: -2}}, at)

	raw, err := json.Marshal(event)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded["type"] != TypeStockAdjusted || decoded["source"] != SourceSaleCreated {
		t.Fatalf("unexpected payload %s", raw)
	}
	if decoded["id"] == "" {
		t.Fatalf("expected event id")
	}
	lines := decoded["lines"].([]any)
	if len(lines) != 1 || lines[0].(map[string]any)["delta"].(float64) != -2 {
		t.Fatalf("unexpected lines %v", lines)
	}
}

func TestStockLowCarriesProductLevels(t *testing.T) {
	event := NewStockLow(domain.Product{ArticleNumber: "ART-1", Name: "Tea", Quantity: 2, MinStock: 5}, time.Now())
	if event.Type != TypeStockLow || event.Quantity != 2 || event.MinStock != 5 {
		t.Fatalf("unexpected event %+v", event)
	}
}

func TestNoopPublisher(t *testing.T) {
	var p Publisher = NoopPublisher{}
	if err := p.Publish(context.Background(), TypeStockLow, struct{}{}); err != nil {
		t.Fatalf("noop publish: %v", err)
	}
}

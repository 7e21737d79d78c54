package domain

import (
	"errors"
	"math"
	"testing"
)

func TestMergeStockLinesSumsPerProduct(t *testing.T) {
	merged, err := MergeStockLines([]StockLine{
		{ArticleNumber: "B", Delta: 2},
		{ArticleNumber: "A", Delta: 5},
		{ArticleNumber: "B", Delta: 3},
	})
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	if len(merged) != 2 || merged[0].ArticleNumber != "B" || merged[0].Delta != 5 || merged[1].Delta != 5 {
		t.Fatalf("unexpected merge %+v", merged)
	}
}

func TestMergeStockLinesRejectsOutOfRange(t *testing.T) {
	cases := [][]StockLine{
		{{ArticleNumber: "A", Delta: math.MaxInt}},
		{{ArticleNumber: "A", Delta: math.MaxInt}, {ArticleNumber: "A", Delta: math.MaxInt}},
		{{ArticleNumber: "A", Delta: MaxStockQuantity}, {ArticleNumber: "A", Delta: 1}},
		{{ArticleNumber: "A", Delta: math.MinInt}},
	}
	for i, lines := range cases {
		if _, err := MergeStockLines(lines); !errors.Is(err, ErrStockOutOfRange) {
			t.Fatalf("case %d: expected out of range, got %v", i, err)
		}
	}
}

func TestAdjustStockBounds(t *testing.T) {
	if got, err := AdjustStock("A", 8, -8); err != nil || got != 0 {
		t.Fatalf("expected 0, got %d err=%v", got, err)
	}
	if got, err := AdjustStock("A", 0, MaxStockQuantity); err != nil || got != MaxStockQuantity {
		t.Fatalf("expected max, got %d err=%v", got, err)
	}
	for _, tc := range []struct{ quantity, delta int }{
		{8, -9},
		{1, MaxStockQuantity},
		{40, math.MaxInt},
		{math.MaxInt, 1},
	} {
		if _, err := AdjustStock("A", tc.quantity, tc.delta); !errors.Is(err, ErrStockOutOfRange) {
			t.Fatalf("quantity %d delta %d: expected out of range, got %v", tc.quantity, tc.delta, err)
		}
	}
}

package domain

import (
	"errors"
	"fmt"
	"math"
)

// MaxStockQuantity bounds every line quantity and every product quantity.
// It matches the INTEGER stock columns.
const MaxStockQuantity = math.MaxInt32

var ErrStockOutOfRange = errors.New("stock quantity out of range")

// StockLine is one signed product delta applied by a purchase or sale.
type StockLine struct {
	ArticleNumber string `json:"articleNumber"`
	Delta         int    `json:"delta"`
}

func PurchaseStockLines(items []PurchaseItem, sign int) []StockLine {
	lines := make([]StockLine, 0, len(items))
	for _, item := range items {
		lines = append(lines, StockLine{ArticleNumber: item.ProductArtNo, Delta: sign * item.Quantity})
	}
	return lines
}

func SaleStockLines(items []SaleItem, sign int) []StockLine {
	lines := make([]StockLine, 0, len(items))
	for _, item := range items {
		lines = append(lines, StockLine{ArticleNumber: item.ProductArtNo, Delta: sign * item.Quantity})
	}
	return lines
}

// MergeStockLines sums lines per product, keeping first-seen order. Every
// line and every per-product sum must stay within MaxStockQuantity.
func MergeStockLines(lines []StockLine) ([]StockLine, error) {
	index := make(map[string]int, len(lines))
	out := make([]StockLine, 0, len(lines))
	for _, line := range lines {
		if !inStockRange(line.Delta) {
			return nil, fmt.Errorf("%w: product %s", ErrStockOutOfRange, line.ArticleNumber)
		}
		i, ok := index[line.ArticleNumber]
		if !ok {
			index[line.ArticleNumber] = len(out)
			out = append(out, line)
			continue
		}
		sum := out[i].Delta + line.Delta
		if !inStockRange(sum) {
			return nil, fmt.Errorf("%w: product %s", ErrStockOutOfRange, line.ArticleNumber)
		}
		out[i].Delta = sum
	}
	return out, nil
}

// AdjustStock returns quantity+delta. It fails when the result would be
// negative or above MaxStockQuantity.
func AdjustStock(articleNumber string, quantity int, delta int) (int, error) {
	if quantity < 0 || quantity > MaxStockQuantity || !inStockRange(delta) {
		return 0, fmt.Errorf("%w: product %s", ErrStockOutOfRange, articleNumber)
	}
	next := quantity + delta
	if next < 0 || next > MaxStockQuantity {
		return 0, fmt.Errorf("%w: product %s", ErrStockOutOfRange, articleNumber)
	}
	return next, nil
}

func inStockRange(delta int) bool {
	return delta >= -MaxStockQuantity && delta <= MaxStockQuantity
}

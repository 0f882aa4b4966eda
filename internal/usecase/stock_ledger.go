package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"ecorder/internal/domain/model"
	repo "ecorder/internal/repository"
)

type InsufficientStockError struct {
	VariantID int64
	Requested int64
	Available int64
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock: variant %d requested %d available %d", e.VariantID, e.Requested, e.Available)
}

type stockLine struct {
	VariantID int64
	Quantity  int64
}

// 同じバリアントをまとめてID順に並べる（ロック順を固定してデッドロックを避ける）
func mergeLines(lines []stockLine) []stockLine {
	sum := map[int64]int64{}
	for _, l := range lines {
		sum[l.VariantID] += l.Quantity
	}
	out := make([]stockLine, 0, len(sum))
	for id, q := range sum {
		out = append(out, stockLine{VariantID: id, Quantity: q})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].VariantID < out[j].VariantID })
	return out
}

func linesFromItems(items []model.OrderItem) []stockLine {
	lines := make([]stockLine, 0, len(items))
	for _, it := range items {
		lines = append(lines, stockLine{VariantID: it.VariantID, Quantity: it.Quantity})
	}
	return mergeLines(lines)
}

// 全行をロックして足りるか確認する（減らさない）
func checkStock(ctx context.Context, s repo.StockRepository, locationID int64, lines []stockLine) error {
	for _, l := range lines {
		rec, err := s.LockForUpdate(ctx, locationID, l.VariantID)
		if errors.Is(err, repo.ErrNotFound) {
			return &InsufficientStockError{VariantID: l.VariantID, Requested: l.Quantity}
		}
		if err != nil {
			return err
		}
		if rec.Quantity < l.Quantity {
			return &InsufficientStockError{VariantID: l.VariantID, Requested: l.Quantity, Available: rec.Quantity}
		}
	}
	return nil
}

// ロック→確認→減算。1行でも足りなければ何も減らさずエラー（呼び出し側でロールバック）
func deductStock(ctx context.Context, s repo.StockRepository, locationID int64, lines []stockLine) error {
	if err := checkStock(ctx, s, locationID, lines); err != nil {
		return err
	}
	for _, l := range lines {
		err := s.Decrement(ctx, locationID, l.VariantID, l.Quantity)
		if errors.Is(err, repo.ErrInsufficientStock) {
			return &InsufficientStockError{VariantID: l.VariantID, Requested: l.Quantity}
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func restoreStock(ctx context.Context, s repo.StockRepository, locationID int64, lines []stockLine) error {
	for _, l := range lines {
		if err := s.Increment(ctx, locationID, l.VariantID, l.Quantity); err != nil {
			return err
		}
	}
	return nil
}

func isInsufficientStock(err error) bool {
	var ise *InsufficientStockError
	return errors.As(err, &ise)
}

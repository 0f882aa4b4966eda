package usecase

import (
	"context"
	"errors"
	"fmt"

	"ecorder/internal/domain/model"
	repo "ecorder/internal/repository"

	"go.uber.org/zap"
)

// ResolveStockLocation は在庫を引く拠点を決める。
// コード指定が無い・見つからないときはデフォルト拠点にフォールバックする。
func ResolveStockLocation(ctx context.Context, locations repo.LocationRepository, code string, log *zap.Logger) (model.Location, error) {
	if code != "" {
		l, err := locations.FindByCode(ctx, code)
		if err == nil {
			return l, nil
		}
		if !errors.Is(err, repo.ErrNotFound) {
			return model.Location{}, fmt.Errorf("find location %q: %w", code, err)
		}
		log.Warn("stock location not found, using default", zap.String("code", code))
	}

	l, err := locations.FindDefault(ctx)
	if err != nil {
		return model.Location{}, fmt.Errorf("find default location: %w", err)
	}
	return l, nil
}

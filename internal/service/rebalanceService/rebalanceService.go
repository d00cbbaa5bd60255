package rebalanceService

import (
	"context"
	"log/slog"

	"github.com/KotFed0t/liberdade/internal/model"
	"github.com/KotFed0t/liberdade/utils"
	"github.com/shopspring/decimal"
)

type Repository interface {
	GetActiveAllocationTargets(ctx context.Context) ([]model.AllocationTarget, error)
	GetPositions(ctx context.Context) ([]model.Position, error)
	GetInstruments(ctx context.Context) ([]model.Instrument, error)
}

type RebalanceService struct {
	repo Repository
}

func New(repo Repository) *RebalanceService {
	return &RebalanceService{repo: repo}
}

func (s *RebalanceService) Recommend(ctx context.Context, contribution decimal.Decimal) ([]model.Recommendation, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "RebalanceService.Recommend"

	slog.Debug("Recommend start", slog.String("rqID", rqID), slog.String("op", op), slog.String("contribution", contribution.String()))
	defer func() {
		slog.Debug("Recommend finished", slog.String("rqID", rqID), slog.String("op", op))
	}()

	targets, err := s.repo.GetActiveAllocationTargets(ctx)
	if err != nil {
		slog.Error("got error from repo.GetActiveAllocationTargets", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, err
	}

	if sum := TargetsSum(targets); len(targets) > 0 && !sum.Equal(hundred) {
		slog.Warn("active allocation targets don't sum to 100", slog.String("rqID", rqID), slog.String("op", op), slog.String("sum", sum.String()))
	}

	positions, err := s.repo.GetPositions(ctx)
	if err != nil {
		slog.Error("got error from repo.GetPositions", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, err
	}

	instruments, err := s.repo.GetInstruments(ctx)
	if err != nil {
		slog.Error("got error from repo.GetInstruments", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, err
	}

	recommendations, err := Recommend(targets, positions, instruments, contribution)
	if err != nil {
		slog.Error("can't build recommendations", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, err
	}

	return recommendations, nil
}

func TargetsSum(targets []model.AllocationTarget) decimal.Decimal {
	sum := decimal.Zero
	for _, t := range targets {
		sum = sum.Add(t.TargetPercent)
	}
	return sum
}

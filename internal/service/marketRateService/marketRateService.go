package marketRateService

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/KotFed0t/liberdade/internal/externalApi"
	"github.com/KotFed0t/liberdade/internal/externalApi/bcbApi"
	"github.com/KotFed0t/liberdade/internal/model"
	"github.com/KotFed0t/liberdade/internal/model/marketModel"
	"github.com/KotFed0t/liberdade/internal/service/calendarService"
	"github.com/KotFed0t/liberdade/utils"
	"github.com/shopspring/decimal"
)

const ratePrecision = 10

type Calendar interface {
	BusinessDaysInMonth(ctx context.Context, year int, month time.Month, jurisdiction string) (int, error)
}

type PolicyRateFeed interface {
	GetRecentDailyRates(ctx context.Context, seriesID, count int) ([]marketModel.DailyRate, error)
}

type ArchiveSource interface {
	DownloadArchive(ctx context.Context, year int, month time.Month) ([]byte, error)
}

type PriceFeed interface {
	GetLastPrice(ctx context.Context, ticker string) (decimal.Decimal, error)
	GetDistributions(ctx context.Context, ticker string, now time.Time) ([]marketModel.Distribution, error)
}

type Options struct {
	ReferenceCode    string
	Jurisdiction     string
	SeriesID         int
	RecentRatesCount int
}

// MarketRateService turns heterogeneous market feeds into one expected monthly
// return per instrument.
type MarketRateService struct {
	calendar Calendar
	rates    PolicyRateFeed
	archives ArchiveSource
	prices   PriceFeed
	opts     Options
}

func New(calendar Calendar, rates PolicyRateFeed, archives ArchiveSource, prices PriceFeed, opts Options) *MarketRateService {
	if opts.RecentRatesCount < 2 {
		opts.RecentRatesCount = 2
	}
	return &MarketRateService{
		calendar: calendar,
		rates:    rates,
		archives: archives,
		prices:   prices,
		opts:     opts,
	}
}

// batch holds what is fetched at most once per Resolve call.
type batch struct {
	rateFetched bool
	monthlyRate decimal.Decimal
	rateOk      bool

	archives map[string][]marketModel.ArchiveTrade
}

// MonthlyFromDaily compounds a daily percentage over k business days:
// ((1 + daily/100)^k - 1) * 100.
func MonthlyFromDaily(dailyPercent decimal.Decimal, k int) decimal.Decimal {
	daily := dailyPercent.InexactFloat64() / 100
	monthly := (math.Pow(1+daily, float64(k)) - 1) * 100
	return decimal.NewFromFloat(monthly).Round(ratePrecision)
}

// Resolve computes updates for every instrument. Per-instrument failures are
// reported in the outcomes and never abort the batch. A cancelled ctx stops
// the loop and returns the outcomes gathered so far with ctx.Err().
func (s *MarketRateService) Resolve(ctx context.Context, instruments []model.Instrument, now time.Time) ([]model.ResolveOutcome, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "MarketRateService.Resolve"

	slog.Info("Resolve start", slog.String("rqID", rqID), slog.String("op", op), slog.Int("instruments", len(instruments)))

	b := &batch{archives: make(map[string][]marketModel.ArchiveTrade)}
	outcomes := make([]model.ResolveOutcome, 0, len(instruments))

	for _, inst := range instruments {
		if err := ctx.Err(); err != nil {
			slog.Warn("Resolve cancelled", slog.String("rqID", rqID), slog.String("op", op), slog.Int("resolved", len(outcomes)))
			return outcomes, err
		}

		outcome := s.resolveOne(ctx, b, inst, now)
		if outcome.Status == model.OutcomeFailed {
			slog.Error(
				"instrument resolution failed",
				slog.String("rqID", rqID),
				slog.String("op", op),
				slog.String("code", inst.Code),
				slog.String("err", outcome.Err.Error()),
			)
		}
		outcomes = append(outcomes, outcome)
	}

	slog.Info("Resolve completed", slog.String("rqID", rqID), slog.String("op", op), slog.Int("outcomes", len(outcomes)))

	return outcomes, nil
}

func (s *MarketRateService) resolveOne(ctx context.Context, b *batch, inst model.Instrument, now time.Time) model.ResolveOutcome {
	outcome := model.ResolveOutcome{Code: inst.Code}

	if inst.UpdatedOn(now) {
		outcome.Status = model.OutcomeSkipped
		outcome.Reason = "already updated today"
		return outcome
	}

	var (
		update *model.InstrumentUpdate
		err    error
	)

	switch {
	case inst.IsLiquid(s.opts.ReferenceCode):
		update, err = s.resolveLiquid(ctx, b, inst, now)
	case inst.Category.IsYieldBearing():
		update, err = s.resolveYieldBearing(ctx, inst, now)
	default:
		outcome.Status = model.OutcomeSkipped
		outcome.Reason = "no resolver for category"
		return outcome
	}

	switch {
	case err != nil:
		outcome.Status = model.OutcomeFailed
		outcome.Err = err
	case update == nil:
		outcome.Status = model.OutcomeSkipped
		outcome.Reason = "no update"
	default:
		outcome.Status = model.OutcomeUpdated
		outcome.Update = update
	}

	return outcome
}

func (s *MarketRateService) resolveLiquid(ctx context.Context, b *batch, inst model.Instrument, now time.Time) (*model.InstrumentUpdate, error) {
	monthly, rateOk := s.policyMonthlyRate(ctx, b, now)
	price, priceOk := s.settlementPrice(ctx, b, inst.Code, now)

	if !rateOk && !priceOk {
		return nil, nil
	}

	update := &model.InstrumentUpdate{
		InstrumentID:                 inst.ID,
		Code:                         inst.Code,
		CurrentPrice:                 inst.CurrentPrice,
		LastDistribution:             inst.LastDistribution,
		ExpectedMonthlyReturnPercent: inst.ExpectedMonthlyReturnPercent,
		UpdatedAt:                    inst.UpdatedAt,
	}
	// only a fresh price marks the instrument as updated today
	if priceOk && price.IsPositive() {
		update.CurrentPrice = price
		update.UpdatedAt = now
	}
	if rateOk {
		update.ExpectedMonthlyReturnPercent = monthly
		update.LastDistribution = update.CurrentPrice.Mul(monthly).Div(decimal.NewFromInt(100))
	}

	return update, nil
}

// policyMonthlyRate fetches the policy rate once per batch.
func (s *MarketRateService) policyMonthlyRate(ctx context.Context, b *batch, now time.Time) (decimal.Decimal, bool) {
	if b.rateFetched {
		return b.monthlyRate, b.rateOk
	}
	b.rateFetched = true

	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "MarketRateService.policyMonthlyRate"

	observations, err := s.rates.GetRecentDailyRates(ctx, s.opts.SeriesID, s.opts.RecentRatesCount)
	if err != nil {
		slog.Warn("policy rate unavailable", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return decimal.Zero, false
	}
	if len(observations) == 0 {
		slog.Warn("policy rate feed returned no observations", slog.String("rqID", rqID), slog.String("op", op))
		return decimal.Zero, false
	}

	latest := observations[0]
	for _, o := range observations[1:] {
		if o.Date.After(latest.Date) {
			latest = o
		}
	}

	k := calendarService.BusinessDaysOrDefault(s.calendar.BusinessDaysInMonth(ctx, now.Year(), now.Month(), s.opts.Jurisdiction))

	b.monthlyRate = MonthlyFromDaily(latest.RatePercent, k)
	b.rateOk = true

	slog.Info(
		"policy rate resolved",
		slog.String("rqID", rqID),
		slog.String("op", op),
		slog.String("daily", latest.RatePercent.String()),
		slog.String("monthly", b.monthlyRate.StringFixed(4)),
		slog.Int("businessDays", k),
		slog.String("observedAt", latest.Date.Format(time.DateOnly)),
	)

	return b.monthlyRate, true
}

// settlementPrice looks the code up in the current month archive, falling back
// to the previous month while the current one is not published.
func (s *MarketRateService) settlementPrice(ctx context.Context, b *batch, code string, now time.Time) (decimal.Decimal, bool) {
	current := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	for _, month := range []time.Time{current, current.AddDate(0, -1, 0)} {
		trades := s.archiveTrades(ctx, b, month.Year(), month.Month())
		if price, ok := bcbApi.LatestPrice(trades, code); ok {
			return price, true
		}
	}
	return decimal.Zero, false
}

func (s *MarketRateService) archiveTrades(ctx context.Context, b *batch, year int, month time.Month) []marketModel.ArchiveTrade {
	key := fmt.Sprintf("%04d-%02d", year, int(month))
	if trades, ok := b.archives[key]; ok {
		return trades
	}

	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "MarketRateService.archiveTrades"

	// a failed download is cached as empty so the batch doesn't retry it per instrument
	b.archives[key] = nil

	data, err := s.archives.DownloadArchive(ctx, year, month)
	if err != nil {
		if !errors.Is(err, externalApi.ErrNotFound) {
			slog.Warn("archive unavailable", slog.String("rqID", rqID), slog.String("op", op), slog.String("month", key), slog.String("err", err.Error()))
		}
		return nil
	}

	trades, err := bcbApi.ParseArchive(data)
	if err != nil {
		slog.Warn("archive unreadable", slog.String("rqID", rqID), slog.String("op", op), slog.String("month", key), slog.String("err", err.Error()))
		return nil
	}

	b.archives[key] = trades
	return trades
}

func (s *MarketRateService) resolveYieldBearing(ctx context.Context, inst model.Instrument, now time.Time) (*model.InstrumentUpdate, error) {
	price, err := s.prices.GetLastPrice(ctx, inst.Code)
	if err != nil && !errors.Is(err, externalApi.ErrNotFound) {
		return nil, fmt.Errorf("price feed: %w", err)
	}

	distributions, err := s.prices.GetDistributions(ctx, inst.Code, now)
	if err != nil {
		return nil, fmt.Errorf("distribution feed: %w", err)
	}

	if !price.IsPositive() && len(distributions) == 0 {
		return nil, nil
	}

	update := &model.InstrumentUpdate{
		InstrumentID:                 inst.ID,
		Code:                         inst.Code,
		CurrentPrice:                 inst.CurrentPrice,
		LastDistribution:             decimal.Zero,
		ExpectedMonthlyReturnPercent: inst.ExpectedMonthlyReturnPercent,
		UpdatedAt:                    inst.UpdatedAt,
	}
	if price.IsPositive() {
		update.CurrentPrice = price
		update.UpdatedAt = now
	}
	if best, ok := highestRank(distributions); ok {
		update.LastDistribution = best.Value
	}
	if update.CurrentPrice.IsPositive() {
		update.ExpectedMonthlyReturnPercent = update.LastDistribution.
			Div(update.CurrentPrice).
			Mul(decimal.NewFromInt(100)).
			Round(ratePrecision)
	}

	return update, nil
}

func highestRank(distributions []marketModel.Distribution) (marketModel.Distribution, bool) {
	if len(distributions) == 0 {
		return marketModel.Distribution{}, false
	}
	best := distributions[0]
	for _, d := range distributions[1:] {
		if d.Rank > best.Rank {
			best = d
		}
	}
	return best, true
}

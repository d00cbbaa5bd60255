package portfolioService

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/KotFed0t/liberdade/data/repository"
	"github.com/KotFed0t/liberdade/internal/model"
	"github.com/KotFed0t/liberdade/internal/service"
	"github.com/KotFed0t/liberdade/utils"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const maxInstrumentNameLen = 100

var hundred = decimal.NewFromInt(100)

type Repository interface {
	WithinTransaction(ctx context.Context, tFunc func(ctx context.Context) error) error

	InsertInstrument(ctx context.Context, instrument model.Instrument) error
	GetInstrument(ctx context.Context, instrumentID uuid.UUID) (model.Instrument, error)
	GetInstrumentByCode(ctx context.Context, code string) (model.Instrument, error)
	GetInstruments(ctx context.Context) ([]model.Instrument, error)

	GetPositions(ctx context.Context) ([]model.Position, error)
	GetPositionsPage(ctx context.Context, limit, offset int) ([]model.Position, bool, error)
	GetPosition(ctx context.Context, instrumentID uuid.UUID) (model.Position, error)
	UpsertPosition(ctx context.Context, position model.Position) error

	InsertTransaction(ctx context.Context, transaction model.Transaction) error
	GetTransaction(ctx context.Context, transactionID uuid.UUID) (model.Transaction, error)
	GetTransactions(ctx context.Context, limit int) ([]model.Transaction, error)
	UpdateTransaction(ctx context.Context, transaction model.Transaction) error
	DeleteTransaction(ctx context.Context, transactionID uuid.UUID) error

	GetLastSnapshot(ctx context.Context) (model.NetWorthSnapshot, error)
}

// TradeInput describes a purchase to register or the new values of an existing one.
type TradeInput struct {
	Quantity  decimal.Decimal
	UnitPrice decimal.Decimal
	Date      time.Time
	Note      string
}

func (in TradeInput) validate() error {
	if !in.Quantity.IsPositive() {
		return fmt.Errorf("%w: quantity must be positive", service.ErrValidation)
	}
	if !in.UnitPrice.IsPositive() {
		return fmt.Errorf("%w: unit price must be positive", service.ErrValidation)
	}
	return nil
}

type PortfolioService struct {
	repo          Repository
	referenceCode string
	pageSize      int
	now           func() time.Time
}

func New(repo Repository, referenceCode string, pageSize int) *PortfolioService {
	if pageSize <= 0 {
		pageSize = 10
	}
	return &PortfolioService{
		repo:          repo,
		referenceCode: referenceCode,
		pageSize:      pageSize,
		now:           time.Now,
	}
}

func mapRepoErr(err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return service.ErrNotFound
	case errors.Is(err, repository.ErrAlreadyExists):
		return fmt.Errorf("%w: already exists", service.ErrValidation)
	default:
		return err
	}
}

func (s *PortfolioService) CreateInstrument(ctx context.Context, instrument model.Instrument) (model.Instrument, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.CreateInstrument"

	slog.Debug("CreateInstrument start", slog.String("rqID", rqID), slog.String("op", op), slog.String("code", instrument.Code))
	defer func() {
		slog.Debug("CreateInstrument finished", slog.String("rqID", rqID), slog.String("op", op), slog.String("code", instrument.Code))
	}()

	instrument.Code = strings.ToUpper(strings.TrimSpace(instrument.Code))
	instrument.Name = strings.TrimSpace(instrument.Name)

	switch {
	case instrument.Code == "":
		return model.Instrument{}, fmt.Errorf("%w: code is required", service.ErrValidation)
	case instrument.Name == "":
		return model.Instrument{}, fmt.Errorf("%w: name is required", service.ErrValidation)
	case len([]rune(instrument.Name)) > maxInstrumentNameLen:
		return model.Instrument{}, fmt.Errorf("%w: name is longer than %d characters", service.ErrValidation, maxInstrumentNameLen)
	case !instrument.Category.Valid():
		return model.Instrument{}, fmt.Errorf("%w: unknown category %q", service.ErrValidation, instrument.Category)
	case !instrument.CurrentPrice.IsPositive():
		return model.Instrument{}, fmt.Errorf("%w: price must be positive", service.ErrValidation)
	case instrument.LastDistribution.IsNegative():
		return model.Instrument{}, fmt.Errorf("%w: last distribution can't be negative", service.ErrValidation)
	}

	instrument.ID = uuid.New()
	// a fresh instrument is refreshed by the next daily cycle
	instrument.UpdatedAt = time.Time{}

	err := s.repo.InsertInstrument(ctx, instrument)
	if err != nil {
		if errors.Is(err, repository.ErrAlreadyExists) {
			slog.Warn("instrument code already taken", slog.String("rqID", rqID), slog.String("op", op), slog.String("code", instrument.Code))
			return model.Instrument{}, fmt.Errorf("%w: instrument %s already exists", service.ErrValidation, instrument.Code)
		}
		slog.Error("got error from repo.InsertInstrument", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.Instrument{}, err
	}

	return instrument, nil
}

func (s *PortfolioService) GetInstrument(ctx context.Context, instrumentID uuid.UUID) (model.Instrument, error) {
	instrument, err := s.repo.GetInstrument(ctx, instrumentID)
	if err != nil {
		return model.Instrument{}, mapRepoErr(err)
	}
	return instrument, nil
}

func (s *PortfolioService) GetInstrumentByCode(ctx context.Context, code string) (model.Instrument, error) {
	instrument, err := s.repo.GetInstrumentByCode(ctx, strings.TrimSpace(code))
	if err != nil {
		return model.Instrument{}, mapRepoErr(err)
	}
	return instrument, nil
}

func (s *PortfolioService) ListInstruments(ctx context.Context) ([]model.Instrument, error) {
	return s.repo.GetInstruments(ctx)
}

func (s *PortfolioService) ListPositions(ctx context.Context) ([]model.Position, error) {
	return s.repo.GetPositions(ctx)
}

func (s *PortfolioService) ListTransactions(ctx context.Context, limit int) ([]model.Transaction, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be positive", service.ErrValidation)
	}
	return s.repo.GetTransactions(ctx, limit)
}

// RegisterPurchase appends a purchase and updates the position's weighted
// average cost in one database transaction.
func (s *PortfolioService) RegisterPurchase(ctx context.Context, instrumentID uuid.UUID, in TradeInput) (transaction model.Transaction, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.RegisterPurchase"

	slog.Debug("RegisterPurchase start", slog.String("rqID", rqID), slog.String("op", op), slog.String("instrumentID", instrumentID.String()))
	defer func() {
		if err != nil {
			slog.Error("RegisterPurchase failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Info("RegisterPurchase completed", slog.String("rqID", rqID), slog.String("op", op), slog.String("transactionID", transaction.ID.String()))
		}
	}()

	if err = in.validate(); err != nil {
		return model.Transaction{}, err
	}

	err = s.repo.WithinTransaction(ctx, func(ctx context.Context) error {
		instrument, err := s.repo.GetInstrument(ctx, instrumentID)
		if err != nil {
			return mapRepoErr(err)
		}

		position, err := s.lockPosition(ctx, instrument)
		if err != nil {
			return err
		}

		position.ApplyPurchase(in.Quantity, in.UnitPrice)
		position.UpdatedAt = s.now()
		if err = s.repo.UpsertPosition(ctx, position); err != nil {
			return err
		}

		transaction = model.Transaction{
			ID:           uuid.New(),
			InstrumentID: &instrument.ID,
			Kind:         model.TransactionPurchase,
			Quantity:     in.Quantity,
			UnitPrice:    in.UnitPrice,
			TotalValue:   in.Quantity.Mul(in.UnitPrice),
			Date:         in.Date,
			Note:         in.Note,
		}
		return s.repo.InsertTransaction(ctx, transaction)
	})
	if err != nil {
		return model.Transaction{}, err
	}

	return transaction, nil
}

// UpdateTransaction replaces the values of a transaction. For purchases the old
// effect on the position is reverted before the new one is applied.
func (s *PortfolioService) UpdateTransaction(ctx context.Context, transactionID uuid.UUID, in TradeInput) (transaction model.Transaction, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.UpdateTransaction"

	slog.Debug("UpdateTransaction start", slog.String("rqID", rqID), slog.String("op", op), slog.String("transactionID", transactionID.String()))
	defer func() {
		if err != nil {
			slog.Error("UpdateTransaction failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("UpdateTransaction completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	if err = in.validate(); err != nil {
		return model.Transaction{}, err
	}

	err = s.repo.WithinTransaction(ctx, func(ctx context.Context) error {
		old, err := s.repo.GetTransaction(ctx, transactionID)
		if err != nil {
			return mapRepoErr(err)
		}

		if old.Kind == model.TransactionPurchase && old.InstrumentID != nil {
			err = s.adjustPosition(ctx, *old.InstrumentID, func(p *model.Position) {
				p.RevertPurchase(old.Quantity, old.UnitPrice)
				p.ApplyPurchase(in.Quantity, in.UnitPrice)
			})
			if err != nil {
				return err
			}
		}

		transaction = old
		transaction.Quantity = in.Quantity
		transaction.UnitPrice = in.UnitPrice
		transaction.TotalValue = in.Quantity.Mul(in.UnitPrice)
		transaction.Date = in.Date
		transaction.Note = in.Note

		return mapRepoErr(s.repo.UpdateTransaction(ctx, transaction))
	})
	if err != nil {
		return model.Transaction{}, err
	}

	return transaction, nil
}

func (s *PortfolioService) DeleteTransaction(ctx context.Context, transactionID uuid.UUID) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.DeleteTransaction"

	slog.Debug("DeleteTransaction start", slog.String("rqID", rqID), slog.String("op", op), slog.String("transactionID", transactionID.String()))
	defer func() {
		if err != nil {
			slog.Error("DeleteTransaction failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("DeleteTransaction completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	return s.repo.WithinTransaction(ctx, func(ctx context.Context) error {
		old, err := s.repo.GetTransaction(ctx, transactionID)
		if err != nil {
			return mapRepoErr(err)
		}

		if old.Kind == model.TransactionPurchase && old.InstrumentID != nil {
			err = s.adjustPosition(ctx, *old.InstrumentID, func(p *model.Position) {
				p.RevertPurchase(old.Quantity, old.UnitPrice)
			})
			if err != nil {
				return err
			}
		}

		return mapRepoErr(s.repo.DeleteTransaction(ctx, transactionID))
	})
}

func (s *PortfolioService) RegisterContribution(ctx context.Context, amount decimal.Decimal, date time.Time, note string) (model.Transaction, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.RegisterContribution"

	if !amount.IsPositive() {
		return model.Transaction{}, fmt.Errorf("%w: amount must be positive", service.ErrValidation)
	}

	transaction := model.Transaction{
		ID:         uuid.New(),
		Kind:       model.TransactionContribution,
		Quantity:   decimal.NewFromInt(1),
		UnitPrice:  amount,
		TotalValue: amount,
		Date:       date,
		Note:       note,
	}

	if err := s.repo.InsertTransaction(ctx, transaction); err != nil {
		slog.Error("got error from repo.InsertTransaction", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.Transaction{}, err
	}

	slog.Info("contribution registered", slog.String("rqID", rqID), slog.String("op", op), slog.String("amount", amount.String()))

	return transaction, nil
}

// lockPosition returns the stored position or a new empty one for the instrument.
func (s *PortfolioService) lockPosition(ctx context.Context, instrument model.Instrument) (model.Position, error) {
	position, err := s.repo.GetPosition(ctx, instrument.ID)
	if err == nil {
		return position, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return model.Position{}, err
	}
	return model.Position{
		InstrumentID: instrument.ID,
		Code:         instrument.Code,
		Category:     instrument.Category,
		CurrentPrice: instrument.CurrentPrice,
	}, nil
}

func (s *PortfolioService) adjustPosition(ctx context.Context, instrumentID uuid.UUID, adjust func(p *model.Position)) error {
	instrument, err := s.repo.GetInstrument(ctx, instrumentID)
	if err != nil {
		return mapRepoErr(err)
	}

	position, err := s.lockPosition(ctx, instrument)
	if err != nil {
		return err
	}

	adjust(&position)
	position.UpdatedAt = s.now()

	return s.repo.UpsertPosition(ctx, position)
}

// GetSummary values the whole portfolio with the latest stored prices.
func (s *PortfolioService) GetSummary(ctx context.Context) (model.PortfolioSummary, error) {
	positions, instruments, err := s.load(ctx)
	if err != nil {
		return model.PortfolioSummary{}, err
	}
	return s.summary(ctx, positions, instruments), nil
}

func (s *PortfolioService) summary(ctx context.Context, positions []model.Position, instruments []model.Instrument) model.PortfolioSummary {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.summary"

	summary := model.PortfolioSummary{
		TotalValue:     model.TotalValue(positions).Round(2),
		PassiveIncome:  model.MonthlyPassiveIncome(positions, instruments, s.referenceCode).Round(2),
		PositionsCount: len(positions),
	}

	snapshot, err := s.repo.GetLastSnapshot(ctx)
	switch {
	case err == nil:
		summary.LastSnapshotDay = snapshot.Date
	case !errors.Is(err, repository.ErrNotFound):
		slog.Warn("can't get last snapshot", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
	}

	return summary
}

// GetPortfolioPage returns one page of positions. Pages start at 1.
func (s *PortfolioService) GetPortfolioPage(ctx context.Context, page int) (model.PortfolioPage, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.GetPortfolioPage"

	slog.Debug("GetPortfolioPage start", slog.String("rqID", rqID), slog.String("op", op), slog.Int("page", page))
	defer func() {
		slog.Debug("GetPortfolioPage finished", slog.String("rqID", rqID), slog.String("op", op), slog.Int("page", page))
	}()

	if page < 1 {
		page = 1
	}

	positions, instruments, err := s.load(ctx)
	if err != nil {
		return model.PortfolioPage{}, err
	}

	summary := s.summary(ctx, positions, instruments)
	totalPages := max(1, (len(positions)+s.pageSize-1)/s.pageSize)
	page = min(page, totalPages)

	pagePositions, _, err := s.repo.GetPositionsPage(ctx, s.pageSize, (page-1)*s.pageSize)
	if err != nil {
		slog.Error("got error from repo.GetPositionsPage", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.PortfolioPage{}, err
	}

	return model.PortfolioPage{
		PortfolioSummary: summary,
		CurPage:          page,
		TotalPages:       totalPages,
		Positions:        s.views(pagePositions, instruments, model.TotalValue(positions)),
	}, nil
}

// PositionViews enriches every position with instrument data and its share of the portfolio.
func (s *PortfolioService) PositionViews(ctx context.Context) ([]model.PositionView, model.PortfolioSummary, error) {
	positions, instruments, err := s.load(ctx)
	if err != nil {
		return nil, model.PortfolioSummary{}, err
	}
	return s.views(positions, instruments, model.TotalValue(positions)), s.summary(ctx, positions, instruments), nil
}

func (s *PortfolioService) views(positions []model.Position, instruments []model.Instrument, total decimal.Decimal) []model.PositionView {
	byID := make(map[uuid.UUID]model.Instrument, len(instruments))
	for _, inst := range instruments {
		byID[inst.ID] = inst
	}

	views := make([]model.PositionView, 0, len(positions))
	for _, p := range positions {
		view := model.PositionView{
			Position: p,
			Value:    p.Value().Round(2),
		}
		if inst, ok := byID[p.InstrumentID]; ok {
			view.Name = inst.Name
			view.ExpectedMonthlyReturnPercent = inst.ExpectedMonthlyReturnPercent
		}
		if total.IsPositive() {
			view.Percent = p.Value().Mul(hundred).Div(total).Round(2)
		}
		views = append(views, view)
	}

	return views
}

func (s *PortfolioService) load(ctx context.Context) ([]model.Position, []model.Instrument, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.load"

	positions, err := s.repo.GetPositions(ctx)
	if err != nil {
		slog.Error("got error from repo.GetPositions", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, nil, err
	}

	instruments, err := s.repo.GetInstruments(ctx)
	if err != nil {
		slog.Error("got error from repo.GetInstruments", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, nil, err
	}

	return positions, instruments, nil
}

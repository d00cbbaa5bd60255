package reportService

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/KotFed0t/liberdade/internal/model"
	"github.com/KotFed0t/liberdade/internal/service"
	"github.com/KotFed0t/liberdade/utils"
	"github.com/shopspring/decimal"
)

type Portfolio interface {
	PositionViews(ctx context.Context) ([]model.PositionView, model.PortfolioSummary, error)
	ListTransactions(ctx context.Context, limit int) ([]model.Transaction, error)
}

type Forecaster interface {
	Forecast(ctx context.Context, contribution, goal decimal.Decimal) (model.Forecast, error)
}

type Rebalancer interface {
	Recommend(ctx context.Context, contribution decimal.Decimal) ([]model.Recommendation, error)
}

type Generator interface {
	Generate(ctx context.Context, report model.Report) (fileBytes []byte, fileExtension string, err error)
}

type CloudStorage interface {
	UploadFile(ctx context.Context, reader io.Reader, filename string) (downloadLink string, err error)
}

type ReportService struct {
	portfolio         Portfolio
	forecaster        Forecaster
	rebalancer        Rebalancer
	generator         Generator
	storage           CloudStorage
	transactionsLimit int
	now               func() time.Time
}

func New(portfolio Portfolio, forecaster Forecaster, rebalancer Rebalancer, generator Generator, storage CloudStorage) *ReportService {
	return &ReportService{
		portfolio:         portfolio,
		forecaster:        forecaster,
		rebalancer:        rebalancer,
		generator:         generator,
		storage:           storage,
		transactionsLimit: 200,
		now:               time.Now,
	}
}

// BuildReport gathers positions, forecast, recommendations and recent
// transactions. Missing allocation targets leave the recommendations empty.
func (s *ReportService) BuildReport(ctx context.Context, contribution, goal decimal.Decimal) (model.Report, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "ReportService.BuildReport"

	slog.Debug("BuildReport start", slog.String("rqID", rqID), slog.String("op", op))
	defer func() {
		slog.Debug("BuildReport finished", slog.String("rqID", rqID), slog.String("op", op))
	}()

	positions, summary, err := s.portfolio.PositionViews(ctx)
	if err != nil {
		return model.Report{}, err
	}

	forecast, err := s.forecaster.Forecast(ctx, contribution, goal)
	if err != nil {
		return model.Report{}, err
	}

	recommendations, err := s.rebalancer.Recommend(ctx, contribution)
	if err != nil {
		if !errors.Is(err, service.ErrConfiguration) {
			return model.Report{}, err
		}
		slog.Warn("report built without recommendations", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
	}

	transactions, err := s.portfolio.ListTransactions(ctx, s.transactionsLimit)
	if err != nil {
		return model.Report{}, err
	}

	return model.Report{
		GeneratedAt:     s.now(),
		Summary:         summary,
		Positions:       positions,
		Forecast:        forecast,
		Recommendations: recommendations,
		Transactions:    transactions,
	}, nil
}

// GenerateReport renders the report into a file and names it by generation time.
func (s *ReportService) GenerateReport(ctx context.Context, contribution, goal decimal.Decimal) (fileBytes []byte, filename string, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "ReportService.GenerateReport"

	report, err := s.BuildReport(ctx, contribution, goal)
	if err != nil {
		slog.Error("can't build report", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, "", err
	}

	fileBytes, ext, err := s.generator.Generate(ctx, report)
	if err != nil {
		slog.Error("got error from generator.Generate", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, "", err
	}

	return fileBytes, fmt.Sprintf("liberdade_%s%s", report.GeneratedAt.Format("2006-01-02_1504"), ext), nil
}

// Upload stores a generated report in the cloud and returns its link.
func (s *ReportService) Upload(ctx context.Context, reader io.Reader, filename string) (string, error) {
	if s.storage == nil {
		return "", fmt.Errorf("%w: cloud storage is not configured", service.ErrConfiguration)
	}
	return s.storage.UploadFile(ctx, reader, filename)
}

package telebotConverter

import (
	"testing"
	"time"

	"github.com/KotFed0t/liberdade/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPortfolioPageResponse_Pagination(t *testing.T) {
	page := model.PortfolioPage{
		PortfolioSummary: model.PortfolioSummary{TotalValue: decimal.NewFromInt(10000), PassiveIncome: decimal.NewFromInt(96)},
		CurPage:          2,
		TotalPages:       3,
		Positions: []model.PositionView{{
			Position: model.Position{Code: "HGLG11", Quantity: decimal.NewFromInt(10), CurrentPrice: decimal.NewFromInt(160)},
			Name:     "CSHG Logística",
			Value:    decimal.NewFromInt(1600),
			Percent:  decimal.NewFromInt(16),
		}},
	}

	text, markup := PortfolioPageResponse(page)

	assert.Contains(t, text, "R$10.000,00")
	assert.Contains(t, text, "HGLG11 (CSHG Logística)")
	assert.Contains(t, text, "Página 2 de 3")

	require.Len(t, markup.InlineKeyboard, 2)
	pagination := markup.InlineKeyboard[0]
	require.Len(t, pagination, 2)
	assert.Equal(t, "positions_page", pagination[0].Unique)
	assert.Equal(t, "1", pagination[0].Data)
	assert.Equal(t, "3", pagination[1].Data)

	_, markup = PortfolioPageResponse(model.PortfolioPage{CurPage: 1, TotalPages: 1, Positions: page.Positions})
	assert.Len(t, markup.InlineKeyboard, 1)
}

func TestPortfolioPageResponse_Empty(t *testing.T) {
	text, markup := PortfolioPageResponse(model.PortfolioPage{CurPage: 1, TotalPages: 1})

	assert.Contains(t, text, "Nenhuma posição")
	assert.Empty(t, markup.InlineKeyboard)
}

func TestForecastResponse(t *testing.T) {
	forecast := model.Forecast{
		Goal:            decimal.NewFromInt(150),
		MonthsRemaining: 9,
		GoalDate:        time.Date(2025, 10, 31, 0, 0, 0, 0, time.UTC),
	}
	text, _ := ForecastResponse(forecast)
	assert.Contains(t, text, "Faltam 9 meses, previsão 31/10/2025")

	forecast.MonthsRemaining = 0
	text, _ = ForecastResponse(forecast)
	assert.Contains(t, text, "Meta alcançada")

	forecast.MonthsRemaining = 1200
	forecast.GoalDate = model.GoalNeverReached
	text, _ = ForecastResponse(forecast)
	assert.Contains(t, text, "não alcançada em 1200 meses")
}

func TestRecommendationsText(t *testing.T) {
	assert.Equal(t, "A carteira já está equilibrada.", RecommendationsText(nil, "R$500,00"))

	text := RecommendationsText([]model.Recommendation{
		{Category: model.CategoryReitPaper, Action: model.ActionBuy, InstrumentCode: "KNCR11", SuggestedAmount: decimal.NewFromInt(500)},
		{Category: model.CategoryEquities, Action: model.ActionSell, InstrumentCode: "ITSA4", SuggestedAmount: decimal.NewFromInt(200)},
	}, "R$500,00")

	assert.Contains(t, text, "🟢 Comprar KNCR11 R$500,00")
	assert.Contains(t, text, "🔴 Vender ITSA4 R$200,00")
}

func TestCycleReportText(t *testing.T) {
	date := time.Date(2025, 3, 12, 0, 0, 0, 0, time.UTC)

	skipped := CycleReportText(model.CycleReport{Date: date, Skipped: true, SkipReason: "not a business day"})
	assert.Contains(t, skipped, "Ignorada: not a business day")

	text := CycleReportText(model.CycleReport{
		Date: date,
		Outcomes: []model.ResolveOutcome{
			{Code: "HGLG11", Status: model.OutcomeUpdated},
			{Code: "KNCR11", Status: model.OutcomeFailed, Reason: "price unavailable"},
		},
		Snapshot: &model.NetWorthSnapshot{TotalValue: decimal.NewFromInt(9700), PassiveIncome: decimal.NewFromInt(96)},
	})
	assert.Contains(t, text, "Atualizados: 1, ignorados: 0, falhas: 1")
	assert.Contains(t, text, "KNCR11: price unavailable")
	assert.Contains(t, text, "R$9.700,00")
}

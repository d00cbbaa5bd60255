package xslsxGenerator

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/KotFed0t/liberdade/internal/model"
	"github.com/KotFed0t/liberdade/utils"
	"github.com/xuri/excelize/v2"
)

const (
	positionsSheet       = "Carteira"
	forecastSheet        = "Projeção"
	recommendationsSheet = "Rebalanceamento"
	transactionsSheet    = "Operações"

	dateLayout = "02/01/2006"
)

type XSLSXGenerator struct{}

func New() *XSLSXGenerator {
	return &XSLSXGenerator{}
}

func (g *XSLSXGenerator) Generate(ctx context.Context, report model.Report) (fileBytes []byte, fileExtension string, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "XSLSXGenerator.Generate"

	slog.Debug("Generate start", slog.String("rqID", rqID), slog.String("op", op))

	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			slog.Error("got error while closing file", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		}
	}()

	fillers := []struct {
		sheet string
		fill  func(f *excelize.File, sheet string, report model.Report) error
	}{
		{positionsSheet, g.fillPositions},
		{forecastSheet, g.fillForecast},
		{recommendationsSheet, g.fillRecommendations},
		{transactionsSheet, g.fillTransactions},
	}

	for _, filler := range fillers {
		if _, err := f.NewSheet(filler.sheet); err != nil {
			slog.Error("got error while creating NewSheet", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
			return nil, "", err
		}
		if err := filler.fill(f, filler.sheet, report); err != nil {
			slog.Error("got error while filling sheet", slog.String("rqID", rqID), slog.String("op", op), slog.String("sheet", filler.sheet), slog.String("err", err.Error()))
			return nil, "", err
		}
	}

	// drop the default sheet
	if err := f.DeleteSheet("Sheet1"); err != nil {
		slog.Error("got error while deleting Sheet1", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		slog.Error("got error while Saving file to bytes buffer", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, "", err
	}

	slog.Debug("Generate completed", slog.String("rqID", rqID), slog.String("op", op))

	return buf.Bytes(), ".xlsx", nil
}

// section writes a merged, colored title over the given cell range.
func section(f *excelize.File, sheet, from, to, title, color string) error {
	if from != to {
		if err := f.MergeCell(sheet, from, to); err != nil {
			return err
		}
	}

	if err := f.SetCellStr(sheet, from, title); err != nil {
		return err
	}

	styleID, err := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
		Font: &excelize.Font{
			Bold: true,
			Size: 11,
		},
		Fill: excelize.Fill{
			Type:    "pattern",
			Pattern: 1,
			Color:   []string{color},
		},
	})
	if err != nil {
		return err
	}

	if err := f.SetCellStyle(sheet, from, from, styleID); err != nil {
		return fmt.Errorf("apply style: %w", err)
	}

	return nil
}

func headers(f *excelize.File, sheet string, row int, titles ...string) {
	for i, title := range titles {
		cell, _ := excelize.CoordinatesToCellName(i+1, row)
		_ = f.SetCellStr(sheet, cell, title)
	}
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}

func (g *XSLSXGenerator) fillPositions(f *excelize.File, sheet string, report model.Report) error {
	if err := section(f, sheet, "A1", "D1", "Resumo", "#cfe2f3"); err != nil {
		return err
	}

	_ = f.SetCellStr(sheet, "A2", "patrimônio")
	_ = f.SetCellStr(sheet, "B2", utils.FormatMoney(report.Summary.TotalValue))
	_ = f.SetCellStr(sheet, "C2", "renda passiva mensal")
	_ = f.SetCellStr(sheet, "D2", utils.FormatMoney(report.Summary.PassiveIncome))
	_ = f.SetCellStr(sheet, "A3", "gerado em")
	_ = f.SetCellStr(sheet, "B3", report.GeneratedAt.Format("02/01/2006 15:04"))

	if err := section(f, sheet, "A5", "I5", "Posições", "#d9ead3"); err != nil {
		return err
	}

	headers(f, sheet, 6, "código", "nome", "categoria", "quantidade", "preço médio", "preço atual", "valor", "peso %", "retorno mensal %")

	for i, p := range report.Positions {
		row := i + 7
		_ = f.SetCellStr(sheet, cell("A", row), p.Code)
		_ = f.SetCellStr(sheet, cell("B", row), p.Name)
		_ = f.SetCellStr(sheet, cell("C", row), string(p.Category))
		_ = f.SetCellValue(sheet, cell("D", row), p.Quantity.InexactFloat64())
		_ = f.SetCellValue(sheet, cell("E", row), p.AverageCost.Round(2).InexactFloat64())
		_ = f.SetCellValue(sheet, cell("F", row), p.CurrentPrice.InexactFloat64())
		_ = f.SetCellValue(sheet, cell("G", row), p.Value.InexactFloat64())
		_ = f.SetCellValue(sheet, cell("H", row), p.Percent.InexactFloat64())
		_ = f.SetCellValue(sheet, cell("I", row), p.ExpectedMonthlyReturnPercent.Round(4).InexactFloat64())
	}

	return nil
}

func (g *XSLSXGenerator) fillForecast(f *excelize.File, sheet string, report model.Report) error {
	forecast := report.Forecast

	if err := section(f, sheet, "A1", "B1", "Meta", "#f9cb9c"); err != nil {
		return err
	}

	goalDate := "não alcançada"
	if forecast.Reachable() {
		goalDate = forecast.GoalDate.Format(dateLayout)
	}

	rows := [][2]string{
		{"patrimônio atual", utils.FormatMoney(forecast.CurrentNetWorth)},
		{"renda passiva atual", utils.FormatMoney(forecast.CurrentPassiveIncome)},
		{"meta mensal", utils.FormatMoney(forecast.Goal)},
		{"aporte mensal", utils.FormatMoney(forecast.MonthlyContribution)},
		{"taxa mensal", utils.FormatPercent(forecast.MonthlyRatePercent)},
		{"patrimônio necessário", utils.FormatMoney(forecast.RequiredNetWorth)},
		{"meses restantes", fmt.Sprintf("%d", forecast.MonthsRemaining)},
		{"data da meta", goalDate},
	}
	for i, r := range rows {
		_ = f.SetCellStr(sheet, cell("A", i+2), r[0])
		_ = f.SetCellStr(sheet, cell("B", i+2), r[1])
	}

	start := len(rows) + 4
	if err := section(f, sheet, cell("A", start), cell("D", start), "Evolução no mês", "#d9ead3"); err != nil {
		return err
	}

	headers(f, sheet, start+1, "dias", "data", "saldo", "renda implícita")

	for i, p := range forecast.Evolution {
		row := start + 2 + i
		_ = f.SetCellValue(sheet, cell("A", row), p.ElapsedDays)
		_ = f.SetCellStr(sheet, cell("B", row), p.Date.Format(dateLayout))
		_ = f.SetCellValue(sheet, cell("C", row), p.Balance.InexactFloat64())
		_ = f.SetCellValue(sheet, cell("D", row), p.ImpliedMonthlyIncome.InexactFloat64())
	}

	return nil
}

func (g *XSLSXGenerator) fillRecommendations(f *excelize.File, sheet string, report model.Report) error {
	if err := section(f, sheet, "A1", "H1", "Rebalanceamento", "#f4cccc"); err != nil {
		return err
	}

	headers(f, sheet, 2, "categoria", "ação", "código", "valor", "quantidade", "atual", "alvo", "alvo %")

	for i, r := range report.Recommendations {
		row := i + 3
		_ = f.SetCellStr(sheet, cell("A", row), string(r.Category))
		_ = f.SetCellStr(sheet, cell("B", row), string(r.Action))
		_ = f.SetCellStr(sheet, cell("C", row), r.InstrumentCode)
		_ = f.SetCellValue(sheet, cell("D", row), r.SuggestedAmount.InexactFloat64())
		_ = f.SetCellValue(sheet, cell("E", row), r.SuggestedQuantity.InexactFloat64())
		_ = f.SetCellValue(sheet, cell("F", row), r.CurrentValue.InexactFloat64())
		_ = f.SetCellValue(sheet, cell("G", row), r.TargetValue.InexactFloat64())
		_ = f.SetCellValue(sheet, cell("H", row), r.TargetPercent.InexactFloat64())
	}

	return nil
}

func (g *XSLSXGenerator) fillTransactions(f *excelize.File, sheet string, report model.Report) error {
	if err := section(f, sheet, "A1", "F1", "Histórico de operações", "#cccccc"); err != nil {
		return err
	}

	headers(f, sheet, 2, "data", "tipo", "quantidade", "preço", "total", "nota")

	for i, tx := range report.Transactions {
		row := i + 3
		_ = f.SetCellStr(sheet, cell("A", row), tx.Date.Format(dateLayout))
		_ = f.SetCellStr(sheet, cell("B", row), string(tx.Kind))
		_ = f.SetCellValue(sheet, cell("C", row), tx.Quantity.InexactFloat64())
		_ = f.SetCellValue(sheet, cell("D", row), tx.UnitPrice.InexactFloat64())
		_ = f.SetCellValue(sheet, cell("E", row), tx.TotalValue.InexactFloat64())
		_ = f.SetCellStr(sheet, cell("F", row), tx.Note)
	}

	return nil
}

package telebotConverter

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/KotFed0t/liberdade/internal/model"
	"github.com/KotFed0t/liberdade/internal/model/tg/tgCallback"
	"github.com/KotFed0t/liberdade/utils"
	tele "gopkg.in/telebot.v4"
)

const dateLayout = "02/01/2006"

func StartText() string {
	var sb strings.Builder
	sb.WriteString("Olá! Eu acompanho a sua carteira rumo à liberdade financeira.\n\n")
	sb.WriteString("/carteira - posições e patrimônio\n")
	sb.WriteString("/projecao [aporte] [meta] - quando a renda passiva alcança a meta\n")
	sb.WriteString("/configurar - definir aporte e meta padrão\n")
	sb.WriteString("/rebalancear [valor] - onde investir o próximo aporte\n")
	sb.WriteString("/comprar CÓDIGO QTD PREÇO - registrar compra\n")
	sb.WriteString("/aporte VALOR - registrar aporte em dinheiro\n")
	sb.WriteString("/atualizar - atualizar cotações agora\n")
	sb.WriteString("/relatorio - planilha completa\n")
	return sb.String()
}

func PortfolioPageResponse(page model.PortfolioPage) (text string, markup *tele.ReplyMarkup) {
	markup = &tele.ReplyMarkup{}
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("📊 Patrimônio: %s\n", utils.FormatMoney(page.TotalValue)))
	sb.WriteString(fmt.Sprintf("💸 Renda passiva mensal: %s\n", utils.FormatMoney(page.PassiveIncome)))
	if !page.LastSnapshotDay.IsZero() {
		sb.WriteString(fmt.Sprintf("🗓 Última atualização: %s\n", page.LastSnapshotDay.Format(dateLayout)))
	}
	sb.WriteString("\n")

	if len(page.Positions) == 0 {
		sb.WriteString("Nenhuma posição cadastrada.")
		return sb.String(), markup
	}

	for _, p := range page.Positions {
		sb.WriteString(fmt.Sprintf("▪️ %s (%s)\n", p.Code, p.Name))
		sb.WriteString(fmt.Sprintf("   ▸ Qtd: %s\n", p.Quantity.String()))
		sb.WriteString(fmt.Sprintf("   ▸ Preço: %s (médio %s)\n", utils.FormatMoney(p.CurrentPrice), utils.FormatMoney(p.AverageCost)))
		sb.WriteString(fmt.Sprintf("   ▸ Valor: %s\n", utils.FormatMoney(p.Value)))
		sb.WriteString(fmt.Sprintf("   ▸ Peso: %s\n\n", utils.FormatPercent(p.Percent)))
	}

	sb.WriteString(fmt.Sprintf("Página %d de %d", page.CurPage, page.TotalPages))

	paginationBtns := make([]tele.Btn, 0, 2)
	if page.CurPage > 1 {
		paginationBtns = append(paginationBtns, markup.Data("⬅️ anterior", tgCallback.PositionsPage, strconv.Itoa(page.CurPage-1)))
	}
	if page.CurPage < page.TotalPages {
		paginationBtns = append(paginationBtns, markup.Data("próxima ➡️", tgCallback.PositionsPage, strconv.Itoa(page.CurPage+1)))
	}

	rows := make([]tele.Row, 0, 2)
	if len(paginationBtns) > 0 {
		rows = append(rows, markup.Row(paginationBtns...))
	}
	rows = append(rows, markup.Row(markup.Data("📈 Projeção", tgCallback.RefreshForecast), markup.Data("⚖️ Rebalancear", tgCallback.ShowRebalance)))
	markup.Inline(rows...)

	return sb.String(), markup
}

func ForecastResponse(forecast model.Forecast) (text string, markup *tele.ReplyMarkup) {
	markup = &tele.ReplyMarkup{}
	var sb strings.Builder

	sb.WriteString("📈 Projeção\n\n")
	sb.WriteString(fmt.Sprintf("Patrimônio atual: %s\n", utils.FormatMoney(forecast.CurrentNetWorth)))
	sb.WriteString(fmt.Sprintf("Renda passiva atual: %s\n", utils.FormatMoney(forecast.CurrentPassiveIncome)))
	sb.WriteString(fmt.Sprintf("Meta mensal: %s\n", utils.FormatMoney(forecast.Goal)))
	sb.WriteString(fmt.Sprintf("Aporte mensal: %s\n", utils.FormatMoney(forecast.MonthlyContribution)))
	sb.WriteString(fmt.Sprintf("Taxa mensal: %s\n", utils.FormatPercent(forecast.MonthlyRatePercent)))
	sb.WriteString(fmt.Sprintf("Patrimônio necessário: %s\n\n", utils.FormatMoney(forecast.RequiredNetWorth)))

	switch {
	case forecast.MonthsRemaining == 0:
		sb.WriteString("🎉 Meta alcançada!")
	case !forecast.Reachable():
		sb.WriteString(fmt.Sprintf("⚠️ Meta não alcançada em %d meses.", forecast.MonthsRemaining))
	default:
		sb.WriteString(fmt.Sprintf("🏁 Faltam %d meses, previsão %s.", forecast.MonthsRemaining, forecast.GoalDate.Format(dateLayout)))
	}

	if n := len(forecast.Evolution); n > 0 {
		last := forecast.Evolution[n-1]
		sb.WriteString(fmt.Sprintf("\n\nFim do mês: %s (renda implícita %s)", utils.FormatMoney(last.Balance), utils.FormatMoney(last.ImpliedMonthlyIncome)))
	}

	markup.Inline(markup.Row(markup.Data("⚙️ Alterar aporte e meta", tgCallback.ResetPreferences)))

	return sb.String(), markup
}

func RecommendationsText(recommendations []model.Recommendation, contribution string) string {
	if len(recommendations) == 0 {
		return "A carteira já está equilibrada."
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("⚖️ Rebalanceamento com aporte de %s\n\n", contribution))
	for _, r := range recommendations {
		icon := "🟢"
		if r.Action == model.ActionSell {
			icon = "🔴"
		}
		sb.WriteString(fmt.Sprintf("%s %s %s %s\n", icon, actionText(r.Action), r.InstrumentCode, utils.FormatMoney(r.SuggestedAmount)))
		if r.SuggestedQuantity.IsPositive() {
			sb.WriteString(fmt.Sprintf("   ▸ ~%s cotas a %s\n", r.SuggestedQuantity.String(), utils.FormatMoney(r.ReferencePrice)))
		}
		sb.WriteString(fmt.Sprintf("   ▸ %s: %s de %s\n", r.Category, utils.FormatPercent(r.CurrentPercent), utils.FormatPercent(r.TargetPercent)))
	}
	return sb.String()
}

func actionText(a model.Action) string {
	if a == model.ActionSell {
		return "Vender"
	}
	return "Comprar"
}

func PurchaseText(instrument model.Instrument, tx model.Transaction) string {
	return fmt.Sprintf(
		"✅ Compra registrada: %s %s x %s = %s em %s",
		instrument.Code, tx.Quantity.String(), utils.FormatMoney(tx.UnitPrice), utils.FormatMoney(tx.TotalValue), tx.Date.Format(dateLayout),
	)
}

func ContributionText(tx model.Transaction) string {
	return fmt.Sprintf("✅ Aporte de %s registrado em %s", utils.FormatMoney(tx.TotalValue), tx.Date.Format(dateLayout))
}

func CycleReportText(report model.CycleReport) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("🔄 Atualização de %s\n", report.Date.Format(dateLayout)))

	if report.Skipped {
		sb.WriteString(fmt.Sprintf("Ignorada: %s", report.SkipReason))
		return sb.String()
	}

	sb.WriteString(fmt.Sprintf(
		"Atualizados: %d, ignorados: %d, falhas: %d\n",
		report.Count(model.OutcomeUpdated), report.Count(model.OutcomeSkipped), report.Count(model.OutcomeFailed),
	))

	for _, o := range report.Outcomes {
		if o.Status == model.OutcomeFailed {
			sb.WriteString(fmt.Sprintf("   ▸ %s: %s\n", o.Code, o.Reason))
		}
	}

	if report.Snapshot != nil {
		sb.WriteString(fmt.Sprintf(
			"\nPatrimônio: %s\nRenda passiva: %s",
			utils.FormatMoney(report.Snapshot.TotalValue), utils.FormatMoney(report.Snapshot.PassiveIncome),
		))
	}

	return sb.String()
}

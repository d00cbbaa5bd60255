package telegram

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/KotFed0t/liberdade/config"
	"github.com/KotFed0t/liberdade/data/session"
	"github.com/KotFed0t/liberdade/internal/converter/telebotConverter"
	"github.com/KotFed0t/liberdade/internal/model"
	"github.com/KotFed0t/liberdade/internal/service"
	"github.com/KotFed0t/liberdade/internal/service/portfolioService"
	"github.com/KotFed0t/liberdade/utils"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	tele "gopkg.in/telebot.v4"
)

const (
	internalErrMsg  = "Algo deu errado... tente novamente mais tarde"
	invalidValueMsg = "Valor inválido, use por exemplo 1.500,00"
	dateLayout      = "02/01/2006"
)

type PortfolioService interface {
	GetPortfolioPage(ctx context.Context, page int) (model.PortfolioPage, error)
	GetInstrumentByCode(ctx context.Context, code string) (model.Instrument, error)
	RegisterPurchase(ctx context.Context, instrumentID uuid.UUID, in portfolioService.TradeInput) (model.Transaction, error)
	RegisterContribution(ctx context.Context, amount decimal.Decimal, date time.Time, note string) (model.Transaction, error)
}

type ForecastService interface {
	Forecast(ctx context.Context, contribution, goal decimal.Decimal) (model.Forecast, error)
}

type RebalanceService interface {
	Recommend(ctx context.Context, contribution decimal.Decimal) ([]model.Recommendation, error)
}

type ReportService interface {
	GenerateReport(ctx context.Context, contribution, goal decimal.Decimal) (fileBytes []byte, filename string, err error)
	Upload(ctx context.Context, reader io.Reader, filename string) (string, error)
}

type DailyUpdateService interface {
	RunDailyCycle(ctx context.Context, now time.Time, force bool) (model.CycleReport, error)
}

type Session interface {
	GetSession(ctx context.Context, key string) (model.Session, error)
	SetSession(ctx context.Context, key string, session model.Session) error
}

type Controller struct {
	cfg          *config.Config
	portfolio    PortfolioService
	forecaster   ForecastService
	rebalancer   RebalanceService
	reports      ReportService
	dailyUpdates DailyUpdateService
	session      Session
}

func NewController(
	cfg *config.Config,
	portfolio PortfolioService,
	forecaster ForecastService,
	rebalancer RebalanceService,
	reports ReportService,
	dailyUpdates DailyUpdateService,
	session Session,
) *Controller {
	return &Controller{
		cfg:          cfg,
		portfolio:    portfolio,
		forecaster:   forecaster,
		rebalancer:   rebalancer,
		reports:      reports,
		dailyUpdates: dailyUpdates,
		session:      session,
	}
}

func (ctrl *Controller) Start(c tele.Context) error {
	return c.Send(telebotConverter.StartText())
}

func (ctrl *Controller) Positions(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)
	rqID := utils.GetRequestIDFromCtx(ctx)

	page, err := ctrl.portfolio.GetPortfolioPage(ctx, 1)
	if err != nil {
		slog.Error("got error from portfolio.GetPortfolioPage", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return c.Send(internalErrMsg)
	}

	return c.Send(telebotConverter.PortfolioPageResponse(page))
}

func (ctrl *Controller) PositionsPage(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)
	rqID := utils.GetRequestIDFromCtx(ctx)
	defer func() { _ = c.Respond() }()

	pageNum, err := strconv.Atoi(c.Callback().Data)
	if err != nil {
		slog.Error("invalid page in callback", slog.String("rqID", rqID), slog.String("data", c.Callback().Data))
		return c.Send(internalErrMsg)
	}

	page, err := ctrl.portfolio.GetPortfolioPage(ctx, pageNum)
	if err != nil {
		slog.Error("got error from portfolio.GetPortfolioPage", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return c.Send(internalErrMsg)
	}

	return c.Edit(telebotConverter.PortfolioPageResponse(page))
}

// Forecast answers "/projecao [aporte] [meta]". Given values are remembered for the chat.
func (ctrl *Controller) Forecast(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)
	rqID := utils.GetRequestIDFromCtx(ctx)

	chatSession, err := ctrl.getSessionFromTeleCtxOrStorage(ctx, c)
	if err != nil && !errors.Is(err, session.ErrNotFound) {
		return c.Send(internalErrMsg)
	}

	args := c.Args()
	if len(args) > 0 {
		contribution, ok := parseAmount(args[0], true)
		if !ok {
			return c.Send(invalidValueMsg)
		}
		chatSession.Contribution = &contribution
	}
	if len(args) > 1 {
		goal, ok := parseAmount(args[1], false)
		if !ok {
			return c.Send(invalidValueMsg)
		}
		chatSession.Goal = &goal
	}

	if len(args) > 0 {
		chatSession.Action = model.DefaultAction
		if err := ctrl.session.SetSession(ctx, chatKey(c), chatSession); err != nil {
			slog.Error("got error from session.SetSession", slog.String("rqID", rqID), slog.String("err", err.Error()))
		}
	}

	return ctrl.sendForecast(ctx, c, chatSession)
}

func (ctrl *Controller) RefreshForecast(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)
	defer func() { _ = c.Respond() }()

	chatSession, err := ctrl.getSessionFromTeleCtxOrStorage(ctx, c)
	if err != nil && !errors.Is(err, session.ErrNotFound) {
		return c.Send(internalErrMsg)
	}

	return ctrl.sendForecast(ctx, c, chatSession)
}

func (ctrl *Controller) sendForecast(ctx context.Context, c tele.Context, chatSession model.Session) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	contribution, goal := ctrl.preferences(chatSession)

	forecast, err := ctrl.forecaster.Forecast(ctx, contribution, goal)
	if err != nil {
		slog.Error("got error from forecaster.Forecast", slog.String("rqID", rqID), slog.String("err", err.Error()))
		if errors.Is(err, service.ErrValidation) {
			return c.Send("Não foi possível projetar: a taxa de retorno mensal não é positiva")
		}
		return c.Send(internalErrMsg)
	}

	return c.Send(telebotConverter.ForecastResponse(forecast))
}

// InitPreferences starts the dialogue that asks for contribution and goal.
func (ctrl *Controller) InitPreferences(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)
	rqID := utils.GetRequestIDFromCtx(ctx)
	if c.Callback() != nil {
		defer func() { _ = c.Respond() }()
	}

	chatSession, err := ctrl.getSessionFromTeleCtxOrStorage(ctx, c)
	if err != nil && !errors.Is(err, session.ErrNotFound) {
		return c.Send(internalErrMsg)
	}

	chatSession.Action = model.ExpectingContribution
	if err := ctrl.session.SetSession(ctx, chatKey(c), chatSession); err != nil {
		slog.Error("got error from session.SetSession", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return c.Send(internalErrMsg)
	}

	return c.Send("Quanto você aporta por mês?")
}

func (ctrl *Controller) ProcessContribution(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)
	rqID := utils.GetRequestIDFromCtx(ctx)

	chatSession, err := ctrl.getSessionFromTeleCtxOrStorage(ctx, c)
	if err != nil {
		return c.Send(internalErrMsg)
	}

	contribution, ok := parseAmount(c.Text(), true)
	if !ok {
		return c.Send(invalidValueMsg)
	}

	chatSession.Contribution = &contribution
	chatSession.Action = model.ExpectingGoal
	if err := ctrl.session.SetSession(ctx, chatKey(c), chatSession); err != nil {
		slog.Error("got error from session.SetSession", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return c.Send(internalErrMsg)
	}

	return c.Send("Qual renda passiva mensal você quer alcançar?")
}

func (ctrl *Controller) ProcessGoal(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)
	rqID := utils.GetRequestIDFromCtx(ctx)

	chatSession, err := ctrl.getSessionFromTeleCtxOrStorage(ctx, c)
	if err != nil {
		return c.Send(internalErrMsg)
	}

	goal, ok := parseAmount(c.Text(), false)
	if !ok {
		return c.Send(invalidValueMsg)
	}

	chatSession.Goal = &goal
	chatSession.Action = model.DefaultAction
	if err := ctrl.session.SetSession(ctx, chatKey(c), chatSession); err != nil {
		slog.Error("got error from session.SetSession", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return c.Send(internalErrMsg)
	}

	return ctrl.sendForecast(ctx, c, chatSession)
}

// Rebalance answers "/rebalancear [valor]", defaulting to the remembered contribution.
func (ctrl *Controller) Rebalance(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)
	if c.Callback() != nil {
		defer func() { _ = c.Respond() }()
	}

	chatSession, err := ctrl.getSessionFromTeleCtxOrStorage(ctx, c)
	if err != nil && !errors.Is(err, session.ErrNotFound) {
		return c.Send(internalErrMsg)
	}
	contribution, _ := ctrl.preferences(chatSession)

	if args := c.Args(); len(args) > 0 && c.Callback() == nil {
		amount, ok := parseAmount(args[0], true)
		if !ok {
			return c.Send(invalidValueMsg)
		}
		contribution = amount
	}

	return ctrl.sendRecommendations(ctx, c, contribution)
}

func (ctrl *Controller) sendRecommendations(ctx context.Context, c tele.Context, contribution decimal.Decimal) error {
	rqID := utils.GetRequestIDFromCtx(ctx)

	recommendations, err := ctrl.rebalancer.Recommend(ctx, contribution)
	if err != nil {
		slog.Error("got error from rebalancer.Recommend", slog.String("rqID", rqID), slog.String("err", err.Error()))
		if errors.Is(err, service.ErrConfiguration) {
			return c.Send("Nenhuma alocação alvo ativa cadastrada")
		}
		return c.Send(internalErrMsg)
	}

	return c.Send(telebotConverter.RecommendationsText(recommendations, utils.FormatMoney(contribution)))
}

// Buy answers "/comprar CÓDIGO QTD PREÇO [DD/MM/AAAA]".
func (ctrl *Controller) Buy(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)
	rqID := utils.GetRequestIDFromCtx(ctx)

	code, in, err := parseBuyArgs(c.Args(), time.Now().In(ctrl.cfg.Location()))
	if err != nil {
		return c.Send("Use: /comprar CÓDIGO QTD PREÇO [DD/MM/AAAA]")
	}

	instrument, err := ctrl.portfolio.GetInstrumentByCode(ctx, code)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			return c.Send(fmt.Sprintf("Instrumento %s não cadastrado", code))
		}
		slog.Error("got error from portfolio.GetInstrumentByCode", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return c.Send(internalErrMsg)
	}

	tx, err := ctrl.portfolio.RegisterPurchase(ctx, instrument.ID, in)
	if err != nil {
		if errors.Is(err, service.ErrValidation) {
			return c.Send("Quantidade e preço devem ser positivos")
		}
		slog.Error("got error from portfolio.RegisterPurchase", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return c.Send(internalErrMsg)
	}

	return c.Send(telebotConverter.PurchaseText(instrument, tx))
}

// Contribute answers "/aporte VALOR".
func (ctrl *Controller) Contribute(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)
	rqID := utils.GetRequestIDFromCtx(ctx)

	args := c.Args()
	if len(args) == 0 {
		return c.Send("Use: /aporte VALOR")
	}
	amount, ok := parseAmount(args[0], false)
	if !ok {
		return c.Send(invalidValueMsg)
	}

	tx, err := ctrl.portfolio.RegisterContribution(ctx, amount, time.Now().In(ctrl.cfg.Location()), strings.Join(args[1:], " "))
	if err != nil {
		slog.Error("got error from portfolio.RegisterContribution", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return c.Send(internalErrMsg)
	}

	return c.Send(telebotConverter.ContributionText(tx))
}

// Update forces a daily cycle, ignoring the business-day check.
func (ctrl *Controller) Update(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)
	rqID := utils.GetRequestIDFromCtx(ctx)

	_ = c.Notify(tele.Typing)

	report, err := ctrl.dailyUpdates.RunDailyCycle(ctx, time.Now(), true)
	if err != nil {
		if errors.Is(err, service.ErrCycleInProgress) {
			return c.Send("Uma atualização já está em andamento")
		}
		slog.Error("got error from dailyUpdates.RunDailyCycle", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return c.Send(internalErrMsg)
	}

	return c.Send(telebotConverter.CycleReportText(report))
}

// Report sends the spreadsheet, through cloud storage when it exceeds the telegram file limit.
func (ctrl *Controller) Report(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)
	rqID := utils.GetRequestIDFromCtx(ctx)

	_ = c.Notify(tele.UploadingDocument)

	chatSession, err := ctrl.getSessionFromTeleCtxOrStorage(ctx, c)
	if err != nil && !errors.Is(err, session.ErrNotFound) {
		return c.Send(internalErrMsg)
	}
	contribution, goal := ctrl.preferences(chatSession)

	fileBytes, filename, err := ctrl.reports.GenerateReport(ctx, contribution, goal)
	if err != nil {
		slog.Error("got error from reports.GenerateReport", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return c.Send(internalErrMsg)
	}

	if ctrl.cfg.Telegram.FileLimitInBytes > 0 && len(fileBytes) > ctrl.cfg.Telegram.FileLimitInBytes {
		link, err := ctrl.reports.Upload(ctx, bytes.NewReader(fileBytes), filename)
		if err != nil {
			slog.Error("got error from reports.Upload", slog.String("rqID", rqID), slog.String("err", err.Error()))
			return c.Send("O relatório é grande demais para o telegram")
		}
		return c.Send(fmt.Sprintf("📎 Relatório: %s", link))
	}

	doc := &tele.Document{
		File:     tele.FromReader(bytes.NewReader(fileBytes)),
		FileName: filename,
	}
	return c.Send(doc)
}

func (ctrl *Controller) getSessionFromTeleCtxOrStorage(ctx context.Context, c tele.Context) (model.Session, error) {
	chatSession, ok := c.Get("session").(model.Session)
	if ok {
		return chatSession, nil
	}

	rqID := utils.GetRequestIDFromCtx(ctx)
	chatSession, err := ctrl.session.GetSession(ctx, chatKey(c))
	if err != nil {
		if !errors.Is(err, session.ErrNotFound) {
			slog.Error("got error from session.GetSession", slog.String("rqID", rqID), slog.String("err", err.Error()))
		}
		return model.Session{}, err
	}
	return chatSession, nil
}

// preferences falls back to the configured defaults for values the chat never set.
func (ctrl *Controller) preferences(chatSession model.Session) (contribution, goal decimal.Decimal) {
	contribution = ctrl.cfg.Forecast.DefaultContribution
	goal = ctrl.cfg.Forecast.DefaultGoal
	if chatSession.Contribution != nil {
		contribution = *chatSession.Contribution
	}
	if chatSession.Goal != nil {
		goal = *chatSession.Goal
	}
	return contribution, goal
}

func chatKey(c tele.Context) string {
	return strconv.FormatInt(c.Chat().ID, 10)
}

func parseAmount(raw string, allowZero bool) (decimal.Decimal, bool) {
	v, ok := utils.ParseLocaleDecimal(raw)
	if !ok || v.IsNegative() || (!allowZero && v.IsZero()) {
		return decimal.Zero, false
	}
	return v, true
}

func parseBuyArgs(args []string, now time.Time) (string, portfolioService.TradeInput, error) {
	if len(args) < 3 {
		return "", portfolioService.TradeInput{}, errors.New("not enough arguments")
	}

	quantity, ok := parseAmount(args[1], false)
	if !ok {
		return "", portfolioService.TradeInput{}, fmt.Errorf("invalid quantity %q", args[1])
	}
	price, ok := parseAmount(args[2], false)
	if !ok {
		return "", portfolioService.TradeInput{}, fmt.Errorf("invalid price %q", args[2])
	}

	date := now
	if len(args) > 3 {
		parsed, err := time.ParseInLocation(dateLayout, args[3], now.Location())
		if err != nil {
			return "", portfolioService.TradeInput{}, fmt.Errorf("invalid date %q: %w", args[3], err)
		}
		date = parsed
	}

	return strings.ToUpper(args[0]), portfolioService.TradeInput{Quantity: quantity, UnitPrice: price, Date: date}, nil
}

package tgbot

import (
	"context"
	"errors"
	"log/slog"
	"strconv"

	"github.com/KotFed0t/liberdade/config"
	"github.com/KotFed0t/liberdade/data/session"
	"github.com/KotFed0t/liberdade/internal/converter/telebotConverter"
	"github.com/KotFed0t/liberdade/internal/model"
	"github.com/KotFed0t/liberdade/internal/model/tg/tgCallback"
	"github.com/KotFed0t/liberdade/internal/transport/telegram"
	customMW "github.com/KotFed0t/liberdade/internal/transport/telegram/middleware"
	"github.com/KotFed0t/liberdade/utils"
	tele "gopkg.in/telebot.v4"
	"gopkg.in/telebot.v4/middleware"
)

type Session interface {
	GetSession(ctx context.Context, key string) (model.Session, error)
	SetSession(ctx context.Context, key string, session model.Session) error
}

type TGBot struct {
	bot         *tele.Bot
	ctrl        *telegram.Controller
	session     Session
	ownerChatID int64
}

func New(cfg *config.Config, ctrl *telegram.Controller, session Session) *TGBot {
	settings := tele.Settings{
		Token:  cfg.Telegram.Token,
		Poller: &tele.LongPoller{Timeout: cfg.Telegram.UpdTimeout},
	}

	b, err := tele.NewBot(settings)
	if err != nil {
		slog.Error("error while tele.NewBot", slog.String("err", err.Error()))
		panic(err)
	}

	return &TGBot{bot: b, ctrl: ctrl, session: session, ownerChatID: cfg.Telegram.OwnerChatID}
}

func (b *TGBot) Start() {
	b.bot.Use(middleware.Recover(), customMW.Logger(), customMW.OwnerOnly(b.ownerChatID))

	b.setupRoutes()

	go b.bot.Start()
	slog.Info("tgbot started!")
}

func (b *TGBot) Stop() {
	slog.Info("start stopping tgbot")
	b.bot.Stop()
	slog.Info("tgbot stopped")
}

// NotifyDailyCycle sends the cycle summary to the owner chat.
func (b *TGBot) NotifyDailyCycle(ctx context.Context, report model.CycleReport) error {
	if b.ownerChatID == 0 {
		return nil
	}

	rqID := utils.GetRequestIDFromCtx(ctx)
	_, err := b.bot.Send(tele.ChatID(b.ownerChatID), telebotConverter.CycleReportText(report))
	if err != nil {
		slog.Error("failed to notify daily cycle", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return err
	}
	return nil
}

func (b *TGBot) setupRoutes() {
	b.bot.Handle(tele.OnText, func(c tele.Context) error {
		// free text only answers an open dialogue step
		ctx := utils.CreateCtxWithRqID(c)
		rqID := utils.GetRequestIDFromCtx(ctx)
		chatSession, err := b.session.GetSession(ctx, strconv.FormatInt(c.Chat().ID, 10))
		if err != nil {
			if errors.Is(err, session.ErrNotFound) {
				return c.Send("Escolha um dos comandos, /start mostra a lista")
			}
			slog.Error("got error from session.GetSession", slog.String("rqID", rqID), slog.String("err", err.Error()))
			return c.Send("Algo deu errado...")
		}

		c.Set("session", chatSession)

		switch chatSession.Action {
		case model.ExpectingContribution:
			return b.ctrl.ProcessContribution(c)
		case model.ExpectingGoal:
			return b.ctrl.ProcessGoal(c)
		default:
			slog.Debug("text without open dialogue", slog.String("rqID", rqID), slog.Any("action", chatSession.Action))
			return c.Send("Escolha um dos comandos, /start mostra a lista")
		}
	})

	b.bot.Handle("/start", b.ctrl.Start)
	b.bot.Handle("/carteira", b.ctrl.Positions)
	b.bot.Handle("/projecao", b.ctrl.Forecast)
	b.bot.Handle("/configurar", b.ctrl.InitPreferences)
	b.bot.Handle("/rebalancear", b.ctrl.Rebalance)
	b.bot.Handle("/comprar", b.ctrl.Buy)
	b.bot.Handle("/aporte", b.ctrl.Contribute)
	b.bot.Handle("/atualizar", b.ctrl.Update)
	b.bot.Handle("/relatorio", b.ctrl.Report)

	b.bot.Handle(tgCallback.Endpoint(tgCallback.PositionsPage), b.ctrl.PositionsPage)
	b.bot.Handle(tgCallback.Endpoint(tgCallback.RefreshForecast), b.ctrl.RefreshForecast)
	b.bot.Handle(tgCallback.Endpoint(tgCallback.ShowRebalance), b.ctrl.Rebalance)
	b.bot.Handle(tgCallback.Endpoint(tgCallback.ResetPreferences), b.ctrl.InitPreferences)
}

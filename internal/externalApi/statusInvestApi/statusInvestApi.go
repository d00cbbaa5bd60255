package statusInvestApi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/KotFed0t/liberdade/config"
	"github.com/KotFed0t/liberdade/internal/externalApi"
	"github.com/KotFed0t/liberdade/internal/model/marketModel"
	"github.com/KotFed0t/liberdade/utils"
	"github.com/PaesslerAG/jsonpath"
	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"
)

const (
	lastPricePath       = "$[0].prices[-1:].price"
	distributionKind    = "Rendimento"
	distributionsWindow = 2 // months
	queryDateLayout     = "2006-01-02"
)

type StatusInvestApi struct {
	client  *resty.Client
	limiter *rate.Limiter
}

func New(cfg *config.Config) *StatusInvestApi {
	client := resty.New().
		SetDebug(cfg.API.Debug).
		SetTimeout(cfg.API.Timeout).
		SetBaseURL(cfg.API.StatusInvestApi.Url).
		SetHeader("User-Agent", "Mozilla/5.0")

	rps := cfg.API.StatusInvestApi.RequestsPerSecond
	limit := rate.Inf
	if rps > 0 {
		limit = rate.Limit(rps)
	}

	return &StatusInvestApi{client: client, limiter: rate.NewLimiter(limit, 1)}
}

// GetLastPrice returns the latest price of the instrument price history.
func (a *StatusInvestApi) GetLastPrice(ctx context.Context, ticker string) (decimal.Decimal, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "StatusInvestApi.GetLastPrice"

	slog.Debug("GetLastPrice start", slog.String("rqID", rqID), slog.String("op", op), slog.String("ticker", ticker))

	if err := a.limiter.Wait(ctx); err != nil {
		return decimal.Zero, err
	}

	resp, err := a.client.R().
		SetContext(ctx).
		SetHeader("Accept", "application/json").
		SetQueryParams(map[string]string{
			"ticker":    ticker,
			"type":      "1",
			"currences": "1",
		}).
		Get("/fii/tickerprice")
	if err != nil {
		slog.Error("error while dialing StatusInvestApi", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return decimal.Zero, err
	}

	if resp.IsError() {
		slog.Error("unexpected status from StatusInvestApi", slog.String("rqID", rqID), slog.String("op", op), slog.Int("status", resp.StatusCode()))
		return decimal.Zero, fmt.Errorf("%w: %d", externalApi.ErrUnexpectedStatus, resp.StatusCode())
	}

	price, err := extractLastPrice(resp.Body())
	if err != nil {
		slog.Warn("can't extract last price", slog.String("rqID", rqID), slog.String("op", op), slog.String("ticker", ticker), slog.String("err", err.Error()))
		return decimal.Zero, err
	}

	slog.Debug("GetLastPrice completed", slog.String("rqID", rqID), slog.String("op", op), slog.String("price", price.String()))

	return price, nil
}

// GetDistributions returns regular distributions declared in the last two
// months, highest rank first.
func (a *StatusInvestApi) GetDistributions(ctx context.Context, ticker string, now time.Time) ([]marketModel.Distribution, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "StatusInvestApi.GetDistributions"

	slog.Debug("GetDistributions start", slog.String("rqID", rqID), slog.String("op", op), slog.String("ticker", ticker))

	if err := a.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	resp, err := a.client.R().
		SetContext(ctx).
		SetHeader("Accept", "application/json").
		SetQueryParams(map[string]string{
			"Start":  now.AddDate(0, -distributionsWindow, 0).Format(queryDateLayout),
			"End":    now.Format(queryDateLayout),
			"Filter": ticker,
		}).
		Get("/fii/getearnings")
	if err != nil {
		slog.Error("error while dialing StatusInvestApi", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, err
	}

	if resp.IsError() {
		slog.Error("unexpected status from StatusInvestApi", slog.String("rqID", rqID), slog.String("op", op), slog.Int("status", resp.StatusCode()))
		return nil, fmt.Errorf("%w: %d", externalApi.ErrUnexpectedStatus, resp.StatusCode())
	}

	raw := marketModel.RawEarnings{}
	err = json.Unmarshal(resp.Body(), &raw)
	if err != nil {
		slog.Error("can't unmarshall response into marketModel.RawEarnings", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, fmt.Errorf("%w: %w", externalApi.ErrMalformed, err)
	}

	res := make([]marketModel.Distribution, 0, len(raw.DateCom))
	for _, e := range raw.DateCom {
		if !strings.EqualFold(strings.TrimSpace(e.EarningType), distributionKind) {
			continue
		}
		value, _ := utils.ParseLocaleDecimal(e.ResultAbsoluteValue)
		res = append(res, marketModel.Distribution{Kind: e.EarningType, Value: value, Rank: e.RankDateCom})
	}

	sort.SliceStable(res, func(i, j int) bool { return res[i].Rank > res[j].Rank })

	slog.Debug("GetDistributions completed", slog.String("rqID", rqID), slog.String("op", op), slog.Int("distributions", len(res)))

	return res, nil
}

func extractLastPrice(body []byte) (decimal.Decimal, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var root any
	if err := dec.Decode(&root); err != nil {
		return decimal.Zero, fmt.Errorf("%w: %w", externalApi.ErrMalformed, err)
	}

	if list, ok := root.([]any); !ok || len(list) == 0 {
		return decimal.Zero, externalApi.ErrNotFound
	}

	val, err := jsonpath.Get(lastPricePath, root)
	if err != nil {
		return decimal.Zero, externalApi.ErrNotFound
	}
	// a slice selector yields a list even for one match
	if list, ok := val.([]any); ok {
		if len(list) == 0 {
			return decimal.Zero, externalApi.ErrNotFound
		}
		val = list[0]
	}

	switch v := val.(type) {
	case json.Number:
		return decimal.NewFromString(v.String())
	case float64:
		return decimal.NewFromFloat(v), nil
	case string:
		if d, ok := utils.ParseLocaleDecimal(v); ok {
			return d, nil
		}
	}
	return decimal.Zero, fmt.Errorf("%w: price is %T", externalApi.ErrMalformed, val)
}

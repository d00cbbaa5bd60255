package holidaysApi

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/KotFed0t/liberdade/config"
	"github.com/KotFed0t/liberdade/internal/externalApi"
	"github.com/KotFed0t/liberdade/internal/model"
	"github.com/KotFed0t/liberdade/internal/model/marketModel"
	"github.com/KotFed0t/liberdade/utils"
	"github.com/go-resty/resty/v2"
)

const holidayDateLayout = "2006-01-02"

type HolidaysApi struct {
	client *resty.Client
	token  string
}

func New(cfg *config.Config) *HolidaysApi {
	client := resty.New().
		SetDebug(cfg.API.Debug).
		SetTimeout(cfg.API.Timeout).
		SetBaseURL(cfg.API.HolidaysApi.Url)
	return &HolidaysApi{client: client, token: cfg.API.HolidaysApi.Token}
}

// GetHolidays returns every holiday of the year for the jurisdiction, discretionary ones included.
func (a *HolidaysApi) GetHolidays(ctx context.Context, jurisdiction string, year int) ([]model.Holiday, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "HolidaysApi.GetHolidays"

	slog.Debug("GetHolidays start", slog.String("rqID", rqID), slog.String("op", op), slog.String("jurisdiction", jurisdiction), slog.Int("year", year))

	resp, err := a.client.R().
		SetContext(ctx).
		SetHeader("Accept", "application/json").
		SetPathParam("year", strconv.Itoa(year)).
		SetQueryParams(map[string]string{
			"token": a.token,
			"state": jurisdiction,
		}).
		Get("/v1/holidays/{year}")
	if err != nil {
		slog.Error("error while dialing HolidaysApi", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, err
	}

	if resp.IsError() {
		slog.Error("unexpected status from HolidaysApi", slog.String("rqID", rqID), slog.String("op", op), slog.Int("status", resp.StatusCode()))
		return nil, fmt.Errorf("%w: %d", externalApi.ErrUnexpectedStatus, resp.StatusCode())
	}

	var raw []marketModel.RawHoliday
	err = json.Unmarshal(resp.Body(), &raw)
	if err != nil {
		slog.Error("can't unmarshall response into []marketModel.RawHoliday", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, fmt.Errorf("%w: %w", externalApi.ErrMalformed, err)
	}

	holidays := make([]model.Holiday, 0, len(raw))
	for _, h := range raw {
		date, err := time.Parse(holidayDateLayout, h.Date)
		if err != nil {
			slog.Warn("skip holiday with invalid date", slog.String("rqID", rqID), slog.String("op", op), slog.String("date", h.Date))
			continue
		}
		holidays = append(holidays, model.Holiday{
			Date:         date,
			Name:         h.Name,
			Kind:         h.Type,
			Level:        h.Level,
			Jurisdiction: jurisdiction,
		})
	}

	slog.Debug("GetHolidays completed", slog.String("rqID", rqID), slog.String("op", op), slog.Int("holidays", len(holidays)))

	return holidays, nil
}

package bcbApi

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/KotFed0t/liberdade/config"
	"github.com/KotFed0t/liberdade/internal/externalApi"
	"github.com/KotFed0t/liberdade/internal/model/marketModel"
	"github.com/KotFed0t/liberdade/utils"
	"github.com/go-resty/resty/v2"
)

const observationDateLayout = "02/01/2006"

type BcbApi struct {
	client        *resty.Client
	archiveClient *resty.Client
}

func New(cfg *config.Config) *BcbApi {
	client := resty.New().
		SetDebug(cfg.API.Debug).
		SetTimeout(cfg.API.Timeout).
		SetBaseURL(cfg.API.BcbApi.Url)

	// archives are plain zip downloads from a different host
	archiveClient := resty.New().
		SetDebug(false).
		SetTimeout(cfg.API.Timeout).
		SetBaseURL(cfg.API.BcbApi.ArchiveUrl)

	return &BcbApi{client: client, archiveClient: archiveClient}
}

// GetRecentDailyRates returns the last count observations of an SGS series.
// Observations with unparseable date or value are dropped.
func (a *BcbApi) GetRecentDailyRates(ctx context.Context, seriesID, count int) ([]marketModel.DailyRate, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "BcbApi.GetRecentDailyRates"
	url := fmt.Sprintf("/dados/serie/bcdata.sgs.%d/dados/ultimos/%d", seriesID, count)

	slog.Debug("GetRecentDailyRates start", slog.String("rqID", rqID), slog.String("op", op), slog.String("url", url))

	resp, err := a.client.R().
		SetContext(ctx).
		SetHeader("Accept", "application/json").
		SetQueryParam("formato", "json").
		Get(url)
	if err != nil {
		slog.Error("error while dialing BcbApi", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, err
	}

	if resp.IsError() {
		slog.Error("unexpected status from BcbApi", slog.String("rqID", rqID), slog.String("op", op), slog.Int("status", resp.StatusCode()))
		return nil, fmt.Errorf("%w: %d", externalApi.ErrUnexpectedStatus, resp.StatusCode())
	}

	var observations []marketModel.RateObservation
	err = json.Unmarshal(resp.Body(), &observations)
	if err != nil {
		slog.Error("can't unmarshall response into []marketModel.RateObservation", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, fmt.Errorf("%w: %w", externalApi.ErrMalformed, err)
	}

	rates := make([]marketModel.DailyRate, 0, len(observations))
	for _, o := range observations {
		date, err := time.Parse(observationDateLayout, strings.TrimSpace(o.Data))
		if err != nil {
			slog.Warn("skip observation with invalid date", slog.String("rqID", rqID), slog.String("op", op), slog.String("data", o.Data))
			continue
		}
		value, ok := utils.ParseLocaleDecimal(o.Valor)
		if !ok {
			slog.Warn("skip observation with invalid value", slog.String("rqID", rqID), slog.String("op", op), slog.String("valor", o.Valor))
			continue
		}
		rates = append(rates, marketModel.DailyRate{Date: date, RatePercent: value})
	}

	slog.Debug("GetRecentDailyRates completed", slog.String("rqID", rqID), slog.String("op", op), slog.Int("observations", len(rates)))

	return rates, nil
}

// DownloadArchive fetches the monthly negotiation archive. A missing archive
// (not published yet) is reported as externalApi.ErrNotFound.
func (a *BcbApi) DownloadArchive(ctx context.Context, year int, month time.Month) ([]byte, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "BcbApi.DownloadArchive"
	url := fmt.Sprintf("/pom/demab/negociacoes/download/NegE%04d%02d.ZIP", year, int(month))

	slog.Debug("DownloadArchive start", slog.String("rqID", rqID), slog.String("op", op), slog.String("url", url))

	resp, err := a.archiveClient.R().
		SetContext(ctx).
		Get(url)
	if err != nil {
		slog.Error("error while downloading archive", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, err
	}

	if resp.StatusCode() == http.StatusNotFound {
		slog.Warn("archive not published", slog.String("rqID", rqID), slog.String("op", op), slog.String("url", url))
		return nil, externalApi.ErrNotFound
	}

	if resp.IsError() {
		slog.Error("unexpected status while downloading archive", slog.String("rqID", rqID), slog.String("op", op), slog.Int("status", resp.StatusCode()))
		return nil, fmt.Errorf("%w: %d", externalApi.ErrUnexpectedStatus, resp.StatusCode())
	}

	slog.Debug("DownloadArchive completed", slog.String("rqID", rqID), slog.String("op", op), slog.Int("bytes", len(resp.Body())))

	return resp.Body(), nil
}

package bcbApi

import (
	"archive/zip"
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/KotFed0t/liberdade/config"
	"github.com/KotFed0t/liberdade/internal/externalApi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"
)

func newTestApi(url string) *BcbApi {
	cfg := &config.Config{}
	cfg.API.Timeout = 5 * time.Second
	cfg.API.BcbApi.Url = url
	cfg.API.BcbApi.ArchiveUrl = url
	return New(cfg)
}

func TestGetRecentDailyRates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/dados/serie/bcdata.sgs.11/dados/ultimos/3", r.URL.Path)
		assert.Equal(t, "json", r.URL.Query().Get("formato"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"data":"02/01/2025","valor":"0,045513"},
			{"data":"03/01/2025","valor":"0.045513"},
			{"data":"bad","valor":"0,05"}
		]`))
	}))
	defer srv.Close()

	rates, err := newTestApi(srv.URL).GetRecentDailyRates(context.Background(), 11, 3)
	require.NoError(t, err)
	require.Len(t, rates, 2)
	assert.Equal(t, time.Date(2025, 1, 3, 0, 0, 0, 0, time.UTC), rates[1].Date)
	assert.Equal(t, "0.045513", rates[0].RatePercent.String())
	assert.Equal(t, "0.045513", rates[1].RatePercent.String())
}

func TestGetRecentDailyRates_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := newTestApi(srv.URL).GetRecentDailyRates(context.Background(), 11, 10)
	assert.ErrorIs(t, err, externalApi.ErrUnexpectedStatus)
}

func TestDownloadArchive(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/pom/demab/negociacoes/download/NegE202503.ZIP" {
			_, _ = w.Write([]byte("zip-bytes"))
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	api := newTestApi(srv.URL)

	body, err := api.DownloadArchive(context.Background(), 2025, time.March)
	require.NoError(t, err)
	assert.Equal(t, "zip-bytes", string(body))

	_, err = api.DownloadArchive(context.Background(), 2025, time.April)
	assert.ErrorIs(t, err, externalApi.ErrNotFound)
}

func buildArchive(t *testing.T, name, content string) []byte {
	t.Helper()

	encoded, err := charmap.ISO8859_1.NewEncoder().String(content)
	require.NoError(t, err)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create(name)
	require.NoError(t, err)
	_, err = w.Write([]byte(encoded))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	return buf.Bytes()
}

func TestParseArchive_WithHeader(t *testing.T) {
	content := "TÍTULO;DATA MOV;SIGLA;CODIGO ISIN;PU MIN;PU MED\n" +
		"LFT;03/03/2025;LFT;BRSTNCLF1RU6;16000,00;16.010,123456\n" +
		"LFT;05/03/2025;LFT;brstnclf1ru6;16000,00;16.020,5\n" +
		"LFT;04/03/2025;LFT;BRSTNCLF1RU6;16000,00;16.015,0\n" +
		"NTNB;05/03/2025;NTNB;BRSTNNTB0000;4000,00;4.100,0\n" +
		"short;row\n"

	trades, err := ParseArchive(buildArchive(t, "NegE202503.csv", content))
	require.NoError(t, err)
	require.Len(t, trades, 4)

	price, ok := LatestPrice(trades, "BRSTNCLF1RU6")
	require.True(t, ok)
	assert.Equal(t, "16020.5", price.String())

	_, ok = LatestPrice(trades, "UNKNOWN")
	assert.False(t, ok)
}

func TestParseArchive_FallbackIndices(t *testing.T) {
	content := "A;B;C;D\n" +
		"10/02/2025;XYZ;ignored;101,5\n" +
		"11/02/2025;XYZ;ignored;102,5\n"

	trades, err := ParseArchive(buildArchive(t, "negocios.TXT", content))
	require.NoError(t, err)

	price, ok := LatestPrice(trades, "xyz")
	require.True(t, ok)
	assert.Equal(t, "102.5", price.String())
}

func TestParseArchive_NoTable(t *testing.T) {
	_, err := ParseArchive(buildArchive(t, "readme.pdf", "nothing"))
	assert.ErrorIs(t, err, ErrNoTable)

	_, err = ParseArchive([]byte("not a zip"))
	assert.ErrorIs(t, err, externalApi.ErrMalformed)
}

func TestLatestPrice_TieGoesToLaterRow(t *testing.T) {
	content := "DATA MOV;CODIGO ISIN;X;PU MED\n" +
		"05/03/2025;ABC;x;10,0\n" +
		"05/03/2025;ABC;x;11,0\n"

	trades, err := ParseArchive(buildArchive(t, "a.csv", content))
	require.NoError(t, err)

	price, ok := LatestPrice(trades, "ABC")
	require.True(t, ok)
	assert.Equal(t, "11", price.String())
}

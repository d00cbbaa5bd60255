package holidaysApi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/KotFed0t/liberdade/config"
	"github.com/KotFed0t/liberdade/internal/externalApi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestApi(url string) *HolidaysApi {
	cfg := &config.Config{}
	cfg.API.Timeout = 5 * time.Second
	cfg.API.HolidaysApi.Url = url
	cfg.API.HolidaysApi.Token = "secret"
	return New(cfg)
}

func TestGetHolidays(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/holidays/2025", r.URL.Path)
		assert.Equal(t, "secret", r.URL.Query().Get("token"))
		assert.Equal(t, "MG", r.URL.Query().Get("state"))
		_, _ = w.Write([]byte(`[
			{"date":"2025-01-01","name":"Confraternização mundial","type":"feriado","level":"nacional"},
			{"date":"2025-03-04","name":"Carnaval","type":"facultativo","level":"nacional"},
			{"date":"not-a-date","name":"broken","type":"feriado","level":"nacional"}
		]`))
	}))
	defer srv.Close()

	holidays, err := newTestApi(srv.URL).GetHolidays(context.Background(), "MG", 2025)
	require.NoError(t, err)
	require.Len(t, holidays, 2)

	assert.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), holidays[0].Date)
	assert.Equal(t, "MG", holidays[0].Jurisdiction)
	assert.False(t, holidays[0].IsDiscretionary())
	assert.True(t, holidays[1].IsDiscretionary())
}

func TestGetHolidays_Unauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := newTestApi(srv.URL).GetHolidays(context.Background(), "MG", 2025)
	assert.ErrorIs(t, err, externalApi.ErrUnexpectedStatus)
}

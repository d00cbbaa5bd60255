package calendarService

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/KotFed0t/liberdade/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type providerMock struct{ mock.Mock }

func (m *providerMock) GetHolidays(ctx context.Context, jurisdiction string, year int) ([]model.Holiday, error) {
	args := m.Called(ctx, jurisdiction, year)
	h, _ := args.Get(0).([]model.Holiday)
	return h, args.Error(1)
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

var holidays2025 = []model.Holiday{
	{Date: date(2025, 4, 18), Name: "Sexta-feira Santa", Kind: "feriado"},
	{Date: date(2025, 4, 21), Name: "Tiradentes", Kind: "feriado"},
	{Date: date(2025, 3, 4), Name: "Carnaval", Kind: "facultativo"},
}

func TestIsBusinessDay(t *testing.T) {
	p := &providerMock{}
	p.On("GetHolidays", mock.Anything, "MG", 2025).Return(holidays2025, nil).Once()
	s := New(p, time.Hour)
	ctx := context.Background()

	tests := []struct {
		name string
		date time.Time
		want bool
	}{
		{"regular weekday", date(2025, 4, 22), true},
		{"saturday", date(2025, 4, 19), false},
		{"sunday", date(2025, 4, 20), false},
		{"holiday", date(2025, 4, 21), false},
		{"good friday", date(2025, 4, 18), false},
		{"discretionary is a business day", date(2025, 3, 4), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.IsBusinessDay(ctx, tt.date, "MG")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	// memoized: provider called once for the year
	p.AssertNumberOfCalls(t, "GetHolidays", 1)
}

func TestBusinessDaysInMonth(t *testing.T) {
	p := &providerMock{}
	p.On("GetHolidays", mock.Anything, "MG", 2025).Return(holidays2025, nil)
	s := New(p, time.Hour)

	// April 2025 has 22 weekdays, minus Good Friday and Tiradentes
	n, err := s.BusinessDaysInMonth(context.Background(), 2025, time.April, "MG")
	require.NoError(t, err)
	assert.Equal(t, 20, n)

	// March 2025 has 21 weekdays, carnival is discretionary
	n, err = s.BusinessDaysInMonth(context.Background(), 2025, time.March, "MG")
	require.NoError(t, err)
	assert.Equal(t, 21, n)
}

func TestBusinessDaysInMonth_ProviderFailure(t *testing.T) {
	p := &providerMock{}
	p.On("GetHolidays", mock.Anything, "MG", 2025).Return(nil, errors.New("down"))
	s := New(p, time.Hour)

	n, err := s.BusinessDaysInMonth(context.Background(), 2025, time.April, "MG")
	assert.Error(t, err)
	assert.Equal(t, DefaultBusinessDays, BusinessDaysOrDefault(n, err))

	// weekends never need the provider
	ok, err := s.IsBusinessDay(context.Background(), date(2025, 4, 19), "MG")
	assert.NoError(t, err)
	assert.False(t, ok)

	// failures are not memoized
	_, _ = s.BusinessDaysInMonth(context.Background(), 2025, time.April, "MG")
	p.AssertNumberOfCalls(t, "GetHolidays", 2)
}

func TestDaysInMonth(t *testing.T) {
	assert.Equal(t, 29, DaysInMonth(2024, time.February))
	assert.Equal(t, 28, DaysInMonth(2025, time.February))
	assert.Equal(t, 31, DaysInMonth(2025, time.December))
}

func TestBusinessDaysOrDefault(t *testing.T) {
	assert.Equal(t, 19, BusinessDaysOrDefault(19, nil))
	assert.Equal(t, DefaultBusinessDays, BusinessDaysOrDefault(0, nil))
}

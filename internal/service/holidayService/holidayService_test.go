package holidayService

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

type cacheMock struct{ mock.Mock }

func (m *cacheMock) GetHolidays(ctx context.Context, jurisdiction string, year int) ([]model.Holiday, error) {
	args := m.Called(ctx, jurisdiction, year)
	h, _ := args.Get(0).([]model.Holiday)
	return h, args.Error(1)
}

func (m *cacheMock) SetHolidays(ctx context.Context, jurisdiction string, year int, holidays []model.Holiday) error {
	return m.Called(ctx, jurisdiction, year, holidays).Error(0)
}

type repoMock struct{ mock.Mock }

func (m *repoMock) GetHolidays(ctx context.Context, jurisdiction string, year int) ([]model.Holiday, error) {
	args := m.Called(ctx, jurisdiction, year)
	h, _ := args.Get(0).([]model.Holiday)
	return h, args.Error(1)
}

func (m *repoMock) InsertHolidays(ctx context.Context, holidays []model.Holiday) error {
	return m.Called(ctx, holidays).Error(0)
}

type apiMock struct{ mock.Mock }

func (m *apiMock) GetHolidays(ctx context.Context, jurisdiction string, year int) ([]model.Holiday, error) {
	args := m.Called(ctx, jurisdiction, year)
	h, _ := args.Get(0).([]model.Holiday)
	return h, args.Error(1)
}

var (
	newYear  = model.Holiday{Date: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), Name: "Ano novo", Kind: "feriado", Jurisdiction: "MG"}
	carnival = model.Holiday{Date: time.Date(2025, 3, 4, 0, 0, 0, 0, time.UTC), Name: "Carnaval", Kind: "facultativo", Jurisdiction: "MG"}
)

func TestGetHolidays_FromCache(t *testing.T) {
	c, r, a := &cacheMock{}, &repoMock{}, &apiMock{}
	c.On("GetHolidays", mock.Anything, "MG", 2025).Return([]model.Holiday{newYear, carnival}, nil)

	res, err := New(c, r, a).GetHolidays(context.Background(), "MG", 2025)
	require.NoError(t, err)
	assert.Equal(t, []model.Holiday{newYear}, res)
	r.AssertNotCalled(t, "GetHolidays", mock.Anything, mock.Anything, mock.Anything)
	a.AssertNotCalled(t, "GetHolidays", mock.Anything, mock.Anything, mock.Anything)
}

func TestGetHolidays_FromRepo(t *testing.T) {
	c, r, a := &cacheMock{}, &repoMock{}, &apiMock{}
	c.On("GetHolidays", mock.Anything, "MG", 2025).Return(nil, errors.New("miss"))
	c.On("SetHolidays", mock.Anything, "MG", 2025, mock.Anything).Return(nil).Maybe()
	r.On("GetHolidays", mock.Anything, "MG", 2025).Return([]model.Holiday{newYear}, nil)

	res, err := New(c, r, a).GetHolidays(context.Background(), "MG", 2025)
	require.NoError(t, err)
	assert.Equal(t, []model.Holiday{newYear}, res)
	a.AssertNotCalled(t, "GetHolidays", mock.Anything, mock.Anything, mock.Anything)
}

func TestGetHolidays_FromApiPersists(t *testing.T) {
	c, r, a := &cacheMock{}, &repoMock{}, &apiMock{}
	c.On("GetHolidays", mock.Anything, "MG", 2025).Return(nil, errors.New("miss"))
	c.On("SetHolidays", mock.Anything, "MG", 2025, mock.Anything).Return(nil).Maybe()
	r.On("GetHolidays", mock.Anything, "MG", 2025).Return(nil, nil)
	r.On("InsertHolidays", mock.Anything, []model.Holiday{newYear, carnival}).Return(nil)
	a.On("GetHolidays", mock.Anything, "MG", 2025).Return([]model.Holiday{newYear, carnival}, nil)

	res, err := New(c, r, a).GetHolidays(context.Background(), "MG", 2025)
	require.NoError(t, err)
	assert.Equal(t, []model.Holiday{newYear}, res)
	r.AssertExpectations(t)
}

func TestGetHolidays_ApiFailure(t *testing.T) {
	c, r, a := &cacheMock{}, &repoMock{}, &apiMock{}
	c.On("GetHolidays", mock.Anything, "MG", 2025).Return(nil, errors.New("miss"))
	r.On("GetHolidays", mock.Anything, "MG", 2025).Return(nil, errors.New("db down"))
	a.On("GetHolidays", mock.Anything, "MG", 2025).Return(nil, errors.New("timeout"))

	_, err := New(c, r, a).GetHolidays(context.Background(), "MG", 2025)
	assert.ErrorIs(t, err, ErrUnavailable)
}

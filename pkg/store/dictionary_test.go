package store

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GallonShih/hermes/pkg/models"
)

func TestGetActiveDictionaries(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	now := time.Now()
	mock.ExpectQuery("SELECT source, target, updated_at FROM replace_words").
		WillReturnRows(pgxmock.NewRows([]string{"source", "target", "updated_at"}).AddRow("8+9", "8+9", now))
	mock.ExpectQuery("SELECT word, updated_at FROM special_words").
		WillReturnRows(pgxmock.NewRows([]string{"word", "updated_at"}).AddRow("87", now))
	mock.ExpectQuery("SELECT word, updated_at FROM meaningless_words").
		WillReturnRows(pgxmock.NewRows([]string{"word", "updated_at"}).AddRow("的", now))

	s := NewWithQuerier(mock)
	dicts, err := s.GetActiveDictionaries(context.Background())
	require.NoError(t, err)
	require.Len(t, dicts.Replace, 1)
	require.Len(t, dicts.Special, 1)
	require.Len(t, dicts.Meaningless, 1)
	assert.Equal(t, "87", dicts.Special[0].Word)
}

func TestGetCurrencyRate_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("SELECT rate_to_twd, updated_at FROM currency_rates").
		WithArgs("USD").
		WillReturnError(pgx.ErrNoRows)

	s := NewWithQuerier(mock)
	_, err = s.GetCurrencyRate(context.Background(), "USD")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestPutReplaceWord(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("INSERT INTO replace_words").
		WithArgs("8+9", "芭樂", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	s := NewWithQuerier(mock)
	err = s.PutReplaceWord(context.Background(), models.ReplaceWord{Source: "8+9", Target: "芭樂", UpdatedAt: time.Now()})
	require.NoError(t, err)
}

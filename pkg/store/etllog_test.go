package store

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"

	"github.com/GallonShih/hermes/pkg/models"
)

func TestRecordETLExecution(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("INSERT INTO etl_execution_log").
		WithArgs(pgxmock.AnyArg(), "process_chat_messages", pgxmock.AnyArg(), pgxmock.AnyArg(), 1.5, "completed", 42, "", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	s := NewWithQuerier(mock)
	err = s.RecordETLExecution(context.Background(), &models.ETLExecutionLog{
		JobID:            "process_chat_messages",
		StartedAt:        time.Now(),
		CompletedAt:      time.Now(),
		DurationSeconds:  1.5,
		Status:           models.ETLStatusCompleted,
		RecordsProcessed: 42,
	})
	require.NoError(t, err)
}

func TestRecordETLExecution_GeneratesID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("INSERT INTO etl_execution_log").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	s := NewWithQuerier(mock)
	log := &models.ETLExecutionLog{JobID: "discover_new_words", Status: models.ETLStatusFailed, ErrorMessage: "boom"}
	require.NoError(t, s.RecordETLExecution(context.Background(), log))
	require.NotEmpty(t, log.ID)
}

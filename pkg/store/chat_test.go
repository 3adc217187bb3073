package store

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GallonShih/hermes/pkg/models"
)

func TestUpsertChat(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	msg := &models.ChatMessage{
		MessageID:     "m1",
		LiveStreamID:  "v1",
		AuthorID:      "a1",
		AuthorName:    "Alice",
		MessageType:   models.MessageTypeText,
		Message:       "hello",
		TimestampUsec: 1000,
		PublishedAt:   time.Now(),
	}

	mock.ExpectExec("INSERT INTO chat_messages").
		WithArgs(msg.MessageID, msg.LiveStreamID, msg.AuthorID, msg.AuthorName, string(msg.MessageType),
			msg.Message, msg.TimestampUsec, msg.PublishedAt, pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	s := NewWithQuerier(mock)
	err = s.UpsertChat(context.Background(), msg)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBatchUpsertChat_PartialFailureUsesSavepoint(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	good := &models.ChatMessage{MessageID: "m1", LiveStreamID: "v1", MessageType: models.MessageTypeText, PublishedAt: time.Now()}
	bad := &models.ChatMessage{MessageID: "m2", LiveStreamID: "v1", MessageType: models.MessageTypeText, PublishedAt: time.Now()}

	mock.ExpectBegin()

	mock.ExpectExec("SAVEPOINT sp_0").WillReturnResult(pgxmock.NewResult("SAVEPOINT", 0))
	mock.ExpectExec("INSERT INTO chat_messages").
		WithArgs(good.MessageID, good.LiveStreamID, good.AuthorID, good.AuthorName, string(good.MessageType),
			good.Message, good.TimestampUsec, good.PublishedAt, pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("RELEASE SAVEPOINT sp_0").WillReturnResult(pgxmock.NewResult("RELEASE", 0))

	mock.ExpectExec("SAVEPOINT sp_1").WillReturnResult(pgxmock.NewResult("SAVEPOINT", 0))
	mock.ExpectExec("INSERT INTO chat_messages").
		WithArgs(bad.MessageID, bad.LiveStreamID, bad.AuthorID, bad.AuthorName, string(bad.MessageType),
			bad.Message, bad.TimestampUsec, bad.PublishedAt, pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(assert.AnError)
	mock.ExpectExec("ROLLBACK TO SAVEPOINT sp_1").WillReturnResult(pgxmock.NewResult("ROLLBACK", 0))

	mock.ExpectCommit()

	s := NewWithQuerier(mock)
	failed, err := s.BatchUpsertChat(context.Background(), []*models.ChatMessage{good, bad})
	require.Error(t, err)
	assert.Equal(t, []string{"m2"}, failed)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBatchUpsertChat_Empty(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	s := NewWithQuerier(mock)
	failed, err := s.BatchUpsertChat(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, failed)
}

func TestUnprocessedMessages_Scans(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	published := time.Now()
	cols := []string{"message_id", "live_stream_id", "author_id", "author_name", "message_type",
		"message", "timestamp_usec", "published_at", "emotes", "raw_data"}
	rows := pgxmock.NewRows(cols).
		AddRow("m1", "v1", "a1", "Alice", "text_message", "hi", int64(1), published, []byte(`[]`), []byte(`{}`))

	mock.ExpectQuery("SELECT (.|\n)*FROM chat_messages").WillReturnRows(rows)

	s := NewWithQuerier(mock)
	msgs, err := s.UnprocessedMessages(context.Background(), time.Time{}, "", 100)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "m1", msgs[0].MessageID)
	assert.Equal(t, models.MessageTypeText, msgs[0].MessageType)
}

func TestMarkProcessed(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("UPDATE chat_messages").
		WithArgs("m1", "hello world", pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	s := NewWithQuerier(mock)
	err = s.MarkProcessed(context.Background(), nil, "m1", "hello world", []string{"hello", "world"}, nil)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

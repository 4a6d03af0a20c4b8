package messaging

import (
	"context"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTurnStoreRecordTurn(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("INSERT INTO conversation_turns").
		WithArgs(pgxmock.AnyArg(), "+971501234567", "hello", "Hello! Welcome").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	store := NewTurnStoreWithDB(mock)
	err = store.RecordTurn(context.Background(), "+971501234567", "hello", "Hello! Welcome")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFormatTwilioError(t *testing.T) {
	assert.Equal(t, "status 500", formatTwilioError(500, nil))
	assert.Equal(t, "status 400 code 21211: invalid number",
		formatTwilioError(400, []byte(`{"code":21211,"message":"invalid number"}`)))
	assert.Equal(t, "status 502: upstream broke",
		formatTwilioError(502, []byte("upstream broke")))
}

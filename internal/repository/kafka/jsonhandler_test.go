package kafka

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testMsg struct {
	Event   string  `json:"event"`
	UserIDs []int64 `json:"user_ids"`
}

func TestJSONHandler_DecodesValue(t *testing.T) {
	var got *testMsg
	var gotKey []byte
	h := JSONHandler[testMsg](func(_ context.Context, key []byte, msg *testMsg) error {
		gotKey = key
		got = msg
		return nil
	})

	err := h(context.Background(), []byte("42"), []byte(`{"event":"payment.received","user_ids":[1,2]}`))
	require.NoError(t, err)
	assert.Equal(t, []byte("42"), gotKey)
	assert.Equal(t, "payment.received", got.Event)
	assert.Equal(t, []int64{1, 2}, got.UserIDs)
}

func TestJSONHandler_BadJSONIsErrDecode(t *testing.T) {
	called := false
	h := JSONHandler[testMsg](func(context.Context, []byte, *testMsg) error {
		called = true
		return nil
	})

	err := h(context.Background(), nil, []byte(`{"event":`))
	assert.ErrorIs(t, err, ErrDecode)
	assert.False(t, called)
}

func TestJSONHandler_HandlerErrorPassesThrough(t *testing.T) {
	sentinel := errors.New("downstream failed")
	h := JSONHandler[testMsg](func(context.Context, []byte, *testMsg) error {
		return sentinel
	})

	err := h(context.Background(), nil, []byte(`{"event":"x"}`))
	assert.ErrorIs(t, err, sentinel)
	assert.NotErrorIs(t, err, ErrDecode)
}

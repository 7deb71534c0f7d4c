package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrDecode marks messages whose value is not valid JSON for the expected
// shape. Callers route these to a dead-letter topic instead of retrying.
var ErrDecode = errors.New("decode message")

// JSONHandler adapts a typed handler to the raw consumer Handler by decoding
// the message value as JSON.
func JSONHandler[M any](handle func(ctx context.Context, key []byte, msg *M) error) Handler {
	return func(ctx context.Context, key, value []byte) error {
		var msg M
		if err := json.Unmarshal(value, &msg); err != nil {
			return fmt.Errorf("%w: %v", ErrDecode, err)
		}
		return handle(ctx, key, &msg)
	}
}

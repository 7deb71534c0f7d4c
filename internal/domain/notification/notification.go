package notification

import (
	"encoding/json"
	"fmt"
	"time"
)

const (
	KindMessage     = "message"     // new chat message
	KindPayment     = "payment"     // rent payment events
	KindMaintenance = "maintenance" // maintenance request updates
	KindLease       = "lease"       // lease lifecycle events
)

type Notification struct {
	ID          int64           `json:"id"`
	RecipientID int64           `json:"recipient_id"`
	Kind        string          `json:"kind"`
	Payload     json.RawMessage `json:"payload,omitempty"`
	Read        bool            `json:"read"`
	CreatedAt   time.Time       `json:"created_at"`
}

// EncodePayload renders an arbitrary key/value payload into the blob form the
// store keeps. A nil map stays nil (payload is optional).
func EncodePayload(m map[string]any) (json.RawMessage, error) {
	if m == nil {
		return nil, nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	return b, nil
}

func DecodePayload(raw json.RawMessage) (map[string]any, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	return m, nil
}

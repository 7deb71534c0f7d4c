//go:build integration

package integration

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"
)

type overviewResp struct {
	Notifications []struct {
		ID      int64          `json:"id"`
		Kind    string         `json:"kind"`
		Payload map[string]any `json:"payload"`
		Read    bool           `json:"read"`
	} `json:"notifications"`
	UnreadCount int `json:"unread_count"`
}

func TestNotifications_EmptyForFreshRecipient(t *testing.T) {
	cfg := LoadCfg()
	WaitHealthz(t, cfg.HealthURL, 60*time.Second)

	db := DBOpen(t, cfg.DBDSN)
	defer db.Close()

	userID := RandID()
	rid := SeedRecipient(t, db, userID, fmt.Sprintf("it-%d@example.com", userID))
	PurgeNotifications(t, db, rid)

	token := MintToken(t, cfg.JWTSecret, userID)
	body := HTTPDoJSON(t, http.MethodGet, cfg.BaseURL+"/v1/notifications", token, nil, 200)

	var ov overviewResp
	if err := json.Unmarshal(body, &ov); err != nil {
		t.Fatalf("unmarshal overview: %v body=%s", err, string(body))
	}
	if len(ov.Notifications) != 0 || ov.UnreadCount != 0 {
		t.Fatalf("expected empty overview, got %s", string(body))
	}
}

func TestNotifications_Unauthenticated(t *testing.T) {
	cfg := LoadCfg()
	WaitHealthz(t, cfg.HealthURL, 60*time.Second)

	_ = HTTPDoJSON(t, http.MethodGet, cfg.BaseURL+"/v1/notifications", "", nil, 401)
}

func TestNotifications_KafkaToStream(t *testing.T) {
	cfg := LoadCfg()
	WaitHealthz(t, cfg.HealthURL, 60*time.Second)
	EnsureTopic(t, cfg.KafkaBootstrap, cfg.EventTopic)

	db := DBOpen(t, cfg.DBDSN)
	defer db.Close()

	userID := RandID()
	rid := SeedRecipient(t, db, userID, fmt.Sprintf("it-%d@example.com", userID))
	PurgeNotifications(t, db, rid)

	token := MintToken(t, cfg.JWTSecret, userID)
	sse := OpenSSE(t, cfg.BaseURL+"/v1/notifications/stream", token)
	defer sse.Close()
	sse.WaitLine(t, ": connected", 15*time.Second)

	event, _ := json.Marshal(map[string]any{
		"event":    "payment.received",
		"user_ids": []int64{userID},
		"payload":  map[string]any{"amount": 1200, "currency": "USD"},
	})
	PublishJSON(t, cfg.KafkaBootstrap, cfg.EventTopic, []byte(fmt.Sprintf("%d", userID)), event)

	sse.WaitLine(t, "event: notification", 60*time.Second)
	data := sse.WaitLine(t, "data: ", 5*time.Second)
	if !strings.Contains(data, `"kind":"payment"`) {
		t.Fatalf("[sse] unexpected frame: %s", data)
	}
	t.Logf("[sse] got frame: %s", data)

	// The record is durable, not just streamed.
	body := HTTPDoJSON(t, http.MethodGet, cfg.BaseURL+"/v1/notifications", token, nil, 200)
	var ov overviewResp
	if err := json.Unmarshal(body, &ov); err != nil {
		t.Fatalf("unmarshal overview: %v body=%s", err, string(body))
	}
	if len(ov.Notifications) != 1 || ov.UnreadCount != 1 {
		t.Fatalf("expected one unread notification, got %s", string(body))
	}
	if ov.Notifications[0].Kind != "payment" {
		t.Fatalf("expected kind=payment, got %q", ov.Notifications[0].Kind)
	}
}

func TestNotifications_MarkReadFlow(t *testing.T) {
	cfg := LoadCfg()
	WaitHealthz(t, cfg.HealthURL, 60*time.Second)
	EnsureTopic(t, cfg.KafkaBootstrap, cfg.EventTopic)

	db := DBOpen(t, cfg.DBDSN)
	defer db.Close()

	userID := RandID()
	rid := SeedRecipient(t, db, userID, fmt.Sprintf("it-%d@example.com", userID))
	PurgeNotifications(t, db, rid)

	event, _ := json.Marshal(map[string]any{
		"event":    "maintenance.status_changed",
		"user_ids": []int64{userID},
		"payload":  map[string]any{"request_id": 7, "status": "resolved"},
	})
	PublishJSON(t, cfg.KafkaBootstrap, cfg.EventTopic, []byte(fmt.Sprintf("%d", userID)), event)

	token := MintToken(t, cfg.JWTSecret, userID)
	var ov overviewResp
	deadline := time.Now().Add(60 * time.Second)
	for time.Now().Before(deadline) {
		body := HTTPDoJSON(t, http.MethodGet, cfg.BaseURL+"/v1/notifications", token, nil, 200)
		if err := json.Unmarshal(body, &ov); err != nil {
			t.Fatalf("unmarshal overview: %v body=%s", err, string(body))
		}
		if len(ov.Notifications) > 0 {
			break
		}
		time.Sleep(500 * time.Millisecond)
	}
	if len(ov.Notifications) == 0 {
		t.Fatalf("event never ingested for user %d", userID)
	}

	patch, _ := json.Marshal(map[string]any{
		"notification_ids": []int64{ov.Notifications[0].ID},
	})
	_ = HTTPDoJSON(t, http.MethodPatch, cfg.BaseURL+"/v1/notifications", token, patch, 200)

	if n := CountUnread(t, db, rid); n != 0 {
		t.Fatalf("expected 0 unread after mark read, got %d", n)
	}

	// Idempotent repeat.
	_ = HTTPDoJSON(t, http.MethodPatch, cfg.BaseURL+"/v1/notifications", token, patch, 200)
}

func TestNotifications_MarkAllRead(t *testing.T) {
	cfg := LoadCfg()
	WaitHealthz(t, cfg.HealthURL, 60*time.Second)
	EnsureTopic(t, cfg.KafkaBootstrap, cfg.EventTopic)

	db := DBOpen(t, cfg.DBDSN)
	defer db.Close()

	userID := RandID()
	rid := SeedRecipient(t, db, userID, fmt.Sprintf("it-%d@example.com", userID))
	PurgeNotifications(t, db, rid)

	for i := 0; i < 3; i++ {
		event, _ := json.Marshal(map[string]any{
			"event":    "message.created",
			"user_ids": []int64{userID},
			"payload":  map[string]any{"thread_id": i},
		})
		PublishJSON(t, cfg.KafkaBootstrap, cfg.EventTopic, []byte(fmt.Sprintf("%d", userID)), event)
	}

	deadline := time.Now().Add(60 * time.Second)
	for time.Now().Before(deadline) {
		if CountUnread(t, db, rid) >= 3 {
			break
		}
		time.Sleep(500 * time.Millisecond)
	}
	if n := CountUnread(t, db, rid); n < 3 {
		t.Fatalf("only %d of 3 events ingested for user %d", n, userID)
	}

	token := MintToken(t, cfg.JWTSecret, userID)
	patch, _ := json.Marshal(map[string]any{"mark_all_read": true})
	_ = HTTPDoJSON(t, http.MethodPatch, cfg.BaseURL+"/v1/notifications", token, patch, 200)

	if n := CountUnread(t, db, rid); n != 0 {
		t.Fatalf("expected 0 unread after mark all read, got %d", n)
	}
}

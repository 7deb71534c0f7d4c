package notifier

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/homevault/notifier/internal/domain/notification"
)

var (
	mSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "notifier_stream_sessions",
		Help: "Open SSE sessions.",
	})
	mFrames = promauto.NewCounter(prometheus.CounterOpts{
		Name: "notifier_stream_frames_total",
		Help: "Notification frames written to SSE clients.",
	})
	mDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "notifier_stream_dropped_total",
		Help: "Pushes dropped because a session buffer was full.",
	})
)

// Stream keeps the connection open and emits one SSE frame per notification
// published for the caller, plus periodic keepalive comments. Everything the
// session acquires (bus subscription, keepalive ticker) is released on every
// exit path: client disconnect, server shutdown, or a dead transport.
func (h *Handler) Stream(w http.ResponseWriter, r *http.Request) {
	rec, err := resolveRecipient(r.Context(), h.recipients)
	if err != nil {
		switch {
		case errors.Is(err, ErrUnauthenticated):
			writeError(w, http.StatusUnauthorized, "auth required")
		case errors.Is(err, ErrRecipientNotFound):
			writeError(w, http.StatusNotFound, "no recipient for session")
		default:
			h.serverError(r, w, "resolve recipient", err)
		}
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	log := h.log.With(zap.Int64("recipient_id", rec.ID))

	// Handoff channel between the publisher's goroutine and this one. The bus
	// must never block on a slow client; a full buffer drops the push, which
	// is fine because the record is already persisted.
	inbox := make(chan *notification.Notification, h.sendBuffer)
	unsubscribe := h.bus.Subscribe(rec.ID, func(n *notification.Notification) {
		select {
		case inbox <- n:
		default:
			mDropped.Inc()
		}
	})
	defer unsubscribe()

	ticker := time.NewTicker(h.keepalive)
	defer ticker.Stop()

	mSessions.Inc()
	defer mSessions.Dec()
	log.Debug("stream session opened")
	defer log.Debug("stream session closed")

	// First frame flushes the response headers through any buffering proxy.
	if err := writeComment(w, flusher, "connected"); err != nil {
		return
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case n := <-inbox:
			if err := writeEvent(w, flusher, n); err != nil {
				// Transport is gone; the deferred cleanup handles the rest.
				log.Debug("stream write failed", zap.Error(err))
				return
			}
			mFrames.Inc()
		case <-ticker.C:
			if err := writeComment(w, flusher, "keepalive"); err != nil {
				log.Debug("stream keepalive failed", zap.Error(err))
				return
			}
		}
	}
}

func writeEvent(w http.ResponseWriter, f http.Flusher, n *notification.Notification) error {
	data, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("encode frame: %w", err)
	}
	if _, err := fmt.Fprintf(w, "event: notification\ndata: %s\n\n", data); err != nil {
		return err
	}
	f.Flush()
	return nil
}

func writeComment(w http.ResponseWriter, f http.Flusher, text string) error {
	if _, err := fmt.Fprintf(w, ": %s\n\n", text); err != nil {
		return err
	}
	f.Flush()
	return nil
}

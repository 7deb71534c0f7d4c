package notifier

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/homevault/notifier/internal/bus"
	"github.com/homevault/notifier/internal/domain/notification"
	"github.com/homevault/notifier/internal/domain/recipient"
	"github.com/homevault/notifier/internal/obs"
)

// DeliveryBus is the slice of the bus the transport needs: stream sessions
// subscribe, nothing here publishes.
type DeliveryBus interface {
	Subscribe(recipientID int64, fn bus.Listener) (unsubscribe func())
}

type Handler struct {
	log        *zap.Logger
	svc        *Service
	recipients recipient.Repo
	bus        DeliveryBus

	keepalive  time.Duration
	sendBuffer int
}

func NewHandler(log *zap.Logger, svc *Service, recipients recipient.Repo, bus DeliveryBus, keepalive time.Duration, sendBuffer int) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	if keepalive <= 0 {
		keepalive = 30 * time.Second
	}
	if sendBuffer <= 0 {
		sendBuffer = 16
	}
	return &Handler{
		log:        log,
		svc:        svc,
		recipients: recipients,
		bus:        bus,
		keepalive:  keepalive,
		sendBuffer: sendBuffer,
	}
}

// Routes returns the authenticated /v1/notifications surface.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.List)
	r.Patch("/", h.MarkRead)
	r.Get("/stream", h.Stream)
	return r
}

// List returns the newest page of the caller's notifications plus the total
// unread count. A session without a backing recipient record gets an empty
// result, not an error: brand-new users hit this before anything can address
// them.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	rec, err := resolveRecipient(r.Context(), h.recipients)
	if err != nil {
		switch {
		case errors.Is(err, ErrUnauthenticated):
			writeError(w, http.StatusUnauthorized, "auth required")
		case errors.Is(err, ErrRecipientNotFound):
			writeJSON(w, http.StatusOK, &Overview{Notifications: []*notification.Notification{}})
		default:
			h.serverError(r, w, "resolve recipient", err)
		}
		return
	}

	ov, err := h.svc.Overview(r.Context(), rec.ID)
	if err != nil {
		h.serverError(r, w, "list notifications", err)
		return
	}
	if ov.Notifications == nil {
		ov.Notifications = []*notification.Notification{}
	}
	writeJSON(w, http.StatusOK, ov)
}

type markReadRequest struct {
	MarkAllRead     bool    `json:"mark_all_read"`
	NotificationIDs []int64 `json:"notification_ids"`
}

// MarkRead handles both the single-ids and the mark-everything form. The
// operation is idempotent and always scoped to the caller's own recipient;
// foreign ids vanish silently so the endpoint cannot be used to probe them.
func (h *Handler) MarkRead(w http.ResponseWriter, r *http.Request) {
	var req markReadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad json")
		return
	}

	rec, err := resolveRecipient(r.Context(), h.recipients)
	if err != nil {
		switch {
		case errors.Is(err, ErrUnauthenticated):
			writeError(w, http.StatusUnauthorized, "auth required")
		case errors.Is(err, ErrRecipientNotFound):
			writeJSON(w, http.StatusOK, map[string]bool{"success": true})
		default:
			h.serverError(r, w, "resolve recipient", err)
		}
		return
	}

	if req.MarkAllRead {
		err = h.svc.MarkAllRead(r.Context(), rec.ID)
	} else {
		err = h.svc.MarkRead(r.Context(), rec.ID, req.NotificationIDs)
	}
	if err != nil {
		h.serverError(r, w, "mark read", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *Handler) serverError(r *http.Request, w http.ResponseWriter, msg string, err error) {
	obs.WithTrace(r.Context(), h.log).Error(msg, zap.Error(err))
	writeError(w, http.StatusInternalServerError, "internal error")
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

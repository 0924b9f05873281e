package event

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/openintent-ai/openintent/internal/httpserver"
)

// Handler exposes the durable event log and the live stream endpoint
// (spec §6).
type Handler struct {
	store  *Store
	broker *Broker
	logger *slog.Logger
}

// NewHandler constructs a Handler.
func NewHandler(store *Store, broker *Broker, logger *slog.Logger) *Handler {
	return &Handler{store: store, broker: broker, logger: logger}
}

// Routes mounts the event list endpoint under /intents/{intentID}/events.
// The /streams/events endpoint is served by StreamRoutes.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.handleList)
	return r
}

// StreamRoutes mounts the long-lived subscription stream.
func (h *Handler) StreamRoutes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.handleStream)
	return r
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	intentID, err := uuid.Parse(chi.URLParam(r, "intentID"))
	if err != nil {
		httpserver.RespondError(w, http.StatusBadRequest, "validation", "invalid intent id")
		return
	}

	fromSeq := int64(0)
	if v := r.URL.Query().Get("from_sequence"); v != "" {
		parsed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			httpserver.RespondError(w, http.StatusBadRequest, "validation", "invalid from_sequence")
			return
		}
		fromSeq = parsed
	}
	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 && parsed <= 1000 {
			limit = parsed
		}
	}

	events, err := h.store.List(r.Context(), intentID, fromSeq, limit)
	if err != nil {
		h.logger.Error("listing events", "error", err)
		httpserver.RespondError(w, http.StatusInternalServerError, "internal", "could not list events")
		return
	}
	httpserver.Respond(w, http.StatusOK, map[string]any{"events": events})
}

// handleStream serves a long-lived newline-delimited JSON stream. It
// subscribes to the live broker first, then replays the durable log from
// from_sequence, so nothing committed during replay is lost to the gap
// between "already past the SELECT" and "not yet subscribed". It records
// the last durable sequence observed during replay and discards any live
// event at or below it, avoiding duplication at the handoff (spec §4.2).
func (h *Handler) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		httpserver.RespondError(w, http.StatusInternalServerError, "internal", "streaming unsupported")
		return
	}

	q := r.URL.Query()
	var filter Filter
	if v := q.Get("intent_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			httpserver.RespondError(w, http.StatusBadRequest, "validation", "invalid intent_id")
			return
		}
		filter.IntentID = &id
	}
	filter.AgentID = q.Get("agent_id")

	fromSeq := int64(0)
	if v := q.Get("from_sequence"); v != "" {
		parsed, err := strconv.ParseInt(v, 10, 64)
		if err == nil {
			fromSeq = parsed
		}
	}

	policy := PolicyDropOldest
	if v := q.Get("backpressure"); v != "" {
		policy = BackpressurePolicy(v)
	}

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)

	encoder := json.NewEncoder(w)
	write := func(ev Event) bool {
		if err := encoder.Encode(ev); err != nil {
			return false
		}
		flusher.Flush()
		return true
	}

	// Subscribe before reading the durable log so that any event committed
	// concurrently with the replay below is queued here rather than missed
	// (it would otherwise be neither in the replay window nor yet
	// deliverable live). Duplicates are filtered out below by sequence
	// number once lastDurable is known.
	sub := h.broker.Subscribe(filter, policy)
	defer h.broker.Unsubscribe(sub.Token)

	var lastDurable int64
	if filter.IntentID != nil {
		durable, err := h.store.List(r.Context(), *filter.IntentID, fromSeq, 10000)
		if err != nil {
			h.logger.Error("replaying events", "error", err)
			return
		}
		for _, ev := range durable {
			if !filter.Matches(ev) {
				continue
			}
			if !write(ev) {
				return
			}
			lastDurable = ev.SequenceNumber
		}
	}

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-sub.Closed():
			return
		case ev, ok := <-sub.Events():
			if !ok {
				return
			}
			if filter.IntentID != nil && ev.SequenceNumber <= lastDurable {
				continue
			}
			if !write(ev) {
				return
			}
		}
	}
}

package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/md-rashed-zaman/pharmavisit/services/booking-service/internal/booking"
	"github.com/md-rashed-zaman/pharmavisit/services/booking-service/internal/session"
)

// FlowHandler validates booking wizard moves. The draft stays with the client.
type FlowHandler struct {
	sessions *SessionResolver
	logger   *slog.Logger
}

func NewFlowHandler(sessions *SessionResolver, logger *slog.Logger) *FlowHandler {
	return &FlowHandler{sessions: sessions, logger: logger}
}

type flowRequest struct {
	From  string        `json:"from"`
	To    string        `json:"to"`
	Draft session.Draft `json:"draft"`
}

type flowResponse struct {
	Step     string   `json:"step"`
	Furthest string   `json:"furthest"`
	Allowed  bool     `json:"allowed"`
	Missing  []string `json:"missing,omitempty"`
}

func (h *FlowHandler) Transition(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if _, err := h.sessions.Resolve(r); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	var req flowRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	from, err := session.ParseStep(req.From)
	if err != nil {
		writeError(w, r, h.logger, &booking.ValidationError{Fields: []string{"from"}, Reason: err.Error()})
		return
	}
	to, err := session.ParseStep(req.To)
	if err != nil {
		writeError(w, r, h.logger, &booking.ValidationError{Fields: []string{"to"}, Reason: err.Error()})
		return
	}

	resp := flowResponse{Step: to.String(), Furthest: session.Furthest(req.Draft).String(), Allowed: true}
	if err := session.Transition(from, to, req.Draft); err != nil {
		var terr *session.TransitionError
		if !errors.As(err, &terr) {
			writeError(w, r, h.logger, err)
			return
		}
		resp.Step = from.String()
		resp.Allowed = false
		resp.Missing = terr.Missing
		writeJSON(w, http.StatusConflict, resp)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

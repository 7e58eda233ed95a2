package api

import (
	"context"
	"fmt"
	"net/http"
)

// CycleTrigger starts cycles.
type CycleTrigger interface {
	Trigger(ctx context.Context) error
}

// CycleHandler handles manual cycle triggers.
type CycleHandler struct {
	trigger CycleTrigger
	base    context.Context
}

// NewCycleHandler creates a new cycle handler.
func NewCycleHandler(t CycleTrigger) *CycleHandler {
	return &CycleHandler{trigger: t, base: context.Background()}
}

type triggerResponse struct {
	Status string `json:"status"`
}

// HandleTrigger handles POST /cycle. It answers 202 once the cycle has
// started and 409 while another one is running.
func (h *CycleHandler) HandleTrigger(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
		return
	}
	if err := h.trigger.Trigger(h.base); err != nil {
		writeError(w, http.StatusConflict, "cycle_running", fmt.Errorf("%w: %w", ErrBusy, err))
		return
	}
	writeJSON(w, http.StatusAccepted, triggerResponse{Status: "started"})
}

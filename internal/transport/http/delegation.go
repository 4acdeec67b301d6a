package httptransport

import (
	"net/http"
	"time"

	"tokenctx/internal/delegation"
	id "tokenctx/pkg/domain"
	"tokenctx/pkg/platform/httputil"
	"tokenctx/pkg/requestcontext"
)

type startDelegationRequest struct {
	Delegatee string    `json:"delegatee"`
	Until     time.Time `json:"until"`
}

type delegationResponse struct {
	State     string `json:"state"`
	Delegatee string `json:"delegatee,omitempty"`
	Until     string `json:"until,omitempty"`
}

// handleStartDelegation handles POST /tokens/{token}/delegation.
func (h *Handler) handleStartDelegation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	operator, err := requireOperator(ctx)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	token, err := tokenParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[startDelegationRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	delegatee, err := id.ParseIdentity(req.Delegatee)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	if err := h.service.StartDelegateOwnership(ctx, operator, token, delegatee, req.Until); err != nil {
		h.logger.WarnContext(ctx, "delegation start failed",
			"request_id", requestID,
			"token", token.String(),
			"delegatee", delegatee.String(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "delegation started",
		"request_id", requestID,
		"token", token.String(),
		"delegatee", delegatee.String(),
	)
	w.WriteHeader(http.StatusCreated)
}

// handleAcceptDelegation handles PUT /tokens/{token}/delegation.
func (h *Handler) handleAcceptDelegation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	operator, err := requireOperator(ctx)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	token, err := tokenParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	if err := h.service.AcceptOwnershipDelegation(ctx, operator, token); err != nil {
		h.logger.WarnContext(ctx, "delegation acceptance failed",
			"request_id", requestID,
			"token", token.String(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleStopDelegation handles DELETE /tokens/{token}/delegation.
func (h *Handler) handleStopDelegation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	operator, err := requireOperator(ctx)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	token, err := tokenParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	if err := h.service.StopOwnershipDelegation(ctx, operator, token); err != nil {
		h.logger.WarnContext(ctx, "delegation stop failed",
			"request_id", requestID,
			"token", token.String(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleGetDelegation handles GET /tokens/{token}/delegation.
func (h *Handler) handleGetDelegation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	token, err := tokenParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	record, state, err := h.service.OwnershipDelegationOf(ctx, token)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	resp := delegationResponse{State: string(state)}
	if state != delegation.StateNone {
		resp.Delegatee = record.Delegatee.String()
		resp.Until = record.Until.UTC().Format(time.RFC3339)
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

// handleManagerOf handles GET /tokens/{token}/manager.
func (h *Handler) handleManagerOf(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	token, err := tokenParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	manager, err := h.service.OwnershipManagerOf(ctx, token)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"manager": manager.String()})
}

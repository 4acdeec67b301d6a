package httptransport

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"tokenctx/internal/contextreg"
	id "tokenctx/pkg/domain"
	dErrors "tokenctx/pkg/domain-errors"
	"tokenctx/pkg/platform/httputil"
	"tokenctx/pkg/requestcontext"
)

type createContextRequest struct {
	Controller               string `json:"controller"`
	DetachingDurationSeconds int64  `json:"detaching_duration_seconds"`
	Message                  string `json:"message"`
}

type updateContextRequest struct {
	Controller               string `json:"controller"`
	DetachingDurationSeconds int64  `json:"detaching_duration_seconds"`
}

type contextResponse struct {
	CtxHash                  string `json:"ctx_hash"`
	Controller               string `json:"controller"`
	DetachingDurationSeconds int64  `json:"detaching_duration_seconds"`
	Active                   bool   `json:"active"`
}

func toContextResponse(hash id.CtxHash, record *contextreg.Context) contextResponse {
	return contextResponse{
		CtxHash:                  hash.String(),
		Controller:               record.Controller.String(),
		DetachingDurationSeconds: int64(record.DetachingDuration / time.Second),
		Active:                   record.Active,
	}
}

func ctxHashParam(r *http.Request) (id.CtxHash, error) {
	return id.ParseCtxHash(chi.URLParam(r, "ctxHash"))
}

// handleCreateContext handles POST /contexts.
func (h *Handler) handleCreateContext(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	operator, err := requireOperator(ctx)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[createContextRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	controller, err := id.ParseIdentity(req.Controller)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	hash, err := h.service.CreateContext(ctx, operator, controller, time.Duration(req.DetachingDurationSeconds)*time.Second, []byte(req.Message))
	if err != nil {
		h.logger.WarnContext(ctx, "context creation failed",
			"request_id", requestID,
			"operator", operator.String(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "context created",
		"request_id", requestID,
		"ctx_hash", hash.String(),
		"controller", controller.String(),
	)
	httputil.WriteJSON(w, http.StatusCreated, map[string]string{"ctx_hash": hash.String()})
}

// handleUpdateContext handles PUT /contexts/{ctxHash}.
func (h *Handler) handleUpdateContext(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	operator, err := requireOperator(ctx)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	hash, err := ctxHashParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[updateContextRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	controller, err := id.ParseIdentity(req.Controller)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	if err := h.service.UpdateContext(ctx, operator, hash, controller, time.Duration(req.DetachingDurationSeconds)*time.Second); err != nil {
		h.logger.WarnContext(ctx, "context update failed",
			"request_id", requestID,
			"ctx_hash", hash.String(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleDeprecateContext handles POST /contexts/{ctxHash}/deprecate.
func (h *Handler) handleDeprecateContext(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	operator, err := requireOperator(ctx)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	hash, err := ctxHashParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	if err := h.service.DeprecateContext(ctx, operator, hash); err != nil {
		h.logger.WarnContext(ctx, "context deprecation failed",
			"request_id", requestID,
			"ctx_hash", hash.String(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "context deprecated",
		"request_id", requestID,
		"ctx_hash", hash.String(),
	)
	w.WriteHeader(http.StatusNoContent)
}

// handleGetContext handles GET /contexts/{ctxHash}.
func (h *Handler) handleGetContext(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	hash, err := ctxHashParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	record, err := h.service.GetContext(ctx, hash)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toContextResponse(hash, record))
}

// handleContextAt handles GET /contexts?index=i (global creation order).
func (h *Handler) handleContextAt(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("index")
	index, err := strconv.Atoi(raw)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "index must be an integer"))
		return
	}
	hash, err := h.index.ContextAt(index)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"ctx_hash": hash.String()})
}

// handleContextCount handles GET /contexts/count.
func (h *Handler) handleContextCount(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]int{"count": h.index.ContextCount()})
}

// handleMaxDetachingDuration handles GET /contexts/max-detaching-duration.
func (h *Handler) handleMaxDetachingDuration(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]int64{
		"max_detaching_duration_seconds": int64(h.service.MaxDetachingDuration() / time.Second),
	})
}

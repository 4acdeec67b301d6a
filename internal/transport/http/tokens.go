package httptransport

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"tokenctx/internal/attachment"
	id "tokenctx/pkg/domain"
	"tokenctx/pkg/platform/httputil"
	"tokenctx/pkg/requestcontext"
)

type attachRequest struct {
	Data []byte `json:"data,omitempty"`
}

type lockRequest struct {
	Locked bool `json:"locked"`
}

type userRequest struct {
	User string `json:"user"`
}

type detachRequest struct {
	Data []byte `json:"data,omitempty"`
}

type tokenContextResponse struct {
	Attached             bool   `json:"attached"`
	Locked               bool   `json:"locked"`
	User                 string `json:"user,omitempty"`
	ReadyForDetachmentAt string `json:"ready_for_detachment_at,omitempty"`
	State                string `json:"state"`
}

type tokenContextsResponse struct {
	Contexts []string `json:"contexts"`
	Count    int      `json:"count"`
}

func tokenParam(r *http.Request) (id.TokenID, error) {
	return id.ParseTokenID(chi.URLParam(r, "token"))
}

// handleAttach handles POST /tokens/{token}/contexts/{ctxHash}/attach.
func (h *Handler) handleAttach(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	operator, hash, token, ok := h.mutationParams(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[attachRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	if err := h.service.AttachContext(ctx, operator, hash, token, req.Data); err != nil {
		h.logger.WarnContext(ctx, "attach failed",
			"request_id", requestID,
			"ctx_hash", hash.String(),
			"token", token.String(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "context attached",
		"request_id", requestID,
		"ctx_hash", hash.String(),
		"token", token.String(),
	)
	w.WriteHeader(http.StatusNoContent)
}

// handleSetLock handles POST /tokens/{token}/contexts/{ctxHash}/lock.
func (h *Handler) handleSetLock(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	operator, hash, token, ok := h.mutationParams(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[lockRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	if err := h.service.SetContextLock(ctx, operator, hash, token, req.Locked); err != nil {
		h.logger.WarnContext(ctx, "lock update failed",
			"request_id", requestID,
			"ctx_hash", hash.String(),
			"token", token.String(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleSetUser handles POST /tokens/{token}/contexts/{ctxHash}/user.
func (h *Handler) handleSetUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	operator, hash, token, ok := h.mutationParams(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[userRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	user, err := id.ParseIdentity(req.User)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	if err := h.service.SetContextUser(ctx, operator, hash, token, user); err != nil {
		h.logger.WarnContext(ctx, "user assignment failed",
			"request_id", requestID,
			"ctx_hash", hash.String(),
			"token", token.String(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleRequestDetach handles POST /tokens/{token}/contexts/{ctxHash}/request-detach.
func (h *Handler) handleRequestDetach(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	operator, hash, token, ok := h.mutationParams(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[detachRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	if err := h.service.RequestDetachContext(ctx, operator, hash, token, req.Data); err != nil {
		h.logger.WarnContext(ctx, "detach request failed",
			"request_id", requestID,
			"ctx_hash", hash.String(),
			"token", token.String(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleExecDetach handles POST /tokens/{token}/contexts/{ctxHash}/exec-detach.
func (h *Handler) handleExecDetach(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	operator, hash, token, ok := h.mutationParams(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[detachRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	if err := h.service.ExecDetachContext(ctx, operator, hash, token, req.Data); err != nil {
		h.logger.WarnContext(ctx, "detach execution failed",
			"request_id", requestID,
			"ctx_hash", hash.String(),
			"token", token.String(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "context detached",
		"request_id", requestID,
		"ctx_hash", hash.String(),
		"token", token.String(),
	)
	w.WriteHeader(http.StatusNoContent)
}

// handleTokenContext handles GET /tokens/{token}/contexts/{ctxHash}.
func (h *Handler) handleTokenContext(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	hash, err := ctxHashParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	token, err := tokenParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	attached, err := h.service.IsAttachedWithContext(ctx, hash, token)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	resp := tokenContextResponse{State: string(attachment.StateFree)}
	if attached {
		record, err := h.service.TokenContextOf(ctx, hash, token)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		resp.Attached = true
		resp.Locked = record.Locked
		if !record.User.IsZero() {
			resp.User = record.User.String()
		}
		resp.ReadyForDetachmentAt = readyForDetachmentLabel(record.ReadyForDetachmentAt)
		resp.State = string(record.State(requestcontext.Now(ctx)))
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

// handleTokenContexts handles GET /tokens/{token}/contexts.
func (h *Handler) handleTokenContexts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	token, err := tokenParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	hashes, err := h.tokenContexts.List(ctx, token)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	resp := tokenContextsResponse{Contexts: make([]string, 0, len(hashes)), Count: len(hashes)}
	for _, hash := range hashes {
		resp.Contexts = append(resp.Contexts, hash.String())
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

// mutationParams resolves the operator plus the hash and token route params
// shared by every attachment mutation.
func (h *Handler) mutationParams(w http.ResponseWriter, r *http.Request) (id.Identity, id.CtxHash, id.TokenID, bool) {
	ctx := r.Context()
	operator, err := requireOperator(ctx)
	if err != nil {
		httputil.WriteError(w, err)
		return id.ZeroIdentity, "", 0, false
	}
	hash, err := ctxHashParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return id.ZeroIdentity, "", 0, false
	}
	token, err := tokenParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return id.ZeroIdentity, "", 0, false
	}
	return operator, hash, token, true
}

// readyForDetachmentLabel formats the ready-at time for responses.
func readyForDetachmentLabel(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

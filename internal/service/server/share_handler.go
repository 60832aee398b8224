package server

import (
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/vertextoedge/secure-file-share/internal/domain"
	"github.com/vertextoedge/secure-file-share/internal/service/share"
)

// ShareHandler handles share management and access requests
type ShareHandler struct {
	service *share.Service
	logger  *zap.Logger
}

// NewShareHandler creates a new ShareHandler
func NewShareHandler(service *share.Service, logger *zap.Logger) *ShareHandler {
	return &ShareHandler{
		service: service,
		logger:  logger,
	}
}

// HandleCreate handles POST /shares
func (h *ShareHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req createShareRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	info, err := h.service.CreateShare(&share.CreateShareRequest{
		Path:             req.Path,
		AccessType:       domain.AccessType(req.AccessType),
		MaxAccesses:      req.MaxAccesses,
		AllowZipDownload: req.AllowZipDownload,
		Security:         req.Security.toSettings(),
		Metadata:         req.Metadata,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, info)
}

// HandleGet handles GET /shares/{id}
func (h *ShareHandler) HandleGet(w http.ResponseWriter, r *http.Request, shareID string) {
	info, err := h.service.GetShare(shareID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// HandleModify handles PUT /shares/{id}
func (h *ShareHandler) HandleModify(w http.ResponseWriter, r *http.Request, shareID string) {
	var req modifyShareRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	info, err := h.service.ModifyShare(&share.ModifyShareRequest{
		ID:               shareID,
		AllowZipDownload: req.AllowZipDownload,
		MaxAccesses:      req.MaxAccesses,
		Security:         req.Security.toSettings(),
		Metadata:         req.Metadata,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, info)
}

// HandleRevoke handles DELETE /shares/{id}. The body is optional and may
// carry a revocation reason.
func (h *ShareHandler) HandleRevoke(w http.ResponseWriter, r *http.Request, shareID string) {
	var req revokeShareRequest
	if err := decodeOptionalJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	if err := h.service.RevokeShare(&share.RevokeShareRequest{ID: shareID, Reason: req.Reason}); err != nil {
		writeError(w, h.logger, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleList handles GET /shares with pagination, sorting, and filter
// query parameters
func (h *ShareHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	req := &share.ListSharesRequest{
		Path:           q.Get("path"),
		Status:         domain.ShareStatus(q.Get("status")),
		IncludeExpired: q.Get("includeExpired") == "true",
		SortBy:         q.Get("sortBy"),
		SortOrder:      q.Get("sortOrder"),
	}
	if v := q.Get("offset"); v != "" {
		offset, err := strconv.Atoi(v)
		if err != nil || offset < 0 {
			writeError(w, h.logger, domain.NewValidationError(map[string]string{"offset": "must be a non-negative integer"}))
			return
		}
		req.Offset = offset
	}
	if v := q.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 0 {
			writeError(w, h.logger, domain.NewValidationError(map[string]string{"limit": "must be a non-negative integer"}))
			return
		}
		req.Limit = limit
	}

	result, err := h.service.ListShares(req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// HandleAccess handles POST /shares/{id}/access: the full gate sequence
// including the password check, consuming one access on success
func (h *ShareHandler) HandleAccess(w http.ResponseWriter, r *http.Request, shareID string) {
	var req accessShareRequest
	if err := decodeOptionalJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	info, err := h.service.AccessShare(accessRequest(r, shareID, req.Password))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, info)
}

// HandleLogs handles GET /shares/{id}/logs
func (h *ShareHandler) HandleLogs(w http.ResponseWriter, r *http.Request, shareID string) {
	entries, err := h.service.GetAccessLogs(shareID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if entries == nil {
		entries = []*domain.AccessLogEntry{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"shareId": shareID,
		"entries": entries,
	})
}

// accessRequest assembles the service-level access request from the HTTP
// request. The CSRF token may arrive in the X-CSRF-Token header or the
// csrf_token query parameter.
func accessRequest(r *http.Request, shareID, password string) *share.AccessShareRequest {
	csrfToken := r.Header.Get("X-CSRF-Token")
	if csrfToken == "" {
		csrfToken = r.URL.Query().Get("csrf_token")
	}

	headers := map[string]string{}
	for _, name := range []string{"Referer", "Origin", "X-Forwarded-For"} {
		if v := r.Header.Get(name); v != "" {
			headers[name] = v
		}
	}

	return &share.AccessShareRequest{
		ID:       shareID,
		Password: password,
		Context: share.RequestContext{
			ClientIP:  clientIP(r),
			Referrer:  r.Referer(),
			CSRFToken: csrfToken,
		},
		UserAgent: r.UserAgent(),
		Headers:   headers,
	}
}

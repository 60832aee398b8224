package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/vertextoedge/secure-file-share/internal/domain"
	"github.com/vertextoedge/secure-file-share/internal/service/share"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// createShareRequest is the POST /shares body
type createShareRequest struct {
	Path             string            `json:"path" validate:"required"`
	AccessType       string            `json:"accessType" validate:"omitempty,oneof=public password token"`
	MaxAccesses      int64             `json:"maxAccesses" validate:"gte=0"`
	AllowZipDownload bool              `json:"allowZipDownload"`
	Security         *securityRequest  `json:"security"`
	Metadata         map[string]string `json:"metadata"`
}

// modifyShareRequest is the PUT /shares/{id} body. Absent fields leave the
// share untouched.
type modifyShareRequest struct {
	AllowZipDownload *bool             `json:"allowZipDownload"`
	MaxAccesses      *int64            `json:"maxAccesses" validate:"omitempty,gte=0"`
	Security         *securityRequest  `json:"security"`
	Metadata         map[string]string `json:"metadata"`
}

// securityRequest is the security section shared by create and modify
type securityRequest struct {
	Password          string            `json:"password"`
	ExpiresIn         int               `json:"expiresIn" validate:"gte=0"` // minutes
	RateLimit         *rateLimitRequest `json:"rateLimit"`
	IPAllowlist       []string          `json:"ipAllowlist" validate:"omitempty,dive,ip"`
	IPDenylist        []string          `json:"ipDenylist" validate:"omitempty,dive,ip"`
	ReferrerAllowlist []string          `json:"referrerAllowlist"`
	CSRFProtection    *bool             `json:"csrfProtection"`
}

type rateLimitRequest struct {
	MaxRequests   int `json:"maxRequests" validate:"required,gt=0"`
	WindowMinutes int `json:"windowMinutes" validate:"required,gt=0"`
}

// accessShareRequest is the POST /shares/{id}/access body
type accessShareRequest struct {
	Password string `json:"password"`
}

// revokeShareRequest is the optional DELETE /shares/{id} body
type revokeShareRequest struct {
	Reason string `json:"reason"`
}

func (r *securityRequest) toSettings() *share.SecuritySettings {
	if r == nil {
		return nil
	}
	settings := &share.SecuritySettings{
		Password:          r.Password,
		ExpiresInMinutes:  r.ExpiresIn,
		IPAllowlist:       r.IPAllowlist,
		IPDenylist:        r.IPDenylist,
		ReferrerAllowlist: r.ReferrerAllowlist,
		CSRFProtection:    r.CSRFProtection,
	}
	if r.RateLimit != nil {
		settings.RateLimit = &domain.RateLimitConfig{
			MaxRequests:   r.RateLimit.MaxRequests,
			WindowMinutes: r.RateLimit.WindowMinutes,
		}
	}
	return settings
}

// decodeJSON decodes and validates a request body into v.
// Returns a domain.ValidationError describing the problems, if any.
func decodeJSON(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return domain.NewValidationError(map[string]string{"body": "request body required"})
		}
		return domain.NewValidationError(map[string]string{"body": "malformed json"})
	}
	return validateStruct(v)
}

// decodeOptionalJSON is decodeJSON for endpoints whose body is optional.
// An absent body leaves v untouched; ContentLength is not consulted, so
// chunked requests decode like any other.
func decodeOptionalJSON(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return domain.NewValidationError(map[string]string{"body": "malformed json"})
	}
	return validateStruct(v)
}

// validateStruct maps validator failures to per-field problems
func validateStruct(v interface{}) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var invalid *validator.InvalidValidationError
	if errors.As(err, &invalid) {
		return domain.NewValidationError(map[string]string{"body": "invalid request"})
	}

	fields := make(map[string]string)
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			fields[fieldName(fe)] = tagMessage(fe)
		}
	}
	return domain.NewValidationError(fields)
}

func fieldName(fe validator.FieldError) string {
	name := fe.Field()
	if name == "" {
		return "body"
	}
	return strings.ToLower(name[:1]) + name[1:]
}

func tagMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "required"
	case "oneof":
		return "must be one of: " + fe.Param()
	case "gt":
		return "must be greater than " + fe.Param()
	case "gte":
		return "must not be negative"
	case "ip":
		return "must be a valid IP address"
	}
	return "invalid value"
}

// errorResponse is the JSON error body. Code carries the machine-readable
// reason for security rejections; Fields carries validation problems.
type errorResponse struct {
	Error  string            `json:"error"`
	Code   string            `json:"code,omitempty"`
	Fields map[string]string `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps domain errors to HTTP status codes. Anything unmapped is a
// 500 with a generic message; the detail stays in the server log.
func writeError(w http.ResponseWriter, logger *zap.Logger, err error) {
	if violation, ok := domain.AsSecurityViolation(err); ok {
		status := http.StatusForbidden
		if violation.Reason == domain.ReasonRateLimitExceeded {
			status = http.StatusTooManyRequests
		}
		writeJSON(w, status, errorResponse{Error: violation.Error(), Code: violation.Reason})
		return
	}

	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Validation failed", Fields: verr.Fields})
		return
	}

	switch {
	case errors.Is(err, domain.ErrShareNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "Share not found"})
	case errors.Is(err, domain.ErrInvalidPath):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid path"})
	case errors.Is(err, domain.ErrInvalidInput):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid request"})
	case errors.Is(err, domain.ErrInvalidPassword):
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "Invalid password"})
	case errors.Is(err, domain.ErrShareUnavailable):
		writeJSON(w, http.StatusForbidden, errorResponse{Error: "Share is no longer available"})
	case errors.Is(err, domain.ErrAccessLimitReached):
		writeJSON(w, http.StatusForbidden, errorResponse{Error: "Access limit reached"})
	case errors.Is(err, domain.ErrDirectoryDownloadNotAllowed):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Directory download not allowed"})
	default:
		logger.Error("unhandled error reached the HTTP boundary", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Internal server error"})
	}
}

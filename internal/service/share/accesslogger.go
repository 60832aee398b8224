package share

import (
	"go.uber.org/zap"

	"github.com/vertextoedge/secure-file-share/internal/domain"
	"github.com/vertextoedge/secure-file-share/internal/port"
)

// AccessLogger appends audit entries for every access attempt, success or
// failure. Appends are fire-and-forget: a log-store failure is itself
// logged and never fails the caller's request.
type AccessLogger struct {
	logs   port.AccessLogRepository
	logger *zap.Logger
}

// NewAccessLogger creates an access logger on top of the log repository
func NewAccessLogger(logs port.AccessLogRepository, logger *zap.Logger) *AccessLogger {
	return &AccessLogger{
		logs:   logs,
		logger: logger,
	}
}

// Record appends one audit entry
func (l *AccessLogger) Record(entry *domain.AccessLogEntry) {
	if err := l.logs.AppendAccessLog(entry); err != nil {
		l.logger.Error("failed to append access log entry",
			zap.String("share_id", entry.ShareID),
			zap.String("status", entry.Status),
			zap.Error(err))
	}
}

// ListForShare returns the chronological audit entries for a share
func (l *AccessLogger) ListForShare(shareID string) ([]*domain.AccessLogEntry, error) {
	return l.logs.ListAccessLogs(shareID)
}

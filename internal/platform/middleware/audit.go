package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/carebrief/carebrief/internal/platform/auth"
)

// AuditEntry captures who accessed which summary, when, from where, and how.
// For access-link callers the key is recorded only as a masked prefix; raw
// key material never reaches the log.
type AuditEntry struct {
	UserID        string
	UserRoles     []string
	AccessRole    string
	AccessKeyHint string
	SummaryID     string
	Action        string // read, create, update, delete
	IPAddress     string
	UserAgent     string
	Path          string
	Method        string
	Timestamp     time.Time
	RequestID     string
	StatusCode    int
}

// AuditRecorder persists audit entries. Tests provide a mock; production
// deployments may fan entries out to long-term storage.
type AuditRecorder interface {
	RecordAccess(entry AuditEntry) error
}

// AuditRecorderFunc is a function adapter for AuditRecorder.
type AuditRecorderFunc func(entry AuditEntry) error

func (f AuditRecorderFunc) RecordAccess(entry AuditEntry) error {
	return f(entry)
}

// Audit returns Echo middleware that logs access to summary routes (the
// doctor API under /api/v1/ and the patient viewer under /patient/). Beyond
// structured zerolog output, entries are handed to the optional recorder.
func Audit(logger zerolog.Logger, recorders ...AuditRecorder) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			path := req.URL.Path

			if !isAuditablePath(path) {
				return next(c)
			}

			// Execute the handler first so we capture the response status
			err := next(c)

			entry := AuditEntry{
				Timestamp:  time.Now().UTC(),
				Path:       path,
				Method:     req.Method,
				IPAddress:  c.RealIP(),
				UserAgent:  req.UserAgent(),
				StatusCode: c.Response().Status,
			}

			ctx := req.Context()
			entry.UserID = auth.UserIDFromContext(ctx)
			entry.UserRoles = auth.RolesFromContext(ctx)

			entry.RequestID = RequestIDFrom(c)

			// Access-link callers: the access handlers record the resolved
			// role on the echo context once the key validates.
			if role, ok := c.Get("access_role").(string); ok {
				entry.AccessRole = role
			}
			if key := c.QueryParam("access"); key != "" {
				entry.AccessKeyHint = maskAccessKey(key)
			}

			entry.Action = httpMethodToAction(req.Method)
			entry.SummaryID = extractSummaryID(path)

			if len(recorders) > 0 && recorders[0] != nil {
				if recErr := recorders[0].RecordAccess(entry); recErr != nil {
					logger.Error().Err(recErr).
						Str("request_id", entry.RequestID).
						Msg("failed to record audit entry")
				}
			}

			logger.Info().
				Str("type", "summary_audit").
				Str("request_id", entry.RequestID).
				Str("user_id", entry.UserID).
				Strs("user_roles", entry.UserRoles).
				Str("access_role", entry.AccessRole).
				Str("access_key", entry.AccessKeyHint).
				Str("summary_id", entry.SummaryID).
				Str("action", entry.Action).
				Str("method", entry.Method).
				Str("path", entry.Path).
				Str("remote_ip", entry.IPAddress).
				Int("status", entry.StatusCode).
				Msg("summary_access")

			return err
		}
	}
}

// isAuditablePath returns true if the path is under /api/v1/ or /patient/.
func isAuditablePath(path string) bool {
	return strings.HasPrefix(path, "/api/v1/") || strings.HasPrefix(path, "/patient/")
}

func httpMethodToAction(method string) string {
	switch method {
	case http.MethodGet, http.MethodHead:
		return "read"
	case http.MethodPost:
		return "create"
	case http.MethodPut, http.MethodPatch:
		return "update"
	case http.MethodDelete:
		return "delete"
	default:
		return "read"
	}
}

// extractSummaryID parses the summary id from supported URL shapes:
//   - /api/v1/summaries/<id>[/...]
//   - /patient/<id>
func extractSummaryID(path string) string {
	if rest, ok := strings.CutPrefix(path, "/api/v1/summaries/"); ok {
		if i := strings.IndexByte(rest, '/'); i >= 0 {
			rest = rest[:i]
		}
		return rest
	}
	if rest, ok := strings.CutPrefix(path, "/patient/"); ok {
		if i := strings.IndexByte(rest, '/'); i >= 0 {
			rest = rest[:i]
		}
		return rest
	}
	return ""
}

// maskAccessKey keeps enough of a key to correlate log lines without making
// the log a capability store.
func maskAccessKey(key string) string {
	if len(key) <= 10 {
		return "***"
	}
	return key[:10] + "***"
}

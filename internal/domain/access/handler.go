package access

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/carebrief/carebrief/internal/platform/auth"
	"github.com/carebrief/carebrief/internal/platform/notification"
	"github.com/carebrief/carebrief/pkg/phone"
)

// OwnershipChecker answers whether a doctor owns a summary. False covers both
// a missing summary and one owned by someone else, so handlers can return 404
// without leaking which it was.
type OwnershipChecker interface {
	IsOwner(ctx context.Context, summaryID uuid.UUID, doctorID string) (bool, error)
}

// Notifier sends templated SMS messages. Nil when SMS is not configured.
type Notifier interface {
	SendFromTemplate(ctx context.Context, templateID string, data map[string]string, recipient string) (*notification.Message, error)
}

type Handler struct {
	manager  *Manager
	owners   OwnershipChecker
	notifier Notifier
	log      zerolog.Logger
}

func NewHandler(manager *Manager, owners OwnershipChecker, notifier Notifier, log zerolog.Logger) *Handler {
	return &Handler{manager: manager, owners: owners, notifier: notifier, log: log}
}

// RegisterRoutes mounts the sharing endpoints on the authenticated doctor API.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	role := auth.RequireRole("doctor")
	api.POST("/summaries/:id/qr-code", h.CreateQRShare, role)
	api.POST("/summaries/:id/share-sms", h.ShareSMS, role)
	api.DELETE("/summaries/:id/access-keys/:key", h.RevokeKey, role)
	api.GET("/summaries/:id/access-keys", h.ListKeys, role)
}

type qrShareRequest struct {
	Role string `json:"role"`
}

type qrShareResponse struct {
	Success   bool   `json:"success"`
	AccessURL string `json:"access_url"`
	AccessKey string `json:"access_key"`
}

// CreateQRShare mints a fresh key for in-person sharing. The frontend renders
// the returned URL as a QR code, so a new key per scan is fine.
func (h *Handler) CreateQRShare(c echo.Context) error {
	summaryID, err := h.ownedSummaryID(c)
	if err != nil {
		return err
	}

	req := qrShareRequest{Role: RolePatient}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Role == "" {
		req.Role = RolePatient
	}
	if !ValidRole(req.Role) {
		return echo.NewHTTPError(http.StatusBadRequest, "role must be patient or caregiver")
	}

	key, shareURL, err := h.manager.IssueAccess(c.Request().Context(), IssueRequest{
		SummaryID: summaryID,
		Role:      req.Role,
	})
	if err != nil {
		h.log.Error().Err(err).Str("summary_id", summaryID.String()).Msg("issue qr access key")
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to create access key")
	}

	return c.JSON(http.StatusOK, qrShareResponse{
		Success:   true,
		AccessURL: shareURL,
		AccessKey: key.Key,
	})
}

type smsShareRequest struct {
	PhoneNumber string `json:"phone_number"`
	Role        string `json:"role"`
	PatientName string `json:"patient_name"`
}

type smsShareResponse struct {
	Success   bool   `json:"success"`
	MessageID string `json:"message_id"`
	AccessURL string `json:"access_url"`
}

// ShareSMS issues (or reuses) the key for a phone number and texts the link.
func (h *Handler) ShareSMS(c echo.Context) error {
	summaryID, err := h.ownedSummaryID(c)
	if err != nil {
		return err
	}

	if h.notifier == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "SMS sharing is not configured")
	}

	req := smsShareRequest{Role: RolePatient}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Role == "" {
		req.Role = RolePatient
	}
	if !ValidRole(req.Role) {
		return echo.NewHTTPError(http.StatusBadRequest, "role must be patient or caregiver")
	}
	normalized, err := phone.NormalizeE164(req.PhoneNumber)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid phone number")
	}

	_, shareURL, err := h.manager.IssueAccess(c.Request().Context(), IssueRequest{
		SummaryID:   summaryID,
		Role:        req.Role,
		PhoneNumber: &normalized,
	})
	if err != nil {
		h.log.Error().Err(err).Str("summary_id", summaryID.String()).Msg("issue sms access key")
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to create access key")
	}

	msg, err := h.notifier.SendFromTemplate(c.Request().Context(), notification.TemplateSummaryShare, map[string]string{
		"patient_name": req.PatientName,
		"access_url":   shareURL,
	}, normalized)
	if err != nil {
		h.log.Error().Err(err).Str("summary_id", summaryID.String()).Msg("send share sms")
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to send SMS")
	}

	return c.JSON(http.StatusOK, smsShareResponse{
		Success:   true,
		MessageID: msg.ID,
		AccessURL: shareURL,
	})
}

// RevokeKey deactivates a key minted for one of the doctor's summaries.
func (h *Handler) RevokeKey(c echo.Context) error {
	summaryID, err := h.ownedSummaryID(c)
	if err != nil {
		return err
	}

	raw := c.Param("key")
	key, err := h.manager.repo.GetByKey(c.Request().Context(), raw)
	if err != nil || key.SummaryID != summaryID {
		return echo.NewHTTPError(http.StatusNotFound, "access key not found")
	}
	if err := h.manager.Revoke(c.Request().Context(), raw); err != nil {
		h.log.Error().Err(err).Str("summary_id", summaryID.String()).Msg("revoke access key")
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to revoke access key")
	}
	return c.JSON(http.StatusOK, map[string]bool{"success": true})
}

// ListKeys returns every key minted for one of the doctor's summaries.
func (h *Handler) ListKeys(c echo.Context) error {
	summaryID, err := h.ownedSummaryID(c)
	if err != nil {
		return err
	}

	keys, err := h.manager.repo.ListBySummary(c.Request().Context(), summaryID)
	if err != nil {
		h.log.Error().Err(err).Str("summary_id", summaryID.String()).Msg("list access keys")
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list access keys")
	}
	return c.JSON(http.StatusOK, map[string]any{"data": keys})
}

// ownedSummaryID parses the :id param and verifies the calling doctor owns
// that summary. Missing and foreign summaries both come back as 404.
func (h *Handler) ownedSummaryID(c echo.Context) (uuid.UUID, error) {
	summaryID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid summary id")
	}

	doctorID := auth.UserIDFromContext(c.Request().Context())
	owns, err := h.owners.IsOwner(c.Request().Context(), summaryID, doctorID)
	if err != nil {
		h.log.Error().Err(err).Str("summary_id", summaryID.String()).Msg("check summary ownership")
		return uuid.Nil, echo.NewHTTPError(http.StatusInternalServerError, "failed to load summary")
	}
	if !owns {
		return uuid.Nil, echo.NewHTTPError(http.StatusNotFound, "summary not found")
	}
	return summaryID, nil
}

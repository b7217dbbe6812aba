package summary

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/carebrief/carebrief/internal/domain/access"
	"github.com/carebrief/carebrief/internal/platform/auth"
	"github.com/carebrief/carebrief/pkg/pagination"
)

// ClaimTokenIssuer issues and verifies the tokens patients exchange to link
// their account to a summary.
type ClaimTokenIssuer interface {
	Issue(summaryID string) (string, error)
	Verify(tokenStr string) (string, error)
}

// Handler serves the authenticated doctor API under /api/v1.
type Handler struct {
	svc         *Service
	claimTokens ClaimTokenIssuer
	log         zerolog.Logger
}

func NewHandler(svc *Service, claimTokens ClaimTokenIssuer, log zerolog.Logger) *Handler {
	return &Handler{svc: svc, claimTokens: claimTokens, log: log}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	role := auth.RequireRole("doctor")
	api.POST("/summaries", h.CreateSummary, role)
	api.GET("/summaries", h.ListSummaries, role)
	api.GET("/summaries/:id", h.GetSummary, role)
	api.PUT("/summaries/:id/blocks", h.UpdateBlocks, role)
	api.PUT("/summaries/:id/locale", h.UpdateLocale, role)
	api.PUT("/summaries/:id/status", h.UpdateStatus, role)
	api.POST("/summaries/:id/claim-token", h.CreateClaimToken, role)
}

type createSummaryRequest struct {
	Blocks          []Block `json:"blocks"`
	DischargeText   string  `json:"discharge_text"`
	Status          string  `json:"status"`
	PreferredLocale string  `json:"preferred_locale"`
}

func (h *Handler) CreateSummary(c echo.Context) error {
	var req createSummaryRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	sum := &PatientSummary{
		DoctorID:        auth.UserIDFromContext(c.Request().Context()),
		Blocks:          req.Blocks,
		DischargeText:   req.DischargeText,
		Status:          req.Status,
		PreferredLocale: req.PreferredLocale,
	}
	if err := h.svc.Create(c.Request().Context(), sum); err != nil {
		return h.writeError(c, err, "create summary")
	}
	return c.JSON(http.StatusCreated, sum)
}

func (h *Handler) ListSummaries(c echo.Context) error {
	pg := pagination.FromContext(c)
	doctorID := auth.UserIDFromContext(c.Request().Context())

	items, total, err := h.svc.ListByDoctor(c.Request().Context(), doctorID, pg.Limit, pg.Offset)
	if err != nil {
		h.log.Error().Err(err).Msg("list summaries")
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list summaries")
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) GetSummary(c echo.Context) error {
	sum, err := h.ownedSummary(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, sum)
}

type updateBlocksRequest struct {
	Blocks []Block `json:"blocks"`
}

func (h *Handler) UpdateBlocks(c echo.Context) error {
	sum, err := h.ownedSummary(c)
	if err != nil {
		return err
	}

	var req updateBlocksRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	doctorID := auth.UserIDFromContext(c.Request().Context())
	if err := h.svc.UpdateBlocks(c.Request().Context(), sum.ID, doctorID, req.Blocks); err != nil {
		return h.writeError(c, err, "update blocks")
	}
	return c.JSON(http.StatusOK, map[string]bool{"success": true})
}

type updateLocaleRequest struct {
	PreferredLocale string `json:"preferred_locale"`
}

func (h *Handler) UpdateLocale(c echo.Context) error {
	sum, err := h.ownedSummary(c)
	if err != nil {
		return err
	}

	var req updateLocaleRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	doctorID := auth.UserIDFromContext(c.Request().Context())
	if err := h.svc.UpdateLocale(c.Request().Context(), sum.ID, doctorID, req.PreferredLocale); err != nil {
		return h.writeError(c, err, "update locale")
	}
	return c.JSON(http.StatusOK, map[string]bool{"success": true})
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

func (h *Handler) UpdateStatus(c echo.Context) error {
	sum, err := h.ownedSummary(c)
	if err != nil {
		return err
	}

	var req updateStatusRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	doctorID := auth.UserIDFromContext(c.Request().Context())
	if err := h.svc.UpdateStatus(c.Request().Context(), sum.ID, doctorID, req.Status); err != nil {
		return h.writeError(c, err, "update status")
	}
	return c.JSON(http.StatusOK, map[string]bool{"success": true})
}

// CreateClaimToken issues a token the doctor hands to the patient so they can
// link their account to this summary later.
func (h *Handler) CreateClaimToken(c echo.Context) error {
	sum, err := h.ownedSummary(c)
	if err != nil {
		return err
	}

	token, err := h.claimTokens.Issue(sum.ID.String())
	if err != nil {
		h.log.Error().Err(err).Str("summary_id", sum.ID.String()).Msg("issue claim token")
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to issue claim token")
	}
	return c.JSON(http.StatusOK, map[string]any{
		"success":     true,
		"claim_token": token,
	})
}

// writeError maps service failures onto the route boundary: caller mistakes
// are 400 with the validation message, ownership misses are 404, and
// anything else (storage, driver) is a generic 500 so no dependency error
// text crosses the boundary.
func (h *Handler) writeError(c echo.Context, err error, action string) error {
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrNotOwner):
		return echo.NewHTTPError(http.StatusNotFound, "summary not found")
	case errors.Is(err, ErrInvalidInput):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	default:
		h.log.Error().Err(err).Msg(action)
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to "+action)
	}
}

// ownedSummary loads the :id summary for the calling doctor. Missing and
// foreign summaries both surface as 404.
func (h *Handler) ownedSummary(c echo.Context) (*PatientSummary, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "invalid summary id")
	}
	doctorID := auth.UserIDFromContext(c.Request().Context())
	sum, err := h.svc.GetOwned(c.Request().Context(), id, doctorID)
	if err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(err, ErrNotOwner) {
			return nil, echo.NewHTTPError(http.StatusNotFound, "summary not found")
		}
		h.log.Error().Err(err).Str("summary_id", id.String()).Msg("load summary")
		return nil, echo.NewHTTPError(http.StatusInternalServerError, "failed to load summary")
	}
	return sum, nil
}

// ---------------------------------------------------------------------------
// Patient viewer surface
// ---------------------------------------------------------------------------

// AccessValidator resolves raw access keys into grants.
type AccessValidator interface {
	Validate(ctx context.Context, rawKey string, summaryID uuid.UUID) (*access.Grant, error)
}

// ViewerHandler serves the unauthenticated patient surface under /patient.
// Every request carries ?access=KEY; an invalid key is a plain 404 so the
// existence of a summary is never revealed.
type ViewerHandler struct {
	svc         *Service
	validator   AccessValidator
	claimTokens ClaimTokenIssuer
	log         zerolog.Logger
}

func NewViewerHandler(svc *Service, validator AccessValidator, claimTokens ClaimTokenIssuer, log zerolog.Logger) *ViewerHandler {
	return &ViewerHandler{svc: svc, validator: validator, claimTokens: claimTokens, log: log}
}

func (h *ViewerHandler) RegisterRoutes(g *echo.Group) {
	g.GET("/:id", h.ViewSummary)
	g.PUT("/:id/blocks", h.UpdateBlocks)
	g.POST("/:id/claim", h.ClaimSummary)
}

type viewerResponse struct {
	Summary  *PatientSummary `json:"summary"`
	Role     string          `json:"role"`
	CanWrite bool            `json:"can_write"`
}

func (h *ViewerHandler) ViewSummary(c echo.Context) error {
	sum, grant, err := h.resolve(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, viewerResponse{
		Summary:  sum,
		Role:     grant.Role,
		CanWrite: grant.CanWrite,
	})
}

// UpdateBlocks lets a patient-role grant edit the summary blocks, e.g. to
// tick off tasks. Caregiver grants are read-only.
func (h *ViewerHandler) UpdateBlocks(c echo.Context) error {
	sum, grant, err := h.resolve(c)
	if err != nil {
		return err
	}
	if !grant.CanWrite {
		return echo.NewHTTPError(http.StatusForbidden, "read-only access")
	}

	var req updateBlocksRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := h.svc.UpdateBlocksAsPatient(c.Request().Context(), sum.ID, req.Blocks); err != nil {
		if errors.Is(err, ErrInvalidInput) {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		h.log.Error().Err(err).Str("summary_id", sum.ID.String()).Msg("update blocks")
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to update blocks")
	}
	return c.JSON(http.StatusOK, map[string]bool{"success": true})
}

type claimRequest struct {
	ClaimToken string `json:"claim_token"`
}

// ClaimSummary links the authenticated patient account to the summary. The
// claim token must have been issued for this exact summary; linking is
// first-writer-wins.
func (h *ViewerHandler) ClaimSummary(c echo.Context) error {
	sum, _, err := h.resolve(c)
	if err != nil {
		return err
	}

	userID := auth.UserIDFromContext(c.Request().Context())
	if userID == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "sign in to claim a summary")
	}

	var req claimRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	claimedID, err := h.claimTokens.Verify(req.ClaimToken)
	if err != nil || claimedID != sum.ID.String() {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid claim token")
	}

	if err := h.svc.Claim(c.Request().Context(), sum.ID, userID); err != nil {
		if errors.Is(err, ErrAlreadyClaimed) {
			return echo.NewHTTPError(http.StatusConflict, "summary already claimed")
		}
		h.log.Error().Err(err).Str("summary_id", sum.ID.String()).Msg("claim summary")
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to claim summary")
	}
	return c.JSON(http.StatusOK, map[string]bool{"success": true})
}

// resolve validates the access key against the :id summary and loads it. Any
// authorization failure collapses into 404.
func (h *ViewerHandler) resolve(c echo.Context) (*PatientSummary, *access.Grant, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return nil, nil, echo.NewHTTPError(http.StatusNotFound, "summary not found")
	}

	grant, err := h.validator.Validate(c.Request().Context(), c.QueryParam("access"), id)
	if err != nil {
		if errors.Is(err, access.ErrNotAuthorized) {
			return nil, nil, echo.NewHTTPError(http.StatusNotFound, "summary not found")
		}
		h.log.Error().Err(err).Str("summary_id", id.String()).Msg("validate access key")
		return nil, nil, echo.NewHTTPError(http.StatusInternalServerError, "failed to validate access")
	}

	sum, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil, echo.NewHTTPError(http.StatusNotFound, "summary not found")
		}
		h.log.Error().Err(err).Str("summary_id", id.String()).Msg("load summary")
		return nil, nil, echo.NewHTTPError(http.StatusInternalServerError, "failed to load summary")
	}

	// Exposed for the audit middleware.
	c.Set("access_role", grant.Role)
	return sum, grant, nil
}

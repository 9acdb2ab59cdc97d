package controller

import (
	"context"
	"net/http"
	"strings"

	"cloth/auth"
	"cloth/entity"
	"cloth/pkg/logger"
	"cloth/service"
	"cloth/validator"

	"github.com/labstack/echo/v4"
)

type FlagController struct {
	flagService service.FlagService
	logger      *logger.Logger
}

func NewFlagController(fs service.FlagService, log *logger.Logger) *FlagController {
	return &FlagController{
		flagService: fs,
		logger:      log,
	}
}

// ListFlags godoc
// @Summary List flags
// @Description Returns every flag, newest first.
// @Tags Flags
// @Produce json
// @Success 200 {object} SuccessResponse{data=[]entity.Flag}
// @Failure 500 {object} FailureResponse
// @Router /flag [get]
func (fc *FlagController) ListFlags(c echo.Context) error {
	flags, err := fc.flagService.GetAllFlags(fc.requestContext(c))
	if err != nil {
		return fc.handleServiceError(c, err)
	}
	return c.JSON(http.StatusOK, success(flags))
}

// CreateFlag godoc
// @Summary Create a flag
// @Tags Flags
// @Accept json
// @Produce json
// @Param flag body validator.CreateFlagRequest true "Flag to create"
// @Success 201 {object} SuccessResponse{data=entity.Flag}
// @Failure 400 {object} FailureResponse
// @Failure 409 {object} FailureResponse
// @Failure 500 {object} FailureResponse
// @Router /flag [post]
func (fc *FlagController) CreateFlag(c echo.Context) error {
	var req validator.CreateFlagRequest
	if err := c.Bind(&req); err != nil {
		fc.logger.Warnw("Failed to bind create flag request", "error", err)
		return WriteError(c, &RequestError{Message: msgInvalidBody})
	}
	if err := validator.ValidateCreateFlagRequest(req); err != nil {
		return fc.handleServiceError(c, err)
	}

	ctx := fc.requestContext(c)
	enabled := req.Enabled != nil && *req.Enabled
	flag, err := fc.flagService.CreateFlag(ctx, req.Key, req.Name, req.Description, enabled)
	if err != nil {
		return fc.handleServiceError(c, err)
	}

	fc.logger.Infow("Flag created via API", "flagID", flag.ID, "key", flag.Key, "actor", service.ActorFromContext(ctx))
	return c.JSON(http.StatusCreated, success(flag))
}

// GetFlag godoc
// @Summary Get a flag by id
// @Tags Flags
// @Produce json
// @Param id path string true "Flag ID (UUID)"
// @Success 200 {object} SuccessResponse{data=entity.Flag}
// @Failure 404 {object} FailureResponse
// @Failure 500 {object} FailureResponse
// @Router /flag/{id} [get]
func (fc *FlagController) GetFlag(c echo.Context) error {
	id, err := flagID(c)
	if err != nil {
		return WriteError(c, err)
	}

	flag, err := fc.flagService.GetFlag(fc.requestContext(c), id)
	if err != nil {
		return fc.handleServiceError(c, err)
	}
	return c.JSON(http.StatusOK, success(flag))
}

// GetFlagByKey godoc
// @Summary Get a flag by key
// @Tags Flags
// @Produce json
// @Param key path string true "Flag key"
// @Success 200 {object} SuccessResponse{data=entity.Flag}
// @Failure 404 {object} FailureResponse
// @Failure 500 {object} FailureResponse
// @Router /flag/key/{key} [get]
func (fc *FlagController) GetFlagByKey(c echo.Context) error {
	key := strings.TrimSpace(c.Param("key"))
	if key == "" {
		return WriteError(c, &RequestError{Message: "Flag key is required"})
	}

	flag, err := fc.flagService.GetFlagByKey(fc.requestContext(c), key)
	if err != nil {
		return fc.handleServiceError(c, err)
	}
	if flag == nil {
		return WriteError(c, service.ErrFlagNotFound)
	}
	return c.JSON(http.StatusOK, success(flag))
}

// UpdateFlag godoc
// @Summary Update a flag
// @Description Applies the fields present in the body; absent fields are unchanged.
// @Tags Flags
// @Accept json
// @Produce json
// @Param id path string true "Flag ID (UUID)"
// @Param flag body validator.UpdateFlagRequest true "Fields to change"
// @Success 200 {object} SuccessResponse{data=entity.Flag}
// @Failure 400 {object} FailureResponse
// @Failure 404 {object} FailureResponse
// @Failure 409 {object} FailureResponse
// @Failure 500 {object} FailureResponse
// @Router /flag/{id} [put]
func (fc *FlagController) UpdateFlag(c echo.Context) error {
	id, err := flagID(c)
	if err != nil {
		return WriteError(c, err)
	}

	var req validator.UpdateFlagRequest
	if err := c.Bind(&req); err != nil {
		fc.logger.Warnw("Failed to bind update flag request", "error", err, "flagID", id)
		return WriteError(c, &RequestError{Message: msgInvalidBody})
	}
	if err := validator.ValidateUpdateFlagRequest(req); err != nil {
		return fc.handleServiceError(c, err)
	}

	ctx := fc.requestContext(c)
	flag, err := fc.flagService.UpdateFlag(ctx, id, entity.FlagUpdate{
		Key:         req.Key,
		Name:        req.Name,
		Description: req.Description,
		Enabled:     req.Enabled,
	})
	if err != nil {
		return fc.handleServiceError(c, err)
	}

	fc.logger.Infow("Flag updated via API", "flagID", id, "enabled", flag.Enabled, "actor", service.ActorFromContext(ctx))
	return c.JSON(http.StatusOK, success(flag))
}

// DeleteFlag godoc
// @Summary Delete a flag
// @Tags Flags
// @Produce json
// @Param id path string true "Flag ID (UUID)"
// @Success 200 {object} SuccessResponse
// @Failure 404 {object} FailureResponse
// @Failure 500 {object} FailureResponse
// @Router /flag/{id} [delete]
func (fc *FlagController) DeleteFlag(c echo.Context) error {
	id, err := flagID(c)
	if err != nil {
		return WriteError(c, err)
	}

	ctx := fc.requestContext(c)
	if err := fc.flagService.DeleteFlag(ctx, id); err != nil {
		return fc.handleServiceError(c, err)
	}

	fc.logger.Infow("Flag deleted via API", "flagID", id, "actor", service.ActorFromContext(ctx))
	return c.JSON(http.StatusOK, success(nil))
}

// GetFlagAudit godoc
// @Summary Flag change history
// @Description Returns the audit trail of a flag, newest first. History outlives deletion.
// @Tags Flags
// @Produce json
// @Param id path string true "Flag ID (UUID)"
// @Success 200 {object} SuccessResponse{data=[]entity.AuditLog}
// @Failure 404 {object} FailureResponse
// @Failure 500 {object} FailureResponse
// @Router /flag/{id}/audit [get]
func (fc *FlagController) GetFlagAudit(c echo.Context) error {
	id, err := flagID(c)
	if err != nil {
		return WriteError(c, err)
	}

	logs, err := fc.flagService.GetFlagAuditLogs(fc.requestContext(c), id)
	if err != nil {
		return fc.handleServiceError(c, err)
	}
	return c.JSON(http.StatusOK, success(logs))
}

// handleServiceError logs the full error and writes its mapped form
func (fc *FlagController) handleServiceError(c echo.Context, err error) error {
	resp := MapError(err)
	if resp.Status >= http.StatusInternalServerError {
		fc.logger.Errorw("Internal error in API", "error", err, "path", c.Path())
	} else {
		fc.logger.Warnw("Request rejected", "error", err, "code", resp.Body.Code, "path", c.Path())
	}
	return c.JSON(resp.Status, FailureResponse{Success: false, Error: resp.Body})
}

// requestContext returns the request context carrying the acting identity.
// Verified token claims win over the X-Actor header.
func (fc *FlagController) requestContext(c echo.Context) context.Context {
	ctx := c.Request().Context()
	if claims := auth.ClaimsFromContext(ctx); claims != nil {
		return service.ContextWithActor(ctx, claims.Identity())
	}
	if actor := strings.TrimSpace(c.Request().Header.Get("X-Actor")); actor != "" {
		if err := validator.ValidateActor(actor); err == nil {
			return service.ContextWithActor(ctx, actor)
		}
		fc.logger.Debugw("Ignoring invalid X-Actor header")
	}
	return ctx
}

func flagID(c echo.Context) (string, error) {
	id := strings.TrimSpace(c.Param("id"))
	if err := validator.ValidateFlagID(id); err != nil {
		return "", &RequestError{Message: "Flag ID is required"}
	}
	return id, nil
}

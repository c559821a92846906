package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ayung21/billing-ps-api-sub000/internal/errs"
	"github.com/ayung21/billing-ps-api-sub000/internal/model"
	"github.com/ayung21/billing-ps-api-sub000/internal/service"
)

// Machine-checkable error categories for rental-start failures. Every
// failure path maps to exactly one, so operators can tell "device said no"
// from "device never answered".
const (
	errCategoryValidation        = "validation"
	errCategoryDeviceUnavailable = "device_unavailable"
	errCategoryDeviceFailed      = "device_failed"
	errCategoryDeviceTimeout     = "device_timeout"
	errCategoryInternal          = "internal"
)

// RentalHandler handles the rental-start REST operation.
type RentalHandler struct {
	svc    service.RentalStarter
	logger *zap.Logger
}

// NewRentalHandler creates the rental route handler.
func NewRentalHandler(svc service.RentalStarter, logger *zap.Logger) *RentalHandler {
	return &RentalHandler{svc: svc, logger: logger}
}

// StartRental handles POST /api/rentals. The verified actor identity is
// attached by the auth middleware before this runs.
func (h *RentalHandler) StartRental(c *gin.Context) {
	var req model.StartRentalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   errCategoryValidation,
			"message": err.Error(),
		})
		return
	}

	actorID := c.GetString(ContextUserID)
	receipt, err := h.svc.StartRental(c.Request.Context(), actorID, &req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, receipt)
}

func (h *RentalHandler) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, errs.ErrUnitNotFound),
		errors.Is(err, errs.ErrUnitBusy),
		errors.Is(err, errs.ErrMemberNotFound),
		errors.Is(err, errs.ErrMemberInactive),
		errors.Is(err, errs.ErrProductNotFound),
		errors.Is(err, errs.ErrInsufficientStock),
		errors.Is(err, errs.ErrPromoNotFound):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   errCategoryValidation,
			"message": err.Error(),
		})
	case errors.Is(err, errs.ErrDeviceNotConnected),
		errors.Is(err, errs.ErrSendFailed):
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error":   errCategoryDeviceUnavailable,
			"message": err.Error(),
		})
	case errors.Is(err, errs.ErrDeviceFailed):
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error":   errCategoryDeviceFailed,
			"message": err.Error(),
		})
	case errors.Is(err, errs.ErrDeviceTimeout):
		c.JSON(http.StatusRequestTimeout, gin.H{
			"error":   errCategoryDeviceTimeout,
			"message": err.Error(),
		})
	default:
		h.logger.Error("rental start failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   errCategoryInternal,
			"message": "failed to start rental",
		})
	}
}

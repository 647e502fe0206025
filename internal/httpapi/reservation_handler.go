// Package httpapi implements C11, the HTTP front that validates inbound
// requests and invokes the C7 create-reservation use case, plus the
// SPEC_FULL.md §12 add-on read path and health check. Grounded on
// backend-booking/internal/handler/booking_handler.go's handler/
// handleError shape and pkg/response/response.go's envelope.
package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rbravo-mcr/reservas-api/internal/addon"
	"github.com/rbravo-mcr/reservas-api/internal/domain"
	"github.com/rbravo-mcr/reservas-api/internal/reservation"
	"github.com/rbravo-mcr/reservas-api/internal/response"
)

// ReservationHandler handles the reservation HTTP surface.
type ReservationHandler struct {
	reservations *reservation.Service
}

// NewReservationHandler constructs a ReservationHandler.
func NewReservationHandler(reservations *reservation.Service) *ReservationHandler {
	return &ReservationHandler{reservations: reservations}
}

// Create handles POST /api/v1/reservations.
func (h *ReservationHandler) Create(c *gin.Context) {
	var req CreateReservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusUnprocessableEntity, "VALIDATION_ERROR", err.Error())
		return
	}

	res, err := h.reservations.Create(c.Request.Context(), reservation.CreateRequest{
		SupplierCode:      req.SupplierCode,
		PickupOfficeCode:  req.PickupOfficeCode,
		DropoffOfficeCode: req.DropoffOfficeCode,
		PickupDatetime:    req.PickupDatetime,
		DropoffDatetime:   req.DropoffDatetime,
		TotalAmountCents:  req.TotalAmountCents,
		CustomerSnapshot:  domain.Snapshot(req.CustomerSnapshot),
		VehicleSnapshot:   domain.Snapshot(req.VehicleSnapshot),
	})
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, ReservationResponse{
		ReservationCode: res.ReservationCode,
		Status:          string(res.Status),
		SupplierCode:    res.SupplierCode,
		PickupDatetime:  res.PickupDatetime,
		DropoffDatetime: res.DropoffDatetime,
		TotalAmount:     res.TotalAmount,
		CreatedAt:       res.CreatedAt,
	})
}

// Health handles GET /api/v1/health.
func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// AddonHandler handles GET /api/v1/addons.
type AddonHandler struct {
	catalog addon.Catalog
}

// NewAddonHandler constructs an AddonHandler.
func NewAddonHandler(catalog addon.Catalog) *AddonHandler {
	return &AddonHandler{catalog: catalog}
}

// List handles GET /api/v1/addons?category=....
func (h *AddonHandler) List(c *gin.Context) {
	var category *addon.Category
	if raw := c.Query("category"); raw != "" {
		cat := addon.Category(raw)
		category = &cat
	}

	addons, err := h.catalog.ListActive(c.Request.Context(), category)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to list add-ons")
		return
	}

	out := make([]AddonResponse, 0, len(addons))
	for _, a := range addons {
		out = append(out, AddonResponse{
			Code:        a.Code,
			Name:        a.Name,
			Category:    string(a.Category),
			Description: a.Description,
			SortOrder:   a.SortOrder,
		})
	}
	c.JSON(http.StatusOK, out)
}

// handleError maps a domain error to its HTTP status per spec.md §7's
// taxonomy: ValidationError -> 422, BusinessRuleError -> 400,
// StoreError -> 500, ErrCircuitOpen -> 503, anything else -> 500.
func handleError(c *gin.Context, err error) {
	switch {
	case domain.IsValidationError(err):
		response.Error(c, http.StatusUnprocessableEntity, "VALIDATION_ERROR", err.Error())
	case domain.IsBusinessRuleError(err):
		response.Error(c, http.StatusBadRequest, "BUSINESS_RULE_ERROR", err.Error())
	case domain.IsStoreError(err):
		response.Error(c, http.StatusInternalServerError, "PERSISTENCE_FAILED", "reservation could not be persisted")
	case errors.Is(err, domain.ErrCircuitOpen):
		response.Error(c, http.StatusServiceUnavailable, "CIRCUIT_OPEN", err.Error())
	default:
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "internal error")
	}
}

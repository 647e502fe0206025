package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rbravo-mcr/reservas-api/internal/addon"
	"github.com/rbravo-mcr/reservas-api/internal/codegen"
	"github.com/rbravo-mcr/reservas-api/internal/repository"
	"github.com/rbravo-mcr/reservas-api/internal/reservation"
	"github.com/rbravo-mcr/reservas-api/internal/response"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)

	clock := func() time.Time { return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC) }
	svc := reservation.NewService(
		repository.NewMemoryReservationRepository(),
		repository.NewMemoryOutboxRepository(),
		codegen.New(),
		clock,
	)
	catalog := addon.NewMemoryCatalog(
		addon.Addon{Code: "GPS", Name: "GPS Navigation", Category: addon.CategoryEquipment, SortOrder: 1, IsActive: true},
		addon.Addon{Code: "CDW", Name: "Collision Damage Waiver", Category: addon.CategoryCoverage, SortOrder: 2, IsActive: true},
	)

	router := gin.New()
	reservationHandler := NewReservationHandler(svc)
	addonHandler := NewAddonHandler(catalog)

	v1 := router.Group("/api/v1")
	v1.GET("/health", Health)
	v1.POST("/reservations", reservationHandler.Create)
	v1.GET("/addons", addonHandler.List)

	return router
}

func validReservationBody() []byte {
	body := CreateReservationRequest{
		SupplierCode:      "HERTZ",
		PickupOfficeCode:  "LAX01",
		DropoffOfficeCode: "SFO01",
		PickupDatetime:    time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC),
		DropoffDatetime:   time.Date(2026, 2, 3, 10, 0, 0, 0, time.UTC),
		TotalAmountCents:  19999,
		CustomerSnapshot:  map[string]any{"name": "Jane Doe"},
		VehicleSnapshot:   map[string]any{"model": "Civic"},
	}
	b, _ := json.Marshal(body)
	return b
}

func TestHealth_ReturnsOK(t *testing.T) {
	router := newTestRouter()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestCreateReservation_ValidBody_Returns201(t *testing.T) {
	router := newTestRouter()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/reservations", bytes.NewReader(validReservationBody()))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)

	var resp ReservationResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.ReservationCode, 8)
	assert.Equal(t, "CREATED", resp.Status)
	assert.Equal(t, "199.99", resp.TotalAmount)
}

func TestCreateReservation_MissingRequiredField_Returns422(t *testing.T) {
	router := newTestRouter()

	body := []byte(`{"pickup_office_code":"LAX01"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/reservations", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var resp response.Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, "VALIDATION_ERROR", resp.Error.Code)
}

func TestCreateReservation_InvertedWindow_Returns400(t *testing.T) {
	router := newTestRouter()

	body := CreateReservationRequest{
		SupplierCode:      "HERTZ",
		PickupOfficeCode:  "LAX01",
		DropoffOfficeCode: "SFO01",
		PickupDatetime:    time.Date(2026, 2, 3, 10, 0, 0, 0, time.UTC),
		DropoffDatetime:   time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC),
		TotalAmountCents:  19999,
	}
	raw, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/reservations", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var resp response.Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, "BUSINESS_RULE_ERROR", resp.Error.Code)
}

func TestListAddons_FiltersByCategory(t *testing.T) {
	router := newTestRouter()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/addons?category=coverage", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp []AddonResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp, 1)
	assert.Equal(t, "CDW", resp[0].Code)
}

func TestListAddons_NoFilter_ReturnsAllOrderedBySortOrder(t *testing.T) {
	router := newTestRouter()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/addons", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp []AddonResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp, 2)
	assert.Equal(t, "GPS", resp[0].Code)
	assert.Equal(t, "CDW", resp[1].Code)
}

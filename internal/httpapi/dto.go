package httpapi

import "time"

// CreateReservationRequest is the validated inbound body of
// POST /api/v1/reservations (spec.md §6). Field-level shape validation
// happens here, at the HTTP boundary; domain invariants (window, amount)
// are enforced again by C10 inside the use case.
type CreateReservationRequest struct {
	SupplierCode      string         `json:"supplier_code" binding:"required"`
	PickupOfficeCode  string         `json:"pickup_office_code" binding:"required"`
	DropoffOfficeCode string         `json:"dropoff_office_code" binding:"required"`
	PickupDatetime    time.Time      `json:"pickup_datetime" binding:"required"`
	DropoffDatetime   time.Time      `json:"dropoff_datetime" binding:"required"`
	TotalAmountCents  int64          `json:"total_amount_cents" binding:"required"`
	CustomerSnapshot  map[string]any `json:"customer_snapshot"`
	VehicleSnapshot   map[string]any `json:"vehicle_snapshot"`
}

// ReservationResponse is the 201 body spec.md §6 names.
type ReservationResponse struct {
	ReservationCode   string    `json:"reservation_code"`
	Status            string    `json:"status"`
	SupplierCode      string    `json:"supplier_code"`
	PickupDatetime    time.Time `json:"pickup_datetime"`
	DropoffDatetime   time.Time `json:"dropoff_datetime"`
	TotalAmount       string    `json:"total_amount"`
	CreatedAt         time.Time `json:"created_at"`
}

// AddonResponse is one entry of GET /api/v1/addons.
type AddonResponse struct {
	Code        string `json:"code"`
	Name        string `json:"name"`
	Category    string `json:"category"`
	Description string `json:"description"`
	SortOrder   int    `json:"sort_order"`
}

package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-bloodlink-backend/internal/services"
)

// RegisterDonorRequest is the JSON payload for registering a donor.
type RegisterDonorRequest struct {
	Name      string   `json:"name" example:"Ana Ruiz"`
	BloodType string   `json:"blood_type" example:"O-"`
	Latitude  *float64 `json:"latitude,omitempty" example:"40.7128"`
	Longitude *float64 `json:"longitude,omitempty" example:"-74.006"`
	// IsAvailable defaults to true.
	IsAvailable          *bool      `json:"is_available,omitempty"`
	AvailabilityRadiusKm float64    `json:"availability_radius_km,omitempty" example:"25"`
	LastDonationDate     *time.Time `json:"last_donation_date,omitempty"`
	// LastEmergencyResponseDate starts the emergency cooldown.
	LastEmergencyResponseDate *time.Time `json:"last_emergency_response_date,omitempty"`
	MedicalConditions         string     `json:"medical_conditions,omitempty"`
}

// RegisterDonor godoc
// @ID          registerDonor
// @Summary     Register a donor
// @Description Stores a donor profile. Location is optional; a donor without one is never found by radius search.
// @Tags        Donors
// @Accept      json
// @Produce     json
// @Param       body  body      handlers.RegisterDonorRequest  true  "Donor profile"
// @Success     201   {object}  domain.DonorProfile
// @Failure     400   {object}  handlers.ErrorResponse  "Validation failed"
// @Failure     503   {object}  handlers.ErrorResponse  "Store unavailable"
// @Router      /donors [post]
func (h *Handlers) RegisterDonor(c *gin.Context) {
	var req RegisterDonorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	d, err := h.donors.Register(c.Request.Context(), services.RegisterDonorInput{
		Name:                      req.Name,
		BloodType:                 req.BloodType,
		Latitude:                  req.Latitude,
		Longitude:                 req.Longitude,
		IsAvailable:               req.IsAvailable,
		AvailabilityRadiusKm:      req.AvailabilityRadiusKm,
		LastDonationDate:          req.LastDonationDate,
		LastEmergencyResponseDate: req.LastEmergencyResponseDate,
		MedicalConditions:         req.MedicalConditions,
	})
	if err != nil {
		failService(c, err)
		return
	}
	ok(c, http.StatusCreated, d)
}

// GetDonor godoc
// @ID          getDonor
// @Summary     Get a donor
// @Tags        Donors
// @Produce     json
// @Param       id   path      string  true  "Donor ID"  format(uuid)
// @Success     200  {object}  domain.DonorProfile
// @Failure     404  {object}  handlers.ErrorResponse  "Donor not found"
// @Router      /donors/{id} [get]
func (h *Handlers) GetDonor(c *gin.Context) {
	d, err := h.donors.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		failService(c, err)
		return
	}
	ok(c, http.StatusOK, d)
}

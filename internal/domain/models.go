// Package domain defines the persistence models for blood requests, donor
// profiles and donor responses, plus the records created when a request is
// fulfilled. These types are mapped with GORM and form the core data layer
// of the matching engine.
package domain

import "time"

// BloodRequest is a facility's ask for units of one blood type.
//
// Fields:
//   - ID: UUID primary key (char(36)).
//   - RequesterID: owner of the request; responses are streamed to this id.
//   - BloodType: recipient blood group.
//   - Urgency: critical, urgent, normal or low.
//   - UnitsNeeded: number of units (>= 1).
//   - Status: pending → active → fulfilled|cancelled, never backward.
//   - Latitude / Longitude: facility location.
//   - SearchRadiusKm: optional override of the donor's own radius.
type BloodRequest struct {
	ID             string        `json:"id"               gorm:"type:char(36);primaryKey"`
	RequesterID    string        `json:"requester_id"     gorm:"type:varchar(64);not null;index"`
	FacilityName   string        `json:"facility_name"    gorm:"type:varchar(255);not null;default:''"`
	BloodType      BloodType     `json:"blood_type"       gorm:"type:varchar(3);not null;index"`
	Urgency        Urgency       `json:"urgency"          gorm:"type:varchar(16);not null;check:urgency IN ('critical','urgent','normal','low')"`
	UnitsNeeded    int           `json:"units_needed"     gorm:"not null;check:units_needed >= 1"`
	Status         RequestStatus `json:"status"           gorm:"type:varchar(16);not null;default:'pending';index"`
	Latitude       float64       `json:"latitude"         gorm:"not null"`
	Longitude      float64       `json:"longitude"        gorm:"not null"`
	SearchRadiusKm *float64      `json:"search_radius_km,omitempty"`
	Notes          string        `json:"notes,omitempty"  gorm:"type:text"`
	NeededBy       *time.Time    `json:"needed_by,omitempty"`
	FulfilledAt    *time.Time    `json:"fulfilled_at,omitempty"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

// TableName returns the database table name for BloodRequest.
func (BloodRequest) TableName() string { return "blood_requests" }

// DonorProfile carries the fields of a donor that matching and eligibility
// depend on. Coordinates are nullable: a donor who never shared a location is
// still a valid profile but cannot be found by a radius search.
type DonorProfile struct {
	ID                        string     `json:"id"                 gorm:"type:char(36);primaryKey"`
	Name                      string     `json:"name"               gorm:"type:varchar(255);not null;default:''"`
	BloodType                 BloodType  `json:"blood_type"         gorm:"type:varchar(3);not null;index:idx_donor_type_geo,priority:1"`
	Latitude                  *float64   `json:"latitude,omitempty" gorm:"index:idx_donor_type_geo,priority:2"`
	Longitude                 *float64   `json:"longitude,omitempty" gorm:"index:idx_donor_type_geo,priority:3"`
	IsAvailable               bool       `json:"is_available"       gorm:"not null"`
	LastDonationDate          *time.Time `json:"last_donation_date,omitempty"`
	LastEmergencyResponseDate *time.Time `json:"last_emergency_response_date,omitempty"`
	MedicalConditions         string     `json:"medical_conditions,omitempty" gorm:"type:text"`
	AvailabilityRadiusKm      float64    `json:"availability_radius_km" gorm:"not null;default:25"`
	CreatedAt                 time.Time  `json:"created_at"`
	UpdatedAt                 time.Time  `json:"updated_at"`
}

// TableName returns the database table name for DonorProfile.
func (DonorProfile) TableName() string { return "donor_profiles" }

// HasLocation reports whether both coordinates are known.
func (d DonorProfile) HasLocation() bool {
	return d.Latitude != nil && d.Longitude != nil
}

// DonorResponse is the notification record of one donor for one request. At
// most one row exists per (donor_id, request_id); later writes upsert it.
type DonorResponse struct {
	ID        string         `json:"id"         gorm:"type:char(36);primaryKey"`
	RequestID string         `json:"request_id" gorm:"type:char(36);not null;uniqueIndex:ux_response_donor_request,priority:2;index"`
	DonorID   string         `json:"donor_id"   gorm:"type:char(36);not null;uniqueIndex:ux_response_donor_request,priority:1"`
	Status    ResponseStatus `json:"status"     gorm:"type:varchar(16);not null;check:status IN ('notified','pending','accepted','declined','cancelled')"`
	Message   string         `json:"message"    gorm:"type:text;not null;default:''"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`

	// Request is the parent request. Responses cascade with it.
	Request BloodRequest `json:"-" gorm:"foreignKey:RequestID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for DonorResponse.
func (DonorResponse) TableName() string { return "donor_responses" }

// Connection links a donor and a requester once the donor accepted.
type Connection struct {
	ID          string    `json:"id"           gorm:"type:char(36);primaryKey"`
	RequestID   string    `json:"request_id"   gorm:"type:char(36);not null;uniqueIndex:ux_connection_request_donor,priority:1"`
	DonorID     string    `json:"donor_id"     gorm:"type:char(36);not null;uniqueIndex:ux_connection_request_donor,priority:2"`
	RequesterID string    `json:"requester_id" gorm:"type:varchar(64);not null;index"`
	CreatedAt   time.Time `json:"created_at"`
}

// TableName returns the database table name for Connection.
func (Connection) TableName() string { return "connections" }

// DonationStatusCompleted is the only status the engine writes.
const DonationStatusCompleted = "completed"

// Donation records a completed donation created on acceptance.
type Donation struct {
	ID        string    `json:"id"         gorm:"type:char(36);primaryKey"`
	DonorID   string    `json:"donor_id"   gorm:"type:char(36);not null;index"`
	RequestID string    `json:"request_id" gorm:"type:char(36);not null;index"`
	BloodType BloodType `json:"blood_type" gorm:"type:varchar(3);not null"`
	VolumeMl  int       `json:"volume_ml"  gorm:"not null"`
	Status    string    `json:"status"     gorm:"type:varchar(16);not null"`
	DonatedAt time.Time `json:"donated_at"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName returns the database table name for Donation.
func (Donation) TableName() string { return "donations" }

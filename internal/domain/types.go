// Package domain defines the persistence models and value types shared by the
// matching engine, the repository layer and the HTTP transport.
package domain

import "strings"

// BloodType is one of the eight ABO/Rh blood groups.
type BloodType string

const (
	APos  BloodType = "A+"
	ANeg  BloodType = "A-"
	BPos  BloodType = "B+"
	BNeg  BloodType = "B-"
	ABPos BloodType = "AB+"
	ABNeg BloodType = "AB-"
	OPos  BloodType = "O+"
	ONeg  BloodType = "O-"
)

// AllBloodTypes lists every blood group in a stable order.
var AllBloodTypes = []BloodType{APos, ANeg, BPos, BNeg, ABPos, ABNeg, OPos, ONeg}

// ParseBloodType normalizes s ("ab+", " O- ") and reports whether it names a
// known blood group.
func ParseBloodType(s string) (BloodType, bool) {
	bt := BloodType(strings.ToUpper(strings.TrimSpace(s)))
	if !bt.Valid() {
		return "", false
	}
	return bt, true
}

// Valid reports whether bt is exactly one of the eight known groups.
func (bt BloodType) Valid() bool {
	for _, k := range AllBloodTypes {
		if k == bt {
			return true
		}
	}
	return false
}

// Urgency is the priority tier of a blood request.
type Urgency string

const (
	UrgencyCritical Urgency = "critical"
	UrgencyUrgent   Urgency = "urgent"
	UrgencyNormal   Urgency = "normal"
	UrgencyLow      Urgency = "low"
)

// Valid reports whether u is a known urgency tier.
func (u Urgency) Valid() bool {
	switch u {
	case UrgencyCritical, UrgencyUrgent, UrgencyNormal, UrgencyLow:
		return true
	}
	return false
}

// IsEmergency is true for the tiers that start the emergency-response cooldown
// and reach donors through the realtime channel.
func (u Urgency) IsEmergency() bool {
	return u == UrgencyCritical || u == UrgencyUrgent
}

// RequestStatus is the lifecycle state of a BloodRequest.
type RequestStatus string

const (
	RequestPending   RequestStatus = "pending"
	RequestActive    RequestStatus = "active"
	RequestFulfilled RequestStatus = "fulfilled"
	RequestCancelled RequestStatus = "cancelled"
)

// Open reports whether the request can still be dispatched or accepted.
func (s RequestStatus) Open() bool {
	return s == RequestPending || s == RequestActive
}

// ResponseStatus is the state of a donor's notification record.
type ResponseStatus string

const (
	ResponseNotified  ResponseStatus = "notified"
	ResponsePending   ResponseStatus = "pending"
	ResponseAccepted  ResponseStatus = "accepted"
	ResponseDeclined  ResponseStatus = "declined"
	ResponseCancelled ResponseStatus = "cancelled" // superseded by another donor's acceptance
)

// Awaiting reports whether the donor has not answered yet. Notified and
// pending are the same logical state.
func (s ResponseStatus) Awaiting() bool {
	return s == ResponseNotified || s == ResponsePending
}

package realtime

import (
	"github.com/tbourn/go-bloodlink-backend/internal/domain"
	"github.com/tbourn/go-bloodlink-backend/internal/geo"
)

// Filter decides whether a subscriber wants an event. A nil Filter accepts
// everything.
type Filter func(Event) bool

// DonorFilter is the fine filter a donor applies to the donor channel: only
// critical or urgent requests, only while the donor is available, and only
// within the donor's availability radius. A donor or request without a
// usable location never passes.
func DonorFilter(d domain.DonorProfile) Filter {
	return func(ev Event) bool {
		if ev.Kind != KindRequestCreated || ev.Request == nil {
			return false
		}
		r := ev.Request
		if !r.Urgency.IsEmergency() || !d.IsAvailable || !d.HasLocation() {
			return false
		}
		dist := geo.Distance(*d.Latitude, *d.Longitude, r.Latitude, r.Longitude)
		return dist <= d.AvailabilityRadiusKm
	}
}

// ResponseFilter drops bookkeeping rows so a requester only sees genuine
// donor answers.
func ResponseFilter() Filter {
	return func(ev Event) bool {
		return ev.Kind == KindResponseChanged && ev.Response != nil &&
			ev.Response.Status != domain.ResponseNotified
	}
}

// All combines filters; every one must accept.
func All(fs ...Filter) Filter {
	return func(ev Event) bool {
		for _, f := range fs {
			if f != nil && !f(ev) {
				return false
			}
		}
		return true
	}
}

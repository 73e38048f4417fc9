package services

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/tbourn/go-bloodlink-backend/internal/domain"
	"github.com/tbourn/go-bloodlink-backend/internal/geo"
	"github.com/tbourn/go-bloodlink-backend/internal/matching"
)

// travelPhrase is how a travel estimate reads for each mode.
var travelPhrase = map[geo.TravelMode]string{
	geo.Driving: "by car",
	geo.Cycling: "by bike",
	geo.Walking: "on foot",
}

// facilityName title-cases the facility for display ("st. mary's" -> "St. Mary's").
// Callers create a caser per call: cases.Caser is not safe for concurrent use.
func facilityName(name string, tag language.Tag) string {
	name = strings.Join(strings.Fields(name), " ")
	if name == "" {
		return "an unnamed facility"
	}
	return cases.Title(tag, cases.NoLower).String(name)
}

// alertTitle is the short headline shown on push surfaces.
func alertTitle(req domain.BloodRequest) string {
	prefix := "Blood request"
	if req.Urgency.IsEmergency() {
		prefix = "URGENT"
	}
	return fmt.Sprintf("%s: %s blood needed", prefix, req.BloodType)
}

// BuildMessage renders the notification text for one donor:
//
//	URGENT: O- blood needed at St. Mary (2.0km away, ~4 min by car)
//
// The distance clause is omitted when the donor's location is unknown.
func BuildMessage(req domain.BloodRequest, d domain.DonorProfile, mode geo.TravelMode, tag language.Tag) string {
	msg := fmt.Sprintf("%s at %s", alertTitle(req), facilityName(req.FacilityName, tag))
	dist := matching.DistanceKm(d, req)
	if dist == nil {
		return msg
	}
	phrase, ok := travelPhrase[mode]
	if !ok {
		phrase = travelPhrase[geo.Driving]
	}
	return fmt.Sprintf("%s (%s away, ~%d min %s)", msg, geo.FormatDistance(*dist), geo.TravelMinutes(*dist, mode), phrase)
}

// Package matching holds the pure parts of donor matching: blood-type
// compatibility, per-donor eligibility, priority scoring and ranking. Nothing
// here touches the store; services feed it donor profiles loaded by a
// bounding-box query and act on the ranked result.
package matching

import (
	"slices"

	"github.com/tbourn/go-bloodlink-backend/internal/domain"
)

// acceptableDonors maps a recipient type to the donor types it can receive.
var acceptableDonors = map[domain.BloodType][]domain.BloodType{
	domain.APos:  {domain.APos, domain.ANeg, domain.OPos, domain.ONeg},
	domain.ANeg:  {domain.ANeg, domain.ONeg},
	domain.BPos:  {domain.BPos, domain.BNeg, domain.OPos, domain.ONeg},
	domain.BNeg:  {domain.BNeg, domain.ONeg},
	domain.ABPos: {domain.APos, domain.ANeg, domain.BPos, domain.BNeg, domain.ABPos, domain.ABNeg, domain.OPos, domain.ONeg},
	domain.ABNeg: {domain.ANeg, domain.BNeg, domain.ABNeg, domain.ONeg},
	domain.OPos:  {domain.OPos, domain.ONeg},
	domain.ONeg:  {domain.ONeg},
}

// recipientsOf is acceptableDonors reversed: donor type → recipient types.
var recipientsOf = func() map[domain.BloodType][]domain.BloodType {
	out := make(map[domain.BloodType][]domain.BloodType, len(acceptableDonors))
	for _, recipient := range domain.AllBloodTypes {
		for _, donor := range acceptableDonors[recipient] {
			out[donor] = append(out[donor], recipient)
		}
	}
	return out
}()

// CompatibleDonorTypes returns the donor types a recipient of type recipient
// may receive from. An unknown type is a validation error and the caller must
// not go on to search.
func CompatibleDonorTypes(recipient domain.BloodType) ([]domain.BloodType, error) {
	types, ok := acceptableDonors[recipient]
	if !ok {
		return nil, domain.NewValidationError("blood_type", "unknown blood type %q", string(recipient))
	}
	return slices.Clone(types), nil
}

// RecipientTypes returns the recipient types a donor of type donor can give to.
func RecipientTypes(donor domain.BloodType) ([]domain.BloodType, error) {
	types, ok := recipientsOf[donor]
	if !ok {
		return nil, domain.NewValidationError("blood_type", "unknown blood type %q", string(donor))
	}
	return slices.Clone(types), nil
}

// CanDonate reports whether donor blood may be given to recipient.
func CanDonate(donor, recipient domain.BloodType) bool {
	return slices.Contains(acceptableDonors[recipient], donor)
}

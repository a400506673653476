package domain

import (
	dErrors "k9hope/pkg/domain-errors"
)

// BloodType is a DEA (Dog Erythrocyte Antigen) blood type. The vocabulary is
// fixed; anything outside it is rejected at the boundary rather than carried
// through the engine as a free-form string.
type BloodType string

const (
	BloodTypeDEA11Pos BloodType = "DEA1.1+"
	BloodTypeDEA11Neg BloodType = "DEA1.1-" // universal donor
	BloodTypeDEA12Pos BloodType = "DEA1.2+"
	BloodTypeDEA12Neg BloodType = "DEA1.2-"
	BloodTypeDEA3     BloodType = "DEA3"
	BloodTypeDEA4     BloodType = "DEA4" // broadly compatible
	BloodTypeDEA5     BloodType = "DEA5"
	BloodTypeDEA7     BloodType = "DEA7"
	BloodTypeUnknown  BloodType = "UNKNOWN"
)

// BloodTypes lists the recognized vocabulary in stable display order. Callers
// that need per-type counters iterate this slice and key maps by BloodType,
// never by constructing field names from the string form.
var BloodTypes = []BloodType{
	BloodTypeDEA11Pos,
	BloodTypeDEA11Neg,
	BloodTypeDEA12Pos,
	BloodTypeDEA12Neg,
	BloodTypeDEA3,
	BloodTypeDEA4,
	BloodTypeDEA5,
	BloodTypeDEA7,
	BloodTypeUnknown,
}

var bloodTypeSet = func() map[BloodType]struct{} {
	set := make(map[BloodType]struct{}, len(BloodTypes))
	for _, bt := range BloodTypes {
		set[bt] = struct{}{}
	}
	return set
}()

// ParseBloodType validates a raw string against the recognized set.
func ParseBloodType(raw string) (BloodType, error) {
	bt := BloodType(raw)
	if _, ok := bloodTypeSet[bt]; !ok {
		return "", dErrors.New(dErrors.CodeValidation, "unrecognized blood type: "+raw)
	}
	return bt, nil
}

func (bt BloodType) Valid() bool {
	_, ok := bloodTypeSet[bt]
	return ok
}

// IsUniversalDonor reports whether this type can be given to any recipient on
// first transfusion.
func (bt BloodType) IsUniversalDonor() bool {
	return bt == BloodTypeDEA11Neg
}

func (bt BloodType) String() string { return string(bt) }

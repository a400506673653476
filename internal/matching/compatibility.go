package matching

import "k9hope/pkg/domain"

// pair keys the compatibility table by (needed, donor) blood types. Keying by
// the enum pair replaces the original string-built field lookups; a typo in a
// type name is now a compile error instead of a silent miss.
type pair struct {
	Needed domain.BloodType
	Donor  domain.BloodType
}

// CompatibilityTable answers whether a donor's blood type can serve a
// request's needed type. The table is configuration consumed by discovery,
// not a rule engine: entries are explicit and overridable.
type CompatibilityTable struct {
	allowed map[pair]bool
}

// DefaultCompatibilityTable encodes the stock DEA rules: an exact type match
// always serves; DEA1.1- is the universal donor; DEA4 is broadly compatible.
// A request for an UNKNOWN type accepts only universal donors.
func DefaultCompatibilityTable() *CompatibilityTable {
	t := &CompatibilityTable{allowed: make(map[pair]bool)}
	for _, needed := range domain.BloodTypes {
		for _, donor := range domain.BloodTypes {
			switch {
			case donor == domain.BloodTypeDEA11Neg:
				t.set(needed, donor, true)
			case needed == domain.BloodTypeUnknown:
				// Unknown recipient type: only the universal donor is safe.
			case donor == needed:
				t.set(needed, donor, true)
			case donor == domain.BloodTypeDEA4:
				t.set(needed, donor, true)
			}
		}
	}
	return t
}

// Compatible reports whether donor blood can serve the needed type.
func (t *CompatibilityTable) Compatible(needed, donor domain.BloodType) bool {
	return t.allowed[pair{Needed: needed, Donor: donor}]
}

// Set overrides a single entry; deployments with stricter cross-match policy
// load their own entries over the defaults.
func (t *CompatibilityTable) Set(needed, donor domain.BloodType, compatible bool) {
	t.set(needed, donor, compatible)
}

func (t *CompatibilityTable) set(needed, donor domain.BloodType, compatible bool) {
	t.allowed[pair{Needed: needed, Donor: donor}] = compatible
}

package models

import "encoding/json"

// AgeRange bounds member age; either bound may be absent.
type AgeRange struct {
	Min *int `json:"min"`
	Max *int `json:"max"`
}

// IsSet reports whether either bound is present.
func (r AgeRange) IsSet() bool {
	return r.Min != nil || r.Max != nil
}

// FilterCriteria selects notification recipients. The set dimensions are
// combined by the backend; MemberIDs are always added on top of whatever the
// set dimensions resolve to.
type FilterCriteria struct {
	AreaIDs           []string `json:"areaIds"`
	BuildingIDs       []string `json:"buildingIds"`
	GenderIDs         []string `json:"genderIds"`
	ReligiousStudyIDs []string `json:"religiousStudyIds"`
	AgeRange          AgeRange `json:"ageRange"`
	MemberIDs         []string `json:"memberIds"`
}

// HasAnyDimension reports whether at least one dimension narrows the audience.
func (c FilterCriteria) HasAnyDimension() bool {
	return len(c.AreaIDs) > 0 ||
		len(c.BuildingIDs) > 0 ||
		len(c.GenderIDs) > 0 ||
		len(c.ReligiousStudyIDs) > 0 ||
		c.AgeRange.IsSet() ||
		len(c.MemberIDs) > 0
}

// Clone returns a deep copy so callers can update it without aliasing.
func (c FilterCriteria) Clone() FilterCriteria {
	out := FilterCriteria{
		AreaIDs:           cloneStrings(c.AreaIDs),
		BuildingIDs:       cloneStrings(c.BuildingIDs),
		GenderIDs:         cloneStrings(c.GenderIDs),
		ReligiousStudyIDs: cloneStrings(c.ReligiousStudyIDs),
		MemberIDs:         cloneStrings(c.MemberIDs),
	}
	if c.AgeRange.Min != nil {
		v := *c.AgeRange.Min
		out.AgeRange.Min = &v
	}
	if c.AgeRange.Max != nil {
		v := *c.AgeRange.Max
		out.AgeRange.Max = &v
	}
	return out
}

// MarshalJSON always emits arrays, never null, for the set dimensions.
func (c FilterCriteria) MarshalJSON() ([]byte, error) {
	type plain FilterCriteria
	p := plain(c)
	p.AreaIDs = nonNil(p.AreaIDs)
	p.BuildingIDs = nonNil(p.BuildingIDs)
	p.GenderIDs = nonNil(p.GenderIDs)
	p.ReligiousStudyIDs = nonNil(p.ReligiousStudyIDs)
	p.MemberIDs = nonNil(p.MemberIDs)
	return json.Marshal(p)
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}

func nonNil(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}

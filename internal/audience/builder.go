// Package audience accumulates notification filter dimensions and estimates
// how many members they reach.
package audience

import (
	"fmt"

	"directory-console/internal/apperr"
	"directory-console/internal/models"
)

// Dimension names accepted by SetDimension. They match the JSON keys of
// FilterCriteria so validation errors point at the submitted field.
const (
	DimAreas           = "areaIds"
	DimBuildings       = "buildingIds"
	DimGenders         = "genderIds"
	DimReligiousStudy  = "religiousStudyIds"
	DimMinAge          = "ageRange.min"
	DimMaxAge          = "ageRange.max"
	DimMembers         = "memberIds"
	FilterCriteriaName = "filterCriteria"
)

// SetDimension returns a copy of criteria with one dimension replaced. Set
// dimensions take a []string and are de-duplicated; age bounds take an int,
// a *int, or nil to clear the bound. The input is never modified.
func SetDimension(criteria models.FilterCriteria, name string, value any) (models.FilterCriteria, error) {
	out := criteria.Clone()

	switch name {
	case DimAreas, DimBuildings, DimGenders, DimReligiousStudy, DimMembers:
		ids, ok := value.([]string)
		if !ok && value != nil {
			return criteria, apperr.Invalid(name, fmt.Sprintf("expected a list of ids, got %T", value))
		}
		ids = dedupe(nil, ids)
		switch name {
		case DimAreas:
			out.AreaIDs = ids
		case DimBuildings:
			out.BuildingIDs = ids
		case DimGenders:
			out.GenderIDs = ids
		case DimReligiousStudy:
			out.ReligiousStudyIDs = ids
		case DimMembers:
			out.MemberIDs = ids
		}
		return out, nil

	case DimMinAge, DimMaxAge:
		age, err := ageValue(name, value)
		if err != nil {
			return criteria, err
		}
		if name == DimMinAge {
			out.AgeRange.Min = age
		} else {
			out.AgeRange.Max = age
		}
		if err := checkAgeRange(out.AgeRange); err != nil {
			return criteria, err
		}
		return out, nil
	}

	return criteria, apperr.Invalid(name, "unknown filter dimension")
}

// AddMembers appends ids to the explicit member list, skipping ones already
// present.
func AddMembers(criteria models.FilterCriteria, ids ...string) models.FilterCriteria {
	out := criteria.Clone()
	out.MemberIDs = dedupe(out.MemberIDs, ids)
	return out
}

func RemoveMember(criteria models.FilterCriteria, id string) models.FilterCriteria {
	out := criteria.Clone()
	kept := out.MemberIDs[:0]
	for _, m := range out.MemberIDs {
		if m != id {
			kept = append(kept, m)
		}
	}
	out.MemberIDs = kept
	return out
}

// Validate rejects criteria that would target nobody in particular.
func Validate(criteria models.FilterCriteria) error {
	if !criteria.HasAnyDimension() {
		return apperr.Invalid(FilterCriteriaName, "At least one filter must be set to target recipients")
	}
	return checkAgeRange(criteria.AgeRange)
}

func ageValue(name string, value any) (*int, error) {
	var age *int
	switch v := value.(type) {
	case nil:
		return nil, nil
	case int:
		age = &v
	case *int:
		if v == nil {
			return nil, nil
		}
		n := *v
		age = &n
	default:
		return nil, apperr.Invalid(name, fmt.Sprintf("expected an age, got %T", value))
	}
	if *age < 0 {
		return nil, apperr.Invalid(name, "Age cannot be negative")
	}
	return age, nil
}

func checkAgeRange(r models.AgeRange) error {
	if r.Min != nil && r.Max != nil && *r.Min > *r.Max {
		return apperr.Invalid(DimMaxAge, "Maximum age must not be below minimum age")
	}
	return nil
}

// dedupe appends the unseen values of add to base, keeping first-seen order.
func dedupe(base, add []string) []string {
	seen := make(map[string]struct{}, len(base)+len(add))
	out := make([]string, 0, len(base)+len(add))
	for _, list := range [][]string{base, add} {
		for _, id := range list {
			if id == "" {
				continue
			}
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	return out
}

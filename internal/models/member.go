package models

import (
	"encoding/json"
	"strconv"
)

type Area struct {
	RecCode  string `json:"RecCode"`
	AreaName string `json:"AreaName"`
}

type Building struct {
	RecCode      string `json:"RecCode"`
	BuildingName string `json:"BuildingName"`
	AreaID       string `json:"AreaID,omitempty"`
	Area         *Area  `json:"area,omitempty"`
	FamilyCount  int    `json:"familyCount,omitempty"`
	MemberCount  int    `json:"memberCount,omitempty"`
	// Families is only filled on the building detail.
	Families []Family `json:"families,omitempty"`
}

// AreaName returns the building's area name, or "-".
func (b Building) AreaName() string {
	if b.Area == nil || b.Area.AreaName == "" {
		return "-"
	}
	return b.Area.AreaName
}

type Address struct {
	IsCurrentAddress bool      `json:"IsCurrentAddress"`
	BuildingID       string    `json:"BuildingID,omitempty"`
	FlatNumber       string    `json:"FlatNumber,omitempty"`
	Floor            string    `json:"Floor,omitempty"`
	Wing             string    `json:"Wing,omitempty"`
	Building         *Building `json:"building,omitempty"`
}

type Family struct {
	RecCode           string    `json:"RecCode"`
	FamilyCode        string    `json:"FamilyCode"`
	ResidenceLandline string    `json:"ResidenceLandline,omitempty"`
	MemberCount       int       `json:"memberCount,omitempty"`
	HeadOfFamily      *Member   `json:"headOfFamily,omitempty"`
	Building          *Building `json:"building,omitempty"`
	// Members is only filled on the family detail.
	Members []Member `json:"members,omitempty"`
}

// HeadName is the name of the head of family, or "No head".
func (f Family) HeadName() string {
	if f.HeadOfFamily == nil || f.HeadOfFamily.MemberName == "" {
		return "No head"
	}
	return f.HeadOfFamily.MemberName
}

type Member struct {
	RecCode        string    `json:"RecCode"`
	MemberName     string    `json:"MemberName"`
	MobileNumber   string    `json:"MobileNumber"`
	EmailID        string    `json:"EmailID,omitempty"`
	GenderID       string    `json:"GenderID,omitempty"`
	BirthYear      int       `json:"BirthYear,omitempty"`
	IsHeadOfFamily bool      `json:"IsHeadOfFamily"`
	FamilyID       string    `json:"FamilyID,omitempty"`
	Family         *Family   `json:"family,omitempty"`
	Addresses      []Address `json:"addresses,omitempty"`

	ReligiousStudyID string `json:"ReligiousStudyID,omitempty"`
	NativePlaceID    string `json:"NativePlaceID,omitempty"`
}

func (m *Member) UnmarshalJSON(data []byte) error {
	type plain Member
	var raw struct {
		plain
		RecCode          json.RawMessage `json:"RecCode"`
		GenderID         json.RawMessage `json:"GenderID"`
		FamilyID         json.RawMessage `json:"FamilyID"`
		ReligiousStudyID json.RawMessage `json:"ReligiousStudyID"`
		NativePlaceID    json.RawMessage `json:"NativePlaceID"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*m = Member(raw.plain)
	m.RecCode = rawCode(raw.RecCode)
	m.GenderID = rawCode(raw.GenderID)
	m.FamilyID = rawCode(raw.FamilyID)
	m.ReligiousStudyID = rawCode(raw.ReligiousStudyID)
	m.NativePlaceID = rawCode(raw.NativePlaceID)
	if m.FamilyID == "" && m.Family != nil {
		m.FamilyID = m.Family.RecCode
	}
	return nil
}

// CurrentAddress returns the address marked current, if any.
func (m Member) CurrentAddress() (Address, bool) {
	for _, a := range m.Addresses {
		if a.IsCurrentAddress {
			return a, true
		}
	}
	return Address{}, false
}

// CurrentArea is the area name of the current address, or "-".
func (m Member) CurrentArea() string {
	for _, a := range m.Addresses {
		if !a.IsCurrentAddress || a.Building == nil || a.Building.Area == nil {
			continue
		}
		if a.Building.Area.AreaName != "" {
			return a.Building.Area.AreaName
		}
	}
	return "-"
}

// FamilyCode returns the member's family code or "-".
func (m Member) FamilyCode() string {
	if m.Family == nil || m.Family.FamilyCode == "" {
		return "-"
	}
	return m.Family.FamilyCode
}

// MemberFilter holds the list query parameters of GET /members.
type MemberFilter struct {
	Search string
	Page   int
	Limit  int
}

func (f MemberFilter) Query() map[string]string {
	q := make(map[string]string)
	if f.Search != "" {
		q["search"] = f.Search
	}
	setPaging(q, f.Page, f.Limit)
	return q
}

// MemberPage is one page of the member list.
type MemberPage struct {
	Members    []Member `json:"members"`
	TotalCount int      `json:"totalCount"`
	Page       int      `json:"page"`
}

func setPaging(q map[string]string, page, limit int) {
	if page > 0 {
		q["page"] = strconv.Itoa(page)
	}
	if limit > 0 {
		q["limit"] = strconv.Itoa(limit)
	}
}

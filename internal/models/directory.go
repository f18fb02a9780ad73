package models

import "strings"

// FamilyFilter holds the list query parameters of GET /families.
type FamilyFilter struct {
	Search string
	Page   int
	Limit  int
}

func (f FamilyFilter) Query() map[string]string {
	q := make(map[string]string)
	if f.Search != "" {
		q["search"] = f.Search
	}
	setPaging(q, f.Page, f.Limit)
	return q
}

type FamilyPage struct {
	Families   []Family `json:"families"`
	TotalCount int      `json:"totalCount"`
	Page       int      `json:"page"`
}

// BuildingFilter holds the list query parameters of GET /buildings.
type BuildingFilter struct {
	Search string
	AreaID string
	Page   int
	Limit  int
}

func (f BuildingFilter) Query() map[string]string {
	q := make(map[string]string)
	if f.Search != "" {
		q["search"] = f.Search
	}
	if f.AreaID != "" {
		q["areaId"] = f.AreaID
	}
	setPaging(q, f.Page, f.Limit)
	return q
}

type BuildingPage struct {
	Buildings  []Building `json:"buildings"`
	TotalCount int        `json:"totalCount"`
	Page       int        `json:"page"`
}

// MemberInput is the create and update payload of a member. With NewFamily
// set the backend creates a family at BuildingID instead of joining FamilyID.
type MemberInput struct {
	MemberName       string `json:"MemberName"`
	GenderID         string `json:"GenderID"`
	BirthYear        int    `json:"BirthYear,omitempty"`
	MobileNumber     string `json:"MobileNumber"`
	EmailID          string `json:"EmailID,omitempty"`
	IsHeadOfFamily   bool   `json:"IsHeadOfFamily"`
	ReligiousStudyID string `json:"ReligiousStudyID,omitempty"`
	NativePlaceID    string `json:"NativePlaceID,omitempty"`

	FamilyID          string `json:"FamilyID,omitempty"`
	NewFamily         bool   `json:"newFamily"`
	FamilyCode        string `json:"FamilyCode,omitempty"`
	ResidenceLandline string `json:"ResidenceLandline,omitempty"`

	BuildingID string `json:"BuildingID,omitempty"`
	FlatNumber string `json:"FlatNumber,omitempty"`
	Floor      string `json:"Floor,omitempty"`
	Wing       string `json:"Wing,omitempty"`
}

// Trimmed returns in with surrounding whitespace removed from every text field.
func (in MemberInput) Trimmed() MemberInput {
	for _, s := range []*string{
		&in.MemberName, &in.GenderID, &in.MobileNumber, &in.EmailID,
		&in.ReligiousStudyID, &in.NativePlaceID, &in.FamilyID, &in.FamilyCode,
		&in.ResidenceLandline, &in.BuildingID, &in.FlatNumber, &in.Floor, &in.Wing,
	} {
		*s = strings.TrimSpace(*s)
	}
	return in
}

// Input is the update payload that leaves m unchanged.
func (m Member) Input() MemberInput {
	in := MemberInput{
		MemberName:       m.MemberName,
		GenderID:         m.GenderID,
		BirthYear:        m.BirthYear,
		MobileNumber:     m.MobileNumber,
		EmailID:          m.EmailID,
		IsHeadOfFamily:   m.IsHeadOfFamily,
		ReligiousStudyID: m.ReligiousStudyID,
		NativePlaceID:    m.NativePlaceID,
		FamilyID:         m.FamilyID,
	}
	if in.FamilyID == "" && m.Family != nil {
		in.FamilyID = m.Family.RecCode
	}
	if a, ok := m.CurrentAddress(); ok {
		in.BuildingID = a.BuildingID
		if in.BuildingID == "" && a.Building != nil {
			in.BuildingID = a.Building.RecCode
		}
		in.FlatNumber, in.Floor, in.Wing = a.FlatNumber, a.Floor, a.Wing
	}
	return in
}

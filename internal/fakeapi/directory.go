package fakeapi

import (
	"errors"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"directory-console/internal/models"
)

var (
	errMemberNotFound  = errors.New("member not found")
	errUnknownFamily   = errors.New("unknown family")
	errUnknownBuilding = errors.New("unknown building")
	errDuplicateMobile = errors.New("duplicate mobile number")
)

type family struct {
	models.Family
	buildingID string
}

// ref is the short family form embedded in members.
func (f *family) ref() *models.Family {
	return &models.Family{RecCode: f.RecCode, FamilyCode: f.FamilyCode}
}

func (s *store) findFamily(id string) (*family, bool) {
	for _, f := range s.families {
		if f.RecCode == id {
			return f, true
		}
	}
	return nil, false
}

func (s *store) familyMembers(id string) []*models.Member {
	var out []*models.Member
	for _, m := range s.members {
		if m.FamilyID == id {
			out = append(out, m)
		}
	}
	return out
}

// familyView renders f with its computed head and member count. The member
// list is only included on the detail view.
func (s *store) familyView(f *family, withMembers bool) models.Family {
	out := f.Family
	out.Building = s.buildingRef(f.buildingID)

	members := s.familyMembers(f.RecCode)
	out.MemberCount = len(members)
	for _, m := range members {
		if m.IsHeadOfFamily && out.HeadOfFamily == nil {
			head := *m
			head.Family, head.Addresses = nil, nil
			out.HeadOfFamily = &head
		}
		if withMembers {
			out.Members = append(out.Members, *m)
		}
	}
	return out
}

// listFamilies matches search against the family code and member names.
func (s *store) listFamilies(search string) []models.Family {
	search = strings.ToLower(strings.TrimSpace(search))
	out := make([]models.Family, 0, len(s.families))
	for _, f := range s.families {
		if search != "" && !s.familyMatches(f, search) {
			continue
		}
		out = append(out, s.familyView(f, false))
	}
	return out
}

func (s *store) familyMatches(f *family, search string) bool {
	if strings.Contains(strings.ToLower(f.FamilyCode), search) {
		return true
	}
	for _, m := range s.familyMembers(f.RecCode) {
		if strings.Contains(strings.ToLower(m.MemberName), search) {
			return true
		}
	}
	return false
}

func (s *store) buildingView(code string, withFamilies bool) (models.Building, bool) {
	ref := s.buildingRef(code)
	if ref == nil {
		return models.Building{}, false
	}
	out := *ref
	for _, f := range s.families {
		if f.buildingID != code {
			continue
		}
		out.FamilyCount++
		if withFamilies {
			out.Families = append(out.Families, s.familyView(f, false))
		}
	}
	for _, m := range s.members {
		if a, ok := m.CurrentAddress(); ok && a.BuildingID == code {
			out.MemberCount++
		}
	}
	return out, true
}

func (s *store) listBuildings(search, areaID string) []models.Building {
	search = strings.ToLower(strings.TrimSpace(search))
	var out []models.Building
	for _, raw := range s.masterData[models.CategoryBuildings] {
		code, _ := raw["RecCode"].(string)
		b, ok := s.buildingView(code, false)
		if !ok {
			continue
		}
		if areaID != "" && b.AreaID != areaID {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(b.BuildingName), search) {
			continue
		}
		out = append(out, b)
	}
	return out
}

func (s *store) address(buildingID, flat, floor, wing string) models.Address {
	return models.Address{
		IsCurrentAddress: true,
		BuildingID:       buildingID,
		FlatNumber:       flat,
		Floor:            floor,
		Wing:             wing,
		Building:         s.buildingRef(buildingID),
	}
}

func (s *store) createMember(in models.MemberInput) (*models.Member, error) {
	m := &models.Member{RecCode: "m" + s.newID()}
	if err := s.applyMember(m, in); err != nil {
		return nil, err
	}
	s.members = append(s.members, m)
	return m, nil
}

func (s *store) updateMember(id string, in models.MemberInput) (*models.Member, error) {
	m, ok := s.findMember(id)
	if !ok {
		return nil, errMemberNotFound
	}
	next := *m
	if err := s.applyMember(&next, in); err != nil {
		return nil, err
	}
	*m = next
	return m, nil
}

// applyMember writes in onto m, creating a family when asked. A member made
// head of family replaces the previous head.
func (s *store) applyMember(m *models.Member, in models.MemberInput) error {
	for _, other := range s.members {
		if other.RecCode != m.RecCode && other.MobileNumber == in.MobileNumber {
			return errDuplicateMobile
		}
	}

	var f *family
	if in.NewFamily {
		if s.buildingRef(in.BuildingID) == nil {
			return errUnknownBuilding
		}
		f = &family{
			Family: models.Family{
				RecCode:           "F" + s.newID(),
				FamilyCode:        in.FamilyCode,
				ResidenceLandline: in.ResidenceLandline,
			},
			buildingID: in.BuildingID,
		}
		if f.FamilyCode == "" {
			f.FamilyCode = "FAM-" + f.RecCode
		}
		s.families = append(s.families, f)
	} else {
		var ok bool
		if f, ok = s.findFamily(in.FamilyID); !ok {
			return errUnknownFamily
		}
	}

	buildingID := in.BuildingID
	if buildingID == "" {
		buildingID = f.buildingID
	}
	if s.buildingRef(buildingID) == nil {
		return errUnknownBuilding
	}

	if in.IsHeadOfFamily {
		for _, other := range s.familyMembers(f.RecCode) {
			if other.RecCode != m.RecCode {
				other.IsHeadOfFamily = false
			}
		}
	}

	m.MemberName = in.MemberName
	m.GenderID = in.GenderID
	m.BirthYear = in.BirthYear
	m.MobileNumber = in.MobileNumber
	m.EmailID = in.EmailID
	m.IsHeadOfFamily = in.IsHeadOfFamily
	m.ReligiousStudyID = in.ReligiousStudyID
	m.NativePlaceID = in.NativePlaceID
	m.FamilyID = f.RecCode
	m.Family = f.ref()
	m.Addresses = []models.Address{s.address(buildingID, in.FlatNumber, in.Floor, in.Wing)}
	return nil
}

// requestReset issues a reset token for the account with email. It reports
// false for unknown addresses.
func (s *store) requestReset(email string) (string, bool) {
	for username, acc := range s.accounts {
		if strings.EqualFold(acc.user.Email, email) {
			token := uuid.NewString()
			s.resetTokens[token] = username
			return token, true
		}
	}
	return "", false
}

// resetPassword consumes token and sets the new password.
func (s *store) resetPassword(token, password string) bool {
	username, ok := s.resetTokens[token]
	if !ok {
		return false
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		return false
	}
	delete(s.resetTokens, token)
	s.accounts[username].passwordHash = string(hash)
	return true
}

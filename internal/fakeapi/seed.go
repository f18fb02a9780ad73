package fakeapi

import (
	"time"

	"directory-console/internal/models"
)

// Seeded credentials.
const (
	AdminUsername     = "admin"
	AdminPassword     = "admin123"
	SuperUsername     = "owner"
	SuperPassword     = "owner123"
	ModeratorUsername = "moderator"
	ModeratorPassword = "moderator123"
)

func (s *store) seed() {
	s.addAccount("1", "Directory Admin", AdminUsername, AdminPassword, models.RoleAdmin)
	s.addAccount("2", "Directory Owner", SuperUsername, SuperPassword, models.RoleSuperAdmin)
	s.addAccount("3", "Ward Moderator", ModeratorUsername, ModeratorPassword, models.RoleModerator)

	s.masterData[models.CategoryGenders] = []map[string]any{
		{"RecCode": "1", "GenderName": "Male"},
		{"RecCode": "2", "GenderName": "Female"},
	}
	s.masterData[models.CategoryAreas] = []map[string]any{
		{"RecCode": "Area1", "AreaName": "North Ward"},
		{"RecCode": "Area2", "AreaName": "River Side"},
		{"RecCode": "Area3", "AreaName": "Old Town"},
	}
	s.masterData[models.CategoryBuildings] = []map[string]any{
		{"RecCode": "B1", "BuildingName": "Shanti Tower", "AreaID": "Area1", "area": map[string]any{"AreaName": "North Ward"}},
		{"RecCode": "B2", "BuildingName": "Kamal Residency", "AreaID": "Area1", "area": map[string]any{"AreaName": "North Ward"}},
		{"RecCode": "B3", "BuildingName": "Ganga Heights", "AreaID": "Area2", "area": map[string]any{"AreaName": "River Side"}},
		{"RecCode": "B4", "BuildingName": "Heritage House", "AreaID": "Area3", "area": map[string]any{"AreaName": "Old Town"}},
	}
	s.masterData[models.CategoryReligiousStudies] = []map[string]any{
		{"RecCode": "1", "StudyName": "Scripture", "StudyLevel": "Beginner"},
		{"RecCode": "2", "StudyName": "Scripture", "StudyLevel": "Advanced"},
		{"RecCode": "3", "StudyName": "Philosophy", "StudyLevel": "Intermediate"},
	}
	s.masterData[models.CategoryNotificationTypes] = []map[string]any{
		{"RecCode": "1", "TypeName": "General"},
		{"RecCode": "2", "TypeName": "Event"},
		{"RecCode": "3", "TypeName": "Urgent"},
	}
	s.masterData[models.CategoryNativePlaces] = []map[string]any{
		{"RecCode": "1", "PlaceName": "Ahmedabad"},
		{"RecCode": "2", "PlaceName": "Surat"},
	}
	s.masterData[models.CategoryDikshas] = []map[string]any{
		{"RecCode": "1", "DikshaName": "Pratham"},
	}

	for i, building := range []string{"B1", "B2", "B3", "B4"} {
		code := "F" + string(rune('1'+i))
		s.families = append(s.families, &family{
			Family: models.Family{
				RecCode:           code,
				FamilyCode:        "FAM-" + code,
				ResidenceLandline: "0261-22000" + string(rune('1'+i)),
			},
			buildingID: building,
		})
	}

	year := s.now().Year()
	type row struct {
		id, name, mobile, gender, study, family, flat string
		age                                           int
		head                                          bool
	}
	rows := []row{
		{"m1", "Asha Patel", "9800000001", "2", "1", "F1", "101", 42, true},
		{"m2", "Ravi Patel", "9800000002", "1", "2", "F1", "101", 45, false},
		{"m3", "Meera Shah", "9800000003", "2", "", "F2", "204", 16, false},
		{"m4", "Kiran Shah", "9800000004", "1", "3", "F2", "204", 50, true},
		{"m5", "Dev Mehta", "9800000005", "1", "1", "F3", "12", 28, true},
		{"m6", "Nisha Mehta", "9800000006", "2", "", "F3", "12", 67, false},
		{"m7", "Arjun Desai", "9800000007", "1", "2", "F4", "3", 33, true},
	}
	for _, r := range rows {
		f, _ := s.findFamily(r.family)
		s.members = append(s.members, &models.Member{
			RecCode:          r.id,
			MemberName:       r.name,
			MobileNumber:     r.mobile,
			GenderID:         r.gender,
			BirthYear:        year - r.age,
			IsHeadOfFamily:   r.head,
			ReligiousStudyID: r.study,
			FamilyID:         f.RecCode,
			Family:           f.ref(),
			Addresses:        []models.Address{s.address(f.buildingID, r.flat, "", "")},
		})
	}

	// Two earlier notifications, one still in the admins' inbox unread.
	earlier := s.now().Add(-48 * time.Hour)
	first := s.createNotification(models.CreateNotificationRequest{
		Title:              "Water supply maintenance",
		Message:            "Water supply will be off on Sunday morning.",
		NotificationTypeID: "1",
		FilterCriteria:     models.FilterCriteria{AreaIDs: []string{"Area1"}},
	}, "Directory Admin")
	first.CreationDateTime = earlier
	s.seedReads(first, 2)

	second := s.createNotification(models.CreateNotificationRequest{
		Title:              "Community gathering",
		Message:            "Join us at the hall this Friday.",
		NotificationTypeID: "2",
		FilterCriteria:     models.FilterCriteria{GenderIDs: []string{"1", "2"}},
	}, "Directory Owner")
	second.CreationDateTime = earlier.Add(time.Hour)
	s.seedReads(second, 3)

	s.inbox[first.RecCode] = true
	s.inbox[second.RecCode] = false
}

func (s *store) buildingRef(code string) *models.Building {
	for _, b := range s.masterData[models.CategoryBuildings] {
		if b["RecCode"] != code {
			continue
		}
		areaID, _ := b["AreaID"].(string)
		name, _ := b["BuildingName"].(string)
		return &models.Building{
			RecCode:      code,
			BuildingName: name,
			AreaID:       areaID,
			Area:         &models.Area{RecCode: areaID, AreaName: s.entityName(models.CategoryAreas, areaID)},
		}
	}
	return nil
}

func (s *store) seedReads(n *models.Notification, count int) {
	recipients := s.recipients[n.RecCode]
	readAt := n.CreationDateTime.Add(time.Hour)
	for i := 0; i < count && i < len(recipients); i++ {
		at := readAt
		recipients[i].ReadStatus = true
		recipients[i].ReadDateTime = &at
		n.ReadCount++
	}
}

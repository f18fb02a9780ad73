package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func TestRoleHierarchy(t *testing.T) {
	assert.True(t, RoleSuperAdmin.IsHigherOrEqual(RoleAdmin))
	assert.True(t, RoleAdmin.IsHigherOrEqual(RoleAdmin))
	assert.False(t, RoleModerator.IsHigherOrEqual(RoleAdmin))
	assert.False(t, UserRole("GUEST").IsHigherOrEqual(RoleUser))

	assert.True(t, RoleAdmin.CanSendNotifications())
	assert.True(t, RoleSuperAdmin.CanSendNotifications())
	assert.False(t, RoleModerator.CanSendNotifications())
	assert.Len(t, AllRoles(), 4)
}

func TestRoleFromString(t *testing.T) {
	cases := map[string]UserRole{
		"ADMIN":       RoleAdmin,
		"Admin":       RoleAdmin,
		"Super Admin": RoleSuperAdmin,
		"SuperAdmin":  RoleSuperAdmin,
		"Moderator":   RoleModerator,
	}
	for in, want := range cases {
		got, ok := RoleFromString(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}

	_, ok := RoleFromString("root")
	assert.False(t, ok)
}

func TestUserUnmarshalNumericCode(t *testing.T) {
	var u User
	require.NoError(t, json.Unmarshal([]byte(`{"id":42,"username":"admin","role":"Admin"}`), &u))
	assert.Equal(t, "42", u.RecCode)
	assert.Equal(t, RoleAdmin, u.Role)
	assert.Equal(t, "admin", u.DisplayName())

	u.Name = "Site Admin"
	assert.Equal(t, "Site Admin", u.DisplayName())
}

func TestEntityNameByCategory(t *testing.T) {
	var list []Entity
	body := `[
		{"RecCode":1,"AreaName":"North"},
		{"RecCode":"b7","BuildingName":"Tower A","area":{"AreaName":"North"}},
		{"RecCode":3,"StudyName":"Scripture","StudyLevel":"Advanced"},
		{"RecCode":4}
	]`
	require.NoError(t, json.Unmarshal([]byte(body), &list))
	require.Len(t, list, 4)

	assert.Equal(t, "1", list[0].RecCode)
	assert.Equal(t, "North", list[0].Name)
	assert.Equal(t, "North", list[0].Label())

	assert.Equal(t, "Tower A (North)", list[1].Label())
	assert.Equal(t, "Scripture - Advanced", list[2].Label())
	assert.Equal(t, "4", list[3].Label())
}

func TestEntityMarshalKeepsAttributes(t *testing.T) {
	e := Entity{RecCode: "7", Name: "General", Attrs: map[string]any{"TypeName": "General"}}
	data, err := json.Marshal(e)
	require.NoError(t, err)

	var back map[string]any
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, "7", back["RecCode"])
	assert.Equal(t, "General", back["TypeName"])
	assert.NotContains(t, back, "Name")
}

func TestFilterCriteriaMarshalsEmptySetsAsArrays(t *testing.T) {
	data, err := json.Marshal(FilterCriteria{AgeRange: AgeRange{Min: intPtr(18)}})
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"areaIds":[],"buildingIds":[],"genderIds":[],"religiousStudyIds":[],
		"ageRange":{"min":18,"max":null},"memberIds":[]
	}`, string(data))
}

func TestFilterCriteriaHasAnyDimension(t *testing.T) {
	assert.False(t, FilterCriteria{}.HasAnyDimension())
	assert.False(t, FilterCriteria{AreaIDs: []string{}}.HasAnyDimension())
	assert.True(t, FilterCriteria{AreaIDs: []string{"a1"}}.HasAnyDimension())
	assert.True(t, FilterCriteria{AgeRange: AgeRange{Max: intPtr(0)}}.HasAnyDimension())
	assert.True(t, FilterCriteria{MemberIDs: []string{"m1"}}.HasAnyDimension())
}

func TestFilterCriteriaCloneIsDeep(t *testing.T) {
	orig := FilterCriteria{AreaIDs: []string{"a1"}, AgeRange: AgeRange{Min: intPtr(5)}}
	c := orig.Clone()
	c.AreaIDs[0] = "changed"
	*c.AgeRange.Min = 99

	assert.Equal(t, "a1", orig.AreaIDs[0])
	assert.Equal(t, 5, *orig.AgeRange.Min)
	assert.Nil(t, c.BuildingIDs)
}

func TestNotificationStatus(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	future := now.Add(time.Hour)
	past := now.Add(-time.Hour)

	assert.Equal(t, NotificationStatusSent, Notification{}.Status(now))
	assert.Equal(t, NotificationStatusScheduled, Notification{ScheduledDateTime: &future}.Status(now))
	assert.Equal(t, NotificationStatusSent, Notification{ScheduledDateTime: &past}.Status(now))
}

func TestNotificationUnmarshal(t *testing.T) {
	body := `{
		"RecCode": 12,
		"Title": "Water",
		"type": {"RecCode": 3, "TypeName": "General"},
		"ScheduledDateTime": null,
		"CreationDateTime": "2026-03-01T10:00:00Z",
		"recipientCount": 10,
		"sentCount": 10,
		"readCount": 4
	}`
	var n Notification
	require.NoError(t, json.Unmarshal([]byte(body), &n))
	assert.Equal(t, "12", n.RecCode)
	assert.Equal(t, "3", n.NotificationTypeID)
	assert.Equal(t, "General", n.TypeName())
	assert.Equal(t, "System", n.CreatorName())
	assert.Nil(t, n.ScheduledDateTime)
	assert.Nil(t, n.DeliveredCount)
	assert.Equal(t, 4, n.ReadCount)
}

func TestCreateRequestCarriesNullSchedule(t *testing.T) {
	data, err := json.Marshal(CreateNotificationRequest{Title: "t", Message: "m", NotificationTypeID: "1"})
	require.NoError(t, err)

	var back map[string]any
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Contains(t, back, "ScheduledDateTime")
	assert.Nil(t, back["ScheduledDateTime"])
	assert.Contains(t, back, "FilterCriteria")
}

func TestMemberCurrentArea(t *testing.T) {
	m := Member{
		Addresses: []Address{
			{IsCurrentAddress: false, Building: &Building{Area: &Area{AreaName: "Old"}}},
			{IsCurrentAddress: true, Building: &Building{Area: &Area{AreaName: "North"}}},
		},
	}
	assert.Equal(t, "North", m.CurrentArea())
	assert.Equal(t, "-", Member{}.CurrentArea())
	assert.Equal(t, "-", Member{}.FamilyCode())
}

func TestFilterQueries(t *testing.T) {
	start := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
	q := NotificationFilter{Search: "water", Status: NotificationStatusScheduled, StartDate: &start, Page: 2, Limit: 10}.Query()
	assert.Equal(t, map[string]string{
		"search":    "water",
		"status":    "Scheduled",
		"startDate": "2026-01-02",
		"page":      "2",
		"limit":     "10",
	}, q)

	assert.Empty(t, MemberFilter{}.Query())
}

func TestDirectoryFilterQueries(t *testing.T) {
	assert.Equal(t, map[string]string{"search": "shah", "limit": "5"}, FamilyFilter{Search: "shah", Limit: 5}.Query())
	assert.Equal(t, map[string]string{"areaId": "Area1", "page": "2"}, BuildingFilter{AreaID: "Area1", Page: 2}.Query())
	assert.Empty(t, BuildingFilter{}.Query())
}

func TestMemberUnmarshalNumericCodes(t *testing.T) {
	var m Member
	require.NoError(t, json.Unmarshal([]byte(`{"RecCode":12,"MemberName":"Asha","ReligiousStudyID":3,"family":{"RecCode":"F1","FamilyCode":"FAM-F1"}}`), &m))
	assert.Equal(t, "12", m.RecCode)
	assert.Equal(t, "3", m.ReligiousStudyID)
	assert.Equal(t, "F1", m.FamilyID)
}

func TestMemberInputKeepsMember(t *testing.T) {
	m := Member{
		MemberName:       "Asha Patel",
		GenderID:         "2",
		BirthYear:        1984,
		MobileNumber:     "9800000001",
		IsHeadOfFamily:   true,
		ReligiousStudyID: "1",
		Family:           &Family{RecCode: "F1"},
		Addresses: []Address{
			{IsCurrentAddress: true, FlatNumber: "12", Building: &Building{RecCode: "B1"}},
		},
	}
	in := m.Input()
	assert.Equal(t, "F1", in.FamilyID)
	assert.Equal(t, "B1", in.BuildingID)
	assert.Equal(t, "12", in.FlatNumber)
	assert.True(t, in.IsHeadOfFamily)
	assert.False(t, in.NewFamily)
	assert.Equal(t, "1", in.ReligiousStudyID)
}

func TestMemberInputTrimmed(t *testing.T) {
	in := MemberInput{MemberName: "  Asha ", MobileNumber: " 9800000001", Wing: " A "}.Trimmed()
	assert.Equal(t, "Asha", in.MemberName)
	assert.Equal(t, "9800000001", in.MobileNumber)
	assert.Equal(t, "A", in.Wing)
}

func TestFamilyAndBuildingLabels(t *testing.T) {
	assert.Equal(t, "No head", Family{}.HeadName())
	assert.Equal(t, "Asha", Family{HeadOfFamily: &Member{MemberName: "Asha"}}.HeadName())
	assert.Equal(t, "-", Building{}.AreaName())
	assert.Equal(t, "North Ward", Building{Area: &Area{AreaName: "North Ward"}}.AreaName())
}

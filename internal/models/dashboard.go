package models

// Bucket is one labelled count in a dashboard breakdown.
type Bucket struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

type MemberStats struct {
	TotalMembers      int      `json:"totalMembers"`
	TotalFamilies     int      `json:"totalFamilies"`
	MembersByAgeGroup []Bucket `json:"membersByAgeGroup"`
}

type LocationStats struct {
	TotalBuildings int      `json:"totalBuildings"`
	MembersByArea  []Bucket `json:"membersByArea"`
}

type NotificationStats struct {
	TotalSent int `json:"totalSent"`
}

type ReligiousStats struct {
	MembersByReligiousStudy []Bucket `json:"membersByReligiousStudy"`
}

// DashboardStats is the payload of GET /dashboard/stats.
type DashboardStats struct {
	MemberStats       MemberStats       `json:"memberStats"`
	LocationStats     LocationStats     `json:"locationStats"`
	NotificationStats NotificationStats `json:"notificationStats"`
	ReligiousStats    ReligiousStats    `json:"religiousStats"`
}

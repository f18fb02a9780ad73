package fakeapi

import (
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"directory-console/internal/models"
)

type account struct {
	user         models.User
	passwordHash string
}

// store holds the whole fake directory in memory.
type store struct {
	mu sync.RWMutex

	accounts   map[string]*account // by username
	masterData map[string][]map[string]any
	members    []*models.Member
	families   []*family

	// resetTokens maps password reset tokens to usernames.
	resetTokens map[string]string

	notifications []*models.Notification
	recipients    map[string][]models.Recipient // by notification id
	// inbox holds the read flag of notifications addressed to the admins.
	inbox map[string]bool

	nextID int
	now    func() time.Time
}

func newStore(now func() time.Time) *store {
	s := &store{
		accounts:    make(map[string]*account),
		masterData:  make(map[string][]map[string]any),
		recipients:  make(map[string][]models.Recipient),
		inbox:       make(map[string]bool),
		resetTokens: make(map[string]string),
		nextID:      100,
		now:         now,
	}
	s.seed()
	return s
}

func (s *store) newID() string {
	s.nextID++
	return strconv.Itoa(s.nextID)
}

func (s *store) addAccount(id, name, username, password string, role models.UserRole) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		panic(err)
	}
	s.accounts[username] = &account{
		user:         models.User{RecCode: id, Name: name, Username: username, Email: username + "@directory.local", Role: role},
		passwordHash: string(hash),
	}
}

func (s *store) authenticate(username, password string) (*models.User, bool) {
	s.mu.RLock()
	acc, ok := s.accounts[username]
	var copied account
	if ok {
		copied = *acc
	}
	s.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if err := bcrypt.CompareHashAndPassword([]byte(copied.passwordHash), []byte(password)); err != nil {
		return nil, false
	}
	return &copied.user, true
}

func (s *store) userByID(id string) (*models.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, acc := range s.accounts {
		if acc.user.RecCode == id {
			u := acc.user
			return &u, true
		}
	}
	return nil, false
}

func (s *store) categoryList(category string) ([]map[string]any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	list, ok := s.masterData[category]
	if !ok {
		return nil, false
	}
	out := make([]map[string]any, len(list))
	copy(out, list)
	return out, true
}

func (s *store) hasEntity(category, code string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.masterData[category] {
		if e["RecCode"] == code {
			return true
		}
	}
	return false
}

func (s *store) typeRef(code string) *models.NotificationType {
	for _, e := range s.masterData[models.CategoryNotificationTypes] {
		if e["RecCode"] == code {
			name, _ := e["TypeName"].(string)
			return &models.NotificationType{RecCode: code, TypeName: name}
		}
	}
	return nil
}

// matchMembers resolves criteria to members. Set dimensions are combined
// with AND; explicit member ids are added on top unless intersect is set.
func (s *store) matchMembers(c models.FilterCriteria, intersect bool) []*models.Member {
	year := s.now().Year()
	explicit := toSet(c.MemberIDs)
	narrowing := len(c.AreaIDs) > 0 || len(c.BuildingIDs) > 0 || len(c.GenderIDs) > 0 ||
		len(c.ReligiousStudyIDs) > 0 || c.AgeRange.IsSet()

	var out []*models.Member
	for _, m := range s.members {
		dims := narrowing && memberMatches(m, c, year)
		_, listed := explicit[m.RecCode]
		switch {
		case intersect && len(explicit) > 0:
			if listed && (!narrowing || dims) {
				out = append(out, m)
			}
		case dims || listed:
			out = append(out, m)
		}
	}
	return out
}

func memberMatches(m *models.Member, c models.FilterCriteria, year int) bool {
	var areaID, buildingID string
	for _, a := range m.Addresses {
		if a.IsCurrentAddress && a.Building != nil {
			buildingID = a.Building.RecCode
			if a.Building.Area != nil {
				areaID = a.Building.Area.RecCode
			}
		}
	}
	if len(c.AreaIDs) > 0 && !contains(c.AreaIDs, areaID) {
		return false
	}
	if len(c.BuildingIDs) > 0 && !contains(c.BuildingIDs, buildingID) {
		return false
	}
	if len(c.GenderIDs) > 0 && !contains(c.GenderIDs, m.GenderID) {
		return false
	}
	if len(c.ReligiousStudyIDs) > 0 && !contains(c.ReligiousStudyIDs, m.ReligiousStudyID) {
		return false
	}
	age := year - m.BirthYear
	if c.AgeRange.Min != nil && age < *c.AgeRange.Min {
		return false
	}
	if c.AgeRange.Max != nil && age > *c.AgeRange.Max {
		return false
	}
	return true
}

func (s *store) searchMembers(search string) []*models.Member {
	search = strings.ToLower(strings.TrimSpace(search))
	var out []*models.Member
	for _, m := range s.members {
		if search == "" ||
			strings.Contains(strings.ToLower(m.MemberName), search) ||
			strings.Contains(m.MobileNumber, search) {
			out = append(out, m)
		}
	}
	return out
}

func (s *store) findMember(id string) (*models.Member, bool) {
	for _, m := range s.members {
		if m.RecCode == id {
			return m, true
		}
	}
	return nil, false
}

func (s *store) findNotification(id string) (*models.Notification, bool) {
	for _, n := range s.notifications {
		if n.RecCode == id {
			return n, true
		}
	}
	return nil, false
}

func (s *store) createNotification(req models.CreateNotificationRequest, creator string) *models.Notification {
	now := s.now()
	n := &models.Notification{
		RecCode:            s.newID(),
		Title:              req.Title,
		Message:            req.Message,
		NotificationTypeID: req.NotificationTypeID,
		Type:               s.typeRef(req.NotificationTypeID),
		ScheduledDateTime:  req.ScheduledDateTime,
		CreationDateTime:   now,
		Creator:            &models.Creator{MemberName: creator},
	}
	criteria := req.FilterCriteria.Clone()
	n.FilterCriteria = &criteria

	scheduled := n.Status(now) == models.NotificationStatusScheduled
	matched := s.matchMembers(req.FilterCriteria, false)
	recipients := make([]models.Recipient, 0, len(matched))
	for _, m := range matched {
		r := models.Recipient{
			RecCode:        s.newID(),
			NotificationID: n.RecCode,
			MemberID:       m.RecCode,
			Member:         &models.RecipientMember{MemberName: m.MemberName, MobileNumber: m.MobileNumber},
		}
		if !scheduled {
			sent := now
			r.SentDateTime = &sent
		}
		recipients = append(recipients, r)
	}

	n.RecipientCount = len(recipients)
	if !scheduled {
		n.SentCount = len(recipients)
	}
	s.notifications = append(s.notifications, n)
	s.recipients[n.RecCode] = recipients
	return n
}

type notificationQuery struct {
	search    string
	typeID    string
	status    models.NotificationStatus
	startDate *time.Time
	endDate   *time.Time
}

// listNotifications returns matches newest first.
func (s *store) listNotifications(q notificationQuery) []models.Notification {
	now := s.now()
	search := strings.ToLower(q.search)

	var out []models.Notification
	for _, n := range s.notifications {
		if search != "" &&
			!strings.Contains(strings.ToLower(n.Title), search) &&
			!strings.Contains(strings.ToLower(n.Message), search) {
			continue
		}
		if q.typeID != "" && n.NotificationTypeID != q.typeID {
			continue
		}
		if q.status != "" && n.Status(now) != q.status {
			continue
		}
		if q.startDate != nil && n.CreationDateTime.Before(*q.startDate) {
			continue
		}
		if q.endDate != nil && !n.CreationDateTime.Before(q.endDate.AddDate(0, 0, 1)) {
			continue
		}
		item := *n
		if read, ok := s.inbox[n.RecCode]; ok {
			item.ReadStatus = read
		}
		out = append(out, item)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreationDateTime.After(out[j].CreationDateTime)
	})
	return out
}

func (s *store) unreadCount() int {
	count := 0
	for _, read := range s.inbox {
		if !read {
			count++
		}
	}
	return count
}

// markRead flags an inbox notification read. It reports false when the
// notification does not exist.
func (s *store) markRead(id string) bool {
	n, ok := s.findNotification(id)
	if !ok {
		return false
	}
	if read, inInbox := s.inbox[id]; inInbox && !read {
		s.inbox[id] = true
		n.ReadCount++
	}
	return true
}

func (s *store) dashboard() models.DashboardStats {
	year := s.now().Year()
	families := make(map[string]struct{})
	ages := []models.Bucket{{Label: "0-17"}, {Label: "18-35"}, {Label: "36-60"}, {Label: "60+"}}
	byArea := make(map[string]int)
	byStudy := make(map[string]int)

	for _, m := range s.members {
		if m.Family != nil {
			families[m.Family.RecCode] = struct{}{}
		}
		switch age := year - m.BirthYear; {
		case age < 18:
			ages[0].Count++
		case age <= 35:
			ages[1].Count++
		case age <= 60:
			ages[2].Count++
		default:
			ages[3].Count++
		}
		if area := m.CurrentArea(); area != "-" {
			byArea[area]++
		}
		if m.ReligiousStudyID != "" {
			byStudy[s.entityName(models.CategoryReligiousStudies, m.ReligiousStudyID)]++
		}
	}

	sent := 0
	now := s.now()
	for _, n := range s.notifications {
		if n.Status(now) == models.NotificationStatusSent {
			sent++
		}
	}

	return models.DashboardStats{
		MemberStats: models.MemberStats{
			TotalMembers:      len(s.members),
			TotalFamilies:     len(families),
			MembersByAgeGroup: ages,
		},
		LocationStats: models.LocationStats{
			TotalBuildings: len(s.masterData[models.CategoryBuildings]),
			MembersByArea:  buckets(byArea),
		},
		NotificationStats: models.NotificationStats{TotalSent: sent},
		ReligiousStats:    models.ReligiousStats{MembersByReligiousStudy: buckets(byStudy)},
	}
}

func (s *store) entityName(category, code string) string {
	for _, e := range s.masterData[category] {
		if e["RecCode"] == code {
			for _, key := range []string{"StudyName", "AreaName", "BuildingName", "GenderName", "TypeName"} {
				if name, ok := e[key].(string); ok {
					return name
				}
			}
		}
	}
	return code
}

func buckets(counts map[string]int) []models.Bucket {
	out := make([]models.Bucket, 0, len(counts))
	for label, count := range counts {
		out = append(out, models.Bucket{Label: label, Count: count})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Label < out[j].Label })
	return out
}

func toSet(ids []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

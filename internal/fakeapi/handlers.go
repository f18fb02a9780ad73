package fakeapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"directory-console/internal/models"
)

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

type createNotificationRequest struct {
	Title              string                `json:"Title" binding:"required,max=200"`
	Message            string                `json:"Message" binding:"required,max=1000"`
	NotificationTypeID string                `json:"NotificationTypeID" binding:"required"`
	FilterCriteria     models.FilterCriteria `json:"FilterCriteria"`
	ScheduledDateTime  *time.Time            `json:"ScheduledDateTime"`
}

func (s *Server) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	user, ok := s.store.authenticate(req.Username, req.Password)
	if !ok {
		fail(c, http.StatusUnauthorized, "Invalid username or password")
		return
	}

	accessToken, err := s.accessTokens().GenerateToken(user.RecCode, user.Username, string(user.Role))
	if err != nil {
		fail(c, http.StatusInternalServerError, "Error generating token")
		return
	}
	refreshToken, err := s.refresh.GenerateRefreshToken(user.RecCode, user.Username, string(user.Role))
	if err != nil {
		fail(c, http.StatusInternalServerError, "Error generating token")
		return
	}

	s.mu.Lock()
	s.refreshTokens[refreshToken] = true
	s.mu.Unlock()

	respond(c, http.StatusOK, gin.H{
		"accessToken":  accessToken,
		"refreshToken": refreshToken,
		"user":         user,
	})
}

func (s *Server) refreshToken(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Refresh token is required")
		return
	}

	s.mu.Lock()
	delay, rejected, known := s.refreshDelay, s.failRefresh, s.refreshTokens[req.RefreshToken]
	s.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-c.Request.Context().Done():
			return
		}
	}

	if rejected || !known {
		fail(c, http.StatusUnauthorized, "Invalid refresh token")
		return
	}
	claims, err := s.refresh.ValidateRefreshToken(req.RefreshToken)
	if err != nil {
		fail(c, http.StatusUnauthorized, "Invalid refresh token")
		return
	}

	token, err := s.accessTokens().GenerateToken(claims.UserID, claims.Username, claims.Role)
	if err != nil {
		fail(c, http.StatusInternalServerError, "Error generating token")
		return
	}
	respond(c, http.StatusOK, gin.H{"token": token})
}

func (s *Server) logout(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err == nil {
		s.mu.Lock()
		delete(s.refreshTokens, req.RefreshToken)
		s.mu.Unlock()
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Logged out",
	})
}

func (s *Server) me(c *gin.Context) {
	user, ok := s.store.userByID(c.GetString("user_id"))
	if !ok {
		fail(c, http.StatusNotFound, "User not found")
		return
	}
	respond(c, http.StatusOK, user)
}

func (s *Server) masterData(c *gin.Context) {
	list, ok := s.store.categoryList(c.Param("category"))
	if !ok {
		fail(c, http.StatusNotFound, "Unknown master data category")
		return
	}
	respond(c, http.StatusOK, list)
}

func (s *Server) listMembers(c *gin.Context) {
	criteria, narrowed, err := criteriaFromQuery(c)
	if err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}
	page, limit := pagination(c)

	s.store.mu.RLock()
	var matched []*models.Member
	if narrowed {
		matched = s.store.matchMembers(criteria, c.Query("memberMatch") == "intersect")
	} else {
		matched = s.store.searchMembers(c.Query("search"))
	}
	members := make([]models.Member, 0, len(matched))
	for _, m := range matched {
		members = append(members, *m)
	}
	s.store.mu.RUnlock()

	respond(c, http.StatusOK, gin.H{
		"members":    paginate(members, page, limit),
		"totalCount": len(members),
		"page":       page,
	})
}

func criteriaFromQuery(c *gin.Context) (models.FilterCriteria, bool, error) {
	criteria := models.FilterCriteria{
		AreaIDs:           c.QueryArray("areaIds"),
		BuildingIDs:       c.QueryArray("buildingIds"),
		GenderIDs:         c.QueryArray("genderIds"),
		ReligiousStudyIDs: c.QueryArray("religiousStudyIds"),
		MemberIDs:         c.QueryArray("memberIds"),
	}
	for key, dst := range map[string]**int{"minAge": &criteria.AgeRange.Min, "maxAge": &criteria.AgeRange.Max} {
		raw, ok := c.GetQuery(key)
		if !ok {
			continue
		}
		v, err := strconv.Atoi(raw)
		if err != nil {
			return criteria, false, &queryError{param: key}
		}
		*dst = &v
	}
	return criteria, criteria.HasAnyDimension(), nil
}

type queryError struct {
	param string
}

func (e *queryError) Error() string {
	return "Invalid " + e.param + " parameter"
}

func (s *Server) getMember(c *gin.Context) {
	s.store.mu.RLock()
	m, ok := s.store.findMember(c.Param("id"))
	var out models.Member
	if ok {
		out = *m
	}
	s.store.mu.RUnlock()

	if !ok {
		fail(c, http.StatusNotFound, "Member not found")
		return
	}
	respond(c, http.StatusOK, out)
}

func (s *Server) dashboardStats(c *gin.Context) {
	s.store.mu.RLock()
	stats := s.store.dashboard()
	s.store.mu.RUnlock()
	respond(c, http.StatusOK, stats)
}

func (s *Server) createNotification(c *gin.Context) {
	var req createNotificationRequest
	bindErr := c.ShouldBindBodyWith(&req, binding.JSON)

	if raw, ok := c.Get(gin.BodyBytesKey); ok {
		var body map[string]any
		if data, ok := raw.([]byte); ok && json.Unmarshal(data, &body) == nil {
			s.mu.Lock()
			s.lastCreate = body
			s.mu.Unlock()
		}
	}

	if bindErr != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": bindErr.Error(),
		})
		return
	}

	if !s.store.hasEntity(models.CategoryNotificationTypes, req.NotificationTypeID) {
		fail(c, http.StatusBadRequest, "Invalid notification type")
		return
	}
	if !req.FilterCriteria.HasAnyDimension() {
		fail(c, http.StatusBadRequest, "At least one filter must be set to target recipients")
		return
	}
	if req.ScheduledDateTime != nil && !req.ScheduledDateTime.After(s.opts.Now()) {
		fail(c, http.StatusBadRequest, "Scheduled time must be in the future")
		return
	}

	creator := c.GetString("username")
	if u, ok := s.store.userByID(c.GetString("user_id")); ok {
		creator = u.DisplayName()
	}

	s.store.mu.Lock()
	n := *s.store.createNotification(models.CreateNotificationRequest{
		Title:              req.Title,
		Message:            req.Message,
		NotificationTypeID: req.NotificationTypeID,
		FilterCriteria:     req.FilterCriteria,
		ScheduledDateTime:  req.ScheduledDateTime,
	}, creator)
	s.store.mu.Unlock()

	respond(c, http.StatusCreated, n)
}

func (s *Server) listNotifications(c *gin.Context) {
	q := notificationQuery{
		search: c.Query("search"),
		typeID: c.Query("typeId"),
		status: models.NotificationStatus(c.Query("status")),
	}
	if q.status != "" && q.status != models.NotificationStatusSent && q.status != models.NotificationStatusScheduled {
		fail(c, http.StatusBadRequest, "Invalid status filter")
		return
	}
	for key, dst := range map[string]**time.Time{"startDate": &q.startDate, "endDate": &q.endDate} {
		raw := c.Query(key)
		if raw == "" {
			continue
		}
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			fail(c, http.StatusBadRequest, "Invalid "+key+" parameter")
			return
		}
		*dst = &t
	}
	page, limit := pagination(c)

	s.store.mu.RLock()
	list := s.store.listNotifications(q)
	s.store.mu.RUnlock()

	respond(c, http.StatusOK, gin.H{
		"notifications": paginate(list, page, limit),
		"totalCount":    len(list),
		"page":          page,
	})
}

func (s *Server) getNotification(c *gin.Context) {
	id := c.Param("id")

	s.store.mu.RLock()
	n, ok := s.store.findNotification(id)
	var (
		out        models.Notification
		recipients []models.Recipient
	)
	if ok {
		out = *n
		out.ReadStatus = s.store.inbox[id]
		recipients = append([]models.Recipient{}, s.store.recipients[id]...)
	}
	s.store.mu.RUnlock()

	if !ok {
		fail(c, http.StatusNotFound, "Notification not found")
		return
	}
	respond(c, http.StatusOK, gin.H{
		"notification": out,
		"recipients":   recipients,
	})
}

func (s *Server) unreadCount(c *gin.Context) {
	s.store.mu.RLock()
	count := s.store.unreadCount()
	s.store.mu.RUnlock()
	respond(c, http.StatusOK, gin.H{"count": count})
}

func (s *Server) markRead(c *gin.Context) {
	s.store.mu.Lock()
	ok := s.store.markRead(c.Param("id"))
	s.store.mu.Unlock()

	if !ok {
		fail(c, http.StatusNotFound, "Notification not found")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Notification marked as read",
	})
}

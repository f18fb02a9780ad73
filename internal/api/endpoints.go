package api

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"directory-console/internal/models"
	"directory-console/internal/session"
)

// Login implements session.Remote.
func (c *Client) Login(ctx context.Context, username, password string) (*session.Grant, error) {
	var grant session.Grant
	err := c.do(ctx, call{
		method: http.MethodPost,
		path:   "/auth/admin/login",
		body:   map[string]string{"username": username, "password": password},
	}, &grant)
	if err != nil {
		return nil, err
	}
	return &grant, nil
}

// Refresh implements session.Remote.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (string, error) {
	var out struct {
		Token string `json:"token"`
	}
	err := c.do(ctx, call{
		method: http.MethodPost,
		path:   "/auth/refresh",
		body:   map[string]string{"refreshToken": refreshToken},
	}, &out)
	return out.Token, err
}

// Logout implements session.Remote. It sends the current bearer token but
// never triggers a refresh.
func (c *Client) Logout(ctx context.Context, refreshToken string) error {
	return c.do(ctx, call{
		method:    http.MethodPost,
		path:      "/auth/logout",
		body:      map[string]string{"refreshToken": refreshToken},
		authorize: true,
	}, nil)
}

// RequestPasswordReset asks the backend to mail a reset link to an admin.
// The reply does not reveal whether the address is registered.
func (c *Client) RequestPasswordReset(ctx context.Context, email string) error {
	return c.do(ctx, call{
		method: http.MethodPost,
		path:   "/auth/admin/reset-password",
		body:   map[string]string{"email": email},
	}, nil)
}

// ConfirmPasswordReset sets a new password with the token from the reset link.
func (c *Client) ConfirmPasswordReset(ctx context.Context, token, password string) error {
	return c.do(ctx, call{
		method: http.MethodPost,
		path:   "/auth/admin/reset-password/" + url.PathEscape(token),
		body:   map[string]string{"password": password},
	}, nil)
}

func (c *Client) Me(ctx context.Context) (*models.User, error) {
	var user models.User
	if err := c.do(ctx, authed(http.MethodGet, "/auth/me"), &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *Client) MasterData(ctx context.Context, category string) ([]models.Entity, error) {
	var list []models.Entity
	if err := c.do(ctx, authed(http.MethodGet, "/master-data/"+url.PathEscape(category)), &list); err != nil {
		return nil, err
	}
	if list == nil {
		list = []models.Entity{}
	}
	return list, nil
}

func (c *Client) ListMembers(ctx context.Context, filter models.MemberFilter) (*models.MemberPage, error) {
	cl := authed(http.MethodGet, "/members")
	cl.query = values(filter.Query())

	var page models.MemberPage
	if err := c.do(ctx, cl, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

func (c *Client) GetMember(ctx context.Context, id string) (*models.Member, error) {
	var member models.Member
	if err := c.do(ctx, authed(http.MethodGet, "/members/"+url.PathEscape(id)), &member); err != nil {
		return nil, err
	}
	return &member, nil
}

func (c *Client) CreateMember(ctx context.Context, in models.MemberInput) (*models.Member, error) {
	cl := authed(http.MethodPost, "/members")
	cl.body = in

	var member models.Member
	if err := c.do(ctx, cl, &member); err != nil {
		return nil, err
	}
	return &member, nil
}

func (c *Client) UpdateMember(ctx context.Context, id string, in models.MemberInput) (*models.Member, error) {
	cl := authed(http.MethodPut, "/members/"+url.PathEscape(id))
	cl.body = in

	var member models.Member
	if err := c.do(ctx, cl, &member); err != nil {
		return nil, err
	}
	return &member, nil
}

func (c *Client) ListFamilies(ctx context.Context, filter models.FamilyFilter) (*models.FamilyPage, error) {
	cl := authed(http.MethodGet, "/families")
	cl.query = values(filter.Query())

	var page models.FamilyPage
	if err := c.do(ctx, cl, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// GetFamily returns the family with its members.
func (c *Client) GetFamily(ctx context.Context, id string) (*models.Family, error) {
	var family models.Family
	if err := c.do(ctx, authed(http.MethodGet, "/families/"+url.PathEscape(id)), &family); err != nil {
		return nil, err
	}
	return &family, nil
}

func (c *Client) ListBuildings(ctx context.Context, filter models.BuildingFilter) (*models.BuildingPage, error) {
	cl := authed(http.MethodGet, "/buildings")
	cl.query = values(filter.Query())

	var page models.BuildingPage
	if err := c.do(ctx, cl, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// GetBuilding returns the building with the families living there.
func (c *Client) GetBuilding(ctx context.Context, id string) (*models.Building, error) {
	var building models.Building
	if err := c.do(ctx, authed(http.MethodGet, "/buildings/"+url.PathEscape(id)), &building); err != nil {
		return nil, err
	}
	return &building, nil
}

// CountRecipients asks the backend how many members the criteria resolve to.
// Explicit member ids are unioned with the other dimensions.
func (c *Client) CountRecipients(ctx context.Context, criteria models.FilterCriteria) (int, error) {
	cl := authed(http.MethodGet, "/members")
	cl.query = CriteriaQuery(criteria)
	cl.query.Set("limit", "1")
	cl.query.Set("memberMatch", "union")

	var page models.MemberPage
	if err := c.do(ctx, cl, &page); err != nil {
		return 0, err
	}
	return page.TotalCount, nil
}

// CriteriaQuery renders filter criteria as repeated query parameters.
func CriteriaQuery(criteria models.FilterCriteria) url.Values {
	q := url.Values{}
	for _, id := range criteria.AreaIDs {
		q.Add("areaIds", id)
	}
	for _, id := range criteria.BuildingIDs {
		q.Add("buildingIds", id)
	}
	for _, id := range criteria.GenderIDs {
		q.Add("genderIds", id)
	}
	for _, id := range criteria.ReligiousStudyIDs {
		q.Add("religiousStudyIds", id)
	}
	for _, id := range criteria.MemberIDs {
		q.Add("memberIds", id)
	}
	if criteria.AgeRange.Min != nil {
		q.Set("minAge", strconv.Itoa(*criteria.AgeRange.Min))
	}
	if criteria.AgeRange.Max != nil {
		q.Set("maxAge", strconv.Itoa(*criteria.AgeRange.Max))
	}
	return q
}

func (c *Client) CreateNotification(ctx context.Context, req models.CreateNotificationRequest) (*models.Notification, error) {
	cl := authed(http.MethodPost, "/notifications")
	cl.body = req

	var n models.Notification
	if err := c.do(ctx, cl, &n); err != nil {
		return nil, err
	}
	return &n, nil
}

func (c *Client) GetNotification(ctx context.Context, id string) (*models.NotificationDetail, error) {
	var detail models.NotificationDetail
	if err := c.do(ctx, authed(http.MethodGet, "/notifications/"+url.PathEscape(id)), &detail); err != nil {
		return nil, err
	}
	return &detail, nil
}

func (c *Client) ListNotifications(ctx context.Context, filter models.NotificationFilter) (*models.NotificationPage, error) {
	cl := authed(http.MethodGet, "/notifications")
	cl.query = values(filter.Query())

	var page models.NotificationPage
	if err := c.do(ctx, cl, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

func (c *Client) MarkNotificationRead(ctx context.Context, id string) error {
	return c.do(ctx, authed(http.MethodPost, "/notifications/"+url.PathEscape(id)+"/read"), nil)
}

func (c *Client) UnreadCount(ctx context.Context) (int, error) {
	var out struct {
		Count int `json:"count"`
	}
	if err := c.do(ctx, authed(http.MethodGet, "/notifications/unread-count"), &out); err != nil {
		return 0, err
	}
	return out.Count, nil
}

func (c *Client) DashboardStats(ctx context.Context) (*models.DashboardStats, error) {
	var stats models.DashboardStats
	if err := c.do(ctx, authed(http.MethodGet, "/dashboard/stats"), &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

func authed(method, path string) call {
	return call{method: method, path: path, authorize: true, refresh: true}
}

func values(m map[string]string) url.Values {
	q := url.Values{}
	for k, v := range m {
		q.Set(k, v)
	}
	return q
}

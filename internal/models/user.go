package models

import (
	"encoding/json"
	"fmt"
)

// User is the authenticated admin as returned by /auth/admin/login and /auth/me.
type User struct {
	RecCode  string   `json:"RecCode"`
	Name     string   `json:"name"`
	Username string   `json:"username"`
	Email    string   `json:"email,omitempty"`
	Role     UserRole `json:"role"`
}

// UnmarshalJSON tolerates numeric record codes and display-form role names.
func (u *User) UnmarshalJSON(data []byte) error {
	var raw struct {
		RecCode  json.RawMessage `json:"RecCode"`
		ID       json.RawMessage `json:"id"`
		Name     string          `json:"name"`
		Username string          `json:"username"`
		Email    string          `json:"email"`
		Role     string          `json:"role"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	code := rawCode(raw.RecCode)
	if code == "" {
		code = rawCode(raw.ID)
	}

	*u = User{
		RecCode:  code,
		Name:     raw.Name,
		Username: raw.Username,
		Email:    raw.Email,
		Role:     UserRole(raw.Role),
	}
	if role, ok := RoleFromString(raw.Role); ok {
		u.Role = role
	}
	return nil
}

// DisplayName prefers the full name and falls back to the login name.
func (u User) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	return u.Username
}

// rawCode renders a JSON string or number record code as a plain string.
func rawCode(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return fmt.Sprintf("%s", raw)
}

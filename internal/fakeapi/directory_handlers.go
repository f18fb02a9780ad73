package fakeapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"directory-console/internal/models"
)

type memberRequest struct {
	MemberName       string `json:"MemberName" binding:"required"`
	GenderID         string `json:"GenderID" binding:"required"`
	BirthYear        int    `json:"BirthYear" binding:"omitempty,min=1900"`
	MobileNumber     string `json:"MobileNumber" binding:"required,len=10,numeric"`
	EmailID          string `json:"EmailID" binding:"omitempty,email"`
	IsHeadOfFamily   bool   `json:"IsHeadOfFamily"`
	ReligiousStudyID string `json:"ReligiousStudyID"`
	NativePlaceID    string `json:"NativePlaceID"`

	FamilyID          string `json:"FamilyID" binding:"required_unless=NewFamily true"`
	NewFamily         bool   `json:"newFamily"`
	FamilyCode        string `json:"FamilyCode"`
	ResidenceLandline string `json:"ResidenceLandline"`

	BuildingID string `json:"BuildingID" binding:"required_if=NewFamily true"`
	FlatNumber string `json:"FlatNumber"`
	Floor      string `json:"Floor"`
	Wing       string `json:"Wing"`
}

func (r memberRequest) input() models.MemberInput {
	return models.MemberInput{
		MemberName:        r.MemberName,
		GenderID:          r.GenderID,
		BirthYear:         r.BirthYear,
		MobileNumber:      r.MobileNumber,
		EmailID:           r.EmailID,
		IsHeadOfFamily:    r.IsHeadOfFamily,
		ReligiousStudyID:  r.ReligiousStudyID,
		NativePlaceID:     r.NativePlaceID,
		FamilyID:          r.FamilyID,
		NewFamily:         r.NewFamily,
		FamilyCode:        r.FamilyCode,
		ResidenceLandline: r.ResidenceLandline,
		BuildingID:        r.BuildingID,
		FlatNumber:        r.FlatNumber,
		Floor:             r.Floor,
		Wing:              r.Wing,
	}
}

type resetRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type resetConfirmRequest struct {
	Password string `json:"password" binding:"required,min=6"`
}

func (s *Server) createMember(c *gin.Context) {
	var req memberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	s.store.mu.Lock()
	m, err := s.store.createMember(req.input())
	var out models.Member
	if err == nil {
		out = *m
	}
	s.store.mu.Unlock()

	if err != nil {
		failMember(c, err)
		return
	}
	respond(c, http.StatusCreated, out)
}

func (s *Server) updateMember(c *gin.Context) {
	var req memberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	s.store.mu.Lock()
	m, err := s.store.updateMember(c.Param("id"), req.input())
	var out models.Member
	if err == nil {
		out = *m
	}
	s.store.mu.Unlock()

	if err != nil {
		failMember(c, err)
		return
	}
	respond(c, http.StatusOK, out)
}

func failMember(c *gin.Context, err error) {
	switch {
	case errors.Is(err, errMemberNotFound):
		fail(c, http.StatusNotFound, "Member not found")
	case errors.Is(err, errUnknownFamily):
		fail(c, http.StatusBadRequest, "Selected family does not exist")
	case errors.Is(err, errUnknownBuilding):
		fail(c, http.StatusBadRequest, "Selected building does not exist")
	case errors.Is(err, errDuplicateMobile):
		fail(c, http.StatusConflict, "Mobile number is already registered")
	default:
		fail(c, http.StatusInternalServerError, "Error saving member")
	}
}

func (s *Server) listFamilies(c *gin.Context) {
	page, limit := pagination(c)

	s.store.mu.RLock()
	list := s.store.listFamilies(c.Query("search"))
	s.store.mu.RUnlock()

	respond(c, http.StatusOK, gin.H{
		"families":   paginate(list, page, limit),
		"totalCount": len(list),
		"page":       page,
	})
}

func (s *Server) getFamily(c *gin.Context) {
	s.store.mu.RLock()
	f, ok := s.store.findFamily(c.Param("id"))
	var out models.Family
	if ok {
		out = s.store.familyView(f, true)
	}
	s.store.mu.RUnlock()

	if !ok {
		fail(c, http.StatusNotFound, "Family not found")
		return
	}
	respond(c, http.StatusOK, out)
}

func (s *Server) listBuildings(c *gin.Context) {
	page, limit := pagination(c)

	s.store.mu.RLock()
	list := s.store.listBuildings(c.Query("search"), c.Query("areaId"))
	s.store.mu.RUnlock()

	respond(c, http.StatusOK, gin.H{
		"buildings":  paginate(list, page, limit),
		"totalCount": len(list),
		"page":       page,
	})
}

func (s *Server) getBuilding(c *gin.Context) {
	s.store.mu.RLock()
	b, ok := s.store.buildingView(c.Param("id"), true)
	s.store.mu.RUnlock()

	if !ok {
		fail(c, http.StatusNotFound, "Building not found")
		return
	}
	respond(c, http.StatusOK, b)
}

// requestPasswordReset answers the same way for known and unknown
// addresses. The token that would be mailed is kept for ResetToken.
func (s *Server) requestPasswordReset(c *gin.Context) {
	var req resetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "A valid email address is required")
		return
	}

	s.store.mu.Lock()
	token, ok := s.store.requestReset(req.Email)
	s.store.mu.Unlock()

	if ok {
		s.mu.Lock()
		s.mailedResets[req.Email] = token
		s.mu.Unlock()
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "If the address is registered, a reset link has been sent",
	})
}

func (s *Server) confirmPasswordReset(c *gin.Context) {
	var req resetConfirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Password must be at least 6 characters")
		return
	}

	s.store.mu.Lock()
	ok := s.store.resetPassword(c.Param("token"), req.Password)
	s.store.mu.Unlock()

	if !ok {
		fail(c, http.StatusBadRequest, "Invalid or expired reset token")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Password has been reset",
	})
}

package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"attendtrack/internal/apperr"
	"attendtrack/internal/auth"
	"attendtrack/internal/users"
)

type createUserRequest struct {
	Username   string `json:"username" binding:"required"`
	RollNumber string `json:"roll_number" binding:"required"`
	Password   string `json:"password" binding:"required,min=6"`
	Year       int    `json:"year" binding:"gte=0"`
	Program    string `json:"program"`
	Section    string `json:"section"`
}

type updateUserRequest struct {
	Username string `json:"username" binding:"required"`
	Year     int    `json:"year" binding:"gte=0"`
	Program  string `json:"program"`
	Section  string `json:"section"`
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (s *Server) createUser(c *gin.Context) {
	var req createUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	u, err := s.Users.CreateUser(c.Request.Context(), users.Profile{
		Username:   req.Username,
		RollNumber: req.RollNumber,
		Password:   req.Password,
		Year:       req.Year,
		Program:    req.Program,
		Section:    req.Section,
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, u)
}

func (s *Server) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	u, err := s.Users.GetUserByUsername(c.Request.Context(), req.Username)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": auth.ErrBadCredentials.Error()})
			return
		}
		s.fail(c, err)
		return
	}
	if err := s.Verifier.Verify(u.PasswordHash, req.Password); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": auth.ErrBadCredentials.Error()})
		return
	}
	tokens, err := s.Signer.Issue(u.ID, u.Username)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"user_id":       u.ID,
		"access_token":  tokens.AccessToken,
		"refresh_token": tokens.RefreshToken,
		"expires_at":    tokens.AccessExp.Unix(),
	})
}

func (s *Server) getUser(c *gin.Context) {
	u, err := s.Users.GetUserByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

func (s *Server) getUserByUsername(c *gin.Context) {
	u, err := s.Users.GetUserByUsername(c.Request.Context(), c.Param("username"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

func (s *Server) updateUser(c *gin.Context) {
	claims, ok := auth.ClaimsFrom(c)
	if !ok || claims.Subject != c.Param("id") {
		c.JSON(http.StatusForbidden, gin.H{"error": "cannot modify another user"})
		return
	}
	var req updateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	u, err := s.Users.UpdateUser(c.Request.Context(), c.Param("id"), users.Patch{
		Username: req.Username,
		Year:     req.Year,
		Program:  req.Program,
		Section:  req.Section,
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

func (s *Server) coursesForStudent(c *gin.Context) {
	list, err := s.Courses.GetCoursesForStudent(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"courses": list})
}

func (s *Server) overview(c *gin.Context) {
	sums, err := s.Ledger.Overview(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"summaries": sums})
}

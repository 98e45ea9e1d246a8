package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"attendtrack/internal/apperr"
	"attendtrack/internal/httpmiddleware"
)

const dateLayout = "2006-01-02"

// fail maps err onto a status. Internal failures are logged and replaced by
// a generic message.
func (s *Server) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, apperr.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, apperr.ErrInvalid):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		s.log.ErrorContext(c.Request.Context(), "request failed",
			"request_id", httpmiddleware.GetRequestID(c),
			"route", c.FullPath(),
			"error", err,
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

// parseDate accepts YYYY-MM-DD as midnight UTC, or a full RFC3339 time.
func parseDate(v string) (time.Time, error) {
	v = strings.TrimSpace(v)
	if t, err := time.Parse(dateLayout, v); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}, apperr.Invalid(errors.New("date must be YYYY-MM-DD or RFC3339"))
	}
	return t, nil
}

func queryFloat(c *gin.Context, key string, fallback float64) (float64, error) {
	v := c.Query(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, apperr.Invalid(errors.New(key + " must be a number"))
	}
	return f, nil
}

func queryInt(c *gin.Context, key string, fallback int) (int, error) {
	v := c.Query(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, apperr.Invalid(errors.New(key + " must be a non-negative integer"))
	}
	return n, nil
}

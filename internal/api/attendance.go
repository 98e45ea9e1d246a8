package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"attendtrack/internal/apperr"
	"attendtrack/internal/httpmiddleware"
	"attendtrack/internal/model"
	"attendtrack/internal/queue"
)

const defaultTarget = 75.0

type markRequest struct {
	Date   string `json:"date" binding:"required"`
	Status string `json:"status" binding:"required"`
}

func (s *Server) markAttendance(c *gin.Context) {
	var req markRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	date, err := parseDate(req.Date)
	if err != nil {
		s.fail(c, err)
		return
	}
	status, err := model.ParseStatus(req.Status)
	if err != nil {
		s.fail(c, apperr.Invalid(err))
		return
	}

	ctx := c.Request.Context()
	rec, err := s.Ledger.MarkAttendance(ctx, c.Param("id"), c.Param("userId"), date, status)
	if err != nil {
		s.fail(c, err)
		return
	}

	if s.Events != nil {
		msg, err := queue.NewAttendanceMarked(rec)
		if err == nil {
			err = s.Events.Publish(ctx, msg)
		}
		if err != nil {
			s.log.WarnContext(ctx, "event publish failed",
				"request_id", httpmiddleware.GetRequestID(c),
				"attendance_id", rec.ID,
				"error", err,
			)
		}
	}
	c.JSON(http.StatusOK, rec)
}

func (s *Server) attendanceForCourse(c *gin.Context) {
	recs, err := s.Ledger.GetAttendanceForCourse(c.Request.Context(), c.Param("id"), c.Param("userId"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"records": recs})
}

func (s *Server) attendanceBetween(c *gin.Context) {
	if c.Query("start") == "" || c.Query("end") == "" {
		s.fail(c, apperr.Invalid(errors.New("start and end are required")))
		return
	}
	start, err := parseDate(c.Query("start"))
	if err != nil {
		s.fail(c, err)
		return
	}
	end, err := parseDate(c.Query("end"))
	if err != nil {
		s.fail(c, err)
		return
	}
	recs, err := s.Ledger.GetAttendanceForDateRange(c.Request.Context(), c.Param("id"), start, end)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"records": recs})
}

func (s *Server) summary(c *gin.Context) {
	sum, err := s.Ledger.Summary(c.Request.Context(), c.Param("id"), c.Param("userId"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, sum)
}

func (s *Server) calculator(c *gin.Context) {
	target, err := queryFloat(c, "target", defaultTarget)
	if err != nil {
		s.fail(c, err)
		return
	}
	future, err := queryInt(c, "future", 0)
	if err != nil {
		s.fail(c, err)
		return
	}
	p, err := s.Ledger.ClassesToReachTarget(c.Request.Context(), c.Param("id"), c.Param("userId"), target, future)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (s *Server) isMarked(c *gin.Context) {
	day, err := parseDate(c.Query("date"))
	if err != nil {
		s.fail(c, err)
		return
	}
	marked, err := s.Ledger.IsMarked(c.Request.Context(), c.Param("id"), c.Param("userId"), day)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"marked": marked})
}

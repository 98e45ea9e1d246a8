package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"attendtrack/internal/apperr"
	"attendtrack/internal/courses"
	"attendtrack/internal/model"
)

type courseRequest struct {
	Code         string `json:"code" binding:"required"`
	Name         string `json:"name" binding:"required"`
	Instructor   string `json:"instructor"`
	TotalClasses int    `json:"total_classes"`
}

type scheduleRequest struct {
	Day       string `json:"day" binding:"required"`
	StartTime string `json:"start_time" binding:"required"`
	EndTime   string `json:"end_time" binding:"required"`
	Room      string `json:"room"`
}

func (s *Server) createCourse(c *gin.Context) {
	var req courseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	course, err := s.Courses.CreateCourse(c.Request.Context(),
		model.NewCourse(req.Code, req.Name, req.Instructor, req.TotalClasses))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, course)
}

func (s *Server) getCourse(c *gin.Context) {
	course, err := s.Courses.GetCourseByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, course)
}

func (s *Server) updateCourse(c *gin.Context) {
	var req courseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	course, err := s.Courses.UpdateCourse(c.Request.Context(), c.Param("id"), courses.Patch{
		Code:         req.Code,
		Name:         req.Name,
		Instructor:   req.Instructor,
		TotalClasses: req.TotalClasses,
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, course)
}

func (s *Server) deleteCourse(c *gin.Context) {
	if err := s.Courses.DeleteCourse(c.Request.Context(), c.Param("id")); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) enroll(c *gin.Context) {
	course, err := s.Courses.EnrollStudent(c.Request.Context(), c.Param("id"), c.Param("userId"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, course)
}

func (s *Server) unenroll(c *gin.Context) {
	course, err := s.Courses.UnenrollStudent(c.Request.Context(), c.Param("id"), c.Param("userId"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, course)
}

func (s *Server) addSchedule(c *gin.Context) {
	var req scheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	day, err := model.ParseWeekday(req.Day)
	if err != nil {
		s.fail(c, apperr.Invalid(err))
		return
	}
	sched, err := s.Courses.AddSchedule(c.Request.Context(), c.Param("id"), day, req.StartTime, req.EndTime, req.Room)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, sched)
}

func (s *Server) listSchedules(c *gin.Context) {
	var (
		list []model.Schedule
		err  error
	)
	if v := c.Query("day"); v != "" {
		day, perr := model.ParseWeekday(v)
		if perr != nil {
			s.fail(c, apperr.Invalid(perr))
			return
		}
		list, err = s.Courses.SchedulesForDay(c.Request.Context(), c.Param("id"), day)
	} else {
		list, err = s.Courses.ListSchedules(c.Request.Context(), c.Param("id"))
	}
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"schedules": list})
}

func (s *Server) removeSchedule(c *gin.Context) {
	if err := s.Courses.RemoveSchedule(c.Request.Context(), c.Param("id")); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

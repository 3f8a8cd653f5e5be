package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/intorma/torma/assist"
	"github.com/intorma/torma/task"
)

func (s *Server) handleExtract(c *gin.Context) {
	if s.opts.Extractor == nil {
		writeError(c, errNotConfigured)
		return
	}
	var in assist.ExtractInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}
	out, err := s.opts.Extractor.Extract(c.Request.Context(), in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// handleSummary briefs the tasks in the body, or the board's active tasks
// when the body is empty or has no "tasks".
func (s *Server) handleSummary(c *gin.Context) {
	if s.opts.Briefer == nil {
		writeError(c, errNotConfigured)
		return
	}
	var in assist.SummaryInput
	if err := c.ShouldBindJSON(&in); err != nil && !errors.Is(err, io.EOF) {
		badRequest(c, err)
		return
	}
	tasks := in.Tasks
	if tasks == nil {
		tasks = task.Active(s.opts.Store.List())
	}
	out, err := s.opts.Briefer.Summarize(c.Request.Context(), tasks)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) handleSpeech(c *gin.Context) {
	if s.opts.Speaker == nil {
		writeError(c, errNotConfigured)
		return
	}
	var in assist.SpeechInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}
	out, err := s.opts.Speaker.Speak(c.Request.Context(), in.Text)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) handleConcept(c *gin.Context) {
	if s.opts.Illustrator == nil {
		writeError(c, errNotConfigured)
		return
	}
	var in assist.ConceptInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}
	out, err := s.opts.Illustrator.Illustrate(c.Request.Context(), in.Description)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/intorma/torma/board"
	"github.com/intorma/torma/task"
)

type reorderRequest struct {
	IDs []string `json:"ids" binding:"required"`
}

type dragRequest struct {
	ID string `json:"id" binding:"required"`
	board.Drop
}

func (s *Server) handleBoard(c *gin.Context) {
	b := board.New(s.opts.Store)
	defer b.Close()
	c.JSON(http.StatusOK, b.Columns())
}

func (s *Server) handleReorder(c *gin.Context) {
	status, err := task.ParseStatus(c.Param("status"))
	if err != nil {
		writeError(c, &task.ValidationError{Field: "status", Err: err})
		return
	}
	var req reorderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := s.opts.Store.ReorderWithinStatus(status, req.IDs); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, task.WithStatus(s.opts.Store.List(), status))
}

// handleDrag replays a complete drag gesture: start on ID, end on the drop
// target.
func (s *Server) handleDrag(c *gin.Context) {
	var req dragRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	id, err := s.opts.Store.Resolve(req.ID)
	if err != nil {
		writeError(c, err)
		return
	}
	if req.OverID != "" {
		if req.OverID, err = s.opts.Store.Resolve(req.OverID); err != nil {
			writeError(c, err)
			return
		}
	}
	if req.Status != "" {
		if req.Status, err = task.ParseStatus(string(req.Status)); err != nil {
			writeError(c, &task.ValidationError{Field: "status", Err: err})
			return
		}
	}

	b := board.New(s.opts.Store)
	defer b.Close()
	if err := b.DragStart(id); err != nil {
		writeError(c, err)
		return
	}
	if err := b.DragEnd(req.Drop); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, b.Columns())
}

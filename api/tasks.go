package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/intorma/torma/task"
)

type createTaskRequest struct {
	CustomerName string     `json:"customerName"`
	Description  string     `json:"description"`
	Status       string     `json:"status"`
	Source       string     `json:"source"`
	DueDate      *task.Date `json:"dueDate"`
}

// fields applies the form defaults for an omitted status or source and
// accepts status aliases.
func (r createTaskRequest) fields() (task.Fields, error) {
	fields := task.Fields{
		CustomerName: r.CustomerName,
		Description:  r.Description,
		Status:       task.DefaultStatus,
		Source:       task.DefaultSource,
		DueDate:      r.DueDate,
	}
	if r.Status != "" {
		status, err := task.ParseStatus(r.Status)
		if err != nil {
			return task.Fields{}, &task.ValidationError{Field: "status", Err: err}
		}
		fields.Status = status
	}
	if r.Source != "" {
		source, err := task.ParseSource(r.Source)
		if err != nil {
			return task.Fields{}, &task.ValidationError{Field: "source", Err: err}
		}
		fields.Source = source
	}
	return fields, nil
}

type statusRequest struct {
	Status string `json:"status" binding:"required"`
}

func (s *Server) handleListTasks(c *gin.Context) {
	tasks := s.opts.Store.List()
	if q := c.Query("q"); q != "" {
		tasks = task.Search(tasks, q)
	}
	if status := c.Query("status"); status != "" {
		parsed, err := task.ParseStatus(status)
		if err != nil {
			writeError(c, &task.ValidationError{Field: "status", Err: err})
			return
		}
		tasks = task.WithStatus(tasks, parsed)
	}
	if tasks == nil {
		tasks = []task.Task{}
	}
	c.JSON(http.StatusOK, tasks)
}

func (s *Server) handleCreateTask(c *gin.Context) {
	var req createTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	fields, err := req.fields()
	if err != nil {
		writeError(c, err)
		return
	}
	id, err := s.opts.Store.Create(fields)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": id})
}

// resolve maps the :id parameter, which may be a unique prefix, to a task
// ID.
func (s *Server) resolve(c *gin.Context) (string, bool) {
	id, err := s.opts.Store.Resolve(c.Param("id"))
	if err != nil {
		writeError(c, err)
		return "", false
	}
	return id, true
}

func (s *Server) handleGetTask(c *gin.Context) {
	id, ok := s.resolve(c)
	if !ok {
		return
	}
	t, err := s.opts.Store.Get(id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

func (s *Server) handleUpdateTask(c *gin.Context) {
	id, ok := s.resolve(c)
	if !ok {
		return
	}
	var patch task.Patch
	if err := c.ShouldBindJSON(&patch); err != nil {
		badRequest(c, err)
		return
	}
	if err := s.opts.Store.Update(id, patch); err != nil {
		writeError(c, err)
		return
	}
	s.respondTask(c, id)
}

func (s *Server) handleUpdateStatus(c *gin.Context) {
	id, ok := s.resolve(c)
	if !ok {
		return
	}
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	status, err := task.ParseStatus(req.Status)
	if err != nil {
		writeError(c, &task.ValidationError{Field: "status", Err: err})
		return
	}
	if err := s.opts.Store.UpdateStatus(id, status); err != nil {
		writeError(c, err)
		return
	}
	s.respondTask(c, id)
}

func (s *Server) handleDeleteTask(c *gin.Context) {
	id, ok := s.resolve(c)
	if !ok {
		return
	}
	if err := s.opts.Store.Delete(id); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) respondTask(c *gin.Context, id string) {
	t, err := s.opts.Store.Get(id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

func (s *Server) handleStats(c *gin.Context) {
	c.JSON(http.StatusOK, task.Summarize(s.opts.Store.List(), s.today()))
}

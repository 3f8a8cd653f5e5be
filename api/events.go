package api

import (
	"io"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/intorma/torma/task"
)

// handleEvents streams the task list as server-sent events: one "tasks"
// event on connect and one per change. A slow client only sees the latest
// list.
func (s *Server) handleEvents(c *gin.Context) {
	updates := make(chan []task.Task, 1)
	unsubscribe := s.opts.Store.Subscribe(func(tasks []task.Task) {
		// notifications are serialized, so after draining there is room
		select {
		case <-updates:
		default:
		}
		updates <- tasks
	})
	defer unsubscribe()

	heartbeat := time.NewTicker(s.opts.Heartbeat)
	defer heartbeat.Stop()

	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	ctx := c.Request.Context()
	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case tasks := <-updates:
			if tasks == nil {
				tasks = []task.Task{}
			}
			c.SSEvent("tasks", tasks)
			return true
		case <-heartbeat.C:
			_, err := io.WriteString(w, ": ping\n\n")
			return err == nil
		}
	})
}

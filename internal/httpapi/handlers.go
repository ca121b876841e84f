package httpapi

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strconv"
	"syscall"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/jsnshll/myshell/internal/jobtable"
	"github.com/jsnshll/myshell/internal/logsink"
)

type handlers struct {
	log        *zap.Logger
	table      *jobtable.Table
	snap       *jobtable.Snapshotter
	sink       logsink.Sink
	adminToken string
}

type loginRequest struct {
	Token string `json:"token" binding:"required"`
}

// POST /api/login exchanges the shared admin token for a session
// cookie, so a browser-based caller doesn't have to resend the
// Authorization header on every mutating request.
func (h *handlers) login(c *gin.Context) {
	if h.adminToken == "" {
		c.JSON(http.StatusOK, gin.H{"message": "auth disabled"})
		return
	}

	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}
	if subtle.ConstantTimeCompare([]byte(req.Token), []byte(h.adminToken)) != 1 {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "invalid token"})
		return
	}

	session := sessions.Default(c)
	session.Set("authenticated", true)
	if err := session.Save(); err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "authenticated"})
}

type jobView struct {
	ID         int64  `json:"id"`
	Pgid       int    `json:"pgid"`
	Command    string `json:"command"`
	Status     string `json:"status"`
	Background bool   `json:"background"`
	Pids       []int  `json:"pids"`
}

func toView(j jobtable.Job) jobView {
	return jobView{
		ID:         j.ID,
		Pgid:       j.Pgid,
		Command:    j.Command,
		Status:     j.Status.String(),
		Background: j.Background,
		Pids:       j.Pids,
	}
}

// GET /api/jobs
func (h *handlers) listJobs(c *gin.Context) {
	jobs := h.snap.Get()
	views := make([]jobView, 0, len(jobs))
	for _, j := range jobs {
		views = append(views, toView(j))
	}
	c.Header("X-Total-Count", strconv.Itoa(len(views)))
	c.JSON(http.StatusOK, views)
}

// GET /api/jobs/:id
func (h *handlers) getJob(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid id"})
		return
	}

	j, err := h.table.FindByID(id)
	if err != nil {
		if errors.Is(err, jobtable.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"message": "job not found"})
			return
		}
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, toView(j))
}

type signalRequest struct {
	Signal string `json:"signal" binding:"required"`
}

var allowedSignals = map[string]syscall.Signal{
	"TERM": syscall.SIGTERM,
	"KILL": syscall.SIGKILL,
	"CONT": syscall.SIGCONT,
	"STOP": syscall.SIGSTOP,
	"INT":  syscall.SIGINT,
}

// POST /api/jobs/:id/signal
func (h *handlers) signalJob(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid id"})
		return
	}

	var req signalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}

	sig, ok := allowedSignals[req.Signal]
	if !ok {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"message": "unsupported signal: " + req.Signal})
		return
	}

	j, err := h.table.FindByID(id)
	if err != nil {
		if errors.Is(err, jobtable.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"message": "job not found"})
			return
		}
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": err.Error()})
		return
	}

	if err := syscall.Kill(-j.Pgid, sig); err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": err.Error()})
		return
	}

	if sig == syscall.SIGCONT {
		_ = h.table.SetStatus(j.ID, jobtable.Running)
	} else if sig == syscall.SIGSTOP {
		_ = h.table.SetStatus(j.ID, jobtable.Stopped)
	}
	h.snap.Invalidate()

	c.JSON(http.StatusOK, gin.H{"message": "signal delivered"})
}

// GET /api/log/recent?n=100
func (h *handlers) recentLog(c *gin.Context) {
	n := 100
	if v := c.Query("n"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			n = parsed
		}
	}
	if h.sink == nil {
		c.JSON(http.StatusOK, []string{})
		return
	}
	c.JSON(http.StatusOK, h.sink.Recent(n))
}

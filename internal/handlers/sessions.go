package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"smartpot/internal/repository"
	"smartpot/internal/service"
)

// Common response/status constants to avoid magic strings and typos.
const (
	statusStarted  = "started"
	statusFinished = "finished"

	errStartSession    = "failed to start session"
	errStopSession     = "failed to finish session"
	errListSessions    = "failed to load sessions"
	errGetSession      = "failed to load session"
	errAnalyze         = "failed to analyze sessions"
	errInvalidBodyPref = "invalid body: "
)

// Centralized error logging and response.
func (h *Handler) logAndJSONError(c *gin.Context, httpCode int, userMsg, logKey string, err error, kv ...interface{}) {
	if h.log != nil && err != nil {
		fields := append([]interface{}{"err", err}, kv...)
		h.log.Errorw(logKey, fields...)
	}
	c.JSON(httpCode, gin.H{"error": userMsg})
}

// Request DTO shared by start and stop.
type sessionTempRequest struct {
	CurrentTemp float64 `json:"current_temp"`
}

// SessionTempRequest is an exported model for Swagger docs of the
// start/stop payload.
type SessionTempRequest struct {
	// Current water temperature in Celsius
	CurrentTemp float64 `json:"current_temp" example:"21.5"`
}

// @Summary      Start a boiling session
// @Tags         sessions
// @Accept       json
// @Produce      json
// @Param        body  body   SessionTempRequest  true  "Current temperature"
// @Success      200   {object}  map[string]interface{}  "status, session"
// @Failure      400   {object}  map[string]string
// @Failure      409   {object}  map[string]string
// @Failure      500   {object}  map[string]string
// @Router       /api/v1/sessions/start [post]
func (h *Handler) startSession(c *gin.Context) {
	var req sessionTempRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBodyPref + err.Error()})
		return
	}

	session, err := h.services.Sessions.Start(c.Request.Context(), req.CurrentTemp)
	if err != nil {
		if errors.Is(err, service.ErrSessionActive) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		h.logAndJSONError(c, http.StatusInternalServerError, errStartSession, "session_start_failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": statusStarted, "session": session})
}

// @Summary      Finish the active boiling session
// @Description  Closes the session with the end temperature and the accumulated history.
// @Tags         sessions
// @Accept       json
// @Produce      json
// @Param        body  body   SessionTempRequest  true  "Current temperature"
// @Success      200   {object}  map[string]interface{}  "status, session"
// @Failure      400   {object}  map[string]string
// @Failure      409   {object}  map[string]string
// @Failure      500   {object}  map[string]string
// @Router       /api/v1/sessions/stop [post]
func (h *Handler) stopSession(c *gin.Context) {
	var req sessionTempRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBodyPref + err.Error()})
		return
	}

	session, err := h.services.Sessions.Stop(c.Request.Context(), req.CurrentTemp)
	if err != nil {
		if errors.Is(err, service.ErrNoActiveSession) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		h.logAndJSONError(c, http.StatusInternalServerError, errStopSession, "session_stop_failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": statusFinished, "session": session})
}

// @Summary      List sessions
// @Description  All recorded sessions, newest first.
// @Tags         sessions
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "count, sessions"
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/sessions [get]
func (h *Handler) listSessions(c *gin.Context) {
	sessions, err := h.services.Sessions.List(c.Request.Context())
	if err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, errListSessions, "sessions_list_failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(sessions), "sessions": sessions})
}

// @Summary      Get one session
// @Tags         sessions
// @Produce      json
// @Param        id   path      string  true  "Session id"
// @Success      200  {object}  map[string]interface{}
// @Failure      404  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/sessions/{id} [get]
func (h *Handler) getSession(c *gin.Context) {
	session, err := h.services.Sessions.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
			return
		}
		h.logAndJSONError(c, http.StatusInternalServerError, errGetSession, "session_get_failed", err, "id", c.Param("id"))
		return
	}
	c.JSON(http.StatusOK, session)
}

// @Summary      Scale-buildup analysis
// @Description  Compares boil times across sessions with similar start temperatures. Pass ids=a,b,c to restrict the selection; default is all sessions.
// @Tags         sessions
// @Produce      json
// @Param        ids  query   string  false  "Comma-separated session ids"
// @Success      200  {object}  map[string]interface{}
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/sessions/analysis [get]
func (h *Handler) analyzeSessions(c *gin.Context) {
	var ids []string
	if qs := strings.TrimSpace(c.Query("ids")); qs != "" {
		for _, id := range strings.Split(qs, ",") {
			if id = strings.TrimSpace(id); id != "" {
				ids = append(ids, id)
			}
		}
	}

	result, err := h.services.Analysis.Analyze(c.Request.Context(), ids)
	if err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, errAnalyze, "sessions_analyze_failed", err)
		return
	}
	c.JSON(http.StatusOK, result)
}

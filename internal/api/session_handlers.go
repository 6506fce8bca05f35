package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/jitsdiary/jitsdiary/internal/access"
)

// ListSessions returns one page of the caller's sessions.
func (h *Handlers) ListSessions(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	result, errList := access.ListSessions(c.Request.Context(), identityFrom(c), page)
	if errList != nil {
		respondError(c, errList)
		return
	}
	c.JSON(http.StatusOK, result)
}

// CreateSession records a new session.
func (h *Handlers) CreateSession(c *gin.Context) {
	var input map[string]any
	if errBind := c.ShouldBindJSON(&input); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	record, errCreate := access.CreateSession(c.Request.Context(), identityFrom(c), input)
	if errCreate != nil {
		respondError(c, errCreate)
		return
	}
	c.JSON(http.StatusCreated, record)
}

// GetSession returns a session with its rounds and technique links.
func (h *Handlers) GetSession(c *gin.Context) {
	detail, errGet := access.GetSession(c.Request.Context(), identityFrom(c), c.Param("id"))
	if errGet != nil {
		respondError(c, errGet)
		return
	}
	c.JSON(http.StatusOK, detail)
}

// UpdateSession patches a session.
func (h *Handlers) UpdateSession(c *gin.Context) {
	var input map[string]any
	if errBind := c.ShouldBindJSON(&input); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	record, errUpdate := access.UpdateSession(c.Request.Context(), identityFrom(c), c.Param("id"), input)
	if errUpdate != nil {
		respondError(c, errUpdate)
		return
	}
	c.JSON(http.StatusOK, record)
}

// ListRounds returns the sparring rounds of a session.
func (h *Handlers) ListRounds(c *gin.Context) {
	rounds, errList := access.ListRounds(c.Request.Context(), identityFrom(c), c.Param("id"))
	if errList != nil {
		respondError(c, errList)
		return
	}
	c.JSON(http.StatusOK, rounds)
}

// CreateRound logs a sparring round on a session.
func (h *Handlers) CreateRound(c *gin.Context) {
	var input map[string]any
	if errBind := c.ShouldBindJSON(&input); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	record, errCreate := access.CreateRound(c.Request.Context(), identityFrom(c), c.Param("id"), input)
	if errCreate != nil {
		respondError(c, errCreate)
		return
	}
	c.JSON(http.StatusCreated, record)
}

// ListSessionTechniques returns a session's technique links.
func (h *Handlers) ListSessionTechniques(c *gin.Context) {
	links, errList := access.ListSessionTechniques(c.Request.Context(), identityFrom(c), c.Param("id"))
	if errList != nil {
		respondError(c, errList)
		return
	}
	c.JSON(http.StatusOK, links)
}

// logTechniquesRequest is the technique-link body.
type logTechniquesRequest struct {
	TechniqueIDs []string `json:"technique_ids"`
}

// LogTechniques links techniques to a session, skipping duplicates,
// and returns only the new links.
func (h *Handlers) LogTechniques(c *gin.Context) {
	var body logTechniquesRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	created, errLog := access.LogTechniques(c.Request.Context(), identityFrom(c), c.Param("id"), body.TechniqueIDs)
	if errLog != nil {
		respondError(c, errLog)
		return
	}
	c.JSON(http.StatusCreated, created)
}

// UnlinkTechnique removes a technique link from a session.
func (h *Handlers) UnlinkTechnique(c *gin.Context) {
	errUnlink := access.UnlinkTechnique(c.Request.Context(), identityFrom(c), c.Param("id"), c.Param("linkId"))
	if errUnlink != nil {
		respondError(c, errUnlink)
		return
	}
	c.Status(http.StatusNoContent)
}

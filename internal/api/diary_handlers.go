package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jitsdiary/jitsdiary/internal/access"
)

// GetProfile returns the caller's profile, or null when none exists.
func (h *Handlers) GetProfile(c *gin.Context) {
	profile, errGet := access.GetProfile(c.Request.Context(), identityFrom(c))
	if errGet != nil {
		respondError(c, errGet)
		return
	}
	c.JSON(http.StatusOK, profile)
}

// SaveProfile upserts the caller's profile.
func (h *Handlers) SaveProfile(c *gin.Context) {
	var input map[string]any
	if errBind := c.ShouldBindJSON(&input); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	profile, errSave := access.SaveProfile(c.Request.Context(), identityFrom(c), input)
	if errSave != nil {
		respondError(c, errSave)
		return
	}
	c.JSON(http.StatusOK, profile)
}

// ListProgressions returns the caller's belt promotion history.
func (h *Handlers) ListProgressions(c *gin.Context) {
	list, errList := access.ListProgressions(c.Request.Context(), identityFrom(c))
	if errList != nil {
		respondError(c, errList)
		return
	}
	c.JSON(http.StatusOK, list)
}

// CreateProgression records a belt promotion.
func (h *Handlers) CreateProgression(c *gin.Context) {
	var input map[string]any
	if errBind := c.ShouldBindJSON(&input); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	record, errCreate := access.CreateProgression(c.Request.Context(), identityFrom(c), input)
	if errCreate != nil {
		respondError(c, errCreate)
		return
	}
	c.JSON(http.StatusCreated, record)
}

// DeleteProgression removes a belt promotion.
func (h *Handlers) DeleteProgression(c *gin.Context) {
	errDelete := access.DeleteProgression(c.Request.Context(), identityFrom(c), c.Param("id"))
	if errDelete != nil {
		respondError(c, errDelete)
		return
	}
	c.Status(http.StatusNoContent)
}

// ListGyms returns all gyms.
func (h *Handlers) ListGyms(c *gin.Context) {
	gyms, errList := access.ListGyms(c.Request.Context(), identityFrom(c))
	if errList != nil {
		respondError(c, errList)
		return
	}
	c.JSON(http.StatusOK, gyms)
}

// ListTechniques returns the public technique library.
func (h *Handlers) ListTechniques(c *gin.Context) {
	techniques, errList := access.ListTechniques(c.Request.Context(), h.store)
	if errList != nil {
		respondError(c, errList)
		return
	}
	c.JSON(http.StatusOK, techniques)
}

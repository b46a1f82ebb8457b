package api

import (
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"portlink-backend/internal/store"
)

// Handler holds shared dependencies for API handlers.
type Handler struct {
	store store.Store
}

// NewHandler creates a new API handler.
func NewHandler(s store.Store) *Handler {
	return &Handler{store: s}
}

// abortWithError maps a store error to an HTTP response. Domain errors carry
// their kind; anything else is logged and reported generically.
func abortWithError(c *gin.Context, err error) {
	kind := store.KindOf(err)
	status := http.StatusConflict
	switch {
	case kind == "":
		log.Printf("%s %s failed: %v", c.Request.Method, c.Request.URL.Path, err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	case store.IsNotFound(err):
		status = http.StatusNotFound
	case kind == store.KindInvalidInput:
		status = http.StatusBadRequest
	}
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error(), "kind": kind})
}

// idParam parses a positive integer path parameter.
func idParam(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid " + name})
		return 0, false
	}
	return id, true
}

// intQuery parses an optional integer query parameter.
func intQuery(c *gin.Context, name string) (int64, bool, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return 0, false, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false, err
	}
	return v, true, nil
}

// idList parses "1,2,3".
func idList(raw string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

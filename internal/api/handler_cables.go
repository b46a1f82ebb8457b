package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"portlink-backend/internal/store"
)

// ListCables handles GET /api/projects/:pid/cables.
func (h *Handler) ListCables(c *gin.Context) {
	projectID, ok := idParam(c, "pid")
	if !ok {
		return
	}

	var q store.CableQuery
	page, _, err := intQuery(c, "page")
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid page"})
		return
	}
	size, _, err := intQuery(c, "page_size")
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid page_size"})
		return
	}
	typeID, hasType, err := intQuery(c, "port_type_id")
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid port_type_id"})
		return
	}
	q.Page, q.PageSize = int(page), int(size)
	if hasType {
		q.PortTypeID = &typeID
	}

	result, err := h.store.ListCables(c.Request.Context(), projectID, q)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// FetchCables handles GET /api/projects/:pid/cables/selection?ids=1,2.
func (h *Handler) FetchCables(c *gin.Context) {
	projectID, ok := idParam(c, "pid")
	if !ok {
		return
	}
	ids, err := idList(c.Query("ids"))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid ids"})
		return
	}

	rows, err := h.store.FetchCables(c.Request.Context(), projectID, ids)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

type markPrintedRequest struct {
	IDs []int64 `json:"ids" binding:"required"`
}

// MarkPrinted handles POST /api/projects/:pid/cables/printed.
func (h *Handler) MarkPrinted(c *gin.Context) {
	projectID, ok := idParam(c, "pid")
	if !ok {
		return
	}
	var req markPrintedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	n, err := h.store.MarkPrinted(c.Request.Context(), projectID, req.IDs)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": n})
}

package catalog

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	Client *Client
}

func NewHandler(client *Client) *Handler {
	return &Handler{Client: client}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/catalog/search", h.search)
}

// search always answers 200; an unreachable upstream is the same as no
// matches from the caller's point of view.
func (h *Handler) search(c *gin.Context) {
	query := strings.TrimSpace(c.Query("q"))
	results := h.Client.Search(c.Request.Context(), query)

	c.JSON(http.StatusOK, gin.H{
		"query":   query,
		"total":   len(results),
		"results": results,
	})
}

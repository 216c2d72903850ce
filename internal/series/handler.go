package series

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"mangashelf/internal/auth"
	"mangashelf/internal/invalidate"
	"mangashelf/pkg/models"
)

type Handler struct {
	Repo *Repo
	Hub  *invalidate.Hub
}

func NewHandler(repo *Repo, hub *invalidate.Hub) *Handler {
	return &Handler{Repo: repo, Hub: hub}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/series", h.create)
	rg.GET("/series", h.list)
	rg.GET("/series/stats", h.stats)
	rg.GET("/series/:id", h.get)
	rg.GET("/series/:id/stats", h.seriesStats)
	rg.PUT("/series/:id", h.update)
	rg.DELETE("/series/:id", h.remove)
}

type createReq struct {
	Title        string   `json:"title"`
	Author       string   `json:"author"`
	Editorial    string   `json:"editorial"`
	Status       string   `json:"status"`
	Publishing   bool     `json:"publishing"`
	TotalVolumes *int     `json:"total_volumes"`
	CoverURL     string   `json:"cover_url"`
	Description  string   `json:"description"`
	RetailPrice  *float64 `json:"retail_price"`
	MalID        *int64   `json:"mal_id"`

	// CreateVolumes asks for placeholder volumes 1..total_volumes to be
	// created together with the series (the usual path when the total
	// is known from the catalog).
	CreateVolumes bool `json:"create_volumes"`
}

func (h *Handler) create(c *gin.Context) {
	claims := auth.MustGetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req createReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	s, errMsg := seriesFromInput(claims.UserID, &req)
	if errMsg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": errMsg})
		return
	}
	if req.CreateVolumes && (req.TotalVolumes == nil || *req.TotalVolumes < 1) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "create_volumes requires total_volumes >= 1"})
		return
	}

	var err error
	if req.CreateVolumes {
		err = h.Repo.CreateWithVolumes(c.Request.Context(), s, *req.TotalVolumes)
	} else {
		err = h.Repo.Create(c.Request.Context(), s)
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create failed"})
		return
	}

	saved, err := h.Repo.GetByID(c.Request.Context(), s.ID, claims.UserID)
	if err != nil || saved == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "fetch saved failed"})
		return
	}

	h.broadcast(claims.UserID, invalidate.ScopeUserStats, invalidate.ScopeSeriesList)
	c.JSON(http.StatusCreated, saved)
}

func (h *Handler) list(c *gin.Context) {
	claims := auth.MustGetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	status := strings.TrimSpace(c.Query("status"))
	if status != "" {
		status = models.NormalizeStatus(status)
		if status == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status filter"})
			return
		}
	}

	items, err := h.Repo.ListByUser(c.Request.Context(), claims.UserID, status)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"total": len(items),
		"items": items,
	})
}

func (h *Handler) stats(c *gin.Context) {
	claims := auth.MustGetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	all, err := h.Repo.ListByUser(c.Request.Context(), claims.UserID, "")
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "stats failed"})
		return
	}

	c.JSON(http.StatusOK, ComputeStats(all))
}

func (h *Handler) seriesStats(c *gin.Context) {
	claims := auth.MustGetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	s, err := h.Repo.GetByID(c.Request.Context(), c.Param("id"), claims.UserID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "stats failed"})
		return
	}
	if s == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "series not found"})
		return
	}
	c.JSON(http.StatusOK, ComputeSeriesStats(s))
}

func (h *Handler) get(c *gin.Context) {
	claims := auth.MustGetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	s, err := h.Repo.GetByID(c.Request.Context(), c.Param("id"), claims.UserID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "get failed"})
		return
	}
	if s == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "series not found"})
		return
	}
	c.JSON(http.StatusOK, s)
}

type updateReq struct {
	Title        *string  `json:"title"`
	Author       *string  `json:"author"`
	Editorial    *string  `json:"editorial"`
	Status       *string  `json:"status"`
	Publishing   *bool    `json:"publishing"`
	TotalVolumes *int     `json:"total_volumes"`
	CoverURL     *string  `json:"cover_url"`
	Description  *string  `json:"description"`
	RetailPrice  *float64 `json:"retail_price"`
	MalID        *int64   `json:"mal_id"`
}

func (h *Handler) update(c *gin.Context) {
	claims := auth.MustGetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req updateReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	p, errMsg := patchFromInput(&req)
	if errMsg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": errMsg})
		return
	}

	id := c.Param("id")
	updated, err := h.Repo.Update(c.Request.Context(), id, claims.UserID, p)
	if err == ErrNotFound {
		c.JSON(http.StatusNotFound, gin.H{"error": "series not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}

	h.broadcast(claims.UserID,
		invalidate.ScopeUserStats, invalidate.ScopeSeriesList, invalidate.ScopeSeries(id))
	c.JSON(http.StatusOK, updated)
}

func (h *Handler) remove(c *gin.Context) {
	claims := auth.MustGetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	id := c.Param("id")
	ok, err := h.Repo.Delete(c.Request.Context(), id, claims.UserID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete failed"})
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "series not found"})
		return
	}

	h.broadcast(claims.UserID,
		invalidate.ScopeUserStats, invalidate.ScopeSeriesList, invalidate.ScopeSeries(id))
	c.JSON(http.StatusOK, gin.H{"message": "deleted"})
}

func (h *Handler) broadcast(userID string, scopes ...string) {
	if h.Hub == nil {
		return
	}
	ev := invalidate.NewEvent(userID, scopes...)
	go h.Hub.Broadcast(ev)
}

// seriesFromInput validates the creation payload and builds the record.
// Returns a message describing the first violation, or "".
func seriesFromInput(userID string, req *createReq) (*models.Series, string) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, "title is required"
	}
	if len(title) > 255 {
		return nil, "title too long"
	}
	if len(req.Author) > 255 {
		return nil, "author too long"
	}
	if len(req.Description) > 2000 {
		return nil, "description too long"
	}

	status := models.StatusReading
	if strings.TrimSpace(req.Status) != "" {
		status = models.NormalizeStatus(req.Status)
		if status == "" {
			return nil, "status must be one of: READING, COMPLETED, ON_HOLD, DROPPED, PLAN_TO_READ"
		}
	}

	editorial := ""
	if strings.TrimSpace(req.Editorial) != "" {
		editorial = models.NormalizeEditorial(req.Editorial)
		if editorial == "" {
			return nil, "unknown editorial"
		}
	}

	if req.TotalVolumes != nil && *req.TotalVolumes < 0 {
		return nil, "total_volumes must be >= 0"
	}
	if req.CoverURL != "" && !validURL(req.CoverURL) {
		return nil, "cover_url must be a valid URL"
	}

	var retail decimal.NullDecimal
	if req.RetailPrice != nil {
		if *req.RetailPrice < 0 {
			return nil, "retail_price must be >= 0"
		}
		retail = decimal.NullDecimal{Decimal: decimal.NewFromFloat(*req.RetailPrice), Valid: true}
	}

	return &models.Series{
		UserID:       userID,
		Title:        title,
		Author:       strings.TrimSpace(req.Author),
		Editorial:    editorial,
		Status:       status,
		Publishing:   req.Publishing,
		TotalVolumes: req.TotalVolumes,
		CoverURL:     strings.TrimSpace(req.CoverURL),
		Description:  strings.TrimSpace(req.Description),
		RetailPrice:  retail,
		MalID:        req.MalID,
	}, ""
}

func patchFromInput(req *updateReq) (Patch, string) {
	var p Patch

	if req.Title != nil {
		t := strings.TrimSpace(*req.Title)
		if t == "" {
			return p, "title is required"
		}
		if len(t) > 255 {
			return p, "title too long"
		}
		p.Title = &t
	}
	if req.Author != nil {
		if len(*req.Author) > 255 {
			return p, "author too long"
		}
		a := strings.TrimSpace(*req.Author)
		p.Author = &a
	}
	if req.Editorial != nil {
		e := ""
		if strings.TrimSpace(*req.Editorial) != "" {
			e = models.NormalizeEditorial(*req.Editorial)
			if e == "" {
				return p, "unknown editorial"
			}
		}
		p.Editorial = &e
	}
	if req.Status != nil {
		st := models.NormalizeStatus(*req.Status)
		if st == "" {
			return p, "status must be one of: READING, COMPLETED, ON_HOLD, DROPPED, PLAN_TO_READ"
		}
		p.Status = &st
	}
	p.Publishing = req.Publishing
	if req.TotalVolumes != nil {
		if *req.TotalVolumes < 0 {
			return p, "total_volumes must be >= 0"
		}
		p.TotalVolumes = req.TotalVolumes
	}
	if req.CoverURL != nil {
		if *req.CoverURL != "" && !validURL(*req.CoverURL) {
			return p, "cover_url must be a valid URL"
		}
		u := strings.TrimSpace(*req.CoverURL)
		p.CoverURL = &u
	}
	if req.Description != nil {
		if len(*req.Description) > 2000 {
			return p, "description too long"
		}
		d := strings.TrimSpace(*req.Description)
		p.Description = &d
	}
	if req.RetailPrice != nil {
		if *req.RetailPrice < 0 {
			return p, "retail_price must be >= 0"
		}
		p.RetailPrice = &decimal.NullDecimal{
			Decimal: decimal.NewFromFloat(*req.RetailPrice),
			Valid:   true,
		}
	}
	p.MalID = req.MalID

	return p, ""
}

func validURL(s string) bool {
	u, err := url.Parse(strings.TrimSpace(s))
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

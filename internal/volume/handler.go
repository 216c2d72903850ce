package volume

import (
	"net/http"
	"net/url"
	"strings"
	"time"

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
	rg.POST("/volumes", h.create)
	rg.PUT("/volumes/:id", h.update)
	rg.DELETE("/volumes/:id", h.remove)
	rg.POST("/volumes/:id/toggle-owned", h.toggleOwned)
	rg.POST("/volumes/:id/toggle-read", h.toggleRead)

	rg.POST("/series/:id/volumes/mark-owned", h.markOwned)
	rg.POST("/series/:id/volumes/mark-read", h.markRead)
	rg.POST("/series/:id/volumes/own-up-to", h.ownUpTo)
	rg.POST("/series/:id/volumes/read-all-owned", h.readAllOwned)
}

type createReq struct {
	SeriesID     string   `json:"series_id"`
	VolumeNumber int      `json:"volume_number"`
	Title        string   `json:"title"`
	ISBN         string   `json:"isbn"`
	Owned        bool     `json:"owned"`
	Read         bool     `json:"read"`
	PricePaid    *float64 `json:"price_paid"`
	Condition    string   `json:"condition"`
	Store        string   `json:"store"`
	Notes        string   `json:"notes"`
	CoverURL     string   `json:"cover_url"`
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

	v, errMsg := volumeFromInput(&req)
	if errMsg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": errMsg})
		return
	}

	owned, err := h.Repo.SeriesOwned(c.Request.Context(), v.SeriesID, claims.UserID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create failed"})
		return
	}
	if !owned {
		c.JSON(http.StatusNotFound, gin.H{"error": "series not found"})
		return
	}

	if err := h.Repo.Create(c.Request.Context(), v); err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint") {
			c.JSON(http.StatusConflict, gin.H{"error": "volume number already exists"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create failed"})
		return
	}

	h.Repo.TouchSeries(c.Request.Context(), v.SeriesID)
	saved, err := h.Repo.GetByID(c.Request.Context(), v.ID, claims.UserID)
	if err != nil || saved == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "fetch saved failed"})
		return
	}

	h.broadcast(claims.UserID, v.SeriesID)
	c.JSON(http.StatusCreated, saved)
}

type updateReq struct {
	Title     *string  `json:"title"`
	ISBN      *string  `json:"isbn"`
	Owned     *bool    `json:"owned"`
	Read      *bool    `json:"read"`
	PricePaid *float64 `json:"price_paid"`
	Condition *string  `json:"condition"`
	Store     *string  `json:"store"`
	Notes     *string  `json:"notes"`
	CoverURL  *string  `json:"cover_url"`
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

	updated, err := h.Repo.Update(c.Request.Context(), c.Param("id"), claims.UserID, p)
	if err == ErrNotFound {
		c.JSON(http.StatusNotFound, gin.H{"error": "volume not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}

	h.Repo.TouchSeries(c.Request.Context(), updated.SeriesID)
	h.broadcast(claims.UserID, updated.SeriesID)
	c.JSON(http.StatusOK, updated)
}

func (h *Handler) remove(c *gin.Context) {
	claims := auth.MustGetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	// fetch first so the invalidation event can name the series
	v, err := h.Repo.GetByID(c.Request.Context(), c.Param("id"), claims.UserID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete failed"})
		return
	}
	if v == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "volume not found"})
		return
	}

	ok, err := h.Repo.Delete(c.Request.Context(), v.ID, claims.UserID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete failed"})
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "volume not found"})
		return
	}

	h.Repo.TouchSeries(c.Request.Context(), v.SeriesID)
	h.broadcast(claims.UserID, v.SeriesID)
	c.JSON(http.StatusOK, gin.H{"message": "deleted"})
}

func (h *Handler) toggleOwned(c *gin.Context) {
	h.toggle(c, func(v *models.Volume, now time.Time) {
		v.SetOwned(!v.Owned, now)
	})
}

func (h *Handler) toggleRead(c *gin.Context) {
	h.toggle(c, func(v *models.Volume, now time.Time) {
		v.SetRead(!v.Read, now)
	})
}

func (h *Handler) toggle(c *gin.Context, apply func(*models.Volume, time.Time)) {
	claims := auth.MustGetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	v, err := h.Repo.GetByID(c.Request.Context(), c.Param("id"), claims.UserID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "toggle failed"})
		return
	}
	if v == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "volume not found"})
		return
	}

	apply(v, time.Now().UTC())

	if err := h.Repo.SaveFlags(c.Request.Context(), v, claims.UserID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "toggle failed"})
		return
	}

	h.Repo.TouchSeries(c.Request.Context(), v.SeriesID)
	h.broadcast(claims.UserID, v.SeriesID)
	c.JSON(http.StatusOK, v)
}

type markOwnedReq struct {
	Numbers []int `json:"numbers"`
	Owned   *bool `json:"owned"`
}

func (h *Handler) markOwned(c *gin.Context) {
	claims := auth.MustGetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req markOwnedReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.Owned == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "owned required"})
		return
	}
	if msg := checkNumbers(req.Numbers); msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}

	seriesID := c.Param("id")
	if !h.guardSeries(c, seriesID, claims.UserID) {
		return
	}

	if err := h.Repo.MarkOwned(c.Request.Context(), seriesID, req.Numbers, *req.Owned, time.Now().UTC()); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "mark owned failed"})
		return
	}

	h.Repo.TouchSeries(c.Request.Context(), seriesID)
	h.broadcast(claims.UserID, seriesID)
	c.JSON(http.StatusOK, gin.H{"status": "updated"})
}

type markReadReq struct {
	Numbers []int `json:"numbers"`
	Read    *bool `json:"read"`
}

func (h *Handler) markRead(c *gin.Context) {
	claims := auth.MustGetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req markReadReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.Read == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "read required"})
		return
	}
	if msg := checkNumbers(req.Numbers); msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}

	seriesID := c.Param("id")
	if !h.guardSeries(c, seriesID, claims.UserID) {
		return
	}

	if err := h.Repo.MarkRead(c.Request.Context(), seriesID, req.Numbers, *req.Read, time.Now().UTC()); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "mark read failed"})
		return
	}

	h.Repo.TouchSeries(c.Request.Context(), seriesID)
	h.broadcast(claims.UserID, seriesID)
	c.JSON(http.StatusOK, gin.H{"status": "updated"})
}

type ownUpToReq struct {
	UpTo int `json:"up_to"`
}

func (h *Handler) ownUpTo(c *gin.Context) {
	claims := auth.MustGetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req ownUpToReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.UpTo < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "up_to must be >= 1"})
		return
	}

	seriesID := c.Param("id")
	if !h.guardSeries(c, seriesID, claims.UserID) {
		return
	}

	if err := h.Repo.MarkOwnedUpTo(c.Request.Context(), seriesID, req.UpTo, time.Now().UTC()); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "mark owned failed"})
		return
	}

	h.Repo.TouchSeries(c.Request.Context(), seriesID)
	h.broadcast(claims.UserID, seriesID)
	c.JSON(http.StatusOK, gin.H{"status": "updated"})
}

func (h *Handler) readAllOwned(c *gin.Context) {
	claims := auth.MustGetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	seriesID := c.Param("id")
	if !h.guardSeries(c, seriesID, claims.UserID) {
		return
	}

	if err := h.Repo.MarkAllOwnedRead(c.Request.Context(), seriesID, time.Now().UTC()); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "mark read failed"})
		return
	}

	h.Repo.TouchSeries(c.Request.Context(), seriesID)
	h.broadcast(claims.UserID, seriesID)
	c.JSON(http.StatusOK, gin.H{"status": "updated"})
}

// guardSeries writes the error response itself when the series is not
// owned by the caller.
func (h *Handler) guardSeries(c *gin.Context, seriesID, userID string) bool {
	owned, err := h.Repo.SeriesOwned(c.Request.Context(), seriesID, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "lookup failed"})
		return false
	}
	if !owned {
		c.JSON(http.StatusNotFound, gin.H{"error": "series not found"})
		return false
	}
	return true
}

func (h *Handler) broadcast(userID, seriesID string) {
	if h.Hub == nil {
		return
	}
	ev := invalidate.NewEvent(userID,
		invalidate.ScopeUserStats, invalidate.ScopeSeries(seriesID))
	go h.Hub.Broadcast(ev)
}

func volumeFromInput(req *createReq) (*models.Volume, string) {
	if strings.TrimSpace(req.SeriesID) == "" {
		return nil, "series_id required"
	}
	if req.VolumeNumber < 1 {
		return nil, "volume_number must be >= 1"
	}
	if len(req.Title) > 255 {
		return nil, "title too long"
	}
	if len(req.Notes) > 1000 {
		return nil, "notes too long"
	}

	condition := models.ConditionNew
	if strings.TrimSpace(req.Condition) != "" {
		condition = models.NormalizeCondition(req.Condition)
		if condition == "" {
			return nil, "unknown condition"
		}
	}

	store := ""
	if strings.TrimSpace(req.Store) != "" {
		store = models.NormalizeStore(req.Store)
		if store == "" {
			return nil, "unknown store"
		}
	}

	if req.CoverURL != "" && !validURL(req.CoverURL) {
		return nil, "cover_url must be a valid URL"
	}

	var price decimal.NullDecimal
	if req.PricePaid != nil {
		if *req.PricePaid < 0 {
			return nil, "price_paid must be >= 0"
		}
		price = decimal.NullDecimal{Decimal: decimal.NewFromFloat(*req.PricePaid), Valid: true}
	}

	v := &models.Volume{
		SeriesID:     strings.TrimSpace(req.SeriesID),
		VolumeNumber: req.VolumeNumber,
		Title:        strings.TrimSpace(req.Title),
		ISBN:         strings.TrimSpace(req.ISBN),
		PricePaid:    price,
		Condition:    condition,
		Store:        store,
		Notes:        strings.TrimSpace(req.Notes),
		CoverURL:     strings.TrimSpace(req.CoverURL),
	}

	// dates exist iff the corresponding flag is set at creation
	now := time.Now().UTC()
	if req.Owned {
		v.SetOwned(true, now)
	}
	if req.Read {
		v.SetRead(true, now)
	}

	return v, ""
}

func patchFromInput(req *updateReq) (Patch, string) {
	var p Patch

	if req.Title != nil {
		if len(*req.Title) > 255 {
			return p, "title too long"
		}
		t := strings.TrimSpace(*req.Title)
		p.Title = &t
	}
	if req.ISBN != nil {
		i := strings.TrimSpace(*req.ISBN)
		p.ISBN = &i
	}
	p.Owned = req.Owned
	p.Read = req.Read
	if req.PricePaid != nil {
		if *req.PricePaid < 0 {
			return p, "price_paid must be >= 0"
		}
		p.PricePaid = &decimal.NullDecimal{
			Decimal: decimal.NewFromFloat(*req.PricePaid),
			Valid:   true,
		}
	}
	if req.Condition != nil {
		cond := models.NormalizeCondition(*req.Condition)
		if cond == "" {
			return p, "unknown condition"
		}
		p.Condition = &cond
	}
	if req.Store != nil {
		st := ""
		if strings.TrimSpace(*req.Store) != "" {
			st = models.NormalizeStore(*req.Store)
			if st == "" {
				return p, "unknown store"
			}
		}
		p.Store = &st
	}
	if req.Notes != nil {
		if len(*req.Notes) > 1000 {
			return p, "notes too long"
		}
		n := strings.TrimSpace(*req.Notes)
		p.Notes = &n
	}
	if req.CoverURL != nil {
		if *req.CoverURL != "" && !validURL(*req.CoverURL) {
			return p, "cover_url must be a valid URL"
		}
		u := strings.TrimSpace(*req.CoverURL)
		p.CoverURL = &u
	}

	return p, ""
}

func validURL(s string) bool {
	u, err := url.Parse(strings.TrimSpace(s))
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func checkNumbers(numbers []int) string {
	if len(numbers) == 0 {
		return "numbers required"
	}
	for _, n := range numbers {
		if n < 1 {
			return "numbers must be >= 1"
		}
	}
	return ""
}

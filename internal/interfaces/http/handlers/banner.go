// internal/interfaces/http/handlers/banner.go
package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/your-org/tienda-backend/internal/config"
	"github.com/your-org/tienda-backend/internal/domain/banner"
)

// BannerHandler handles promotional banner endpoints
type BannerHandler struct {
	bannerService *banner.Service
	config        *config.Config
}

// NewBannerHandler creates a new banner handler
func NewBannerHandler(db *gorm.DB, cfg *config.Config) *BannerHandler {
	return &BannerHandler{
		bannerService: banner.NewService(db, cfg),
		config:        cfg,
	}
}

// GetActiveBanners handles GET /banners
func (h *BannerHandler) GetActiveBanners(c *gin.Context) {
	banners, err := h.bannerService.GetActiveBanners()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to retrieve banners",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Banners retrieved successfully",
		"data":    banners,
	})
}

// AdminGetBanners handles GET /admin/banners
func (h *BannerHandler) AdminGetBanners(c *gin.Context) {
	banners, err := h.bannerService.GetBanners()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to retrieve banners",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Banners retrieved successfully",
		"data":    banners,
	})
}

// AdminGetBanner handles GET /admin/banners/:id
func (h *BannerHandler) AdminGetBanner(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid banner ID"})
		return
	}

	b, err := h.bannerService.GetBanner(uint(id))
	if err != nil {
		respondBannerError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Banner retrieved successfully",
		"data":    b,
	})
}

// CreateBanner handles POST /admin/banners
func (h *BannerHandler) CreateBanner(c *gin.Context) {
	var req banner.CreateBannerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	b, err := h.bannerService.CreateBanner(&req)
	if err != nil {
		respondBannerError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Banner created successfully",
		"data":    b,
	})
}

// UpdateBanner handles PUT /admin/banners/:id
func (h *BannerHandler) UpdateBanner(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid banner ID"})
		return
	}

	var req banner.UpdateBannerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	b, err := h.bannerService.UpdateBanner(uint(id), &req)
	if err != nil {
		respondBannerError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Banner updated successfully",
		"data":    b,
	})
}

// DeleteBanner handles DELETE /admin/banners/:id
func (h *BannerHandler) DeleteBanner(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid banner ID"})
		return
	}

	if err := h.bannerService.DeleteBanner(uint(id)); err != nil {
		respondBannerError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Banner deleted successfully",
	})
}

func respondBannerError(c *gin.Context, err error) {
	if errors.Is(err, banner.ErrBannerNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Banner not found"})
		return
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

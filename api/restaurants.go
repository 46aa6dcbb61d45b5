package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/Domenick1991/tablebooking/internal/repository"
	"github.com/Domenick1991/tablebooking/internal/service/restaurant"
	"github.com/gin-gonic/gin"
)

type RestaurantHandler struct {
	service restaurant.RestaurantUseCase
}

func NewRestaurantHandler(service restaurant.RestaurantUseCase) *RestaurantHandler {
	return &RestaurantHandler{service: service}
}

func (h *RestaurantHandler) Register(router *gin.RouterGroup) {
	router.GET("/:id/inventory", h.inventory)
	router.GET("/:id/availability", h.availability)
}

func (h *RestaurantHandler) inventory(c *gin.Context) {
	inv, err := h.service.Inventory(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, repository.ErrRestaurantNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, inv)
}

// availability projects table availability at a requested instant:
// GET /restaurants/:id/availability?at=2026-09-01T19:00:00Z
func (h *RestaurantHandler) availability(c *gin.Context) {
	at, err := time.Parse(time.RFC3339, c.Query("at"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "at must be RFC3339"})
		return
	}
	inv, err := h.service.ProjectedAvailability(c.Request.Context(), c.Param("id"), at)
	if err != nil {
		if errors.Is(err, repository.ErrRestaurantNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, inv)
}

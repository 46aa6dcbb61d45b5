package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/Domenick1991/tablebooking/internal/allocator"
	"github.com/Domenick1991/tablebooking/internal/domain"
	"github.com/Domenick1991/tablebooking/internal/repository"
	"github.com/Domenick1991/tablebooking/internal/service/reservation"
	"github.com/gin-gonic/gin"
)

type ReservationHandler struct {
	service reservation.ReservationUseCase
}

type createReservationRequest struct {
	RestaurantID    string `json:"restaurant_id"`
	UserID          string `json:"user_id"`
	ReservationTime string `json:"reservation_time"`
	Guests          int    `json:"guests"`
	PreferredZone   string `json:"preferred_zone,omitempty"`
	SpecialRequests string `json:"special_requests,omitempty"`
}

type updateReservationRequest struct {
	ReservationTime string `json:"reservation_time"`
	Guests          int    `json:"guests"`
}

type reservationResponse struct {
	ID              string `json:"id"`
	RestaurantID    string `json:"restaurant_id"`
	UserID          string `json:"user_id"`
	ReservationTime string `json:"reservation_time"`
	Guests          int    `json:"guests"`
	Status          string `json:"status"`
	TableID         string `json:"table_id"`
	TableZone       string `json:"table_zone"`
	SpecialRequests string `json:"special_requests,omitempty"`
}

func NewReservationHandler(service reservation.ReservationUseCase) *ReservationHandler {
	return &ReservationHandler{service: service}
}

func (h *ReservationHandler) Register(router *gin.RouterGroup) {
	router.POST("/", h.create)
	router.GET("/:id", h.get)
	router.PUT("/:id", h.update)
	router.DELETE("/:id", h.cancel)
}

func (h *ReservationHandler) create(c *gin.Context) {
	var req createReservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	at, err := time.Parse(time.RFC3339, req.ReservationTime)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "reservation_time must be RFC3339"})
		return
	}
	var preferred *domain.Zone
	if req.PreferredZone != "" {
		zone := domain.Zone(req.PreferredZone)
		if zone != domain.ZoneInterior && zone != domain.ZoneExterior {
			c.JSON(http.StatusBadRequest, gin.H{"error": "preferred_zone must be interior or exterior"})
			return
		}
		preferred = &zone
	}

	res, err := h.service.CreateReservation(c.Request.Context(), reservation.CreateReservationInput{
		RestaurantID:    req.RestaurantID,
		UserID:          req.UserID,
		ReservationTime: at,
		Guests:          req.Guests,
		PreferredZone:   preferred,
		SpecialRequests: req.SpecialRequests,
	})
	if err != nil {
		var failure *allocator.Failure
		if errors.As(err, &failure) {
			c.JSON(http.StatusConflict, gin.H{"error": failure.Error(), "reason": string(failure.Reason)})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, toReservationResponse(res))
}

func (h *ReservationHandler) get(c *gin.Context) {
	res, err := h.service.GetReservation(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, repository.ErrReservationNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, toReservationResponse(res))
}

func (h *ReservationHandler) update(c *gin.Context) {
	var req updateReservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	at, err := time.Parse(time.RFC3339, req.ReservationTime)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "reservation_time must be RFC3339"})
		return
	}

	res, err := h.service.UpdateReservation(c.Request.Context(), c.Param("id"), reservation.UpdateReservationInput{
		ReservationTime: at,
		Guests:          req.Guests,
	})
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrReservationNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		case errors.Is(err, reservation.ErrInvalidTransition):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		default:
			var failure *allocator.Failure
			if errors.As(err, &failure) {
				c.JSON(http.StatusConflict, gin.H{"error": failure.Error(), "reason": string(failure.Reason)})
				return
			}
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		}
		return
	}
	c.JSON(http.StatusOK, toReservationResponse(res))
}

func (h *ReservationHandler) cancel(c *gin.Context) {
	res, err := h.service.CancelReservation(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, repository.ErrReservationNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, toReservationResponse(res))
}

func toReservationResponse(res *domain.Reservation) reservationResponse {
	return reservationResponse{
		ID:              res.ID,
		RestaurantID:    res.RestaurantID,
		UserID:          res.UserID,
		ReservationTime: res.ReservationTime.Format(time.RFC3339),
		Guests:          res.Guests,
		Status:          string(res.Status),
		TableID:         res.TableID,
		TableZone:       string(res.TableZone),
		SpecialRequests: res.SpecialRequests,
	}
}

package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/mina/internal/identity"
)

type adminUserResponse struct {
	Phone              string     `json:"phone"`
	CreditsRemaining   float64    `json:"credits_remaining"`
	SubscriptionActive bool       `json:"subscription_active"`
	SubscriptionExpiry *time.Time `json:"subscription_expiry,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
}

type adminNoteResponse struct {
	ID              string    `json:"id"`
	Status          string    `json:"status"`
	MinutesCharged  float64   `json:"minutes_charged"`
	DurationSeconds *float64  `json:"duration_seconds,omitempty"`
	Summary         *string   `json:"summary,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func (s *Server) handleAdminUser(c *gin.Context) {
	phone := identity.Normalize(c.Param("phone"))
	if phone == "" {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	user, err := s.accounts.FindByPhone(c.Request.Context(), s.db, phone)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if user == nil {
		AbortWithError(c, ErrNotFound)
		return
	}

	c.JSON(http.StatusOK, adminUserResponse{
		Phone:              user.Phone,
		CreditsRemaining:   user.CreditsRemaining,
		SubscriptionActive: user.HasActiveSubscription(s.clock.Now()),
		SubscriptionExpiry: user.SubscriptionExpiry,
		CreatedAt:          user.CreatedAt,
	})
}

func (s *Server) handleAdminNotes(c *gin.Context) {
	phone := identity.Normalize(c.Param("phone"))
	if phone == "" {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	items, err := s.workItems.ListByPhone(c.Request.Context(), s.db, phone, 50)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	notes := make([]adminNoteResponse, 0, len(items))
	for _, item := range items {
		notes = append(notes, adminNoteResponse{
			ID:              item.ID.String(),
			Status:          string(item.Status),
			MinutesCharged:  item.MinutesCharged,
			DurationSeconds: item.DurationSeconds,
			Summary:         item.Summary,
			CreatedAt:       item.CreatedAt,
			UpdatedAt:       item.UpdatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"phone": phone, "notes": notes})
}

package users

import (
	"context"
	"errors"
	"net/http"

	"mypalette/internal/domain/users"
	"mypalette/internal/infra/logger"
	"mypalette/internal/store"

	"github.com/gin-gonic/gin"
)

type ProfileStore interface {
	ByID(ctx context.Context, id uint) (users.Profile, error)
}

type SummaryStore interface {
	SummaryForArtist(ctx context.Context, artistID uint) (store.ArtistSummary, error)
}

type Handler struct {
	profiles ProfileStore
	subs     SummaryStore
}

func NewHandler(p ProfileStore, s SummaryStore) *Handler {
	return &Handler{profiles: p, subs: s}
}

// GetCurrentUser returns the profile plus where the caller stands on pricing.
func (h *Handler) GetCurrentUser(c *gin.Context) {
	userID := c.GetUint("user_id")
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	user, err := h.profiles.ByID(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load user"})
		return
	}

	summary, err := h.subs.SummaryForArtist(c.Request.Context(), userID)
	if err != nil {
		logger.FromGin(c).Error("submission summary failed", "user_id", userID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load submissions"})
		return
	}

	c.JSON(http.StatusOK, MeResponse{
		User: UserDTO{
			ID:          user.ID,
			Email:       user.Email,
			Name:        user.Name,
			Lastname:    user.Lastname,
			Username:    user.Username,
			DisplayName: user.DisplayName(),
			Role:        string(user.Role),
			CreatedAt:   user.CreatedAt,
		},
		Submissions: SubmissionsDTO{
			Total:                   summary.Total,
			Paid:                    summary.Paid,
			Free:                    summary.Free,
			Pending:                 summary.Pending,
			FreeSubmissionAvailable: summary.FreeSubmissionAvailable(),
		},
	})
}

package admin

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"mypalette/internal/domain/submissions"
	"mypalette/internal/domain/users"
	"mypalette/internal/infra/logger"
	"mypalette/internal/store"

	"github.com/gin-gonic/gin"
)

type ProfileStore interface {
	List(ctx context.Context) ([]users.Profile, error)
	ByID(ctx context.Context, id uint) (users.Profile, error)
	SetRole(ctx context.Context, id uint, role users.Role) error
}

type SubmissionStore interface {
	ListForCall(ctx context.Context, openCallID uint) ([]submissions.Submission, error)
	ListForArtist(ctx context.Context, artistID uint) ([]submissions.Submission, error)
	SummaryForArtist(ctx context.Context, artistID uint) (store.ArtistSummary, error)
	Stats(ctx context.Context, since time.Time) (store.PlatformStats, error)
}

type Handler struct {
	profiles ProfileStore
	subs     SubmissionStore
}

func NewHandler(p ProfileStore, s SubmissionStore) *Handler {
	return &Handler{profiles: p, subs: s}
}

type AdminUser struct {
	ID          uint    `json:"id"`
	Name        string  `json:"name"`
	Lastname    string  `json:"lastname"`
	Username    *string `json:"username,omitempty"`
	Email       string  `json:"email"`
	Role        string  `json:"role"`
	DisplayName string  `json:"display_name"`
}

type AdminSubmission struct {
	submissions.Submission
	ArtistName    string `json:"artist_name"`
	ContactHandle string `json:"contact_handle"`
}

func toAdminUser(u users.Profile) AdminUser {
	return AdminUser{
		ID:          u.ID,
		Name:        u.Name,
		Lastname:    u.Lastname,
		Username:    u.Username,
		Email:       u.Email,
		Role:        string(u.Role),
		DisplayName: u.DisplayName(),
	}
}

func (h *Handler) ListAllUsers(c *gin.Context) {
	list, err := h.profiles.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load users"})
		return
	}
	out := make([]AdminUser, 0, len(list))
	for _, u := range list {
		out = append(out, toAdminUser(u))
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handler) GetUserDetails(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid id"})
		return
	}
	user, err := h.profiles.ByID(c.Request.Context(), uint(id))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}
	subs, err := h.subs.ListForArtist(c.Request.Context(), user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch submissions"})
		return
	}
	summary, err := h.subs.SummaryForArtist(c.Request.Context(), user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch submissions"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user":        toAdminUser(user),
		"submissions": subs,
		"summary":     summary,
	})
}

// SetRole grants or removes host/admin. POST /admin/user/:id/role {"role": "host"}
func (h *Handler) SetRole(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid id"})
		return
	}
	var body struct {
		Role string `json:"role"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing role"})
		return
	}
	raw := strings.ToLower(strings.TrimSpace(body.Role))
	role := users.ParseRole(raw)
	if string(role) != raw {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown role"})
		return
	}
	if err := h.profiles.SetRole(c.Request.Context(), uint(id), role); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update role"})
		return
	}
	logger.FromGin(c).Info("role changed", "user_id", id, "role", role, "by", c.GetUint("user_id"))
	c.JSON(http.StatusOK, gin.H{"id": id, "role": role})
}

// ListSubmissions GET /admin/submissions?open_call_id=
func (h *Handler) ListSubmissions(c *gin.Context) {
	callID, err := strconv.ParseUint(c.Query("open_call_id"), 10, 64)
	if err != nil || callID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "open_call_id is required"})
		return
	}
	subs, err := h.subs.ListForCall(c.Request.Context(), uint(callID))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load submissions"})
		return
	}
	out := make([]AdminSubmission, 0, len(subs))
	for _, s := range subs {
		row := AdminSubmission{Submission: s}
		if s.Artist != nil {
			row.ArtistName = s.Artist.DisplayName()
			row.ContactHandle = s.Artist.ContactHandle()
		}
		out = append(out, row)
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handler) GetAdminStats(c *gin.Context) {
	profiles, err := h.profiles.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load users"})
		return
	}
	stats, err := h.subs.Stats(c.Request.Context(), time.Now().AddDate(0, 0, -30))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load stats"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"total_users": len(profiles),
		"submissions": stats,
	})
}

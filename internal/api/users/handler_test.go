package users

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"mypalette/internal/domain/users"
	"mypalette/internal/store"

	"github.com/gin-gonic/gin"
)

type fakeProfiles map[uint]users.Profile

func (f fakeProfiles) ByID(_ context.Context, id uint) (users.Profile, error) {
	if p, ok := f[id]; ok {
		return p, nil
	}
	return users.Profile{}, store.ErrNotFound
}

type fakeSummary store.ArtistSummary

func (f fakeSummary) SummaryForArtist(context.Context, uint) (store.ArtistSummary, error) {
	return store.ArtistSummary(f), nil
}

func me(t *testing.T, uid uint, h *Handler) (*httptest.ResponseRecorder, MeResponse) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/me", func(c *gin.Context) { c.Set("user_id", uid) }, h.GetCurrentUser)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/me", nil))
	var resp MeResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	return w, resp
}

func TestMeReportsFreeSubmission(t *testing.T) {
	profiles := fakeProfiles{3: {ID: 3, Name: "Lu", Email: "lu@x.io", Role: users.RoleArtist}}

	w, resp := me(t, 3, NewHandler(profiles, fakeSummary{}))
	if w.Code != http.StatusOK || !resp.Submissions.FreeSubmissionAvailable || resp.User.DisplayName != "Lu" {
		t.Fatalf("unexpected %d %+v", w.Code, resp)
	}

	_, resp = me(t, 3, NewHandler(profiles, fakeSummary{Total: 2, Free: 1, Pending: 1}))
	if resp.Submissions.FreeSubmissionAvailable {
		t.Fatal("free slot already used")
	}

	// Pending rows alone do not consume the free slot.
	_, resp = me(t, 3, NewHandler(profiles, fakeSummary{Total: 1, Pending: 1}))
	if !resp.Submissions.FreeSubmissionAvailable {
		t.Fatal("pending submissions should not consume the free slot")
	}

	if w, _ := me(t, 4, NewHandler(profiles, fakeSummary{})); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

package admin

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"mypalette/internal/domain/submissions"
	"mypalette/internal/domain/users"
	"mypalette/internal/store"

	"github.com/gin-gonic/gin"
)

type fakeProfiles struct {
	rows map[uint]*users.Profile
}

func (f *fakeProfiles) List(context.Context) ([]users.Profile, error) {
	var out []users.Profile
	for _, p := range f.rows {
		out = append(out, *p)
	}
	return out, nil
}

func (f *fakeProfiles) ByID(_ context.Context, id uint) (users.Profile, error) {
	if p, ok := f.rows[id]; ok {
		return *p, nil
	}
	return users.Profile{}, store.ErrNotFound
}

func (f *fakeProfiles) SetRole(_ context.Context, id uint, role users.Role) error {
	p, ok := f.rows[id]
	if !ok {
		return store.ErrNotFound
	}
	p.Role = role
	return nil
}

type fakeSubs struct {
	forCall []submissions.Submission
}

func (f *fakeSubs) ListForCall(context.Context, uint) ([]submissions.Submission, error) {
	return f.forCall, nil
}
func (f *fakeSubs) ListForArtist(context.Context, uint) ([]submissions.Submission, error) {
	return nil, nil
}
func (f *fakeSubs) SummaryForArtist(context.Context, uint) (store.ArtistSummary, error) {
	return store.ArtistSummary{}, nil
}
func (f *fakeSubs) Stats(context.Context, time.Time) (store.PlatformStats, error) {
	return store.PlatformStats{}, nil
}

func setup() (*gin.Engine, *fakeProfiles, *fakeSubs) {
	gin.SetMode(gin.TestMode)
	p := &fakeProfiles{rows: map[uint]*users.Profile{2: {ID: 2, Email: "h@x.io", Role: users.RoleArtist}}}
	s := &fakeSubs{}
	h := NewHandler(p, s)
	r := gin.New()
	r.POST("/admin/user/:id/role", h.SetRole)
	r.GET("/admin/submissions", h.ListSubmissions)
	return r, p, s
}

func TestSetRole(t *testing.T) {
	r, p, _ := setup()
	for body, want := range map[string]int{
		`{"role":"superuser"}`: http.StatusBadRequest,
		`{"role":"Host"}`:      http.StatusOK,
	} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/admin/user/2/role", strings.NewReader(body)))
		if w.Code != want {
			t.Fatalf("%s: expected %d, got %d", body, want, w.Code)
		}
	}
	if p.rows[2].Role != users.RoleHost {
		t.Fatalf("expected host, got %s", p.rows[2].Role)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/admin/user/9/role", strings.NewReader(`{"role":"admin"}`)))
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestListSubmissionsIncludesContact(t *testing.T) {
	r, _, s := setup()
	u := "kai"
	s.forCall = []submissions.Submission{{ID: 1, ArtistID: 2, Artist: &users.Profile{Name: "Kai", Username: &u}}}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin/submissions", nil))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("missing open_call_id: expected 400, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin/submissions?open_call_id=4", nil))
	var rows []struct {
		ID            uint   `json:"id"`
		ArtistName    string `json:"artist_name"`
		ContactHandle string `json:"contact_handle"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &rows); err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 || rows[0].ID != 1 || rows[0].ArtistName != "Kai" || rows[0].ContactHandle != "@kai" {
		t.Fatalf("unexpected %s", w.Body.String())
	}
}

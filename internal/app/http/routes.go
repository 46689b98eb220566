package routes

import (
	"net/http"

	adminapi "mypalette/internal/api/admin"
	authapi "mypalette/internal/api/auth"
	curationapi "mypalette/internal/api/curation"
	opencallsapi "mypalette/internal/api/opencalls"
	stripewebhooks "mypalette/internal/api/stripewebhook"
	submissionsapi "mypalette/internal/api/submissions"
	"mypalette/internal/api/users"
	"mypalette/internal/app/http/middleware"
	"mypalette/internal/curation"
	domainusers "mypalette/internal/domain/users"
	"mypalette/internal/infra/ratelimit"
	"mypalette/internal/store"
	"mypalette/internal/workflow"

	"github.com/gin-gonic/gin"
)

// Deps is everything the HTTP layer needs, built once in main.
type Deps struct {
	Profiles      *store.Profiles
	OpenCalls     *store.OpenCalls
	Submissions   *store.Submissions
	Workflow      *workflow.Workflow
	Curation      curation.Deps
	Events        stripewebhooks.EventPublisher
	WebhookSecret string
	SubmitLimiter *ratelimit.Limiter
}

func RegisterRoutes(r *gin.Engine, d Deps) {
	auth := authapi.NewHandler(d.Profiles)
	me := users.NewHandler(d.Profiles, d.Submissions)
	calls := opencallsapi.NewHandler(d.OpenCalls)
	subs := submissionsapi.NewHandler(d.Workflow, d.Submissions)
	cur := curationapi.NewHandler(d.Curation)
	admin := adminapi.NewHandler(d.Profiles, d.Submissions)
	hooks := stripewebhooks.NewHandler(d.Submissions, d.Events, d.WebhookSecret)

	r.POST("/webhook", hooks.StripeWebhook)
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// ✅ Apply input sanitization to public routes only
	public := r.Group("/")
	public.Use(middleware.SanitizeAndCleanInputMiddleware())
	public.POST("/register", auth.Register)
	public.POST("/login", auth.Login)

	browse := r.Group("/")
	browse.Use(middleware.OptionalAuth())
	browse.GET("/open-calls", calls.List)
	browse.GET("/open-calls/:id", calls.Get)

	// Authenticated
	authed := r.Group("/")
	authed.Use(middleware.AuthMiddleware())
	authed.GET("/me", me.GetCurrentUser)
	authed.POST("/change-password", auth.ChangePassword)
	authed.POST("/open-calls", calls.Create)
	authed.GET("/open-calls/:id/eligibility", subs.Eligibility)
	authed.POST("/open-calls/:id/submissions", middleware.SubmissionRateLimit(d.SubmitLimiter), subs.Submit)
	authed.GET("/submissions", subs.ListMine)
	authed.DELETE("/submissions/:id/pending", subs.AbandonPending)

	// Admin routes
	adm := r.Group("/admin")
	adm.Use(middleware.AuthMiddleware(), middleware.RequireRole(domainusers.RoleAdmin))
	adm.GET("/dashboard", admin.GetAdminStats)
	adm.GET("/users", admin.ListAllUsers)
	adm.GET("/user/:id", admin.GetUserDetails)
	adm.POST("/user/:id/role", admin.SetRole)
	adm.GET("/submissions", admin.ListSubmissions)

	adm.GET("/open-calls", calls.AdminList)
	adm.POST("/open-calls/:id/status", calls.SetStatus)
	adm.POST("/open-calls/:id/feature", calls.SetFeatured)

	adm.GET("/open-calls/:id/curation", cur.Get)
	adm.PUT("/open-calls/:id/curation", cur.Save)
	adm.POST("/open-calls/:id/curation/select-top", cur.SelectTop)
	adm.GET("/open-calls/:id/curation/export", cur.Export)
}

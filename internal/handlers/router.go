package handlers

import (
	"log/slog"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/justsurfingit/extrajob/internal/metrics"
	"github.com/justsurfingit/extrajob/internal/models"
	"github.com/justsurfingit/extrajob/internal/services"
	"github.com/justsurfingit/extrajob/internal/syncbus"
)

// Deps is everything the router needs.
type Deps struct {
	Auth          Identifier
	Jobs          *services.JobService
	Businesses    *services.BusinessService
	Profiles      *services.ProfileService
	Ledger        *services.Ledger
	Notifications *services.NotificationService
	Notifier      JobNotifier
	Bus           *syncbus.Bus
	Metrics       *metrics.Collector
	Logger        *slog.Logger

	// CORSAllowedOrigins empty means any origin.
	CORSAllowedOrigins []string
}

func NewRouter(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), RequestLogger(d.Logger), d.Metrics.Middleware())

	config := cors.DefaultConfig()
	if len(d.CORSAllowedOrigins) == 0 {
		config.AllowAllOrigins = true
	} else {
		config.AllowOrigins = d.CORSAllowedOrigins
	}
	config.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization"}
	r.Use(cors.New(config))

	if d.Metrics != nil {
		r.GET("/metrics", gin.WrapH(d.Metrics.Handler()))
	}

	mw := NewMiddleware(d.Auth, d.Logger)
	jobHandler := NewJobHandler(d.Jobs, d.Ledger, d.Logger)
	businessHandler := NewBusinessHandler(d.Businesses, d.Logger)
	applicationHandler := NewApplicationHandler(d.Ledger, d.Logger)
	profileHandler := NewProfileHandler(d.Profiles, d.Logger)
	notificationHandler := NewNotificationHandler(d.Notifications, d.Jobs, d.Notifier, d.Logger)
	streamHandler := NewStreamHandler(d.Bus, d.Ledger, d.Logger)

	api := r.Group("/api/v1")
	{
		api.GET("/health", HealthCheck)

		session := api.Group("", mw.RequireSession())
		session.GET("/me", profileHandler.Me)
		session.PUT("/me/profile", profileHandler.Update)

		member := session.Group("", mw.RequireProfile())
		member.GET("/jobs", jobHandler.ListFeed)
		member.GET("/jobs/:id", jobHandler.GetJob)
		member.GET("/notifications", notificationHandler.List)
		member.POST("/notifications/:id/read", notificationHandler.MarkRead)
		member.GET("/events", streamHandler.Events)

		employer := member.Group("", mw.RequireRole(models.RoleEmployer))
		employer.POST("/jobs", jobHandler.CreateJob)
		employer.GET("/employer/jobs", jobHandler.ListMine)
		employer.GET("/jobs/:id/applicants", jobHandler.Applicants)
		employer.GET("/jobs/:id/applicants/stream", streamHandler.Applicants)
		employer.GET("/businesses", businessHandler.List)
		employer.POST("/businesses", businessHandler.Create)
		employer.PUT("/businesses/:id/default", businessHandler.SetDefault)
		employer.DELETE("/businesses/:id", businessHandler.Delete)
		employer.POST("/notifications/application", notificationHandler.Resend)

		worker := member.Group("", mw.RequireRole(models.RoleWorker))
		worker.POST("/applications", applicationHandler.Apply)
		worker.DELETE("/applications/:jobId", applicationHandler.Withdraw)
		worker.GET("/applications", applicationHandler.List)
		worker.GET("/applications/job-ids", applicationHandler.JobIDs)
		worker.GET("/applications/stream", streamHandler.MyJobIDs)
	}
	return r
}

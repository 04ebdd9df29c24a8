package httpapi

import (
	"context"
	"time"

	"crosspost/internal/adapters/httpapi/middleware"
	dispatchapp "crosspost/internal/core/dispatch/service"
	"crosspost/internal/core/staging"
	postPort "crosspost/internal/ports/post"

	"github.com/gin-gonic/gin"
)

// Inbound ports: what the controllers need from the use cases.

type PostUseCase interface {
	SchedulePost(ctx context.Context, userID string, content staging.StagedContent, publishAt time.Time) ([]*postPort.PostDTO, error)
	GetPost(ctx context.Context, userID, postID string) (*postPort.PostDTO, error)
	ReschedulePost(ctx context.Context, userID, postID string, publishAt time.Time) (*postPort.PostDTO, error)
	RecentPublished(ctx context.Context, userID string, limit int64) ([]string, error)
}

type DispatchUseCase interface {
	RunDue(ctx context.Context) (*postPort.DispatchSummaryDTO, error)
	PublishByID(ctx context.Context, userID, postID string) (*postPort.PublishResponseDTO, *dispatchapp.PublishError)
}

// SetupRoutes wires the controllers; use cases are injected from main.
func SetupRoutes(postUC PostUseCase, dispatchUC DispatchUseCase) *gin.Engine {
	r := gin.Default()
	pc := NewPostController(postUC, dispatchUC)
	dc := NewDispatchController(dispatchUC)

	// User-owned post routes behind JWT.
	r.POST("/posts", middleware.JWTAuthMiddleware(), pc.SchedulePost)
	r.GET("/posts/:id", middleware.JWTAuthMiddleware(), pc.GetPost)
	r.POST("/posts/:id/publish", middleware.JWTAuthMiddleware(), pc.PublishPost)
	r.POST("/posts/:id/reschedule", middleware.JWTAuthMiddleware(), pc.ReschedulePost)
	r.GET("/published", middleware.JWTAuthMiddleware(), pc.RecentPublished)

	// Time-trigger entry point behind the shared secret.
	r.GET("/dispatch/run", middleware.DispatchSecretMiddleware(), dc.Run)

	return r
}

package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	dispatchapp "crosspost/internal/core/dispatch/service"
	postapp "crosspost/internal/core/post/service"
	"crosspost/internal/core/staging"
	postPort "crosspost/internal/ports/post"

	"github.com/gin-gonic/gin"
)

type PostController struct {
	pc PostUseCase
	dc DispatchUseCase
}

func NewPostController(pc PostUseCase, dc DispatchUseCase) *PostController {
	return &PostController{pc: pc, dc: dc}
}

func userID(c *gin.Context) (string, bool) {
	v, exists := c.Get("userID")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found in context"})
		return "", false
	}
	return v.(string), true
}

func (ctl *PostController) SchedulePost(c *gin.Context) {
	var req struct {
		Platforms   []string                           `json:"platforms" binding:"required"`
		Content     map[string]staging.PlatformContent `json:"content" binding:"required"`
		PublishDate time.Time                          `json:"publishDate" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input"})
		return
	}
	uid, ok := userID(c)
	if !ok {
		return
	}

	content := staging.StagedContent{Platforms: req.Platforms, Content: req.Content}
	posts, err := ctl.pc.SchedulePost(c.Request.Context(), uid, content, req.PublishDate)
	if err != nil {
		var notReady *postapp.NotReadyError
		if errors.As(err, &notReady) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "content is not ready", "missing": notReady.Missing})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not schedule post"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"posts": posts})
}

func (ctl *PostController) GetPost(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	p, err := ctl.pc.GetPost(c.Request.Context(), uid, c.Param("id"))
	if err != nil {
		if errors.Is(err, postPort.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "post not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load post"})
		return
	}
	c.JSON(http.StatusOK, p)
}

func (ctl *PostController) PublishPost(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	res, perr := ctl.dc.PublishByID(c.Request.Context(), uid, c.Param("id"))
	if perr != nil {
		c.JSON(statusForCode(perr.Code), gin.H{"code": perr.Code, "error": perr.Message})
		return
	}
	c.JSON(http.StatusOK, res)
}

func (ctl *PostController) ReschedulePost(c *gin.Context) {
	var req struct {
		PublishDate time.Time `json:"publishDate" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input"})
		return
	}
	uid, ok := userID(c)
	if !ok {
		return
	}
	p, err := ctl.pc.ReschedulePost(c.Request.Context(), uid, c.Param("id"), req.PublishDate)
	if err != nil {
		if errors.Is(err, postPort.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "post not found"})
			return
		}
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, p)
}

func (ctl *PostController) RecentPublished(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	limit, _ := strconv.ParseInt(c.DefaultQuery("limit", "20"), 10, 64)
	ids, err := ctl.pc.RecentPublished(c.Request.Context(), uid, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load recent posts"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"postIds": ids})
}

func statusForCode(code string) int {
	switch code {
	case dispatchapp.CodePostNotFound:
		return http.StatusNotFound
	case dispatchapp.CodeFuturePost, dispatchapp.CodePlatformMissing:
		return http.StatusBadRequest
	case dispatchapp.CodeIntegrationNotFound:
		return http.StatusConflict
	default:
		return http.StatusBadGateway
	}
}

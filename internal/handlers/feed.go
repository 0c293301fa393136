package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	apierrors "github.com/photofeed/backend/internal/errors"
	"github.com/photofeed/backend/internal/middleware"
	"github.com/photofeed/backend/internal/models"
	"github.com/photofeed/backend/internal/repository"
	"github.com/photofeed/backend/internal/util"
)

// GetFeed returns a page of the global feed with live counts and the
// requesting actor's liked statuses merged in.
// GET /api/v1/feed
func (h *Handlers) GetFeed(c *gin.Context) {
	limit := util.ParseInt(c.DefaultQuery("limit", "20"), 20)
	offset := util.ParseInt(c.DefaultQuery("offset", "0"), 0)

	posts, err := h.posts.ListFeed(c.Request.Context(), limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load feed"})
		return
	}

	actor, _ := middleware.GetActor(c) // zero ActorID means counts only

	merged := h.merger.Merge(c.Request.Context(), posts, actor)

	c.JSON(http.StatusOK, gin.H{
		"posts": merged,
		"meta": gin.H{
			"limit":  limit,
			"offset": offset,
			"count":  len(merged),
		},
	})
}

// GetPost returns a single post with live engagement merged in.
// GET /api/v1/posts/:id
func (h *Handlers) GetPost(c *gin.Context) {
	postID := c.Param("id")
	if postID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "post id is required"})
		return
	}

	post, err := h.posts.GetPost(c.Request.Context(), postID)
	if err != nil {
		if errors.Is(err, repository.ErrPostNotFound) {
			apiErr := apierrors.NotFound("post")
			c.JSON(apiErr.Status, gin.H{"error": apiErr})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to find post"})
		return
	}

	actor, _ := middleware.GetActor(c)
	merged := h.merger.Merge(c.Request.Context(), []models.Post{*post}, actor)

	c.JSON(http.StatusOK, gin.H{"post": merged[0]})
}

package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	apierrors "github.com/photofeed/backend/internal/errors"
	"github.com/photofeed/backend/internal/likes"
	"github.com/photofeed/backend/internal/middleware"
	"github.com/photofeed/backend/internal/repository"
)

// ToggleLike flips the requesting actor's like on a post.
// POST /api/v1/posts/:id/like
//
// The toggle itself is synchronous and atomic; the durable mirror and the
// realtime broadcast happen after the response is decided and never delay
// it. A 503 means nothing changed and the client should roll back its
// optimistic update.
func (h *Handlers) ToggleLike(c *gin.Context) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication or session id required"})
		return
	}

	postID := c.Param("id")
	if postID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "post id is required"})
		return
	}

	exists, err := h.posts.PostExists(c.Request.Context(), postID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to find post"})
		return
	}
	if !exists {
		apiErr := apierrors.NotFound("post")
		c.JSON(apiErr.Status, gin.H{"error": apiErr})
		return
	}

	result, err := h.counter.Toggle(c.Request.Context(), postID, actor)
	if err != nil {
		if errors.Is(err, likes.ErrInvalidPostID) || errors.Is(err, likes.ErrInvalidActor) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		apiErr := apierrors.CounterUnavailable()
		c.JSON(apiErr.Status, gin.H{"error": apiErr})
		return
	}

	// Fire-and-forget mirror and broadcast; the caller is already done.
	h.syncer.Enqueue(likes.Outcome{
		PostID: postID,
		Actor:  actor,
		Liked:  result.Liked,
		Count:  result.Count,
	})
	h.publisher.PublishLikeUpdate(c.Request.Context(), postID, result.Count, result.Liked)

	c.JSON(http.StatusOK, result)
}

// GetPostLikes returns the live count and the requesting actor's liked
// status for one post.
// GET /api/v1/posts/:id/likes
func (h *Handlers) GetPostLikes(c *gin.Context) {
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

	// Best-effort reads: like counts are not worth an error page, so a
	// double outage degrades to the post row's last-synced value.
	count, err := h.counter.Count(c.Request.Context(), postID)
	if err != nil {
		count = post.LikeCount
	}

	liked := false
	if actor, ok := middleware.GetActor(c); ok {
		if l, err := h.counter.IsLiked(c.Request.Context(), postID, actor); err == nil {
			liked = l
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"post_id":    postID,
		"like_count": count,
		"liked":      liked,
	})
}

// BatchLikeStatuses returns counts and liked statuses for a set of posts in
// one request, one Redis round trip per half.
// POST /api/v1/likes/statuses
func (h *Handlers) BatchLikeStatuses(c *gin.Context) {
	var req struct {
		PostIDs []string `json:"post_ids" binding:"required,min=1,max=100"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	counts, err := h.counter.Counts(c.Request.Context(), req.PostIDs)
	if err != nil {
		counts = map[string]int64{}
	}

	statuses := map[string]bool{}
	if actor, ok := middleware.GetActor(c); ok {
		if s, err := h.counter.LikedStatuses(c.Request.Context(), req.PostIDs, actor); err == nil {
			statuses = s
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"counts":   counts,
		"statuses": statuses,
	})
}

// MigrateLikes moves an anonymous session's likes onto the authenticated
// principal, typically right after sign-in. The live store migrates first
// (per-post atomic swaps), then the durable rows follow synchronously, and
// merged posts get their corrected counts mirrored through the sync queue.
// POST /api/v1/likes/migrate
func (h *Handlers) MigrateLikes(c *gin.Context) {
	actor, ok := middleware.GetActor(c)
	if !ok || !actor.IsPrincipal() {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	var req struct {
		SessionID string `json:"session_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	from := likes.Session(req.SessionID)
	result, err := h.counter.MigrateActor(c.Request.Context(), from, actor)
	if err != nil {
		apiErr := apierrors.CounterUnavailable()
		c.JSON(apiErr.Status, gin.H{"error": apiErr})
		return
	}

	if _, err := h.durable.MigrateActor(c.Request.Context(), from.Tag(), actor.Tag()); err != nil {
		// The live store already migrated; the durable rows will straighten
		// out on the next sync or reconciliation pass.
		c.JSON(http.StatusOK, gin.H{
			"migration": result,
			"warning":   "durable migration deferred",
		})
		return
	}

	if len(result.Merged) > 0 {
		if counts, err := h.counter.Counts(c.Request.Context(), result.Merged); err == nil {
			for _, postID := range result.Merged {
				h.syncer.Enqueue(likes.Outcome{
					PostID: postID,
					Actor:  actor,
					Liked:  true,
					Count:  counts[postID],
				})
			}
		}
	}

	c.JSON(http.StatusOK, gin.H{"migration": result})
}

// AdminReconcile runs a reconciliation pass on demand.
// POST /api/v1/admin/reconcile
func (h *Handlers) AdminReconcile(c *gin.Context) {
	actor, ok := middleware.GetActor(c)
	if !ok || !actor.IsPrincipal() {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	checked, corrected, err := h.syncer.ReconcileAll(c.Request.Context(), h.reconcileSample)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "reconciliation failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"checked":   checked,
		"corrected": corrected,
	})
}

package handlers

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"

	"github.com/photofeed/backend/internal/likes"
	"github.com/photofeed/backend/internal/models"
	"github.com/photofeed/backend/internal/repository"
)

var errStoreDown = errors.New("store down")

// memAtomic is an in-memory likes.AtomicStore for wiring a real engine under
// the handlers without Redis.
type memAtomic struct {
	mu     sync.Mutex
	counts map[string]int64
	sets   map[string]map[string]bool
	broken bool
}

func newMemAtomic() *memAtomic {
	return &memAtomic{
		counts: make(map[string]int64),
		sets:   make(map[string]map[string]bool),
	}
}

func (m *memAtomic) set(key string) map[string]bool {
	s, ok := m.sets[key]
	if !ok {
		s = make(map[string]bool)
		m.sets[key] = s
	}
	return s
}

func (m *memAtomic) ToggleMember(_ context.Context, countKey, membersKey, actorKey, member, item string) (int64, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.broken {
		return 0, false, errStoreDown
	}
	members := m.set(membersKey)
	index := m.set(actorKey)
	if members[member] {
		delete(members, member)
		delete(index, item)
		if m.counts[countKey] > 0 {
			m.counts[countKey]--
		}
		return m.counts[countKey], false, nil
	}
	members[member] = true
	index[item] = true
	m.counts[countKey]++
	return m.counts[countKey], true, nil
}

func (m *memAtomic) MoveMember(_ context.Context, countKey, membersKey, fromMember, toMember string) (int64, bool, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.broken {
		return 0, false, false, errStoreDown
	}
	members := m.set(membersKey)
	if !members[fromMember] {
		return m.counts[countKey], false, false, nil
	}
	delete(members, fromMember)
	if members[toMember] {
		if m.counts[countKey] > 0 {
			m.counts[countKey]--
		}
		return m.counts[countKey], true, true, nil
	}
	members[toMember] = true
	return m.counts[countKey], true, false, nil
}

func (m *memAtomic) GetCounts(_ context.Context, keys []string) ([]*int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.broken {
		return nil, errStoreDown
	}
	out := make([]*int64, len(keys))
	for i, k := range keys {
		if v, ok := m.counts[k]; ok {
			c := v
			out[i] = &c
		}
	}
	return out, nil
}

func (m *memAtomic) SetCount(_ context.Context, key string, value int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.broken {
		return errStoreDown
	}
	m.counts[key] = value
	return nil
}

func (m *memAtomic) IsMember(_ context.Context, key, member string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.broken {
		return false, errStoreDown
	}
	return m.set(key)[member], nil
}

func (m *memAtomic) AreMembers(_ context.Context, key string, members []string) ([]bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.broken {
		return nil, errStoreDown
	}
	s := m.set(key)
	out := make([]bool, len(members))
	for i, member := range members {
		out[i] = s[member]
	}
	return out, nil
}

func (m *memAtomic) Members(_ context.Context, key string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.broken {
		return nil, errStoreDown
	}
	var out []string
	for member := range m.set(key) {
		out = append(out, member)
	}
	return out, nil
}

func (m *memAtomic) AddMember(_ context.Context, key string, members ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.broken {
		return errStoreDown
	}
	s := m.set(key)
	for _, member := range members {
		s[member] = true
	}
	return nil
}

func (m *memAtomic) RemoveMember(_ context.Context, key string, members ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.broken {
		return errStoreDown
	}
	s := m.set(key)
	for _, member := range members {
		delete(s, member)
	}
	return nil
}

func (m *memAtomic) ReplaceSet(_ context.Context, key string, members []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.broken {
		return errStoreDown
	}
	s := make(map[string]bool, len(members))
	for _, member := range members {
		s[member] = true
	}
	m.sets[key] = s
	return nil
}

// memLikeRepo is an in-memory repository.LikeRepository.
type memLikeRepo struct {
	mu     sync.Mutex
	rows   map[string]map[string]bool // postID -> actor tag
	counts map[string]int64
	broken bool
	migErr error
}

func newMemLikeRepo() *memLikeRepo {
	return &memLikeRepo{
		rows:   make(map[string]map[string]bool),
		counts: make(map[string]int64),
	}
}

func (r *memLikeRepo) post(postID string) map[string]bool {
	p, ok := r.rows[postID]
	if !ok {
		p = make(map[string]bool)
		r.rows[postID] = p
	}
	return p
}

func (r *memLikeRepo) UpsertLike(_ context.Context, postID, actorID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.broken {
		return errStoreDown
	}
	r.post(postID)[actorID] = true
	return nil
}

func (r *memLikeRepo) DeleteLike(_ context.Context, postID, actorID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.broken {
		return errStoreDown
	}
	delete(r.post(postID), actorID)
	return nil
}

func (r *memLikeRepo) HasLike(_ context.Context, postID, actorID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.broken {
		return false, errStoreDown
	}
	return r.post(postID)[actorID], nil
}

func (r *memLikeRepo) SetLikeCount(_ context.Context, postID string, count int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.broken {
		return errStoreDown
	}
	if count < 0 {
		count = 0
	}
	r.counts[postID] = count
	return nil
}

func (r *memLikeRepo) GetLikeCount(_ context.Context, postID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.broken {
		return 0, errStoreDown
	}
	return r.counts[postID], nil
}

func (r *memLikeRepo) GetLikeCounts(_ context.Context, postIDs []string) (map[string]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.broken {
		return nil, errStoreDown
	}
	out := make(map[string]int64, len(postIDs))
	for _, id := range postIDs {
		out[id] = r.counts[id]
	}
	return out, nil
}

func (r *memLikeRepo) GetLikedSet(_ context.Context, actorID string, postIDs []string) (map[string]bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.broken {
		return nil, errStoreDown
	}
	out := make(map[string]bool, len(postIDs))
	for _, id := range postIDs {
		out[id] = r.post(id)[actorID]
	}
	return out, nil
}

func (r *memLikeRepo) ListActorsForPost(_ context.Context, postID string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.broken {
		return nil, errStoreDown
	}
	var out []string
	for tag := range r.post(postID) {
		out = append(out, tag)
	}
	return out, nil
}

func (r *memLikeRepo) ListPostsForActor(_ context.Context, actorID string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.broken {
		return nil, errStoreDown
	}
	var out []string
	for postID, actors := range r.rows {
		if actors[actorID] {
			out = append(out, postID)
		}
	}
	return out, nil
}

func (r *memLikeRepo) CountLikes(_ context.Context, postID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.broken {
		return 0, errStoreDown
	}
	return int64(len(r.post(postID))), nil
}

func (r *memLikeRepo) MigrateActor(_ context.Context, fromActorID, toActorID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.migErr != nil {
		return 0, r.migErr
	}
	var migrated int64
	for _, actors := range r.rows {
		if actors[fromActorID] {
			delete(actors, fromActorID)
			actors[toActorID] = true
			migrated++
		}
	}
	return migrated, nil
}

// memPostRepo is an in-memory repository.PostRepository.
type memPostRepo struct {
	mu    sync.Mutex
	posts map[string]models.Post
	order []string
}

func newMemPostRepo(posts ...models.Post) *memPostRepo {
	r := &memPostRepo{posts: make(map[string]models.Post)}
	for _, p := range posts {
		r.posts[p.ID] = p
		r.order = append(r.order, p.ID)
	}
	return r
}

func (r *memPostRepo) CreatePost(_ context.Context, post *models.Post) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.posts[post.ID] = *post
	r.order = append(r.order, post.ID)
	return nil
}

func (r *memPostRepo) GetPost(_ context.Context, postID string) (*models.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.posts[postID]
	if !ok {
		return nil, repository.ErrPostNotFound
	}
	return &p, nil
}

func (r *memPostRepo) PostExists(_ context.Context, postID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.posts[postID]
	return ok, nil
}

func (r *memPostRepo) ListFeed(_ context.Context, limit, offset int) ([]models.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if offset >= len(r.order) {
		return nil, nil
	}
	end := offset + limit
	if end > len(r.order) {
		end = len(r.order)
	}
	out := make([]models.Post, 0, end-offset)
	for _, id := range r.order[offset:end] {
		out = append(out, r.posts[id])
	}
	return out, nil
}

func (r *memPostRepo) SamplePostIDs(_ context.Context, limit int) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if limit > len(r.order) {
		limit = len(r.order)
	}
	return append([]string(nil), r.order[:limit]...), nil
}

// recordingSyncer captures enqueued outcomes instead of running workers.
type recordingSyncer struct {
	mu       sync.Mutex
	outcomes []likes.Outcome
	checked  int
	fixed    int
	err      error
}

func (s *recordingSyncer) Enqueue(outcome likes.Outcome) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.outcomes = append(s.outcomes, outcome)
}

func (s *recordingSyncer) ReconcileAll(_ context.Context, _ int) (int, int, error) {
	return s.checked, s.fixed, s.err
}

func (s *recordingSyncer) enqueued() []likes.Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]likes.Outcome(nil), s.outcomes...)
}

// recordingPublisher captures broadcasts.
type recordingPublisher struct {
	mu     sync.Mutex
	events []string
}

func (p *recordingPublisher) PublishLikeUpdate(_ context.Context, postID string, count int64, liked bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	state := "unliked"
	if liked {
		state = "liked"
	}
	p.events = append(p.events, strings.Join([]string{postID, state}, ":"))
}

func (p *recordingPublisher) published() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.events...)
}

// testEnv wires a real engine over in-memory stores behind the handlers.
type testEnv struct {
	handlers  *Handlers
	atomic    *memAtomic
	likeRepo  *memLikeRepo
	postRepo  *memPostRepo
	syncer    *recordingSyncer
	publisher *recordingPublisher
}

func newTestEnv(posts ...models.Post) *testEnv {
	atomic := newMemAtomic()
	likeRepo := newMemLikeRepo()
	postRepo := newMemPostRepo(posts...)
	syncer := &recordingSyncer{}
	publisher := &recordingPublisher{}
	counter := likes.NewCounterService(atomic, likeRepo)
	merger := likes.NewMerger(counter)
	return &testEnv{
		handlers:  NewHandlers(counter, merger, syncer, publisher, postRepo, likeRepo, 100),
		atomic:    atomic,
		likeRepo:  likeRepo,
		postRepo:  postRepo,
		syncer:    syncer,
		publisher: publisher,
	}
}

// router registers the like engine routes the way the server does, with the
// given actor pre-resolved. A zero actor means an anonymous request.
func (e *testEnv) router(actor likes.ActorID) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		if actor.Valid() {
			c.Set("actor", actor)
		}
		c.Next()
	})
	r.POST("/api/v1/posts/:id/like", e.handlers.ToggleLike)
	r.GET("/api/v1/posts/:id/likes", e.handlers.GetPostLikes)
	r.GET("/api/v1/posts/:id", e.handlers.GetPost)
	r.POST("/api/v1/likes/statuses", e.handlers.BatchLikeStatuses)
	r.POST("/api/v1/likes/migrate", e.handlers.MigrateLikes)
	r.POST("/api/v1/admin/reconcile", e.handlers.AdminReconcile)
	r.GET("/api/v1/feed", e.handlers.GetFeed)
	return r
}

package likes

import (
	"context"
	"errors"
	"sync"
)

var errStoreDown = errors.New("connection refused")

// fakeAtomicStore mimics the Redis primitives, including the atomicity of
// the toggle and move scripts, with a single lock.
type fakeAtomicStore struct {
	mu      sync.Mutex
	counts  map[string]int64
	sets    map[string]map[string]bool
	failing bool
}

func newFakeAtomicStore() *fakeAtomicStore {
	return &fakeAtomicStore{
		counts: make(map[string]int64),
		sets:   make(map[string]map[string]bool),
	}
}

func (f *fakeAtomicStore) set(key string) map[string]bool {
	s, ok := f.sets[key]
	if !ok {
		s = make(map[string]bool)
		f.sets[key] = s
	}
	return s
}

func (f *fakeAtomicStore) ToggleMember(_ context.Context, countKey, membersKey, actorKey, member, item string) (int64, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failing {
		return 0, false, errStoreDown
	}
	members := f.set(membersKey)
	reverse := f.set(actorKey)
	if members[member] {
		delete(members, member)
		delete(reverse, item)
		f.counts[countKey]--
		if f.counts[countKey] < 0 {
			f.counts[countKey] = 0
		}
		return f.counts[countKey], false, nil
	}
	members[member] = true
	reverse[item] = true
	f.counts[countKey]++
	return f.counts[countKey], true, nil
}

func (f *fakeAtomicStore) MoveMember(_ context.Context, countKey, membersKey, fromMember, toMember string) (int64, bool, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failing {
		return 0, false, false, errStoreDown
	}
	members := f.set(membersKey)
	if !members[fromMember] {
		return f.counts[countKey], false, false, nil
	}
	delete(members, fromMember)
	if members[toMember] {
		f.counts[countKey]--
		if f.counts[countKey] < 0 {
			f.counts[countKey] = 0
		}
		return f.counts[countKey], true, true, nil
	}
	members[toMember] = true
	return f.counts[countKey], true, false, nil
}

func (f *fakeAtomicStore) GetCounts(_ context.Context, keys []string) ([]*int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failing {
		return nil, errStoreDown
	}
	out := make([]*int64, len(keys))
	for i, k := range keys {
		if v, ok := f.counts[k]; ok {
			v := v
			out[i] = &v
		}
	}
	return out, nil
}

func (f *fakeAtomicStore) SetCount(_ context.Context, key string, value int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failing {
		return errStoreDown
	}
	f.counts[key] = value
	return nil
}

func (f *fakeAtomicStore) IsMember(_ context.Context, key, member string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failing {
		return false, errStoreDown
	}
	return f.sets[key][member], nil
}

func (f *fakeAtomicStore) AreMembers(_ context.Context, key string, members []string) ([]bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failing {
		return nil, errStoreDown
	}
	out := make([]bool, len(members))
	for i, m := range members {
		out[i] = f.sets[key][m]
	}
	return out, nil
}

func (f *fakeAtomicStore) Members(_ context.Context, key string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failing {
		return nil, errStoreDown
	}
	var out []string
	for m := range f.sets[key] {
		out = append(out, m)
	}
	return out, nil
}

func (f *fakeAtomicStore) AddMember(_ context.Context, key string, members ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failing {
		return errStoreDown
	}
	s := f.set(key)
	for _, m := range members {
		s[m] = true
	}
	return nil
}

func (f *fakeAtomicStore) RemoveMember(_ context.Context, key string, members ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failing {
		return errStoreDown
	}
	s := f.set(key)
	for _, m := range members {
		delete(s, m)
	}
	return nil
}

func (f *fakeAtomicStore) ReplaceSet(_ context.Context, key string, members []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failing {
		return errStoreDown
	}
	s := make(map[string]bool, len(members))
	for _, m := range members {
		s[m] = true
	}
	f.sets[key] = s
	return nil
}

func (f *fakeAtomicStore) cardinality(key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sets[key])
}

func (f *fakeAtomicStore) count(key string) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.counts[key]
}

func (f *fakeAtomicStore) fail(on bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failing = on
}

// fakeDurableStore mimics the likes table plus the posts.like_count column.
type fakeDurableStore struct {
	mu      sync.Mutex
	rows    map[string]map[string]bool // postID -> actor tags
	counts  map[string]int64           // postID -> like_count column
	failing bool
}

func newFakeDurableStore() *fakeDurableStore {
	return &fakeDurableStore{
		rows:   make(map[string]map[string]bool),
		counts: make(map[string]int64),
	}
}

func (f *fakeDurableStore) post(postID string) map[string]bool {
	p, ok := f.rows[postID]
	if !ok {
		p = make(map[string]bool)
		f.rows[postID] = p
	}
	return p
}

func (f *fakeDurableStore) UpsertLike(_ context.Context, postID, actorID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failing {
		return errStoreDown
	}
	f.post(postID)[actorID] = true
	return nil
}

func (f *fakeDurableStore) DeleteLike(_ context.Context, postID, actorID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failing {
		return errStoreDown
	}
	delete(f.post(postID), actorID)
	return nil
}

func (f *fakeDurableStore) HasLike(_ context.Context, postID, actorID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failing {
		return false, errStoreDown
	}
	return f.rows[postID][actorID], nil
}

func (f *fakeDurableStore) SetLikeCount(_ context.Context, postID string, count int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failing {
		return errStoreDown
	}
	if count < 0 {
		count = 0
	}
	f.counts[postID] = count
	return nil
}

func (f *fakeDurableStore) GetLikeCount(_ context.Context, postID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failing {
		return 0, errStoreDown
	}
	return f.counts[postID], nil
}

func (f *fakeDurableStore) GetLikeCounts(_ context.Context, postIDs []string) (map[string]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failing {
		return nil, errStoreDown
	}
	out := make(map[string]int64, len(postIDs))
	for _, id := range postIDs {
		if v, ok := f.counts[id]; ok {
			out[id] = v
		}
	}
	return out, nil
}

func (f *fakeDurableStore) GetLikedSet(_ context.Context, actorID string, postIDs []string) (map[string]bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failing {
		return nil, errStoreDown
	}
	out := make(map[string]bool, len(postIDs))
	for _, id := range postIDs {
		if f.rows[id][actorID] {
			out[id] = true
		}
	}
	return out, nil
}

func (f *fakeDurableStore) ListActorsForPost(_ context.Context, postID string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failing {
		return nil, errStoreDown
	}
	var out []string
	for a := range f.rows[postID] {
		out = append(out, a)
	}
	return out, nil
}

func (f *fakeDurableStore) ListPostsForActor(_ context.Context, actorID string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failing {
		return nil, errStoreDown
	}
	var out []string
	for postID, actors := range f.rows {
		if actors[actorID] {
			out = append(out, postID)
		}
	}
	return out, nil
}

func (f *fakeDurableStore) CountLikes(_ context.Context, postID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failing {
		return 0, errStoreDown
	}
	return int64(len(f.rows[postID])), nil
}

func (f *fakeDurableStore) MigrateActor(_ context.Context, fromActorID, toActorID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failing {
		return 0, errStoreDown
	}
	var moved int64
	for _, actors := range f.rows {
		if actors[fromActorID] {
			delete(actors, fromActorID)
			if !actors[toActorID] {
				actors[toActorID] = true
				moved++
			}
		}
	}
	return moved, nil
}

func (f *fakeDurableStore) hasRow(postID, actorTag string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rows[postID][actorTag]
}

func (f *fakeDurableStore) storedCount(postID string) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.counts[postID]
}

func (f *fakeDurableStore) fail(on bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failing = on
}

// fakeSampler returns a fixed list of post IDs.
type fakeSampler struct {
	ids []string
}

func (f *fakeSampler) SamplePostIDs(_ context.Context, limit int) ([]string, error) {
	if limit < len(f.ids) {
		return f.ids[:limit], nil
	}
	return f.ids, nil
}

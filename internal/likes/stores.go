package likes

import "context"

// AtomicStore is the Redis-shaped dependency of the engine. Implementations
// must guarantee that ToggleMember and MoveMember each execute atomically
// with respect to other callers on the same post; cache.RedisClient does so
// with server-side Lua scripts.
type AtomicStore interface {
	// ToggleMember flips member's presence in membersKey, mirrors the flip
	// for item in actorKey, and adjusts countKey (floored at zero), all in
	// one atomic execution. Returns the resulting count and liked state.
	ToggleMember(ctx context.Context, countKey, membersKey, actorKey, member, item string) (int64, bool, error)

	// MoveMember atomically replaces fromMember with toMember in membersKey.
	// If toMember was already present the two memberships merge and countKey
	// is decremented (floored at zero). moved reports that fromMember was
	// present at all; merged reports the collision case.
	MoveMember(ctx context.Context, countKey, membersKey, fromMember, toMember string) (count int64, moved, merged bool, err error)

	// GetCounts is a single-round-trip positional multi-get; nil entries are
	// missing counters.
	GetCounts(ctx context.Context, keys []string) ([]*int64, error)
	SetCount(ctx context.Context, key string, value int64) error

	IsMember(ctx context.Context, key, member string) (bool, error)
	// AreMembers is a single-round-trip positional batch membership check.
	AreMembers(ctx context.Context, key string, members []string) ([]bool, error)
	Members(ctx context.Context, key string) ([]string, error)
	AddMember(ctx context.Context, key string, members ...string) error
	RemoveMember(ctx context.Context, key string, members ...string) error
	// ReplaceSet deletes and repopulates a set; last writer wins.
	ReplaceSet(ctx context.Context, key string, members []string) error
}

// DurableStore is the Postgres-shaped dependency: the recovery mirror the
// sync service writes and fallback reads come from. Satisfied by
// repository.LikeRepository.
type DurableStore interface {
	UpsertLike(ctx context.Context, postID, actorID string) error
	DeleteLike(ctx context.Context, postID, actorID string) error
	HasLike(ctx context.Context, postID, actorID string) (bool, error)

	SetLikeCount(ctx context.Context, postID string, count int64) error
	GetLikeCount(ctx context.Context, postID string) (int64, error)
	GetLikeCounts(ctx context.Context, postIDs []string) (map[string]int64, error)
	GetLikedSet(ctx context.Context, actorID string, postIDs []string) (map[string]bool, error)

	ListActorsForPost(ctx context.Context, postID string) ([]string, error)
	ListPostsForActor(ctx context.Context, actorID string) ([]string, error)
	CountLikes(ctx context.Context, postID string) (int64, error)
	MigrateActor(ctx context.Context, fromActorID, toActorID string) (int64, error)
}

// PostSampler supplies post IDs for reconciliation passes. Satisfied by
// repository.PostRepository.
type PostSampler interface {
	SamplePostIDs(ctx context.Context, limit int) ([]string, error)
}

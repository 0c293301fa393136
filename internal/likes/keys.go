package likes

// Key naming shared by the counter service and the sync service. Both
// address the same Redis keys, so the scheme must not drift.
//
//	likes:count:{postID}    integer counter, equals SCARD of the members set
//	likes:members:{postID}  set of tagged actors who like the post
//	likes:actor:{tag}       reverse index: post IDs the actor likes
const (
	countKeyPrefix   = "likes:count:"
	membersKeyPrefix = "likes:members:"
	actorKeyPrefix   = "likes:actor:"

	// UpdatesChannel carries best-effort realtime count updates.
	UpdatesChannel = "likes:updates"
)

func countKey(postID string) string {
	return countKeyPrefix + postID
}

func membersKey(postID string) string {
	return membersKeyPrefix + postID
}

func actorKey(actor ActorID) string {
	return actorKeyPrefix + actor.Tag()
}

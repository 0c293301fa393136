// Package likes implements the like-counter consistency engine: an atomic
// Redis-backed counter with set membership as the live source of truth,
// asynchronously mirrored into Postgres and periodically reconciled.
package likes

import (
	"fmt"
	"strings"
)

// ActorKind distinguishes the two identity spaces an actor can come from.
type ActorKind string

const (
	// ActorPrincipal is a durable, cross-device account identity.
	ActorPrincipal ActorKind = "u"
	// ActorSession is an ephemeral, device-scoped anonymous session token.
	ActorSession ActorKind = "s"
)

// ActorID identifies who liked something. It is compared and stored by the
// full (kind, value) pair so a session token and a principal ID can never
// collide inside one membership set.
type ActorID struct {
	Kind  ActorKind
	Value string
}

// Principal builds an ActorID for an authenticated account.
func Principal(id string) ActorID {
	return ActorID{Kind: ActorPrincipal, Value: id}
}

// Session builds an ActorID for an anonymous session token.
func Session(token string) ActorID {
	return ActorID{Kind: ActorSession, Value: token}
}

// Valid reports whether the actor has a known kind and a non-empty value.
func (a ActorID) Valid() bool {
	if a.Value == "" {
		return false
	}
	return a.Kind == ActorPrincipal || a.Kind == ActorSession
}

// IsPrincipal reports whether the actor is an authenticated account.
func (a ActorID) IsPrincipal() bool {
	return a.Kind == ActorPrincipal
}

// Tag returns the prefix-tagged storage form ("u:<id>" or "s:<token>").
// This exact string is what lands in Redis sets and the likes.actor_id
// column, so it must stay stable across releases.
func (a ActorID) Tag() string {
	return string(a.Kind) + ":" + a.Value
}

// String implements fmt.Stringer.
func (a ActorID) String() string {
	return a.Tag()
}

// ParseActorTag parses the storage form back into an ActorID.
func ParseActorTag(tag string) (ActorID, error) {
	kind, value, ok := strings.Cut(tag, ":")
	if !ok || value == "" {
		return ActorID{}, fmt.Errorf("malformed actor tag %q", tag)
	}
	switch ActorKind(kind) {
	case ActorPrincipal, ActorSession:
		return ActorID{Kind: ActorKind(kind), Value: value}, nil
	default:
		return ActorID{}, fmt.Errorf("unknown actor kind %q", kind)
	}
}

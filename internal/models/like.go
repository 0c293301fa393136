package models

import (
	"time"
)

// Like is the durable record of a single (post, actor) like fact.
//
// ActorID is the tagged storage form produced by likes.ActorID ("u:<id>"
// for principals, "s:<token>" for anonymous sessions), so one table holds
// both kinds without collision. The unique index makes upserts idempotent:
// out-of-order duplicate syncs collapse onto one row.
type Like struct {
	ID      uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	PostID  string `gorm:"not null;uniqueIndex:uk_post_actor,priority:1;index" json:"post_id"`
	ActorID string `gorm:"not null;uniqueIndex:uk_post_actor,priority:2;index" json:"actor_id"`

	CreatedAt time.Time `json:"created_at"`
}

// TableName specifies the table name
func (Like) TableName() string {
	return "likes"
}

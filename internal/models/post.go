package models

import (
	"time"

	"gorm.io/gorm"
)

// Post is a photo post in the feed.
//
// LikeCount is the durable mirror of the Redis counter, written with
// absolute SET semantics by the sync service. During normal operation the
// Redis counter is the source of truth and this column may lag by the sync
// latency; views always overlay the live value through likes.Merger.
type Post struct {
	ID       string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	UserID   string `gorm:"not null;index" json:"user_id"`
	Caption  string `json:"caption"`
	ImageURL string `gorm:"not null" json:"image_url"`

	LikeCount int64 `gorm:"not null;default:0" json:"like_count"`

	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`

	CreatedAt time.Time      `gorm:"index" json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name
func (Post) TableName() string {
	return "posts"
}

// PostWithEngagement is the view-ready shape produced by the merge layer:
// the post content plus live count and the requesting actor's liked status.
type PostWithEngagement struct {
	Post
	IsLiked bool `json:"is_liked"`
}

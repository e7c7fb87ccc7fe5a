package bottle

import "time"

const (
	ReactionLike    = "like"
	ReactionDislike = "dislike"
)

// Bottle is immutable after creation except for the view counter and the
// active flag (soft delete).
type Bottle struct {
	ID         uint64    `gorm:"primaryKey"`
	UserID     uint64    `gorm:"index;not null"`
	Message    string    `gorm:"type:text;not null"`
	AuthorName string    `gorm:"not null;default:'anonymous'"`
	Views      uint64    `gorm:"not null;default:0"`
	IsActive   bool      `gorm:"not null;default:true"`
	CreatedAt  time.Time `gorm:"not null"`
}

// BottleView records that a user has been shown a bottle. Rows never expire,
// so the random selector keeps repeats out for good. Unique per
// (user_id, bottle_id), index added in db setup.
type BottleView struct {
	ID       uint64    `gorm:"primaryKey"`
	UserID   uint64    `gorm:"index;not null"`
	BottleID uint64    `gorm:"index;not null"`
	ViewedAt time.Time `gorm:"not null"`
}

// Reaction holds the single like/dislike a user has on a bottle. Changing
// the reaction overwrites kind and timestamp in place.
type Reaction struct {
	ID        uint64    `gorm:"primaryKey"`
	UserID    uint64    `gorm:"index;not null"`
	BottleID  uint64    `gorm:"index;not null"`
	Kind      string    `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null"`
}

func (Reaction) TableName() string { return "bottle_reactions" }

// SavedBottle is a user's bookmark of a bottle with a short annotation.
type SavedBottle struct {
	ID         uint64    `gorm:"primaryKey"`
	UserID     uint64    `gorm:"index;not null"`
	BottleID   uint64    `gorm:"index;not null"`
	Annotation string    `gorm:"not null;default:''"`
	SavedAt    time.Time `gorm:"not null"`
}

func (SavedBottle) TableName() string { return "bottle_saves" }

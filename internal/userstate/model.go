package userstate

import "time"

const (
	ViewPick  = "pick"
	ViewWrite = "write"
)

// UserState is the per-user daily gate row, one per account.
//
// HasPickedToday/HasThrownToday are only meaningful together with their date
// column: a stored true with a stale date means the day rolled over and the
// gate is open again. The flag is recomputed at read time (see Service.Get);
// no job ever resets it.
type UserState struct {
	UserID          uint64 `gorm:"primaryKey"`
	HasPickedToday  bool   `gorm:"not null;default:false"`
	HasThrownToday  bool   `gorm:"not null;default:false"`
	LastPickDate    *time.Time
	LastThrowDate   *time.Time
	CurrentView     string    `gorm:"not null;default:'pick'"`
	DevMode         bool      `gorm:"not null;default:false"`
	HasSeenTutorial bool      `gorm:"not null;default:false"`
	UpdatedAt       time.Time `gorm:"not null"`
}

func (UserState) TableName() string { return "user_states" }

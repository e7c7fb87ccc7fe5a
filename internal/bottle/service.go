package bottle

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	MaxMessageLen    = 500
	MaxAnnotationLen = 10
)

var (
	ErrEmptyMessage    = errors.New("message is empty")
	ErrMessageTooLong  = errors.New("message too long")
	ErrNotFound        = errors.New("bottle not found")
	ErrNoBottles       = errors.New("no bottles available")
	ErrInvalidReaction = errors.New("invalid reaction type")
	ErrAlreadySaved    = errors.New("bottle already saved")
	ErrSaveNotFound    = errors.New("save not found")
)

type Service struct {
	DB *gorm.DB

	// AnonymousUserID owns bottles thrown without a login, so every bottle
	// has a non-null account behind it.
	AnonymousUserID uint64
}

// Stats holds the recomputed reaction aggregates for a bottle. Counts are
// never denormalized onto the bottle row.
type Stats struct {
	Likes        int64
	Dislikes     int64
	UserReaction *string
}

func (s *Service) Create(ctx context.Context, userID *uint64, message, authorName string) (*Bottle, error) {
	if strings.TrimSpace(message) == "" {
		return nil, ErrEmptyMessage
	}
	if utf8.RuneCountInString(message) > MaxMessageLen {
		return nil, ErrMessageTooLong
	}

	owner := s.AnonymousUserID
	if userID != nil {
		owner = *userID
	}
	authorName = strings.TrimSpace(authorName)
	if authorName == "" {
		authorName = "anonymous"
	}

	b := Bottle{
		UserID:     owner,
		Message:    message,
		AuthorName: authorName,
		IsActive:   true,
	}
	if err := s.DB.WithContext(ctx).Create(&b).Error; err != nil {
		return nil, err
	}
	return &b, nil
}

// Random picks one active bottle the caller has not viewed yet, uniformly at
// random, and records the exposure: the view row is upserted and the view
// counter incremented by one, atomically in a single UPDATE. Anonymous
// callers get a random active bottle with no history recorded.
func (s *Service) Random(ctx context.Context, userID *uint64) (*Bottle, Stats, error) {
	var b Bottle
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		q := tx.Where("is_active = ?", true)
		if userID != nil {
			q = q.Where("id NOT IN (?)",
				tx.Model(&BottleView{}).Select("bottle_id").Where("user_id = ?", *userID))
		}
		if err := q.Order("random()").First(&b).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNoBottles
			}
			return err
		}

		if userID == nil {
			return nil
		}

		view := BottleView{UserID: *userID, BottleID: b.ID, ViewedAt: time.Now()}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "bottle_id"}},
			DoUpdates: clause.Assignments(map[string]any{"viewed_at": view.ViewedAt}),
		}).Create(&view).Error; err != nil {
			return err
		}

		if err := tx.Model(&Bottle{}).Where("id = ?", b.ID).
			UpdateColumn("views", gorm.Expr("views + 1")).Error; err != nil {
			return err
		}
		b.Views++
		return nil
	})
	if err != nil {
		return nil, Stats{}, err
	}

	stats, err := s.stats(ctx, userID, b.ID)
	if err != nil {
		return nil, Stats{}, err
	}
	return &b, stats, nil
}

// Get returns a bottle by id with its aggregates. Reading a bottle you
// already opened does not touch the view counter.
func (s *Service) Get(ctx context.Context, userID *uint64, bottleID uint64) (*Bottle, Stats, error) {
	var b Bottle
	if err := s.DB.WithContext(ctx).
		Where("id = ? AND is_active = ?", bottleID, true).
		First(&b).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, Stats{}, ErrNotFound
		}
		return nil, Stats{}, err
	}

	stats, err := s.stats(ctx, userID, b.ID)
	if err != nil {
		return nil, Stats{}, err
	}
	return &b, stats, nil
}

// React records the caller's like/dislike. A second reaction from the same
// user overwrites the first in place; there is never more than one row per
// (user, bottle).
func (s *Service) React(ctx context.Context, userID, bottleID uint64, kind string) (Stats, error) {
	if kind != ReactionLike && kind != ReactionDislike {
		return Stats{}, ErrInvalidReaction
	}

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := activeBottleExists(tx, bottleID); err != nil {
			return err
		}

		now := time.Now()
		re := Reaction{UserID: userID, BottleID: bottleID, Kind: kind, CreatedAt: now}
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "bottle_id"}},
			DoUpdates: clause.Assignments(map[string]any{"kind": kind, "created_at": now}),
		}).Create(&re).Error
	})
	if err != nil {
		return Stats{}, err
	}

	return s.stats(ctx, &userID, bottleID)
}

func (s *Service) Save(ctx context.Context, userID, bottleID uint64, annotation string) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := activeBottleExists(tx, bottleID); err != nil {
			return err
		}

		save := SavedBottle{
			UserID:     userID,
			BottleID:   bottleID,
			Annotation: truncate(annotation, MaxAnnotationLen),
			SavedAt:    time.Now(),
		}
		if err := tx.Create(&save).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrAlreadySaved
			}
			return err
		}
		return nil
	})
}

func (s *Service) Unsave(ctx context.Context, userID, bottleID uint64) error {
	res := s.DB.WithContext(ctx).
		Where("user_id = ? AND bottle_id = ?", userID, bottleID).
		Delete(&SavedBottle{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrSaveNotFound
	}
	return nil
}

// SavedRow is one entry of a user's saved list, joined with the bottle and
// its current reaction counts.
type SavedRow struct {
	ID         uint64    `gorm:"column:id"`
	Message    string    `gorm:"column:message"`
	AuthorName string    `gorm:"column:author_name"`
	CreatedAt  time.Time `gorm:"column:created_at"`
	Views      uint64    `gorm:"column:views"`
	SavedAt    time.Time `gorm:"column:saved_at"`
	Annotation string    `gorm:"column:annotation"`
	Likes      int64     `gorm:"column:likes"`
	Dislikes   int64     `gorm:"column:dislikes"`
}

func (s *Service) ListSaved(ctx context.Context, userID uint64) ([]SavedRow, error) {
	var rows []SavedRow
	err := s.DB.WithContext(ctx).Raw(`
select b.id, b.message, b.author_name, b.created_at, b.views,
       s.saved_at, s.annotation,
       count(case when r.kind = 'like' then 1 end) as likes,
       count(case when r.kind = 'dislike' then 1 end) as dislikes
from bottle_saves s
join bottles b on b.id = s.bottle_id
left join bottle_reactions r on r.bottle_id = b.id
where s.user_id = ? and b.is_active = ?
group by b.id, b.message, b.author_name, b.created_at, b.views, s.saved_at, s.annotation
order by s.saved_at desc
`, userID, true).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *Service) stats(ctx context.Context, userID *uint64, bottleID uint64) (Stats, error) {
	var stats Stats
	db := s.DB.WithContext(ctx)

	if err := db.Model(&Reaction{}).
		Where("bottle_id = ? AND kind = ?", bottleID, ReactionLike).
		Count(&stats.Likes).Error; err != nil {
		return Stats{}, err
	}
	if err := db.Model(&Reaction{}).
		Where("bottle_id = ? AND kind = ?", bottleID, ReactionDislike).
		Count(&stats.Dislikes).Error; err != nil {
		return Stats{}, err
	}

	if userID != nil {
		var re Reaction
		err := db.Where("user_id = ? AND bottle_id = ?", *userID, bottleID).First(&re).Error
		switch {
		case err == nil:
			stats.UserReaction = &re.Kind
		case errors.Is(err, gorm.ErrRecordNotFound):
		default:
			return Stats{}, err
		}
	}
	return stats, nil
}

func activeBottleExists(tx *gorm.DB, bottleID uint64) error {
	var count int64
	if err := tx.Model(&Bottle{}).
		Where("id = ? AND is_active = ?", bottleID, true).
		Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return ErrNotFound
	}
	return nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

package userstate

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

var (
	ErrAlreadyPicked = errors.New("already picked today")
	ErrAlreadyThrown = errors.New("already thrown today")
	ErrInvalidView   = errors.New("invalid view")
)

type Service struct {
	DB *gorm.DB

	// Now is overridable so tests can pin the calendar day.
	Now func() time.Time
}

// UpdateInput is a sparse update: nil fields are left untouched.
type UpdateInput struct {
	HasPickedToday  *bool
	HasThrownToday  *bool
	CurrentView     *string
	DevMode         *bool
	HasSeenTutorial *bool
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// today returns midnight of the current local calendar day.
func (s *Service) today() time.Time {
	n := s.now()
	return time.Date(n.Year(), n.Month(), n.Day(), 0, 0, 0, 0, n.Location())
}

func sameDay(d *time.Time, today time.Time) bool {
	return d != nil && d.Format("2006-01-02") == today.Format("2006-01-02")
}

// Get returns the caller's daily state, creating the default row on first
// access. Gate flags are reported through the lazy-reset rule: a flag whose
// date is not today counts as false, and the stale flag is written back so
// the stored row converges.
func (s *Service) Get(ctx context.Context, userID uint64) (*UserState, error) {
	var st UserState
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where(UserState{UserID: userID}).
			Attrs(UserState{CurrentView: ViewPick}).
			FirstOrCreate(&st).Error; err != nil {
			return err
		}

		today := s.today()
		resets := map[string]any{}
		if st.HasPickedToday && !sameDay(st.LastPickDate, today) {
			st.HasPickedToday = false
			resets["has_picked_today"] = false
		}
		if st.HasThrownToday && !sameDay(st.LastThrowDate, today) {
			st.HasThrownToday = false
			resets["has_thrown_today"] = false
		}
		if len(resets) == 0 {
			return nil
		}
		return tx.Model(&UserState{}).Where("user_id = ?", userID).Updates(resets).Error
	})
	if err != nil {
		return nil, err
	}
	return &st, nil
}

// RecordPick consumes today's pick gate. In developer mode the gate is never
// consumed: the call succeeds and nothing is persisted, so the stored state
// keeps reporting the gate as open.
func (s *Service) RecordPick(ctx context.Context, userID uint64) (*UserState, error) {
	return s.record(ctx, userID, false)
}

// RecordThrow consumes today's throw gate, symmetric to RecordPick.
func (s *Service) RecordThrow(ctx context.Context, userID uint64) (*UserState, error) {
	return s.record(ctx, userID, true)
}

func (s *Service) record(ctx context.Context, userID uint64, throw bool) (*UserState, error) {
	var st UserState
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where(UserState{UserID: userID}).
			Attrs(UserState{CurrentView: ViewPick}).
			FirstOrCreate(&st).Error; err != nil {
			return err
		}

		today := s.today()
		if throw {
			consumed := st.HasThrownToday && sameDay(st.LastThrowDate, today)
			if st.DevMode {
				st.HasThrownToday = false
				return nil
			}
			if consumed {
				return ErrAlreadyThrown
			}
			st.HasThrownToday = true
			st.LastThrowDate = &today
		} else {
			consumed := st.HasPickedToday && sameDay(st.LastPickDate, today)
			if st.DevMode {
				st.HasPickedToday = false
				return nil
			}
			if consumed {
				return ErrAlreadyPicked
			}
			st.HasPickedToday = true
			st.LastPickDate = &today
		}
		return tx.Save(&st).Error
	})
	if err != nil {
		return nil, err
	}
	return &st, nil
}

// Update applies a sparse set of field changes. Setting a gate flag true
// stamps today's date, setting it false clears the date. An explicit devMode
// change goes through the toggle semantics: both gates and the current view
// reset, so leaving developer mode never resumes a half-consumed day.
func (s *Service) Update(ctx context.Context, userID uint64, in UpdateInput) (*UserState, error) {
	if in.CurrentView != nil && *in.CurrentView != ViewPick && *in.CurrentView != ViewWrite {
		return nil, ErrInvalidView
	}

	var st UserState
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where(UserState{UserID: userID}).
			Attrs(UserState{CurrentView: ViewPick}).
			FirstOrCreate(&st).Error; err != nil {
			return err
		}

		today := s.today()

		if in.DevMode != nil && *in.DevMode != st.DevMode {
			st.DevMode = *in.DevMode
			resetGates(&st)
		}
		if in.HasPickedToday != nil {
			st.HasPickedToday = *in.HasPickedToday
			if *in.HasPickedToday {
				st.LastPickDate = &today
			} else {
				st.LastPickDate = nil
			}
		}
		if in.HasThrownToday != nil {
			st.HasThrownToday = *in.HasThrownToday
			if *in.HasThrownToday {
				st.LastThrowDate = &today
			} else {
				st.LastThrowDate = nil
			}
		}
		if in.CurrentView != nil {
			st.CurrentView = *in.CurrentView
		}
		if in.HasSeenTutorial != nil {
			st.HasSeenTutorial = *in.HasSeenTutorial
		}

		return tx.Save(&st).Error
	})
	if err != nil {
		return nil, err
	}
	return &st, nil
}

// ToggleDeveloperMode flips devMode. Either transition starts from a clean
// slate: gates reopen, dates clear, and the view returns to pick.
func (s *Service) ToggleDeveloperMode(ctx context.Context, userID uint64) (*UserState, error) {
	var st UserState
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where(UserState{UserID: userID}).
			Attrs(UserState{CurrentView: ViewPick}).
			FirstOrCreate(&st).Error; err != nil {
			return err
		}
		st.DevMode = !st.DevMode
		resetGates(&st)
		return tx.Save(&st).Error
	})
	if err != nil {
		return nil, err
	}
	return &st, nil
}

func resetGates(st *UserState) {
	st.HasPickedToday = false
	st.HasThrownToday = false
	st.LastPickDate = nil
	st.LastThrowDate = nil
	st.CurrentView = ViewPick
}

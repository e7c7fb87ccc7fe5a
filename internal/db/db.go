package db

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"

	"driftbottle/internal/auth"
	"driftbottle/internal/bottle"
	"driftbottle/internal/userstate"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func Connect(dsn string) (*gorm.DB, error) {
	// TranslateError so unique violations surface as gorm.ErrDuplicatedKey.
	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, err
	}
	return gdb, nil
}

func AutoMigrateAndIndexes(gdb *gorm.DB) error {
	// Tables
	if err := gdb.AutoMigrate(
		&auth.User{},
		&userstate.UserState{},
		&bottle.Bottle{},
		&bottle.BottleView{},
		&bottle.Reaction{},
		&bottle.SavedBottle{},
	); err != nil {
		return err
	}

	// One row per (user, bottle) for views, reactions and saves. The view
	// index also backs the ON CONFLICT upsert in the random selector.
	stmts := []string{
		`create unique index if not exists uq_bottle_views_user_bottle on bottle_views(user_id, bottle_id);`,
		`create unique index if not exists uq_bottle_reactions_user_bottle on bottle_reactions(user_id, bottle_id);`,
		`create unique index if not exists uq_bottle_saves_user_bottle on bottle_saves(user_id, bottle_id);`,
		`create index if not exists idx_bottles_active on bottles(is_active, id);`,
		`create index if not exists idx_bottle_saves_user_saved on bottle_saves(user_id, saved_at desc);`,
	}
	for _, s := range stmts {
		if err := gdb.Exec(s).Error; err != nil {
			return fmt.Errorf("index exec failed: %w (sql=%s)", err, s)
		}
	}

	return nil
}

// EnsureAnonymousUser seeds the placeholder account that owns bottles thrown
// without a login. Its password hash is random and never disclosed, so the
// account cannot be logged into.
func EnsureAnonymousUser(gdb *gorm.DB, username string) (uint64, error) {
	var u auth.User
	err := gdb.Where("username = ?", username).First(&u).Error
	if err == nil {
		return u.ID, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, err
	}

	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return 0, err
	}
	hash, err := auth.HashPassword(hex.EncodeToString(buf))
	if err != nil {
		return 0, err
	}

	u = auth.User{Username: username, PasswordHash: hash, IsActive: true}
	if err := gdb.Create(&u).Error; err != nil {
		return 0, err
	}
	return u.ID, nil
}

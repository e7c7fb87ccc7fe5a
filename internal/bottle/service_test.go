package bottle_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"driftbottle/internal/auth"
	"driftbottle/internal/bottle"
	"driftbottle/internal/db"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrateAndIndexes(gdb))
	return gdb
}

func newService(t *testing.T) (*bottle.Service, *gorm.DB) {
	t.Helper()
	gdb := newTestDB(t)
	anonID, err := db.EnsureAnonymousUser(gdb, "anonymous")
	require.NoError(t, err)
	return &bottle.Service{DB: gdb, AnonymousUserID: anonID}, gdb
}

func createUser(t *testing.T, gdb *gorm.DB, name string) uint64 {
	t.Helper()
	u := auth.User{Username: name, PasswordHash: "x", IsActive: true}
	require.NoError(t, gdb.Create(&u).Error)
	return u.ID
}

func TestCreateValidation(t *testing.T) {
	svc, gdb := newService(t)
	uid := createUser(t, gdb, "alice")
	ctx := context.Background()

	_, err := svc.Create(ctx, &uid, "   ", "alice")
	assert.ErrorIs(t, err, bottle.ErrEmptyMessage)

	_, err = svc.Create(ctx, &uid, strings.Repeat("x", 501), "alice")
	assert.ErrorIs(t, err, bottle.ErrMessageTooLong)

	b, err := svc.Create(ctx, &uid, strings.Repeat("x", 500), "alice")
	assert.Nil(t, err)
	assert.Equal(t, uid, b.UserID)
	assert.True(t, b.IsActive)
}

func TestCreateAnonymousAttribution(t *testing.T) {
	svc, _ := newService(t)

	b, err := svc.Create(context.Background(), nil, "set adrift", "")
	assert.Nil(t, err)
	assert.Equal(t, svc.AnonymousUserID, b.UserID)
	assert.Equal(t, "anonymous", b.AuthorName)
}

func TestRandomSkipsViewed(t *testing.T) {
	svc, gdb := newService(t)
	uid := createUser(t, gdb, "alice")
	author := createUser(t, gdb, "bob")
	ctx := context.Background()

	b1, err := svc.Create(ctx, &author, "first", "bob")
	require.NoError(t, err)
	b2, err := svc.Create(ctx, &author, "second", "bob")
	require.NoError(t, err)

	// alice has already seen b1
	require.NoError(t, gdb.Create(&bottle.BottleView{
		UserID: uid, BottleID: b1.ID, ViewedAt: time.Now(),
	}).Error)

	got, stats, err := svc.Random(ctx, &uid)
	assert.Nil(t, err)
	assert.Equal(t, b2.ID, got.ID)
	assert.Equal(t, uint64(1), got.Views)
	assert.Equal(t, int64(0), stats.Likes)
	assert.Equal(t, int64(0), stats.Dislikes)
	assert.Nil(t, stats.UserReaction)

	// view recorded, counter persisted
	var stored bottle.Bottle
	require.NoError(t, gdb.First(&stored, b2.ID).Error)
	assert.Equal(t, uint64(1), stored.Views)

	// pool exhausted now
	_, _, err = svc.Random(ctx, &uid)
	assert.ErrorIs(t, err, bottle.ErrNoBottles)

	// exhaustion does not bump any counter
	require.NoError(t, gdb.First(&stored, b2.ID).Error)
	assert.Equal(t, uint64(1), stored.Views)
}

func TestRandomSkipsInactive(t *testing.T) {
	svc, gdb := newService(t)
	uid := createUser(t, gdb, "alice")
	ctx := context.Background()

	b, err := svc.Create(ctx, nil, "sunk", "")
	require.NoError(t, err)
	require.NoError(t, gdb.Model(&bottle.Bottle{}).Where("id = ?", b.ID).
		Update("is_active", false).Error)

	_, _, err = svc.Random(ctx, &uid)
	assert.ErrorIs(t, err, bottle.ErrNoBottles)
}

func TestRandomAnonymousLeavesNoHistory(t *testing.T) {
	svc, gdb := newService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, nil, "hello", "")
	require.NoError(t, err)

	_, _, err = svc.Random(ctx, nil)
	assert.Nil(t, err)

	var count int64
	require.NoError(t, gdb.Model(&bottle.BottleView{}).Count(&count).Error)
	assert.Equal(t, int64(0), count)
}

func TestReactOverwrites(t *testing.T) {
	svc, gdb := newService(t)
	uid := createUser(t, gdb, "alice")
	ctx := context.Background()

	b, err := svc.Create(ctx, nil, "hello", "")
	require.NoError(t, err)

	stats, err := svc.React(ctx, uid, b.ID, bottle.ReactionLike)
	assert.Nil(t, err)
	assert.Equal(t, int64(1), stats.Likes)
	assert.Equal(t, int64(0), stats.Dislikes)
	require.NotNil(t, stats.UserReaction)
	assert.Equal(t, bottle.ReactionLike, *stats.UserReaction)

	stats, err = svc.React(ctx, uid, b.ID, bottle.ReactionDislike)
	assert.Nil(t, err)
	assert.Equal(t, int64(0), stats.Likes)
	assert.Equal(t, int64(1), stats.Dislikes)

	// overwrite, never a second row
	var count int64
	require.NoError(t, gdb.Model(&bottle.Reaction{}).
		Where("user_id = ? AND bottle_id = ?", uid, b.ID).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	// repeating the same kind is idempotent
	stats, err = svc.React(ctx, uid, b.ID, bottle.ReactionDislike)
	assert.Nil(t, err)
	assert.Equal(t, int64(1), stats.Dislikes)
}

func TestReactErrors(t *testing.T) {
	svc, gdb := newService(t)
	uid := createUser(t, gdb, "alice")
	ctx := context.Background()

	_, err := svc.React(ctx, uid, 1, "love")
	assert.ErrorIs(t, err, bottle.ErrInvalidReaction)

	_, err = svc.React(ctx, uid, 9999, bottle.ReactionLike)
	assert.ErrorIs(t, err, bottle.ErrNotFound)

	b, err := svc.Create(ctx, nil, "hello", "")
	require.NoError(t, err)
	require.NoError(t, gdb.Model(&bottle.Bottle{}).Where("id = ?", b.ID).
		Update("is_active", false).Error)

	_, err = svc.React(ctx, uid, b.ID, bottle.ReactionLike)
	assert.ErrorIs(t, err, bottle.ErrNotFound)
}

func TestSaveTruncatesAnnotation(t *testing.T) {
	svc, gdb := newService(t)
	uid := createUser(t, gdb, "alice")
	ctx := context.Background()

	b, err := svc.Create(ctx, nil, "hello", "")
	require.NoError(t, err)

	require.NoError(t, svc.Save(ctx, uid, b.ID, "this is a very long note"))

	var saved bottle.SavedBottle
	require.NoError(t, gdb.Where("user_id = ? AND bottle_id = ?", uid, b.ID).
		First(&saved).Error)
	assert.Equal(t, "this is a ", saved.Annotation)
}

func TestSaveDuplicate(t *testing.T) {
	svc, gdb := newService(t)
	uid := createUser(t, gdb, "alice")
	ctx := context.Background()

	b, err := svc.Create(ctx, nil, "hello", "")
	require.NoError(t, err)

	require.NoError(t, svc.Save(ctx, uid, b.ID, "note"))
	assert.ErrorIs(t, svc.Save(ctx, uid, b.ID, "again"), bottle.ErrAlreadySaved)
}

func TestSaveMissingBottle(t *testing.T) {
	svc, gdb := newService(t)
	uid := createUser(t, gdb, "alice")

	assert.ErrorIs(t, svc.Save(context.Background(), uid, 9999, ""), bottle.ErrNotFound)
}

func TestUnsave(t *testing.T) {
	svc, gdb := newService(t)
	uid := createUser(t, gdb, "alice")
	ctx := context.Background()

	b, err := svc.Create(ctx, nil, "hello", "")
	require.NoError(t, err)

	assert.ErrorIs(t, svc.Unsave(ctx, uid, b.ID), bottle.ErrSaveNotFound)

	require.NoError(t, svc.Save(ctx, uid, b.ID, ""))
	assert.Nil(t, svc.Unsave(ctx, uid, b.ID))
	assert.ErrorIs(t, svc.Unsave(ctx, uid, b.ID), bottle.ErrSaveNotFound)
}

func TestListSavedOrderAndAggregates(t *testing.T) {
	svc, gdb := newService(t)
	uid := createUser(t, gdb, "alice")
	other := createUser(t, gdb, "bob")
	ctx := context.Background()

	b1, err := svc.Create(ctx, nil, "first", "")
	require.NoError(t, err)
	b2, err := svc.Create(ctx, nil, "second", "")
	require.NoError(t, err)

	_, err = svc.React(ctx, uid, b1.ID, bottle.ReactionLike)
	require.NoError(t, err)
	_, err = svc.React(ctx, other, b1.ID, bottle.ReactionDislike)
	require.NoError(t, err)

	require.NoError(t, svc.Save(ctx, uid, b1.ID, "old"))
	require.NoError(t, svc.Save(ctx, uid, b2.ID, "new"))
	// make the second save strictly more recent
	require.NoError(t, gdb.Model(&bottle.SavedBottle{}).
		Where("user_id = ? AND bottle_id = ?", uid, b2.ID).
		Update("saved_at", time.Now().Add(time.Minute)).Error)

	rows, err := svc.ListSaved(ctx, uid)
	assert.Nil(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, b2.ID, rows[0].ID)
	assert.Equal(t, b1.ID, rows[1].ID)
	assert.Equal(t, int64(1), rows[1].Likes)
	assert.Equal(t, int64(1), rows[1].Dislikes)
	assert.Equal(t, "old", rows[1].Annotation)
}

package database

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"mvp/internal/config"
)

func strPtr(s string) *string { return &s }

func openMemory(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := Open(&config.Config{DBDriver: "sqlite", DBDSN: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = Close(db) })
	return db
}

func TestOpen_MigratesSchema(t *testing.T) {
	db := openMemory(t)

	for _, model := range PersistentModels() {
		assert.True(t, db.Migrator().HasTable(model), "missing table for %T", model)
	}
	assert.NoError(t, Migrate(db), "migration must be repeatable")
}

func TestSocialPostsView(t *testing.T) {
	db := openMemory(t)

	require.NoError(t, db.Create(&Profile{ID: "u1", Username: "alice", ProfileImage: strPtr("https://img/a.jpg")}).Error)
	require.NoError(t, db.Create(&Post{ID: "p1", UserID: "u1", Message: strPtr("hi"), CreatedAt: strPtr("2025-01-01T00:00:00.000000Z")}).Error)
	require.NoError(t, db.Create(&Post{ID: "p2", UserID: "ghost", Message: strPtr("orphan")}).Error)

	var rows []map[string]interface{}
	require.NoError(t, db.Table(SocialPostsView).Order(`"id"`).Find(&rows).Error)
	require.Len(t, rows, 2)

	assert.Equal(t, "u1", rows[0]["userId"])
	assert.Equal(t, "alice", rows[0]["username"])
	assert.Equal(t, "https://img/a.jpg", rows[0]["profileImage"])
	assert.Equal(t, "2025-01-01T00:00:00.000000Z", rows[0]["createdAt"])
	assert.Nil(t, rows[1]["username"])
}

func TestUniqueLikes(t *testing.T) {
	db := openMemory(t)

	require.NoError(t, db.Create(&Like{ID: "l1", PostID: "p1", UserID: "u1"}).Error)
	err := db.Create(&Like{ID: "l2", PostID: "p1", UserID: "u1"}).Error
	assert.True(t, errors.Is(err, gorm.ErrDuplicatedKey), "got %v", err)

	require.NoError(t, db.Create(&CommentLike{ID: "c1", CommentID: "c", UserID: "u1"}).Error)
	err = db.Create(&CommentLike{ID: "c2", CommentID: "c", UserID: "u1"}).Error
	assert.True(t, errors.Is(err, gorm.ErrDuplicatedKey), "got %v", err)

	assert.NoError(t, db.Create(&Like{ID: "l3", PostID: "p1", UserID: "u2"}).Error)
}

func TestDialector(t *testing.T) {
	t.Parallel()

	d, err := Dialector("sqlite", ":memory:")
	require.NoError(t, err)
	assert.Equal(t, "sqlite", d.Name())

	d, err = Dialector("postgres", "host=localhost")
	require.NoError(t, err)
	assert.Equal(t, "postgres", d.Name())

	_, err = Dialector("mysql", "")
	assert.ErrorContains(t, err, "unsupported database driver")
}

func TestConfigurePool(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, configurePool(db, "sqlite"))
	sqlDB, err := db.DB()
	require.NoError(t, err)
	assert.Equal(t, 1, sqlDB.Stats().MaxOpenConnections)

	require.NoError(t, configurePool(db, "postgres"))
	assert.Equal(t, 25, sqlDB.Stats().MaxOpenConnections)
}

func TestClose_Postgres(t *testing.T) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: conn}), &gorm.Config{})
	require.NoError(t, err)

	mock.ExpectClose()
	assert.NoError(t, Close(db))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCustomGormLogger_Trace(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	l := NewGormLogger(slog.New(slog.NewTextHandler(&buf, nil)))
	ctx := context.Background()
	sql := func() (string, int64) { return "SELECT 1", 1 }

	l.Trace(ctx, time.Now(), sql, gorm.ErrRecordNotFound)
	l.Trace(ctx, time.Now(), sql, gorm.ErrDuplicatedKey)
	assert.Empty(t, buf.String())

	l.Trace(ctx, time.Now(), sql, errors.New("boom"))
	assert.Contains(t, buf.String(), "GORM query error")
	assert.Contains(t, buf.String(), "boom")

	buf.Reset()
	l.Trace(ctx, time.Now().Add(-time.Second), sql, nil)
	assert.Contains(t, buf.String(), "GORM slow query")

	buf.Reset()
	l.LogMode(logger.Silent).Trace(ctx, time.Now(), sql, errors.New("boom"))
	assert.Empty(t, buf.String())
}

package moderation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/anoixa/story-overlay/database"
	"github.com/anoixa/story-overlay/database/models"
	"github.com/anoixa/story-overlay/database/repo/records"
)

func setupService(t *testing.T) (*Service, *records.Repository) {
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, database.AutoMigrate(db))

	repo := records.NewRepository(db)
	return NewService(repo), repo
}

func submit(t *testing.T, repo *records.Repository, forURL, filename string) {
	t.Helper()
	require.NoError(t, repo.Upsert(context.Background(), &models.ImageRecord{
		ForURL:   forURL,
		Filename: filename,
		OnPage:   forURL,
	}))
}

func TestAccept_PendingRecord(t *testing.T) {
	svc, repo := setupService(t)
	ctx := context.Background()

	submit(t, repo, "/story/1", "a.gif")
	require.NoError(t, svc.Accept(ctx, "/story/1", "a.gif"))

	record, err := repo.GetAccepted(ctx, "/story/1")
	require.NoError(t, err)
	assert.Equal(t, "a.gif", record.Filename)
}

func TestAccept_IsIdempotent(t *testing.T) {
	svc, repo := setupService(t)
	ctx := context.Background()

	submit(t, repo, "/story/1", "a.gif")
	require.NoError(t, svc.Accept(ctx, "/story/1", "a.gif"))
	require.NoError(t, svc.Accept(ctx, "/story/1", "a.gif"))

	record, err := repo.GetAccepted(ctx, "/story/1")
	require.NoError(t, err)
	assert.Equal(t, "a.gif", record.Filename)
}

func TestAccept_MissingRecordIsNoop(t *testing.T) {
	svc, _ := setupService(t)
	assert.NoError(t, svc.Accept(context.Background(), "/story/1", "missing.gif"))
}

func TestAccept_SecondImageForPageConflicts(t *testing.T) {
	svc, repo := setupService(t)
	ctx := context.Background()

	submit(t, repo, "/story/1", "a.gif")
	submit(t, repo, "/story/1", "b.gif")
	require.NoError(t, svc.Accept(ctx, "/story/1", "a.gif"))

	err := svc.Accept(ctx, "/story/1", "b.gif")
	assert.ErrorIs(t, err, ErrAcceptConflict)

	// 先到的采纳不受影响
	record, err := repo.GetAccepted(ctx, "/story/1")
	require.NoError(t, err)
	assert.Equal(t, "a.gif", record.Filename)
}

func TestReject_TerminalStatesDoNotFlip(t *testing.T) {
	svc, repo := setupService(t)
	ctx := context.Background()

	submit(t, repo, "/story/1", "a.gif")
	require.NoError(t, svc.Reject(ctx, "/story/1", "a.gif"))

	// 屏蔽后采纳是静默空操作
	require.NoError(t, svc.Accept(ctx, "/story/1", "a.gif"))
	_, err := repo.GetAccepted(ctx, "/story/1")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	// 采纳后的屏蔽同样是空操作
	submit(t, repo, "/story/2", "b.gif")
	require.NoError(t, svc.Accept(ctx, "/story/2", "b.gif"))
	require.NoError(t, svc.Reject(ctx, "/story/2", "b.gif"))
	record, err := repo.GetAccepted(ctx, "/story/2")
	require.NoError(t, err)
	assert.Equal(t, "b.gif", record.Filename)
}

package credits

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

func acceptSubmission(t *testing.T, repo *records.Repository, forURL, filename, onPage, credits string) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, repo.Upsert(ctx, &models.ImageRecord{
		ForURL:   forURL,
		Filename: filename,
		OnPage:   onPage,
		Credits:  credits,
	}))
	changed, err := repo.Accept(ctx, forURL, filename)
	require.NoError(t, err)
	require.True(t, changed)
}

func TestReport_Empty(t *testing.T) {
	svc, _ := setupService(t)

	report, err := svc.Report(context.Background())
	require.NoError(t, err)
	assert.Zero(t, report.TotalAccepted)
	assert.Zero(t, report.DistinctCredits)
	assert.Empty(t, report.Groups)
}

func TestReport_GroupsAdjacentPages(t *testing.T) {
	svc, repo := setupService(t)

	acceptSubmission(t, repo, "/images/p2-a.gif", "a.gif", "/story/2", "alice")
	acceptSubmission(t, repo, "/images/p2-b.gif", "b.gif", "/story/2", "bob")
	acceptSubmission(t, repo, "/images/p2-c.gif", "c.gif", "/story/2", "alice")
	acceptSubmission(t, repo, "/images/p10-a.gif", "d.gif", "/story/10", "carol")

	report, err := svc.Report(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 4, report.TotalAccepted)
	assert.Equal(t, int64(3), report.DistinctCredits)

	// 短路径在前："/story/2" 排在 "/story/10" 之前
	require.Len(t, report.Groups, 2)
	assert.Equal(t, "/story/2", report.Groups[0].OnPage)
	assert.Equal(t, "2", report.Groups[0].PageNumber)
	assert.Equal(t, []string{"alice", "bob"}, report.Groups[0].Credits)
	assert.Equal(t, "/story/10", report.Groups[1].OnPage)
	assert.Equal(t, "10", report.Groups[1].PageNumber)
	assert.Equal(t, []string{"carol"}, report.Groups[1].Credits)
}

func TestReport_DropsBlankCredits(t *testing.T) {
	svc, repo := setupService(t)

	acceptSubmission(t, repo, "/images/a.gif", "a.gif", "/story/3", "   ")
	acceptSubmission(t, repo, "/images/b.gif", "b.gif", "/story/3", "")
	acceptSubmission(t, repo, "/images/c.gif", "c.gif", "/story/3", "dana")

	report, err := svc.Report(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, report.TotalAccepted)
	assert.Equal(t, int64(1), report.DistinctCredits)
	require.Len(t, report.Groups, 1)
	assert.Equal(t, []string{"dana"}, report.Groups[0].Credits)
}

func TestReport_StripsStoryPrefixOnly(t *testing.T) {
	svc, repo := setupService(t)

	acceptSubmission(t, repo, "/images/a.gif", "a.gif", "/unrelated/7", "erin")

	report, err := svc.Report(context.Background())
	require.NoError(t, err)
	require.Len(t, report.Groups, 1)
	// 非故事路径不做截断
	assert.Equal(t, "/unrelated/7", report.Groups[0].PageNumber)
}

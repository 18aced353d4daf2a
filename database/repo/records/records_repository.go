package records

import (
	"context"
	"time"

	"github.com/anoixa/story-overlay/database/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository 图片记录仓库
type Repository struct {
	db *gorm.DB
}

// NewRepository 创建新的图片记录仓库
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Upsert 插入或整行替换 (for_url, filename) 对应的记录。
// 冲突时重置 blocked/accepted 为插入默认值，与原有的
// INSERT OR REPLACE 语义一致：同一目标重复上传相同内容会
// 覆盖 contact/credits/on_page 并让记录重新进入待审状态。
func (r *Repository) Upsert(ctx context.Context, record *models.ImageRecord) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "for_url"}, {Name: "filename"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"on_page":    record.OnPage,
			"contact":    record.Contact,
			"credits":    record.Credits,
			"width":      record.Width,
			"height":     record.Height,
			"blocked":    false,
			"accepted":   false,
			"updated_at": time.Now(),
		}),
	}).Create(record).Error
}

// GetAccepted 获取指定页面路径的已采纳记录
func (r *Repository) GetAccepted(ctx context.Context, forURL string) (*models.ImageRecord, error) {
	var record models.ImageRecord
	err := r.db.WithContext(ctx).
		Where("for_url = ? AND accepted", forURL).
		First(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// CountPending 统计指定页面路径的待审记录数
func (r *Repository) CountPending(ctx context.Context, forURL string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.ImageRecord{}).
		Where("for_url = ? AND NOT accepted AND NOT blocked", forURL).
		Count(&count).Error
	return count, err
}

// Accept 将待审记录置为已采纳。
// 条件更新只命中待审行：记录不存在或已处于终态时静默返回 false。
// 同一 for_url 已有其他已采纳记录时，部分唯一索引让更新失败，
// 上层会看到 gorm.ErrDuplicatedKey，原有采纳记录不受影响。
func (r *Repository) Accept(ctx context.Context, forURL, filename string) (bool, error) {
	result := r.db.WithContext(ctx).Model(&models.ImageRecord{}).
		Where("for_url = ? AND filename = ? AND NOT accepted AND NOT blocked", forURL, filename).
		Update("accepted", true)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// Reject 将待审记录置为已屏蔽，记录不存在或已处于终态时静默返回 false
func (r *Repository) Reject(ctx context.Context, forURL, filename string) (bool, error) {
	result := r.db.WithContext(ctx).Model(&models.ImageRecord{}).
		Where("for_url = ? AND filename = ? AND NOT accepted AND NOT blocked", forURL, filename).
		Update("blocked", true)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// ListAccepted 列出全部已采纳记录。
// 按 (LENGTH(on_page), on_page) 排序：页面号是路径里的数字，
// 先比长度再比字典序才能让 /story/2 排在 /story/10 前面。
func (r *Repository) ListAccepted(ctx context.Context) ([]*models.ImageRecord, error) {
	var recordList []*models.ImageRecord
	err := r.db.WithContext(ctx).
		Where("accepted").
		Order("LENGTH(on_page), on_page").
		Find(&recordList).Error
	return recordList, err
}

// ListPendingForReview 列出待人工审核的记录。
// 所属 for_url 已有采纳记录的待审行不再需要审核，被排除。
func (r *Repository) ListPendingForReview(ctx context.Context) ([]*models.ImageRecord, error) {
	var recordList []*models.ImageRecord
	err := r.db.WithContext(ctx).
		Where(`NOT blocked AND NOT accepted AND NOT EXISTS (
			SELECT 1 FROM image_records AS other
			 WHERE other.for_url = image_records.for_url AND other.accepted)`).
		Order("LENGTH(on_page), on_page").
		Find(&recordList).Error
	return recordList, err
}

// CountAccepted 统计已采纳记录总数
func (r *Repository) CountAccepted(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.ImageRecord{}).
		Where("accepted").
		Count(&count).Error
	return count, err
}

// CountDistinctCredits 统计已采纳记录中互不相同的非空署名数
func (r *Repository) CountDistinctCredits(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.ImageRecord{}).
		Where("accepted AND TRIM(credits) <> ''").
		Distinct("credits").
		Count(&count).Error
	return count, err
}

package models

import "time"

// ImageRecord 社区替换图记录，每条对应 (来源页面路径, 存储文件名) 一对。
//
// 审核状态机：新记录为待审（accepted=false, blocked=false），
// 经一次审核操作进入 accepted 或 blocked，两者均为终态且互斥。
// 每个 for_url 至多允许一条 accepted 记录，由部分唯一索引
// idx_image_records_unique_accepted 在存储层强制（见 database.EnsureConstraints）。
type ImageRecord struct {
	ForURL   string `gorm:"column:for_url;primaryKey;not null"`
	Filename string `gorm:"primaryKey;not null"`

	// OnPage 上传发生时所在页面的路径，用于贡献者页分组
	OnPage string `gorm:"not null"`

	Blocked  bool `gorm:"default:false;not null"`
	Accepted bool `gorm:"default:false;not null;check:chk_not_both,NOT (blocked AND accepted)"`

	// 提交时探测到的图片尺寸，供审核页展示
	Width  int
	Height int

	// Contact 私密联系方式，Credits 公开署名
	Contact string `gorm:"not null;default:''"`
	Credits string `gorm:"not null;default:''"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsPending 是否处于待审状态
func (r *ImageRecord) IsPending() bool {
	return !r.Accepted && !r.Blocked
}

// Package moderation 实现图片提交的审核状态机。
//
// 状态：Pending（初始）、Accepted、Blocked（均为终态）。
// 待审记录经一次 Accept 或 Reject 进入终态，流程单向，没有撤销。
package moderation

import (
	"context"
	"errors"
	"log"

	"github.com/anoixa/story-overlay/database/repo/records"
	"github.com/anoixa/story-overlay/utils"
	"gorm.io/gorm"
)

// ErrAcceptConflict 同一页面已存在其他已采纳图片
var ErrAcceptConflict = errors.New("another image is already accepted for this page")

// Service 审核服务
type Service struct {
	repo records.RepositoryInterface
}

// NewService 创建审核服务
func NewService(repo records.RepositoryInterface) *Service {
	return &Service{repo: repo}
}

// Accept 采纳指定记录。
// 记录不存在或已处于终态时静默成功（审核操作是幂等的 fire-and-forget），
// 但绝不会把 blocked 记录翻转为 accepted：条件更新只命中待审行。
// 同一 for_url 下并发采纳两条不同记录时，存储层的部分唯一索引保证
// 恰好一条成功，失败方收到 ErrAcceptConflict，已有采纳记录不受影响。
func (s *Service) Accept(ctx context.Context, forURL, filename string) error {
	changed, err := s.repo.Accept(ctx, forURL, filename)
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrAcceptConflict
		}
		return err
	}
	if changed {
		log.Printf("ACCEPTED IMAGE: %s %s", utils.SanitizeLogMessage(forURL), utils.SanitizeLogMessage(filename))
	}
	return nil
}

// Reject 屏蔽指定记录。记录不存在或已处于终态时静默成功。
func (s *Service) Reject(ctx context.Context, forURL, filename string) error {
	changed, err := s.repo.Reject(ctx, forURL, filename)
	if err != nil {
		return err
	}
	if changed {
		log.Printf("REJECTED IMAGE: %s %s", utils.SanitizeLogMessage(forURL), utils.SanitizeLogMessage(filename))
	}
	return nil
}

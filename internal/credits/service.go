// Package credits 汇总已采纳图片的署名信息，生成贡献者报表。
package credits

import (
	"context"
	"regexp"
	"strings"

	"github.com/anoixa/story-overlay/database/repo/records"
)

// storyPrefixPattern 页面路径前缀，去掉后剩下裸页码
var storyPrefixPattern = regexp.MustCompile(`^/?story/`)

// Group 单个页面的署名分组
type Group struct {
	// PageNumber 去掉路径前缀后的裸页面标识
	PageNumber string
	// OnPage 完整页面路径
	OnPage string
	// Credits 互不相同的非空署名，保持首次出现的顺序
	Credits []string
}

// Report 贡献者报表
type Report struct {
	// TotalAccepted 已采纳图片总数
	TotalAccepted int
	// DistinctCredits 互不相同的非空署名总数
	DistinctCredits int64
	Groups          []Group
}

// Service 贡献者报表服务
type Service struct {
	repo records.RepositoryInterface
}

// NewService 创建报表服务
func NewService(repo records.RepositoryInterface) *Service {
	return &Service{repo: repo}
}

// Report 生成报表。
// 记录来自仓库时已按 (LENGTH(on_page), on_page) 排好，
// 这里只做相邻分组：同组内保持首见顺序，重复署名折叠，空署名丢弃。
func (s *Service) Report(ctx context.Context) (*Report, error) {
	rows, err := s.repo.ListAccepted(ctx)
	if err != nil {
		return nil, err
	}

	contributors, err := s.repo.CountDistinctCredits(ctx)
	if err != nil {
		return nil, err
	}

	report := &Report{
		TotalAccepted:   len(rows),
		DistinctCredits: contributors,
	}

	for _, row := range rows {
		if len(report.Groups) == 0 || report.Groups[len(report.Groups)-1].OnPage != row.OnPage {
			report.Groups = append(report.Groups, Group{
				PageNumber: storyPrefixPattern.ReplaceAllString(row.OnPage, ""),
				OnPage:     row.OnPage,
			})
		}
		group := &report.Groups[len(report.Groups)-1]
		credit := row.Credits
		if strings.TrimSpace(credit) == "" {
			continue
		}
		if !contains(group.Credits, credit) {
			group.Credits = append(group.Credits, credit)
		}
	}

	return report, nil
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

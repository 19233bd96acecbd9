package github

import (
	"context"
	"fmt"

	"github-bounty-hunter/internal/domain"

	"github.com/google/go-github/v53/github"
)

// SearchIssues 全站搜索 issue/PR
// GitHub 的搜索 API 里 PR 也是 issue，调用方用 is:pr 之类的 qualifier 自己区分
func (c *Client) SearchIssues(ctx context.Context, query string) ([]*domain.RelatedPR, error) {
	opts := &github.SearchOptions{
		Sort:  "updated",
		Order: "desc",
		ListOptions: github.ListOptions{
			PerPage: 10, // 关联线索看前 10 条足够，节省配额
		},
	}

	var result *github.IssuesSearchResult
	err := c.withRetry(ctx, func() error {
		var apiErr error
		result, _, apiErr = c.client.Search.Issues(ctx, query, opts)
		return apiErr
	})
	if err != nil {
		return nil, fmt.Errorf("GitHub 搜索失败: %w", err)
	}

	var prs []*domain.RelatedPR
	for _, item := range result.Issues {
		prs = append(prs, &domain.RelatedPR{
			Number: item.GetNumber(),
			Title:  item.GetTitle(),
			State:  item.GetState(),
			URL:    item.GetHTMLURL(),
		})
	}

	return prs, nil
}

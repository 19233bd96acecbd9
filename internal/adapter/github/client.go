package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github-bounty-hunter/internal/common"
	"github-bounty-hunter/internal/domain"

	"github.com/google/go-github/v53/github"
	"golang.org/x/oauth2"
)

// Client 实现了 port.Forge 接口
type Client struct {
	client *github.Client
}

// NewClient 初始化 GitHub 客户端
// token: GitHub Personal Access Token (空字符串则匿名访问，限制 60次/小时，且无法写入)
func NewClient(token string) *Client {
	var client *github.Client

	if token == "" {
		client = github.NewClient(nil)
	} else {
		ctx := context.Background()
		ts := oauth2.StaticTokenSource(
			&oauth2.Token{AccessToken: token},
		)
		tc := oauth2.NewClient(ctx, ts)
		client = github.NewClient(tc)
	}

	return &Client{client: client}
}

// maxComments 单个 issue 最多拉这么多评论，再多对分析没有增益
const maxComments = 50

// isRetryable 限流和 5xx 值得重试，其余 4xx (404/401/422) 重试没有意义
func isRetryable(err error) bool {
	var rateErr *github.RateLimitError
	if errors.As(err, &rateErr) {
		return true
	}
	var abuseErr *github.AbuseRateLimitError
	if errors.As(err, &abuseErr) {
		return true
	}
	var ghErr *github.ErrorResponse
	if errors.As(err, &ghErr) && ghErr.Response != nil {
		code := ghErr.Response.StatusCode
		return code == http.StatusTooManyRequests || code >= 500
	}
	// 网络层错误一律重试
	return true
}

func isNotFound(err error) bool {
	var ghErr *github.ErrorResponse
	return errors.As(err, &ghErr) && ghErr.Response != nil && ghErr.Response.StatusCode == http.StatusNotFound
}

func (c *Client) withRetry(ctx context.Context, fn common.RetryableFunc) error {
	return common.Do(ctx, fn,
		common.WithMaxRetries(3),
		common.WithInitialDelay(time.Second),
		common.WithJitter(0.2),
		common.WithRetryIf(isRetryable),
	)
}

// GetIssue 获取单个 issue
func (c *Client) GetIssue(ctx context.Context, owner, repo string, number int) (*domain.Issue, error) {
	var issue *github.Issue
	err := c.withRetry(ctx, func() error {
		var apiErr error
		issue, _, apiErr = c.client.Issues.Get(ctx, owner, repo, number)
		return apiErr
	})
	if err != nil {
		return nil, fmt.Errorf("获取 issue %s/%s#%d 失败: %w", owner, repo, number, err)
	}

	return convertIssue(issue), nil
}

// ListIssueComments 分页拉取 issue 评论，最多 maxComments 条
// issue 和 PR 的会话评论走同一个接口
func (c *Client) ListIssueComments(ctx context.Context, owner, repo string, number int) ([]*domain.IssueComment, error) {
	opts := &github.IssueListCommentsOptions{
		ListOptions: github.ListOptions{PerPage: maxComments},
	}

	var all []*domain.IssueComment
	for {
		var comments []*github.IssueComment
		var resp *github.Response
		err := c.withRetry(ctx, func() error {
			var apiErr error
			comments, resp, apiErr = c.client.Issues.ListComments(ctx, owner, repo, number, opts)
			return apiErr
		})
		if err != nil {
			return nil, fmt.Errorf("获取 issue 评论失败: %w", err)
		}

		for _, comment := range comments {
			all = append(all, &domain.IssueComment{
				Author:    comment.GetUser().GetLogin(),
				Body:      comment.GetBody(),
				CreatedAt: comment.GetCreatedAt().Time,
			})
			if len(all) >= maxComments {
				return all, nil
			}
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return all, nil
}

// GetRepo 获取仓库元信息，给 LLM 提供上下文
func (c *Client) GetRepo(ctx context.Context, owner, repo string) (*domain.RepoInfo, error) {
	var repository *github.Repository
	err := c.withRetry(ctx, func() error {
		var apiErr error
		repository, _, apiErr = c.client.Repositories.Get(ctx, owner, repo)
		return apiErr
	})
	if err != nil {
		return nil, fmt.Errorf("获取仓库 %s/%s 失败: %w", owner, repo, err)
	}

	return &domain.RepoInfo{
		FullName:    repository.GetFullName(),
		Description: repository.GetDescription(),
		Language:    repository.GetLanguage(),
		Stars:       repository.GetStargazersCount(),
	}, nil
}

// ListPullRequestFiles 列出 PR 改动的文件
func (c *Client) ListPullRequestFiles(ctx context.Context, owner, repo string, number int) ([]*domain.PullRequestFile, error) {
	opts := &github.ListOptions{PerPage: 100}

	var all []*domain.PullRequestFile
	for {
		var files []*github.CommitFile
		var resp *github.Response
		err := c.withRetry(ctx, func() error {
			var apiErr error
			files, resp, apiErr = c.client.PullRequests.ListFiles(ctx, owner, repo, number, opts)
			return apiErr
		})
		if err != nil {
			return nil, fmt.Errorf("获取 PR #%d 文件列表失败: %w", number, err)
		}

		for _, f := range files {
			all = append(all, &domain.PullRequestFile{
				Filename: f.GetFilename(),
				Status:   f.GetStatus(),
			})
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return all, nil
}

// GetFileContent 获取某个 ref 上的文件内容 (base64 解码后的明文)
func (c *Client) GetFileContent(ctx context.Context, owner, repo, path, ref string) (string, error) {
	var fileContent *github.RepositoryContent
	err := c.withRetry(ctx, func() error {
		var apiErr error
		fileContent, _, _, apiErr = c.client.Repositories.GetContents(ctx, owner, repo, path,
			&github.RepositoryContentGetOptions{Ref: ref})
		return apiErr
	})
	if err != nil {
		return "", fmt.Errorf("获取文件 %s@%s 失败: %w", path, ref, err)
	}
	if fileContent == nil {
		// GetContents 对目录返回的是列表，fileContent 为 nil
		return "", fmt.Errorf("%s 是目录不是文件", path)
	}

	content, err := fileContent.GetContent()
	if err != nil {
		return "", fmt.Errorf("解码文件 %s 内容失败: %w", path, err)
	}
	return content, nil
}

// CreateOrUpdateFile 把内容写到分支上：文件已存在就带旧 SHA 更新，否则创建
func (c *Client) CreateOrUpdateFile(ctx context.Context, owner, repo, path, branch, message, content string) error {
	// 1. 先查现有文件拿 SHA，404 说明是新文件
	var sha *string
	var current *github.RepositoryContent
	err := c.withRetry(ctx, func() error {
		var apiErr error
		current, _, _, apiErr = c.client.Repositories.GetContents(ctx, owner, repo, path,
			&github.RepositoryContentGetOptions{Ref: branch})
		if isNotFound(apiErr) {
			current = nil
			return nil
		}
		return apiErr
	})
	if err != nil {
		return fmt.Errorf("查询文件 %s 现状失败: %w", path, err)
	}
	if current != nil {
		sha = current.SHA
	}

	// 2. 提交内容
	opts := &github.RepositoryContentFileOptions{
		Message: github.String(message),
		Content: []byte(content),
		Branch:  github.String(branch),
		SHA:     sha,
	}
	err = c.withRetry(ctx, func() error {
		var apiErr error
		if sha != nil {
			_, _, apiErr = c.client.Repositories.UpdateFile(ctx, owner, repo, path, opts)
		} else {
			_, _, apiErr = c.client.Repositories.CreateFile(ctx, owner, repo, path, opts)
		}
		return apiErr
	})
	if err != nil {
		return fmt.Errorf("写入文件 %s@%s 失败: %w", path, branch, err)
	}
	return nil
}

// CreateComment 在 issue/PR 下发表评论
func (c *Client) CreateComment(ctx context.Context, owner, repo string, number int, body string) error {
	err := c.withRetry(ctx, func() error {
		var apiErr error
		_, _, apiErr = c.client.Issues.CreateComment(ctx, owner, repo, number,
			&github.IssueComment{Body: github.String(body)})
		return apiErr
	})
	if err != nil {
		return fmt.Errorf("发表评论失败: %w", err)
	}
	return nil
}

// convertIssue 把 GitHub 的数据结构转换为我们的 Domain 实体 (DTO 转换)
func convertIssue(issue *github.Issue) *domain.Issue {
	labels := make([]string, 0, len(issue.Labels))
	for _, l := range issue.Labels {
		labels = append(labels, l.GetName())
	}

	return &domain.Issue{
		Number:    issue.GetNumber(),
		Title:     issue.GetTitle(),
		Body:      issue.GetBody(),
		Labels:    labels,
		State:     issue.GetState(),
		Author:    issue.GetUser().GetLogin(),
		CreatedAt: issue.GetCreatedAt().Time,
	}
}

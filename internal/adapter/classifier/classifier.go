package classifier

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github-bounty-hunter/internal/common"
	"github-bounty-hunter/internal/domain"
	"github-bounty-hunter/internal/port"
)

const (
	// 一条 PR 下的讨论可能很长，超过这个数量的评论对分类没有增益
	maxClassifyComments = 20
	maxCommentChars     = 800

	// 兜底分类时描述截断长度
	maxFallbackDescChars = 200

	classifySystemPrompt = "你是一个资深代码审阅分类员。只返回一个 JSON 数组，不要任何解释文字，不要 Markdown 代码块标记。"
)

// ReviewClassifier 实现了 port.FeedbackClassifier 接口
// 先用 LLM 做结构化分类，LLM 不可用时退回关键词规则，
// 保证修订流程永远拿得到可用的意见列表
type ReviewClassifier struct {
	completer port.Completer
	forge     port.Forge
}

// NewReviewClassifier 创建分类器实例
func NewReviewClassifier(completer port.Completer, forge port.Forge) *ReviewClassifier {
	return &ReviewClassifier{
		completer: completer,
		forge:     forge,
	}
}

// Classify 拉取 PR 下的评论并分类成结构化意见
// 机器人自己发的评论会被跳过；没有人工评论时返回空列表
func (c *ReviewClassifier) Classify(ctx context.Context, sub domain.Submission) ([]domain.FeedbackIssue, error) {
	comments, err := c.forge.ListIssueComments(ctx, sub.Owner, sub.Repo, sub.PRNumber)
	if err != nil {
		return nil, common.WrapError(common.ErrCodeGitHubAPI,
			fmt.Sprintf("拉取 %s 的评论失败", sub.Key()), err)
	}

	human := dropBotComments(comments)
	if len(human) == 0 {
		return nil, nil
	}

	raw, err := c.completer.Complete(ctx, buildClassifyPrompt(human), classifySystemPrompt)
	if err != nil {
		log.Printf("⚠️ LLM 分类 %s 的评论失败，退回关键词规则: %v", sub.Key(), err)
		return keywordFallback(human), nil
	}

	issues, err := parseClassifyResponse(raw)
	if err != nil {
		log.Printf("⚠️ 解析 %s 的分类结果失败，退回关键词规则: %v", sub.Key(), err)
		return keywordFallback(human), nil
	}

	return issues, nil
}

// dropBotComments 去掉机器人评论和空评论
func dropBotComments(comments []*domain.IssueComment) []*domain.IssueComment {
	var human []*domain.IssueComment
	for _, c := range comments {
		if strings.TrimSpace(c.Body) == "" {
			continue
		}
		if strings.Contains(c.Body, domain.BotCommentMarker) {
			continue
		}
		human = append(human, c)
	}
	return human
}

// buildClassifyPrompt 把审阅评论打包成分类 prompt
func buildClassifyPrompt(comments []*domain.IssueComment) string {
	var b strings.Builder

	b.WriteString("以下是一个 Pull Request 收到的审阅评论，请把每条意见分类:\n\n")
	for i, c := range comments {
		if i >= maxClassifyComments {
			break
		}
		body := c.Body
		if len(body) > maxCommentChars {
			body = body[:maxCommentChars] + "..."
		}
		fmt.Fprintf(&b, "### 评论 %d (@%s)\n%s\n\n", i+1, c.Author, body)
	}

	b.WriteString(`一条评论可能包含多个意见，拆开分别归类。请严格按以下 JSON 数组结构返回:
[
  {
    "type": "code_style|documentation|missing_tests|bug|logic|performance|security",
    "severity": "suggestion|minor|major|critical",
    "file": "意见针对的文件路径，定位不到就写 unknown",
    "description": "意见内容",
    "suggested_fix": "评论里给出的修改建议，没有就留空"
  }
]`)

	return b.String()
}

// parseClassifyResponse 解析 LLM 返回的意见数组
// 严重度非法时按 major 保守处理 (不会被自动修，只会浮给人看)
func parseClassifyResponse(raw string) ([]domain.FeedbackIssue, error) {
	cleaned := common.ExtractJSONArray(raw)
	if cleaned == "" {
		return nil, common.NewError(common.ErrCodeParse, "LLM 返回内容里找不到 JSON 数组")
	}

	var res []struct {
		Type         string `json:"type"`
		Severity     string `json:"severity"`
		File         string `json:"file"`
		Description  string `json:"description"`
		SuggestedFix string `json:"suggested_fix"`
	}
	if err := json.Unmarshal([]byte(cleaned), &res); err != nil {
		return nil, common.WrapError(common.ErrCodeParse, "分类结果 JSON 解析失败", err)
	}

	issues := make([]domain.FeedbackIssue, 0, len(res))
	for _, r := range res {
		if strings.TrimSpace(r.Description) == "" {
			continue
		}
		issues = append(issues, domain.FeedbackIssue{
			Type:         normalizeType(r.Type),
			Severity:     normalizeSeverity(r.Severity),
			File:         normalizeFile(r.File),
			Description:  r.Description,
			SuggestedFix: r.SuggestedFix,
		})
	}

	return issues, nil
}

func normalizeSeverity(raw string) domain.FeedbackSeverity {
	s := domain.FeedbackSeverity(strings.ToLower(strings.TrimSpace(raw)))
	switch s {
	case domain.SeveritySuggestion, domain.SeverityMinor,
		domain.SeverityMajor, domain.SeverityCritical:
		return s
	default:
		return domain.SeverityMajor
	}
}

func normalizeType(raw string) domain.FeedbackType {
	t := domain.FeedbackType(strings.ToLower(strings.TrimSpace(raw)))
	switch t {
	case domain.FeedbackCodeStyle, domain.FeedbackDocumentation,
		domain.FeedbackMissingTests, domain.FeedbackBug,
		domain.FeedbackLogic, domain.FeedbackPerformance,
		domain.FeedbackSecurity:
		return t
	default:
		return domain.FeedbackLogic
	}
}

func normalizeFile(raw string) string {
	f := strings.TrimSpace(raw)
	if f == "" {
		return domain.UnknownFile
	}
	return f
}

// keywordRule 关键词 → 分类的映射规则，按声明顺序匹配，先中先得
type keywordRule struct {
	keywords []string
	issueTyp domain.FeedbackType
	severity domain.FeedbackSeverity
}

// 越危险的类别越靠前，防止 "security bug" 这种评论被归成普通 bug
var keywordRules = []keywordRule{
	{[]string{"security", "vulnerab", "injection", "漏洞", "安全"}, domain.FeedbackSecurity, domain.SeverityCritical},
	{[]string{"bug", "broken", "crash", "wrong", "incorrect", "崩溃", "报错"}, domain.FeedbackBug, domain.SeverityMajor},
	{[]string{"slow", "performance", "性能"}, domain.FeedbackPerformance, domain.SeverityMajor},
	{[]string{"test", "coverage", "测试"}, domain.FeedbackMissingTests, domain.SeverityMinor},
	{[]string{"typo", "spelling", "doc", "comment", "拼写", "文档", "注释"}, domain.FeedbackDocumentation, domain.SeverityMinor},
	{[]string{"style", "format", "lint", "naming", "rename", "风格", "命名"}, domain.FeedbackCodeStyle, domain.SeveritySuggestion},
}

// keywordFallback LLM 不可用时的保底分类：一条评论出一条意见
// 规则故意保守，没匹配上的全按 major/logic 处理，确保不会被自动修
func keywordFallback(comments []*domain.IssueComment) []domain.FeedbackIssue {
	issues := make([]domain.FeedbackIssue, 0, len(comments))

	for _, c := range comments {
		desc := strings.TrimSpace(c.Body)
		if len(desc) > maxFallbackDescChars {
			desc = desc[:maxFallbackDescChars] + "..."
		}

		issue := domain.FeedbackIssue{
			Type:        domain.FeedbackLogic,
			Severity:    domain.SeverityMajor,
			File:        domain.UnknownFile,
			Description: desc,
		}

		lower := strings.ToLower(c.Body)
	rules:
		for _, rule := range keywordRules {
			for _, kw := range rule.keywords {
				if strings.Contains(lower, kw) {
					issue.Type = rule.issueTyp
					issue.Severity = rule.severity
					break rules
				}
			}
		}

		issues = append(issues, issue)
	}

	return issues
}

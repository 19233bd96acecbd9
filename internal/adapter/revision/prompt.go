package revision

import (
	"fmt"
	"strings"

	"github-bounty-hunter/internal/domain"
)

const (
	revisionSystemPrompt = "你是一个严谨的代码修订助手。返回修订后的完整文件内容，用一个 Markdown 代码块包裹，代码块外不要有任何文字。"

	// 修订结果短于这个长度就当 LLM 没干活 (比如只回了一句 "done")
	minRevisionChars = 10
)

// buildRevisionPrompt 把文件内容和针对它的意见打包成修订 prompt
func buildRevisionPrompt(path, content string, issues []domain.FeedbackIssue) string {
	var b strings.Builder

	fmt.Fprintf(&b, "请根据审阅意见修改文件 %s。\n\n## 审阅意见\n", path)
	for i, issue := range issues {
		fmt.Fprintf(&b, "%d. [%s/%s] %s\n", i+1, issue.Severity, issue.Type, issue.Description)
		if issue.SuggestedFix != "" {
			fmt.Fprintf(&b, "   建议改法: %s\n", issue.SuggestedFix)
		}
	}

	fmt.Fprintf(&b, "\n## 当前文件内容\n```\n%s\n```\n", content)

	b.WriteString(`
要求:
1. 只改审阅意见涉及的地方，其余内容逐字保留
2. 返回修改后的完整文件内容，不要省略任何部分
3. 用一个 Markdown 代码块包裹，代码块外不要有任何文字`)

	return b.String()
}

// isNoopRevision 判断一次修订是不是白忙活：
// 结果太短说明模型没按要求返回文件，和原文去掉首尾空白后相同说明什么都没改
func isNoopRevision(original, revised string) bool {
	trimmed := strings.TrimSpace(revised)
	if len(trimmed) < minRevisionChars {
		return true
	}
	return trimmed == strings.TrimSpace(original)
}

// buildRevisionSummary 生成发到 PR 下的修订说明评论
// 开头带机器人标记，分类器下一轮会跳过这条评论
func buildRevisionSummary(written []domain.CodeChange, addressed, skipped []domain.FeedbackIssue) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s 自动修订完成\n\n### 本轮改动\n", domain.BotCommentMarker)
	for _, c := range written {
		fmt.Fprintf(&b, "- `%s`\n", c.Path)
	}

	if len(addressed) > 0 {
		b.WriteString("\n### 已处理的意见\n")
		for _, issue := range addressed {
			fmt.Fprintf(&b, "- [%s] %s\n", issue.Severity, issue.Description)
		}
	}

	if len(skipped) > 0 {
		b.WriteString("\n### 需要人工关注的意见\n")
		for _, issue := range skipped {
			fmt.Fprintf(&b, "- [%s] %s\n", issue.Severity, issue.Description)
		}
	}

	return b.String()
}

package domain

import "fmt"

// FeedbackSeverity 审阅意见的严重程度
type FeedbackSeverity string

const (
	SeveritySuggestion FeedbackSeverity = "suggestion" // 随手建议
	SeverityMinor      FeedbackSeverity = "minor"      // 小问题
	SeverityMajor      FeedbackSeverity = "major"      // 大问题
	SeverityCritical   FeedbackSeverity = "critical"   // 致命问题
)

// EffortWeight 返回该严重程度的工作量权重，用于估算修订成本
func (s FeedbackSeverity) EffortWeight() int {
	switch s {
	case SeveritySuggestion:
		return 1
	case SeverityMinor:
		return 2
	case SeverityMajor:
		return 5
	case SeverityCritical:
		return 10
	default:
		return 5 // 未知严重度按 major 保守估计
	}
}

// FeedbackType 审阅意见的类别 (开放集合，分类器可能产出新值)
type FeedbackType string

const (
	FeedbackCodeStyle     FeedbackType = "code_style"
	FeedbackDocumentation FeedbackType = "documentation"
	FeedbackMissingTests  FeedbackType = "missing_tests"
	FeedbackBug           FeedbackType = "bug"
	FeedbackLogic         FeedbackType = "logic"
	FeedbackPerformance   FeedbackType = "performance"
	FeedbackSecurity      FeedbackType = "security"
)

// UnknownFile 分类器定位不到具体文件时使用的占位符
const UnknownFile = "unknown"

// BotCommentMarker 机器人自己发的评论都带这个标记，分类时跳过，
// 免得把自己上一轮的修订说明又当成审阅意见来修
const BotCommentMarker = "🤖"

// FeedbackIssue 一条经过分类的审阅意见 (外部分类器产出的形状)
type FeedbackIssue struct {
	Type         FeedbackType     `json:"type"`
	Severity     FeedbackSeverity `json:"severity"`
	File         string           `json:"file"` // 可能是 "unknown"
	Description  string           `json:"description"`
	SuggestedFix string           `json:"suggested_fix,omitempty"`
}

// Submission 一次已提交的修复，修订引擎的操作对象
type Submission struct {
	Owner       string `json:"owner"`
	Repo        string `json:"repo"`
	PRNumber    int    `json:"pr_number"`
	Branch      string `json:"branch"`
	IssueNumber int    `json:"issue_number,omitempty"` // 对应的 issue (可选)
	RecordID    string `json:"record_id,omitempty"`    // 关联的 BountyRecord (可选)
}

// Key 返回修订计数器的键，格式 owner/repo#prNumber
func (s Submission) Key() string {
	return fmt.Sprintf("%s/%s#%d", s.Owner, s.Repo, s.PRNumber)
}

// RevisionAnalysis 修订可行性判定结果
type RevisionAnalysis struct {
	CanRevise       bool            `json:"can_revise"`
	Reason          string          `json:"reason"`           // 不可修订时的具体原因
	Issues          []FeedbackIssue `json:"issues"`           // 允许自动修复的意见
	SurfacedIssues  []FeedbackIssue `json:"surfaced_issues"`  // 被过滤掉但需要人工关注的意见
	EstimatedEffort string          `json:"estimated_effort"` // trivial / easy / moderate / complex
}

// CodeChange 对单个文件的一次修订
type CodeChange struct {
	Path      string `json:"path"`
	Content   string `json:"content"`
	Operation string `json:"operation"` // 目前只有 update
}

// RevisionResult 一次修订尝试的完整结果
// 引擎永远返回结果而不是抛错，失败信息收敛在 Err 字段里
type RevisionResult struct {
	Success         bool            `json:"success"`
	RevisedFiles    []CodeChange    `json:"revised_files"`
	Summary         string          `json:"summary"` // 给人看的修订说明
	IssuesAddressed []FeedbackIssue `json:"issues_addressed"`
	IssuesSkipped   []FeedbackIssue `json:"issues_skipped"`
	Err             string          `json:"error,omitempty"`
}

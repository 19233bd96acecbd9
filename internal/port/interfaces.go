package port

import (
	"context"
	"time"

	"github-bounty-hunter/internal/domain"
)

// Completer (军师): 所有 LLM 调用的唯一入口
type Completer interface {
	// userPrompt 是本次任务，systemPrompt 固定约束输出格式
	// 返回原始文本，JSON/代码块提取由调用方自己做
	Complete(ctx context.Context, userPrompt, systemPrompt string) (string, error)
}

// Forge (矿区): 代码托管平台 (GitHub) 的全部读写操作
type Forge interface {
	GetIssue(ctx context.Context, owner, repo string, number int) (*domain.Issue, error)

	// 分页拉取，最多 50 条
	ListIssueComments(ctx context.Context, owner, repo string, number int) ([]*domain.IssueComment, error)

	GetRepo(ctx context.Context, owner, repo string) (*domain.RepoInfo, error)

	// GitHub 搜索里 PR 也算 issue，关联 PR 靠它查
	SearchIssues(ctx context.Context, query string) ([]*domain.RelatedPR, error)

	ListPullRequestFiles(ctx context.Context, owner, repo string, number int) ([]*domain.PullRequestFile, error)

	// 返回 base64 解码后的文件内容
	GetFileContent(ctx context.Context, owner, repo, path, ref string) (string, error)

	// 文件存在则更新 (自动带旧 SHA)，不存在则创建
	CreateOrUpdateFile(ctx context.Context, owner, repo, path, branch, message, content string) error

	// issue 和 PR 通用
	CreateComment(ctx context.Context, owner, repo string, number int, body string) error
}

// FeedbackClassifier (审读员): 把审阅者的原始评论变成结构化意见
type FeedbackClassifier interface {
	Classify(ctx context.Context, sub domain.Submission) ([]domain.FeedbackIssue, error)
}

// FeedbackFilter (安检门): 决定哪些意见允许自动修复，哪些只能人工处理
type FeedbackFilter interface {
	// 按严重度/类型白名单切分：fixable 可自动修，skipped 浮出来给人看
	SplitAutoFixable(issues []domain.FeedbackIssue) (fixable, skipped []domain.FeedbackIssue)

	// 按严重度权重估算工作量: trivial / easy / moderate / complex
	EstimateEffort(issues []domain.FeedbackIssue) string
}

// Analyzer (勘探员): 把 issue 变成结构化需求，并评估适不适合自动化
type Analyzer interface {
	// 永远返回可用的分析结果；出错时 error 非 nil，但结果是低置信度兜底
	AnalyzeIssue(ctx context.Context, owner, repo string, number int) (*domain.IssueAnalysis, error)

	// 校验方案是否覆盖需求；失败时返回 complete=false 的保守结果
	ValidateSolution(ctx context.Context, analysis *domain.IssueAnalysis, solution string, changedFiles []string) (*domain.SolutionValidation, error)

	// 纯规则判定，无 I/O
	IsSuitableForAutomation(analysis *domain.IssueAnalysis) domain.SuitabilityReport

	// 纯格式化，无 I/O
	GenerateChecklist(analysis *domain.IssueAnalysis) string
}

// Reviser (返工师傅): 按审阅意见自动修订已提交的 PR
type Reviser interface {
	// 预算检查 + 意见过滤，结果永远非 nil
	AnalyzeForRevision(ctx context.Context, sub domain.Submission) *domain.RevisionAnalysis

	// 永远不返回 error，失败信息收敛在 Result.Err 里
	Revise(ctx context.Context, sub domain.Submission) *domain.RevisionResult
}

// Tracker (账房): 记录每一单赏金的生命周期，给出统计
type Tracker interface {
	RecordBountyStart(ctx context.Context, bountyID, title, platform, bountyType, difficulty string, reward float64, repo string) *domain.BountyRecord
	RecordSubmission(ctx context.Context, recordID string) error
	RecordOutcome(ctx context.Context, recordID string, accepted bool, feedback string) error
	RecordPayment(ctx context.Context, recordID string, amount float64) error

	// 按平台侧 ID 定位记录，没有就补一条 (外部事件可能先于开单到达)
	RecordOutcomeByBountyID(ctx context.Context, bountyID string, accepted bool, feedback string) error

	// 防重：这个 bounty 是否已经开过单 (查内存，配了归档库也查归档库)
	HasAttempted(ctx context.Context, bountyID string) bool

	GetRecord(recordID string) (*domain.BountyRecord, bool)

	AddGoal(goalType domain.GoalType, target float64, deadline *time.Time) *domain.Goal
	Goals() []*domain.Goal

	// 纯计算，永不落盘
	GetStats() domain.PortfolioStats
	GetTrend(period domain.TrendPeriod) *domain.TrendReport
}

// Notifier (信使): 把结果推到手机 (飞书/钉钉)
type Notifier interface {
	// 推送单条赏金结果
	NotifyOutcome(ctx context.Context, record *domain.BountyRecord) error

	// 推送一次自动修订的结果
	NotifyRevision(ctx context.Context, sub domain.Submission, result *domain.RevisionResult) error

	// 推送目标达成
	NotifyGoal(ctx context.Context, goal *domain.Goal) error
}

// RecordArchive (档案库): 赏金记录的关系型镜像
// JSON 文件才是事实来源，这里只做跨机器防重和历史查询
type RecordArchive interface {
	// 保存记录 (upsert)
	Save(ctx context.Context, record *domain.BountyRecord) error

	// 判断平台侧 bounty 是否已经有人处理过 (跨机器防重)
	Exists(ctx context.Context, bountyID string) (bool, error)

	// 按标题/仓库/反馈模糊查历史记录
	Search(ctx context.Context, query string) ([]*domain.BountyRecord, error)
}

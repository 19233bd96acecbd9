package domain

import (
	"fmt"
	"time"
)

// RequirementType 需求类型
type RequirementType string

const (
	RequirementFunctional    RequirementType = "functional"     // 功能性需求
	RequirementNonFunctional RequirementType = "non-functional" // 非功能性需求 (性能/兼容性等)
	RequirementConstraint    RequirementType = "constraint"     // 约束条件
	RequirementEdgeCase      RequirementType = "edge-case"      // 边界情况
)

// RequirementPriority 需求优先级 (MoSCoW 法)
type RequirementPriority string

const (
	PriorityMust       RequirementPriority = "must"
	PriorityShould     RequirementPriority = "should"
	PriorityCould      RequirementPriority = "could"
	PriorityNiceToHave RequirementPriority = "nice-to-have"
)

// Requirement 从 issue 中提取出的单条需求
type Requirement struct {
	ID          string              `json:"id"`
	Description string              `json:"description"`
	Type        RequirementType     `json:"type"`
	Priority    RequirementPriority `json:"priority"`
	Verified    bool                `json:"verified"` // 提交方案时是否已验证满足
}

// IssueScope issue 的工作量等级
type IssueScope string

const (
	ScopeTrivial IssueScope = "trivial"
	ScopeSmall   IssueScope = "small"
	ScopeMedium  IssueScope = "medium"
	ScopeLarge   IssueScope = "large"
	ScopeEpic    IssueScope = "epic" // 太大了，不适合自动化
)

// IssueAnalysis 代表对一个 issue 的结构化理解
// 由一次 LLM 分析调用生成，之后不可变 (缓存替换除外)
type IssueAnalysis struct {
	// 定位信息 (来自 GitHub)
	Owner  string `json:"owner"`
	Repo   string `json:"repo"`
	Number int    `json:"number"`

	// --- 核心产出：AI 提取的结构化需求 ---

	Summary          string `json:"summary"`           // 一句话总结
	ProblemStatement string `json:"problem_statement"` // 问题是什么
	DesiredOutcome   string `json:"desired_outcome"`   // 修好之后应该是什么样

	Requirements       []Requirement `json:"requirements"`        // 有序需求列表
	AcceptanceCriteria []string      `json:"acceptance_criteria"` // 验收标准
	OutOfScope         []string      `json:"out_of_scope"`        // 明确不做的事
	AffectedFiles      []string      `json:"affected_files"`      // 大概率要动的文件
	SuggestedApproach  string        `json:"suggested_approach"`  // 建议的修复思路
	Pitfalls           []string      `json:"pitfalls"`            // 容易踩的坑
	TestingNotes       []string      `json:"testing_notes"`       // 测试要求

	// --- 评估维度 ---

	Scope IssueScope `json:"scope"` // trivial ~ epic

	// 复杂度 (1-10)：实现这个修复大概多难
	Complexity int `json:"complexity"`

	// 破坏性变更可能性 (0-1)：改了会不会把别人弄坏
	BreakingChangeLikelihood float64 `json:"breaking_change_likelihood"`

	// issue 描述的清晰度 (0-1) 和完整度 (0-1)
	Clarity      float64 `json:"clarity"`
	Completeness float64 `json:"completeness"`

	// 置信度 = min(clarity, completeness)，低于阈值的缓存条目会被重新分析
	Confidence float64 `json:"confidence"`

	Warnings []string `json:"warnings"` // 非致命提醒
	Blockers []string `json:"blockers"` // 致命阻塞项，有则不适合自动化

	AnalyzedAt time.Time `json:"analyzed_at"`
}

// Key 返回缓存键，格式 owner/repo#number
func (a *IssueAnalysis) Key() string {
	return AnalysisKey(a.Owner, a.Repo, a.Number)
}

// AnalysisKey 组装 issue 分析的缓存键
func AnalysisKey(owner, repo string, number int) string {
	return fmt.Sprintf("%s/%s#%d", owner, repo, number)
}

// MustCount 统计 must 级需求的数量
func (a *IssueAnalysis) MustCount() int {
	count := 0
	for _, r := range a.Requirements {
		if r.Priority == PriorityMust {
			count++
		}
	}
	return count
}

// SolutionValidation 方案校验结果，用完即弃，不落盘
type SolutionValidation struct {
	Complete          bool     `json:"complete"`           // 所有 must 需求都覆盖到了吗
	Coverage          float64  `json:"coverage"`           // 需求覆盖率 (0-1)
	RequirementsMet   []string `json:"requirements_met"`   // 已满足的需求 ID
	RequirementsUnmet []string `json:"requirements_unmet"` // 未满足的需求 ID
	Suggestions       []string `json:"suggestions"`        // 改进建议
}

// SuitabilityReport 自动化适配性判定结果
// 纯规则计算产物：Suitable 为 true 当且仅当 Reasons 为空
type SuitabilityReport struct {
	Suitable bool     `json:"suitable"`
	Reasons  []string `json:"reasons"` // 触发的规则名列表
}

// --- GitHub 数据的领域包装 (适配器负责从 SDK 类型转换) ---

// Issue 一个待处理的 issue
type Issue struct {
	Number    int       `json:"number"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Labels    []string  `json:"labels"`
	State     string    `json:"state"`
	Author    string    `json:"author"`
	CreatedAt time.Time `json:"created_at"`
}

// IssueComment issue 下的一条评论
type IssueComment struct {
	Author    string    `json:"author"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// RepoInfo 仓库元信息，给 LLM 提供上下文用
type RepoInfo struct {
	FullName    string `json:"full_name"`
	Description string `json:"description"`
	Language    string `json:"language"`
	Stars       int    `json:"stars"`
}

// RelatedPR 搜索到的关联 PR (可能是别人修同一个 issue 的线索)
type RelatedPR struct {
	Number int    `json:"number"`
	Title  string `json:"title"`
	State  string `json:"state"`
	URL    string `json:"url"`
}

// PullRequestFile PR 中被改动的一个文件
type PullRequestFile struct {
	Filename string `json:"filename"`
	Status   string `json:"status"` // added / modified / removed / renamed
}

// IsRemoved 被删除的文件不参与自动修订
func (f *PullRequestFile) IsRemoved() bool {
	return f.Status == "removed"
}

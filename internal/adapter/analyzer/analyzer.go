package analyzer

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github-bounty-hunter/internal/domain"
	"github-bounty-hunter/internal/port"
)

// IssueAnalyzer 实现了 port.Analyzer 接口
// 把一个 GitHub issue 变成结构化需求，并判断适不适合自动化修复
type IssueAnalyzer struct {
	completer port.Completer
	forge     port.Forge
	cache     *analysisCache
	nowFunc   func() time.Time
}

// NewIssueAnalyzer 创建新的分析器实例
func NewIssueAnalyzer(completer port.Completer, forge port.Forge) *IssueAnalyzer {
	return &IssueAnalyzer{
		completer: completer,
		forge:     forge,
		cache:     newAnalysisCache(defaultCacheCapacity),
		nowFunc:   time.Now, // 便于测试注入当前时间
	}
}

// AnalyzeIssue 分析一个 issue，永远返回可用的结果
// 任何一步失败都降级成低置信度兜底分析 (error 非 nil 供调用方记日志)，
// 缓存命中且置信度 > 0.7 时直接复用，省一次 LLM 调用
func (a *IssueAnalyzer) AnalyzeIssue(ctx context.Context, owner, repo string, number int) (*domain.IssueAnalysis, error) {
	key := domain.AnalysisKey(owner, repo, number)

	if cached, ok := a.cache.Get(key); ok {
		fmt.Printf("📦 分析缓存命中: %s (置信度 %.2f)\n", key, cached.Confidence)
		return cached, nil
	}

	// 三路并发抓取：issue 正文、评论、仓库元信息
	// 外加一路 best-effort 的关联 PR 搜索，搜挂了就当没有
	var (
		wg       sync.WaitGroup
		issue    *domain.Issue
		issueErr error
		comments []*domain.IssueComment
		info     *domain.RepoInfo
		related  []*domain.RelatedPR
	)

	wg.Add(4)
	go func() {
		defer wg.Done()
		issue, issueErr = a.forge.GetIssue(ctx, owner, repo, number)
	}()
	go func() {
		defer wg.Done()
		var err error
		if comments, err = a.forge.ListIssueComments(ctx, owner, repo, number); err != nil {
			log.Printf("⚠️ 拉取 %s 评论失败，按无评论处理: %v", key, err)
		}
	}()
	go func() {
		defer wg.Done()
		var err error
		if info, err = a.forge.GetRepo(ctx, owner, repo); err != nil {
			log.Printf("⚠️ 拉取仓库 %s/%s 元信息失败: %v", owner, repo, err)
		}
	}()
	go func() {
		defer wg.Done()
		query := fmt.Sprintf("repo:%s/%s is:pr %d", owner, repo, number)
		var err error
		if related, err = a.forge.SearchIssues(ctx, query); err != nil {
			related = nil // 只是线索，失败无所谓
		}
	}()
	wg.Wait()

	if issueErr != nil {
		log.Printf("❌ 获取 issue %s 失败: %v", key, issueErr)
		return a.fallbackAnalysis(owner, repo, number, nil), issueErr
	}

	prompt := buildAnalysisPrompt(issue, comments, info, related)
	raw, err := a.completer.Complete(ctx, prompt, analysisSystemPrompt)
	if err != nil {
		log.Printf("❌ LLM 分析 %s 失败: %v", key, err)
		return a.fallbackAnalysis(owner, repo, number, issue), err
	}

	analysis, err := parseAnalysisResponse(raw)
	if err != nil {
		log.Printf("❌ 解析 %s 的分析结果失败: %v", key, err)
		return a.fallbackAnalysis(owner, repo, number, issue), err
	}

	analysis.Owner = owner
	analysis.Repo = repo
	analysis.Number = number
	analysis.AnalyzedAt = a.nowFunc()

	a.cache.Put(analysis)
	fmt.Printf("🧠 分析完成: %s (范围 %s, 复杂度 %d, 置信度 %.2f)\n",
		key, analysis.Scope, analysis.Complexity, analysis.Confidence)

	return analysis, nil
}

// fallbackAnalysis 低置信度兜底：分析失败时保证下游仍然拿到可用对象
func (a *IssueAnalyzer) fallbackAnalysis(owner, repo string, number int, issue *domain.Issue) *domain.IssueAnalysis {
	summary := fmt.Sprintf("issue #%d", number)
	if issue != nil && issue.Title != "" {
		summary = issue.Title
	}

	fallback := &domain.IssueAnalysis{
		Owner:        owner,
		Repo:         repo,
		Number:       number,
		Summary:      summary,
		Scope:        defaultScope,
		Complexity:   defaultComplexity,
		Clarity:      fallbackConfidence,
		Completeness: fallbackConfidence,
		Confidence:   fallbackConfidence,
		Warnings:     []string{fallbackWarning},
		AnalyzedAt:   a.nowFunc(),
	}

	// 兜底结果也进缓存：置信度 0.3 不过阈值，下次调用自然会重新分析
	a.cache.Put(fallback)
	return fallback
}

// ValidateSolution 校验方案是否覆盖需求
// 失败时返回保守兜底：complete=false、coverage=0、所有需求视为未满足，
// 绝不在出错时谎报"方案完整"
func (a *IssueAnalyzer) ValidateSolution(ctx context.Context, analysis *domain.IssueAnalysis, solution string, changedFiles []string) (*domain.SolutionValidation, error) {
	prompt := buildValidationPrompt(analysis, solution, changedFiles)

	raw, err := a.completer.Complete(ctx, prompt, validateSystemPrompt)
	if err != nil {
		log.Printf("❌ LLM 校验方案失败: %v", err)
		return failSafeValidation(analysis), err
	}

	validation, err := parseValidationResponse(raw)
	if err != nil {
		log.Printf("❌ 解析校验结果失败: %v", err)
		return failSafeValidation(analysis), err
	}

	return validation, nil
}

func failSafeValidation(analysis *domain.IssueAnalysis) *domain.SolutionValidation {
	unmet := make([]string, 0, len(analysis.Requirements))
	for _, r := range analysis.Requirements {
		unmet = append(unmet, r.ID)
	}
	return &domain.SolutionValidation{
		Complete:          false,
		Coverage:          0,
		RequirementsUnmet: unmet,
	}
}

// 自动化适配性规则的触发阈值
const (
	minClarity          = 0.4
	maxComplexity       = 7
	maxBreakingRisk     = 0.5
	maxMustRequirements = 10
)

// IsSuitableForAutomation 纯规则判定，无 I/O，同样输入永远给同样结论
// 任何一条规则触发都按规则名报出来，零触发才算适合
func (a *IssueAnalyzer) IsSuitableForAutomation(analysis *domain.IssueAnalysis) domain.SuitabilityReport {
	var reasons []string

	if len(analysis.Blockers) > 0 {
		reasons = append(reasons, fmt.Sprintf("has-blockers: %s", strings.Join(analysis.Blockers, "; ")))
	}
	if analysis.Clarity < minClarity {
		reasons = append(reasons, fmt.Sprintf("low-clarity: %.2f < %.2f", analysis.Clarity, minClarity))
	}
	if analysis.Complexity > maxComplexity {
		reasons = append(reasons, fmt.Sprintf("high-complexity: %d > %d", analysis.Complexity, maxComplexity))
	}
	if analysis.Scope == domain.ScopeEpic {
		reasons = append(reasons, "epic-scope")
	}
	if analysis.BreakingChangeLikelihood > maxBreakingRisk {
		reasons = append(reasons, fmt.Sprintf("breaking-change-risk: %.2f > %.2f", analysis.BreakingChangeLikelihood, maxBreakingRisk))
	}
	if mustCount := analysis.MustCount(); mustCount > maxMustRequirements {
		reasons = append(reasons, fmt.Sprintf("too-many-must-requirements: %d > %d", mustCount, maxMustRequirements))
	}

	return domain.SuitabilityReport{
		Suitable: len(reasons) == 0,
		Reasons:  reasons,
	}
}

// GenerateChecklist 把分析结果渲染成 Markdown 施工清单
// 纯格式化，无 I/O，给定同一份分析产出逐字节相同
func (a *IssueAnalyzer) GenerateChecklist(analysis *domain.IssueAnalysis) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", analysis.Summary)
	fmt.Fprintf(&b, "`%s` · 范围 %s · 复杂度 %d/10 · 置信度 %.2f\n\n",
		analysis.Key(), analysis.Scope, analysis.Complexity, analysis.Confidence)

	if analysis.ProblemStatement != "" {
		fmt.Fprintf(&b, "## 问题\n%s\n\n", analysis.ProblemStatement)
	}
	if analysis.DesiredOutcome != "" {
		fmt.Fprintf(&b, "## 预期结果\n%s\n\n", analysis.DesiredOutcome)
	}

	if len(analysis.Requirements) > 0 {
		b.WriteString("## 需求清单\n")
		for _, r := range analysis.Requirements {
			mark := " "
			if r.Verified {
				mark = "x"
			}
			fmt.Fprintf(&b, "- [%s] **%s** (%s/%s) %s\n", mark, r.ID, r.Type, r.Priority, r.Description)
		}
		b.WriteString("\n")
	}

	if len(analysis.AcceptanceCriteria) > 0 {
		b.WriteString("## 验收标准\n")
		for _, c := range analysis.AcceptanceCriteria {
			fmt.Fprintf(&b, "- [ ] %s\n", c)
		}
		b.WriteString("\n")
	}

	if len(analysis.AffectedFiles) > 0 {
		b.WriteString("## 可能要动的文件\n")
		for _, f := range analysis.AffectedFiles {
			fmt.Fprintf(&b, "- `%s`\n", f)
		}
		b.WriteString("\n")
	}

	if analysis.SuggestedApproach != "" {
		fmt.Fprintf(&b, "## 建议思路\n%s\n\n", analysis.SuggestedApproach)
	}

	if len(analysis.Pitfalls) > 0 {
		b.WriteString("## 容易踩的坑\n")
		for _, p := range analysis.Pitfalls {
			fmt.Fprintf(&b, "- ⚠️ %s\n", p)
		}
		b.WriteString("\n")
	}

	if len(analysis.TestingNotes) > 0 {
		b.WriteString("## 测试要求\n")
		for _, n := range analysis.TestingNotes {
			fmt.Fprintf(&b, "- [ ] %s\n", n)
		}
		b.WriteString("\n")
	}

	if len(analysis.OutOfScope) > 0 {
		b.WriteString("## 明确不做\n")
		for _, o := range analysis.OutOfScope {
			fmt.Fprintf(&b, "- %s\n", o)
		}
		b.WriteString("\n")
	}

	if len(analysis.Warnings) > 0 {
		b.WriteString("## 提醒\n")
		for _, w := range analysis.Warnings {
			fmt.Fprintf(&b, "- ⚠️ %s\n", w)
		}
		b.WriteString("\n")
	}
	if len(analysis.Blockers) > 0 {
		b.WriteString("## 阻塞项\n")
		for _, blocker := range analysis.Blockers {
			fmt.Fprintf(&b, "- 🚫 %s\n", blocker)
		}
		b.WriteString("\n")
	}

	return strings.TrimRight(b.String(), "\n") + "\n"
}

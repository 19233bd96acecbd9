package revision

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github-bounty-hunter/internal/common"
	"github-bounty-hunter/internal/domain"
	"github-bounty-hunter/internal/port"
)

const (
	defaultMaxRevisionsPerPR    = 3 // 一个 PR 最多自动修订几轮，烧完只能人工接手
	defaultMaxIssuesPerRevision = 5 // 一轮最多处理几条意见，多出来的留给下一轮

	// 并发拉取文件内容的 worker 数
	fetchWorkers = 3
)

// Engine 实现了 port.Reviser 接口
// 整条流水线：分类意见 → 白名单过滤 → 按文件归组 → LLM 逐文件重写 → 写回分支
// 自我保护全在这一层：预算上限、无效修订检测、写入失败即停
type Engine struct {
	completer  port.Completer
	forge      port.Forge
	classifier port.FeedbackClassifier
	filter     port.FeedbackFilter
	ledger     *revisionLedger

	maxRevisionsPerPR    int
	maxIssuesPerRevision int
}

// Option 配置修订引擎的函数式选项
type Option func(*Engine)

// WithMaxRevisions 覆盖每个 PR 的修订轮数上限
func WithMaxRevisions(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxRevisionsPerPR = n
		}
	}
}

// WithMaxIssuesPerRevision 覆盖单轮处理的意见条数上限
func WithMaxIssuesPerRevision(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxIssuesPerRevision = n
		}
	}
}

// NewEngine 创建修订引擎，ledgerPath 是修订计数账本的落盘位置
func NewEngine(completer port.Completer, forge port.Forge, classifier port.FeedbackClassifier, filter port.FeedbackFilter, ledgerPath string, opts ...Option) *Engine {
	e := &Engine{
		completer:            completer,
		forge:                forge,
		classifier:           classifier,
		filter:               filter,
		ledger:               newRevisionLedger(ledgerPath),
		maxRevisionsPerPR:    defaultMaxRevisionsPerPR,
		maxIssuesPerRevision: defaultMaxIssuesPerRevision,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// AnalyzeForRevision 判断一个 PR 当前能不能自动修订
// 结果永远非 nil，不能修时 Reason 里写清楚为什么
func (e *Engine) AnalyzeForRevision(ctx context.Context, sub domain.Submission) *domain.RevisionAnalysis {
	key := sub.Key()

	if used := e.ledger.Count(key); used >= e.maxRevisionsPerPR {
		return &domain.RevisionAnalysis{
			CanRevise: false,
			Reason:    fmt.Sprintf("修订预算已用完 (%d/%d)，需要人工接手", used, e.maxRevisionsPerPR),
		}
	}

	issues, err := e.classifier.Classify(ctx, sub)
	if err != nil {
		return &domain.RevisionAnalysis{
			CanRevise: false,
			Reason:    fmt.Sprintf("审阅意见分类失败: %v", err),
		}
	}
	if len(issues) == 0 {
		return &domain.RevisionAnalysis{
			CanRevise: false,
			Reason:    "没有收到任何审阅意见",
		}
	}

	fixable, skipped := e.filter.SplitAutoFixable(issues)
	if len(fixable) == 0 {
		return &domain.RevisionAnalysis{
			CanRevise:      false,
			Reason:         "没有允许自动修复的意见，全部需要人工处理",
			SurfacedIssues: skipped,
		}
	}

	if len(fixable) > e.maxIssuesPerRevision {
		fmt.Printf("📋 可修复意见 %d 条，本轮只处理前 %d 条\n", len(fixable), e.maxIssuesPerRevision)
		fixable = fixable[:e.maxIssuesPerRevision]
	}

	return &domain.RevisionAnalysis{
		CanRevise:       true,
		Issues:          fixable,
		SurfacedIssues:  skipped,
		EstimatedEffort: e.filter.EstimateEffort(fixable),
	}
}

// Revise 执行一轮自动修订
// 永远不返回 error：任何失败 (包括 panic) 都收敛在 Result.Err 里，
// 修订计数只在整轮成功后才加一
func (e *Engine) Revise(ctx context.Context, sub domain.Submission) (result *domain.RevisionResult) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("❌ 修订 %s 时发生 panic: %v", sub.Key(), r)
			result = &domain.RevisionResult{
				Success: false,
				Err:     fmt.Sprintf("修订过程异常中断: %v", r),
			}
		}
	}()

	analysis := e.AnalyzeForRevision(ctx, sub)
	if !analysis.CanRevise {
		return &domain.RevisionResult{
			Success:       false,
			IssuesSkipped: analysis.SurfacedIssues,
			Err:           analysis.Reason,
		}
	}

	fmt.Printf("🔧 开始修订 %s: %d 条意见，预估工作量 %s\n",
		sub.Key(), len(analysis.Issues), analysis.EstimatedEffort)

	prFiles, err := e.forge.ListPullRequestFiles(ctx, sub.Owner, sub.Repo, sub.PRNumber)
	if err != nil {
		return &domain.RevisionResult{
			Success:       false,
			IssuesSkipped: analysis.SurfacedIssues,
			Err:           fmt.Sprintf("拉取 PR 文件列表失败: %v", err),
		}
	}

	var paths []string
	for _, f := range prFiles {
		if !f.IsRemoved() {
			paths = append(paths, f.Filename)
		}
	}
	if len(paths) == 0 {
		return &domain.RevisionResult{
			Success:       false,
			IssuesSkipped: analysis.SurfacedIssues,
			Err:           "PR 里没有可修订的文件",
		}
	}

	// 意见按文件归组。只允许碰 PR 自己改过的文件，定位不到的意见放弃
	groups, dropped := groupIssuesByFile(analysis.Issues, paths)

	skipped := make([]domain.FeedbackIssue, 0, len(analysis.SurfacedIssues)+len(dropped))
	skipped = append(skipped, analysis.SurfacedIssues...)
	skipped = append(skipped, dropped...)

	if len(groups) == 0 {
		return &domain.RevisionResult{
			Success:       false,
			IssuesSkipped: skipped,
			Err:           "意见无法定位到 PR 改过的任何文件",
		}
	}

	targets := make([]string, 0, len(groups))
	for path := range groups {
		targets = append(targets, path)
	}
	sort.Strings(targets) // 固定处理顺序，同样输入产出同样结果

	contents := e.fetchContents(ctx, sub, targets)

	// 逐文件让 LLM 重写。单个文件失败只影响它自己的意见，不拖垮整轮
	var changes []domain.CodeChange
	var addressed []domain.FeedbackIssue

	for _, path := range targets {
		issues := groups[path]

		original, ok := contents[path]
		if !ok {
			skipped = append(skipped, issues...)
			continue
		}

		revised, err := e.reviseFile(ctx, path, original, issues)
		if err != nil {
			log.Printf("⚠️ LLM 修订 %s 失败，这批意见留给人工: %v", path, err)
			skipped = append(skipped, issues...)
			continue
		}

		if isNoopRevision(original, revised) {
			fmt.Printf("⏭️ %s 的修订没有实际变化，跳过\n", path)
			skipped = append(skipped, issues...)
			continue
		}

		changes = append(changes, domain.CodeChange{Path: path, Content: revised, Operation: "update"})
		addressed = append(addressed, issues...)
	}

	if len(changes) == 0 {
		return &domain.RevisionResult{
			Success:       false,
			IssuesSkipped: skipped,
			Err:           "修订没有产生任何实际改动",
		}
	}

	// 逐个写回分支。第一个写失败就停手：宁可半途而废，也不能在坏状态上继续叠
	var written []domain.CodeChange
	for _, change := range changes {
		message := fmt.Sprintf("refactor: apply review feedback to %s", change.Path)
		if err := e.forge.CreateOrUpdateFile(ctx, sub.Owner, sub.Repo, change.Path, sub.Branch, message, change.Content); err != nil {
			log.Printf("❌ 写入 %s 失败，中止剩余写入: %v", change.Path, err)
			return &domain.RevisionResult{
				Success:       false,
				RevisedFiles:  written,
				IssuesSkipped: skipped,
				Err:           fmt.Sprintf("写入 %s 失败，已中止剩余写入: %v", change.Path, err),
			}
		}
		written = append(written, change)
	}

	// 全部写成功，这一轮才计入预算
	e.ledger.Increment(sub.Key())

	summary := buildRevisionSummary(written, addressed, skipped)
	if err := e.forge.CreateComment(ctx, sub.Owner, sub.Repo, sub.PRNumber, summary); err != nil {
		log.Printf("⚠️ 发修订说明评论失败 (修订本身已完成): %v", err)
	}

	fmt.Printf("✅ %s 修订完成 (第 %d 轮): 改了 %d 个文件，处理 %d 条意见\n",
		sub.Key(), e.ledger.Count(sub.Key()), len(written), len(addressed))

	return &domain.RevisionResult{
		Success:         true,
		RevisedFiles:    written,
		Summary:         summary,
		IssuesAddressed: addressed,
		IssuesSkipped:   skipped,
	}
}

// reviseFile 让 LLM 根据意见重写单个文件，返回提取出的新内容
func (e *Engine) reviseFile(ctx context.Context, path, original string, issues []domain.FeedbackIssue) (string, error) {
	raw, err := e.completer.Complete(ctx, buildRevisionPrompt(path, original, issues), revisionSystemPrompt)
	if err != nil {
		return "", common.WrapError(common.ErrCodeLLM, fmt.Sprintf("修订 %s 失败", path), err)
	}
	return common.ExtractCodeBlock(raw), nil
}

type fetchResult struct {
	path    string
	content string
	err     error
}

// fetchContents 并发拉取目标文件在 PR 分支上的当前内容
// 单个文件拉取失败不进结果集，调用方把对应意见跳过即可
func (e *Engine) fetchContents(ctx context.Context, sub domain.Submission, paths []string) map[string]string {
	jobs := make(chan string, len(paths))
	results := make(chan fetchResult, len(paths))

	var wg sync.WaitGroup
	for i := 0; i < fetchWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for path := range jobs {
				content, err := e.forge.GetFileContent(ctx, sub.Owner, sub.Repo, path, sub.Branch)
				results <- fetchResult{path: path, content: content, err: err}
			}
		}()
	}

	for _, p := range paths {
		jobs <- p
	}
	close(jobs)

	wg.Wait()
	close(results)

	contents := make(map[string]string, len(paths))
	for r := range results {
		if r.err != nil {
			log.Printf("⚠️ 拉取 %s@%s 内容失败: %v", r.path, sub.Branch, r.err)
			continue
		}
		contents[r.path] = r.content
	}

	return contents
}

// groupIssuesByFile 把意见按目标文件归组
// file 为 unknown 的意见尝试从描述里匹配 PR 文件 (先整路径再文件名，大小写不敏感)；
// 定位不到、或者指向 PR 没改过的文件的意见，整条放进 dropped
func groupIssuesByFile(issues []domain.FeedbackIssue, prPaths []string) (map[string][]domain.FeedbackIssue, []domain.FeedbackIssue) {
	lowerToPath := make(map[string]string, len(prPaths))
	for _, p := range prPaths {
		lowerToPath[strings.ToLower(p)] = p
	}

	groups := make(map[string][]domain.FeedbackIssue)
	var dropped []domain.FeedbackIssue

	for _, issue := range issues {
		path := resolveIssueFile(issue, prPaths, lowerToPath)
		if path == "" {
			dropped = append(dropped, issue)
			continue
		}
		groups[path] = append(groups[path], issue)
	}

	return groups, dropped
}

func resolveIssueFile(issue domain.FeedbackIssue, prPaths []string, lowerToPath map[string]string) string {
	if issue.File != domain.UnknownFile {
		if orig, ok := lowerToPath[strings.ToLower(issue.File)]; ok {
			return orig
		}
		// 分类器可能只给了文件名没给路径
		base := strings.ToLower(filepath.Base(issue.File))
		for _, p := range prPaths {
			if strings.ToLower(filepath.Base(p)) == base {
				return p
			}
		}
		// 指向了 PR 没改过的文件，不能越界去碰
		return ""
	}

	desc := strings.ToLower(issue.Description)
	for _, p := range prPaths {
		if strings.Contains(desc, strings.ToLower(p)) {
			return p
		}
	}
	for _, p := range prPaths {
		if strings.Contains(desc, strings.ToLower(filepath.Base(p))) {
			return p
		}
	}

	return ""
}

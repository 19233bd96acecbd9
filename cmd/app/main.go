package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github-bounty-hunter/internal/adapter/analyzer"
	"github-bounty-hunter/internal/adapter/classifier"
	"github-bounty-hunter/internal/adapter/feishu"
	"github-bounty-hunter/internal/adapter/filter"
	"github-bounty-hunter/internal/adapter/gemini"
	"github-bounty-hunter/internal/adapter/github"
	"github-bounty-hunter/internal/adapter/portfolio"
	"github-bounty-hunter/internal/adapter/repository"
	"github-bounty-hunter/internal/adapter/revision"
	"github-bounty-hunter/internal/common"
	"github-bounty-hunter/internal/config"
	"github-bounty-hunter/internal/domain"
	"github-bounty-hunter/internal/port"
	"github-bounty-hunter/internal/service"

	"github.com/robfig/cron/v3"
)

// 单轮分析/修订的总超时
const cycleTimeout = 5 * time.Minute

func main() {
	// 1. 定义命令行参数
	mode := flag.String("mode", "analyze", "运行模式: analyze / submit / revise / outcome / watch / stats / trend / goal / search")
	owner := flag.String("owner", "", "仓库 owner")
	repoName := flag.String("repo", "", "仓库名")
	issueNumber := flag.Int("issue", 0, "issue 编号 (analyze 模式)")
	prNumber := flag.Int("pr", 0, "PR 编号 (revise / watch 模式)")
	branch := flag.String("branch", "", "PR 分支名 (revise / watch 模式)")

	bountyID := flag.String("bounty-id", "", "平台侧赏金 ID，用于防重，可空")
	title := flag.String("title", "", "赏金标题，空则用 issue 摘要")
	platform := flag.String("platform", "", "赏金平台 (algora / gitpay / ...)")
	bountyType := flag.String("type", "", "赏金类型 (bug / feature / ...)")
	difficulty := flag.String("difficulty", "", "平台标注的难度")
	reward := flag.Float64("reward", 0, "悬赏金额 (美元)")

	recordID := flag.String("record", "", "账本记录 ID (submit / outcome 模式)")
	accepted := flag.Bool("accepted", false, "维护者是否接受 (outcome 模式)")
	feedback := flag.String("feedback", "", "维护者反馈 (outcome 模式)")
	payout := flag.Float64("payout", 0, "实际到账金额 (outcome 模式)")

	cronSpec := flag.String("cron", "@hourly", "watch 模式的调度表达式")
	period := flag.String("period", "daily", "趋势粒度: daily / weekly / monthly")
	goalType := flag.String("goal-type", "revenue", "目标类型: revenue / bounties / streak / reputation")
	target := flag.Float64("target", 0, "目标数值 (goal 模式)")
	deadline := flag.String("deadline", "", "目标截止日，格式 2006-01-02，可空")
	query := flag.String("query", "", "检索关键词 (search 模式)")
	flag.Parse()

	// 2. 读配置，初始化账房 (所有模式都离不开账本)
	cfg := config.Load()
	tracker, archive := buildTracker(cfg)

	var notifier port.Notifier
	if cfg.Feishu.Enabled() {
		notifier = feishu.NewNotifier(cfg.Feishu.Webhook)
	}

	// 3. 根据模式分流。纯记账模式不碰 LLM 和 GitHub
	switch *mode {
	case "stats":
		runStats(tracker)
	case "trend":
		runTrend(tracker, parsePeriod(*period))
	case "goal":
		runGoal(tracker, *goalType, *target, *deadline)
	case "search":
		runSearch(archive, *query)
	case "submit":
		runSubmit(newLedgerService(tracker, notifier), *recordID)
	case "outcome":
		runOutcome(newLedgerService(tracker, notifier), *recordID, *bountyID, *accepted, *feedback, *payout)
	case "analyze":
		svc, closeFn := newFullService(cfg, tracker, notifier)
		defer closeFn()
		brief := domain.BountyBrief{
			BountyID:   *bountyID,
			Title:      *title,
			Platform:   *platform,
			Type:       *bountyType,
			Difficulty: *difficulty,
			Reward:     *reward,
		}
		runAnalyze(svc, *owner, *repoName, *issueNumber, brief)
	case "revise":
		svc, closeFn := newFullService(cfg, tracker, notifier)
		defer closeFn()
		runRevise(svc, domain.Submission{
			Owner: *owner, Repo: *repoName, PRNumber: *prNumber, Branch: *branch,
		})
	case "watch":
		svc, closeFn := newFullService(cfg, tracker, notifier)
		defer closeFn()
		runWatch(svc, domain.Submission{
			Owner: *owner, Repo: *repoName, PRNumber: *prNumber, Branch: *branch,
		}, *cronSpec)
	default:
		fmt.Println("❌ 未知模式，支持: analyze / submit / revise / outcome / watch / stats / trend / goal / search")
	}
}

// buildTracker 初始化账房，配了 DSN 就挂上 Postgres 归档镜像
// 归档句柄单独返回，search 模式直接查它，没配时为 nil
func buildTracker(cfg config.Config) (*portfolio.Tracker, port.RecordArchive) {
	var opts []portfolio.Option
	var archive port.RecordArchive
	if cfg.Portfolio.ArchiveEnabled() {
		pg, err := repository.NewBountyArchive(cfg.Portfolio.DSN)
		if err != nil {
			log.Fatalf("❌ 归档库初始化失败: %v", err)
		}
		archive = pg
		opts = append(opts, portfolio.WithArchive(pg))
	}
	return portfolio.NewTracker(cfg.Portfolio.StorePath(), opts...), archive
}

// newLedgerService 纯记账场景的服务，不挂 LLM 和 GitHub
func newLedgerService(tracker port.Tracker, notifier port.Notifier) *service.BountyService {
	return service.NewBountyService(nil, nil, tracker, notifier, 0)
}

// newFullService 组装完整服务链: LLM + GitHub + 分析器 + 修订引擎
// 返回的函数负责释放 LLM 客户端
func newFullService(cfg config.Config, tracker port.Tracker, notifier port.Notifier) (*service.BountyService, func()) {
	if !cfg.Gemini.Enabled() {
		log.Fatalf("❌ 缺少 GEMINI_API_KEY，分析和修订模式离不开 LLM")
	}

	completer, err := gemini.NewCompleter(context.Background(), cfg.Gemini.APIKey, cfg.Gemini.Model)
	if err != nil {
		log.Fatalf("❌ AI 初始化失败: %v", err)
	}

	forge := github.NewClient(cfg.GitHub.Token)
	issueAnalyzer := analyzer.NewIssueAnalyzer(completer, forge)
	engine := revision.NewEngine(completer, forge,
		classifier.NewReviewClassifier(completer, forge),
		filter.NewReviewFilter(),
		cfg.Portfolio.LedgerPath(),
		revision.WithMaxRevisions(cfg.Revision.MaxRevisionsPerPR),
		revision.WithMaxIssuesPerRevision(cfg.Revision.MaxIssuesPerRevision),
	)

	svc := service.NewBountyService(issueAnalyzer, engine, tracker, notifier, cfg.Portfolio.ReputationFloor)
	return svc, func() { _ = completer.Close() }
}

// --- 勘探模式 ---
func runAnalyze(svc *service.BountyService, owner, repo string, issue int, brief domain.BountyBrief) {
	if owner == "" || repo == "" || issue <= 0 {
		fmt.Println("⚠️ analyze 模式需要 -owner、-repo 和 -issue 参数")
		fmt.Println("例如: -mode=analyze -owner=acme -repo=exporter -issue=42 -platform=algora -reward=150")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), cycleTimeout)
	defer cancel()

	record, err := svc.ExecuteAnalysisCycle(ctx, owner, repo, issue, brief)
	if err != nil {
		log.Printf("❌ 分析周期失败: %v", err)
		return
	}
	if record != nil {
		fmt.Printf("📝 已开单: %s\n", record.Title)
		fmt.Printf("   后续进展用 -record=%s 记录\n", record.ID)
	}
}

// --- 提交模式 ---
func runSubmit(svc *service.BountyService, recordID string) {
	if recordID == "" {
		fmt.Println("⚠️ submit 模式需要 -record 参数 (analyze 开单时打印的 ID)")
		return
	}
	if err := svc.RecordSubmission(context.Background(), recordID); err != nil {
		log.Printf("❌ 记录提交失败: %v", err)
		return
	}
	fmt.Println("📮 已记录提交，等维护者审阅")
}

// --- 结论模式 ---
func runOutcome(svc *service.BountyService, recordID, bountyID string, accepted bool, feedback string, payout float64) {
	ctx := context.Background()

	switch {
	case recordID != "":
		if err := svc.RecordOutcome(ctx, recordID, accepted, feedback, payout); err != nil {
			if common.IsCode(err, common.ErrCodeNotFound) {
				fmt.Printf("❌ 账本里没有记录 %s，检查 -record 参数 (analyze 开单时打印的 ID)\n", recordID)
				return
			}
			log.Printf("❌ 记录结论失败: %v", err)
			return
		}
	case bountyID != "":
		if payout > 0 {
			fmt.Println("⚠️ 按 -bounty-id 记结论不带收款，到账后请用 -record 再记一笔")
		}
		if err := svc.RecordOutcomeByBountyID(ctx, bountyID, accepted, feedback); err != nil {
			log.Printf("❌ 记录结论失败: %v", err)
			return
		}
	default:
		fmt.Println("⚠️ outcome 模式需要 -record 或 -bounty-id 参数")
		return
	}

	if accepted {
		fmt.Println("🎉 已记录: 维护者接受了这单")
	} else {
		fmt.Println("📝 已记录: 这单被拒了")
	}
}

// --- 修订模式 ---
func runRevise(svc *service.BountyService, sub domain.Submission) {
	if sub.Owner == "" || sub.Repo == "" || sub.PRNumber <= 0 || sub.Branch == "" {
		fmt.Println("⚠️ revise 模式需要 -owner、-repo、-pr 和 -branch 参数")
		return
	}
	executeRevisionCycle(svc, sub)
}

// --- 值守模式 ---
// 按 cron 表达式周期性检查 PR 的新审阅意见并自动修订
func runWatch(svc *service.BountyService, sub domain.Submission, spec string) {
	if sub.Owner == "" || sub.Repo == "" || sub.PRNumber <= 0 || sub.Branch == "" {
		fmt.Println("⚠️ watch 模式需要 -owner、-repo、-pr 和 -branch 参数")
		return
	}

	c := cron.New()
	if _, err := c.AddFunc(spec, func() {
		executeRevisionCycle(svc, sub)
	}); err != nil {
		log.Fatalf("❌ cron 表达式 %q 不合法: %v", spec, err)
	}

	// 设置信号处理，优雅关闭
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	fmt.Printf("⏰ 值守模式已启动，按 %q 调度检查 %s\n", spec, sub.Key())
	fmt.Println("按下 Ctrl+C 可以优雅停止程序")

	// 立即执行一次，不用干等第一个调度点
	executeRevisionCycle(svc, sub)

	c.Start()
	<-sigChan
	fmt.Println("\n👋 收到停止信号，正在退出...")

	// 等正在跑的修订收尾
	<-c.Stop().Done()
}

// executeRevisionCycle 执行一轮修订，整轮限时
func executeRevisionCycle(svc *service.BountyService, sub domain.Submission) {
	ctx, cancel := context.WithTimeout(context.Background(), cycleTimeout)
	defer cancel()
	svc.ExecuteRevisionCycle(ctx, sub)
}

// --- 战绩模式 ---
func runStats(tracker port.Tracker) {
	stats := tracker.GetStats()

	fmt.Println("\n================ [ 赏金战绩 ] ================")
	fmt.Printf("总单数: %d (完成 %d / 失败 %d / 进行中 %d)\n",
		stats.TotalBounties, stats.CompletedBounties, stats.FailedBounties, stats.PendingBounties)
	fmt.Printf("成功率: %.0f%%   信誉分: %.1f\n", stats.SuccessRate*100, stats.ReputationScore)
	fmt.Printf("总收入: $%.2f   平均单价: $%.2f\n", stats.TotalRevenue, stats.AverageReward)
	fmt.Printf("当前连胜: %d   最长连胜: %d   涉足仓库: %d\n",
		stats.CurrentStreak, stats.LongestStreak, stats.UniqueRepos)
	if stats.AvgCompletionHours > 0 {
		fmt.Printf("平均完成耗时: %.1f 小时\n", stats.AvgCompletionHours)
	}

	if len(stats.RevenueByPlatform) > 0 {
		fmt.Println("\n💹 分平台收入:")
		for platform, revenue := range stats.RevenueByPlatform {
			fmt.Printf("  %s: $%.2f\n", platform, revenue)
		}
	}
	if len(stats.RevenueByType) > 0 {
		fmt.Println("\n🗂️ 分类型收入:")
		for bountyType, revenue := range stats.RevenueByType {
			fmt.Printf("  %s: $%.2f\n", bountyType, revenue)
		}
	}

	if goals := tracker.Goals(); len(goals) > 0 {
		fmt.Println("\n🎯 目标:")
		for _, g := range goals {
			fmt.Println(formatGoal(g))
		}
	}
	fmt.Println("==============================================")
}

// --- 趋势模式 ---
func runTrend(tracker port.Tracker, period domain.TrendPeriod) {
	report := tracker.GetTrend(period)

	fmt.Printf("\n================ [ 趋势: %s ] ================\n", report.Period)
	hasData := false
	for _, w := range report.Windows {
		if w.Count == 0 && w.Revenue == 0 {
			continue // 空窗口不刷屏
		}
		hasData = true
		fmt.Printf("%s  收入 $%-8.2f  出单 %-3d  成功率 %.0f%%\n",
			w.Start.Format("2006-01-02"), w.Revenue, w.Count, w.SuccessRate*100)
	}
	if !hasData {
		fmt.Println("📭 这个区间还没有数据")
	}
	fmt.Printf("%s 走向: %s\n", directionIcon(report.Direction), report.Direction)
	fmt.Println("==============================================")
}

// --- 目标模式 ---
func runGoal(tracker port.Tracker, rawType string, target float64, rawDeadline string) {
	goalType, err := parseGoalType(rawType)
	if err != nil {
		fmt.Printf("❌ %v\n", err)
		return
	}
	if target <= 0 {
		fmt.Println("⚠️ goal 模式需要 -target 给出大于零的目标值")
		return
	}
	deadline, err := parseDeadline(rawDeadline)
	if err != nil {
		fmt.Printf("❌ %v\n", err)
		return
	}

	goal := tracker.AddGoal(goalType, target, deadline)
	fmt.Printf("🎯 已立目标: %s 达到 %.0f (当前 %.0f)\n", goal.Type, goal.Target, goal.Current)
	if goal.Status == domain.GoalAchieved {
		fmt.Println("🏆 这个目标现在就已经达成了")
	}

	fmt.Println("\n🎯 全部目标:")
	for _, g := range tracker.Goals() {
		fmt.Println(formatGoal(g))
	}
}

// --- 检索模式 ---
// 翻归档库找做过的同类单子，接新单之前先看看有没有现成经验
func runSearch(archive port.RecordArchive, query string) {
	if query == "" {
		fmt.Println("⚠️ search 模式需要 -query 参数")
		fmt.Println("例如: -mode=search -query=导出")
		return
	}
	if archive == nil {
		fmt.Println("⚠️ 没有配置 PORTFOLIO_DSN，归档检索不可用")
		return
	}

	records, err := archive.Search(context.Background(), query)
	if err != nil {
		log.Printf("❌ 检索归档库失败: %v", err)
		return
	}
	if len(records) == 0 {
		fmt.Printf("📭 归档里没有和 %q 沾边的单子\n", query)
		return
	}

	fmt.Printf("\n================ [ 检索: %s ] ================\n", query)
	for _, r := range records {
		fmt.Printf("%s  [%s]  %s\n", r.CreatedAt.Format("2006-01-02"), r.Status, r.Title)
		fmt.Printf("   %s  $%.2f", r.Repo, r.Reward)
		if r.Platform != "" {
			fmt.Printf("  (%s)", r.Platform)
		}
		fmt.Println()
		if r.Feedback != "" {
			fmt.Printf("   反馈: %s\n", r.Feedback)
		}
	}
	fmt.Println("==============================================")
}

func formatGoal(g *domain.Goal) string {
	line := fmt.Sprintf("  %s %s: %.0f / %.0f", goalIcon(g.Status), g.Type, g.Current, g.Target)
	if g.Deadline != nil {
		line += fmt.Sprintf(" (截止 %s)", g.Deadline.Format("2006-01-02"))
	}
	return line
}

func goalIcon(status domain.GoalStatus) string {
	switch status {
	case domain.GoalAchieved:
		return "✅"
	case domain.GoalFailed:
		return "❌"
	default:
		return "⏳"
	}
}

func directionIcon(direction string) string {
	switch direction {
	case "improving":
		return "📈"
	case "declining":
		return "📉"
	default:
		return "➡️"
	}
}

// parseGoalType 解析目标类型，未知值直接报错而不是瞎猜
func parseGoalType(raw string) (domain.GoalType, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "revenue":
		return domain.GoalRevenue, nil
	case "bounties":
		return domain.GoalBounties, nil
	case "streak":
		return domain.GoalStreak, nil
	case "reputation":
		return domain.GoalReputation, nil
	default:
		return "", fmt.Errorf("未知目标类型 %q，支持 revenue / bounties / streak / reputation", raw)
	}
}

// parsePeriod 解析趋势粒度，认不出来就按日线
func parsePeriod(raw string) domain.TrendPeriod {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "weekly":
		return domain.TrendWeekly
	case "monthly":
		return domain.TrendMonthly
	default:
		return domain.TrendDaily
	}
}

// parseDeadline 解析截止日期，截止日当天整天有效
func parseDeadline(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	day, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil, fmt.Errorf("截止日期格式应为 2006-01-02，收到 %q", raw)
	}
	end := day.Add(24 * time.Hour)
	return &end, nil
}

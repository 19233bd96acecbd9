package service

import (
	"context"
	"fmt"
	"log"

	"github-bounty-hunter/internal/domain"
	"github-bounty-hunter/internal/port"
)

// BountyService 串联一单赏金的完整流程：勘探 → 开单 → 修订 → 记账 → 推送
type BountyService struct {
	analyzer port.Analyzer
	reviser  port.Reviser
	tracker  port.Tracker
	notifier port.Notifier

	// 信誉分低于此值时拒绝自动修订 (0 = 不限制)
	reputationFloor float64
}

// NewBountyService 创建赏金服务
func NewBountyService(
	analyzer port.Analyzer,
	reviser port.Reviser,
	tracker port.Tracker,
	notifier port.Notifier,
	reputationFloor float64,
) *BountyService {
	return &BountyService{
		analyzer:        analyzer,
		reviser:         reviser,
		tracker:         tracker,
		notifier:        notifier,
		reputationFloor: reputationFloor,
	}
}

// ExecuteAnalysisCycle 执行一次勘探周期：分析 issue → 门禁 → 开单 → 输出需求清单
// 不适合自动化或已经接过单时返回 (nil, nil)，这不算错误
func (s *BountyService) ExecuteAnalysisCycle(ctx context.Context, owner, repo string, number int, brief domain.BountyBrief) (*domain.BountyRecord, error) {
	fmt.Printf("🚀 [勘探模式] 开始分析 %s/%s#%d...\n", owner, repo, number)

	// 1. 防重：接过的单不再接
	if brief.BountyID != "" && s.tracker.HasAttempted(ctx, brief.BountyID) {
		fmt.Printf("⏭️ 赏金 %s 已经接过单，跳过\n", brief.BountyID)
		return nil, nil
	}

	// 2. 分析 issue。失败时拿到的是低置信度兜底结果，照常走门禁，
	// 由门禁去拒绝，而不是在这里中断
	analysis, err := s.analyzer.AnalyzeIssue(ctx, owner, repo, number)
	if err != nil {
		log.Printf("⚠️ 分析不完整: %v", err)
	}
	fmt.Printf("✅ 分析完成: %s (置信度 %.2f)\n", analysis.Summary, analysis.Confidence)

	// 3. 自动化门禁
	report := s.analyzer.IsSuitableForAutomation(analysis)
	if !report.Suitable {
		fmt.Println("🙅 这单不适合自动化处理:")
		for _, reason := range report.Reasons {
			fmt.Printf("   - %s\n", reason)
		}
		return nil, nil
	}

	// 4. 开单
	title := brief.Title
	if title == "" {
		title = analysis.Summary
	}
	record := s.tracker.RecordBountyStart(ctx, brief.BountyID, title,
		brief.Platform, brief.Type, brief.Difficulty, brief.Reward,
		fmt.Sprintf("%s/%s", owner, repo))

	// 5. 输出需求清单，人照着这个开工
	fmt.Println(s.analyzer.GenerateChecklist(analysis))

	return record, nil
}

// RecordSubmission 标记某一单的方案已提交 (PR 已开)
func (s *BountyService) RecordSubmission(ctx context.Context, recordID string) error {
	return s.tracker.RecordSubmission(ctx, recordID)
}

// ExecuteRevisionCycle 执行一次修订周期：信誉门禁 → 自动修订 → 推送结果
// 所有失败都收敛在返回的 RevisionResult 里，不抛错
func (s *BountyService) ExecuteRevisionCycle(ctx context.Context, sub domain.Submission) *domain.RevisionResult {
	fmt.Printf("🚀 [修订模式] 开始处理 %s 的审阅意见...\n", sub.Key())

	// 信誉门禁：分数太低说明自动修订在帮倒忙，先停手让人来
	if s.reputationFloor > 0 {
		stats := s.tracker.GetStats()
		if stats.ReputationScore < s.reputationFloor {
			result := &domain.RevisionResult{
				Success: false,
				Err: fmt.Sprintf("信誉分 %.1f 低于门槛 %.1f，暂停自动修订",
					stats.ReputationScore, s.reputationFloor),
			}
			fmt.Printf("🛑 %s\n", result.Err)
			return result
		}
	}

	result := s.reviser.Revise(ctx, sub)

	if result.Success {
		fmt.Printf("✅ 修订完成: 改动 %d 个文件，处理 %d 条意见\n",
			len(result.RevisedFiles), len(result.IssuesAddressed))
	} else {
		fmt.Printf("🙋 需要人工接手: %s\n", result.Err)
	}

	if s.notifier == nil {
		log.Printf("⚠️ 未配置通知通道，跳过推送修订结果")
		return result
	}
	if err := s.notifier.NotifyRevision(ctx, sub, result); err != nil {
		log.Printf("❌ 推送修订结果失败: %v", err)
	}

	return result
}

// RecordOutcome 记录维护者结论，accepted 且 payout > 0 时顺带记收款
// 推账失败是真错误要上抛；推送失败只记日志
func (s *BountyService) RecordOutcome(ctx context.Context, recordID string, accepted bool, feedback string, payout float64) error {
	achievedBefore := s.achievedGoalIDs()

	if err := s.tracker.RecordOutcome(ctx, recordID, accepted, feedback); err != nil {
		return err
	}

	if accepted && payout > 0 {
		if err := s.tracker.RecordPayment(ctx, recordID, payout); err != nil {
			log.Printf("⚠️ 记录收款失败: %v", err)
		}
	}

	if record, ok := s.tracker.GetRecord(recordID); ok {
		s.notifyOutcome(ctx, record)
	}
	s.notifyNewGoals(ctx, achievedBefore)
	return nil
}

// RecordOutcomeByBountyID 按平台侧 ID 记录结论 (webhook 等外部事件入口)
func (s *BountyService) RecordOutcomeByBountyID(ctx context.Context, bountyID string, accepted bool, feedback string) error {
	achievedBefore := s.achievedGoalIDs()

	if err := s.tracker.RecordOutcomeByBountyID(ctx, bountyID, accepted, feedback); err != nil {
		return err
	}

	s.notifyNewGoals(ctx, achievedBefore)
	return nil
}

func (s *BountyService) achievedGoalIDs() map[string]bool {
	achieved := make(map[string]bool)
	for _, g := range s.tracker.Goals() {
		if g.Status == domain.GoalAchieved {
			achieved[g.ID] = true
		}
	}
	return achieved
}

func (s *BountyService) notifyOutcome(ctx context.Context, record *domain.BountyRecord) {
	if s.notifier == nil {
		log.Printf("⚠️ 未配置通知通道，跳过推送 %s 的结果", record.Title)
		return
	}
	if err := s.notifier.NotifyOutcome(ctx, record); err != nil {
		log.Printf("❌ 推送赏金结果失败: %v", err)
	}
}

// notifyNewGoals 把这轮新达成的目标推出去 (和 before 对比找增量)
func (s *BountyService) notifyNewGoals(ctx context.Context, before map[string]bool) {
	for _, g := range s.tracker.Goals() {
		if g.Status != domain.GoalAchieved || before[g.ID] {
			continue
		}
		fmt.Printf("🏆 目标达成: %s 达到 %.0f\n", g.Type, g.Target)
		if s.notifier == nil {
			continue
		}
		if err := s.notifier.NotifyGoal(ctx, g); err != nil {
			log.Printf("❌ 推送目标达成失败: %v", err)
		}
	}
}

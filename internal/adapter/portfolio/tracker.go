package portfolio

import (
	"context"
	"fmt"
	"log"
	"time"

	"github-bounty-hunter/internal/common"
	"github-bounty-hunter/internal/domain"
	"github-bounty-hunter/internal/port"

	"github.com/google/uuid"
)

// Tracker 实现了 port.Tracker 接口：赏金生涯的账房
// 内存是事实来源，JSON 文件用于重启恢复，Postgres 归档 (可选) 是只增镜像。
// 没有锁：调用方保证同一时刻只有一条赏金流程在跑 (见 service 层约定)，
// 落盘失败一律降级为纯内存模式，绝不因为磁盘问题丢掉正在跑的流程
type Tracker struct {
	store   *jsonStore
	archive port.RecordArchive // 可选，nil 表示没配归档库
	nowFunc func() time.Time

	records   []*domain.BountyRecord
	byID      map[string]*domain.BountyRecord
	byBounty  map[string]*domain.BountyRecord // 平台侧 bountyID → 记录
	goals     []*domain.Goal
	snapshots []domain.DailySnapshot
}

// Option 配置账房的函数式选项
type Option func(*Tracker)

// WithNowFunc 注入当前时间，测试用
func WithNowFunc(now func() time.Time) Option {
	return func(t *Tracker) {
		if now != nil {
			t.nowFunc = now
		}
	}
}

// WithArchive 挂上关系型归档库，跨机器防重和历史查询靠它
func WithArchive(archive port.RecordArchive) Option {
	return func(t *Tracker) {
		t.archive = archive
	}
}

// NewTracker 创建账房并从磁盘恢复历史
// 账本文件损坏只记日志，从空账本开始，不让历史问题挡住今天的活
func NewTracker(storePath string, opts ...Option) *Tracker {
	t := &Tracker{
		store:    newJSONStore(storePath),
		nowFunc:  time.Now,
		byID:     make(map[string]*domain.BountyRecord),
		byBounty: make(map[string]*domain.BountyRecord),
	}

	for _, opt := range opts {
		opt(t)
	}

	state, err := t.store.Load()
	if err != nil {
		log.Printf("⚠️ 加载账本失败，从空账本开始: %v", err)
		return t
	}

	t.records = state.Records
	t.goals = state.Goals
	t.snapshots = state.Snapshots
	for _, r := range t.records {
		t.byID[r.ID] = r
		if r.BountyID != "" {
			if _, seen := t.byBounty[r.BountyID]; !seen {
				t.byBounty[r.BountyID] = r
			}
		}
	}

	if len(t.records) > 0 {
		fmt.Printf("📒 账本已恢复: %d 条记录, %d 个目标\n", len(t.records), len(t.goals))
	}

	return t
}

// RecordBountyStart 开单：接下一个新赏金
// 防重是调用方的事 (先问 HasAttempted)，这里照单全收
func (t *Tracker) RecordBountyStart(ctx context.Context, bountyID, title, platform, bountyType, difficulty string, reward float64, repo string) *domain.BountyRecord {
	record := &domain.BountyRecord{
		ID:         uuid.New().String(),
		BountyID:   bountyID,
		Title:      title,
		Platform:   platform,
		Type:       bountyType,
		Difficulty: difficulty,
		Reward:     reward,
		Status:     domain.StatusPending,
		CreatedAt:  t.nowFunc(),
		Repo:       repo,
	}

	t.records = append(t.records, record)
	t.byID[record.ID] = record
	if bountyID != "" {
		if _, seen := t.byBounty[bountyID]; !seen {
			t.byBounty[bountyID] = record
		}
	}

	t.persist()
	t.mirrorToArchive(ctx, record)

	fmt.Printf("💰 开单: %s ($%.0f, %s)\n", title, reward, platform)
	return record
}

// RecordSubmission 标记方案已提交，状态 pending → submitted
func (t *Tracker) RecordSubmission(ctx context.Context, recordID string) error {
	record, ok := t.byID[recordID]
	if !ok {
		return common.NewError(common.ErrCodeNotFound, fmt.Sprintf("找不到记录 %s", recordID))
	}

	if err := t.advance(record, domain.StatusSubmitted); err != nil {
		return err
	}

	now := t.nowFunc()
	record.SubmittedAt = &now

	t.refreshSnapshot()
	t.persist()
	t.mirrorToArchive(ctx, record)

	fmt.Printf("📤 已提交: %s\n", record.Title)
	return nil
}

// RecordOutcome 记录维护者的结论 (接受/拒绝)
// 出结论的同时刷新当日快照和目标进度
func (t *Tracker) RecordOutcome(ctx context.Context, recordID string, accepted bool, feedback string) error {
	record, ok := t.byID[recordID]
	if !ok {
		return common.NewError(common.ErrCodeNotFound, fmt.Sprintf("找不到记录 %s", recordID))
	}

	next := domain.StatusRejected
	if accepted {
		next = domain.StatusAccepted
	}
	if err := t.advance(record, next); err != nil {
		return err
	}

	now := t.nowFunc()
	record.CompletedAt = &now
	record.DurationHours = now.Sub(record.CreatedAt).Hours()
	record.Feedback = feedback

	t.refreshSnapshot()
	t.refreshGoals()
	t.persist()
	t.mirrorToArchive(ctx, record)

	if accepted {
		fmt.Printf("✅ 被接受: %s (耗时 %.1f 小时)\n", record.Title, record.DurationHours)
	} else {
		fmt.Printf("❌ 被拒绝: %s\n", record.Title)
	}
	return nil
}

// RecordPayment 记录收款
// 允许 pending 直达 paid (小额赏金常常跳过审核直接打款)；
// 金额大于 0 时用实际到账金额覆盖开单时的标价
func (t *Tracker) RecordPayment(ctx context.Context, recordID string, amount float64) error {
	record, ok := t.byID[recordID]
	if !ok {
		return common.NewError(common.ErrCodeNotFound, fmt.Sprintf("找不到记录 %s", recordID))
	}

	if err := t.advance(record, domain.StatusPaid); err != nil {
		return err
	}

	now := t.nowFunc()
	record.PaidAt = &now
	if amount > 0 {
		record.Reward = amount
	}
	// 跳过结论直接打款时，打款时刻就是结论时刻
	if record.CompletedAt == nil {
		record.CompletedAt = &now
		record.DurationHours = now.Sub(record.CreatedAt).Hours()
	}

	t.refreshSnapshot()
	t.refreshGoals()
	t.persist()
	t.mirrorToArchive(ctx, record)

	fmt.Printf("💵 已收款: %s ($%.2f)\n", record.Title, record.Reward)
	return nil
}

// RecordOutcomeByBountyID 按平台侧 ID 记录结论
// 平台 webhook 可能比本地开单先到，找不到就现场补一条再记结论
func (t *Tracker) RecordOutcomeByBountyID(ctx context.Context, bountyID string, accepted bool, feedback string) error {
	if bountyID == "" {
		return common.NewError(common.ErrCodeInvalidInput, "bountyID 不能为空")
	}

	record, ok := t.byBounty[bountyID]
	if !ok {
		log.Printf("⚠️ 收到未开单赏金 %s 的结论，现场补录", bountyID)
		record = t.RecordBountyStart(ctx, bountyID, fmt.Sprintf("bounty %s", bountyID), "", "", "", 0, "")
	}

	return t.RecordOutcome(ctx, record.ID, accepted, feedback)
}

// HasAttempted 这个赏金是否已经接过单
// 配了归档库时顺带查一遍库，防止多台机器抢同一单；查库失败按没接过处理
func (t *Tracker) HasAttempted(ctx context.Context, bountyID string) bool {
	if bountyID == "" {
		return false
	}
	if _, ok := t.byBounty[bountyID]; ok {
		return true
	}

	if t.archive != nil {
		exists, err := t.archive.Exists(ctx, bountyID)
		if err != nil {
			log.Printf("⚠️ 查询归档库失败，按未接单处理: %v", err)
			return false
		}
		return exists
	}

	return false
}

// GetRecord 按记录 ID 查询
func (t *Tracker) GetRecord(recordID string) (*domain.BountyRecord, bool) {
	record, ok := t.byID[recordID]
	return record, ok
}

// AddGoal 创建一个目标，Current 立刻按当前统计对齐
func (t *Tracker) AddGoal(goalType domain.GoalType, target float64, deadline *time.Time) *domain.Goal {
	goal := &domain.Goal{
		ID:        uuid.New().String(),
		Type:      goalType,
		Target:    target,
		Current:   goalValue(goalType, t.GetStats()),
		Deadline:  deadline,
		Status:    domain.GoalActive,
		CreatedAt: t.nowFunc(),
	}

	// 建完就已经达标的目标直接标记达成
	if goal.Current >= goal.Target {
		goal.Status = domain.GoalAchieved
	}

	t.goals = append(t.goals, goal)
	t.persist()

	fmt.Printf("🎯 新目标: %s 达到 %.0f (当前 %.0f)\n", goalType, target, goal.Current)
	return goal
}

// Goals 返回全部目标 (含已达成/已失败的)
func (t *Tracker) Goals() []*domain.Goal {
	return t.goals
}

// advance 推进状态机，非法迁移原样报错且不动记录
func (t *Tracker) advance(record *domain.BountyRecord, next domain.BountyStatus) error {
	if !record.Status.CanTransitionTo(next) {
		return common.NewError(common.ErrCodeInvalidInput,
			fmt.Sprintf("%s 的状态不允许从 %s 变成 %s", record.Title, record.Status, next))
	}
	record.Status = next
	return nil
}

// refreshSnapshot 整体重算今天的快照，算多少次结果都一样
func (t *Tracker) refreshSnapshot() {
	today := t.nowFunc().Format("2006-01-02")
	snap := domain.DailySnapshot{Date: today}

	for _, r := range t.records {
		if r.SubmittedAt != nil && r.SubmittedAt.Format("2006-01-02") == today {
			snap.Submissions++
		}
		if r.CompletedAt != nil && r.CompletedAt.Format("2006-01-02") == today {
			if r.Status.IsSuccess() {
				snap.Acceptances++
			} else if r.Status == domain.StatusRejected {
				snap.Rejections++
			}
		}
		if r.PaidAt != nil && r.PaidAt.Format("2006-01-02") == today {
			snap.Revenue += r.Reward
		}
	}

	if done := snap.Acceptances + snap.Rejections; done > 0 {
		snap.SuccessRate = float64(snap.Acceptances) / float64(done)
	}

	for i := range t.snapshots {
		if t.snapshots[i].Date == today {
			t.snapshots[i] = snap
			return
		}
	}
	t.snapshots = append(t.snapshots, snap)
}

// refreshGoals 按最新统计刷新所有进行中的目标
// achieved / failed 是终态：达成过的目标不会因为后来状态变差被撤销
func (t *Tracker) refreshGoals() {
	stats := t.GetStats()
	now := t.nowFunc()

	for _, goal := range t.goals {
		if goal.Status != domain.GoalActive {
			continue
		}

		goal.Current = goalValue(goal.Type, stats)

		if goal.Current >= goal.Target {
			goal.Status = domain.GoalAchieved
			fmt.Printf("🏆 目标达成: %s 达到 %.0f\n", goal.Type, goal.Target)
			continue
		}
		if goal.Deadline != nil && now.After(*goal.Deadline) {
			goal.Status = domain.GoalFailed
		}
	}
}

// goalValue 从统计里取目标对应的指标值
func goalValue(goalType domain.GoalType, stats domain.PortfolioStats) float64 {
	switch goalType {
	case domain.GoalRevenue:
		return stats.TotalRevenue
	case domain.GoalBounties:
		return float64(stats.CompletedBounties)
	case domain.GoalStreak:
		return float64(stats.CurrentStreak)
	case domain.GoalReputation:
		return stats.ReputationScore
	default:
		return 0
	}
}

// persist 落盘；失败只记日志，流程继续纯内存跑
func (t *Tracker) persist() {
	state := &persistedState{
		Records:   t.records,
		Goals:     t.goals,
		Snapshots: t.snapshots,
		SavedAt:   t.nowFunc(),
	}
	if err := t.store.Save(state); err != nil {
		log.Printf("⚠️ 账本落盘失败 (本次继续纯内存运行): %v", err)
	}
}

// mirrorToArchive 把记录镜像进归档库，失败不影响主流程
func (t *Tracker) mirrorToArchive(ctx context.Context, record *domain.BountyRecord) {
	if t.archive == nil {
		return
	}
	if err := t.archive.Save(ctx, record); err != nil {
		log.Printf("⚠️ 归档 %s 失败 (JSON 账本仍是事实来源): %v", record.Title, err)
	}
}

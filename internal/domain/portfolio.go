package domain

import "time"

// BountyStatus 赏金单的状态，只能单向前进：
// pending → submitted → {accepted, rejected} → paid
// (paid 也允许从 pending 直达，见 Tracker.RecordPayment 的快捷路径)
type BountyStatus string

const (
	StatusPending   BountyStatus = "pending"
	StatusSubmitted BountyStatus = "submitted"
	StatusAccepted  BountyStatus = "accepted"
	StatusRejected  BountyStatus = "rejected"
	StatusPaid      BountyStatus = "paid"
)

// rank 状态机里的序号，禁止回退用
func (s BountyStatus) rank() int {
	switch s {
	case StatusPending:
		return 0
	case StatusSubmitted:
		return 1
	case StatusAccepted, StatusRejected:
		return 2
	case StatusPaid:
		return 3
	default:
		return -1
	}
}

// CanTransitionTo 判断状态是否允许前进到 next
func (s BountyStatus) CanTransitionTo(next BountyStatus) bool {
	if s == StatusRejected {
		// rejected 是终态，不能再 paid
		return false
	}
	return next.rank() > s.rank()
}

// IsSuccess accepted 和 paid 都算成功
func (s BountyStatus) IsSuccess() bool {
	return s == StatusAccepted || s == StatusPaid
}

// IsCompleted 已经有结论 (不管成败)
func (s BountyStatus) IsCompleted() bool {
	return s == StatusAccepted || s == StatusRejected || s == StatusPaid
}

// BountyRecord 一次赏金尝试的完整生命周期记录
// 创建后只会原地推进状态，永不删除；JSON 文件是事实来源，Postgres 归档是镜像
type BountyRecord struct {
	ID       string `json:"id" gorm:"primaryKey"`
	BountyID string `json:"bounty_id" gorm:"index"` // 赏金平台侧的 ID
	Title    string `json:"title"`
	Platform string `json:"platform"` // algora / gitpay / 自营 等
	Type     string `json:"type"`     // bug / feature / docs 等
	// 难度标签 (平台给的，不是我们算的)
	Difficulty string  `json:"difficulty"`
	Reward     float64 `json:"reward"` // 美元

	Status BountyStatus `json:"status"`

	CreatedAt   time.Time  `json:"created_at"`
	SubmittedAt *time.Time `json:"submitted_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"` // accepted/rejected 的时刻
	PaidAt      *time.Time `json:"paid_at,omitempty"`

	Repo       string `json:"repo,omitempty"` // owner/repo
	Maintainer string `json:"maintainer,omitempty"`
	Feedback   string `json:"feedback,omitempty" gorm:"type:text"` // 维护者的反馈原文

	// 从开始到出结论的耗时 (小时)，出结论时计算
	DurationHours float64 `json:"duration_hours"`
}

// BountyBrief 开单所需的赏金平台侧信息，由调用方 (CLI/上游爬虫) 提供
type BountyBrief struct {
	BountyID   string  `json:"bounty_id"`
	Title      string  `json:"title"` // 空则用分析出来的 issue 摘要
	Platform   string  `json:"platform"`
	Type       string  `json:"type"`
	Difficulty string  `json:"difficulty"`
	Reward     float64 `json:"reward"`
}

// DailySnapshot 按自然日汇总的滚存快照
// 每次记录当天结果时整体重算，幂等
type DailySnapshot struct {
	Date        string  `json:"date"` // 2006-01-02
	Revenue     float64 `json:"revenue"`
	Submissions int     `json:"submissions"`
	Acceptances int     `json:"acceptances"`
	Rejections  int     `json:"rejections"`
	SuccessRate float64 `json:"success_rate"`
}

// GoalType 目标类型
type GoalType string

const (
	GoalRevenue    GoalType = "revenue"    // 累计收入
	GoalBounties   GoalType = "bounties"   // 完成单数
	GoalStreak     GoalType = "streak"     // 连胜长度
	GoalReputation GoalType = "reputation" // 信誉分
)

// GoalStatus 目标状态，离开 active 后不再变化
type GoalStatus string

const (
	GoalActive   GoalStatus = "active"
	GoalAchieved GoalStatus = "achieved"
	GoalFailed   GoalStatus = "failed"
)

// Goal 一个由调用方显式创建的目标，每次记录结果时刷新 Current
type Goal struct {
	ID       string     `json:"id"`
	Type     GoalType   `json:"type"`
	Target   float64    `json:"target"`
	Current  float64    `json:"current"`
	Deadline *time.Time `json:"deadline,omitempty"`
	Status   GoalStatus `json:"status"`

	CreatedAt time.Time `json:"created_at"`
}

// PortfolioStats 从全量 BountyRecord 纯计算出来的统计，永不落盘
type PortfolioStats struct {
	TotalBounties     int `json:"total_bounties"`
	CompletedBounties int `json:"completed_bounties"` // accepted + paid
	FailedBounties    int `json:"failed_bounties"`    // rejected
	PendingBounties   int `json:"pending_bounties"`   // pending + submitted

	// 成功率 = completed / (completed + failed)，空集为 0
	SuccessRate float64 `json:"success_rate"`

	TotalRevenue  float64 `json:"total_revenue"` // 只算已支付的
	AverageReward float64 `json:"average_reward"`

	RevenueByPlatform map[string]float64 `json:"revenue_by_platform"`
	RevenueByType     map[string]float64 `json:"revenue_by_type"`

	AvgCompletionHours float64 `json:"avg_completion_hours"`

	CurrentStreak int `json:"current_streak"`
	LongestStreak int `json:"longest_streak"`
	UniqueRepos   int `json:"unique_repos"`

	// 信誉分 (0-100)：单量/成功率/连胜/仓库多样性 按 20/40/20/20 加权
	ReputationScore float64 `json:"reputation_score"`
}

// TrendPeriod 趋势统计的时间粒度
type TrendPeriod string

const (
	TrendDaily   TrendPeriod = "daily"   // 30 个窗口
	TrendWeekly  TrendPeriod = "weekly"  // 12 个窗口
	TrendMonthly TrendPeriod = "monthly" // 6 个窗口
)

// TrendWindow 一个时间窗口内的汇总
type TrendWindow struct {
	Start       time.Time `json:"start"`
	Revenue     float64   `json:"revenue"`
	SuccessRate float64   `json:"success_rate"`
	Count       int       `json:"count"`
}

// TrendReport 趋势报告：前半窗口 vs 后半窗口的成功率走向
type TrendReport struct {
	Period    TrendPeriod   `json:"period"`
	Windows   []TrendWindow `json:"windows"`
	Direction string        `json:"direction"` // improving / declining / stable
}

package portfolio

import (
	"sort"

	"github-bounty-hunter/internal/domain"
)

// 信誉分四个维度的权重和饱和点
// 单量 20 分 (20 单饱和)、成功率 40 分、最长连胜 20 分 (10 连胜饱和)、
// 仓库多样性 20 分 (10 个仓库饱和)
const (
	reputationVolumeCap  = 20.0
	reputationStreakCap  = 10.0
	reputationRepoCap    = 10.0
	reputationVolumeMax  = 20.0
	reputationSuccessMax = 40.0
	reputationStreakMax  = 20.0
	reputationRepoMax    = 20.0
)

// GetStats 从全量记录现算统计，纯计算不落盘
func (t *Tracker) GetStats() domain.PortfolioStats {
	return computeStats(t.records)
}

func computeStats(records []*domain.BountyRecord) domain.PortfolioStats {
	stats := domain.PortfolioStats{
		TotalBounties:     len(records),
		RevenueByPlatform: make(map[string]float64),
		RevenueByType:     make(map[string]float64),
	}

	paidCount := 0
	totalHours := 0.0
	completedCount := 0
	repos := make(map[string]bool)

	for _, r := range records {
		switch {
		case r.Status.IsSuccess():
			stats.CompletedBounties++
		case r.Status == domain.StatusRejected:
			stats.FailedBounties++
		default:
			stats.PendingBounties++
		}

		if r.Status == domain.StatusPaid {
			stats.TotalRevenue += r.Reward
			paidCount++
			if r.Platform != "" {
				stats.RevenueByPlatform[r.Platform] += r.Reward
			}
			if r.Type != "" {
				stats.RevenueByType[r.Type] += r.Reward
			}
		}

		if r.CompletedAt != nil {
			totalHours += r.DurationHours
			completedCount++
		}

		if r.Repo != "" {
			repos[r.Repo] = true
		}
	}

	// 成功率只看有结论的单子，没出结论的不算分母
	if decided := stats.CompletedBounties + stats.FailedBounties; decided > 0 {
		stats.SuccessRate = float64(stats.CompletedBounties) / float64(decided)
	}
	if paidCount > 0 {
		stats.AverageReward = stats.TotalRevenue / float64(paidCount)
	}
	if completedCount > 0 {
		stats.AvgCompletionHours = totalHours / float64(completedCount)
	}

	stats.UniqueRepos = len(repos)
	stats.CurrentStreak, stats.LongestStreak = computeStreaks(records)
	stats.ReputationScore = computeReputation(stats)

	return stats
}

// computeStreaks 按出结论的时间顺序算连胜：成功加一，被拒清零
func computeStreaks(records []*domain.BountyRecord) (current, longest int) {
	var decided []*domain.BountyRecord
	for _, r := range records {
		if r.CompletedAt != nil {
			decided = append(decided, r)
		}
	}
	sort.SliceStable(decided, func(i, j int) bool {
		return decided[i].CompletedAt.Before(*decided[j].CompletedAt)
	})

	for _, r := range decided {
		if r.Status.IsSuccess() {
			current++
			if current > longest {
				longest = current
			}
		} else {
			current = 0
		}
	}

	return current, longest
}

// computeReputation 信誉分 = 单量 + 成功率 + 连胜 + 仓库多样性，钳在 0-100
func computeReputation(stats domain.PortfolioStats) float64 {
	volume := reputationVolumeMax * min(float64(stats.CompletedBounties)/reputationVolumeCap, 1)
	success := reputationSuccessMax * stats.SuccessRate
	streak := reputationStreakMax * min(float64(stats.LongestStreak)/reputationStreakCap, 1)
	variety := reputationRepoMax * min(float64(stats.UniqueRepos)/reputationRepoCap, 1)

	score := volume + success + streak + variety
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

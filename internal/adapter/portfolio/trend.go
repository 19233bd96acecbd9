package portfolio

import (
	"time"

	"github-bounty-hunter/internal/domain"
)

// 各粒度的窗口数量和单窗口天数
var trendShapes = map[domain.TrendPeriod]struct {
	windows  int
	spanDays int
}{
	domain.TrendDaily:   {windows: 30, spanDays: 1},
	domain.TrendWeekly:  {windows: 12, spanDays: 7},
	domain.TrendMonthly: {windows: 6, spanDays: 30},
}

// 前后半段平均成功率差超过这个值才算有走向，否则算平稳
const directionThreshold = 0.05

// GetTrend 生成趋势报告，纯计算不落盘
// 窗口从旧到新排列；收入按打款时间归桶，成功率按出结论时间归桶
func (t *Tracker) GetTrend(period domain.TrendPeriod) *domain.TrendReport {
	shape, ok := trendShapes[period]
	if !ok {
		period = domain.TrendDaily
		shape = trendShapes[period]
	}

	now := t.nowFunc()
	// 桶边界对齐自然日，今天算进最后一个窗口
	dayEnd := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()).Add(24 * time.Hour)
	span := time.Duration(shape.spanDays) * 24 * time.Hour
	start := dayEnd.Add(-time.Duration(shape.windows) * span)

	windows := make([]domain.TrendWindow, shape.windows)
	for i := range windows {
		windows[i].Start = start.Add(time.Duration(i) * span)
	}

	bucket := func(ts time.Time) int {
		if ts.Before(start) || !ts.Before(dayEnd) {
			return -1
		}
		return int(ts.Sub(start) / span)
	}

	successes := make([]int, shape.windows)

	for _, r := range t.records {
		if r.PaidAt != nil {
			if i := bucket(*r.PaidAt); i >= 0 {
				windows[i].Revenue += r.Reward
			}
		}
		if r.CompletedAt != nil {
			if i := bucket(*r.CompletedAt); i >= 0 {
				windows[i].Count++
				if r.Status.IsSuccess() {
					successes[i]++
				}
			}
		}
	}

	for i := range windows {
		if windows[i].Count > 0 {
			windows[i].SuccessRate = float64(successes[i]) / float64(windows[i].Count)
		}
	}

	return &domain.TrendReport{
		Period:    period,
		Windows:   windows,
		Direction: trendDirection(windows),
	}
}

// trendDirection 比较前半段和后半段的平均成功率
// 空窗口 (没有出结论的单子) 不参与平均，免得长假期把走向拉成假下滑；
// 任何一半完全没有数据时只能算平稳
func trendDirection(windows []domain.TrendWindow) string {
	half := len(windows) / 2
	first, firstOK := avgSuccessRate(windows[:half])
	second, secondOK := avgSuccessRate(windows[half:])

	if !firstOK || !secondOK {
		return "stable"
	}

	switch {
	case second-first > directionThreshold:
		return "improving"
	case first-second > directionThreshold:
		return "declining"
	default:
		return "stable"
	}
}

func avgSuccessRate(windows []domain.TrendWindow) (float64, bool) {
	sum := 0.0
	n := 0
	for _, w := range windows {
		if w.Count > 0 {
			sum += w.SuccessRate
			n++
		}
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}

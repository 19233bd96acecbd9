package filter

import (
	"github-bounty-hunter/internal/domain"
)

// 工作量估算的分档边界 (按严重度权重求和)
const (
	effortTrivialMax  = 2
	effortEasyMax     = 6
	effortModerateMax = 12
)

// ReviewFilter 实现了 port.FeedbackFilter 接口
// 自动修复只碰白名单内的意见：严重度和类别都要在名单里才放行，
// 其余的原样浮出来留给人工处理
type ReviewFilter struct {
	allowedSeverities map[domain.FeedbackSeverity]bool
	allowedTypes      map[domain.FeedbackType]bool
}

// Option 配置过滤器的函数式选项
type Option func(*ReviewFilter)

// WithSeverities 替换严重度白名单
func WithSeverities(severities ...domain.FeedbackSeverity) Option {
	return func(f *ReviewFilter) {
		f.allowedSeverities = make(map[domain.FeedbackSeverity]bool, len(severities))
		for _, s := range severities {
			f.allowedSeverities[s] = true
		}
	}
}

// WithTypes 替换类别白名单
func WithTypes(types ...domain.FeedbackType) Option {
	return func(f *ReviewFilter) {
		f.allowedTypes = make(map[domain.FeedbackType]bool, len(types))
		for _, t := range types {
			f.allowedTypes[t] = true
		}
	}
}

// NewReviewFilter 创建过滤器
// 默认白名单刻意保守：只放行小问题和建议，
// 类别上只碰代码风格/文档/缺测试这种不伤逻辑的改动
func NewReviewFilter(opts ...Option) *ReviewFilter {
	f := &ReviewFilter{
		allowedSeverities: map[domain.FeedbackSeverity]bool{
			domain.SeverityMinor:      true,
			domain.SeveritySuggestion: true,
		},
		allowedTypes: map[domain.FeedbackType]bool{
			domain.FeedbackCodeStyle:     true,
			domain.FeedbackDocumentation: true,
			domain.FeedbackMissingTests:  true,
		},
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// SplitAutoFixable 把意见切成两摞：可自动修的和只能人工看的
// 两个白名单都命中才算可修，顺序保持输入顺序不变
func (f *ReviewFilter) SplitAutoFixable(issues []domain.FeedbackIssue) (fixable, skipped []domain.FeedbackIssue) {
	for _, issue := range issues {
		if f.allowedSeverities[issue.Severity] && f.allowedTypes[issue.Type] {
			fixable = append(fixable, issue)
		} else {
			skipped = append(skipped, issue)
		}
	}
	return fixable, skipped
}

// EstimateEffort 按严重度权重求和，折算成工作量档位
func (f *ReviewFilter) EstimateEffort(issues []domain.FeedbackIssue) string {
	total := 0
	for _, issue := range issues {
		total += issue.Severity.EffortWeight()
	}

	switch {
	case total <= effortTrivialMax:
		return "trivial"
	case total <= effortEasyMax:
		return "easy"
	case total <= effortModerateMax:
		return "moderate"
	default:
		return "complex"
	}
}

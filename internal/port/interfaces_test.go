package port

import (
	"context"
	"testing"
	"time"

	"github-bounty-hunter/internal/domain"

	"github.com/stretchr/testify/assert"
)

// 接口本身没有行为可测，但用桩实现做编译期断言，
// 接口签名一旦改动这里会第一时间挂掉
var (
	_ Completer          = (*stubCompleter)(nil)
	_ Forge              = (*stubForge)(nil)
	_ FeedbackClassifier = (*stubClassifier)(nil)
	_ FeedbackFilter     = (*stubFilter)(nil)
	_ Analyzer           = (*stubAnalyzer)(nil)
	_ Reviser            = (*stubReviser)(nil)
	_ Tracker            = (*stubTracker)(nil)
	_ Notifier           = (*stubNotifier)(nil)
	_ RecordArchive      = (*stubArchive)(nil)
)

type stubCompleter struct{}

func (s *stubCompleter) Complete(ctx context.Context, userPrompt, systemPrompt string) (string, error) {
	return "", nil
}

type stubForge struct{}

func (s *stubForge) GetIssue(ctx context.Context, owner, repo string, number int) (*domain.Issue, error) {
	return nil, nil
}

func (s *stubForge) ListIssueComments(ctx context.Context, owner, repo string, number int) ([]*domain.IssueComment, error) {
	return nil, nil
}

func (s *stubForge) GetRepo(ctx context.Context, owner, repo string) (*domain.RepoInfo, error) {
	return nil, nil
}

func (s *stubForge) SearchIssues(ctx context.Context, query string) ([]*domain.RelatedPR, error) {
	return nil, nil
}

func (s *stubForge) ListPullRequestFiles(ctx context.Context, owner, repo string, number int) ([]*domain.PullRequestFile, error) {
	return nil, nil
}

func (s *stubForge) GetFileContent(ctx context.Context, owner, repo, path, ref string) (string, error) {
	return "", nil
}

func (s *stubForge) CreateOrUpdateFile(ctx context.Context, owner, repo, path, branch, message, content string) error {
	return nil
}

func (s *stubForge) CreateComment(ctx context.Context, owner, repo string, number int, body string) error {
	return nil
}

type stubClassifier struct{}

func (s *stubClassifier) Classify(ctx context.Context, sub domain.Submission) ([]domain.FeedbackIssue, error) {
	return nil, nil
}

type stubFilter struct{}

func (s *stubFilter) SplitAutoFixable(issues []domain.FeedbackIssue) (fixable, skipped []domain.FeedbackIssue) {
	return nil, nil
}

func (s *stubFilter) EstimateEffort(issues []domain.FeedbackIssue) string {
	return ""
}

type stubAnalyzer struct{}

func (s *stubAnalyzer) AnalyzeIssue(ctx context.Context, owner, repo string, number int) (*domain.IssueAnalysis, error) {
	return nil, nil
}

func (s *stubAnalyzer) ValidateSolution(ctx context.Context, analysis *domain.IssueAnalysis, solution string, changedFiles []string) (*domain.SolutionValidation, error) {
	return nil, nil
}

func (s *stubAnalyzer) IsSuitableForAutomation(analysis *domain.IssueAnalysis) domain.SuitabilityReport {
	return domain.SuitabilityReport{}
}

func (s *stubAnalyzer) GenerateChecklist(analysis *domain.IssueAnalysis) string {
	return ""
}

type stubReviser struct{}

func (s *stubReviser) AnalyzeForRevision(ctx context.Context, sub domain.Submission) *domain.RevisionAnalysis {
	return nil
}

func (s *stubReviser) Revise(ctx context.Context, sub domain.Submission) *domain.RevisionResult {
	return nil
}

type stubTracker struct{}

func (s *stubTracker) RecordBountyStart(ctx context.Context, bountyID, title, platform, bountyType, difficulty string, reward float64, repo string) *domain.BountyRecord {
	return nil
}

func (s *stubTracker) RecordSubmission(ctx context.Context, recordID string) error { return nil }

func (s *stubTracker) RecordOutcome(ctx context.Context, recordID string, accepted bool, feedback string) error {
	return nil
}

func (s *stubTracker) RecordPayment(ctx context.Context, recordID string, amount float64) error {
	return nil
}

func (s *stubTracker) RecordOutcomeByBountyID(ctx context.Context, bountyID string, accepted bool, feedback string) error {
	return nil
}

func (s *stubTracker) HasAttempted(ctx context.Context, bountyID string) bool { return false }

func (s *stubTracker) GetRecord(recordID string) (*domain.BountyRecord, bool) { return nil, false }

func (s *stubTracker) AddGoal(goalType domain.GoalType, target float64, deadline *time.Time) *domain.Goal {
	return nil
}

func (s *stubTracker) Goals() []*domain.Goal { return nil }

func (s *stubTracker) GetStats() domain.PortfolioStats { return domain.PortfolioStats{} }

func (s *stubTracker) GetTrend(period domain.TrendPeriod) *domain.TrendReport { return nil }

type stubNotifier struct{}

func (s *stubNotifier) NotifyOutcome(ctx context.Context, record *domain.BountyRecord) error {
	return nil
}

func (s *stubNotifier) NotifyRevision(ctx context.Context, sub domain.Submission, result *domain.RevisionResult) error {
	return nil
}

func (s *stubNotifier) NotifyGoal(ctx context.Context, goal *domain.Goal) error { return nil }

type stubArchive struct{}

func (s *stubArchive) Save(ctx context.Context, record *domain.BountyRecord) error { return nil }

func (s *stubArchive) Exists(ctx context.Context, bountyID string) (bool, error) {
	return false, nil
}

func (s *stubArchive) Search(ctx context.Context, query string) ([]*domain.BountyRecord, error) {
	return nil, nil
}

func TestInterfaces(t *testing.T) {
	// 桩实现编译通过即说明接口定义自洽
	assert.NotNil(t, &stubForge{})
	assert.NotNil(t, &stubTracker{})
}

package analyzer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github-bounty-hunter/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// Mock implementations for testing
type MockCompleter struct {
	mock.Mock
}

func (m *MockCompleter) Complete(ctx context.Context, userPrompt, systemPrompt string) (string, error) {
	args := m.Called(ctx, userPrompt, systemPrompt)
	return args.String(0), args.Error(1)
}

type MockForge struct {
	mock.Mock
}

func (m *MockForge) GetIssue(ctx context.Context, owner, repo string, number int) (*domain.Issue, error) {
	args := m.Called(ctx, owner, repo, number)
	return args.Get(0).(*domain.Issue), args.Error(1)
}

func (m *MockForge) ListIssueComments(ctx context.Context, owner, repo string, number int) ([]*domain.IssueComment, error) {
	args := m.Called(ctx, owner, repo, number)
	return args.Get(0).([]*domain.IssueComment), args.Error(1)
}

func (m *MockForge) GetRepo(ctx context.Context, owner, repo string) (*domain.RepoInfo, error) {
	args := m.Called(ctx, owner, repo)
	return args.Get(0).(*domain.RepoInfo), args.Error(1)
}

func (m *MockForge) SearchIssues(ctx context.Context, query string) ([]*domain.RelatedPR, error) {
	args := m.Called(ctx, query)
	return args.Get(0).([]*domain.RelatedPR), args.Error(1)
}

func (m *MockForge) ListPullRequestFiles(ctx context.Context, owner, repo string, number int) ([]*domain.PullRequestFile, error) {
	args := m.Called(ctx, owner, repo, number)
	return args.Get(0).([]*domain.PullRequestFile), args.Error(1)
}

func (m *MockForge) GetFileContent(ctx context.Context, owner, repo, path, ref string) (string, error) {
	args := m.Called(ctx, owner, repo, path, ref)
	return args.String(0), args.Error(1)
}

func (m *MockForge) CreateOrUpdateFile(ctx context.Context, owner, repo, path, branch, message, content string) error {
	args := m.Called(ctx, owner, repo, path, branch, message, content)
	return args.Error(0)
}

func (m *MockForge) CreateComment(ctx context.Context, owner, repo string, number int, body string) error {
	args := m.Called(ctx, owner, repo, number, body)
	return args.Error(0)
}

var fixedNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestAnalyzer(completer *MockCompleter, forge *MockForge) *IssueAnalyzer {
	a := NewIssueAnalyzer(completer, forge)
	a.nowFunc = func() time.Time { return fixedNow }
	return a
}

func stubIssue() *domain.Issue {
	return &domain.Issue{
		Number: 7,
		Title:  "fix typo in README",
		Body:   "The word 'recieve' should be 'receive'.",
		Labels: []string{"documentation"},
		State:  "open",
	}
}

// 置信度 = min(0.9, 0.8) = 0.8，高于缓存阈值
const highConfidenceJSON = `{
	"summary": "修复 README 里的拼写错误",
	"requirements": [{"id": "R1", "description": "把 recieve 改成 receive", "type": "functional", "priority": "must"}],
	"scope": "trivial",
	"complexity": 1,
	"breaking_change_likelihood": 0,
	"clarity": 0.9,
	"completeness": 0.8
}`

// 置信度 = min(0.6, 0.9) = 0.6，过不了缓存阈值
const lowConfidenceJSON = `{
	"summary": "描述不太清楚的issue",
	"scope": "medium",
	"complexity": 5,
	"clarity": 0.6,
	"completeness": 0.9
}`

func setupHappyForge(forge *MockForge) {
	forge.On("GetIssue", mock.Anything, "acme", "tool", 7).Return(stubIssue(), nil)
	forge.On("ListIssueComments", mock.Anything, "acme", "tool", 7).Return([]*domain.IssueComment{}, nil)
	forge.On("GetRepo", mock.Anything, "acme", "tool").Return(&domain.RepoInfo{FullName: "acme/tool", Language: "Go"}, nil)
	forge.On("SearchIssues", mock.Anything, mock.Anything).Return([]*domain.RelatedPR{}, nil)
}

func TestIssueAnalyzer_AnalyzeIssue(t *testing.T) {
	t.Run("正常分析流程", func(t *testing.T) {
		completer := new(MockCompleter)
		forge := new(MockForge)
		setupHappyForge(forge)
		completer.On("Complete", mock.Anything, mock.Anything, analysisSystemPrompt).Return(highConfidenceJSON, nil)

		a := newTestAnalyzer(completer, forge)
		analysis, err := a.AnalyzeIssue(context.Background(), "acme", "tool", 7)

		assert.NoError(t, err)
		assert.Equal(t, "acme", analysis.Owner)
		assert.Equal(t, "tool", analysis.Repo)
		assert.Equal(t, 7, analysis.Number)
		assert.Equal(t, "修复 README 里的拼写错误", analysis.Summary)
		assert.Equal(t, 0.8, analysis.Confidence)
		assert.Equal(t, fixedNow, analysis.AnalyzedAt)

		forge.AssertExpectations(t)
		completer.AssertExpectations(t)
	})

	t.Run("高置信度结果第二次直接走缓存", func(t *testing.T) {
		completer := new(MockCompleter)
		forge := new(MockForge)
		setupHappyForge(forge)
		completer.On("Complete", mock.Anything, mock.Anything, analysisSystemPrompt).Return(highConfidenceJSON, nil)

		a := newTestAnalyzer(completer, forge)

		first, err := a.AnalyzeIssue(context.Background(), "acme", "tool", 7)
		assert.NoError(t, err)

		second, err := a.AnalyzeIssue(context.Background(), "acme", "tool", 7)
		assert.NoError(t, err)
		assert.Same(t, first, second, "缓存命中应返回同一个对象")

		// LLM 和 GitHub 都只被打了一次
		completer.AssertNumberOfCalls(t, "Complete", 1)
		forge.AssertNumberOfCalls(t, "GetIssue", 1)
	})

	t.Run("低置信度结果不复用会重新分析", func(t *testing.T) {
		completer := new(MockCompleter)
		forge := new(MockForge)
		setupHappyForge(forge)
		completer.On("Complete", mock.Anything, mock.Anything, analysisSystemPrompt).Return(lowConfidenceJSON, nil)

		a := newTestAnalyzer(completer, forge)

		_, err := a.AnalyzeIssue(context.Background(), "acme", "tool", 7)
		assert.NoError(t, err)
		_, err = a.AnalyzeIssue(context.Background(), "acme", "tool", 7)
		assert.NoError(t, err)

		completer.AssertNumberOfCalls(t, "Complete", 2)
	})

	t.Run("issue获取失败返回兜底分析", func(t *testing.T) {
		completer := new(MockCompleter)
		forge := new(MockForge)
		forge.On("GetIssue", mock.Anything, "acme", "tool", 7).Return((*domain.Issue)(nil), errors.New("404 not found"))
		forge.On("ListIssueComments", mock.Anything, "acme", "tool", 7).Return([]*domain.IssueComment{}, nil)
		forge.On("GetRepo", mock.Anything, "acme", "tool").Return((*domain.RepoInfo)(nil), nil)
		forge.On("SearchIssues", mock.Anything, mock.Anything).Return([]*domain.RelatedPR{}, nil)

		a := newTestAnalyzer(completer, forge)
		analysis, err := a.AnalyzeIssue(context.Background(), "acme", "tool", 7)

		assert.Error(t, err)
		if assert.NotNil(t, analysis) {
			assert.Equal(t, "issue #7", analysis.Summary)
			assert.Equal(t, fallbackConfidence, analysis.Confidence)
			assert.Contains(t, analysis.Warnings, fallbackWarning)
		}
		// LLM 不应被调用
		completer.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("LLM调用失败返回兜底分析", func(t *testing.T) {
		completer := new(MockCompleter)
		forge := new(MockForge)
		setupHappyForge(forge)
		completer.On("Complete", mock.Anything, mock.Anything, analysisSystemPrompt).Return("", errors.New("quota exceeded"))

		a := newTestAnalyzer(completer, forge)
		analysis, err := a.AnalyzeIssue(context.Background(), "acme", "tool", 7)

		assert.Error(t, err)
		if assert.NotNil(t, analysis) {
			// issue 已经拿到了，兜底时用它的标题当总结
			assert.Equal(t, "fix typo in README", analysis.Summary)
			assert.Equal(t, fallbackConfidence, analysis.Confidence)
			assert.Equal(t, defaultScope, analysis.Scope)
			assert.Equal(t, defaultComplexity, analysis.Complexity)
			assert.Contains(t, analysis.Warnings, fallbackWarning)
		}
	})

	t.Run("LLM返回解析不了的内容也走兜底", func(t *testing.T) {
		completer := new(MockCompleter)
		forge := new(MockForge)
		setupHappyForge(forge)
		completer.On("Complete", mock.Anything, mock.Anything, analysisSystemPrompt).Return("这个 issue 很简单", nil)

		a := newTestAnalyzer(completer, forge)
		analysis, err := a.AnalyzeIssue(context.Background(), "acme", "tool", 7)

		assert.Error(t, err)
		assert.Equal(t, fallbackConfidence, analysis.Confidence)
	})

	t.Run("兜底结果下次调用会重新分析", func(t *testing.T) {
		completer := new(MockCompleter)
		forge := new(MockForge)
		setupHappyForge(forge)
		// 第一次 LLM 挂掉，第二次恢复
		completer.On("Complete", mock.Anything, mock.Anything, analysisSystemPrompt).Return("", errors.New("timeout")).Once()
		completer.On("Complete", mock.Anything, mock.Anything, analysisSystemPrompt).Return(highConfidenceJSON, nil).Once()

		a := newTestAnalyzer(completer, forge)

		first, err := a.AnalyzeIssue(context.Background(), "acme", "tool", 7)
		assert.Error(t, err)
		assert.Equal(t, fallbackConfidence, first.Confidence)

		second, err := a.AnalyzeIssue(context.Background(), "acme", "tool", 7)
		assert.NoError(t, err)
		assert.Equal(t, 0.8, second.Confidence)
	})

	t.Run("关联PR搜索失败不影响分析", func(t *testing.T) {
		completer := new(MockCompleter)
		forge := new(MockForge)
		forge.On("GetIssue", mock.Anything, "acme", "tool", 7).Return(stubIssue(), nil)
		forge.On("ListIssueComments", mock.Anything, "acme", "tool", 7).Return([]*domain.IssueComment{}, nil)
		forge.On("GetRepo", mock.Anything, "acme", "tool").Return(&domain.RepoInfo{FullName: "acme/tool"}, nil)
		forge.On("SearchIssues", mock.Anything, mock.Anything).Return([]*domain.RelatedPR{}, errors.New("search rate limited"))
		completer.On("Complete", mock.Anything, mock.Anything, analysisSystemPrompt).Return(highConfidenceJSON, nil)

		a := newTestAnalyzer(completer, forge)
		analysis, err := a.AnalyzeIssue(context.Background(), "acme", "tool", 7)

		assert.NoError(t, err)
		assert.Equal(t, 0.8, analysis.Confidence)
	})

	t.Run("评论和仓库信息拉取失败按缺省处理", func(t *testing.T) {
		completer := new(MockCompleter)
		forge := new(MockForge)
		forge.On("GetIssue", mock.Anything, "acme", "tool", 7).Return(stubIssue(), nil)
		forge.On("ListIssueComments", mock.Anything, "acme", "tool", 7).Return([]*domain.IssueComment{}, errors.New("boom"))
		forge.On("GetRepo", mock.Anything, "acme", "tool").Return((*domain.RepoInfo)(nil), errors.New("boom"))
		forge.On("SearchIssues", mock.Anything, mock.Anything).Return([]*domain.RelatedPR{}, nil)
		completer.On("Complete", mock.Anything, mock.Anything, analysisSystemPrompt).Return(highConfidenceJSON, nil)

		a := newTestAnalyzer(completer, forge)
		analysis, err := a.AnalyzeIssue(context.Background(), "acme", "tool", 7)

		assert.NoError(t, err)
		assert.Equal(t, "修复 README 里的拼写错误", analysis.Summary)
	})
}

func TestIssueAnalyzer_ValidateSolution(t *testing.T) {
	analysis := &domain.IssueAnalysis{
		Owner: "acme", Repo: "tool", Number: 7,
		Requirements: []domain.Requirement{
			{ID: "R1", Description: "a", Priority: domain.PriorityMust},
			{ID: "R2", Description: "b", Priority: domain.PriorityShould},
		},
	}

	t.Run("正常校验", func(t *testing.T) {
		completer := new(MockCompleter)
		completer.On("Complete", mock.Anything, mock.Anything, validateSystemPrompt).
			Return(`{"complete": true, "coverage": 1.0, "requirements_met": ["R1", "R2"]}`, nil)

		a := newTestAnalyzer(completer, new(MockForge))
		v, err := a.ValidateSolution(context.Background(), analysis, "修好了", []string{"main.go"})

		assert.NoError(t, err)
		assert.True(t, v.Complete)
		assert.Equal(t, 1.0, v.Coverage)
		assert.Equal(t, []string{"R1", "R2"}, v.RequirementsMet)
	})

	t.Run("LLM失败返回保守兜底", func(t *testing.T) {
		completer := new(MockCompleter)
		completer.On("Complete", mock.Anything, mock.Anything, validateSystemPrompt).
			Return("", errors.New("unavailable"))

		a := newTestAnalyzer(completer, new(MockForge))
		v, err := a.ValidateSolution(context.Background(), analysis, "修好了", nil)

		assert.Error(t, err)
		// 出错时绝不能谎报方案完整
		assert.False(t, v.Complete)
		assert.Equal(t, 0.0, v.Coverage)
		assert.Equal(t, []string{"R1", "R2"}, v.RequirementsUnmet)
	})

	t.Run("解析失败同样返回保守兜底", func(t *testing.T) {
		completer := new(MockCompleter)
		completer.On("Complete", mock.Anything, mock.Anything, validateSystemPrompt).
			Return("方案看着不错", nil)

		a := newTestAnalyzer(completer, new(MockForge))
		v, err := a.ValidateSolution(context.Background(), analysis, "修好了", nil)

		assert.Error(t, err)
		assert.False(t, v.Complete)
		assert.Equal(t, []string{"R1", "R2"}, v.RequirementsUnmet)
	})
}

func TestIssueAnalyzer_IsSuitableForAutomation(t *testing.T) {
	// 基准：一个完全适合自动化的分析结果
	suitable := func() *domain.IssueAnalysis {
		return &domain.IssueAnalysis{
			Clarity:                  0.8,
			Completeness:             0.8,
			Complexity:               3,
			Scope:                    domain.ScopeSmall,
			BreakingChangeLikelihood: 0.1,
		}
	}

	tests := []struct {
		name       string
		mutate     func(*domain.IssueAnalysis)
		wantReason string
	}{
		{
			name:   "完全适合",
			mutate: func(a *domain.IssueAnalysis) {},
		},
		{
			name:       "有阻塞项",
			mutate:     func(a *domain.IssueAnalysis) { a.Blockers = []string{"需要维护者决策"} },
			wantReason: "has-blockers",
		},
		{
			name:       "描述太模糊",
			mutate:     func(a *domain.IssueAnalysis) { a.Clarity = 0.3 },
			wantReason: "low-clarity",
		},
		{
			name:       "复杂度过高",
			mutate:     func(a *domain.IssueAnalysis) { a.Complexity = 8 },
			wantReason: "high-complexity",
		},
		{
			name:       "epic级别的范围",
			mutate:     func(a *domain.IssueAnalysis) { a.Scope = domain.ScopeEpic },
			wantReason: "epic-scope",
		},
		{
			name:       "破坏性变更风险过高",
			mutate:     func(a *domain.IssueAnalysis) { a.BreakingChangeLikelihood = 0.6 },
			wantReason: "breaking-change-risk",
		},
		{
			name: "must需求太多",
			mutate: func(a *domain.IssueAnalysis) {
				for i := 0; i < 11; i++ {
					a.Requirements = append(a.Requirements, domain.Requirement{
						ID: "R", Priority: domain.PriorityMust,
					})
				}
			},
			wantReason: "too-many-must-requirements",
		},
	}

	a := newTestAnalyzer(new(MockCompleter), new(MockForge))

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			analysis := suitable()
			tt.mutate(analysis)

			report := a.IsSuitableForAutomation(analysis)

			if tt.wantReason == "" {
				assert.True(t, report.Suitable)
				assert.Empty(t, report.Reasons)
				return
			}
			assert.False(t, report.Suitable)
			if assert.Len(t, report.Reasons, 1) {
				assert.Contains(t, report.Reasons[0], tt.wantReason)
			}
		})
	}

	t.Run("多条规则同时触发全部报出来", func(t *testing.T) {
		analysis := suitable()
		analysis.Clarity = 0.2
		analysis.Complexity = 9
		analysis.Scope = domain.ScopeEpic

		report := a.IsSuitableForAutomation(analysis)

		assert.False(t, report.Suitable)
		assert.Len(t, report.Reasons, 3)
	})

	t.Run("边界值不触发", func(t *testing.T) {
		analysis := suitable()
		// 恰好压线的值都不触发规则 (规则用严格不等号)
		analysis.Clarity = minClarity
		analysis.Complexity = maxComplexity
		analysis.BreakingChangeLikelihood = maxBreakingRisk

		report := a.IsSuitableForAutomation(analysis)
		assert.True(t, report.Suitable)
	})
}

func TestIssueAnalyzer_GenerateChecklist(t *testing.T) {
	analysis := &domain.IssueAnalysis{
		Owner: "acme", Repo: "tool", Number: 7,
		Summary:          "修复空配置崩溃",
		ProblemStatement: "空配置文件导致 panic",
		DesiredOutcome:   "空配置时给出友好报错",
		Requirements: []domain.Requirement{
			{ID: "R1", Description: "加空值检查", Type: domain.RequirementFunctional, Priority: domain.PriorityMust},
			{ID: "R2", Description: "补回归测试", Type: domain.RequirementConstraint, Priority: domain.PriorityShould, Verified: true},
		},
		AcceptanceCriteria: []string{"空配置不再崩溃"},
		AffectedFiles:      []string{"config/loader.go"},
		SuggestedApproach:  "在 Load 入口判空",
		Pitfalls:           []string{"注意只有注释的配置文件"},
		TestingNotes:       []string{"覆盖空文件和纯注释文件"},
		OutOfScope:         []string{"不重构配置格式"},
		Warnings:           []string{"维护者响应较慢"},
		Scope:              domain.ScopeSmall,
		Complexity:         2,
		Confidence:         0.85,
	}

	a := newTestAnalyzer(new(MockCompleter), new(MockForge))
	checklist := a.GenerateChecklist(analysis)

	assert.Contains(t, checklist, "# 修复空配置崩溃")
	assert.Contains(t, checklist, "`acme/tool#7`")
	assert.Contains(t, checklist, "- [ ] **R1** (functional/must) 加空值检查")
	assert.Contains(t, checklist, "- [x] **R2**")
	assert.Contains(t, checklist, "- [ ] 空配置不再崩溃")
	assert.Contains(t, checklist, "`config/loader.go`")
	assert.Contains(t, checklist, "在 Load 入口判空")
	assert.Contains(t, checklist, "不重构配置格式")

	// 纯函数：同样的输入必须产出逐字节相同的结果
	assert.Equal(t, checklist, a.GenerateChecklist(analysis))
}

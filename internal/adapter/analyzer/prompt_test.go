package analyzer

import (
	"fmt"
	"strings"
	"testing"

	"github-bounty-hunter/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestBuildAnalysisPrompt(t *testing.T) {
	issue := &domain.Issue{
		Number: 42,
		Title:  "CLI panics on empty config",
		Body:   "Running with an empty config file crashes.",
		Labels: []string{"bug", "good first issue"},
	}
	info := &domain.RepoInfo{
		FullName:    "acme/tool",
		Description: "A CLI tool",
		Language:    "Go",
		Stars:       1200,
	}

	t.Run("包含issue标题和仓库背景", func(t *testing.T) {
		prompt := buildAnalysisPrompt(issue, nil, info, nil)

		assert.Contains(t, prompt, "Issue #42: CLI panics on empty config")
		assert.Contains(t, prompt, "bug, good first issue")
		assert.Contains(t, prompt, "acme/tool (Go)")
		assert.Contains(t, prompt, `"requirements"`)
	})

	t.Run("评论超过上限只取前几条", func(t *testing.T) {
		var comments []*domain.IssueComment
		for i := 1; i <= maxPromptComments+2; i++ {
			comments = append(comments, &domain.IssueComment{
				Author: fmt.Sprintf("user%d", i),
				Body:   fmt.Sprintf("comment number %d", i),
			})
		}

		prompt := buildAnalysisPrompt(issue, comments, nil, nil)

		assert.Contains(t, prompt, "@user10")
		assert.NotContains(t, prompt, "@user11")
		assert.NotContains(t, prompt, "@user12")
	})

	t.Run("超长评论被截断", func(t *testing.T) {
		long := strings.Repeat("a", maxCommentChars+1)
		comments := []*domain.IssueComment{{Author: "verbose", Body: long}}

		prompt := buildAnalysisPrompt(issue, comments, nil, nil)

		assert.Contains(t, prompt, strings.Repeat("a", maxCommentChars)+"...")
		assert.NotContains(t, prompt, long)
	})

	t.Run("关联PR超过上限只取前几个", func(t *testing.T) {
		related := []*domain.RelatedPR{
			{Number: 1, Title: "pr-one", State: "open"},
			{Number: 2, Title: "pr-two", State: "merged"},
			{Number: 3, Title: "pr-three", State: "closed"},
			{Number: 4, Title: "pr-four", State: "open"},
		}

		prompt := buildAnalysisPrompt(issue, nil, nil, related)

		assert.Contains(t, prompt, "pr-three")
		assert.NotContains(t, prompt, "pr-four")
	})

	t.Run("无评论无仓库信息也能生成", func(t *testing.T) {
		prompt := buildAnalysisPrompt(issue, nil, nil, nil)

		assert.NotContains(t, prompt, "仓库背景")
		assert.NotContains(t, prompt, "讨论串")
		assert.Contains(t, prompt, "Issue #42")
	})
}

func TestBuildValidationPrompt(t *testing.T) {
	analysis := &domain.IssueAnalysis{
		Requirements: []domain.Requirement{
			{ID: "R1", Description: "修复崩溃", Type: domain.RequirementFunctional, Priority: domain.PriorityMust},
			{ID: "R2", Description: "补一条测试", Type: domain.RequirementConstraint, Priority: domain.PriorityShould},
		},
		AcceptanceCriteria: []string{"空配置不再崩溃"},
	}

	prompt := buildValidationPrompt(analysis, "加了空值检查", []string{"config.go", "config_test.go"})

	assert.Contains(t, prompt, "[R1][must]")
	assert.Contains(t, prompt, "[R2][should]")
	assert.Contains(t, prompt, "空配置不再崩溃")
	assert.Contains(t, prompt, "加了空值检查")
	assert.Contains(t, prompt, "config_test.go")
	assert.Contains(t, prompt, `"requirements_unmet"`)
}

func TestParseAnalysisResponse(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr bool
		check   func(*testing.T, *domain.IssueAnalysis)
	}{
		{
			name: "标准JSON",
			raw: `{
				"summary": "修复空配置崩溃",
				"requirements": [{"id": "R1", "description": "加空值检查", "type": "functional", "priority": "must"}],
				"scope": "small",
				"complexity": 3,
				"breaking_change_likelihood": 0.1,
				"clarity": 0.9,
				"completeness": 0.8
			}`,
			check: func(t *testing.T, a *domain.IssueAnalysis) {
				assert.Equal(t, "修复空配置崩溃", a.Summary)
				assert.Equal(t, domain.ScopeSmall, a.Scope)
				assert.Equal(t, 3, a.Complexity)
				assert.Equal(t, 0.9, a.Clarity)
				assert.Equal(t, 0.8, a.Completeness)
				// 置信度取清晰度和完整度中较小的那个
				assert.Equal(t, 0.8, a.Confidence)
			},
		},
		{
			name: "带Markdown代码块包裹",
			raw: "分析如下:\n```json\n" + `{"summary": "ok", "scope": "trivial", "complexity": 1, "clarity": 0.5, "completeness": 0.6}` + "\n```",
			check: func(t *testing.T, a *domain.IssueAnalysis) {
				assert.Equal(t, "ok", a.Summary)
				assert.Equal(t, domain.ScopeTrivial, a.Scope)
				assert.Equal(t, 0.5, a.Confidence)
			},
		},
		{
			name: "非法scope回退到medium",
			raw:  `{"summary": "x", "scope": "gigantic", "complexity": 4, "clarity": 0.8, "completeness": 0.8}`,
			check: func(t *testing.T, a *domain.IssueAnalysis) {
				assert.Equal(t, domain.ScopeMedium, a.Scope)
			},
		},
		{
			name: "复杂度缺失回退到默认值",
			raw:  `{"summary": "x", "scope": "small", "clarity": 0.8, "completeness": 0.8}`,
			check: func(t *testing.T, a *domain.IssueAnalysis) {
				assert.Equal(t, defaultComplexity, a.Complexity)
			},
		},
		{
			name: "复杂度越界截断到10",
			raw:  `{"summary": "x", "scope": "large", "complexity": 99, "clarity": 0.8, "completeness": 0.8}`,
			check: func(t *testing.T, a *domain.IssueAnalysis) {
				assert.Equal(t, 10, a.Complexity)
			},
		},
		{
			name: "比例值越界被钳到0到1",
			raw:  `{"summary": "x", "scope": "small", "complexity": 2, "breaking_change_likelihood": 1.8, "clarity": 1.2, "completeness": -0.3}`,
			check: func(t *testing.T, a *domain.IssueAnalysis) {
				assert.Equal(t, 1.0, a.BreakingChangeLikelihood)
				assert.Equal(t, 1.0, a.Clarity)
				assert.Equal(t, 0.0, a.Completeness)
				assert.Equal(t, 0.0, a.Confidence)
			},
		},
		{
			name: "需求字段残缺时补默认值",
			raw: `{
				"summary": "x", "scope": "small", "complexity": 2, "clarity": 0.8, "completeness": 0.8,
				"requirements": [
					{"description": "没有ID的需求", "type": "wishful", "priority": "urgent"},
					{"id": "CUSTOM-7", "description": "正常需求", "type": "edge-case", "priority": "could"}
				]
			}`,
			check: func(t *testing.T, a *domain.IssueAnalysis) {
				assert.Len(t, a.Requirements, 2)
				assert.Equal(t, "R1", a.Requirements[0].ID)
				assert.Equal(t, domain.RequirementFunctional, a.Requirements[0].Type)
				assert.Equal(t, domain.PriorityShould, a.Requirements[0].Priority)
				assert.Equal(t, "CUSTOM-7", a.Requirements[1].ID)
				assert.Equal(t, domain.RequirementEdgeCase, a.Requirements[1].Type)
				assert.Equal(t, domain.PriorityCould, a.Requirements[1].Priority)
			},
		},
		{
			name:    "纯文本无JSON",
			raw:     "这个 issue 我觉得挺好修的",
			wantErr: true,
		},
		{
			name:    "JSON语法错误",
			raw:     `{"summary": "x", "complexity": }`,
			wantErr: true,
		},
		{
			name:    "空字符串",
			raw:     "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			analysis, err := parseAnalysisResponse(tt.raw)

			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, analysis)
				return
			}
			assert.NoError(t, err)
			if assert.NotNil(t, analysis) {
				tt.check(t, analysis)
			}
		})
	}
}

func TestParseValidationResponse(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr bool
		want    *domain.SolutionValidation
	}{
		{
			name: "标准校验结果",
			raw:  `{"complete": true, "coverage": 0.95, "requirements_met": ["R1", "R2"], "requirements_unmet": [], "suggestions": ["补个注释"]}`,
			want: &domain.SolutionValidation{
				Complete:          true,
				Coverage:          0.95,
				RequirementsMet:   []string{"R1", "R2"},
				RequirementsUnmet: []string{},
				Suggestions:       []string{"补个注释"},
			},
		},
		{
			name: "覆盖率越界被钳住",
			raw:  `{"complete": false, "coverage": 1.4, "requirements_unmet": ["R3"]}`,
			want: &domain.SolutionValidation{
				Complete:          false,
				Coverage:          1,
				RequirementsUnmet: []string{"R3"},
			},
		},
		{
			name:    "无JSON",
			raw:     "看起来没问题",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseValidationResponse(tt.raw)

			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, got)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

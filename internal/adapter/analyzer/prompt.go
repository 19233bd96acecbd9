package analyzer

import (
	"encoding/json"
	"fmt"
	"strings"

	"github-bounty-hunter/internal/common"
	"github-bounty-hunter/internal/domain"
)

const (
	// 喂给 LLM 的上下文裁剪参数：评论太多/太长对提取需求没有增益，只会烧 token
	maxPromptComments   = 10
	maxCommentChars     = 500
	maxPromptRelatedPRs = 3

	analysisSystemPrompt = "你是一个严谨的需求分析师。只返回一个 JSON 对象，不要任何解释文字，不要 Markdown 代码块标记。"
	validateSystemPrompt = "你是一个严格的验收工程师。只返回一个 JSON 对象，不要任何解释文字。"

	fallbackWarning    = "could not fully analyze issue"
	fallbackConfidence = 0.3
	defaultComplexity  = 5
	defaultScope       = domain.ScopeMedium
)

// buildAnalysisPrompt 把 issue 全景打包成一个提取需求的 prompt
// comments 只取前 maxPromptComments 条、每条截断到 maxCommentChars 字符
func buildAnalysisPrompt(issue *domain.Issue, comments []*domain.IssueComment, info *domain.RepoInfo, related []*domain.RelatedPR) string {
	var b strings.Builder

	b.WriteString("请分析以下 GitHub issue，提取结构化需求:\n\n")
	fmt.Fprintf(&b, "## Issue #%d: %s\n", issue.Number, issue.Title)
	if len(issue.Labels) > 0 {
		fmt.Fprintf(&b, "标签: %s\n", strings.Join(issue.Labels, ", "))
	}
	fmt.Fprintf(&b, "\n%s\n", issue.Body)

	if info != nil {
		b.WriteString("\n## 仓库背景\n")
		fmt.Fprintf(&b, "%s (%s)\n%s\n", info.FullName, info.Language, info.Description)
	}

	if len(comments) > 0 {
		b.WriteString("\n## 讨论串 (截取)\n")
		for i, c := range comments {
			if i >= maxPromptComments {
				break
			}
			body := c.Body
			if len(body) > maxCommentChars {
				body = body[:maxCommentChars] + "..."
			}
			fmt.Fprintf(&b, "- @%s: %s\n", c.Author, body)
		}
	}

	if len(related) > 0 {
		b.WriteString("\n## 可能相关的 PR\n")
		for i, pr := range related {
			if i >= maxPromptRelatedPRs {
				break
			}
			fmt.Fprintf(&b, "- #%d [%s] %s\n", pr.Number, pr.State, pr.Title)
		}
	}

	b.WriteString(`
请严格按以下 JSON 结构返回:
{
  "summary": "一句话总结",
  "problem_statement": "问题是什么",
  "desired_outcome": "修好之后应该是什么样",
  "requirements": [{"id": "R1", "description": "...", "type": "functional|non-functional|constraint|edge-case", "priority": "must|should|could|nice-to-have"}],
  "acceptance_criteria": ["..."],
  "out_of_scope": ["..."],
  "affected_files": ["..."],
  "suggested_approach": "...",
  "pitfalls": ["..."],
  "testing_notes": ["..."],
  "scope": "trivial|small|medium|large|epic",
  "complexity": 5,
  "breaking_change_likelihood": 0.2,
  "clarity": 0.8,
  "completeness": 0.7,
  "warnings": [],
  "blockers": []
}`)

	return b.String()
}

// buildValidationPrompt 把需求清单和候选方案打包成验收 prompt
func buildValidationPrompt(analysis *domain.IssueAnalysis, solution string, changedFiles []string) string {
	var b strings.Builder

	b.WriteString("请校验下面的修复方案是否覆盖了全部需求:\n\n## 需求清单\n")
	for _, r := range analysis.Requirements {
		fmt.Fprintf(&b, "- [%s][%s] %s: %s\n", r.ID, r.Priority, r.Type, r.Description)
	}

	if len(analysis.AcceptanceCriteria) > 0 {
		b.WriteString("\n## 验收标准\n")
		for _, c := range analysis.AcceptanceCriteria {
			fmt.Fprintf(&b, "- %s\n", c)
		}
	}

	fmt.Fprintf(&b, "\n## 方案描述\n%s\n", solution)

	if len(changedFiles) > 0 {
		fmt.Fprintf(&b, "\n## 改动的文件\n%s\n", strings.Join(changedFiles, "\n"))
	}

	b.WriteString(`
请严格按以下 JSON 结构返回:
{
  "complete": true,
  "coverage": 0.9,
  "requirements_met": ["R1"],
  "requirements_unmet": ["R2"],
  "suggestions": ["..."]
}`)

	return b.String()
}

// analysisResponse 接收 LLM 返回的原始 JSON 形状
// 解析/兜底逻辑集中在 parseAnalysisResponse 一处，prompt 格式漂移只会打坏这里
type analysisResponse struct {
	Summary                  string                `json:"summary"`
	ProblemStatement         string                `json:"problem_statement"`
	DesiredOutcome           string                `json:"desired_outcome"`
	Requirements             []requirementResponse `json:"requirements"`
	AcceptanceCriteria       []string              `json:"acceptance_criteria"`
	OutOfScope               []string              `json:"out_of_scope"`
	AffectedFiles            []string              `json:"affected_files"`
	SuggestedApproach        string                `json:"suggested_approach"`
	Pitfalls                 []string              `json:"pitfalls"`
	TestingNotes             []string              `json:"testing_notes"`
	Scope                    string                `json:"scope"`
	Complexity               int                   `json:"complexity"`
	BreakingChangeLikelihood float64               `json:"breaking_change_likelihood"`
	Clarity                  float64               `json:"clarity"`
	Completeness             float64               `json:"completeness"`
	Warnings                 []string              `json:"warnings"`
	Blockers                 []string              `json:"blockers"`
}

type requirementResponse struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	Type        string `json:"type"`
	Priority    string `json:"priority"`
}

// parseAnalysisResponse 从 LLM 原文里抠出 JSON 并转成领域对象
// 字段缺失/越界一律用显式默认值补齐，绝不让脏数据流进下游
func parseAnalysisResponse(raw string) (*domain.IssueAnalysis, error) {
	cleaned := common.ExtractJSONObject(raw)
	if cleaned == "" {
		return nil, common.NewError(common.ErrCodeParse, "LLM 返回内容里找不到 JSON 对象")
	}

	var res analysisResponse
	if err := json.Unmarshal([]byte(cleaned), &res); err != nil {
		return nil, common.WrapError(common.ErrCodeParse, "分析结果 JSON 解析失败", err)
	}

	clarity := clamp01(res.Clarity)
	completeness := clamp01(res.Completeness)

	analysis := &domain.IssueAnalysis{
		Summary:                  res.Summary,
		ProblemStatement:         res.ProblemStatement,
		DesiredOutcome:           res.DesiredOutcome,
		Requirements:             normalizeRequirements(res.Requirements),
		AcceptanceCriteria:       res.AcceptanceCriteria,
		OutOfScope:               res.OutOfScope,
		AffectedFiles:            res.AffectedFiles,
		SuggestedApproach:        res.SuggestedApproach,
		Pitfalls:                 res.Pitfalls,
		TestingNotes:             res.TestingNotes,
		Scope:                    normalizeScope(res.Scope),
		Complexity:               clampComplexity(res.Complexity),
		BreakingChangeLikelihood: clamp01(res.BreakingChangeLikelihood),
		Clarity:                  clarity,
		Completeness:             completeness,
		Confidence:               min(clarity, completeness),
		Warnings:                 res.Warnings,
		Blockers:                 res.Blockers,
	}

	return analysis, nil
}

// parseValidationResponse 解析方案校验结果
// 任何解析失败都由调用方替换成保守兜底 (complete=false, coverage=0)
func parseValidationResponse(raw string) (*domain.SolutionValidation, error) {
	cleaned := common.ExtractJSONObject(raw)
	if cleaned == "" {
		return nil, common.NewError(common.ErrCodeParse, "LLM 返回内容里找不到 JSON 对象")
	}

	var res struct {
		Complete          bool     `json:"complete"`
		Coverage          float64  `json:"coverage"`
		RequirementsMet   []string `json:"requirements_met"`
		RequirementsUnmet []string `json:"requirements_unmet"`
		Suggestions       []string `json:"suggestions"`
	}
	if err := json.Unmarshal([]byte(cleaned), &res); err != nil {
		return nil, common.WrapError(common.ErrCodeParse, "校验结果 JSON 解析失败", err)
	}

	return &domain.SolutionValidation{
		Complete:          res.Complete,
		Coverage:          clamp01(res.Coverage),
		RequirementsMet:   res.RequirementsMet,
		RequirementsUnmet: res.RequirementsUnmet,
		Suggestions:       res.Suggestions,
	}, nil
}

func normalizeRequirements(raw []requirementResponse) []domain.Requirement {
	reqs := make([]domain.Requirement, 0, len(raw))
	for i, r := range raw {
		req := domain.Requirement{
			ID:          r.ID,
			Description: r.Description,
			Type:        domain.RequirementType(r.Type),
			Priority:    domain.RequirementPriority(r.Priority),
		}
		if req.ID == "" {
			req.ID = fmt.Sprintf("R%d", i+1)
		}
		switch req.Type {
		case domain.RequirementFunctional, domain.RequirementNonFunctional,
			domain.RequirementConstraint, domain.RequirementEdgeCase:
		default:
			req.Type = domain.RequirementFunctional
		}
		switch req.Priority {
		case domain.PriorityMust, domain.PriorityShould,
			domain.PriorityCould, domain.PriorityNiceToHave:
		default:
			req.Priority = domain.PriorityShould
		}
		reqs = append(reqs, req)
	}
	return reqs
}

func normalizeScope(raw string) domain.IssueScope {
	scope := domain.IssueScope(strings.ToLower(strings.TrimSpace(raw)))
	switch scope {
	case domain.ScopeTrivial, domain.ScopeSmall, domain.ScopeMedium,
		domain.ScopeLarge, domain.ScopeEpic:
		return scope
	default:
		return defaultScope
	}
}

func clampComplexity(v int) int {
	if v < 1 {
		return defaultComplexity
	}
	if v > 10 {
		return 10
	}
	return v
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func min(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

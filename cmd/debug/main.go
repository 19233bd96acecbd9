package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github-bounty-hunter/internal/adapter/analyzer"
	"github-bounty-hunter/internal/adapter/gemini"
	"github-bounty-hunter/internal/adapter/github"
)

func main() {
	owner := flag.String("owner", "", "仓库 owner")
	repo := flag.String("repo", "", "仓库名")
	issue := flag.Int("issue", 0, "issue 编号")
	flag.Parse()

	if *owner == "" || *repo == "" || *issue <= 0 {
		fmt.Println("用法: go run ./cmd/debug -owner=acme -repo=exporter -issue=42")
		return
	}

	// 获取环境变量
	githubToken := os.Getenv("GITHUB_TOKEN")
	geminiKey := os.Getenv("GEMINI_API_KEY")

	ctx := context.Background()

	// 初始化组件
	forge := github.NewClient(githubToken)
	completer, err := gemini.NewCompleter(ctx, geminiKey, os.Getenv("GEMINI_MODEL"))
	if err != nil {
		log.Fatalf("❌ AI 初始化失败: %v", err)
	}
	defer completer.Close()
	issueAnalyzer := analyzer.NewIssueAnalyzer(completer, forge)

	fmt.Println("🔍 调试模式：分析单个 issue")

	// 1. 先拉 issue 本体，确认目标存在
	fmt.Printf("📥 正在拉取 %s/%s#%d ...\n", *owner, *repo, *issue)
	target, err := forge.GetIssue(ctx, *owner, *repo, *issue)
	if err != nil {
		log.Printf("❌ 拉取 issue 失败: %v", err)
		return
	}
	fmt.Printf("✅ 拉到 issue: %s (标签: %s)\n", target.Title, strings.Join(target.Labels, ", "))

	// 2. 完整分析流程
	fmt.Println("🧠 开始 LLM 分析...")
	analysis, err := issueAnalyzer.AnalyzeIssue(ctx, *owner, *repo, *issue)
	if err != nil {
		log.Printf("⚠️ 分析不完整: %v", err)
	}

	fmt.Printf("  摘要: %s\n", analysis.Summary)
	fmt.Printf("  范围: %s  复杂度: %d\n", analysis.Scope, analysis.Complexity)
	fmt.Printf("  清晰度: %.2f  完整度: %.2f  置信度: %.2f\n",
		analysis.Clarity, analysis.Completeness, analysis.Confidence)
	if len(analysis.Warnings) > 0 {
		fmt.Printf("  提醒: %s\n", strings.Join(analysis.Warnings, "; "))
	}
	if len(analysis.Blockers) > 0 {
		fmt.Printf("  阻塞: %s\n", strings.Join(analysis.Blockers, "; "))
	}

	// 3. 自动化门禁判定
	report := issueAnalyzer.IsSuitableForAutomation(analysis)
	if report.Suitable {
		fmt.Println("✅ 适合自动化处理")
	} else {
		fmt.Println("🙅 不适合自动化处理:")
		for _, reason := range report.Reasons {
			fmt.Printf("   - %s\n", reason)
		}
	}

	// 4. 需求清单
	fmt.Println("\n================ [ 需求清单 ] ================")
	fmt.Println(issueAnalyzer.GenerateChecklist(analysis))
}

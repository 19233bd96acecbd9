package feishu

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github-bounty-hunter/internal/common"
	"github-bounty-hunter/internal/domain"
)

// Notifier 实现了 port.Notifier 接口，往飞书群机器人推卡片
type Notifier struct {
	webhookURL string
}

func NewNotifier(webhook string) *Notifier {
	if webhook == "" {
		log.Println("⚠️ 警告: 飞书 Webhook 为空，推送功能将无法工作！")
	}
	return &Notifier{webhookURL: webhook}
}

// NotifyOutcome 推送单条赏金结果
func (n *Notifier) NotifyOutcome(ctx context.Context, record *domain.BountyRecord) error {
	var title, template string
	switch record.Status {
	case domain.StatusAccepted:
		title = fmt.Sprintf("✅ 赏金被接受: %s", record.Title)
		template = "green"
	case domain.StatusRejected:
		title = fmt.Sprintf("❌ 赏金被拒绝: %s", record.Title)
		template = "red"
	case domain.StatusPaid:
		title = fmt.Sprintf("💵 赏金到账: %s", record.Title)
		template = "green"
	default:
		title = fmt.Sprintf("📌 赏金状态更新: %s", record.Title)
		template = "blue"
	}

	mdContent := fmt.Sprintf(`**💰 金额:** $%.2f  |  **平台:** %s  |  **类型:** %s
**📂 仓库:** %s
**⏱️ 耗时:** %.1f 小时
`,
		record.Reward, orDash(record.Platform), orDash(record.Type),
		orDash(record.Repo),
		record.DurationHours)

	if record.Feedback != "" {
		mdContent += fmt.Sprintf("\n**💬 维护者反馈:**\n%s\n", record.Feedback)
	}

	var buttonURL string
	if record.Repo != "" {
		buttonURL = fmt.Sprintf("https://github.com/%s", record.Repo)
	}

	return n.sendCard(ctx, title, template, mdContent, "🔗 查看仓库", buttonURL)
}

// NotifyRevision 推送一次自动修订的结果
func (n *Notifier) NotifyRevision(ctx context.Context, sub domain.Submission, result *domain.RevisionResult) error {
	var title, template string
	if result.Success {
		title = fmt.Sprintf("🔧 自动修订完成: %s#%d", sub.Repo, sub.PRNumber)
		template = "green"
	} else {
		title = fmt.Sprintf("🙋 修订需要人工接手: %s#%d", sub.Repo, sub.PRNumber)
		template = "orange"
	}

	mdContent := fmt.Sprintf(`**📂 PR:** %s/%s#%d
**✏️ 改动文件:** %d 个  |  **已处理意见:** %d 条  |  **跳过意见:** %d 条
`,
		sub.Owner, sub.Repo, sub.PRNumber,
		len(result.RevisedFiles), len(result.IssuesAddressed), len(result.IssuesSkipped))

	if result.Err != "" {
		mdContent += fmt.Sprintf("\n**⚠️ 失败原因:**\n%s\n", result.Err)
	}

	buttonURL := fmt.Sprintf("https://github.com/%s/%s/pull/%d", sub.Owner, sub.Repo, sub.PRNumber)
	return n.sendCard(ctx, title, template, mdContent, "🔗 查看 PR", buttonURL)
}

// NotifyGoal 推送目标达成
func (n *Notifier) NotifyGoal(ctx context.Context, goal *domain.Goal) error {
	title := fmt.Sprintf("🏆 目标达成: %s", goalLabel(goal.Type))

	mdContent := fmt.Sprintf(`**🎯 目标:** %.0f  |  **当前:** %.0f
**📅 设立于:** %s
`,
		goal.Target, goal.Current,
		goal.CreatedAt.Format("2006-01-02"))

	return n.sendCard(ctx, title, "yellow", mdContent, "", "")
}

func goalLabel(goalType domain.GoalType) string {
	switch goalType {
	case domain.GoalRevenue:
		return "累计收入"
	case domain.GoalBounties:
		return "完成单数"
	case domain.GoalStreak:
		return "连胜长度"
	case domain.GoalReputation:
		return "信誉分"
	default:
		return string(goalType)
	}
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

// sendCard 构造 Schema 2.0 卡片并发送 (带重试机制)
// buttonURL 为空时不渲染按钮
func (n *Notifier) sendCard(ctx context.Context, title, template, mdContent, buttonLabel, buttonURL string) error {
	if n.webhookURL == "" {
		return common.NewError(common.ErrCodeNotification, "Webhook URL 为空")
	}

	elements := []map[string]interface{}{
		{
			"tag":       "markdown",
			"content":   mdContent,
			"text_size": "normal",
		},
	}
	if buttonURL != "" {
		elements = append(elements, map[string]interface{}{
			"tag": "button",
			"text": map[string]interface{}{
				"tag":     "plain_text",
				"content": buttonLabel,
			},
			"type": "primary",
			"behaviors": []map[string]interface{}{
				{
					"type":        "open_url",
					"default_url": buttonURL,
				},
			},
		})
	}

	payload := map[string]interface{}{
		"msg_type": "interactive",
		"card": map[string]interface{}{
			"schema": "2.0",
			"config": map[string]interface{}{
				"update_multi": true,
			},
			"header": map[string]interface{}{
				"title": map[string]interface{}{
					"tag":     "plain_text",
					"content": title,
				},
				"template": template,
			},
			"body": map[string]interface{}{
				"direction": "vertical",
				"elements":  elements,
			},
		},
	}

	body, _ := json.Marshal(payload)
	err := common.Do(ctx, func() error {
		resp, postErr := http.Post(n.webhookURL, "application/json", bytes.NewBuffer(body))
		if postErr != nil {
			return postErr
		}
		defer resp.Body.Close()

		if resp.StatusCode != 200 {
			return fmt.Errorf("飞书 API 报错: 状态码 %d", resp.StatusCode)
		}
		return nil
	},
		common.WithMaxRetries(3),
		common.WithInitialDelay(500*time.Millisecond),
	)
	if err != nil {
		return common.WrapError(common.ErrCodeNotification, "发送请求失败", err)
	}

	return nil
}

package gemini

import (
	"context"
	"strings"
	"time"

	"github-bounty-hunter/internal/common"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// Completer 实现了 port.Completer 接口
type Completer struct {
	client *genai.Client
	model  string
}

const defaultModel = "gemini-2.5-flash-lite"

// NewCompleter 初始化 Gemini 客户端，model 为空时用默认模型
func NewCompleter(ctx context.Context, apiKey, model string) (*Completer, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, common.WrapError(common.ErrCodeLLM, "创建 Gemini 客户端失败", err)
	}

	if model == "" {
		model = defaultModel
	}

	return &Completer{
		client: client,
		model:  model,
	}, nil
}

// Close 释放底层 gRPC 连接
func (c *Completer) Close() error {
	return c.client.Close()
}

// Complete 发送一次补全请求并返回原始文本
// 每个调用方带着自己的 systemPrompt (分析/分类/修订各有各的输出约束)，
// 所以模型每次现配，不做全局复用；也不强制 JSON MIME，
// 修订场景要的是代码块而不是 JSON，清洗交给调用方
func (c *Completer) Complete(ctx context.Context, userPrompt, systemPrompt string) (string, error) {
	model := c.client.GenerativeModel(c.model)
	if systemPrompt != "" {
		model.SystemInstruction = &genai.Content{
			Parts: []genai.Part{genai.Text(systemPrompt)},
		}
	}

	var resp *genai.GenerateContentResponse
	err := common.Do(ctx, func() error {
		var genErr error
		resp, genErr = model.GenerateContent(ctx, genai.Text(userPrompt))
		return genErr
	},
		common.WithMaxRetries(2),
		common.WithInitialDelay(time.Second),
		common.WithJitter(0.2),
	)
	if err != nil {
		return "", common.WrapError(common.ErrCodeLLM, "AI 调用失败", err)
	}

	return responseText(resp)
}

// responseText 从响应里抠出纯文本，多个 part 直接拼接
func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", common.NewError(common.ErrCodeLLM, "AI 返回内容为空")
	}

	content := resp.Candidates[0].Content
	if content == nil || len(content.Parts) == 0 {
		return "", common.NewError(common.ErrCodeLLM, "AI 返回内容为空")
	}

	var sb strings.Builder
	for _, part := range content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}

	if sb.Len() == 0 {
		return "", common.NewError(common.ErrCodeLLM, "AI 返回了非文本内容")
	}
	return sb.String(), nil
}

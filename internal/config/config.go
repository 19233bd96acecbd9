package config

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// Config 应用配置，全部来自环境变量 (支持 .env 文件)
// 这里不做硬校验：哪些配置是必须的由各运行模式自己决定
type Config struct {
	GitHub    GitHubConfig
	Gemini    GeminiConfig
	Feishu    FeishuConfig
	Portfolio PortfolioConfig
	Revision  RevisionConfig
}

// GitHubConfig GitHub 访问配置
type GitHubConfig struct {
	Token string // 空则匿名访问 (限流更严，只读)
}

// GeminiConfig LLM 配置
type GeminiConfig struct {
	APIKey string
	Model  string
}

// Enabled 是否配置了 LLM
func (c GeminiConfig) Enabled() bool {
	return c.APIKey != ""
}

// FeishuConfig 飞书通知配置
type FeishuConfig struct {
	Webhook string
}

// Enabled 是否配置了通知
func (c FeishuConfig) Enabled() bool {
	return c.Webhook != ""
}

// PortfolioConfig 战绩存储配置
type PortfolioConfig struct {
	DataDir string // JSON 落盘目录
	DSN     string // Postgres 归档镜像，空则不启用

	// 信誉分低于此值时拒绝自动修订 (0 = 不限制)
	ReputationFloor float64
}

// ArchiveEnabled 是否启用 Postgres 归档
func (c PortfolioConfig) ArchiveEnabled() bool {
	return c.DSN != ""
}

// StorePath 战绩 JSON 文件路径
func (c PortfolioConfig) StorePath() string {
	return filepath.Join(c.DataDir, "portfolio.json")
}

// LedgerPath 修订计数器 JSON 文件路径
func (c PortfolioConfig) LedgerPath() string {
	return filepath.Join(c.DataDir, "revisions.json")
}

// RevisionConfig 自动修订的安全预算
type RevisionConfig struct {
	MaxRevisionsPerPR    int
	MaxIssuesPerRevision int
}

// Load 读取配置。先尽力加载 .env (没有就算了)，再读环境变量
func Load() Config {
	_ = godotenv.Load()

	return Config{
		GitHub: GitHubConfig{
			Token: getEnv("GITHUB_TOKEN", ""),
		},
		Gemini: GeminiConfig{
			APIKey: getEnv("GEMINI_API_KEY", ""),
			Model:  getEnv("GEMINI_MODEL", "gemini-2.5-flash-lite"),
		},
		Feishu: FeishuConfig{
			Webhook: getEnv("FEISHU_WEBHOOK", ""),
		},
		Portfolio: PortfolioConfig{
			DataDir:         getEnv("BOUNTY_DATA_DIR", "data"),
			DSN:             getEnv("PORTFOLIO_DSN", ""),
			ReputationFloor: getEnvFloat("REPUTATION_FLOOR", 0),
		},
		Revision: RevisionConfig{
			MaxRevisionsPerPR:    getEnvInt("MAX_REVISIONS_PER_PR", 3),
			MaxIssuesPerRevision: getEnvInt("MAX_ISSUES_PER_REVISION", 5),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return fallback
}

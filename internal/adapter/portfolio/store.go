package portfolio

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github-bounty-hunter/internal/common"
	"github-bounty-hunter/internal/domain"
)

// persistedState 落盘的 JSON 形状：记录、目标、日快照一锅端
type persistedState struct {
	Records   []*domain.BountyRecord `json:"records"`
	Goals     []*domain.Goal         `json:"goals"`
	Snapshots []domain.DailySnapshot `json:"snapshots"`
	SavedAt   time.Time              `json:"saved_at"`
}

// jsonStore 账本的 JSON 文件读写
// 整文件覆盖写，不做增量：一台机器一年也就几百单，没必要上数据库
type jsonStore struct {
	path string
}

func newJSONStore(path string) *jsonStore {
	return &jsonStore{path: path}
}

// Load 读取落盘状态
// 文件不存在返回空状态，不算错误；内容损坏返回错误，由调用方决定怎么降级
func (s *jsonStore) Load() (*persistedState, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return &persistedState{}, nil
		}
		return nil, common.WrapError(common.ErrCodeStorage, "读取账本文件失败", err)
	}

	var state persistedState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, common.WrapError(common.ErrCodeStorage, "账本文件内容损坏", err)
	}

	return &state, nil
}

// Save 整文件覆盖写
func (s *jsonStore) Save(state *persistedState) error {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return common.WrapError(common.ErrCodeStorage, "序列化账本失败", err)
	}

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return common.WrapError(common.ErrCodeStorage, "创建数据目录失败", err)
		}
	}

	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return common.WrapError(common.ErrCodeStorage, "写入账本文件失败", err)
	}

	return nil
}

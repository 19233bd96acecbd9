package revision

import (
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"time"
)

// ledgerState 账本落盘时的 JSON 形状
type ledgerState struct {
	RevisionCounts map[string]int `json:"revision_counts"`
	LastSaved      time.Time      `json:"last_saved"`
}

// revisionLedger 记录每个 PR 已经自动修订过几次
// 内存里的计数是事实来源，JSON 文件只用于重启后恢复；
// 没有锁：调用方保证同一时刻只有一条修订流程在跑 (见 service 层约定)
type revisionLedger struct {
	path    string
	counts  map[string]int
	nowFunc func() time.Time
}

// newRevisionLedger 从磁盘加载账本
// 文件不存在或内容损坏都不是错误：记一条日志，从空账本开始
func newRevisionLedger(path string) *revisionLedger {
	l := &revisionLedger{
		path:    path,
		counts:  make(map[string]int),
		nowFunc: time.Now,
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("⚠️ 读取修订账本 %s 失败，从空账本开始: %v", path, err)
		}
		return l
	}

	var state ledgerState
	if err := json.Unmarshal(data, &state); err != nil {
		log.Printf("⚠️ 修订账本 %s 内容损坏，从空账本开始: %v", path, err)
		return l
	}
	if state.RevisionCounts != nil {
		l.counts = state.RevisionCounts
	}

	return l
}

// Count 返回某个 PR 已用掉的修订次数
func (l *revisionLedger) Count(key string) int {
	return l.counts[key]
}

// Increment 修订成功后计数加一并落盘
// 落盘失败只记日志不报错：内存计数照样生效，本进程内预算不受影响
func (l *revisionLedger) Increment(key string) {
	l.counts[key]++
	if err := l.save(); err != nil {
		log.Printf("⚠️ 修订账本落盘失败 (计数仍在内存生效): %v", err)
	}
}

// save 整文件覆盖写，不做增量
func (l *revisionLedger) save() error {
	state := ledgerState{
		RevisionCounts: l.counts,
		LastSaved:      l.nowFunc(),
	}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}

	if dir := filepath.Dir(l.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	return os.WriteFile(l.path, data, 0o644)
}

package revision

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRevisionLedger_FreshStart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "revisions.json")

	l := newRevisionLedger(path)

	assert.Equal(t, 0, l.Count("acme/tool#1"))
}

func TestRevisionLedger_CorruptFileStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "revisions.json")
	assert.NoError(t, os.WriteFile(path, []byte("不是JSON{{{"), 0o644))

	l := newRevisionLedger(path)

	assert.Equal(t, 0, l.Count("acme/tool#1"))
}

func TestRevisionLedger_IncrementPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "revisions.json")

	l := newRevisionLedger(path)
	l.Increment("acme/tool#1")
	l.Increment("acme/tool#1")
	l.Increment("other/repo#9")

	// 重新加载，计数应该原样回来
	reloaded := newRevisionLedger(path)
	assert.Equal(t, 2, reloaded.Count("acme/tool#1"))
	assert.Equal(t, 1, reloaded.Count("other/repo#9"))
	assert.Equal(t, 0, reloaded.Count("nobody/nothing#1"))
}

func TestRevisionLedger_CreatesParentDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "revisions.json")

	l := newRevisionLedger(path)
	l.Increment("acme/tool#1")

	reloaded := newRevisionLedger(path)
	assert.Equal(t, 1, reloaded.Count("acme/tool#1"))
}

func TestRevisionLedger_SaveFailureKeepsMemoryCount(t *testing.T) {
	dir := t.TempDir()
	// 让账本路径的父目录是个普通文件，MkdirAll 必然失败
	blocker := filepath.Join(dir, "blocker")
	assert.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))
	path := filepath.Join(blocker, "revisions.json")

	l := newRevisionLedger(path)
	l.Increment("acme/tool#1")

	// 落盘失败只记日志，内存计数照样生效
	assert.Equal(t, 1, l.Count("acme/tool#1"))
}

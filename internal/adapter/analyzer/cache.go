package analyzer

import (
	"container/list"

	"github-bounty-hunter/internal/domain"
)

// 缓存的分析结果只有在置信度高于该阈值时才会被复用，
// 低于阈值说明上次没分析透，值得重新跑一遍
const confidenceThreshold = 0.7

// 默认缓存上限。一台机器一天处理不了几百个 issue，128 足够
const defaultCacheCapacity = 128

type cacheEntry struct {
	key      string
	analysis *domain.IssueAnalysis
}

// analysisCache 带 LRU 上限的 issue 分析缓存
// 没有锁：调用方保证同一时刻只有一条赏金流程在跑 (见 service 层约定)
type analysisCache struct {
	capacity int
	order    *list.List               // 队首最新，队尾最旧
	entries  map[string]*list.Element // key → order 里的节点
}

func newAnalysisCache(capacity int) *analysisCache {
	if capacity <= 0 {
		capacity = defaultCacheCapacity
	}
	return &analysisCache{
		capacity: capacity,
		order:    list.New(),
		entries:  make(map[string]*list.Element),
	}
}

// Get 命中且置信度达标才返回；置信度不达标的条目当场淘汰，
// 调用方会重新分析并用新结果覆盖
func (c *analysisCache) Get(key string) (*domain.IssueAnalysis, bool) {
	elem, ok := c.entries[key]
	if !ok {
		return nil, false
	}

	entry := elem.Value.(*cacheEntry)
	if entry.analysis.Confidence <= confidenceThreshold {
		c.order.Remove(elem)
		delete(c.entries, key)
		return nil, false
	}

	c.order.MoveToFront(elem)
	return entry.analysis, true
}

// Put 写入 (或覆盖) 一条分析结果，超出容量时淘汰最久未用的
func (c *analysisCache) Put(analysis *domain.IssueAnalysis) {
	key := analysis.Key()

	if elem, ok := c.entries[key]; ok {
		elem.Value.(*cacheEntry).analysis = analysis
		c.order.MoveToFront(elem)
		return
	}

	c.entries[key] = c.order.PushFront(&cacheEntry{key: key, analysis: analysis})

	if c.order.Len() > c.capacity {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.entries, oldest.Value.(*cacheEntry).key)
	}
}

// Len 当前缓存条数 (测试用)
func (c *analysisCache) Len() int {
	return c.order.Len()
}

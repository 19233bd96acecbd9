package repository

import (
	"context"
	"fmt"

	"github-bounty-hunter/internal/domain"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// BountyArchive 实现了 port.RecordArchive 接口
// JSON 账本才是事实来源，这里只是关系型镜像：跨机器防重 + 历史模糊查询
type BountyArchive struct {
	db *gorm.DB
}

// NewBountyArchive 初始化数据库连接并自动迁移表结构
func NewBountyArchive(dsn string) (*BountyArchive, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("连接数据库失败: %w", err)
	}

	if err := db.AutoMigrate(&domain.BountyRecord{}); err != nil {
		return nil, fmt.Errorf("数据库迁移失败: %w", err)
	}

	return &BountyArchive{db: db}, nil
}

// Save 保存或更新记录
func (a *BountyArchive) Save(ctx context.Context, record *domain.BountyRecord) error {
	// Save 会自动处理 Insert 或 Update (Upsert)
	result := a.db.WithContext(ctx).Save(record)
	return result.Error
}

// Exists 检查平台侧 bounty 是否已有记录 (跨机器防重)
func (a *BountyArchive) Exists(ctx context.Context, bountyID string) (bool, error) {
	var count int64
	err := a.db.WithContext(ctx).Model(&domain.BountyRecord{}).
		Where("bounty_id = ?", bountyID).
		Count(&count).Error
	return count > 0, err
}

// Search 按标题/仓库/反馈模糊查历史记录，最新的排前面
func (a *BountyArchive) Search(ctx context.Context, query string) ([]*domain.BountyRecord, error) {
	var records []*domain.BountyRecord
	likeQuery := "%" + query + "%"
	err := a.db.WithContext(ctx).
		Where("title LIKE ? OR repo LIKE ? OR feedback LIKE ?", likeQuery, likeQuery, likeQuery).
		Order("created_at DESC").
		Limit(10).
		Find(&records).Error

	return records, err
}

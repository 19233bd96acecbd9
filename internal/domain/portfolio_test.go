package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBountyStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		name    string
		from    BountyStatus
		to      BountyStatus
		allowed bool
	}{
		{"pending到submitted", StatusPending, StatusSubmitted, true},
		{"submitted到accepted", StatusSubmitted, StatusAccepted, true},
		{"submitted到rejected", StatusSubmitted, StatusRejected, true},
		{"accepted到paid", StatusAccepted, StatusPaid, true},
		// 快捷路径：小额赏金常常跳过审核直接打款
		{"pending直达paid快捷路径", StatusPending, StatusPaid, true},
		{"submitted直达paid", StatusSubmitted, StatusPaid, true},
		// 禁止回退
		{"submitted退回pending", StatusSubmitted, StatusPending, false},
		{"accepted退回submitted", StatusAccepted, StatusSubmitted, false},
		{"paid退回accepted", StatusPaid, StatusAccepted, false},
		// rejected 是终态
		{"rejected不能paid", StatusRejected, StatusPaid, false},
		{"rejected不能accepted", StatusRejected, StatusAccepted, false},
		// 同级不能互转
		{"accepted不能变rejected", StatusAccepted, StatusRejected, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.allowed, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestBountyStatus_IsSuccess(t *testing.T) {
	assert.True(t, StatusAccepted.IsSuccess())
	assert.True(t, StatusPaid.IsSuccess())
	assert.False(t, StatusRejected.IsSuccess())
	assert.False(t, StatusPending.IsSuccess())
	assert.False(t, StatusSubmitted.IsSuccess())
}

func TestBountyStatus_IsCompleted(t *testing.T) {
	assert.True(t, StatusAccepted.IsCompleted())
	assert.True(t, StatusRejected.IsCompleted())
	assert.True(t, StatusPaid.IsCompleted())
	assert.False(t, StatusPending.IsCompleted())
	assert.False(t, StatusSubmitted.IsCompleted())
}

func TestBountyRecord(t *testing.T) {
	now := time.Now()
	submitted := now.Add(2 * time.Hour)

	record := &BountyRecord{
		ID:          "rec-1",
		BountyID:    "algora-42",
		Title:       "Fix race in cache eviction",
		Platform:    "algora",
		Type:        "bug",
		Difficulty:  "medium",
		Reward:      250,
		Status:      StatusSubmitted,
		CreatedAt:   now,
		SubmittedAt: &submitted,
		Repo:        "acme/widget",
		Maintainer:  "octocat",
	}

	assert.Equal(t, "rec-1", record.ID)
	assert.Equal(t, "algora-42", record.BountyID)
	assert.Equal(t, StatusSubmitted, record.Status)
	assert.Equal(t, 250.0, record.Reward)
	assert.NotNil(t, record.SubmittedAt)
	assert.Nil(t, record.CompletedAt)
	assert.Nil(t, record.PaidAt)
}

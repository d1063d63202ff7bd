package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"dday-keeper/internal/model"
)

// TemplateRepository manages named presets used to prefill new to-dos.
type TemplateRepository struct {
	db *gorm.DB
}

func NewTemplateRepository(db *gorm.DB) *TemplateRepository {
	return &TemplateRepository{db: db}
}

func (r *TemplateRepository) Create(ctx context.Context, tpl *model.Template) error {
	if tpl.Name == "" || tpl.Title == "" {
		return fmt.Errorf("%w: template needs a name and a title", ErrInvalidItem)
	}
	if err := r.db.WithContext(ctx).Create(tpl).Error; err != nil {
		return fmt.Errorf("create template: %w", err)
	}
	return nil
}

func (r *TemplateRepository) GetByName(ctx context.Context, name string) (*model.Template, error) {
	var tpl model.Template
	if err := r.db.WithContext(ctx).Where("name = ?", name).First(&tpl).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find template: %w", err)
	}
	return &tpl, nil
}

func (r *TemplateRepository) List(ctx context.Context) ([]model.Template, error) {
	var tpls []model.Template
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&tpls).Error; err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	return tpls, nil
}

func (r *TemplateRepository) Delete(ctx context.Context, name string) error {
	res := r.db.WithContext(ctx).Where("name = ?", name).Delete(&model.Template{})
	if res.Error != nil {
		return fmt.Errorf("delete template: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

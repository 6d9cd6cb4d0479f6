package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	calcrundomain "github.com/railzwaylabs/landedcost/internal/calcrun/domain"
	"gorm.io/gorm"
)

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) calcrundomain.Repository {
	return &repository{db: db}
}

func (r *repository) Insert(ctx context.Context, run *calcrundomain.CalcRun) error {
	return r.db.WithContext(ctx).Create(run).Error
}

func (r *repository) FindByID(ctx context.Context, userID string, id snowflake.ID) (*calcrundomain.CalcRun, error) {
	var rows []calcrundomain.CalcRun
	err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Limit(1).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

func (r *repository) List(ctx context.Context, req calcrundomain.ListRequest) ([]calcrundomain.CalcRun, error) {
	query := r.db.WithContext(ctx).Where("user_id = ?", req.UserID)
	if req.Before != 0 {
		query = query.Where("id < ?", req.Before)
	}

	var items []calcrundomain.CalcRun
	err := query.
		Order("id DESC").
		Limit(req.PageSize).
		Find(&items).Error
	return items, err
}

func (r *repository) DeleteCreatedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("created_at < ?", cutoff).
		Delete(&calcrundomain.CalcRun{})
	return result.RowsAffected, result.Error
}

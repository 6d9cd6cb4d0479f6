package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

var (
	ErrRunNotFound     = errors.New("calc_run_not_found")
	ErrUserIDRequired  = errors.New("user_id_required")
	ErrInvalidPageSize = errors.New("invalid_page_size")
)

type ListRequest struct {
	UserID   string
	PageSize int
	// Before restricts results to runs older than this ID. Zero means the
	// newest page.
	Before snowflake.ID
}

type Repository interface {
	Insert(ctx context.Context, run *CalcRun) error
	// FindByID returns (nil, nil) when the run does not exist for the user.
	FindByID(ctx context.Context, userID string, id snowflake.ID) (*CalcRun, error)
	List(ctx context.Context, req ListRequest) ([]CalcRun, error)
	DeleteCreatedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

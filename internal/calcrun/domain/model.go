// Package domain holds the per-user history of landed cost calculations.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// CalcRun is one recorded calculation. Inputs holds the normalized request
// and Outputs the full result, both as JSON.
type CalcRun struct {
	ID              snowflake.ID    `gorm:"primaryKey" json:"id"`
	UserID          string          `gorm:"type:text;not null;index:ix_calc_runs_user_created,priority:1" json:"user_id"`
	HS6             string          `gorm:"column:hs6;type:varchar(6);not null" json:"hs6"`
	OriginISO2      string          `gorm:"column:origin_iso2;type:varchar(2);not null" json:"origin_iso2"`
	Inputs          datatypes.JSON  `gorm:"type:jsonb;not null" json:"inputs"`
	Outputs         datatypes.JSON  `gorm:"type:jsonb;not null" json:"outputs"`
	LandedCostTotal decimal.Decimal `gorm:"type:numeric(18,2);not null" json:"landed_cost_total"`
	Verdict         string          `gorm:"type:text;not null" json:"verdict"`
	CreatedAt       time.Time       `gorm:"not null;index:ix_calc_runs_user_created,priority:2" json:"created_at"`
}

func (CalcRun) TableName() string { return "calc_runs" }

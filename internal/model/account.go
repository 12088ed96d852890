package model

import (
	"time"

	"tradecrafter/internal/types"

	"github.com/shopspring/decimal"
)

type Account struct {
	ID             string              `json:"id"`
	OwnerID        string              `json:"owner_id"`
	Name           string              `json:"name"`
	Balance        decimal.Decimal     `json:"balance"`
	InitialBalance decimal.Decimal     `json:"initial_balance"`
	Equity         decimal.Decimal     `json:"equity"`
	Margin         decimal.Decimal     `json:"margin"`
	FreeMargin     decimal.Decimal     `json:"free_margin"`
	MarginLevel    decimal.Decimal     `json:"margin_level"`
	Leverage       int                 `json:"leverage"`
	Status         types.AccountStatus `json:"status"`
	CreatedAt      time.Time           `json:"created_at"`
	UpdatedAt      time.Time           `json:"updated_at"`
}

package domain

import "context"

// KPIs summarise a tenant's book. Revenue amounts are minor currency units.
type KPIs struct {
	ActiveClients       int64            `json:"active_clients"`
	TotalClients        int64            `json:"total_clients"`
	TotalWills          int64            `json:"total_wills"`
	SignedWills         int64            `json:"signed_wills"`
	WillsByStatus       map[string]int64 `json:"wills_by_status"`
	OpenTasks           int64            `json:"open_tasks"`
	SignedThisMonth     int64            `json:"signed_this_month"`
	MonthlyRevenue      int64            `json:"monthly_revenue"`
	PreviousRevenue     int64            `json:"previous_month_revenue"`
	RevenueGrowthAmount int64            `json:"revenue_growth_amount"`
	Currency            string           `json:"currency"`
}

type Service interface {
	KPIs(ctx context.Context) (KPIs, error)
}

package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

const DefaultCurrency = "GBP"

type WillType string

const (
	WillTypeSingle WillType = "single"
	WillTypeMirror WillType = "mirror"
	WillTypeTrust  WillType = "trust"
)

// Pricing is a tenant's price list in minor currency units with the
// broker/platform revenue split in whole percent.
type Pricing struct {
	ID                   snowflake.ID `gorm:"primaryKey" json:"id"`
	TenantID             snowflake.ID `gorm:"not null;uniqueIndex" json:"tenant_id"`
	SingleWillPrice      int64        `gorm:"not null" json:"single_will_price"`
	MirrorWillPrice      int64        `gorm:"not null" json:"mirror_will_price"`
	TrustWillPrice       int64        `gorm:"not null" json:"trust_will_price"`
	RevenueSplitBroker   int          `gorm:"not null" json:"revenue_split_broker"`
	RevenueSplitPlatform int          `gorm:"not null" json:"revenue_split_platform"`
	Currency             string       `gorm:"not null;default:'GBP'" json:"currency"`
	CreatedAt            time.Time    `gorm:"not null" json:"created_at"`
	UpdatedAt            time.Time    `gorm:"not null" json:"updated_at"`
}

func (Pricing) TableName() string { return "pricing" }

func (p Pricing) PriceFor(t WillType) int64 {
	switch t {
	case WillTypeMirror:
		return p.MirrorWillPrice
	case WillTypeTrust:
		return p.TrustWillPrice
	default:
		return p.SingleWillPrice
	}
}

// SplitFor splits the price of t using the configured percentages.
func (p Pricing) SplitFor(t WillType) Share {
	return Split(p.PriceFor(t), p.RevenueSplitBroker, p.RevenueSplitPlatform)
}

type Share struct {
	Price         int64 `json:"price"`
	BrokerShare   int64 `json:"broker_share"`
	PlatformShare int64 `json:"platform_share"`
}

// Split divides price between broker and platform in the ratio
// brokerPct:platformPct. The broker share is rounded half up to the nearest
// minor unit and the platform receives the remainder, so the shares always sum
// to price. Saved pricing always totals 100; a pair that does not is scaled to
// its own total, and a zero pair gives everything to the platform.
func Split(price int64, brokerPct, platformPct int) Share {
	total := int64(brokerPct) + int64(platformPct)
	var broker int64
	if total > 0 {
		broker = (2*price*int64(brokerPct) + total) / (2 * total)
	}
	return Share{
		Price:         price,
		BrokerShare:   broker,
		PlatformShare: price - broker,
	}
}

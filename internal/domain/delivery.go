package domain

import (
	"time"
)

type DeliveryStatus string

const (
	StatusPending   DeliveryStatus = "pending"
	StatusSent      DeliveryStatus = "sent"
	StatusDelivered DeliveryStatus = "delivered"
	StatusFailed    DeliveryStatus = "failed"
)

// transitions lists, for each target status, the statuses a record may move from.
var transitions = map[DeliveryStatus][]DeliveryStatus{
	StatusSent:      {StatusPending},
	StatusDelivered: {StatusSent},
	StatusFailed:    {StatusPending, StatusSent},
}

// TransitionSources returns the statuses from which a record may advance to target.
// An empty result means no record can move to target.
func TransitionSources(target DeliveryStatus) []DeliveryStatus {
	return transitions[target]
}

type DeliveryRecord struct {
	ID                string         `gorm:"type:varchar(36);primaryKey" json:"id"`
	TenantID          string         `gorm:"type:varchar(64);not null;index:idx_delivery_phone_tenant" json:"tenantId"`
	Phone             string         `gorm:"type:varchar(20);not null;index:idx_delivery_phone_tenant" json:"phone"`
	RecipientName     string         `gorm:"type:varchar(255)" json:"recipientName"`
	Notes             string         `gorm:"type:text" json:"notes,omitempty"`
	ProviderMessageID *string        `gorm:"type:varchar(64);uniqueIndex" json:"providerMessageId"`
	Status            DeliveryStatus `gorm:"type:varchar(16);not null;index" json:"status"`
	FailureReason     string         `gorm:"type:text" json:"failureReason,omitempty"`
	CreatedAt         time.Time      `json:"createdAt"`
	UpdatedAt         time.Time      `json:"updatedAt"`
	FirstViewedAt     *time.Time     `json:"firstViewedAt"`
	ReviewClickedAt   *time.Time     `json:"reviewClickedAt"`
	BookingClickedAt  *time.Time     `json:"bookingClickedAt"`
}

func (DeliveryRecord) TableName() string { return "delivery_records" }

// EngagementKind names one of the set-once recipient engagement timestamps.
type EngagementKind string

const (
	EngagementViewed       EngagementKind = "viewed"
	EngagementReviewClick  EngagementKind = "review-click"
	EngagementBookingClick EngagementKind = "booking-click"
)

// Column returns the delivery_records column backing the engagement kind.
func (k EngagementKind) Column() (string, bool) {
	switch k {
	case EngagementViewed:
		return "first_viewed_at", true
	case EngagementReviewClick:
		return "review_clicked_at", true
	case EngagementBookingClick:
		return "booking_clicked_at", true
	}
	return "", false
}

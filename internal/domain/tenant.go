package domain

import "time"

type Tenant struct {
	ID            string    `gorm:"type:varchar(64);primaryKey" json:"id"`
	DisplayName   string    `gorm:"type:varchar(255);not null" json:"displayName"`
	MessagingName string    `gorm:"type:varchar(255)" json:"messagingName"`
	LandingURL    string    `gorm:"type:text" json:"landingUrl"`
	MonthlyLimit  int       `gorm:"not null;default:0" json:"monthlyLimit"`
	CreatedAt     time.Time `json:"createdAt"`
}

// SenderName is the name used to personalize outbound text.
func (t *Tenant) SenderName() string {
	if t.MessagingName != "" {
		return t.MessagingName
	}
	return t.DisplayName
}

type Template struct {
	ID        string    `gorm:"type:varchar(64);primaryKey" json:"id"`
	TenantID  string    `gorm:"type:varchar(64);not null;index" json:"tenantId"`
	Body      string    `gorm:"type:text;not null" json:"body"`
	CreatedAt time.Time `json:"createdAt"`
}

type Contact struct {
	TenantID   string     `gorm:"type:varchar(64);primaryKey" json:"tenantId"`
	Phone      string     `gorm:"type:varchar(20);primaryKey" json:"phone"`
	Name       string     `gorm:"type:varchar(255)" json:"name"`
	SendCount  int        `gorm:"not null;default:0" json:"sendCount"`
	LastSentAt *time.Time `json:"lastSentAt"`
}

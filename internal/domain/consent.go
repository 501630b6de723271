package domain

import (
	"strings"
	"time"
)

// ConsentRecord marks a phone as blocked for a tenant. Absence means allowed.
type ConsentRecord struct {
	Phone     string    `gorm:"type:varchar(20);primaryKey" json:"phone"`
	TenantID  string    `gorm:"type:varchar(64);primaryKey" json:"tenantId"`
	CreatedAt time.Time `json:"createdAt"`
}

func (ConsentRecord) TableName() string { return "consent_records" }

type Keyword int

const (
	KeywordNone Keyword = iota
	KeywordOptOut
	KeywordOptIn
)

var (
	optOutKeywords = map[string]struct{}{"stop": {}, "unsubscribe": {}, "cancel": {}, "end": {}, "quit": {}}
	optInKeywords  = map[string]struct{}{"start": {}, "yes": {}, "unstop": {}}
)

// ClassifyKeyword matches a message body against the opt-out and opt-in vocabularies.
// Matching is case-insensitive and exact after trimming surrounding whitespace.
func ClassifyKeyword(body string) Keyword {
	word := strings.ToLower(strings.TrimSpace(body))
	if _, ok := optOutKeywords[word]; ok {
		return KeywordOptOut
	}
	if _, ok := optInKeywords[word]; ok {
		return KeywordOptIn
	}
	return KeywordNone
}

func (k Keyword) String() string {
	switch k {
	case KeywordOptOut:
		return "opt-out"
	case KeywordOptIn:
		return "opt-in"
	}
	return "none"
}

package models

import "time"

// Bank is an issuing institution.
type Bank struct {
	ID        uint      `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	Name      string    `gorm:"column:name;size:128;uniqueIndex" json:"name"`
	Code      string    `gorm:"column:code;size:16" json:"code"`
	CreatedAt time.Time `gorm:"column:created_at" json:"created_at"`
}

// TableName overrides the table name.
func (Bank) TableName() string {
	return "banks"
}

// Card is one tracked reward-terms page for a card/bank pairing.
// Cards are created during seeding and immutable afterwards; a URL change
// is modeled as a new card so version history stays attached to the page
// that was actually crawled.
type Card struct {
	ID        uint      `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	BankID    uint      `gorm:"column:bank_id;index" json:"bank_id"`
	Name      string    `gorm:"column:name;size:128" json:"name"`
	SourceURL string    `gorm:"column:source_url;size:512" json:"source_url"`
	Enabled   bool      `gorm:"column:enabled;default:true" json:"enabled"`
	CreatedAt time.Time `gorm:"column:created_at" json:"created_at"`
}

// TableName overrides the table name.
func (Card) TableName() string {
	return "cards"
}

// CardVersion is an immutable snapshot of a card's reward terms: the
// normalized content, its fingerprint, and the extracted reward rules.
// Rows are append-only; the latest version is the one with the greatest id.
type CardVersion struct {
	ID          uint      `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	CardID      uint      `gorm:"column:card_id;index:idx_card_hash,unique,priority:1" json:"card_id"`
	VersionName string    `gorm:"column:version_name;size:32" json:"version_name"`
	ContentHash string    `gorm:"column:content_hash;size:64;index:idx_card_hash,unique,priority:2" json:"content_hash"`
	Rewards     string    `gorm:"column:rewards;type:json" json:"rewards"`
	RawContent  string    `gorm:"column:raw_content;type:mediumtext" json:"-"`
	CreatedAt   time.Time `gorm:"column:created_at" json:"created_at"`
}

// TableName overrides the table name.
func (CardVersion) TableName() string {
	return "card_versions"
}

// CrawlLog is the audit record of one reconciliation run. Exactly one row
// is written per run, whatever the outcome. Rows are append-only.
type CrawlLog struct {
	ID           uint      `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	CardID       uint      `gorm:"column:card_id;index" json:"card_id"`
	Status       string    `gorm:"column:status;size:16" json:"status"`
	ErrorMessage string    `gorm:"column:error_message;size:1024" json:"error_message,omitempty"`
	CreatedAt    time.Time `gorm:"column:created_at" json:"created_at"`
}

// TableName overrides the table name.
func (CrawlLog) TableName() string {
	return "crawl_logs"
}

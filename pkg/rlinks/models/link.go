package models

import "time"

// Link is one shortened URL. Rows are hard-deleted: a soft-deleted row would
// keep holding its url and short_key unique slots.
type Link struct {
	ID          uint      `gorm:"primarykey"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
	URL         string    `gorm:"type:text;uniqueIndex;not null"`
	ShortKey    string    `gorm:"size:64;uniqueIndex;not null"`
	Title       string    `gorm:"type:text"`
	Description string    `gorm:"type:text"`
	Image       string    `gorm:"type:text"`
	Count       int64     `gorm:"not null;default:1"`
	Visits      int64     `gorm:"not null;default:0;index"`
	UserID      uint      `gorm:"not null;index"`

	// Relationships
	User User `gorm:"foreignKey:UserID"`
}

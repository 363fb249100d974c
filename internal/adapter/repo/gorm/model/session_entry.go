package model

import "time"

const TableNameSessionEntry = "session_entries"

// SessionEntry mapped from table <session_entries>
type SessionEntry struct {
	Profile   string    `gorm:"column:profile;primaryKey" json:"profile"`
	Key       string    `gorm:"column:key;primaryKey" json:"key"`
	Value     string    `gorm:"column:value;not null" json:"value"`
	UpdatedAt time.Time `gorm:"column:updated_at;not null" json:"updated_at"`
}

// TableName SessionEntry's table name
func (*SessionEntry) TableName() string {
	return TableNameSessionEntry
}

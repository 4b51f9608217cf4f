package models

import "time"

// DeviceCartSnapshot holds one guest cart per device profile: the serialized
// line-item array under a fixed namespace, plus a schema version for future
// migrations. Every store mutation rewrites the whole payload.
type DeviceCartSnapshot struct {
	DeviceID      string    `gorm:"column:device_id;primaryKey"`
	Namespace     string    `gorm:"column:namespace;primaryKey"`
	SchemaVersion int       `gorm:"column:schema_version;not null"`
	Payload       string    `gorm:"column:payload;not null"`
	UpdatedAt     time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

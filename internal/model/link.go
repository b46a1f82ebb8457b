package model

import "time"

// LinkStatusConnected marks an active cable.
const LinkStatusConnected = "CONNECTED"

// Link is a cable between two ports on different devices of one project.
type Link struct {
	ID        int64 `gorm:"primaryKey"`
	ProjectID int64 `gorm:"index;not null"`
	APortID   int64 `gorm:"column:a_port_id;index;not null"`
	BPortID   int64 `gorm:"column:b_port_id;index;not null"`
	ADeviceID int64 `gorm:"column:a_device_id;index;not null"`
	BDeviceID int64 `gorm:"column:b_device_id;index;not null"`

	// PortLowID/PortHighID hold the unordered pair in canonical order so a
	// unique index rejects {a,b} and {b,a} alike.
	PortLowID  int64 `gorm:"not null;uniqueIndex:idx_links_pair"`
	PortHighID int64 `gorm:"not null;uniqueIndex:idx_links_pair"`

	Status    string `gorm:"size:16;not null;default:'CONNECTED'"`
	Remark    string `gorm:"size:256"`
	Printed   bool   `gorm:"not null;default:false"`
	PrintedAt *time.Time
	CreatedAt time.Time `gorm:"not null"`
}

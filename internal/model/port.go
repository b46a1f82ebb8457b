package model

import "time"

// Port is a concrete connectable port on a device. A port may have one parent
// port; a port that has children is structural and cannot be linked itself.
type Port struct {
	ID         int64  `gorm:"primaryKey"`
	DeviceID   int64  `gorm:"not null;uniqueIndex:idx_ports_device_name"`
	Name       string `gorm:"size:128;not null;uniqueIndex:idx_ports_device_name"`
	ParentID   *int64 `gorm:"index"`
	PortTypeID *int64 `gorm:"index"`
	RuleID     *int64 `gorm:"index"`

	// RuleName is the owning rule's display name at generation time. It is a
	// secondary compatibility key next to PortTypeID.
	RuleName *string `gorm:"size:128"`

	MaxLinks  int  `gorm:"not null;default:1"`
	IsActive  bool `gorm:"not null;default:true"`
	CreatedAt time.Time

	// Associations
	Device   Device    `gorm:"constraint:OnDelete:CASCADE"`
	PortType *PortType `gorm:"constraint:OnDelete:SET NULL"`
}

package model

import "time"

// DeviceTemplate is the blueprint a device's ports are generated from.
type DeviceTemplate struct {
	ID         int64  `gorm:"primaryKey"`
	Name       string `gorm:"size:128;not null"`
	DeviceType string `gorm:"size:64"`
	Version    int    `gorm:"not null;default:1"`
	IsLocked   bool   `gorm:"not null;default:false"`
	CreatedAt  time.Time
	UpdatedAt  time.Time

	// Associations
	Rules []PortTemplateRule `gorm:"foreignKey:TemplateID"`
}

// Device is a physical unit inside a project. It has exactly one template.
type Device struct {
	ID         int64  `gorm:"primaryKey"`
	ProjectID  int64  `gorm:"index;not null"`
	TemplateID int64  `gorm:"index;not null"`
	Name       string `gorm:"size:128;not null"`
	ModelCode  string `gorm:"size:128"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

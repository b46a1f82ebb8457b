package model

import "time"

// Project groups the devices and links of one installation.
type Project struct {
	ID        int64     `gorm:"primaryKey"`
	Name      string    `gorm:"uniqueIndex;size:128;not null"`
	Remark    string    `gorm:"size:512"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`

	// Associations
	Devices []Device `gorm:"foreignKey:ProjectID"`
}

package model

// PortType classifies ports (power, RJ45, SFP, ...). Links only join ports of
// the same type.
type PortType struct {
	ID   int64  `gorm:"primaryKey"`
	Code string `gorm:"uniqueIndex;size:64;not null"`
	Name string `gorm:"size:128;not null"`
}

// PortTemplateRule tells the provisioner how many ports of one label and type
// a template's devices carry. Rules with an empty Code share a single numeric
// naming sequence across the template.
type PortTemplateRule struct {
	ID            int64   `gorm:"primaryKey"`
	TemplateID    int64   `gorm:"index;not null"`
	Code          string  `gorm:"size:64;not null;default:''"`
	DisplayName   string  `gorm:"size:128"`
	Quantity      int     `gorm:"not null;default:0"`
	NamingPattern *string `gorm:"size:128"`
	PortTypeID    *int64  `gorm:"index"`
	MaxLinks      int     `gorm:"not null;default:1"`
	SortOrder     int     `gorm:"not null;default:0"`

	// Associations
	PortType *PortType `gorm:"constraint:OnDelete:SET NULL"`
}

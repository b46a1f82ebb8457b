package model

// Attribute scopes.
const (
	ScopeDevice = "device"
	ScopePort   = "port"
)

// AttributeDef declares a device- or port-scoped attribute.
type AttributeDef struct {
	ID         int64  `gorm:"primaryKey"`
	Scope      string `gorm:"size:16;not null;uniqueIndex:idx_attribute_scope_code"`
	Code       string `gorm:"size:64;not null;uniqueIndex:idx_attribute_scope_code"`
	Name       string `gorm:"size:128;not null"`
	DataType   string `gorm:"size:16;not null;default:'text'"` // enum | text
	AllowMulti bool   `gorm:"not null;default:false"`
}

// AttributeOption is one node of an enum attribute's option tree.
type AttributeOption struct {
	ID          int64  `gorm:"primaryKey"`
	AttributeID int64  `gorm:"index;not null"`
	ParentID    *int64 `gorm:"index"`
	Code        string `gorm:"size:64"`
	Name        string `gorm:"size:128;not null"`
}

// DeviceAttrValue is one stored value of a device attribute.
type DeviceAttrValue struct {
	ID          int64 `gorm:"primaryKey"`
	DeviceID    int64 `gorm:"index;not null"`
	AttributeID int64 `gorm:"index;not null"`
	OptionID    *int64
	ValueText   *string `gorm:"size:512"`
}

// PortAttrValue is one stored value of a port attribute.
type PortAttrValue struct {
	ID          int64 `gorm:"primaryKey"`
	PortID      int64 `gorm:"index;not null"`
	AttributeID int64 `gorm:"index;not null"`
	OptionID    *int64
	ValueText   *string `gorm:"size:512"`
}

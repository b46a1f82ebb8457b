package store

import (
	"time"

	"portlink-backend/internal/match"
)

// Candidates is the result of a candidate search between two devices.
type Candidates struct {
	Left  []match.Candidate `json:"left"`
	Right []match.Candidate `json:"right"`
}

// PortLink is one cable carried by a port, seen from that port.
type PortLink struct {
	LinkID          int64  `json:"link_id"`
	OtherDeviceID   int64  `json:"other_device_id"`
	OtherDeviceName string `json:"other_device_name"`
	OtherPortID     int64  `json:"other_port_id"`
	OtherPortName   string `json:"other_port_name"`
}

// PortView is a registry row for the connect UI.
type PortView struct {
	match.Candidate
	ParentID  *int64     `json:"parent_id"`
	Available bool       `json:"available"`
	Links     []PortLink `json:"links"`
}

// DeviceRef identifies a device for batch work.
type DeviceRef struct {
	ID         int64
	ProjectID  int64
	TemplateID int64
	Name       string
}

// CableQuery selects one page of the cable ledger.
type CableQuery struct {
	Page       int
	PageSize   int
	PortTypeID *int64
}

// CablePage is one page of cable rows.
type CablePage struct {
	Items    []CableRow `json:"items"`
	Total    int        `json:"total"`
	Page     int        `json:"page"`
	PageSize int        `json:"page_size"`
}

// CableRow is the printable projection of a link.
type CableRow struct {
	LinkID int64 `json:"link_id"`

	ADeviceID   int64           `json:"a_device_id"`
	ADevice     string          `json:"a_device"`
	APortID     int64           `json:"a_port_id"`
	APort       string          `json:"a_port"`
	APortTypeID *int64          `json:"a_port_type_id"`
	APortType   string          `json:"a_port_type"`
	ADirection  match.Direction `json:"a_dir"`
	ALabel      string          `json:"a_label"`

	BDeviceID   int64           `json:"b_device_id"`
	BDevice     string          `json:"b_device"`
	BPortID     int64           `json:"b_port_id"`
	BPort       string          `json:"b_port"`
	BPortTypeID *int64          `json:"b_port_type_id"`
	BPortType   string          `json:"b_port_type"`
	BDirection  match.Direction `json:"b_dir"`
	BLabel      string          `json:"b_label"`

	FromTo    string     `json:"from_to"`
	ToFrom    string     `json:"to_from"`
	Printed   bool       `json:"printed"`
	PrintedAt *time.Time `json:"printed_at"`
	CreatedAt time.Time  `json:"created_at"`
}

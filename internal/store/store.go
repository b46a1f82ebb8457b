package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"portlink-backend/internal/match"
	"portlink-backend/internal/model"
)

// Store defines the interface for all database operations.
type Store interface {
	// Provisioning
	CreateDevice(ctx context.Context, projectID, templateID int64, name, modelCode string) (int64, error)
	DeleteDevice(ctx context.Context, deviceID int64) error
	GenerateInitialPorts(ctx context.Context, templateID, deviceID int64) (int, error)
	ReconcilePorts(ctx context.Context, templateID, deviceID int64) (int, error)
	CreateChildPort(ctx context.Context, deviceID, parentPortID int64, name string) (int64, error)
	SwitchTemplate(ctx context.Context, deviceID, templateID int64, name, modelCode string) error
	ListTemplatedDevices(ctx context.Context) ([]DeviceRef, error)

	// Registry and matching
	ListDevicePorts(ctx context.Context, projectID, deviceID int64) ([]PortView, error)
	FindCandidates(ctx context.Context, projectID, deviceAID, deviceBID int64) (Candidates, error)
	SetPortActive(ctx context.Context, projectID, portID int64, active bool) error

	// Links
	CreateLink(ctx context.Context, projectID, portAID, portBID int64) (int64, error)
	DeleteLink(ctx context.Context, projectID, linkID int64) (bool, error)
	ListLinks(ctx context.Context, projectID int64) ([]model.Link, error)

	// Cable ledger
	ListCables(ctx context.Context, projectID int64, q CableQuery) (CablePage, error)
	FetchCables(ctx context.Context, projectID int64, linkIDs []int64) ([]CableRow, error)
	MarkPrinted(ctx context.Context, projectID int64, linkIDs []int64) (int64, error)
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db              *gorm.DB
	directionCode   string
	defaultPageSize int
	maxPageSize     int
}

// Option customizes a gormStore.
type Option func(*gormStore)

// WithDirectionAttribute sets the code of the port attribute holding FROM/TO.
// An empty code disables direction checks.
func WithDirectionAttribute(code string) Option {
	return func(s *gormStore) { s.directionCode = code }
}

// WithPageSizes sets the cable ledger's default and maximum page size.
func WithPageSizes(def, max int) Option {
	return func(s *gormStore) {
		if max > 0 {
			s.maxPageSize = max
		}
		if def > 0 {
			s.defaultPageSize = def
		}
	}
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB, opts ...Option) Store {
	s := &gormStore{
		db:              db,
		directionCode:   "PORT_DIRECTION",
		defaultPageSize: 50,
		maxPageSize:     200,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.defaultPageSize > s.maxPageSize {
		s.defaultPageSize = s.maxPageSize
	}
	return s
}

// forUpdate adds a row lock on dialects that support SELECT ... FOR UPDATE.
// SQLite serializes writers on its own.
func forUpdate(tx *gorm.DB) *gorm.DB {
	switch tx.Dialector.Name() {
	case "postgres", "mysql":
		return tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return tx
}

// lockDevice loads and locks a device row for the rest of the transaction.
func lockDevice(tx *gorm.DB, deviceID int64) (model.Device, error) {
	var dev model.Device
	if err := forUpdate(tx).First(&dev, deviceID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dev, newError(KindDeviceNotFound, "device %d not found", deviceID)
		}
		return dev, fmt.Errorf("failed to lock device %d: %w", deviceID, err)
	}
	return dev, nil
}

// deviceInProject reports whether deviceID exists inside projectID.
func deviceInProject(tx *gorm.DB, projectID, deviceID int64) (bool, error) {
	var n int64
	if err := tx.Model(&model.Device{}).Where("id = ? AND project_id = ?", deviceID, projectID).Count(&n).Error; err != nil {
		return false, fmt.Errorf("failed to look up device %d: %w", deviceID, err)
	}
	return n > 0, nil
}

// directionAttribute resolves the configured direction attribute to its ID.
// A nil result means direction is not enforced for this call.
func (s *gormStore) directionAttribute(tx *gorm.DB) (*int64, error) {
	if s.directionCode == "" {
		return nil, nil
	}
	var defs []model.AttributeDef
	if err := tx.Where("scope = ? AND code = ?", model.ScopePort, s.directionCode).Limit(1).Find(&defs).Error; err != nil {
		return nil, fmt.Errorf("failed to resolve direction attribute: %w", err)
	}
	if len(defs) == 0 {
		return nil, nil
	}
	return &defs[0].ID, nil
}

// portDirections reads the direction value of each port. Ports without a
// valid FROM/TO value are absent from the result.
func portDirections(tx *gorm.DB, attrID *int64, portIDs []int64) (map[int64]match.Direction, error) {
	out := make(map[int64]match.Direction)
	if attrID == nil || len(portIDs) == 0 {
		return out, nil
	}

	type row struct {
		PortID     int64
		OptionName *string
		ValueText  *string
	}
	var rows []row
	err := tx.Table("port_attr_values AS v").
		Select("v.port_id AS port_id, o.name AS option_name, v.value_text AS value_text").
		Joins("LEFT JOIN attribute_options o ON o.id = v.option_id").
		Where("v.attribute_id = ? AND v.port_id IN ?", *attrID, portIDs).
		Order("v.id").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to read port directions: %w", err)
	}

	for _, r := range rows {
		if _, done := out[r.PortID]; done {
			continue
		}
		raw := ""
		switch {
		case r.OptionName != nil:
			raw = *r.OptionName
		case r.ValueText != nil:
			raw = *r.ValueText
		}
		if d := match.ParseDirection(raw); d.Valid() {
			out[r.PortID] = d
		}
	}
	return out, nil
}

// activeLinkCounts counts CONNECTED links ending on each port.
func activeLinkCounts(tx *gorm.DB, portIDs []int64) (map[int64]int, error) {
	out := make(map[int64]int)
	if len(portIDs) == 0 {
		return out, nil
	}

	type row struct {
		PortID int64
		N      int
	}
	var rows []row
	err := tx.Raw(`SELECT port_id, COUNT(*) AS n FROM (
		SELECT a_port_id AS port_id FROM links WHERE status = ? AND a_port_id IN ?
		UNION ALL
		SELECT b_port_id AS port_id FROM links WHERE status = ? AND b_port_id IN ?
	) t GROUP BY port_id`,
		model.LinkStatusConnected, portIDs, model.LinkStatusConnected, portIDs).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count links: %w", err)
	}
	for _, r := range rows {
		out[r.PortID] = r.N
	}
	return out, nil
}

// childCounts counts direct children of each port.
func childCounts(tx *gorm.DB, portIDs []int64) (map[int64]int, error) {
	out := make(map[int64]int)
	if len(portIDs) == 0 {
		return out, nil
	}

	type row struct {
		ParentID int64
		N        int
	}
	var rows []row
	err := tx.Model(&model.Port{}).
		Select("parent_id, COUNT(*) AS n").
		Where("parent_id IN ?", portIDs).
		Group("parent_id").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count child ports: %w", err)
	}
	for _, r := range rows {
		out[r.ParentID] = r.N
	}
	return out, nil
}

func orderedPair(a, b int64) (low, high int64) {
	if a < b {
		return a, b
	}
	return b, a
}

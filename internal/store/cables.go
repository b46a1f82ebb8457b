package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"gorm.io/gorm"

	"portlink-backend/internal/model"
	"portlink-backend/internal/parse"
)

// normalizePage clamps page to >= 1 and the size to [1, max]. A size of zero
// or less selects the default.
func (s *gormStore) normalizePage(page, size int) (int, int) {
	if page < 1 {
		page = 1
	}
	if size <= 0 {
		size = s.defaultPageSize
	}
	if size > s.maxPageSize {
		size = s.maxPageSize
	}
	return page, size
}

// ListCables returns one page of the project's cable ledger, ordered by
// A-side device, port type and natural port name.
//
// Natural name order cannot be expressed portably in SQL, so the matching
// links are sorted and paged in memory. The port type filter is applied in
// the query to keep that set small.
func (s *gormStore) ListCables(ctx context.Context, projectID int64, q CableQuery) (CablePage, error) {
	page, size := s.normalizePage(q.Page, q.PageSize)
	out := CablePage{Items: []CableRow{}, Page: page, PageSize: size}

	db := s.db.WithContext(ctx)
	query := db.Where("project_id = ? AND status = ?", projectID, model.LinkStatusConnected)
	if q.PortTypeID != nil {
		query = query.Where("a_port_id IN (SELECT id FROM ports WHERE port_type_id = ?) OR b_port_id IN (SELECT id FROM ports WHERE port_type_id = ?)",
			*q.PortTypeID, *q.PortTypeID)
	}
	var links []model.Link
	if err := query.Find(&links).Error; err != nil {
		return out, fmt.Errorf("failed to read links: %w", err)
	}

	rows, err := s.cableRows(db, projectID, links)
	if err != nil {
		return out, err
	}

	out.Total = len(rows)
	start := (page - 1) * size
	if start >= len(rows) {
		return out, nil
	}
	end := min(start+size, len(rows))
	out.Items = append(out.Items, rows[start:end]...)
	return out, nil
}

// FetchCables returns the cable rows of the selected links of a project.
func (s *gormStore) FetchCables(ctx context.Context, projectID int64, linkIDs []int64) ([]CableRow, error) {
	if len(linkIDs) == 0 {
		return []CableRow{}, nil
	}
	db := s.db.WithContext(ctx)

	var links []model.Link
	err := db.Where("project_id = ? AND status = ? AND id IN ?", projectID, model.LinkStatusConnected, linkIDs).
		Find(&links).Error
	if err != nil {
		return nil, fmt.Errorf("failed to read links: %w", err)
	}
	return s.cableRows(db, projectID, links)
}

// MarkPrinted flags the selected links as printed now and returns how many
// rows changed.
func (s *gormStore) MarkPrinted(ctx context.Context, projectID int64, linkIDs []int64) (int64, error) {
	if len(linkIDs) == 0 {
		return 0, nil
	}
	res := s.db.WithContext(ctx).Model(&model.Link{}).
		Where("project_id = ? AND id IN ?", projectID, linkIDs).
		Updates(map[string]any{"printed": true, "printed_at": time.Now()})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to mark links printed: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// cableRows projects links into sorted cable rows.
func (s *gormStore) cableRows(db *gorm.DB, projectID int64, links []model.Link) ([]CableRow, error) {
	rows := []CableRow{}
	if len(links) == 0 {
		return rows, nil
	}

	var project model.Project
	if err := db.Select("id", "name").Limit(1).Find(&project, projectID).Error; err != nil {
		return nil, fmt.Errorf("failed to read project %d: %w", projectID, err)
	}
	if project.ID == 0 {
		return rows, nil
	}

	portIDs := make([]int64, 0, 2*len(links))
	for _, l := range links {
		portIDs = append(portIDs, l.APortID, l.BPortID)
	}
	var ports []model.Port
	if err := db.Preload("PortType").Preload("Device").Where("id IN ?", portIDs).Find(&ports).Error; err != nil {
		return nil, fmt.Errorf("failed to read linked ports: %w", err)
	}
	byID := make(map[int64]model.Port, len(ports))
	for _, p := range ports {
		byID[p.ID] = p
	}

	dirAttr, err := s.directionAttribute(db)
	if err != nil {
		return nil, err
	}
	dirs, err := portDirections(db, dirAttr, portIDs)
	if err != nil {
		return nil, err
	}

	for _, l := range links {
		a, okA := byID[l.APortID]
		b, okB := byID[l.BPortID]
		if !okA || !okB {
			continue
		}
		r := CableRow{
			LinkID: l.ID,

			ADeviceID:   a.DeviceID,
			ADevice:     a.Device.Name,
			APortID:     a.ID,
			APort:       a.Name,
			APortTypeID: a.PortTypeID,
			APortType:   portTypeName(a),
			ADirection:  dirs[a.ID],
			ALabel:      cableLabel(project.Name, a.Device.Name, a.Name),

			BDeviceID:   b.DeviceID,
			BDevice:     b.Device.Name,
			BPortID:     b.ID,
			BPort:       b.Name,
			BPortTypeID: b.PortTypeID,
			BPortType:   portTypeName(b),
			BDirection:  dirs[b.ID],
			BLabel:      cableLabel(project.Name, b.Device.Name, b.Name),

			Printed:   l.Printed,
			PrintedAt: l.PrintedAt,
			CreatedAt: l.CreatedAt,
		}
		r.FromTo = r.ALabel + " / " + r.BLabel
		r.ToFrom = r.BLabel + " / " + r.ALabel
		rows = append(rows, r)
	}

	sort.SliceStable(rows, func(i, j int) bool {
		x, y := rows[i], rows[j]
		if c := parse.NaturalCompare(x.ADevice, y.ADevice); c != 0 {
			return c < 0
		}
		if c := strings.Compare(x.APortType, y.APortType); c != 0 {
			return c < 0
		}
		if c := parse.NaturalCompare(x.APort, y.APort); c != 0 {
			return c < 0
		}
		return x.LinkID < y.LinkID
	})
	return rows, nil
}

// cableLabel renders the printable label of one cable end.
func cableLabel(project, device, port string) string {
	return project + "-" + device + "-" + port
}

func portTypeName(p model.Port) string {
	if p.PortType == nil {
		return ""
	}
	return p.PortType.Name
}

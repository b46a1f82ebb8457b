package store

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"gorm.io/gorm"

	"portlink-backend/internal/match"
	"portlink-backend/internal/model"
	"portlink-backend/internal/parse"
)

// portState pairs a stored port with its computed occupancy.
type portState struct {
	port model.Port
	cand match.Candidate
}

// loadPortStates reads every port of a device with link and child counts and
// direction, ordered by natural port name.
func loadPortStates(tx *gorm.DB, deviceID int64, dirAttr *int64) ([]portState, error) {
	var ports []model.Port
	if err := tx.Preload("PortType").Where("device_id = ?", deviceID).Find(&ports).Error; err != nil {
		return nil, fmt.Errorf("failed to read ports of device %d: %w", deviceID, err)
	}
	if len(ports) == 0 {
		return nil, nil
	}

	ids := make([]int64, len(ports))
	for i, p := range ports {
		ids[i] = p.ID
	}
	links, err := activeLinkCounts(tx, ids)
	if err != nil {
		return nil, err
	}
	children, err := childCounts(tx, ids)
	if err != nil {
		return nil, err
	}
	dirs, err := portDirections(tx, dirAttr, ids)
	if err != nil {
		return nil, err
	}

	states := make([]portState, 0, len(ports))
	for _, p := range ports {
		c := match.Candidate{
			PortID:     p.ID,
			DeviceID:   p.DeviceID,
			Name:       p.Name,
			PortTypeID: p.PortTypeID,
			RuleName:   match.NormalizeRuleName(p.RuleName),
			Direction:  dirs[p.ID],
			MaxLinks:   p.MaxLinks,
			LinkCount:  links[p.ID],
			ChildCount: children[p.ID],
			IsActive:   p.IsActive,
		}
		if p.PortType != nil {
			c.PortTypeName = p.PortType.Name
		}
		states = append(states, portState{port: p, cand: c})
	}

	sort.SliceStable(states, func(i, j int) bool {
		return parse.NaturalLess(states[i].port.Name, states[j].port.Name)
	})
	return states, nil
}

// ListDevicePorts returns the connect-UI view of a device's ports. A device
// outside the project yields an empty list.
func (s *gormStore) ListDevicePorts(ctx context.Context, projectID, deviceID int64) ([]PortView, error) {
	db := s.db.WithContext(ctx)

	ok, err := deviceInProject(db, projectID, deviceID)
	if err != nil || !ok {
		return []PortView{}, err
	}
	dirAttr, err := s.directionAttribute(db)
	if err != nil {
		return nil, err
	}
	states, err := loadPortStates(db, deviceID, dirAttr)
	if err != nil {
		return nil, err
	}

	ids := make([]int64, len(states))
	for i, st := range states {
		ids[i] = st.port.ID
	}
	carried, err := portLinks(db, ids)
	if err != nil {
		return nil, err
	}

	views := make([]PortView, 0, len(states))
	for _, st := range states {
		links := carried[st.port.ID]
		if links == nil {
			links = []PortLink{}
		}
		views = append(views, PortView{
			Candidate: st.cand,
			ParentID:  st.port.ParentID,
			Available: st.cand.Available(),
			Links:     links,
		})
	}
	return views, nil
}

// portLinks lists the active links of each port with the far end resolved.
func portLinks(tx *gorm.DB, portIDs []int64) (map[int64][]PortLink, error) {
	out := make(map[int64][]PortLink)
	if len(portIDs) == 0 {
		return out, nil
	}

	var links []model.Link
	err := tx.Where("status = ? AND (a_port_id IN ? OR b_port_id IN ?)", model.LinkStatusConnected, portIDs, portIDs).
		Order("id").
		Find(&links).Error
	if err != nil {
		return nil, fmt.Errorf("failed to read links: %w", err)
	}
	if len(links) == 0 {
		return out, nil
	}

	var farIDs []int64
	for _, l := range links {
		farIDs = append(farIDs, l.APortID, l.BPortID)
	}
	var far []model.Port
	if err := tx.Preload("Device").Where("id IN ?", farIDs).Find(&far).Error; err != nil {
		return nil, fmt.Errorf("failed to read linked ports: %w", err)
	}
	byID := make(map[int64]model.Port, len(far))
	for _, p := range far {
		byID[p.ID] = p
	}

	mine := make(map[int64]bool, len(portIDs))
	for _, id := range portIDs {
		mine[id] = true
	}
	attach := func(l model.Link, self, other int64) {
		o := byID[other]
		out[self] = append(out[self], PortLink{
			LinkID:          l.ID,
			OtherDeviceID:   o.DeviceID,
			OtherDeviceName: o.Device.Name,
			OtherPortID:     other,
			OtherPortName:   o.Name,
		})
	}
	for _, l := range links {
		if mine[l.APortID] {
			attach(l, l.APortID, l.BPortID)
		}
		if mine[l.BPortID] {
			attach(l, l.BPortID, l.APortID)
		}
	}
	return out, nil
}

// FindCandidates lists the ports of two devices that could be linked to each
// other right now.
func (s *gormStore) FindCandidates(ctx context.Context, projectID, deviceAID, deviceBID int64) (Candidates, error) {
	empty := Candidates{Left: []match.Candidate{}, Right: []match.Candidate{}}
	if deviceAID == deviceBID {
		return empty, nil
	}
	db := s.db.WithContext(ctx)

	for _, id := range []int64{deviceAID, deviceBID} {
		ok, err := deviceInProject(db, projectID, id)
		if err != nil {
			return empty, err
		}
		if !ok {
			return empty, nil
		}
	}

	dirAttr, err := s.directionAttribute(db)
	if err != nil {
		return empty, err
	}
	left, err := loadPortStates(db, deviceAID, dirAttr)
	if err != nil {
		return empty, err
	}
	right, err := loadPortStates(db, deviceBID, dirAttr)
	if err != nil {
		return empty, err
	}

	l, r := match.Pairs(candidatesOf(left), candidatesOf(right), dirAttr != nil)
	return Candidates{Left: l, Right: r}, nil
}

func candidatesOf(states []portState) []match.Candidate {
	out := make([]match.Candidate, len(states))
	for i, st := range states {
		out[i] = st.cand
	}
	return out
}

// SetPortActive toggles a port. Deactivation is refused while the port itself
// carries links, and otherwise cascades to every descendant. Activation only
// touches the given port.
func (s *gormStore) SetPortActive(ctx context.Context, projectID, portID int64, active bool) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var port model.Port
		if err := forUpdate(tx).First(&port, portID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return newError(KindPortNotFound, "port %d not found", portID)
			}
			return fmt.Errorf("failed to lock port %d: %w", portID, err)
		}
		ok, err := deviceInProject(tx, projectID, port.DeviceID)
		if err != nil {
			return err
		}
		if !ok {
			return newError(KindPortNotFound, "port %d not found in project %d", portID, projectID)
		}

		if active {
			return setActive(tx, []int64{portID}, true)
		}

		links, err := activeLinkCounts(tx, []int64{portID})
		if err != nil {
			return err
		}
		if n := links[portID]; n > 0 {
			return newError(KindPortInUse, "port %s still carries %d link(s)", port.Name, n)
		}

		ids := []int64{portID}
		seen := map[int64]bool{portID: true}
		frontier := []int64{portID}
		for len(frontier) > 0 {
			var kids []int64
			if err := tx.Model(&model.Port{}).Where("parent_id IN ?", frontier).Order("id").Pluck("id", &kids).Error; err != nil {
				return fmt.Errorf("failed to read child ports: %w", err)
			}
			frontier = frontier[:0]
			for _, k := range kids {
				if seen[k] {
					continue
				}
				seen[k] = true
				ids = append(ids, k)
				frontier = append(frontier, k)
			}
		}
		return setActive(tx, ids, false)
	})
}

func setActive(tx *gorm.DB, ids []int64, active bool) error {
	if err := tx.Model(&model.Port{}).Where("id IN ?", ids).Update("is_active", active).Error; err != nil {
		return fmt.Errorf("failed to update port activity: %w", err)
	}
	return nil
}

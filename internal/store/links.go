package store

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"

	"portlink-backend/internal/match"
	"portlink-backend/internal/model"
)

// CreateLink validates and stores a cable between two ports. Both ports are
// locked for the duration of the checks, so concurrent calls touching the
// same ports serialize.
func (s *gormStore) CreateLink(ctx context.Context, projectID, portAID, portBID int64) (int64, error) {
	if portAID == portBID {
		return 0, newError(KindSelfLink, "port %d cannot be linked to itself", portAID)
	}

	var link model.Link
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		low, high := orderedPair(portAID, portBID)

		var ports []model.Port
		if err := forUpdate(tx).Where("id IN ?", []int64{low, high}).Order("id").Find(&ports).Error; err != nil {
			return fmt.Errorf("failed to lock ports: %w", err)
		}
		byID := make(map[int64]model.Port, len(ports))
		for _, p := range ports {
			byID[p.ID] = p
		}
		a, okA := byID[portAID]
		b, okB := byID[portBID]
		if !okA || !okB {
			missing := portAID
			if okA {
				missing = portBID
			}
			return newError(KindPortNotFound, "port %d not found", missing)
		}

		var devices []model.Device
		if err := tx.Where("id IN ?", []int64{a.DeviceID, b.DeviceID}).Find(&devices).Error; err != nil {
			return fmt.Errorf("failed to load devices: %w", err)
		}
		projectOf := make(map[int64]int64, len(devices))
		for _, d := range devices {
			projectOf[d.ID] = d.ProjectID
		}
		if projectOf[a.DeviceID] != projectID || projectOf[b.DeviceID] != projectID {
			return newError(KindProjectMismatch, "both ports must belong to project %d", projectID)
		}

		if a.DeviceID == b.DeviceID {
			return newError(KindSameDevice, "ports %s and %s are on the same device", a.Name, b.Name)
		}

		ids := []int64{a.ID, b.ID}
		children, err := childCounts(tx, ids)
		if err != nil {
			return err
		}
		for _, p := range []model.Port{a, b} {
			if children[p.ID] > 0 {
				return newError(KindStructuralPort, "port %s has child ports and cannot be linked", p.Name)
			}
		}

		var dup int64
		if err := tx.Model(&model.Link{}).Where("port_low_id = ? AND port_high_id = ?", low, high).Count(&dup).Error; err != nil {
			return fmt.Errorf("failed to check existing link: %w", err)
		}
		if dup > 0 {
			return newError(KindAlreadyLinked, "ports %s and %s are already linked", a.Name, b.Name)
		}

		for _, p := range []model.Port{a, b} {
			if !p.IsActive {
				return newError(KindPortInactive, "port %s is inactive", p.Name)
			}
		}

		counts, err := activeLinkCounts(tx, ids)
		if err != nil {
			return err
		}
		for _, p := range []model.Port{a, b} {
			if counts[p.ID] >= p.MaxLinks {
				return newError(KindCapacityExceeded, "port %s already carries %d of %d link(s)", p.Name, counts[p.ID], p.MaxLinks)
			}
		}

		if !match.SameType(a.PortTypeID, b.PortTypeID) {
			return newError(KindTypeMismatch, "ports %s and %s have different port types", a.Name, b.Name)
		}
		if match.NormalizeRuleName(a.RuleName) != match.NormalizeRuleName(b.RuleName) {
			return newError(KindRuleMismatch, "ports %s and %s belong to different rules", a.Name, b.Name)
		}

		dirAttr, err := s.directionAttribute(tx)
		if err != nil {
			return err
		}
		if dirAttr != nil {
			dirs, err := portDirections(tx, dirAttr, ids)
			if err != nil {
				return err
			}
			da, db := dirs[a.ID], dirs[b.ID]
			if !da.Valid() || db != da.Complement() {
				return newError(KindDirectionInvalid, "ports %s (%s) and %s (%s) need complementary FROM/TO directions", a.Name, da, b.Name, db)
			}
		}

		link = model.Link{
			ProjectID:  projectID,
			APortID:    a.ID,
			BPortID:    b.ID,
			ADeviceID:  a.DeviceID,
			BDeviceID:  b.DeviceID,
			PortLowID:  low,
			PortHighID: high,
			Status:     model.LinkStatusConnected,
			CreatedAt:  time.Now(),
		}
		if err := tx.Create(&link).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return newError(KindAlreadyLinked, "ports %s and %s are already linked", a.Name, b.Name)
			}
			return fmt.Errorf("failed to create link: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	log.Printf("Project %d: linked port %d to port %d (link %d)", projectID, portAID, portBID, link.ID)
	return link.ID, nil
}

// DeleteLink removes a link of the project. It reports whether a row was
// deleted; deleting a missing link is not an error.
func (s *gormStore) DeleteLink(ctx context.Context, projectID, linkID int64) (bool, error) {
	res := s.db.WithContext(ctx).Where("project_id = ?", projectID).Delete(&model.Link{}, linkID)
	if res.Error != nil {
		return false, fmt.Errorf("failed to delete link %d: %w", linkID, res.Error)
	}
	return res.RowsAffected > 0, nil
}

// ListLinks returns the project's active links in creation order.
func (s *gormStore) ListLinks(ctx context.Context, projectID int64) ([]model.Link, error) {
	links := []model.Link{}
	err := s.db.WithContext(ctx).
		Where("project_id = ? AND status = ?", projectID, model.LinkStatusConnected).
		Order("id").
		Find(&links).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list links: %w", err)
	}
	return links, nil
}

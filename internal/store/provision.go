package store

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"gorm.io/gorm"

	"portlink-backend/internal/model"
	"portlink-backend/internal/parse"
)

// CreateDevice inserts a device and generates its first ports in one
// transaction.
func (s *gormStore) CreateDevice(ctx context.Context, projectID, templateID int64, name, modelCode string) (int64, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, newError(KindInvalidInput, "device name is required")
	}

	var dev model.Device
	var created int
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&model.Project{}).Where("id = ?", projectID).Count(&n).Error; err != nil {
			return fmt.Errorf("failed to look up project %d: %w", projectID, err)
		}
		if n == 0 {
			return newError(KindProjectNotFound, "project %d not found", projectID)
		}
		if err := templateExists(tx, templateID); err != nil {
			return err
		}

		dev = model.Device{
			ProjectID:  projectID,
			TemplateID: templateID,
			Name:       name,
			ModelCode:  strings.TrimSpace(modelCode),
		}
		if err := tx.Create(&dev).Error; err != nil {
			return fmt.Errorf("failed to create device: %w", err)
		}

		var err error
		created, err = reconcile(tx, templateID, dev.ID)
		return err
	})
	if err != nil {
		return 0, err
	}

	log.Printf("Created device %d (%s) with %d ports", dev.ID, dev.Name, created)
	return dev.ID, nil
}

// DeleteDevice removes a device together with its ports, links and
// attribute values.
func (s *gormStore) DeleteDevice(ctx context.Context, deviceID int64) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := lockDevice(tx, deviceID); err != nil {
			return err
		}
		if err := purgeDevicePorts(tx, deviceID); err != nil {
			return err
		}
		if err := tx.Delete(&model.Device{}, deviceID).Error; err != nil {
			return fmt.Errorf("failed to delete device %d: %w", deviceID, err)
		}
		return nil
	})
}

// GenerateInitialPorts reconciles a device only if it has no ports yet.
func (s *gormStore) GenerateInitialPorts(ctx context.Context, templateID, deviceID int64) (int, error) {
	return s.reconcileLocked(ctx, templateID, deviceID, true)
}

// ReconcilePorts creates whatever ports the template still requires and
// returns how many were created. Existing ports are never renamed or removed.
func (s *gormStore) ReconcilePorts(ctx context.Context, templateID, deviceID int64) (int, error) {
	return s.reconcileLocked(ctx, templateID, deviceID, false)
}

func (s *gormStore) reconcileLocked(ctx context.Context, templateID, deviceID int64, firstTime bool) (int, error) {
	var created int
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := lockDevice(tx, deviceID); err != nil {
			return err
		}
		if firstTime {
			var n int64
			if err := tx.Model(&model.Port{}).Where("device_id = ?", deviceID).Count(&n).Error; err != nil {
				return fmt.Errorf("failed to count ports of device %d: %w", deviceID, err)
			}
			if n > 0 {
				return nil
			}
		}

		var err error
		created, err = reconcile(tx, templateID, deviceID)
		return err
	})
	if err != nil {
		return 0, err
	}
	if created > 0 {
		log.Printf("Reconciled device %d against template %d: %d ports created", deviceID, templateID, created)
	}
	return created, nil
}

// CreateChildPort adds a named sub-port under an existing top-level port.
func (s *gormStore) CreateChildPort(ctx context.Context, deviceID, parentPortID int64, name string) (int64, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, newError(KindInvalidInput, "port name is required")
	}

	var child model.Port
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := lockDevice(tx, deviceID); err != nil {
			return err
		}

		// CreateLink locks port rows, so the parent row is what serializes
		// splitting against linking.
		var parent model.Port
		if err := forUpdate(tx).Where("id = ? AND device_id = ?", parentPortID, deviceID).First(&parent).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return newError(KindPortNotFound, "port %d not found on device %d", parentPortID, deviceID)
			}
			return fmt.Errorf("failed to load port %d: %w", parentPortID, err)
		}
		if parent.ParentID != nil {
			return newError(KindInvalidNesting, "port %s is already a child port", parent.Name)
		}

		links, err := activeLinkCounts(tx, []int64{parent.ID})
		if err != nil {
			return err
		}
		if links[parent.ID] > 0 {
			return newError(KindPortInUse, "port %s carries links and cannot be split", parent.Name)
		}

		var n int64
		if err := tx.Model(&model.Port{}).Where("device_id = ? AND name = ?", deviceID, name).Count(&n).Error; err != nil {
			return fmt.Errorf("failed to check port name: %w", err)
		}
		if n > 0 {
			return newError(KindNameConflict, "port %s already exists on device %d", name, deviceID)
		}

		child = model.Port{
			DeviceID:   deviceID,
			Name:       name,
			ParentID:   &parent.ID,
			PortTypeID: parent.PortTypeID,
			RuleID:     parent.RuleID,
			RuleName:   parent.RuleName,
			MaxLinks:   max(parent.MaxLinks, 1),
			IsActive:   true,
		}
		if err := tx.Create(&child).Error; err != nil {
			return fmt.Errorf("failed to create child port: %w", err)
		}

		var values []model.PortAttrValue
		if err := tx.Where("port_id = ?", parent.ID).Order("id").Find(&values).Error; err != nil {
			return fmt.Errorf("failed to read attributes of port %d: %w", parent.ID, err)
		}
		if len(values) == 0 {
			return nil
		}
		for i := range values {
			values[i].ID = 0
			values[i].PortID = child.ID
		}
		if err := tx.Create(&values).Error; err != nil {
			return fmt.Errorf("failed to copy port attributes: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return child.ID, nil
}

// SwitchTemplate updates a device's basic fields. When the template changes,
// everything hanging off the old ports is dropped and the ports are
// regenerated from the new template, all in one transaction.
func (s *gormStore) SwitchTemplate(ctx context.Context, deviceID, templateID int64, name, modelCode string) error {
	name = strings.TrimSpace(name)

	var switched bool
	var created int
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dev, err := lockDevice(tx, deviceID)
		if err != nil {
			return err
		}
		if err := templateExists(tx, templateID); err != nil {
			return err
		}

		if name == "" {
			name = dev.Name
		}
		switched = dev.TemplateID != templateID

		if switched {
			if err := purgeDevicePorts(tx, deviceID); err != nil {
				return err
			}
		}

		if err := tx.Model(&model.Device{}).Where("id = ?", deviceID).Updates(map[string]any{
			"name":        name,
			"model_code":  strings.TrimSpace(modelCode),
			"template_id": templateID,
			"updated_at":  time.Now(),
		}).Error; err != nil {
			return fmt.Errorf("failed to update device %d: %w", deviceID, err)
		}

		if !switched {
			return nil
		}
		created, err = reconcile(tx, templateID, deviceID)
		return err
	})
	if err != nil {
		return err
	}

	if switched {
		log.Printf("Device %d switched to template %d: %d ports regenerated", deviceID, templateID, created)
	}
	return nil
}

// ListTemplatedDevices lists every device that carries a template.
func (s *gormStore) ListTemplatedDevices(ctx context.Context) ([]DeviceRef, error) {
	var devices []model.Device
	if err := s.db.WithContext(ctx).Where("template_id > 0").Order("id").Find(&devices).Error; err != nil {
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}
	refs := make([]DeviceRef, 0, len(devices))
	for _, d := range devices {
		refs = append(refs, DeviceRef{ID: d.ID, ProjectID: d.ProjectID, TemplateID: d.TemplateID, Name: d.Name})
	}
	return refs, nil
}

func templateExists(tx *gorm.DB, templateID int64) error {
	var n int64
	if err := tx.Model(&model.DeviceTemplate{}).Where("id = ?", templateID).Count(&n).Error; err != nil {
		return fmt.Errorf("failed to look up template %d: %w", templateID, err)
	}
	if n == 0 {
		return newError(KindTemplateNotFound, "template %d not found", templateID)
	}
	return nil
}

// purgeDevicePorts deletes the links, attribute values and ports of a device.
func purgeDevicePorts(tx *gorm.DB, deviceID int64) error {
	portIDs := tx.Model(&model.Port{}).Select("id").Where("device_id = ?", deviceID)

	steps := []struct {
		what string
		run  func() error
	}{
		{"links", func() error {
			return tx.Where("a_device_id = ? OR b_device_id = ?", deviceID, deviceID).Delete(&model.Link{}).Error
		}},
		{"port attributes", func() error {
			return tx.Where("port_id IN (?)", portIDs).Delete(&model.PortAttrValue{}).Error
		}},
		{"device attributes", func() error {
			return tx.Where("device_id = ?", deviceID).Delete(&model.DeviceAttrValue{}).Error
		}},
		{"ports", func() error {
			return tx.Where("device_id = ?", deviceID).Delete(&model.Port{}).Error
		}},
	}
	for _, step := range steps {
		if err := step.run(); err != nil {
			return fmt.Errorf("failed to delete %s of device %d: %w", step.what, deviceID, err)
		}
	}
	return nil
}

// reconcile creates the missing ports of a device. The caller holds the
// device lock.
func reconcile(tx *gorm.DB, templateID, deviceID int64) (int, error) {
	var tpl model.DeviceTemplate
	err := tx.Preload("Rules", func(db *gorm.DB) *gorm.DB {
		return db.Order("sort_order, id")
	}).First(&tpl, templateID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, newError(KindTemplateNotFound, "template %d not found", templateID)
		}
		return 0, fmt.Errorf("failed to load template %d: %w", templateID, err)
	}
	if len(tpl.Rules) == 0 {
		return 0, nil
	}

	var existing []model.Port
	if err := tx.Select("id", "name", "rule_id").Where("device_id = ?", deviceID).Find(&existing).Error; err != nil {
		return 0, fmt.Errorf("failed to read ports of device %d: %w", deviceID, err)
	}

	ports := planPorts(tpl.Rules, existing)
	if len(ports) == 0 {
		return 0, nil
	}
	for i := range ports {
		ports[i].DeviceID = deviceID
	}
	if err := tx.Create(&ports).Error; err != nil {
		return 0, fmt.Errorf("failed to create ports for device %d: %w", deviceID, err)
	}
	return len(ports), nil
}

// planPorts decides which ports the rules still require given the ports a
// device already has. Rules are expected in sort order.
//
// A rule names its ports by its pattern when that has an index placeholder,
// otherwise "{code}{n}". Rules with an empty code and no pattern share one
// numeric sequence whose target is the sum of their quantities.
func planPorts(rules []model.PortTemplateRule, existing []model.Port) []model.Port {
	names := make([]string, 0, len(existing))
	taken := make(map[string]bool, len(existing))
	for _, p := range existing {
		names = append(names, p.Name)
		taken[p.Name] = true
	}

	var planned []model.Port
	add := func(rule model.PortTemplateRule, name string) {
		names = append(names, name)
		taken[name] = true
		planned = append(planned, newRulePort(rule, name))
	}
	fill := func(rule model.PortTemplateRule, scheme parse.Scheme, want int) {
		seq := scheme.Scan(names)
		next := seq.Next()
		for i := seq.Count; i < want; i++ {
			name := scheme.Name(next)
			for taken[name] {
				next++
				name = scheme.Name(next)
			}
			add(rule, name)
			next++
		}
	}

	var shared []model.PortTemplateRule
	for _, rule := range rules {
		if rule.Quantity < 1 {
			continue
		}
		pattern := ""
		if rule.NamingPattern != nil {
			pattern = strings.TrimSpace(*rule.NamingPattern)
		}

		if scheme, ok := parse.PatternScheme(pattern); ok {
			fill(rule, scheme, rule.Quantity)
			continue
		}
		if pattern != "" && rule.Quantity == 1 {
			if !taken[pattern] {
				add(rule, pattern)
			}
			continue
		}
		if code := strings.TrimSpace(rule.Code); code != "" {
			fill(rule, parse.PrefixScheme(code), rule.Quantity)
			continue
		}
		shared = append(shared, rule)
	}

	if len(shared) == 0 {
		return planned
	}

	numeric := parse.NumericScheme()
	target := 0
	for _, rule := range shared {
		target += rule.Quantity
	}
	seq := numeric.Scan(names)
	shortfall := target - seq.Count
	if shortfall <= 0 {
		return planned
	}

	// Hand the shortfall to the rules that are furthest behind, in order;
	// whatever is left goes to the last rule.
	owned := make(map[int64]int)
	for _, p := range existing {
		if p.RuleID == nil {
			continue
		}
		if _, ok := numeric.Index(p.Name); ok {
			owned[*p.RuleID]++
		}
	}
	share := make([]int, len(shared))
	left := shortfall
	for i, rule := range shared {
		deficit := rule.Quantity - owned[rule.ID]
		if deficit <= 0 {
			continue
		}
		share[i] = min(deficit, left)
		left -= share[i]
	}
	share[len(shared)-1] += left

	next := seq.Next()
	for i, rule := range shared {
		for j := 0; j < share[i]; j++ {
			name := numeric.Name(next)
			for taken[name] {
				next++
				name = numeric.Name(next)
			}
			add(rule, name)
			next++
		}
	}
	return planned
}

func newRulePort(rule model.PortTemplateRule, name string) model.Port {
	ruleID := rule.ID
	var ruleName *string
	if dn := strings.TrimSpace(rule.DisplayName); dn != "" {
		ruleName = &dn
	}
	return model.Port{
		Name:       name,
		PortTypeID: rule.PortTypeID,
		RuleID:     &ruleID,
		RuleName:   ruleName,
		MaxLinks:   max(rule.MaxLinks, 1),
		IsActive:   true,
	}
}

// Package sweep reconciles the ports of every templated device on demand,
// for example after template rules were edited in bulk.
package sweep

import (
	"context"
	"fmt"
	"log"

	"portlink-backend/config"
	"portlink-backend/internal/store"
)

// Failure records a device whose reconciliation failed.
type Failure struct {
	DeviceID   int64
	DeviceName string
	Err        error
}

// Report summarizes one sweep.
type Report struct {
	Devices      int
	PortsCreated int
	Failures     []Failure
}

// Service runs reconcile sweeps.
type Service struct {
	cfg   *config.Config
	store store.Store
}

// NewService creates a sweep service.
func NewService(cfg *config.Config, st store.Store) *Service {
	return &Service{cfg: cfg, store: st}
}

// SweepOnce reconciles every templated device once. Per-device failures are
// collected in the report; the returned error covers listing failures and
// cancellation only.
func (s *Service) SweepOnce(ctx context.Context) (Report, error) {
	var report Report

	devices, err := s.store.ListTemplatedDevices(ctx)
	if err != nil {
		return report, fmt.Errorf("failed to list devices: %w", err)
	}
	if len(devices) == 0 {
		log.Println("Sweep finished: no devices to reconcile.")
		return report, nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	pool := NewWorkerPool(s.cfg.Sweep.Workers, s.store)
	pool.Start(ctx)

	go func() {
		defer pool.Close()
		for _, dev := range devices {
			if !pool.Dispatch(ctx, dev) {
				return
			}
		}
	}()

	log.Printf("Sweeping %d devices with %d workers...", len(devices), pool.size)
	for res := range pool.Results() {
		report.Devices++
		report.PortsCreated += res.Created
		if res.Err != nil {
			report.Failures = append(report.Failures, Failure{
				DeviceID:   res.Device.ID,
				DeviceName: res.Device.Name,
				Err:        res.Err,
			})
		}
	}

	if err := ctx.Err(); err != nil {
		return report, err
	}
	log.Printf("Sweep finished: %d devices, %d ports created, %d failures.", report.Devices, report.PortsCreated, len(report.Failures))
	return report, nil
}

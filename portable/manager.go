// Package portable presents attached portable media devices (phones,
// cameras) as a navigable tree of storages, directories and files with a
// single contract regardless of the platform backend. Devices are
// enumerated through a Manager; a Device yields its root Content, and
// Content nodes enumerate children, resolve properties lazily and stream
// file bytes in and out.
//
// The model is single-threaded and synchronous: every operation blocks
// until the backend responds, and no internal locking is provided beyond
// the one-time property-resolution guard. Callers that drive a Device
// from multiple goroutines must synchronize externally.
package portable

import (
	"context"

	"go.uber.org/zap"

	"github.com/portablefs/portablefs/backends"
	"github.com/portablefs/portablefs/metrics"
)

// Manager is the process-wide entry point to device enumeration. It owns
// the platform registry session, which is established lazily by the
// backend on first use and lives until process exit.
type Manager struct {
	registry backends.Registry
	logger   *zap.Logger
}

// NewManager creates a manager over the given platform registry. A nil
// logger disables logging.
func NewManager(registry backends.Registry, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{registry: registry, logger: logger}
}

// Devices lists all attached portable devices, one Device per entry.
// The result is empty when no device is attached. It fails with a
// DeviceAccessError when the platform device registry is unreachable.
func (m *Manager) Devices(ctx context.Context) ([]*Device, error) {
	ids, err := m.registry.Enumerate(ctx)
	if err != nil {
		return nil, deviceErr("enumerate", "", err)
	}
	devices := make([]*Device, 0, len(ids))
	for _, id := range ids {
		devices = append(devices, &Device{mgr: m, id: id})
	}
	m.logger.Debug("enumerated devices", zap.Int("count", len(devices)))
	return devices, nil
}

func (m *Manager) open(ctx context.Context, id string) (backends.Conn, error) {
	conn, err := m.registry.Open(ctx, id)
	if err != nil {
		return nil, err
	}
	metrics.DeviceOpensTotal.Inc()
	m.logger.Debug("opened device", zap.String("device", id))
	return conn, nil
}

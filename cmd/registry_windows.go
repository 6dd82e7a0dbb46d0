//go:build windows

package main

import (
	"fmt"

	"github.com/portablefs/portablefs/backends"
	"github.com/portablefs/portablefs/backends/gvfs"
	"github.com/portablefs/portablefs/backends/wpd"
	"github.com/portablefs/portablefs/config"
)

// newPlatformRegistry selects the device backend for this platform.
func newPlatformRegistry(cfg config.DeviceConfig) (backends.Registry, error) {
	switch cfg.Backend {
	case "auto", "wpd":
		return wpd.NewRegistry(), nil
	case "gvfs":
		// Useful against a mounted tree during development.
		return gvfs.NewRegistry(cfg.GvfsRoot), nil
	default:
		return nil, fmt.Errorf("unknown device backend %q", cfg.Backend)
	}
}

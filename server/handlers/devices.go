package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/portablefs/portablefs/portable"
)

// DeviceInfo is one attached device in the listing response.
type DeviceInfo struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// V1ListDevices handles GET /v1/devices
func V1ListDevices(mgr *portable.Manager, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		devices, err := mgr.Devices(r.Context())
		if err != nil {
			SendErrorResponse(w, logger, err, http.StatusBadGateway)
			return
		}
		infos := make([]DeviceInfo, 0, len(devices))
		for _, dev := range devices {
			name, description := dev.GetDescription(r.Context())
			infos = append(infos, DeviceInfo{
				ID:          dev.ID(),
				Name:        name,
				Description: description,
			})
		}
		SendJSONResponse(w, infos)
	}
}

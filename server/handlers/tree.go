package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/portablefs/portablefs/internal/devpath"
	"github.com/portablefs/portablefs/portable"
)

// TreeEntry is one child in a directory listing response.
type TreeEntry struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Size     int64  `json:"size,omitempty"`
	Modified string `json:"modified,omitempty"`
}

// TreeListing is the response body for a directory-like node.
type TreeListing struct {
	Path    string      `json:"path"`
	Type    string      `json:"type"`
	Entries []TreeEntry `json:"entries"`
}

// findDevice resolves a device by display name. It returns nil when no
// attached device carries that name.
func findDevice(ctx context.Context, mgr *portable.Manager, name string) (*portable.Device, error) {
	devices, err := mgr.Devices(ctx)
	if err != nil {
		return nil, err
	}
	for _, dev := range devices {
		if devName, _ := dev.GetDescription(ctx); devName == name {
			return dev, nil
		}
	}
	return nil, nil
}

// resolveRequest maps the route parameters onto a device and the full
// logical path of the addressed node.
func resolveRequest(r *http.Request, mgr *portable.Manager) (*portable.Device, string, error) {
	deviceName := chi.URLParam(r, "device")
	dev, err := findDevice(r.Context(), mgr, deviceName)
	if err != nil || dev == nil {
		return nil, "", err
	}
	return dev, devpath.Join(deviceName, devpath.Normalize(chi.URLParam(r, "*"))), nil
}

// V1GetTree handles GET /v1/tree/{device}/*. Directory-like nodes come
// back as a JSON listing, files as their raw bytes.
func V1GetTree(mgr *portable.Manager, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		dev, fullPath, err := resolveRequest(r, mgr)
		if err != nil {
			SendErrorResponse(w, logger, err, http.StatusBadGateway)
			return
		}
		if dev == nil {
			SendNotFound(w, r.URL.Path)
			return
		}
		content, err := dev.ContentFromDevicePath(ctx, fullPath)
		if err != nil {
			SendErrorResponse(w, logger, err, http.StatusBadGateway)
			return
		}
		if content == nil {
			SendNotFound(w, fullPath)
			return
		}

		props, err := content.GetProperties(ctx)
		if err != nil {
			SendErrorResponse(w, logger, err, http.StatusBadGateway)
			return
		}
		if props.ContentType == portable.ContentTypeFile {
			streamFile(w, r, content, props.Size, logger)
			return
		}
		listDirectory(w, r, content, props, logger)
	}
}

func streamFile(w http.ResponseWriter, r *http.Request, content *portable.Content, size int64, logger *zap.Logger) {
	w.Header().Set("Content-Type", "application/octet-stream")
	if size >= 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(size, 10))
	}
	if err := content.DownloadStream(r.Context(), w); err != nil {
		// Bytes may already be on the wire; all we can do is log.
		logger.Error("File download failed",
			zap.String("path", content.FullName()), zap.Error(err))
	}
}

func listDirectory(w http.ResponseWriter, r *http.Request, content *portable.Content, props portable.Properties, logger *zap.Logger) {
	listing := TreeListing{
		Path:    content.FullName(),
		Type:    props.ContentType.String(),
		Entries: []TreeEntry{},
	}
	it := content.Children(r.Context())
	defer it.Release()
	for it.Next() {
		child := it.Content()
		cp, err := child.GetProperties(r.Context())
		if err != nil {
			SendErrorResponse(w, logger, err, http.StatusBadGateway)
			return
		}
		entry := TreeEntry{Name: child.Name(), Type: cp.ContentType.String()}
		if cp.ContentType == portable.ContentTypeFile {
			entry.Size = cp.Size
			if !cp.Modified.IsZero() {
				entry.Modified = cp.Modified.UTC().Format("2006-01-02T15:04:05Z")
			}
		}
		listing.Entries = append(listing.Entries, entry)
	}
	if err := it.Err(); err != nil {
		SendErrorResponse(w, logger, err, http.StatusBadGateway)
		return
	}
	SendJSONResponse(w, listing)
}

// V1PutTree handles PUT /v1/tree/{device}/*. The body becomes the file
// at the addressed path; missing parent directories are created.
func V1PutTree(mgr *portable.Manager, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if r.ContentLength < 0 {
			// Device writes need the object size up front.
			SendJSONStatus(w, http.StatusLengthRequired, ErrorResponse{
				Code:    "LENGTH_REQUIRED",
				Message: "upload requires a Content-Length header",
			})
			return
		}
		dev, fullPath, err := resolveRequest(r, mgr)
		if err != nil {
			SendErrorResponse(w, logger, err, http.StatusBadGateway)
			return
		}
		if dev == nil {
			SendNotFound(w, r.URL.Path)
			return
		}
		segs := devpath.Segments(fullPath)
		if len(segs) < 3 {
			// device/storage/file is the minimum addressable upload.
			SendNotFound(w, fullPath)
			return
		}
		name := segs[len(segs)-1]
		parent := devpath.Join(segs[:len(segs)-1]...)

		dir, err := dev.MakeDirs(ctx, parent)
		if err != nil {
			SendErrorResponse(w, logger, err, http.StatusBadGateway)
			return
		}
		if err := dir.UploadStream(ctx, name, r.ContentLength, r.Body); err != nil {
			SendErrorResponse(w, logger, err, http.StatusBadGateway)
			return
		}
		SendJSONStatus(w, http.StatusCreated, map[string]string{"path": fullPath})
	}
}

// V1DeleteTree handles DELETE /v1/tree/{device}/*. Directories are
// removed recursively.
func V1DeleteTree(mgr *portable.Manager, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		dev, fullPath, err := resolveRequest(r, mgr)
		if err != nil {
			SendErrorResponse(w, logger, err, http.StatusBadGateway)
			return
		}
		if dev == nil {
			SendNotFound(w, r.URL.Path)
			return
		}
		content, err := dev.ContentFromDevicePath(ctx, fullPath)
		if err != nil {
			SendErrorResponse(w, logger, err, http.StatusBadGateway)
			return
		}
		if content == nil {
			SendNotFound(w, fullPath)
			return
		}
		if err := content.Remove(ctx); err != nil {
			SendErrorResponse(w, logger, err, http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// V1MakeDirectory handles POST /v1/directories/{device}/*. Every
// missing directory along the path is created.
func V1MakeDirectory(mgr *portable.Manager, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		dev, fullPath, err := resolveRequest(r, mgr)
		if err != nil {
			SendErrorResponse(w, logger, err, http.StatusBadGateway)
			return
		}
		if dev == nil {
			SendNotFound(w, r.URL.Path)
			return
		}
		dir, err := dev.MakeDirs(ctx, fullPath)
		if err != nil {
			SendErrorResponse(w, logger, err, http.StatusBadGateway)
			return
		}
		SendJSONStatus(w, http.StatusCreated, map[string]string{
			"path": dir.FullName(),
			"type": dir.Type(ctx).String(),
		})
	}
}

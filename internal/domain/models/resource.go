package models

import (
	"strings"
	"time"
)

// InodeType distinguishes files from directories in a connection's tree.
type InodeType string

const (
	InodeFile      InodeType = "file"
	InodeDirectory InodeType = "directory"
)

// InodePath wraps the slash-delimited path of a resource. The last segment
// is the display name.
type InodePath struct {
	Path string `json:"path"`
}

// Resource is a file or folder entry from the directory service, addressed
// by an opaque service-assigned id and a path. It is immutable from our
// perspective; indexed-ness is never stored on it, always computed from the
// active knowledge base's membership set.
type Resource struct {
	ResourceID string     `json:"resource_id"`
	InodeType  InodeType  `json:"inode_type"`
	InodePath  InodePath  `json:"inode_path"`
	Status     string     `json:"status,omitempty"` // pending | indexed | failed
	MimeType   string     `json:"mime_type,omitempty"`
	Size       int64      `json:"size,omitempty"`
	CreatedAt  *time.Time `json:"created_at,omitempty"`
	UpdatedAt  *time.Time `json:"updated_at,omitempty"`
}

// Name returns the display name: the last segment of the resource path.
func (r *Resource) Name() string {
	path := strings.TrimSuffix(r.InodePath.Path, "/")
	if idx := strings.LastIndex(path, "/"); idx >= 0 {
		if seg := path[idx+1:]; seg != "" {
			return seg
		}
	}
	return r.InodePath.Path
}

// IsDirectory reports whether the resource is a folder.
func (r *Resource) IsDirectory() bool {
	return r.InodeType == InodeDirectory
}

// ResourcePage is a single page of a children listing. Callers accumulate
// pages by passing NextCursor back to the directory service.
type ResourcePage struct {
	Data          []Resource `json:"data"`
	NextCursor    string     `json:"next_cursor,omitempty"`
	CurrentCursor string     `json:"current_cursor,omitempty"`
}

// ResourceIDs extracts the ids of all resources on the page, in page order.
func (p *ResourcePage) ResourceIDs() []string {
	ids := make([]string, 0, len(p.Data))
	for i := range p.Data {
		ids = append(ids, p.Data[i].ResourceID)
	}
	return ids
}

package pipeline

import "fmt"

// NotFoundError reports a submitted path that does not resolve to a video
// file or folder.
type NotFoundError struct {
	Path string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("video not found: %s", e.Path)
}

// SizeLimitError reports a video exceeding the configured maximum size.
type SizeLimitError struct {
	Path    string
	SizeMB  float64
	LimitMB float64
}

func (e *SizeLimitError) Error() string {
	return fmt.Sprintf("video too large: %.2fMB > %.2fMB (%s)", e.SizeMB, e.LimitMB, e.Path)
}

// UnsupportedFormatError reports a container format outside the allow-list.
type UnsupportedFormatError struct {
	Path   string
	Format string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported format %q: %s", e.Format, e.Path)
}

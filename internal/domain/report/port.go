package report

import "context"

// ArtifactStore is the object storage behind exported reports and original
// X-ray files.
type ArtifactStore interface {
	// PutObject stores content under key and returns its URL.
	PutObject(ctx context.Context, key string, content []byte, contentType string) (string, error)
	// Link turns a stored file reference into a URL a browser can open.
	Link(ctx context.Context, ref string) (string, error)
}

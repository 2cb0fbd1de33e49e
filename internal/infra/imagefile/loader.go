package imagefile

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"

	_ "golang.org/x/image/bmp"

	"github.com/bryanwahyu/dental-xray-ai/internal/domain/imaging"
)

// Loader validates X-ray files on local disk and reads them for upload.
type Loader struct {
	allowed map[string]bool
	maxSize int64
	root    string
}

// NewLoader builds a loader. Relative references resolve against root; when
// root is set, references escaping it are rejected.
func NewLoader(allowedTypes []string, maxSize int64, root string) *Loader {
	allowed := make(map[string]bool, len(allowedTypes))
	for _, t := range allowedTypes {
		allowed[strings.TrimPrefix(strings.ToLower(t), ".")] = true
	}
	return &Loader{allowed: allowed, maxSize: maxSize, root: root}
}

func (l *Loader) Load(ctx context.Context, ref string) (*imaging.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := l.resolve(ref)
	if err != nil {
		return nil, err
	}

	st, err := os.Stat(path)
	if err != nil || st.IsDir() {
		return nil, fmt.Errorf("%w: %s does not exist", imaging.ErrInvalidImage, ref)
	}
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	if !l.allowed[ext] {
		return nil, fmt.Errorf("%w: extension %q not allowed", imaging.ErrInvalidImage, ext)
	}
	if l.maxSize > 0 && st.Size() > l.maxSize {
		return nil, fmt.Errorf("%w: %d bytes exceeds limit of %d", imaging.ErrInvalidImage, st.Size(), l.maxSize)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", imaging.ErrInvalidImage, err)
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", imaging.ErrInvalidImage, err)
	}

	return &imaging.Image{
		Path:     path,
		MIMEType: "image/" + format,
		Width:    cfg.Width,
		Height:   cfg.Height,
		Size:     st.Size(),
		Data:     data,
	}, nil
}

func (l *Loader) resolve(ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", fmt.Errorf("%w: empty image reference", imaging.ErrInvalidImage)
	}
	if l.root == "" {
		return filepath.Clean(ref), nil
	}
	root, err := filepath.Abs(l.root)
	if err != nil {
		return "", err
	}
	path := ref
	if !filepath.IsAbs(path) {
		path = filepath.Join(root, path)
	}
	path = filepath.Clean(path)
	if rel, err := filepath.Rel(root, path); err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s is outside the upload root", imaging.ErrInvalidImage, ref)
	}
	return path, nil
}

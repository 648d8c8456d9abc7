package attachment

import (
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// ImageCache stores attached images locally so timeline bubbles can show them later.
type ImageCache struct {
	Dir string
}

func NewImageCache(dir string) (*ImageCache, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("image cache: empty directory")
	}
	return &ImageCache{Dir: dir}, nil
}

// Save decodes data and writes it under filename, returning the filename.
func (c *ImageCache) Save(filename, data string) (string, error) {
	name, err := cacheName(filename)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(c.Dir, 0o755); err != nil {
		return "", errors.Wrap(err, "create image cache directory")
	}
	b, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return "", errors.Wrap(err, "decode image data")
	}
	if err := os.WriteFile(filepath.Join(c.Dir, name), b, 0o644); err != nil {
		return "", errors.Wrap(err, "write image file")
	}
	return name, nil
}

// Path resolves a cached filename to a local path.
func (c *ImageCache) Path(filename string) (string, error) {
	name, err := cacheName(filename)
	if err != nil {
		return "", err
	}
	p := filepath.Join(c.Dir, name)
	if _, err := os.Stat(p); err != nil {
		return "", errors.Errorf("image not found in cache: %s", name)
	}
	return p, nil
}

// ImportFile copies a local image into the cache under a timestamp name and
// returns it as an attachment ready to send.
func (c *ImageCache) ImportFile(path string, now time.Time) (*Attachment, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if MediaTypeFromFilename(path) == "" {
		return nil, errors.Errorf("unsupported image type %q", ext)
	}
	data, err := ReadBase64(path)
	if err != nil {
		return nil, err
	}
	name := fmt.Sprintf("image_%d%s", now.UnixMilli(), ext)
	if _, err := c.Save(name, data); err != nil {
		return nil, err
	}
	return &Attachment{Filename: name, Data: data}, nil
}

// ReadBase64 reads a file and returns its content base64 encoded.
func ReadBase64(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", errors.Wrap(err, "read file")
	}
	return base64.StdEncoding.EncodeToString(b), nil
}

// MediaTypeFromFilename returns the image media type for supported extensions, or "".
func MediaTypeFromFilename(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".webp":
		return "image/webp"
	case ".gif":
		return "image/gif"
	default:
		return ""
	}
}

func cacheName(filename string) (string, error) {
	name := strings.TrimSpace(filename)
	if name == "" || name != filepath.Base(name) || name == "." || name == ".." {
		return "", errors.Errorf("invalid cache filename %q", filename)
	}
	return name, nil
}

package avatar

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Prober checks whether an asset exists. Any failure counts as "does not exist".
type Prober interface {
	Exists(ctx context.Context, name string) bool
}

// ProberFunc adapts a function to Prober.
type ProberFunc func(ctx context.Context, name string) bool

func (f ProberFunc) Exists(ctx context.Context, name string) bool { return f(ctx, name) }

// HTTPProber issues HEAD requests against {Root}/{name}.
type HTTPProber struct {
	Root   string
	Token  string
	Client *http.Client
}

func (p *HTTPProber) Exists(ctx context.Context, name string) bool {
	c := p.Client
	if c == nil {
		c = &http.Client{Timeout: 5 * time.Second}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, strings.TrimRight(p.Root, "/")+"/"+name, nil)
	if err != nil {
		return false
	}
	if p.Token != "" {
		req.Header.Set("Authorization", "Bearer "+p.Token)
	}
	resp, err := c.Do(req)
	if err != nil {
		return false
	}
	_ = resp.Body.Close()
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

// DirProber looks assets up in a local directory.
type DirProber struct {
	Dir string
}

func (p *DirProber) Exists(_ context.Context, name string) bool {
	if p.Dir == "" || name != filepath.Base(name) {
		return false
	}
	fi, err := os.Stat(filepath.Join(p.Dir, name))
	return err == nil && fi.Mode().IsRegular()
}

// NewProber picks an HTTP prober for http(s) roots and a directory prober otherwise.
func NewProber(root, token string) Prober {
	if strings.HasPrefix(root, "http://") || strings.HasPrefix(root, "https://") {
		return &HTTPProber{Root: root, Token: token}
	}
	return &DirProber{Dir: root}
}

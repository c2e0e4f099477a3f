// Package assets loads models, textures and the studio catalog from local asset
// roots or http(s) URLs.
package assets

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Faultbox/van-studio/internal/logger"
	"github.com/Faultbox/van-studio/internal/scene"
)

// ErrLoadFailure wraps every model, texture and material load error.
var ErrLoadFailure = errors.New("asset load failure")

// ProgressFunc reports fetch progress. total is -1 when unknown.
type ProgressFunc func(url string, done, total int64)

// Options configures a Manager.
type Options struct {
	// Roots are searched in order for relative paths.
	Roots        []string
	CacheBytes   int64
	FetchTimeout time.Duration
	Client       *http.Client
	Progress     ProgressFunc
}

// Manager resolves catalog ids to files and loads them.
type Manager struct {
	roots    []string
	client   *http.Client
	cache    *Cache
	progress ProgressFunc

	mu      sync.RWMutex
	catalog *Catalog

	log *zap.Logger
}

// NewManager creates a manager serving cat.
func NewManager(cat *Catalog, opts Options) *Manager {
	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: opts.FetchTimeout}
	}
	if cat == nil {
		cat = &Catalog{}
	}
	return &Manager{
		roots:    opts.Roots,
		client:   client,
		cache:    NewCache(opts.CacheBytes),
		progress: opts.Progress,
		catalog:  cat,
		log:      logger.Named("assets"),
	}
}

// Catalog returns the current catalog.
func (m *Manager) Catalog() *Catalog {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.catalog
}

// SetCatalog swaps the catalog, e.g. after a hot reload.
func (m *Manager) SetCatalog(c *Catalog) {
	if c == nil {
		return
	}
	m.mu.Lock()
	m.catalog = c
	m.mu.Unlock()
}

// Cache exposes the byte cache.
func (m *Manager) Cache() *Cache { return m.cache }

// Close drops cached data.
func (m *Manager) Close() {
	m.cache.Clear()
}

func isRemote(url string) bool {
	return strings.HasPrefix(url, "http://") || strings.HasPrefix(url, "https://")
}

// Fetch returns the bytes behind url: an http(s) URL, an absolute path or a
// path relative to one of the asset roots.
func (m *Manager) Fetch(ctx context.Context, url string) ([]byte, error) {
	if data, ok := m.cache.Get(url); ok {
		return data, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrLoadFailure, url, err)
	}

	var (
		data []byte
		err  error
	)
	if isRemote(url) {
		data, err = m.fetchRemote(ctx, url)
	} else {
		data, err = m.fetchLocal(url)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrLoadFailure, url, err)
	}
	m.cache.Set(url, data)
	return data, nil
}

func (m *Manager) resolve(path string) (string, error) {
	if filepath.IsAbs(path) {
		return path, nil
	}
	for _, root := range m.roots {
		p := filepath.Join(root, filepath.FromSlash(path))
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", fmt.Errorf("not found in %d asset roots", len(m.roots))
}

func (m *Manager) fetchLocal(url string) ([]byte, error) {
	path, err := m.resolve(url)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	m.report(url, int64(len(data)), int64(len(data)))
	return data, nil
}

func (m *Manager) fetchRemote(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := m.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("http status %s", resp.Status)
	}

	start := time.Now()
	data, err := io.ReadAll(&progressReader{r: resp.Body, url: url, total: resp.ContentLength, report: m.report})
	if err != nil {
		return nil, err
	}
	m.log.Debug("fetched", zap.String("url", url), zap.Int("bytes", len(data)), zap.Duration("took", time.Since(start)))
	return data, nil
}

func (m *Manager) report(url string, done, total int64) {
	if m.progress != nil {
		m.progress(url, done, total)
	}
}

type progressReader struct {
	r      io.Reader
	url    string
	done   int64
	total  int64
	report func(url string, done, total int64)
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.done += int64(n)
		p.report(p.url, p.done, p.total)
	}
	return n, err
}

// LoadModel builds a fresh node tree for a catalog model. Safe for concurrent use.
func (m *Manager) LoadModel(ctx context.Context, kind scene.NodeKind, modelID string) (*scene.Node, error) {
	file, name, category, err := m.Catalog().entry(kind, modelID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadFailure, err)
	}
	n, err := m.LoadModelURL(ctx, kind, file)
	if err != nil {
		return nil, err
	}
	n.ModelID = modelID
	n.Name = name
	if category != "" {
		n.Tags.Extra = map[string]string{"category": category}
	}
	return n, nil
}

// LoadModelURL loads a .glb, .gltf or .obj file into a node of the given kind.
func (m *Manager) LoadModelURL(ctx context.Context, kind scene.NodeKind, url string) (*scene.Node, error) {
	data, err := m.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}

	var n *scene.Node
	switch ext := strings.ToLower(filepath.Ext(stripQuery(url))); ext {
	case ".glb", ".gltf":
		n, err = decodeGLTF(data, kind, url)
	case ".obj":
		n, err = decodeOBJ(data, kind, url)
	default:
		err = fmt.Errorf("unsupported model format %q", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrLoadFailure, url, err)
	}
	m.log.Debug("model loaded", zap.String("url", url), zap.Int("meshes", len(n.AllMeshes())))
	return n, nil
}

// LoadTexture fetches and decodes an image.
func (m *Manager) LoadTexture(ctx context.Context, url string) (*scene.Texture, error) {
	data, err := m.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}
	tex, err := decodeTexture(data, url)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrLoadFailure, url, err)
	}
	return tex, nil
}

// LoadMaterial resolves a catalog material and loads its texture.
func (m *Manager) LoadMaterial(ctx context.Context, id string) (*scene.Material, error) {
	entry, ok := m.Catalog().Material(id)
	if !ok {
		return nil, fmt.Errorf("%w: unknown material %q", ErrLoadFailure, id)
	}
	tex, err := m.LoadTexture(ctx, entry.Texture)
	if err != nil {
		return nil, err
	}
	color := entry.Color
	if color == "" {
		color = "#ffffff"
	}
	return &scene.Material{Color: color, MaterialID: id, Texture: tex}, nil
}

func stripQuery(url string) string {
	if i := strings.IndexAny(url, "?#"); i >= 0 {
		return url[:i]
	}
	return url
}

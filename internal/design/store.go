package design

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/HugoSmits86/nativewebp"
	"go.uber.org/zap"

	"github.com/Faultbox/van-studio/internal/logger"
)

// Persistence errors.
var (
	ErrPersistence = errors.New("persistence failure")
	ErrNotFound    = fmt.Errorf("%w: design not found", ErrPersistence)
)

// Record is a saved design.
type Record struct {
	ID      int64     `json:"id"`
	Name    string    `json:"name"`
	Created time.Time `json:"created"`
	Updated time.Time `json:"updated"`
	Design  State     `json:"design"`
}

// Summary lists a saved design without its state.
type Summary struct {
	ID      int64
	Name    string
	Updated time.Time
	Objects int
}

// Store persists designs per user. Ownership is enforced by the store: a user
// only ever sees designs saved under the same user id.
type Store interface {
	// Save writes st under name. id 0 creates a new design; otherwise the
	// existing design is overwritten. It returns the design id.
	Save(ctx context.Context, user, name string, id int64, st State) (int64, error)
	Load(ctx context.Context, user string, id int64) (Record, error)
	Delete(ctx context.Context, user string, id int64) error
	List(ctx context.Context, user string) ([]Summary, error)
}

var validUser = regexp.MustCompile(`^[A-Za-z0-9_.-]{1,64}$`)

// FileStore keeps one JSON file per design under <root>/<user>/<id>.json.
type FileStore struct {
	root string
	mu   sync.Mutex
	now  func() time.Time
	log  *zap.Logger
}

// NewFileStore creates a store rooted at dir. The directory is created on first save.
func NewFileStore(dir string) *FileStore {
	return &FileStore{root: dir, now: time.Now, log: logger.Named("design")}
}

// Root returns the store directory.
func (s *FileStore) Root() string { return s.root }

func (s *FileStore) userDir(user string) (string, error) {
	if !validUser.MatchString(user) || user == "." || user == ".." {
		return "", fmt.Errorf("%w: invalid user %q", ErrPersistence, user)
	}
	return filepath.Join(s.root, user), nil
}

func (s *FileStore) path(user string, id int64) (string, error) {
	dir, err := s.userDir(user)
	if err != nil {
		return "", err
	}
	if id <= 0 {
		return "", fmt.Errorf("%w: invalid design id %d", ErrPersistence, id)
	}
	return filepath.Join(dir, strconv.FormatInt(id, 10)+".json"), nil
}

// Save implements Store.
func (s *FileStore) Save(ctx context.Context, user, name string, id int64, st State) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, fmt.Errorf("%w: design name is required", ErrPersistence)
	}
	dir, err := s.userDir(user)
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC()
	rec := Record{Name: name, Created: now, Updated: now, Design: st.Clone()}
	if id == 0 {
		if id, err = s.nextID(dir); err != nil {
			return 0, err
		}
	} else {
		prev, err := s.read(user, id)
		if err != nil {
			return 0, err
		}
		rec.Created = prev.Created
	}
	rec.ID = id

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, fmt.Errorf("%w: create %s: %w", ErrPersistence, dir, err)
	}
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return 0, fmt.Errorf("%w: encode design: %w", ErrPersistence, err)
	}
	path, _ := s.path(user, id)
	if err := writeAtomic(path, data); err != nil {
		return 0, fmt.Errorf("%w: write %s: %w", ErrPersistence, path, err)
	}
	s.log.Info("design saved", zap.String("user", user), zap.Int64("id", id), zap.String("name", name),
		zap.Int("objects", len(st.Objects)))
	return id, nil
}

// Load implements Store.
func (s *FileStore) Load(ctx context.Context, user string, id int64) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read(user, id)
}

func (s *FileStore) read(user string, id int64) (Record, error) {
	path, err := s.path(user, id)
	if err != nil {
		return Record{}, err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Record{}, fmt.Errorf("%w: %s/%d", ErrNotFound, user, id)
	}
	if err != nil {
		return Record{}, fmt.Errorf("%w: read %s: %w", ErrPersistence, path, err)
	}

	var raw struct {
		Record
		Design json.RawMessage `json:"design"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return Record{}, fmt.Errorf("%w: decode %s: %w", ErrPersistence, path, err)
	}
	st, err := Parse(raw.Design)
	if err != nil {
		return Record{}, fmt.Errorf("%w: %s: %w", ErrPersistence, path, err)
	}
	rec := raw.Record
	rec.ID = id
	rec.Design = st
	return rec, nil
}

// Delete implements Store. The thumbnail goes with the design.
func (s *FileStore) Delete(ctx context.Context, user string, id int64) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	path, err := s.path(user, id)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s/%d", ErrNotFound, user, id)
		}
		return fmt.Errorf("%w: delete %s: %w", ErrPersistence, path, err)
	}
	if err := os.Remove(thumbnailPath(path)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		s.log.Warn("remove thumbnail", zap.Error(err))
	}
	s.log.Info("design deleted", zap.String("user", user), zap.Int64("id", id))
	return nil
}

// List implements Store, newest first.
func (s *FileStore) List(ctx context.Context, user string) ([]Summary, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	dir, err := s.userDir(user)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	ids, err := listIDs(dir)
	if err != nil {
		return nil, err
	}
	out := make([]Summary, 0, len(ids))
	for _, id := range ids {
		rec, err := s.read(user, id)
		if err != nil {
			s.log.Warn("skipping unreadable design", zap.Int64("id", id), zap.Error(err))
			continue
		}
		out = append(out, Summary{ID: rec.ID, Name: rec.Name, Updated: rec.Updated, Objects: len(rec.Design.Objects)})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Updated.Equal(out[j].Updated) {
			return out[i].ID > out[j].ID
		}
		return out[i].Updated.After(out[j].Updated)
	})
	return out, nil
}

// SaveThumbnail stores a WebP preview next to the design.
func (s *FileStore) SaveThumbnail(user string, id int64, img image.Image) (string, error) {
	path, err := s.path(user, id)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("%w: %s/%d", ErrNotFound, user, id)
	}
	thumb := thumbnailPath(path)
	f, err := os.Create(thumb)
	if err != nil {
		return "", fmt.Errorf("%w: create thumbnail: %w", ErrPersistence, err)
	}
	defer f.Close()

	if err := nativewebp.Encode(f, img, nil); err != nil {
		return "", fmt.Errorf("%w: webp encode: %w", ErrPersistence, err)
	}
	return thumb, nil
}

func thumbnailPath(designPath string) string {
	return strings.TrimSuffix(designPath, ".json") + ".webp"
}

func (s *FileStore) nextID(dir string) (int64, error) {
	ids, err := listIDs(dir)
	if err != nil {
		return 0, err
	}
	var max int64
	for _, id := range ids {
		if id > max {
			max = id
		}
	}
	return max + 1, nil
}

func listIDs(dir string) ([]int64, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: list %s: %w", ErrPersistence, dir, err)
	}
	var ids []int64
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		id, err := strconv.ParseInt(strings.TrimSuffix(name, ".json"), 10, 64)
		if err != nil || id <= 0 {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".design-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}

package storage

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"github.com/Aryanchhabra/DeepResearchAI/pkg/models"
	"github.com/Aryanchhabra/DeepResearchAI/pkg/storage"
	"github.com/pkg/errors"
)

// DefaultHistoryDir is where the file store keeps one JSON document per record.
const DefaultHistoryDir = "web/research_history"

var validID = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// FileStore keeps each record at <dir>/<id>.json.
type FileStore struct {
	dir string
	mu  sync.RWMutex
}

func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		dir = DefaultHistoryDir
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "create history dir %s", dir)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) path(id string) (string, error) {
	if !validID.MatchString(id) {
		return "", errors.Errorf("invalid record id %q", id)
	}
	return filepath.Join(s.dir, id+".json"), nil
}

func (s *FileStore) Save(_ context.Context, rec models.HistoryRecord) error {
	p, err := s.path(rec.ID)
	if err != nil {
		return err
	}
	if rec.Sources == nil {
		rec.Sources = models.Sources{}
	}
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encode record")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	tmp, err := os.CreateTemp(s.dir, "."+rec.ID+"-*.tmp")
	if err != nil {
		return errors.Wrap(err, "create temp file")
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return errors.Wrap(err, "write record")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return errors.Wrap(err, "close record")
	}
	if err := os.Rename(tmp.Name(), p); err != nil {
		os.Remove(tmp.Name())
		return errors.Wrap(err, "rename record")
	}
	return nil
}

func (s *FileStore) Get(_ context.Context, id string) (models.HistoryRecord, error) {
	p, err := s.path(id)
	if err != nil {
		return models.HistoryRecord{}, storage.ErrNotFound
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return readRecord(p)
}

func readRecord(p string) (models.HistoryRecord, error) {
	data, err := os.ReadFile(p)
	if os.IsNotExist(err) {
		return models.HistoryRecord{}, storage.ErrNotFound
	}
	if err != nil {
		return models.HistoryRecord{}, errors.Wrapf(err, "read %s", p)
	}
	var rec models.HistoryRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return models.HistoryRecord{}, errors.Wrapf(err, "decode %s", p)
	}
	if rec.Sources == nil {
		rec.Sources = models.Sources{}
	}
	return rec, nil
}

// List skips files that cannot be decoded.
func (s *FileStore) List(_ context.Context, limit int) ([]models.HistoryRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, errors.Wrap(err, "read history dir")
	}
	recs := make([]models.HistoryRecord, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") || filepath.Ext(name) != ".json" {
			continue
		}
		rec, err := readRecord(filepath.Join(s.dir, name))
		if err != nil {
			continue
		}
		if rec.ID == "" {
			rec.ID = strings.TrimSuffix(name, ".json")
		}
		recs = append(recs, rec)
	}
	storage.SortNewestFirst(recs)
	if limit > 0 && len(recs) > limit {
		recs = recs[:limit]
	}
	return recs, nil
}

func (s *FileStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	matches, err := filepath.Glob(filepath.Join(s.dir, "*.json"))
	if err != nil {
		return err
	}
	for _, m := range matches {
		if err := os.Remove(m); err != nil && !os.IsNotExist(err) {
			return errors.Wrapf(err, "remove %s", m)
		}
	}
	return nil
}

func (s *FileStore) Close() error {
	return nil
}

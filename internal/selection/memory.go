package selection

import (
	"context"
	"log/slog"
	"maps"
	"slices"
	"sync"

	"github.com/roach88/dataccess/internal/errs"
)

// MemoryStore keeps encoded selections in process memory. Selections are
// stored encoded, so a loaded set never aliases the saved one.
type MemoryStore struct {
	mu    sync.RWMutex
	docs  map[string][]byte
	clock Clock
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore returns an empty store. A nil clock uses the system time.
func NewMemoryStore(clock Clock) *MemoryStore {
	if clock == nil {
		clock = systemClock{}
	}
	return &MemoryStore{docs: map[string][]byte{}, clock: clock}
}

func (s *MemoryStore) Save(ctx context.Context, sel Selection) error {
	if err := ctx.Err(); err != nil {
		return errs.Wrap(errs.CodeCancelled, err, "save selection %q", sel.Name)
	}
	if err := validate(sel); err != nil {
		return err
	}
	sel.SavedAt = s.clock.Now()
	data, err := encode(sel)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.docs[sel.Name] = data
	s.mu.Unlock()
	slog.Debug("selection saved", "name", sel.Name, "dataset", sel.DataSet, "size", sel.Set.Size())
	return nil
}

func (s *MemoryStore) Load(ctx context.Context, name string) (Selection, error) {
	if err := ctx.Err(); err != nil {
		return Selection{}, errs.Wrap(errs.CodeCancelled, err, "load selection %q", name)
	}
	s.mu.RLock()
	data, ok := s.docs[name]
	s.mu.RUnlock()
	if !ok {
		return Selection{}, errs.NotFound("selection %q not found", name)
	}
	return decode(data)
}

func (s *MemoryStore) Delete(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return errs.Wrap(errs.CodeCancelled, err, "delete selection %q", name)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.docs[name]; !ok {
		return errs.NotFound("selection %q not found", name)
	}
	delete(s.docs, name)
	return nil
}

func (s *MemoryStore) Names(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, errs.Wrap(errs.CodeCancelled, err, "list selections")
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Sorted(maps.Keys(s.docs)), nil
}

func (s *MemoryStore) Close() error { return nil }

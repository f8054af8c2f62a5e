// Package store implements the generic collection layer: each named
// collection is one JSON array persisted under one key in the KV store.
// Every mutation is a whole-collection read-modify-write; queries are O(n)
// scans. There are no transactions, so multi-collection updates performed
// by the services are sequential and independently persisted.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Zahur13/ConnectSphere/internal/apperrors"
	"github.com/Zahur13/ConnectSphere/internal/storage"
)

// Record is implemented by every stored entity (via models.Meta) so the
// collection can assign ids and stamp timestamps without knowing the type.
type Record interface {
	RecordID() string
	SetRecordID(id string)
	Stamp(now time.Time)
	Touch(now time.Time)
}

// recordPtr constrains P to be a pointer to T that satisfies Record.
type recordPtr[T any] interface {
	*T
	Record
}

// Collection provides CRUD over one named collection.
type Collection[T any, P recordPtr[T]] struct {
	kv   storage.KV
	name string

	now   func() time.Time
	newID func() string
}

// NewCollection binds a collection name to a KV store.
func NewCollection[T any, P recordPtr[T]](kv storage.KV, name string) *Collection[T, P] {
	return &Collection[T, P]{
		kv:    kv,
		name:  name,
		now:   func() time.Time { return time.Now().UTC() },
		newID: func() string { return uuid.New().String() },
	}
}

// Name returns the collection's storage key.
func (c *Collection[T, P]) Name() string { return c.name }

// All returns every record in insertion order. A collection that was never
// written is empty, not an error.
func (c *Collection[T, P]) All() ([]T, error) {
	raw, err := c.kv.Get(c.name)
	if errors.Is(err, storage.ErrKeyNotFound) {
		return []T{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read collection %q: %w", c.name, err)
	}

	var items []T
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("failed to decode collection %q: %w", c.name, err)
	}
	return items, nil
}

func (c *Collection[T, P]) save(items []T) error {
	raw, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("failed to encode collection %q: %w", c.name, err)
	}
	if err := c.kv.Set(c.name, raw); err != nil {
		return fmt.Errorf("failed to persist collection %q: %w", c.name, err)
	}
	return nil
}

// Get returns the record with the given id, or apperrors.ErrNotFound.
func (c *Collection[T, P]) Get(id string) (*T, error) {
	items, err := c.All()
	if err != nil {
		return nil, err
	}
	for i := range items {
		if P(&items[i]).RecordID() == id {
			return &items[i], nil
		}
	}
	return nil, fmt.Errorf("%s %q: %w", c.name, id, apperrors.ErrNotFound)
}

// Create assigns an id when the record has none, stamps timestamps,
// appends the record and persists the whole collection.
func (c *Collection[T, P]) Create(item *T) (*T, error) {
	items, err := c.All()
	if err != nil {
		return nil, err
	}

	rec := P(item)
	if rec.RecordID() == "" {
		rec.SetRecordID(c.newID())
	}
	rec.Stamp(c.now())

	items = append(items, *item)
	if err := c.save(items); err != nil {
		return nil, err
	}
	return item, nil
}

// Update applies mutate to the record with the given id, restamps
// UpdatedAt and persists. Returns apperrors.ErrNotFound for unknown ids.
func (c *Collection[T, P]) Update(id string, mutate func(*T)) (*T, error) {
	items, err := c.All()
	if err != nil {
		return nil, err
	}

	for i := range items {
		if P(&items[i]).RecordID() != id {
			continue
		}
		mutate(&items[i])
		P(&items[i]).Touch(c.now())
		if err := c.save(items); err != nil {
			return nil, err
		}
		return &items[i], nil
	}
	return nil, fmt.Errorf("%s %q: %w", c.name, id, apperrors.ErrNotFound)
}

// UpdateEach applies mutate to every record. Records for which mutate
// returns true are restamped; when at least one changed the collection is
// persisted once. Returns the number of changed records.
func (c *Collection[T, P]) UpdateEach(mutate func(*T) bool) (int, error) {
	items, err := c.All()
	if err != nil {
		return 0, err
	}

	changed := 0
	for i := range items {
		if mutate(&items[i]) {
			P(&items[i]).Touch(c.now())
			changed++
		}
	}
	if changed == 0 {
		return 0, nil
	}
	if err := c.save(items); err != nil {
		return 0, err
	}
	return changed, nil
}

// Delete removes the record with the given id and persists. It reports
// whether a record was removed; deleting an unknown id is not an error.
func (c *Collection[T, P]) Delete(id string) (bool, error) {
	items, err := c.All()
	if err != nil {
		return false, err
	}

	kept := items[:0]
	removed := false
	for i := range items {
		if P(&items[i]).RecordID() == id {
			removed = true
			continue
		}
		kept = append(kept, items[i])
	}
	if !removed {
		return false, nil
	}
	if err := c.save(kept); err != nil {
		return false, err
	}
	return true, nil
}

// DeleteWhere removes every record matching pred in one persisted write.
func (c *Collection[T, P]) DeleteWhere(pred func(*T) bool) (int, error) {
	items, err := c.All()
	if err != nil {
		return 0, err
	}

	kept := items[:0]
	removed := 0
	for i := range items {
		if pred(&items[i]) {
			removed++
			continue
		}
		kept = append(kept, items[i])
	}
	if removed == 0 {
		return 0, nil
	}
	if err := c.save(kept); err != nil {
		return 0, err
	}
	return removed, nil
}

// FindOne returns the first record matching pred, or nil when none does.
func (c *Collection[T, P]) FindOne(pred func(*T) bool) (*T, error) {
	items, err := c.All()
	if err != nil {
		return nil, err
	}
	for i := range items {
		if pred(&items[i]) {
			return &items[i], nil
		}
	}
	return nil, nil
}

// Filter returns every record matching pred, preserving order.
func (c *Collection[T, P]) Filter(pred func(*T) bool) ([]T, error) {
	items, err := c.All()
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(items))
	for i := range items {
		if pred(&items[i]) {
			out = append(out, items[i])
		}
	}
	return out, nil
}

// Count returns the number of records in the collection.
func (c *Collection[T, P]) Count() (int, error) {
	items, err := c.All()
	if err != nil {
		return 0, err
	}
	return len(items), nil
}

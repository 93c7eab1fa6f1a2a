package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/taskline/taskline-server/internal/domain"
)

// getPref decodes a preference into dest. It reports false when the key is unset.
func (s *Store) getPref(ctx context.Context, ns domain.PreferenceNamespace, key string, dest any) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	k := buildPrefKey(ns, key)
	defer releaseKey(k)

	err := s.get(k, dest)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return false, ErrInvalidInput.WithMessage(
			fmt.Sprintf("preference %s:%s holds a %s", ns, key, typeErr.Value)).WithCause(err)
	}
	if err != nil {
		return false, fmt.Errorf("get preference %s:%s: %w", ns, key, err)
	}
	return true, nil
}

// GetBool returns the bool preference at key, or def when unset.
func (s *Store) GetBool(ctx context.Context, ns domain.PreferenceNamespace, key string, def bool) (bool, error) {
	var v bool
	ok, err := s.getPref(ctx, ns, key, &v)
	if err != nil || !ok {
		return def, err
	}
	return v, nil
}

// GetInt returns the int preference at key, or def when unset.
func (s *Store) GetInt(ctx context.Context, ns domain.PreferenceNamespace, key string, def int) (int, error) {
	var v int
	ok, err := s.getPref(ctx, ns, key, &v)
	if err != nil || !ok {
		return def, err
	}
	return v, nil
}

// GetString returns the string preference at key, or def when unset.
func (s *Store) GetString(ctx context.Context, ns domain.PreferenceNamespace, key, def string) (string, error) {
	var v string
	ok, err := s.getPref(ctx, ns, key, &v)
	if err != nil || !ok {
		return def, err
	}
	return v, nil
}

// SetPreference writes a single preference immediately.
func (s *Store) SetPreference(ctx context.Context, ns domain.PreferenceNamespace, key string, value any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := checkPrefValue(key, value); err != nil {
		return err
	}

	k := buildPrefKey(ns, key)
	defer releaseKey(k)
	return s.set(k, value)
}

// Contains reports whether a preference has been written.
func (s *Store) Contains(ctx context.Context, ns domain.PreferenceNamespace, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	k := buildPrefKey(ns, key)
	defer releaseKey(k)
	return s.exists(k)
}

// DeletePreference removes a preference. Deleting an unset key is not an error.
func (s *Store) DeletePreference(ctx context.Context, ns domain.PreferenceNamespace, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	k := buildPrefKey(ns, key)
	defer releaseKey(k)
	return s.delete(k)
}

// ListPreferences returns every preference in a namespace keyed by name.
// Whole numbers decode as int.
func (s *Store) ListPreferences(ctx context.Context, ns domain.PreferenceNamespace) (map[string]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	prefix := namespacePrefix(ns)
	result := make(map[string]any)

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			name := string(item.Key()[len(prefix):])

			err := item.Value(func(val []byte) error {
				v, err := decodePrefValue(val)
				if err != nil {
					return fmt.Errorf("decode %s: %w", name, err)
				}
				result[name] = v
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func decodePrefValue(val []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(val))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if n, ok := v.(json.Number); ok {
		if i, err := n.Int64(); err == nil {
			return int(i), nil
		}
		return n.Float64()
	}
	return v, nil
}

func checkPrefValue(key string, value any) error {
	switch value.(type) {
	case bool, int, string:
		return nil
	default:
		return ErrInvalidInput.WithMessage(
			fmt.Sprintf("preference %s: unsupported type %T", key, value))
	}
}

// Editor batches preference writes for one namespace. Nothing is visible to
// readers until Commit, which writes every pending entry in a single transaction.
type Editor struct {
	store   *Store
	ns      domain.PreferenceNamespace
	pending map[string]any
	order   []string
}

// Edit starts a batch of writes against a namespace.
func (s *Store) Edit(ns domain.PreferenceNamespace) *Editor {
	return &Editor{store: s, ns: ns, pending: make(map[string]any)}
}

// Put stages a value; a later Put for the same key replaces it.
func (e *Editor) Put(key string, value any) *Editor {
	if _, ok := e.pending[key]; !ok {
		e.order = append(e.order, key)
	}
	e.pending[key] = value
	return e
}

// Pending returns the number of staged keys.
func (e *Editor) Pending() int {
	return len(e.order)
}

// Commit writes all staged entries synchronously and clears the batch.
func (e *Editor) Commit(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(e.order) == 0 {
		return nil
	}

	encoded := make([][]byte, len(e.order))
	for i, key := range e.order {
		value := e.pending[key]
		if err := checkPrefValue(key, value); err != nil {
			return err
		}
		data, err := json.Marshal(value)
		if err != nil {
			return fmt.Errorf("marshal preference %s: %w", key, err)
		}
		encoded[i] = data
	}

	err := e.store.db.Update(func(txn *badger.Txn) error {
		for i, key := range e.order {
			k := buildPrefKey(e.ns, key)
			err := txn.Set(append([]byte(nil), k...), encoded[i])
			releaseKey(k)
			if err != nil {
				return fmt.Errorf("set preference %s: %w", key, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	e.pending = make(map[string]any)
	e.order = nil
	return nil
}

// Package mirror persists session slices into a key-value byte store.
//
// The mirror is best-effort: encode, write, read and validation failures are
// logged and counted but never returned, so a broken disk cannot fail the
// in-memory mutation a write accompanies.
package mirror

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync/atomic"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"smartshop/internal/kv"
)

const (
	schemaBase   = "https://smartshop.local/schema/"
	schemaSuffix = ".schema.json"
)

// Stats counts mirror operations since creation.
type Stats struct {
	Persisted       uint64 `json:"persisted"`
	PersistFailures uint64 `json:"persist_failures"`
	Removed         uint64 `json:"removed"`
	RemoveFailures  uint64 `json:"remove_failures"`
	Loaded          uint64 `json:"loaded"`
	LoadMisses      uint64 `json:"load_misses"`
	LoadFailures    uint64 `json:"load_failures"`
}

// Mirror writes JSON-encoded values through to a kv.Store.
type Mirror struct {
	store   kv.Store
	log     *slog.Logger
	schemas map[string]*jsonschema.Schema

	persisted       atomic.Uint64
	persistFailures atomic.Uint64
	removed         atomic.Uint64
	removeFailures  atomic.Uint64
	loaded          atomic.Uint64
	loadMisses      atomic.Uint64
	loadFailures    atomic.Uint64
}

type options struct {
	log     *slog.Logger
	schemas map[string]string
}

// Option configures a Mirror.
type Option func(*options)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.log = l
		}
	}
}

// WithSchemas registers JSON schema documents keyed by file name. A document
// named "<key>.schema.json" validates values loaded under key; the others are
// available to $ref.
func WithSchemas(docs map[string]string) Option {
	return func(o *options) {
		for name, src := range docs {
			o.schemas[name] = src
		}
	}
}

// New creates a mirror over store. It fails only when a schema does not compile.
func New(store kv.Store, opts ...Option) (*Mirror, error) {
	o := options{
		log:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		schemas: make(map[string]string),
	}
	for _, opt := range opts {
		opt(&o)
	}

	schemas, err := compileSchemas(o.schemas)
	if err != nil {
		return nil, err
	}

	return &Mirror{
		store:   store,
		log:     o.log,
		schemas: schemas,
	}, nil
}

func compileSchemas(docs map[string]string) (map[string]*jsonschema.Schema, error) {
	out := make(map[string]*jsonschema.Schema)
	if len(docs) == 0 {
		return out, nil
	}

	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	for name, src := range docs {
		if err := compiler.AddResource(schemaBase+name, strings.NewReader(src)); err != nil {
			return nil, fmt.Errorf("add schema %s: %w", name, err)
		}
	}
	for name := range docs {
		key, ok := strings.CutSuffix(name, schemaSuffix)
		if !ok {
			continue
		}
		schema, err := compiler.Compile(schemaBase + name)
		if err != nil {
			return nil, fmt.Errorf("compile schema %s: %w", name, err)
		}
		out[key] = schema
	}
	return out, nil
}

// Persist encodes v and writes it under key, replacing any previous value.
func (m *Mirror) Persist(key string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		m.persistFailures.Add(1)
		m.log.Warn("encode slice failed", "key", key, "error", err)
		return
	}
	if err := m.store.Put(key, data); err != nil {
		m.persistFailures.Add(1)
		m.log.Warn("persist slice failed", "key", key, "error", err)
		return
	}
	m.persisted.Add(1)
	m.log.Debug("persisted slice", "key", key, "bytes", len(data))
}

// Remove deletes key. Removing a missing key is not an error.
func (m *Mirror) Remove(key string) {
	if err := m.store.Delete(key); err != nil && !errors.Is(err, kv.ErrNotFound) {
		m.removeFailures.Add(1)
		m.log.Warn("remove slice failed", "key", key, "error", err)
		return
	}
	m.removed.Add(1)
	m.log.Debug("removed slice", "key", key)
}

// Load decodes the value stored under key into dst. It reports false when the
// key is missing, unreadable, fails its schema or does not decode, leaving
// dst untouched in the first three cases.
func (m *Mirror) Load(key string, dst any) bool {
	data, err := m.store.Get(key)
	if errors.Is(err, kv.ErrNotFound) {
		m.loadMisses.Add(1)
		m.log.Debug("slice not persisted", "key", key)
		return false
	}
	if err != nil {
		m.loadFailures.Add(1)
		m.log.Warn("read slice failed", "key", key, "error", err)
		return false
	}

	if schema, ok := m.schemas[key]; ok {
		if err := validate(schema, data); err != nil {
			m.loadFailures.Add(1)
			m.log.Warn("persisted slice failed validation", "key", key, "error", err)
			return false
		}
	}

	if err := json.Unmarshal(data, dst); err != nil {
		m.loadFailures.Add(1)
		m.log.Warn("decode slice failed", "key", key, "error", err)
		return false
	}
	m.loaded.Add(1)
	return true
}

func validate(schema *jsonschema.Schema, data []byte) error {
	var instance any
	if err := json.Unmarshal(data, &instance); err != nil {
		return fmt.Errorf("unmarshal instance: %w", err)
	}
	return schema.Validate(instance)
}

// Stats returns a snapshot of the operation counters.
func (m *Mirror) Stats() Stats {
	return Stats{
		Persisted:       m.persisted.Load(),
		PersistFailures: m.persistFailures.Load(),
		Removed:         m.removed.Load(),
		RemoveFailures:  m.removeFailures.Load(),
		Loaded:          m.loaded.Load(),
		LoadMisses:      m.loadMisses.Load(),
		LoadFailures:    m.loadFailures.Load(),
	}
}

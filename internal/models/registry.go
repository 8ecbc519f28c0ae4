package models

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"
)

// Deserializer turns one remote item into a Record of a registered type.
type Deserializer func(raw json.RawMessage) (*Record, error)

// TypeInfo describes a registered record type.
type TypeInfo struct {
	Decode   Deserializer
	Type     string
	Endpoint string
}

// Registry maps record type tags to endpoints and deserializers.
// It is safe for concurrent use.
type Registry struct {
	types map[string]TypeInfo
	mu    sync.RWMutex
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{types: make(map[string]TypeInfo)}
}

// Register adds T under its RecordType tag, served at endpoint.
func Register[T Synchronizable](reg *Registry, endpoint string) {
	var zero T
	typ := zero.RecordType()

	reg.mu.Lock()
	defer reg.mu.Unlock()

	reg.types[typ] = TypeInfo{
		Type:     typ,
		Endpoint: endpoint,
		Decode:   decodeRemote[T],
	}
}

// Lookup returns the registration for typ.
func (reg *Registry) Lookup(typ string) (TypeInfo, error) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()

	info, ok := reg.types[typ]
	if !ok {
		return TypeInfo{}, fmt.Errorf("%w: record type %q is not registered", ErrConfiguration, typ)
	}
	return info, nil
}

// Endpoint returns the collection endpoint of typ.
func (reg *Registry) Endpoint(typ string) (string, error) {
	info, err := reg.Lookup(typ)
	if err != nil {
		return "", err
	}
	return info.Endpoint, nil
}

// Types returns the registered type tags in sorted order.
func (reg *Registry) Types() []string {
	reg.mu.RLock()
	defer reg.mu.RUnlock()

	types := make([]string, 0, len(reg.types))
	for typ := range reg.types {
		types = append(types, typ)
	}
	sort.Strings(types)
	return types
}

// decodeRemote validates raw against the schema of T and builds a Record.
// Timestamps come from the wire envelope fields createdAt / updatedAt.
func decodeRemote[T Synchronizable](raw json.RawMessage) (*Record, error) {
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDeserialization, err)
	}
	if v.RecordID() == "" {
		return nil, fmt.Errorf("%w: %s item without id", ErrDeserialization, v.RecordType())
	}

	var stamps struct {
		CreatedAt time.Time `json:"createdAt"`
		UpdatedAt time.Time `json:"updatedAt"`
	}
	if err := json.Unmarshal(raw, &stamps); err != nil {
		return nil, fmt.Errorf("%w: %s %s timestamps: %v", ErrDeserialization, v.RecordType(), v.RecordID(), err)
	}

	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDeserialization, err)
	}

	return &Record{
		ID:        v.RecordID(),
		Type:      v.RecordType(),
		Data:      data,
		State:     StateSynced,
		CreatedAt: stamps.CreatedAt,
		UpdatedAt: stamps.UpdatedAt,
	}, nil
}

package collect

import "strconv"

// Record is one result row: field values keyed by name, preserving
// insertion order. CSV export uses the first record's field order as the
// header row, so order is part of the contract.
type Record struct {
	keys   []string
	values map[string]string
}

// NewRecord creates an empty record
func NewRecord() *Record {
	return &Record{values: make(map[string]string)}
}

// Set adds or replaces a field. A new key is appended to the field order.
func (r *Record) Set(key, value string) {
	if _, exists := r.values[key]; !exists {
		r.keys = append(r.keys, key)
	}
	r.values[key] = value
}

// SetInt sets a numeric field rendered in decimal
func (r *Record) SetInt(key string, value int64) {
	r.Set(key, strconv.FormatInt(value, 10))
}

// Get returns the value for a field, empty when absent
func (r *Record) Get(key string) string {
	return r.values[key]
}

// Keys returns the field names in insertion order
func (r *Record) Keys() []string {
	return r.keys
}

// Len returns the number of fields
func (r *Record) Len() int {
	return len(r.keys)
}

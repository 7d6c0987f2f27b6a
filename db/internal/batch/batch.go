// Package batch provides a write overlay over a db.Reader. Backends without
// native read-your-writes batches build their db.WriteTx on top of it.
package batch

import (
	"bytes"
	"slices"

	"github.com/vocdoni/anonvote-node/db"
)

// Overlay buffers writes in memory and serves reads by merging them with the
// underlying reader.
type Overlay struct {
	reader db.Reader
	writes map[string]*[]byte // nil value marks a deletion
}

// New returns an empty overlay on top of reader.
func New(reader db.Reader) *Overlay {
	return &Overlay{reader: reader, writes: make(map[string]*[]byte)}
}

func (o *Overlay) Get(key []byte) ([]byte, error) {
	if pending, ok := o.writes[string(key)]; ok {
		if pending == nil {
			return nil, db.ErrKeyNotFound
		}
		return bytes.Clone(*pending), nil
	}
	return o.reader.Get(key)
}

func (o *Overlay) Iterate(prefix []byte, callback func(key, value []byte) bool) error {
	entries := make(map[string][]byte)
	if err := o.reader.Iterate(prefix, func(k, v []byte) bool {
		entries[string(k)] = bytes.Clone(v)
		return true
	}); err != nil {
		return err
	}
	for k, v := range o.writes {
		if !bytes.HasPrefix([]byte(k), prefix) {
			continue
		}
		if v == nil {
			delete(entries, k)
			continue
		}
		entries[k] = bytes.Clone(*v)
	}
	keys := make([]string, 0, len(entries))
	for k := range entries {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		if !callback([]byte(k), entries[k]) {
			break
		}
	}
	return nil
}

func (o *Overlay) Set(key, value []byte) error {
	v := bytes.Clone(value)
	o.writes[string(key)] = &v
	return nil
}

func (o *Overlay) Delete(key []byte) error {
	o.writes[string(key)] = nil
	return nil
}

// Apply copies all the pairs visible through other into the overlay.
func (o *Overlay) Apply(other db.WriteTx) error {
	var setErr error
	if err := other.Iterate(nil, func(k, v []byte) bool {
		setErr = o.Set(k, v)
		return setErr == nil
	}); err != nil {
		return err
	}
	return setErr
}

// Each calls fn for every buffered write in key order.
func (o *Overlay) Each(fn func(key, value []byte, deleted bool) error) error {
	keys := make([]string, 0, len(o.writes))
	for k := range o.writes {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		v := o.writes[k]
		var value []byte
		if v != nil {
			value = *v
		}
		if err := fn([]byte(k), value, v == nil); err != nil {
			return err
		}
	}
	return nil
}

// Len returns the number of buffered writes.
func (o *Overlay) Len() int {
	return len(o.writes)
}

// Reset drops all buffered writes.
func (o *Overlay) Reset() {
	o.writes = make(map[string]*[]byte)
}

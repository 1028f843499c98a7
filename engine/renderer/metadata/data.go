package metadata

import "sync"

// Data is a block of CPU-side bytes backing one buffer descriptor element.
// Scene code may share a Data between several descriptors and update it while
// frames are in flight, so reads and writes go through the block's lock.
type Data struct {
	mu       sync.RWMutex
	values   []byte
	modified uint64
}

func NewData(values []byte) *Data {
	d := &Data{values: make([]byte, len(values))}
	copy(d.values, values)
	return d
}

// Size is the length of the block in bytes.
func (d *Data) Size() uint64 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return uint64(len(d.values))
}

// Bytes returns a copy of the current contents.
func (d *Data) Bytes() []byte {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]byte, len(d.values))
	copy(out, d.values)
	return out
}

// Set replaces the contents. A block can change size only before its descriptor is compiled.
func (d *Data) Set(values []byte) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(values) != len(d.values) {
		d.values = make([]byte, len(values))
	}
	copy(d.values, values)
	d.modified++
}

// WriteAt overwrites part of the block, truncating what does not fit.
func (d *Data) WriteAt(offset int, values []byte) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	if offset >= len(d.values) {
		return 0
	}
	n := copy(d.values[offset:], values)
	d.modified++
	return n
}

// ModifiedCount increases on every Set and WriteAt.
func (d *Data) ModifiedCount() uint64 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.modified
}

package storage

import (
	"os"
	"sync"

	"golang.org/x/sys/unix"

	"github.com/utxoarchive/archive/errcode"
)

// defaultGrowth is the fallback physical-capacity growth increment (as a
// fraction of current capacity) when a table does not configure
// file_growth_rate.
const defaultGrowth = 0.5

// minCapacity is the smallest physical allocation a Mapped file is ever
// given, avoiding a remap on every first few small allocations.
const minCapacity = 1 << 16 // 64 KiB

// Mapped is the production Storage implementation: a single on-disk file
// memory-mapped for the lifetime of the handle, grown by unmap/truncate/
// remap when logical writes outrun physical capacity.
//
// fieldMu guards size/capacity/fault; mapMu guards the mapping itself
// (shared for all outstanding Accessors,
// exclusive only while the mapping is being re-pointed by Expand/Unload/
// Reload). Allocate holds fieldMu for the field update and takes mapMu
// as well only when it must remap to a larger capacity; an Allocate that
// fits within existing capacity does not touch mapMu. Truncate takes
// fieldMu only.
type Mapped struct {
	path   string
	growth float64

	fieldMu sync.RWMutex
	mapMu   sync.RWMutex

	file     *os.File
	data     []byte // current mapping, len == capacity
	size     uint64 // logical size, <= capacity
	capacity uint64

	fault error
}

var _ Storage = (*Mapped)(nil)

// NewMapped returns a Storage backed by the file at path. growthRate is
// the fractional capacity increment applied on each remap (0 selects
// defaultGrowth); it corresponds to the configured file_growth_rate.
func NewMapped(path string, growthRate float64) *Mapped {
	if growthRate <= 0 {
		growthRate = defaultGrowth
	}
	return &Mapped{path: path, growth: growthRate}
}

// Open implements Storage.
func (m *Mapped) Open() error {
	m.fieldMu.Lock()
	defer m.fieldMu.Unlock()

	f, err := os.OpenFile(m.path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return errcode.Wrapf(err, "storage: open %s", m.path)
	}
	m.file = f

	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return errcode.Wrapf(err, "storage: stat %s", m.path)
	}
	m.size = uint64(info.Size())
	return m.mapLocked(maxU64(m.size, minCapacity))
}

// mapLocked (re)establishes the mmap over the first capacity bytes of
// the file, growing the file with Ftruncate first if it is shorter.
// Caller must hold fieldMu and mapMu for writing.
func (m *Mapped) mapLocked(capacity uint64) error {
	if capacity == 0 {
		capacity = minCapacity
	}
	info, err := m.file.Stat()
	if err != nil {
		return errcode.Wrap(err, "storage: stat")
	}
	if uint64(info.Size()) < capacity {
		if err := m.file.Truncate(int64(capacity)); err != nil {
			return errcode.Wrap(err, "storage: grow file")
		}
	}
	if m.data != nil {
		if err := unix.Munmap(m.data); err != nil {
			return errcode.Wrap(err, "storage: munmap")
		}
		m.data = nil
	}
	data, err := unix.Mmap(int(m.file.Fd()), 0, int(capacity), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		m.fault = err
		return errcode.Wrap(err, "storage: mmap")
	}
	m.data = data
	m.capacity = capacity
	return nil
}

// Close implements Storage.
func (m *Mapped) Close() error {
	m.fieldMu.Lock()
	m.mapMu.Lock()
	defer m.mapMu.Unlock()
	defer m.fieldMu.Unlock()

	var err error
	if m.data != nil {
		if e := unix.Msync(m.data[:m.size], unix.MS_SYNC); e != nil {
			err = e
		}
		if e := unix.Munmap(m.data); e != nil && err == nil {
			err = e
		}
		m.data = nil
	}
	if m.file != nil {
		if e := m.file.Truncate(int64(m.size)); e != nil && err == nil {
			err = e
		}
		if e := m.file.Close(); e != nil && err == nil {
			err = e
		}
		m.file = nil
	}
	if err != nil {
		return errcode.Wrap(err, "storage: close")
	}
	return nil
}

// Load implements Storage: re-derive capacity from the current file size
// without disturbing logical size.
func (m *Mapped) Load() error {
	m.fieldMu.Lock()
	m.mapMu.Lock()
	defer m.mapMu.Unlock()
	defer m.fieldMu.Unlock()

	info, err := m.file.Stat()
	if err != nil {
		return errcode.Wrap(err, "storage: stat")
	}
	return m.mapLocked(maxU64(uint64(info.Size()), minCapacity))
}

// Reload implements Storage.
func (m *Mapped) Reload() error {
	return m.Load()
}

// Flush implements Storage.
func (m *Mapped) Flush() error {
	m.fieldMu.RLock()
	m.mapMu.RLock()
	defer m.mapMu.RUnlock()
	defer m.fieldMu.RUnlock()

	if m.data == nil {
		return errcode.ErrClosed
	}
	if err := unix.Msync(m.data[:m.size], unix.MS_SYNC); err != nil {
		return errcode.Wrap(err, "storage: msync")
	}
	if err := m.file.Sync(); err != nil {
		return errcode.Wrap(err, "storage: fsync")
	}
	return nil
}

// Unload implements Storage.
func (m *Mapped) Unload() error {
	m.fieldMu.Lock()
	m.mapMu.Lock()
	defer m.mapMu.Unlock()
	defer m.fieldMu.Unlock()

	if m.data == nil {
		return nil
	}
	if err := unix.Munmap(m.data); err != nil {
		return errcode.Wrap(err, "storage: munmap")
	}
	m.data = nil
	return nil
}

// Size implements Storage.
func (m *Mapped) Size() uint64 {
	m.fieldMu.RLock()
	defer m.fieldMu.RUnlock()
	return m.size
}

// Capacity implements Storage.
func (m *Mapped) Capacity() uint64 {
	m.fieldMu.RLock()
	defer m.fieldMu.RUnlock()
	return m.capacity
}

// Allocate implements Storage.
func (m *Mapped) Allocate(chunk uint64) (uint64, bool) {
	m.fieldMu.Lock()
	defer m.fieldMu.Unlock()

	offset := m.size
	newSize := m.size + chunk
	if newSize < m.size {
		m.fault = errcode.ErrEOF
		return 0, false
	}
	if newSize > m.capacity {
		m.mapMu.Lock()
		err := m.mapLocked(m.nextCapacityLocked(newSize))
		m.mapMu.Unlock()
		if err != nil {
			m.fault = err
			return 0, false
		}
	}
	m.size = newSize
	return offset, true
}

// nextCapacityLocked computes the next physical capacity to request,
// applying the configured growth rate but never less than what is
// needed. Caller holds fieldMu.
func (m *Mapped) nextCapacityLocked(need uint64) uint64 {
	cap := m.capacity
	if cap == 0 {
		cap = minCapacity
	}
	for cap < need {
		grown := cap + uint64(float64(cap)*m.growth)
		if grown <= cap {
			grown = cap + minCapacity
		}
		cap = grown
	}
	return cap
}

// Expand implements Storage.
func (m *Mapped) Expand(size uint64) error {
	m.fieldMu.Lock()
	defer m.fieldMu.Unlock()
	if size <= m.capacity {
		return nil
	}
	m.mapMu.Lock()
	defer m.mapMu.Unlock()
	return m.mapLocked(size)
}

// Reserve implements Storage.
func (m *Mapped) Reserve(chunk uint64) error {
	m.fieldMu.RLock()
	need := m.size + chunk
	m.fieldMu.RUnlock()
	return m.Expand(need)
}

// Truncate implements Storage.
func (m *Mapped) Truncate(size uint64) error {
	m.fieldMu.Lock()
	defer m.fieldMu.Unlock()
	if size > m.size {
		return errcode.ErrTruncatePastSize
	}
	m.size = size
	return nil
}

// Get implements Storage.
func (m *Mapped) Get(offset uint64) (Accessor, error) {
	m.mapMu.RLock()
	m.fieldMu.RLock()
	size := m.size
	if err := checkFault(m.fault); err != nil {
		m.fieldMu.RUnlock()
		m.mapMu.RUnlock()
		return Accessor{}, err
	}
	m.fieldMu.RUnlock()

	if offset >= size {
		m.mapMu.RUnlock()
		return Accessor{}, nil
	}
	data := m.data[offset:size]
	return NewAccessor(data, m.mapMu.RUnlock), nil
}

// GetRaw implements Storage. Callers must already hold (or not need) the
// map lock; used internally by code that races nothing else.
func (m *Mapped) GetRaw(offset uint64) []byte {
	m.fieldMu.RLock()
	size := m.size
	m.fieldMu.RUnlock()
	if offset >= size {
		return nil
	}
	return m.data[offset:size]
}

// GetCapacity implements Storage.
func (m *Mapped) GetCapacity(offset uint64) (Accessor, error) {
	m.mapMu.RLock()
	m.fieldMu.RLock()
	capacity := m.capacity
	if err := checkFault(m.fault); err != nil {
		m.fieldMu.RUnlock()
		m.mapMu.RUnlock()
		return Accessor{}, err
	}
	m.fieldMu.RUnlock()

	if offset >= capacity {
		m.mapMu.RUnlock()
		return Accessor{}, nil
	}
	data := m.data[offset:capacity]
	return NewAccessor(data, m.mapMu.RUnlock), nil
}

// Fault implements Storage.
func (m *Mapped) Fault() error {
	m.fieldMu.RLock()
	defer m.fieldMu.RUnlock()
	return m.fault
}

func maxU64(a, b uint64) uint64 {
	if a > b {
		return a
	}
	return b
}

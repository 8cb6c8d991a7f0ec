// Package head implements the two head-file layouts tables are built
// on: hashhead, which maps a search key to a bucket via a fast hash,
// and arrayhead, which uses the key as the bucket index directly. Both
// share the on-disk layout: a leading body-count/size field followed
// by one link-width cell per bucket, each initialized to the table's
// terminal value.
package head

import (
	"github.com/utxoarchive/archive/errcode"
	"github.com/utxoarchive/archive/internal/linkage"
	"github.com/utxoarchive/archive/internal/storage"
)

// Lifecycle is the subset of head operations common to both bucket
// policies: create/verify/reset and the body element-count round trip
// that store.Store uses when opening, closing, backing up and restoring
// a table, independent of how buckets are indexed.
type Lifecycle interface {
	Create() error
	Verify() error
	Enabled() bool
	Buckets() uint64
	BodyCount() (uint64, error)
	SetBodyCount(count uint64) error
	Close() error
	Reset() error
}

// base holds the fields and bucket-table mechanics shared by hashhead and
// arrayhead; it is not exported, each policy embeds it and adds its own
// key-to-bucket translation.
type base struct {
	file    storage.Storage
	link    linkage.Width
	buckets uint64 // 0 disables the table; ArrayHead accepts and grows to any count
}

func newBase(file storage.Storage, link linkage.Width, buckets uint64) base {
	return base{file: file, link: link, buckets: buckets}
}

// Enabled reports whether this head addresses any buckets at all; a
// configured bucket width of zero disables an optional index entirely.
func (b *base) Enabled() bool { return b.buckets > 0 }

// Buckets returns the configured bucket count.
func (b *base) Buckets() uint64 { return b.buckets }

func (b *base) headSize() uint64 {
	return uint64(b.link) + b.buckets*uint64(b.link)
}

func (b *base) bucketOffset(bucket uint64) uint64 {
	return uint64(b.link) + bucket*uint64(b.link)
}

// Create writes a zero count and fills every bucket with the terminal
// sentinel, so immediately after create every bucket is terminal and
// the body is empty.
func (b *base) Create() error {
	if !b.Enabled() {
		return nil
	}
	size := b.headSize()
	if _, ok := b.file.Allocate(size); !ok {
		return errcode.Wrap(b.file.Fault(), "head: create allocate")
	}
	raw := b.file.GetRaw(0)
	if raw == nil || uint64(len(raw)) < size {
		return errcode.ErrCorrupt
	}
	b.link.Put(raw[0:b.link], 0)
	terminal := b.link.Terminal()
	for i := uint64(0); i < b.buckets; i++ {
		off := b.bucketOffset(i)
		b.link.Put(raw[off:off+uint64(b.link)], terminal)
	}
	return errcode.Wrap(b.file.Fault(), "head: create")
}

// Verify checks the head file's size exactly matches buckets*L + L.
func (b *base) Verify() error {
	if !b.Enabled() {
		return nil
	}
	if b.file.Size() != b.headSize() {
		return errcode.Wrapf(errcode.ErrCorrupt, "head: size %d != expected %d", b.file.Size(), b.headSize())
	}
	return nil
}

// BodyCount reads the leading count/size field.
func (b *base) BodyCount() (uint64, error) {
	if !b.Enabled() {
		return 0, nil
	}
	acc, err := b.file.Get(0)
	if err != nil {
		return 0, err
	}
	defer acc.Release()
	if acc.Empty() {
		return 0, errcode.ErrCorrupt
	}
	return uint64(b.link.Get(acc.Bytes()[:b.link])), nil
}

// SetBodyCount writes the current logical element count or byte extent
// into the head's leading field. Only ever called on a clean close,
// backup, or restore.
func (b *base) SetBodyCount(count uint64) error {
	if !b.Enabled() {
		return nil
	}
	raw := b.file.GetRaw(0)
	if raw == nil || uint64(len(raw)) < uint64(b.link) {
		return errcode.ErrCorrupt
	}
	b.link.Put(raw[:b.link], linkage.Link(count))
	return errcode.Wrap(b.file.Fault(), "head: set body count")
}

// Close releases the head's storage handle.
func (b *base) Close() error {
	return b.file.Close()
}

// Reset rewrites every bucket to terminal and zeroes the count field,
// without resizing the file.
func (b *base) Reset() error {
	if !b.Enabled() {
		return nil
	}
	raw := b.file.GetRaw(0)
	if raw == nil {
		return errcode.ErrCorrupt
	}
	b.link.Put(raw[0:b.link], 0)
	terminal := b.link.Terminal()
	for i := uint64(0); i < b.buckets; i++ {
		off := b.bucketOffset(i)
		b.link.Put(raw[off:off+uint64(b.link)], terminal)
	}
	return nil
}

// topAt reads the link stored at bucket.
func (b *base) topAt(bucket uint64) (linkage.Link, error) {
	if !b.Enabled() {
		return b.link.Terminal(), nil
	}
	off := b.bucketOffset(bucket % b.buckets)
	raw := b.file.GetRaw(off)
	if raw == nil || uint64(len(raw)) < uint64(b.link) {
		return b.link.Terminal(), errcode.ErrCorrupt
	}
	return b.link.Get(raw[:b.link]), nil
}

// setAt overwrites the link stored at bucket.
func (b *base) setAt(bucket uint64, value linkage.Link) error {
	if !b.Enabled() {
		return nil
	}
	off := b.bucketOffset(bucket % b.buckets)
	raw := b.file.GetRaw(off)
	if raw == nil || uint64(len(raw)) < uint64(b.link) {
		return errcode.ErrCorrupt
	}
	b.link.Put(raw[:b.link], value)
	return errcode.Wrap(b.file.Fault(), "head: set bucket")
}

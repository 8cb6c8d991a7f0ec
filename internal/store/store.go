// Package store owns the full set of archive tables and the files that
// govern their shared lifecycle: the flush-lock crash sentinel, the
// exclusive process lock, and the process_lock PID file. It sequences
// create/open/close across every table and exposes the write guard the
// query layer takes for compound, cross-table atomic operations.
package store

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"github.com/utxoarchive/archive/config"
	"github.com/utxoarchive/archive/errcode"
	"github.com/utxoarchive/archive/internal/linkage"
	"github.com/utxoarchive/archive/internal/metrics"
	"github.com/utxoarchive/archive/internal/schema"
	"github.com/utxoarchive/archive/internal/storage"
	"github.com/utxoarchive/archive/internal/table"
	"github.com/utxoarchive/archive/log"
)

// EventKind names a point in a table's lifecycle reported to a Store's
// event handler.
type EventKind int

const (
	EventOpening EventKind = iota
	EventOpened
	EventClosing
	EventClosed
)

func (k EventKind) String() string {
	switch k {
	case EventOpening:
		return "opening"
	case EventOpened:
		return "opened"
	case EventClosing:
		return "closing"
	case EventClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// EventHandler is invoked as each table opens or closes. It is advisory
// and must not mutate store state.
type EventHandler func(kind EventKind, tableID string)

const (
	flushLockName     = "flush_lock"
	exclusiveLockName = "exclusive_lock"
	processLockName   = "process_lock"
)

// Store owns every archive table plus the three lifecycle sentinel
// files shared across them.
type Store struct {
	cfg config.Config
	dir string

	exclusiveLock *flock.Flock
	onEvent       EventHandler
	sessionID     uuid.UUID // tags this open in process_lock and log lines, for diagnosing stale locks across restarts

	guard sync.RWMutex // cross-table write guard

	Header      *table.HashMap[schema.Header]
	Point       *table.HashMap[schema.Point]
	Tx          *table.HashMap[schema.Tx]
	Txs         *table.ArrayMap[schema.Txs]
	Candidate   *table.ArrayMap[schema.HeightEntry]
	Confirmed   *table.ArrayMap[schema.HeightEntry]
	StrongTx    *table.HashMap[schema.StrongTx]
	Prevout     *table.ArrayMap[schema.Prevout]
	ValidatedBk *table.HashMap[schema.ValidatedBk]
	ValidatedTx *table.HashMap[schema.ValidatedTx]

	Output *table.NoMap[schema.Output]
	Input  *table.NoMap[schema.Input]
	Outs   *table.NoMap[linkage.Link]
	Ins    *table.NoMap[linkage.Link]

	Address  *table.HashMap[schema.AddressEntry] // optional, nil if disabled
	FilterBk *table.ArrayMap[schema.FilterBk]    // optional, nil if disabled
	FilterTx *table.ArrayMap[schema.FilterTx]    // optional, nil if disabled

	bodies []storage.Storage // every opened body/head Storage, for Close/Flush fan-out
	headed []headedTable     // every table with a head file, for the SetBodyCount-on-close step
}

// headedTable is the subset of HashMap/ArrayMap's lifecycle Close,
// Backup and Restore need: publishing the current element count before
// closing or checkpointing, and truncating the body back to the last
// published count on restore.
type headedTable interface {
	Count() uint64
	SetBodyCount(count uint64) error
	Backup() error
	Restore() error
}

// New constructs a Store bound to cfg but does not touch the
// filesystem; call Open to create/open the on-disk files.
func New(cfg config.Config, onEvent EventHandler) *Store {
	return &Store{cfg: cfg, dir: cfg.Directory, onEvent: onEvent}
}

func (s *Store) report(kind EventKind, tableID string) {
	if s.onEvent != nil {
		s.onEvent(kind, tableID)
	}
}

func (s *Store) path(name string) string {
	return filepath.Join(s.dir, name)
}

// Open acquires the exclusive process lock, checks for a dirty
// flush-lock sentinel left by a crashed writer, and opens every
// configured table. If the sentinel was present, every table is still
// opened (so a caller can invoke Restore) but Open returns
// errcode.ErrDirty; callers that see it must call Restore before
// trusting any table.
func (s *Store) Open() error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return errcode.Wrapf(err, "store: mkdir %s", s.dir)
	}

	s.exclusiveLock = flock.New(s.path(exclusiveLockName))
	locked, err := s.exclusiveLock.TryLock()
	if err != nil {
		return errcode.Wrapf(err, "store: exclusive lock")
	}
	if !locked {
		return errcode.ErrLocked
	}

	dirty := fileExists(s.path(flushLockName))
	if !dirty {
		if err := touchFile(s.path(flushLockName)); err != nil {
			return errcode.Wrapf(err, "store: create flush_lock")
		}
	}
	s.sessionID = uuid.New()
	if err := os.WriteFile(s.path(processLockName), []byte(fmt.Sprintf("%d %s\n", os.Getpid(), s.sessionID)), 0o644); err != nil {
		return errcode.Wrapf(err, "store: write process_lock")
	}

	if err := s.openTables(); err != nil {
		return err
	}
	metrics.RecordOpen(dirty)
	if dirty {
		log.Warn("store opened dirty", "session", s.sessionID, "dir", s.dir)
		return errcode.Wrap(errcode.ErrDirty, "store: flush_lock present, restore required")
	}
	log.Info("store opened", "session", s.sessionID, "dir", s.dir)
	return nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func touchFile(path string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	return f.Close()
}

// Close flushes, publishes each table's body count, and closes every
// table, then releases the flush-lock and exclusive lock — the clean
// shutdown path that makes the next Open see a non-dirty store.
func (s *Store) Close() error {
	s.guard.Lock()
	defer s.guard.Unlock()
	start := time.Now()

	var firstErr error
	note := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	s.report(EventClosing, "store")
	for _, body := range s.bodies {
		note(body.Flush())
	}
	for _, t := range s.headed {
		note(t.SetBodyCount(t.Count()))
	}
	for _, body := range s.bodies {
		note(body.Close())
	}
	s.report(EventClosed, "store")

	if err := os.Remove(s.path(flushLockName)); err != nil && !os.IsNotExist(err) {
		note(err)
	}
	if s.exclusiveLock != nil {
		note(s.exclusiveLock.Unlock())
	}
	metrics.ObserveFlushDuration(time.Since(start))
	metrics.RecordClose()
	log.Info("store closed", "session", s.sessionID, "err", firstErr)
	return firstErr
}

// IntervalDepth returns the configured merkle interval cache exponent
// (0xff disables interval caching).
func (s *Store) IntervalDepth() uint8 { return s.cfg.IntervalDepth }

// SessionID returns the UUID generated for this open, written alongside
// the PID in process_lock so a stale lock can be traced back to the
// session that created it.
func (s *Store) SessionID() uuid.UUID { return s.sessionID }

// Backup checkpoints every table's body element count into its head
// while the store stays open: flush, then publish, the same pair of
// steps Close takes, but without unmapping or releasing any lock. A
// restart that crashes after a clean Backup has nothing newer than the
// checkpoint to lose on the next Restore.
func (s *Store) Backup() error {
	s.guard.Lock()
	defer s.guard.Unlock()
	start := time.Now()
	defer func() { metrics.ObserveFlushDuration(time.Since(start)) }()

	for _, body := range s.bodies {
		if err := body.Flush(); err != nil {
			return errcode.Wrapf(err, "store: backup flush")
		}
	}
	for _, t := range s.headed {
		if err := t.Backup(); err != nil {
			return errcode.Wrapf(err, "store: backup publish")
		}
	}
	for _, body := range s.bodies {
		if err := body.Flush(); err != nil {
			return errcode.Wrapf(err, "store: backup flush counts")
		}
	}
	metrics.RecordBackup()
	log.Info("store backup complete", "session", s.sessionID)
	return nil
}

// Restore truncates every headed table's body back to the count its
// head last published, discarding whatever a crashed writer appended
// afterward. Called in place of Open's normal path when the flush_lock
// sentinel was found present. The flush_lock is then removed and
// re-created, leaving the same state a clean Open does while the store
// is open; Close removes it.
func (s *Store) Restore() error {
	s.guard.Lock()
	defer s.guard.Unlock()

	for _, t := range s.headed {
		if err := t.Restore(); err != nil {
			return errcode.Wrapf(err, "store: restore")
		}
	}
	for _, body := range s.bodies {
		if err := body.Flush(); err != nil {
			return errcode.Wrapf(err, "store: restore flush")
		}
	}
	if err := os.Remove(s.path(flushLockName)); err != nil && !os.IsNotExist(err) {
		return errcode.Wrapf(err, "store: restore remove flush_lock")
	}
	if err := touchFile(s.path(flushLockName)); err != nil {
		return err
	}
	metrics.RecordRestore()
	log.Info("store restore complete", "session", s.sessionID)
	return nil
}

// WriteGuard returns the lock a caller must hold exclusively for the
// duration of a compound, cross-table write (e.g. set(block): header +
// txs + per-tx point/input/output), and share for a read that must not
// observe a partial compound write.
func (s *Store) WriteGuard() *sync.RWMutex { return &s.guard }

// Flush commits every table's dirty mapping to disk without closing.
func (s *Store) Flush() error {
	for _, body := range s.bodies {
		if err := body.Flush(); err != nil {
			return err
		}
	}
	return nil
}

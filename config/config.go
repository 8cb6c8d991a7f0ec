// Package config loads and hot-reloads the archive's store configuration:
// storage directory, per-table bucket/size parameters, and optional-index
// widths. Config is a yaml-tagged struct loaded with gopkg.in/yaml.v2;
// reload wiring uses fsnotify to pick up edits to the backing file.
package config

import (
	"os"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

// TableConfig holds the per-table tunables: bucket count for
// hashmap/arrayhead-indexed tables, and an initial body reservation.
type TableConfig struct {
	Buckets uint64 `yaml:"buckets"`
	Size    uint64 `yaml:"size"`
}

// Config is the full recognized option set for an archive store.
type Config struct {
	// Directory is the storage root; every table's head/body file pair
	// is created under it.
	Directory string `yaml:"directory"`

	// FlushWrites is parsed from flush_writes but is not read by the
	// store: every storage Flush msyncs the mapping and fsyncs the file
	// whatever its value, and no write fsyncs on its own.
	FlushWrites bool `yaml:"flush_writes"`

	// Minimize is parsed from minimize but is not read by the store:
	// every table uses the fixed link width its schema declares, whatever
	// its value.
	Minimize bool `yaml:"minimize"`

	// FileGrowthRate is the fractional amount (e.g. 0.5 = 50%) a mapped
	// file's capacity grows by when an allocate overruns it.
	FileGrowthRate float64 `yaml:"file_growth_rate"`

	// IntervalDepth is the merkle interval cache's exponent. 0xff
	// (max uint8) disables caching.
	IntervalDepth uint8 `yaml:"interval_depth"`

	// AddressBits / NeutrinoBits size the optional address and filter
	// indexes; zero disables the corresponding index entirely (spec
	// section 3.7).
	AddressBits  uint8 `yaml:"address_bits"`
	NeutrinoBits uint8 `yaml:"neutrino_bits"`

	Header      TableConfig `yaml:"header"`
	Point       TableConfig `yaml:"point"`
	Tx          TableConfig `yaml:"tx"`
	Txs         TableConfig `yaml:"txs"`
	Candidate   TableConfig `yaml:"candidate"`
	Confirmed   TableConfig `yaml:"confirmed"`
	StrongTx    TableConfig `yaml:"strong_tx"`
	Prevout     TableConfig `yaml:"prevout"`
	ValidatedBk TableConfig `yaml:"validated_bk"`
	ValidatedTx TableConfig `yaml:"validated_tx"`
	Address     TableConfig `yaml:"address"`
	FilterBk    TableConfig `yaml:"filter_bk"`
	FilterTx    TableConfig `yaml:"filter_tx"`
}

// Default returns a Config with conservative, non-zero bucket counts
// for every required table and both optional indexes disabled.
func Default() Config {
	required := TableConfig{Buckets: 1 << 20, Size: 1 << 16}
	return Config{
		Directory:      "./archive-data",
		FlushWrites:    false,
		Minimize:       false,
		FileGrowthRate: 0.5,
		IntervalDepth:  0xff,
		AddressBits:    0,
		NeutrinoBits:   0,
		Header:         required,
		Point:          required,
		Tx:             required,
		Txs:            required,
		Candidate:      TableConfig{Buckets: 1 << 16, Size: 1 << 16},
		Confirmed:      TableConfig{Buckets: 1 << 16, Size: 1 << 16},
		StrongTx:       required,
		Prevout:        required,
		ValidatedBk:    required,
		ValidatedTx:    required,
	}
}

// Load reads and parses a yaml config file, applying Default for any
// zero-valued field the file omits for Directory/FileGrowthRate.
func Load(path string) (Config, error) {
	cfg := Default()
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrapf(err, "config: read %s", path)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, errors.Wrapf(err, "config: parse %s", path)
	}
	return cfg, nil
}

// Watcher reloads a Config from disk whenever its backing file changes,
// handing the new value to onReload. Errors from fsnotify or a failed
// reparse are passed to onError (when set) and the watch loop keeps
// running; nothing is retried, and Current keeps the last Config that
// parsed.
type Watcher struct {
	path     string
	watcher  *fsnotify.Watcher
	mu       sync.Mutex
	current  Config
	onReload func(Config)
	onError  func(error)
}

// WatchFile starts watching path for changes, invoking onReload with
// each successfully reparsed Config. onError receives read/parse
// failures; it may be nil to discard them silently.
func WatchFile(path string, onReload func(Config), onError func(error)) (*Watcher, error) {
	initial, err := Load(path)
	if err != nil {
		return nil, err
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "config: new watcher")
	}
	if err := fw.Add(path); err != nil {
		fw.Close()
		return nil, errors.Wrapf(err, "config: watch %s", path)
	}
	w := &Watcher{path: path, watcher: fw, current: initial, onReload: onReload, onError: onError}
	go w.loop()
	return w, nil
}

func (w *Watcher) loop() {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			cfg, err := Load(w.path)
			if err != nil {
				if w.onError != nil {
					w.onError(err)
				}
				continue
			}
			w.mu.Lock()
			w.current = cfg
			w.mu.Unlock()
			if w.onReload != nil {
				w.onReload(cfg)
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			if w.onError != nil {
				w.onError(err)
			}
		}
	}
}

// Current returns the most recently loaded Config.
func (w *Watcher) Current() Config {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.current
}

// Close stops watching.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}

// Package metrics exposes Prometheus-exposition counters and
// histograms for the archive's table and store operations, using
// github.com/VictoriaMetrics/metrics the way the teacher wires it:
// package-level named collectors pulled lazily by name rather than
// registered up front.
package metrics

import (
	"fmt"
	"io"
	"time"

	"github.com/VictoriaMetrics/metrics"
)

// RecordPut increments the put counter for the named table.
func RecordPut(table string) {
	metrics.GetOrCreateCounter(fmt.Sprintf(`archive_table_puts_total{table=%q}`, table)).Inc()
}

// RecordGet increments the get counter for the named table.
func RecordGet(table string) {
	metrics.GetOrCreateCounter(fmt.Sprintf(`archive_table_gets_total{table=%q}`, table)).Inc()
}

// RecordMiss increments the not-found counter for the named table.
func RecordMiss(table string) {
	metrics.GetOrCreateCounter(fmt.Sprintf(`archive_table_misses_total{table=%q}`, table)).Inc()
}

// RecordChainWalkDepth observes how many elements a bucket chain walk
// visited before matching or exhausting, for the named table.
func RecordChainWalkDepth(table string, steps uint64) {
	metrics.GetOrCreateHistogram(fmt.Sprintf(`archive_chain_walk_depth{table=%q}`, table)).Update(float64(steps))
}

// ObserveFlushDuration records how long a Flush/Backup/Close pass took
// across every table's body and head storage.
func ObserveFlushDuration(d time.Duration) {
	metrics.GetOrCreateHistogram(`archive_flush_duration_seconds`).Update(d.Seconds())
}

// RecordOpen and RecordClose count store lifecycle transitions,
// distinguishing a clean open from one that found the flush_lock
// sentinel present.
func RecordOpen(dirty bool) {
	metrics.GetOrCreateCounter(fmt.Sprintf(`archive_store_opens_total{dirty=%q}`, boolLabel(dirty))).Inc()
}

func RecordClose() {
	metrics.GetOrCreateCounter(`archive_store_closes_total`).Inc()
}

// RecordBackup and RecordRestore count checkpoint and recovery passes.
func RecordBackup() {
	metrics.GetOrCreateCounter(`archive_store_backups_total`).Inc()
}

func RecordRestore() {
	metrics.GetOrCreateCounter(`archive_store_restores_total`).Inc()
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

// WritePrometheus writes every collected metric in Prometheus
// exposition format, for a CLI or HTTP handler to serve directly.
func WritePrometheus(w io.Writer) {
	metrics.WritePrometheus(w, true)
}

// Package metrics provides application-level counters using stdlib expvar.
// Counters are automatically exported on the /debug/vars HTTP endpoint
// when net/http/pprof is imported in the main binary.
package metrics

import "expvar"

// Operation counters.
var (
	MeetingsTotal     = expvar.NewInt("rapport_meetings_total")
	MergesTotal       = expvar.NewInt("rapport_merges_total")
	ExtractionsFailed = expvar.NewInt("rapport_extractions_failed_total")
	ContactsCreated   = expvar.NewInt("rapport_contacts_created_total")
	ExportsTotal      = expvar.NewInt("rapport_exports_total")
)

// Inc increments the given counter by 1.
func Inc(counter *expvar.Int) { counter.Add(1) }

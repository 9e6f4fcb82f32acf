package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/arivven/ddns-sync/internal/config"
	"github.com/arivven/ddns-sync/internal/metrics"
	"github.com/arivven/ddns-sync/internal/provider"
	"github.com/arivven/ddns-sync/internal/state"
)

type Engine interface {
	Reconcile(ctx context.Context, ip string) (Results, error)
}

type engine struct {
	dnsProvider provider.Provider
	history     state.Manager
	allowed     map[string]bool
	dryRun      bool
	metrics     *metrics.Metrics
}

func NewEngine(dp provider.Provider, history state.Manager, cfg *config.Config, metrics *metrics.Metrics) *engine {
	allowed := make(map[string]bool)
	for _, name := range cfg.DNS.Records {
		allowed[name] = true
	}
	return &engine{
		dnsProvider: dp,
		history:     history,
		allowed:     allowed,
		dryRun:      cfg.Reconcile.DryRun,
		metrics:     metrics,
	}
}

// Reconcile runs one tick: list the zone, filter to allow-listed records,
// and rewrite the content of any record that no longer matches ip. Failures on
// individual records never abort the tick; a listing failure does.
func (e *engine) Reconcile(ctx context.Context, ip string) (Results, error) {
	records, err := e.dnsProvider.ListRecords(ctx)
	if err != nil {
		return Results{}, fmt.Errorf("list zone records: %w", err)
	}
	slog.Debug("Got records from dns provider", "count", len(records))

	matched := filterAllowed(records, e.allowed)
	e.metrics.SetRecordsMatched(len(matched))
	if len(matched) == 0 {
		slog.Warn("No zone records match configured names, ending reconciliation", "configured", len(e.allowed))
		return Results{}, nil
	}

	results := Results{}
	for _, r := range matched {
		current, err := e.dnsProvider.GetRecord(ctx, r.ID)
		if err != nil {
			slog.Error("Failed to read record", "name", r.Name, "error", err)
			e.metrics.IncRecordOperation("fail")
			results.Failures = append(results.Failures, OperationResult{
				Record: r,
				Op:     "read",
				Error:  err.Error(),
			})
			continue
		}

		if current.Content == ip {
			slog.Info("Record up to date", "name", current.Name, "content", current.Content)
			e.metrics.IncRecordOperation("skip")
			results.Skipped = append(results.Skipped, current)
			continue
		}

		slog.Info("Record content differs", "name", current.Name, "current", current.Content, "new", ip)

		if e.dryRun {
			slog.Info("Dry run mode - would update record", "name", current.Name, "content", ip)
			updated := current
			updated.Content = ip
			results.Updated = append(results.Updated, updated)
			continue
		}

		if err := e.dnsProvider.UpdateContent(ctx, current, ip); err != nil {
			slog.Error("Failed to update record", "name", current.Name, "error", err)
			e.metrics.IncRecordOperation("fail")
			results.Failures = append(results.Failures, OperationResult{
				Record: current,
				Op:     "update",
				Error:  err.Error(),
			})
			continue
		}

		e.metrics.IncRecordOperation("update")
		updated := current
		updated.Content = ip
		results.Updated = append(results.Updated, updated)
	}

	if !e.dryRun {
		if err := e.saveHistory(ctx, results); err != nil {
			slog.Warn("Failed to persist sync history", "error", err)
		}
	}
	return results, nil
}

// saveHistory merges this tick's confirmed or applied content into the stored
// history. Failed records keep their last known-good entry; entries for names
// no longer configured are dropped.
func (e *engine) saveHistory(ctx context.Context, results Results) error {
	st, err := e.history.LoadState(ctx)
	if err != nil {
		return err
	}
	if st.Records == nil {
		st.Records = make(map[string]state.RecordState)
	}
	for name := range st.Records {
		if !e.allowed[name] {
			delete(st.Records, name)
		}
	}

	now := time.Now().Unix()
	for _, r := range results.Skipped {
		st.Records[r.Name] = state.RecordState{Content: r.Content, SyncedAt: now}
	}
	for _, r := range results.Updated {
		st.Records[r.Name] = state.RecordState{Content: r.Content, SyncedAt: now}
	}
	return e.history.SaveState(ctx, st)
}

// filterAllowed keeps records whose name exactly equals a configured name.
// A wildcard entry like *.example.com matches only a record literally so
// named. Listing order is preserved, which fixes update and log order.
func filterAllowed(records []provider.Record, allowed map[string]bool) []provider.Record {
	var matched []provider.Record
	for _, r := range records {
		if allowed[r.Name] {
			matched = append(matched, r)
		}
	}
	return matched
}

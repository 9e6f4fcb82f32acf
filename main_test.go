package main

import (
	"context"
	"errors"
	"testing"

	"github.com/arivven/ddns-sync/internal/metrics"
	"github.com/arivven/ddns-sync/internal/reconcile"
)

type stubResolver struct {
	ip    string
	err   error
	calls int
}

func (s *stubResolver) Resolve(ctx context.Context) (string, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	return s.ip, nil
}

type stubEngine struct {
	results reconcile.Results
	err     error
	calls   int
	lastIP  string
}

func (s *stubEngine) Reconcile(ctx context.Context, ip string) (reconcile.Results, error) {
	s.calls++
	s.lastIP = ip
	return s.results, s.err
}

// A failed IP discovery fails the sync before the engine, and with it the
// provider, is ever invoked. The caller logs and waits for the next tick.
func TestPerformSyncResolverFailure(t *testing.T) {
	ipResolver := &stubResolver{err: errors.New("connection refused")}
	engine := &stubEngine{}

	err := performSync(context.Background(), ipResolver, engine, metrics.New(false))
	if err == nil {
		t.Fatal("expected error when ip discovery fails")
	}
	if engine.calls != 0 {
		t.Errorf("engine ran %d times, want 0 when ip discovery fails", engine.calls)
	}
}

func TestPerformSync(t *testing.T) {
	tests := []struct {
		name        string
		resolverIP  string
		engineErr   error
		expectError bool
	}{
		{
			name:       "successful sync passes discovered ip to engine",
			resolverIP: "203.0.113.7",
		},
		{
			name:        "engine failure surfaces as failed sync",
			resolverIP:  "203.0.113.7",
			engineErr:   errors.New("list zone records: zone listing unavailable"),
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ipResolver := &stubResolver{ip: tt.resolverIP}
			engine := &stubEngine{err: tt.engineErr}

			err := performSync(context.Background(), ipResolver, engine, metrics.New(false))

			if tt.expectError && err == nil {
				t.Fatal("Expected error but got none")
			}
			if !tt.expectError && err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if engine.calls != 1 {
				t.Errorf("engine ran %d times, want 1", engine.calls)
			}
			if engine.lastIP != tt.resolverIP {
				t.Errorf("engine got ip %q, want %q", engine.lastIP, tt.resolverIP)
			}
		})
	}
}

package reconcile

import (
	"github.com/arivven/ddns-sync/internal/provider"
)

type Results struct {
	Updated  []provider.Record
	Skipped  []provider.Record
	Failures []OperationResult
}

type OperationResult struct {
	Record provider.Record
	Op     string
	Error  string
}

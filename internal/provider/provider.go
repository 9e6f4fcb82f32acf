package provider

import (
	"context"
)

type Provider interface {
	ListRecords(ctx context.Context) ([]Record, error)
	GetRecord(ctx context.Context, id string) (Record, error)
	UpdateContent(ctx context.Context, record Record, content string) error
}

// Record is a DNS entry owned by the provider. ID is the provider-assigned
// identifier and is stable across updates.
type Record struct {
	ID      string
	Name    string
	Type    string
	Content string
	Proxied bool
	TTL     int
}

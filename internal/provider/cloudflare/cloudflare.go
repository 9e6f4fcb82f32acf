package cloudflare

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/cloudflare/cloudflare-go"

	"github.com/arivven/ddns-sync/internal/config"
	"github.com/arivven/ddns-sync/internal/metrics"
	"github.com/arivven/ddns-sync/internal/provider"
)

// perPage is the page size for the zone listing. Only the first page is
// requested; zones beyond that many records are not walked.
const perPage = 100

type CloudflareProvider struct {
	client  *cloudflare.API
	metrics *metrics.Metrics
	zoneID  string
}

func New(cfg config.DNS, metrics *metrics.Metrics) (*CloudflareProvider, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("cloudflare API token required")
	}
	if cfg.ZoneID == "" {
		return nil, fmt.Errorf("cloudflare zone id required")
	}

	client, err := cloudflare.NewWithAPIToken(
		cfg.Token,
		cloudflare.HTTPClient(&http.Client{Timeout: 30 * time.Second}),
		cloudflare.UsingRetryPolicy(3, 1, 10),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create Cloudflare client: %w", err)
	}

	return &CloudflareProvider{
		client:  client,
		metrics: metrics,
		zoneID:  cfg.ZoneID,
	}, nil
}

func (p *CloudflareProvider) ListRecords(ctx context.Context) ([]provider.Record, error) {
	slog.Debug("Listing DNS records", "zone", p.zoneID)
	start := time.Now()

	params := cloudflare.ListDNSRecordsParams{
		ResultInfo: cloudflare.ResultInfo{
			Page:    1,
			PerPage: perPage,
		},
	}

	records, _, err := p.client.ListDNSRecords(ctx, cloudflare.ZoneIdentifier(p.zoneID), params)
	if err != nil {
		p.metrics.IncDNSRequest("list", false)
		return nil, fmt.Errorf("failed to list DNS records: %w", err)
	}

	result := make([]provider.Record, 0, len(records))
	for _, r := range records {
		result = append(result, fromAPI(r))
	}

	p.metrics.IncDNSRequest("list", true)
	slog.Debug("Listed DNS records", "zone", p.zoneID, "count", len(result), "duration", time.Since(start))
	return result, nil
}

func (p *CloudflareProvider) GetRecord(ctx context.Context, id string) (provider.Record, error) {
	record, err := p.client.GetDNSRecord(ctx, cloudflare.ZoneIdentifier(p.zoneID), id)
	if err != nil {
		p.metrics.IncDNSRequest("read", false)
		return provider.Record{}, fmt.Errorf("failed to get DNS record %s: %w", id, err)
	}

	p.metrics.IncDNSRequest("read", true)
	return fromAPI(record), nil
}

// UpdateContent replaces the record's content with the given value. The
// record's TTL and proxied flag are re-fetched immediately before the write so
// out-of-band changes made since the listing are never clobbered.
func (p *CloudflareProvider) UpdateContent(ctx context.Context, record provider.Record, content string) error {
	slog.Info("Updating DNS record", "zone", p.zoneID, "name", record.Name, "type", record.Type, "content", content)
	start := time.Now()

	snapshot, err := p.GetRecord(ctx, record.ID)
	if err != nil {
		return err
	}

	proxied := snapshot.Proxied
	params := cloudflare.UpdateDNSRecordParams{
		ID:      record.ID,
		Type:    record.Type,
		Name:    record.Name,
		Content: content,
		TTL:     snapshot.TTL,
		Proxied: &proxied,
	}

	if _, err := p.client.UpdateDNSRecord(ctx, cloudflare.ZoneIdentifier(p.zoneID), params); err != nil {
		p.metrics.IncDNSRequest("update", false)
		return fmt.Errorf("failed to update DNS record %s: %w", record.Name, err)
	}

	p.metrics.IncDNSRequest("update", true)
	slog.Debug("Updated DNS record", "zone", p.zoneID, "name", record.Name, "duration", time.Since(start))
	return nil
}

func fromAPI(r cloudflare.DNSRecord) provider.Record {
	proxied := r.Proxied != nil && *r.Proxied
	return provider.Record{
		ID:      r.ID,
		Name:    r.Name,
		Type:    r.Type,
		Content: r.Content,
		Proxied: proxied,
		TTL:     r.TTL,
	}
}

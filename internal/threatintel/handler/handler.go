package handler

import (
	"context"
	"sync"
	"time"

	"github.com/dgraph-io/ristretto"
	"github.com/rs/zerolog/log"

	"github.com/watchtower-soc/watchtower/internal/threatintel"
)

const defaultCacheTtl = 15 * time.Minute

// IPIntel aggregates provider verdicts for an IP address.
type IPIntel struct {
	IP         string         `json:"ip"`
	AbuseIpdb  map[string]any `json:"abuseipdb,omitempty"`
	VirusTotal map[string]any `json:"virustotal,omitempty"`
	FetchedAt  time.Time      `json:"fetched_at"`
}

// HashIntel aggregates provider verdicts for a file hash.
type HashIntel struct {
	Hash          string         `json:"hash"`
	VirusTotal    map[string]any `json:"virustotal,omitempty"`
	MalwareBazaar map[string]any `json:"malwarebazaar,omitempty"`
	FetchedAt     time.Time      `json:"fetched_at"`
}

type Handler interface {
	LookupIP(ctx context.Context, ip string) (*IPIntel, error)
	LookupHash(ctx context.Context, hash string) (*HashIntel, error)
}

type IntelHandler struct {
	clients threatintel.Clients
	cache   *ristretto.Cache
	ttl     time.Duration
}

var (
	once          sync.Once
	intelHandlers = make(map[int]Handler)
)

// InitV1IntelHandler wires the intel handler over the provider clients with a
// TTL cache in front, so repeated lookups during one incident do not burn
// provider rate limits.
func InitV1IntelHandler(version int, clients threatintel.Clients, ttlSeconds int) {
	once.Do(func() {
		cache, err := ristretto.NewCache(&ristretto.Config{
			NumCounters: 10_000,
			MaxCost:     1_000,
			BufferItems: 64,
		})
		if err != nil {
			log.Panic().Err(err).Msg("Failed to create threat intel cache")
		}
		ttl := defaultCacheTtl
		if ttlSeconds > 0 {
			ttl = time.Duration(ttlSeconds) * time.Second
		}
		intelHandlers[version] = &IntelHandler{
			clients: clients,
			cache:   cache,
			ttl:     ttl,
		}
	})
}

func GetIntelHandler(version int) Handler {
	return intelHandlers[version]
}

// LookupIP fans out to the configured IP reputation providers. A provider
// failure degrades the report instead of failing the lookup.
func (h *IntelHandler) LookupIP(ctx context.Context, ip string) (*IPIntel, error) {
	cacheKey := "ip:" + ip
	if cached, found := h.cache.Get(cacheKey); found {
		return cached.(*IPIntel), nil
	}

	intel := &IPIntel{IP: ip, FetchedAt: time.Now()}

	if h.clients.AbuseIpdbConfigured() {
		report, err := h.clients.CheckIP(ctx, ip)
		if err != nil {
			log.Warn().Err(err).Str("ip", ip).Msg("AbuseIPDB lookup failed")
		} else {
			intel.AbuseIpdb = report
		}
	}
	if h.clients.VirusTotalConfigured() {
		report, err := h.clients.IPReport(ctx, ip)
		if err != nil {
			log.Warn().Err(err).Str("ip", ip).Msg("VirusTotal IP lookup failed")
		} else {
			intel.VirusTotal = report
		}
	}

	h.cacheSet(cacheKey, intel)
	return intel, nil
}

// LookupHash fans out to the configured hash reputation providers
func (h *IntelHandler) LookupHash(ctx context.Context, hash string) (*HashIntel, error) {
	cacheKey := "hash:" + hash
	if cached, found := h.cache.Get(cacheKey); found {
		return cached.(*HashIntel), nil
	}

	intel := &HashIntel{Hash: hash, FetchedAt: time.Now()}

	if h.clients.VirusTotalConfigured() {
		report, err := h.clients.FileReport(ctx, hash)
		if err != nil {
			log.Warn().Err(err).Str("hash", hash).Msg("VirusTotal file lookup failed")
		} else {
			intel.VirusTotal = report
		}
	}
	report, err := h.clients.QueryHash(ctx, hash)
	if err != nil {
		log.Warn().Err(err).Str("hash", hash).Msg("MalwareBazaar lookup failed")
	} else {
		intel.MalwareBazaar = report
	}

	h.cacheSet(cacheKey, intel)
	return intel, nil
}

func (h *IntelHandler) cacheSet(key string, value interface{}) {
	h.cache.SetWithTTL(key, value, 1, h.ttl)
}

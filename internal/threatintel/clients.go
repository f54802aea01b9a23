package threatintel

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/watchtower-soc/watchtower/pkg/metric"
)

const (
	defaultAbuseIpdbBaseUrl     = "https://api.abuseipdb.com/api/v2"
	defaultVirusTotalBaseUrl    = "https://www.virustotal.com/api/v3"
	defaultMalwareBazaarBaseUrl = "https://mb-api.abuse.ch/api/v1"
)

// Clients groups the upstream reputation providers. Providers without a
// configured API key report themselves unconfigured and are skipped.
type Clients interface {
	CheckIP(ctx context.Context, ip string) (map[string]any, error)
	IPReport(ctx context.Context, ip string) (map[string]any, error)
	FileReport(ctx context.Context, hash string) (map[string]any, error)
	QueryHash(ctx context.Context, hash string) (map[string]any, error)
	AbuseIpdbConfigured() bool
	VirusTotalConfigured() bool
}

type clientsImpl struct {
	abuseIpdbBaseUrl     string
	abuseIpdbApiKey      string
	virusTotalBaseUrl    string
	virusTotalApiKey     string
	malwareBazaarBaseUrl string
	httpClient           *http.Client
}

var (
	clientsOnce     sync.Once
	clientsInstance Clients
)

// InitClients initializes the provider client singleton
func InitClients(abuseIpdbBaseUrl, abuseIpdbApiKey, virusTotalBaseUrl, virusTotalApiKey, malwareBazaarBaseUrl string) Clients {
	clientsOnce.Do(func() {
		if abuseIpdbBaseUrl == "" {
			abuseIpdbBaseUrl = defaultAbuseIpdbBaseUrl
		}
		if virusTotalBaseUrl == "" {
			virusTotalBaseUrl = defaultVirusTotalBaseUrl
		}
		if malwareBazaarBaseUrl == "" {
			malwareBazaarBaseUrl = defaultMalwareBazaarBaseUrl
		}
		clientsInstance = &clientsImpl{
			abuseIpdbBaseUrl:     abuseIpdbBaseUrl,
			abuseIpdbApiKey:      abuseIpdbApiKey,
			virusTotalBaseUrl:    virusTotalBaseUrl,
			virusTotalApiKey:     virusTotalApiKey,
			malwareBazaarBaseUrl: malwareBazaarBaseUrl,
			httpClient: &http.Client{
				Timeout: 10 * time.Second,
			},
		}
	})
	return clientsInstance
}

// GetClients returns the initialized provider clients
func GetClients() Clients {
	return clientsInstance
}

func (c *clientsImpl) AbuseIpdbConfigured() bool {
	return c.abuseIpdbApiKey != ""
}

func (c *clientsImpl) VirusTotalConfigured() bool {
	return c.virusTotalApiKey != ""
}

// CheckIP queries AbuseIPDB for an address's abuse confidence report
func (c *clientsImpl) CheckIP(ctx context.Context, ip string) (map[string]any, error) {
	if !c.AbuseIpdbConfigured() {
		return nil, fmt.Errorf("abuseipdb api key not configured")
	}
	endpoint := fmt.Sprintf("%s/check?ipAddress=%s&maxAgeInDays=90", c.abuseIpdbBaseUrl, url.QueryEscape(ip))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	req.Header.Set("Key", c.abuseIpdbApiKey)
	req.Header.Set("Accept", "application/json")

	body, err := c.do(req, "abuseipdb", "/check")
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Data map[string]any `json:"data"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to unmarshal abuseipdb response: %w", err)
	}
	return parsed.Data, nil
}

// IPReport queries VirusTotal for an IP address report
func (c *clientsImpl) IPReport(ctx context.Context, ip string) (map[string]any, error) {
	return c.virusTotalGet(ctx, "/ip_addresses/"+url.PathEscape(ip))
}

// FileReport queries VirusTotal for a file hash report
func (c *clientsImpl) FileReport(ctx context.Context, hash string) (map[string]any, error) {
	return c.virusTotalGet(ctx, "/files/"+url.PathEscape(hash))
}

func (c *clientsImpl) virusTotalGet(ctx context.Context, path string) (map[string]any, error) {
	if !c.VirusTotalConfigured() {
		return nil, fmt.Errorf("virustotal api key not configured")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.virusTotalBaseUrl+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	req.Header.Set("x-apikey", c.virusTotalApiKey)
	req.Header.Set("Accept", "application/json")

	body, err := c.do(req, "virustotal", path)
	if err != nil {
		return nil, err
	}

	var parsed map[string]any
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to unmarshal virustotal response: %w", err)
	}
	return parsed, nil
}

// QueryHash queries MalwareBazaar for a sample by hash. MalwareBazaar needs
// no API key.
func (c *clientsImpl) QueryHash(ctx context.Context, hash string) (map[string]any, error) {
	form := url.Values{}
	form.Set("query", "get_info")
	form.Set("hash", hash)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.malwareBazaarBaseUrl+"/", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	body, err := c.do(req, "malwarebazaar", "/")
	if err != nil {
		return nil, err
	}

	var parsed map[string]any
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to unmarshal malwarebazaar response: %w", err)
	}
	return parsed, nil
}

func (c *clientsImpl) do(req *http.Request, service, path string) ([]byte, error) {
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to reach %s: %w", service, err)
	}
	defer resp.Body.Close()

	tags := metric.BuildTag(
		metric.NewTag(metric.TagExternalService, service),
		metric.NewTag(metric.TagExternalServicePath, path),
		metric.NewTag(metric.TagExternalServiceMethod, req.Method),
		metric.NewTag(metric.TagExternalServiceStatusCode, strconv.Itoa(resp.StatusCode)),
	)
	metric.Incr(metric.ExternalApiRequestCount, tags)
	metric.Timing(metric.ExternalApiRequestLatency, time.Since(start), tags)

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		log.Error().
			Int("status_code", resp.StatusCode).
			Str("service", service).
			Msg("Threat intel provider request failed")
		return nil, fmt.Errorf("%s HTTP %d", service, resp.StatusCode)
	}
	return body, nil
}

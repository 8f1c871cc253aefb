package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"liveness_survey/pkg/logger"
)

// GeoLookup определяет локацию по IP через внешний HTTP-провайдер.
// Ошибки провайдера не фатальны: сабмишен создается без локации.
type GeoLookup interface {
	Lookup(ctx context.Context, ip string) (string, error)
}

type geoLookup struct {
	provider string
	client   *http.Client
	log      logger.Logger
}

func NewGeoLookup(provider string, log logger.Logger) GeoLookup {
	return &geoLookup{
		provider: provider,
		client:   &http.Client{Timeout: 3 * time.Second},
		log:      log,
	}
}

func (g *geoLookup) Lookup(ctx context.Context, ip string) (string, error) {
	if g.provider == "none" || g.provider == "" {
		return "", nil
	}
	if parsed := net.ParseIP(ip); parsed == nil || parsed.IsLoopback() || parsed.IsPrivate() {
		return "", nil
	}

	switch g.provider {
	case "ipapi":
		return g.lookupIpapi(ctx, ip)
	case "ip-api":
		return g.lookupIPAPI(ctx, ip)
	default:
		g.log.Warn("unknown geolookup provider", "provider", g.provider)
		return "", nil
	}
}

func (g *geoLookup) lookupIpapi(ctx context.Context, ip string) (string, error) {
	var body struct {
		City        string `json:"city"`
		CountryName string `json:"country_name"`
		Country     string `json:"country"`
	}
	if err := g.fetch(ctx, fmt.Sprintf("https://ipapi.co/%s/json/", ip), &body); err != nil {
		return "", err
	}
	country := body.CountryName
	if country == "" {
		country = body.Country
	}
	return joinLocation(body.City, country), nil
}

func (g *geoLookup) lookupIPAPI(ctx context.Context, ip string) (string, error) {
	var body struct {
		City    string `json:"city"`
		Country string `json:"country"`
	}
	if err := g.fetch(ctx, fmt.Sprintf("http://ip-api.com/json/%s", ip), &body); err != nil {
		return "", err
	}
	return joinLocation(body.City, body.Country), nil
}

func (g *geoLookup) fetch(ctx context.Context, url string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("geolookup returned status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func joinLocation(city, country string) string {
	parts := make([]string, 0, 2)
	if city != "" {
		parts = append(parts, city)
	}
	if country != "" {
		parts = append(parts, country)
	}
	return strings.Join(parts, ", ")
}

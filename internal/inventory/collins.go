package inventory

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/3cpo-dev/sweep/internal/selector"
)

// Config holds the connection settings of a Collins style asset API.
type Config struct {
	URL            string `yaml:"url"`
	Username       string `yaml:"username"`
	Password       string `yaml:"password"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	Retries        int    `yaml:"retries"`
}

// Client queries /api/assets. It is created once per run and owned by the
// caller; there is no shared instance.
type Client struct {
	base     string
	username string
	password string
	http     *RetryableHTTPClient
}

// NewClient validates cfg and returns a ready client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("inventory url not configured")
	}
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	rc := DefaultRetryConfig()
	if cfg.Retries > 0 {
		rc.MaxRetries = cfg.Retries
	}
	return &Client{
		base:     strings.TrimRight(cfg.URL, "/"),
		username: cfg.Username,
		password: cfg.Password,
		http:     NewRetryableHTTPClient(timeout, rc),
	}, nil
}

type assetsResponse struct {
	Status string `json:"status"`
	Data   struct {
		Data []assetEnvelope `json:"Data"`
	} `json:"data"`
}

type assetEnvelope struct {
	Asset struct {
		Tag    string `json:"TAG"`
		Status string `json:"STATUS"`
	} `json:"ASSET"`
	Attribs map[string]map[string]string `json:"ATTRIBS"`
}

// findQuery encodes sel for the asset finder. Reserved finder parameters
// are sent as they are; every other field is an attribute filter,
// attribute=KEY;VALUE, repeated once per field.
func findQuery(sel selector.Selector) url.Values {
	q := url.Values{}
	for _, f := range sel.Fields() {
		if selector.Classify(f.Key).Kind == selector.Reserved {
			q.Set(f.Key, f.Value)
			continue
		}
		q.Add("attribute", f.Key+";"+f.Value)
	}
	if q.Get("details") == "" {
		q.Set("details", "true")
	}
	return q
}

// Find runs the asset finder with sel. Hostnames live in the asset
// attributes, so details are always requested.
func (c *Client) Find(ctx context.Context, sel selector.Selector) ([]Asset, error) {
	q := findQuery(sel)
	endpoint := c.base + "/api/assets?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if c.username != "" {
		req.SetBasicAuth(c.username, c.password)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("inventory request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("inventory api status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	var out assetsResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode inventory response: %w", err)
	}

	assets := make([]Asset, 0, len(out.Data.Data))
	for _, env := range out.Data.Data {
		assets = append(assets, toAsset(env))
	}
	log.Debug().
		Str("selector", sel.String()).
		Int("assets", len(assets)).
		Dur("took", time.Since(start)).
		Msg("Inventory query complete")
	return assets, nil
}

// toAsset flattens the numbered attribute groups. Group "0" is the primary
// group and wins on conflicts.
func toAsset(env assetEnvelope) Asset {
	a := Asset{Tag: env.Asset.Tag, Status: env.Asset.Status, Attributes: map[string]string{}}
	groups := make([]string, 0, len(env.Attribs))
	for g := range env.Attribs {
		groups = append(groups, g)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(groups)))
	for _, g := range groups {
		for k, v := range env.Attribs[g] {
			a.Attributes[k] = v
		}
	}
	a.Hostname = a.Attributes["HOSTNAME"]
	return a
}

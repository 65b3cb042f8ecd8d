package scales

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"voicecoach/internal/domain"
)

// FallbackWarning is shown when the server has no scale files.
const FallbackWarning = "⚠️ 스케일 파일이 서버에 없습니다. 'static/scales' 폴더에 스케일 오디오 파일을 추가하세요."

// Fallback lists the seven default scales used when the server has none.
func Fallback() []domain.Scale {
	return []domain.Scale{
		{Name: "C 5도 스케일", Path: "scales/c_scale.wav"},
		{Name: "D 5도 스케일", Path: "scales/d_scale.wav"},
		{Name: "E 5도 스케일", Path: "scales/e_scale.wav"},
		{Name: "F 5도 스케일", Path: "scales/f_scale.wav"},
		{Name: "G 5도 스케일", Path: "scales/g_scale.wav"},
		{Name: "A 5도 스케일", Path: "scales/a_scale.wav"},
		{Name: "B 5도 스케일", Path: "scales/b_scale.wav"},
	}
}

// Config controls where scales are listed and served from.
type Config struct {
	BaseURL      string
	ScalesPath   string
	StaticPrefix string
	Timeout      time.Duration
}

// Catalog is what the scale list shows.
type Catalog struct {
	Scales   []domain.Scale `json:"scales"`
	Fallback bool           `json:"fallback"`
	Warning  string         `json:"warning,omitempty"`
}

// Find returns the scale with the given name.
func (c Catalog) Find(name string) (domain.Scale, bool) {
	for _, s := range c.Scales {
		if s.Name == name {
			return s, true
		}
	}
	return domain.Scale{}, false
}

// Client loads the scale list and reference clips.
type Client struct {
	cfg  Config
	http *http.Client
	log  zerolog.Logger

	sf singleflight.Group
}

func NewClient(cfg Config, log zerolog.Logger) *Client {
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.ScalesPath == "" {
		cfg.ScalesPath = "/scales"
	}
	if cfg.StaticPrefix == "" {
		cfg.StaticPrefix = "/static/"
	}
	if !strings.HasSuffix(cfg.StaticPrefix, "/") {
		cfg.StaticPrefix += "/"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
		log:  log.With().Str("component", "scales").Logger(),
	}
}

// Load fetches the scale list. An empty list or any failure yields the
// fallback catalog; Load itself never fails.
func (c *Client) Load(ctx context.Context) Catalog {
	v, _, _ := c.sf.Do("scales", func() (any, error) {
		scales, err := c.fetchList(ctx)
		if err != nil {
			c.log.Warn().Err(err).Msg("scale list unavailable, using defaults")
			return fallbackCatalog(), nil
		}
		if len(scales) == 0 {
			c.log.Warn().Msg("server has no scales, using defaults")
			return fallbackCatalog(), nil
		}
		return Catalog{Scales: scales}, nil
	})
	return v.(Catalog)
}

// AssetURL resolves a scale clip under the static prefix.
func (c *Client) AssetURL(scale domain.Scale) string {
	parts := strings.Split(strings.TrimLeft(scale.Path, "/"), "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return c.cfg.BaseURL + c.cfg.StaticPrefix + strings.Join(parts, "/")
}

// Fetch downloads the reference clip of a scale.
func (c *Client) Fetch(ctx context.Context, scale domain.Scale) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.AssetURL(scale), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("scale %s: %s: %s", scale.Name, resp.Status, strings.TrimSpace(string(body)))
	}
	return io.ReadAll(resp.Body)
}

func (c *Client) fetchList(ctx context.Context) ([]domain.Scale, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+c.cfg.ScalesPath, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("scales %s", resp.Status)
	}

	var out []domain.Scale
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("scales decode: %w", err)
	}
	return out, nil
}

func fallbackCatalog() Catalog {
	return Catalog{Scales: Fallback(), Fallback: true, Warning: FallbackWarning}
}

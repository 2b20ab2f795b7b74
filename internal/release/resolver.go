package release

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"frida-keeper/internal/config"
	"frida-keeper/internal/logger"
	"frida-keeper/internal/models"
)

// HTTPClient 最小化的HTTP客户端接口，测试时可替换
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

type Option func(*Resolver)

func WithBaseURL(base string) Option {
	return func(r *Resolver) {
		if base != "" {
			r.baseURL = strings.TrimRight(base, "/")
		}
	}
}

func WithHTTPClient(h HTTPClient) Option {
	return func(r *Resolver) {
		if h != nil {
			r.httpClient = h
		}
	}
}

func WithProduct(product, platform string) Option {
	return func(r *Resolver) {
		if product != "" {
			r.product = product
		}
		if platform != "" {
			r.platform = platform
		}
	}
}

/**
 * Queries a GitHub compatible release index
 * @description
 * - "/releases/latest" gives the newest release
 * - "/releases?per_page=N" lists releases newest first
 */
type Resolver struct {
	baseURL    string
	product    string
	platform   string
	httpClient HTTPClient
}

func NewResolver(opts ...Option) *Resolver {
	r := &Resolver{
		baseURL:    config.DEFAULT_RELEASE_URL,
		product:    "frida",
		platform:   "android",
		httpClient: http.DefaultClient,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

/**
 * Create resolver from release configuration
 */
func NewResolverFromConfig(cfg *config.ReleaseConfig) *Resolver {
	return NewResolver(
		WithBaseURL(cfg.BaseUrl),
		WithProduct(cfg.Product, cfg.Platform),
		WithHTTPClient(&http.Client{Timeout: cfg.Timeout}),
	)
}

/**
 * Fetch the newest release
 * @returns {models.Release, error} ErrNetwork on transport failure, non-2xx status, bad JSON or a release without tag_name
 */
func (r *Resolver) FetchLatest(ctx context.Context) (*models.Release, error) {
	var rel *models.Release
	if err := r.getJSON(ctx, r.baseURL+"/releases/latest", &rel); err != nil {
		return nil, err
	}
	if err := checkRelease(rel); err != nil {
		return nil, err
	}
	return rel, nil
}

// checkRelease 缺少tag_name视为响应格式错误
func checkRelease(rel *models.Release) error {
	if rel == nil {
		return fmt.Errorf("%w: empty release in response", models.ErrNetwork)
	}
	if strings.TrimSpace(rel.TagName) == "" {
		return fmt.Errorf("%w: release %q has no tag_name", models.ErrNetwork, rel.Name)
	}
	return nil
}

/**
 * List releases that carry at least one server asset for the platform
 * @param {int} limit - Number of releases requested from the index
 * @returns {[]models.Release, error} Index order is kept, newest first
 */
func (r *Resolver) FetchAll(ctx context.Context, limit int) ([]models.Release, error) {
	if limit <= 0 {
		limit = 50
	}
	var releases []*models.Release
	url := fmt.Sprintf("%s/releases?per_page=%d", r.baseURL, limit)
	if err := r.getJSON(ctx, url, &releases); err != nil {
		return nil, err
	}
	if releases == nil {
		return nil, fmt.Errorf("%w: release list missing from response", models.ErrNetwork)
	}
	for _, rel := range releases {
		if err := checkRelease(rel); err != nil {
			return nil, err
		}
	}
	marker := r.product + "-server"
	var result []models.Release
	for _, rel := range releases {
		for _, a := range rel.Assets {
			if strings.Contains(a.Name, marker) && strings.Contains(a.Name, r.platform) {
				result = append(result, *rel)
				break
			}
		}
	}
	return result, nil
}

/**
 * Find a release by its tag among the listed releases
 * @returns {models.Release, error} ErrReleaseNotFound when no listed release has the tag
 */
func (r *Resolver) FindRelease(ctx context.Context, tag string, limit int) (*models.Release, error) {
	releases, err := r.FetchAll(ctx, limit)
	if err != nil {
		return nil, err
	}
	for i := range releases {
		if releases[i].TagName == tag {
			return &releases[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", models.ErrReleaseNotFound, tag)
}

// AssetName 资产命名规则: <product>-server-<tag>-<platform>-<arch>.xz
func (r *Resolver) AssetName(tag, arch string) string {
	return fmt.Sprintf("%s-server-%s-%s-%s.xz", r.product, tag, r.platform, arch)
}

/**
 * Select the asset built for an architecture
 * @returns {models.Asset, bool} false when the release has no exact match
 */
func (r *Resolver) ResolveAsset(rel *models.Release, arch string) (models.Asset, bool) {
	want := r.AssetName(rel.TagName, arch)
	for _, a := range rel.Assets {
		if a.Name == want {
			return a, true
		}
	}
	return models.Asset{}, false
}

func (r *Resolver) getJSON(ctx context.Context, url string, v interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("%w: build request: %v", models.ErrNetwork, err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")

	logger.Debugf("GET %s", url)
	resp, err := r.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", models.ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: unexpected status %d from %s", models.ErrNetwork, resp.StatusCode, url)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: read body: %v", models.ErrNetwork, err)
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("%w: decode response: %v", models.ErrNetwork, err)
	}
	return nil
}

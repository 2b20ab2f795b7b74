package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"

	"frida-keeper/internal/config"
	"frida-keeper/internal/models"
)

// ProgressFunc 每个数据块写入后回调一次
type ProgressFunc func(p models.DownloadProgress)

// HTTPClient 描述下载所需的HTTP能力，方便测试时替换
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

type Option func(*Pipeline)

func WithHTTPClient(client HTTPClient) Option {
	return func(p *Pipeline) {
		if client != nil {
			p.httpClient = client
		}
	}
}

/**
 * Download and extraction pipeline
 * @property {string} downloadDir - Fixed directory receiving archives
 * @property {string} binaryPath - Canonical path of the installed binary
 */
type Pipeline struct {
	downloadDir string
	binaryPath  string
	httpClient  HTTPClient
}

func New(downloadDir, binaryPath string, opts ...Option) *Pipeline {
	p := &Pipeline{
		downloadDir: downloadDir,
		binaryPath:  binaryPath,
		httpClient:  http.DefaultClient,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func NewFromConfig(cfg *config.InstallConfig, opts ...Option) *Pipeline {
	return New(cfg.DownloadDir, cfg.BinaryPath(), opts...)
}

func (p *Pipeline) BinaryPath() string {
	return p.binaryPath
}

/**
 * Fetch a URL into the download directory
 * @param {string} rawURL - Asset URL, its last path segment names the local file
 * @param {ProgressFunc} progress - Called after every chunk, may be nil
 * @returns {string, error} Local archive path; ErrDownload on any failure
 * @description
 * - Percent is only computed when the server reports a length
 * - A partially written file is removed on failure
 */
func (p *Pipeline) Download(ctx context.Context, rawURL string, progress ProgressFunc) (string, error) {
	name, err := fileNameFromURL(rawURL)
	if err != nil {
		return "", fmt.Errorf("%w: %v", models.ErrDownload, err)
	}
	if err := os.MkdirAll(p.downloadDir, 0o755); err != nil {
		return "", fmt.Errorf("%w: create dir: %v", models.ErrDownload, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("%w: build request: %v", models.ErrDownload, err)
	}
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", models.ErrDownload, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("%w: unexpected status %d", models.ErrDownload, resp.StatusCode)
	}

	target := filepath.Join(p.downloadDir, name)
	file, err := os.Create(target)
	if err != nil {
		return "", fmt.Errorf("%w: create file: %v", models.ErrDownload, err)
	}

	reader := io.Reader(resp.Body)
	if progress != nil {
		reader = &progressReader{r: resp.Body, total: resp.ContentLength, report: progress}
	}
	_, copyErr := io.Copy(file, reader)
	closeErr := file.Close()
	if copyErr == nil {
		copyErr = closeErr
	}
	if copyErr != nil {
		os.Remove(target)
		return "", fmt.Errorf("%w: write file: %v", models.ErrDownload, copyErr)
	}
	return target, nil
}

func fileNameFromURL(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	name := path.Base(u.Path)
	if name == "" || name == "/" || name == "." {
		return "", errors.New("url has no file name: " + rawURL)
	}
	return name, nil
}

type progressReader struct {
	r      io.Reader
	total  int64
	read   int64
	report ProgressFunc
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.read += int64(n)
		p.report(NewProgress(p.read, p.total))
	}
	return n, err
}

// NewProgress 总长度未知(<=0)时返回不确定进度
func NewProgress(downloaded, total int64) models.DownloadProgress {
	if total <= 0 {
		return models.DownloadProgress{Downloaded: downloaded, Total: total, Indeterminate: true}
	}
	percent := int(downloaded * 100 / total)
	if percent > 100 {
		percent = 100
	}
	return models.DownloadProgress{Percent: percent, Downloaded: downloaded, Total: total}
}

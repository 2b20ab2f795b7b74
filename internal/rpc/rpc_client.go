package rpc

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"

	"frida-keeper/internal/logger"
)

// httpClient HTTP客户端实现
type httpClient struct {
	config    *HTTPConfig
	client    *http.Client
	transport *http.Transport
	mu        sync.Mutex
}

/**
 * Create HTTP client talking to the keeper daemon
 * @param {HTTPConfig} config - Client configuration, nil means DefaultHTTPConfig()
 * @returns {HTTPClient} HTTP client interface
 * @description
 * - Every connection is dialed to config.Address over config.Network,
 *   whatever host the request URL names
 * @example
 * client := rpc.NewHTTPClient(nil)
 * defer client.Close()
 * resp, err := client.Get("/frida/api/v1/session", nil)
 */
func NewHTTPClient(config *HTTPConfig) HTTPClient {
	if config == nil {
		config = DefaultHTTPConfig()
	}
	c := &httpClient{config: config}
	dialer := &net.Dialer{}
	c.transport = &http.Transport{
		DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
			return dialer.DialContext(ctx, config.Network, config.Address)
		},
	}
	c.client = &http.Client{
		Transport: c.transport,
		Timeout:   config.Timeout,
	}
	return c
}

// Get 发送GET请求
func (c *httpClient) Get(path string, params map[string]interface{}) (*HTTPResponse, error) {
	return c.do(http.MethodGet, path, params, nil)
}

// Post 发送POST请求
func (c *httpClient) Post(path string, data interface{}) (*HTTPResponse, error) {
	body, err := serializeData(data)
	if err != nil {
		return nil, err
	}
	return c.do(http.MethodPost, path, nil, body)
}

// Put 发送PUT请求
func (c *httpClient) Put(path string, data interface{}) (*HTTPResponse, error) {
	body, err := serializeData(data)
	if err != nil {
		return nil, err
	}
	return c.do(http.MethodPut, path, nil, body)
}

// Delete 发送DELETE请求
func (c *httpClient) Delete(path string, params map[string]interface{}) (*HTTPResponse, error) {
	return c.do(http.MethodDelete, path, params, nil)
}

/**
 * Send request and parse response
 * @description
 * - Non-2xx answers are not errors; they come back with HTTPResponse.Error set
 * @throws
 * - URL construction errors
 * - Connection errors (daemon not running)
 */
func (c *httpClient) do(method, path string, params map[string]interface{}, body io.Reader) (*HTTPResponse, error) {
	url, err := buildURL(c.config.BaseURL, path, params)
	if err != nil {
		return nil, fmt.Errorf("failed to build URL: %w", err)
	}
	logger.Debugf("Sending %s request to %s via %s:%s", method, url, c.config.Network, c.config.Address)

	ctx, cancel := context.WithTimeout(context.Background(), c.config.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	httpResp, err := deserializeResponse(resp)
	if err != nil {
		return nil, fmt.Errorf("failed to deserialize response: %w", err)
	}
	return httpResp, nil
}

// Close 关闭客户端连接
func (c *httpClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.transport.CloseIdleConnections()
	logger.Debugf("HTTP client connection closed")
	return nil
}

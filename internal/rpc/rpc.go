package rpc

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"frida-keeper/internal/config"
	"frida-keeper/internal/models"
)

// HTTPClient 定义HTTP客户端接口
type HTTPClient interface {
	Get(path string, params map[string]interface{}) (*HTTPResponse, error)
	Post(path string, data interface{}) (*HTTPResponse, error)
	Put(path string, data interface{}) (*HTTPResponse, error)
	Delete(path string, params map[string]interface{}) (*HTTPResponse, error)
	Close() error
}

// HTTPConfig 定义HTTP客户端配置
type HTTPConfig struct {
	Address string        //keeper守护进程侦听地址
	Network string        //unix,tcp
	Timeout time.Duration // 默认超时时间
	BaseURL string        // 基础URL
}

/**
 * Default client configuration derived from the server section
 * @description
 * - Prefers the unix socket when the socket file exists
 * - Falls back to the TCP address otherwise
 */
func DefaultHTTPConfig() *HTTPConfig {
	cfg := config.App()
	c := &HTTPConfig{
		Address: cfg.Server.Socket,
		Network: "unix",
		Timeout: 10 * time.Second,
		BaseURL: "http://localhost",
	}
	if _, err := os.Stat(c.Address); c.Address == "" || os.IsNotExist(err) {
		c.Address = cfg.Server.Address
		c.Network = "tcp"
	}
	if c.Address == "" {
		c.Address = "127.0.0.1:27080"
		c.Network = "tcp"
	}
	return c
}

// HTTPResponse 定义HTTP响应结构
type HTTPResponse struct {
	StatusCode int    `json:"status_code"`
	Code       string `json:"code"`
	Body       []byte `json:"body"`
	Error      string `json:"error"`
}

// OK 状态码为2xx
func (r *HTTPResponse) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Decode 将响应体解码到v
func (r *HTTPResponse) Decode(v interface{}) error {
	if !r.OK() {
		return fmt.Errorf("%s", r.Error)
	}
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// buildURL 构建完整的URL
func buildURL(baseURL, path string, params map[string]interface{}) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid base URL: %w", err)
	}

	if u.Path == "" {
		u.Path = path
	} else {
		u.Path = strings.TrimRight(u.Path, "/") + "/" + strings.TrimLeft(path, "/")
	}

	if params != nil {
		q := u.Query()
		for key, value := range params {
			switch v := value.(type) {
			case string:
				q.Set(key, v)
			case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
				q.Set(key, fmt.Sprintf("%d", v))
			case bool:
				q.Set(key, fmt.Sprintf("%t", v))
			default:
				q.Set(key, fmt.Sprintf("%v", v))
			}
		}
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

// serializeData 序列化请求数据
func serializeData(data interface{}) (io.Reader, error) {
	if data == nil {
		return nil, nil
	}
	jsonData, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize data: %w", err)
	}
	return bytes.NewReader(jsonData), nil
}

// deserializeResponse 反序列化响应数据
func deserializeResponse(resp *http.Response) (*HTTPResponse, error) {
	defer resp.Body.Close()
	httpResp := &HTTPResponse{
		StatusCode: resp.StatusCode,
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	httpResp.Body = body
	if httpResp.OK() {
		return httpResp, nil
	}
	if len(body) == 0 {
		httpResp.Error = resp.Status
	} else {
		var errBody models.ErrorResponse
		if err := json.Unmarshal(body, &errBody); err != nil {
			httpResp.Error = strings.TrimSpace(string(body))
		} else {
			httpResp.Code = errBody.Code
			httpResp.Error = errBody.Message
		}
	}
	if httpResp.Error == "" {
		httpResp.Error = "Unknown error"
	}
	return httpResp, nil
}

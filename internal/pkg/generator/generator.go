// Package generator 调用外部的场景合成服务
package generator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

var ErrGenerationFailed = errors.New("scene generation failed")

type Request struct {
	UserID  int64  `json:"user_id"`
	ImageID string `json:"image_id"`
	Scene   string `json:"scene"`
	Prompt  string `json:"prompt"`
}

type Result struct {
	GeneratedID string `json:"generated_id"`
	URL         string `json:"url,omitempty"`
}

type Generator interface {
	Generate(ctx context.Context, req *Request) (*Result, error)
}

// New 未配置 baseURL 时返回 Stub
func New(baseURL, apiKey string, timeout time.Duration) Generator {
	if baseURL == "" {
		return Stub{}
	}
	return NewClient(baseURL, apiKey, timeout)
}

// Client 通过 HTTP 调用合成服务
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *Client) Generate(ctx context.Context, req *Request) (*Result, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/generate", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: status %d: %s", ErrGenerationFailed, resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var result Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrGenerationFailed, err)
	}
	if result.GeneratedID == "" {
		return nil, fmt.Errorf("%w: empty generated_id", ErrGenerationFailed)
	}
	return &result, nil
}

// Stub 开发环境使用，不调用外部服务
type Stub struct{}

func (Stub) Generate(ctx context.Context, _ *Request) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &Result{GeneratedID: uuid.NewString()}, nil
}

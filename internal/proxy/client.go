// Package proxy 负责从上游站点拉取页面。
package proxy

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ErrUpstream 上游站点请求失败
var ErrUpstream = errors.New("upstream fetch failed")

// hopHeaderDenylist 不能透传的响应头。
// 响应体会被改写，这些头描述的是上游原始字节。
var hopHeaderDenylist = map[string]bool{
	"Content-Encoding":  true,
	"Content-Length":    true,
	"Transfer-Encoding": true,
	"Etag":              true,
}

// forwardedRequestHeaders 透传给上游的请求头
var forwardedRequestHeaders = []string{
	"Accept",
	"User-Agent",
	"Accept-Language",
}

// Client 上游站点客户端
type Client struct {
	origin     *url.URL
	httpClient *http.Client
}

// Result 一次上游请求的结果
type Result struct {
	StatusCode  int
	Header      http.Header
	Body        []byte
	ContentType string
}

// IsHTML 响应体是否为 HTML 文档
func (r *Result) IsHTML() bool {
	return strings.Contains(r.ContentType, "text/html")
}

// NewClient 创建上游客户端
func NewClient(origin string, timeout time.Duration) (*Client, error) {
	originURL, err := url.Parse(origin)
	if err != nil {
		return nil, fmt.Errorf("invalid upstream origin %q: %w", origin, err)
	}
	if originURL.Scheme == "" || originURL.Host == "" {
		return nil, fmt.Errorf("upstream origin %q must be absolute", origin)
	}

	return &Client{
		origin: originURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

// Origin 返回上游站点地址（不带末尾斜杠）
func (c *Client) Origin() string {
	return strings.TrimRight(c.origin.String(), "/")
}

// Fetch 拉取上游页面。
// 返回的 Header 已剔除不能透传的条目。
// 任何网络错误或超时都让整个代理请求失败，不提供降级页面。
func (c *Client) Fetch(ctx context.Context, path string, incoming http.Header) (*Result, error) {
	ref, err := url.Parse(path)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid path %q", ErrUpstream, path)
	}
	target := c.origin.ResolveReference(ref)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	for _, name := range forwardedRequestHeaders {
		if v := incoming.Get(name); v != "" {
			req.Header.Set(name, v)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading body: %v", ErrUpstream, err)
	}

	header := make(http.Header, len(resp.Header))
	for name, values := range resp.Header {
		if hopHeaderDenylist[http.CanonicalHeaderKey(name)] {
			continue
		}
		for _, v := range values {
			header.Add(name, v)
		}
	}

	return &Result{
		StatusCode:  resp.StatusCode,
		Header:      header,
		Body:        body,
		ContentType: resp.Header.Get("Content-Type"),
	}, nil
}

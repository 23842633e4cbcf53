// Package endpoint talks to the remote command service.
package endpoint

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	log "log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"

	"golang.org/x/net/publicsuffix"

	"delta/internal/domain"
)

const (
	updatePath    = "/update"
	logoutPath    = "/api/auth/logout"
	checkAuthPath = "/api/auth/check"
)

type updateRequest struct {
	Message string `json:"message"`
}

type updateResponse struct {
	Reply string `json:"reply"`
}

type Options struct {
	// Session is an optional "name=value" cookie seeded into the jar so an
	// existing login can be reused.
	Session string
}

// Client posts commands to <base>/update and keeps the session cookies the
// service hands out.
type Client struct {
	base *url.URL
	hc   *http.Client
	lg   *log.Logger
}

// NewClient copies hc and gives the copy a cookie jar if it has none.
func NewClient(base string, hc *http.Client, opt Options, lg *log.Logger) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(base, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("base url %q: scheme must be http or https", base)
	}

	if hc == nil {
		hc = &http.Client{}
	}
	c := *hc
	if c.Jar == nil {
		jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
		if err != nil {
			return nil, fmt.Errorf("cookie jar: %w", err)
		}
		c.Jar = jar
	}

	if opt.Session != "" {
		name, value, ok := strings.Cut(opt.Session, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("session cookie %q: want name=value", opt.Session)
		}
		c.Jar.SetCookies(u, []*http.Cookie{{Name: name, Value: value, Path: "/"}})
	}

	if lg == nil {
		lg = log.Default()
	}
	return &Client{base: u, hc: &c, lg: lg.With("component", "endpoint")}, nil
}

// Send relays one command and returns the reply text.
func (c *Client) Send(ctx context.Context, command string) (string, error) {
	body, err := json.Marshal(updateRequest{Message: command})
	if err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}

	resp, err := c.do(ctx, http.MethodPost, updatePath, body)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if err := classify(resp); err != nil {
		return "", err
	}

	var out updateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("%w: decode reply: %w", domain.ErrTransport, err)
	}
	if out.Reply == "" {
		return "", domain.ErrEmptyReply
	}

	c.lg.Debug("Reply received", "command", command, "len", len(out.Reply))
	return out.Reply, nil
}

// Logout ends the server session.
func (c *Client) Logout(ctx context.Context) error {
	resp, err := c.do(ctx, http.MethodPost, logoutPath, nil)
	if err != nil {
		return err
	}
	defer drain(resp)
	return classify(resp)
}

// CheckAuth reports domain.ErrAuthExpired when the session is not valid.
func (c *Client) CheckAuth(ctx context.Context) error {
	resp, err := c.do(ctx, http.MethodGet, checkAuthPath, nil)
	if err != nil {
		return err
	}
	defer drain(resp)
	return classify(resp)
}

func (c *Client) do(ctx context.Context, method, path string, body []byte) (*http.Response, error) {
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base.JoinPath(path).String(), rd)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil || method == http.MethodPost {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %w", domain.ErrTransport, method, path, err)
	}
	return resp, nil
}

func classify(resp *http.Response) error {
	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return domain.ErrAuthExpired
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return fmt.Errorf("%w: %s %s: %s", domain.ErrTransport,
			resp.Request.Method, resp.Request.URL.Path, resp.Status)
	}
	return nil
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
}

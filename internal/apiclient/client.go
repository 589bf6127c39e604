package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/brk3/ghcal/internal/server"
	"github.com/brk3/ghcal/pkg/contrib"
	"github.com/brk3/ghcal/pkg/errors"
)

type Client struct {
	BaseURL string
	HTTP    *http.Client
	// Token is sent as a bearer credential when set (an API key or a
	// provider-prefixed ID token).
	Token string
}

func New(base string) *Client {
	return &Client{
		BaseURL: base,
		HTTP:    http.DefaultClient,
	}
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var rdr io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rdr = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, rdr)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	res, err := c.HTTP.Do(req)
	if err != nil {
		return errors.Wrap(errors.ErrCodeFetch, err, "%s %s", method, path)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return statusError(method, path, res)
	}
	if out == nil || res.StatusCode == http.StatusNoContent {
		return nil
	}
	return json.NewDecoder(res.Body).Decode(out)
}

// statusError rebuilds the coded error the server reported, falling back to
// the bare status.
func statusError(method, path string, res *http.Response) error {
	var body server.ErrorResponse
	if err := json.NewDecoder(res.Body).Decode(&body); err == nil && body.Code != "" {
		return errors.New(errors.Code(body.Code), "%s", body.Error)
	}
	code := errors.ErrCodeInternal
	switch res.StatusCode {
	case http.StatusNotFound:
		code = errors.ErrCodeNotFound
	case http.StatusUnauthorized:
		code = errors.ErrCodeUnauthorized
	case http.StatusBadRequest:
		code = errors.ErrCodeInvalidInput
	}
	return errors.New(code, "%s %s: %s", method, path, res.Status)
}

func (c *Client) ListProfiles(ctx context.Context) ([]contrib.Profile, error) {
	var response server.ProfileListResponse
	if err := c.do(ctx, http.MethodGet, "/profiles/", nil, &response); err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	return response.Profiles, nil
}

func (c *Client) CreateProfile(ctx context.Context, req server.CreateProfileRequest) (*contrib.Profile, error) {
	var out contrib.Profile
	if err := c.do(ctx, http.MethodPost, "/profiles/", req, &out); err != nil {
		return nil, fmt.Errorf("create profile: %w", err)
	}
	return &out, nil
}

func (c *Client) DeleteProfile(ctx context.Context, id string) error {
	if err := c.do(ctx, http.MethodDelete, "/profiles/"+url.PathEscape(id), nil, nil); err != nil {
		return fmt.Errorf("delete profile %s: %w", id, err)
	}
	return nil
}

func (c *Client) GetStats(ctx context.Context, identity string) (*contrib.Stats, error) {
	var out contrib.Stats
	if err := c.do(ctx, http.MethodGet, "/calendar/"+url.PathEscape(identity)+"/stats", nil, &out); err != nil {
		return nil, fmt.Errorf("stats %s: %w", identity, err)
	}
	return &out, nil
}

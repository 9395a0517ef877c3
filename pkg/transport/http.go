package transport

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/golang/snappy"
)

// ContentEncodingSnappy is the Content-Encoding value used for
// snappy-compressed request and response bodies.
const ContentEncodingSnappy = "snappy"

// HTTP is a Transport that reaches remote RepliKV node servers over their
// HTTP API. Values are snappy-compressed on the wire in both directions.
//
// The zero client timeout is deliberate: deadlines come from the caller's
// context, which the coordinator derives from its configured read/write
// timeouts.
type HTTP struct {
	client *http.Client
}

// NewHTTP creates an HTTP transport using the provided client, or a default
// client when nil.
func NewHTTP(client *http.Client) *HTTP {
	if client == nil {
		client = &http.Client{}
	}
	return &HTTP{client: client}
}

func keyURL(addr, key string) string {
	return fmt.Sprintf("http://%s/keys/%s", addr, url.PathEscape(key))
}

// Put implements Transport.
func (t *HTTP) Put(ctx context.Context, addr, key, value string, ttl time.Duration) error {
	body := snappy.Encode(nil, []byte(value))

	u := keyURL(addr, key)
	if ttl > 0 {
		u += "?ttl=" + url.QueryEscape(ttl.String())
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, u, strings.NewReader(string(body)))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Encoding", ContentEncodingSnappy)

	resp, err := t.client.Do(req)
	if err != nil {
		return err
	}
	defer drain(resp.Body)

	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK {
		return fmt.Errorf("put %s on %s: unexpected status %d", key, addr, resp.StatusCode)
	}
	return nil
}

// Get implements Transport.
func (t *HTTP) Get(ctx context.Context, addr, key string) (string, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, keyURL(addr, key), nil)
	if err != nil {
		return "", false, err
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return "", false, err
	}
	defer drain(resp.Body)

	switch resp.StatusCode {
	case http.StatusNotFound:
		return "", false, nil
	case http.StatusOK:
	default:
		return "", false, fmt.Errorf("get %s on %s: unexpected status %d", key, addr, resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", false, err
	}

	if resp.Header.Get("Content-Encoding") == ContentEncodingSnappy {
		decoded, err := snappy.Decode(nil, raw)
		if err != nil {
			return "", false, fmt.Errorf("get %s on %s: decode body: %w", key, addr, err)
		}
		raw = decoded
	}

	return string(raw), true, nil
}

// Delete implements Transport.
func (t *HTTP) Delete(ctx context.Context, addr, key string) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, keyURL(addr, key), nil)
	if err != nil {
		return false, err
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return false, err
	}
	defer drain(resp.Body)

	switch resp.StatusCode {
	case http.StatusOK, http.StatusNoContent:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	default:
		return false, fmt.Errorf("delete %s on %s: unexpected status %d", key, addr, resp.StatusCode)
	}
}

// Exists implements Transport.
func (t *HTTP) Exists(ctx context.Context, addr, key string) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, keyURL(addr, key), nil)
	if err != nil {
		return false, err
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return false, err
	}
	defer drain(resp.Body)

	switch resp.StatusCode {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	default:
		return false, fmt.Errorf("exists %s on %s: unexpected status %d", key, addr, resp.StatusCode)
	}
}

// Clear implements Transport.
func (t *HTTP) Clear(ctx context.Context, addr string) error {
	u := fmt.Sprintf("http://%s/clear", addr)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, nil)
	if err != nil {
		return err
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return err
	}
	defer drain(resp.Body)

	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK {
		return fmt.Errorf("clear on %s: unexpected status %d", addr, resp.StatusCode)
	}
	return nil
}

// drain consumes and closes a response body so the underlying connection
// can be reused.
func drain(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, body)
	_ = body.Close()
}

package network

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-retryablehttp"

	"github.com/deploykit/resource-mirror/internal/utils/logger"
)

// Client performs the HTTP legs of resource fetching: artifact
// downloads, hash-endpoint reads, and index page scrapes.
type Client struct {
	http *retryablehttp.Client
}

// NewClient returns a Client with a small retry budget over the secure
// TLS transport.
func NewClient() *Client {
	rc := retryablehttp.NewClient()
	rc.HTTPClient = NewSecureHTTPClient()
	rc.RetryMax = 2
	rc.RetryWaitMin = 200 * time.Millisecond
	rc.RetryWaitMax = time.Second
	rc.Logger = nil
	return &Client{http: rc}
}

func (c *Client) get(url string) (*http.Response, error) {
	resp, err := c.http.Get(url)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("fetching %s: unexpected status %s", url, resp.Status)
	}
	return resp, nil
}

// DownloadFile streams url into dest. The parent directory is created
// if needed and a pre-existing dest is replaced. The body lands in a
// uniquely named temp file first and is renamed into place only on
// success, so an interrupted download never masquerades as a complete
// artifact.
func (c *Client) DownloadFile(url string, dest string) error {
	log := logger.Logger()

	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Dir(dest), err)
	}
	if err := os.Remove(dest); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing stale %s: %w", dest, err)
	}

	resp, err := c.get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	tmp := dest + ".tmp-" + uuid.NewString()
	out, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("creating %s: %w", tmp, err)
	}
	if _, err := io.Copy(out, resp.Body); err != nil {
		out.Close()
		os.Remove(tmp)
		return fmt.Errorf("downloading %s: %w", url, err)
	}
	if err := out.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("closing %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, dest); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("renaming %s: %w", tmp, err)
	}

	log.Debugf("downloaded %s -> %s", url, dest)
	return nil
}

// FetchText reads at most limit bytes from url and returns them as a
// string. Used for hash endpoints, where the payload is a short digest.
func (c *Client) FetchText(url string, limit int64) (string, error) {
	resp, err := c.get(url)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, limit))
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", url, err)
	}
	return string(data), nil
}

// FetchPage returns the full body of url. Index listing pages are
// small, self-controlled documents.
func (c *Client) FetchPage(url string) ([]byte, error) {
	resp, err := c.get(url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", url, err)
	}
	return data, nil
}

// Package imageproxy builds transform URLs against an external image proxy
// and fetches per-image format/dimension/chroma metadata from it.
package imageproxy

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"coverarr/internal/domain"
	"coverarr/internal/sharedhttp"

	"github.com/avast/retry-go"
)

// TransformOptions are the supported proxy operations. Zero values are
// omitted from the built URL.
type TransformOptions struct {
	Width     int
	Output    string
	Quality   int
	CropWidth int
	CropX     int
}

type Client struct {
	baseURL string
	client  *http.Client
}

func New(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		client: &http.Client{
			Timeout:   60 * time.Second,
			Transport: sharedhttp.Transport,
		},
	}
}

// BuildURL returns the proxy URL serving src with the given transforms.
func (c *Client) BuildURL(src string, opts TransformOptions) string {
	params := url.Values{
		"url": []string{src},
	}

	if opts.Width > 0 {
		params.Set("w", strconv.Itoa(opts.Width))
	}
	if opts.Output != "" {
		params.Set("output", opts.Output)
	}
	if opts.Quality > 0 {
		params.Set("q", strconv.Itoa(opts.Quality))
	}
	if opts.CropWidth > 0 {
		params.Set("cw", strconv.Itoa(opts.CropWidth))
	}
	if opts.CropX > 0 {
		params.Set("cx", strconv.Itoa(opts.CropX))
	}

	return c.baseURL + "?" + params.Encode()
}

type metadataResponse struct {
	Format            string `json:"format"`
	Width             int    `json:"width"`
	Height            int    `json:"height"`
	ChromaSubsampling string `json:"chromaSubsampling"`
}

// Metadata fetches the quality-relevant attributes of the image behind src.
func (c *Client) Metadata(ctx context.Context, src string) (*domain.CoverMeta, error) {
	params := url.Values{
		"url":    []string{src},
		"output": []string{"json"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", "coverarr")

	var metaResp metadataResponse

	retryErr := retry.Do(func() error {
		resp, err := sharedhttp.ExecRequest(*c.client, req)
		if err != nil {
			return err
		}

		buf := bufio.NewReader(resp.Body)

		if err := json.NewDecoder(buf).Decode(&metaResp); err != nil {
			return retry.Unrecoverable(err)
		}

		return nil
	},
		retry.Delay(time.Second*3),
		retry.Attempts(3),
		retry.MaxJitter(time.Second*1),
	)
	if retryErr != nil {
		return nil, retryErr
	}

	return &domain.CoverMeta{
		Format:            metaResp.Format,
		Width:             metaResp.Width,
		Height:            metaResp.Height,
		ChromaSubsampling: metaResp.ChromaSubsampling,
	}, nil
}

// Package catalog talks to the external catalog service. All provider-scoped
// sub-requests of a call run concurrently; a failing provider is captured as
// one error entry and never cancels its siblings, so a call always returns
// whatever partial data succeeded alongside the accumulated errors.
package catalog

import (
	"archive/zip"
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"coverarr/internal/domain"
	"coverarr/internal/sharedhttp"

	"github.com/avast/retry-go"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const (
	seriesChunkSize = 20
	bookChunkSize   = 50
	pageChunkSize   = 20
	coverChunkSize  = 10

	maxConcurrentRequests = 5
)

type Client struct {
	baseURL string
	client  *http.Client
	log     zerolog.Logger
}

func New(baseURL string, log zerolog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Timeout:   60 * time.Second,
			Transport: sharedhttp.Transport,
		},
		log: log.With().Str("module", "catalog").Logger(),
	}
}

type seriesPayload struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	Title     string `json:"title"`
	Thumbnail string `json:"thumbnail"`
	BookType  string `json:"bookType"`
}

type bookPayload struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Cover    string `json:"cover"`
	SeriesID string `json:"seriesId"`
}

type pagePayload struct {
	Number int    `json:"number"`
	URL    string `json:"url"`
	Type   string `json:"type"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	BookID string `json:"bookId"`
}

type seriesResponse struct {
	Data  map[string][]seriesPayload `json:"data"`
	Count int                        `json:"count"`
	Error string                     `json:"error"`
}

type booksResponse struct {
	Data  map[string][]bookPayload `json:"data"`
	Count int                      `json:"count"`
	Pages int                      `json:"pages"`
	Error string                   `json:"error"`
}

type pagesResponse struct {
	Data  map[string][]pagePayload `json:"data"`
	Count int                      `json:"count"`
	Error string                   `json:"error"`
}

// Series fetches series info for the given per-provider ID lists.
func (c *Client) Series(ctx context.Context, ids map[string][]string) (map[string][]domain.Series, []error) {
	out := make(map[string][]domain.Series)

	var mu sync.Mutex
	var errs []error

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentRequests)

	for providerID, providerIDs := range ids {
		for _, chunk := range chunkIDs(providerIDs, seriesChunkSize) {
			providerID, chunk := providerID, chunk

			g.Go(func() error {
				params := url.Values{
					"provider": []string{providerID},
					"ids":      []string{strings.Join(chunk, ",")},
				}

				var seriesResp seriesResponse
				err := c.getJSON(ctx, c.baseURL+"/series?"+params.Encode(), &seriesResp)
				if err == nil && seriesResp.Error != "" {
					err = fmt.Errorf("catalog error: %s", seriesResp.Error)
				}

				mu.Lock()
				defer mu.Unlock()

				if err != nil {
					errs = append(errs, errors.Wrapf(err, "failed to fetch series for provider %s", providerID))
					return nil
				}

				for _, payload := range seriesResp.Data[providerID] {
					out[providerID] = append(out[providerID], domain.Series{
						ID:           payload.ID,
						Type:         payload.Type,
						Title:        payload.Title,
						ThumbnailURL: payload.Thumbnail,
						BookType:     payload.BookType,
						ProviderID:   providerID,
					})
				}

				return nil
			})
		}
	}

	_ = g.Wait()

	return out, errs
}

// Books fetches one catalog page of books for the given per-provider series
// and book ID lists. The returned page count is the maximum observed across
// all sub-requests of the call.
func (c *Client) Books(ctx context.Context, seriesIDs, bookIDs map[string][]string, order domain.SortOrder, page int) (map[string][]domain.Book, int, []error) {
	out := make(map[string][]domain.Book)
	maxPage := 0

	var mu sync.Mutex
	var errs []error

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentRequests)

	fetch := func(providerID, idParam string, chunk []string) {
		g.Go(func() error {
			params := url.Values{
				"provider": []string{providerID},
				idParam:    []string{strings.Join(chunk, ",")},
				"order":    []string{string(order)},
				"page":     []string{strconv.Itoa(page)},
			}

			var booksResp booksResponse
			err := c.getJSON(ctx, c.baseURL+"/books?"+params.Encode(), &booksResp)
			if err == nil && booksResp.Error != "" {
				err = fmt.Errorf("catalog error: %s", booksResp.Error)
			}

			mu.Lock()
			defer mu.Unlock()

			if err != nil {
				errs = append(errs, errors.Wrapf(err, "failed to fetch books for provider %s", providerID))
				return nil
			}

			// max page count is monotonic within one fetch cycle
			if booksResp.Pages > maxPage {
				maxPage = booksResp.Pages
			}

			for _, payload := range booksResp.Data[providerID] {
				out[providerID] = append(out[providerID], domain.Book{
					ID:         payload.ID,
					Title:      payload.Title,
					CoverURL:   payload.Cover,
					SeriesID:   payload.SeriesID,
					ProviderID: providerID,
				})
			}

			return nil
		})
	}

	for providerID, ids := range seriesIDs {
		for _, chunk := range chunkIDs(ids, bookChunkSize) {
			fetch(providerID, "seriesIds", chunk)
		}
	}
	for providerID, ids := range bookIDs {
		for _, chunk := range chunkIDs(ids, bookChunkSize) {
			fetch(providerID, "bookIds", chunk)
		}
	}

	_ = g.Wait()

	return out, maxPage, errs
}

// BookPages fetches the browsable pages of the given books, chunked per
// provider independently from book requests.
func (c *Client) BookPages(ctx context.Context, bookIDs map[string][]string) (map[string][]domain.BookPage, []error) {
	out := make(map[string][]domain.BookPage)

	var mu sync.Mutex
	var errs []error

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentRequests)

	for providerID, ids := range bookIDs {
		for _, chunk := range chunkIDs(ids, pageChunkSize) {
			providerID, chunk := providerID, chunk

			g.Go(func() error {
				params := url.Values{
					"provider": []string{providerID},
					"bookIds":  []string{strings.Join(chunk, ",")},
				}

				var pagesResp pagesResponse
				err := c.getJSON(ctx, c.baseURL+"/pages?"+params.Encode(), &pagesResp)
				if err == nil && pagesResp.Error != "" {
					err = fmt.Errorf("catalog error: %s", pagesResp.Error)
				}

				mu.Lock()
				defer mu.Unlock()

				if err != nil {
					errs = append(errs, errors.Wrapf(err, "failed to fetch book pages for provider %s", providerID))
					return nil
				}

				for _, payload := range pagesResp.Data[providerID] {
					out[providerID] = append(out[providerID], domain.BookPage{
						Number:     payload.Number,
						URL:        payload.URL,
						Type:       payload.Type,
						Width:      payload.Width,
						Height:     payload.Height,
						BookID:     payload.BookID,
						ProviderID: providerID,
					})
				}

				return nil
			})
		}
	}

	_ = g.Wait()

	return out, errs
}

// CoverBytes fetches raw cover payloads for the given URLs through the bulk
// archive endpoint. The result is positionally aligned with the input; a nil
// entry means that cover could not be fetched. Archive entries are named by
// their 1-based position within the chunk, so reassembly tolerates
// out-of-order completion.
func (c *Client) CoverBytes(ctx context.Context, urls []string, onProgress func(done, total int)) ([][]byte, []error) {
	results := make([][]byte, len(urls))

	var mu sync.Mutex
	var errs []error
	done := 0

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentRequests)

	for offset := 0; offset < len(urls); offset += coverChunkSize {
		offset := offset
		end := offset + coverChunkSize
		if end > len(urls) {
			end = len(urls)
		}
		chunk := urls[offset:end]

		g.Go(func() error {
			payloads, err := c.fetchCoverArchive(ctx, chunk)

			mu.Lock()
			defer mu.Unlock()

			if err != nil {
				errs = append(errs, errors.Wrap(err, "failed to fetch cover archive"))
			} else {
				for pos, data := range payloads {
					if pos >= 1 && pos <= len(chunk) {
						results[offset+pos-1] = data
					}
				}
			}

			done += len(chunk)
			if onProgress != nil {
				onProgress(done, len(urls))
			}

			return nil
		})
	}

	_ = g.Wait()

	return results, errs
}

// fetchCoverArchive requests one chunk of cover URLs and unpacks the archive
// response into a position -> payload map.
func (c *Client) fetchCoverArchive(ctx context.Context, urls []string) (map[int][]byte, error) {
	params := url.Values{"url": urls}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/covers?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", "coverarr")

	var body []byte

	retryErr := retry.Do(func() error {
		resp, err := sharedhttp.ExecRequest(*c.client, req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		body, err = io.ReadAll(bufio.NewReader(resp.Body))
		if err != nil {
			return fmt.Errorf("failed to read cover archive: %w", err)
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

	reader, err := zip.NewReader(bytes.NewReader(body), int64(len(body)))
	if err != nil {
		return nil, fmt.Errorf("failed to open cover archive: %w", err)
	}

	payloads := make(map[int][]byte, len(reader.File))

	for _, file := range reader.File {
		name := file.Name
		if idx := strings.LastIndexByte(name, '.'); idx >= 0 {
			name = name[:idx]
		}

		pos, err := strconv.Atoi(name)
		if err != nil {
			c.log.Debug().Msgf("skipping unrecognized archive entry %q", file.Name)
			continue
		}

		rc, err := file.Open()
		if err != nil {
			return nil, fmt.Errorf("failed to open archive entry %q: %w", file.Name, err)
		}

		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read archive entry %q: %w", file.Name, err)
		}

		payloads[pos] = data
	}

	return payloads, nil
}

func (c *Client) getJSON(ctx context.Context, requestURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", "coverarr")

	return retry.Do(func() error {
		resp, err := sharedhttp.ExecRequest(*c.client, req)
		if err != nil {
			return err
		}

		buf := bufio.NewReader(resp.Body)

		if err := json.NewDecoder(buf).Decode(out); err != nil {
			return retry.Unrecoverable(err)
		}

		return nil
	},
		retry.Delay(time.Second*3),
		retry.Attempts(3),
		retry.MaxJitter(time.Second*1),
	)
}

func chunkIDs(ids []string, size int) [][]string {
	var chunks [][]string
	for offset := 0; offset < len(ids); offset += size {
		end := offset + size
		if end > len(ids) {
			end = len(ids)
		}
		chunks = append(chunks, ids[offset:end])
	}
	return chunks
}

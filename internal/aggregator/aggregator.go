// Package aggregator coordinates the paginated, re-entrant fetch/reset/select
// cycles across all configured providers. A single logical consumer drives the
// state machine; network fan-out happens inside one fetch cycle and every
// response is checked against the live query token before it is merged, so
// stale completions from a superseded cycle are dropped.
package aggregator

import (
	"context"
	"sort"
	"strconv"
	"sync"

	"coverarr/internal/catalog"
	"coverarr/internal/cover"
	"coverarr/internal/domain"
	"coverarr/internal/imageproxy"
	"coverarr/internal/templater"
	"coverarr/internal/title"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

type State string

const (
	StateIdle     State = "idle"
	StateFetching State = "fetching"
	StateReady    State = "ready"
)

const (
	maxSelectedItems      = 100
	maxConcurrentMetadata = 8
)

type Aggregator struct {
	catalog *catalog.Client
	proxy   *imageproxy.Client
	cfg     *domain.Config
	log     zerolog.Logger

	providers map[string]*domain.Provider

	mu         sync.Mutex
	state      State
	queryToken uuid.UUID

	series    map[string]*domain.Series
	books     []*domain.Book
	bookKeys  map[string]bool
	pages     map[string][]domain.BookPage
	selection map[string]*domain.Book

	page          int
	maxPage       int
	incrementMode bool
	fetchedPages  map[int]bool
	sortOrder     domain.SortOrder
}

func New(client *catalog.Client, proxy *imageproxy.Client, cfg *domain.Config, log zerolog.Logger) *Aggregator {
	providers := make(map[string]*domain.Provider, len(cfg.Providers))
	for i, p := range cfg.Providers {
		p.Priority = i
		providers[p.ID] = p
	}

	sortOrder := cfg.SortOrder
	if sortOrder == "" {
		sortOrder = domain.SortAscending
	}

	return &Aggregator{
		catalog:      client,
		proxy:        proxy,
		cfg:          cfg,
		log:          log.With().Str("module", "aggregator").Logger(),
		providers:    providers,
		state:        StateIdle,
		series:       make(map[string]*domain.Series),
		bookKeys:     make(map[string]bool),
		pages:        make(map[string][]domain.BookPage),
		selection:    make(map[string]*domain.Book),
		page:         1,
		maxPage:      1,
		fetchedPages: make(map[int]bool),
		sortOrder:    sortOrder,
	}
}

// State returns the current state of the machine.
func (a *Aggregator) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// Initialize reads the configured selection, enforces the selected-items
// ceiling and runs the series fetch followed by the first book fetch. A
// ceiling violation is fatal: no partial fetch is attempted.
func (a *Aggregator) Initialize(ctx context.Context) []error {
	total := 0
	seriesIDs := make(map[string][]string)

	for providerID, sel := range a.cfg.Selection {
		if _, ok := a.providers[providerID]; !ok {
			return []error{errors.Errorf("selection references unknown provider %s", providerID)}
		}

		total += len(sel.SeriesIDs) + len(sel.BookIDs)
		if len(sel.SeriesIDs) > 0 {
			seriesIDs[providerID] = sel.SeriesIDs
		}
	}

	if total > maxSelectedItems {
		return []error{errors.Errorf("too many selected items: %d exceeds the maximum of %d", total, maxSelectedItems)}
	}

	seriesData, errs := a.catalog.Series(ctx, seriesIDs)

	a.mu.Lock()
	for providerID, list := range seriesData {
		for i := range list {
			s := list[i]
			a.series[s.ID+"|"+providerID] = &s
		}
	}
	a.mu.Unlock()

	return append(errs, a.FetchBooks(ctx)...)
}

// FetchBooks runs one fetch cycle for the pages the pagination state calls
// for. A call while a cycle is already in flight is dropped, not queued.
func (a *Aggregator) FetchBooks(ctx context.Context) []error {
	a.mu.Lock()
	if a.state == StateFetching {
		a.mu.Unlock()
		a.log.Debug().Msg("fetch already in flight, dropping request")
		return nil
	}

	a.state = StateFetching
	token := uuid.New()
	a.queryToken = token

	var pagesToFetch []int
	if a.incrementMode {
		for p := 1; p <= a.page; p++ {
			if !a.fetchedPages[p] {
				pagesToFetch = append(pagesToFetch, p)
			}
		}
	} else {
		pagesToFetch = []int{a.page}
	}
	for _, p := range pagesToFetch {
		a.fetchedPages[p] = true
	}
	a.mu.Unlock()

	var errs []error
	for _, p := range pagesToFetch {
		errs = append(errs, a.fetchPage(ctx, token, p)...)
	}

	a.mu.Lock()
	if a.queryToken == token {
		a.state = StateReady
	}
	a.mu.Unlock()

	return errs
}

// fetchPage fetches and merges one catalog page under the given query token.
func (a *Aggregator) fetchPage(ctx context.Context, token uuid.UUID, page int) []error {
	seriesSel := make(map[string][]string)
	bookSel := make(map[string][]string)
	for providerID, sel := range a.cfg.Selection {
		if len(sel.SeriesIDs) > 0 {
			seriesSel[providerID] = sel.SeriesIDs
		}
		if len(sel.BookIDs) > 0 {
			bookSel[providerID] = sel.BookIDs
		}
	}

	data, maxPage, errs := a.catalog.Books(ctx, seriesSel, bookSel, a.sortOrder, page)

	books := a.decorate(data)

	pageErrs := a.fetchBookPages(ctx, books)
	errs = append(errs, pageErrs...)

	metaErrs := a.enrich(ctx, books)
	errs = append(errs, metaErrs...)

	books = a.finalize(books)

	a.mu.Lock()
	defer a.mu.Unlock()

	// a reset or requery happened while this page was in flight
	if a.queryToken != token {
		a.log.Debug().Int("page", page).Msg("discarding stale page response")
		return errs
	}

	if maxPage > a.maxPage {
		a.maxPage = maxPage
	}

	for _, book := range books {
		if a.bookKeys[book.Key()] {
			continue
		}
		a.bookKeys[book.Key()] = true
		a.books = append(a.books, book)
	}

	return errs
}

// decorate turns raw per-provider payloads into Books carrying their volume
// identity and thumbnail, walking providers in configured priority order.
func (a *Aggregator) decorate(data map[string][]domain.Book) []*domain.Book {
	var books []*domain.Book

	for _, provider := range a.cfg.Providers {
		for i := range data[provider.ID] {
			b := data[provider.ID][i]
			book := &b

			book.VolumeName = title.VolumeLabel(book.Title, provider.ForcedPrefix)
			book.VolumeNumber = title.ExtractNumber(book.Title)
			book.ThumbnailURL = a.proxy.BuildURL(book.CoverURL, imageproxy.TransformOptions{
				Width: a.cfg.ThumbnailWidth,
			})

			books = append(books, book)
		}
	}

	return books
}

// fetchBookPages pulls the browsable pages for providers that support them
// and repoints each book's cover at the preferred page when one is set.
func (a *Aggregator) fetchBookPages(ctx context.Context, books []*domain.Book) []error {
	bookIDs := make(map[string][]string)
	for _, book := range books {
		if p, ok := a.providers[book.ProviderID]; ok && p.SupportsBookPages {
			bookIDs[book.ProviderID] = append(bookIDs[book.ProviderID], book.ID)
		}
	}

	if len(bookIDs) == 0 {
		return nil
	}

	data, errs := a.catalog.BookPages(ctx, bookIDs)

	byBook := make(map[string][]domain.BookPage)
	for providerID, list := range data {
		for _, page := range list {
			key := page.BookID + "|" + providerID
			byBook[key] = append(byBook[key], page)
		}
	}

	a.mu.Lock()
	for key, list := range byBook {
		a.pages[key] = list
	}
	a.mu.Unlock()

	if a.cfg.PreferredPage <= 0 {
		return errs
	}

	for _, book := range books {
		for i := range byBook[book.Key()] {
			page := byBook[book.Key()][i]
			if page.Number != a.cfg.PreferredPage {
				continue
			}

			book.Page = &page
			book.CoverURL = page.URL
			book.ThumbnailURL = a.proxy.BuildURL(page.URL, imageproxy.TransformOptions{
				Width: a.cfg.ThumbnailWidth,
			})
			break
		}
	}

	return errs
}

// enrich fetches image metadata for every book concurrently. A metadata
// failure is isolated to its book and reported unless the owning provider
// suppresses noisy errors.
func (a *Aggregator) enrich(ctx context.Context, books []*domain.Book) []error {
	var mu sync.Mutex
	var errs []error

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentMetadata)

	for _, book := range books {
		book := book

		g.Go(func() error {
			meta, err := a.proxy.Metadata(gctx, book.CoverURL)
			if err != nil {
				if p, ok := a.providers[book.ProviderID]; !ok || !p.IgnoreErrors {
					mu.Lock()
					errs = append(errs, errors.Wrapf(err, "failed to fetch image metadata for book %s", book.Key()))
					mu.Unlock()
				}
				return nil
			}

			book.Meta = meta
			cover.Rescore(book)

			return nil
		})
	}

	_ = g.Wait()

	return errs
}

// finalize applies strict dimension filtering, automatic cropping and the
// rendered display text.
func (a *Aggregator) finalize(books []*domain.Book) []*domain.Book {
	kept := books[:0]

	for _, book := range books {
		provider := a.providers[book.ProviderID]

		if provider != nil && provider.StrictDimensions {
			if book.Meta == nil || book.Meta.Width <= 0 || book.Meta.Height <= 0 {
				a.log.Debug().Msgf("dropping book %s: missing or invalid dimensions", book.Key())
				continue
			}
		}

		if a.cfg.AutomaticCrop && book.Meta != nil {
			if amount, ok := cover.Amount(book.Meta.Width, book.Meta.Height); ok {
				cover.Apply(book, amount, a.proxy, cover.CropOptions{
					Format:         a.cfg.CropFormat,
					Quality:        a.cfg.CropQuality,
					ThumbnailWidth: a.cfg.ThumbnailWidth,
				})
			}
		}

		t := templater.New(book, a.seriesFor(book), provider)
		book.DisplayText = t.ExecTemplate(a.cfg.DisplayTextTemplate)

		kept = append(kept, book)
	}

	return kept
}

// ResetAll clears fetched-page tracking, the aggregate sets and the selection,
// then re-fetches the current page.
func (a *Aggregator) ResetAll(ctx context.Context) []error {
	a.mu.Lock()
	a.queryToken = uuid.New()
	a.fetchedPages = make(map[int]bool)
	a.books = nil
	a.bookKeys = make(map[string]bool)
	a.pages = make(map[string][]domain.BookPage)
	a.selection = make(map[string]*domain.Book)
	a.state = StateIdle
	a.mu.Unlock()

	return a.FetchBooks(ctx)
}

// ChangePage jumps to page p, leaving increment-mode, and requeries. Changing
// to the current page is a no-op.
func (a *Aggregator) ChangePage(ctx context.Context, p int) []error {
	a.mu.Lock()
	if p == a.page {
		a.mu.Unlock()
		return nil
	}
	a.page = p
	a.incrementMode = false
	a.mu.Unlock()

	return a.ResetAll(ctx)
}

// IncrementPage advances to the next page additively. At the last known page
// it is a no-op.
func (a *Aggregator) IncrementPage(ctx context.Context) []error {
	a.mu.Lock()
	if a.page >= a.maxPage {
		a.mu.Unlock()
		return nil
	}
	a.page++
	a.incrementMode = true
	a.mu.Unlock()

	return a.FetchBooks(ctx)
}

// ToggleSortOrder flips the listing direction and requeries from scratch.
func (a *Aggregator) ToggleSortOrder(ctx context.Context) []error {
	a.mu.Lock()
	a.sortOrder = a.sortOrder.Flip()
	a.mu.Unlock()

	return a.ResetAll(ctx)
}

// View computes the display slice from the current aggregate set: the
// automatic quality pick filters duplicate volumes when enabled, and the
// result is ordered by volume number. Suppressed books stay in the backing
// set.
func (a *Aggregator) View() []*domain.Book {
	a.mu.Lock()
	books := make([]*domain.Book, len(a.books))
	copy(books, a.books)
	a.mu.Unlock()

	if a.cfg.AutomaticQuality {
		books = cover.AutoPick(books, a.providers, a.cfg.PreferredPage > 0)
	}

	asc := a.sortOrder != domain.SortDescending

	sort.SliceStable(books, func(i, j int) bool {
		less := volumeLess(books[i], books[j])
		if asc {
			return less
		}
		return volumeLess(books[j], books[i])
	})

	return books
}

// Books returns the full aggregate set, including suppressed candidates.
func (a *Aggregator) Books() []*domain.Book {
	a.mu.Lock()
	defer a.mu.Unlock()

	books := make([]*domain.Book, len(a.books))
	copy(books, a.books)
	return books
}

// Pages returns the fetched browsable pages of a book.
func (a *Aggregator) Pages(book *domain.Book) []domain.BookPage {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.pages[book.Key()]
}

// MaxPage returns the highest page count observed for the current query.
func (a *Aggregator) MaxPage() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.maxPage
}

// Select marks a fetched book as chosen. Selecting a book that was never
// fetched is an error.
func (a *Aggregator) Select(id, providerID string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	key := id + "|" + providerID
	if !a.bookKeys[key] {
		return errors.Errorf("cannot select unknown book %s", key)
	}

	for _, book := range a.books {
		if book.Key() == key {
			a.selection[key] = book
			return nil
		}
	}

	return errors.Errorf("cannot select unknown book %s", key)
}

// Deselect removes a book from the selection.
func (a *Aggregator) Deselect(id, providerID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.selection, id+"|"+providerID)
}

// Selected returns the chosen books in display order.
func (a *Aggregator) Selected() []*domain.Book {
	a.mu.Lock()
	selection := make(map[string]bool, len(a.selection))
	for key := range a.selection {
		selection[key] = true
	}
	a.mu.Unlock()

	var books []*domain.Book
	for _, book := range a.View() {
		if selection[book.Key()] {
			books = append(books, book)
		}
	}
	return books
}

// SeriesIndex returns the fetched series keyed by "<id>|<provider>".
func (a *Aggregator) SeriesIndex() map[string]*domain.Series {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make(map[string]*domain.Series, len(a.series))
	for key, s := range a.series {
		out[key] = s
	}
	return out
}

// CopyLink renders the configured copy-link template for a book.
func (a *Aggregator) CopyLink(book *domain.Book) string {
	t := templater.New(book, a.seriesFor(book), a.providers[book.ProviderID])
	return t.ExecTemplate(a.cfg.CopyLinkTemplate)
}

func (a *Aggregator) seriesFor(book *domain.Book) *domain.Series {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.series[book.SeriesID+"|"+book.ProviderID]
}

// volumeLess orders books by numeric volume number when both sides have one,
// falling back to the volume name.
func volumeLess(a, b *domain.Book) bool {
	na, errA := strconv.ParseFloat(a.VolumeNumber, 64)
	nb, errB := strconv.ParseFloat(b.VolumeNumber, 64)

	switch {
	case errA == nil && errB == nil:
		if na != nb {
			return na < nb
		}
		return a.VolumeName < b.VolumeName
	case errA == nil:
		return true
	case errB == nil:
		return false
	}

	return a.VolumeName < b.VolumeName
}

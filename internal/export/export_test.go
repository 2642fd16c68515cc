package export

import (
	"archive/zip"
	"bytes"
	"context"
	"image"
	"image/jpeg"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"coverarr/internal/catalog"
	"coverarr/internal/domain"

	"github.com/rs/zerolog"
)

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 4, 4))); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func jpegBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 4, 4)), nil); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

// coverServer serves the bulk cover endpoint with one payload per requested
// url, in request order.
func coverServer(t *testing.T, payloads [][]byte) *httptest.Server {
	t.Helper()

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		urls := r.URL.Query()["url"]

		var buf bytes.Buffer
		zw := zip.NewWriter(&buf)
		for i := range urls {
			if i >= len(payloads) || payloads[i] == nil {
				continue
			}
			f, _ := zw.Create(strconv.Itoa(i+1) + ".bin")
			_, _ = f.Write(payloads[i])
		}
		_ = zw.Close()

		_, _ = w.Write(buf.Bytes())
	}))
}

func testConfig(t *testing.T) *domain.Config {
	t.Helper()
	return &domain.Config{
		DownloadLocation:      t.TempDir(),
		CoverFilenameTemplate: "{bookTitle}.{extension}",
		CoverPathTemplate:     "{seriesTitle}",
		ZipFilenameTemplate:   "bundle",
		BundleFormat:          "zip",
		Providers: []*domain.Provider{
			{ID: "p1"},
			{ID: "quiet", IgnoreErrors: true},
		},
	}
}

func testSeries() map[string]*domain.Series {
	return map[string]*domain.Series{
		"s1|p1": {ID: "s1", Title: "My Series", ProviderID: "p1"},
	}
}

func TestRunSingleFile(t *testing.T) {
	srv := coverServer(t, [][]byte{pngBytes(t)})
	defer srv.Close()

	cfg := testConfig(t)
	p := NewPackager(catalog.New(srv.URL, zerolog.Nop()), cfg, testSeries(), zerolog.Nop())

	books := []*domain.Book{
		{ID: "b1", Title: "Volume 1", CoverURL: "u1", SeriesID: "s1", ProviderID: "p1"},
	}

	result, errs := p.Run(context.Background(), books)
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if result.Archive {
		t.Error("single eligible image should not produce an archive")
	}
	if result.Saved != 1 {
		t.Fatalf("saved %d files, want 1", result.Saved)
	}

	want := filepath.Join(cfg.DownloadLocation, "Volume 1.png")
	if result.OutputPath != want {
		t.Errorf("output path = %q, want %q", result.OutputPath, want)
	}
	if _, err := os.Stat(want); err != nil {
		t.Errorf("output file missing: %v", err)
	}
}

func TestRunArchiveSkipsIneligible(t *testing.T) {
	payloads := [][]byte{
		pngBytes(t),
		jpegBytes(t),
		[]byte("this is not an image at all"),
		nil,
	}
	srv := coverServer(t, payloads)
	defer srv.Close()

	cfg := testConfig(t)
	p := NewPackager(catalog.New(srv.URL, zerolog.Nop()), cfg, testSeries(), zerolog.Nop())

	books := []*domain.Book{
		{ID: "b1", Title: "Volume 1", CoverURL: "u1", SeriesID: "s1", ProviderID: "p1"},
		{ID: "b2", Title: "Volume 2", CoverURL: "u2", SeriesID: "s1", ProviderID: "p1"},
		{ID: "b3", Title: "Volume 3", CoverURL: "u3", SeriesID: "s1", ProviderID: "p1"},
		{ID: "b4", Title: "Volume 4", CoverURL: "u4", SeriesID: "s1", ProviderID: "quiet"},
	}

	result, errs := p.Run(context.Background(), books)

	// the non-image payload is reported; the missing payload belongs to a
	// provider that suppresses noisy errors
	if len(errs) != 1 {
		t.Fatalf("got %d errors, want 1: %v", len(errs), errs)
	}

	if !result.Archive {
		t.Fatal("multiple eligible images should produce an archive")
	}
	if result.Saved != 2 {
		t.Errorf("saved %d entries, want 2", result.Saved)
	}

	want := filepath.Join(cfg.DownloadLocation, "bundle.zip")
	if result.OutputPath != want {
		t.Fatalf("output path = %q, want %q", result.OutputPath, want)
	}

	zr, err := zip.OpenReader(want)
	if err != nil {
		t.Fatal(err)
	}
	defer zr.Close()

	names := make(map[string]uint16)
	for _, f := range zr.File {
		names[f.Name] = f.Method
	}

	if len(names) != 2 {
		t.Fatalf("archive holds %d entries, want 2: %v", len(names), names)
	}
	if method, ok := names["My Series/Volume 1.png"]; !ok {
		t.Errorf("archive missing png entry: %v", names)
	} else if method != zip.Store {
		t.Error("archive entries should be stored uncompressed")
	}
	if _, ok := names["My Series/Volume 2.jpg"]; !ok {
		t.Errorf("archive missing jpg entry: %v", names)
	}
}

func TestRunCollisionNaming(t *testing.T) {
	srv := coverServer(t, [][]byte{jpegBytes(t), jpegBytes(t)})
	defer srv.Close()

	cfg := testConfig(t)
	cfg.CoverFilenameTemplate = "name.{extension}"

	p := NewPackager(catalog.New(srv.URL, zerolog.Nop()), cfg, testSeries(), zerolog.Nop())

	books := []*domain.Book{
		{ID: "b1", Title: "Volume 1", CoverURL: "u1", SeriesID: "s1", ProviderID: "p1"},
		{ID: "b2", Title: "Volume 2", CoverURL: "u2", SeriesID: "s1", ProviderID: "p1"},
	}

	result, errs := p.Run(context.Background(), books)
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}

	zr, err := zip.OpenReader(result.OutputPath)
	if err != nil {
		t.Fatal(err)
	}
	defer zr.Close()

	var names []string
	for _, f := range zr.File {
		names = append(names, f.Name)
	}

	wantFirst, wantSecond := "My Series/name.jpg", "My Series/name (1).jpg"
	if len(names) != 2 || names[0] != wantFirst || names[1] != wantSecond {
		t.Errorf("archive entries = %v, want [%q %q]", names, wantFirst, wantSecond)
	}
}

func TestRunNothingEligible(t *testing.T) {
	srv := coverServer(t, [][]byte{nil})
	defer srv.Close()

	cfg := testConfig(t)
	p := NewPackager(catalog.New(srv.URL, zerolog.Nop()), cfg, testSeries(), zerolog.Nop())

	books := []*domain.Book{
		{ID: "b1", Title: "Volume 1", CoverURL: "u1", SeriesID: "s1", ProviderID: "p1"},
	}

	result, errs := p.Run(context.Background(), books)
	if len(errs) != 1 {
		t.Fatalf("got %d errors, want 1 for the missing payload: %v", len(errs), errs)
	}
	if result.Saved != 0 {
		t.Errorf("saved %d files, want none", result.Saved)
	}

	entries, err := os.ReadDir(cfg.DownloadLocation)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("download location should stay empty, found %v", entries)
	}
}

func TestRunPDFBundle(t *testing.T) {
	srv := coverServer(t, [][]byte{jpegBytes(t), pngBytes(t)})
	defer srv.Close()

	cfg := testConfig(t)
	cfg.BundleFormat = "pdf"

	p := NewPackager(catalog.New(srv.URL, zerolog.Nop()), cfg, testSeries(), zerolog.Nop())

	books := []*domain.Book{
		{ID: "b1", Title: "Volume 1", CoverURL: "u1", SeriesID: "s1", ProviderID: "p1"},
		{ID: "b2", Title: "Volume 2", CoverURL: "u2", SeriesID: "s1", ProviderID: "p1"},
	}

	result, errs := p.Run(context.Background(), books)
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}

	want := filepath.Join(cfg.DownloadLocation, "bundle.pdf")
	if result.OutputPath != want {
		t.Fatalf("output path = %q, want %q", result.OutputPath, want)
	}

	data, err := os.ReadFile(want)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF")) {
		t.Error("output should be a pdf document")
	}
}

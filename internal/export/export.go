// Package export packages selected covers into a downloadable artifact: a
// single image file, an uncompressed zip archive, or a PDF contact sheet.
package export

import (
	"archive/zip"
	"bufio"
	"bytes"
	"context"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"coverarr/internal/catalog"
	"coverarr/internal/domain"
	"coverarr/internal/sanitize"
	"coverarr/internal/templater"

	"github.com/go-pdf/fpdf"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	_ "golang.org/x/image/webp" // needed to decode webp
)

const defaultArchiveName = "covers"

type Packager struct {
	catalog *catalog.Client
	cfg     *domain.Config
	series  map[string]*domain.Series
	namer   *Namer
	log     zerolog.Logger
}

// Result describes the artifact produced by one packaging run.
type Result struct {
	Saved      int
	OutputPath string
	Archive    bool
}

func NewPackager(client *catalog.Client, cfg *domain.Config, series map[string]*domain.Series, log zerolog.Logger) *Packager {
	return &Packager{
		catalog: client,
		cfg:     cfg,
		series:  series,
		namer:   NewNamer(),
		log:     log.With().Str("module", "export").Logger(),
	}
}

type entry struct {
	name      string
	path      string
	imageType string
	data      []byte
}

// Run fetches the cover bytes of the given books and packages every eligible
// one. With zero eligible images nothing is written; with exactly one the
// image is saved directly under its leaf filename; with more than one all of
// them are bundled into a single archive.
func (p *Packager) Run(ctx context.Context, books []*domain.Book) (*Result, []error) {
	defer p.namer.Reset()

	urls := make([]string, len(books))
	for i, book := range books {
		urls[i] = book.CoverURL
	}

	payloads, errs := p.catalog.CoverBytes(ctx, urls, func(done, total int) {
		p.log.Debug().Msgf("fetched covers %d/%d", done, total)
	})

	var entries []entry
	var zipName string

	for i, book := range books {
		provider := p.cfg.Provider(book.ProviderID)
		suppress := provider != nil && provider.IgnoreErrors

		if payloads[i] == nil {
			if !suppress {
				errs = append(errs, errors.Errorf("no cover data for book %s", book.Key()))
			}
			continue
		}

		format, ok := sniffImage(payloads[i])
		if !ok {
			if !suppress {
				errs = append(errs, errors.Errorf("cover for book %s is not an image", book.Key()))
			}
			continue
		}

		t := templater.New(book, p.series[book.SeriesID+"|"+book.ProviderID], provider)
		t.Extension = extensionFor(format)

		name := p.namer.Resolve(sanitize.Filename(t.ExecTemplate(p.cfg.CoverFilenameTemplate)))
		path := sanitize.Path(t.ExecTemplate(p.cfg.CoverPathTemplate))

		archivePath := name
		if path != "" {
			archivePath = path + "/" + name
		}

		if zipName == "" {
			zipName = sanitize.Filename(t.ExecTemplate(p.cfg.ZipFilenameTemplate))
		}

		entries = append(entries, entry{
			name:      name,
			path:      archivePath,
			imageType: format,
			data:      payloads[i],
		})
	}

	switch len(entries) {
	case 0:
		return &Result{}, errs

	case 1:
		outputPath := filepath.Join(p.cfg.DownloadLocation, entries[0].name)
		if err := p.writeFile(outputPath, entries[0].data); err != nil {
			return nil, append(errs, err)
		}

		return &Result{Saved: 1, OutputPath: outputPath}, errs
	}

	if zipName == "" {
		zipName = defaultArchiveName
	}

	var outputPath string
	var err error

	if strings.EqualFold(p.cfg.BundleFormat, "pdf") {
		outputPath = filepath.Join(p.cfg.DownloadLocation, zipName+".pdf")
		err = p.writePDF(outputPath, entries)
	} else {
		outputPath = filepath.Join(p.cfg.DownloadLocation, zipName+".zip")
		err = p.writeZip(outputPath, entries)
	}

	if err != nil {
		return nil, append(errs, err)
	}

	return &Result{Saved: len(entries), OutputPath: outputPath, Archive: true}, errs
}

func (p *Packager) writeFile(outputPath string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(outputPath), os.ModePerm); err != nil {
		return err
	}

	return os.WriteFile(outputPath, data, 0o644)
}

// writeZip bundles all entries into an uncompressed zip archive.
func (p *Packager) writeZip(zipPath string, entries []entry) error {
	if err := os.MkdirAll(filepath.Dir(zipPath), os.ModePerm); err != nil {
		return err
	}

	zipFile, err := os.Create(zipPath)
	if err != nil {
		return err
	}
	defer zipFile.Close()

	writeBuf := bufio.NewWriter(zipFile)
	defer writeBuf.Flush()

	zipWriter := zip.NewWriter(writeBuf)
	defer zipWriter.Close()

	for _, e := range entries {
		writer, err := zipWriter.CreateHeader(&zip.FileHeader{
			Name:   e.path,
			Method: zip.Store,
		})
		if err != nil {
			return err
		}

		if _, err := writer.Write(e.data); err != nil {
			return err
		}
	}

	return nil
}

// writePDF creates a contact-sheet pdf with one page per cover, each page
// sized to the image extent. Formats fpdf cannot embed are skipped.
func (p *Packager) writePDF(pdfPath string, entries []entry) error {
	if err := os.MkdirAll(filepath.Dir(pdfPath), os.ModePerm); err != nil {
		return err
	}

	pdf := fpdf.New(fpdf.OrientationPortrait, fpdf.UnitMillimeter, "", "")

	for _, e := range entries {
		switch e.imageType {
		case "png", "jpeg", "jpg", "gif":
		default:
			p.log.Warn().Msgf("skipping %q: %s images cannot be embedded in a pdf", e.name, e.imageType)
			continue
		}

		opts := fpdf.ImageOptions{ImageType: e.imageType}

		info := pdf.RegisterImageOptionsReader(e.name, opts, bytes.NewReader(e.data))
		imgWidth, imgHeight := info.Extent()

		pdf.AddPageFormat(fpdf.OrientationPortrait, fpdf.SizeType{Wd: imgWidth, Ht: imgHeight})
		pdf.ImageOptions(e.name, 0, 0, imgWidth, imgHeight, false, opts, 0, "")
	}

	return pdf.OutputFileAndClose(pdfPath)
}

// sniffImage determines the real image format from the payload bytes,
// ignoring whatever the URL or server claimed.
func sniffImage(data []byte) (string, bool) {
	contentType := http.DetectContentType(data)
	if !strings.HasPrefix(contentType, "image/") {
		return "", false
	}

	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		format = strings.TrimPrefix(contentType, "image/")
	}

	return format, true
}

func extensionFor(format string) string {
	if format == "jpeg" {
		return "jpg"
	}
	return format
}

package cover

import (
	"math"

	"coverarr/internal/domain"
	"coverarr/internal/imageproxy"
)

// CropOptions carry the proxy output settings used when rewriting cover URLs.
type CropOptions struct {
	Format         string
	Quality        int
	ThumbnailWidth int
}

// Amount evaluates the known border-defect dimension signatures in order and
// returns the crop amount of the first match. A positive amount reduces the
// effective width by that many pixels; a negative amount offsets the crop
// window from the left edge by abs(amount) pixels instead.
func Amount(width, height int) (int, bool) {
	aspect := math.Floor(float64(width)/float64(height)*100) / 100

	switch {
	case width >= 880 && width <= 964 && height == 1200:
		return 120, true
	case width >= 220 && width <= 241 && height == 300:
		return 30, true
	case height > 4000 && aspect >= 0.73 && aspect < 0.80:
		return -355, true
	case width > 2000 && height > 2000 && aspect >= 0.73 && aspect < 0.80:
		return -211, true
	case width < 2000 && height > 2000 && aspect >= 0.73 && aspect < 0.80:
		return -224, true
	}

	return 0, false
}

// Apply rewrites the book's cover and thumbnail URLs through the image proxy
// with the crop geometry for amount, keeping a backup of the pre-crop values
// so Revert can restore them verbatim. Applying a crop to an already cropped
// book is a no-op.
func Apply(book *domain.Book, amount int, proxy *imageproxy.Client, opts CropOptions) {
	if book.Cropped() || book.Meta == nil || amount == 0 {
		return
	}

	width := book.Meta.Width

	book.Crop = &domain.CropBackup{
		CoverURL:     book.CoverURL,
		ThumbnailURL: book.ThumbnailURL,
		Width:        width,
	}

	crop := geometry(width, amount)

	book.CoverURL = proxy.BuildURL(book.Crop.CoverURL, imageproxy.TransformOptions{
		Output:    opts.Format,
		Quality:   opts.Quality,
		CropWidth: crop.width,
		CropX:     crop.offset,
	})

	// the thumbnail variant gets the same crop scaled to its target width
	thumbAmount := int(math.Round(math.Abs(float64(amount)) * float64(opts.ThumbnailWidth) / float64(width)))
	thumbCrop := geometry(opts.ThumbnailWidth, sign(amount)*thumbAmount)

	book.ThumbnailURL = proxy.BuildURL(book.Crop.CoverURL, imageproxy.TransformOptions{
		Width:     opts.ThumbnailWidth,
		Output:    opts.Format,
		Quality:   opts.Quality,
		CropWidth: thumbCrop.width,
		CropX:     thumbCrop.offset,
	})

	book.Meta.Width = crop.width
	Rescore(book)
}

// Revert restores the pre-crop cover URL, thumbnail URL and width, clears the
// backup and recomputes the score. Reverting an uncropped book is a no-op.
func Revert(book *domain.Book) {
	if !book.Cropped() {
		return
	}

	book.CoverURL = book.Crop.CoverURL
	book.ThumbnailURL = book.Crop.ThumbnailURL
	if book.Meta != nil {
		book.Meta.Width = book.Crop.Width
	}

	book.Crop = nil
	Rescore(book)
}

type cropGeometry struct {
	width  int
	offset int
}

func geometry(width, amount int) cropGeometry {
	if amount >= 0 {
		return cropGeometry{width: width - amount}
	}
	return cropGeometry{width: width + amount, offset: -amount}
}

func sign(n int) int {
	if n < 0 {
		return -1
	}
	return 1
}

package domain

// SortOrder controls the direction of the catalog book listing.
type SortOrder string

const (
	SortAscending  SortOrder = "asc"
	SortDescending SortOrder = "desc"
)

// Flip returns the opposite sort order.
func (s SortOrder) Flip() SortOrder {
	if s == SortDescending {
		return SortAscending
	}
	return SortDescending
}

// Provider is an external catalog source. Identity is the ID; Priority is the
// position in the user's configured provider list and decides quality-score ties.
type Provider struct {
	ID                string `yaml:"id"`
	Name              string `yaml:"name"`
	LocaleCode        string `yaml:"localeCode"`
	LocaleName        string `yaml:"localeName"`
	Priority          int
	SupportsBookPages bool   `yaml:"supportsBookPages"`
	IgnoreErrors      bool   `yaml:"ignoreErrors"`
	StrictDimensions  bool   `yaml:"strictDimensions"`
	ForcedPrefix      string `yaml:"forcedPrefix"`
}

// Series is never mutated after the merge step. Identity is (ID, ProviderID).
type Series struct {
	ID           string
	Type         string
	Title        string
	ThumbnailURL string
	BookType     string
	ProviderID   string
}

// CoverMeta holds the quality-relevant attributes of a cover image.
type CoverMeta struct {
	Format            string
	Width             int
	Height            int
	ChromaSubsampling string
	Score             int
}

// CropBackup retains the pre-crop values of a book so a crop can be undone
// verbatim. A nil backup means the book is not cropped.
type CropBackup struct {
	CoverURL     string
	ThumbnailURL string
	Width        int
}

// Book is created during a book fetch and decorated in place as metadata,
// crop and page-selection steps run. Identity is (ID, ProviderID).
type Book struct {
	ID           string
	Title        string
	CoverURL     string
	SeriesID     string
	ProviderID   string
	VolumeName   string
	VolumeNumber string
	DisplayText  string
	ThumbnailURL string
	Meta         *CoverMeta
	Crop         *CropBackup
	Page         *BookPage
}

// Key returns the aggregate-set identity of the book.
func (b *Book) Key() string {
	return b.ID + "|" + b.ProviderID
}

// Cropped reports whether the book currently carries an active crop.
func (b *Book) Cropped() bool {
	return b.Crop != nil
}

// BookPage is a single browsable page of a book, available only for providers
// that support per-book page browsing.
type BookPage struct {
	Number     int
	URL        string
	Type       string
	Width      int
	Height     int
	BookID     string
	ProviderID string
}

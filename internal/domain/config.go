package domain

type Config struct {
	Version    string
	ConfigPath string

	CatalogURL       string `yaml:"catalogUrl"`
	ImageProxyURL    string `yaml:"imageProxyUrl"`
	DownloadLocation string `yaml:"downloadLocation"`

	Providers []*Provider           `yaml:"providers"`
	Selection map[string]*Selection `yaml:"selection"`

	SortOrder        SortOrder `yaml:"sortOrder"`
	AutomaticQuality bool      `yaml:"automaticQuality"`
	AutomaticCrop    bool      `yaml:"automaticCrop"`
	PreferredPage    int       `yaml:"preferredPage"`

	CropFormat     string `yaml:"cropFormat"`
	CropQuality    int    `yaml:"cropQuality"`
	ThumbnailWidth int    `yaml:"thumbnailWidth"`

	CoverFilenameTemplate string `yaml:"coverFilenameTemplate"`
	CoverPathTemplate     string `yaml:"coverPathTemplate"`
	ZipFilenameTemplate   string `yaml:"zipFilenameTemplate"`
	CopyLinkTemplate      string `yaml:"copyLinkTemplate"`
	DisplayTextTemplate   string `yaml:"displayTextTemplate"`
	BundleFormat          string `yaml:"bundleFormat"`

	LogPath       string `yaml:"logPath"`
	LogLevel      string `yaml:"LogLevel"`
	LogMaxSize    int    `yaml:"logMaxSize"` // in megabytes
	LogMaxBackups int    `yaml:"logMaxBackups"`
}

// Selection is the per-provider input of series and book IDs to aggregate.
type Selection struct {
	SeriesIDs []string `yaml:"seriesIds"`
	BookIDs   []string `yaml:"bookIds"`
}

// Provider returns the configured provider with the given id, or nil.
func (c *Config) Provider(id string) *Provider {
	for _, p := range c.Providers {
		if p.ID == id {
			return p
		}
	}
	return nil
}

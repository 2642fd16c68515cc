package config

import (
	"fmt"
	"log"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"coverarr/internal/domain"
	"coverarr/internal/logger"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

var configTemplate = `# config.yaml

# Catalog API
# Base URL of the catalog aggregation service
#
# Default: ""
#
catalogUrl: ""

# Image Proxy
# Base URL of the image transform proxy
#
# Default: ""
#
imageProxyUrl: ""

# Download Location
# Needs to be filled out correctly, e.g. "/data/downloads/covers"
#
# Default: ""
#
downloadLocation: ""

# Providers
# The order of this list decides tie-breaks when several providers carry the
# same volume
#
providers:
  - id: "mangadex"
    name: "MangaDex"
    localeCode: "en"
    localeName: "English"
    supportsBookPages: false
    ignoreErrors: false
    strictDimensions: true
  - id: "bookwalker"
    name: "BookWalker"
    localeCode: "ja"
    localeName: "Japanese"
    supportsBookPages: true
    ignoreErrors: true
    strictDimensions: false
    forcedPrefix: "Volume"

# Selection
# Series and book IDs to aggregate, per provider
#
selection:
  mangadex:
    seriesIds: []
    bookIds: []

# Sort order for the book listing
#
# Default: "asc"
#
# Options: "asc", "desc"
#
sortOrder: "asc"

# Automatic quality pick
# Keeps only the best cover of every volume in the default view
#
# Default: true
#
automaticQuality: true

# Automatic crop
# Fixes known cover-border defects by rewriting cover URLs through the proxy
#
# Default: true
#
automaticCrop: true

# Preferred page
# When > 0, providers with page browsing repoint each cover at this page
#
# Default: 0
#
preferredPage: 0

# Crop output settings passed to the image proxy
#
cropFormat: "jpg"
cropQuality: 90

# Thumbnail width in pixels
#
# Default: 320
#
thumbnailWidth: 320

# Naming Templates
# Tokens: {volumeName} {volumeNumber} {bookTitle} {bookId} {pageName}
# {pageNumber} {seriesTitle} {seriesThumbnail} {seriesType} {seriesId}
# {providerName} {providerId} {localeName} {localeCode} {score} {width}
# {height} {cropped} {extension} {coverUrl}
#
coverFilenameTemplate: "{seriesTitle} - {volumeName}.{extension}"
coverPathTemplate: "{seriesTitle}"
zipFilenameTemplate: "{seriesTitle}"
copyLinkTemplate: "{coverUrl}"
displayTextTemplate: "{volumeName} ({providerName})"

# Bundle format for exports with more than one cover
#
# Default: "zip"
#
# Options: "zip", "pdf"
#
bundleFormat: "zip"

# coverarr logs file
# If not defined, logs to stdout
# Make sure to use forward slashes and include the filename with extension. e.g. "logs/coverarr.log", "C:/coverarr/logs/coverarr.log"
#
# Optional
#
#logPath: ""

# Log level
#
# Default: "DEBUG"
#
# Options: "ERROR", "DEBUG", "INFO", "WARN", "TRACE"
#
logLevel: "DEBUG"

# Log Max Size
#
# Default: 50
#
# Max log size in megabytes
#
#logMaxSize: 50

# Log Max Backups
#
# Default: 3
#
# Max amount of old log files
#
#logMaxBackups = 3
`

func (c *AppConfig) writeConfig(configPath string, configFile string) error {
	cfgPath := filepath.Join(configPath, configFile)

	// check if configPath exists, if not create it
	if _, err := os.Stat(configPath); errors.Is(err, os.ErrNotExist) {
		err := os.MkdirAll(configPath, os.ModePerm)
		if err != nil {
			log.Println(err)
			return err
		}
	}

	// check if config exists, if not create it
	if _, err := os.Stat(cfgPath); errors.Is(err, os.ErrNotExist) {

		f, err := os.Create(cfgPath)
		if err != nil { // perm 0666
			// handle failed create
			log.Printf("error creating file: %q", err)
			return err
		}
		defer f.Close()

		if _, err = f.WriteString(configTemplate); err != nil {
			log.Printf("error writing contents to file: %v %q", configPath, err)
			return err
		}

		return f.Sync()
	}

	return nil
}

type Config interface {
	UpdateConfig() error
	DynamicReload(log logger.Logger)
}

type AppConfig struct {
	Config *domain.Config
	m      *sync.Mutex
}

func New(configPath string, version string) *AppConfig {
	c := &AppConfig{
		m: new(sync.Mutex),
	}
	c.defaults()
	c.Config = &domain.Config{
		Version:    version,
		ConfigPath: configPath,
	}

	c.load(configPath)
	c.loadFromEnv()

	if c.Config.CatalogURL == "" {
		log.Fatalf("catalogUrl can't be empty, please provide the base URL of the catalog service")
	}

	if c.Config.DownloadLocation == "" {
		log.Fatalf("downloadLocation can't be empty, please provide a valid path to the directory you want your downloads to go to")
	}

	return c
}

func (c *AppConfig) defaults() {
	viper.SetDefault("catalogUrl", "")
	viper.SetDefault("imageProxyUrl", "")
	viper.SetDefault("downloadLocation", "")
	viper.SetDefault("providers", make([]*domain.Provider, 0))
	viper.SetDefault("selection", make(map[string]*domain.Selection))
	viper.SetDefault("sortOrder", "asc")
	viper.SetDefault("automaticQuality", true)
	viper.SetDefault("automaticCrop", true)
	viper.SetDefault("preferredPage", 0)
	viper.SetDefault("cropFormat", "jpg")
	viper.SetDefault("cropQuality", 90)
	viper.SetDefault("thumbnailWidth", 320)
	viper.SetDefault("coverFilenameTemplate", "{seriesTitle} - {volumeName}.{extension}")
	viper.SetDefault("coverPathTemplate", "{seriesTitle}")
	viper.SetDefault("zipFilenameTemplate", "{seriesTitle}")
	viper.SetDefault("copyLinkTemplate", "{coverUrl}")
	viper.SetDefault("displayTextTemplate", "{volumeName} ({providerName})")
	viper.SetDefault("bundleFormat", "zip")
	viper.SetDefault("logPath", "")
	viper.SetDefault("logLevel", "DEBUG")
	viper.SetDefault("logMaxSize", 50)
	viper.SetDefault("logMaxBackups", 3)
}

func (c *AppConfig) loadFromEnv() {
	prefix := "COVERARR__"

	envs := os.Environ()
	for _, env := range envs {
		if strings.HasPrefix(env, prefix) {
			envPair := strings.SplitN(env, "=", 2)

			if envPair[1] != "" {
				switch envPair[0] {
				case prefix + "CATALOG_URL":
					c.Config.CatalogURL = envPair[1]
				case prefix + "IMAGE_PROXY_URL":
					c.Config.ImageProxyURL = envPair[1]
				case prefix + "DOWNLOAD_LOCATION":
					c.Config.DownloadLocation = envPair[1]
				case prefix + "SORT_ORDER":
					c.Config.SortOrder = domain.SortOrder(envPair[1])
				case prefix + "BUNDLE_FORMAT":
					c.Config.BundleFormat = envPair[1]
				case prefix + "LOG_LEVEL":
					c.Config.LogLevel = envPair[1]
				case prefix + "LOG_PATH":
					c.Config.LogPath = envPair[1]
				case prefix + "LOG_MAX_SIZE":
					if i, _ := strconv.ParseInt(envPair[1], 10, 32); i > 0 {
						c.Config.LogMaxSize = int(i)
					}
				case prefix + "LOG_MAX_BACKUPS":
					if i, _ := strconv.ParseInt(envPair[1], 10, 32); i > 0 {
						c.Config.LogMaxBackups = int(i)
					}
				}
			}
		}
	}
}

func (c *AppConfig) load(configPath string) {
	viper.SetConfigType("yaml")

	// clean trailing slash from configPath
	configPath = path.Clean(configPath)
	if configPath != "" {
		// check if path and file exists
		// if not, create path and file
		if err := c.writeConfig(configPath, "config.yaml"); err != nil {
			log.Printf("write error: %q", err)
		}

		viper.SetConfigFile(path.Join(configPath, "config.yaml"))
	} else {
		viper.SetConfigName("config")

		// Search config in directories
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME/.config/coverarr")
		viper.AddConfigPath("$HOME/.coverarr")
	}

	// read config
	if err := viper.ReadInConfig(); err != nil {
		log.Printf("config read error: %q", err)
	}

	if err := viper.Unmarshal(c.Config); err != nil {
		log.Fatalf("Could not unmarshal config file: %v: err %q", viper.ConfigFileUsed(), err)
	}
}

func (c *AppConfig) DynamicReload(log logger.Logger) {
	viper.WatchConfig()

	viper.OnConfigChange(func(_ fsnotify.Event) {
		c.m.Lock()
		defer c.m.Unlock()

		logLevel := viper.GetString("logLevel")
		c.Config.LogLevel = logLevel
		log.SetLogLevel(c.Config.LogLevel)

		logPath := viper.GetString("logPath")
		c.Config.LogPath = logPath

		log.Debug().Msg("config file reloaded!")
	})
}

func (c *AppConfig) UpdateConfig() error {
	filePath := path.Join(c.Config.ConfigPath, "config.yaml")

	f, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("could not read config filePath: %s: %w", filePath, err)
	}

	lines := strings.Split(string(f), "\n")
	lines = c.processLines(lines)

	output := strings.Join(lines, "\n")
	if err := os.WriteFile(filePath, []byte(output), 0o644); err != nil {
		return fmt.Errorf("could not write config file: %s: %w", filePath, err)
	}

	return nil
}

func (c *AppConfig) processLines(lines []string) []string {
	// keep track of not found values to append at bottom
	var (
		foundLineLogLevel = false
		foundLineLogPath  = false
	)

	for i, line := range lines {
		if !foundLineLogLevel && strings.Contains(line, "logLevel:") {
			lines[i] = fmt.Sprintf(`logLevel: "%s"`, c.Config.LogLevel)
			foundLineLogLevel = true
		}
		if !foundLineLogPath && strings.Contains(line, "logPath:") {
			if c.Config.LogPath == "" {
				lines[i] = `#logPath: ""`
			} else {
				lines[i] = fmt.Sprintf(`logPath: "%s"`, c.Config.LogPath)
			}
			foundLineLogPath = true
		}
	}

	if !foundLineLogLevel {
		lines = append(lines, "# Log level")
		lines = append(lines, "#")
		lines = append(lines, `# Default: "DEBUG"`)
		lines = append(lines, "#")
		lines = append(lines, `# Options: "ERROR", "DEBUG", "INFO", "WARN", "TRACE"`)
		lines = append(lines, "#")
		lines = append(lines, fmt.Sprintf(`logLevel: "%s"`, c.Config.LogLevel))
	}

	if !foundLineLogPath {
		lines = append(lines, "# Log Path")
		lines = append(lines, "#")
		lines = append(lines, "# Optional")
		lines = append(lines, "#")
		if c.Config.LogPath == "" {
			lines = append(lines, `#logPath: ""`)
		} else {
			lines = append(lines, fmt.Sprintf(`logPath: "%s"`, c.Config.LogPath))
		}
	}

	return lines
}

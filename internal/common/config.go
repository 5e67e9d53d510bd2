package common

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server ServerConfig
	OCR    OCRConfig
	Store  StoreConfig
	Format FormatConfig
}

// ServerConfig holds the HTTP surface configuration.
type ServerConfig struct {
	Addr            string
	MaxUploadBytes  int64
	ShutdownTimeout time.Duration
}

// OCRConfig holds recognition and rasterization tool configuration.
type OCRConfig struct {
	Tesseract        string // binary name or absolute path
	Pdftoppm         string // binary name or absolute path
	TesseractLang    string
	TessdataDir      string
	ArtifactCacheDir string
}

// StoreConfig holds local key/value persistence configuration.
type StoreConfig struct {
	Path string // sqlite file path
}

// FormatConfig holds formatting dispatcher defaults.
type FormatConfig struct {
	Provider string
	APIKey   string
	Model    string
	Endpoint string
}

// LoadConfig reads configuration from the environment (TEXTRA_* variables)
// and an optional textra.yaml in the working directory. Environment wins.
func LoadConfig() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("textra")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.max_upload_bytes", int64(32<<20))
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("ocr.tesseract", "tesseract")
	v.SetDefault("ocr.pdftoppm", "pdftoppm")
	v.SetDefault("ocr.tesseract_lang", "eng")
	v.SetDefault("ocr.tessdata_dir", "")
	v.SetDefault("ocr.artifact_cache_dir", "./tmp")
	v.SetDefault("store.path", "textra.db")
	v.SetDefault("format.provider", "")
	v.SetDefault("format.api_key", "")
	v.SetDefault("format.model", "")
	v.SetDefault("format.endpoint", "")

	v.SetConfigName("textra")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, WrapError(err, "read config file")
		}
	}

	return &Config{
		Server: ServerConfig{
			Addr:            v.GetString("server.addr"),
			MaxUploadBytes:  v.GetInt64("server.max_upload_bytes"),
			ShutdownTimeout: v.GetDuration("server.shutdown_timeout"),
		},
		OCR: OCRConfig{
			Tesseract:        v.GetString("ocr.tesseract"),
			Pdftoppm:         v.GetString("ocr.pdftoppm"),
			TesseractLang:    v.GetString("ocr.tesseract_lang"),
			TessdataDir:      v.GetString("ocr.tessdata_dir"),
			ArtifactCacheDir: v.GetString("ocr.artifact_cache_dir"),
		},
		Store: StoreConfig{
			Path: v.GetString("store.path"),
		},
		Format: FormatConfig{
			Provider: v.GetString("format.provider"),
			APIKey:   v.GetString("format.api_key"),
			Model:    v.GetString("format.model"),
			Endpoint: v.GetString("format.endpoint"),
		},
	}, nil
}

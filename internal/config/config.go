package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Analysis AnalysisConfig `yaml:"analysis" mapstructure:"analysis"`
	Dataset  DatasetConfig  `yaml:"dataset" mapstructure:"dataset"`
	Annotate AnnotateConfig `yaml:"annotate" mapstructure:"annotate"`
	Regions  []RegionConfig `yaml:"regions" mapstructure:"regions"`
	Data     DataConfig     `yaml:"data" mapstructure:"data"`
	Upload   UploadConfig   `yaml:"upload" mapstructure:"upload"`
	Output   OutputConfig   `yaml:"output" mapstructure:"output"`
	Batch    BatchConfig    `yaml:"batch" mapstructure:"batch"`
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Store    StoreConfig    `yaml:"store" mapstructure:"store"`
	FTP      FTPConfig      `yaml:"ftp" mapstructure:"ftp"`
	HTTP     HTTPConfig     `yaml:"http" mapstructure:"http"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// AnalysisConfig configures clustering.
type AnalysisConfig struct {
	Radius         float64 `yaml:"radius" mapstructure:"radius"`
	DistrictColumn string  `yaml:"district_column" mapstructure:"district_column"`
}

// DatasetConfig configures address dataset parsing.
type DatasetConfig struct {
	XColumn   string `yaml:"x_column" mapstructure:"x_column"`
	YColumn   string `yaml:"y_column" mapstructure:"y_column"`
	Encoding  string `yaml:"encoding" mapstructure:"encoding"`
	Delimiter string `yaml:"delimiter" mapstructure:"delimiter"`
	Sheet     string `yaml:"sheet" mapstructure:"sheet"`
}

// AnnotateConfig configures output markers.
type AnnotateConfig struct {
	Layer string `yaml:"layer" mapstructure:"layer"`
}

// RegionConfig maps a region name to its address dataset and, optionally,
// its already-connected dataset. Datasets are paths relative to data.dir,
// absolute paths, or ftp/http URLs.
type RegionConfig struct {
	Name      string `yaml:"name" mapstructure:"name"`
	Dataset   string `yaml:"dataset" mapstructure:"dataset"`
	Connected string `yaml:"connected" mapstructure:"connected"`
}

// DataConfig locates region datasets.
type DataConfig struct {
	Dir            string `yaml:"dir" mapstructure:"dir"`
	DefaultDataset string `yaml:"default_dataset" mapstructure:"default_dataset"`
}

// UploadConfig configures the upload directory of the web server.
type UploadConfig struct {
	Dir   string `yaml:"dir" mapstructure:"dir"`
	MaxMB int    `yaml:"max_mb" mapstructure:"max_mb"`
}

// OutputConfig configures where annotated drawings are written.
type OutputConfig struct {
	Dir string `yaml:"dir" mapstructure:"dir"`
}

// BatchConfig configures batch processing.
type BatchConfig struct {
	Concurrency int `yaml:"concurrency" mapstructure:"concurrency"`
}

// ServerConfig configures the web server.
type ServerConfig struct {
	Port        int      `yaml:"port" mapstructure:"port"`
	RateLimit   float64  `yaml:"rate_limit" mapstructure:"rate_limit"`
	RateBurst   int      `yaml:"rate_burst" mapstructure:"rate_burst"`
	CORSOrigins []string `yaml:"cors_origins" mapstructure:"cors_origins"`
}

// StoreConfig configures the run history backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// FTPConfig configures FTP dataset downloads.
type FTPConfig struct {
	TimeoutSecs int `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// HTTPConfig configures HTTP dataset downloads.
type HTTPConfig struct {
	TimeoutSecs int `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxRetries  int `yaml:"max_retries" mapstructure:"max_retries"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// DefaultRegions is the region table used when none is configured.
func DefaultRegions() []RegionConfig {
	return []RegionConfig{
		{Name: "台中", Dataset: "TC.csv"},
		{Name: "台南", Dataset: "TN.csv"},
		{Name: "高雄", Dataset: "KH.csv"},
		{Name: "雲林", Dataset: "YI_202311.csv"},
	}
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("ADDRCLUSTER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("analysis.radius", 0.17)
	v.SetDefault("analysis.district_column", "")
	v.SetDefault("dataset.x_column", "X")
	v.SetDefault("dataset.y_column", "Y")
	v.SetDefault("dataset.encoding", "utf-8")
	v.SetDefault("dataset.delimiter", ",")
	v.SetDefault("dataset.sheet", "")
	v.SetDefault("annotate.layer", "0")
	v.SetDefault("data.dir", "data")
	v.SetDefault("data.default_dataset", "default.csv")
	v.SetDefault("upload.dir", "uploads")
	v.SetDefault("upload.max_mb", 64)
	v.SetDefault("output.dir", "outputs")
	v.SetDefault("batch.concurrency", 4)
	v.SetDefault("server.port", 5000)
	v.SetDefault("server.rate_limit", 5.0)
	v.SetDefault("server.rate_burst", 10)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "addrcluster.db")
	v.SetDefault("store.max_conns", 4)
	v.SetDefault("store.min_conns", 1)
	v.SetDefault("ftp.timeout_secs", 30)
	v.SetDefault("http.timeout_secs", 30)
	v.SetDefault("http.max_retries", 3)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}
	if len(cfg.Regions) == 0 {
		cfg.Regions = DefaultRegions()
	}

	return &cfg, nil
}

// DelimiterRune returns the configured CSV delimiter, ',' when unset.
func (c DatasetConfig) DelimiterRune() rune {
	for _, r := range c.Delimiter {
		return r
	}
	return ','
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}

package config

import (
	"fmt"
	"math"
	"strings"

	"github.com/rotisserie/eris"
)

// Validate checks the settings a command mode depends on. Modes: analyze,
// batch, serve, store.
func (c *Config) Validate(mode string) error {
	var errs []string

	checkAnalysis := func() {
		if c.Analysis.Radius < 0 || math.IsNaN(c.Analysis.Radius) || math.IsInf(c.Analysis.Radius, 0) {
			errs = append(errs, "analysis.radius must be >= 0")
		}
		if c.Dataset.XColumn == "" || c.Dataset.YColumn == "" {
			errs = append(errs, "dataset.x_column and dataset.y_column are required")
		}
		switch strings.ToLower(c.Dataset.Encoding) {
		case "", "utf-8", "utf8", "big5", "cp950":
		default:
			errs = append(errs, "dataset.encoding must be utf-8 or big5")
		}
		if len([]rune(c.Dataset.Delimiter)) > 1 {
			errs = append(errs, "dataset.delimiter must be a single character")
		}
		for i, r := range c.Regions {
			if r.Name == "" || r.Dataset == "" {
				errs = append(errs, fmt.Sprintf("regions[%d]: name and dataset are required", i))
			}
		}
	}
	checkStore := func() {
		switch c.Store.Driver {
		case "none":
		case "sqlite", "postgres":
			if c.Store.DatabaseURL == "" {
				errs = append(errs, "store.database_url is required")
			}
		default:
			errs = append(errs, "store.driver must be sqlite, postgres or none")
		}
	}

	switch mode {
	case "analyze":
		checkAnalysis()
	case "batch":
		checkAnalysis()
		if c.Batch.Concurrency < 1 || c.Batch.Concurrency > 64 {
			errs = append(errs, "batch.concurrency must be between 1 and 64")
		}
	case "serve":
		checkAnalysis()
		checkStore()
		if c.Server.Port <= 0 {
			errs = append(errs, "server.port must be > 0")
		}
		if c.Server.RateLimit <= 0 || c.Server.RateBurst <= 0 {
			errs = append(errs, "server.rate_limit and server.rate_burst must be > 0")
		}
		if c.Upload.MaxMB <= 0 {
			errs = append(errs, "upload.max_mb must be > 0")
		}
	case "store":
		checkStore()
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

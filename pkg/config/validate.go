package config

import (
	"fmt"
	"time"

	"course-archiver/pkg/parse"
	"course-archiver/pkg/utils"
)

// Validate checks AppConfig fields and applies sensible defaults.
// Returns collected warnings and any fatal error.
// Modifies receiver in place to apply defaults.
func (c *AppConfig) Validate() (warnings []string, err error) {
	// CourseURL
	if c.CourseURL == "" {
		return warnings, fmt.Errorf("%w: course_url is required", utils.ErrConfigValidation)
	}
	_, parsed, parseErr := parse.ParseAndNormalize(c.CourseURL)
	if parseErr != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return warnings, fmt.Errorf("%w: course_url %q is not an absolute http(s) URL", utils.ErrConfigValidation, c.CourseURL)
	}

	// VideoFormat
	if c.VideoFormat == "" {
		c.VideoFormat = "mp4"
	}
	if !IsVideoFormat(c.VideoFormat) {
		return warnings, fmt.Errorf("%w: video_format must be webm or mp4, got %q", utils.ErrConfigValidation, c.VideoFormat)
	}

	// OutputDir
	if c.OutputDir == "" {
		warnings = append(warnings, "output_dir is empty, defaulting to './archive'")
		c.OutputDir = "./archive"
	}

	// BuildDir
	if c.BuildDir == "" {
		c.BuildDir = c.OutputDir + "/build"
	}

	// DefaultUserAgent
	if c.DefaultUserAgent == "" {
		c.DefaultUserAgent = "Mozilla/5.0"
	}

	// MaxRetries
	if c.MaxRetries < 0 {
		warnings = append(warnings, "max_retries cannot be negative, setting to 0")
		c.MaxRetries = 0
	}
	if c.MaxRetries == 0 && c.InitialRetryDelay == 0 {
		c.MaxRetries = 3
	}

	// Retry delays (only if retries enabled)
	if c.MaxRetries > 0 {
		if c.InitialRetryDelay <= 0 {
			c.InitialRetryDelay = 1 * time.Second
		}
		if c.MaxRetryDelay <= 0 {
			c.MaxRetryDelay = 30 * time.Second
		}
	}

	// InitialRetryDelay > MaxRetryDelay check
	if c.InitialRetryDelay > c.MaxRetryDelay && c.MaxRetryDelay > 0 {
		warnings = append(warnings, fmt.Sprintf(
			"initial_retry_delay (%v) > max_retry_delay (%v), using max_retry_delay for initial",
			c.InitialRetryDelay, c.MaxRetryDelay))
		c.InitialRetryDelay = c.MaxRetryDelay
	}

	// MetadataProbeAttempts
	if c.MetadataProbeAttempts <= 0 {
		c.MetadataProbeAttempts = 5
	}

	// MaxConcurrentRequests
	if c.MaxConcurrentRequests <= 0 {
		warnings = append(warnings, "max_concurrent_requests should be > 0, defaulting to 4")
		c.MaxConcurrentRequests = 4
	}

	// MetadataFilename
	if c.MetadataFilename == "" {
		c.MetadataFilename = "metadata.yaml"
	}

	// HTTP client defaults
	if c.HTTPClientSettings.Timeout <= 0 {
		c.HTTPClientSettings.Timeout = 60 * time.Second
	}
	if c.HTTPClientSettings.MaxIdleConns <= 0 {
		c.HTTPClientSettings.MaxIdleConns = 100
	}
	if c.HTTPClientSettings.MaxIdleConnsPerHost <= 0 {
		c.HTTPClientSettings.MaxIdleConnsPerHost = 10
	}
	if c.HTTPClientSettings.IdleConnTimeout <= 0 {
		c.HTTPClientSettings.IdleConnTimeout = 90 * time.Second
	}
	if c.HTTPClientSettings.TLSHandshakeTimeout <= 0 {
		c.HTTPClientSettings.TLSHandshakeTimeout = 10 * time.Second
	}
	if c.HTTPClientSettings.DialerTimeout <= 0 {
		c.HTTPClientSettings.DialerTimeout = 30 * time.Second
	}
	if c.HTTPClientSettings.DialerKeepAlive <= 0 {
		c.HTTPClientSettings.DialerKeepAlive = 30 * time.Second
	}

	return warnings, nil
}

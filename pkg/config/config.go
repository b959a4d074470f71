package config

import (
	"strings"
	"time"
)

// InstanceConfig holds per-platform-instance settings: where to log in and
// how course URLs on that instance are shaped.
type InstanceConfig struct {
	InstanceURL    string `yaml:"instance_url"`             // Scheme + host, e.g. https://courses.example.org
	LoginPage      string `yaml:"login_page"`               // Login POST path, e.g. /login_ajax
	CoursePrefix   string `yaml:"course_prefix"`            // Path prefix for course pages, e.g. /courses/
	CoursePageName string `yaml:"course_page_name"`         // Trailing course page segment, e.g. /course/
	FaviconURL     string `yaml:"favicon_url,omitempty"`    // Instance favicon (fallback chain applies if empty)
	HomepageClass  string `yaml:"homepage_class,omitempty"` // CSS class of the welcome message container
}

// CacheConfig holds the optimization-cache settings. An empty Dir disables
// the cache entirely; cache failures never fail a run either way.
type CacheConfig struct {
	Dir                    string `yaml:"dir,omitempty"`                       // Cache root (badger metadata + blob files)
	UseAnyOptimizedVersion bool   `yaml:"use_any_optimized_version,omitempty"` // Accept entries from any optimizer version
}

// AppConfig holds the global application configuration
type AppConfig struct {
	CourseURL              string        `yaml:"course_url"`
	Email                  string        `yaml:"email"`
	VideoFormat            string        `yaml:"video_format,omitempty"` // "webm" or "mp4"
	LowQuality             bool          `yaml:"low_quality,omitempty"`
	Autoplay               bool          `yaml:"autoplay,omitempty"`
	IgnoreUnsupportedUnits bool          `yaml:"ignore_unsupported_units,omitempty"` // Placeholder instead of abort on unknown unit kinds
	OutputDir              string        `yaml:"output_dir"`
	BuildDir               string        `yaml:"build_dir,omitempty"`
	DefaultUserAgent       string        `yaml:"default_user_agent,omitempty"`
	MaxRetries             int           `yaml:"max_retries,omitempty"`
	InitialRetryDelay      time.Duration `yaml:"initial_retry_delay,omitempty"`
	MaxRetryDelay          time.Duration `yaml:"max_retry_delay,omitempty"`
	MetadataProbeAttempts  int           `yaml:"metadata_probe_attempts,omitempty"` // HEAD probe retries before degrading to no cache key
	MaxConcurrentRequests  int           `yaml:"max_concurrent_requests,omitempty"` // Weighted semaphore bound on in-flight HTTP
	MetadataFilename       string        `yaml:"metadata_filename,omitempty"`       // Archive summary YAML written beside the build

	HTTPClientSettings HTTPClientConfig          `yaml:"http_client_settings,omitempty"`
	Cache              CacheConfig               `yaml:"cache,omitempty"`
	Instances          map[string]InstanceConfig `yaml:"instances,omitempty"` // Keyed by instance host; "default" is the fallback
}

// HTTPClientConfig holds settings for the shared HTTP client
type HTTPClientConfig struct {
	Timeout               time.Duration `yaml:"timeout,omitempty"`                 // Overall request timeout
	MaxIdleConns          int           `yaml:"max_idle_conns,omitempty"`          // Max total idle connections
	MaxIdleConnsPerHost   int           `yaml:"max_idle_conns_per_host,omitempty"` // Max idle connections per host
	IdleConnTimeout       time.Duration `yaml:"idle_conn_timeout,omitempty"`       // Timeout for idle connections
	TLSHandshakeTimeout   time.Duration `yaml:"tls_handshake_timeout,omitempty"`   // Timeout for TLS handshake
	ExpectContinueTimeout time.Duration `yaml:"expect_continue_timeout,omitempty"` // Timeout for 100-continue
	ForceAttemptHTTP2     *bool         `yaml:"force_attempt_http2,omitempty"`     // Explicitly enable/disable HTTP/2 attempt (use pointer for tri-state: nil=default, true=force, false=disable)
	DialerTimeout         time.Duration `yaml:"dialer_timeout,omitempty"`          // Connection dial timeout
	DialerKeepAlive       time.Duration `yaml:"dialer_keep_alive,omitempty"`       // TCP keep-alive interval
}

// defaultInstance is used for hosts with no explicit instances entry.
var defaultInstance = InstanceConfig{
	LoginPage:      "/login_ajax",
	CoursePrefix:   "/courses/",
	CoursePageName: "/course/",
	HomepageClass:  "welcome-message",
}

// InstanceForHost returns the instance configuration for a course host.
// An explicit entry wins; otherwise the "default" entry (if configured) or
// the built-in default is specialized with the host's URL.
func (c *AppConfig) InstanceForHost(host string) InstanceConfig {
	if inst, ok := c.Instances[host]; ok {
		if inst.InstanceURL == "" {
			inst.InstanceURL = "https://" + host
		}
		return inst
	}
	inst := defaultInstance
	if fallback, ok := c.Instances["default"]; ok {
		inst = fallback
	}
	inst.InstanceURL = "https://" + host
	return inst
}

// PathPrefix returns the known course path prefix on the instance for a
// (decoded) course identifier. Links under this prefix are candidates for
// localization; everything else root-relative falls back to the live site.
func (i InstanceConfig) PathPrefix(courseID string) string {
	return i.CoursePrefix + courseID
}

// IsVideoFormat reports whether v is a supported target container.
func IsVideoFormat(v string) bool {
	switch strings.ToLower(v) {
	case "webm", "mp4":
		return true
	}
	return false
}

package utils

import (
	"context"
	"errors"
	"net"
	"os"
	"strings"
)

// --- Sentinel Errors for Categorization ---
var (
	ErrRetryFailed       = errors.New("request failed after all retries") // Wraps the last underlying error
	ErrClientHTTPError   = errors.New("client HTTP error (4xx)")          // Wraps original error/status
	ErrServerHTTPError   = errors.New("server HTTP error (5xx)")          // Wraps original error/status
	ErrOtherHTTPError    = errors.New("other HTTP error (non-2xx)")       // Wraps original error/status
	ErrLoginFailed       = errors.New("login rejected by instance")
	ErrRequiredResource  = errors.New("required resource unavailable") // Homepage, tab listing etc. - fatal for the run
	ErrUnsupportedUnit   = errors.New("unsupported content unit type")
	ErrExtensionFiltered = errors.New("extension not in allowlist")
	ErrOptimization      = errors.New("optimization failed") // Wraps exec/encoder errors
	ErrMissingBinary     = errors.New("required binary not found on PATH")
	ErrParsing           = errors.New("parsing error")    // Wraps specific parsing error (HTML, URL, JSON, CSS)
	ErrFilesystem        = errors.New("filesystem error") // Wraps os errors
	ErrCache             = errors.New("cache error")      // Wraps badger/blob errors; always degraded to a miss
	ErrRequestCreation   = errors.New("failed to create HTTP request")
	ErrResponseBodyRead  = errors.New("failed to read response body")
	ErrConfigValidation  = errors.New("configuration validation error")
)

// CategorizeError maps an error to a predefined category string for logging/metrics.
func CategorizeError(err error) string {
	if err == nil {
		return "None"
	}

	// Check against sentinel errors first
	switch {
	case errors.Is(err, ErrRetryFailed):
		underlying := errors.Unwrap(err)
		if underlying != nil {
			if errors.Is(underlying, ErrServerHTTPError) {
				return "RetryFailed_HTTPServer"
			}
			if errors.Is(underlying, ErrClientHTTPError) {
				return "RetryFailed_HTTPClient"
			}

			// Check for common network error substrings if wrapped error isn't a known sentinel
			errMsg := underlying.Error()
			if strings.Contains(errMsg, "timeout") || strings.Contains(errMsg, "Timeout") || strings.Contains(errMsg, "deadline exceeded") {
				return "RetryFailed_NetworkTimeout"
			}
			if strings.Contains(errMsg, "connection refused") {
				return "RetryFailed_ConnectionRefused"
			}
			if strings.Contains(errMsg, "no such host") {
				return "RetryFailed_DNSLookup"
			}
			var netErr net.Error
			if errors.As(underlying, &netErr) {
				if netErr.Timeout() {
					return "RetryFailed_NetworkTimeout"
				}
			}
			return "RetryFailed_NetworkOther" // Catch-all for other network errors after retry
		}
		return "RetryFailed_Unknown" // Retry failed, but couldn't identify underlying cause
	case errors.Is(err, ErrClientHTTPError):
		// Could try to extract exact 4xx code if needed, but category is often enough
		errMsg := err.Error()
		if strings.Contains(errMsg, " 404 ") {
			return "HTTP_404"
		}
		if strings.Contains(errMsg, " 403 ") {
			return "HTTP_403"
		}
		if strings.Contains(errMsg, " 401 ") {
			return "HTTP_401"
		}
		if strings.Contains(errMsg, " 429 ") {
			return "HTTP_429"
		}
		return "HTTP_4xx" // Generic 4xx
	case errors.Is(err, ErrServerHTTPError):
		return "HTTP_5xx"
	case errors.Is(err, ErrOtherHTTPError):
		return "HTTP_OtherStatus"
	case errors.Is(err, ErrLoginFailed):
		return "Auth_Login"
	case errors.Is(err, ErrRequiredResource):
		return "Required_Resource"
	case errors.Is(err, ErrUnsupportedUnit):
		return "Unit_Unsupported"
	case errors.Is(err, ErrExtensionFiltered):
		return "Asset_ExtensionFiltered"
	case errors.Is(err, ErrOptimization):
		return "Media_Optimization"
	case errors.Is(err, ErrMissingBinary):
		return "Media_MissingBinary"
	case errors.Is(err, ErrParsing):
		errMsg := err.Error()
		if strings.Contains(errMsg, "URL") {
			return "Content_ParsingURL"
		}
		if strings.Contains(errMsg, "HTML") {
			return "Content_ParsingHTML"
		}
		if strings.Contains(errMsg, "JSON") {
			return "Content_ParsingJSON"
		}
		if strings.Contains(errMsg, "CSS") {
			return "Content_ParsingCSS"
		}
		return "Content_ParsingOther"
	case errors.Is(err, ErrFilesystem):
		if errors.Is(err, os.ErrPermission) {
			return "Filesystem_Permission"
		}
		if errors.Is(err, os.ErrNotExist) {
			return "Filesystem_NotExist"
		}
		if errors.Is(err, os.ErrExist) {
			return "Filesystem_Exist"
		}
		return "Filesystem_Other"
	case errors.Is(err, ErrCache):
		// Cache failures are always demoted to misses; the category exists for logging only
		return "Cache_Other"
	case errors.Is(err, ErrRequestCreation):
		return "Internal_RequestCreation"
	case errors.Is(err, ErrResponseBodyRead):
		return "Network_BodyRead"
	case errors.Is(err, ErrConfigValidation):
		return "Config_Validation"
	}

	// --- Fallback checks for common underlying error types/strings ---

	// Context errors
	if errors.Is(err, context.Canceled) {
		return "System_ContextCanceled"
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "System_ContextDeadlineExceeded"
	}

	// Network errors (if not wrapped by custom sentinels)
	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return "Network_Timeout"
		}
	}
	errMsg := err.Error()
	// Use lowercase for reliable substring checks
	lowerErrMsg := strings.ToLower(errMsg)
	if strings.Contains(lowerErrMsg, "timeout") {
		return "Network_TimeoutGeneric"
	}
	if strings.Contains(lowerErrMsg, "connection refused") {
		return "Network_ConnectionRefused"
	}
	if strings.Contains(lowerErrMsg, "no such host") {
		return "Network_DNSLookup"
	}
	if strings.Contains(lowerErrMsg, "tls") || strings.Contains(lowerErrMsg, "certificate") {
		return "Network_TLS"
	}
	if strings.Contains(lowerErrMsg, "reset by peer") {
		return "Network_ConnectionReset"
	}
	if strings.Contains(lowerErrMsg, "broken pipe") {
		return "Network_BrokenPipe"
	}

	return "Unknown"
}

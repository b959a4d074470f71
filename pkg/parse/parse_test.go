package parse

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want Classification
	}{
		{"data URI", "data:image/png;base64,AAA=", ClassOpaque},
		{"fragment", "#section-2", ClassOpaque},
		{"empty scheme relative", "://", ClassOpaque},
		{"other host", "https://cdn.example.org/a.js", ClassExternal},
		{"same host", "https://lms.example.com/static/a.css", ClassInternal},
		{"root relative", "/static/a.css", ClassInternal},
		{"relative", "images/logo.png", ClassInternal},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Classify(tc.raw, "lms.example.com"))
		})
	}
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name       string
		raw        string
		netloc     string
		serverPath string
		want       string
	}{
		{"absolute kept", "https://cdn.example.org/a.js", "https://lms.example.com", "/courses", "https://cdn.example.org/a.js"},
		{"scheme relative inherits scheme", "//cdn.example.org/a.js", "https://lms.example.com", "/courses", "https://cdn.example.org/a.js"},
		{"host rooted ignores server path", "/static/logo.png", "https://lms.example.com", "/courses/demo", "https://lms.example.com/static/logo.png"},
		{"relative joins server path", "logo.png", "https://lms.example.com", "/assets/css", "https://lms.example.com/assets/css/logo.png"},
		{"relative with parent step", "../fonts/a.woff", "https://lms.example.com", "/assets/css", "https://lms.example.com/assets/fonts/a.woff"},
		{"empty server path", "logo.png", "https://lms.example.com", "", "https://lms.example.com/logo.png"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Resolve(tc.raw, tc.netloc, tc.serverPath)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestSplitLocation(t *testing.T) {
	t.Run("file path contributes parent dir", func(t *testing.T) {
		netloc, serverPath := SplitLocation("https://lms.example.com", "/courses", "https://cdn.example.org/assets/css/site.css")
		assert.Equal(t, "https://cdn.example.org", netloc)
		assert.Equal(t, "/assets/css", serverPath)
	})

	t.Run("extensionless path is a directory", func(t *testing.T) {
		netloc, serverPath := SplitLocation("https://lms.example.com", "/courses", "/xblock/resource")
		assert.Equal(t, "https://lms.example.com", netloc)
		assert.Equal(t, "/xblock/resource", serverPath)
	})

	t.Run("no path keeps current", func(t *testing.T) {
		netloc, serverPath := SplitLocation("https://lms.example.com", "/courses", "https://cdn.example.org")
		assert.Equal(t, "https://cdn.example.org", netloc)
		assert.Equal(t, "/courses", serverPath)
	})
}

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"default https port stripped", "https://Example.COM:443/a/", "https://example.com/a"},
		{"default http port stripped", "http://example.com:80/", "http://example.com/"},
		{"query and fragment dropped", "https://example.com/a?b=1#c", "https://example.com/a"},
		{"empty path becomes root", "https://example.com", "https://example.com/"},
		{"non-default port kept", "https://example.com:8443/a", "https://example.com:8443/a"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			u, err := url.Parse(tc.in)
			require.NoError(t, err)
			assert.Equal(t, tc.want, NormalizeURL(u))
		})
	}
}

func TestParseAndNormalizeRejectsSchemeless(t *testing.T) {
	_, _, err := ParseAndNormalize("example.com/a")
	assert.Error(t, err)
}

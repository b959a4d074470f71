package tree

import (
	"net/url"
	"strings"
	"sync"
)

// AnnexFunc archives an extra course page reached from the tab bar and
// returns its archive path. ok=false means the page type is unsupported.
type AnnexFunc func(tabHref, tabOrgPath string) (string, bool)

// TabRegistry maps course tab links onto archive pages. Course navigation
// and info tabs map onto fixed pages; other tabs get archived on first
// sight through the annex callback and remembered. Safe for concurrent use;
// the annex callback runs under the registry lock, so it is invoked at most
// once per tab and may touch shared state without its own locking.
type TabRegistry struct {
	courseFolder string
	annex        AnnexFunc

	mu sync.Mutex
	// tabs collects resolved tabs, name to archive path, in encounter order.
	tabs  map[string]string
	order []string
	// archived remembers annexed extra pages by their path on the instance.
	archived map[string]string
}

// NewTabRegistry creates a registry for a course whose root unit lives in
// courseFolder. annex may be nil to disable extra page archiving.
func NewTabRegistry(courseFolder string, annex AnnexFunc) *TabRegistry {
	return &TabRegistry{
		courseFolder: courseFolder,
		annex:        annex,
		tabs:         make(map[string]string),
		archived:     make(map[string]string),
	}
}

// Register resolves a tab from its bar entry and remembers it. It returns
// the tab's display name and archive path; ok=false means the tab cannot be
// archived.
func (r *TabRegistry) Register(tabText, tabHref string) (string, string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	orgPath := tabOrgPath(tabHref)

	name := strings.TrimSpace(tabText)
	var tabPath string

	switch {
	case orgPath == "course" || strings.Contains(orgPath, "courseware"):
		name = strings.ReplaceAll(name, ", current location", "")
		tabPath = "course/" + r.courseFolder + "/index.html"
	case strings.Contains(orgPath, "info"):
		name = strings.ReplaceAll(name, ", current location", "")
		tabPath = "/index.html"
	case strings.Contains(orgPath, "wiki") || strings.Contains(orgPath, "forum"):
		return "", "", false
	default:
		archived, seen := r.archived[orgPath]
		if !seen {
			if r.annex == nil {
				return "", "", false
			}
			var ok bool
			archived, ok = r.annex(tabHref, orgPath)
			if !ok {
				return "", "", false
			}
			r.archived[orgPath] = archived
		}
		tabPath = archived
	}

	if name != "" {
		if _, known := r.tabs[name]; !known {
			r.order = append(r.order, name)
		}
		r.tabs[name] = tabPath
	}
	return name, tabPath, true
}

// TabPath resolves an in-content link to a tab without registering a new
// name, archiving the tab's page on first sight just like Register.
func (r *TabRegistry) TabPath(href string) (string, bool) {
	_, tabPath, ok := r.Register("", href)
	if !ok || tabPath == "" {
		return "", false
	}
	return tabPath, true
}

// Names returns the registered tab names in encounter order.
func (r *TabRegistry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}

// Path returns the archive path registered under a tab name.
func (r *TabRegistry) Path(name string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.tabs[name]
}

// tabOrgPath is a tab page's name on the instance: the last path segment of
// its link, query and trailing slash stripped.
func tabOrgPath(href string) string {
	if parsed, err := url.Parse(href); err == nil {
		href = parsed.Path
	}
	href = strings.TrimSuffix(href, "/")
	if i := strings.LastIndex(href, "/"); i >= 0 {
		href = href[i+1:]
	}
	return href
}

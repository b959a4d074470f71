package session

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"

	"course-archiver/pkg/config"
	"course-archiver/pkg/fetch"
	"course-archiver/pkg/utils"
)

const userAgent = "Mozilla/5.0"

// Session is an authenticated connection to one instance. All page and API
// requests go through it, bounded by the configured concurrency limit.
type Session struct {
	client   *http.Client
	fetcher  *fetch.Fetcher
	cfg      *config.AppConfig
	instance config.InstanceConfig
	sem      *semaphore.Weighted
	log      *logrus.Entry

	csrfToken string
	// User is the username of the logged-in account, needed by API URLs.
	User string
}

// New builds an unauthenticated session for the given instance.
func New(cfg *config.AppConfig, instance config.InstanceConfig, logger *logrus.Entry) (*Session, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("creating cookie jar: %w", err)
	}
	client := fetch.NewClient(cfg.HTTPClientSettings, logger)
	client.Jar = jar

	return &Session{
		client:   client,
		fetcher:  fetch.NewFetcher(client, cfg, logger),
		cfg:      cfg,
		instance: instance,
		sem:      semaphore.NewWeighted(int64(cfg.MaxConcurrentRequests)),
		log:      logger,
	}, nil
}

// Fetcher exposes the session's retrying fetcher, which shares the
// session's cookies.
func (s *Session) Fetcher() *fetch.Fetcher {
	return s.fetcher
}

// Login authenticates against the instance: a GET on the login page seeds
// the CSRF cookie, then the credentials are posted with that token.
func (s *Session) Login(ctx context.Context, email, password string) error {
	if err := s.seedCSRFToken(ctx); err != nil {
		return err
	}

	form := url.Values{}
	form.Set("email", email)
	form.Set("password", password)
	form.Set("remember", "false")

	req, err := http.NewRequestWithContext(ctx, "POST", s.instance.InstanceURL+s.instance.LoginPage, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("%w: login request: %w", utils.ErrRequestCreation, err)
	}
	s.applyHeaders(req, true)

	resp, err := s.fetcher.FetchWithRetry(req, ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", utils.ErrLoginFailed, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: reading login response: %w", utils.ErrResponseBodyRead, err)
	}
	var result struct {
		Success bool   `json:"success"`
		Value   string `json:"value"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return fmt.Errorf("%w: decoding login response: %w", utils.ErrParsing, err)
	}
	if !result.Success {
		return fmt.Errorf("%w: instance rejected the credentials: %s", utils.ErrLoginFailed, result.Value)
	}

	// The user info cookie is read off the raw header: its value carries
	// backslash escapes the cookie jar refuses to store.
	s.User = usernameFromSetCookie(resp.Header.Values("Set-Cookie"))
	s.log.WithField("user", s.User).Info("Successfully logged in")
	return nil
}

// seedCSRFToken loads the login page so the instance sets its CSRF cookie.
func (s *Session) seedCSRFToken(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, "GET", s.instance.InstanceURL+"/login", nil)
	if err != nil {
		return fmt.Errorf("%w: login page request: %w", utils.ErrRequestCreation, err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := s.fetcher.FetchWithRetry(req, ctx)
	if err != nil {
		return fmt.Errorf("%w: loading login page: %w", utils.ErrLoginFailed, err)
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	instanceURL, err := url.Parse(s.instance.InstanceURL)
	if err != nil {
		return fmt.Errorf("%w: instance URL %q: %w", utils.ErrParsing, s.instance.InstanceURL, err)
	}
	for _, cookie := range s.client.Jar.Cookies(instanceURL) {
		if cookie.Name == "csrftoken" {
			s.csrfToken = cookie.Value
			return nil
		}
	}
	s.log.Warn("Instance did not set a CSRF cookie, continuing without one")
	return nil
}

// usernameFromSetCookie extracts the username from the user info cookie in
// raw Set-Cookie headers. The cookie holds JSON with octal-escaped commas.
func usernameFromSetCookie(headers []string) string {
	for _, header := range headers {
		name, rest, found := strings.Cut(header, "=")
		if !found || (name != "edx-user-info" && name != "prod-edx-user-info") {
			continue
		}
		raw := rest
		if idx := strings.IndexByte(raw, ';'); idx >= 0 {
			raw = raw[:idx]
		}
		raw = strings.ReplaceAll(raw, `\054`, ",")
		raw = strings.Trim(strings.TrimSpace(raw), `"`)
		raw = strings.ReplaceAll(raw, `\"`, `"`)
		var info struct {
			Username string `json:"username"`
		}
		if err := json.Unmarshal([]byte(raw), &info); err != nil {
			return ""
		}
		return info.Username
	}
	return ""
}

// GetAPIJSON requests an API path on the instance and decodes the JSON
// response into out. A non-nil postData turns the request into a form POST.
func (s *Session) GetAPIJSON(ctx context.Context, page string, postData url.Values, out any) error {
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer s.sem.Release(1)

	var req *http.Request
	var err error
	if postData != nil {
		req, err = http.NewRequestWithContext(ctx, "POST", s.instance.InstanceURL+page, strings.NewReader(postData.Encode()))
	} else {
		req, err = http.NewRequestWithContext(ctx, "GET", s.instance.InstanceURL+page, nil)
	}
	if err != nil {
		return fmt.Errorf("%w: API request for '%s': %w", utils.ErrRequestCreation, page, err)
	}
	s.applyHeaders(req, true)

	resp, err := s.fetcher.FetchWithRetry(req, ctx)
	if err != nil {
		return fmt.Errorf("API request for '%s' failed: %w", page, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: reading API response for '%s': %w", utils.ErrResponseBodyRead, page, err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: decoding API response for '%s': %w", utils.ErrParsing, page, err)
	}
	return nil
}

// GetPage fetches an HTML page through the authenticated session.
func (s *Session) GetPage(ctx context.Context, pageURL string) (string, error) {
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer s.sem.Release(1)

	req, err := http.NewRequestWithContext(ctx, "GET", pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("%w: page request for '%s': %w", utils.ErrRequestCreation, pageURL, err)
	}
	s.applyHeaders(req, false)

	resp, err := s.fetcher.FetchWithRetry(req, ctx)
	if err != nil {
		return "", fmt.Errorf("page request for '%s' failed: %w", pageURL, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: reading page '%s': %w", utils.ErrResponseBodyRead, pageURL, err)
	}
	return string(body), nil
}

// GetRedirection returns the final URL a request for rawURL lands on.
func (s *Session) GetRedirection(ctx context.Context, rawURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("%w: redirect probe for '%s': %w", utils.ErrRequestCreation, rawURL, err)
	}
	s.applyHeaders(req, false)

	resp, err := s.fetcher.FetchWithRetry(req, ctx)
	if err != nil {
		return "", fmt.Errorf("redirect probe for '%s' failed: %w", rawURL, err)
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	return resp.Request.URL.String(), nil
}

// applyHeaders sets the browser-like headers the instance expects. API
// requests carry the XHR marker and CSRF token, page requests do not.
func (s *Session) applyHeaders(req *http.Request, api bool) {
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json, text/javascript, */*; q=0.01")
	req.Header.Set("Referer", s.instance.InstanceURL+s.instance.LoginPage)
	if api {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded;charset=utf-8")
		req.Header.Set("X-Requested-With", "XMLHttpRequest")
		if s.csrfToken != "" {
			req.Header.Set("X-CSRFToken", s.csrfToken)
		}
	}
}

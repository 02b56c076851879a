package docstore

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	cfg "git.home.luguber.info/inful/statebox/internal/config"
)

// GitHubStore implements Store on top of the GitHub repository contents API.
// The blob SHA returned by the API serves as the version token; the API
// rejects a PUT whose sha no longer matches the file, which gives us the
// compare-and-swap precondition for free.
type GitHubStore struct {
	httpClient *http.Client
	apiURL     string
	owner      string
	repo       string
	branch     string
	token      string
}

// NewGitHubStore creates a contents-API backed store from config.
func NewGitHubStore(sc cfg.StoreConfig) (*GitHubStore, error) {
	if sc.Owner == "" || sc.Repo == "" {
		return nil, fmt.Errorf("github store requires owner and repo")
	}
	token := sc.Token()
	if token == "" {
		return nil, fmt.Errorf("github store requires a bearer token in the environment")
	}

	s := &GitHubStore{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		apiURL:     sc.APIURL,
		owner:      sc.Owner,
		repo:       sc.Repo,
		branch:     sc.Branch,
		token:      token,
	}
	if s.apiURL == "" {
		s.apiURL = "https://api.github.com"
	}
	if s.branch == "" {
		s.branch = "main"
	}
	return s, nil
}

// githubContent is the contents-API representation of a file.
type githubContent struct {
	Type     string `json:"type"`
	SHA      string `json:"sha"`
	Path     string `json:"path"`
	Content  string `json:"content"`
	Encoding string `json:"encoding"`
}

// githubWriteResult is the response body of a contents PUT.
type githubWriteResult struct {
	Content *githubContent `json:"content"`
}

// githubWriteRequest is the request body of a contents PUT.
type githubWriteRequest struct {
	Message string `json:"message"`
	Content string `json:"content"`
	Branch  string `json:"branch"`
	SHA     string `json:"sha,omitempty"`
}

// Exists reports whether a document exists at the path.
func (s *GitHubStore) Exists(ctx context.Context, docPath string) (bool, error) {
	req, err := s.newRequest(ctx, http.MethodGet, s.contentsEndpoint(docPath, true), nil)
	if err != nil {
		return false, err
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("check %s: %w", docPath, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	default:
		return false, fmt.Errorf("check %s: unexpected status %s", docPath, resp.Status)
	}
}

// Read returns the document content and its blob SHA.
func (s *GitHubStore) Read(ctx context.Context, docPath string) (string, Version, error) {
	req, err := s.newRequest(ctx, http.MethodGet, s.contentsEndpoint(docPath, true), nil)
	if err != nil {
		return "", "", err
	}

	var gc githubContent
	if err := s.doRequest(req, &gc); err != nil {
		if isStatus(err, http.StatusNotFound) {
			return "", "", &NotFoundError{Path: docPath}
		}
		return "", "", fmt.Errorf("read %s: %w", docPath, err)
	}

	content, err := decodeContent(&gc)
	if err != nil {
		return "", "", fmt.Errorf("read %s: %w", docPath, err)
	}
	return content, Version(gc.SHA), nil
}

// Create stores a new document. Fails if the path already exists.
func (s *GitHubStore) Create(ctx context.Context, docPath, content string) (Version, error) {
	v, err := s.put(ctx, docPath, content, "")
	if err != nil {
		// The API answers 422 when a sha is required, i.e. the file exists.
		if isStatus(err, http.StatusUnprocessableEntity) {
			return "", &AlreadyExistsError{Path: docPath}
		}
		return "", fmt.Errorf("create %s: %w", docPath, err)
	}
	return v, nil
}

// Write replaces the document, guarded by the expected blob SHA.
func (s *GitHubStore) Write(ctx context.Context, docPath, content string, expected Version) (Version, error) {
	v, err := s.put(ctx, docPath, content, string(expected))
	if err != nil {
		if isStatus(err, http.StatusConflict) || isStatus(err, http.StatusUnprocessableEntity) {
			return "", s.conflictError(ctx, docPath, expected)
		}
		return "", fmt.Errorf("write %s: %w", docPath, err)
	}
	return v, nil
}

// conflictError enriches a stale-sha rejection with the current remote token.
// The follow-up read is best effort; the conflict stands either way.
func (s *GitHubStore) conflictError(ctx context.Context, docPath string, expected Version) error {
	actual := Version("")
	if _, v, err := s.Read(ctx, docPath); err == nil {
		actual = v
	}
	return &VersionConflictError{Path: docPath, Expected: expected, Actual: actual}
}

func (s *GitHubStore) put(ctx context.Context, docPath, content, sha string) (Version, error) {
	body := githubWriteRequest{
		Message: "statebox: update " + docPath,
		Content: base64.StdEncoding.EncodeToString([]byte(content)),
		Branch:  s.branch,
		SHA:     sha,
	}
	req, err := s.newRequest(ctx, http.MethodPut, s.contentsEndpoint(docPath, false), body)
	if err != nil {
		return "", err
	}

	var result githubWriteResult
	if err := s.doRequest(req, &result); err != nil {
		return "", err
	}
	if result.Content == nil {
		return "", fmt.Errorf("contents API returned no content object")
	}
	return Version(result.Content.SHA), nil
}

func (s *GitHubStore) contentsEndpoint(docPath string, withRef bool) string {
	endpoint := fmt.Sprintf("/repos/%s/%s/contents/%s", s.owner, s.repo, docPath)
	if withRef {
		endpoint += "?ref=" + url.QueryEscape(s.branch)
	}
	return endpoint
}

func decodeContent(gc *githubContent) (string, error) {
	if gc.Encoding != "base64" {
		return "", fmt.Errorf("unexpected content encoding %q", gc.Encoding)
	}
	// GitHub wraps base64 payloads with newlines.
	raw, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(gc.Content, "\n", ""))
	if err != nil {
		return "", fmt.Errorf("decode content: %w", err)
	}
	return string(raw), nil
}

// statusError preserves the HTTP status code for classification.
type statusError struct {
	Code   int
	Status string
	Body   string
}

func (e *statusError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("GitHub API error: %s: %s", e.Status, e.Body)
	}
	return "GitHub API error: " + e.Status
}

func isStatus(err error, code int) bool {
	var se *statusError
	if errors.As(err, &se) {
		return se.Code == code
	}
	return false
}

func (s *GitHubStore) newRequest(ctx context.Context, method, endpoint string, body interface{}) (*http.Request, error) {
	u, err := url.Parse(s.apiURL)
	if err != nil {
		return nil, err
	}
	rawQuery := ""
	if i := strings.IndexByte(endpoint, '?'); i >= 0 {
		rawQuery = endpoint[i+1:]
		endpoint = endpoint[:i]
	}
	u.Path = path.Join(u.Path, endpoint)
	u.RawQuery = rawQuery

	var req *http.Request
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		req, err = http.NewRequestWithContext(ctx, method, u.String(), bytes.NewReader(jsonBody))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
	} else {
		var err error
		req, err = http.NewRequestWithContext(ctx, method, u.String(), nil)
		if err != nil {
			return nil, err
		}
	}

	req.Header.Set("Authorization", "Bearer "+s.token)
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
	req.Header.Set("User-Agent", "StateBox/1.0")

	return req, nil
}

func (s *GitHubStore) doRequest(req *http.Request, result interface{}) error {
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var buf bytes.Buffer
		_, _ = buf.ReadFrom(resp.Body)
		return &statusError{Code: resp.StatusCode, Status: resp.Status, Body: strings.TrimSpace(buf.String())}
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}
	return nil
}

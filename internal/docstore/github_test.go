package docstore

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	cfg "git.home.luguber.info/inful/statebox/internal/config"
	"github.com/stretchr/testify/require"
)

// fakeContentsAPI imitates the subset of the GitHub contents API the store
// uses: GET with ref, PUT with optional sha precondition.
type fakeContentsAPI struct {
	mu    sync.Mutex
	files map[string]fakeFile
}

type fakeFile struct {
	content string
	sha     string
}

func (f *fakeContentsAPI) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()

		path := strings.TrimPrefix(r.URL.Path, "/repos/acme/release-state/contents/")

		switch r.Method {
		case http.MethodGet:
			file, ok := f.files[path]
			if !ok {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			_ = json.NewEncoder(w).Encode(map[string]any{
				"type":     "file",
				"path":     path,
				"sha":      file.sha,
				"encoding": "base64",
				"content":  base64.StdEncoding.EncodeToString([]byte(file.content)),
			})
		case http.MethodPut:
			var req struct {
				Content string `json:"content"`
				SHA     string `json:"sha"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			existing, exists := f.files[path]
			if exists && req.SHA == "" {
				w.WriteHeader(http.StatusUnprocessableEntity)
				return
			}
			if exists && req.SHA != existing.sha {
				w.WriteHeader(http.StatusConflict)
				return
			}
			raw, err := base64.StdEncoding.DecodeString(req.Content)
			if err != nil {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			sum := sha256.Sum256(raw)
			next := fakeFile{content: string(raw), sha: hex.EncodeToString(sum[:])}
			f.files[path] = next
			_ = json.NewEncoder(w).Encode(map[string]any{
				"content": map[string]any{"sha": next.sha, "path": path},
			})
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	})
}

func newGitHubTestStore(t *testing.T) (*GitHubStore, *fakeContentsAPI, *httptest.Server) {
	t.Helper()
	api := &fakeContentsAPI{files: make(map[string]fakeFile)}
	srv := httptest.NewServer(api.handler())
	t.Cleanup(srv.Close)

	t.Setenv("STATEBOX_TOKEN", "test-token")
	store, err := NewGitHubStore(cfg.StoreConfig{
		APIURL: srv.URL,
		Owner:  "acme",
		Repo:   "release-state",
		Branch: "main",
	})
	require.NoError(t, err)
	return store, api, srv
}

func TestGitHubStoreReadNotFound(t *testing.T) {
	store, _, _ := newGitHubTestStore(t)
	_, _, err := store.Read(context.Background(), "releases/4.16/statebox/4.16.9.yaml")
	require.True(t, IsNotFound(err))
}

func TestGitHubStoreCreateAndRead(t *testing.T) {
	ctx := context.Background()
	store, _, _ := newGitHubTestStore(t)

	v, err := store.Create(ctx, "releases/4.16/statebox/4.16.9.yaml", "release: 4.16.9\n")
	require.NoError(t, err)
	require.False(t, v.Zero())

	ok, err := store.Exists(ctx, "releases/4.16/statebox/4.16.9.yaml")
	require.NoError(t, err)
	require.True(t, ok)

	content, got, err := store.Read(ctx, "releases/4.16/statebox/4.16.9.yaml")
	require.NoError(t, err)
	require.Equal(t, "release: 4.16.9\n", content)
	require.Equal(t, v, got)
}

func TestGitHubStoreCreateExisting(t *testing.T) {
	ctx := context.Background()
	store, _, _ := newGitHubTestStore(t)

	_, err := store.Create(ctx, "doc.yaml", "a: 1\n")
	require.NoError(t, err)

	_, err = store.Create(ctx, "doc.yaml", "a: 2\n")
	var exists *AlreadyExistsError
	require.ErrorAs(t, err, &exists)
}

func TestGitHubStoreWriteConflict(t *testing.T) {
	ctx := context.Background()
	store, _, _ := newGitHubTestStore(t)

	v1, err := store.Create(ctx, "doc.yaml", "a: 1\n")
	require.NoError(t, err)

	v2, err := store.Write(ctx, "doc.yaml", "a: 2\n", v1)
	require.NoError(t, err)
	require.NotEqual(t, v1, v2)

	_, err = store.Write(ctx, "doc.yaml", "a: 3\n", v1)
	require.True(t, IsVersionConflict(err))

	vc, ok := AsVersionConflict(err)
	require.True(t, ok)
	require.Equal(t, v1, vc.Expected)
	require.Equal(t, v2, vc.Actual)
}

func TestGitHubStoreRequiresToken(t *testing.T) {
	t.Setenv("STATEBOX_TOKEN", "")
	_, err := NewGitHubStore(cfg.StoreConfig{Owner: "acme", Repo: "release-state"})
	require.Error(t, err)
}

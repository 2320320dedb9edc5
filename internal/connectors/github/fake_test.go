package github

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// fakeRepo serves the subset of the contents API the store uses.
type fakeRepo struct {
	mu      sync.Mutex
	files   map[string]string // full path -> text
	shas    map[string]string
	commits []string
	seq     int

	// failStatus is returned for the next failCount requests.
	failStatus int
	failCount  int

	// conflicts makes the next n writes fail with 409.
	conflicts int
	requests  int
}

func newFakeRepo(files map[string]string) *fakeRepo {
	f := &fakeRepo{files: map[string]string{}, shas: map[string]string{}}
	for p, text := range files {
		f.put(p, text)
	}
	return f
}

func (f *fakeRepo) put(p, text string) string {
	f.seq++
	f.files[p] = text
	f.shas[p] = fmt.Sprintf("sha%d", f.seq)
	return f.shas[p]
}

func (f *fakeRepo) text(p string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.files[p]
	return t, ok
}

func (f *fakeRepo) server(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(f.handle))
	t.Cleanup(srv.Close)
	return srv
}

func (f *fakeRepo) client(t *testing.T) *Client {
	t.Helper()
	c, err := NewClient(nil, WithBaseURL(f.server(t).URL), WithRate(0), WithRetryDelay(0))
	require.NoError(t, err)
	return c
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (f *fakeRepo) handle(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests++

	if f.failCount > 0 {
		f.failCount--
		writeJSON(w, f.failStatus, map[string]string{"message": "injected"})
		return
	}

	const prefix = "/repos/acme/reqs/contents"
	if !strings.HasPrefix(r.URL.Path, prefix) {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "Not Found"})
		return
	}
	p := strings.Trim(strings.TrimPrefix(r.URL.Path, prefix), "/")

	switch r.Method {
	case http.MethodGet:
		if text, ok := f.files[p]; ok {
			writeJSON(w, http.StatusOK, map[string]any{
				"type":     "file",
				"name":     p[strings.LastIndex(p, "/")+1:],
				"path":     p,
				"sha":      f.shas[p],
				"encoding": "base64",
				"content":  base64.StdEncoding.EncodeToString([]byte(text)),
			})
			return
		}
		var items []map[string]any
		dirs := map[string]bool{}
		for fp := range f.files {
			rest, ok := strings.CutPrefix(fp, p+"/")
			if p == "" {
				rest, ok = fp, true
			}
			if !ok {
				continue
			}
			if sub, _, nested := strings.Cut(rest, "/"); nested {
				dirs[sub] = true
				continue
			}
			items = append(items, map[string]any{"type": "file", "name": rest, "path": fp, "sha": f.shas[fp]})
		}
		for d := range dirs {
			items = append(items, map[string]any{"type": "dir", "name": d})
		}
		if len(items) == 0 {
			writeJSON(w, http.StatusNotFound, map[string]string{"message": "Not Found"})
			return
		}
		sort.Slice(items, func(i, j int) bool { return items[i]["name"].(string) < items[j]["name"].(string) })
		writeJSON(w, http.StatusOK, items)

	case http.MethodPut, http.MethodDelete:
		var body struct {
			Message string `json:"message"`
			Content string `json:"content"`
			SHA     string `json:"sha"`
			Branch  string `json:"branch"`
		}
		data, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(data, &body)

		if f.conflicts > 0 {
			f.conflicts--
			writeJSON(w, http.StatusConflict, map[string]string{"message": "sha mismatch"})
			return
		}
		current, exists := f.shas[p]
		if r.Method == http.MethodDelete {
			if !exists {
				writeJSON(w, http.StatusNotFound, map[string]string{"message": "Not Found"})
				return
			}
			if body.SHA != current {
				writeJSON(w, http.StatusConflict, map[string]string{"message": "sha mismatch"})
				return
			}
			delete(f.files, p)
			delete(f.shas, p)
			f.commits = append(f.commits, body.Message+"@"+body.Branch)
			writeJSON(w, http.StatusOK, map[string]any{"commit": map[string]any{"sha": "c"}})
			return
		}
		if exists && body.SHA != current {
			writeJSON(w, http.StatusConflict, map[string]string{"message": "sha mismatch"})
			return
		}
		if !exists && body.SHA != "" {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"message": "sha not expected"})
			return
		}
		decoded, err := base64.StdEncoding.DecodeString(body.Content)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"message": "bad content"})
			return
		}
		sha := f.put(p, string(decoded))
		f.commits = append(f.commits, body.Message+"@"+body.Branch)
		status := http.StatusOK
		if !exists {
			status = http.StatusCreated
		}
		writeJSON(w, status, map[string]any{"content": map[string]any{"path": p, "sha": sha}})

	default:
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"message": "no"})
	}
}

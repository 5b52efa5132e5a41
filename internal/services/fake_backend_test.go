package services_test

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"resumematch/scanner-web/internal/repositories"
	"resumematch/scanner-web/internal/services"
)

const fakeToken = "tok-alice"

var fakeSkills = []string{"Python", "React", "PostgreSQL", "Docker", "REST"}

// fakeBackend mimics the scoring backend's REST surface closely enough for
// the client to be exercised end to end.
type fakeBackend struct {
	mu sync.Mutex

	users map[string]string
	saved []map[string]any

	// loginBody overrides the login success payload when set.
	loginBody any
	meStatus  int
	scanBody  any
	delay     time.Duration

	authHeaders map[string][]string
	calls       map[string]int
	lastScanCT  string
	lastForm    map[string]string

	server *httptest.Server
}

func newFakeBackend(t *testing.T) *fakeBackend {
	t.Helper()
	b := &fakeBackend{
		users:       map[string]string{},
		meStatus:    http.StatusOK,
		authHeaders: map[string][]string{},
		calls:       map[string]int{},
	}
	b.server = httptest.NewServer(http.HandlerFunc(b.serve))
	t.Cleanup(b.server.Close)
	return b
}

func (b *fakeBackend) URL() string { return b.server.URL }

func (b *fakeBackend) headersFor(path string) []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.authHeaders[path]...)
}

func (b *fakeBackend) callCount(path string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[path]
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func fail(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"status": "error", "message": msg})
}

func (b *fakeBackend) serve(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	b.authHeaders[r.URL.Path] = append(b.authHeaders[r.URL.Path], r.Header.Get("Authorization"))
	b.calls[r.URL.Path]++
	delay := b.delay
	b.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}

	switch {
	case r.Method == http.MethodPost && r.URL.Path == "/api/auth/register":
		b.register(w, r)
	case r.Method == http.MethodPost && r.URL.Path == "/api/auth/login":
		b.login(w, r)
	case r.Method == http.MethodGet && r.URL.Path == "/api/auth/me":
		b.me(w, r)
	case r.Method == http.MethodPost && r.URL.Path == "/api/scan/":
		b.scan(w, r)
	case r.Method == http.MethodPost && r.URL.Path == "/api/scans/":
		b.save(w, r)
	case r.Method == http.MethodGet && r.URL.Path == "/api/scans/":
		b.list(w, r)
	default:
		fail(w, http.StatusNotFound, "not found")
	}
}

func (b *fakeBackend) authorized(r *http.Request) bool {
	return r.Header.Get("Authorization") == "Bearer "+fakeToken
}

func (b *fakeBackend) register(w http.ResponseWriter, r *http.Request) {
	var body map[string]string
	_ = json.NewDecoder(r.Body).Decode(&body)
	username := strings.ToLower(strings.TrimSpace(body["username"]))

	b.mu.Lock()
	defer b.mu.Unlock()
	if _, exists := b.users[username]; exists {
		fail(w, http.StatusConflict, "username already exists")
		return
	}
	b.users[username] = body["password"]
	writeJSON(w, http.StatusCreated, map[string]any{
		"status":  "success",
		"message": "registered",
		"data":    map[string]any{"username": username},
	})
}

func (b *fakeBackend) login(w http.ResponseWriter, r *http.Request) {
	var body map[string]string
	_ = json.NewDecoder(r.Body).Decode(&body)
	username := strings.ToLower(strings.TrimSpace(body["username"]))

	b.mu.Lock()
	password, ok := b.users[username]
	override := b.loginBody
	b.mu.Unlock()

	if !ok || password != body["password"] {
		fail(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	if override != nil {
		writeJSON(w, http.StatusOK, override)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "success",
		"message": "login successful",
		"data":    map[string]any{"access_token": fakeToken},
	})
}

func (b *fakeBackend) me(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	status := b.meStatus
	b.mu.Unlock()

	if status != http.StatusOK {
		fail(w, status, "profile unavailable")
		return
	}
	if !b.authorized(r) {
		fail(w, http.StatusUnauthorized, "missing token")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "success",
		"data":   map[string]any{"user_id": "u-1"},
	})
}

func detectSkills(text string) []string {
	lower := strings.ToLower(text)
	var found []string
	for _, s := range fakeSkills {
		if strings.Contains(lower, strings.ToLower(s)) {
			found = append(found, s)
		}
	}
	return found
}

func (b *fakeBackend) scan(w http.ResponseWriter, r *http.Request) {
	if !b.authorized(r) {
		fail(w, http.StatusUnauthorized, "missing token")
		return
	}

	b.mu.Lock()
	b.lastScanCT = r.Header.Get("Content-Type")
	override := b.scanBody
	b.mu.Unlock()

	var resume, jd string
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			fail(w, http.StatusBadRequest, "bad form")
			return
		}
		f, _, err := r.FormFile("file")
		if err != nil {
			fail(w, http.StatusUnprocessableEntity, "pdf file and jd_text are required")
			return
		}
		data, _ := io.ReadAll(f)
		resume = string(data)
		jd = r.FormValue("jd_text")
		b.mu.Lock()
		b.lastForm = map[string]string{"jd_text": jd, "file": resume}
		b.mu.Unlock()
	} else {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		resume, jd = body["resume_text"], body["jd_text"]
	}

	if override != nil {
		writeJSON(w, http.StatusOK, override)
		return
	}

	jdSkills := detectSkills(jd)
	resumeSkills := detectSkills(resume)
	inResume := map[string]bool{}
	for _, s := range resumeSkills {
		inResume[s] = true
	}
	inJD := map[string]bool{}
	matched, missing, extra := []string{}, []string{}, []string{}
	for _, s := range jdSkills {
		inJD[s] = true
		if inResume[s] {
			matched = append(matched, s)
		} else {
			missing = append(missing, s)
		}
	}
	for _, s := range resumeSkills {
		if !inJD[s] {
			extra = append(extra, s)
		}
	}
	score := 0.0
	if len(jdSkills) > 0 {
		score = float64(len(matched)) / float64(len(jdSkills))
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status": "success",
		"data": map[string]any{
			"score":          score,
			"overlap_ratio":  score,
			"matched_skills": matched,
			"missing_skills": missing,
			"extra_skills":   extra,
			"jd_required":    jdSkills,
			"jd_optional":    []string{},
		},
	})
}

func preview(s string) string {
	if s == "" {
		return ""
	}
	if len(s) > 120 {
		s = s[:120]
	}
	return s + "..."
}

func (b *fakeBackend) save(w http.ResponseWriter, r *http.Request) {
	if !b.authorized(r) {
		fail(w, http.StatusUnauthorized, "missing token")
		return
	}
	var body map[string]any
	_ = json.NewDecoder(r.Body).Decode(&body)

	resume, _ := body["resume_text"].(string)
	jd, _ := body["jd_text"].(string)
	result, ok := body["result"].(map[string]any)
	if resume == "" || jd == "" || !ok {
		fail(w, http.StatusUnprocessableEntity, "resume_text, jd_text and result are required")
		return
	}

	b.mu.Lock()
	id := fmt.Sprintf("scan-%d", len(b.saved)+1)
	b.saved = append(b.saved, map[string]any{
		"id":         id,
		"created_at": time.Date(2026, 3, 1, 10, len(b.saved), 0, 0, time.UTC).Format("2006-01-02T15:04:05.000000") + "Z",
		"resume":     resume,
		"jd":         jd,
		"result":     result,
	})
	b.mu.Unlock()

	writeJSON(w, http.StatusCreated, map[string]any{
		"status":  "success",
		"created": true,
		"message": "saved",
		"data":    map[string]any{"id": id},
	})
}

func (b *fakeBackend) list(w http.ResponseWriter, r *http.Request) {
	if !b.authorized(r) {
		fail(w, http.StatusUnauthorized, "missing token")
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	items := []any{}
	for i := len(b.saved) - 1; i >= 0; i-- {
		d := b.saved[i]
		result := d["result"].(map[string]any)
		matched, _ := result["matched_skills"].([]any)
		missing, _ := result["missing_skills"].([]any)
		items = append(items, map[string]any{
			"id":             d["id"],
			"created_at":     d["created_at"],
			"score":          result["score"],
			"matched":        len(matched),
			"missing":        len(missing),
			"resume_preview": preview(d["resume"].(string)),
			"jd_preview":     preview(d["jd"].(string)),
			"resume_text":    d["resume"],
			"jd_text":        d["jd"],
			"result":         result,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "success",
		"message": "fetched",
		"data":    map[string]any{"items": items},
	})
}

// newTestTab builds a tab against the fake backend on fresh memory storage.
func newTestTab(t *testing.T, b *fakeBackend) (*services.Tab, repositories.TabStorage) {
	t.Helper()
	storage := repositories.NewMemoryTabStorage()
	tab, err := services.NewTab("tab-1", storage, services.PipelineConfig{BaseURL: b.URL()}, services.NewDocumentParserService(10<<20))
	if err != nil {
		t.Fatalf("NewTab: %v", err)
	}
	return tab, storage
}

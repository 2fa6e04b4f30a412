package sonarr

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"golift.io/starr/sonarr"

	"github.com/s0up4200/sonarr-hunter/config"
	"github.com/s0up4200/sonarr-hunter/status"
)

const testAPIKey = "test-key"

// fakeSonarr is an in-memory Sonarr v3 API
type fakeSonarr struct {
	t      *testing.T
	server *httptest.Server

	mu           sync.Mutex
	series       []map[string]any
	episodes     map[int64][]map[string]any
	missing      []map[string]any
	brokenSeries map[int64]bool
	failCommands map[int]bool

	commands     []sonarr.CommandRequest
	commandTimes []time.Time
	requests     []string
}

func newFakeSonarr(t *testing.T) *fakeSonarr {
	t.Helper()

	f := &fakeSonarr{
		t:            t,
		episodes:     make(map[int64][]map[string]any),
		brokenSeries: make(map[int64]bool),
		failCommands: make(map[int]bool),
	}
	f.server = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeSonarr) addSeries(id int64, title string, episodes ...map[string]any) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.series = append(f.series, map[string]any{"id": id, "title": title})
	for _, ep := range episodes {
		ep["seriesId"] = id
		f.episodes[id] = append(f.episodes[id], ep)
		if ep["monitored"] == true && ep["hasFile"] == false {
			rec := map[string]any{"series": map[string]any{"id": id, "title": title}}
			for k, v := range ep {
				rec[k] = v
			}
			f.missing = append(f.missing, rec)
		}
	}
}

func (f *fakeSonarr) breakSeries(id int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.brokenSeries[id] = true
}

func (f *fakeSonarr) failCommand(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failCommands[n] = true
}

func episode(id int64, season, number int, title string, monitored, hasFile bool) map[string]any {
	return map[string]any{
		"id":            id,
		"title":         title,
		"seasonNumber":  season,
		"episodeNumber": number,
		"monitored":     monitored,
		"hasFile":       hasFile,
	}
}

func (f *fakeSonarr) client(opts ...Option) *Client {
	return NewClient(config.Settings{URL: f.server.URL + "/", APIKey: testAPIKey}, zerolog.Nop(), opts...)
}

func (f *fakeSonarr) requestCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

func (f *fakeSonarr) sentCommands() ([]sonarr.CommandRequest, []time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sonarr.CommandRequest(nil), f.commands...), append([]time.Time(nil), f.commandTimes...)
}

func (f *fakeSonarr) serve(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.requests = append(f.requests, r.Method+" "+r.URL.Path)

	if r.Header.Get("X-Api-Key") != testAPIKey {
		http.Error(w, `{"error":"Unauthorized"}`, http.StatusUnauthorized)
		return
	}

	switch {
	case r.URL.Path == "/api/v3/system/status":
		writeJSON(w, map[string]any{"version": "4.0.0.1", "appName": "Sonarr"})

	case r.URL.Path == "/api/v3/series":
		writeJSON(w, f.series)

	case r.URL.Path == "/api/v3/episode":
		id, _ := strconv.ParseInt(r.URL.Query().Get("seriesId"), 10, 64)
		if f.brokenSeries[id] {
			w.Header().Set("Content-Type", "text/html")
			_, _ = w.Write([]byte("<html>oops</html>"))
			return
		}
		eps := f.episodes[id]
		if eps == nil {
			eps = []map[string]any{}
		}
		writeJSON(w, eps)

	case r.URL.Path == "/api/v3/wanted/missing":
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		size, _ := strconv.Atoi(r.URL.Query().Get("pageSize"))
		start := min((page-1)*size, len(f.missing))
		end := min(start+size, len(f.missing))
		writeJSON(w, map[string]any{
			"page":         page,
			"pageSize":     size,
			"totalRecords": len(f.missing),
			"records":      f.missing[start:end],
		})

	case r.URL.Path == "/api/v3/command" && r.Method == http.MethodPost:
		var cmd sonarr.CommandRequest
		if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f.commands = append(f.commands, cmd)
		f.commandTimes = append(f.commandTimes, time.Now())
		if f.failCommands[len(f.commands)] {
			http.Error(w, `{"message":"boom"}`, http.StatusInternalServerError)
			return
		}
		writeJSON(w, map[string]any{"id": len(f.commands), "name": cmd.Name, "status": "queued"})

	default:
		http.NotFound(w, r)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// memRecorder collects recorded messages
type memRecorder struct {
	mu       sync.Mutex
	messages []string
	states   []status.ConnectionStatus
}

func (m *memRecorder) Record(message string, opts ...status.RecordOption) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var snap status.Snapshot
	for _, opt := range opts {
		opt(&snap)
	}
	m.messages = append(m.messages, message)
	m.states = append(m.states, snap.Connection)
}

func (m *memRecorder) all() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.messages...)
}

// fixedState is a ConnectionState with a constant value
type fixedState status.ConnectionStatus

func (s fixedState) Status() status.ConnectionStatus {
	return status.ConnectionStatus(s)
}

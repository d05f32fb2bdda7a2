package influx

import (
	"context"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tamods/routekit/internal/config"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeServer struct {
	*httptest.Server
	mu    sync.Mutex
	lines []string
	query url.Values
}

func newFakeServer(t *testing.T) *fakeServer {
	t.Helper()
	fs := &fakeServer{}
	fs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/write") {
			body, _ := io.ReadAll(r.Body)
			fs.mu.Lock()
			fs.lines = append(fs.lines, strings.TrimSpace(string(body)))
			fs.query = r.URL.Query()
			fs.mu.Unlock()
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	t.Cleanup(fs.Close)
	return fs
}

func (fs *fakeServer) config() config.InfluxConfig {
	u, _ := url.Parse(fs.URL)
	host, port, _ := net.SplitHostPort(u.Host)
	return config.InfluxConfig{
		Enabled:  true,
		Protocol: "http",
		Host:     host,
		Port:     port,
		Token:    "token",
		Org:      "routekit",
		Bucket:   "route_metrics",
	}
}

func TestLineProtocol(t *testing.T) {
	line := LineProtocol(Point{
		Map:       "Katabatic",
		Class:     "PTH",
		Axis:      "xy",
		Positions: 12,
		Bytes:     680,
		Duration:  1500 * time.Microsecond,
		OK:        true,
		Time:      time.Unix(0, 42),
	})

	assert.Equal(t,
		"route_mirror,axis=xy,class=PTH,map=Katabatic bytes=680i,duration_ms=1.5,ok=true,positions=12i 42",
		line)
}

func TestLineProtocol_OmitsEmptyTags(t *testing.T) {
	line := LineProtocol(Point{Axis: "x", Time: time.Unix(1, 0)})
	assert.True(t, strings.HasPrefix(line, "route_mirror,axis=x "), line)
	assert.Contains(t, line, "ok=false")
}

func TestNewSink_Disabled(t *testing.T) {
	sink := NewSink(context.Background(), config.InfluxConfig{}, discardLogger())
	assert.IsType(t, NopSink{}, sink)
	assert.NoError(t, sink.Record(context.Background(), Point{}))
	sink.Close()
}

func TestNewSink_Unreachable(t *testing.T) {
	srv := newFakeServer(t)
	cfg := srv.config()
	srv.Close()

	sink := NewSink(context.Background(), cfg, discardLogger())
	assert.IsType(t, NopSink{}, sink)
}

func TestWriter_Record(t *testing.T) {
	srv := newFakeServer(t)
	ctx := context.Background()

	w, err := Connect(ctx, srv.config(), discardLogger())
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, w.Record(ctx, Point{Map: "Drydock", Axis: "xy", Positions: 3, OK: true}))

	srv.mu.Lock()
	defer srv.mu.Unlock()
	require.Len(t, srv.lines, 1)
	assert.True(t, strings.HasPrefix(srv.lines[0], "route_mirror,axis=xy,map=Drydock "), srv.lines[0])
	assert.Equal(t, "routekit", srv.query.Get("org"))
	assert.Equal(t, "route_metrics", srv.query.Get("bucket"))
}

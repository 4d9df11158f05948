package devserver

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/vango-dev/liveroute/internal/errors"
	"github.com/vango-dev/liveroute/pkg/metrics"
	"github.com/vango-dev/liveroute/pkg/router"
	"github.com/vango-dev/liveroute/pkg/stream"
)

var quietLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

func text(s string) router.Handler {
	return func(*router.RouteContext) stream.Stream[router.Content] {
		return stream.Hold[router.Content](s)
	}
}

func newTestServer(t *testing.T, m router.Matcher, opts Options) (*Server, *httptest.Server) {
	t.Helper()
	reg := prometheus.NewRegistry()
	r, err := router.New(m,
		router.WithLogger(quietLogger),
		router.WithObserver(metrics.New(metrics.WithRegistry(reg))),
	)
	if err != nil {
		t.Fatalf("router.New() error = %v", err)
	}
	opts.Logger = quietLogger
	if opts.Gatherer == nil {
		opts.Gatherer = reg
	}
	srv := New(r, opts)
	ts := httptest.NewServer(srv)
	t.Cleanup(func() {
		srv.Close()
		ts.Close()
	})
	return srv, ts
}

func dial(t *testing.T, ts *httptest.Server, path string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws?path=" + path
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func read(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg Message
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("ReadJSON() error = %v", err)
	}
	return msg
}

func readContent(t *testing.T, conn *websocket.Conn, want string) {
	t.Helper()
	for {
		msg := read(t, conn)
		if msg.Type == TypeContent && msg.Content == want {
			return
		}
		if msg.Type == TypeError {
			t.Fatalf("unexpected error frame: %+v", msg)
		}
	}
}

func shopRoutes() router.Matcher {
	return router.Merge(
		router.Match("/", text("home")),
		router.Match("/about", text("about")),
	).Catch(func(cc *router.CatchContext) stream.Stream[router.Content] {
		return stream.Map(cc.Causes(), func(err error) router.Content {
			return "oops: " + router.Code(err)
		})
	})
}

func TestWebSocketNavigation(t *testing.T) {
	srv, ts := newTestServer(t, shopRoutes(), Options{})
	conn := dial(t, ts, "/")

	readContent(t, conn, "home")
	if n := srv.SessionCount(); n != 1 {
		t.Errorf("SessionCount() = %d, want 1", n)
	}

	if err := conn.WriteJSON(Message{Type: TypeNavigate, Path: "/about"}); err != nil {
		t.Fatal(err)
	}
	readContent(t, conn, "about")

	if err := conn.WriteJSON(Message{Type: TypeNavigate, Path: "/missing"}); err != nil {
		t.Fatal(err)
	}
	readContent(t, conn, "oops: R001")

	if err := conn.WriteJSON(Message{Type: TypeBack}); err != nil {
		t.Fatal(err)
	}
	readContent(t, conn, "about")
}

func TestWebSocketReportsRedirects(t *testing.T) {
	m := router.Merge(
		router.Guard("/admin", func(context.Context, router.GuardInput) (any, bool, error) {
			return nil, false, router.Redirect("/login")
		}, text("admin")),
		router.Match("/login", text("login")),
	)
	_, ts := newTestServer(t, m, Options{})
	conn := dial(t, ts, "/admin")

	var sawLogin, sawLocation bool
	for !sawLogin || !sawLocation {
		msg := read(t, conn)
		switch msg.Type {
		case TypeError:
			t.Fatalf("unexpected error frame: %+v", msg)
		case TypeLocation:
			sawLocation = sawLocation || msg.Path == "/login"
		case TypeContent:
			sawLogin = sawLogin || msg.Content == "login"
		}
	}
}

func TestWebSocketUnknownMessage(t *testing.T) {
	_, ts := newTestServer(t, shopRoutes(), Options{})
	conn := dial(t, ts, "/")
	readContent(t, conn, "home")

	if err := conn.WriteJSON(Message{Type: "jump"}); err != nil {
		t.Fatal(err)
	}
	msg := read(t, conn)
	if msg.Type != TypeError || !strings.Contains(msg.Error, "jump") {
		t.Errorf("message = %+v, want error about jump", msg)
	}
}

func TestWebSocketRunFailureClosesSession(t *testing.T) {
	_, ts := newTestServer(t, router.Match("/", text("home")), Options{})
	conn := dial(t, ts, "/nowhere")

	msg := read(t, conn)
	for msg.Type == TypeLocation {
		msg = read(t, conn)
	}
	if msg.Type != TypeError || msg.Code != errors.CodeRouteNotFound {
		t.Fatalf("message = %+v, want R001 error frame", msg)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Error("connection should be closed after a run failure")
	}
}

func TestRoutesEndpoint(t *testing.T) {
	_, ts := newTestServer(t, shopRoutes(), Options{})

	resp, err := http.Get(ts.URL + "/routes")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
	var routes []RouteInfo
	if err := json.NewDecoder(resp.Body).Decode(&routes); err != nil {
		t.Fatal(err)
	}
	want := []RouteInfo{
		{Index: 0, Name: "/", Pattern: "/", Catches: []string{"catch-0"}},
		{Index: 1, Name: "/about", Pattern: "/about", Catches: []string{"catch-0"}},
	}
	if diff := cmp.Diff(want, routes); diff != "" {
		t.Errorf("routes mismatch (-want +got):\n%s", diff)
	}
}

func TestMetricsAndHealth(t *testing.T) {
	_, ts := newTestServer(t, shopRoutes(), Options{MetricsPath: "/_metrics"})
	conn := dial(t, ts, "/")
	readContent(t, conn, "home")

	resp, err := http.Get(ts.URL + "/_metrics")
	if err != nil {
		t.Fatal(err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if !strings.Contains(string(body), `liveroute_mounted{kind="route"} 1`) {
		t.Errorf("metrics output missing mounted gauge:\n%s", body)
	}

	resp, err = http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("healthz status = %d, want 204", resp.StatusCode)
	}
}

package webauth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/healthvault/sdk/pkg/platform"
)

var testAppID = uuid.MustParse("cccccccc-1111-2222-3333-444444444444")

type stubDefinitionSource struct {
	calls int32
	info  *platform.ServiceInfo
	err   error
}

func (s *stubDefinitionSource) GetServiceDefinition(_ context.Context) (*platform.ServiceInfo, error) {
	atomic.AddInt32(&s.calls, 1)
	if s.err != nil {
		return nil, s.err
	}
	return s.info, nil
}

func newTestProvider(t *testing.T, exchange TokenExchanger) (*Provider, *CookieCodec) {
	t.Helper()
	codec, err := NewCookieCodec(testSecret)
	if err != nil {
		t.Fatalf("new codec: %v", err)
	}
	services := NewServiceInfoProvider(&stubDefinitionSource{
		info: &platform.ServiceInfo{ShellURL: "https://shell.example.com"},
	})
	if exchange == nil {
		exchange = func(_ context.Context, _ string) (*Session, error) {
			s := testSession()
			return &s, nil
		}
	}
	p, err := NewProvider(codec, testAppID, services, exchange)
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}
	return p, codec
}

func doRequest(p *Provider, req *http.Request) (*httptest.ResponseRecorder, error) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	handler := p.RequireSession()(func(c echo.Context) error {
		session, ok := FromContext(c)
		if !ok {
			return echo.NewHTTPError(http.StatusInternalServerError, "no session in context")
		}
		return c.String(http.StatusOK, session.PersonID.String())
	})
	return rec, handler(c)
}

// =========== Middleware Tests ===========

func TestRequireSession_RedirectsAnonymous(t *testing.T) {
	p, _ := newTestProvider(t, nil)

	rec, err := doRequest(p, httptest.NewRequest(http.MethodGet, "/dashboard", nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusFound {
		t.Fatalf("status: %d", rec.Code)
	}
	want := "https://shell.example.com/redirect.aspx?target=AUTH&targetqs=" +
		url.QueryEscape("?appid="+testAppID.String())
	if got := rec.Header().Get("Location"); got != want {
		t.Errorf("redirect target:\n got %s\nwant %s", got, want)
	}
}

func TestRequireSession_PassesSignedIn(t *testing.T) {
	p, codec := newTestProvider(t, nil)

	cookie, err := codec.Encode(testSession())
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	req.AddCookie(cookie)

	rec, err := doRequest(p, req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK || rec.Body.String() != testPersonID.String() {
		t.Errorf("response: %d %q", rec.Code, rec.Body.String())
	}
}

func TestRequireSession_RedirectsTampered(t *testing.T) {
	p, codec := newTestProvider(t, nil)

	cookie, err := codec.Encode(testSession())
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	cookie.Value += "x"
	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	req.AddCookie(cookie)

	rec, err := doRequest(p, req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusFound {
		t.Errorf("tampered cookie must redirect, got %d", rec.Code)
	}
}

// =========== Callback and Sign-out Tests ===========

func TestHandleCallback(t *testing.T) {
	var gotToken string
	p, codec := newTestProvider(t, func(_ context.Context, wctoken string) (*Session, error) {
		gotToken = wctoken
		s := testSession()
		return &s, nil
	})

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/auth/callback?wctoken=shell-token&redirect=/dashboard", nil)
	rec := httptest.NewRecorder()
	if err := p.HandleCallback(e.NewContext(req, rec)); err != nil {
		t.Fatalf("callback: %v", err)
	}

	if gotToken != "shell-token" {
		t.Errorf("exchanged token: %q", gotToken)
	}
	if rec.Code != http.StatusFound || rec.Header().Get("Location") != "/dashboard" {
		t.Errorf("redirect: %d %q", rec.Code, rec.Header().Get("Location"))
	}

	res := rec.Result()
	var sessionCookie *http.Cookie
	for _, c := range res.Cookies() {
		if c.Name == codec.Name() {
			sessionCookie = c
		}
	}
	if sessionCookie == nil {
		t.Fatal("session cookie not set")
	}
	if session, err := codec.Decode(sessionCookie); err != nil || session.PersonID != testPersonID {
		t.Errorf("cookie session: %+v err=%v", session, err)
	}
}

func TestHandleCallback_MissingToken(t *testing.T) {
	p, _ := newTestProvider(t, nil)
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/auth/callback", nil)
	err := p.HandleCallback(e.NewContext(req, httptest.NewRecorder()))
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", err)
	}
}

func TestHandleCallback_RejectsOffsiteRedirect(t *testing.T) {
	p, _ := newTestProvider(t, nil)
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/auth/callback?wctoken=tok&redirect=https://evil.example.com", nil)
	rec := httptest.NewRecorder()
	if err := p.HandleCallback(e.NewContext(req, rec)); err != nil {
		t.Fatalf("callback: %v", err)
	}
	if got := rec.Header().Get("Location"); got != "/" {
		t.Errorf("offsite redirect must fall back to /, got %q", got)
	}
}

func TestHandleSignOut(t *testing.T) {
	p, codec := newTestProvider(t, nil)
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/auth/signout", nil)
	rec := httptest.NewRecorder()
	if err := p.HandleSignOut(e.NewContext(req, rec)); err != nil {
		t.Fatalf("sign out: %v", err)
	}

	var cleared *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == codec.Name() {
			cleared = c
		}
	}
	if cleared == nil || cleared.MaxAge != -1 {
		t.Errorf("cookie not cleared: %+v", cleared)
	}
	if loc := rec.Header().Get("Location"); loc == "" || rec.Code != http.StatusFound {
		t.Errorf("sign-out redirect: %d %q", rec.Code, loc)
	}
}

// =========== Service Info Memoization Tests ===========

func TestServiceInfoProvider_SingleFlight(t *testing.T) {
	source := &stubDefinitionSource{info: &platform.ServiceInfo{ShellURL: "https://shell.example.com"}}
	provider := NewServiceInfoProvider(source)

	const workers = 16
	var wg sync.WaitGroup
	wg.Add(workers)
	start := make(chan struct{})
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			<-start
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			if _, err := provider.Get(ctx); err != nil {
				t.Errorf("get: %v", err)
			}
		}()
	}
	close(start)
	wg.Wait()

	if calls := atomic.LoadInt32(&source.calls); calls != 1 {
		t.Errorf("expected exactly one fetch, got %d", calls)
	}
}

func TestServiceInfoProvider_Invalidate(t *testing.T) {
	source := &stubDefinitionSource{info: &platform.ServiceInfo{ShellURL: "https://shell.example.com"}}
	provider := NewServiceInfoProvider(source)

	if _, err := provider.Get(context.Background()); err != nil {
		t.Fatalf("first get: %v", err)
	}
	if _, err := provider.Get(context.Background()); err != nil {
		t.Fatalf("cached get: %v", err)
	}
	if source.calls != 1 {
		t.Fatalf("cached get must not refetch, calls=%d", source.calls)
	}

	provider.Invalidate()
	if _, err := provider.Get(context.Background()); err != nil {
		t.Fatalf("get after invalidate: %v", err)
	}
	if source.calls != 2 {
		t.Errorf("invalidate must force a refetch, calls=%d", source.calls)
	}
}

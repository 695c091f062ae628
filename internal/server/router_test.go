package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"rotomdex/rotomd/internal/auth/hash"
	"rotomdex/rotomd/internal/config"
	"rotomdex/rotomd/internal/creds"
	"rotomdex/rotomd/internal/fsatomic"
	"rotomdex/rotomd/internal/ratelimit"
	"rotomdex/rotomd/internal/registry"
	"rotomdex/rotomd/internal/scan"
	"rotomdex/rotomd/internal/sessions"
)

const (
	testUser     = "rotom_0pera70r"
	testPassword = "pikachu-pw-123!"
)

// newTestRouter seeds a data dir with known credentials and builds the full
// router. renderURL may be empty when the test never scans.
func newTestRouter(t *testing.T, renderURL string) http.Handler {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Config{
		Port:          3000,
		DataDir:       dir,
		NoticePath:    filepath.Join(dir, "credentials.txt"),
		SessionSecret: []byte("0123456789abcdef0123456789abcdef"),
		GithubToken:   "gh-token",
		RenderAPIKey:  "render-key",
		RenderAPIURL:  renderURL,
		LogLevel:      zerolog.Disabled,
	}
	logger := zerolog.Nop()

	phc, err := hash.Password(testPassword)
	if err != nil {
		t.Fatal(err)
	}
	err = fsatomic.SaveJSON(context.Background(), cfg.CredentialsPath(),
		creds.Credentials{Username: testUser, HashedPassword: phc}, 0o600)
	if err != nil {
		t.Fatal(err)
	}

	cs, err := creds.Open(context.Background(), cfg.CredentialsPath(), cfg.NoticePath, &logger)
	if err != nil {
		t.Fatal(err)
	}
	reg, err := registry.Open(context.Background(), cfg.AppsPath())
	if err != nil {
		t.Fatal(err)
	}
	sc := scan.New(reg, cfg.GithubToken, cfg.RenderAPIKey, renderURL, nil, &logger)
	srv := New(cfg, &logger, cs, sessions.New(), reg, sc, ratelimit.New(cfg.RateLimitPath()))
	return srv.Routes()
}

func doLogin(t *testing.T, r http.Handler, username, password, totpCode string) *httptest.ResponseRecorder {
	t.Helper()
	form := "username=" + username + "&password=" + password
	if totpCode != "" {
		form += "&totp=" + totpCode
	}
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	res := httptest.NewRecorder()
	r.ServeHTTP(res, req)
	return res
}

func sessionCookieFrom(t *testing.T, res *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range res.Result().Cookies() {
		if c.Name == sessionCookie && c.Value != "" {
			return c
		}
	}
	return nil
}

func authedGet(r http.Handler, path string, ck *http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if ck != nil {
		req.AddCookie(ck)
	}
	res := httptest.NewRecorder()
	r.ServeHTTP(res, req)
	return res
}

func TestPublicEndpoints(t *testing.T) {
	r := newTestRouter(t, "")

	res := authedGet(r, "/api/version", nil)
	if res.Code != http.StatusOK {
		t.Fatalf("version: %d", res.Code)
	}
	var v map[string]string
	if err := json.Unmarshal(res.Body.Bytes(), &v); err != nil {
		t.Fatal(err)
	}
	if v["version"] != "dev" {
		t.Fatalf("default version: %q", v["version"])
	}

	res = authedGet(r, "/api/health", nil)
	if res.Code != http.StatusOK {
		t.Fatalf("health: %d", res.Code)
	}
	var h map[string]any
	if err := json.Unmarshal(res.Body.Bytes(), &h); err != nil {
		t.Fatal(err)
	}
	if h["ok"] != true {
		t.Fatalf("health body: %v", h)
	}
}

func TestProtectedRoutesRedirectAnonymous(t *testing.T) {
	r := newTestRouter(t, "")
	for _, path := range []string{"/", "/api/apps", "/api/status", "/api/scan-github", "/metrics"} {
		res := authedGet(r, path, nil)
		if res.Code != http.StatusFound {
			t.Fatalf("%s: expected redirect, got %d", path, res.Code)
		}
		if loc := res.Header().Get("Location"); loc != "/login" {
			t.Fatalf("%s: location %q", path, loc)
		}
	}
}

func TestLoginLogoutFlow(t *testing.T) {
	r := newTestRouter(t, "")

	res := doLogin(t, r, testUser, testPassword, "")
	if res.Code != http.StatusFound || res.Header().Get("Location") != "/" {
		t.Fatalf("login: %d %s", res.Code, res.Header().Get("Location"))
	}
	ck := sessionCookieFrom(t, res)
	if ck == nil {
		t.Fatal("no session cookie issued")
	}
	if !ck.HttpOnly {
		t.Fatal("session cookie must be HttpOnly")
	}
	if ck.Secure {
		t.Fatal("secure flag should be off outside production")
	}

	// Dashboard and API now reachable.
	if res := authedGet(r, "/", ck); res.Code != http.StatusOK {
		t.Fatalf("dashboard: %d", res.Code)
	}
	appsRes := authedGet(r, "/api/apps", ck)
	if appsRes.Code != http.StatusOK {
		t.Fatalf("apps: %d", appsRes.Code)
	}
	var apps []registry.App
	if err := json.Unmarshal(appsRes.Body.Bytes(), &apps); err != nil {
		t.Fatal(err)
	}
	if len(apps) != 1 || apps[0].Name != "Clinic Onboarding" {
		t.Fatalf("seed list: %+v", apps)
	}

	statusRes := authedGet(r, "/api/status", ck)
	var st map[string]any
	if err := json.Unmarshal(statusRes.Body.Bytes(), &st); err != nil {
		t.Fatal(err)
	}
	if st["status"] != "ONLINE" || st["user"] != testUser || st["timestamp"] == "" {
		t.Fatalf("status body: %v", st)
	}

	// Authenticated visitors skip the login page.
	if res := authedGet(r, "/login", ck); res.Code != http.StatusFound || res.Header().Get("Location") != "/" {
		t.Fatalf("login page for authed user: %d", res.Code)
	}

	// Logout invalidates the server-side session even though the cookie
	// value itself still decodes.
	if res := authedGet(r, "/logout", ck); res.Code != http.StatusFound || res.Header().Get("Location") != "/login" {
		t.Fatalf("logout: %d", res.Code)
	}
	if res := authedGet(r, "/api/apps", ck); res.Code != http.StatusFound {
		t.Fatalf("stale cookie should redirect, got %d", res.Code)
	}
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	r := newTestRouter(t, "")

	badUser := doLogin(t, r, "rotom_wrong000", testPassword, "")
	badPass := doLogin(t, r, testUser, "wrong-password!", "")

	for name, res := range map[string]*httptest.ResponseRecorder{"bad username": badUser, "bad password": badPass} {
		if res.Code != http.StatusFound {
			t.Fatalf("%s: code %d", name, res.Code)
		}
		if loc := res.Header().Get("Location"); loc != "/login?error=1" {
			t.Fatalf("%s: location %q", name, loc)
		}
		if sessionCookieFrom(t, res) != nil {
			t.Fatalf("%s: cookie must not be issued", name)
		}
	}
	if badUser.Body.String() != badPass.Body.String() {
		t.Fatal("failure bodies differ between bad username and bad password")
	}
}

func TestTamperedCookieRejected(t *testing.T) {
	r := newTestRouter(t, "")
	res := doLogin(t, r, testUser, testPassword, "")
	ck := sessionCookieFrom(t, res)
	if ck == nil {
		t.Fatal("no cookie")
	}
	ck.Value = ck.Value[:len(ck.Value)-2] + "xx"
	if res := authedGet(r, "/api/apps", ck); res.Code != http.StatusFound {
		t.Fatalf("tampered cookie should redirect, got %d", res.Code)
	}
}

func TestLoginThrottle(t *testing.T) {
	r := newTestRouter(t, "")
	for i := 0; i < loginAttemptLimit; i++ {
		doLogin(t, r, testUser, "wrong!", "")
	}
	// Even correct credentials are refused inside the window.
	res := doLogin(t, r, testUser, testPassword, "")
	if res.Header().Get("Location") != "/login?error=1" {
		t.Fatalf("throttled login should fail generically: %q", res.Header().Get("Location"))
	}
	if sessionCookieFrom(t, res) != nil {
		t.Fatal("throttled login must not issue a cookie")
	}
}

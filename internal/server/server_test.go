package server_test

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"
	"github.com/steinfletcher/apitest"
	jsonpath "github.com/steinfletcher/apitest-jsonpath"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"authdemo/internal/config"
	"authdemo/internal/crypto"
	"authdemo/internal/server"
)

// bodyContains asserts that the response body contains the given substring.
func bodyContains(substr string) func(*http.Response, *http.Request) error {
	return func(res *http.Response, _ *http.Request) error {
		body, err := io.ReadAll(res.Body)
		if err != nil {
			return err
		}
		if !strings.Contains(string(body), substr) {
			return fmt.Errorf("body does not contain %q", substr)
		}
		return nil
	}
}

func testServer(t *testing.T) http.Handler {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := sqlx.Connect("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	db.MustExec(`CREATE TABLE users (
		id             INTEGER PRIMARY KEY AUTOINCREMENT,
		account        TEXT NOT NULL UNIQUE,
		firstname      TEXT NOT NULL,
		middlename     TEXT,
		lastname       TEXT NOT NULL,
		nickname       TEXT,
		role           TEXT NOT NULL DEFAULT 'ANONYMOUS',
		lang           TEXT,
		password_hash  TEXT NOT NULL,
		email          TEXT NOT NULL,
		email_verified BOOLEAN NOT NULL DEFAULT FALSE,
		image          TEXT,
		deleted_at     TIMESTAMP,
		created_at     TIMESTAMP NOT NULL
	)`)
	db.MustExec(`INSERT INTO users (id, account, firstname, lastname, role, lang,
		password_hash, email, email_verified, created_at)
		VALUES (7, 'alice', 'Alice', 'Smith', 'USER', 'en', $1, 'alice@example.org', TRUE, $2)`,
		crypto.GenerateHash("pw1234567"), time.Now())

	cfg := &config.Config{}
	cfg.Server.Port = ":0"
	cfg.Server.BaseURL = "http://example.com"
	cfg.Server.Templates = "../../web/templates/*.html"
	cfg.Session.Secret = "test-secret"
	cfg.Session.CookieName = "session_token"
	cfg.Session.MaxAge = 21600
	cfg.Session.UpdateInterval = 3600

	log := logrus.New()
	log.SetOutput(io.Discard)

	return server.NewServer(db, cfg, zap.NewNop(), log).Handler()
}

func signIn(t *testing.T, h http.Handler) string {
	t.Helper()
	result := apitest.New().
		Handler(h).
		Post("/auth/signin").
		FormData("account", "alice").
		FormData("password", "pw1234567").
		Expect(t).
		Status(http.StatusSeeOther).
		CookiePresent("session_token").
		End()

	for _, c := range result.Response.Cookies() {
		if c.Name == "session_token" && c.Value != "" {
			return c.Value
		}
	}
	t.Fatal("no session cookie issued")
	return ""
}

func TestPing(t *testing.T) {
	apitest.New().
		Handler(testServer(t)).
		Get("/ping").
		Expect(t).
		Status(http.StatusOK).
		Assert(jsonpath.Equal(`$.message`, "pong")).
		End()
}

func TestSignInFlow(t *testing.T) {
	h := testServer(t)

	t.Run("valid credentials set a session cookie", func(t *testing.T) {
		token := signIn(t, h)
		require.NotEmpty(t, token)
	})

	t.Run("wrong password is rejected with a generic error", func(t *testing.T) {
		apitest.New().
			Handler(h).
			Post("/auth/signin").
			FormData("account", "alice").
			FormData("password", "wrong").
			Expect(t).
			Status(http.StatusUnauthorized).
			Assert(bodyContains("Sign in failed")).
			End()
	})

	t.Run("unknown account yields the same generic error", func(t *testing.T) {
		apitest.New().
			Handler(h).
			Post("/auth/signin").
			FormData("account", "nobody").
			FormData("password", "pw1234567").
			Expect(t).
			Status(http.StatusUnauthorized).
			Assert(bodyContains("Sign in failed")).
			End()
	})

	t.Run("case-mismatched account is rejected", func(t *testing.T) {
		apitest.New().
			Handler(h).
			Post("/auth/signin").
			FormData("account", "ALICE").
			FormData("password", "pw1234567").
			Expect(t).
			Status(http.StatusUnauthorized).
			End()
	})
}

func TestSessionAPI(t *testing.T) {
	h := testServer(t)

	t.Run("anonymous session is null", func(t *testing.T) {
		apitest.New().
			Handler(h).
			Get("/api/auth/session").
			Expect(t).
			Status(http.StatusOK).
			Body(`null`).
			End()
	})

	t.Run("signed-in session carries the claims", func(t *testing.T) {
		token := signIn(t, h)
		apitest.New().
			Handler(h).
			Get("/api/auth/session").
			Cookies(apitest.NewCookie("session_token").Value(token)).
			Expect(t).
			Status(http.StatusOK).
			Assert(jsonpath.Equal(`$.uid`, float64(7))).
			Assert(jsonpath.Equal(`$.name`, "alice")).
			Assert(jsonpath.Equal(`$.role`, "USER")).
			End()
	})

	t.Run("update trigger reissues the token", func(t *testing.T) {
		token := signIn(t, h)
		apitest.New().
			Handler(h).
			Post("/api/auth/session").
			Cookies(apitest.NewCookie("session_token").Value(token)).
			Expect(t).
			Status(http.StatusOK).
			CookiePresent("session_token").
			Assert(jsonpath.Equal(`$.uid`, float64(7))).
			End()
	})
}

func TestProtectedPage(t *testing.T) {
	h := testServer(t)

	t.Run("anonymous request redirects to sign-in", func(t *testing.T) {
		result := apitest.New().
			Handler(h).
			Get("/profile").
			Expect(t).
			Status(http.StatusSeeOther).
			End()
		loc := result.Response.Header.Get("Location")
		require.Contains(t, loc, "/auth/signin")
		require.Contains(t, loc, "callbackUrl")
	})

	t.Run("anonymous API client gets 401 instead of a redirect", func(t *testing.T) {
		apitest.New().
			Handler(h).
			Get("/profile").
			Header("Accept", "application/json; charset=utf-8").
			Expect(t).
			Status(http.StatusUnauthorized).
			Assert(jsonpath.Present(`$.error`)).
			End()
	})

	t.Run("signed-in request renders the page", func(t *testing.T) {
		token := signIn(t, h)
		apitest.New().
			Handler(h).
			Get("/profile").
			Cookies(apitest.NewCookie("session_token").Value(token)).
			Expect(t).
			Status(http.StatusOK).
			End()
	})
}

func TestSignOut(t *testing.T) {
	h := testServer(t)
	token := signIn(t, h)

	result := apitest.New().
		Handler(h).
		Post("/auth/signout").
		Cookies(apitest.NewCookie("session_token").Value(token)).
		Expect(t).
		Status(http.StatusSeeOther).
		End()

	// The cookie gets cleared...
	cleared := false
	for _, c := range result.Response.Cookies() {
		if c.Name == "session_token" && c.MaxAge < 0 {
			cleared = true
		}
	}
	require.True(t, cleared)

	// ...but the token itself stays valid until it expires: the next request
	// just re-validates the claims against the store.
	apitest.New().
		Handler(h).
		Get("/api/auth/session").
		Cookies(apitest.NewCookie("session_token").Value(token)).
		Expect(t).
		Status(http.StatusOK).
		Assert(jsonpath.Equal(`$.uid`, float64(7))).
		End()
}

func TestRegisterAPI(t *testing.T) {
	h := testServer(t)

	t.Run("registers a new account", func(t *testing.T) {
		apitest.New().
			Handler(h).
			Post("/api/auth/register").
			JSON(`{"account":"carol","password":"pw1234567","email":"carol@example.org","firstname":"Carol","lastname":"Jones"}`).
			Expect(t).
			Status(http.StatusCreated).
			Assert(jsonpath.Equal(`$.account`, "carol")).
			End()
	})

	t.Run("duplicate account conflicts", func(t *testing.T) {
		apitest.New().
			Handler(h).
			Post("/api/auth/register").
			JSON(`{"account":"alice","password":"pw1234567","email":"a@example.org","firstname":"Alice","lastname":"Smith"}`).
			Expect(t).
			Status(http.StatusConflict).
			End()
	})

	t.Run("invalid input is a bad request", func(t *testing.T) {
		apitest.New().
			Handler(h).
			Post("/api/auth/register").
			JSON(`{"account":"Carol","password":"pw1234567","email":"carol@example.org","firstname":"Carol","lastname":"Jones"}`).
			Expect(t).
			Status(http.StatusBadRequest).
			End()
	})

	t.Run("fresh account cannot sign in before verification", func(t *testing.T) {
		apitest.New().
			Handler(h).
			Post("/api/auth/register").
			JSON(`{"account":"david","password":"pw1234567","email":"david@example.org","firstname":"David","lastname":"Brown"}`).
			Expect(t).
			Status(http.StatusCreated).
			End()
		apitest.New().
			Handler(h).
			Post("/auth/signin").
			FormData("account", "david").
			FormData("password", "pw1234567").
			Expect(t).
			Status(http.StatusUnauthorized).
			End()
	})
}

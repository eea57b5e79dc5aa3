package httpserver

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/chatplays/snakestream/internal/hub"
	"github.com/chatplays/snakestream/internal/lifecycle"
	"github.com/chatplays/snakestream/internal/store"
)

// newAuthTestServer wires a server over an in-memory database plus an HTTP
// client with a cookie jar, so the auth cookie flows across requests.
func newAuthTestServer(t *testing.T) (*httptest.Server, *http.Client) {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	schema, err := os.ReadFile("../../sql/0001_init.sql")
	if err != nil {
		t.Fatalf("read schema: %v", err)
	}
	if _, err := db.Exec(string(schema)); err != nil {
		t.Fatalf("apply schema: %v", err)
	}

	st := store.NewMemory(store.DefaultMaxComments)
	h := hub.New(nil)
	ctrl := lifecycle.New(st, h, nil, lifecycle.Options{TickInterval: time.Hour})
	s := New(st, h, ctrl, nil, db)
	ts := httptest.NewServer(s.Router())
	t.Cleanup(func() {
		ctrl.Stop()
		ts.Close()
		db.Close()
	})

	jar, _ := cookiejar.New(nil)
	return ts, &http.Client{Jar: jar}
}

func doJSON(t *testing.T, c *http.Client, method, url, body string) (*http.Response, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	res, err := c.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	t.Cleanup(func() { res.Body.Close() })
	var out map[string]any
	_ = json.NewDecoder(res.Body).Decode(&out)
	return res, out
}

func TestSignupLoginMe(t *testing.T) {
	ts, client := newAuthTestServer(t)

	res, out := doJSON(t, client, http.MethodPost, ts.URL+"/auth/signup",
		`{"username":"snakefan","password":"hunter2hunter2"}`)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("signup status = %d: %v", res.StatusCode, out)
	}
	if out["username"] != "snakefan" {
		t.Errorf("signup = %v", out)
	}

	res, out = doJSON(t, client, http.MethodGet, ts.URL+"/auth/me", "")
	if res.StatusCode != http.StatusOK {
		t.Fatalf("me status = %d: %v", res.StatusCode, out)
	}
	if out["username"] != "snakefan" {
		t.Errorf("me = %v", out)
	}

	res, _ = doJSON(t, client, http.MethodPost, ts.URL+"/auth/logout", "")
	if res.StatusCode != http.StatusOK {
		t.Fatalf("logout status = %d", res.StatusCode)
	}
	res, _ = doJSON(t, client, http.MethodGet, ts.URL+"/auth/me", "")
	if res.StatusCode != http.StatusUnauthorized {
		t.Errorf("me after logout = %d, want 401", res.StatusCode)
	}

	res, out = doJSON(t, client, http.MethodPost, ts.URL+"/auth/login",
		`{"username":"snakefan","password":"hunter2hunter2"}`)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("login status = %d: %v", res.StatusCode, out)
	}
}

func TestSignupRejectsBadInput(t *testing.T) {
	ts, client := newAuthTestServer(t)

	cases := []string{
		`{"username":"ab","password":"longenough1"}`,   // username too short
		`{"username":"valid_name","password":"short"}`, // password too short
		`{"username":"bad name!","password":"longenough1"}`,
	}
	for _, body := range cases {
		res, _ := doJSON(t, client, http.MethodPost, ts.URL+"/auth/signup", body)
		if res.StatusCode != http.StatusBadRequest {
			t.Errorf("signup %s: status = %d, want 400", body, res.StatusCode)
		}
	}
}

func TestSignupDuplicateUsername(t *testing.T) {
	ts, client := newAuthTestServer(t)

	doJSON(t, client, http.MethodPost, ts.URL+"/auth/signup",
		`{"username":"taken","password":"longenough1"}`)
	res, _ := doJSON(t, client, http.MethodPost, ts.URL+"/auth/signup",
		`{"username":"TAKEN","password":"longenough1"}`)
	if res.StatusCode != http.StatusConflict {
		t.Errorf("duplicate signup status = %d, want 409", res.StatusCode)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	ts, client := newAuthTestServer(t)

	doJSON(t, client, http.MethodPost, ts.URL+"/auth/signup",
		`{"username":"snakefan","password":"hunter2hunter2"}`)
	res, _ := doJSON(t, client, http.MethodPost, ts.URL+"/auth/login",
		`{"username":"snakefan","password":"wrongwrongwrong"}`)
	if res.StatusCode != http.StatusUnauthorized {
		t.Errorf("login status = %d, want 401", res.StatusCode)
	}
}

func TestLoggedInUsernameOverridesCommentBody(t *testing.T) {
	ts, client := newAuthTestServer(t)

	doJSON(t, client, http.MethodPost, ts.URL+"/auth/signup",
		`{"username":"realname","password":"hunter2hunter2"}`)

	_, out := doJSON(t, client, http.MethodPost, ts.URL+"/api/comments",
		`{"username":"impostor","originalText":"go up"}`)
	if out["username"] != "realname" {
		t.Errorf("comment username = %v, want account name", out["username"])
	}
}

func TestAuthUnavailableWithoutDatabase(t *testing.T) {
	st := store.NewMemory(store.DefaultMaxComments)
	h := hub.New(nil)
	ctrl := lifecycle.New(st, h, nil, lifecycle.Options{TickInterval: time.Hour})
	s := New(st, h, ctrl, nil, nil)
	ts := httptest.NewServer(s.Router())
	defer ts.Close()

	res, err := http.Post(ts.URL+"/auth/signup", "application/json",
		strings.NewReader(`{"username":"x","password":"y"}`))
	if err != nil {
		t.Fatal(err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", res.StatusCode)
	}
}

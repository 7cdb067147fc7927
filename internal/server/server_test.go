package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/plshuffle/internal/shared"
	"golang.org/x/oauth2"
)

func tokenServer(t *testing.T, status int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("failed to parse form: %v", err)
		}
		if r.Form.Get("code") != "good-code" {
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprint(w, `{"error":"invalid_grant"}`)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		fmt.Fprint(w, `{"access_token":"access","token_type":"Bearer","refresh_token":"refresh","expires_in":3600}`)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(tokenURL, redirect string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     "id",
		ClientSecret: "secret",
		RedirectURL:  redirect,
		Endpoint:     oauth2.Endpoint{AuthURL: "http://example.invalid/authorize", TokenURL: tokenURL},
	}
}

func TestCallbackHandler(t *testing.T) {
	t.Run("exchanges the code", func(t *testing.T) {
		tokens := tokenServer(t, http.StatusOK)
		h := NewCallbackHandler(testConfig(tokens.URL, ""), "state-1", "/callback")

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback?state=state-1&code=good-code", nil))

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		result := <-h.Result()
		if result.Err != nil {
			t.Fatalf("expected no error, got %v", result.Err)
		}
		if result.Token.AccessToken != "access" || result.Token.RefreshToken != "refresh" {
			t.Errorf("unexpected token %+v", result.Token)
		}
	})

	t.Run("rejects a mismatched state", func(t *testing.T) {
		h := NewCallbackHandler(testConfig("http://example.invalid/token", ""), "state-1", "/callback")

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback?state=other&code=good-code", nil))

		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
		if result := <-h.Result(); result.Err == nil {
			t.Error("expected error")
		}
	})

	t.Run("reports a denied authorization", func(t *testing.T) {
		h := NewCallbackHandler(testConfig("http://example.invalid/token", ""), "s", "/callback")

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback?state=s&error=access_denied", nil))

		result := <-h.Result()
		if result.Err == nil || !strings.Contains(result.Err.Error(), "access_denied") {
			t.Errorf("expected access_denied error, got %v", result.Err)
		}
	})

	t.Run("reports a failed exchange", func(t *testing.T) {
		tokens := tokenServer(t, http.StatusOK)
		h := NewCallbackHandler(testConfig(tokens.URL, ""), "s", "/callback")

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback?state=s&code=bad-code", nil))

		if rec.Code != http.StatusInternalServerError {
			t.Errorf("expected 500, got %d", rec.Code)
		}
		if result := <-h.Result(); result.Err == nil {
			t.Error("expected error")
		}
	})

	t.Run("handles one callback only", func(t *testing.T) {
		tokens := tokenServer(t, http.StatusOK)
		h := NewCallbackHandler(testConfig(tokens.URL, ""), "s", "/callback")

		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/callback?state=s&code=good-code", nil))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback?state=s&code=good-code", nil))

		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400 for second callback, got %d", rec.Code)
		}
	})
}

func TestRouter(t *testing.T) {
	t.Run("middleware runs in registration order", func(t *testing.T) {
		var order []string
		mark := func(name string) Middleware {
			return func(next http.Handler) http.Handler {
				return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					order = append(order, name)
					next.ServeHTTP(w, r)
				})
			}
		}

		h := NewCallbackHandler(testConfig("http://example.invalid/token", ""), "s", "/cb")
		r := NewRouter()
		r.Use(mark("first"), mark("second"))
		r.Handle(h)

		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/cb?state=x", nil))
		if strings.Join(order, ",") != "first,second" {
			t.Errorf("unexpected order %v", order)
		}
	})

	t.Run("only GET is routed", func(t *testing.T) {
		h := NewCallbackHandler(testConfig("http://example.invalid/token", ""), "s", "/cb")
		r := NewRouter()
		r.Handle(h)

		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/cb", nil))
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("expected 405, got %d", rec.Code)
		}
	})
}

func TestCallbackServer(t *testing.T) {
	logger := shared.NewLogger(io.Discard)

	t.Run("returns the exchanged token", func(t *testing.T) {
		tokens := tokenServer(t, http.StatusOK)
		srv, err := NewCallbackServer(testConfig(tokens.URL, "http://127.0.0.1:0/callback"), "s", logger)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if err := srv.Start(); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		defer srv.Shutdown()

		go func() {
			resp, err := http.Get("http://" + srv.Addr() + "/callback?state=s&code=good-code")
			if err != nil {
				t.Errorf("callback request failed: %v", err)
				return
			}
			resp.Body.Close()
		}()

		token, err := srv.Wait(context.Background(), 5*time.Second)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if token.AccessToken != "access" {
			t.Errorf("expected access token, got %q", token.AccessToken)
		}
	})

	t.Run("times out without a callback", func(t *testing.T) {
		srv, err := NewCallbackServer(testConfig("http://example.invalid/token", "http://127.0.0.1:0/callback"), "s", logger)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if err := srv.Start(); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		defer srv.Shutdown()

		_, err = srv.Wait(context.Background(), 10*time.Millisecond)
		if !errors.Is(err, shared.ErrTimeout) {
			t.Errorf("expected ErrTimeout, got %v", err)
		}
	})

	t.Run("wraps callback errors", func(t *testing.T) {
		srv, err := NewCallbackServer(testConfig("http://example.invalid/token", "http://127.0.0.1:0/callback"), "s", logger)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		srv.handler.send(CallbackResult{Err: fmt.Errorf("denied")})

		_, err = srv.Wait(context.Background(), time.Second)
		if !errors.Is(err, shared.ErrAuthFailed) {
			t.Errorf("expected ErrAuthFailed, got %v", err)
		}
	})

	t.Run("rejects non-http redirect uris", func(t *testing.T) {
		for _, redirect := range []string{"", "https://example.com/callback", "not a url"} {
			if _, err := NewCallbackServer(testConfig("", redirect), "s", logger); !errors.Is(err, shared.ErrInvalidConfig) {
				t.Errorf("%q: expected ErrInvalidConfig, got %v", redirect, err)
			}
		}
	})
}

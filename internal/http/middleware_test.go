package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/example/roombooking/internal/application"
)

type fakeAdminAuthenticator struct {
	principal application.Principal
	err       error
	seen      string
}

func (f *fakeAdminAuthenticator) Authenticate(_ context.Context, token string) (application.Principal, error) {
	f.seen = token
	return f.principal, f.err
}

func TestRequireAdmin(t *testing.T) {
	t.Parallel()

	t.Run("rejects requests without valid admin tokens", func(t *testing.T) {
		t.Parallel()

		tests := []struct {
			name           string
			header         string
			value          string
			authErr        error
			expectedStatus int
		}{
			{name: "missing credentials", expectedStatus: http.StatusUnauthorized},
			{name: "non bearer authorization", header: "Authorization", value: "Basic abc", expectedStatus: http.StatusUnauthorized},
			{name: "wrong token", header: AdminTokenHeader, value: "nope", authErr: application.ErrUnauthorized, expectedStatus: http.StatusForbidden},
			{name: "authenticator failure", header: AdminTokenHeader, value: "token", authErr: errors.New("boom"), expectedStatus: http.StatusInternalServerError},
		}

		for _, tc := range tests {
			tc := tc
			t.Run(tc.name, func(t *testing.T) {
				t.Parallel()

				req := httptest.NewRequest(http.MethodPost, "/rooms", nil)
				if tc.header != "" {
					req.Header.Set(tc.header, tc.value)
				}
				recorder := httptest.NewRecorder()

				auth := &fakeAdminAuthenticator{err: tc.authErr}
				handler := RequireAdmin(auth, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					t.Fatal("next handler should not be called when authentication fails")
				}))
				handler.ServeHTTP(recorder, req)

				if recorder.Code != tc.expectedStatus {
					t.Fatalf("status = %d, want %d", recorder.Code, tc.expectedStatus)
				}
				var resp errorResponse
				if err := json.NewDecoder(recorder.Body).Decode(&resp); err != nil || resp.Message == "" {
					t.Fatalf("expected JSON error body, got %v / %+v", err, resp)
				}
			})
		}
	})

	t.Run("attaches admin principal to request context", func(t *testing.T) {
		t.Parallel()

		want := application.Principal{UserID: "admin", IsAdmin: true}
		auth := &fakeAdminAuthenticator{principal: want}

		req := httptest.NewRequest(http.MethodPost, "/rooms", nil)
		req.Header.Set("Authorization", "Bearer  s3cret ")
		recorder := httptest.NewRecorder()

		var got application.Principal
		handler := RequireAdmin(auth, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := PrincipalFromContext(r.Context())
			if !ok {
				t.Fatal("expected principal in request context")
			}
			got = p
			w.WriteHeader(http.StatusOK)
		}))
		handler.ServeHTTP(recorder, req)

		if recorder.Code != http.StatusOK || got != want {
			t.Fatalf("status %d principal %+v", recorder.Code, got)
		}
		if auth.seen != "s3cret" {
			t.Fatalf("token = %q, want trimmed bearer token", auth.seen)
		}
	})
}

func TestRequestLogger(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	base := slog.New(slog.NewJSONHandler(&buf, nil))

	handler := RequestLogger(base)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if LoggerFromContext(r.Context()) == nil {
			t.Fatal("expected request logger in context")
		}
		w.WriteHeader(http.StatusTeapot)
	}))

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/rooms", nil))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected start and completion lines, got %q", buf.String())
	}
	var completed map[string]any
	if err := json.Unmarshal([]byte(lines[1]), &completed); err != nil {
		t.Fatalf("decode log line: %v", err)
	}
	if completed["msg"] != "request completed" || completed["path"] != "/rooms" || completed["status"] != float64(http.StatusTeapot) {
		t.Fatalf("unexpected completion log %v", completed)
	}
	if completed["request_id"] != float64(1) {
		t.Fatalf("request_id = %v, want 1", completed["request_id"])
	}
}

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCORS(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	tests := []struct {
		name            string
		allowed         []string
		origin          string
		method          string
		wantOrigin      string
		wantCredentials string
		wantStatus      int
	}{
		{"wildcard", []string{"*"}, "https://shop.example", http.MethodPost, "https://shop.example", "", http.StatusTeapot},
		{"explicit", []string{"https://shop.example"}, "https://shop.example", http.MethodGet, "https://shop.example", "true", http.StatusTeapot},
		{"rejected", []string{"https://shop.example"}, "https://evil.example", http.MethodGet, "", "", http.StatusTeapot},
		{"preflight", []string{"*"}, "https://shop.example", http.MethodOptions, "https://shop.example", "", http.StatusNoContent},
		{"no origin", []string{"*"}, "", http.MethodGet, "", "", http.StatusTeapot},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/chat", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			w := httptest.NewRecorder()

			CORS(tt.allowed)(next).ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if got := w.Header().Get("Access-Control-Allow-Origin"); got != tt.wantOrigin {
				t.Errorf("Allow-Origin = %q, want %q", got, tt.wantOrigin)
			}
			if got := w.Header().Get("Access-Control-Allow-Credentials"); got != tt.wantCredentials {
				t.Errorf("Allow-Credentials = %q, want %q", got, tt.wantCredentials)
			}
		})
	}
}

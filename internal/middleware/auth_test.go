package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/xelth-com/eckscan/internal/utils"
)

func TestAuth(t *testing.T) {
	const secret = "test-secret"
	token, err := utils.GenerateDeviceToken("scanner-01", "Dock 1", secret)
	if err != nil {
		t.Fatalf("GenerateDeviceToken() error = %v", err)
	}
	foreign, _ := utils.GenerateDeviceToken("scanner-01", "Dock 1", "other-secret")

	var gotDevice string
	handler := Auth(secret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotDevice = DeviceFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name   string
		header string
		query  string
		want   int
	}{
		{"bearer token", "Bearer " + token, "", http.StatusNoContent},
		{"query token", "", "?token=" + token, http.StatusNoContent},
		{"missing", "", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic " + token, "", http.StatusUnauthorized},
		{"wrong secret", "Bearer " + foreign, "", http.StatusUnauthorized},
		{"garbage", "Bearer abc.def.ghi", "", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotDevice = ""
			req := httptest.NewRequest(http.MethodGet, "/api/status"+tt.query, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d", rec.Code, tt.want)
			}
			if tt.want == http.StatusNoContent && gotDevice != "scanner-01" {
				t.Errorf("device = %q, want scanner-01", gotDevice)
			}
		})
	}
}

func TestDeviceFromContextWithoutAuth(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if got := DeviceFromContext(req.Context()); got != "" {
		t.Errorf("DeviceFromContext() = %q, want empty", got)
	}
}

package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestValidateAuthConfig(t *testing.T) {
	tests := []struct {
		name    string
		cfg     AuthConfig
		wantErr bool
	}{
		{"disabled", AuthConfig{}, false},
		{"missing key", AuthConfig{Enabled: true}, true},
		{"short key", AuthConfig{Enabled: true, APIKey: "short"}, true},
		{"valid", AuthConfig{Enabled: true, APIKey: "0123456789abcdef"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := ValidateAuthConfig(tt.cfg); (err != nil) != tt.wantErr {
				t.Errorf("ValidateAuthConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestAuthMiddleware(t *testing.T) {
	handler := AuthMiddleware(AuthConfig{Enabled: true, APIKey: "0123456789abcdef"})(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))

	tests := []struct {
		name string
		path string
		key  string
		want int
	}{
		{"public health", "/healthz", "", http.StatusOK},
		{"public root", "/", "", http.StatusOK},
		{"missing key", "/pages", "", http.StatusUnauthorized},
		{"wrong key", "/pages", "fedcba9876543210", http.StatusUnauthorized},
		{"valid key", "/pages", "0123456789abcdef", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.key != "" {
				req.Header.Set(APIKeyHeader, tt.key)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
		})
	}
}

func TestNewRejectsBadAuth(t *testing.T) {
	cfg := testConfig()
	cfg.Auth = AuthConfig{Enabled: true}
	if _, err := New(cfg, staticSource(testDict()), nil); err == nil {
		t.Error("New() should reject auth without a key")
	}
}

package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestHealthRoute(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := NewRouter(nil, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
}

func TestNormalizeAllowedOrigins(t *testing.T) {
	cases := []struct {
		name     string
		in       []string
		want     int
		allowAll bool
	}{
		{"empty", nil, 0, false},
		{"wildcard", []string{"*"}, 0, true},
		{"comma separated", []string{"http://a.test, http://b.test"}, 2, false},
		{"mixed", []string{"http://a.test", "*"}, 1, true},
		{"blank entries", []string{" , "}, 0, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			parsed, allowAll := normalizeAllowedOrigins(tc.in)
			if len(parsed) != tc.want || allowAll != tc.allowAll {
				t.Errorf("normalizeAllowedOrigins(%v) = %v, %v", tc.in, parsed, allowAll)
			}
		})
	}
}

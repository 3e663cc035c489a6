package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

const testSecret = "settled-test-secret"

func signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func newTestAuth() *Authenticator {
	return NewAuthenticator(AuthConfig{Enabled: true, HMACSecret: testSecret, Issuer: "ops"}, nil)
}

func serve(auth *Authenticator, token string, scopes ...string) (*httptest.ResponseRecorder, string) {
	var subject string
	handler := auth.Require(scopes...)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		subject = Subject(r.Context())
		w.WriteHeader(http.StatusOK)
	}))
	req := httptest.NewRequest(http.MethodPost, "/v1/operations", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	return res, subject
}

func TestAuthenticatorAcceptsScopedToken(t *testing.T) {
	token := signToken(t, jwt.MapClaims{
		"iss":   "ops",
		"sub":   "operator-1",
		"scope": "settle:read settle:operate",
		"exp":   time.Now().Add(time.Hour).Unix(),
	})
	res, subject := serve(newTestAuth(), token, ScopeOperate)
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if subject != "operator-1" {
		t.Fatalf("unexpected subject %q", subject)
	}
}

func TestAuthenticatorRejects(t *testing.T) {
	valid := jwt.MapClaims{"iss": "ops", "scope": "settle:read", "exp": time.Now().Add(time.Hour).Unix()}
	cases := []struct {
		name   string
		token  string
		scopes []string
		want   int
	}{
		{name: "missing", token: "", want: http.StatusUnauthorized},
		{name: "garbage", token: "not-a-jwt", want: http.StatusUnauthorized},
		{name: "scope", token: signToken(t, valid), scopes: []string{ScopeOperate}, want: http.StatusForbidden},
		{name: "issuer", token: signToken(t, jwt.MapClaims{"iss": "other", "scope": "settle:read", "exp": time.Now().Add(time.Hour).Unix()}), want: http.StatusUnauthorized},
		{name: "expired", token: signToken(t, jwt.MapClaims{"iss": "ops", "scope": "settle:read", "exp": time.Now().Add(-time.Hour).Unix()}), want: http.StatusUnauthorized},
		{name: "no expiry", token: signToken(t, jwt.MapClaims{"iss": "ops", "scope": "settle:read"}), want: http.StatusUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res, _ := serve(newTestAuth(), tc.token, tc.scopes...)
			if res.Code != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, res.Code)
			}
		})
	}
}

func TestAdminScopeImpliesOthers(t *testing.T) {
	token := signToken(t, jwt.MapClaims{
		"iss":   "ops",
		"scope": []interface{}{"settle:admin"},
		"exp":   time.Now().Add(time.Hour).Unix(),
	})
	res, _ := serve(newTestAuth(), token, ScopeOperate, ScopeRead)
	if res.Code != http.StatusOK {
		t.Fatalf("expected admin scope to pass, got %d", res.Code)
	}
}

func TestAuthenticatorDisabledPassesThrough(t *testing.T) {
	res, _ := serve(NewAuthenticator(AuthConfig{}, nil), "", ScopeAdmin)
	if res.Code != http.StatusOK {
		t.Fatalf("expected pass-through, got %d", res.Code)
	}
}

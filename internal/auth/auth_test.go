package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestResolveBearerToken(t *testing.T) {
	j := NewJWTResolver("secret")
	token, err := j.Issue(Principal{ID: 3, Email: "ops@example.com", Role: "admin"}, time.Hour)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/quotes", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	p, err := j.Resolve(req)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if p.ID != 3 || p.Email != "ops@example.com" || p.Role != "admin" || p.SuperAdmin {
		t.Fatalf("unexpected principal: %+v", p)
	}
}

func TestResolveCookieToken(t *testing.T) {
	j := NewJWTResolver("secret")
	token, err := j.Issue(Principal{ID: 1, Email: "root@example.com", SuperAdmin: true}, time.Hour)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/quotes", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: token})

	p, err := j.Resolve(req)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !p.SuperAdmin {
		t.Fatalf("expected super admin principal")
	}
}

func TestResolveRejects(t *testing.T) {
	j := NewJWTResolver("secret")
	other := NewJWTResolver("other-secret")

	expired, _ := j.Issue(Principal{ID: 1, Email: "a@example.com"}, -time.Minute)
	wrongKey, _ := other.Issue(Principal{ID: 1, Email: "a@example.com"}, time.Hour)
	noEmail, _ := j.Issue(Principal{ID: 1}, time.Hour)
	noID, _ := j.Issue(Principal{Email: "a@example.com"}, time.Hour)
	noneAlg, _ := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{ID: 1, Email: "a@example.com"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)

	cases := map[string]string{
		"missing":  "",
		"garbage":  "not-a-token",
		"expired":  expired,
		"wrongKey": wrongKey,
		"noEmail":  noEmail,
		"noID":     noID,
		"noneAlg":  noneAlg,
	}
	for name, token := range cases {
		req := httptest.NewRequest(http.MethodGet, "/api/quotes", nil)
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		if _, err := j.Resolve(req); !errors.Is(err, ErrUnauthenticated) {
			t.Fatalf("%s: expected ErrUnauthenticated, got %v", name, err)
		}
	}
}

func TestPrincipalContext(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if _, ok := FromContext(req.Context()); ok {
		t.Fatalf("expected no principal on bare context")
	}

	ctx := WithPrincipal(req.Context(), Principal{ID: 9, Email: "x@example.com"})
	p, ok := FromContext(ctx)
	if !ok || p.ID != 9 {
		t.Fatalf("unexpected principal: %+v ok=%v", p, ok)
	}
}

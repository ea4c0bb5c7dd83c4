package gate

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var testSecret = []byte("shared-secret")

// signHS256 mints an HMAC-signed token for tests.
func signHS256(t *testing.T, secret []byte, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		t.Fatalf("signing test token: %v", err)
	}
	return token
}

// validClaims returns a minimal claim set expiring in one hour.
func validClaims() jwt.MapClaims {
	return jwt.MapClaims{
		"sub": "user-123",
		"exp": time.Now().Add(1 * time.Hour).Unix(),
	}
}

// okHandler records whether it was invoked and captures the request context.
type okHandler struct {
	called int
	ctx    context.Context
}

func (h *okHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.called++
	h.ctx = r.Context()
	w.WriteHeader(http.StatusOK)
}

// rejectionBody decodes the DefaultErrorHandler JSON envelope.
type rejectionBody struct {
	Error struct {
		Kind    string `json:"kind"`
		Message string `json:"message"`
	} `json:"error"`
}

func decodeRejection(t *testing.T, rec *httptest.ResponseRecorder) rejectionBody {
	t.Helper()
	var body rejectionBody
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decoding rejection body: %v", err)
	}
	return body
}

func TestGate_NoToken_Rejects(t *testing.T) {
	next := &okHandler{}
	handler := New(Options{Secret: testSecret}).Handler(next)

	req := httptest.NewRequest("GET", "/api/data", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	if next.called != 0 {
		t.Error("next handler called on rejection")
	}

	body := decodeRejection(t, rec)
	if body.Error.Kind != "token not found" {
		t.Errorf("kind = %q, want %q", body.Error.Kind, "token not found")
	}
	if body.Error.Message != "token not found" {
		t.Errorf("message = %q, want %q", body.Error.Message, "token not found")
	}
}

func TestGate_NoToken_Passthrough(t *testing.T) {
	next := &okHandler{}
	handler := New(Options{Secret: testSecret, Passthrough: true}).Handler(next)

	req := httptest.NewRequest("GET", "/api/data", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if next.called != 1 {
		t.Fatalf("next called %d times, want 1", next.called)
	}
	if Claims(next.ctx) != nil {
		t.Error("claims present in context after passthrough")
	}
}

func TestGate_MalformedHeader_RejectsEvenUnderPassthrough(t *testing.T) {
	headers := []string{"Bearer", "Bearer ", "Bearer a b", "Basic abc"}

	for _, passthrough := range []bool{false, true} {
		for _, header := range headers {
			next := &okHandler{}
			handler := New(Options{Secret: testSecret, Passthrough: passthrough}).Handler(next)

			req := httptest.NewRequest("GET", "/api/data", nil)
			req.Header.Set("Authorization", header)
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != http.StatusUnauthorized {
				t.Errorf("header %q passthrough=%v: status = %d, want 401", header, passthrough, rec.Code)
			}
			if next.called != 0 {
				t.Errorf("header %q passthrough=%v: next handler called", header, passthrough)
			}

			body := decodeRejection(t, rec)
			if body.Error.Kind != "invalid header format" {
				t.Errorf("header %q: kind = %q, want %q", header, body.Error.Kind, "invalid header format")
			}
		}
	}
}

func TestGate_ValidToken_AdmitsWithClaims(t *testing.T) {
	token := signHS256(t, testSecret, validClaims())

	next := &okHandler{}
	handler := New(Options{Secret: testSecret}).Handler(next)

	req := httptest.NewRequest("GET", "/api/data", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	claims := Claims(next.ctx)
	if claims == nil {
		t.Fatal("no claims in context under default key")
	}
	if sub, _ := claims.GetSubject(); sub != "user-123" {
		t.Errorf("sub = %q, want %q", sub, "user-123")
	}
}

func TestGate_CustomContextKey(t *testing.T) {
	token := signHS256(t, testSecret, validClaims())

	next := &okHandler{}
	handler := New(Options{Secret: testSecret, ContextKey: "identity"}).Handler(next)

	req := httptest.NewRequest("GET", "/api/data", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if ClaimsFrom(next.ctx, "identity") == nil {
		t.Error("no claims under configured key")
	}
	if Claims(next.ctx) != nil {
		t.Error("claims leaked under default key")
	}
}

func TestGate_WrongSecret_InvalidSignature(t *testing.T) {
	token := signHS256(t, []byte("other-secret"), validClaims())

	next := &okHandler{}
	handler := New(Options{Secret: testSecret}).Handler(next)

	req := httptest.NewRequest("GET", "/api/data", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	body := decodeRejection(t, rec)
	if body.Error.Message != "invalid token: invalid signature" {
		t.Errorf("message = %q, want %q", body.Error.Message, "invalid token: invalid signature")
	}
}

func TestGate_ExpiredToken(t *testing.T) {
	claims := validClaims()
	claims["exp"] = time.Now().Add(-1 * time.Hour).Unix()
	token := signHS256(t, testSecret, claims)

	next := &okHandler{}
	handler := New(Options{Secret: testSecret}).Handler(next)

	req := httptest.NewRequest("GET", "/api/data", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	body := decodeRejection(t, rec)
	if body.Error.Message != "invalid token: jwt expired" {
		t.Errorf("message = %q, want %q", body.Error.Message, "invalid token: jwt expired")
	}
}

func TestGate_AudienceMismatch(t *testing.T) {
	claims := validClaims()
	claims["aud"] = "other"
	token := signHS256(t, testSecret, claims)

	next := &okHandler{}
	handler := New(Options{
		Secret:   testSecret,
		Audience: []string{"http://myapi/protected"},
	}).Handler(next)

	req := httptest.NewRequest("GET", "/api/data", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	body := decodeRejection(t, rec)
	want := "invalid token: jwt audience invalid. expected: http://myapi/protected"
	if body.Error.Message != want {
		t.Errorf("message = %q, want %q", body.Error.Message, want)
	}
}

func TestGate_GetTokenPriority(t *testing.T) {
	customToken := signHS256(t, testSecret, validClaims())
	headerToken := signHS256(t, []byte("other-secret"), validClaims())

	next := &okHandler{}
	handler := New(Options{
		Secret: testSecret,
		GetToken: func(r *http.Request, _ Options) string {
			return customToken
		},
	}).Handler(next)

	// Header carries a token the gate cannot verify; the custom getter
	// must win, so the request is admitted.
	req := httptest.NewRequest("GET", "/api/data", nil)
	req.Header.Set("Authorization", "Bearer "+headerToken)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (custom getter should win)", rec.Code)
	}
}

func TestGate_CookieOverHeader(t *testing.T) {
	cookieToken := signHS256(t, testSecret, validClaims())
	headerToken := signHS256(t, []byte("other-secret"), validClaims())

	next := &okHandler{}
	handler := New(Options{Secret: testSecret, Cookie: "jwt"}).Handler(next)

	req := httptest.NewRequest("GET", "/api/data", nil)
	req.AddCookie(&http.Cookie{Name: "jwt", Value: cookieToken})
	req.Header.Set("Authorization", "Bearer "+headerToken)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (cookie should win over header)", rec.Code)
	}
}

func TestGate_DecliningGetterFallsThrough(t *testing.T) {
	token := signHS256(t, testSecret, validClaims())

	next := &okHandler{}
	handler := New(Options{
		Secret:   testSecret,
		GetToken: func(*http.Request, Options) string { return "" },
	}).Handler(next)

	req := httptest.NewRequest("GET", "/api/data", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (header should be used when getter declines)", rec.Code)
	}
}

func TestGate_RequestScopedSecretOverridesConfig(t *testing.T) {
	override := []byte("per-request-secret")
	token := signHS256(t, override, validClaims())

	next := &okHandler{}
	gated := New(Options{Secret: testSecret}).Handler(next)

	// Upstream stage injects the request-scoped secret before the gate.
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gated.ServeHTTP(w, r.WithContext(WithSecret(r.Context(), override)))
	})

	req := httptest.NewRequest("GET", "/api/data", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (override secret should verify)", rec.Code)
	}
}

func TestGate_NoSecret_InvalidSecret(t *testing.T) {
	token := signHS256(t, testSecret, validClaims())

	next := &okHandler{}
	handler := New(Options{}).Handler(next)

	req := httptest.NewRequest("GET", "/api/data", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	body := decodeRejection(t, rec)
	if body.Error.Kind != "invalid secret" {
		t.Errorf("kind = %q, want %q", body.Error.Kind, "invalid secret")
	}
}

func TestGate_CustomErrorHandler(t *testing.T) {
	var got *Error
	handler := New(Options{
		Secret: testSecret,
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err *Error) {
			got = err
			w.WriteHeader(http.StatusUnauthorized)
		},
	}).Handler(&okHandler{})

	req := httptest.NewRequest("GET", "/api/data", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if got == nil {
		t.Fatal("error handler not invoked")
	}
	if got.Kind != KindTokenNotFound {
		t.Errorf("Kind = %v, want KindTokenNotFound", got.Kind)
	}
}

func TestGate_Idempotent(t *testing.T) {
	claims := validClaims()
	claims["exp"] = time.Now().Add(-1 * time.Hour).Unix()
	token := signHS256(t, testSecret, claims)

	handler := New(Options{Secret: testSecret}).Handler(&okHandler{})

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest("GET", "/api/data", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("pass %d: status = %d, want 401", i+1, rec.Code)
		}
		body := decodeRejection(t, rec)
		if body.Error.Message != "invalid token: jwt expired" {
			t.Errorf("pass %d: message = %q, classification drifted", i+1, body.Error.Message)
		}
	}
}

package gate

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestBypass_ExcludedPathSkipsGate(t *testing.T) {
	next := &okHandler{}
	mw := Bypass(New(Options{Secret: testSecret}).Handler, []Rule{{Path: "/healthz"}})
	handler := mw(next)

	req := httptest.NewRequest("GET", "/healthz", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 for excluded path", rec.Code)
	}
	if next.called != 1 {
		t.Errorf("next called %d times, want 1", next.called)
	}
}

func TestBypass_OtherPathsStayGuarded(t *testing.T) {
	next := &okHandler{}
	mw := Bypass(New(Options{Secret: testSecret}).Handler, []Rule{{Path: "/healthz"}})
	handler := mw(next)

	req := httptest.NewRequest("GET", "/api/data", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401 for guarded path", rec.Code)
	}
	if next.called != 0 {
		t.Error("next handler reached without credentials")
	}
}

func TestBypass_MethodScopedRule(t *testing.T) {
	next := &okHandler{}
	mw := Bypass(New(Options{Secret: testSecret}).Handler, []Rule{{Method: "GET", Path: "/public"}})
	handler := mw(next)

	get := httptest.NewRequest("GET", "/public", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, get)
	if rec.Code != http.StatusOK {
		t.Errorf("GET status = %d, want 200", rec.Code)
	}

	post := httptest.NewRequest("POST", "/public", nil)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, post)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("POST status = %d, want 401", rec.Code)
	}
}

func TestBypass_PrefixRule(t *testing.T) {
	next := &okHandler{}
	mw := Bypass(New(Options{Secret: testSecret}).Handler, []Rule{{Path: "/public/"}})
	handler := mw(next)

	req := httptest.NewRequest("GET", "/public/assets/logo.svg", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 for prefix match", rec.Code)
	}
}

package errors

import (
	"context"
	"fmt"
	"net/http"
	"testing"
)

func TestWrap_PreservesCause(t *testing.T) {
	err := Wrap(ErrCodeFetch, context.DeadlineExceeded, "fetch %s", "octocat")
	if !Is(err, ErrCodeFetch) {
		t.Fatalf("Is(%v, FETCH_FAILED) = false", err)
	}
	if err.Unwrap() != context.DeadlineExceeded {
		t.Fatalf("cause lost: %v", err.Unwrap())
	}
	if got := UserMessage(err); got != "fetch octocat" {
		t.Fatalf("UserMessage = %q", got)
	}
}

func TestGetCode_ThroughFmtWrap(t *testing.T) {
	inner := New(ErrCodeMalformedMarkup, "no day cells")
	err := fmt.Errorf("render widget: %w", inner)
	if got := GetCode(err); got != ErrCodeMalformedMarkup {
		t.Fatalf("GetCode = %q", got)
	}
	if GetCode(fmt.Errorf("plain")) != "" {
		t.Fatal("plain error should carry no code")
	}
}

func TestIs_InnerCodeBehindOuterCode(t *testing.T) {
	inner := New(ErrCodeIncompleteRender, "placeholder only")
	err := Wrap(ErrCodeFetch, fmt.Errorf("attempt 3: %w", inner), "fetch octocat")

	if GetCode(err) != ErrCodeFetch {
		t.Fatalf("GetCode = %q, want outermost FETCH_FAILED", GetCode(err))
	}
	if !Is(err, ErrCodeFetch) {
		t.Fatal("Is should match the outer code")
	}
	if !Is(err, ErrCodeIncompleteRender) {
		t.Fatal("Is should match a code wrapped further down the chain")
	}
	if Is(err, ErrCodeNotFound) {
		t.Fatal("Is matched a code absent from the chain")
	}
	if Is(nil, ErrCodeFetch) {
		t.Fatal("Is(nil) should be false")
	}
}

func TestHTTPStatus(t *testing.T) {
	cases := map[Code]int{
		ErrCodeMalformedMarkup:  http.StatusUnprocessableEntity,
		ErrCodeIncompleteRender: http.StatusGatewayTimeout,
		ErrCodeFetch:            http.StatusBadGateway,
		ErrCodeInvalidInput:     http.StatusBadRequest,
		ErrCodeNotFound:         http.StatusNotFound,
		ErrCodeUnauthorized:     http.StatusUnauthorized,
		ErrCodeInternal:         http.StatusInternalServerError,
	}
	for code, want := range cases {
		if got := HTTPStatus(New(code, "x")); got != want {
			t.Errorf("HTTPStatus(%s) = %d, want %d", code, got, want)
		}
	}
	if got := HTTPStatus(fmt.Errorf("boom")); got != http.StatusInternalServerError {
		t.Errorf("HTTPStatus(plain) = %d", got)
	}
}

package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-resty/resty/v2"
)

func TestIdentityClientResolveSuccess(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/users/u1" {
			t.Errorf("path = %s, want /api/v1/users/u1", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"id":"u1","email":"ann@example.com"}}`))
	}))
	defer server.Close()

	c, err := NewIdentityClient(server.URL, 5*time.Second)
	if err != nil {
		t.Fatalf("NewIdentityClient() error = %v", err)
	}

	address, err := c.Resolve(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Resolve() unexpected error: %v", err)
	}
	if address != "ann@example.com" {
		t.Fatalf("address = %q, want ann@example.com", address)
	}
}

func TestIdentityClientResolveNotFoundIsPermanent(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"user not found"}`))
	}))
	defer server.Close()

	c, err := NewIdentityClient(server.URL, 5*time.Second)
	if err != nil {
		t.Fatalf("NewIdentityClient() error = %v", err)
	}

	_, err = c.Resolve(context.Background(), "ghost")
	if err == nil {
		t.Fatal("expected error")
	}
	if !IsNotFound(err) {
		t.Fatalf("IsNotFound() = false, want true (err=%v)", err)
	}
	if IsTransient(err) {
		t.Fatalf("IsTransient() = true, want false (err=%v)", err)
	}
}

func TestIdentityClientResolveStatusClassification(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name          string
		statusCode    int
		wantTransient bool
	}{
		{name: "internal server error is transient", statusCode: http.StatusInternalServerError, wantTransient: true},
		{name: "too many requests is transient", statusCode: http.StatusTooManyRequests, wantTransient: true},
		{name: "bad request is permanent", statusCode: http.StatusBadRequest, wantTransient: false},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.statusCode)
			}))
			defer server.Close()

			c, err := NewIdentityClient(server.URL, 5*time.Second)
			if err != nil {
				t.Fatalf("NewIdentityClient() error = %v", err)
			}

			_, err = c.Resolve(context.Background(), "u1")
			if err == nil {
				t.Fatal("expected error")
			}

			if got := IsTransient(err); got != tc.wantTransient {
				t.Fatalf("IsTransient() = %v, want %v", got, tc.wantTransient)
			}

			var downstreamErr *DownstreamError
			if !errors.As(err, &downstreamErr) {
				t.Fatalf("expected DownstreamError, got %T", err)
			}
			if downstreamErr.StatusCode != tc.statusCode {
				t.Fatalf("StatusCode = %d, want %d", downstreamErr.StatusCode, tc.statusCode)
			}
		})
	}
}

func TestIdentityClientResolveTimeoutIsTransient(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		_, _ = w.Write([]byte(`{"data":{"id":"u1","email":"ann@example.com"}}`))
	}))
	defer server.Close()

	restyClient := resty.New()
	restyClient.SetTimeout(30 * time.Millisecond)

	c, err := NewIdentityClientWithClient(server.URL, restyClient)
	if err != nil {
		t.Fatalf("NewIdentityClientWithClient() error = %v", err)
	}

	_, err = c.Resolve(context.Background(), "u1")
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if !IsTransient(err) {
		t.Fatalf("IsTransient() = false, want true (err=%v)", err)
	}
}

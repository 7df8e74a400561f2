package lookup

import (
	"bytes"
	"compress/gzip"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

const successBody = `{"obfuscated_email":"j***@g***.com","obfuscated_phone":"+1 ***-***-**12","status":"ok"}`

func newTestClient(srvURL string) *Client {
	return New(WithEndpoint(srvURL), WithRetryDelay(time.Millisecond))
}

func TestLookupSuccess(t *testing.T) {
	var gotForm url.Values
	var gotHeaders http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeaders = r.Header.Clone()
		if body, err := io.ReadAll(r.Body); err == nil {
			gotForm, _ = url.ParseQuery(string(body)) //nolint:errcheck // checked below
		}
		_, _ = w.Write([]byte(successBody)) //nolint:errcheck // test handler
	}))
	defer srv.Close()

	got := newTestClient(srv.URL).Lookup(context.Background(), "janedoe")

	want := Result{
		Data:     &Contact{ObfuscatedEmail: "j***@g***.com", ObfuscatedPhone: "+1 ***-***-**12"},
		Attempts: 1,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Lookup() mismatch (-want +got):\n%s", diff)
	}

	if sb := gotForm.Get("signed_body"); sb != `SIGNATURE.{"q":"janedoe","skip_recovery":"1"}` {
		t.Errorf("signed_body = %q", sb)
	}
	headers := map[string]string{
		"User-Agent":   userAgent,
		"X-Ig-App-Id":  appID,
		"Content-Type": "application/x-www-form-urlencoded; charset=UTF-8",
	}
	for k, v := range headers {
		if got := gotHeaders.Get(k); got != v {
			t.Errorf("header %s = %q, want %q", k, got, v)
		}
	}
}

func TestLookupRetriesMalformedBody(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html><body>Please wait a few minutes</body></html>")) //nolint:errcheck // test handler
	}))
	defer srv.Close()

	got := newTestClient(srv.URL).Lookup(context.Background(), "janedoe")

	if calls.Load() != 3 {
		t.Errorf("server calls = %d, want 3", calls.Load())
	}
	if got.Attempts != 3 {
		t.Errorf("Attempts = %d, want 3", got.Attempts)
	}
	if got.Data != nil {
		t.Errorf("Data = %+v, want nil", got.Data)
	}
	if got.Err == nil || got.Err.Kind != RateLimited {
		t.Errorf("Err = %+v, want kind %q", got.Err, RateLimited)
	}
}

func TestLookupRecoversAfterMalformedBody(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			_, _ = w.Write([]byte("<html></html>")) //nolint:errcheck // test handler
			return
		}
		_, _ = w.Write([]byte(`{"obfuscated_phone": 4412}`)) //nolint:errcheck // test handler
	}))
	defer srv.Close()

	got := newTestClient(srv.URL).Lookup(context.Background(), "janedoe")

	want := Result{Data: &Contact{ObfuscatedPhone: "4412"}, Attempts: 2}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Lookup() mismatch (-want +got):\n%s", diff)
	}
}

func TestLookupNoRetryOnOtherFailures(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantMsg string
	}{
		{"json error", http.StatusBadRequest, `{"message":"No users found","status":"fail"}`, "HTTP 400: No users found"},
		{"json error without message", http.StatusNotFound, `{"status":"fail"}`, "HTTP 404: Not Found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				calls.Add(1)
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body)) //nolint:errcheck // test handler
			}))
			defer srv.Close()

			got := newTestClient(srv.URL).Lookup(context.Background(), "janedoe")

			if calls.Load() != 1 {
				t.Errorf("server calls = %d, want 1", calls.Load())
			}
			want := &Failure{Kind: Other, Message: tt.wantMsg}
			if diff := cmp.Diff(want, got.Err); diff != "" {
				t.Errorf("Lookup() error mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestLookupNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	endpoint := srv.URL
	srv.Close()

	got := newTestClient(endpoint).Lookup(context.Background(), "janedoe")

	if got.Attempts != 1 {
		t.Errorf("Attempts = %d, want 1", got.Attempts)
	}
	if got.Err == nil || got.Err.Kind != Other || got.Err.Message == "" {
		t.Errorf("Err = %+v, want kind %q with message", got.Err, Other)
	}
}

func TestLookupEmptyContact(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"status":"ok"}`)) //nolint:errcheck // test handler
	}))
	defer srv.Close()

	got := newTestClient(srv.URL).Lookup(context.Background(), "janedoe")
	if got.Err != nil {
		t.Fatalf("Lookup() error = %+v, want none", got.Err)
	}
	if got.Data == nil || !got.Data.Empty() {
		t.Errorf("Lookup() data = %+v, want empty contact", got.Data)
	}
}

func TestLookupGzip(t *testing.T) {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if _, err := gz.Write([]byte(`{"obfuscated_email":"a***@b.com"}`)); err != nil {
		t.Fatalf("gzip write: %v", err)
	}
	if err := gz.Close(); err != nil {
		t.Fatalf("gzip close: %v", err)
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Encoding", "gzip")
		_, _ = w.Write(buf.Bytes()) //nolint:errcheck // test handler
	}))
	defer srv.Close()

	got := newTestClient(srv.URL).Lookup(context.Background(), "janedoe")
	if got.Data == nil || got.Data.ObfuscatedEmail != "a***@b.com" {
		t.Errorf("Lookup() = %+v, want decoded email", got)
	}
}

func TestLookupCanceledDuringRetry(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		cancel()
		_, _ = w.Write([]byte("<html></html>")) //nolint:errcheck // test handler
	}))
	defer srv.Close()

	client := New(WithEndpoint(srv.URL), WithRetryDelay(time.Hour))

	done := make(chan Result, 1)
	go func() { done <- client.Lookup(ctx, "janedoe") }()

	select {
	case got := <-done:
		if got.Err == nil || got.Err.Kind != Other {
			t.Errorf("Err = %+v, want kind %q", got.Err, Other)
		}
		if calls.Load() != 1 {
			t.Errorf("server calls = %d, want 1", calls.Load())
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Lookup() did not return after cancellation")
	}
}

func TestSignedBody(t *testing.T) {
	got, err := signedBody("a.b_c")
	if err != nil {
		t.Fatalf("signedBody() error = %v", err)
	}
	want := "signed_body=SIGNATURE.%7B%22q%22%3A%22a.b_c%22%2C%22skip_recovery%22%3A%221%22%7D"
	if got != want {
		t.Errorf("signedBody() = %q, want %q", got, want)
	}
}

package cache

import (
	"net/http"
	"testing"

	"github.com/Sternrassler/cacher/pkg/message"
)

func newRequest(t *testing.T, method, url string, headers map[string]string) *http.Request {
	t.Helper()
	r, err := http.NewRequest(method, url, nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	for k, v := range headers {
		r.Header.Set(k, v)
	}
	return r
}

func TestNoVaryKey(t *testing.T) {
	tests := []struct {
		name    string
		method  string
		url     string
		headers map[string]string
		want    Key
	}{
		{
			name:   "simple path",
			method: http.MethodGet,
			url:    "http://host/a",
			want:   "GET_http://host/a",
		},
		{
			name:   "port and query",
			method: http.MethodGet,
			url:    "http://origin:9191/items?page=2&sort=asc",
			want:   "GET_http://origin:9191/items?page=2&sort=asc",
		},
		{
			name:    "accept-language suffix",
			method:  http.MethodGet,
			url:     "https://origin/items",
			headers: map[string]string{"Accept-Language": "de-DE"},
			want:    "GET_https://origin/itemsde-DE",
		},
		{
			name:   "method is part of the key",
			method: http.MethodPost,
			url:    "http://host/a",
			want:   "POST_http://host/a",
		},
		{
			name:    "other headers ignored",
			method:  http.MethodGet,
			url:     "http://host/a",
			headers: map[string]string{"X-Tenant": "acme"},
			want:    "GET_http://host/a",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NoVaryKey(newRequest(t, tt.method, tt.url, tt.headers))
			if got != tt.want {
				t.Errorf("NoVaryKey() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestVaryKey(t *testing.T) {
	r := newRequest(t, http.MethodGet, "http://host/a", map[string]string{
		"Accept-Encoding": "gzip",
		"X-Tenant":        "acme",
	})

	tests := []struct {
		name string
		vary string
		want Key
	}{
		{"single header", "Accept-Encoding", "GET_http://host/agzip"},
		{"sorted by lower-cased name", "X-Tenant, Accept-Encoding", "GET_http://host/agzipacme"},
		{"case of names is irrelevant", "x-tenant,ACCEPT-ENCODING", "GET_http://host/agzipacme"},
		{"duplicates collapsed", "X-Tenant, x-tenant", "GET_http://host/aacme"},
		{"empty names skipped", " , ,X-Tenant,", "GET_http://host/aacme"},
		{"missing header contributes nothing", "X-Missing", "GET_http://host/a"},
		{"empty vary", "", "GET_http://host/a"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := VaryKey(tt.vary, r); got != tt.want {
				t.Errorf("VaryKey(%q) = %q, want %q", tt.vary, got, tt.want)
			}
		})
	}
}

func TestVaryKey_IgnoresAcceptLanguageUnlessNamed(t *testing.T) {
	r := newRequest(t, http.MethodGet, "http://host/a", map[string]string{"Accept-Language": "fr"})

	if got := VaryKey("", r); got != "GET_http://host/a" {
		t.Errorf("VaryKey() = %q", got)
	}
	if got := VaryKey("accept-language", r); got != "GET_http://host/afr" {
		t.Errorf("VaryKey() = %q", got)
	}
}

func TestVaryKey_SnapshotMatchesLive(t *testing.T) {
	varies := []string{
		"",
		"Accept-Encoding",
		"x-tenant, accept-encoding, Accept-Language",
		"X-Missing,X-Tenant",
	}

	r := newRequest(t, http.MethodPut, "http://origin:8080/p/q?x=1", map[string]string{
		"accept-encoding": "br",
		"X-TENANT":        "acme",
		"Accept-Language": "en",
	})
	snap := message.NewRequest(r)

	for _, vary := range varies {
		live := VaryKey(vary, r)
		fromSnap := VaryKeyFromSnapshot(vary, snap)
		if live != fromSnap {
			t.Errorf("vary %q: live %q != snapshot %q", vary, live, fromSnap)
		}
	}
}

func TestVaryRegistrationKey(t *testing.T) {
	if got := VaryRegistrationKey("/Products/List"); got != "/products/list" {
		t.Errorf("VaryRegistrationKey() = %q", got)
	}
}

func TestVaryNames(t *testing.T) {
	got := VaryNames("X-B, x-a ,X-B,,Accept")
	want := []string{"accept", "x-a", "x-b"}
	if len(got) != len(want) {
		t.Fatalf("VaryNames() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("VaryNames()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestVaryKey_OrdersValuesByLowerCasedName(t *testing.T) {
	r := newRequest(t, http.MethodGet, "http://host/p", map[string]string{"X-B": "2", "A-A": "1"})

	got := VaryKey("X-B, a-a", r)
	if want := Key("GET_http://host/p12"); got != want {
		t.Errorf("VaryKey() = %q, want %q", got, want)
	}
}

func TestHashed(t *testing.T) {
	a := Hashed("GET_http://host/a")
	b := Hashed("GET_http://host/b")

	if len(a) != 64 {
		t.Errorf("hashed key length = %d, want 64", len(a))
	}
	if a == b {
		t.Error("distinct keys hashed to the same value")
	}
	if a != Hashed("GET_http://host/a") {
		t.Error("Hashed is not deterministic")
	}
}

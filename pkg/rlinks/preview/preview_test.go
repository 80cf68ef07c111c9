package preview

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const openGraphPage = `<!doctype html>
<html><head>
<title>Plain title</title>
<meta name="description" content="plain description">
<meta property="og:title" content="OG title">
<meta property="og:description" content="OG description">
<meta property="og:image" content="/img/card.png">
</head><body><meta property="og:title" content="ignored"></body></html>`

// newLocalFetcher may dial httptest servers on loopback; redirect targets
// are still checked.
func newLocalFetcher(opts ...Option) *HTTPFetcher {
	opts = append([]Option{WithAddrCheck(func(netip.Addr) bool { return true })}, opts...)
	return NewHTTPFetcher(time.Second, opts...)
}

func TestParseOpenGraph(t *testing.T) {
	md := Parse(strings.NewReader(openGraphPage))

	assert.Equal(t, "OG title", md.Title)
	assert.Equal(t, "OG description", md.Description)
	assert.Equal(t, "/img/card.png", md.Image)
}

func TestParseFallbacks(t *testing.T) {
	page := `<html><head><title> Hello </title><meta name="Description" content="about"></head></html>`
	md := Parse(strings.NewReader(page))

	assert.Equal(t, "Hello", md.Title)
	assert.Equal(t, "about", md.Description)
	assert.Empty(t, md.Image)
}

func TestParseGarbage(t *testing.T) {
	md := Parse(strings.NewReader("not html at all"))
	assert.Equal(t, Metadata{}, md)
}

func TestHTTPFetcher(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(openGraphPage))
	}))
	defer srv.Close()

	md, err := newLocalFetcher().Fetch(context.Background(), srv.URL+"/page")
	require.NoError(t, err)

	assert.Equal(t, "OG title", md.Title)
	assert.Equal(t, srv.URL+"/img/card.png", md.Image)
}

func TestHTTPFetcherErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := newLocalFetcher().Fetch(context.Background(), srv.URL)
	assert.Error(t, err)
}

func TestHTTPFetcherNonHTML(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"title":"x"}`))
	}))
	defer srv.Close()

	md, err := newLocalFetcher().Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, Metadata{}, md)
}

func TestHTTPFetcherTimeout(t *testing.T) {
	done := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-done:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(done)

	f := NewHTTPFetcher(50*time.Millisecond, WithAddrCheck(func(netip.Addr) bool { return true }))
	_, err := f.Fetch(context.Background(), srv.URL)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrBlockedAddress)
}

func TestNoop(t *testing.T) {
	md, err := Noop{}.Fetch(context.Background(), "https://example.com")
	require.NoError(t, err)
	assert.Equal(t, Metadata{}, md)
}

func TestHTTPFetcherRefusesRedirectToInternalAddress(t *testing.T) {
	targets := []string{
		"http://169.254.169.254/latest/meta-data/",
		"http://10.0.0.5/admin",
		"http://127.0.0.1:8080/",
		"http://localhost/",
	}

	for _, target := range targets {
		t.Run(target, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				http.Redirect(w, r, target, http.StatusFound)
			}))
			defer srv.Close()

			md, err := newLocalFetcher().Fetch(context.Background(), srv.URL)
			assert.ErrorIs(t, err, ErrBlockedAddress)
			assert.Equal(t, Metadata{}, md)
		})
	}
}

func TestHTTPFetcherFollowsAllowedRedirect(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/start", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/page", http.StatusMovedPermanently)
	})
	mux.HandleFunc("/page", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(openGraphPage))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	var checked []string
	f := newLocalFetcher(WithURLCheck(func(rawURL string) bool {
		checked = append(checked, rawURL)
		return true
	}))

	md, err := f.Fetch(context.Background(), srv.URL+"/start")
	require.NoError(t, err)
	assert.Equal(t, "OG title", md.Title)
	assert.Equal(t, []string{srv.URL + "/page"}, checked)
}

func TestHTTPFetcherRefusesToDialLoopback(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(openGraphPage))
	}))
	defer srv.Close()

	// a public looking name can still resolve to loopback; the dial is what
	// gets checked
	f := NewHTTPFetcher(time.Second, WithURLCheck(func(string) bool { return true }))

	md, err := f.Fetch(context.Background(), srv.URL)
	assert.ErrorIs(t, err, ErrBlockedAddress)
	assert.Equal(t, Metadata{}, md)
	assert.Zero(t, hits)
}

func TestPublicAddr(t *testing.T) {
	tests := []struct {
		addr string
		want bool
	}{
		{"93.184.216.34", true},
		{"2606:2800:220:1:248:1893:25c8:1946", true},
		{"127.0.0.1", false},
		{"10.0.0.5", false},
		{"172.16.3.4", false},
		{"192.168.1.1", false},
		{"169.254.169.254", false},
		{"100.64.0.1", false},
		{"0.0.0.0", false},
		{"224.0.0.1", false},
		{"::1", false},
		{"fe80::1", false},
		{"fd00::1", false},
	}

	for _, tt := range tests {
		t.Run(tt.addr, func(t *testing.T) {
			assert.Equal(t, tt.want, PublicAddr(netip.MustParseAddr(tt.addr)))
		})
	}
}

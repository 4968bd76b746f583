package videometa

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const watchPage = `<!DOCTYPE html>
<html><head>
<title>Perfect Carbonara - YouTube</title>
<meta property="og:title" content="Perfect Carbonara">
</head><body>
<span itemprop="author" itemscope itemtype="http://schema.org/Person">
  <link itemprop="url" href="https://www.youtube.com/@pastachef">
  <link itemprop="name" content="Pasta Chef">
</span>
</body></html>`

func TestParseOpenGraph(t *testing.T) {
	meta, err := Parse(strings.NewReader(watchPage), "text/html; charset=utf-8")
	require.NoError(t, err)
	assert.Equal(t, "Perfect Carbonara", meta.Title)
	assert.Equal(t, "Pasta Chef", meta.Channel)
}

func TestParseFallsBackToTitle(t *testing.T) {
	page := `<html><head><title>Quick Ramen - YouTube</title><meta name="author" content="Noodle Lab"></head></html>`
	meta, err := Parse(strings.NewReader(page), "text/html")
	require.NoError(t, err)
	assert.Equal(t, "Quick Ramen", meta.Title)
	assert.Equal(t, "Noodle Lab", meta.Channel)
}

func TestParseLatin1(t *testing.T) {
	page := "<html><head><title>Cr\xe8me Br\xfbl\xe9e</title></head></html>"
	meta, err := Parse(strings.NewReader(page), "text/html; charset=iso-8859-1")
	require.NoError(t, err)
	assert.Equal(t, "Crème Brûlée", meta.Title)
}

func TestParseEmptyDocument(t *testing.T) {
	meta, err := Parse(strings.NewReader(""), "text/html")
	require.NoError(t, err)
	assert.True(t, meta.Empty())
}

func TestLookup(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/watch", r.URL.Path)
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(watchPage))
	}))
	defer srv.Close()

	meta, err := NewFetcher(srv.Client(), nil).Lookup(context.Background(), srv.URL+"/watch?v=abc123")
	require.NoError(t, err)
	assert.Equal(t, "Perfect Carbonara", meta.Title)
}

func TestLookupHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	_, err := NewFetcher(srv.Client(), nil).Lookup(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP 404")
}

func TestLookupEmptyBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
	}))
	defer srv.Close()

	meta, err := NewFetcher(srv.Client(), nil).Lookup(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.True(t, meta.Empty())
}

package httpclient_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/italolelis/media_downloader/internal/httpclient"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_SetsUserAgentAndFollowsRedirects(t *testing.T) {
	var gotUA string

	mux := http.NewServeMux()
	mux.HandleFunc("/old", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/new", http.StatusFound)
	})
	mux.HandleFunc("/new", func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.UserAgent()
		w.WriteHeader(http.StatusNoContent)
	})

	ts := httptest.NewServer(mux)
	defer ts.Close()

	client := httpclient.New(httpclient.Options{ConnectTimeout: time.Second, UserAgent: "media_downloader/test"})

	resp, err := client.Get(ts.URL + "/old")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "media_downloader/test", gotUA)
}

func TestNew_DefaultUserAgent(t *testing.T) {
	var gotUA string

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.UserAgent()
	}))
	defer ts.Close()

	resp, err := httpclient.New(httpclient.Options{}).Get(ts.URL)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, httpclient.DefaultUserAgent, gotUA)
}

func TestProxyFunc(t *testing.T) {
	fn, err := httpclient.ProxyFunc("http://proxy.local:3128")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "https://cdn.example.com/a.mp4", nil)
	u, err := fn(req)
	require.NoError(t, err)
	assert.Equal(t, "proxy.local:3128", u.Host)

	_, err = httpclient.ProxyFunc("::not a url")
	assert.Error(t, err)

	fn, err = httpclient.ProxyFunc("")
	require.NoError(t, err)
	assert.NotNil(t, fn)
}

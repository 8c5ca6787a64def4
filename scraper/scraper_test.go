package scraper

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const landingPage = `<html><body>
<a href="/pubs/cancer-survival-in-england/index-2005-to-2020">Index</a>
<a href="/pubs/cancer-survival-in-england/cancers-diagnosed-2016-to-2020-followed-up-to-2021">Adult</a>
<a href="/pubs/cancer-survival-in-england/index-2005-to-2020#top">Index again</a>
<a href="/pubs/other-publication/2021">Other</a>
<a href="mailto:enquiries@example.org">Mail</a>
</body></html>`

const filesPage = `<html><body>
<a href="/files/Index_2005_2020.xlsx">Index workbook</a>
<a href="/files/adult%20female%20breast_2016_2020.XLSX">Adult</a>
<a href="/files/methodology.pdf">Methods</a>
<a href="#contents">Contents</a>
</body></html>`

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/pubs/cancer-survival-in-england", func(w http.ResponseWriter, _ *http.Request) {
		io.WriteString(w, landingPage)
	})
	mux.HandleFunc("/pubs/cancer-survival-in-england/index-2005-to-2020", func(w http.ResponseWriter, _ *http.Request) {
		io.WriteString(w, filesPage)
	})
	mux.HandleFunc("/files/Index_2005_2020.xlsx", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("PK\x03\x04workbook"))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newClient(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()
	c, err := NewClient(Options{
		BaseURL:   srv.URL + "/pubs",
		Timeout:   5 * time.Second,
		Interval:  time.Millisecond,
		Extension: "xlsx",
	}, log.New(io.Discard))
	require.NoError(t, err)
	return c
}

func TestListPages(t *testing.T) {
	srv := newServer(t)
	c := newClient(t, srv)

	pages, err := c.ListPages(context.Background(), "cancer-survival-in-england")
	require.NoError(t, err)
	assert.Equal(t, []string{
		srv.URL + "/pubs/cancer-survival-in-england/index-2005-to-2020",
		srv.URL + "/pubs/cancer-survival-in-england/cancers-diagnosed-2016-to-2020-followed-up-to-2021",
	}, pages)
}

func TestListLinks(t *testing.T) {
	srv := newServer(t)
	c := newClient(t, srv)

	links, err := c.ListLinks(context.Background(), srv.URL+"/pubs/cancer-survival-in-england/index-2005-to-2020")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"Index_2005_2020":               srv.URL + "/files/Index_2005_2020.xlsx",
		"adult female breast_2016_2020": srv.URL + "/files/adult%20female%20breast_2016_2020.XLSX",
	}, links)
}

func TestFetch(t *testing.T) {
	srv := newServer(t)
	c := newClient(t, srv)

	data, err := c.Fetch(context.Background(), srv.URL+"/files/Index_2005_2020.xlsx")
	require.NoError(t, err)
	assert.Equal(t, []byte("PK\x03\x04workbook"), data)

	_, err = c.Fetch(context.Background(), srv.URL+"/files/missing.xlsx")
	var fe *FetchError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, srv.URL+"/files/missing.xlsx", fe.URL)
	assert.ErrorContains(t, err, "404")
}

func TestFetchCancelled(t *testing.T) {
	srv := newServer(t)
	c := newClient(t, srv)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Fetch(ctx, srv.URL+"/files/Index_2005_2020.xlsx")
	var fe *FetchError
	assert.ErrorAs(t, err, &fe)
}

func TestNewClientRejectsBadBaseURL(t *testing.T) {
	_, err := NewClient(Options{BaseURL: "not a url"}, log.New(io.Discard))
	assert.Error(t, err)
}

func TestSelectLink(t *testing.T) {
	links := map[string]string{
		"Index_2005_2020":           "u1",
		"adult_2016_2020":           "u2",
		"adult_female_2016_2020":    "u3",
		"childhood_cancer_survival": "u4",
	}

	got, err := SelectLink(links, "Index")
	require.NoError(t, err)
	assert.Equal(t, "Index_2005_2020", got)

	_, err = SelectLink(links, "adult")
	var se *LinkSelectionError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, []string{"adult_2016_2020", "adult_female_2016_2020"}, se.Matches)

	_, err = SelectLink(links, "teenage")
	require.ErrorAs(t, err, &se)
	assert.Empty(t, se.Matches)
	assert.Equal(t, fmt.Sprintf("no file matches %q", "teenage"), se.Error())
}

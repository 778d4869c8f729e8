package vmp

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kallodavid/jobradar/internal/fetch"
	"github.com/kallodavid/jobradar/internal/source"
)

func newTestSite(t *testing.T, cfg Config) *Site {
	t.Helper()
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://vmp.example.hu"
	}
	if cfg.Location == "" {
		cfg.Location = "Győr"
	}
	client, err := fetch.New(fetch.Config{}, nil, zap.NewNop())
	require.NoError(t, err)
	site, err := New(cfg, client, zap.NewNop())
	require.NoError(t, err)
	return site
}

const listingPage = `<html><body>
<table><tbody>
<tr><td colspan="4">fejléc sor</td></tr>
<tr>
  <td><a href="/allas/12345">Raktáros</a></td>
  <td>Fizikai munka</td>
  <td>Győr</td>
  <td>Acme Kft.</td>
</tr>
<tr><td>csonka sor</td><td>két cella</td></tr>
<tr>
  <td><a href="https://vmp.example.hu/allas/67890">Targoncavezető</a></td>
  <td>Fizikai munka</td>
  <td>Mosonmagyaróvár</td>
  <td>Beta Zrt.</td>
</tr>
</tbody></table>
</body></html>`

func TestParseListingExtractsRows(t *testing.T) {
	t.Parallel()

	site := newTestSite(t, Config{})
	records, err := site.ParseListing(2, []byte(listingPage))
	require.NoError(t, err)
	require.Len(t, records, 1+1, "header and short rows are skipped")

	assert.Equal(t, "https://vmp.example.hu/allas/12345", records[0].Link, "relative hrefs resolve against the base url")
	assert.Equal(t, "Raktáros", records[0].Title)
	assert.Equal(t, "Fizikai munka", records[0].Category)
	assert.Equal(t, "Győr", records[0].Place)
	assert.Equal(t, "Acme Kft.", records[0].Employer)
	assert.Equal(t, 2, records[0].Page)
	assert.Equal(t, site.ScopeKey(), records[0].ScopeKey)

	assert.Equal(t, "https://vmp.example.hu/allas/67890", records[1].Link)
}

func TestParseListingSkipsRowsWithoutLink(t *testing.T) {
	t.Parallel()

	site := newTestSite(t, Config{})
	body := `<table><tbody><tr><td>cím</td><td>k</td><td>h</td><td>m</td></tr></tbody></table>`
	records, err := site.ParseListing(1, []byte(body))
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestScopeKeyOmitsPageCursor(t *testing.T) {
	t.Parallel()

	site := newTestSite(t, Config{Keyword: "raktáros", Location: "Győr"})

	scope := site.ScopeKey()
	assert.NotContains(t, scope, "oldal=")
	assert.Contains(t, scope, "helyseg=")
	assert.Contains(t, scope, "tavolsag=50")
	assert.Contains(t, scope, "munkaido=3")

	page3 := site.PageURL(3)
	assert.Contains(t, page3, "oldal=3")
	assert.NotEqual(t, scope, page3)
}

func TestLastPageReportsNoControl(t *testing.T) {
	t.Parallel()

	site := newTestSite(t, Config{})
	_, ok := site.LastPage([]byte(listingPage))
	assert.False(t, ok)
	assert.Equal(t, 40, site.PageCapacity())
}

func TestLoginSuccessLeavesLoginPath(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/belepes", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		if r.PostFormValue("login_username") == "user" && r.PostFormValue("login_jelszo") == "pw" {
			http.Redirect(w, r, "/fooldal", http.StatusFound)
			return
		}
		http.Redirect(w, r, "/belepes?hiba=1", http.StatusFound)
	})
	mux.HandleFunc("/fooldal", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("<html>üdv</html>"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client, err := fetch.New(fetch.Config{}, nil, zap.NewNop())
	require.NoError(t, err)
	site, err := New(Config{
		BaseURL:  srv.URL,
		Location: "Győr",
		Username: "user",
		Password: "pw",
	}, client, zap.NewNop())
	require.NoError(t, err)

	require.NoError(t, site.Login(context.Background()))
}

func TestLoginRejectedWhenRedirectedBack(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/belepes", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			http.Redirect(w, r, "/belepes?hiba=1", http.StatusFound)
			return
		}
		_, _ = w.Write([]byte("<html>belépés</html>"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client, err := fetch.New(fetch.Config{}, nil, zap.NewNop())
	require.NoError(t, err)
	site, err := New(Config{
		BaseURL:  srv.URL,
		Location: "Győr",
		Username: "user",
		Password: "rossz",
	}, client, zap.NewNop())
	require.NoError(t, err)

	err = site.Login(context.Background())
	var authErr *source.AuthError
	require.ErrorAs(t, err, &authErr)
	assert.True(t, strings.Contains(authErr.Reason, "rejected"))
}

func TestLoginRequiresCredentials(t *testing.T) {
	t.Parallel()

	site := newTestSite(t, Config{})
	err := site.Login(context.Background())
	var authErr *source.AuthError
	require.ErrorAs(t, err, &authErr)
}

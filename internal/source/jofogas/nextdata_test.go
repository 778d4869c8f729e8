package jofogas

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kallodavid/jobradar/internal/record"
	"github.com/kallodavid/jobradar/internal/source"
)

func detailPage(payload string) []byte {
	return []byte(fmt.Sprintf(
		`<html><body><script id="__NEXT_DATA__" type="application/json">%s</script></body></html>`,
		payload,
	))
}

const productPayload = `{
  "props": {"pageProps": {"product": {
    "subject": "Targoncavezetőt keresünk",
    "company_name": "Acme Kft.",
    "body": "<p>Jelentkezés: +36 30 123 4567 vagy 06 30 123 4567, illetve hr@acme.hu címen.</p><p>Hívjon: +36 70 987 6543</p>",
    "price": {"label": "450 000 Ft"},
    "parameters": [
      {"key": "education", "values": [{"label": "szakmunkásképző"}]},
      {"key": "city", "values": [{"label": "XIII. kerület"}]}
    ],
    "param_groups": {"contact_info": {"members": [
      {"type": "button", "name": "show_email", "value": ""},
      {"type": "text", "name": "Kiss Anna", "value": ""},
      {"type": "email", "name": "send_email", "value": "allas@acme.hu"}
    ]}}
  }}}
}`

func TestEnrichDetailFromNextData(t *testing.T) {
	t.Parallel()

	site := newTestSite(t)
	rec := record.ScrapedRecord{Link: "https://www.jofogas.hu/budapest/123", Title: "listából"}

	require.NoError(t, site.EnrichDetail(&rec, detailPage(productPayload)))

	assert.Equal(t, "Targoncavezetőt keresünk", rec.Title, "payload subject wins over the listing title")
	assert.Equal(t, "Acme Kft.", rec.Employer)
	assert.Equal(t, "Acme Kft.", rec.EmployerName)
	assert.Equal(t, "Kiss Anna", rec.RepName, "UI control members are not people")
	assert.Equal(t, "450 000 Ft", rec.Compensation)
	assert.Equal(t, "szakmunkásképző", rec.Education)
	assert.Equal(t, "Budapest", rec.Place, "districts collapse to the city")
	assert.Equal(t, "hr@acme.hu", rec.Email)

	assert.Contains(t, rec.RepContact, "telefon: +36 30 123 4567")
	assert.Contains(t, rec.RepContact, "telefon: 06 30 123 4567")
	assert.Contains(t, rec.RepContact, "telefon: +36 70 987 6543")
	assert.Contains(t, rec.RepContact, "email: hr@acme.hu")
	assert.Contains(t, rec.RepContact, "email: allas@acme.hu")
	assert.Contains(t, rec.Remarks, "Jelentkezés")
	assert.NotContains(t, rec.Remarks, "<p>", "body is flattened to plain text")
}

func TestEnrichDetailDedupesContactsPreservingOrder(t *testing.T) {
	t.Parallel()

	payload := `{
  "props": {"pageProps": {"product": {
    "subject": "Sofőr",
    "body": "+36 30 123 4567 és megint +36 30 123 4567, írjon: a@b.hu vagy a@b.hu"
  }}}
}`
	site := newTestSite(t)
	rec := record.ScrapedRecord{Link: "https://www.jofogas.hu/gyor/456"}

	require.NoError(t, site.EnrichDetail(&rec, detailPage(payload)))
	assert.Equal(t, "telefon: +36 30 123 4567, email: a@b.hu", rec.RepContact)
	assert.Equal(t, "a@b.hu", rec.Email)
}

func TestEnrichDetailMissingPayload(t *testing.T) {
	t.Parallel()

	site := newTestSite(t)
	rec := record.ScrapedRecord{Link: "https://www.jofogas.hu/x"}

	err := site.EnrichDetail(&rec, []byte(`<html><body>nincs adat</body></html>`))
	var parseErr *source.ParseError
	require.ErrorAs(t, err, &parseErr)
}

func TestEnrichDetailMalformedPayload(t *testing.T) {
	t.Parallel()

	site := newTestSite(t)
	rec := record.ScrapedRecord{Link: "https://www.jofogas.hu/x"}

	err := site.EnrichDetail(&rec, detailPage(`{"props": `))
	var parseErr *source.ParseError
	require.ErrorAs(t, err, &parseErr)
}

func TestEnrichDetailEmptyProduct(t *testing.T) {
	t.Parallel()

	site := newTestSite(t)
	rec := record.ScrapedRecord{Link: "https://www.jofogas.hu/x"}

	err := site.EnrichDetail(&rec, detailPage(`{"props": {"pageProps": {"product": {}}}}`))
	var parseErr *source.ParseError
	require.ErrorAs(t, err, &parseErr)
}

func TestNormalizePlace(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Budapest", normalizePlace("XIII. kerület"))
	assert.Equal(t, "Budapest", normalizePlace("Budapest II. Kerület"))
	assert.Equal(t, "Győr", normalizePlace("Győr"))
	assert.Empty(t, normalizePlace(""))
}

package vmp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kallodavid/jobradar/internal/record"
)

const detailPage = `<html><body>
<div id="tabs-1">
<table class="standardTable"><tbody>
<tr><td>Foglalkoztató neve</td><td>Acme Kft.</td></tr>
<tr><td>Képviselő  neve</td><td>Kiss Anna</td></tr>
<tr><td>Képviselő elérhetőségei</td><td><a href="mailto:anna@acme.hu">anna@acme.hu</a></td></tr>
<tr><td>Felajánlott havi bruttó kereset (Ft)</td><td>450 000</td></tr>
<tr><td>Munkavégzés helye</td><td>9021 Győr, Fő út 1.</td></tr>
<tr><td>Elvárt iskolai végzettség</td><td>szakmunkásképző</td></tr>
<tr><td>Megjegyzés</td><td>Azonnali kezdés.</td></tr>
</tbody></table>
<a href="mailto:hr@acme.hu">Jelentkezés</a>
</div>
<div id="tabs-2">
<table class="standardTable"><tbody>
<tr><td>Teljes/rész munkaidő (óra)</td><td>8</td></tr>
<tr><td>Munkaidő kezdete (óra:perc)</td><td>06:00</td></tr>
<tr><td>Munkarend</td><td>több műszakos</td></tr>
<tr><td>Kéri-e az országon belüli áttelepülést a munkáltató?</td><td>nem</td></tr>
<tr><td>Speciális követelmények</td><td>targoncajogosítvány</td></tr>
<tr><td>A munkakörhöz kapcsolódó juttatások</td><td>cafeteria</td></tr>
<tr><td>Állásegyeztetés helye</td><td>Győr</td></tr>
<tr><td>Állásegyeztetés ideje</td><td>hétfő 9:00</td></tr>
</tbody></table>
</div>
</body></html>`

func TestEnrichDetailMergesLabeledFields(t *testing.T) {
	t.Parallel()

	site := newTestSite(t, Config{})
	rec := record.ScrapedRecord{Link: "https://vmp.example.hu/allas/12345", Title: "Raktáros"}

	require.NoError(t, site.EnrichDetail(&rec, []byte(detailPage)))

	assert.Equal(t, "Acme Kft.", rec.EmployerName)
	assert.Equal(t, "Kiss Anna", rec.RepName, "labels match after whitespace normalization")
	assert.Equal(t, "anna@acme.hu", rec.RepContact, "mailto anchor wins over cell text")
	assert.Equal(t, "450 000", rec.Compensation)
	assert.Equal(t, "9021 Győr, Fő út 1.", rec.Workplace)
	assert.Equal(t, "szakmunkásképző", rec.Education)
	assert.Equal(t, "Azonnali kezdés.", rec.Remarks)
	assert.Equal(t, "anna@acme.hu", rec.Email, "first mailto in the main tab")

	assert.Equal(t, "8", rec.WorkHours)
	assert.Equal(t, "06:00", rec.WorkStart)
	assert.Equal(t, "több műszakos", rec.Schedule)
	assert.Equal(t, "nem", rec.RelocationNote, "relocation label matches by prefix")
	assert.Equal(t, "targoncajogosítvány", rec.SpecialReqs)
	assert.Equal(t, "cafeteria", rec.Benefits)
	assert.Equal(t, "Győr", rec.InterviewPlace)
	assert.Equal(t, "hétfő 9:00", rec.InterviewTime)

	assert.Equal(t, "Raktáros", rec.Title, "listing fields stay intact")
}

func TestEnrichDetailIgnoresUnknownLabels(t *testing.T) {
	t.Parallel()

	site := newTestSite(t, Config{})
	rec := record.ScrapedRecord{Link: "https://vmp.example.hu/allas/12345"}

	body := `<table class="standardTable"><tbody>
<tr><td>Ismeretlen mező</td><td>érték</td></tr>
<tr><td>Foglalkoztató neve</td><td>Acme Kft.</td></tr>
</tbody></table>`
	require.NoError(t, site.EnrichDetail(&rec, []byte(body)))
	assert.Equal(t, "Acme Kft.", rec.EmployerName)
	assert.Empty(t, rec.Remarks)
}

func TestEnrichDetailContactFallsBackToText(t *testing.T) {
	t.Parallel()

	site := newTestSite(t, Config{})
	rec := record.ScrapedRecord{Link: "https://vmp.example.hu/allas/12345"}

	body := `<table class="standardTable"><tbody>
<tr><td>Képviselő elérhetőségei</td><td>+36 30 123 4567</td></tr>
</tbody></table>`
	require.NoError(t, site.EnrichDetail(&rec, []byte(body)))
	assert.Equal(t, "+36 30 123 4567", rec.RepContact)
}

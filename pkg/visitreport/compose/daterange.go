package compose

import (
	"time"

	"github.com/ukaji3/visitreport-go/pkg/visitreport/models"
	"github.com/ukaji3/visitreport-go/pkg/visitreport/parser"
)

// DateRange finds the earliest and latest visit dates among the records and
// formats the original raw values in short header form. Values that cannot
// be placed in time are skipped. Raw text that is neither a serial nor a
// written-out date keeps its spelling, so "2024-01-21" stays as typed. It
// returns nil when no date resolves.
func DateRange(records []models.VisitRecord, n *parser.Normalizer) *models.DateRange {
	if n == nil {
		n = parser.NewNormalizer(nil)
	}

	var (
		found            bool
		minTime, maxTime time.Time
		minRaw, maxRaw   interface{}
	)
	for _, rec := range records {
		t, ok := parser.ParseDate(rec.RawVisitDate, n.Location)
		if !ok {
			continue
		}
		if !found {
			found = true
			minTime, maxTime = t, t
			minRaw, maxRaw = rec.RawVisitDate, rec.RawVisitDate
			continue
		}
		if t.Before(minTime) {
			minTime, minRaw = t, rec.RawVisitDate
		}
		if t.After(maxTime) {
			maxTime, maxRaw = t, rec.RawVisitDate
		}
	}
	if !found {
		return nil
	}

	return &models.DateRange{
		Min: n.ShortDate(minRaw),
		Max: n.ShortDate(maxRaw),
	}
}

package parser

import (
	"strings"

	"github.com/ukaji3/visitreport-go/pkg/visitreport/models"
)

// HeaderKeywords maps each field role to the lower-case substring that
// identifies its column.
var HeaderKeywords = map[models.FieldRole]string{
	models.PatientFileNumber: "pt no",
	models.PatientName:       "patient name",
	models.VisitDate:         "visit date",
	models.Doctor:            "doctor",
	models.PersonalReminders: "personal reminders",
}

// ResolveHeaders maps field roles to column indexes by case-insensitive
// substring match on the header cells. Columns are scanned left to right and
// the first match wins. Unmatched roles are left out of the map.
func ResolveHeaders(header models.Row) models.ColumnMap {
	cols := make(models.ColumnMap, len(models.FieldRoles))
	for _, role := range models.FieldRoles {
		keyword := HeaderKeywords[role]
		for idx, cell := range header {
			if strings.Contains(strings.ToLower(Text(cell)), keyword) {
				cols[role] = idx
				break
			}
		}
	}
	return cols
}

package parser

import "github.com/ukaji3/visitreport-go/pkg/visitreport/models"

// BuildRecords converts every data row of the table into a VisitRecord,
// preserving row order. Absent columns and missing cells yield "".
func BuildRecords(table *models.RawTable, cols models.ColumnMap, n *Normalizer) []models.VisitRecord {
	rows := table.DataRows()
	records := make([]models.VisitRecord, 0, len(rows))
	for i, row := range rows {
		records = append(records, BuildRecord(row, cols, n, i+2))
	}
	return records
}

// BuildRecord converts a single data row. rowNum is the 1-based sheet row.
func BuildRecord(row models.Row, cols models.ColumnMap, n *Normalizer, rowNum int) models.VisitRecord {
	cell := func(role models.FieldRole) interface{} {
		return row.Cell(cols.Index(role))
	}

	remarks, flagged := n.Remarks(Text(cell(models.PersonalReminders)))
	rawDate := cell(models.VisitDate)

	return models.VisitRecord{
		Row:          rowNum,
		FileNumber:   Text(cell(models.PatientFileNumber)),
		PatientName:  Text(cell(models.PatientName)),
		VisitDate:    n.FullDate(rawDate),
		Doctor:       Text(cell(models.Doctor)),
		Remarks:      remarks,
		Flagged:      flagged,
		RawVisitDate: rawDate,
	}
}

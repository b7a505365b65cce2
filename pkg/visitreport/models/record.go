package models

// FieldRole is the meaning assigned to a spreadsheet column.
type FieldRole int

const (
	PatientFileNumber FieldRole = iota
	PatientName
	VisitDate
	Doctor
	PersonalReminders
)

// FieldRoles lists every role in resolution order.
var FieldRoles = []FieldRole{PatientFileNumber, PatientName, VisitDate, Doctor, PersonalReminders}

func (r FieldRole) String() string {
	switch r {
	case PatientFileNumber:
		return "PatientFileNumber"
	case PatientName:
		return "PatientName"
	case VisitDate:
		return "VisitDate"
	case Doctor:
		return "Doctor"
	case PersonalReminders:
		return "PersonalReminders"
	default:
		return "Unknown"
	}
}

// ColumnMap maps each resolved role to its 0-based column index.
type ColumnMap map[FieldRole]int

// Index returns the column for role, or -1 when the role is absent.
func (m ColumnMap) Index(role FieldRole) int {
	if idx, ok := m[role]; ok && idx >= 0 {
		return idx
	}
	return -1
}

// Missing returns the roles that did not resolve to a column.
func (m ColumnMap) Missing() []FieldRole {
	var missing []FieldRole
	for _, role := range FieldRoles {
		if m.Index(role) < 0 {
			missing = append(missing, role)
		}
	}
	return missing
}

// VisitRecord is one normalized patient visit derived from a data row.
type VisitRecord struct {
	// Row is the 1-based spreadsheet row the record was read from.
	Row int `json:"row"`
	// FileNumber is the patient file number.
	FileNumber string `json:"file_number"`
	// PatientName is the patient display name.
	PatientName string `json:"patient_name"`
	// VisitDate is the visit date in full display form.
	VisitDate string `json:"visit_date"`
	// Doctor is the treating doctor.
	Doctor string `json:"doctor"`
	// Remarks is derived from the personal reminders text.
	Remarks string `json:"remarks"`
	// Flagged marks remarks that are rendered highlighted.
	Flagged bool `json:"flagged,omitempty"`
	// RawVisitDate is the untouched visit date cell, used for range computation.
	RawVisitDate interface{} `json:"-"`
}

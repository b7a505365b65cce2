package parser

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	// unixEpochSerial is the spreadsheet serial of 1970-01-01. It includes
	// the 1900 leap-year offset spreadsheets carry.
	unixEpochSerial = 25569
	secondsPerDay   = 86400
	// fractionEpsilon absorbs float error in the time-of-day fraction.
	fractionEpsilon = 1e-7

	FullDateLayout  = "2 January 2006"
	ShortDateLayout = "Jan 2"
)

// formattedDate matches values already shaped like "21 January 2024".
var formattedDate = regexp.MustCompile(`^\d{1,2}\s+\w+\s+\d{4}$`)

// dateLayouts are tried in order when a date string has to be placed in time.
var dateLayouts = []string{
	"2 January 2006",
	"2 Jan 2006",
	"January 2, 2006",
	"Jan 2, 2006",
	"2006-01-02",
	time.RFC3339,
	"2006-01-02 15:04:05",
	"1/2/2006",
	"2-Jan-2006",
}

// RemarkRule turns a token found in the personal reminders text into a
// remark phrase.
type RemarkRule struct {
	// Token is matched against the upper-cased reminders text.
	Token string
	// Phrase is the remark emitted when the token is present.
	Phrase string
	// Highlight marks the remark for emphasis in the report.
	Highlight bool
}

// OPGRemark is the phrase emitted for reminders mentioning an OPG.
const OPGRemark = "Patient with new OPG"

// DefaultRemarkRules returns the built-in remark rules.
func DefaultRemarkRules() []RemarkRule {
	return []RemarkRule{
		{Token: "OPG", Phrase: OPGRemark, Highlight: true},
	}
}

// Normalizer converts raw cell values into display strings.
type Normalizer struct {
	// Location is used to assemble dates from serials. Nil means time.Local.
	Location *time.Location
	// Rules are evaluated in order; the first matching rule wins.
	Rules []RemarkRule
}

// NewNormalizer returns a Normalizer with the default remark rules.
func NewNormalizer(loc *time.Location) *Normalizer {
	return &Normalizer{Location: loc, Rules: DefaultRemarkRules()}
}

func (n *Normalizer) location() *time.Location {
	if n == nil || n.Location == nil {
		return time.Local
	}
	return n.Location
}

// FullDate renders a visit date as "2 January 2006".
func (n *Normalizer) FullDate(v interface{}) string {
	return n.formatDate(v, FullDateLayout)
}

// ShortDate renders a visit date as "Jan 2" for the report header.
func (n *Normalizer) ShortDate(v interface{}) string {
	return n.formatDate(v, ShortDateLayout)
}

func (n *Normalizer) formatDate(v interface{}, layout string) string {
	text := Text(v)
	if IsFormattedDate(text) {
		return text
	}
	if serial, ok := Numeric(v); ok {
		return SerialToTime(serial, n.location()).Format(layout)
	}
	return text
}

// Remarks applies the remark rules to the reminders text. The second return
// value reports whether the remark should be highlighted.
func (n *Normalizer) Remarks(text string) (string, bool) {
	rules := DefaultRemarkRules()
	if n != nil && n.Rules != nil {
		rules = n.Rules
	}
	upper := strings.ToUpper(text)
	for _, rule := range rules {
		if rule.Token != "" && strings.Contains(upper, strings.ToUpper(rule.Token)) {
			return rule.Phrase, rule.Highlight
		}
	}
	return "", false
}

// Remarks derives the remark for reminders text using the default rules.
func Remarks(text string) string {
	remark, _ := (*Normalizer)(nil).Remarks(text)
	return remark
}

// Text coerces a cell value to its display string. Empty cells become "".
func Text(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case int64:
		return strconv.FormatInt(t, 10)
	case int:
		return strconv.Itoa(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return ""
	}
}

// Numeric reports whether v is a number or a string holding a finite number,
// and returns its value.
func Numeric(v interface{}) (float64, bool) {
	switch t := v.(type) {
	case int64:
		return float64(t), true
	case int:
		return float64(t), true
	case float64:
		return t, !math.IsNaN(t) && !math.IsInf(t, 0)
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

// IsNumeric reports whether v can be read as a spreadsheet serial.
func IsNumeric(v interface{}) bool {
	_, ok := Numeric(v)
	return ok
}

// SerialToTime converts a spreadsheet date serial to a time in loc. The
// integer part selects the calendar day, the fraction the time of day.
func SerialToTime(serial float64, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	whole := math.Floor(serial)
	day := time.Unix(int64(whole-unixEpochSerial)*secondsPerDay, 0).UTC()

	fraction := serial - whole + fractionEpsilon
	total := int(math.Floor(secondsPerDay * fraction))
	seconds := total % 60
	total -= seconds
	hours := total / 3600
	minutes := (total / 60) % 60

	return time.Date(day.Year(), day.Month(), day.Day(), hours, minutes, seconds, 0, loc)
}

// ParseDate places a visit date value in time. Serials are converted, strings
// are tried against the known layouts. The boolean is false when the value
// cannot be placed.
func ParseDate(v interface{}, loc *time.Location) (time.Time, bool) {
	if loc == nil {
		loc = time.Local
	}
	if serial, ok := Numeric(v); ok {
		return SerialToTime(serial, loc), true
	}
	s, ok := v.(string)
	if !ok {
		return time.Time{}, false
	}
	s = strings.Join(strings.Fields(s), " ")
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// IsFormattedDate reports whether s is already shaped like "21 January 2024".
func IsFormattedDate(s string) bool {
	return formattedDate.MatchString(strings.TrimSpace(s))
}

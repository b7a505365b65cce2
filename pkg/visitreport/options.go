// Package visitreport turns a spreadsheet of patient visits into a formatted
// report document with a preview step before export.
package visitreport

import (
	"time"

	"github.com/ukaji3/visitreport-go/pkg/visitreport/compose"
	"github.com/ukaji3/visitreport-go/pkg/visitreport/parser"
)

// DefaultMaxFileSize is the largest accepted import, in bytes.
const DefaultMaxFileSize = 20 << 20

// Options configures a Session.
type Options struct {
	// Layout selects record blocks or a single table.
	Layout compose.Layout
	// PageSize is the number of records per page. Zero uses compose.DefaultPageSize.
	PageSize int
	// Location is used to assemble dates from serials. If nil, time.Local is used.
	Location *time.Location
	// RemarkRules override the built-in remark derivation when non-nil.
	RemarkRules []parser.RemarkRule
	// ShowGeneratedAt adds a "Generated on" line under the title.
	ShowGeneratedAt bool
	// MaxFileSize limits imports. Zero uses DefaultMaxFileSize.
	MaxFileSize int64
	// Now returns the current time. If nil, time.Now is used.
	Now func() time.Time
}

// DefaultOptions returns default session options.
func DefaultOptions() Options {
	return Options{
		Layout:   compose.LayoutRecords,
		PageSize: compose.DefaultPageSize,
	}
}

// Normalizer returns the field normalizer described by the options.
func (o Options) Normalizer() *parser.Normalizer {
	n := parser.NewNormalizer(o.Location)
	if o.RemarkRules != nil {
		n.Rules = o.RemarkRules
	}
	return n
}

// MaxImportSize returns the effective import size limit.
func (o Options) MaxImportSize() int64 {
	if o.MaxFileSize > 0 {
		return o.MaxFileSize
	}
	return DefaultMaxFileSize
}

func (o Options) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}

// composeConfig builds the composition settings for one run.
func (o Options) composeConfig(ext string) compose.Config {
	cfg := compose.Config{
		Layout:     o.Layout,
		PageSize:   o.PageSize,
		Normalizer: o.Normalizer(),
		Extension:  ext,
	}
	if o.ShowGeneratedAt {
		cfg.GeneratedAt = o.now()
	}
	return cfg
}

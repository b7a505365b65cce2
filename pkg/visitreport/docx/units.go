package docx

// TwipsPerPoint is the number of twips (twentieths of a point) per point.
// WordprocessingML expresses page geometry and spacing in twips.
const TwipsPerPoint = 20

// PointsToTwips converts points to twips.
func PointsToTwips(pt float64) int {
	return int(pt * TwipsPerPoint)
}

// A4 portrait page with one inch margins, in twips.
const (
	pageWidth   = 11906
	pageHeight  = 16838
	pageMargin  = 1440
	headerSpace = 708
)

package extract

import "regexp"

// decimal is the magnitude token shape: one or two digits, a dot, one or two digits.
const decimal = `(\d{1,2}\.\d{1,2})`

var (
	observedRe  = regexp.MustCompile(`(?i)observed\s+mag(?:nitude)?\s*[:\-]?\s*` + decimal)
	magLabelRe  = regexp.MustCompile(`(?i)(?:current\s+)?magnitude\s*[:\-]?\s*` + decimal)
	visualRe    = regexp.MustCompile(`(?i)visual\s*[:\-]?\s*` + decimal)
	anyDecimal  = regexp.MustCompile(decimal)
	predictedRe = regexp.MustCompile(`(?i)predicted\s+mag(?:nitude)?\s*[:\-]?\s*` + decimal)
	magEqualsRe = regexp.MustCompile(`(?i)mag\.?\s*=?\s*` + decimal)

	// distanceRe captures a comma-grouped number followed by a km unit after a
	// "distance" / "distance to earth" keyword.
	distanceRe = regexp.MustCompile(`(?i)distance(?:\s+to\s+)?(?:earth)?[\s\D]*([0-9]{1,10}(?:,?[0-9]{3})*(?:\.\d+)?)\s*(?:km|kilometers)`)
)

// Magnitude fallback bounds for the scan-all-numbers tier.
const (
	ScanMinMag = 0.0
	ScanMaxMag = 18.0
)

// MagnitudeChain extracts the observed magnitude from the primary page.
var MagnitudeChain = Chain{
	Labeled("observed-label", observedRe),
	Labeled("magnitude-label", magLabelRe),
	Labeled("visual-keyword", visualRe),
	InRange("any-decimal-in-range", anyDecimal, ScanMinMag, ScanMaxMag),
}

// PredictedChain extracts the predicted magnitude from the primary page.
var PredictedChain = Chain{
	Labeled("predicted-label", predictedRe),
}

// DistanceChain extracts the distance to Earth in kilometres.
var DistanceChain = Chain{
	Labeled("distance-km", distanceRe),
}

// LineMagnitudeChain extracts a magnitude from a single designation line.
var LineMagnitudeChain = Chain{
	Labeled("mag-equals", magEqualsRe),
	Labeled("magnitude-label", magLabelRe),
	Labeled("any-decimal", anyDecimal),
}

// Package extract turns fetched HTML into plain text and pulls numeric fields
// out of it with ordered chains of named text-pattern strategies.
//
// A Strategy returns an optional match; a Chain tries its strategies in order
// and stops at the first hit. Earlier strategies are more specific, later ones
// trade specificity for recall. The name of the strategy that matched is
// reported with the value so callers can record which tier fired.
//
// Predefined chains:
//   - MagnitudeChain: observed-label, magnitude-label, visual-keyword,
//     any-decimal-in-range (0 to 18)
//   - PredictedChain: predicted-label
//   - DistanceChain: distance-km (thousands separators stripped)
//   - LineMagnitudeChain: mag-equals, magnitude-label, any-decimal; applied to
//     one designation line of the secondary page
package extract

package matching

import "regexp"

var nonDigit = regexp.MustCompile(`[^0-9]`)

// NormalizeIdentifierDigits strips non-digits from raw and reports
// whether the remaining digit string is one of the accepted lengths
// {8, 12, 13, 14} per spec §4.4/§8 invariant 4. Unlike NormalizeBarcode
// (which additionally validates an EAN-13 check digit for the Croatian
// retail-chain barcode domain), this is the bare length rule the
// supplier scraper's identifier extraction uses: no checksum
// requirement, since spec §4.4 only specifies digit-count acceptance.
func NormalizeIdentifierDigits(raw string) (digits string, ok bool) {
	digits = nonDigit.ReplaceAllString(raw, "")
	if digits == "" {
		return "", false
	}
	return digits, AcceptedLength(len(digits))
}

var acceptedLengths = map[int]bool{8: true, 12: true, 13: true, 14: true}

// AcceptedLength reports whether n is one of {8,12,13,14}.
func AcceptedLength(n int) bool {
	return acceptedLengths[n]
}

// NormalizeUPC strips non-digits and reports whether the result is a
// 12-digit UPC, per spec §8 invariant 4's UPC rule.
func NormalizeUPC(raw string) (digits string, ok bool) {
	digits = nonDigit.ReplaceAllString(raw, "")
	return digits, len(digits) == 12
}

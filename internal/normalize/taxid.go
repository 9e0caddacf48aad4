package normalize

// ValidateTaxID strips non-digits from raw and validates the result as an
// 11-digit individual tax id or a 14-digit entity tax id using the standard
// two-check-digit algorithms. Returns the canonical digit string and true on
// success; false for bad lengths, repeated-digit degenerate inputs, or
// checksum mismatches. Invalid identifiers are common in source data and
// must not abort a batch, so failure is an absence, not an error.
func ValidateTaxID(raw string) (string, bool) {
	digits := make([]byte, 0, len(raw))
	for i := 0; i < len(raw); i++ {
		if raw[i] >= '0' && raw[i] <= '9' {
			digits = append(digits, raw[i])
		}
	}

	switch len(digits) {
	case 11:
		if validPersonID(digits) {
			return string(digits), true
		}
	case 14:
		if validEntityID(digits) {
			return string(digits), true
		}
	}
	return "", false
}

func allSame(digits []byte) bool {
	for i := 1; i < len(digits); i++ {
		if digits[i] != digits[0] {
			return false
		}
	}
	return true
}

func checkDigit(sum int) int {
	d := 11 - (sum % 11)
	if d > 9 {
		return 0
	}
	return d
}

func validPersonID(d []byte) bool {
	if allSame(d) {
		return false
	}

	sum := 0
	for i, w := 0, 10; i < 9; i, w = i+1, w-1 {
		sum += int(d[i]-'0') * w
	}
	if int(d[9]-'0') != checkDigit(sum) {
		return false
	}

	sum = 0
	for i, w := 0, 11; i < 10; i, w = i+1, w-1 {
		sum += int(d[i]-'0') * w
	}
	return int(d[10]-'0') == checkDigit(sum)
}

var (
	entityWeights1 = []int{5, 4, 3, 2, 9, 8, 7, 6, 5, 4, 3, 2}
	entityWeights2 = []int{6, 5, 4, 3, 2, 9, 8, 7, 6, 5, 4, 3, 2}
)

func validEntityID(d []byte) bool {
	if allSame(d) {
		return false
	}

	sum := 0
	for i, w := range entityWeights1 {
		sum += int(d[i]-'0') * w
	}
	if int(d[12]-'0') != checkDigit(sum) {
		return false
	}

	sum = 0
	for i, w := range entityWeights2 {
		sum += int(d[i]-'0') * w
	}
	return int(d[13]-'0') == checkDigit(sum)
}

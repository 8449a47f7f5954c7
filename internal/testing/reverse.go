package testing

// ReverseStrings reverses provided ids.
// Message pages come back newest first, so ordering assertions flip them.
func ReverseStrings(ids []string) []string {
	reversed := make([]string, len(ids))
	copy(reversed, ids)

	for i := len(reversed)/2 - 1; i >= 0; i-- {
		opp := len(reversed) - 1 - i
		reversed[i], reversed[opp] = reversed[opp], reversed[i]
	}

	return reversed
}

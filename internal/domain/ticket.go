package domain

// Ticket codes label ballot-paper columns "A", "B", …, "Z", "AA", "AB", …
// in a zeroless base-26 scheme: A=1, Z=26, AA=27. Conversions here support
// reasoning about candidate column positions in tests and diagnostics.

// TicketToNumber converts a ticket code like "AE" to its 1-based ballot
// column number (31). The empty string maps to 0.
func TicketToNumber(ticket string) int {
	res := 0
	for i := 0; i < len(ticket); i++ {
		c := ticket[i]
		if c >= 'a' && c <= 'z' {
			c = c - 'a' + 'A'
		}
		res = res*26 + int(c-'A') + 1
	}
	return res
}

// NumberToTicket converts a 1-based ballot column number to its ticket
// code; 0 maps to the empty string.
func NumberToTicket(n int) string {
	if n == 0 {
		return ""
	}
	rem := (n - 1) % 26
	shift := (n - 1) / 26
	return NumberToTicket(shift) + string(rune('A'+rem))
}

package helpers

import (
	"fmt"
	"strconv"
)

func StringToInt(s string) (int, error) {
	return strconv.Atoi(s)
}

// ParseTicketID parses a route parameter into a ticket id. QR payloads
// decode to the same integer id, so exit-by-scan lands here as well.
func ParseTicketID(s string) (uint, error) {
	id, err := strconv.ParseUint(s, 10, 32)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid ticket id %q", s)
	}
	return uint(id), nil
}

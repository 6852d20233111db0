package parse

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	spaceRe   = regexp.MustCompile(`\s+`)
	seqRe     = regexp.MustCompile(`-\s*(\d+)$`)
	floorRe   = regexp.MustCompile(`(?i)(\d+)\s*(?:F|层)?$`)
	compactRe = regexp.MustCompile(`(\d{3,4})$`)
)

// RoomNumber holds the structured parts of a human-readable room number.
type RoomNumber struct {
	Block string
	Floor int
	Seq   int
}

// ParseRoomNumber splits a room number such as "A-203", "B2-05", "C 3F-1"
// or "1205" into block, floor and sequence. Compact numbers of three or four
// digits carry the floor in the leading digits and the sequence in the last two.
func ParseRoomNumber(raw string) (RoomNumber, error) {
	s := strings.ReplaceAll(strings.TrimSpace(raw), "#", " ")
	s = strings.ToUpper(strings.TrimSpace(spaceRe.ReplaceAllString(s, " ")))
	if s == "" {
		return RoomNumber{}, fmt.Errorf("empty room number")
	}

	// 1) explicit "-seq" suffix
	if loc := seqRe.FindStringSubmatchIndex(s); loc != nil {
		n, err := strconv.Atoi(s[loc[2]:loc[3]])
		if err == nil {
			rest := strings.TrimSpace(s[:loc[0]])
			if fl := floorRe.FindStringSubmatchIndex(rest); fl != nil {
				floor, _ := strconv.Atoi(rest[fl[2]:fl[3]])
				if floor > 0 {
					return RoomNumber{Block: cleanBlock(rest[:fl[0]]), Floor: floor, Seq: n}, nil
				}
			}
			// "A-203": the suffix is itself a compact number.
			if floor, seq := n/100, n%100; floor > 0 {
				return RoomNumber{Block: cleanBlock(rest), Floor: floor, Seq: seq}, nil
			}
			return RoomNumber{}, fmt.Errorf("unable to parse floor from room number: %q", raw)
		}
	}

	// 2) compact trailing digits
	if loc := compactRe.FindStringSubmatchIndex(s); loc != nil {
		n, _ := strconv.Atoi(s[loc[2]:loc[3]])
		if floor := n / 100; floor > 0 {
			return RoomNumber{Block: cleanBlock(s[:loc[0]]), Floor: floor, Seq: n % 100}, nil
		}
	}

	return RoomNumber{}, fmt.Errorf("unable to parse floor from room number: %q", raw)
}

func cleanBlock(s string) string {
	return strings.TrimSpace(strings.Trim(strings.TrimSpace(s), "-"))
}

package parse

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseRoomNumber(t *testing.T) {
	testCases := []struct {
		name      string
		raw       string
		expected  RoomNumber
		expectErr bool
	}{
		{name: "Block with compact number", raw: "A-203", expected: RoomNumber{Block: "A", Floor: 2, Seq: 3}},
		{name: "Block and floor with sequence", raw: "B2-05", expected: RoomNumber{Block: "B", Floor: 2, Seq: 5}},
		{name: "Floor suffix F", raw: "c 3F-1", expected: RoomNumber{Block: "C", Floor: 3, Seq: 1}},
		{name: "Compact three digits", raw: "203", expected: RoomNumber{Floor: 2, Seq: 3}},
		{name: "Compact four digits", raw: "1205", expected: RoomNumber{Floor: 12, Seq: 5}},
		{name: "Hash separator", raw: "D#4-12", expected: RoomNumber{Block: "D", Floor: 4, Seq: 12}},
		{name: "Extra spaces", raw: "  East   Wing 7-2 ", expected: RoomNumber{Block: "EAST WING", Floor: 7, Seq: 2}},
		{name: "No floor", raw: "A-12", expectErr: true},
		{name: "Only letters", raw: "Penthouse", expectErr: true},
		{name: "Empty", raw: "   ", expectErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseRoomNumber(tc.raw)
			if tc.expectErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tc.expected, got)
		})
	}
}

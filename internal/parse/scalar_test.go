package parse

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBool(t *testing.T) {
	testCases := []struct {
		name      string
		raw       string
		expected  bool
		expectErr bool
	}{
		{name: "Lower true", raw: "true", expected: true},
		{name: "Upper true", raw: "TRUE", expected: true},
		{name: "Mixed false with newline", raw: " False\n", expected: false},
		{name: "Empty body", raw: "", expectErr: true},
		{name: "Numeric", raw: "1", expectErr: true},
		{name: "Garbage", raw: "yes please", expectErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			v, err := Bool(tc.raw)
			if tc.expectErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tc.expected, v)
			}
		})
	}
}

func TestInt(t *testing.T) {
	testCases := []struct {
		name      string
		raw       string
		expected  int
		expectErr bool
	}{
		{name: "Zero", raw: "0", expected: 0},
		{name: "Padded", raw: "  42\r\n", expected: 42},
		{name: "Float", raw: "4.2", expectErr: true},
		{name: "Word", raw: "three", expectErr: true},
		{name: "Empty", raw: "", expectErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			v, err := Int(tc.raw)
			if tc.expectErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tc.expected, v)
			}
		})
	}
}

func TestTimestamp(t *testing.T) {
	testCases := []struct {
		name      string
		raw       string
		expected  time.Time
		expectErr bool
	}{
		{
			name:     "LocalDateTime with nanos",
			raw:      "2025-03-04T10:11:12.123456789",
			expected: time.Date(2025, 3, 4, 10, 11, 12, 123456789, time.UTC),
		},
		{
			name:     "LocalDateTime with millis",
			raw:      "2025-03-04T10:11:12.5",
			expected: time.Date(2025, 3, 4, 10, 11, 12, 500000000, time.UTC),
		},
		{
			name:     "LocalDateTime without seconds",
			raw:      "2025-03-04T10:11",
			expected: time.Date(2025, 3, 4, 10, 11, 0, 0, time.UTC),
		},
		{
			name:     "RFC3339 with offset",
			raw:      "2025-03-04T10:11:12+02:00",
			expected: time.Date(2025, 3, 4, 8, 11, 12, 0, time.UTC),
		},
		{name: "Empty", raw: "", expectErr: true},
		{name: "Not a date", raw: "yesterday", expectErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			v, err := Timestamp(tc.raw)
			if tc.expectErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
				assert.True(t, tc.expected.Equal(v), "got %s", v)
			}
		})
	}
}

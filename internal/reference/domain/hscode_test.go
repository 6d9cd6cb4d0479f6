package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeHS6(t *testing.T) {
	cases := []struct {
		raw  string
		want string
		ok   bool
	}{
		{raw: "847130", want: "847130", ok: true},
		{raw: " 8471.30 ", want: "847130", ok: true},
		{raw: "8541.43.00", want: "854143", ok: true},
		{raw: "87032390", want: "870323", ok: true},
		{raw: "8471", ok: false},
		{raw: "84713A", ok: false},
		{raw: "", ok: false},
	}

	for _, tc := range cases {
		got, ok := NormalizeHS6(tc.raw)
		assert.Equal(t, tc.ok, ok, tc.raw)
		assert.Equal(t, tc.want, got, tc.raw)
	}
}

func TestHSPrefixes(t *testing.T) {
	assert.Equal(t, []string{"85", "8541", "854143"}, HSPrefixes("854143"))
	assert.Nil(t, HSPrefixes("85"))
	assert.Equal(t, "85", Chapter("854143"))
}

// file: internals/helpers/level_test.go
package helper

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanonicalLevel(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Form 1", "Form 1"},
		{"form 1", "Form 1"},
		{"FORM 3", "Form 3"},
		{"form3", "Form 3"},
		{"  form   5  ", "Form 5"},
		{"Form 5", "Form 5"},
		{"Form 6", ""},
		{"form 0", ""},
		{"", ""},
		{"kindergarten", ""},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, CanonicalLevel(tc.in), "input %q", tc.in)
	}
}

func TestSameLevel(t *testing.T) {
	assert.True(t, SameLevel("form 2", "Form 2"))
	assert.True(t, SameLevel("FORM 4", "form4"))
	assert.False(t, SameLevel("Form 1", "Form 2"))
	assert.False(t, SameLevel("", "Form 1"))
}

func TestAllLevels(t *testing.T) {
	levels := AllLevels()
	assert.Len(t, levels, 5)
	assert.Equal(t, "Form 1", levels[0])
	assert.Equal(t, "Form 5", levels[4])
}

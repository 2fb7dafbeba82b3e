package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type dumpSample struct {
	Name  string
	Count int
}

func TestSDump(t *testing.T) {
	out := SDump(&dumpSample{Name: "Walk", Count: 3})
	assert.Contains(t, out, "dumpSample")
	assert.Contains(t, out, "Walk")
	assert.Contains(t, out, "Count: (int) 3")
}

func TestDumpToOneLineString(t *testing.T) {
	out := DumpToOneLineString([]byte{'A', 0x00, 0xff, '{'})
	assert.Equal(t, `A\x00\xff{`, out)
}

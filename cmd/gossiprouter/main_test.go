package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeSingleDashFlagsRewritesLongNames(t *testing.T) {
	in := []string{"-port", "12001", "-bind_addr=0.0.0.0", "--already-long", "-h"}
	out := normalizeSingleDashFlags(in)
	assert.Equal(t, []string{"--port", "12001", "--bind_addr=0.0.0.0", "--already-long", "-h"}, out)
}

func TestNormalizeSingleDashFlagsLeavesPositionalArgsAlone(t *testing.T) {
	in := []string{"positional", "-h"}
	out := normalizeSingleDashFlags(in)
	assert.Equal(t, []string{"positional", "-h"}, out)
}

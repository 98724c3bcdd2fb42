package error

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestErrors(t *testing.T) {
	code, old := -1, exit
	exit = func(c int) { code = c }
	defer func() { exit = old }()

	buf := &bytes.Buffer{}
	log := zerolog.New(buf)

	External(log, "missing file %s", "particles.txt")
	assert.Equal(t, 1, code)
	assert.Contains(t, buf.String(), "missing file particles.txt")
	assert.Contains(t, buf.String(), `"level":"error"`)

	buf.Reset()
	code = -1
	Internal(log, "node %d is empty", 3)
	assert.Equal(t, 1, code)
	assert.Contains(t, buf.String(), "node 3 is empty")
	assert.Contains(t, buf.String(), `"stack"`)
}

package diag

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPrintChainWalksWrappedErrors(t *testing.T) {
	base := errors.New("root cause")
	err := errWrap{errWrap{base}}

	var sb strings.Builder
	PrintChain(&sb, err)

	out := sb.String()
	assert.Contains(t, out, "root cause")
	assert.Contains(t, out, "[0]")
	assert.Contains(t, out, "[2]")
}

func TestPrintChainNil(t *testing.T) {
	var sb strings.Builder
	PrintChain(&sb, nil)
	assert.Equal(t, "<nil>\n", sb.String())
}

type errWrap struct{ err error }

func (e errWrap) Error() string { return "wrap: " + e.err.Error() }
func (e errWrap) Unwrap() error { return e.err }

package console

import (
	"bytes"
	"os"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReporter(t *testing.T) {
	// Force color on globally: a non-terminal writer must still get plain text.
	prev := color.NoColor
	color.NoColor = false
	t.Cleanup(func() { color.NoColor = prev })

	var buf bytes.Buffer
	r := NewReporter(&buf)

	r.Stepf("Deposit")
	r.Infof("You have %s worth of ETH deposited.", "0.1")
	r.Successf("Deposited %s WETH", "0.1")

	assert.Equal(t,
		"==> Deposit\n"+
			"    You have 0.1 worth of ETH deposited.\n"+
			"    Deposited 0.1 WETH\n",
		buf.String())
}

func TestIsTerminal(t *testing.T) {
	assert.False(t, isTerminal(&bytes.Buffer{}))

	f, err := os.CreateTemp(t.TempDir(), "out")
	require.NoError(t, err)
	defer f.Close()
	assert.False(t, isTerminal(f))
}

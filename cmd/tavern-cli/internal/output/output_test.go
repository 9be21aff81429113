package output

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("JSON")
	require.NoError(t, err)
	assert.Equal(t, JSON, f)

	_, err = ParseFormat("yaml")
	assert.Error(t, err)
}

func TestPrinter(t *testing.T) {
	var buf bytes.Buffer
	rows := [][]string{{"player1", "15/15"}}

	require.NoError(t, NewPrinter(&buf, Table).Print(nil, []string{"NAME", "HP"}, rows))
	assert.Contains(t, buf.String(), "NAME     HP")
	assert.Contains(t, buf.String(), "player1  15/15")

	buf.Reset()
	require.NoError(t, NewPrinter(&buf, JSON).Print(map[string]int{"hp": 15}, nil, nil))
	assert.JSONEq(t, `{"hp":15}`, buf.String())
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", Truncate("short", 10))
	assert.Equal(t, "a long ...", Truncate("a long sentence", 10))
	assert.Equal(t, "...", Truncate("abcdef", 2))
}

package refdump

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleDump = `Entity: chrono_field
Level: 3
Cooldown: 120s
Duration: 30s

Entity: chrono_field
Level: 4
Cooldown: 100s
Duration: 30s

Entity: golden_tower
Level: 7
Bonus: x3.5
Duration: 25s
Cooldown: 200s
`

func TestParseDump(t *testing.T) {
	blocks, skipped := Parse(sampleDump)
	require.Empty(t, skipped)
	require.Len(t, blocks, 3)

	assert.Equal(t, "chrono_field", blocks[0].EntityID)
	assert.Equal(t, 3, blocks[0].Level)
	assert.Equal(t, map[string]string{"Cooldown": "120s", "Duration": "30s"}, blocks[0].RawFields)

	assert.Equal(t, "golden_tower", blocks[2].EntityID)
	assert.Equal(t, 7, blocks[2].Level)
	assert.Len(t, blocks[2].RawFields, 3)
}

func TestParseSkipsIncompleteBlocks(t *testing.T) {
	blocks, skipped := Parse("Cooldown: 120s\nDuration: 30s\n\nEntity: chrono_field\nLevel: 3\nCooldown: 120s\n")
	assert.Equal(t, []int{0}, skipped)
	require.Len(t, blocks, 1)
	assert.Equal(t, "chrono_field", blocks[0].EntityID)
}

func TestParseRejectsBadLevel(t *testing.T) {
	blocks, skipped := Parse("Entity: chrono_field\nLevel: three\nCooldown: 120s\n")
	assert.Empty(t, blocks)
	assert.Equal(t, []int{0}, skipped)
}

func TestContentHashIgnoresFieldOrder(t *testing.T) {
	a, _ := Parse("Entity: e\nLevel: 1\nCooldown: 120s\nDuration: 30s\n")
	b, _ := Parse("Entity: e\nLevel: 1\nDuration: 30s\nCooldown: 120s\n")
	require.Len(t, a, 1)
	require.Len(t, b, 1)
	assert.Equal(t, a[0].ContentHash, b[0].ContentHash)
}

func TestContentHashChangesWithValues(t *testing.T) {
	a, _ := Parse("Entity: e\nLevel: 1\nCooldown: 120s\n")
	b, _ := Parse("Entity: e\nLevel: 1\nCooldown: 100s\n")
	assert.NotEqual(t, a[0].ContentHash, b[0].ContentHash)
}

func TestParseCRLFAndEmptyInput(t *testing.T) {
	blocks, skipped := Parse("Entity: e\r\nLevel: 1\r\nCooldown: 120s\r\n")
	require.Len(t, blocks, 1)
	assert.Empty(t, skipped)
	assert.Equal(t, "120s", blocks[0].RawFields["Cooldown"])

	blocks, skipped = Parse("")
	assert.Empty(t, blocks)
	assert.Empty(t, skipped)
}

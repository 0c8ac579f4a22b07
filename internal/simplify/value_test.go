package simplify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/egraphs-good/eggcc-go/internal/cfg"
)

func TestLatticeMergeIsMonotone(t *testing.T) {
	var bot lattice
	assert.False(t, bot.merge(Bot))
	assert.Equal(t, Bot, bot)

	assert.True(t, bot.merge(KnownTrue))
	assert.Equal(t, KnownTrue, bot)

	assert.False(t, bot.merge(KnownTrue), "merging the same known value again is a no-op")

	assert.True(t, bot.merge(KnownFalse), "two different known values join to Top")
	assert.Equal(t, Top, bot)

	assert.False(t, bot.merge(Bot), "Top absorbs anything, including Bot")
	assert.Equal(t, Top, bot)

	var known lattice = KnownTrue
	assert.False(t, known.merge(Bot), "Known merged with Bot stays Known")
	assert.Equal(t, KnownTrue, known)
}

func TestTransformApply(t *testing.T) {
	assert.Equal(t, KnownTrue, transform{kind: tID}.apply(KnownTrue))
	assert.Equal(t, KnownFalse, transform{kind: tNegate}.apply(KnownTrue))
	assert.Equal(t, KnownTrue, transform{kind: tNegate}.apply(KnownFalse))
	assert.Equal(t, Top, transform{kind: tNegate}.apply(Top))
	assert.Equal(t, Top, transform{kind: tOverwrite, val: Top}.apply(KnownTrue))
}

func TestBlockQueueDropsDuplicateInserts(t *testing.T) {
	q := newBlockQueue()
	q.insert(cfg.BlockID(1))
	q.insert(cfg.BlockID(1))
	_, ok := q.pop()
	require.True(t, ok)
	_, ok = q.pop()
	assert.False(t, ok)
}

func TestBlockQueueIsFIFO(t *testing.T) {
	q := newBlockQueue()
	q.insert(cfg.BlockID(1))
	q.insert(cfg.BlockID(2))
	first, _ := q.pop()
	second, _ := q.pop()
	assert.Equal(t, cfg.BlockID(1), first)
	assert.Equal(t, cfg.BlockID(2), second)
}

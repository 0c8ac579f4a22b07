package cfg

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func linearFunc() *Function {
	f := &Function{Name: "f"}
	b0 := f.AddBlock("entry")
	b1 := f.AddBlock("mid")
	b2 := f.AddBlock("exit")
	b0.Out = []Edge{{Dest: b1.ID}}
	b1.Out = []Edge{{Dest: b2.ID}}
	f.Entry, f.Exit = b0.ID, b2.ID
	return f
}

func TestDominatorsLinearChain(t *testing.T) {
	f := linearFunc()
	dom := ComputeDominators(f, f.Entry)
	assert.True(t, dom.Dominates(f.Entry, BlockID(2)))
	assert.False(t, dom.Dominates(BlockID(1), f.Entry))
	assert.Equal(t, BlockID(1), dom.ImmediateDominator(BlockID(2)))
}

func TestTarjanSCCDetectsLoop(t *testing.T) {
	f := &Function{Name: "f"}
	head := f.AddBlock("head")
	body := f.AddBlock("body")
	exit := f.AddBlock("exit")
	head.Out = []Edge{{Dest: body.ID}}
	body.Out = []Edge{{Dest: head.ID}, {Dest: exit.ID}}
	f.Entry, f.Exit = head.ID, exit.ID

	sccs := TarjanSCCs(f, []BlockID{head.ID, body.ID, exit.ID}, f.Entry)
	var loopy []SCC
	for _, s := range sccs {
		if len(s.Blocks) >= 2 {
			loopy = append(loopy, s)
		}
	}
	require.Len(t, loopy, 1)
	assert.ElementsMatch(t, []BlockID{head.ID, body.ID}, loopy[0].Blocks)
}

func TestIsBackEdge(t *testing.T) {
	f := &Function{Name: "f"}
	head := f.AddBlock("head")
	body := f.AddBlock("body")
	head.Out = []Edge{{Dest: body.ID}}
	body.Out = []Edge{{Dest: head.ID}}
	f.Entry = head.ID

	dom := ComputeDominators(f, f.Entry)
	assert.True(t, IsBackEdge(dom, body.ID, head.ID))
	assert.False(t, IsBackEdge(dom, head.ID, body.ID))
}

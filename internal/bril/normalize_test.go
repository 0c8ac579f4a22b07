package bril

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/text/unicode/norm"
)

func TestNormalizeStripsBOM(t *testing.T) {
	in := append([]byte{0xEF, 0xBB, 0xBF}, []byte(`{"functions":[]}`)...)
	assert.Equal(t, []byte(`{"functions":[]}`), Normalize(in))
}

func TestNormalizeLeavesNonBOMInputAlone(t *testing.T) {
	in := []byte(`{"functions":[]}`)
	assert.Equal(t, in, Normalize(in))
}

func TestNormalizeNFCFoldsIdentifiers(t *testing.T) {
	nfd := []byte("café") // e + combining acute accent
	out := Normalize(nfd)
	assert.Equal(t, "café", string(out))
	assert.True(t, norm.NFC.IsNormal(out))
}

func TestNormalizeIdempotent(t *testing.T) {
	in := append([]byte{0xEF, 0xBB, 0xBF}, []byte("café")...)
	first := Normalize(in)
	second := Normalize(first)
	assert.Equal(t, first, second)
}

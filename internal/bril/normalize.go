package bril

import (
	"bytes"

	"golang.org/x/text/unicode/norm"
)

var bomUTF8 = []byte{0xEF, 0xBB, 0xBF}

// Normalize strips a leading UTF-8 BOM and applies Unicode NFC normalization
// to the raw source bytes before they reach encoding/json, so two inputs
// that differ only in byte-level representation of the same identifiers
// (composed vs. decomposed accents, an editor-injected BOM) parse into
// identical cfg.Program values. Grounded on internal/lexer/normalize.go,
// applied here to the whole JSON payload rather than post-lex source text
// since the front end has no separate lexing stage of its own.
func Normalize(src []byte) []byte {
	src = bytes.TrimPrefix(src, bomUTF8)
	if !norm.NFC.IsNormal(src) {
		src = norm.NFC.Bytes(src)
	}
	return src
}

// pkg/extract/decode.go

package extract

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"
)

// Decode turns raw blob bytes into text. It never fails: invalid UTF-8 is
// dropped or replaced according to policy.
func Decode(raw []byte, policy DecodePolicy) string {
	if utf8.Valid(raw) {
		return string(raw)
	}

	if policy == DecodeReplace {
		out, err := unicode.UTF8.NewDecoder().Bytes(raw)
		if err != nil {
			return strings.ToValidUTF8(string(raw), string(utf8.RuneError))
		}
		return string(out)
	}
	return strings.ToValidUTF8(string(raw), "")
}

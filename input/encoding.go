package input

import (
	"bytes"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/traditionalchinese"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// decodeFunc converts raw bytes to UTF-8 text. ok is false when the bytes
// are not valid in the encoding.
type decodeFunc func(data []byte) (text string, ok bool)

// decoders maps the accepted encoding names (lower-case) to strict decoders.
var decoders = map[string]decodeFunc{
	"utf-8-sig":    decodeUTF8Sig,
	"utf-8":        decodeUTF8,
	"utf8":         decodeUTF8,
	"gbk":          strict(simplifiedchinese.GBK),
	"cp936":        strict(simplifiedchinese.GBK),
	"gb18030":      strict(simplifiedchinese.GB18030),
	"big5":         strict(traditionalchinese.Big5),
	"latin1":       strict(charmap.ISO8859_1),
	"iso-8859-1":   strict(charmap.ISO8859_1),
	"cp1252":       strict(charmap.Windows1252),
	"windows-1252": strict(charmap.Windows1252),
}

func decodeUTF8Sig(data []byte) (string, bool) {
	return decodeUTF8(bytes.TrimPrefix(data, utf8BOM))
}

func decodeUTF8(data []byte) (string, bool) {
	if !utf8.Valid(data) {
		return "", false
	}
	return string(data), true
}

// strict wraps an x/text encoding so that bytes it cannot map count as a
// failure instead of turning into U+FFFD.
func strict(enc encoding.Encoding) decodeFunc {
	return func(data []byte) (string, bool) {
		out, err := enc.NewDecoder().Bytes(data)
		if err != nil {
			return "", false
		}
		if bytes.ContainsRune(out, utf8.RuneError) {
			return "", false
		}
		return string(out), true
	}
}

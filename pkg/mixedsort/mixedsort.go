// Package mixedsort provides a sort key for strings that mix ASCII text,
// numbers, and CJK characters. Numbers compare by value (natural sort) and
// CJK runs compare by their pinyin romanization, so channel names like
// "CCTV2" sort before "CCTV10" and "北京" sorts under "beijing".
package mixedsort

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/mozillazg/go-pinyin"
)

// segmentKind tags which class a key segment belongs to. Segments of
// different kinds never compare equal, so the tuple comparison stays within
// one class.
type segmentKind byte

const (
	kindAlpha segmentKind = iota // ASCII letters and symbols, lowercased
	kindNumber
	kindPinyin
)

// segment is one comparable unit of a Key.
type segment struct {
	kind segmentKind
	text string
	num  int64
}

// Key is a precomputed sort key. Build it once per string with NewKey and
// reuse it across comparisons.
type Key struct {
	segments []segment
}

var segmentPattern = regexp.MustCompile(`([a-zA-Z]+|[^\w\s]+)|(\d+)|([\x{4e00}-\x{9fa5}]+)`)

var pinyinArgs = pinyin.NewArgs()

func init() {
	// Keep non-hanzi runes intact so mixed segments still produce output.
	pinyinArgs.Fallback = func(r rune, _ pinyin.Args) []string {
		return []string{string(r)}
	}
}

// NewKey builds the sort key for s.
func NewKey(s string) Key {
	matches := segmentPattern.FindAllStringSubmatch(s, -1)
	segments := make([]segment, 0, len(matches))

	for _, m := range matches {
		switch {
		case m[1] != "":
			segments = append(segments, segment{kind: kindAlpha, text: strings.ToLower(m[1])})
		case m[2] != "":
			n, err := strconv.ParseInt(m[2], 10, 64)
			if err != nil {
				// Digit run too long for int64; fall back to lexicographic.
				segments = append(segments, segment{kind: kindAlpha, text: m[2]})
				continue
			}
			segments = append(segments, segment{kind: kindNumber, num: n})
		case m[3] != "":
			segments = append(segments, segment{kind: kindPinyin, text: romanize(m[3])})
		}
	}

	return Key{segments: segments}
}

// romanize converts a CJK run to concatenated lowercase pinyin.
func romanize(s string) string {
	var b strings.Builder
	for _, syllables := range pinyin.Pinyin(s, pinyinArgs) {
		if len(syllables) > 0 {
			b.WriteString(strings.ToLower(syllables[0]))
		}
	}
	return b.String()
}

// Compare returns -1, 0, or 1 comparing k against other segment by segment.
// A shorter key that is a prefix of a longer one sorts first.
func (k Key) Compare(other Key) int {
	a, b := k.segments, other.segments
	n := len(a)
	if len(b) < n {
		n = len(b)
	}

	for i := 0; i < n; i++ {
		if c := a[i].compare(b[i]); c != 0 {
			return c
		}
	}

	switch {
	case len(a) < len(b):
		return -1
	case len(a) > len(b):
		return 1
	default:
		return 0
	}
}

func (s segment) compare(other segment) int {
	if s.kind != other.kind {
		if s.kind < other.kind {
			return -1
		}
		return 1
	}

	if s.kind == kindNumber {
		switch {
		case s.num < other.num:
			return -1
		case s.num > other.num:
			return 1
		default:
			return 0
		}
	}

	return strings.Compare(s.text, other.text)
}

// Less reports whether a sorts before b. Convenience wrapper for sort.Slice
// callers that do not want to precompute keys.
func Less(a, b string) bool {
	return NewKey(a).Compare(NewKey(b)) < 0
}

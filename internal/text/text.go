// Package text implements character tables and the text encodings built from
// them, converting between ROM bytes and editable strings with escape codes.
package text

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/retroenv/retrogolib/log"
)

// Escape codes with a special meaning.
const (
	Terminator = `\0`
	Pad        = `\pad`
	NewLine    = `\n`
	Page       = `\page`
	Choice     = `\choice`
	charPrefix = `\char`
	paramStart = "["
	paramEnd   = "]"
)

// CharTable maps byte values to characters or escape codes. Values above
// 0xFF are two byte sequences stored big endian.
type CharTable struct {
	Key   string
	Chars map[int]string
}

// NewCharTable returns a new character table.
func NewCharTable(key string, chars map[int]string) *CharTable {
	return &CharTable{
		Key:   key,
		Chars: chars,
	}
}

// Encoding converts between bytes and text using one or more merged
// character tables.
type Encoding struct {
	Key string

	logger   *log.Logger
	decoding map[int]string
	encoding map[string]int
	keys     []string // encoding keys sorted by descending length
	escapes  []string // escape keys sorted by descending length
}

// NewEncoding merges the character tables into a new encoding. Later tables
// override entries of earlier ones.
func NewEncoding(logger *log.Logger, key string, tables ...*CharTable) *Encoding {
	e := &Encoding{
		Key:      key,
		logger:   logger,
		decoding: map[int]string{},
		encoding: map[string]int{},
	}

	for _, table := range tables {
		// sorted iteration keeps the result deterministic for duplicate values
		codes := make([]int, 0, len(table.Chars))
		for code := range table.Chars {
			codes = append(codes, code)
		}
		sort.Ints(codes)

		for _, code := range codes {
			s := table.Chars[code]
			e.decoding[code] = s
			e.encoding[s] = code
		}
	}

	for s := range e.encoding {
		e.keys = append(e.keys, s)
		if strings.HasPrefix(s, `\`) {
			e.escapes = append(e.escapes, s)
		}
	}
	byLength := func(keys []string) {
		sort.Slice(keys, func(i, j int) bool {
			if len(keys[i]) != len(keys[j]) {
				return len(keys[i]) > len(keys[j])
			}
			return keys[i] < keys[j]
		})
	}
	byLength(e.keys)
	byLength(e.escapes)
	return e
}

// lookup returns the character for the data at offset i and the number of
// bytes that it uses. Two byte sequences are preferred when the first byte
// is not zero.
func (e *Encoding) lookup(data []byte, i int) (string, int, bool) {
	b1 := int(data[i])
	if b1 != 0 {
		b2 := 0
		if i+1 < len(data) {
			b2 = int(data[i+1])
		}
		if c, ok := e.decoding[b1<<8|b2]; ok && c != "" {
			return c, 2, true
		}
	}
	c, ok := e.decoding[b1]
	if !ok || c == "" {
		return "", 1, false
	}
	return c, 1, true
}

// Decode converts the data to text. Decoding stops at the terminator,
// unknown bytes are output as \XX hex escapes.
func (e *Encoding) Decode(data []byte) string {
	var sb strings.Builder

	for i := 0; i < len(data); {
		c, n, ok := e.lookup(data, i)
		i += n

		switch {
		case !ok:
			fmt.Fprintf(&sb, `\%02X`, data[i-n])
		case c == Terminator:
			return sb.String()
		case c == Pad:
		case strings.HasSuffix(c, paramStart):
			sb.WriteString(c)
			param := 0
			if i < len(data) {
				param = int(data[i])
			}
			i++
			sb.WriteString(strconv.Itoa(param))
			sb.WriteString(paramEnd)
		default:
			sb.WriteString(c)
		}
	}
	return sb.String()
}

// Encode converts the text to data using the longest matching character for
// every position. A terminator is appended if the encoding defines one.
func (e *Encoding) Encode(s string) []byte {
	var data []byte

	for i := 0; i < len(s); {
		remaining := s[i:]
		match := ""
		for _, key := range e.keys {
			if strings.HasPrefix(remaining, key) {
				match = key
				break
			}
		}

		if match == "" {
			e.logger.Warn("Invalid character",
				log.String("encoding", e.Key),
				log.String("character", string([]rune(remaining)[0])))
			i += len(string([]rune(remaining)[0]))
			continue
		}
		if match == Terminator {
			break
		}

		value := e.encoding[match]
		i += len(match)

		if strings.HasSuffix(match, paramStart) {
			param, next := e.parseParameter(s, i)
			i = next
			value = value<<8 | param
		}

		if value > 0xFF {
			data = append(data, byte(value>>8), byte(value))
		} else {
			data = append(data, byte(value))
		}
	}

	if terminator, ok := e.encoding[Terminator]; ok {
		if len(data) == 0 || data[len(data)-1] != byte(terminator) {
			data = append(data, byte(terminator))
		}
	}
	return data
}

// parseParameter reads a numeric parameter up to the closing bracket and
// returns it together with the offset after the bracket.
func (e *Encoding) parseParameter(s string, i int) (int, int) {
	end := strings.Index(s[i:], paramEnd)
	if end < 0 {
		e.logger.Warn("Invalid text parameter", log.String("encoding", e.Key), log.String("text", s[i:]))
		return 0, i
	}

	param := s[i : i+end]
	n, err := strconv.ParseInt(param, 0, 64)
	if err != nil || n < 0 || n > 0xFF {
		e.logger.Warn("Invalid text parameter", log.String("encoding", e.Key), log.String("parameter", param))
		return 0, i + end + 1
	}
	return int(n), i + end + 1
}

// TextLength returns the number of bytes of the data that belong to the first
// string, including its terminator.
func (e *Encoding) TextLength(data []byte) int {
	i := 0
	for i < len(data) {
		c, n, ok := e.lookup(data, i)
		i += n
		if !ok {
			continue
		}
		if c == Terminator {
			break
		}
		if strings.HasSuffix(c, paramStart) {
			i++
		}
	}
	return min(i, len(data))
}

// Format converts escape codes to a readable form. New lines and page breaks
// become line feeds, choices get numbered, \charNN codes are replaced by the
// character name returned by names and all other escapes are removed.
func (e *Encoding) Format(s string, names func(i int) string) string {
	for _, key := range e.escapes {
		if !strings.Contains(s, key) {
			continue
		}

		switch {
		case strings.HasSuffix(key, paramStart):
			s = removeParameterEscapes(s, key)
		case key == NewLine || key == Page:
			s = strings.ReplaceAll(s, key, "\n")
		case key == Choice:
			for c := 1; strings.Contains(s, key); c++ {
				s = strings.Replace(s, key, strconv.Itoa(c)+": ", 1)
			}
		case strings.HasPrefix(key, charPrefix) && names != nil:
			s = strings.ReplaceAll(s, key, names(charIndex(key)))
		default:
			s = strings.ReplaceAll(s, key, "")
		}
	}
	return s
}

func removeParameterEscapes(s, key string) string {
	for {
		start := strings.Index(s, key)
		if start < 0 {
			return s
		}
		end := strings.Index(s[start+len(key):], paramEnd)
		if end < 0 {
			return s[:start]
		}
		s = s[:start] + s[start+len(key)+end+1:]
	}
}

// charIndex parses the index suffix of a \charNN escape.
func charIndex(key string) int {
	suffix := key[len(charPrefix):]
	if i, err := strconv.Atoi(suffix); err == nil {
		return i
	}
	if i, err := strconv.ParseInt(suffix, 16, 64); err == nil {
		return int(i)
	}
	return 0
}

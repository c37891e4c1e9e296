// Package partialjson completes truncated JSON document prefixes so that an
// in-flight structured generation can be parsed into a snapshot after every
// received delta. Completion never invents values: an unfinished object key,
// a dangling colon, or a trailing comma is cut back to the last position that
// already formed a complete value, and open containers are then closed.
package partialjson

type frameKind byte

const (
	kindObject frameKind = '{'
	kindArray  frameKind = '['
)

type phase int

const (
	// object: expecting a key or '}'; array: expecting a value or ']'.
	phaseWantFirst phase = iota
	// object only: inside or just past a key, ':' not yet seen.
	phaseWantColon
	// expecting a value (after ':' in objects, after ',' in arrays).
	phaseWantValue
	// a complete value was read; expecting ',' or a closing bracket.
	phaseAfterValue
)

type frame struct {
	kind  frameKind
	phase phase
}

// Complete returns the shortest well-formed completion of prefix, or ok=false
// when the prefix does not yet contain any completable document.
func Complete(prefix []byte) ([]byte, bool) {
	var (
		stack []frame

		rootPhase = phaseWantValue

		// Latest cut that forms a valid document once closers are appended.
		goodEnd     = -1
		goodClosers []byte

		inString   bool
		stringKey  bool
		stringSafe int
		escape     int // >0 while consuming an escape sequence
	)

	snapshot := func(end int) {
		goodEnd = end
		goodClosers = closers(stack)
	}

	top := func() *frame {
		if len(stack) == 0 {
			return nil
		}
		return &stack[len(stack)-1]
	}

	wantValue := func() bool {
		if f := top(); f != nil {
			return f.phase == phaseWantFirst && f.kind == kindArray || f.phase == phaseWantValue
		}
		return rootPhase == phaseWantValue
	}

	valueEnd := func(end int) {
		if f := top(); f != nil {
			f.phase = phaseAfterValue
		} else {
			rootPhase = phaseAfterValue
		}
		snapshot(end)
	}

	i := 0
	n := len(prefix)
	for i < n {
		c := prefix[i]

		if inString {
			switch {
			case escape > 0:
				if escape == 1 && c == 'u' {
					escape = 4 // four hex digits follow
				} else {
					escape--
				}
				if escape == 0 {
					stringSafe = i + 1
				}
			case c == '\\':
				escape = 1
			case c == '"':
				inString = false
				if stringKey {
					if f := top(); f != nil {
						f.phase = phaseWantColon
					}
				} else {
					valueEnd(i + 1)
				}
			default:
				stringSafe = i + 1
			}
			i++
			continue
		}

		switch c {
		case ' ', '\t', '\n', '\r':
			i++
		case '{':
			stack = append(stack, frame{kind: kindObject, phase: phaseWantFirst})
			snapshot(i + 1)
			i++
		case '[':
			stack = append(stack, frame{kind: kindArray, phase: phaseWantFirst})
			snapshot(i + 1)
			i++
		case '}', ']':
			if len(stack) == 0 {
				return nil, false
			}
			stack = stack[:len(stack)-1]
			valueEnd(i + 1)
			i++
		case ':':
			if f := top(); f != nil && f.phase == phaseWantColon {
				f.phase = phaseWantValue
			} else {
				return nil, false
			}
			i++
		case ',':
			f := top()
			if f == nil || f.phase != phaseAfterValue {
				return nil, false
			}
			if f.kind == kindObject {
				f.phase = phaseWantFirst
			} else {
				f.phase = phaseWantValue
			}
			i++
		case '"':
			f := top()
			stringKey = f != nil && f.kind == kindObject && f.phase == phaseWantFirst
			if !stringKey && !wantValue() {
				return nil, false
			}
			inString = true
			stringSafe = i + 1
			escape = 0
			i++
		default:
			if !wantValue() {
				return nil, false
			}
			switch {
			case c == 't' || c == 'f' || c == 'n':
				lit, end, complete := scanLiteral(prefix, i)
				if lit == "" {
					return nil, false
				}
				if !complete {
					// Literals are unambiguous from their first byte.
					out := append([]byte(nil), prefix[:i]...)
					out = append(out, lit...)
					out = append(out, closers(stack)...)
					return out, true
				}
				valueEnd(end)
				i = end
			case c == '-' || (c >= '0' && c <= '9'):
				end := scanNumber(prefix, i)
				if end < n {
					valueEnd(end)
					i = end
					continue
				}
				// Number runs to end of input: trim to the last digit.
				j := end
				for j > i && !isDigit(prefix[j-1]) {
					j--
				}
				if j == i {
					return fallback(prefix, goodEnd, goodClosers)
				}
				out := append([]byte(nil), prefix[:j]...)
				out = append(out, closers(stack)...)
				return out, true
			default:
				return nil, false
			}
		}
	}

	if inString {
		if stringKey {
			return fallback(prefix, goodEnd, goodClosers)
		}
		out := append([]byte(nil), prefix[:stringSafe]...)
		out = append(out, '"')
		out = append(out, closers(stack)...)
		return out, true
	}

	if wantValueAtEnd(stack, rootPhase) {
		return fallback(prefix, goodEnd, goodClosers)
	}

	if goodEnd < 0 {
		return nil, false
	}
	out := append([]byte(nil), prefix[:goodEnd]...)
	out = append(out, goodClosers...)
	return out, true
}

func wantValueAtEnd(stack []frame, rootPhase phase) bool {
	if len(stack) == 0 {
		return rootPhase == phaseWantValue
	}
	f := stack[len(stack)-1]
	switch f.phase {
	case phaseWantColon, phaseWantValue:
		return true
	case phaseWantFirst:
		// An empty container is closable as-is.
		return false
	}
	return false
}

func fallback(prefix []byte, goodEnd int, goodClosers []byte) ([]byte, bool) {
	if goodEnd < 0 {
		return nil, false
	}
	out := append([]byte(nil), prefix[:goodEnd]...)
	out = append(out, goodClosers...)
	return out, true
}

func closers(stack []frame) []byte {
	out := make([]byte, 0, len(stack))
	for j := len(stack) - 1; j >= 0; j-- {
		if stack[j].kind == kindObject {
			out = append(out, '}')
		} else {
			out = append(out, ']')
		}
	}
	return out
}

// scanLiteral matches true/false/null starting at i. It returns the full
// literal text, the index just past it, and whether the input contained the
// whole literal. lit is empty when the input diverges from every literal.
func scanLiteral(b []byte, i int) (lit string, end int, complete bool) {
	for _, candidate := range []string{"true", "false", "null"} {
		if candidate[0] != b[i] {
			continue
		}
		j := 0
		for j < len(candidate) && i+j < len(b) {
			if b[i+j] != candidate[j] {
				return "", 0, false
			}
			j++
		}
		return candidate, i + j, j == len(candidate)
	}
	return "", 0, false
}

func scanNumber(b []byte, i int) int {
	j := i
	for j < len(b) {
		c := b[j]
		if isDigit(c) || c == '-' || c == '+' || c == '.' || c == 'e' || c == 'E' {
			j++
			continue
		}
		break
	}
	return j
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

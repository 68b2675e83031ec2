package bus

import "strings"

// Wildcard segments recognized in subscription patterns.
const (
	wildcardOne  = "*"
	wildcardTail = "**"
)

// pattern is a parsed subscription pattern. Parsing happens once at
// Subscribe so matching on the publish path is allocation-free apart from
// splitting the topic.
type pattern struct {
	segments []string
}

// parsePattern splits a raw pattern into segments.
func parsePattern(raw string) pattern {
	return pattern{segments: splitTopic(raw)}
}

// splitTopic splits a topic or pattern on "/" and ":" delimiters,
// discarding empty segments.
func splitTopic(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return r == '/' || r == ':'
	})
}

// match reports whether the pattern matches the given topic segments.
// "*" consumes exactly one segment; "**" consumes the remaining tail
// (including an empty tail) and only ever appears in final position —
// anything after it is unreachable and ignored.
func (p pattern) match(topic []string) bool {
	for i, seg := range p.segments {
		if seg == wildcardTail {
			return true
		}
		if i >= len(topic) {
			return false
		}
		if seg != wildcardOne && seg != topic[i] {
			return false
		}
	}
	return len(topic) == len(p.segments)
}

// matchTopic is a convenience for matching an unsplit topic string.
func (p pattern) matchTopic(topic string) bool {
	return p.match(splitTopic(topic))
}

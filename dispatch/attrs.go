package dispatch

import (
	"strconv"
	"strings"
	"unicode"
)

// AttrKey identifies a recognized annotation option.
type AttrKey int

const (
	// AttrName overrides the wire name of a handler.
	AttrName AttrKey = iota + 1
	// AttrNotification marks a handler as fire-and-forget.
	AttrNotification
)

func (k AttrKey) String() string {
	switch k {
	case AttrName:
		return "name"
	case AttrNotification:
		return "notification"
	default:
		return "AttrKey(" + strconv.Itoa(int(k)) + ")"
	}
}

// AttrValue is either a string payload or a bare presence flag.
type AttrValue struct {
	text     string
	presence bool
}

// StringValue returns a value carrying text.
func StringValue(text string) AttrValue {
	return AttrValue{text: text}
}

// Presence returns a flag value with no payload.
func Presence() AttrValue {
	return AttrValue{presence: true}
}

// Text returns the payload of a string value. ok is false for presence flags.
func (v AttrValue) Text() (text string, ok bool) {
	return v.text, !v.presence
}

// IsPresence reports whether v is a flag without payload.
func (v AttrValue) IsPresence() bool {
	return v.presence
}

// AttributeSet holds the options extracted from one handler annotation.
// A missing key means the default behavior applies.
type AttributeSet map[AttrKey]AttrValue

// Name returns the wire name override, if any.
func (s AttributeSet) Name() (string, bool) {
	v, ok := s[AttrName]
	if !ok {
		return "", false
	}
	return v.Text()
}

// Notification reports whether the notification flag is set.
func (s AttributeSet) Notification() bool {
	v, ok := s[AttrNotification]
	return ok && v.IsPresence()
}

// ParseAttributes extracts the recognized options from an annotation such as
//
//	name = "publicName", notification
//
// Values may be Go string literals or bare tokens. Unknown options and
// malformed fragments are skipped; ParseAttributes never fails. When an option
// appears more than once, the last occurrence wins.
func ParseAttributes(annotation string) AttributeSet {
	attrs := make(AttributeSet)
	for _, frag := range splitFragments(annotation) {
		key, value, hasValue := strings.Cut(frag, "=")
		key = strings.TrimSpace(key)
		if !hasValue {
			if key == "notification" {
				attrs[AttrNotification] = Presence()
			}
			continue
		}
		if key != "name" {
			continue
		}
		text, ok := parseAttrText(strings.TrimSpace(value))
		if !ok || text == "" {
			continue
		}
		attrs[AttrName] = StringValue(text)
	}
	return attrs
}

// splitFragments splits on commas outside of quoted literals.
func splitFragments(s string) []string {
	var (
		frags   []string
		start   int
		quote   rune
		escaped bool
	)
	for i, r := range s {
		switch {
		case escaped:
			escaped = false
		case quote != 0:
			if r == '\\' && quote == '"' {
				escaped = true
			} else if r == quote {
				quote = 0
			}
		case r == '"' || r == '`':
			quote = r
		case r == ',':
			frags = append(frags, s[start:i])
			start = i + 1
		}
	}
	frags = append(frags, s[start:])

	out := frags[:0]
	for _, f := range frags {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

func parseAttrText(v string) (string, bool) {
	if v == "" {
		return "", false
	}
	if v[0] == '"' || v[0] == '`' {
		text, err := strconv.Unquote(v)
		if err != nil {
			return "", false
		}
		return text, true
	}
	for _, r := range v {
		if unicode.IsSpace(r) || r == '"' || r == '`' || r == '=' {
			return "", false
		}
	}
	return v, true
}

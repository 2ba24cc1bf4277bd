package dispatch

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseAttributes(t *testing.T) {
	tests := []struct {
		name         string
		annotation   string
		wantName     string
		hasName      bool
		notification bool
	}{
		{name: "empty", annotation: ""},
		{name: "quoted name", annotation: `name = "publicName"`, wantName: "publicName", hasName: true},
		{name: "bare name", annotation: "name=publicName", wantName: "publicName", hasName: true},
		{name: "raw string name", annotation: "name = `raw`", wantName: "raw", hasName: true},
		{name: "notification", annotation: "notification", notification: true},
		{name: "both", annotation: `name = "log", notification`, wantName: "log", hasName: true, notification: true},
		{name: "comma inside quotes", annotation: `name = "a,b"`, wantName: "a,b", hasName: true},
		{name: "escaped quote", annotation: `name = "say \"hi\""`, wantName: `say "hi"`, hasName: true},
		{name: "last wins", annotation: `name = "first", name = "second"`, wantName: "second", hasName: true},
		{name: "unknown option", annotation: `timeout = "5s", verbose`},
		{name: "name without value", annotation: "name"},
		{name: "empty name", annotation: `name = ""`},
		{name: "unterminated quote", annotation: `name = "oops`},
		{name: "name with spaces", annotation: "name = two words"},
		{name: "notification with value", annotation: "notification = yes"},
		{name: "stray commas", annotation: " , notification ,, ", notification: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			attrs := ParseAttributes(tt.annotation)
			got, ok := attrs.Name()
			assert.Equal(t, tt.hasName, ok)
			assert.Equal(t, tt.wantName, got)
			assert.Equal(t, tt.notification, attrs.Notification())
		})
	}
}

func TestAttrValue(t *testing.T) {
	text, ok := StringValue("x").Text()
	assert.True(t, ok)
	assert.Equal(t, "x", text)
	assert.False(t, StringValue("x").IsPresence())

	_, ok = Presence().Text()
	assert.False(t, ok)
	assert.True(t, Presence().IsPresence())
}

func TestAttributeSet_PresenceRequiredForNotification(t *testing.T) {
	attrs := AttributeSet{AttrNotification: StringValue("yes")}
	assert.False(t, attrs.Notification())

	attrs = AttributeSet{AttrName: Presence()}
	_, ok := attrs.Name()
	assert.False(t, ok)
}

func TestAttrKeyString(t *testing.T) {
	assert.Equal(t, "name", AttrName.String())
	assert.Equal(t, "notification", AttrNotification.String())
	assert.Equal(t, "AttrKey(9)", AttrKey(9).String())
}

package core

import (
	"fmt"
	"maps"
)

// Well-known session state keys. Agents may declare any other key; the engine
// only interprets the ones below.
const (
	KeyActiveAgent    = "active_agent"
	KeyLanguage       = "language"
	KeyBotID          = "bot_id"
	KeyClientID       = "client_id"
	KeyHandbackTurn   = "isHandbackTurn"
	KeyConversationID = "conversation_id"
)

// State is the mutable key/value mapping carried by one conversation. The
// engine never mutates a caller's State in place: every turn works on a Clone.
type State map[string]any

// Clone returns a shallow copy. Nested maps and slices are shared.
func (s State) Clone() State {
	out := make(State, len(s))
	maps.Copy(out, s)
	return out
}

// Merge copies every key of patch into s (last write wins).
func (s State) Merge(patch map[string]any) {
	maps.Copy(s, patch)
}

// String returns the value under key rendered as a string. Missing keys and
// nil values yield "" and false.
func (s State) String(key string) (string, bool) {
	v, ok := s[key]
	if !ok || v == nil {
		return "", false
	}
	if str, ok := v.(string); ok {
		return str, str != ""
	}
	return fmt.Sprintf("%v", v), true
}

// Bool reports whether key holds a truthy value. Strings "true"/"1" count as
// true since persisted state may round-trip through text columns.
func (s State) Bool(key string) bool {
	switch v := s[key].(type) {
	case bool:
		return v
	case string:
		return v == "true" || v == "1"
	case float64:
		return v != 0
	case int:
		return v != 0
	default:
		return false
	}
}

// ActiveAgent returns the identifier of the persona currently speaking.
func (s State) ActiveAgent() string {
	v, _ := s.String(KeyActiveAgent)
	return v
}

// Language returns the two-letter language code of the conversation.
func (s State) Language() string {
	v, _ := s.String(KeyLanguage)
	return v
}

// Tenant returns the owning-client identifier used for configuration and
// retrieval lookups; empty means global.
func (s State) Tenant() string {
	v, _ := s.String(KeyClientID)
	return v
}

// ConsumeHandback reports whether the one-shot hand-back flag was set and
// clears it unconditionally.
func (s State) ConsumeHandback() bool {
	set := s.Bool(KeyHandbackTurn)
	s[KeyHandbackTurn] = false
	return set
}

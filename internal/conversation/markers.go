package conversation

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"unicode/utf8"

	"gopkg.in/yaml.v3"
)

// Marker is a line-leading speaker token, e.g. "User" or "ChatGPT said".
type Marker struct {
	Token string
	Role  Role
}

var defaultUserTokens = []string{
	"user", "you", "you said", "human", "me", "prompt",
	"用户", "我", "人类",
}

var defaultAssistantTokens = []string{
	"assistant", "ai", "ai assistant", "bot",
	"chatgpt", "chatgpt said", "gpt", "gpt-4", "gpt-4o",
	"claude", "claude said", "gemini", "gemini said", "grok",
	"copilot", "llama", "mistral", "deepseek", "qwen",
	"助手", "机器人", "文心一言", "通义千问",
}

// DefaultMarkers returns the built-in marker list.
func DefaultMarkers() []Marker {
	out := make([]Marker, 0, len(defaultUserTokens)+len(defaultAssistantTokens))
	for _, t := range defaultUserTokens {
		out = append(out, Marker{Token: t, Role: RoleUser})
	}
	for _, t := range defaultAssistantTokens {
		out = append(out, Marker{Token: t, Role: RoleAssistant})
	}
	return out
}

// MarkerSet is an immutable, match-ready collection of markers ordered
// longest token first so the longest match at a position wins.
type MarkerSet struct {
	markers []Marker
}

// NewMarkerSet builds a set from markers. Tokens are case-insensitive; when a
// token appears twice the later entry wins.
func NewMarkerSet(markers ...Marker) *MarkerSet {
	byToken := make(map[string]Marker, len(markers))
	for _, m := range markers {
		tok := strings.ToLower(strings.TrimSpace(m.Token))
		if tok == "" {
			continue
		}
		if m.Role != RoleUser && m.Role != RoleAssistant {
			m.Role = RoleUnknown
		}
		byToken[tok] = Marker{Token: tok, Role: m.Role}
	}

	s := &MarkerSet{markers: make([]Marker, 0, len(byToken))}
	for _, m := range byToken {
		s.markers = append(s.markers, m)
	}
	sort.Slice(s.markers, func(i, j int) bool {
		li := utf8.RuneCountInString(s.markers[i].Token)
		lj := utf8.RuneCountInString(s.markers[j].Token)
		if li != lj {
			return li > lj
		}
		return s.markers[i].Token < s.markers[j].Token
	})
	return s
}

// DefaultMarkerSet returns a set built from DefaultMarkers.
func DefaultMarkerSet() *MarkerSet {
	return NewMarkerSet(DefaultMarkers()...)
}

// With returns a new set containing s's markers plus extra.
func (s *MarkerSet) With(extra ...Marker) *MarkerSet {
	all := make([]Marker, 0, len(s.markers)+len(extra))
	all = append(all, s.markers...)
	all = append(all, extra...)
	return NewMarkerSet(all...)
}

// Markers returns the markers in match order.
func (s *MarkerSet) Markers() []Marker {
	out := make([]Marker, len(s.markers))
	copy(out, s.markers)
	return out
}

// Len returns the number of markers.
func (s *MarkerSet) Len() int {
	return len(s.markers)
}

// markerFile is the on-disk shape of a marker extension file.
type markerFile struct {
	User      []string `yaml:"user"`
	Assistant []string `yaml:"assistant"`
}

// LoadMarkers reads a YAML marker file of the form
//
//	user: [me, "Q"]
//	assistant: [copilot, perplexity]
func LoadMarkers(r io.Reader) ([]Marker, error) {
	var f markerFile
	if err := yaml.NewDecoder(r).Decode(&f); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("decode markers: %w", err)
	}

	var out []Marker
	for _, t := range f.User {
		out = append(out, Marker{Token: t, Role: RoleUser})
	}
	for _, t := range f.Assistant {
		out = append(out, Marker{Token: t, Role: RoleAssistant})
	}
	return out, nil
}

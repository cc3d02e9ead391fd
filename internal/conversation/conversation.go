package conversation

import (
	"encoding/json"
	"strings"
	"unicode/utf8"
)

// Role is the speaker classification of a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleUnknown   Role = "unknown"
)

// Roles lists every role in display order.
var Roles = []Role{RoleUser, RoleAssistant, RoleUnknown}

// DisplayName returns the human-readable role name.
func (r Role) DisplayName() string {
	switch r {
	case RoleUser:
		return "User"
	case RoleAssistant:
		return "Assistant"
	default:
		return "Unknown"
	}
}

// ParseRole maps a role name, in any case, to a Role. Anything unrecognised
// is RoleUnknown.
func ParseRole(s string) Role {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case RoleUser, RoleAssistant:
		return Role(strings.ToLower(strings.TrimSpace(s)))
	}
	return RoleUnknown
}

// Strategy records which segmentation strategy produced a Conversation.
type Strategy string

const (
	StrategyEmpty          Strategy = "empty"
	StrategyExplicitLabels Strategy = "explicit_labels"
	StrategyAlternation    Strategy = "alternation"
	StrategySingleBlock    Strategy = "single_block"
)

// Turn is one contiguous span of conversation text attributed to one speaker.
type Turn struct {
	Index     int    `json:"index"`
	Role      Role   `json:"role"`
	Label     string `json:"label,omitempty"` // Marker text as written, e.g. "ChatGPT"
	Content   string `json:"content"`
	CharCount int    `json:"char_count"`
}

// Stats aggregates a conversation. Computed once at parse time.
type Stats struct {
	TotalTurns int          `json:"total_turns"`
	TotalChars int          `json:"total_chars"`
	ByRole     map[Role]int `json:"by_role"`
}

// Conversation is an ordered, immutable sequence of turns.
type Conversation struct {
	turns    []Turn
	strategy Strategy
	stats    Stats
}

func newConversation(strategy Strategy, blocks []block) *Conversation {
	c := &Conversation{
		strategy: strategy,
		stats: Stats{
			ByRole: map[Role]int{RoleUser: 0, RoleAssistant: 0, RoleUnknown: 0},
		},
	}
	for _, b := range blocks {
		content := trimBlock(b.text)
		if content == "" {
			continue
		}
		t := Turn{
			Index:     len(c.turns) + 1,
			Role:      b.role,
			Label:     b.label,
			Content:   content,
			CharCount: utf8.RuneCountInString(content),
		}
		c.turns = append(c.turns, t)
		c.stats.TotalTurns++
		c.stats.TotalChars += t.CharCount
		c.stats.ByRole[t.Role]++
	}
	if len(c.turns) == 0 {
		c.strategy = StrategyEmpty
	}
	return c
}

// Len returns the number of turns.
func (c *Conversation) Len() int {
	if c == nil {
		return 0
	}
	return len(c.turns)
}

// Turn returns the i-th turn (0-based position), or the zero Turn when i is
// out of range.
func (c *Conversation) Turn(i int) Turn {
	if c == nil || i < 0 || i >= len(c.turns) {
		return Turn{}
	}
	return c.turns[i]
}

// Turns returns a copy of the turn sequence.
func (c *Conversation) Turns() []Turn {
	if c == nil {
		return nil
	}
	out := make([]Turn, len(c.turns))
	copy(out, c.turns)
	return out
}

// Strategy returns the segmentation strategy that produced this conversation.
func (c *Conversation) Strategy() Strategy {
	if c == nil {
		return StrategyEmpty
	}
	return c.strategy
}

// Stats returns a copy of the precomputed statistics.
func (c *Conversation) Stats() Stats {
	if c == nil {
		return Stats{ByRole: map[Role]int{RoleUser: 0, RoleAssistant: 0, RoleUnknown: 0}}
	}
	byRole := make(map[Role]int, len(c.stats.ByRole))
	for r, n := range c.stats.ByRole {
		byRole[r] = n
	}
	return Stats{
		TotalTurns: c.stats.TotalTurns,
		TotalChars: c.stats.TotalChars,
		ByRole:     byRole,
	}
}

// Empty reports whether the conversation has no turns.
func (c *Conversation) Empty() bool {
	return c.Len() == 0
}

func (c *Conversation) MarshalJSON() ([]byte, error) {
	turns := c.Turns()
	if turns == nil {
		turns = []Turn{}
	}
	return json.Marshal(struct {
		Strategy Strategy `json:"strategy"`
		Turns    []Turn   `json:"turns"`
		Stats    Stats    `json:"stats"`
	}{
		Strategy: c.Strategy(),
		Turns:    turns,
		Stats:    c.Stats(),
	})
}

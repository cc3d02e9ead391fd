package render

import (
	"regexp"
	"strings"

	"github.com/dgallion1/chatexport/internal/conversation"
	"github.com/lucasb-eyer/go-colorful"
)

const (
	DefaultUserColor      = "2563EB"
	DefaultAssistantColor = "16A34A"

	unknownAccent = "6B7280"
	unknownShade  = "F3F4F6"

	headerFill   = "4472C4"
	borderColor  = "CCCCCC"
	contentColor = "2D3748"
	titleColor   = "1A1A1A"
	mutedColor   = "666666"

	// shadeMix is how far an accent is blended toward white for backgrounds.
	shadeMix = 0.92
)

var white = colorful.Color{R: 1, G: 1, B: 1}

// Palette is the role colour scheme shared by all renderers.
type Palette struct {
	accent map[conversation.Role]colorful.Color
	shade  map[conversation.Role]colorful.Color
}

// NewPalette builds a palette from role colours. Empty or malformed colours
// fall back to the defaults.
func NewPalette(c RoleColors) Palette {
	user := parseHex(c.User, DefaultUserColor)
	assistant := parseHex(c.Assistant, DefaultAssistantColor)
	unknown := parseHex(unknownAccent, unknownAccent)

	return Palette{
		accent: map[conversation.Role]colorful.Color{
			conversation.RoleUser:      user,
			conversation.RoleAssistant: assistant,
			conversation.RoleUnknown:   unknown,
		},
		shade: map[conversation.Role]colorful.Color{
			conversation.RoleUser:      user.BlendRgb(white, shadeMix),
			conversation.RoleAssistant: assistant.BlendRgb(white, shadeMix),
			conversation.RoleUnknown:   parseHex(unknownShade, unknownShade),
		},
	}
}

var hexColorRe = regexp.MustCompile(`^#?[0-9A-Fa-f]{6}$`)

// ValidColor reports whether s is a six-digit hex colour, with or without '#'.
func ValidColor(s string) bool {
	return hexColorRe.MatchString(strings.TrimSpace(s))
}

// Accent returns the role's marking colour as "RRGGBB".
func (p Palette) Accent(r conversation.Role) string {
	return hexOf(p.accentOf(r))
}

// Shade returns the role's background colour as "RRGGBB".
func (p Palette) Shade(r conversation.Role) string {
	c, ok := p.shade[r]
	if !ok {
		c = p.shade[conversation.RoleUnknown]
	}
	return hexOf(c)
}

// AccentRGB returns the role's marking colour as 0-255 components.
func (p Palette) AccentRGB(r conversation.Role) (int, int, int) {
	cr, cg, cb := p.accentOf(r).RGB255()
	return int(cr), int(cg), int(cb)
}

func (p Palette) accentOf(r conversation.Role) colorful.Color {
	c, ok := p.accent[r]
	if !ok {
		return p.accent[conversation.RoleUnknown]
	}
	return c
}

func parseHex(s, fallback string) colorful.Color {
	if !ValidColor(s) {
		s = fallback
	}
	c, err := colorful.Hex("#" + strings.TrimPrefix(strings.TrimSpace(s), "#"))
	if err != nil {
		return colorful.Color{}
	}
	return c
}

func hexOf(c colorful.Color) string {
	return strings.ToUpper(strings.TrimPrefix(c.Clamped().Hex(), "#"))
}

// rgbOf converts an "RRGGBB" string to 0-255 components.
func rgbOf(hex string) (int, int, int) {
	c := parseHex(hex, "000000")
	r, g, b := c.RGB255()
	return int(r), int(g), int(b)
}

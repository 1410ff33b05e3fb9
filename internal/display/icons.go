package display

import (
	"maps"
	"os"
	"unicode/utf8"

	"github.com/mattn/go-isatty"
)

// Icon is one visual marker with a Unicode rendering and an ASCII fallback
// for terminals that cannot show the real glyph.
type Icon struct {
	Unicode string
	ASCII   string
	Color   Color
}

// IconSystem resolves icon names to renderable strings.
type IconSystem interface {
	GetIcon(name string) Icon
	RenderIcon(name string) string
	RenderIconWithColor(name string, colorSystem ColorSystem) string

	IsUnicodeSupported() bool
	SetUnicodeSupport(enabled bool)
}

type iconSystem struct {
	icons   map[string]Icon
	unicode bool
}

// defaultIcons maps icon names to their Unicode and ASCII renderings.
var defaultIcons = map[string]Icon{
	// Operations
	"snapshot": {Unicode: "\U0001F4E6", ASCII: "[S]", Color: ColorBlue},
	"restore":  {Unicode: "⏪", ASCII: "[R]", Color: ColorMagenta},
	"import":   {Unicode: "\U0001F4E5", ASCII: "[M]", Color: ColorCyan},
	"prune":    {Unicode: "✂", ASCII: "[P]", Color: ColorYellow},
	"schedule": {Unicode: "\U0001F551", ASCII: "[T]", Color: ColorBlue},
	"lock":     {Unicode: "\U0001F512", ASCII: "[L]", Color: ColorYellow},

	// Snapshot lifecycle
	"pending":  {Unicode: "⏳", ASCII: "[..]", Color: ColorYellow},
	"complete": {Unicode: "✅", ASCII: "[OK]", Color: ColorGreen},
	"corrupt":  {Unicode: "\U0001F4A5", ASCII: "[XX]", Color: ColorBrightRed},
	"deleted":  {Unicode: "\U0001F5D1", ASCII: "[DEL]", Color: ColorWhite},

	// Run outcomes
	"degraded": {Unicode: "⚠️", ASCII: "[DEG]", Color: ColorBrightYellow},
	"aborted":  {Unicode: "⛔", ASCII: "[ABT]", Color: ColorRed},

	// Status
	"success": {Unicode: "✅", ASCII: "[OK]", Color: ColorGreen},
	"error":   {Unicode: "❌", ASCII: "[ERR]", Color: ColorRed},
	"warning": {Unicode: "⚠️", ASCII: "[WARN]", Color: ColorYellow},
	"info":    {Unicode: "ℹ️", ASCII: "[INFO]", Color: ColorBlue},

	// Progress
	"loading": {Unicode: "⏳", ASCII: "...", Color: ColorBlue},
	"done":    {Unicode: "✓", ASCII: "OK", Color: ColorGreen},
	"failed":  {Unicode: "✗", ASCII: "FAIL", Color: ColorRed},

	// Navigation
	"arrow-right": {Unicode: "→", ASCII: "->", Color: ColorBlue},
	"bullet":      {Unicode: "•", ASCII: "*", Color: ColorWhite},

	// Section controls
	"expand":   {Unicode: "▶", ASCII: ">", Color: ColorBlue},
	"collapse": {Unicode: "▼", ASCII: "v", Color: ColorBlue},
}

// NewIconSystem builds an icon system seeded with the default set, with
// Unicode support detected from the environment.
func NewIconSystem() IconSystem {
	return &iconSystem{
		icons:   maps.Clone(defaultIcons),
		unicode: detectUnicodeSupport(),
	}
}

// detectUnicodeSupport checks if the terminal supports Unicode characters.
// FORCE_UNICODE has the highest priority, then NO_UNICODE.
func detectUnicodeSupport() bool {
	switch {
	case os.Getenv("FORCE_UNICODE") != "":
		return true
	case os.Getenv("NO_UNICODE") != "":
		return false
	case os.Getenv("LANG") == "C" || os.Getenv("LC_ALL") == "C":
		return false
	}

	if term := os.Getenv("TERM"); term == "dumb" || term == "vt100" {
		return false
	}

	fd := os.Stdout.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// GetIcon looks up an icon by name. Unknown names come back as a question
// mark rather than an error, to keep render call sites unconditional.
func (is *iconSystem) GetIcon(name string) Icon {
	if icon, ok := is.icons[name]; ok {
		return icon
	}
	return Icon{Unicode: "?", ASCII: "?", Color: ColorWhite}
}

// RenderIcon picks the Unicode or ASCII form of the named icon.
func (is *iconSystem) RenderIcon(name string) string {
	icon := is.GetIcon(name)
	if is.unicode && utf8.ValidString(icon.Unicode) {
		return icon.Unicode
	}
	return icon.ASCII
}

// RenderIconWithColor renders the named icon in its own color when the
// color system allows it.
func (is *iconSystem) RenderIconWithColor(name string, colorSystem ColorSystem) string {
	text := is.RenderIcon(name)
	if colorSystem.IsColorSupported() {
		return colorSystem.Colorize(text, is.GetIcon(name).Color)
	}
	return text
}

// IsUnicodeSupported reports whether glyphs render in their Unicode form.
func (is *iconSystem) IsUnicodeSupported() bool { return is.unicode }

// SetUnicodeSupport overrides detection, from configuration or tests.
func (is *iconSystem) SetUnicodeSupport(enabled bool) { is.unicode = enabled }

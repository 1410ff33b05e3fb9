package display

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/muesli/termenv"
)

// Color names a terminal foreground color. ColorReset is the zero value.
type Color int

const (
	ColorReset Color = iota
	ColorBlack
	ColorRed
	ColorGreen
	ColorYellow
	ColorBlue
	ColorMagenta
	ColorCyan
	ColorWhite
	ColorBrightRed
	ColorBrightGreen
	ColorBrightYellow
	ColorBrightBlue
	ColorBrightMagenta
	ColorBrightCyan
	ColorBrightWhite
)

// ColorTheme assigns a color to each message role.
type ColorTheme struct {
	Primary   Color
	Success   Color
	Warning   Color
	Error     Color
	Info      Color
	Muted     Color
	Highlight Color
}

// DefaultColorTheme is the baseline the named themes derive from.
func DefaultColorTheme() ColorTheme {
	return ColorTheme{
		Primary:   ColorBlue,
		Success:   ColorGreen,
		Warning:   ColorYellow,
		Error:     ColorRed,
		Info:      ColorCyan,
		Muted:     ColorWhite,
		Highlight: ColorBrightBlue,
	}
}

// ColorSystem handles color application and terminal detection
type ColorSystem interface {
	Colorize(text string, color Color) string
	Sprintf(color Color, format string, args ...interface{}) string
	IsColorSupported() bool
	SetTheme(theme ColorTheme)
	GetTheme() ColorTheme
}

type colorSystem struct {
	theme          ColorTheme
	colorSupported bool
	profile        termenv.Profile
	colorMap       map[Color]*color.Color
}

// colorAttributes maps the package's Color constants onto ANSI attributes.
var colorAttributes = map[Color]color.Attribute{
	ColorReset:         color.Reset,
	ColorBlack:         color.FgBlack,
	ColorRed:           color.FgRed,
	ColorGreen:         color.FgGreen,
	ColorYellow:        color.FgYellow,
	ColorBlue:          color.FgBlue,
	ColorMagenta:       color.FgMagenta,
	ColorCyan:          color.FgCyan,
	ColorWhite:         color.FgWhite,
	ColorBrightRed:     color.FgHiRed,
	ColorBrightGreen:   color.FgHiGreen,
	ColorBrightYellow:  color.FgHiYellow,
	ColorBrightBlue:    color.FgHiBlue,
	ColorBrightMagenta: color.FgHiMagenta,
	ColorBrightCyan:    color.FgHiCyan,
	ColorBrightWhite:   color.FgHiWhite,
}

// NewColorSystem creates a new color system with terminal detection
func NewColorSystem(theme ColorTheme) ColorSystem {
	cs := &colorSystem{
		theme:          theme,
		colorSupported: detectColorSupport(),
		profile:        termenv.ColorProfile(),
		colorMap:       make(map[Color]*color.Color, len(colorAttributes)),
	}

	for c, attr := range colorAttributes {
		cs.colorMap[c] = color.New(attr)
	}
	if !cs.colorSupported {
		color.NoColor = true
	}

	return cs
}

// detectColorSupport reports whether stdout can take ANSI colors. NO_COLOR
// and TERM=dumb win over terminal detection.
func detectColorSupport() bool {
	fd := os.Stdout.Fd()
	if !isatty.IsTerminal(fd) && !isatty.IsCygwinTerminal(fd) {
		return false
	}

	if os.Getenv("NO_COLOR") != "" || os.Getenv("TERM") == "dumb" {
		return false
	}

	return true
}

// Colorize wraps text in the requested color, or returns it unchanged when
// the terminal takes no colors.
func (cs *colorSystem) Colorize(text string, clr Color) string {
	if !cs.colorSupported {
		return text
	}

	if colorFunc, ok := cs.colorMap[clr]; ok {
		return colorFunc.Sprint(text)
	}

	return text
}

// Sprintf formats and then colorizes in one step.
func (cs *colorSystem) Sprintf(clr Color, format string, args ...interface{}) string {
	return cs.Colorize(fmt.Sprintf(format, args...), clr)
}

func (cs *colorSystem) IsColorSupported() bool {
	return cs.colorSupported
}

func (cs *colorSystem) SetTheme(theme ColorTheme) {
	cs.theme = theme
}

func (cs *colorSystem) GetTheme() ColorTheme {
	return cs.theme
}

// DarkColorTheme brightens the default palette for dark terminals.
func DarkColorTheme() ColorTheme {
	theme := DefaultColorTheme()
	theme.Primary = ColorBrightBlue
	theme.Success = ColorBrightGreen
	theme.Warning = ColorBrightYellow
	theme.Error = ColorBrightRed
	return theme
}

// LightColorTheme keeps the standard palette but picks a muted color
// that stays readable on a white background.
func LightColorTheme() ColorTheme {
	theme := DefaultColorTheme()
	theme.Muted = ColorMagenta
	theme.Highlight = ColorBlue
	return theme
}

// HighContrastColorTheme pushes every role to its brightest variant.
func HighContrastColorTheme() ColorTheme {
	theme := DarkColorTheme()
	theme.Info = ColorBrightCyan
	theme.Highlight = ColorBrightWhite
	return theme
}

// PlainTextTheme is the no-color fallback. ColorReset is the Color zero
// value, so the zero theme is already plain.
func PlainTextTheme() ColorTheme {
	return ColorTheme{}
}

var themesByName = map[string]func() ColorTheme{
	"dark":          DarkColorTheme,
	"light":         LightColorTheme,
	"high-contrast": HighContrastColorTheme,
	"plain":         PlainTextTheme,
	"none":          PlainTextTheme,
}

// GetThemeByName resolves a theme name from configuration, defaulting to
// the dark theme for anything unrecognized.
func GetThemeByName(name string) ColorTheme {
	if theme, ok := themesByName[name]; ok {
		return theme()
	}
	return DarkColorTheme()
}

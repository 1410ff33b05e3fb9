package display

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/term"
)

// TableFormatter builds and renders aligned tabular output.
type TableFormatter interface {
	SetHeaders(headers []string)
	AddRow(row []string)
	AddSeparator()
	SetStyle(style TableStyle)
	SetColumnAlignment(column int, alignment Alignment)
	SetColumnWidth(column int, width int)
	Render() string
	RenderTo(writer io.Writer)
}

// Alignment positions cell content within its column.
type Alignment int

const (
	AlignLeft Alignment = iota // zero value
	AlignCenter
	AlignRight
)

// TableStyle bundles the layout knobs for one table preset.
type TableStyle struct {
	Name        string
	BorderStyle BorderStyle
	Padding     int
	MaxWidth    int // 0 means fit to the terminal
	Responsive  bool

	HeaderSeparator bool
	RowSeparator    bool
}

// BorderStyle holds the characters a bordered table is drawn with. An
// empty Horizontal disables borders entirely.
type BorderStyle struct {
	Horizontal string
	Vertical   string

	TopLeft     string
	TopRight    string
	BottomLeft  string
	BottomRight string

	Cross     string
	TopTee    string
	BottomTee string
	LeftTee   string
	RightTee  string
}

// uniformBorder builds a style whose corners and junctions all share one
// character, which is all an ASCII table needs.
func uniformBorder(corner, horizontal, vertical string) BorderStyle {
	return BorderStyle{
		Horizontal: horizontal,
		Vertical:   vertical,
		TopLeft:    corner, TopRight: corner, BottomLeft: corner, BottomRight: corner,
		Cross:      corner, TopTee: corner, BottomTee: corner, LeftTee: corner, RightTee: corner,
	}
}

var (
	ASCIIBorderStyle = uniformBorder("+", "-", "|")

	RoundedBorderStyle = BorderStyle{
		Horizontal: "─", Vertical: "│",
		TopLeft: "╭", TopRight: "╮", BottomLeft: "╰", BottomRight: "╯",
		Cross: "┼", TopTee: "┬", BottomTee: "┴", LeftTee: "├", RightTee: "┤",
	}

	// NoBorderStyle renders nothing around cells.
	NoBorderStyle = BorderStyle{}
)

var (
	// DefaultTableStyle is a simple ASCII table style
	DefaultTableStyle = TableStyle{
		Name:            "default",
		BorderStyle:     ASCIIBorderStyle,
		Padding:         1,
		Responsive:      true,
		HeaderSeparator: true,
	}

	// RoundedTableStyle uses Unicode box drawing characters
	RoundedTableStyle = TableStyle{
		Name:            "rounded",
		BorderStyle:     RoundedBorderStyle,
		Padding:         1,
		Responsive:      true,
		HeaderSeparator: true,
	}

	// CompactTableStyle is minimal with no borders
	CompactTableStyle = TableStyle{
		Name:        "compact",
		BorderStyle: NoBorderStyle,
		Padding:     1,
		Responsive:  true,
	}

	// GridTableStyle has borders around all cells
	GridTableStyle = TableStyle{
		Name:            "grid",
		BorderStyle:     ASCIIBorderStyle,
		Padding:         1,
		Responsive:      true,
		HeaderSeparator: true,
		RowSeparator:    true,
	}
)

var tableStylesByName = map[string]TableStyle{
	"default": DefaultTableStyle,
	"rounded": RoundedTableStyle,
	"compact": CompactTableStyle,
	"grid":    GridTableStyle,
}

// GetTableStyleByName resolves a style name from configuration, defaulting
// to the ASCII style for anything unrecognized.
func GetTableStyleByName(name string) TableStyle {
	if style, ok := tableStylesByName[name]; ok {
		return style
	}
	return DefaultTableStyle
}

type tableFormatter struct {
	headers    []string
	rows       [][]string
	separators []int // row indices a separator goes before

	alignments   map[int]Alignment
	columnWidths map[int]int

	style         TableStyle
	colorSystem   ColorSystem
	theme         ColorTheme
	terminalWidth int
}

// NewTableFormatter builds a formatter in the default ASCII style.
func NewTableFormatter(colorSystem ColorSystem, theme ColorTheme) TableFormatter {
	return &tableFormatter{
		alignments:    make(map[int]Alignment),
		columnWidths:  make(map[int]int),
		style:         DefaultTableStyle,
		colorSystem:   colorSystem,
		theme:         theme,
		terminalWidth: getTerminalWidth(),
	}
}

func (tf *tableFormatter) SetHeaders(headers []string) {
	tf.headers = headers
}

func (tf *tableFormatter) AddRow(row []string) {
	tf.rows = append(tf.rows, row)
}

// AddSeparator draws a horizontal rule before the next row added.
func (tf *tableFormatter) AddSeparator() {
	tf.separators = append(tf.separators, len(tf.rows))
}

func (tf *tableFormatter) SetStyle(style TableStyle) {
	tf.style = style
}

func (tf *tableFormatter) SetColumnAlignment(column int, alignment Alignment) {
	tf.alignments[column] = alignment
}

// SetColumnWidth pins a column to a content width; style padding is added
// on top of it.
func (tf *tableFormatter) SetColumnWidth(column int, width int) {
	tf.columnWidths[column] = width
}

// Render lays the table out as a single string, borders included.
func (tf *tableFormatter) Render() string {
	if len(tf.headers) == 0 && len(tf.rows) == 0 {
		return ""
	}

	widths := tf.calculateColumnWidths()
	if tf.style.Responsive && tf.style.MaxWidth > 0 {
		widths = tf.adjustForMaxWidth(widths)
	}

	border := tf.style.BorderStyle
	bordered := border.Horizontal != ""

	manualSeps := make(map[int]bool, len(tf.separators))
	for _, idx := range tf.separators {
		manualSeps[idx] = true
	}

	var out strings.Builder
	writeLine := func(line string) {
		out.WriteString(line)
		out.WriteString("\n")
	}

	if bordered {
		writeLine(tf.renderBorder(widths, border.TopLeft, border.TopTee, border.TopRight))
	}

	if len(tf.headers) > 0 {
		writeLine(tf.renderRow(tf.headers, widths, true))
		if tf.style.HeaderSeparator && bordered {
			writeLine(tf.renderBorder(widths, border.LeftTee, border.Cross, border.RightTee))
		}
	}

	for i, row := range tf.rows {
		writeLine(tf.renderRow(row, widths, false))

		last := i == len(tf.rows)-1
		if bordered && !last && (tf.style.RowSeparator || manualSeps[i+1]) {
			writeLine(tf.renderBorder(widths, border.LeftTee, border.Cross, border.RightTee))
		}
	}

	if bordered {
		writeLine(tf.renderBorder(widths, border.BottomLeft, border.BottomTee, border.BottomRight))
	}

	return out.String()
}

// RenderTo writes the rendered table to writer.
func (tf *tableFormatter) RenderTo(writer io.Writer) {
	fmt.Fprint(writer, tf.Render())
}

// calculateColumnWidths sizes each column to its widest cell, then lets
// manual widths override and adds style padding.
func (tf *tableFormatter) calculateColumnWidths() []int {
	numCols := tf.getColumnCount()
	if numCols == 0 {
		return nil
	}

	widths := make([]int, numCols)
	measure := func(row []string) {
		for i, cell := range row {
			if i >= numCols {
				continue
			}
			if w := utf8.RuneCountInString(cell); w > widths[i] {
				widths[i] = w
			}
		}
	}

	measure(tf.headers)
	for _, row := range tf.rows {
		measure(row)
	}

	for col, width := range tf.columnWidths {
		if col < numCols && width > 0 {
			widths[col] = width
		}
	}

	for i := range widths {
		widths[i] += tf.style.Padding * 2
	}

	return widths
}

// adjustForMaxWidth shrinks columns proportionally when the table would
// overflow the maximum width, keeping a small minimum per column.
func (tf *tableFormatter) adjustForMaxWidth(widths []int) []int {
	maxWidth := tf.style.MaxWidth
	if maxWidth == 0 {
		maxWidth = tf.terminalWidth
	}
	if maxWidth <= 0 {
		return widths
	}

	totalWidth := tf.calculateTotalWidth(widths)
	if totalWidth <= maxWidth {
		return widths
	}

	reduction := float64(totalWidth-maxWidth) / float64(len(widths))
	minWidth := tf.style.Padding*2 + 3

	for i := range widths {
		shrunk := int(float64(widths[i]) - reduction)
		if shrunk < minWidth {
			shrunk = minWidth
		}
		widths[i] = shrunk
	}

	return widths
}

func (tf *tableFormatter) calculateTotalWidth(widths []int) int {
	total := 0
	for _, width := range widths {
		total += width
	}

	// One vertical border per column plus the closing one
	if tf.style.BorderStyle.Vertical != "" {
		total += len(widths) + 1
	}

	return total
}

func (tf *tableFormatter) getColumnCount() int {
	maxCols := len(tf.headers)
	for _, row := range tf.rows {
		if len(row) > maxCols {
			maxCols = len(row)
		}
	}
	return maxCols
}

// renderBorder draws one horizontal rule using the given corner and
// junction characters.
func (tf *tableFormatter) renderBorder(widths []int, left, junction, right string) string {
	horizontal := tf.style.BorderStyle.Horizontal
	if horizontal == "" {
		return ""
	}

	segments := make([]string, len(widths))
	for i, width := range widths {
		segments[i] = strings.Repeat(horizontal, width)
	}

	return left + strings.Join(segments, junction) + right
}

func (tf *tableFormatter) renderRow(row []string, widths []int, isHeader bool) string {
	vertical := tf.style.BorderStyle.Vertical

	var out strings.Builder
	out.WriteString(vertical)

	for i, width := range widths {
		var cell string
		if i < len(row) {
			cell = row[i]
		}

		out.WriteString(tf.formatCell(cell, width, tf.alignments[i], isHeader))
		out.WriteString(vertical)
	}

	return out.String()
}

// formatCell truncates, colorizes, aligns, and pads one cell to width.
func (tf *tableFormatter) formatCell(content string, width int, alignment Alignment, isHeader bool) string {
	contentWidth := width - tf.style.Padding*2
	if contentWidth < 0 {
		contentWidth = 0
	}

	content = truncateCell(content, contentWidth)

	// Measure before colorizing so ANSI escapes don't count against the
	// padding budget.
	gap := contentWidth - utf8.RuneCountInString(content)

	if isHeader && tf.colorSystem != nil && tf.colorSystem.IsColorSupported() {
		content = tf.colorSystem.Colorize(content, tf.theme.Primary)
	}
	var leftPad, rightPad int
	switch alignment {
	case AlignCenter:
		leftPad = gap / 2
		rightPad = gap - leftPad
	case AlignRight:
		leftPad = gap
	default:
		rightPad = gap
	}

	leftPad += tf.style.Padding
	rightPad += tf.style.Padding

	return strings.Repeat(" ", leftPad) + content + strings.Repeat(" ", rightPad)
}

// truncateCell cuts overlong content, with an ellipsis when there is room
// for one.
func truncateCell(content string, width int) string {
	if utf8.RuneCountInString(content) <= width {
		return content
	}

	runes := []rune(content)
	if width > 3 {
		return string(runes[:width-3]) + "..."
	}
	return string(runes[:width])
}

func getTerminalWidth() int {
	width, _, err := term.GetSize(0)
	if err != nil {
		return 80
	}
	return width
}

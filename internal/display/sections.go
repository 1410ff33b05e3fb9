package display

import (
	"fmt"
	"io"
	"sort"
	"strings"
)

// Section is one node of structured output. Sections nest, carry
// arbitrary content, and can fold away behind their header.
type Section struct {
	Title       string
	Level       int
	Content     interface{}
	Statistics  *SectionStatistics
	Subsections []*Section
	Collapsible bool
	Collapsed   bool
}

// NewSection creates an empty top-level section.
func NewSection(title string) *Section {
	return &Section{
		Title:       title,
		Subsections: make([]*Section, 0),
	}
}

// AddSubsection nests a section one level below this one.
func (s *Section) AddSubsection(subsection *Section) {
	subsection.Level = s.Level + 1
	s.Subsections = append(s.Subsections, subsection)
}

// SetContent assigns the section body. Strings, string slices, and maps
// each render with their own layout.
func (s *Section) SetContent(content interface{}) {
	s.Content = content
}

// SetCollapsible marks the section as foldable.
func (s *Section) SetCollapsible(collapsible bool) {
	s.Collapsible = collapsible
}

// SetCollapsed folds or unfolds the section.
func (s *Section) SetCollapsed(collapsed bool) {
	s.Collapsed = collapsed
}

// SetStatistics attaches a summary line to the section.
func (s *Section) SetStatistics(stats *SectionStatistics) {
	s.Statistics = stats
}

// SectionStatistics summarizes a section in one bracketed line.
type SectionStatistics struct {
	ItemCount    int
	SuccessCount int
	WarningCount int
	ErrorCount   int
	TotalSize    int64
	CustomStats  map[string]interface{}
}

// NewSectionStatistics creates an empty statistics block.
func NewSectionStatistics() *SectionStatistics {
	return &SectionStatistics{
		CustomStats: make(map[string]interface{}),
	}
}

// AddCustomStat adds a label/value pair to the summary line.
func (ss *SectionStatistics) AddCustomStat(key string, value interface{}) {
	ss.CustomStats[key] = value
}

// SectionFormatter renders section trees with depth-dependent headers.
type SectionFormatter struct {
	colorSystem ColorSystem
	iconSystem  IconSystem
	theme       ColorTheme
	writer      io.Writer
	maxWidth    int
	indentSize  int
}

// NewSectionFormatter builds a formatter with a 120-column rule cap and
// two-space indents.
func NewSectionFormatter(colorSystem ColorSystem, iconSystem IconSystem, theme ColorTheme, writer io.Writer) *SectionFormatter {
	return &SectionFormatter{
		colorSystem: colorSystem,
		iconSystem:  iconSystem,
		theme:       theme,
		writer:      writer,
		maxWidth:    120,
		indentSize:  2,
	}
}

// SetMaxWidth caps the header rule length.
func (sf *SectionFormatter) SetMaxWidth(width int) {
	sf.maxWidth = width
}

// SetIndentSize changes the per-level indentation.
func (sf *SectionFormatter) SetIndentSize(size int) {
	sf.indentSize = size
}

// tint colorizes text when the terminal supports it.
func (sf *SectionFormatter) tint(text string, tone Color) string {
	if sf.colorSystem.IsColorSupported() {
		return sf.colorSystem.Colorize(text, tone)
	}
	return text
}

// RenderSection renders a section with all its subsections
func (sf *SectionFormatter) RenderSection(section *Section) {
	sf.renderSectionRecursive(section, 0)
}

// RenderSections renders multiple sections separated by blank lines
func (sf *SectionFormatter) RenderSections(sections []*Section) {
	for i, section := range sections {
		sf.renderSectionRecursive(section, 0)

		if i < len(sections)-1 {
			fmt.Fprintln(sf.writer)
		}
	}
}

func (sf *SectionFormatter) renderSectionRecursive(section *Section, depth int) {
	indent := strings.Repeat(" ", depth*sf.indentSize)

	sf.renderSectionHeader(section, indent, depth)

	if section.Collapsible && section.Collapsed {
		return
	}

	if section.Statistics != nil {
		sf.renderSectionStatistics(section.Statistics, indent+"  ")
	}
	if section.Content != nil {
		sf.renderSectionContent(section.Content, indent+"  ")
	}

	for _, subsection := range section.Subsections {
		sf.renderSectionRecursive(subsection, depth+1)
	}
}

// renderSectionHeader styles the header by depth: double-rule for top-level
// sections, a dashed rule for the second level, a dot marker below that.
func (sf *SectionFormatter) renderSectionHeader(section *Section, indent string, depth int) {
	collapseIndicator := ""
	if section.Collapsible {
		icon := "collapse"
		if section.Collapsed {
			icon = "expand"
		}
		collapseIndicator = sf.iconSystem.RenderIcon(icon) + " "
	}

	title := collapseIndicator + section.Title

	switch depth {
	case 0:
		ruleLength := len(section.Title) + len(collapseIndicator) + 4
		if ruleLength > sf.maxWidth {
			ruleLength = sf.maxWidth
		}
		rule := strings.Repeat("=", ruleLength)

		fmt.Fprintf(sf.writer, "%s%s\n", indent, rule)
		fmt.Fprintf(sf.writer, "%s  %s  \n", indent, sf.tint(title, sf.theme.Primary))
		fmt.Fprintf(sf.writer, "%s%s\n", indent, rule)

	case 1:
		fmt.Fprintf(sf.writer, "%s--- %s\n", indent, sf.tint(title, sf.theme.Highlight))

	default:
		fmt.Fprintf(sf.writer, "%s· %s\n", indent, sf.tint(title, sf.theme.Info))
	}
}

// statPart builds one colored "icon label: count" fragment for the stats line.
func (sf *SectionFormatter) statPart(icon, label string, count int, tone Color) string {
	text := fmt.Sprintf("%s: %d", label, count)
	if icon != "" {
		text = fmt.Sprintf("%s %s", sf.iconSystem.RenderIcon(icon), text)
	}
	return sf.tint(text, tone)
}

func (sf *SectionFormatter) renderSectionStatistics(stats *SectionStatistics, indent string) {
	if stats.ItemCount == 0 && len(stats.CustomStats) == 0 {
		return
	}

	statParts := []string{}

	if stats.ItemCount > 0 {
		statParts = append(statParts, sf.statPart("", "Items", stats.ItemCount, sf.theme.Info))
	}
	if stats.SuccessCount > 0 {
		statParts = append(statParts, sf.statPart("success", "Success", stats.SuccessCount, sf.theme.Success))
	}
	if stats.WarningCount > 0 {
		statParts = append(statParts, sf.statPart("warning", "Warnings", stats.WarningCount, sf.theme.Warning))
	}
	if stats.ErrorCount > 0 {
		statParts = append(statParts, sf.statPart("error", "Errors", stats.ErrorCount, sf.theme.Error))
	}
	if stats.TotalSize > 0 {
		statParts = append(statParts, sf.tint(fmt.Sprintf("Size: %s", formatBytes(stats.TotalSize)), sf.theme.Muted))
	}

	// Sorted so repeated renders of the same stats produce identical output.
	customKeys := make([]string, 0, len(stats.CustomStats))
	for key := range stats.CustomStats {
		customKeys = append(customKeys, key)
	}
	sort.Strings(customKeys)
	for _, key := range customKeys {
		statParts = append(statParts, sf.tint(fmt.Sprintf("%s: %v", key, stats.CustomStats[key]), sf.theme.Info))
	}

	if len(statParts) > 0 {
		fmt.Fprintf(sf.writer, "%s[%s]\n", indent, strings.Join(statParts, " | "))
	}
}

func (sf *SectionFormatter) renderSectionContent(content interface{}, indent string) {
	switch v := content.(type) {
	case string:
		for _, line := range strings.Split(v, "\n") {
			if strings.TrimSpace(line) != "" {
				fmt.Fprintf(sf.writer, "%s%s\n", indent, line)
			}
		}

	case []string:
		bullet := sf.iconSystem.RenderIcon("bullet")
		for _, item := range v {
			fmt.Fprintf(sf.writer, "%s%s %s\n", indent, bullet, item)
		}

	case map[string]interface{}:
		keys := make([]string, 0, len(v))
		for key := range v {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			fmt.Fprintf(sf.writer, "%s%s: %v\n", indent, sf.tint(key, sf.theme.Highlight), v[key])
		}

	default:
		fmt.Fprintf(sf.writer, "%s%v\n", indent, content)
	}
}

// formatBytes formats byte size in human-readable form
func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}

	value, exp := float64(bytes), 0
	for value >= unit && exp < len("KMGTPE") {
		value /= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", value, "KMGTPE"[exp-1])
}

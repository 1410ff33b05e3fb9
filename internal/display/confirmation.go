package display

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// ConfirmationDialog prompts the user before an operation proceeds,
// with keyed options, optional warnings, and on-request detail lines.
type ConfirmationDialog struct {
	Title   string
	Message string
	Details []string

	Options       []ConfirmationOption
	DefaultOption int

	IsDestructive  bool
	ShowWarning    bool
	WarningMessage string

	colorSystem ColorSystem
	iconSystem  IconSystem
	theme       ColorTheme
	writer      io.Writer
	reader      *bufio.Reader
}

// ConfirmationOption is one selectable answer. Cancel options resolve
// to a negative result without being an error.
type ConfirmationOption struct {
	Key         string
	Label       string
	Description string
	IsCancel    bool
	IsDefault   bool
}

// ConfirmationResult reports which option the user picked.
type ConfirmationResult struct {
	SelectedKey string
	Confirmed   bool
	Cancelled   bool
}

func optionResult(option ConfirmationOption) *ConfirmationResult {
	return &ConfirmationResult{
		SelectedKey: option.Key,
		Confirmed:   !option.IsCancel,
		Cancelled:   option.IsCancel,
	}
}

// NewConfirmationDialog creates a confirmation dialog reading from stdin
func NewConfirmationDialog(colorSystem ColorSystem, iconSystem IconSystem, theme ColorTheme, writer io.Writer) *ConfirmationDialog {
	cd := &ConfirmationDialog{
		colorSystem: colorSystem,
		iconSystem:  iconSystem,
		theme:       theme,
		writer:      writer,
	}
	cd.reader = bufio.NewReader(os.Stdin)
	return cd
}

// SetInput replaces the input source, used when stdin is not the terminal
func (cd *ConfirmationDialog) SetInput(r io.Reader) *ConfirmationDialog {
	cd.reader = bufio.NewReader(r)
	return cd
}

// SetTitle names the dialog in its header line
func (cd *ConfirmationDialog) SetTitle(title string) *ConfirmationDialog {
	cd.Title = title
	return cd
}

// SetMessage sets the body text shown above the option list
func (cd *ConfirmationDialog) SetMessage(message string) *ConfirmationDialog {
	cd.Message = message
	return cd
}

func (cd *ConfirmationDialog) appendOption(option ConfirmationOption) *ConfirmationDialog {
	cd.Options = append(cd.Options, option)
	if option.IsDefault {
		cd.DefaultOption = len(cd.Options) - 1
	}
	return cd
}

// AddOption adds a confirmation option. Keys "n" and "no" are treated
// as cancel options.
func (cd *ConfirmationDialog) AddOption(key, label, description string, isDefault bool) *ConfirmationDialog {
	lower := strings.ToLower(key)
	return cd.appendOption(ConfirmationOption{
		Key:         key,
		Label:       label,
		Description: description,
		IsDefault:   isDefault,
		IsCancel:    lower == "n" || lower == "no",
	})
}

// AddCancelOption adds an option that resolves to a cancelled result
// regardless of its key.
func (cd *ConfirmationDialog) AddCancelOption(key, label, description string, isDefault bool) *ConfirmationDialog {
	option := ConfirmationOption{
		Key:         key,
		Label:       label,
		Description: description,
		IsDefault:   isDefault,
	}
	option.IsCancel = true
	return cd.appendOption(option)
}

// SetDestructive switches the destructive-operation banner on or off
func (cd *ConfirmationDialog) SetDestructive(isDestructive bool) *ConfirmationDialog {
	cd.IsDestructive = isDestructive
	return cd
}

// SetWarning attaches a warning line rendered above the message
func (cd *ConfirmationDialog) SetWarning(message string) *ConfirmationDialog {
	cd.WarningMessage = message
	cd.ShowWarning = true
	return cd
}

// AddDetails appends detail lines that "d" reveals at the prompt
func (cd *ConfirmationDialog) AddDetails(details ...string) *ConfirmationDialog {
	cd.Details = append(cd.Details, details...)
	return cd
}

// Show displays the dialog and loops until the input matches an option
func (cd *ConfirmationDialog) Show() (*ConfirmationResult, error) {
	for {
		cd.render()

		input, err := cd.readInput()
		if err != nil {
			return nil, fmt.Errorf("failed to read input: %w", err)
		}

		if result := cd.parseInput(input); result != nil {
			return result, nil
		}

		cd.iconLine("error", "Invalid input. Please try again.", cd.theme.Error)
		fmt.Fprintln(cd.writer)
	}
}

// tint colorizes text when the terminal supports it.
func (cd *ConfirmationDialog) tint(text string, tone Color) string {
	if cd.colorSystem.IsColorSupported() {
		return cd.colorSystem.Colorize(text, tone)
	}
	return text
}

// iconLine prints an icon-prefixed line in the given tone.
func (cd *ConfirmationDialog) iconLine(icon, text string, tone Color) {
	line := fmt.Sprintf("%s %s", cd.iconSystem.RenderIcon(icon), text)
	fmt.Fprintln(cd.writer, cd.tint(line, tone))
}

func (cd *ConfirmationDialog) render() {
	fmt.Fprintln(cd.writer)

	if cd.Title != "" {
		cd.iconLine("info", cd.Title, cd.theme.Primary)
		fmt.Fprintln(cd.writer, strings.Repeat("─", len(cd.Title)+4))
		fmt.Fprintln(cd.writer)
	}

	if cd.IsDestructive {
		cd.iconLine("warning", "DESTRUCTIVE OPERATION", cd.theme.Error)
		fmt.Fprintln(cd.writer, "This operation may result in data loss. Please review carefully.")
		fmt.Fprintln(cd.writer)
	}

	if cd.ShowWarning && cd.WarningMessage != "" {
		cd.iconLine("warning", cd.WarningMessage, cd.theme.Warning)
		fmt.Fprintln(cd.writer)
	}

	if cd.Message != "" {
		fmt.Fprintln(cd.writer, cd.Message)
		fmt.Fprintln(cd.writer)
	}

	cd.renderOptions()
	cd.renderPrompt()
}

func (cd *ConfirmationDialog) renderOptions() {
	if len(cd.Options) == 0 {
		return
	}

	fmt.Fprintln(cd.writer, "Options:")
	for _, option := range cd.Options {
		cd.renderOption(option)
	}

	if len(cd.Details) > 0 {
		cd.renderOption(ConfirmationOption{
			Key:         "d",
			Label:       "details",
			Description: "Show detailed information",
		})
	}

	fmt.Fprintln(cd.writer)
}

func (cd *ConfirmationDialog) renderOption(option ConfirmationOption) {
	keyDisplay := fmt.Sprintf("[%s]", option.Key)

	if option.IsDefault {
		if cd.colorSystem.IsColorSupported() {
			keyDisplay = cd.colorSystem.Colorize(keyDisplay, cd.theme.Highlight)
		} else {
			keyDisplay += " (default)"
		}
	}

	tone := cd.theme.Info
	switch {
	case option.IsCancel:
		tone = cd.theme.Muted
	case option.IsDefault:
		tone = cd.theme.Success
	}

	fmt.Fprintln(cd.writer, cd.tint(fmt.Sprintf("  %s %s", keyDisplay, option.Label), tone))

	if option.Description != "" {
		fmt.Fprintln(cd.writer, cd.tint("      "+option.Description, cd.theme.Muted))
	}
}

// renderPrompt prints the key list, default key uppercased, e.g. "Choose [y/N/d]: "
func (cd *ConfirmationDialog) renderPrompt() {
	keys := make([]string, len(cd.Options))
	for i, option := range cd.Options {
		keys[i] = option.Key
		if option.IsDefault {
			keys[i] = strings.ToUpper(option.Key)
		}
	}

	if len(cd.Details) > 0 {
		keys = append(keys, "d")
	}

	prompt := fmt.Sprintf("Choose [%s]: ", strings.Join(keys, "/"))
	fmt.Fprint(cd.writer, cd.tint(prompt, cd.theme.Primary))
}

func (cd *ConfirmationDialog) readInput() (string, error) {
	input, err := cd.reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(input), nil
}

// parseInput returns nil when the input did not resolve to an option,
// which makes Show re-prompt.
func (cd *ConfirmationDialog) parseInput(input string) *ConfirmationResult {
	input = strings.ToLower(strings.TrimSpace(input))

	if input == "" && cd.DefaultOption >= 0 && cd.DefaultOption < len(cd.Options) {
		return optionResult(cd.Options[cd.DefaultOption])
	}

	if (input == "d" || input == "details") && len(cd.Details) > 0 {
		cd.showDetails()
		return nil
	}

	for _, option := range cd.Options {
		if strings.ToLower(option.Key) == input || strings.ToLower(option.Label) == input {
			return optionResult(option)
		}
	}

	return nil
}

func (cd *ConfirmationDialog) showDetails() {
	rule := strings.Repeat("─", 30)

	fmt.Fprintln(cd.writer)
	cd.iconLine("info", "Detailed Information", cd.theme.Info)
	fmt.Fprintln(cd.writer, rule)

	for i, detail := range cd.Details {
		fmt.Fprintf(cd.writer, "%d. %s\n", i+1, detail)
	}

	fmt.Fprintln(cd.writer, rule)
	fmt.Fprintln(cd.writer)
}

// ConfirmationBuilder assembles a ConfirmationDialog through a fluent
// chain, ending in Build or Show.
type ConfirmationBuilder struct {
	dialog *ConfirmationDialog
}

// NewConfirmationBuilder starts a builder around a fresh dialog
func NewConfirmationBuilder(colorSystem ColorSystem, iconSystem IconSystem, theme ColorTheme, writer io.Writer) *ConfirmationBuilder {
	return &ConfirmationBuilder{
		dialog: NewConfirmationDialog(colorSystem, iconSystem, theme, writer),
	}
}

// Title names the dialog
func (cb *ConfirmationBuilder) Title(title string) *ConfirmationBuilder {
	cb.dialog.SetTitle(title)
	return cb
}

// Message sets the dialog body text
func (cb *ConfirmationBuilder) Message(message string) *ConfirmationBuilder {
	cb.dialog.SetMessage(message)
	return cb
}

func (cb *ConfirmationBuilder) yesNo(defaultYes bool) *ConfirmationBuilder {
	cb.dialog.AddOption("y", "yes", "Continue with the operation", defaultYes)
	cb.dialog.AddOption("n", "no", "Abort without making changes", !defaultYes)
	return cb
}

// YesNo adds the standard yes/no pair, defaulting to no
func (cb *ConfirmationBuilder) YesNo() *ConfirmationBuilder {
	return cb.yesNo(false)
}

// YesNoDefault adds the standard yes/no pair, defaulting to yes
func (cb *ConfirmationBuilder) YesNoDefault() *ConfirmationBuilder {
	return cb.yesNo(true)
}

// Option adds one choice under the given key
func (cb *ConfirmationBuilder) Option(key, label, description string, isDefault bool) *ConfirmationBuilder {
	cb.dialog.AddOption(key, label, description, isDefault)
	return cb
}

// CancelOption adds a custom option that cancels
func (cb *ConfirmationBuilder) CancelOption(key, label, description string, isDefault bool) *ConfirmationBuilder {
	cb.dialog.AddCancelOption(key, label, description, isDefault)
	return cb
}

// Input replaces the dialog's input source
func (cb *ConfirmationBuilder) Input(r io.Reader) *ConfirmationBuilder {
	cb.dialog.SetInput(r)
	return cb
}

// Destructive turns on the data-loss banner
func (cb *ConfirmationBuilder) Destructive() *ConfirmationBuilder {
	cb.dialog.SetDestructive(true)
	return cb
}

// Warning attaches a warning line
func (cb *ConfirmationBuilder) Warning(message string) *ConfirmationBuilder {
	cb.dialog.SetWarning(message)
	return cb
}

// Details attaches detail lines
func (cb *ConfirmationBuilder) Details(details ...string) *ConfirmationBuilder {
	cb.dialog.AddDetails(details...)
	return cb
}

// Build hands back the assembled dialog without showing it
func (cb *ConfirmationBuilder) Build() *ConfirmationDialog {
	return cb.dialog
}

// Show builds the dialog and runs it immediately
func (cb *ConfirmationBuilder) Show() (*ConfirmationResult, error) {
	return cb.dialog.Show()
}

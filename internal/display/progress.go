package display

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

// SpinnerHandle identifies a running spinner to the display service.
type SpinnerHandle interface {
	ID() string
	IsActive() bool
}

// SpinnerStyle defines the frame sequence and speed of a spinner.
type SpinnerStyle struct {
	Frames []string
	Delay  int // milliseconds between frames
}

// DefaultSpinnerStyles provides common spinner styles
var DefaultSpinnerStyles = map[string]SpinnerStyle{
	"dots": {
		Frames: []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"},
		Delay:  80,
	},
	"line": {
		Frames: []string{"-", "\\", "|", "/"},
		Delay:  100,
	},
}

// spinner implements SpinnerHandle
type spinner struct {
	id      string
	message string
	style   SpinnerStyle

	writer   io.Writer
	colorSys ColorSystem
	theme    ColorTheme

	mu     sync.RWMutex
	active bool
	stopCh chan struct{}
	doneCh chan struct{}
}

func (s *spinner) ID() string {
	return s.id
}

func (s *spinner) IsActive() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}

func (s *spinner) start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active {
		return
	}

	s.active = true
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	go s.animate()
}

// stop terminates the animation and waits for the goroutine to exit
// before printing the final message, so output is never interleaved.
func (s *spinner) stop(finalMessage string) {
	s.mu.Lock()
	if !s.active {
		s.mu.Unlock()
		return
	}
	s.active = false
	close(s.stopCh)
	s.mu.Unlock()

	<-s.doneCh

	s.clearLine()
	if finalMessage != "" {
		fmt.Fprintln(s.writer, finalMessage)
	}
}

func (s *spinner) updateMessage(message string) {
	s.mu.Lock()
	s.message = message
	s.mu.Unlock()
}

func (s *spinner) animate() {
	defer close(s.doneCh)

	ticker := time.NewTicker(time.Duration(s.style.Delay) * time.Millisecond)
	defer ticker.Stop()

	for frameIndex := 0; ; frameIndex++ {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
		}

		s.mu.RLock()
		if !s.active {
			s.mu.RUnlock()
			return
		}
		frame := s.style.Frames[frameIndex%len(s.style.Frames)]
		message := s.message
		s.mu.RUnlock()

		s.clearLine()
		fmt.Fprint(s.writer, s.formatFrame(frame, message))
	}
}

func (s *spinner) formatFrame(frame, message string) string {
	if s.colorSys != nil && s.colorSys.IsColorSupported() {
		frame = s.colorSys.Colorize(frame, s.theme.Primary)
	}
	return fmt.Sprintf("\r%s %s", frame, message)
}

func (s *spinner) clearLine() {
	fmt.Fprint(s.writer, "\r\033[K")
}

// ProgressBar renders a single-line bar with counts and percentage
type ProgressBar struct {
	mu      sync.RWMutex
	current int
	total   int
	message string

	width       int
	showPercent bool

	writer   io.Writer
	colorSys ColorSystem
	theme    ColorTheme
}

// NewProgressBar creates a bar of the default width with percentages on.
func NewProgressBar(total int, message string, writer io.Writer, colorSys ColorSystem, theme ColorTheme) *ProgressBar {
	return &ProgressBar{
		total:       total,
		message:     message,
		width:       40,
		showPercent: true,
		writer:      writer,
		colorSys:    colorSys,
		theme:       theme,
	}
}

// Update sets the progress bar's current value
func (pb *ProgressBar) Update(current int, message string) {
	pb.mu.Lock()
	if message != "" {
		pb.message = message
	}
	pb.current = current
	pb.mu.Unlock()

	pb.render()
}

// Increment advances the progress bar by 1
func (pb *ProgressBar) Increment(message string) {
	pb.mu.Lock()
	if message != "" {
		pb.message = message
	}
	pb.current++
	pb.mu.Unlock()

	pb.render()
}

// Finish fills the bar, prints the final message, and ends the line.
func (pb *ProgressBar) Finish(finalMessage string) {
	pb.mu.Lock()
	if finalMessage != "" {
		pb.message = finalMessage
	}
	pb.current = pb.total
	pb.mu.Unlock()

	pb.render()
	fmt.Fprintln(pb.writer)
}

func (pb *ProgressBar) render() {
	pb.mu.RLock()
	current, total, message := pb.current, pb.total, pb.message
	width, showPercent := pb.width, pb.showPercent
	pb.mu.RUnlock()

	// A zero-total bar has nothing meaningful to draw
	if total <= 0 {
		return
	}

	ratio := float64(current) / float64(total)
	if ratio > 1 {
		ratio = 1
	}

	filledWidth := int(float64(width) * ratio)
	filled := strings.Repeat("█", filledWidth)
	empty := strings.Repeat("░", width-filledWidth)

	if pb.colorSys != nil && pb.colorSys.IsColorSupported() {
		filled = pb.colorSys.Colorize(filled, pb.theme.Success)
		empty = pb.colorSys.Colorize(empty, pb.theme.Muted)
	}

	bar := fmt.Sprintf("[%s%s]", filled, empty)

	if showPercent {
		fmt.Fprintf(pb.writer, "\r%s %6.1f%% (%d/%d) %s", bar, ratio*100, current, total, message)
	} else {
		fmt.Fprintf(pb.writer, "\r%s (%d/%d) %s", bar, current, total, message)
	}
}

// SetWidth changes how many cells the bar occupies.
func (pb *ProgressBar) SetWidth(width int) {
	pb.mu.Lock()
	pb.width = width
	pb.mu.Unlock()
}

// SetShowPercent toggles the percentage column.
func (pb *ProgressBar) SetShowPercent(show bool) {
	pb.mu.Lock()
	pb.showPercent = show
	pb.mu.Unlock()
}

// spinnerManager tracks live spinners by handle ID
type spinnerManager struct {
	mu       sync.RWMutex
	spinners map[string]*spinner
	nextID   int
}

func newSpinnerManager() *spinnerManager {
	return &spinnerManager{
		spinners: make(map[string]*spinner),
	}
}

func (sm *spinnerManager) createSpinner(message string, style SpinnerStyle, writer io.Writer, colorSys ColorSystem, theme ColorTheme) *spinner {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	sm.nextID++
	s := &spinner{
		id:       fmt.Sprintf("spinner_%d", sm.nextID),
		message:  message,
		style:    style,
		writer:   writer,
		colorSys: colorSys,
		theme:    theme,
	}
	sm.spinners[s.id] = s

	return s
}

func (sm *spinnerManager) getSpinner(handle SpinnerHandle) *spinner {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.spinners[handle.ID()]
}

func (sm *spinnerManager) removeSpinner(handle SpinnerHandle) {
	sm.mu.Lock()
	delete(sm.spinners, handle.ID())
	sm.mu.Unlock()
}

// ProgressTracker reports progress across the named phases of a
// multi-step operation, e.g. the dump/compress/encrypt/store stages
// of a snapshot or the parse/insert stages of an import.
type ProgressTracker struct {
	mu           sync.RWMutex
	phases       []ProgressPhase
	currentPhase int

	writer   io.Writer
	colorSys ColorSystem
	theme    ColorTheme
}

// ProgressPhase is one named stage with its own counters.
type ProgressPhase struct {
	Name      string
	Message   string
	Current   int
	Total     int
	Completed bool
}

// NewProgressTracker builds a tracker over the named phases, all pending.
func NewProgressTracker(phases []string, writer io.Writer, colorSys ColorSystem, theme ColorTheme) *ProgressTracker {
	progressPhases := make([]ProgressPhase, 0, len(phases))
	for _, name := range phases {
		progressPhases = append(progressPhases, ProgressPhase{Name: name})
	}

	return &ProgressTracker{
		phases:   progressPhases,
		writer:   writer,
		colorSys: colorSys,
		theme:    theme,
	}
}

// phase returns the phase at index, or nil when the index is out of
// range. Callers hold pt.mu.
func (pt *ProgressTracker) phase(index int) *ProgressPhase {
	if index < 0 || index >= len(pt.phases) {
		return nil
	}
	return &pt.phases[index]
}

// completedPhases counts finished phases. Callers hold pt.mu.
func (pt *ProgressTracker) completedPhases() int {
	n := 0
	for i := range pt.phases {
		if pt.phases[i].Completed {
			n++
		}
	}
	return n
}

// StartPhase makes phaseIndex current and resets its counters. An
// out-of-range index leaves the tracker untouched.
func (pt *ProgressTracker) StartPhase(phaseIndex int, total int, message string) {
	pt.mu.Lock()
	defer pt.mu.Unlock()

	if phase := pt.phase(phaseIndex); phase != nil {
		pt.currentPhase = phaseIndex
		*phase = ProgressPhase{Name: phase.Name, Total: total, Message: message}
	}

	pt.render()
}

// UpdatePhase advances the counters of the current phase.
func (pt *ProgressTracker) UpdatePhase(current int, message string) {
	pt.mu.Lock()
	defer pt.mu.Unlock()

	if phase := pt.phase(pt.currentPhase); phase != nil {
		phase.Current = current
		if message != "" {
			phase.Message = message
		}
	}

	pt.render()
}

// CompletePhase fills and closes the current phase.
func (pt *ProgressTracker) CompletePhase(finalMessage string) {
	pt.mu.Lock()
	defer pt.mu.Unlock()

	if phase := pt.phase(pt.currentPhase); phase != nil {
		phase.Completed = true
		phase.Current = phase.Total
		if finalMessage != "" {
			phase.Message = finalMessage
		}
	}

	pt.render()
}

// render runs with pt.mu held by the caller.
func (pt *ProgressTracker) render() {
	fmt.Fprint(pt.writer, "\r\033[K")

	completed := pt.completedPhases()
	colored := pt.colorSys != nil && pt.colorSys.IsColorSupported()

	overall := fmt.Sprintf("Overall: %.0f%% (%d/%d phases)",
		float64(completed)/float64(len(pt.phases))*100, completed, len(pt.phases))
	if colored {
		overall = pt.colorSys.Colorize(overall, pt.theme.Info)
	}

	var out strings.Builder
	out.WriteString(overall)

	if phase := pt.phase(pt.currentPhase); phase != nil {
		var percent float64
		if phase.Total > 0 {
			percent = float64(phase.Current) / float64(phase.Total) * 100
		}

		info := fmt.Sprintf(" | %s: %.0f%% (%d/%d) %s",
			phase.Name, percent, phase.Current, phase.Total, phase.Message)
		if colored {
			tone := pt.theme.Primary
			if phase.Completed {
				tone = pt.theme.Success
			}
			info = pt.colorSys.Colorize(info, tone)
		}

		out.WriteString(info)
	}

	fmt.Fprint(pt.writer, out.String())

	if completed == len(pt.phases) {
		fmt.Fprintln(pt.writer)
	}
}

// GetPhaseCount reports how many phases the tracker was built with.
func (pt *ProgressTracker) GetPhaseCount() int {
	pt.mu.RLock()
	defer pt.mu.RUnlock()
	return len(pt.phases)
}

// GetCurrentPhase reports the index of the active phase.
func (pt *ProgressTracker) GetCurrentPhase() int {
	pt.mu.RLock()
	defer pt.mu.RUnlock()
	return pt.currentPhase
}

// IsCompleted reports whether every phase has finished.
func (pt *ProgressTracker) IsCompleted() bool {
	pt.mu.RLock()
	defer pt.mu.RUnlock()
	return pt.completedPhases() == len(pt.phases)
}

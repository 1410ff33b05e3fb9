package confirmation

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"inventory-vault/internal/backup"
	"inventory-vault/internal/display"
)

// ConfirmationService gates the destructive maintenance operations behind
// an interactive prompt. Restore overwrites the live store, delete and
// prune remove snapshot artifacts for good, so each one shows what is
// about to happen and waits for an explicit yes unless auto-approve is
// set.
type ConfirmationService interface {
	ConfirmRestore(snapshot *backup.SnapshotRecord, autoApprove bool) (bool, error)
	ConfirmDelete(snapshot *backup.SnapshotRecord, autoApprove bool) (bool, error)
	ConfirmPrune(candidates []*backup.SnapshotRecord, policy backup.RetentionPolicy, autoApprove bool) (bool, error)
	HandleInterruption() error
}

// confirmationService implements the ConfirmationService interface
type confirmationService struct {
	display display.DisplayService
	input   io.Reader
}

// NewConfirmationService creates a confirmation service that prompts on
// the display service's writer and reads answers from stdin
func NewConfirmationService(displayService display.DisplayService) ConfirmationService {
	return &confirmationService{
		display: displayService,
	}
}

// NewConfirmationServiceWithInput creates a confirmation service reading
// answers from the given reader instead of stdin
func NewConfirmationServiceWithInput(displayService display.DisplayService, input io.Reader) ConfirmationService {
	return &confirmationService{
		display: displayService,
		input:   input,
	}
}

// ConfirmRestore prompts before overwriting the live store from snapshot
func (cs *confirmationService) ConfirmRestore(snapshot *backup.SnapshotRecord, autoApprove bool) (bool, error) {
	if autoApprove {
		cs.display.Info(fmt.Sprintf("Auto-approving restore of snapshot %s", snapshot.ID))
		return true, nil
	}

	dialog := cs.display.NewConfirmationBuilder().
		Title("Restore Snapshot").
		Message(fmt.Sprintf("Restore will overwrite the live store with snapshot %s.", snapshot.ID)).
		Destructive().
		Warning("Data written after this snapshot was taken will be lost.").
		Details(fieldDetails(display.SnapshotFields(snapshot))...).
		YesNo().
		Build()

	return cs.confirm(dialog)
}

// ConfirmDelete prompts before removing a snapshot and its artifact
func (cs *confirmationService) ConfirmDelete(snapshot *backup.SnapshotRecord, autoApprove bool) (bool, error) {
	if autoApprove {
		cs.display.Info(fmt.Sprintf("Auto-approving deletion of snapshot %s", snapshot.ID))
		return true, nil
	}

	dialog := cs.display.NewConfirmationBuilder().
		Title("Delete Snapshot").
		Message(fmt.Sprintf("Delete snapshot %s and its artifact?", snapshot.ID)).
		Destructive().
		Details(fieldDetails(display.SnapshotFields(snapshot))...).
		YesNo().
		Build()

	return cs.confirm(dialog)
}

// ConfirmPrune prompts before a retention pass deletes its candidates.
// An empty candidate list confirms immediately since the pass would be a
// no-op.
func (cs *confirmationService) ConfirmPrune(candidates []*backup.SnapshotRecord, policy backup.RetentionPolicy, autoApprove bool) (bool, error) {
	if len(candidates) == 0 {
		cs.display.Info("No snapshots fall outside the retention policy.")
		return true, nil
	}

	if autoApprove {
		cs.display.Info(fmt.Sprintf("Auto-approving prune of %d snapshot(s)", len(candidates)))
		return true, nil
	}

	details := make([]string, 0, len(candidates))
	for _, candidate := range candidates {
		details = append(details, fmt.Sprintf("%s  created %s", candidate.ID, candidate.CreatedAt.Format("2006-01-02 15:04:05")))
	}

	dialog := cs.display.NewConfirmationBuilder().
		Title("Prune Snapshots").
		Message(fmt.Sprintf("Retention policy (window %dd, keep at least %d) will delete %d snapshot(s).",
			policy.WindowDays, policy.MinCount, len(candidates))).
		Destructive().
		Details(details...).
		YesNo().
		Build()

	return cs.confirm(dialog)
}

// confirm runs the dialog while listening for an interrupt, so Ctrl-C at
// the prompt cancels instead of killing the process mid-answer
func (cs *confirmationService) confirm(dialog *display.ConfirmationDialog) (bool, error) {
	if cs.input != nil {
		dialog.SetInput(cs.input)
	}

	interruptChan := make(chan os.Signal, 1)
	signal.Notify(interruptChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(interruptChan)

	resultChan := make(chan *display.ConfirmationResult, 1)
	errorChan := make(chan error, 1)

	go func() {
		result, err := dialog.Show()
		if err != nil {
			errorChan <- err
			return
		}
		resultChan <- result
	}()

	select {
	case <-interruptChan:
		cs.display.Warning("Operation cancelled by user")
		return false, cs.HandleInterruption()
	case err := <-errorChan:
		return false, fmt.Errorf("failed to read user input: %w", err)
	case result := <-resultChan:
		return result.Confirmed, nil
	}
}

// HandleInterruption runs after an interrupt cancels a prompt
func (cs *confirmationService) HandleInterruption() error {
	return nil
}

// fieldDetails flattens record fields into the dialog's detail lines
func fieldDetails(fields []display.Field) []string {
	details := make([]string, 0, len(fields))
	for _, field := range fields {
		details = append(details, fmt.Sprintf("%s: %s", field.Label, field.Value))
	}
	return details
}

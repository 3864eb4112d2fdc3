package reminder

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// Reference errors. Match with errors.Is.
var (
	ErrPermissionDenied   = errors.New("reminders access not granted")
	ErrNoSuchReminderList = errors.New("no such reminder list")
	ErrNoSuchReminder     = errors.New("no such reminder")
	ErrSaveFailed         = errors.New("save failed")
	ErrDeleteFailed       = errors.New("delete failed")
	ErrValidation         = errors.New("validation failed")
)

const permissionHint = `Reminders access is not granted. Please follow these steps:

1. Open System Preferences/Settings
2. Go to Privacy & Security > Reminders
3. Check the box next to your terminal application or MCP client
4. Restart the MCP client

Once you've granted access, try your reminder operation again.`

func permissionDenied(cause error) error {
	err := errors.New("Reminders access not granted. Please check System Settings > Privacy & Security > Reminders.")
	if cause != nil {
		err = errors.WithSecondaryError(err, cause)
	}
	return errors.WithHint(errors.Mark(err, ErrPermissionDenied), permissionHint)
}

func noSuchList(name string) error {
	return errors.Mark(errors.Newf("Reminder list: %s does not exist", name), ErrNoSuchReminderList)
}

func noSuchReminder(id string) error {
	return errors.Mark(errors.Newf("Reminder with id: %s does not exist", id), ErrNoSuchReminder)
}

func saveFailed(cause error) error {
	return errors.Mark(errors.Wrap(cause, "failed to save reminder"), ErrSaveFailed)
}

func deleteFailed(cause error) error {
	return errors.Mark(errors.Wrap(cause, "failed to delete reminder"), ErrDeleteFailed)
}

func validationError(field, reason string) error {
	return errors.Mark(errors.Newf("invalid %s: %s", field, reason), ErrValidation)
}

func validationErrorf(field, format string, args ...interface{}) error {
	return validationError(field, fmt.Sprintf(format, args...))
}

func invalidISOError(s string) error {
	return errors.Newf("invalid isoformat string: %q", s)
}

// errorText renders err as the single tool-facing error line, followed by any
// operator hints.
func errorText(action string, err error) string {
	msg := fmt.Sprintf("Error %s: %v", action, err)
	if hint := errors.FlattenHints(err); hint != "" {
		msg += "\n\n" + hint
	}
	return msg
}

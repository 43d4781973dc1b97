// Package prompt provides interactive terminal confirmations for CLI
// commands that are about to take an irreversible action.
package prompt

import (
	"fmt"
	"os"

	"github.com/AlecAivazis/survey/v2"
)

// Confirm asks message as a yes/no question and returns the answer.
// In non-interactive mode (stdin is not a terminal) it returns
// defaultYes without prompting, so scripted invocations (CI, --yes
// flags that skip calling Confirm at all) never block on stdin.
func Confirm(message string, defaultYes bool) (bool, error) {
	if fi, err := os.Stdin.Stat(); err != nil || fi.Mode()&os.ModeCharDevice == 0 {
		return defaultYes, nil
	}
	var ok bool
	q := &survey.Confirm{Message: message, Default: defaultYes}
	if err := survey.AskOne(q, &ok); err != nil {
		return false, fmt.Errorf("prompt: %w", err)
	}
	return ok, nil
}

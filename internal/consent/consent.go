// Package consent implements the single go/no-go prompt that stands between
// preflight and the first mutating step.
package consent

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	"golang.org/x/term"
)

const question = "Apply these changes? [y/N]"

// Affirmative reports whether an answer grants consent. Only an explicit
// yes does; anything else, including an empty line, declines.
func Affirmative(answer string) bool {
	answer = strings.TrimSpace(strings.ToLower(answer))
	return answer == "y" || answer == "yes"
}

// Ask presents the preview of intended changes and reads exactly one line.
// A decline is a normal outcome, not an error; the error return is reserved
// for genuine read failures.
func Ask(in io.Reader, out io.Writer, interactive bool, preview []string) (bool, error) {
	for _, line := range preview {
		_, _ = fmt.Fprintln(out, line)
	}
	if len(preview) > 0 {
		_, _ = fmt.Fprintln(out)
	}

	if interactive {
		answer, err := promptSurvey(question)
		if err != nil {
			// Ctrl+C or a closed terminal declines rather than failing.
			return false, nil
		}
		return Affirmative(answer), nil
	}

	_, _ = fmt.Fprintf(out, "%s: ", question)

	scanner := bufio.NewScanner(in)
	if !scanner.Scan() {
		// EOF declines.
		return false, scanner.Err()
	}
	return Affirmative(scanner.Text()), nil
}

// IsInteractive reports whether both ends of the conversation are a
// terminal, so a survey prompt can take over the line.
func IsInteractive(in io.Reader, out io.Writer) bool {
	return isTerminalFile(in) && isTerminalFile(out)
}

func isTerminalFile(v any) bool {
	if file, ok := v.(*os.File); ok {
		return termIsTerminal(int(file.Fd()))
	}
	return false
}

var termIsTerminal = func(fd int) bool {
	return term.IsTerminal(fd)
}

// promptSurvey is a package variable so tests never grab the real terminal.
var promptSurvey = func(message string) (string, error) {
	answer := ""
	prompt := &survey.Input{Message: message}
	if err := survey.AskOne(prompt, &answer); err != nil {
		return "", err
	}
	return answer, nil
}

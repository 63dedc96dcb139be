package output

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// ConfirmPrompt asks for user confirmation and returns true if confirmed.
// The answer defaults to no.
func ConfirmPrompt(message string) (bool, error) {
	return confirm(os.Stdin, os.Stdout, message)
}

func confirm(in io.Reader, out io.Writer, message string) (bool, error) {
	reader := bufio.NewReader(in)

	fmt.Fprintf(out, "%s [y/N]: ", message)
	response, err := reader.ReadString('\n')
	if err != nil {
		return false, fmt.Errorf("failed to read response: %w", err)
	}

	response = strings.TrimSpace(strings.ToLower(response))
	return response == "y" || response == "yes", nil
}

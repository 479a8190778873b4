package safety

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Options carries the global destructive-action flags every command honors.
type Options struct {
	// DryRun previews planned actions without performing any of them.
	DryRun bool
	// Yes answers every confirmation prompt affirmatively.
	Yes bool
	// Force skips prompts for operations that normally insist on one.
	Force bool
}

// Confirm asks the operator before a destructive action. Under --dry-run it
// declines without asking; under --yes or --force it consents without
// asking. Anything but an explicit y/yes on stdin declines.
func Confirm(opts Options, in io.Reader, out io.Writer, question string) (bool, error) {
	if opts.DryRun {
		return false, nil
	}
	if opts.Yes || opts.Force {
		return true, nil
	}
	if out != nil {
		fmt.Fprintf(out, "%s [y/N]: ", strings.TrimSpace(question))
	}
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return false, err
	}
	switch strings.TrimSpace(strings.ToLower(line)) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}

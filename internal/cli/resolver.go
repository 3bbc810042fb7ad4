package cli

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// TerminalResolver prompts an operator to pick regions when no candidate
// name matched a structure set. It implements pipeline.RegionResolver.
//
// The prompt lists the structure set's region names numbered from 1; the
// operator enters comma-separated numbers, or a blank line to skip the
// pair. It runs on the watch goroutine after the pairing slots have been
// reset, so a slow answer delays processing but never blocks registration
// of new events' state.
type TerminalResolver struct {
	In  io.Reader
	Out io.Writer
}

// Resolve prompts once and returns the chosen region names.
func (r *TerminalResolver) Resolve(available []string) ([]string, bool) {
	if len(available) == 0 {
		return nil, false
	}

	fmt.Fprintln(r.Out, "No candidate region (seed/au) matched. Available regions:")
	for i, name := range available {
		fmt.Fprintf(r.Out, "  %d) %s\n", i+1, name)
	}
	fmt.Fprint(r.Out, "Select region numbers (comma-separated), or press Enter to skip: ")

	line, err := bufio.NewReader(r.In).ReadString('\n')
	if err != nil && line == "" {
		return nil, false
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return nil, false
	}

	var chosen []string
	for _, field := range strings.Split(line, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(field))
		if err != nil || n < 1 || n > len(available) {
			fmt.Fprintf(r.Out, "Ignoring invalid selection %q.\n", strings.TrimSpace(field))
			continue
		}
		chosen = append(chosen, available[n-1])
	}
	return chosen, len(chosen) > 0
}

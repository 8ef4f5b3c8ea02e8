package scaffold

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// ChooseTemplate prints a numbered menu of templates and reads a choice, by
// number or by name, until a valid one is entered.
func ChooseTemplate(in io.Reader, out io.Writer, templates []string) (string, error) {
	if len(templates) == 0 {
		return "", errors.New("no templates available")
	}

	fmt.Fprintln(out, "Available templates:")
	for i, name := range templates {
		fmt.Fprintf(out, "  %2d) %s\n", i+1, name)
	}

	reader := bufio.NewReader(in)
	for {
		fmt.Fprint(out, "Choose a template: ")
		line, err := reader.ReadString('\n')
		answer := strings.TrimSpace(line)
		if answer != "" {
			if n, convErr := strconv.Atoi(answer); convErr == nil && n >= 1 && n <= len(templates) {
				return templates[n-1], nil
			}
			for _, name := range templates {
				if name == answer {
					return name, nil
				}
			}
			fmt.Fprintf(out, "Unknown template %q\n", answer)
		}
		if err != nil {
			return "", errors.Wrap(err, "failed to read template choice")
		}
	}
}

// Confirm asks a yes/no question. Anything but y or yes is a no.
func Confirm(in io.Reader, out io.Writer, question string) bool {
	fmt.Fprintf(out, "%s (y/n): ", question)

	response, _ := bufio.NewReader(in).ReadString('\n')
	response = strings.ToLower(strings.TrimSpace(response))

	return response == "y" || response == "yes"
}

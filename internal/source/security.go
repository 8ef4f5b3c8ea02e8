package source

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
	"golang.org/x/term"
)

type Credentials struct {
	username string
	password []byte
}

func (c *Credentials) Clear() {
	secureWipe(c.password)
	c.password = nil
}

// secureWipe overwrites the slice with zeros.
func secureWipe(data []byte) {
	for i := range data {
		data[i] = 0
	}
}

// Wipe zeroes a password obtained from AskPassword once it has been handed to
// a source.
func Wipe(password []byte) { secureWipe(password) }

// AskPassword reads a password from the terminal without echoing it.
func AskPassword(prompt string) ([]byte, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return nil, errors.New("cannot prompt for a password: stdin is not a terminal")
	}

	fmt.Fprint(os.Stderr, prompt)
	password, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return nil, errors.Wrap(err, "error reading password")
	}
	return password, nil
}

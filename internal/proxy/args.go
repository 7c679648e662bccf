// Package proxy runs commands through the active toolchain: it pulls an
// inline +selector out of the argument list, rewrites PATH so the
// toolchain's binaries win, and hands back the child's exit code.
package proxy

import (
	"errors"
	"strings"

	"tcm/internal/toolchain"
)

// ErrNoCommand is returned when nothing is left to run after selectors are
// removed.
var ErrNoCommand = errors.New("provide at least one command to run")

// ExtractArgs separates an inline toolchain selector from the command
// tokens. A token of the form +SELECTOR selects the toolchain and is
// dropped; the last one wins. ++ARG passes +ARG through literally, and a
// bare ++ ends selector processing for the rest of the tokens.
func ExtractArgs(tokens []string) ([]string, *toolchain.Selector, error) {
	var (
		command  []string
		selector *toolchain.Selector
		escaping = true
	)
	for _, tok := range tokens {
		switch {
		case !escaping:
			command = append(command, tok)
		case tok == "++":
			escaping = false
		case strings.HasPrefix(tok, "++"):
			command = append(command, tok[1:])
		case strings.HasPrefix(tok, "+"):
			sel, err := toolchain.ParseSelector(tok[1:])
			if err != nil {
				return nil, nil, err
			}
			selector = &sel
		default:
			command = append(command, tok)
		}
	}
	if len(command) == 0 {
		return nil, nil, ErrNoCommand
	}
	return command, selector, nil
}

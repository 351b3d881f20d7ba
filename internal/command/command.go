// Package command turns operator console input into arming requests and
// status queries.
package command

import (
	"errors"
	"strings"
)

// ID names one of the fixed console commands.
type ID int

const (
	FullyDisarm ID = iota
	PartialDisarm
	PartialArm
	FullyArm
	Status
)

// Command is one parsed console command.
type Command struct {
	ID   ID
	Name string
}

// ErrNoMatch reports input that matched no command. It is a non-match
// result, not a fault; nothing changes state.
var ErrNoMatch = errors.New("command: no matching command")

// table is ordered; Parse takes the first match.
var table = []Command{
	{FullyDisarm, "fully-disarm"},
	{PartialDisarm, "partial-disarm"},
	{PartialArm, "partial-arm"},
	{FullyArm, "fully-arm"},
	{Status, "status"},
}

// Parse tokenizes a console line on whitespace and prefix-matches the
// first token against the command table, so "st" is enough for "status".
// Trailing tokens are ignored; no command takes parameters yet.
func Parse(line string) (Command, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Command{}, ErrNoMatch
	}
	word := fields[0]
	for _, c := range table {
		n := len(word)
		if n > len(c.Name) {
			n = len(c.Name)
		}
		if word[:n] == c.Name[:n] {
			return c, nil
		}
	}
	return Command{}, ErrNoMatch
}

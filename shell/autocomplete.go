package shell

import (
	"sort"
	"strings"

	"github.com/kballard/go-shellquote"
	"github.com/samber/lo"

	"github.com/domino14/rummikub/tilemapping"
)

// ShellCompleter provides context-aware autocomplete for shell commands
type ShellCompleter struct {
	sc *ShellController
}

func NewShellCompleter(sc *ShellController) *ShellCompleter {
	return &ShellCompleter{sc: sc}
}

// commandArgs maps command names to their fixed argument values.
var commandArgs = map[string][]string{
	"solve":   {"tiles", "value", "initial"},
	"clear":   {"rack", "table"},
	"initial": {"set", "clear"},
	"help":    {"solve", "check", "script", "export", "import"},
}

// commandNames lists every command and alias, sorted.
func commandNames() []string {
	names := append(lo.Keys(commands), lo.Keys(aliases)...)
	sort.Strings(names)
	return names
}

// tileSource returns the inventory a tile command takes its tiles from,
// or nil for commands without tile arguments.
func (c *ShellCompleter) tileSource(cmd string) *tilemapping.Inventory {
	g := c.sc.game
	switch cmd {
	case "addrack", "addtable":
		return g.Available()
	case "removerack", "place":
		return g.Rack()
	case "removetable", "remove":
		return g.Table()
	}
	return nil
}

func tileNames(inv *tilemapping.Inventory) []string {
	return lo.Uniq(lo.Map(inv.Tiles(), func(t tilemapping.Tile, _ int) string {
		return t.String()
	}))
}

// Do implements the readline.AutoComplete interface
// It provides context-aware autocomplete based on what's been typed
func (c *ShellCompleter) Do(line []rune, pos int) ([][]rune, int) {
	text := string(line[:pos])

	// Parse the line using shellquote to handle quoted strings properly
	fields, err := shellquote.Split(text)
	if err != nil {
		fields = strings.Fields(text)
	}
	endsWithSpace := len(text) > 0 && text[len(text)-1] == ' '

	var prefix string
	var completions []string

	if len(fields) == 0 || (len(fields) == 1 && !endsWithSpace) {
		if len(fields) == 1 {
			prefix = fields[0]
		}
		completions = commandNames()
	} else {
		cmdName := strings.ToLower(fields[0])
		if full, ok := aliases[cmdName]; ok {
			cmdName = full
		}
		if !endsWithSpace {
			prefix = fields[len(fields)-1]
		}
		if src := c.tileSource(cmdName); src != nil {
			completions = tileNames(src)
		} else if args, ok := commandArgs[cmdName]; ok && (len(fields) == 1 || (len(fields) == 2 && !endsWithSpace)) {
			completions = args
		}
	}

	var matches [][]rune
	for _, completion := range completions {
		if strings.HasPrefix(completion, prefix) {
			// Return only the part that needs to be added
			matches = append(matches, []rune(completion[len(prefix):]))
		}
	}
	return matches, len(prefix)
}

package shell

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/kballard/go-shellquote"
	"github.com/samber/lo"

	"github.com/domino14/rummikub/game"
	"github.com/domino14/rummikub/meld"
	"github.com/domino14/rummikub/solver"
	"github.com/domino14/rummikub/store"
	"github.com/domino14/rummikub/tilemapping"
)

var (
	errNoData            = errors.New("no data in this line")
	errWrongOptionSyntax = errors.New("wrong format for option")
	errNoTiles           = errors.New("no tiles given")
	errNoProposal        = errors.New("no solution to apply, run solve first")
	errInterrupted       = errors.New("interrupted")
)

type shellcmd struct {
	cmd     string
	args    []string
	options map[string]string
}

type Response struct {
	message string
}

func msg(message string) *Response {
	return &Response{message: message}
}

type handler func(*ShellController, *shellcmd) (*Response, error)

var (
	commands map[string]handler
	aliases  = map[string]string{
		"l":    "list",
		"s":    "switch",
		"r":    "rack",
		"t":    "table",
		"ar":   "addrack",
		"rr":   "removerack",
		"at":   "addtable",
		"rt":   "removetable",
		"r2t":  "place",
		"t2r":  "remove",
		"quit": "exit",
		"stop": "exit",
		"end":  "exit",
	}
)

func init() {
	commands = map[string]handler{
		"help":        (*ShellController).help,
		"version":     (*ShellController).version,
		"list":        (*ShellController).list,
		"new":         (*ShellController).newGame,
		"name":        (*ShellController).name,
		"switch":      (*ShellController).switchGame,
		"delete":      (*ShellController).deleteGame,
		"clear":       (*ShellController).clear,
		"reset":       (*ShellController).reset,
		"initial":     (*ShellController).initial,
		"undo":        (*ShellController).undo,
		"rack":        (*ShellController).rack,
		"table":       (*ShellController).table,
		"addrack":     (*ShellController).addRack,
		"removerack":  (*ShellController).removeRack,
		"addtable":    (*ShellController).addTable,
		"removetable": (*ShellController).removeTable,
		"place":       (*ShellController).place,
		"remove":      (*ShellController).remove,
		"draw":        (*ShellController).draw,
		"solve":       (*ShellController).solve,
		"apply":       (*ShellController).apply,
		"check":       (*ShellController).check,
		"export":      (*ShellController).export,
		"import":      (*ShellController).importGame,
		"script":      (*ShellController).script,
		"exit":        (*ShellController).exit,
	}
}

// extractFields splits a command line into the command, its positional
// arguments and its -key value options.
func extractFields(line string) (*shellcmd, error) {
	fields, err := shellquote.Split(line)
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, errNoData
	}
	var args []string
	options := map[string]string{}
	for i := 1; i < len(fields); i++ {
		if !strings.HasPrefix(fields[i], "-") {
			args = append(args, fields[i])
			continue
		}
		if i == len(fields)-1 {
			return nil, errWrongOptionSyntax
		}
		options[fields[i][1:]] = fields[i+1]
		i++
	}
	return &shellcmd{cmd: fields[0], args: args, options: options}, nil
}

// intOption returns the integer value of option key, or def when the
// option is not given.
func (c *shellcmd) intOption(key string, def int) (int, error) {
	v, ok := c.options[key]
	if !ok {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("option -%s wants a number, got %q", key, v)
	}
	return n, nil
}

// solveContext starts the context of a solve or check, limited by the
// -maxtime option in seconds. The returned function ends it and turns a
// cancellation into a readable error.
func (sc *ShellController) solveContext(cmd *shellcmd) (context.Context, func(error) error, error) {
	maxtime, err := cmd.intOption("maxtime", 0)
	if err != nil {
		return nil, nil, err
	}
	ctx := sc.startSolve(maxtime)
	return ctx, func(err error) error {
		sc.endSolve()
		switch {
		case errors.Is(err, context.DeadlineExceeded):
			return fmt.Errorf("%s found nothing within %ds", cmd.cmd, maxtime)
		case errors.Is(err, context.Canceled):
			return fmt.Errorf("%s %w", cmd.cmd, errInterrupted)
		}
		return err
	}, nil
}

// run executes one line. An empty line solves the current game.
func (sc *ShellController) run(line string) (*Response, error) {
	cmd, err := extractFields(line)
	if errors.Is(err, errNoData) {
		cmd = &shellcmd{cmd: "solve"}
	} else if err != nil {
		return nil, err
	}
	name := strings.ToLower(cmd.cmd)
	if full, ok := aliases[name]; ok {
		name = full
	}
	h, ok := commands[name]
	if !ok {
		return nil, fmt.Errorf("unknown command %q, try `help`", cmd.cmd)
	}
	return h(sc, cmd)
}

func parseTileArgs(args []string) ([]tilemapping.Tile, error) {
	tiles, err := tilemapping.ParseTiles(strings.Join(args, " "))
	if err != nil {
		return nil, err
	}
	if len(tiles) == 0 {
		return nil, errNoTiles
	}
	return tiles, nil
}

func (sc *ShellController) help(cmd *shellcmd) (*Response, error) {
	var b strings.Builder
	if len(cmd.args) == 0 {
		usage(&b, "standard")
	} else {
		usageTopic(&b, cmd.args[0])
	}
	return msg(b.String()), nil
}

func (sc *ShellController) version(cmd *shellcmd) (*Response, error) {
	v := sc.gitVersion
	if v == "" {
		v = "unknown"
	}
	return msg("rummikub solver " + v), nil
}

func (sc *ShellController) exit(cmd *shellcmd) (*Response, error) {
	return nil, errQuit
}

func (sc *ShellController) list(cmd *shellcmd) (*Response, error) {
	names, err := sc.store.List(context.Background(), sc.rs)
	if err != nil {
		return nil, err
	}
	lines := lo.Map(names, func(n string, _ int) string {
		if n == sc.game.Name() {
			return "* " + n
		}
		return "  " + n
	})
	return msg(strings.Join(lines, "\n")), nil
}

// use makes g the current game.
func (sc *ShellController) use(ctx context.Context, g *game.State) error {
	if err := sc.store.SetCurrent(ctx, sc.rs, g.Name()); err != nil {
		return err
	}
	sc.game = g
	sc.lastSolution = nil
	return nil
}

func (sc *ShellController) newGame(cmd *shellcmd) (*Response, error) {
	ctx := context.Background()
	names, err := sc.store.List(ctx, sc.rs)
	if err != nil {
		return nil, err
	}
	var name string
	if len(cmd.args) > 0 {
		name = cmd.args[0]
		if lo.Contains(names, name) {
			return nil, fmt.Errorf("%w: %s", store.ErrExists, name)
		}
	} else {
		for i := len(names) + 1; ; i++ {
			name = "game-" + strconv.Itoa(i)
			if !lo.Contains(names, name) {
				break
			}
		}
	}
	g := game.New(sc.rs, name)
	if err := sc.store.Save(ctx, g); err != nil {
		return nil, err
	}
	if err := sc.use(ctx, g); err != nil {
		return nil, err
	}
	return msg(sc.gameDisplay()), nil
}

func (sc *ShellController) name(cmd *shellcmd) (*Response, error) {
	if len(cmd.args) == 0 {
		return msg(sc.game.Name()), nil
	}
	newName := cmd.args[0]
	if err := sc.store.Rename(context.Background(), sc.rs, sc.game.Name(), newName); err != nil {
		return nil, err
	}
	sc.game.SetName(newName)
	return msg("renamed game to " + newName), nil
}

func (sc *ShellController) switchGame(cmd *shellcmd) (*Response, error) {
	if len(cmd.args) == 0 {
		return nil, errors.New("usage: switch <name>")
	}
	ctx := context.Background()
	g, err := sc.store.Load(ctx, sc.rs, cmd.args[0])
	if err != nil {
		return nil, err
	}
	if err := sc.use(ctx, g); err != nil {
		return nil, err
	}
	return msg(sc.gameDisplay()), nil
}

func (sc *ShellController) deleteGame(cmd *shellcmd) (*Response, error) {
	ctx := context.Background()
	name := sc.game.Name()
	if len(cmd.args) > 0 {
		name = cmd.args[0]
	}
	if err := sc.store.Delete(ctx, sc.rs, name); err != nil {
		return nil, err
	}
	if name != sc.game.Name() {
		return msg("deleted game " + name), nil
	}
	g, err := sc.store.Current(ctx, sc.rs)
	if err != nil {
		return nil, err
	}
	sc.game = g
	sc.lastSolution = nil
	return msg("deleted game " + name + "\n" + sc.gameDisplay()), nil
}

func (sc *ShellController) clear(cmd *shellcmd) (*Response, error) {
	what := "all"
	if len(cmd.args) > 0 {
		what = cmd.args[0]
	}
	switch what {
	case "all":
		sc.game.Clear()
	case "rack":
		sc.game.ClearRack()
	case "table":
		sc.game.ClearTable()
	default:
		return nil, fmt.Errorf("cannot clear %q, use rack or table", what)
	}
	if err := sc.changed(context.Background()); err != nil {
		return nil, err
	}
	return msg(sc.gameDisplay()), nil
}

func (sc *ShellController) reset(cmd *shellcmd) (*Response, error) {
	sc.game.Reset()
	if err := sc.changed(context.Background()); err != nil {
		return nil, err
	}
	return msg(sc.gameDisplay()), nil
}

func (sc *ShellController) initial(cmd *shellcmd) (*Response, error) {
	if len(cmd.args) > 0 {
		switch cmd.args[0] {
		case "set":
			sc.game.SetInitial(true)
		case "clear":
			sc.game.SetInitial(false)
		default:
			return nil, fmt.Errorf("unknown initial argument %q, use set or clear", cmd.args[0])
		}
		if err := sc.changed(context.Background()); err != nil {
			return nil, err
		}
	}
	if sc.game.Initial() {
		return msg("initial meld not played yet"), nil
	}
	return msg("initial meld played"), nil
}

func (sc *ShellController) undo(cmd *shellcmd) (*Response, error) {
	if err := sc.game.Undo(); err != nil {
		return nil, err
	}
	if err := sc.changed(context.Background()); err != nil {
		return nil, err
	}
	return msg(sc.gameDisplay()), nil
}

func (sc *ShellController) rack(cmd *shellcmd) (*Response, error) {
	return msg(sc.tiles(sc.game.Rack().Tiles())), nil
}

func (sc *ShellController) table(cmd *shellcmd) (*Response, error) {
	return msg(sc.tiles(sc.game.Table().Tiles())), nil
}

// moveTiles runs one of the game's tile moves on the tile arguments.
func (sc *ShellController) moveTiles(cmd *shellcmd, move func(...tilemapping.Tile) error) (*Response, error) {
	tiles, err := parseTileArgs(cmd.args)
	if err != nil {
		return nil, err
	}
	if err := move(tiles...); err != nil {
		return nil, err
	}
	if err := sc.changed(context.Background()); err != nil {
		return nil, err
	}
	return msg(sc.gameDisplay()), nil
}

func (sc *ShellController) addRack(cmd *shellcmd) (*Response, error) {
	return sc.moveTiles(cmd, sc.game.AddRack)
}

func (sc *ShellController) removeRack(cmd *shellcmd) (*Response, error) {
	return sc.moveTiles(cmd, sc.game.RemoveRack)
}

func (sc *ShellController) addTable(cmd *shellcmd) (*Response, error) {
	return sc.moveTiles(cmd, sc.game.AddTable)
}

func (sc *ShellController) removeTable(cmd *shellcmd) (*Response, error) {
	return sc.moveTiles(cmd, sc.game.RemoveTable)
}

func (sc *ShellController) place(cmd *shellcmd) (*Response, error) {
	return sc.moveTiles(cmd, sc.game.Place)
}

func (sc *ShellController) remove(cmd *shellcmd) (*Response, error) {
	return sc.moveTiles(cmd, sc.game.Take)
}

func (sc *ShellController) draw(cmd *shellcmd) (*Response, error) {
	n := 1
	if len(cmd.args) > 0 {
		var err error
		n, err = strconv.Atoi(cmd.args[0])
		if err != nil || n < 1 {
			return nil, fmt.Errorf("cannot draw %q tiles", cmd.args[0])
		}
	}
	drawn := sc.game.Draw(n)
	if len(drawn) == 0 {
		return nil, errors.New("no tiles left to draw")
	}
	if err := sc.changed(context.Background()); err != nil {
		return nil, err
	}
	return msg("drew " + sc.tiles(drawn) + "\n" + sc.gameDisplay()), nil
}

func (sc *ShellController) solve(cmd *shellcmd) (*Response, error) {
	mode := solver.Auto
	if len(cmd.args) > 0 {
		var err error
		if mode, err = solver.ParseMode(cmd.args[0]); err != nil {
			return nil, err
		}
	}
	ctx, done, err := sc.solveContext(cmd)
	if err != nil {
		return nil, err
	}
	sol, err := sc.solver.SolveTurn(ctx, sc.game.Rack(), sc.game.Table(), sc.game.Initial(), mode)
	err = done(err)
	if errors.Is(err, solver.ErrNoSolution) {
		sc.lastSolution = nil
		if mode == solver.Initial || (mode == solver.Auto && sc.game.Initial()) {
			return msg(fmt.Sprintf("no initial meld worth at least %d, draw a tile",
				sc.rs.MinInitialValue())), nil
		}
		return msg("no tiles can be placed, draw a tile"), nil
	}
	if err != nil {
		return nil, err
	}
	sc.lastSolution = sol
	return msg(sc.solutionDisplay(sol)), nil
}

func (sc *ShellController) solutionDisplay(sol *solver.Solution) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Place %d tiles worth %d (%s): %s\n",
		sol.Placed.NumTiles(), sol.Value(), sol.Mode, sc.tiles(sol.Placed.Tiles()))
	if len(sol.Opening) > 0 {
		b.WriteString("Opening sets:\n")
		sc.writeMelds(&b, sol.Opening)
	}
	if sol.Mode == solver.Initial && len(sol.Opening) == 0 {
		b.WriteString("Initial sets:\n")
	} else {
		b.WriteString("Table after placing:\n")
	}
	sc.writeMelds(&b, sol.Melds)
	b.WriteString("Use `apply` to play it.")
	return b.String()
}

func (sc *ShellController) writeMelds(b *strings.Builder, melds []*meld.Meld) {
	for _, m := range melds {
		s := m.String()
		if sc.styled {
			s = m.Styled()
		}
		fmt.Fprintf(b, "  %-5s %s\n", m.Kind(), s)
	}
}

func (sc *ShellController) apply(cmd *shellcmd) (*Response, error) {
	if sc.lastSolution == nil {
		return nil, errNoProposal
	}
	if err := sc.game.Apply(sc.lastSolution.Placed); err != nil {
		return nil, err
	}
	if err := sc.changed(context.Background()); err != nil {
		return nil, err
	}
	return msg(sc.gameDisplay()), nil
}

func (sc *ShellController) check(cmd *shellcmd) (*Response, error) {
	ctx, done, err := sc.solveContext(cmd)
	if err != nil {
		return nil, err
	}
	arr, err := sc.solver.Check(ctx, sc.game.Rack(), sc.game.Table())
	if err = done(err); err != nil {
		return nil, err
	}
	var b strings.Builder
	if len(arr.Melds) == 0 {
		b.WriteString("The table is empty.\n")
	} else {
		fmt.Fprintf(&b, "The table is arranged in %d sets:\n", len(arr.Melds))
		sc.writeMelds(&b, arr.Melds)
	}
	if arr.FreeJokers > 0 {
		fmt.Fprintf(&b, "Free jokers: %d\n", arr.FreeJokers)
	}
	for _, r := range arr.Releasable {
		fmt.Fprintf(&b, "The joker for %s in %s is freed by %s\n",
			r.Slot, r.Meld, sc.tiles(r.Replacements))
	}
	return msg(b.String()), nil
}

// Package shell is the interactive console: it keeps a current game, its
// rack and table, and answers solve and check requests about it.
package shell

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/chzyer/readline"
	"github.com/rs/zerolog/log"

	"github.com/domino14/rummikub/config"
	"github.com/domino14/rummikub/game"
	"github.com/domino14/rummikub/milp"
	"github.com/domino14/rummikub/rules"
	"github.com/domino14/rummikub/solver"
	"github.com/domino14/rummikub/store"
	"github.com/domino14/rummikub/tilemapping"
)

const prompt = "\033[31mrummikub>\033[0m "

var errQuit = errors.New("sending quit signal")

type ShellController struct {
	l      *readline.Instance
	config *config.Config
	out    io.Writer
	styled bool

	execPath   string
	gitVersion string

	rs     *rules.Ruleset
	solver *solver.Solver
	store  *store.Store
	game   *game.State

	// the last proposed solution, cleared by every change to the game
	lastSolution *solver.Solution

	// solveMu guards the context of the running solve or check.
	solveMu     sync.Mutex
	solveCtx    context.Context
	solveCancel context.CancelFunc
}

func filterInput(r rune) (rune, bool) {
	switch r {
	// block CtrlZ feature
	case readline.CharCtrlZ:
		return r, false
	}
	return r, true
}

func (sc *ShellController) showMessage(msg string) {
	io.WriteString(sc.out, msg)
	if !strings.HasSuffix(msg, "\n") {
		io.WriteString(sc.out, "\n")
	}
}

func (sc *ShellController) showError(err error) {
	sc.showMessage("Error: " + err.Error())
}

// newSolver builds the backend chain from the solver settings. The
// fallback backend gets larger node and time budgets and a looser
// tolerance.
func newSolver(cfg *config.Config, rs *rules.Ruleset) *solver.Solver {
	maxNodes := cfg.GetInt(config.ConfigSolverMaxNodes)
	maxTime := cfg.GetDuration(config.ConfigSolverMaxTime)
	tol := cfg.GetFloat64(config.ConfigSolverTolerance)
	return solver.New(rs,
		solver.WithBackends(
			&milp.BranchAndBound{Tolerance: tol, MaxNodes: maxNodes, MaxTime: maxTime},
			&milp.BranchAndBound{Tolerance: tol * 10, MaxNodes: maxNodes * 25, MaxTime: maxTime * 3},
		),
		solver.WithAttempts(cfg.GetInt(config.ConfigSolverAttempts)),
	)
}

// newController sets up everything but the terminal.
func newController(ctx context.Context, cfg *config.Config, st *store.Store, out io.Writer) (*ShellController, error) {
	rs, err := cfg.Ruleset()
	if err != nil {
		return nil, err
	}
	g, err := st.Current(ctx, rs)
	if err != nil {
		return nil, err
	}
	log.Debug().Str("ruleset", rs.String()).Str("game", g.Name()).Msg("loaded-current-game")
	return &ShellController{
		config: cfg,
		out:    out,
		rs:     rs,
		solver: newSolver(cfg, rs),
		store:  st,
		game:   g,
	}, nil
}

// NewShellController creates the console for the current game of the
// configured ruleset.
func NewShellController(cfg *config.Config, st *store.Store, execPath, gitVersion string) (*ShellController, error) {
	sc, err := newController(context.Background(), cfg, st, os.Stderr)
	if err != nil {
		return nil, err
	}
	sc.execPath = execPath
	sc.gitVersion = gitVersion
	sc.styled = true

	l, err := readline.NewEx(&readline.Config{
		Prompt:              prompt,
		HistoryFile:         cfg.GetString(config.ConfigHistoryFile),
		AutoComplete:        NewShellCompleter(sc),
		EOFPrompt:           "exit",
		InterruptPrompt:     "^C",
		HistorySearchFold:   true,
		FuncFilterInputRune: filterInput,
	})
	if err != nil {
		return nil, err
	}
	sc.l = l
	sc.out = l.Stderr()
	return sc, nil
}

func (sc *ShellController) tiles(tiles []tilemapping.Tile) string {
	if sc.styled {
		return tilemapping.StyledTiles(tiles)
	}
	return tilemapping.FormatTiles(tiles)
}

func (sc *ShellController) gameDisplay() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Game %s (%s)", sc.game.Name(), sc.rs.Key())
	if sc.game.Initial() {
		b.WriteString(", initial meld not played")
	}
	b.WriteString("\n")
	rack := sc.game.Rack()
	table := sc.game.Table()
	fmt.Fprintf(&b, "Rack  (%2d): %s\n", rack.NumTiles(), sc.tiles(rack.Tiles()))
	fmt.Fprintf(&b, "Table (%2d): %s\n", table.NumTiles(), sc.tiles(table.Tiles()))
	return b.String()
}

// changed stores the game after a mutation and drops the proposed
// solution, which no longer applies.
func (sc *ShellController) changed(ctx context.Context) error {
	sc.lastSolution = nil
	return sc.store.Save(ctx, sc.game)
}

// handle runs a line and shows its output. It reports whether the line
// asked to quit.
func (sc *ShellController) handle(line string) bool {
	resp, err := sc.run(strings.TrimSpace(line))
	if errors.Is(err, errQuit) {
		return true
	}
	if err != nil {
		sc.showError(err)
		return false
	}
	if resp != nil && resp.message != "" {
		sc.showMessage(resp.message)
	}
	return false
}

// Execute runs a single command line.
func (sc *ShellController) Execute(sig chan os.Signal, line string) {
	if sc.handle(line) {
		sig <- syscall.SIGINT
	}
}

func (sc *ShellController) Loop(sig chan os.Signal) {
	defer sc.l.Close()
	sc.showMessage(sc.gameDisplay())

	for {
		line, err := sc.l.Readline()
		if err == readline.ErrInterrupt {
			if sc.Interrupt() {
				continue
			}
			if len(line) == 0 {
				sig <- syscall.SIGINT
				break
			}
			continue
		} else if err == io.EOF {
			sig <- syscall.SIGINT
			break
		}
		if sc.handle(line) {
			sig <- syscall.SIGINT
			break
		}
	}
	log.Debug().Msgf("Exiting readline loop...")
}

// startSolve sets up the context of a solve or check. A positive maxtime
// cancels it after that many seconds.
func (sc *ShellController) startSolve(maxtime int) context.Context {
	sc.solveMu.Lock()
	defer sc.solveMu.Unlock()
	if maxtime > 0 {
		sc.solveCtx, sc.solveCancel = context.WithTimeout(context.Background(), time.Duration(maxtime)*time.Second)
	} else {
		sc.solveCtx, sc.solveCancel = context.WithCancel(context.Background())
	}
	return sc.solveCtx
}

func (sc *ShellController) endSolve() {
	sc.solveMu.Lock()
	defer sc.solveMu.Unlock()
	if sc.solveCancel != nil {
		sc.solveCancel()
	}
	sc.solveCtx, sc.solveCancel = nil, nil
}

// Interrupt cancels the running solve or check. It reports whether there
// was one to cancel.
func (sc *ShellController) Interrupt() bool {
	sc.solveMu.Lock()
	defer sc.solveMu.Unlock()
	if sc.solveCancel == nil {
		return false
	}
	log.Debug().Msg("interrupting-solve")
	sc.solveCancel()
	return true
}

// Cleanup closes the game store.
func (sc *ShellController) Cleanup() {
	if err := sc.store.Close(); err != nil {
		log.Err(err).Msg("closing-store")
	}
}

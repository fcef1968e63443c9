package shell

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"testing"

	"github.com/matryer/is"

	"github.com/domino14/rummikub/config"
	"github.com/domino14/rummikub/game"
	"github.com/domino14/rummikub/solver"
	"github.com/domino14/rummikub/store"
	"github.com/domino14/rummikub/tilemapping"
)

func newTestShell(t *testing.T, dir string) (*ShellController, *bytes.Buffer) {
	t.Helper()
	is := is.New(t)
	cfg := &config.Config{}
	is.NoErr(cfg.Load([]string{"--data-path", dir}))
	ctx := context.Background()
	st, err := store.Open(ctx, dir)
	is.NoErr(err)
	t.Cleanup(func() { st.Close() })
	out := &bytes.Buffer{}
	sc, err := newController(ctx, cfg, st, out)
	is.NoErr(err)
	return sc, out
}

func sameTiles(t *testing.T, inv *tilemapping.Inventory, tiles string) bool {
	t.Helper()
	want, err := tilemapping.InventoryFromString(inv.Indexer(), tiles)
	if err != nil {
		t.Fatal(err)
	}
	return inv.Equal(want)
}

func TestExtractFields(t *testing.T) {
	is := is.New(t)
	type testdata struct {
		line   string
		expCmd *shellcmd
		expErr error
	}
	cases := []testdata{
		{"", nil, errNoData},
		{"export -file /path/to/game.yaml",
			&shellcmd{"export", nil, map[string]string{"file": "/path/to/game.yaml"}},
			nil},
		{"solve value",
			&shellcmd{"solve", []string{"value"}, map[string]string{}},
			nil},
		{"addrack k1-3 kbo5 -source bag ",
			&shellcmd{"addrack",
				[]string{"k1-3", "kbo5"},
				map[string]string{"source": "bag"}},
			nil,
		},
		{"script 'my script.lua'",
			&shellcmd{"script", []string{"my script.lua"}, map[string]string{}},
			nil},
		{"addrack k1 -source",
			nil, errWrongOptionSyntax},
	}
	for _, t := range cases {
		cmd, err := extractFields(t.line)
		is.Equal(cmd, t.expCmd)
		is.Equal(err, t.expErr)
	}
}

func TestTileCommands(t *testing.T) {
	is := is.New(t)
	sc, _ := newTestShell(t, t.TempDir())

	_, err := sc.run("ar k1-3 j")
	is.NoErr(err)
	is.True(sameTiles(t, sc.game.Rack(), "k1 k2 k3 j"))

	_, err = sc.run("r2t k1 k2")
	is.NoErr(err)
	is.True(sameTiles(t, sc.game.Rack(), "k3 j"))
	is.True(sameTiles(t, sc.game.Table(), "k1 k2"))

	_, err = sc.run("t2r k2")
	is.NoErr(err)
	is.True(sameTiles(t, sc.game.Table(), "k1"))

	_, err = sc.run("at k1")
	is.NoErr(err)
	// both k1 are out of the bag now
	_, err = sc.run("ar k1")
	var na *game.NotAvailableError
	is.True(errors.As(err, &na))
	is.Equal(na.Source, "the bag")

	_, err = sc.run("rr k13")
	is.True(err != nil)

	_, err = sc.run("ar")
	is.Equal(err, errNoTiles)

	_, err = sc.run("ar g1")
	is.True(err != nil) // green is not in play

	_, err = sc.run("clear table")
	is.NoErr(err)
	is.True(sc.game.Table().Empty())
	is.True(!sc.game.Rack().Empty())

	_, err = sc.run("undo")
	is.NoErr(err)
	is.True(sameTiles(t, sc.game.Table(), "k1 k1"))

	_, err = sc.run("clear")
	is.NoErr(err)
	is.True(sc.game.Table().Empty())
	is.True(sc.game.Rack().Empty())
}

func TestDrawAndInitial(t *testing.T) {
	is := is.New(t)
	sc, _ := newTestShell(t, t.TempDir())

	_, err := sc.run("draw 14")
	is.NoErr(err)
	is.Equal(sc.game.Rack().NumTiles(), 14)

	_, err = sc.run("draw none")
	is.True(err != nil)

	r, err := sc.run("initial")
	is.NoErr(err)
	is.Equal(r.message, "initial meld not played yet")
	r, err = sc.run("initial clear")
	is.NoErr(err)
	is.Equal(r.message, "initial meld played")
	is.True(!sc.game.Initial())

	_, err = sc.run("reset")
	is.NoErr(err)
	is.True(sc.game.Initial())
	is.True(sc.game.Rack().Empty())
}

func TestSolveAndApply(t *testing.T) {
	is := is.New(t)
	sc, _ := newTestShell(t, t.TempDir())

	_, err := sc.run("apply")
	is.Equal(err, errNoProposal)

	_, err = sc.run("at r1-3")
	is.NoErr(err)
	_, err = sc.run("ar k10-12 r4")
	is.NoErr(err)

	// an empty line solves
	r, err := sc.run("")
	is.NoErr(err)
	is.True(strings.HasPrefix(r.message, "Place 4 tiles worth 37 (initial)"))
	is.True(strings.Contains(r.message, "k10 k11 k12"))
	is.True(sc.lastSolution != nil)

	_, err = sc.run("apply")
	is.NoErr(err)
	is.True(sc.game.Rack().Empty())
	is.Equal(sc.game.Table().NumTiles(), 7)
	is.True(!sc.game.Initial())
	is.True(sc.lastSolution == nil)

	// the table is not a solution any more after a change
	_, err = sc.run("ar k5")
	is.NoErr(err)
	r, err = sc.run("solve")
	is.NoErr(err)
	is.Equal(r.message, "no tiles can be placed, draw a tile")

	_, err = sc.run("solve sideways")
	is.True(err != nil)
}

func TestSolveBelowInitialValue(t *testing.T) {
	is := is.New(t)
	sc, _ := newTestShell(t, t.TempDir())
	_, err := sc.run("ar k1-3")
	is.NoErr(err)
	r, err := sc.run("solve")
	is.NoErr(err)
	is.Equal(r.message, "no initial meld worth at least 30, draw a tile")

	r, err = sc.run("solve tiles")
	is.NoErr(err)
	is.True(strings.HasPrefix(r.message, "Place 3 tiles worth 6 (tiles)"))
}

func TestSolveInterrupt(t *testing.T) {
	is := is.New(t)
	sc, _ := newTestShell(t, t.TempDir())
	_, err := sc.run("ar k10-13 r5")
	is.NoErr(err)
	is.True(!sc.Interrupt()) // nothing running

	_, err = sc.run("solve -maxtime soon")
	is.True(err != nil)

	r, err := sc.run("solve -maxtime 60")
	is.NoErr(err)
	is.True(strings.HasPrefix(r.message, "Place 4 tiles"))
	is.True(!sc.Interrupt())

	table, err := tilemapping.InventoryFromString(sc.rs, "k1 j k3")
	is.NoErr(err)
	// Ctrl-C arrives while the solve runs
	for _, line := range []string{"solve", "check"} {
		cmd, err := extractFields(line)
		is.NoErr(err)
		ctx, done, err := sc.solveContext(cmd)
		is.NoErr(err)
		is.True(sc.Interrupt())
		if line == "solve" {
			_, err = sc.solver.SolveTurn(ctx, sc.game.Rack(), sc.game.Table(), sc.game.Initial(), solver.Auto)
		} else {
			_, err = sc.solver.Check(ctx, sc.game.Rack(), table)
		}
		err = done(err)
		is.True(errors.Is(err, errInterrupted))
		is.Equal(err.Error(), line+" interrupted")
		is.True(!sc.Interrupt())
	}

	// an expired time budget
	cmd, err := extractFields("solve -maxtime 1")
	is.NoErr(err)
	_, done, err := sc.solveContext(cmd)
	is.NoErr(err)
	is.Equal(done(context.DeadlineExceeded).Error(), "solve found nothing within 1s")
}

func TestCheck(t *testing.T) {
	is := is.New(t)
	sc, _ := newTestShell(t, t.TempDir())

	r, err := sc.run("check")
	is.NoErr(err)
	is.Equal(r.message, "The table is empty.\n")

	_, err = sc.run("at k1 j k3")
	is.NoErr(err)
	r, err = sc.run("check")
	is.NoErr(err)
	is.True(strings.Contains(r.message, "k1 j(k2) k3"))
	is.True(strings.Contains(r.message, "The joker for k2 in k1 j(k2) k3 is freed by k2"))

	_, err = sc.run("at k7")
	is.NoErr(err)
	_, err = sc.run("check")
	is.True(err != nil)
}

func TestGames(t *testing.T) {
	is := is.New(t)
	dir := t.TempDir()
	sc, _ := newTestShell(t, dir)

	_, err := sc.run("new alpha")
	is.NoErr(err)
	_, err = sc.run("new alpha")
	is.True(err != nil)
	_, err = sc.run("ar k1")
	is.NoErr(err)

	r, err := sc.run("l")
	is.NoErr(err)
	is.Equal(r.message, "* alpha\n  default")

	_, err = sc.run("new")
	is.NoErr(err)
	is.Equal(sc.game.Name(), "game-3")

	_, err = sc.run("s alpha")
	is.NoErr(err)
	is.True(sameTiles(t, sc.game.Rack(), "k1"))

	_, err = sc.run("name beta")
	is.NoErr(err)
	r, err = sc.run("name")
	is.NoErr(err)
	is.Equal(r.message, "beta")

	// a new console picks up the current game
	again, _ := newTestShell(t, dir)
	is.Equal(again.game.Name(), "beta")
	is.True(sameTiles(t, again.game.Rack(), "k1"))

	_, err = sc.run("delete default")
	is.NoErr(err)
	is.Equal(sc.game.Name(), "beta")
	_, err = sc.run("delete")
	is.NoErr(err)
	is.Equal(sc.game.Name(), "game-3")

	_, err = sc.run("s missing")
	is.True(err != nil)
}

func TestExportImport(t *testing.T) {
	is := is.New(t)
	dir := t.TempDir()
	sc, _ := newTestShell(t, dir)
	file := filepath.Join(dir, "default.yaml")

	_, err := sc.run("ar k1-3 j")
	is.NoErr(err)
	_, err = sc.run("at b7 o7 r7")
	is.NoErr(err)
	_, err = sc.run("export " + file)
	is.NoErr(err)

	// the name is taken
	_, err = sc.run("import " + file)
	is.True(err != nil)

	_, err = sc.run("new other")
	is.NoErr(err)
	_, err = sc.run("delete default")
	is.NoErr(err)
	_, err = sc.run("import " + file)
	is.NoErr(err)
	is.Equal(sc.game.Name(), "default")
	is.True(sameTiles(t, sc.game.Rack(), "k1 k2 k3 j"))
	is.True(sameTiles(t, sc.game.Table(), "b7 o7 r7"))
	is.True(sc.game.Initial())

	other := filepath.Join(dir, "five.yaml")
	is.NoErr(os.WriteFile(other, []byte(
		"ruleset: {numbers: 13, repeats: 2, colours: 5, jokers: 2}\nname: five\nrack: g1\n"), 0o644))
	_, err = sc.run("import " + other)
	is.True(err != nil)
}

func TestScript(t *testing.T) {
	is := is.New(t)
	dir := t.TempDir()
	sc, _ := newTestShell(t, dir)
	file := filepath.Join(dir, "play.lua")
	is.NoErr(os.WriteFile(file, []byte(`
local json = require("json")
rummikub_exec("ar k10-13")
local g = rummikub_game()
assert(g.rack_count == 4)
assert(g.initial)
assert(json.decode('{"n": 1}').n == 1)
local out = rummikub_exec("solve")
assert(string.find(out, "Place 4 tiles", 1, true))
rummikub_exec("apply")
local bad = rummikub_exec("ar q1")
assert(string.sub(bad, 1, 6) == "ERROR:")
`), 0o644))

	_, err := sc.run("script " + file)
	is.NoErr(err)
	is.True(sc.game.Rack().Empty())
	is.True(sameTiles(t, sc.game.Table(), "k10 k11 k12 k13"))
	is.True(!sc.game.Initial())

	_, err = sc.run("script " + filepath.Join(dir, "missing.lua"))
	is.True(err != nil)
}

func TestExecute(t *testing.T) {
	is := is.New(t)
	sc, out := newTestShell(t, t.TempDir())
	sig := make(chan os.Signal, 1)

	sc.Execute(sig, "frobnicate")
	is.True(strings.HasPrefix(out.String(), "Error: unknown command"))

	out.Reset()
	sc.Execute(sig, "help solve")
	is.True(strings.HasPrefix(out.String(), "solve [tiles|value|initial]"))

	out.Reset()
	sc.Execute(sig, "help nothing")
	is.Equal(out.String(), "There is no help text for the topic nothing\n")

	sc.Execute(sig, "quit")
	is.Equal(<-sig, os.Signal(syscall.SIGINT))
}

func TestAutocomplete(t *testing.T) {
	is := is.New(t)
	sc, _ := newTestShell(t, t.TempDir())
	_, err := sc.run("ar k4 k5")
	is.NoErr(err)
	c := NewShellCompleter(sc)

	complete := func(line string) []string {
		m, _ := c.Do([]rune(line), len(line))
		s := make([]string, len(m))
		for i := range m {
			s[i] = string(m[i])
		}
		return s
	}
	is.Equal(complete("sol"), []string{"ve"})
	is.Equal(complete("solve v"), []string{"alue"})
	is.Equal(complete("r2t "), []string{"k4", "k5"})
	is.Equal(complete("place k5 k"), []string{"4", "5"})
	is.Equal(complete("draw "), []string{})
}

package shell

import (
	"context"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/domino14/rummikub/game"
	"github.com/domino14/rummikub/rules"
	"github.com/domino14/rummikub/tilemapping"
)

// gameFile is the YAML form of a game.
type gameFile struct {
	Ruleset rulesetFile `yaml:"ruleset"`
	Name    string      `yaml:"name"`
	Rack    string      `yaml:"rack"`
	Table   string      `yaml:"table"`
	Initial bool        `yaml:"initial"`
}

// rulesetFile holds the parameters that decide which tiles a game can hold.
type rulesetFile struct {
	Numbers int `yaml:"numbers"`
	Repeats int `yaml:"repeats"`
	Colours int `yaml:"colours"`
	Jokers  int `yaml:"jokers"`
}

func (sc *ShellController) export(cmd *shellcmd) (*Response, error) {
	if len(cmd.args) == 0 {
		return nil, errors.New("usage: export <file>")
	}
	p := sc.rs.Params()
	gf := gameFile{
		Ruleset: rulesetFile{Numbers: p.Numbers, Repeats: p.Repeats, Colours: p.Colours, Jokers: p.Jokers},
		Name:    sc.game.Name(),
		Rack:    sc.game.Rack().String(),
		Table:   sc.game.Table().String(),
		Initial: sc.game.Initial(),
	}
	out, err := yaml.Marshal(&gf)
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(cmd.args[0], out, 0o644); err != nil {
		return nil, err
	}
	return msg("exported game " + gf.Name + " to " + cmd.args[0]), nil
}

func (sc *ShellController) importGame(cmd *shellcmd) (*Response, error) {
	if len(cmd.args) == 0 {
		return nil, errors.New("usage: import <file>")
	}
	dat, err := os.ReadFile(cmd.args[0])
	if err != nil {
		return nil, err
	}
	var gf gameFile
	if err := yaml.Unmarshal(dat, &gf); err != nil {
		return nil, fmt.Errorf("reading %s: %w", cmd.args[0], err)
	}
	g, err := sc.restore(&gf)
	if err != nil {
		return nil, err
	}

	ctx := context.Background()
	names, err := sc.store.List(ctx, sc.rs)
	if err != nil {
		return nil, err
	}
	for _, n := range names {
		if n == g.Name() {
			return nil, fmt.Errorf("cannot import %s: a game with that name already exists", n)
		}
	}
	if err := sc.store.Save(ctx, g); err != nil {
		return nil, err
	}
	if err := sc.use(ctx, g); err != nil {
		return nil, err
	}
	return msg(sc.gameDisplay()), nil
}

// restore checks that gf fits the console's ruleset and builds its game.
func (sc *ShellController) restore(gf *gameFile) (*game.State, error) {
	p := sc.rs.Params()
	p.Numbers, p.Repeats = gf.Ruleset.Numbers, gf.Ruleset.Repeats
	p.Colours, p.Jokers = gf.Ruleset.Colours, gf.Ruleset.Jokers
	frs, err := rules.New(p)
	if err != nil {
		return nil, err
	}
	if frs.Key() != sc.rs.Key() {
		return nil, fmt.Errorf("game %s is for ruleset %s, the console runs %s", gf.Name, frs.Key(), sc.rs.Key())
	}
	if gf.Name == "" {
		return nil, errors.New("game file has no name")
	}
	rack, err := tilemapping.ParseTiles(gf.Rack)
	if err != nil {
		return nil, fmt.Errorf("rack: %w", err)
	}
	table, err := tilemapping.ParseTiles(gf.Table)
	if err != nil {
		return nil, fmt.Errorf("table: %w", err)
	}
	return game.Restore(sc.rs, gf.Name, rack, table, gf.Initial)
}

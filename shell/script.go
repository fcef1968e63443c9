package shell

import (
	"errors"
	"net/http"
	"time"

	"github.com/cjoudrey/gluahttp"
	"github.com/rs/zerolog/log"
	lua "github.com/yuin/gopher-lua"
	luajson "layeh.com/gopher-json"
)

func getShell(L *lua.LState) *ShellController {
	shell := L.GetGlobal("rummikub_shell")
	ud, ok := shell.(*lua.LUserData)
	if !ok {
		panic("luserdata not right type")
	}
	sc, ok := ud.Value.(*ShellController)
	if !ok {
		panic("shellcontroller not right type")
	}
	return sc
}

// Exec runs a console command line and returns its output.
func Exec(L *lua.LState) int {
	lv := L.ToString(1)
	sc := getShell(L)
	r, err := sc.run(lv)
	if errors.Is(err, errQuit) {
		L.RaiseError("exit is not allowed in a script")
		return 0
	}
	if err != nil {
		log.Err(err).Str("line", lv).Msg("error-executing-command")
		L.Push(lua.LString("ERROR: " + err.Error()))
		return 1
	}
	if r == nil {
		L.Push(lua.LString(""))
		return 1
	}
	L.Push(lua.LString(r.message))
	// return number of results pushed to stack.
	return 1
}

// Game returns the current game as a table.
func Game(L *lua.LState) int {
	sc := getShell(L)
	t := L.NewTable()
	t.RawSetString("name", lua.LString(sc.game.Name()))
	t.RawSetString("rack", lua.LString(sc.game.Rack().String()))
	t.RawSetString("table", lua.LString(sc.game.Table().String()))
	t.RawSetString("initial", lua.LBool(sc.game.Initial()))
	t.RawSetString("rack_count", lua.LNumber(sc.game.Rack().NumTiles()))
	L.Push(t)
	return 1
}

func (sc *ShellController) script(cmd *shellcmd) (*Response, error) {
	if cmd.args == nil {
		return nil, errors.New("need arguments for script")
	}

	filepath := cmd.args[0]

	L := lua.NewState()
	defer L.Close()

	luajson.Preload(L)
	L.PreloadModule("http", gluahttp.NewHttpModule(&http.Client{Timeout: 30 * time.Second}).Loader)

	lsc := L.NewUserData()
	lsc.Value = sc

	L.SetGlobal("rummikub_shell", lsc)
	L.SetGlobal("rummikub_exec", L.NewFunction(Exec))
	L.SetGlobal("rummikub_game", L.NewFunction(Game))

	if err := L.DoFile(filepath); err != nil {
		log.Err(err).Msg("there was a error")
		return nil, err
	}
	return nil, nil
}

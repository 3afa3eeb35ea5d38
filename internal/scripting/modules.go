package scripting

import (
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/cory-johannsen/skirmish/internal/game/dice"
)

// RegisterModules installs the engine global into L:
//
//	engine.log.debug/info/warn(msg)  write to logger
//	engine.dice.mean/min/max(expr)   evaluate dice notation statistics
//
// Precondition: L must be from NewSandboxedState; logger must be non-nil.
func RegisterModules(L *lua.LState, logger *zap.Logger) {
	engine := L.NewTable()

	log := L.NewTable()
	for name, fn := range map[string]func(string, ...zap.Field){
		"debug": logger.Debug,
		"info":  logger.Info,
		"warn":  logger.Warn,
	} {
		L.SetField(log, name, L.NewFunction(func(L *lua.LState) int {
			fn("lua: " + L.CheckString(1))
			return 0
		}))
	}
	L.SetField(engine, "log", log)

	d := L.NewTable()
	stat := func(f func(dice.Expression) float64) *lua.LFunction {
		return L.NewFunction(func(L *lua.LState) int {
			expr, err := dice.Parse(L.CheckString(1))
			if err != nil {
				L.RaiseError("%s", err.Error())
				return 0
			}
			L.Push(lua.LNumber(f(expr)))
			return 1
		})
	}
	L.SetField(d, "mean", stat(dice.Expression.Mean))
	L.SetField(d, "min", stat(func(e dice.Expression) float64 { return float64(e.Min()) }))
	L.SetField(d, "max", stat(func(e dice.Expression) float64 { return float64(e.Max()) }))
	L.SetField(engine, "dice", d)

	L.SetGlobal("engine", engine)
}

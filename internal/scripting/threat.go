package scripting

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	lua "github.com/yuin/gopher-lua"
	"github.com/yuin/gopher-lua/parse"
	"go.uber.org/zap"

	"github.com/cory-johannsen/skirmish/internal/game/ai"
	"github.com/cory-johannsen/skirmish/internal/game/unit"
)

// ThreatHook is the global function a threat script must define. It is called
// as threat(unit, default) and returns a number.
const ThreatHook = "threat"

// ThreatScript is a compiled threat script. It is immutable and may be shared
// by concurrent battles; each battle gets its own VM from NewScorer.
type ThreatScript struct {
	name   string
	proto  *lua.FunctionProto
	limit  int
	logger *zap.Logger
}

// LoadThreatScript compiles the Lua file at path.
//
// Precondition: limit >= 0; 0 uses DefaultInstructionLimit.
// Postcondition: returns a script or an error naming the file.
func LoadThreatScript(path string, limit int, logger *zap.Logger) (*ThreatScript, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("scripting: opening threat script: %w", err)
	}
	defer f.Close()
	return compile(path, bufio.NewReader(f), limit, logger)
}

// CompileThreatScript compiles src under name.
func CompileThreatScript(name, src string, limit int, logger *zap.Logger) (*ThreatScript, error) {
	return compile(name, strings.NewReader(src), limit, logger)
}

func compile(name string, r io.Reader, limit int, logger *zap.Logger) (*ThreatScript, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	chunk, err := parse.Parse(r, name)
	if err != nil {
		return nil, fmt.Errorf("scripting: parsing %q: %w", name, err)
	}
	proto, err := lua.Compile(chunk, name)
	if err != nil {
		return nil, fmt.Errorf("scripting: compiling %q: %w", name, err)
	}
	s := &ThreatScript{name: name, proto: proto, limit: limit, logger: logger}

	// Fail at load time rather than in the first battle.
	sc, err := s.NewScorer()
	if err != nil {
		return nil, err
	}
	_ = sc.Close()
	return s, nil
}

// Name returns the script's file name.
func (s *ThreatScript) Name() string { return s.name }

// NewScorer starts a fresh VM running the script.
//
// Postcondition: the caller must Close the returned scorer.
func (s *ThreatScript) NewScorer() (*ThreatScorer, error) {
	L := NewSandboxedState()
	RegisterModules(L, s.logger)

	disarm := Arm(L, s.limit)
	L.Push(L.NewFunctionFromProto(s.proto))
	err := L.PCall(0, lua.MultRet, nil)
	disarm()
	if err != nil {
		L.Close()
		return nil, fmt.Errorf("scripting: running %q: %w", s.name, err)
	}

	fn, ok := L.GetGlobal(ThreatHook).(*lua.LFunction)
	if !ok {
		L.Close()
		return nil, fmt.Errorf("scripting: %q does not define function %s", s.name, ThreatHook)
	}
	return &ThreatScorer{script: s, L: L, fn: fn}, nil
}

// NewThreatScorer adapts NewScorer to the battle options signature.
func (s *ThreatScript) NewThreatScorer() (ai.ThreatScorer, error) {
	return s.NewScorer()
}

// ThreatScorer is an ai.ThreatScorer backed by one Lua VM. It is not safe for
// concurrent use.
type ThreatScorer struct {
	script *ThreatScript
	L      *lua.LState
	fn     *lua.LFunction
}

// Threat implements ai.ThreatScorer. A script error or a non-numeric result
// is logged and the default threat is used instead.
func (t *ThreatScorer) Threat(u *unit.Unit) float64 {
	def := ai.DefaultThreat{}.Threat(u)
	L := t.L

	disarm := Arm(L, t.script.limit)
	err := L.CallByParam(lua.P{Fn: t.fn, NRet: 1, Protect: true}, unitTable(L, u), lua.LNumber(def))
	disarm()
	if err != nil {
		t.script.logger.Warn("scripting: threat hook failed",
			zap.String("script", t.script.name),
			zap.String("unit", u.ID),
			zap.Error(err),
		)
		return def
	}

	ret := L.Get(-1)
	L.Pop(1)
	n, ok := ret.(lua.LNumber)
	if !ok {
		t.script.logger.Warn("scripting: threat hook returned a non-number",
			zap.String("script", t.script.name),
			zap.String("unit", u.ID),
			zap.String("type", ret.Type().String()),
		)
		return def
	}
	return float64(n)
}

// Close releases the VM.
func (t *ThreatScorer) Close() error {
	t.L.Close()
	return nil
}

// unitTable snapshots u as a Lua table.
func unitTable(L *lua.LState, u *unit.Unit) *lua.LTable {
	tbl := L.NewTable()
	L.SetField(tbl, "id", lua.LString(u.ID))
	L.SetField(tbl, "name", lua.LString(u.Name))
	L.SetField(tbl, "player", lua.LString(u.Player.String()))
	L.SetField(tbl, "points", lua.LNumber(u.Points))
	L.SetField(tbl, "models", lua.LNumber(u.ModelsRemaining()))
	L.SetField(tbl, "starting_models", lua.LNumber(u.StartingModels))
	L.SetField(tbl, "wounds", lua.LNumber(u.RemainingWounds()))
	L.SetField(tbl, "wounds_per_model", lua.LNumber(u.WoundsPerModel))
	L.SetField(tbl, "toughness", lua.LNumber(u.Chars.Toughness))
	L.SetField(tbl, "save", lua.LNumber(u.Chars.Save))
	L.SetField(tbl, "invulnerable_save", lua.LNumber(u.Chars.InvulnerableSave))
	L.SetField(tbl, "character", lua.LBool(u.IsCharacter()))

	kws := L.NewTable()
	for _, k := range u.Keywords {
		kws.Append(lua.LString(k))
	}
	L.SetField(tbl, "keywords", kws)

	ws := L.NewTable()
	for i := range u.Weapons {
		w := &u.Weapons[i]
		wt := L.NewTable()
		L.SetField(wt, "name", lua.LString(w.Name))
		L.SetField(wt, "range", lua.LNumber(w.Range))
		L.SetField(wt, "melee", lua.LBool(w.IsMelee()))
		L.SetField(wt, "strength", lua.LNumber(w.Strength))
		L.SetField(wt, "ap", lua.LNumber(w.AP))
		L.SetField(wt, "attacks", lua.LString(w.Attacks.String()))
		L.SetField(wt, "damage", lua.LString(w.Damage.String()))
		L.SetField(wt, "mean_output", lua.LNumber(w.MeanOutput()))
		ws.Append(wt)
	}
	L.SetField(tbl, "weapons", ws)
	return tbl
}

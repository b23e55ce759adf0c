package scripting

import (
	"fmt"
	"math/rand"
	"os"
	"path/filepath"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// Engine wraps a single gopher-lua VM for game logic execution.
// Single-goroutine access only (game loop).
type Engine struct {
	vm  *lua.LState
	rng *rand.Rand
	log *zap.Logger
}

// scriptDirs are loaded in order; missing directories are skipped.
var scriptDirs = []string{"core", "combat", "character", "ai"}

// NewEngine creates a Lua engine and loads all scripts under scriptsDir.
// math.random in the scripts draws from a source seeded with seed, so the
// same seed replays the same rolls.
func NewEngine(scriptsDir string, seed int64, log *zap.Logger) (*Engine, error) {
	vm := lua.NewState(lua.Options{
		SkipOpenLibs: false,
	})
	vm.SetGlobal("API_VERSION", lua.LNumber(1))

	e := &Engine{vm: vm, rng: rand.New(rand.NewSource(seed)), log: log}
	e.installRandom()
	for _, sub := range scriptDirs {
		p := filepath.Join(scriptsDir, sub)
		if err := e.loadDir(p); err != nil {
			vm.Close()
			return nil, fmt.Errorf("load %s scripts: %w", sub, err)
		}
	}
	return e, nil
}

// installRandom replaces math.random and math.randomseed, which otherwise
// share Go's process-wide source, with the engine's own.
func (e *Engine) installRandom() {
	lib, ok := e.vm.GetGlobal("math").(*lua.LTable)
	if !ok {
		return
	}
	lib.RawSetString("random", e.vm.NewFunction(func(L *lua.LState) int {
		switch L.GetTop() {
		case 0:
			L.Push(lua.LNumber(e.rng.Float64()))
		case 1:
			n := L.CheckInt(1)
			if n < 1 {
				L.ArgError(1, "interval is empty")
			}
			L.Push(lua.LNumber(e.rng.Intn(n) + 1))
		default:
			lo, hi := L.CheckInt(1), L.CheckInt(2)
			if lo > hi {
				L.ArgError(2, "interval is empty")
			}
			L.Push(lua.LNumber(e.rng.Intn(hi-lo+1) + lo))
		}
		return 1
	}))
	lib.RawSetString("randomseed", e.vm.NewFunction(func(L *lua.LState) int {
		e.rng.Seed(L.CheckInt64(1))
		return 0
	}))
}

// loadDir loads all .lua files in a directory.
func (e *Engine) loadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".lua" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := e.vm.DoFile(path); err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
		e.log.Debug("loaded lua script", zap.String("file", path))
	}
	return nil
}

// Has reports whether a global Lua function is defined.
func (e *Engine) Has(name string) bool {
	_, ok := e.vm.GetGlobal(name).(*lua.LFunction)
	return ok
}

// --- Combat ---

// CombatContext holds pre-packed data for one melee swing.
type CombatContext struct {
	AttackerPower int
	AttackerHP    int
	TargetHP      int
	TargetMaxHP   int
}

// CombatResult is returned by calc_melee_attack.
type CombatResult struct {
	IsHit   bool
	Damage  int
	Confuse int // turns the target spends confused, 0 = none
}

// CalcMeleeAttack calls the Lua calc_melee_attack function. Without a
// script, every swing hits for the attacker's power.
func (e *Engine) CalcMeleeAttack(ctx CombatContext) CombatResult {
	fallback := CombatResult{IsHit: true, Damage: ctx.AttackerPower}
	fn := e.vm.GetGlobal("calc_melee_attack")
	if fn == lua.LNil {
		return fallback
	}

	t := e.vm.NewTable()
	atk := e.vm.NewTable()
	atk.RawSetString("power", lua.LNumber(ctx.AttackerPower))
	atk.RawSetString("hp", lua.LNumber(ctx.AttackerHP))
	t.RawSetString("attacker", atk)

	tgt := e.vm.NewTable()
	tgt.RawSetString("hp", lua.LNumber(ctx.TargetHP))
	tgt.RawSetString("max_hp", lua.LNumber(ctx.TargetMaxHP))
	t.RawSetString("target", tgt)

	if err := e.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, t); err != nil {
		e.log.Error("lua calc_melee_attack error", zap.Error(err))
		return fallback
	}

	result := e.vm.Get(-1)
	e.vm.Pop(1)

	rt, ok := result.(*lua.LTable)
	if !ok {
		e.log.Error("lua calc_melee_attack returned non-table")
		return fallback
	}
	return CombatResult{
		IsHit:   rt.RawGetString("is_hit") == lua.LTrue,
		Damage:  lInt(rt, "damage"),
		Confuse: lInt(rt, "confuse"),
	}
}

// --- Passive regeneration ---

// RegenContext describes one actor at the end of a round.
type RegenContext struct {
	HP    int
	MaxHP int
}

// CalcRegen calls Lua calc_regen(ctx) and returns the HP to restore.
// Without a script, nothing regenerates.
func (e *Engine) CalcRegen(ctx RegenContext) int {
	fn := e.vm.GetGlobal("calc_regen")
	if fn == lua.LNil {
		return 0
	}
	t := e.vm.NewTable()
	t.RawSetString("hp", lua.LNumber(ctx.HP))
	t.RawSetString("max_hp", lua.LNumber(ctx.MaxHP))

	if err := e.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, t); err != nil {
		e.log.Error("lua calc_regen error", zap.Error(err))
		return 0
	}
	result := e.vm.Get(-1)
	e.vm.Pop(1)
	return int(lua.LVAsNumber(result))
}

// --- Actor AI bridge ---

// AIContext holds pre-packed data for a scripted actor decision.
type AIContext struct {
	Name       string
	X, Y       int
	HP, MaxHP  int
	Round      int
	Pass       int
	TargetX    int
	TargetY    int
	TargetDist int // Chebyshev distance to the player; -1 = no target
	SightRange int
}

// AICommand is the decision returned by Lua actor_ai.
type AICommand struct {
	Type string // "attack", "move", "flee", "wait"
	DX   int
	DY   int
}

// RunActorAI calls Lua actor_ai(ctx). A missing function, a script error or
// a malformed return all mean "wait".
func (e *Engine) RunActorAI(ctx AIContext) AICommand {
	wait := AICommand{Type: "wait"}
	fn := e.vm.GetGlobal("actor_ai")
	if fn == lua.LNil {
		return wait
	}

	t := e.vm.NewTable()
	t.RawSetString("name", lua.LString(ctx.Name))
	t.RawSetString("x", lua.LNumber(ctx.X))
	t.RawSetString("y", lua.LNumber(ctx.Y))
	t.RawSetString("hp", lua.LNumber(ctx.HP))
	t.RawSetString("max_hp", lua.LNumber(ctx.MaxHP))
	t.RawSetString("round", lua.LNumber(ctx.Round))
	t.RawSetString("pass", lua.LNumber(ctx.Pass))
	t.RawSetString("target_x", lua.LNumber(ctx.TargetX))
	t.RawSetString("target_y", lua.LNumber(ctx.TargetY))
	t.RawSetString("target_dist", lua.LNumber(ctx.TargetDist))
	t.RawSetString("sight", lua.LNumber(ctx.SightRange))

	if err := e.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, t); err != nil {
		e.log.Error("lua actor_ai error", zap.Error(err), zap.String("actor", ctx.Name))
		return wait
	}

	result := e.vm.Get(-1)
	e.vm.Pop(1)

	rt, ok := result.(*lua.LTable)
	if !ok {
		return wait
	}
	cmd := AICommand{
		Type: lStr(rt, "type"),
		DX:   clampStep(lInt(rt, "dx")),
		DY:   clampStep(lInt(rt, "dy")),
	}
	if cmd.Type == "" {
		cmd.Type = "wait"
	}
	return cmd
}

// --- Lua helpers ---

// lInt reads an integer field from a Lua table.
func lInt(t *lua.LTable, key string) int {
	return int(lua.LVAsNumber(t.RawGetString(key)))
}

// lStr reads a string field from a Lua table.
func lStr(t *lua.LTable, key string) string {
	return lua.LVAsString(t.RawGetString(key))
}

// clampStep limits a scripted step to one tile per axis.
func clampStep(v int) int {
	switch {
	case v > 1:
		return 1
	case v < -1:
		return -1
	}
	return v
}

// Close shuts down the Lua VM.
func (e *Engine) Close() {
	e.vm.Close()
}

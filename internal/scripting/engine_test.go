package scripting

import (
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func writeScript(t *testing.T, root, sub, name, src string) {
	t.Helper()
	dir := filepath.Join(root, sub)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, name), []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestEngineCallsScripts(t *testing.T) {
	root := t.TempDir()
	writeScript(t, root, "combat", "melee.lua", `
function calc_melee_attack(ctx)
  return { is_hit = true, damage = ctx.attacker.power * 2 }
end`)
	writeScript(t, root, "character", "regen.lua", `
function calc_regen(ctx)
  if ctx.hp >= ctx.max_hp then return 0 end
  return 3
end`)
	writeScript(t, root, "ai", "actor.lua", `
function actor_ai(ctx)
  if ctx.target_dist == 1 then return { type = "attack" } end
  return { type = "move", dx = 5, dy = -1 }
end`)

	e, err := NewEngine(root, 1, zap.NewNop())
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	defer e.Close()

	if r := e.CalcMeleeAttack(CombatContext{AttackerPower: 4}); !r.IsHit || r.Damage != 8 {
		t.Fatalf("melee = %+v", r)
	}
	if n := e.CalcRegen(RegenContext{HP: 5, MaxHP: 10}); n != 3 {
		t.Fatalf("regen = %d", n)
	}
	if n := e.CalcRegen(RegenContext{HP: 10, MaxHP: 10}); n != 0 {
		t.Fatalf("regen at full = %d", n)
	}
	if c := e.RunActorAI(AIContext{TargetDist: 1}); c.Type != "attack" {
		t.Fatalf("ai = %+v", c)
	}
	if c := e.RunActorAI(AIContext{TargetDist: 4}); c.Type != "move" || c.DX != 1 || c.DY != -1 {
		t.Fatalf("ai step not clamped: %+v", c)
	}
}

func TestEngineFallbacks(t *testing.T) {
	root := t.TempDir()
	writeScript(t, root, "ai", "broken.lua", `
function actor_ai(ctx)
  error("boom")
end`)
	core, logs := observer.New(zapcore.ErrorLevel)
	e, err := NewEngine(root, 1, zap.New(core))
	if err != nil {
		t.Fatal(err)
	}
	defer e.Close()

	if c := e.RunActorAI(AIContext{Name: "imp"}); c.Type != "wait" {
		t.Fatalf("failing script should wait, got %+v", c)
	}
	if logs.Len() != 1 {
		t.Fatalf("error logs = %d", logs.Len())
	}
	if r := e.CalcMeleeAttack(CombatContext{AttackerPower: 3}); r.Damage != 3 || !r.IsHit {
		t.Fatalf("fallback melee = %+v", r)
	}
	if e.Has("calc_regen") || !e.Has("actor_ai") {
		t.Fatal("Has reports wrong functions")
	}
}

func TestEngineSyntaxError(t *testing.T) {
	root := t.TempDir()
	writeScript(t, root, "core", "bad.lua", `function (`)
	if _, err := NewEngine(root, 1, zap.NewNop()); err == nil {
		t.Fatal("expected load error")
	}
}

func TestEngineRandomFollowsSeed(t *testing.T) {
	root := t.TempDir()
	writeScript(t, root, "combat", "melee.lua", `
function calc_melee_attack(ctx)
  local roll = math.random(100)
  return { is_hit = roll > 30, damage = math.random(1, ctx.attacker.power) }
end`)

	rolls := func(seed int64) []CombatResult {
		e, err := NewEngine(root, seed, zap.NewNop())
		if err != nil {
			t.Fatalf("new engine: %v", err)
		}
		defer e.Close()
		out := make([]CombatResult, 20)
		for i := range out {
			out[i] = e.CalcMeleeAttack(CombatContext{AttackerPower: 1000})
		}
		return out
	}

	a, b := rolls(42), rolls(42)
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("roll %d differs for the same seed: %+v vs %+v", i, a[i], b[i])
		}
	}
	c := rolls(43)
	same := true
	for i := range a {
		if a[i] != c[i] {
			same = false
		}
	}
	if same {
		t.Fatal("different seeds produced identical rolls")
	}
}

func TestEngineRandomSeedResets(t *testing.T) {
	root := t.TempDir()
	writeScript(t, root, "character", "regen.lua", `
function calc_regen(ctx)
  if ctx.hp == 0 then math.randomseed(ctx.max_hp) end
  return math.random(1000)
end`)
	e, err := NewEngine(root, 7, zap.NewNop())
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	defer e.Close()

	e.CalcRegen(RegenContext{HP: 0, MaxHP: 5})
	first := e.CalcRegen(RegenContext{HP: 1, MaxHP: 5})
	e.CalcRegen(RegenContext{HP: 0, MaxHP: 5})
	if again := e.CalcRegen(RegenContext{HP: 1, MaxHP: 5}); again != first {
		t.Fatalf("after reseed got %d, want %d", again, first)
	}
}

package system

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/l1jgo/turnloop/internal/action"
	"github.com/l1jgo/turnloop/internal/ai"
	"github.com/l1jgo/turnloop/internal/component"
	"github.com/l1jgo/turnloop/internal/config"
	"github.com/l1jgo/turnloop/internal/core/ecs"
	"github.com/l1jgo/turnloop/internal/core/event"
	coresys "github.com/l1jgo/turnloop/internal/core/system"
	"github.com/l1jgo/turnloop/internal/persist"
	"github.com/l1jgo/turnloop/internal/round"
	"github.com/l1jgo/turnloop/internal/scripting"
	"github.com/l1jgo/turnloop/internal/turn"
	"github.com/l1jgo/turnloop/internal/world"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// fakeLua stands in for the Lua engine: every swing hits for the attacker's
// power, regen restores a fixed amount, scripted actors wait.
type fakeLua struct{ regen int }

func (fakeLua) CalcMeleeAttack(ctx scripting.CombatContext) scripting.CombatResult {
	return scripting.CombatResult{IsHit: true, Damage: ctx.AttackerPower}
}

func (f fakeLua) CalcRegen(scripting.RegenContext) int { return f.regen }

func (fakeLua) RunActorAI(scripting.AIContext) scripting.AICommand {
	return scripting.AICommand{Type: "wait"}
}

type memStore struct {
	batches [][]persist.RoundRecord
	err     error
}

func (m *memStore) Append(_ context.Context, recs []persist.RoundRecord) error {
	if m.err != nil {
		return m.err
	}
	m.batches = append(m.batches, append([]persist.RoundRecord(nil), recs...))
	return nil
}

func (m *memStore) Close() error { return nil }

func spawn(t *testing.T, w *world.State, spec world.SpawnSpec) ecs.EntityID {
	t.Helper()
	id, err := w.Spawn(spec)
	if err != nil {
		t.Fatal(err)
	}
	return id
}

func TestRegenHook(t *testing.T) {
	w := world.NewState(4, 4, zap.NewNop())
	orc := spawn(t, w, world.SpawnSpec{Name: "orc", Speed: 100, HP: 6, Regen: 2})
	idle := spawn(t, w, world.SpawnSpec{Name: "idle", Speed: 100, HP: 6, X: 1})
	w.Health(orc).HP = 3
	w.Health(idle).HP = 3

	h := NewRegenHook(w, fakeLua{regen: 5}, zap.NewNop())
	h.OnRoundEnd(orc)
	if w.Health(orc).HP != 3 {
		t.Fatal("regen before interval")
	}
	h.OnRoundEnd(orc)
	if w.Health(orc).HP != 6 {
		t.Fatalf("hp = %d, want clamped 6", w.Health(orc).HP)
	}
	h.OnRoundEnd(idle)
	h.OnRoundEnd(idle)
	if w.Health(idle).HP != 3 {
		t.Fatal("actor without regen interval recovered")
	}

	w.Health(orc).HP = 1
	w.Kill(orc)
	h.OnRoundEnd(orc)
	h.OnRoundEnd(orc)
	if w.Health(orc).HP != 1 {
		t.Fatal("dead actor regenerated")
	}
}

func TestJournalSystemFlushesOnInterval(t *testing.T) {
	bus := event.NewBus()
	store := &memStore{}
	js := NewJournalSystem(bus, store, 2, zap.NewNop())
	dispatch := NewDispatchSystem(bus)

	bus.Emit(event.ActorActed{Round: 1, Pass: 1, Actor: 7, Player: true})
	bus.Emit(event.RoundEnded{Round: 1, Passes: 2, Actions: 1})
	dispatch.Update(0)
	if js.Rounds() != 1 || js.Pending() != 1 {
		t.Fatalf("rounds=%d pending=%d", js.Rounds(), js.Pending())
	}

	js.Update(0)
	if len(store.batches) != 0 {
		t.Fatal("flushed before interval")
	}
	js.Update(0)
	if len(store.batches) != 1 || js.Pending() != 0 {
		t.Fatalf("batches=%d pending=%d", len(store.batches), js.Pending())
	}
	rec := store.batches[0][0]
	if rec.RunID != js.RunID() || len(rec.Acts) != 1 || rec.Acts[0].Actor != 7 {
		t.Fatalf("record = %+v", rec)
	}
	if string(rec.Digest) != string(js.Head()) {
		t.Fatal("record digest is not the chain head")
	}
}

func TestJournalSystemKeepsBatchOnError(t *testing.T) {
	bus := event.NewBus()
	store := &memStore{err: errors.New("disk full")}
	core, logs := observer.New(zapcore.ErrorLevel)
	js := NewJournalSystem(bus, store, 1, zap.New(core))

	bus.Emit(event.RoundEnded{Round: 1})
	NewDispatchSystem(bus).Update(0)
	js.Update(0)
	if js.Pending() != 1 || logs.Len() != 1 {
		t.Fatalf("pending=%d logs=%d", js.Pending(), logs.Len())
	}
	store.err = nil
	js.Flush()
	if js.Pending() != 0 || len(store.batches) != 1 {
		t.Fatal("retry did not flush")
	}
}

func TestVisibilityRecompute(t *testing.T) {
	w := world.NewState(10, 1, zap.NewNop())
	hero := spawn(t, w, world.SpawnSpec{Name: "hero", Player: true, Speed: 100, HP: 5, Sight: 3})
	bat := spawn(t, w, world.SpawnSpec{Name: "bat", Speed: 100, HP: 1, X: 2})
	far := spawn(t, w, world.SpawnSpec{Name: "far", Speed: 100, HP: 1, X: 9})

	v := NewVisibility(w, zap.NewNop())
	v.Recompute()
	if !v.Visible(bat) || v.Visible(far) || v.Count() != 1 {
		t.Fatalf("visible: bat=%v far=%v", v.Visible(bat), v.Visible(far))
	}
	w.MoveTo(hero, 6, 0)
	v.Recompute()
	if v.Visible(bat) || !v.Visible(far) || v.Updates() != 2 {
		t.Fatal("view did not follow the player")
	}
}

// planOf unwraps the action an autopilot intent will run.
func planOf(in *round.Intent) round.Action {
	if p, ok := in.Action().(planned); ok {
		return p.Action
	}
	return in.Action()
}

func TestAutopilotIntents(t *testing.T) {
	w := world.NewState(8, 1, zap.NewNop())
	hero := spawn(t, w, world.SpawnSpec{Name: "hero", Player: true, Speed: 100, HP: 10, Power: 2, Sight: 10, Disposition: component.Hostile})
	env := action.NewEnv(w, fakeLua{}, config.AnimationConfig{}, zap.NewNop())
	pilot := NewAutopilot(w, ai.NewSource(env, fakeLua{}, 1, zap.NewNop()), 50*time.Millisecond)

	in := pilot.Next()
	if _, ok := planOf(in).(action.Wait); !ok || in.IsWindUp() {
		t.Fatalf("nothing in sight should wait, got %T", planOf(in))
	}

	rat := spawn(t, w, world.SpawnSpec{Name: "rat", Speed: 100, HP: 3, X: 3})
	if _, ok := planOf(pilot.Next()).(*action.Move); !ok {
		t.Fatal("distant hostile should be approached")
	}
	w.MoveTo(rat, 1, 0)
	in = pilot.Next()
	if _, ok := planOf(in).(*action.Melee); !ok || !in.IsWindUp() {
		t.Fatal("adjacent hostile should be attacked with a wind-up")
	}

	w.Kill(hero)
	if pilot.Next() != nil {
		t.Fatal("dead player produced an intent")
	}
}

func TestAutopilotPlansWithoutSideEffects(t *testing.T) {
	w := world.NewState(8, 3, zap.NewNop())
	hero := spawn(t, w, world.SpawnSpec{Name: "hero", Player: true, Speed: 100, HP: 10, Power: 2, Sight: 10, Disposition: component.Hostile, X: 4, Y: 1})
	b := w.Behavior(hero)
	b.Previous, b.Disposition, b.Turns = component.Hostile, component.Confused, 2
	env := action.NewEnv(w, fakeLua{}, config.AnimationConfig{}, zap.NewNop())
	pilot := NewAutopilot(w, ai.NewSource(env, fakeLua{}, 1, zap.NewNop()), 50*time.Millisecond)

	pilot.Next()
	in := pilot.Next()
	if b.Turns != 2 || b.Disposition != component.Confused {
		t.Fatalf("planning changed behavior: %+v", *b)
	}

	in.Action().Execute()
	if b.Turns != 1 || b.Disposition != component.Confused {
		t.Fatalf("executed intent did not count down: %+v", *b)
	}

	// A change made after planning wins over the stale plan.
	in = pilot.Next()
	b.Disposition = component.Fleeing
	in.Action().Execute()
	if b.Disposition != component.Fleeing || b.Turns != 1 {
		t.Fatalf("stale plan overwrote behavior: %+v", *b)
	}
}

func TestFrameLoopPlaysOutAFight(t *testing.T) {
	log := zap.NewNop()
	w := world.NewState(8, 3, log)
	hero := spawn(t, w, world.SpawnSpec{Name: "hero", Player: true, Speed: 100, HP: 30, Power: 5, Sight: 10, Disposition: component.Hostile, X: 0, Y: 1})
	rat := spawn(t, w, world.SpawnSpec{Name: "rat", Speed: 100, HP: 5, Power: 1, Sight: 10, Disposition: component.Hostile, X: 3, Y: 1})

	lua := fakeLua{}
	env := action.NewEnv(w, lua, config.AnimationConfig{WindUp: 20 * time.Millisecond, Attack: 10 * time.Millisecond}, log)
	src := ai.NewSource(env, lua, 1, log)
	bus := event.NewBus()
	sched := round.NewScheduler(config.SchedulerConfig{ActionCost: 100, PassCap: 50}, src, NewRegenHook(w, lua, log), log)
	machine := turn.NewMachine(sched, w, bus, log)
	vis := NewVisibility(w, log)
	machine.OnPlayerActionResolved(vis.Recompute)
	coord := turn.NewCoordinator(machine)
	js := NewJournalSystem(bus, nil, 1, log)

	runner := coresys.NewRunner()
	runner.Register(NewCleanupSystem(w, log))
	runner.Register(js)
	runner.Register(coord)
	runner.Register(NewDispatchSystem(bus))
	runner.Register(NewInputSystem(coord, NewAutopilot(w, src, 20*time.Millisecond), log))

	frames := 0
	for ; frames < 200 && w.Alive(rat); frames++ {
		runner.Tick(16 * time.Millisecond)
	}
	if w.Alive(rat) {
		t.Fatal("rat survived 200 frames")
	}
	for i := 0; i < 5; i++ {
		runner.Tick(16 * time.Millisecond)
	}

	if !w.Alive(hero) || w.Living() != 1 {
		t.Fatalf("hero alive=%v living=%d", w.Alive(hero), w.Living())
	}
	if len(w.Snapshot()) != 1 {
		t.Fatal("dead rat not flushed from the arena")
	}
	if vis.Updates() == 0 {
		t.Fatal("visibility hook never ran")
	}
	if js.Rounds() == 0 || js.Rounds() > sched.Rounds() {
		t.Fatalf("journal rounds=%d scheduler rounds=%d", js.Rounds(), sched.Rounds())
	}
	if coord.CurrentState() == turn.GameOver {
		t.Fatal("hero should not have died")
	}
}

// seededFight plays hero against two rats with the Lua scripts under root
// and returns the journal head.
func seededFight(t *testing.T, root string, seed int64) ([]byte, int) {
	t.Helper()
	log := zap.NewNop()
	lua, err := scripting.NewEngine(root, seed, log)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	defer lua.Close()

	w := world.NewState(8, 3, log)
	spawn(t, w, world.SpawnSpec{Name: "hero", Player: true, Speed: 100, HP: 40, Power: 4, Sight: 10, Disposition: component.Hostile, X: 0, Y: 1})
	spawn(t, w, world.SpawnSpec{Name: "rat", Speed: 100, HP: 6, Power: 2, Sight: 10, Disposition: component.Hostile, X: 3, Y: 1})
	spawn(t, w, world.SpawnSpec{Name: "rat", Speed: 50, HP: 6, Power: 2, Sight: 10, Disposition: component.Hostile, X: 6, Y: 0})

	env := action.NewEnv(w, lua, config.AnimationConfig{WindUp: 20 * time.Millisecond, Attack: 10 * time.Millisecond}, log)
	src := ai.NewSource(env, lua, seed, log)
	bus := event.NewBus()
	sched := round.NewScheduler(config.SchedulerConfig{ActionCost: 100, PassCap: 50}, src, NewRegenHook(w, lua, log), log)
	coord := turn.NewCoordinator(turn.NewMachine(sched, w, bus, log))
	js := NewJournalSystem(bus, nil, 1, log)

	runner := coresys.NewRunner()
	runner.Register(NewCleanupSystem(w, log))
	runner.Register(js)
	runner.Register(coord)
	runner.Register(NewDispatchSystem(bus))
	runner.Register(NewInputSystem(coord, NewAutopilot(w, src, 20*time.Millisecond), log))
	for i := 0; i < 300 && w.Living() > 1 && coord.CurrentState() != turn.GameOver; i++ {
		runner.Tick(16 * time.Millisecond)
	}
	for i := 0; i < 5; i++ {
		runner.Tick(16 * time.Millisecond)
	}
	return js.Head(), js.Rounds()
}

func TestSeededRunsShareJournalHead(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "combat")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	melee := `
function calc_melee_attack(ctx)
  if math.random(100) <= 35 then return { is_hit = false, damage = 0 } end
  return { is_hit = true, damage = math.random(1, ctx.attacker.power) }
end`
	if err := os.WriteFile(filepath.Join(dir, "melee.lua"), []byte(melee), 0o644); err != nil {
		t.Fatal(err)
	}

	head1, rounds1 := seededFight(t, root, 99)
	head2, rounds2 := seededFight(t, root, 99)
	if rounds1 == 0 {
		t.Fatal("no rounds journalled")
	}
	if rounds1 != rounds2 || !bytes.Equal(head1, head2) {
		t.Fatalf("same seed diverged: rounds %d vs %d, head %x vs %x", rounds1, rounds2, head1, head2)
	}
}

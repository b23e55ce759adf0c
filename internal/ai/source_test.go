package ai

import (
	"testing"

	"github.com/l1jgo/turnloop/internal/action"
	"github.com/l1jgo/turnloop/internal/component"
	"github.com/l1jgo/turnloop/internal/config"
	"github.com/l1jgo/turnloop/internal/core/ecs"
	"github.com/l1jgo/turnloop/internal/round"
	"github.com/l1jgo/turnloop/internal/scripting"
	"github.com/l1jgo/turnloop/internal/world"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type stubScripts struct {
	cmd  scripting.AICommand
	seen []scripting.AIContext
}

func (s *stubScripts) RunActorAI(ctx scripting.AIContext) scripting.AICommand {
	s.seen = append(s.seen, ctx)
	return s.cmd
}

type noCombat struct{}

func (noCombat) CalcMeleeAttack(scripting.CombatContext) scripting.CombatResult {
	return scripting.CombatResult{}
}

type fixture struct {
	w       *world.State
	src     *Source
	scripts *stubScripts
	player  ecs.EntityID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	w := world.NewState(10, 10, zap.NewNop())
	player, err := w.Spawn(world.SpawnSpec{Name: "hero", Player: true, Speed: 100, HP: 20, Sight: 20, Disposition: component.Hostile, X: 5, Y: 5})
	if err != nil {
		t.Fatal(err)
	}
	scripts := &stubScripts{cmd: scripting.AICommand{Type: "wait"}}
	env := action.NewEnv(w, noCombat{}, config.AnimationConfig{}, zap.NewNop())
	return &fixture{w: w, src: NewSource(env, scripts, 1, zap.NewNop()), scripts: scripts, player: player}
}

func (f *fixture) spawn(t *testing.T, name string, d component.Disposition, x, y int) ecs.EntityID {
	t.Helper()
	id, err := f.w.Spawn(world.SpawnSpec{Name: name, Speed: 100, HP: 8, Sight: 4, Disposition: d, X: x, Y: y})
	if err != nil {
		t.Fatal(err)
	}
	return id
}

func (f *fixture) decide(id ecs.EntityID) round.Action {
	ctx := &round.Context{Round: 1, Pass: 1, Player: f.player, Roster: f.w}
	f.src.Update(ctx)
	return f.src.Decide(ctx, id)
}

func TestDormantWakesInSight(t *testing.T) {
	f := newFixture(t)
	far := f.spawn(t, "far", component.Dormant, 0, 0)
	near := f.spawn(t, "near", component.Dormant, 7, 5)

	if a := f.decide(far); a != nil {
		t.Fatalf("dormant acted: %T", a)
	}
	if f.w.Behavior(far).Disposition != component.Dormant {
		t.Fatal("far actor woke up")
	}
	if a := f.decide(near); a != nil {
		t.Fatal("waking should take the turn")
	}
	if f.w.Behavior(near).Disposition != component.Hostile {
		t.Fatal("near actor stayed dormant")
	}
}

func TestHostileApproachesThenAttacks(t *testing.T) {
	f := newFixture(t)
	orc := f.spawn(t, "orc", component.Hostile, 8, 5)

	mv, ok := f.decide(orc).(*action.Move)
	if !ok || mv.DX != -1 || mv.DY != 0 {
		t.Fatalf("want move west, got %#v", mv)
	}
	f.w.MoveTo(orc, 6, 6)
	m, ok := f.decide(orc).(*action.Melee)
	if !ok || m.Target != f.player {
		t.Fatalf("want melee on player, got %#v", m)
	}
}

func TestHostileFleesWhenHurt(t *testing.T) {
	f := newFixture(t)
	orc := f.spawn(t, "orc", component.Hostile, 6, 5)
	f.w.Health(orc).HP = 2

	mv, ok := f.decide(orc).(*action.Move)
	if !ok || mv.DX != 1 {
		t.Fatalf("want move east, got %#v", mv)
	}
	if b := f.w.Behavior(orc); b.Disposition != component.Fleeing || b.Previous != component.Hostile {
		t.Fatalf("behavior = %+v", *b)
	}

	f.w.Health(orc).HP = 8
	if a := f.decide(orc); a != nil {
		t.Fatal("recovering takes the turn")
	}
	if f.w.Behavior(orc).Disposition != component.Hostile {
		t.Fatal("healed actor should turn hostile again")
	}
}

func TestConfusedWearsOff(t *testing.T) {
	f := newFixture(t)
	imp := f.spawn(t, "imp", component.Hostile, 1, 1)
	b := f.w.Behavior(imp)
	b.Previous, b.Disposition, b.Turns = component.Hostile, component.Confused, 2

	f.decide(imp)
	if b.Disposition != component.Confused || b.Turns != 1 {
		t.Fatalf("after one turn: %+v", *b)
	}
	f.decide(imp)
	if b.Disposition != component.Hostile || b.Turns != 0 {
		t.Fatalf("after two turns: %+v", *b)
	}
}

func TestScriptedCommands(t *testing.T) {
	f := newFixture(t)
	wisp := f.spawn(t, "wisp", component.Scripted, 6, 5)

	f.scripts.cmd = scripting.AICommand{Type: "attack"}
	if _, ok := f.decide(wisp).(*action.Melee); !ok {
		t.Fatal("adjacent attack should melee")
	}
	got := f.scripts.seen[0]
	if got.Name != "wisp" || got.TargetDist != 1 || got.TargetX != 5 || got.SightRange != 4 {
		t.Fatalf("context = %+v", got)
	}

	f.scripts.cmd = scripting.AICommand{Type: "move", DX: 0, DY: 1}
	if mv, ok := f.decide(wisp).(*action.Move); !ok || mv.DY != 1 {
		t.Fatalf("want move south, got %#v", mv)
	}

	f.scripts.cmd = scripting.AICommand{Type: "dance"}
	if a := f.decide(wisp); a != nil {
		t.Fatal("unknown command should wait")
	}
}

func TestPlayerTargetsNearestHostile(t *testing.T) {
	f := newFixture(t)
	f.spawn(t, "far", component.Dormant, 9, 9)
	near := f.spawn(t, "near", component.Dormant, 4, 4)

	m, ok := f.decide(f.player).(*action.Melee)
	if !ok || m.Target != near {
		t.Fatalf("want melee on near, got %#v", m)
	}
}

func TestDispatchCoversEveryDisposition(t *testing.T) {
	for d := component.Dormant; d <= component.Scripted; d++ {
		if behaviorFor(d) == nil {
			t.Fatalf("%s has no behavior", d)
		}
	}
	if behaviorFor(component.Scripted+1) != nil {
		t.Fatal("value past the set resolved to a behavior")
	}
}

func TestUnknownDispositionWarns(t *testing.T) {
	f := newFixture(t)
	core, logs := observer.New(zapcore.WarnLevel)
	f.src.log = zap.New(core)
	odd := f.spawn(t, "odd", component.Hostile, 5, 6)
	f.w.Behavior(odd).Disposition = component.Scripted + 7

	if act := f.decide(odd); act != nil {
		t.Fatalf("unknown disposition acted: %#v", act)
	}
	if logs.FilterMessage("unknown disposition; actor waits").Len() != 1 {
		t.Fatal("unknown disposition not reported")
	}
	if f.w.Behavior(odd).Disposition != component.Scripted+7 {
		t.Fatal("disposition rewritten")
	}
}

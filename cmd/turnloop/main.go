package main

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/l1jgo/turnloop/internal/action"
	"github.com/l1jgo/turnloop/internal/ai"
	"github.com/l1jgo/turnloop/internal/config"
	"github.com/l1jgo/turnloop/internal/core/event"
	coresys "github.com/l1jgo/turnloop/internal/core/system"
	"github.com/l1jgo/turnloop/internal/data"
	"github.com/l1jgo/turnloop/internal/persist"
	"github.com/l1jgo/turnloop/internal/round"
	"github.com/l1jgo/turnloop/internal/scripting"
	"github.com/l1jgo/turnloop/internal/system"
	"github.com/l1jgo/turnloop/internal/turn"
	"github.com/l1jgo/turnloop/internal/world"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/text/width"
)

const version = "0.1.0"

var (
	configPath string
	maxFrames  int
	logLevel   string
)

func main() {
	rootCmd := &cobra.Command{
		Use:     "turnloop",
		Short:   "Energy-scheduled turn loop simulation",
		Version: version,
		Long: `turnloop runs a frame-stepped turn simulation: actors earn energy every
round, spend it to act, and the player's actions wait for their wind-up and
the round's animations before new input is accepted.

Examples:
  # Run with the default config
  turnloop

  # Run 600 frames with debug logging
  turnloop --frames 600 --log-level debug
`,
		SilenceUsage: true,
		RunE:         run,
	}
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "Config file (default: $TURNLOOP_CONFIG or config/turnloop.toml)")
	rootCmd.Flags().IntVar(&maxFrames, "frames", -1, "Stop after N frames (overrides demo.max_frames, 0 = until game over)")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "", "Log level (overrides logging.level)")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// ── Startup display helpers ────────────────────────────────────────

func printBanner() {
	fmt.Println()
	fmt.Println("\033[36;1m  ┌───────────────────────────────────────────┐\033[0m")
	fmt.Println("\033[36;1m  │\033[0m             turnloop  v" + version + "              \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  │\033[0m        能量排程 · 回合制模擬迴圈          \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  └───────────────────────────────────────────┘\033[0m")
	fmt.Println()
}

// displayWidth counts terminal columns; East Asian wide runes take two.
func displayWidth(s string) int {
	n := 0
	for _, r := range s {
		switch width.LookupRune(r).Kind() {
		case width.EastAsianWide, width.EastAsianFullwidth:
			n += 2
		default:
			n++
		}
	}
	return n
}

func printSection(title string) {
	lineLen := 46 - displayWidth(title) - 1
	if lineLen < 3 {
		lineLen = 3
	}
	fmt.Printf("  \033[33m── %s %s\033[0m\n", title, strings.Repeat("─", lineLen))
}

func printStat(label string, value any) {
	valStr := fmt.Sprint(value)
	dotsLen := 42 - displayWidth(label) - len(valStr)
	if dotsLen < 3 {
		dotsLen = 3
	}
	fmt.Printf("  %s \033[90m%s\033[0m \033[32m%s\033[0m\n", label, strings.Repeat("·", dotsLen), valStr)
}

func printOK(msg string) {
	fmt.Printf("  \033[32m✓\033[0m %s\n", msg)
}

func printWarn(msg string) {
	fmt.Printf("  \033[33m!\033[0m %s\n", msg)
}

func printReady(msg string) {
	fmt.Printf("  \033[32m▶\033[0m %s\n", msg)
}

// ── Main loop ─────────────────────────────────────────────────────

func run(_ *cobra.Command, _ []string) error {
	// 1. Load config
	cfgPath := configPath
	if cfgPath == "" {
		cfgPath = "config/turnloop.toml"
		if p := os.Getenv("TURNLOOP_CONFIG"); p != "" {
			cfgPath = p
		}
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if maxFrames >= 0 {
		cfg.Demo.MaxFrames = maxFrames
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	warnings, err := cfg.Validate()
	if err != nil {
		return err
	}

	// 2. Init logger
	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	printBanner()
	printSection("設定")
	printStat("action_cost", cfg.Scheduler.ActionCost)
	printStat("pass_cap", cfg.Scheduler.PassCap)
	printStat("frame_rate", cfg.Scheduler.FrameRate)
	for _, w := range warnings {
		printWarn(w)
		log.Warn("config", zap.String("warning", w))
	}
	fmt.Println()

	// 3. Lua scripts
	printSection("腳本")
	seed := cfg.Demo.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	lua, err := scripting.NewEngine(cfg.Scripting.Dir, seed, log)
	if err != nil {
		return fmt.Errorf("scripting: %w", err)
	}
	defer lua.Close()
	for _, fn := range []string{"calc_melee_attack", "calc_regen", "actor_ai"} {
		if lua.Has(fn) {
			printOK(fn)
		} else {
			printWarn(fn + " 未定義，使用預設值")
		}
	}
	fmt.Println()

	// 4. Roster and world
	printSection("角色")
	roster, err := data.LoadRoster(cfg.World.Roster)
	if err != nil {
		return fmt.Errorf("roster: %w", err)
	}
	specs, err := roster.Specs()
	if err != nil {
		return fmt.Errorf("roster: %w", err)
	}
	ws := world.NewState(cfg.World.Width, cfg.World.Height, log)
	for _, spec := range specs {
		if _, err := ws.Spawn(spec); err != nil {
			return fmt.Errorf("spawn: %w", err)
		}
	}
	if ws.Player().IsZero() {
		return errors.New("roster has no player template")
	}
	printStat("模板", roster.Count())
	printStat("生成", len(specs))
	printStat("地圖", fmt.Sprintf("%dx%d", cfg.World.Width, cfg.World.Height))
	fmt.Println()

	// 5. Round journal
	printSection("日誌")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	store, err := persist.Open(ctx, cfg.Journal, log)
	if err != nil {
		return fmt.Errorf("journal: %w", err)
	}
	if store != nil {
		defer store.Close()
		printOK(fmt.Sprintf("%s 連線成功", cfg.Journal.Driver))
	} else {
		printOK("停用 (僅計算摘要)")
	}
	fmt.Println()

	// 6. Turn loop wiring
	env := action.NewEnv(ws, lua, cfg.Animation, log)
	src := ai.NewSource(env, lua, seed, log)
	bus := event.NewBus()
	sched := round.NewScheduler(cfg.Scheduler, src, system.NewRegenHook(ws, lua, log), log)
	machine := turn.NewMachine(sched, ws, event.Tee{bus, event.NewLogSink(log)}, log)
	vis := system.NewVisibility(ws, log)
	machine.OnPlayerActionResolved(vis.Recompute)
	coord := turn.NewCoordinator(machine)
	journal := system.NewJournalSystem(bus, store, cfg.Journal.FlushInterval, log)

	runner := coresys.NewRunner()
	runner.Register(system.NewInputSystem(coord, system.NewAutopilot(ws, src, cfg.Animation.WindUp), log))
	dispatch := system.NewDispatchSystem(bus)
	runner.Register(dispatch)
	runner.Register(coord)
	runner.Register(journal)
	runner.Register(system.NewCleanupSystem(ws, log))
	vis.Recompute()

	// 7. Start frame loop
	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(cfg.Scheduler.FrameRate)
	defer ticker.Stop()

	printSection("就緒")
	printReady(fmt.Sprintf("迴圈啟動 (frame: %s, seed: %d)", cfg.Scheduler.FrameRate, seed))
	fmt.Println()

	frames := 0
	reason := ""
	for reason == "" {
		select {
		case <-ticker.C:
			runner.Tick(cfg.Scheduler.FrameRate)
			frames++
			reason = finished(coord, ws, frames, cfg.Demo.MaxFrames)
		case sig := <-shutdownCh:
			log.Info("收到關閉信號", zap.String("signal", sig.String()))
			reason = "interrupted"
		}
	}

	// deliver the last frame's events so the final round is journalled
	dispatch.Update(0)
	journal.Flush()

	printSection("結束")
	printStat("原因", reason)
	printStat("畫格", frames)
	printStat("回合", sched.Rounds())
	printStat("存活", ws.Living())
	printStat("摘要", hex.EncodeToString(journal.Head())[:16])
	log.Info("turn loop stopped",
		zap.String("reason", reason),
		zap.String("run_id", journal.RunID().String()),
		zap.Int("rounds", journal.Rounds()))
	return nil
}

// finished returns why the loop should stop, or "".
func finished(coord *turn.Coordinator, ws *world.State, frames, limit int) string {
	state := coord.CurrentState()
	switch {
	case state == turn.GameOver && coord.FrontAnimation() == nil:
		return "game over"
	case state == turn.Idle && ws.Living() <= 1 && ws.Alive(ws.Player()):
		return "victory"
	case limit > 0 && frames >= limit:
		return "frame limit"
	}
	return ""
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		zapCfg.EncoderConfig.ConsoleSeparator = "  "
		zapCfg.DisableCaller = true
		zapCfg.DisableStacktrace = true
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}

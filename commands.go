package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"time"

	"yamcts/agent"
	"yamcts/engine"
	"yamcts/experiments"
	"yamcts/experiments/metrics"
	"yamcts/game"
	"yamcts/meta"
	"yamcts/searcher"

	"github.com/muesli/termenv"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	configPath  string
	gameName    string
	nimTarget   int
	fen         string
	dotPath     string
	dotDepth    int
	opponent    string
	outDir      string
	runs        int
	numGames    int
	workerSteps []int
	config      meta.Config
)

var (
	rootCmd = &cobra.Command{
		Use:               "yamcts",
		Short:             "Parallel Monte Carlo Tree Search for two-player games",
		SilenceUsage:      true,
		PersistentPreRunE: loadConfig,
	}
	searchCmd = &cobra.Command{
		Use:   "search",
		Short: "Search one position and print the root statistics",
		RunE:  search,
	}
	playCmd = &cobra.Command{
		Use:   "play",
		Short: "Play a full game between the search agent and an opponent",
		RunE:  play,
	}
	experimentCmd = &cobra.Command{
		Use:   "experiment",
		Short: "Run parallelisation experiments and store CSV records",
	}
	speedupCmd = &cobra.Command{
		Use:   "speedup",
		Short: "Measure cycles per second for several worker counts",
		RunE:  speedup,
	}
	strengthCmd = &cobra.Command{
		Use:   "strength",
		Short: "Play agents with more workers against a sequential baseline",
		RunE:  strength,
	}
)

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configPath, "config", "", "YAML configuration file")
	flags.Int("workers", 0, "number of search workers")
	flags.Int("iterations", 0, "search cycles per move")
	flags.Duration("duration", 0, "search time per move, used when iterations is 0")
	flags.Float64("exploration", 0, "UCB1 exploration constant")
	flags.Uint64("seed", 0, "seed of the per-worker random generators")
	flags.String("tie-break", "", "tie break between equal UCB1 scores: random or first")
	flags.String("log-level", "", "log level: debug, info, warn, error")
	flags.StringVar(&gameName, "game", "tictactoe", "game: nim, tictactoe or chess")
	flags.IntVar(&nimTarget, "nim-target", game.DefaultNimTarget, "nim total that loses the game")
	flags.StringVar(&fen, "fen", "", "chess starting position")

	searchCmd.Flags().StringVar(&dotPath, "dot", "", "write the search tree in DOT format to this file")
	searchCmd.Flags().IntVar(&dotDepth, "dot-depth", 2, "depth of the DOT tree, negative for all")

	playCmd.Flags().StringVar(&opponent, "opponent", "random", "opponent: random or mcts")

	experimentCmd.PersistentFlags().StringVar(&outDir, "out", "experiments", "directory for CSV records")
	experimentCmd.PersistentFlags().IntSliceVar(&workerSteps, "worker-steps", experiments.DefaultSpeedupWorkers, "worker counts to compare")
	speedupCmd.Flags().IntVar(&runs, "runs", 5, "searches per worker count")
	strengthCmd.Flags().IntVar(&numGames, "games", experiments.NumGames, "games per matchup")

	experimentCmd.AddCommand(speedupCmd, strengthCmd)
	rootCmd.AddCommand(searchCmd, playCmd, experimentCmd)
}

// loadConfig reads the configuration file, then applies the flags set on the command line.
func loadConfig(cmd *cobra.Command, args []string) error {
	var err error
	if config, err = meta.Load(configPath); err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("workers") {
		config.Workers, _ = flags.GetInt("workers")
	}
	if flags.Changed("iterations") {
		config.Iterations, _ = flags.GetInt("iterations")
	}
	if flags.Changed("duration") {
		config.Duration, _ = flags.GetDuration("duration")
		if !flags.Changed("iterations") {
			config.Iterations = 0
		}
	}
	if flags.Changed("exploration") {
		config.ExplorationConstant, _ = flags.GetFloat64("exploration")
	}
	if flags.Changed("seed") {
		seed, _ := flags.GetUint64("seed")
		config.Seed = &seed
	}
	if flags.Changed("tie-break") {
		config.TieBreak, _ = flags.GetString("tie-break")
	}
	if flags.Changed("log-level") {
		config.LogLevel, _ = flags.GetString("log-level")
	}
	if err := config.Validate(); err != nil {
		return err
	}
	zerolog.SetGlobalLevel(config.Level())
	return nil
}

func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cmd.Context(), os.Interrupt)
}

func search(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext(cmd)
	defer cancel()

	switch gameName {
	case "nim":
		nim, err := game.NewNim(nimTarget)
		if err != nil {
			return err
		}
		return searchGame[int](ctx, cmd.OutOrStdout(), nim)
	case "tictactoe":
		return searchGame[int](ctx, cmd.OutOrStdout(), game.NewTicTacToe())
	case "chess":
		board, err := newChess()
		if err != nil {
			return err
		}
		return searchGame[string](ctx, cmd.OutOrStdout(), board)
	}
	return errors.Errorf("unknown game %q", gameName)
}

func newChess() (game.Chess, error) {
	if fen == "" {
		return game.NewChess(game.DefaultMaxPlies), nil
	}
	return game.NewChessFromFEN(fen, game.DefaultMaxPlies)
}

func searchGame[M comparable](ctx context.Context, w io.Writer, state game.Game[M]) error {
	var dot string
	options := append(config.Options(), searcher.WithMetrics(metrics.NewCollector()))
	if dotPath != "" {
		options = append(options, searcher.WithTreeObserver(func(tree *searcher.Tree[M]) {
			var err error
			if dot, err = tree.Dot(dotDepth); err != nil {
				log.Error().Err(err).Msg("failed to render search tree")
			}
		}))
	}
	m, err := searcher.New[M](options...)
	if err != nil {
		return err
	}

	var result searcher.Result[M]
	if config.Iterations > 0 {
		result, err = m.RunWithIterations(ctx, state, config.Iterations)
	} else {
		result, err = m.RunWithDuration(ctx, state, config.Duration)
	}
	if err != nil {
		return err
	}

	out := termenv.NewOutput(w)
	fmt.Fprintln(w, state.String())
	printResult(out, result)

	if dotPath != "" && dot != "" {
		if err := os.WriteFile(dotPath, []byte(dot), 0644); err != nil {
			return errors.Wrap(err, "write dot file")
		}
		log.Info().Msgf("stored search tree in %s", dotPath)
	}
	return nil
}

func printResult[M comparable](out *termenv.Output, result searcher.Result[M]) {
	children := append([]searcher.ChildStat[M](nil), result.Children...)
	sort.SliceStable(children, func(i, j int) bool { return children[i].Visits > children[j].Visits })

	fmt.Fprintf(out, "%-8s %10s %8s\n", "move", "visits", "value")
	for _, child := range children {
		line := fmt.Sprintf("%-8v %10d %+8.3f", child.Move, child.Visits, child.Value)
		style := out.String(line)
		if result.Ok && child.Move == result.Move {
			style = style.Foreground(out.Color("2")).Bold()
		}
		fmt.Fprintln(out, style)
	}

	summary := fmt.Sprintf("cycles=%d stop=%s duration=%s playouts=%d max_rollout_depth=%d",
		result.Cycles, result.StopReason, result.Metric.Duration.Round(time.Millisecond),
		result.Metric.FullPlayouts, result.Metric.MaxRolloutDepth)
	fmt.Fprintln(out, out.String(summary).Faint())
	if result.Ok {
		fmt.Fprintln(out, out.String(fmt.Sprintf("best move: %v", result.Move)).Bold())
	} else {
		fmt.Fprintln(out, out.String("no move").Foreground(out.Color("1")))
	}
}

func play(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext(cmd)
	defer cancel()

	switch gameName {
	case "nim":
		nim, err := game.NewNim(nimTarget)
		if err != nil {
			return err
		}
		return playGame[int](ctx, cmd.OutOrStdout(), nim)
	case "tictactoe":
		return playGame[int](ctx, cmd.OutOrStdout(), game.NewTicTacToe())
	case "chess":
		board, err := newChess()
		if err != nil {
			return err
		}
		return playGame[string](ctx, cmd.OutOrStdout(), board)
	}
	return errors.Errorf("unknown game %q", gameName)
}

func playGame[M comparable](ctx context.Context, w io.Writer, state game.Game[M]) error {
	first, err := agent.NewMCTSAgent[M](config.Budget(), config.Options()...)
	if err != nil {
		return err
	}
	var second agent.Agent[M]
	switch opponent {
	case "random":
		second = agent.NewRandomAgent[M](searcher.NewEntropyFactory()(0))
	case "mcts":
		if second, err = agent.NewMCTSAgent[M](config.Budget(), config.Options()...); err != nil {
			return err
		}
	default:
		return errors.Errorf("unknown opponent %q", opponent)
	}

	out := termenv.NewOutput(w)
	e, err := engine.NewLocalEngine(state, map[string]agent.Agent[M]{
		state.Player():                 first,
		state.Opponent(state.Player()): second,
	},
		engine.WithMaxMoves[M](config.MaxTurns),
		engine.WithMoveHook(func(step int, player string, move M, next game.Game[M]) {
			fmt.Fprintln(out, out.String(fmt.Sprintf("%d. %s plays %v", step+1, player, move)).Bold())
			fmt.Fprintln(out, next.String())
		}),
	)
	if err != nil {
		return err
	}

	winner, gameMetric, _, err := e.Run(ctx)
	if err != nil {
		return err
	}
	result := "draw"
	if winner != "" {
		result = winner + " wins"
	}
	fmt.Fprintln(out, out.String(fmt.Sprintf("%s after %d moves in %s", result, gameMetric.TotalMoves, gameMetric.Duration.Round(time.Millisecond))).
		Foreground(out.Color("2")))
	return nil
}

func speedup(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext(cmd)
	defer cancel()

	reg := prometheus.NewRegistry()
	collector, err := metrics.NewPrometheusCollector(reg)
	if err != nil {
		return err
	}
	setup := experiments.SpeedupSetup{
		Workers:   workerSteps,
		Runs:      runs,
		Duration:  experimentDuration(),
		OutDir:    outDir,
		Collector: collector,
	}
	if config.Seed != nil {
		setup.Seed = *config.Seed
	}

	switch gameName {
	case "nim":
		nim, err := game.NewNim(nimTarget)
		if err != nil {
			return err
		}
		_, err = experiments.RunSpeedupExperiment[int](ctx, nim, setup)
		if err != nil {
			return err
		}
	case "tictactoe":
		if _, err := experiments.RunSpeedupExperiment[int](ctx, game.NewTicTacToe(), setup); err != nil {
			return err
		}
	case "chess":
		board, err := newChess()
		if err != nil {
			return err
		}
		if _, err := experiments.RunSpeedupExperiment[string](ctx, board, setup); err != nil {
			return err
		}
	default:
		return errors.Errorf("unknown game %q", gameName)
	}
	return logRegistry(reg)
}

// logRegistry reports the collected Prometheus series once the experiment is done.
func logRegistry(reg *prometheus.Registry) error {
	families, err := reg.Gather()
	if err != nil {
		return errors.Wrap(err, "gather metrics")
	}
	for _, family := range families {
		for _, m := range family.GetMetric() {
			switch {
			case m.GetCounter() != nil:
				log.Info().Str("metric", family.GetName()).Float64("value", m.GetCounter().GetValue()).Msg("search metric")
			case m.GetGauge() != nil:
				log.Info().Str("metric", family.GetName()).Float64("value", m.GetGauge().GetValue()).Msg("search metric")
			case m.GetHistogram() != nil:
				h := m.GetHistogram()
				log.Info().Str("metric", family.GetName()).Uint64("count", h.GetSampleCount()).Float64("sum", h.GetSampleSum()).Msg("search metric")
			}
		}
	}
	return nil
}

func strength(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext(cmd)
	defer cancel()

	setup := experiments.StrengthSetup{
		Workers:  workerSteps,
		NumGames: numGames,
		Duration: experimentDuration(),
		MaxMoves: config.MaxTurns,
		OutDir:   outDir,
	}
	if config.Seed != nil {
		setup.Seed = *config.Seed
	}

	var records []experiments.StrengthRecord
	var err error
	switch gameName {
	case "nim":
		if _, err := game.NewNim(nimTarget); err != nil {
			return err
		}
		records, err = experiments.RunStrengthExperiment(ctx, func() game.Game[int] {
			nim, _ := game.NewNim(nimTarget)
			return nim
		}, setup)
	case "tictactoe":
		records, err = experiments.RunStrengthExperiment(ctx, func() game.Game[int] { return game.NewTicTacToe() }, setup)
	case "chess":
		if _, err := newChess(); err != nil {
			return err
		}
		records, err = experiments.RunStrengthExperiment(ctx, func() game.Game[string] {
			board, _ := newChess()
			return board
		}, setup)
	default:
		return errors.Errorf("unknown game %q", gameName)
	}
	if err != nil {
		return err
	}

	out := termenv.NewOutput(cmd.OutOrStdout())
	for _, record := range records {
		fmt.Fprintln(out, out.String(fmt.Sprintf("workers=%d wins=%d draws=%d losses=%d score=%.2f mean_moves=%.1f",
			record.Workers, record.Wins, record.Draws, record.Losses, record.Score(), record.MeanMoves)))
	}
	return nil
}

// experimentDuration is the per-move time budget of the experiments, which compare
// workers under equal time.
func experimentDuration() time.Duration {
	if config.Duration > 0 {
		return config.Duration
	}
	return experiments.TimeBudget
}

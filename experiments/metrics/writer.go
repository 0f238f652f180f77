package metrics

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/pkg/errors"
)

type AgentConfig struct {
	ID                  int
	Kind                string // "mcts" or "random"
	Workers             int
	Duration            time.Duration
	Iterations          int
	ExplorationConstant float64
}

type GameRecord struct {
	ID     int
	Agent1 int // AgentConfig.ID
	Agent2 int // AgentConfig.ID
	GameMetric
}

type MoveRecord struct {
	Game int // GameRecord.ID
	MoveMetric
}

// SpeedupRecord summarises the throughput of one worker count over repeated runs.
type SpeedupRecord struct {
	Workers        int
	Runs           int
	MeanCycles     float64
	StdDevCycles   float64
	CyclesPerSec   float64
	Speedup        float64 // Relative to the single-worker throughput
	MeanTreeDepth  float64
	MeanRolloutMax float64
}

type Writer struct {
	baseDir string
}

// NewWriter creates root/experiment/<timestamp> and writes every file there.
func NewWriter(root, experiment string) (*Writer, error) {
	timestamp := time.Now().UTC().Format("20060102T150405Z")
	baseDir := filepath.Join(root, experiment, timestamp)
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, errors.Wrap(err, "failed to create directory")
	}
	return &Writer{baseDir: baseDir}, nil
}

func (w *Writer) Dir() string {
	return w.baseDir
}

func (w *Writer) write(name string, header []string, rows [][]string) error {
	f, err := os.Create(filepath.Join(w.baseDir, name))
	if err != nil {
		return errors.Wrapf(err, "failed to create %s", name)
	}
	defer f.Close()

	writer := csv.NewWriter(f)
	if err := writer.Write(header); err != nil {
		return errors.Wrapf(err, "failed to write %s header", name)
	}
	if err := writer.WriteAll(rows); err != nil {
		return errors.Wrapf(err, "failed to write %s rows", name)
	}
	return nil
}

func (w *Writer) WriteAgentConfigs(configs []AgentConfig) error {
	header := []string{"id", "kind", "workers", "duration", "iterations", "exploration_constant"}
	rows := make([][]string, 0, len(configs))
	for _, config := range configs {
		rows = append(rows, []string{
			strconv.Itoa(config.ID),
			config.Kind,
			strconv.Itoa(config.Workers),
			config.Duration.String(),
			strconv.Itoa(config.Iterations),
			strconv.FormatFloat(config.ExplorationConstant, 'f', 4, 64),
		})
	}
	return w.write("agent_configs.csv", header, rows)
}

func (w *Writer) WriteGameRecords(records []GameRecord) error {
	header := []string{"id", "agent1", "agent2", "starting_player", "winner", "start_time", "end_time", "duration", "total_moves"}
	rows := make([][]string, 0, len(records))
	for _, record := range records {
		rows = append(rows, []string{
			strconv.Itoa(record.ID),
			strconv.Itoa(record.Agent1),
			strconv.Itoa(record.Agent2),
			record.StartingPlayer,
			record.Winner,
			record.StartTime.Format(time.RFC3339),
			record.EndTime.Format(time.RFC3339),
			record.Duration.String(),
			strconv.Itoa(record.TotalMoves),
		})
	}
	return w.write("game_records.csv", header, rows)
}

func (w *Writer) WriteMoveRecords(records []MoveRecord) error {
	header := []string{"game", "step", "player", "move", "run_id", "workers", "duration", "episodes", "expansions", "full_playouts", "max_rollout_depth"}
	rows := make([][]string, 0, len(records))
	for _, record := range records {
		rows = append(rows, []string{
			strconv.Itoa(record.Game),
			strconv.Itoa(record.Step),
			record.Player,
			record.Move,
			record.RunID,
			strconv.Itoa(record.Workers),
			record.Duration.String(),
			strconv.Itoa(record.Episodes),
			strconv.Itoa(record.Expansions),
			strconv.Itoa(record.FullPlayouts),
			strconv.Itoa(record.MaxRolloutDepth),
		})
	}
	return w.write("move_records.csv", header, rows)
}

func (w *Writer) WriteSpeedupRecords(records []SpeedupRecord) error {
	header := []string{"workers", "runs", "mean_cycles", "stddev_cycles", "cycles_per_sec", "speedup", "mean_tree_depth", "mean_rollout_max"}
	format := func(v float64) string { return strconv.FormatFloat(v, 'f', 3, 64) }
	rows := make([][]string, 0, len(records))
	for _, record := range records {
		rows = append(rows, []string{
			strconv.Itoa(record.Workers),
			strconv.Itoa(record.Runs),
			format(record.MeanCycles),
			format(record.StdDevCycles),
			format(record.CyclesPerSec),
			format(record.Speedup),
			format(record.MeanTreeDepth),
			format(record.MeanRolloutMax),
		})
	}
	return w.write("speedup.csv", header, rows)
}

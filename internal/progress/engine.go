// Package progress derives construction stage status from submitted reports.
//
// The catalog order is the only notion of sequence. The latest reported stage
// is In Progress, everything before it is Completed and everything after it
// is Not Started. A single report naming the terminal stage completes the
// whole catalog unless that override is disabled.
package progress

import (
	"log/slog"

	"buildtrack/internal/sanitizer"
	"buildtrack/pkg/contracts/domain"
)

// Engine computes stage progress.
type Engine struct {
	logger           *slog.Logger
	terminalStage    string
	terminalOverride bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithTerminalOverride enables or disables completing every stage when a
// report names the terminal stage.
func WithTerminalOverride(enabled bool) Option {
	return func(e *Engine) { e.terminalOverride = enabled }
}

// WithTerminalStage changes the designated terminal stage name.
func WithTerminalStage(name string) Option {
	return func(e *Engine) {
		if name != "" {
			e.terminalStage = name
		}
	}
}

// NewEngine creates an Engine with the terminal override enabled.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		logger:           slog.Default(),
		terminalStage:    TerminalStage,
		terminalOverride: true,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.With(slog.String("component", "progress"))
	return e
}

// Compute returns a copy of catalog annotated with status and progress. The
// input catalog is not modified.
func (e *Engine) Compute(catalog []domain.Stage, reports []domain.Report) []domain.Stage {
	keys := Flatten(catalog)
	position := make(map[string]int, len(keys))
	for i, k := range keys {
		position[stageKey(k)] = i
	}
	terminal := stageKey(e.terminalStage)

	latest := -1
	terminalSeen := false
	for _, r := range reports {
		if r.Stage == "" {
			continue
		}
		key := stageKey(r.Stage)
		idx, ok := position[key]
		if !ok {
			continue
		}
		if key == terminal {
			terminalSeen = true
		}
		if idx > latest {
			latest = idx
		}
	}

	out := reset(catalog)
	if latest < 0 {
		return out
	}

	if terminalSeen && e.terminalOverride {
		e.logOverride(keys, reports, position, terminal)
		latest = len(keys) - 1
		return annotate(out, latest, true)
	}
	return annotate(out, latest, false)
}

// logOverride warns when the terminal stage jumps over stages nobody
// reported reaching.
func (e *Engine) logOverride(keys []string, reports []domain.Report, position map[string]int, terminal string) {
	highest := -1
	for _, r := range reports {
		key := stageKey(r.Stage)
		if key == terminal {
			continue
		}
		if idx, ok := position[key]; ok && idx > highest {
			highest = idx
		}
	}
	terminalIdx := position[terminal]
	if highest >= 0 && highest < terminalIdx-1 {
		e.logger.Warn("terminal stage reported ahead of intermediate stages",
			slog.String("terminal_stage", e.terminalStage),
			slog.String("highest_reported_stage", keys[highest]),
			slog.Int("skipped_stages", terminalIdx-highest-1))
	}
}

// stageKey is the form a stage name takes after report sanitization. Catalog
// names and reported names are both compared in this form, so a catalog entry
// such as "Door & Window Work" matches the cleaned "Door Window Work".
func stageKey(name string) string {
	return sanitizer.Text(name)
}

// annotate walks the unflattened catalog assigning status by flattened
// position. When all is set the stage at latest is Completed as well.
func annotate(catalog []domain.Stage, latest int, all bool) []domain.Stage {
	pos := 0
	set := func(s *domain.Stage) {
		switch {
		case pos < latest, pos == latest && all:
			s.Status, s.Progress = domain.StageCompleted, domain.ProgressCompleted
		case pos == latest:
			s.Status, s.Progress = domain.StageInProgress, domain.ProgressInProgress
		default:
			s.Status, s.Progress = domain.StageNotStarted, domain.ProgressNotStarted
		}
		pos++
	}
	for i := range catalog {
		if catalog[i].IsGroup() {
			for j := range catalog[i].SubStages {
				set(&catalog[i].SubStages[j])
			}
			continue
		}
		set(&catalog[i])
	}
	return catalog
}

// Summarize reports overall completion as the mean progress of the flattened
// stages, and names the stage currently In Progress.
func Summarize(stages []domain.Stage) domain.ProgressSummary {
	var summary domain.ProgressSummary
	var sum int
	visit := func(name string, s domain.Stage) {
		summary.Total++
		sum += s.Progress
		switch s.Status {
		case domain.StageCompleted:
			summary.Completed++
		case domain.StageInProgress:
			summary.CurrentStage = name
		}
	}
	for _, s := range stages {
		if s.IsGroup() {
			for _, sub := range s.SubStages {
				visit(s.Name+GroupSeparator+sub.Name, sub)
			}
			continue
		}
		visit(s.Name, s)
	}
	if summary.Total > 0 {
		summary.Percent = float64(sum) / float64(summary.Total)
	}
	return summary
}

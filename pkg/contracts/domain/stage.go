package domain

// StageStatus is the completion state of a construction stage.
type StageStatus string

const (
	StageNotStarted StageStatus = "Not Started"
	StageInProgress StageStatus = "In Progress"
	StageCompleted  StageStatus = "Completed"
)

// Progress values attached to each status.
const (
	ProgressNotStarted = 0
	ProgressInProgress = 50
	ProgressCompleted  = 100
)

// Stage is a catalog entry. A stage with SubStages is a group; its own
// status is not tracked, only those of its sub-stages.
type Stage struct {
	Name      string      `json:"name" yaml:"name"`
	Status    StageStatus `json:"status" yaml:"-"`
	Progress  int         `json:"progress" yaml:"-"`
	SubStages []Stage     `json:"sub_stages,omitempty" yaml:"sub_stages,omitempty"`
}

// IsGroup reports whether the stage holds sub-stages.
func (s Stage) IsGroup() bool {
	return len(s.SubStages) > 0
}

// ProgressSummary condenses a computed catalog.
type ProgressSummary struct {
	Percent      float64 `json:"percent"`
	CurrentStage string  `json:"current_stage,omitempty"`
	Completed    int     `json:"completed"`
	Total        int     `json:"total"`
}

package progress

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"

	"buildtrack/pkg/contracts/domain"
)

// TerminalStage is the stage name that marks a project finished.
const TerminalStage = "Completed"

// GroupSeparator joins a group name and a sub-stage name into a flattened key.
const GroupSeparator = " - "

// DefaultCatalog returns the construction stage catalog with every stage
// Not Started.
func DefaultCatalog() []domain.Stage {
	return reset([]domain.Stage{
		{Name: "Layout & Drawings", SubStages: []domain.Stage{
			{Name: "Site Survey"},
			{Name: "Architectural Drawings"},
			{Name: "Structural Drawings"},
			{Name: "Municipal Approval"},
		}},
		{Name: "Site Preparation"},
		{Name: "Excavation"},
		{Name: "Foundation Work"},
		{Name: "Plinth Work"},
		{Name: "Superstructure Work"},
		{Name: "Roof Work"},
		{Name: "Flooring Work"},
		{Name: "Plastering"},
		{Name: "Door & Window Work"},
		{Name: "Electrical & Plumbing Work"},
		{Name: "Painting & Finishing Work"},
		{Name: TerminalStage},
	})
}

type catalogFile struct {
	Stages []domain.Stage `yaml:"stages"`
}

// LoadCatalog reads a catalog from a YAML file of the form
//
//	stages:
//	  - name: Layout
//	    sub_stages:
//	      - name: Survey
//	  - name: Excavation
func LoadCatalog(path string) ([]domain.Stage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read stage catalog: %w", err)
	}
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse stage catalog: %w", err)
	}
	if err := ValidateCatalog(file.Stages); err != nil {
		return nil, err
	}
	return reset(file.Stages), nil
}

// ValidateCatalog checks that flattened names are unique and non-empty and
// that at most one group exists. Names that only differ in characters removed
// by report sanitization count as duplicates.
func ValidateCatalog(catalog []domain.Stage) error {
	if len(catalog) == 0 {
		return fmt.Errorf("stage catalog is empty")
	}
	groups := 0
	seen := make(map[string]bool)
	for _, s := range catalog {
		if s.Name == "" {
			return fmt.Errorf("stage catalog has an unnamed stage")
		}
		if s.IsGroup() {
			groups++
			for _, sub := range s.SubStages {
				if sub.IsGroup() {
					return fmt.Errorf("stage %q: nested groups are not supported", s.Name)
				}
			}
		}
	}
	if groups > 1 {
		return fmt.Errorf("stage catalog has %d groups, at most one is allowed", groups)
	}
	for _, key := range Flatten(catalog) {
		if seen[stageKey(key)] {
			return fmt.Errorf("duplicate stage %q", key)
		}
		seen[stageKey(key)] = true
	}
	return nil
}

// Flatten lists stage identifiers in catalog order. Sub-stages appear under
// their composite key.
func Flatten(catalog []domain.Stage) []string {
	var keys []string
	for _, s := range catalog {
		if s.IsGroup() {
			for _, sub := range s.SubStages {
				keys = append(keys, s.Name+GroupSeparator+sub.Name)
			}
			continue
		}
		keys = append(keys, s.Name)
	}
	return keys
}

// reset returns a deep copy of catalog with every stage Not Started.
func reset(catalog []domain.Stage) []domain.Stage {
	out := make([]domain.Stage, len(catalog))
	for i, s := range catalog {
		out[i] = domain.Stage{Name: s.Name}
		if s.IsGroup() {
			out[i].SubStages = reset(s.SubStages)
			continue
		}
		out[i].Status = domain.StageNotStarted
		out[i].Progress = domain.ProgressNotStarted
	}
	return out
}

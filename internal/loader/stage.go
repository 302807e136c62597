package loader

// Stage is a step of the per-year state machine.
type Stage string

const (
	StageLocatingFiles  Stage = "locating_files"
	StageReading        Stage = "reading"
	StageNormalizing    Stage = "normalizing"
	StageCleaning       Stage = "cleaning"
	StageDerivingFields Stage = "enriching_derived_fields"
	StageJoining        Stage = "joining"
	StageDone           Stage = "done"
	StageFailed         Stage = "failed"
)

// stageOrder lists the forward transitions. Failed is reachable from any
// stage and is terminal, like Done.
var stageOrder = []Stage{
	StageLocatingFiles,
	StageReading,
	StageNormalizing,
	StageCleaning,
	StageDerivingFields,
	StageJoining,
	StageDone,
}

// IsTerminal reports whether no transition leaves s.
func (s Stage) IsTerminal() bool {
	return s == StageDone || s == StageFailed
}

// CanTransition reports whether the state machine allows from -> to.
func CanTransition(from, to Stage) bool {
	if from.IsTerminal() {
		return false
	}
	if to == StageFailed {
		return true
	}
	for i, s := range stageOrder {
		if s == from {
			return i+1 < len(stageOrder) && stageOrder[i+1] == to
		}
	}
	return false
}

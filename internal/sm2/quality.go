package sm2

// Signals carries the raw presentation-layer measurements for one answer.
// Callers map these onto the 0-5 quality scale before scoring; the engine
// itself only accepts the normalized grade.
type Signals struct {
	// Share of the answer that was correct, 0.0-1.0
	Accuracy float64
	// Whether the learner revealed a hint before answering
	UsedHint bool
	// Seconds between presentation and answer
	ResponseSeconds float64
}

// Thresholds below which a correct answer counts as instant or hesitant.
const (
	instantResponseSeconds  = 5.0
	hesitantResponseSeconds = 15.0
)

// GradeSignals maps raw answer signals onto the SM-2 quality scale.
// A fully wrong answer is a blackout; partially correct answers land in the
// failing grades; fully correct answers are graded by speed, with hint use
// costing one grade.
func GradeSignals(s Signals) Quality {
	if s.Accuracy <= 0 {
		return QualityBlackout
	}
	if s.Accuracy < 0.5 {
		return QualityIncorrect
	}
	if s.Accuracy < 1.0 {
		return QualityIncorrectFamiliar
	}

	grade := QualityCorrectDifficult
	if s.ResponseSeconds <= hesitantResponseSeconds {
		grade = QualityCorrectHesitation
	}
	if s.ResponseSeconds <= instantResponseSeconds {
		grade = QualityPerfect
	}
	if s.UsedHint && grade > QualityCorrectDifficult {
		grade--
	}
	return grade
}

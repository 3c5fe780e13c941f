package model

// FieldSpec is one observed form field: identifier, label, type and the
// value it currently holds, if any. Supplied by the form-driving collaborator.
type FieldSpec struct {
	ID       string   `json:"id"`
	Label    string   `json:"label"`
	Type     string   `json:"type"` // text, select, radio, checkbox, ...
	Required bool     `json:"required"`
	Value    string   `json:"value"` // current value; non-empty means pre-filled
	Options  []string `json:"options,omitempty"`
}

// FillAction says what to do with one form field.
type FillAction string

const (
	ActionFill           FillAction = "fill"
	ActionSkipPrefilled  FillAction = "skip_prefilled"
	ActionSkipUnanswered FillAction = "skip_unanswered"
)

// FillStep is one entry of a fill plan, in form order.
type FillStep struct {
	FieldID string
	Value   string
	Action  FillAction
}

// FillPlan is the deterministic output of the form-filling decision engine
// for one job: the per-field steps plus the fields nobody can answer.
type FillPlan struct {
	JobID       string
	AnswerSetID string
	Steps       []FillStep
	Unanswered  []string
	Confidence  float64
	NeedsReview bool
}

// FillReport is what the form driver reports back after executing a plan.
type FillReport struct {
	FieldsFilled   int
	StepsCompleted int
	ReachedSubmit  bool
	Submitted      bool
	Error          string
}

package portal

import "parkgate/internal/models"

// Step names the three portal screens.
type Step string

const (
	StepLookup  Step = "lookup"
	StepSummary Step = "summary"
	StepReceipt Step = "receipt"
)

// State is the sealed set of portal states. An error is never a state of its
// own; it is a transient notice on Lookup or Summary.
type State interface {
	Step() Step
	sealed()
}

// Lookup is the initial plate-entry screen.
type Lookup struct {
	Notice string
}

// Summary shows the quote and waits for the visitor to pay.
type Summary struct {
	Session *models.Session
	Quote   *models.Quote
	Notice  string
}

// Receipt is terminal: the session is paid or closed. No transition leaves it
// within a single page lifetime.
type Receipt struct {
	Session *models.Session
}

func (Lookup) Step() Step  { return StepLookup }
func (Summary) Step() Step { return StepSummary }
func (Receipt) Step() Step { return StepReceipt }

func (Lookup) sealed()  {}
func (Summary) sealed() {}
func (Receipt) sealed() {}

// internal/wizard/context.go
package wizard

import (
	"github.com/xkilldash9x/quotehound/api/schemas"
	"github.com/xkilldash9x/quotehound/internal/config"
)

// StepContext is the immutable per-run bundle handed to the orchestrator: the
// page session, the bounded-wait policy, the applicant profile, and the
// caller-supplied vehicle identity. Created once per run and read-only
// thereafter, so the orchestrator is a pure function of context plus page
// state.
type StepContext struct {
	Page     schemas.PageSession
	StartURL string
	Profile  config.ProfileConfig
	Waits    config.NetworkConfig
	Vehicle  schemas.VehicleSpec
}

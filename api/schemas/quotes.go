// api/schemas/quotes.go
package schemas

// PlanTier identifies one of the three fixed coverage tiers presented on the
// results page.
type PlanTier string

const (
	TierMinimum PlanTier = "minimum"
	TierBasic   PlanTier = "basic"
	TierBetter  PlanTier = "better"
)

// QuoteRecord is one scraped carrier quote. Records are only created when a
// price was actually extracted; a card without a settled price yields no
// record at all.
type QuoteRecord struct {
	Company                 string   `json:"company"`
	Price                   string   `json:"price"`
	BodilyInjury            string   `json:"bodily_injury"`
	ComprehensiveDeductible string   `json:"comprehensive_deductible,omitempty"`
	PlanTier                PlanTier `json:"plan_type"`
}

// DropdownSelection records the outcome of one searchable-dropdown
// interaction.
type DropdownSelection struct {
	// Attempted is false when the protocol was skipped, e.g. because the
	// field already carried a value.
	Attempted bool
	// Succeeded is true when the confirmation action completed.
	Succeeded bool
	// ConfirmedValue is the value displayed by the widget, when known.
	ConfirmedValue string
}

// VehicleSpec carries the caller-supplied vehicle identity. The vehicle
// selection stage runs only when all three fields are present.
type VehicleSpec struct {
	Year  string `json:"year,omitempty"`
	Make  string `json:"make,omitempty"`
	Model string `json:"model,omitempty"`
}

// Complete reports whether every vehicle field was supplied.
func (v VehicleSpec) Complete() bool {
	return v.Year != "" && v.Make != "" && v.Model != ""
}

// StartRequest is the body of POST /start.
type StartRequest struct {
	Year  string `json:"year,omitempty"`
	Make  string `json:"make,omitempty"`
	Model string `json:"model,omitempty"`
}

// QuoteReport is the successful response of POST /start: per-tier record
// collections plus their counts.
type QuoteReport struct {
	MinimumPlanQuotes []QuoteRecord `json:"minimum_plan_quotes"`
	BasicPlanQuotes   []QuoteRecord `json:"basic_plan_quotes"`
	BetterPlanQuotes  []QuoteRecord `json:"better_plan_quotes"`
	MinimumCount      int           `json:"minimum_quotes_count"`
	BasicCount        int           `json:"basic_quotes_count"`
	BetterCount       int           `json:"better_quotes_count"`
}

// ErrorResponse is the structured failure payload returned by every endpoint.
type ErrorResponse struct {
	Status    string `json:"status"`
	Message   string `json:"message"`
	ErrorType string `json:"error_type,omitempty"`
}

// StatusResponse is the response of GET /status.
type StatusResponse struct {
	Status     string `json:"status"`
	CurrentURL string `json:"current_url,omitempty"`
	Title      string `json:"title,omitempty"`
	Message    string `json:"message,omitempty"`
}

// StopResponse is the response of POST /stop.
type StopResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

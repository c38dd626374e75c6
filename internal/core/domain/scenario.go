package domain

// Scenario is a training-scenario catalog entry. The catalog is static;
// scenarios are looked up by identifier and never mutated.
type Scenario struct {
	ID          string         `json:"id"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	TimeMinutes int            `json:"time"`
	Difficulty  string         `json:"difficulty"`
	Locked      bool           `json:"locked"`
	Category    string         `json:"category"`
	Stars       int            `json:"stars"`
	CompletedBy int            `json:"completedBy"`
	Steps       []ScenarioStep `json:"steps"`
}

// ScenarioStep is one guided step inside a scenario.
type ScenarioStep struct {
	ID          int    `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Completed   bool   `json:"completed"`
}

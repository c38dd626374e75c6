// Package catalog holds the static training-scenario catalog.
package catalog

import "github.com/rangelab/rangectl/internal/core/domain"

// Catalog is an in-memory, read-only scenario lookup.
type Catalog struct {
	scenarios []domain.Scenario
	byID      map[string]domain.Scenario
}

// NewCatalog builds the catalog from the built-in scenario set.
func NewCatalog() *Catalog {
	return newCatalogWith(builtinScenarios())
}

func newCatalogWith(scenarios []domain.Scenario) *Catalog {
	c := &Catalog{
		scenarios: scenarios,
		byID:      make(map[string]domain.Scenario, len(scenarios)),
	}
	for _, s := range scenarios {
		c.byID[s.ID] = s
	}
	return c
}

// Get looks a scenario up by identifier.
func (c *Catalog) Get(id string) (domain.Scenario, bool) {
	s, ok := c.byID[id]
	return s, ok
}

// List returns every scenario in catalog order.
func (c *Catalog) List() []domain.Scenario {
	out := make([]domain.Scenario, len(c.scenarios))
	copy(out, c.scenarios)
	return out
}

func builtinScenarios() []domain.Scenario {
	return []domain.Scenario{
		{
			ID:          "apt28-part1",
			Title:       "APT28: Link to Trouble - Part 1",
			Description: "Here at TryGovMe, our partners have been consistently targeted by APT28 over the past few weeks and we are now under pressure to investigate.",
			TimeMinutes: 15,
			Difficulty:  "Easy",
			Category:    "Network Security",
			Stars:       3,
			CompletedBy: 1250,
			Steps: []domain.ScenarioStep{
				{ID: 1, Title: "Initial Compromise", Description: "Gain initial access to the target system."},
				{ID: 2, Title: "Establish Foothold", Description: "Deploy persistence mechanisms."},
				{ID: 3, Title: "Privilege Escalation", Description: "Gain higher privileges on the system."},
			},
		},
		{
			ID:          "apt28-part2",
			Title:       "APT28: Link to Trouble - Part 2",
			Description: "Our worst fears have been confirmed. We have discovered that TryGovMe has also been compromised by APT28. It is time to investigate.",
			TimeMinutes: 15,
			Difficulty:  "Easy",
			Category:    "Network Security",
			Stars:       3,
			CompletedBy: 980,
			Steps: []domain.ScenarioStep{
				{ID: 1, Title: "Analyze the malware", Description: "Reverse engineer the malware to understand its capabilities."},
				{ID: 2, Title: "Identify the C2 server", Description: "Find the command and control server."},
			},
		},
		{
			ID:          "apt28-part3",
			Title:       "APT28: Link to Trouble - Part 3",
			Description: "Our team has determined that the attacker has successfully established communication with a host within the network infrastructure.",
			TimeMinutes: 15,
			Difficulty:  "Easy",
			Category:    "Network Security",
			Stars:       3,
			CompletedBy: 750,
		},
		{
			ID:          "apt28-part4",
			Title:       "APT28: Link to Trouble - Part 4",
			Description: "APT28 continues to move deeper, step by step gaining a clearer understanding of what the TryGovMe organisation is built upon.",
			TimeMinutes: 15,
			Difficulty:  "Easy",
			Locked:      true,
			Category:    "Network Security",
			Stars:       3,
			CompletedBy: 450,
		},
		{
			ID:          "web-exploit-1",
			Title:       "SQL Injection Masterclass",
			Description: "Learn advanced SQL injection techniques and how to exploit vulnerable web applications in a controlled environment.",
			TimeMinutes: 45,
			Difficulty:  "Medium",
			Category:    "Web Security",
			Stars:       4,
			CompletedBy: 2100,
		},
		{
			ID:          "forensics-1",
			Title:       "Digital Crime Scene Investigation",
			Description: "Analyze digital evidence from a compromised system and reconstruct the attack timeline using forensic tools.",
			TimeMinutes: 60,
			Difficulty:  "Hard",
			Category:    "Forensics",
			Stars:       5,
			CompletedBy: 320,
		},
		{
			ID:          "malware-1",
			Title:       "Reverse Engineering Challenge",
			Description: "Dissect malicious software to understand its behavior and develop countermeasures.",
			TimeMinutes: 90,
			Difficulty:  "Hard",
			Locked:      true,
			Category:    "Malware Analysis",
			Stars:       5,
			CompletedBy: 180,
		},
		{
			ID:          "social-eng-1",
			Title:       "Phishing Campaign Analysis",
			Description: "Investigate a sophisticated phishing campaign and trace the attack vectors used by threat actors.",
			TimeMinutes: 30,
			Difficulty:  "Medium",
			Category:    "Social Engineering",
			Stars:       4,
			CompletedBy: 890,
		},
	}
}

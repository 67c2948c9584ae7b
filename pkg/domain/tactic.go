package domain

// TacticItem is one entry of the structured tactic array.
// Field tags follow the wire contract; mapstructure tags are used when
// decoding loosely typed oracle output.
type TacticItem struct {
	Name               string   `json:"name" mapstructure:"name"`
	Purpose            string   `json:"purpose,omitempty" mapstructure:"purpose"`
	Rationale          string   `json:"rationale" mapstructure:"rationale"`
	Categories         []string `json:"categories" mapstructure:"categories"`
	Risks              []string `json:"risks" mapstructure:"risks"`
	Tradeoffs          []string `json:"tradeoffs" mapstructure:"tradeoffs"`
	TracesToArtifact   string   `json:"tracesToArtifact,omitempty" mapstructure:"tracesToArtifact"`
	ExpectedEffect     string   `json:"expectedEffect,omitempty" mapstructure:"expectedEffect"`
	SuccessProbability float64  `json:"successProbability" mapstructure:"successProbability"`
	Rank               int      `json:"rank" mapstructure:"rank"`
}

// DefaultSuccessProbability is assigned when the source gives no estimate.
const DefaultSuccessProbability = 0.5

// CloneTactics deep-copies a tactic array.
func CloneTactics(items []TacticItem) []TacticItem {
	out := make([]TacticItem, len(items))
	for i, it := range items {
		out[i] = it
		out[i].Categories = append([]string(nil), it.Categories...)
		out[i].Risks = append([]string(nil), it.Risks...)
		out[i].Tradeoffs = append([]string(nil), it.Tradeoffs...)
	}
	return out
}

// TacticNames returns the names in array order.
func TacticNames(items []TacticItem) []string {
	names := make([]string, 0, len(items))
	for _, it := range items {
		if it.Name != "" {
			names = append(names, it.Name)
		}
	}
	return names
}

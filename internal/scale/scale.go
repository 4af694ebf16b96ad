package scale

// Table maps a raw correct-count to a scaled score for one scored group.
// Lookup is exact-match; a raw count with no entry yields Floor.
type Table struct {
	Group string
	Floor int
	ByRaw map[int]int
}

// Score converts one raw count.
func (t Table) Score(raw int) int {
	if s, ok := t.ByRaw[raw]; ok {
		return s
	}
	return t.Floor
}

// GroupScore is one group's slice of the breakdown.
type GroupScore struct {
	Raw    int `json:"raw"`
	Scaled int `json:"scaled"`
}

// Breakdown is the structured scaled-score result stored on a practice test
// attempt.
type Breakdown struct {
	Groups map[string]GroupScore `json:"groups"`
	Total  int                   `json:"total"`
}

// Convert maps each group's raw count through its table and sums the scaled
// scores. Groups with raw counts but no table are scored at zero and omitted
// from the total; pure function, no side effects.
func Convert(tables map[string]Table, raw map[string]int) Breakdown {
	out := Breakdown{Groups: make(map[string]GroupScore, len(raw))}
	for group, count := range raw {
		t, ok := tables[group]
		if !ok {
			continue
		}
		scaled := t.Score(count)
		out.Groups[group] = GroupScore{Raw: count, Scaled: scaled}
		out.Total += scaled
	}
	return out
}

var registry = map[string]map[string]Table{}

// Register binds a table set to a profile key like "sat.v1". Call from init()
// in profile files.
func Register(profile string, tables map[string]Table) { registry[profile] = tables }

// Lookup returns the registered table set for a profile.
func Lookup(profile string) (map[string]Table, bool) {
	t, ok := registry[profile]
	return t, ok
}

package consent

// Response is one topic rating inside a consent form.
type Response struct {
	Category  string
	TopicName string
	Rating    Rating
	IsCustom  bool
}

// TopicKey identifies a topic for aggregation. Two responses belong to the same group
// only when both strings are byte-for-byte equal; IsCustom plays no part.
type TopicKey struct {
	Category  string
	TopicName string
}

// TopicSummary is the anonymous verdict for one topic. Its shape is the same whether one
// player or many contributed to it.
type TopicSummary struct {
	Status      Status `json:"status"`
	RedCount    int    `json:"red_count"`
	YellowCount int    `json:"yellow_count"`
	GreenCount  int    `json:"green_count"`
	TotalCount  int    `json:"total_responses"`
	IsCustom    bool   `json:"is_custom"`
}

// Report maps category -> topic name -> summary. Only topics present in at least one
// shared form appear.
type Report map[string]map[string]TopicSummary

// Topics returns the number of topic groups in the report.
func (r Report) Topics() int {
	n := 0
	for _, topics := range r {
		n += len(topics)
	}
	return n
}

// Snapshot is everything the engine needs for one game, read in a single consistent pass.
// Responses is keyed by form id.
type Snapshot struct {
	MinimumPlayers int
	Roster         []RosterEntry
	Responses      map[uint][]Response
}

// Result bundles the gate decision with the report so callers never have to infer
// eligibility from an empty report.
type Result struct {
	CanDisclose           bool     `json:"can_disclose"`
	MeetsMinimumThreshold bool     `json:"meets_minimum_threshold"`
	Progress              Progress `json:"progress"`
	Report                Report   `json:"report"`
}

// Evaluate runs the gate and, when it is open, the aggregation.
func Evaluate(snap Snapshot) Result {
	return Result{
		CanDisclose:           CanDisclose(snap.Roster, snap.MinimumPlayers),
		MeetsMinimumThreshold: MeetsMinimumThreshold(snap.Roster, snap.MinimumPlayers),
		Progress:              ShareProgress(snap.Roster, snap.MinimumPlayers),
		Report:                Aggregate(snap),
	}
}

// Aggregate combines every shared form's responses into a Report. When the disclosure
// gate is closed it returns an empty report; no topic is ever partially revealed.
func Aggregate(snap Snapshot) Report {
	report := Report{}
	if !CanDisclose(snap.Roster, snap.MinimumPlayers) {
		return report
	}

	tallies := make(map[TopicKey]*tally)
	for _, formID := range SharedFormIDs(snap.Roster) {
		for _, resp := range snap.Responses[formID] {
			key := TopicKey{Category: resp.Category, TopicName: resp.TopicName}
			t, ok := tallies[key]
			if !ok {
				t = &tally{}
				tallies[key] = t
			}
			t.add(resp)
		}
	}

	for key, t := range tallies {
		topics, ok := report[key.Category]
		if !ok {
			topics = make(map[string]TopicSummary)
			report[key.Category] = topics
		}
		topics[key.TopicName] = t.summary()
	}
	return report
}

type tally struct {
	red, yellow, green, total int
	custom                    bool
}

func (t *tally) add(resp Response) {
	t.total++
	switch resp.Rating {
	case RatingRed:
		t.red++
	case RatingYellow:
		t.yellow++
	case RatingGreen:
		t.green++
	}
	if resp.IsCustom {
		t.custom = true
	}
}

func (t *tally) summary() TopicSummary {
	return TopicSummary{
		Status:      verdict(t.red, t.yellow),
		RedCount:    t.red,
		YellowCount: t.yellow,
		GreenCount:  t.green,
		TotalCount:  t.total,
		IsCustom:    t.custom,
	}
}

// verdict decides by presence, not majority: one red is a veto.
func verdict(red, yellow int) Status {
	if red > 0 {
		return StatusForbidden
	}
	if yellow > 0 {
		return StatusDiscuss
	}
	return StatusSafe
}

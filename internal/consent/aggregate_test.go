package consent

import (
	"encoding/json"
	"testing"
)

func green(category, topic string) Response {
	return Response{Category: category, TopicName: topic, Rating: RatingGreen}
}

func snapshotOf(minimum int, forms ...[]Response) Snapshot {
	snap := Snapshot{MinimumPlayers: minimum, Responses: map[uint][]Response{}}
	for i, responses := range forms {
		id := uint(i + 1)
		snap.Roster = append(snap.Roster, joined(uint(100+i), formID(id)))
		snap.Responses[id] = responses
	}
	return snap
}

func TestAggregateVetoDominates(t *testing.T) {
	var forms [][]Response
	forms = append(forms, []Response{{Category: "Horror", TopicName: "Gore", Rating: RatingRed}})
	for i := 0; i < 99; i++ {
		forms = append(forms, []Response{green("Horror", "Gore")})
	}

	got := Aggregate(snapshotOf(1, forms...))["Horror"]["Gore"]
	if got.Status != StatusForbidden {
		t.Fatalf("status = %q, want forbidden", got.Status)
	}
	if got.RedCount != 1 || got.GreenCount != 99 || got.TotalCount != 100 {
		t.Fatalf("unexpected counts: %+v", got)
	}
}

func TestAggregateStatusByPresence(t *testing.T) {
	tests := []struct {
		name    string
		ratings []Rating
		want    Status
	}{
		{name: "unanimous green", ratings: []Rating{RatingGreen, RatingGreen, RatingGreen}, want: StatusSafe},
		{name: "yellow beats many greens", ratings: []Rating{RatingGreen, RatingGreen, RatingGreen, RatingGreen, RatingYellow}, want: StatusDiscuss},
		{name: "red beats yellow", ratings: []Rating{RatingYellow, RatingRed}, want: StatusForbidden},
		{name: "single green", ratings: []Rating{RatingGreen}, want: StatusSafe},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var forms [][]Response
			for _, r := range tt.ratings {
				forms = append(forms, []Response{{Category: "Horror", TopicName: "Rats", Rating: r}})
			}
			got := Aggregate(snapshotOf(1, forms...))["Horror"]["Rats"]
			if got.Status != tt.want {
				t.Fatalf("status = %q, want %q", got.Status, tt.want)
			}
			if got.TotalCount != len(tt.ratings) {
				t.Fatalf("total = %d, want %d", got.TotalCount, len(tt.ratings))
			}
			if got.RedCount+got.YellowCount+got.GreenCount != got.TotalCount {
				t.Fatalf("counts do not add up: %+v", got)
			}
		})
	}
}

func TestAggregateMergesCustomAndPredefined(t *testing.T) {
	snap := snapshotOf(2,
		[]Response{{Category: "Horror", TopicName: "Clowns", Rating: RatingGreen, IsCustom: false}},
		[]Response{{Category: "Horror", TopicName: "Clowns", Rating: RatingRed, IsCustom: true}},
	)

	report := Aggregate(snap)
	if report.Topics() != 1 {
		t.Fatalf("expected a single merged group, got %d", report.Topics())
	}
	got := report["Horror"]["Clowns"]
	if got.TotalCount != 2 || !got.IsCustom || got.Status != StatusForbidden {
		t.Fatalf("unexpected merged summary: %+v", got)
	}
}

func TestAggregateIsCaseSensitive(t *testing.T) {
	snap := snapshotOf(2,
		[]Response{green("Relationships", "Romance")},
		[]Response{{Category: "Relationships", TopicName: "romance", Rating: RatingRed, IsCustom: true}},
	)

	topics := Aggregate(snap)["Relationships"]
	if len(topics) != 2 {
		t.Fatalf("expected two distinct topics, got %v", topics)
	}
	if topics["Romance"].Status != StatusSafe || topics["romance"].Status != StatusForbidden {
		t.Fatalf("topics were merged or misrated: %+v", topics)
	}
}

func TestAggregateDoesNotNormalize(t *testing.T) {
	snap := snapshotOf(2,
		[]Response{green("Horror", "Gore")},
		[]Response{green("Horror", "Gore ")},
	)
	if got := Aggregate(snap).Topics(); got != 2 {
		t.Fatalf("expected trailing space to form its own group, got %d groups", got)
	}
}

func TestAggregateNoZeroFill(t *testing.T) {
	snap := snapshotOf(3,
		[]Response{green("Horror", "Spiders"), green("Horror", "Bugs")},
		[]Response{green("Horror", "Bugs")},
		[]Response{green("Horror", "Bugs")},
	)

	report := Aggregate(snap)
	if got := report["Horror"]["Spiders"].TotalCount; got != 1 {
		t.Fatalf("Spiders total = %d, want 1", got)
	}
	if got := report["Horror"]["Bugs"].TotalCount; got != 3 {
		t.Fatalf("Bugs total = %d, want 3", got)
	}
	if _, ok := report["Sex"]; ok {
		t.Fatal("untouched category must not appear")
	}
}

func TestAggregateAllOrNothing(t *testing.T) {
	snap := Snapshot{
		MinimumPlayers: 3,
		Roster: []RosterEntry{
			joined(1, formID(10)),
			joined(2, formID(20)),
			joined(3, nil),
		},
		Responses: map[uint][]Response{
			10: {green("Horror", "Blood")},
			20: {{Category: "Horror", TopicName: "Blood", Rating: RatingRed}},
			30: {{Category: "Horror", TopicName: "Blood", Rating: RatingYellow}},
		},
	}

	result := Evaluate(snap)
	if result.CanDisclose || len(result.Report) != 0 {
		t.Fatalf("expected closed gate and empty report, got %+v", result)
	}

	snap.Roster[2].SharedFormID = formID(30)
	result = Evaluate(snap)
	if !result.CanDisclose {
		t.Fatal("expected gate open once the third player shared")
	}
	got := result.Report["Horror"]["Blood"]
	if got.TotalCount != 3 || got.RedCount != 1 || got.YellowCount != 1 || got.GreenCount != 1 {
		t.Fatalf("report not computed from exactly three forms: %+v", got)
	}
}

func TestAggregatePrivacyFloor(t *testing.T) {
	snap := Snapshot{
		MinimumPlayers: 3,
		Roster:         []RosterEntry{joined(1, formID(10)), joined(2, formID(20))},
		Responses: map[uint][]Response{
			10: {green("Horror", "Blood")},
			20: {green("Horror", "Blood")},
		},
	}
	result := Evaluate(snap)
	if result.CanDisclose || len(result.Report) != 0 {
		t.Fatalf("two players must never disclose under a minimum of three: %+v", result)
	}
	if result.MeetsMinimumThreshold {
		t.Fatal("two shared forms must not meet a minimum of three")
	}
	if result.Progress.Shared != 2 || result.Progress.Joined != 2 {
		t.Fatalf("unexpected progress: %+v", result.Progress)
	}
}

func TestAggregateEmptyFormContributesNothing(t *testing.T) {
	snap := snapshotOf(2,
		[]Response{green("Horror", "Blood")},
		nil,
	)
	report := Aggregate(snap)
	if got := report["Horror"]["Blood"].TotalCount; got != 1 {
		t.Fatalf("total = %d, want 1", got)
	}
}

func TestTopicSummaryShapeIndependentOfCount(t *testing.T) {
	single, err := json.Marshal(TopicSummary{Status: StatusSafe, GreenCount: 1, TotalCount: 1})
	if err != nil {
		t.Fatal(err)
	}
	many, err := json.Marshal(TopicSummary{Status: StatusSafe, GreenCount: 9, TotalCount: 9})
	if err != nil {
		t.Fatal(err)
	}

	var a, b map[string]any
	if err := json.Unmarshal(single, &a); err != nil {
		t.Fatal(err)
	}
	if err := json.Unmarshal(many, &b); err != nil {
		t.Fatal(err)
	}
	if len(a) != len(b) {
		t.Fatalf("field sets differ: %v vs %v", a, b)
	}
	for k := range a {
		if _, ok := b[k]; !ok {
			t.Fatalf("field %q missing from multi-contributor summary", k)
		}
	}
}

package consent

import "testing"

func TestCatalogReturnsCopy(t *testing.T) {
	first := Catalog()
	first[0].Topics[0] = "mutated"
	first[0].Name = "mutated"

	second := Catalog()
	if second[0].Name != "Horror" || second[0].Topics[0] != "Bugs" {
		t.Fatalf("catalog was mutated through a returned copy: %+v", second[0])
	}
}

func TestIsPredefined(t *testing.T) {
	if !IsPredefined("Sex", "Fade to black") {
		t.Fatal("expected Sex/Fade to black to be predefined")
	}
	if IsPredefined("Sex", "fade to black") {
		t.Fatal("catalog lookup must be case-sensitive")
	}
	if IsPredefined("Horror", "Clowns") {
		t.Fatal("custom topic reported as predefined")
	}
}

func TestValidMovieRating(t *testing.T) {
	for _, v := range []string{"G", "PG", "PG-13", "R", "NC-17", "Other"} {
		if !ValidMovieRating(v) {
			t.Errorf("expected %q to be valid", v)
		}
	}
	if ValidMovieRating("pg") || ValidMovieRating("") {
		t.Fatal("unexpected valid movie rating")
	}
}

func TestRatingSeverityOrder(t *testing.T) {
	if !(RatingRed.Severity() > RatingYellow.Severity() && RatingYellow.Severity() > RatingGreen.Severity()) {
		t.Fatal("severity must order red > yellow > green")
	}
	if Rating("purple").Valid() {
		t.Fatal("unknown rating reported valid")
	}
}

package consent

// Category is a named group of predefined topics from the RPG consent checklist.
type Category struct {
	Name   string   `json:"name"`
	Topics []string `json:"topics"`
}

var catalog = []Category{
	{Name: "Horror", Topics: []string{
		"Bugs",
		"Blood",
		"Demons",
		"Eyeballs",
		"Gore",
		"Harm to animals",
		"Harm to children",
		"Rats",
		"Spiders",
	}},
	{Name: "Mental and Physical Health", Topics: []string{
		"Cancer",
		"Claustrophobia",
		"Freezing to death",
		"Gaslighting",
		"Genocide",
		"Heatstroke",
		"Natural disasters",
		"Paralysis/physical restraint",
		"Police/police aggression",
		"Pregnancy/miscarriage/abortion",
		"Self-harm",
		"Severe weather",
		"Sexual assault",
		"Starvation",
		"Terrorism",
		"Torture",
		"Thirst",
	}},
	{Name: "Relationships", Topics: []string{
		"Romance",
		"Fade to black",
		"Explicit",
		"Between PCs and NPCs",
		"Between PCs",
	}},
	{Name: "Sex", Topics: []string{
		"Romance",
		"Fade to black",
		"Explicit",
		"Between PCs and NPCs",
		"Between PCs",
	}},
	{Name: "Social and Cultural Issues", Topics: []string{
		"Homophobia",
		"Racism",
		"Real-world religion",
		"Sexism",
		"Specific cultural issues",
	}},
}

// MovieRatings are the accepted values for a form's movie-rating field.
var MovieRatings = []string{"G", "PG", "PG-13", "R", "NC-17", "Other"}

// Catalog returns a copy of the predefined topic catalog in display order.
func Catalog() []Category {
	out := make([]Category, len(catalog))
	for i, c := range catalog {
		out[i] = Category{Name: c.Name, Topics: append([]string(nil), c.Topics...)}
	}
	return out
}

// IsPredefined reports whether the exact (category, topic) pair is in the catalog.
func IsPredefined(category, topic string) bool {
	for _, c := range catalog {
		if c.Name != category {
			continue
		}
		for _, t := range c.Topics {
			if t == topic {
				return true
			}
		}
	}
	return false
}

// ValidMovieRating reports whether v is one of MovieRatings.
func ValidMovieRating(v string) bool {
	for _, r := range MovieRatings {
		if r == v {
			return true
		}
	}
	return false
}

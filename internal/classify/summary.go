package classify

// CategoryStat counts tags of one category.
type CategoryStat struct {
	Category string `json:"category"`
	Positive int    `json:"positive"`
	Negative int    `json:"negative"`
}

type Summary struct {
	Reviews int            `json:"reviews"`
	Stats   []CategoryStat `json:"stats"`
	// Worst is empty when no category got a negative tag.
	Worst      string  `json:"worst,omitempty"`
	WorstShare float64 `json:"worst_share,omitempty"`
	Advice     string  `json:"advice,omitempty"`
}

// Summarize aggregates tags in dictionary order. The worst category is the
// one with most negatives; ties go to the earlier category.
func (c *Classifier) Summarize(tags []Tag, reviews int) Summary {
	stats := make([]CategoryStat, len(c.dict.Categories))
	pos := make(map[string]int, len(stats))
	for i, cat := range c.dict.Categories {
		stats[i].Category = cat.Name
		pos[cat.Name] = i
	}
	for _, t := range tags {
		i, ok := pos[t.Category]
		if !ok {
			continue
		}
		if t.Polarity == Negative {
			stats[i].Negative++
		} else {
			stats[i].Positive++
		}
	}

	s := Summary{Reviews: reviews, Stats: stats}
	best := 0
	for _, st := range stats {
		if st.Negative > best {
			best = st.Negative
			s.Worst = st.Category
		}
	}
	if s.Worst != "" {
		s.Advice = c.Advice(s.Worst)
		if reviews > 0 {
			s.WorstShare = float64(best) / float64(reviews)
		}
	}
	return s
}

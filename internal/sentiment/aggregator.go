// Package sentiment maps each tracked equity's daily move onto its related
// secondary-market names and tallies the directional signals per name.
package sentiment

import (
	"sort"
	"strings"

	"github.com/joehsu/openclaw/internal/config"
	"github.com/joehsu/openclaw/internal/models"
)

// Fallback outlook for symbols missing from the rule table.
const (
	defaultRelated = "待分析"
	defaultImpact  = "市場觀望"
)

// Outlook is the per-equity classification shown next to its quote.
type Outlook struct {
	Direction models.Direction
	Related   string
	Impact    string
}

// Classify applies one rule's thresholds to a change percentage. A rule
// without a bearish threshold can only ever yield bullish or neutral.
func Classify(rule config.TickerRule, changePct float64) models.Direction {
	if changePct > rule.BullAbove {
		return models.Bullish
	}
	if rule.BearBelow != nil && changePct < *rule.BearBelow {
		return models.Bearish
	}
	return models.Neutral
}

// Outlooks classifies every quote against the rule table, keyed by symbol.
func Outlooks(quotes []models.Quote, rules []config.TickerRule) map[string]Outlook {
	bySymbol := make(map[string]config.TickerRule, len(rules))
	for _, r := range rules {
		bySymbol[r.Symbol] = r
	}

	out := make(map[string]Outlook, len(quotes))
	for _, q := range quotes {
		rule, ok := bySymbol[q.Symbol]
		if !ok {
			out[q.Symbol] = Outlook{Direction: models.Neutral, Related: defaultRelated, Impact: defaultImpact}
			continue
		}
		dir := Classify(rule, q.ChangePct)
		impact := rule.BaseImpact
		if dir == models.Bullish {
			impact = rule.BullImpact
		}
		out[q.Symbol] = Outlook{Direction: dir, Related: rule.Related, Impact: impact}
	}
	return out
}

// SplitRelated splits a related-names string on its separators and trims
// whitespace, dropping empties.
func SplitRelated(related string) []string {
	fields := strings.FieldsFunc(related, func(r rune) bool {
		return r == '、' || r == ','
	})
	var names []string
	for _, f := range fields {
		if name := strings.TrimSpace(f); name != "" {
			names = append(names, name)
		}
	}
	return names
}

// Aggregate tallies directional signals per secondary name across all
// quotes. The same name appearing under multiple equities accumulates into
// one tally. Output is sorted by bull count descending then bear count
// ascending, with first-appearance order breaking remaining ties.
func Aggregate(quotes []models.Quote, rules []config.TickerRule) []models.SentimentTally {
	outlooks := Outlooks(quotes, rules)

	byName := make(map[string]*models.SentimentTally)
	var order []string

	for _, q := range quotes {
		o := outlooks[q.Symbol]
		for _, name := range SplitRelated(o.Related) {
			tally, ok := byName[name]
			if !ok {
				tally = &models.SentimentTally{Name: name, Price: "-"}
				byName[name] = tally
				order = append(order, name)
			}
			switch o.Direction {
			case models.Bullish:
				tally.Bull++
			case models.Bearish:
				tally.Bear++
			default:
				tally.Neutral++
			}
		}
	}

	tallies := make([]models.SentimentTally, 0, len(order))
	for _, name := range order {
		tallies = append(tallies, *byName[name])
	}
	sort.SliceStable(tallies, func(i, j int) bool {
		if tallies[i].Bull != tallies[j].Bull {
			return tallies[i].Bull > tallies[j].Bull
		}
		return tallies[i].Bear < tallies[j].Bear
	})
	return tallies
}

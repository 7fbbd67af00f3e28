package models

// Direction is a three-way directional classification.
type Direction string

const (
	Bullish Direction = "bullish"
	Bearish Direction = "bearish"
	Neutral Direction = "neutral"
)

// Label returns the per-equity outlook label shown on the dashboard.
func (d Direction) Label() string {
	switch d {
	case Bullish:
		return "看漲"
	case Bearish:
		return "看跌"
	default:
		return "盤整"
	}
}

// Bias returns the aggregate-sentiment label for a secondary ticker.
func (d Direction) Bias() string {
	switch d {
	case Bullish:
		return "偏多"
	case Bearish:
		return "偏空"
	default:
		return "中性"
	}
}

// SentimentTally accumulates directional signals for one secondary-market
// name across all primary equities that reference it. Names are free text
// (case- and punctuation-sensitive); identical names must be merged before
// counting.
type SentimentTally struct {
	Name    string `json:"name"`
	Bull    int    `json:"bull"`
	Bear    int    `json:"bear"`
	Neutral int    `json:"neutral"`

	// Price is the display price of the resolved ticker, or "-" when the
	// name could not be resolved to a tradable symbol.
	Price string `json:"price"`
}

// Sentiment derives the tally's overall direction: bullish when bull
// signals outnumber bear signals, bearish for the reverse, else neutral.
func (t *SentimentTally) Sentiment() Direction {
	switch {
	case t.Bull > t.Bear:
		return Bullish
	case t.Bear > t.Bull:
		return Bearish
	default:
		return Neutral
	}
}

package analytics

// JourneyEvents names the milestone and issue event groups for journey typing.
type JourneyEvents struct {
	Search   []string `json:"search" yaml:"search"`
	Select   []string `json:"select" yaml:"select"`
	PayInit  []string `json:"pay_init" yaml:"pay_init"`
	PayDone  []string `json:"pay_done" yaml:"pay_done"`
	PayFail  []string `json:"pay_fail" yaml:"pay_fail"`
	AppError []string `json:"app_error" yaml:"app_error"`
}

// JourneyFunnel counts users per milestone.
type JourneyFunnel struct {
	Searched int `json:"searched"`
	Selected int `json:"selected"`
	PayInit  int `json:"pay_init"`
	Booked   int `json:"booked"`
}

// JourneyTypes counts users per archetype. Every analysed user lands in
// exactly one bucket, chosen by the furthest milestone reached (see
// Classify). The counts therefore differ from the raw predicate differences
// when milestones are skipped: a user who searched and paid without a seat
// selection is a Booker, not a Browser. Unclassified holds users with no
// milestone at all.
type JourneyTypes struct {
	Browsers     int `json:"browsers"`
	Shoppers     int `json:"shoppers"`
	Attempters   int `json:"attempters"`
	Bookers      int `json:"bookers"`
	Unclassified int `json:"unclassified"`
}

// JourneyIssues counts users who hit a failure.
type JourneyIssues struct {
	PaymentFailure int `json:"faced_payment_failure"`
	AppError       int `json:"faced_app_error"`
}

// JourneyResult is the outcome of user-journey typing.
type JourneyResult struct {
	TotalAnalyzed  int           `json:"total_analyzed_users"`
	Funnel         JourneyFunnel `json:"funnel_counts"`
	Types          JourneyTypes  `json:"user_types"`
	Issues         JourneyIssues `json:"friction_counts"`
	ConversionRate float64       `json:"conversion_rate"`
}

// Archetype is the journey bucket a user falls into.
type Archetype string

const (
	Browser      Archetype = "browser"
	Shopper      Archetype = "shopper"
	Attempter    Archetype = "attempter"
	Booker       Archetype = "booker"
	Unclassified Archetype = "unclassified"
)

// Classify assigns the archetype of the furthest milestone reached.
func Classify(searched, selected, initiated, completed bool) Archetype {
	switch {
	case completed:
		return Booker
	case initiated:
		return Attempter
	case selected:
		return Shopper
	case searched:
		return Browser
	default:
		return Unclassified
	}
}

// Journey types every user with at least minEvents events.
func Journey(d *Dataset, ev JourneyEvents, minEvents int) JourneyResult {
	search := NewEventSet(ev.Search...)
	sel := NewEventSet(ev.Select...)
	payInit := NewEventSet(ev.PayInit...)
	payDone := NewEventSet(ev.PayDone...)
	payFail := NewEventSet(ev.PayFail...)
	appErr := NewEventSet(ev.AppError...)

	var res JourneyResult
	for _, u := range d.Users() {
		if len(d.UserEvents(u)) < minEvents {
			continue
		}
		res.TotalAnalyzed++
		names := d.EventNames(u)
		searched := names.Intersects(search)
		selected := names.Intersects(sel)
		initiated := names.Intersects(payInit)
		completed := names.Intersects(payDone)

		if searched {
			res.Funnel.Searched++
		}
		if selected {
			res.Funnel.Selected++
		}
		if initiated {
			res.Funnel.PayInit++
		}
		if completed {
			res.Funnel.Booked++
		}
		if names.Intersects(payFail) {
			res.Issues.PaymentFailure++
		}
		if names.Intersects(appErr) {
			res.Issues.AppError++
		}

		switch Classify(searched, selected, initiated, completed) {
		case Booker:
			res.Types.Bookers++
		case Attempter:
			res.Types.Attempters++
		case Shopper:
			res.Types.Shoppers++
		case Browser:
			res.Types.Browsers++
		default:
			res.Types.Unclassified++
		}
	}
	res.ConversionRate = pct(res.Funnel.Booked, res.TotalAnalyzed, 1)
	return res
}

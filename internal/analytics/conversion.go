package analytics

// ConversionEvents names the event groups used by conversion metrics.
type ConversionEvents struct {
	Success []string `json:"success" yaml:"success"`
	Attempt []string `json:"attempt" yaml:"attempt"`
	Failure []string `json:"failure" yaml:"failure"`
	Push    []string `json:"push" yaml:"push"`
}

// ConversionResult holds overall, payment and push-attributed conversion.
type ConversionResult struct {
	Total         int     `json:"total"`
	Converters    int     `json:"converters"`
	ConvPct       float64 `json:"conv_pct"`
	Attempted     int     `json:"attempted"`
	Failed        int     `json:"failed"`
	PaySuccessPct float64 `json:"pay_success_pct"`
	PushUsers     int     `json:"push_users"`
	PushConv      int     `json:"push_conv"`
	PushPct       float64 `json:"push_pct"`
}

// Conversion computes user-level conversion rates. Percentages are rounded
// to two decimals and are zero when their denominator is empty.
func Conversion(d *Dataset, ev ConversionEvents) ConversionResult {
	success := NewEventSet(ev.Success...)
	attempt := NewEventSet(ev.Attempt...)
	failure := NewEventSet(ev.Failure...)
	push := NewEventSet(ev.Push...)

	var res ConversionResult
	for _, u := range d.Users() {
		res.Total++
		names := d.EventNames(u)
		converted := names.Intersects(success)
		if converted {
			res.Converters++
		}
		if names.Intersects(attempt) {
			res.Attempted++
		}
		if names.Intersects(failure) {
			res.Failed++
		}
		if names.Intersects(push) {
			res.PushUsers++
			if converted {
				res.PushConv++
			}
		}
	}
	res.ConvPct = pct(res.Converters, res.Total, 2)
	res.PaySuccessPct = pct(res.Converters, res.Attempted, 2)
	res.PushPct = pct(res.PushConv, res.PushUsers, 2)
	return res
}

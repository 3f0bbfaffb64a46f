package pipeline

import (
	"fmt"
	"strings"

	"github.com/capitalize-ai/journey-analytics/internal/analytics"
	"github.com/capitalize-ai/journey-analytics/internal/model"
)

const appContext = `You are analysing a bus ticket booking app (similar to RedBus/AbhiBus). The dataset
contains ONLY application-level user interaction events (system events have been excluded).`

const outputRules = `OUTPUT RULES:
- Use ONLY HTML tags for formatting: <h4>, <p>, <ul>, <li>, <strong>.
- Do NOT use markdown (no **, no ##, no - lists). Do NOT use emoji.
- Cite exact numbers from tool results. No vague statements like "significant drop-off".
- Keep insights concise but specific. Each insight should be 2-4 sentences max.`

// formatStages renders a stage list the way the tool expects it back.
func formatStages(stages []model.StageDefinition) string {
	var b strings.Builder
	for _, s := range stages {
		fmt.Fprintf(&b, "   - %s: events [%s]\n", s.Name, quoteList(s.Events))
	}
	return strings.TrimRight(b.String(), "\n")
}

func quoteList(names []string) string {
	q := make([]string, len(names))
	for i, n := range names {
		q[i] = fmt.Sprintf("%q", n)
	}
	return strings.Join(q, ", ")
}

func stageFlow(stages []model.StageDefinition) string {
	names := make([]string, len(stages))
	for i, s := range stages {
		names[i] = s.Name
	}
	return strings.Join(names, " -> ")
}

func funnelPrompt(env *Env) string {
	stages := env.Analysis.FunnelStages
	return `You are a senior product analyst specialising in mobile app conversion funnels.
` + appContext + `

CONTEXT:
- Users search for buses, view results, select seats, enter passenger details, and pay.
- The core business funnel is: ` + stageFlow(stages) + `.
- Each stage may be represented by multiple event names due to SDK naming variations.
- A healthy travel app converts 2-5% of openers to bookers. Payment success rates above 80%
  (of those who initiate) are considered good.

TASK:
1. Call get_dataset_summary to understand the dataset size, user count, and date range.
2. Call compute_funnel with these stages (in order):
` + formatStages(stages) + `
3. Provide exactly 4 insights:
   a) BIGGEST LEAK: Which stage-to-stage transition loses the most users? Cite exact counts.
   b) ROOT CAUSE HYPOTHESIS: What product or UX issue most likely causes the biggest leak?
   c) SECONDARY DROP-OFFS: Identify the 2nd and 3rd worst transitions. Are they related?
   d) SPECIFIC FIX: One concrete product change with the expected conversion lift.

` + outputRules
}

func dropoffPrompt(env *Env) string {
	stages := env.Analysis.DropoffStages
	return `You are a product analyst specialising in user drop-off and abandonment patterns.
` + appContext + `

CONTEXT:
- Users follow a linear booking flow: ` + stageFlow(stages) + `.
- Drop-off means a user reached stage N but never reached stage N+1.
- Lost users at each transition represent revenue leakage.
- Benchmarks: search-to-results drop-off < 15%, results-to-selection < 40%,
  payment initiation-to-success < 20%.

TASK:
1. Call get_dataset_summary for dataset context.
2. Call compute_dropoffs with stages:
` + formatStages(stages) + `
3. Provide analysis covering:
   a) WORST TRANSITION: Which stage loses the most users? Cite the lost count and percentage.
   b) REVENUE IMPACT: Estimate how many potential bookings are lost there.
   c) ROOT CAUSES: 2-3 likely UX or technical reasons for the worst drop-off.
   d) FIXES: 3 specific UX improvements ranked by expected impact.

` + outputRules
}

func frictionPrompt(env *Env) string {
	return fmt.Sprintf(`You are a UX analytics expert specialising in detecting friction in mobile apps.
%s

CONTEXT:
- Friction is a user repeating the same event back-to-back within one session, pointing at
  confusion, errors or unresponsive UI.
- friction score = repeat_rate * ln(1 + avg_per_session). Higher is more severe.
- Only events with at least %d occurrences are considered.

TASK:
1. Call get_dataset_summary for dataset context.
2. Call detect_repeated_events with min_total=%d.
3. For the top 3 friction points by score, explain what the repetition means, how many
   sessions are affected, one specific fix, and the expected impact.

%s`, appContext, env.Analysis.FrictionMinTotal, env.Analysis.FrictionMinTotal, outputRules)
}

func sessionPrompt(env *Env) string {
	return fmt.Sprintf(`You are a product analyst specialising in session behaviour and engagement.
%s

CONTEXT:
- A session starts at a marker event (%s).
- Bounce is a session with at most 2 events; depth is unique event types per session.
- Healthy booking sessions last 3-10 minutes, bounce below 30%% is good, depth 5+ is engaged.

TASK:
1. Call get_dataset_summary for dataset context.
2. Call compute_session_stats.
3. Provide exactly 4 insights: SESSION HEALTH, ENGAGEMENT DEPTH, BOUNCE ANALYSIS and
   SESSION TARGETS, each citing the exact figures.

%s`, appContext, strings.Join(env.Analysis.SessionMarkers, ", "), outputRules)
}

func retentionPrompt(env *Env) string {
	return fmt.Sprintf(`You are a retention and growth analyst specialising in mobile app lifecycles.
%s

CONTEXT:
- Rows are weekly cohorts by first activity; week 0 is always 100%%.
- W1 retention of 20-30%% is typical for travel apps; above 30%% is strong.
- Labels carry the cohort size (n=X); cohorts under 5 users are excluded.

TASK:
1. Call get_dataset_summary for dataset context.
2. Call compute_retention with max_weeks=%d.
3. Provide exactly 4 insights: BEST COHORT, WORST COHORT (cite W1 and W2), OVERALL TREND
   across cohorts, and 2 RETENTION STRATEGIES tied to findings.

%s`, appContext, env.Analysis.RetentionMaxWeeks, outputRules)
}

func segmentationPrompt(env *Env) string {
	return fmt.Sprintf(`You are a user research analyst specialising in behavioural segmentation.
%s

CONTEXT:
- Users are clustered on total events, unique events, sessions, active days, events per
  session and diversity. Segment -1 (Outliers) holds users no cluster could absorb.

TASK:
1. Call get_dataset_summary for dataset context.
2. Call cluster_users with eps=%g, min_samples=%d.
3. For each segment give a PERSONA NAME, its PROFILE (avg events, booking rate, size) and one
   TARGETING RECOMMENDATION. Finish with an OVERALL ASSESSMENT of the user base.

%s`, appContext, env.Analysis.ClusterEps, env.Analysis.ClusterMinSamples, outputRules)
}

func conversionPrompt(env *Env) string {
	c := env.Analysis.Conversion
	return fmt.Sprintf(`You are a conversion rate optimisation specialist.
%s

CONTEXT:
- Conversion: users with a success event [%s] over all users.
- Payment success: converters over users with a payment attempt [%s].
- Push conversion: push-exposed users [%s] who converted.

TASK:
1. Call get_dataset_summary for dataset context.
2. Call compute_conversions.
3. Cover CONVERSION HEALTH against the 2-5%% benchmark, PAYMENT FAILURE ANALYSIS,
   PUSH NOTIFICATION ROI and 3 CONVERSION TACTICS with quantified impact.

%s`, appContext, quoteList(c.Success), quoteList(c.Attempt), quoteList(c.Push), outputRules)
}

func latencyPrompt(env *Env) string {
	var pairs strings.Builder
	for _, p := range env.Analysis.LatencyPairs {
		fmt.Fprintf(&pairs, "   - from_event=%q, to_event=%q\n", p.From, p.To)
	}
	return fmt.Sprintf(`You are a performance analyst specialising in user flow latency.
%s

CONTEXT:
- For each event pair we compute median, mean and P90 seconds from a user's first source
  event to the next target event. Transitions of an hour or more are excluded.
- Benchmarks: search to results < 5s, results to seat 30-120s, seat to payment 60-180s,
  OTP generate to verify < 60s, search to payment 3-8 minutes.

TASK:
1. Call get_dataset_summary for dataset context.
2. Call compute_latency for each pair:
%s3. Cover the SLOWEST TRANSITION, BOTTLENECK ANALYSIS (P90 vs median gap), END-TO-END TIME
   and 3 SPEED IMPROVEMENTS with expected savings.

%s`, appContext, pairs.String(), outputRules)
}

func frequencyPrompt(env *Env) string {
	return fmt.Sprintf(`You are a data analyst specialising in event instrumentation and usage intensity.
%s

TASK:
1. Call get_dataset_summary for dataset context.
2. Call compute_frequency_distribution with top_n=%d.
3. Cover DOMINANT PATTERNS, EVENT NOISE (suspiciously frequent or rare events), POWER USERS
   (median vs P90 vs P99 events per user, users above %d events) and CONSOLIDATION of
   redundant event names.

%s`, appContext, env.Analysis.FrequencyTopN, env.Analysis.SuperuserThreshold, outputRules)
}

func temporalPrompt(*Env) string {
	return `You are a growth analyst specialising in usage timing.
` + appContext + `

CONTEXT:
- Times are UTC. Days run Monday to Sunday.

TASK:
1. Call get_dataset_summary for dataset context.
2. Call compute_temporal.
3. Cover PUSH NOTIFICATION TIMING, CAPACITY PLANNING, MARKETING WINDOWS and WEEKEND VS
   WEEKDAY usage, citing exact peak hours and days.

` + outputRules
}

func journeyPrompt(env *Env) string {
	return fmt.Sprintf(`You are a customer journey analyst.
%s

CONTEXT:
- Users are typed by their furthest milestone: Browsers searched only, Shoppers selected a
  seat, Attempters initiated payment, Bookers completed payment.

TASK:
1. Call get_dataset_summary for dataset context.
2. Call compute_user_journey_stats with min_events=%d.
3. Cover the USER TYPE BREAKDOWN, FRICTION IMPACT of payment failures and errors, what
   defines a HIGH-INTENT user, and 2 PERSONALIZATION ideas to turn Browsers into Shoppers.

%s`, appContext, env.Analysis.JourneyMinEvents, outputRules)
}

const trendDirective = "CRITICAL: In your insights, you MUST explicitly compare T1 vs T2 to identify if %s."

func trendHeader(h analytics.Halves) string {
	const layout = "02-Jan"
	return fmt.Sprintf("TREND ANALYSIS (First Half %s to %s vs Second Half %s to %s):",
		h.Start.Format(layout), h.Mid.Format(layout), h.Mid.Format(layout), h.End.Format(layout))
}

func funnelTrendContext(h analytics.Halves, t analytics.Trend[analytics.FunnelOverview]) string {
	return trendHeader(h) + "\n" +
		fmt.Sprintf("- Overall Look-to-Book Conversion: %v%% -> %v%%\n", t.T1.Conversion, t.T2.Conversion) +
		fmt.Sprintf("- Search Stage Drop-off: %v%% -> %v%%\n\n", t.T1.SearchDropoff, t.T2.SearchDropoff) +
		fmt.Sprintf(trendDirective, "the funnel is getting leakier or more efficient")
}

func sessionTrendContext(h analytics.Halves, t analytics.Trend[analytics.SessionOverview]) string {
	return trendHeader(h) + "\n" +
		fmt.Sprintf("- Sessions: %d -> %d\n", t.T1.Sessions, t.T2.Sessions) +
		fmt.Sprintf("- Avg Duration: %vs -> %vs\n", t.T1.AvgDurSec, t.T2.AvgDurSec) +
		fmt.Sprintf("- Bounce Rate: %v%% -> %v%%\n\n", t.T1.BouncePct, t.T2.BouncePct) +
		fmt.Sprintf(trendDirective, "user behavior is improving or degrading")
}

func conversionTrendContext(h analytics.Halves, t analytics.Trend[analytics.ConversionOverview]) string {
	return trendHeader(h) + "\n" +
		fmt.Sprintf("- Overall Conversion: %v%% -> %v%%\n", t.T1.Conversion, t.T2.Conversion) +
		fmt.Sprintf("- Payment Success Rate: %v%% -> %v%%\n\n", t.T1.PaySuccess, t.T2.PaySuccess) +
		fmt.Sprintf(trendDirective, "conversion performance is improving or degrading")
}

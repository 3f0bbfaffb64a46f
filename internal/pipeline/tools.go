package pipeline

import (
	"context"
	"fmt"

	"github.com/tidwall/gjson"

	"github.com/capitalize-ai/journey-analytics/internal/agent"
	"github.com/capitalize-ai/journey-analytics/internal/analytics"
	"github.com/capitalize-ai/journey-analytics/internal/model"
)

var stagesSchema = agent.ArrayProp(map[string]any{
	"type": "object",
	"properties": map[string]any{
		"name":   agent.Prop("string", "Stage name"),
		"events": agent.ArrayProp(agent.Prop("string", "Event name"), "Qualifying event names"),
	},
	"required": []string{"name", "events"},
}, "Ordered funnel stages")

// QueryTools are the exploration tools every metric task exposes.
func QueryTools(env *Env) []agent.Tool {
	d := env.Dataset
	return []agent.Tool{
		{
			Name:        "get_dataset_summary",
			Description: "Get dataset summary: total events, users, event types, date range, top events.",
			Handler: func(context.Context, gjson.Result) (any, error) {
				return env.Summary, nil
			},
		},
		{
			Name:        "list_event_names",
			Description: "List unique event names, optionally filtered by category.",
			Parameters: agent.ObjectSchema(map[string]any{
				"category": agent.Prop("string", "Event category; only \"application\" is loaded"),
			}),
			Handler: func(_ context.Context, args gjson.Result) (any, error) {
				if c := args.Get("category").String(); c != "" && c != model.ApplicationCategory {
					return []string{}, nil
				}
				return d.DistinctNames(), nil
			},
		},
		{
			Name:        "count_users_with_events",
			Description: "Count users who triggered at least one of the given events.",
			Parameters: agent.ObjectSchema(map[string]any{
				"event_names": agent.ArrayProp(agent.Prop("string", "Event name"), "Event names to match"),
			}),
			Handler: func(_ context.Context, args gjson.Result) (any, error) {
				names := stringsArg(args, "event_names")
				if len(names) == 0 {
					return nil, fmt.Errorf("event_names is required")
				}
				return analytics.CountUsersWithEvents(d, names), nil
			},
		},
		{
			Name:        "get_top_events",
			Description: "Get top N events by frequency.",
			Parameters: agent.ObjectSchema(map[string]any{
				"n": agent.Prop("integer", "Number of events, default 20"),
			}),
			Handler: func(_ context.Context, args gjson.Result) (any, error) {
				return analytics.TopEvents(d, intArg(args, "n", 20)), nil
			},
		},
	}
}

func funnelTool(env *Env) agent.Tool {
	return agent.Tool{
		Name:        "compute_funnel",
		Description: "Compute multi-stage funnel. stages: list of {name, events}. Returns per-stage user counts and conversion rates.",
		Parameters:  agent.ObjectSchema(map[string]any{"stages": stagesSchema}),
		Handler: func(_ context.Context, args gjson.Result) (any, error) {
			stages, err := stagesArg(args, env.Analysis.FunnelStages)
			if err != nil {
				return nil, err
			}
			return analytics.Funnel(env.Dataset, stages), nil
		},
	}
}

func dropoffTool(env *Env) agent.Tool {
	return agent.Tool{
		Name:        "compute_dropoffs",
		Description: "Compute drop-off between funnel stages. stages: list of {name, events}.",
		Parameters:  agent.ObjectSchema(map[string]any{"stages": stagesSchema}),
		Handler: func(_ context.Context, args gjson.Result) (any, error) {
			stages, err := stagesArg(args, env.Analysis.DropoffStages)
			if err != nil {
				return nil, err
			}
			return analytics.Dropoffs(env.Dataset, stages).Transitions, nil
		},
	}
}

func frictionTool(env *Env) agent.Tool {
	return agent.Tool{
		Name:        "detect_repeated_events",
		Description: "Find events repeated back-to-back within sessions, ranked by friction score.",
		Parameters: agent.ObjectSchema(map[string]any{
			"min_total": agent.Prop("integer", "Ignore events with fewer occurrences, default 20"),
		}),
		Handler: func(_ context.Context, args gjson.Result) (any, error) {
			a := env.Analysis
			return analytics.Friction(env.Dataset, a.Markers(), intArg(args, "min_total", a.FrictionMinTotal), a.FrictionTopK), nil
		},
	}
}

func sessionTool(env *Env) agent.Tool {
	return agent.Tool{
		Name:        "compute_session_stats",
		Description: "Compute session count, duration, depth, bounce rate and sessions per user.",
		Handler: func(context.Context, gjson.Result) (any, error) {
			return analytics.SessionMetrics(env.Dataset, env.Analysis.Markers()).Stats, nil
		},
	}
}

func retentionTool(env *Env) agent.Tool {
	return agent.Tool{
		Name:        "compute_retention",
		Description: "Compute the weekly cohort retention matrix.",
		Parameters: agent.ObjectSchema(map[string]any{
			"max_weeks": agent.Prop("integer", "Number of week columns, default 5"),
		}),
		Handler: func(_ context.Context, args gjson.Result) (any, error) {
			weeks := intArg(args, "max_weeks", env.Analysis.RetentionMaxWeeks)
			if weeks < 1 {
				return nil, fmt.Errorf("max_weeks must be at least 1")
			}
			r := analytics.Retention(env.Dataset, weeks)
			return map[string]any{"labels": r.Labels, "matrix": r.Matrix, "w1_pct": r.W1Pct}, nil
		},
	}
}

func clusterTool(env *Env) agent.Tool {
	return agent.Tool{
		Name:        "cluster_users",
		Description: "Segment users with density-based clustering on standardised behaviour features.",
		Parameters: agent.ObjectSchema(map[string]any{
			"eps":         agent.Prop("number", "Neighbourhood radius, default 1.2"),
			"min_samples": agent.Prop("integer", "Minimum neighbourhood size, default 10"),
		}),
		Handler: func(_ context.Context, args gjson.Result) (any, error) {
			a := env.Analysis
			r, err := analytics.Segment(env.Dataset, a.Markers(), analytics.NewEventSet(a.BookingEvents...),
				floatArg(args, "eps", a.ClusterEps), intArg(args, "min_samples", a.ClusterMinSamples))
			if err != nil {
				return nil, err
			}
			return r.Segments, nil
		},
	}
}

func conversionTool(env *Env) agent.Tool {
	return agent.Tool{
		Name:        "compute_conversions",
		Description: "Compute overall conversion, payment success rate and push-attributed conversion.",
		Handler: func(context.Context, gjson.Result) (any, error) {
			return analytics.Conversion(env.Dataset, env.Analysis.Conversion), nil
		},
	}
}

func latencyTool(env *Env) agent.Tool {
	return agent.Tool{
		Name:        "compute_latency",
		Description: "Compute time in seconds between two events per user: median, mean, p90 and sample size.",
		Parameters: agent.ObjectSchema(map[string]any{
			"from_event": agent.Prop("string", "Starting event name"),
			"to_event":   agent.Prop("string", "Following event name"),
		}),
		Handler: func(_ context.Context, args gjson.Result) (any, error) {
			from, to := args.Get("from_event").String(), args.Get("to_event").String()
			if from == "" || to == "" {
				return nil, fmt.Errorf("from_event and to_event are required")
			}
			r := analytics.Latency(env.Dataset, from, to)
			r.Values = nil
			return r, nil
		},
	}
}

func frequencyTool(env *Env) agent.Tool {
	return agent.Tool{
		Name:        "compute_frequency_distribution",
		Description: "Compute top events with share of total, category split and per-user event count percentiles.",
		Parameters: agent.ObjectSchema(map[string]any{
			"top_n": agent.Prop("integer", "Number of top events, default 20"),
		}),
		Handler: func(_ context.Context, args gjson.Result) (any, error) {
			a := env.Analysis
			return analytics.Frequency(env.Dataset, intArg(args, "top_n", a.FrequencyTopN), a.SuperuserThreshold), nil
		},
	}
}

func temporalTool(env *Env) agent.Tool {
	return agent.Tool{
		Name:        "compute_temporal",
		Description: "Compute the day x hour activity distribution with peak and off-peak stats.",
		Handler: func(context.Context, gjson.Result) (any, error) {
			t := analytics.Temporal(env.Dataset)
			return map[string]any{
				"peak_hour": t.PeakHour,
				"off_hour":  t.OffHour,
				"peak_day":  t.PeakDay,
				"low_day":   t.LowDay,
				"ratio":     t.Ratio,
				"hourly":    t.Hourly,
				"daily":     t.Daily,
			}, nil
		},
	}
}

func journeyTool(env *Env) agent.Tool {
	return agent.Tool{
		Name:        "compute_user_journey_stats",
		Description: "Classify users into Browsers, Shoppers, Attempters and Bookers and count journey issues.",
		Parameters: agent.ObjectSchema(map[string]any{
			"min_events": agent.Prop("integer", "Only analyse users with at least this many events, default 5"),
		}),
		Handler: func(_ context.Context, args gjson.Result) (any, error) {
			a := env.Analysis
			return analytics.Journey(env.Dataset, a.Journey, intArg(args, "min_events", a.JourneyMinEvents)), nil
		},
	}
}

func intArg(args gjson.Result, key string, def int) int {
	v := args.Get(key)
	if v.Type != gjson.Number {
		return def
	}
	return int(v.Int())
}

func floatArg(args gjson.Result, key string, def float64) float64 {
	v := args.Get(key)
	if v.Type != gjson.Number {
		return def
	}
	return v.Float()
}

func stringsArg(args gjson.Result, key string) []string {
	var out []string
	for _, v := range args.Get(key).Array() {
		if s := v.String(); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// stagesArg reads a stage list, falling back to def when the argument is absent.
func stagesArg(args gjson.Result, def []model.StageDefinition) ([]model.StageDefinition, error) {
	raw := args.Get("stages")
	if !raw.Exists() || len(raw.Array()) == 0 {
		return def, nil
	}
	var stages []model.StageDefinition
	for i, s := range raw.Array() {
		name := s.Get("name").String()
		events := stringsArg(s, "events")
		if name == "" || len(events) == 0 {
			return nil, fmt.Errorf("stage %d needs a name and at least one event", i)
		}
		stages = append(stages, model.StageDefinition{Name: name, Events: events})
	}
	return stages, nil
}

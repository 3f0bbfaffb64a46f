package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/capitalize-ai/journey-analytics/internal/analytics"
	"github.com/capitalize-ai/journey-analytics/internal/model"
)

// Analysis holds the tunable parameters of every metric algorithm.
type Analysis struct {
	SessionMarkers []string                   `yaml:"session_markers"`
	FunnelStages   []model.StageDefinition    `yaml:"funnel_stages"`
	DropoffStages  []model.StageDefinition    `yaml:"dropoff_stages"`
	LatencyPairs   []model.EventPair          `yaml:"latency_pairs"`
	Conversion     analytics.ConversionEvents `yaml:"conversion"`
	Journey        analytics.JourneyEvents    `yaml:"journey"`
	BookingEvents  []string                   `yaml:"booking_events"`
	ResultEvents   []string                   `yaml:"result_events"`

	FrictionMinTotal   int     `yaml:"friction_min_total"`
	FrictionTopK       int     `yaml:"friction_top_k"`
	RetentionMaxWeeks  int     `yaml:"retention_max_weeks"`
	FrequencyTopN      int     `yaml:"frequency_top_n"`
	SuperuserThreshold int     `yaml:"superuser_threshold"`
	JourneyMinEvents   int     `yaml:"journey_min_events"`
	ClusterEps         float64 `yaml:"cluster_eps"`
	ClusterMinSamples  int     `yaml:"cluster_min_samples"`
}

// DefaultAnalysis returns the parameters tuned for the bus-booking event log.
func DefaultAnalysis() *Analysis {
	return &Analysis{
		SessionMarkers: []string{"Session Started", "Journey Started", "App Installed", "User Login"},
		FunnelStages: []model.StageDefinition{
			{Name: "App Start", Events: []string{"app_start"}},
			{Name: "Search", Events: []string{"bus_search", "_bus-search_user-bus-search", "_location_elastic-town-search"}},
			{Name: "Results Viewed", Events: []string{"bus_result", "_bus-search_list", "pageview_bus_list"}},
			{Name: "Bus Selected", Events: []string{"Buslist_bus_selection", "bus_detail"}},
			{Name: "Seat Selection", Events: []string{"select_seat", "pageview_seat_selection", "seats_finalized"}},
			{Name: "Passenger Details", Events: []string{"passenger_finalized", "passenger_card_clicked"}},
			{Name: "Payment Initiated", Events: []string{"payment_initiate", "PaymentPage_payment initiated"}},
			{Name: "Payment Success", Events: []string{"payment_success"}},
		},
		DropoffStages: []model.StageDefinition{
			{Name: "App Start", Events: []string{"app_start"}},
			{Name: "Search", Events: []string{"bus_search", "_bus-search_user-bus-search"}},
			{Name: "Results", Events: []string{"bus_result", "_bus-search_list"}},
			{Name: "Seat Selection", Events: []string{"select_seat", "pageview_seat_selection"}},
			{Name: "Payment Init", Events: []string{"payment_initiate", "PaymentPage_payment initiated"}},
			{Name: "Payment Success", Events: []string{"payment_success"}},
		},
		LatencyPairs: []model.EventPair{
			{From: "bus_search", To: "bus_result"},
			{From: "bus_result", To: "select_seat"},
			{From: "select_seat", To: "payment_initiate"},
			{From: "generate_otp", To: "verify_otp"},
			{From: "bus_search", To: "payment_success"},
		},
		Conversion: analytics.ConversionEvents{
			Success: []string{"payment_success"},
			Attempt: []string{"payment_initiate", "PaymentPage_payment initiated"},
			Failure: []string{"payment_failed", "paymentFailed_backpressed", "paymentFailed_pending_vbv"},
			Push:    []string{"Push Click", "Push Impression"},
		},
		Journey: analytics.JourneyEvents{
			Search:   []string{"bus_search", "_bus-search_user-bus-search"},
			Select:   []string{"select_seat", "pageview_seat_selection"},
			PayInit:  []string{"payment_initiate", "PaymentPage_payment initiated"},
			PayDone:  []string{"payment_success"},
			PayFail:  []string{"payment_failed", "paymentFailed_backpressed"},
			AppError: []string{"app_error", "crash", "anr"},
		},
		BookingEvents: []string{"payment_success", "book_ticket", "Booking_to_Ticket", "payment_initiate"},
		ResultEvents:  []string{"bus_result", "_bus-search_list"},

		FrictionMinTotal:   20,
		FrictionTopK:       12,
		RetentionMaxWeeks:  5,
		FrequencyTopN:      20,
		SuperuserThreshold: 200,
		JourneyMinEvents:   5,
		ClusterEps:         1.2,
		ClusterMinSamples:  10,
	}
}

// LoadAnalysis reads overrides from a YAML file on top of DefaultAnalysis.
// An empty path returns the defaults.
func LoadAnalysis(path string) (*Analysis, error) {
	a := DefaultAnalysis()
	if path == "" {
		return a, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read analysis config: %w", err)
	}
	if err := yaml.Unmarshal(data, a); err != nil {
		return nil, fmt.Errorf("failed to parse analysis config %s: %w", path, err)
	}
	if err := a.Validate(); err != nil {
		return nil, fmt.Errorf("invalid analysis config %s: %w", path, err)
	}
	return a, nil
}

// Validate checks the parameters are usable.
func (a *Analysis) Validate() error {
	if len(a.FunnelStages) == 0 {
		return fmt.Errorf("funnel_stages must not be empty")
	}
	if len(a.DropoffStages) < 2 {
		return fmt.Errorf("dropoff_stages needs at least two stages")
	}
	if a.ClusterEps <= 0 {
		return fmt.Errorf("cluster_eps must be positive, got %v", a.ClusterEps)
	}
	if a.ClusterMinSamples < 1 {
		return fmt.Errorf("cluster_min_samples must be at least 1, got %d", a.ClusterMinSamples)
	}
	if a.RetentionMaxWeeks < 1 {
		return fmt.Errorf("retention_max_weeks must be at least 1, got %d", a.RetentionMaxWeeks)
	}
	return nil
}

// Markers returns the session marker set.
func (a *Analysis) Markers() analytics.EventSet {
	return analytics.NewEventSet(a.SessionMarkers...)
}

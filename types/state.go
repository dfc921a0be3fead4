package types

// Recognized DashboardViewState keys. The document is open, any other key is stored and relayed as well.
const (
	StateKeySelectedDateRange     = "selectedDateRange"
	StateKeyEnabledKpiCards       = "enabledKpiCards"
	StateKeySelectedJourneySource = "selectedJourneySource"
	StateKeyConnectedProperty     = "connectedProperty"
	StateKeyDrillDownPath         = "drillDownPath"
)

// DashboardViewState is the shared view document of a room (date range, enabled cards, drill-down path...).
type DashboardViewState map[string]interface{}

// DefaultDashboardViewState returns the state every new room starts with.
func DefaultDashboardViewState() DashboardViewState {
	return DashboardViewState{
		StateKeySelectedDateRange:     "30d",
		StateKeyEnabledKpiCards:       []interface{}{"total-users", "sessions", "page-views", "avg-session"},
		StateKeySelectedJourneySource: "reddit-ads",
		StateKeyConnectedProperty:     nil,
		StateKeyDrillDownPath:         []interface{}{},
	}
}

// Merge applies partial field by field, last writer wins. Keys missing from partial are left untouched.
func (s DashboardViewState) Merge(partial map[string]interface{}) {
	for k, v := range partial {
		s[k] = cloneValue(v)
	}
}

// Clone returns a copy that shares no maps or slices with s.
func (s DashboardViewState) Clone() DashboardViewState {
	c := make(DashboardViewState, len(s))
	for k, v := range s {
		c[k] = cloneValue(v)
	}
	return c
}

func cloneValue(v interface{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		m := make(map[string]interface{}, len(val))
		for k, inner := range val {
			m[k] = cloneValue(inner)
		}
		return m
	case []interface{}:
		s := make([]interface{}, len(val))
		for i, inner := range val {
			s[i] = cloneValue(inner)
		}
		return s
	case []string:
		s := make([]string, len(val))
		copy(s, val)
		return s
	default:
		return v
	}
}

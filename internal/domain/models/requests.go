package models

// Requests for the dashboard HTTP endpoints.

type CalendarRequest struct {
	Symbol string `query:"symbol" json:"symbol" validate:"required"`
	Year   int    `query:"year" json:"year" validate:"gte=2010,lte=2100"`
	Month  int    `query:"month" json:"month" validate:"gte=1,lte=12"`
	Metric string `query:"metric" json:"metric" default:"volatility" validate:"oneof=volatility liquidity performance"`
	Scheme string `query:"scheme" json:"scheme" default:"default" validate:"oneof=default high-contrast colorblind-friendly"`
}

type MultiCalendarRequest struct {
	Symbols string `query:"symbols" json:"symbols" validate:"required"`
	Year    int    `query:"year" json:"year" validate:"gte=2010,lte=2100"`
	Month   int    `query:"month" json:"month" validate:"gte=1,lte=12"`
}

type HistoryRequest struct {
	Symbol string `query:"symbol" json:"symbol" validate:"required"`
	Days   int    `query:"days" json:"days" default:"30" validate:"gte=1,lte=1000"`
}

type StatsRequest struct {
	Symbol string `query:"symbol" json:"symbol" validate:"required"`
}

type RefreshRequest struct {
	Symbol string `query:"symbol" json:"symbol" validate:"required"`
}

type ExportRequest struct {
	Format string `json:"format" validate:"required,oneof=csv pdf png"`
	Symbol string `json:"symbol" validate:"required"`
	Year   int    `json:"year" validate:"gte=2010,lte=2100"`
	Month  int    `json:"month" validate:"gte=1,lte=12"`
}

type NavigateRequest struct {
	Direction string `json:"direction" validate:"required,oneof=prev next"`
}

type ViewPatchRequest struct {
	Symbol          *string `json:"symbol,omitempty"`
	SelectedDate    *string `json:"selectedDate,omitempty"` // YYYY-MM-DD, empty string clears
	Timeframe       *string `json:"timeframe,omitempty" validate:"omitempty,oneof=daily weekly monthly"`
	Metric          *string `json:"metric,omitempty" validate:"omitempty,oneof=volatility liquidity performance"`
	ColorScheme     *string `json:"colorScheme,omitempty" validate:"omitempty,oneof=default high-contrast colorblind-friendly"`
	ChartHeight     *int    `json:"chartHeight,omitempty" validate:"omitempty,gte=100,lte=2000"`
	AutoRefresh     *bool   `json:"autoRefresh,omitempty"`
	RefreshInterval *int    `json:"refreshIntervalMs,omitempty" validate:"omitempty,gte=1000"`
	ExportDialog    *bool   `json:"exportDialogOpen,omitempty"`
	SettingsOpen    *bool   `json:"settingsOpen,omitempty"`
	DateRangeStart  *string `json:"dateRangeStart,omitempty"`
	DateRangeEnd    *string `json:"dateRangeEnd,omitempty"`
}

package plants

// Plant is a solar plant. Dates are in the backend's DD-MM-YYYY form.
type Plant struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	Location       string  `json:"location"`
	Latitude       float64 `json:"latitude"`
	Longitude      float64 `json:"longitude"`
	CapacityKW     float64 `json:"capacityKw"`
	Status         string  `json:"status"`
	CommissionDate string  `json:"commissionDate,omitempty"`
}

// Plant statuses.
const (
	StatusOperational = "operational"
	StatusDegraded    = "degraded"
	StatusOffline     = "offline"
)

// Weather is the daily weather at a plant.
type Weather struct {
	PlantID      string  `json:"plantId"`
	Date         string  `json:"date"`
	TemperatureC float64 `json:"temperature"`
	Irradiance   float64 `json:"irradiance"`
	CloudCover   float64 `json:"cloudCover"`
	WindSpeed    float64 `json:"windSpeed"`
}

// KPIs are the daily performance indicators of a plant.
type KPIs struct {
	PlantID          string  `json:"plantId"`
	Date             string  `json:"date"`
	EnergyKWh        float64 `json:"energyKwh"`
	PerformanceRatio float64 `json:"performanceRatio"`
	Availability     float64 `json:"availability"`
	SpecificYield    float64 `json:"specificYield"`
}

// Alert is an alarm raised by plant equipment.
type Alert struct {
	ID           string `json:"id"`
	PlantID      string `json:"plantId"`
	Severity     string `json:"severity"`
	Message      string `json:"message"`
	Timestamp    string `json:"timestamp"`
	Acknowledged bool   `json:"acknowledged"`
}

// Alert severities.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
)

// AlertFilter narrows ListAlerts. Zero fields do not filter.
type AlertFilter struct {
	PlantID    string
	Severity   string
	ActiveOnly bool
}

// Tracker is a single-axis solar tracker.
type Tracker struct {
	ID       string  `json:"id"`
	PlantID  string  `json:"plantId"`
	AngleDeg float64 `json:"angle"`
	Mode     string  `json:"mode"`
	Status   string  `json:"status"`
}

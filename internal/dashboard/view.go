package dashboard

import (
	"time"

	"github.com/breatheroute/envhealth/internal/airquality"
	"github.com/breatheroute/envhealth/internal/chart"
	"github.com/breatheroute/envhealth/internal/health"
	"github.com/breatheroute/envhealth/internal/pollen"
	"github.com/breatheroute/envhealth/internal/query"
	"github.com/breatheroute/envhealth/internal/upstream"
)

// DomainStatus drives skeleton and error rendering for one domain.
type DomainStatus struct {
	Domain    upstream.Domain `json:"domain"`
	Status    query.Status    `json:"status"`
	Enabled   bool            `json:"enabled"`
	Loading   bool            `json:"loading"`
	Error     bool            `json:"error"`
	Fallback  bool            `json:"fallback"`
	Attempts  int             `json:"attempts"`
	UpdatedAt *time.Time      `json:"updatedAt,omitempty"`
}

// Gauge is a labeled progress indicator.
type Gauge struct {
	Label   string  `json:"label"`
	Value   float64 `json:"value"`
	Unit    string  `json:"unit,omitempty"`
	Percent float64 `json:"percent"`
	Color   string  `json:"color,omitempty"`
}

// ChartCard is a chart with its point sequence and series definitions.
type ChartCard struct {
	Title  string         `json:"title"`
	Points []chart.Point  `json:"points"`
	Series []chart.Series `json:"series"`
}

// AirQualityCard is the always-visible current air quality card.
type AirQualityCard struct {
	AQI        int                 `json:"aqi"`
	Category   airquality.Category `json:"category"`
	Gauge      Gauge               `json:"gauge"`
	Pollutants []Gauge             `json:"pollutants"`
	Hourly     *ChartCard          `json:"hourly,omitempty"`
}

// RecommendationsCard shows the health recommendations per domain.
type RecommendationsCard struct {
	Temperature health.TemperatureAdvice `json:"temperature"`
	UV          health.UVAdvice          `json:"uv"`
	UVGauge     Gauge                    `json:"uvGauge"`
	AirQuality  health.AirQualityAdvice  `json:"airQuality"`
}

// PollenCard shows today's pollen gauges and the daily chart.
type PollenCard struct {
	Today []Gauge   `json:"today"`
	Chart ChartCard `json:"chart"`
}

// View is the rendered view model of a dashboard.
type View struct {
	SessionID       string               `json:"sessionId"`
	Tab             Tab                  `json:"tab"`
	GeneratedAt     time.Time            `json:"generatedAt"`
	Statuses        []DomainStatus       `json:"statuses"`
	Advisories      []health.Advisory    `json:"advisories"`
	AirQuality      AirQualityCard       `json:"airQuality"`
	Forecast        *ChartCard           `json:"forecast,omitempty"`
	Recommendations *RecommendationsCard `json:"recommendations,omitempty"`
	Pollen          *PollenCard          `json:"pollen,omitempty"`
}

// pollutantLimits are the concentrations mapped to a full gauge, in µg/m³ (CO in mg/m³).
var pollutantLimits = map[airquality.Pollutant]float64{
	airquality.PollutantPM25: 75,
	airquality.PollutantPM10: 150,
	airquality.PollutantNO2:  200,
	airquality.PollutantO3:   240,
	airquality.PollutantSO2:  350,
	airquality.PollutantCO:   10,
}

var pollutantLabels = map[airquality.Pollutant]string{
	airquality.PollutantPM25: "PM2.5",
	airquality.PollutantPM10: "PM10",
	airquality.PollutantNO2:  "NO₂",
	airquality.PollutantO3:   "O₃",
	airquality.PollutantSO2:  "SO₂",
	airquality.PollutantCO:   "CO",
}

// maxUVIndex is the UV index mapped to a full gauge.
const maxUVIndex = 11

// maxPollenIndex is the pollen index mapped to a full gauge.
const maxPollenIndex = 5

var pollenColors = map[pollen.RiskLevel]string{
	pollen.RiskNone:     "bg-gray-300",
	pollen.RiskLow:      "bg-green-500",
	pollen.RiskModerate: "bg-yellow-500",
	pollen.RiskHigh:     "bg-orange-500",
	pollen.RiskVeryHigh: "bg-red-500",
}

// View builds the view model of the selected tab personalized for profile.
// Domains without live data are rendered from placeholder data.
func (d *Dashboard) View(profile health.Profile) View {
	d.touch()
	tab := d.Tab()

	aqState := d.airQuality.State()
	snapshot, aqLive := aqState.Value()
	if !aqLive {
		snapshot = d.fallbackAirQuality
	}

	v := View{
		SessionID:   d.id,
		Tab:         tab,
		GeneratedAt: d.now(),
		Statuses: []DomainStatus{
			domainStatus(upstream.DomainAirQuality, aqState),
			domainStatus(upstream.DomainAQIForecast, d.forecast.State()),
			domainStatus(upstream.DomainRecommendations, d.recommendations.State()),
			domainStatus(upstream.DomainPollen, d.pollen.State()),
		},
		AirQuality: airQualityCard(snapshot, tab == TabOverview),
	}

	var liveCurrent *airquality.Current
	if aqLive {
		liveCurrent = &snapshot.Current
	}
	var liveRecs *health.Recommendations
	var livePollen []pollen.Reading

	switch tab {
	case TabForecast:
		forecast, ok := d.forecast.State().Value()
		if !ok {
			forecast = d.fallbackForecast
		}
		v.Forecast = &ChartCard{
			Title:  "24-Hour AQI Forecast",
			Points: chart.FormatAQIForecast(forecast),
			Series: chart.AQIForecastSeries(),
		}
	case TabRecommendations:
		recs, ok := d.recommendations.State().Value()
		if ok {
			liveRecs = recs
		} else {
			recs = d.fallbackRecommendations
		}
		v.Recommendations = recommendationsCard(recs)
	case TabPollen:
		forecast, ok := d.pollen.State().Value()
		if ok {
			livePollen = forecast.Today()
		} else {
			forecast = d.fallbackPollen
		}
		v.Pollen = pollenCard(forecast)
	}

	v.Advisories = health.Personalize(profile, liveCurrent, liveRecs, livePollen)

	return v
}

func domainStatus[T any](domain upstream.Domain, s query.State[T]) DomainStatus {
	status := DomainStatus{
		Domain:   domain,
		Status:   s.Status,
		Enabled:  s.Enabled,
		Loading:  s.IsLoading(),
		Error:    s.IsError(),
		Fallback: !s.HasData,
		Attempts: s.Attempts,
	}
	if !s.UpdatedAt.IsZero() {
		updated := s.UpdatedAt
		status.UpdatedAt = &updated
	}
	return status
}

func airQualityCard(s *airquality.Snapshot, withHourly bool) AirQualityCard {
	c := s.Current
	card := AirQualityCard{
		AQI:      c.AQI,
		Category: c.Category,
		Gauge: Gauge{
			Label:   "AQI",
			Value:   float64(c.AQI),
			Percent: airquality.Percent(float64(c.AQI)),
			Color:   c.Category.ProgressColor,
		},
		Pollutants: make([]Gauge, 0, len(airquality.AllPollutants())),
	}

	for _, p := range airquality.AllPollutants() {
		unit := "µg/m³"
		if p == airquality.PollutantCO {
			unit = "mg/m³"
		}
		value := c.Value(p)
		card.Pollutants = append(card.Pollutants, Gauge{
			Label:   pollutantLabels[p],
			Value:   value,
			Unit:    unit,
			Percent: percentOf(value, pollutantLimits[p]),
		})
	}

	if withHourly && s.Hourly != nil {
		card.Hourly = &ChartCard{
			Title:  "Hourly Air Quality",
			Points: chart.FormatAirQualityHourly(s),
			Series: chart.AQIForecastSeries(),
		}
	}

	return card
}

func recommendationsCard(r *health.Recommendations) *RecommendationsCard {
	return &RecommendationsCard{
		Temperature: r.Temperature,
		UV:          r.UV,
		UVGauge: Gauge{
			Label:   "UV Index",
			Value:   r.UV.Index,
			Percent: percentOf(r.UV.Index, maxUVIndex),
		},
		AirQuality: r.AirQuality,
	}
}

func pollenCard(f *pollen.Forecast) *PollenCard {
	card := &PollenCard{
		Today: make([]Gauge, 0, len(pollen.AllTypes())),
		Chart: ChartCard{
			Title:  "7-Day Pollen Forecast",
			Points: chart.FormatPollen(f),
			Series: chart.PollenSeries(),
		},
	}
	for _, r := range f.Today() {
		card.Today = append(card.Today, Gauge{
			Label:   string(r.Type),
			Value:   r.Index,
			Percent: percentOf(r.Index, maxPollenIndex),
			Color:   pollenColors[r.Risk],
		})
	}
	return card
}

func percentOf(value, limit float64) float64 {
	if limit <= 0 || value <= 0 {
		return 0
	}
	p := value / limit * 100
	if p > 100 {
		return 100
	}
	return p
}

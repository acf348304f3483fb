package airquality

import (
	"math"
	"math/rand/v2"
	"time"
)

// FallbackHours is the length of every generated hourly series.
const FallbackHours = 24

// FallbackAQI is the index reported by the placeholder current reading.
const FallbackAQI = 85

// band is an inclusive value range used to jitter placeholder data.
type band struct {
	min, max float64
}

func (b band) sample(rng *rand.Rand) float64 {
	v := b.min + rng.Float64()*(b.max-b.min)
	return math.Round(v*10) / 10
}

var (
	fallbackPM25Band   = band{20, 30}
	fallbackPM10Band   = band{35, 55}
	fallbackAQIBand    = band{75, 95}
	fallbackEUAQIBand  = band{40, 60}
	fallbackForecastPM = band{10, 25}
)

// FallbackSnapshot returns a placeholder snapshot shaped like live data: a fixed
// Moderate current reading and 24 jittered hourly entries starting at the
// current hour.
func FallbackSnapshot(now time.Time, rng *rand.Rand) *Snapshot {
	start := now.Truncate(time.Hour)

	hourly := &HourlySeries{
		Time: make([]time.Time, FallbackHours),
		PM25: make([]float64, FallbackHours),
		PM10: make([]float64, FallbackHours),
		AQI:  make([]float64, FallbackHours),
	}
	for i := 0; i < FallbackHours; i++ {
		hourly.Time[i] = start.Add(time.Duration(i) * time.Hour)
		hourly.PM25[i] = fallbackPM25Band.sample(rng)
		hourly.PM10[i] = fallbackPM10Band.sample(rng)
		hourly.AQI[i] = math.Round(fallbackAQIBand.sample(rng))
	}

	return NewSnapshot(Current{
		PM25: 25.4,
		PM10: 45.2,
		NO2:  30.1,
		O3:   60.3,
		SO2:  8.2,
		CO:   0.4,
		AQI:  FallbackAQI,
	}, hourly, now)
}

// FallbackForecast returns a placeholder 24 hour forecast starting at the current hour.
func FallbackForecast(now time.Time, rng *rand.Rand) *Forecast {
	start := now.Truncate(time.Hour)

	hourly := &ForecastSeries{
		Time:        make([]time.Time, FallbackHours),
		EuropeanAQI: make([]float64, FallbackHours),
		PM25:        make([]float64, FallbackHours),
		PM10:        make([]float64, FallbackHours),
	}
	for i := 0; i < FallbackHours; i++ {
		hourly.Time[i] = start.Add(time.Duration(i) * time.Hour)
		hourly.EuropeanAQI[i] = math.Round(fallbackEUAQIBand.sample(rng))
		hourly.PM25[i] = fallbackForecastPM.sample(rng)
		hourly.PM10[i] = fallbackForecastPM.sample(rng) + 10
	}

	return &Forecast{
		Hourly:    hourly,
		FetchedAt: now,
	}
}

package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"strings"
)

// Mock synthesizes plausible weather data so the service runs without an
// upstream API key. Values are derived from a hash of the lowercased place
// name, so the same city always yields the same snapshot within a run and
// the response shape matches the real provider exactly.
type Mock struct{}

// NewMock creates the mock provider.
func NewMock() *Mock {
	return &Mock{}
}

var mockConditions = []struct {
	Main        string
	Description string
	Icon        string
}{
	{"Clear", "clear sky", "01d"},
	{"Clouds", "scattered clouds", "03d"},
	{"Rain", "light rain", "10d"},
	{"Drizzle", "light intensity drizzle", "09d"},
	{"Snow", "light snow", "13d"},
	{"Mist", "mist", "50d"},
}

type mockWeatherCondition struct {
	Main        string `json:"main"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

type mockCurrent struct {
	Name    string                 `json:"name"`
	Weather []mockWeatherCondition `json:"weather"`
	Main    struct {
		Temp      float64 `json:"temp"`
		FeelsLike float64 `json:"feels_like"`
		TempMin   float64 `json:"temp_min"`
		TempMax   float64 `json:"temp_max"`
		Humidity  int     `json:"humidity"`
		Pressure  int     `json:"pressure"`
	} `json:"main"`
	Wind struct {
		Speed float64 `json:"speed"`
		Deg   int     `json:"deg"`
	} `json:"wind"`
	Visibility int `json:"visibility"`
	Sys        struct {
		Sunrise int64  `json:"sunrise"`
		Sunset  int64  `json:"sunset"`
		Country string `json:"country"`
	} `json:"sys"`
	Coord struct {
		Lat float64 `json:"lat"`
		Lon float64 `json:"lon"`
	} `json:"coord"`
	Timezone int `json:"timezone"`
}

// Current synthesizes a current-weather snapshot.
func (m *Mock) Current(_ context.Context, q Query) (*Snapshot, error) {
	name := strings.TrimSpace(q.City)
	if name == "" {
		name = "Demo City"
	}
	seed := citySeed(name)

	var data mockCurrent
	data.Name = name

	cond := mockConditions[seed%uint64(len(mockConditions))]
	data.Weather = []mockWeatherCondition{{cond.Main, cond.Description, cond.Icon}}

	temp := float64(int64(seed%400))/10 - 5 // -5.0 .. 34.9
	data.Main.Temp = temp
	data.Main.FeelsLike = temp - float64(seed>>4%40)/10
	data.Main.TempMin = temp - float64(seed>>8%50)/10
	data.Main.TempMax = temp + float64(seed>>12%50)/10
	data.Main.Humidity = int(30 + seed>>16%65)
	data.Main.Pressure = int(985 + seed>>20%45)

	data.Wind.Speed = float64(5+seed>>24%120) / 10
	data.Wind.Deg = int(seed >> 28 % 360)

	data.Visibility = 10000

	// Fixed epoch offsets keep repeated calls byte-identical.
	data.Sys.Sunrise = int64(1700000000 + seed%7200)
	data.Sys.Sunset = data.Sys.Sunrise + 36000 + int64(seed>>32%7200)
	data.Sys.Country = "US"

	if q.Lat != nil && q.Lon != nil {
		data.Coord.Lat = *q.Lat
		data.Coord.Lon = *q.Lon
	} else {
		data.Coord.Lat = float64(int64(seed%18000))/100 - 90
		data.Coord.Lon = float64(int64(seed>>8%36000))/100 - 180
	}
	data.Timezone = int(seed%25)*3600 - 43200

	payload, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return &Snapshot{Name: name, Payload: payload}, nil
}

type mockForecastEntry struct {
	Dt   int64 `json:"dt"`
	Main struct {
		Temp    float64 `json:"temp"`
		TempMin float64 `json:"temp_min"`
		TempMax float64 `json:"temp_max"`
	} `json:"main"`
	Weather []mockWeatherCondition `json:"weather"`
}

// Forecast synthesizes a forecast list keyed off the coordinate pair.
func (m *Mock) Forecast(_ context.Context, lat, lon float64) (json.RawMessage, error) {
	seed := citySeed(fmt.Sprintf("%.2f,%.2f", lat, lon))

	list := make([]mockForecastEntry, 0, 8)
	for i := 0; i < 8; i++ {
		step := seed >> (uint(i) * 4)
		var entry mockForecastEntry
		entry.Dt = int64(1700000000 + i*10800)
		temp := float64(int64(step%350))/10 - 3
		entry.Main.Temp = temp
		entry.Main.TempMin = temp - 3
		entry.Main.TempMax = temp + 3
		cond := mockConditions[step%uint64(len(mockConditions))]
		entry.Weather = []mockWeatherCondition{{cond.Main, cond.Description, cond.Icon}}
		list = append(list, entry)
	}

	return json.Marshal(map[string]interface{}{"list": list})
}

// AirQuality synthesizes an air pollution reading keyed off the
// coordinate pair.
func (m *Mock) AirQuality(_ context.Context, lat, lon float64) (json.RawMessage, error) {
	seed := citySeed(fmt.Sprintf("%.2f,%.2f", lat, lon))

	reading := map[string]interface{}{
		"main": map[string]interface{}{"aqi": int(1 + seed%5)},
		"components": map[string]interface{}{
			"co":    float64(200+seed%300) / 10,
			"no2":   float64(5+seed>>8%400) / 10,
			"o3":    float64(20+seed>>16%800) / 10,
			"pm2_5": float64(2+seed>>24%250) / 10,
			"pm10":  float64(5+seed>>32%400) / 10,
		},
		"dt": int64(1700000000 + seed%86400),
	}

	return json.Marshal(map[string]interface{}{
		"coord": map[string]float64{"lat": lat, "lon": lon},
		"list":  []interface{}{reading},
	})
}

// citySeed hashes a place name case-insensitively into a stable seed.
func citySeed(name string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(strings.ToLower(strings.TrimSpace(name))))
	return h.Sum64()
}

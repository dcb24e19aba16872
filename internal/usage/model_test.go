package usage

import (
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jgoulah/gridcast/pkg/models"
)

// 2025-06-16 is a Monday
var monday = time.Date(2025, 6, 16, 0, 0, 0, 0, time.UTC)

func TestProfileBase(t *testing.T) {
	saturday := monday.AddDate(0, 0, 5)

	tests := []struct {
		name    string
		profile Profile
		ts      time.Time
		want    float64
	}{
		{"ac night", AirConditioner, monday.Add(3 * time.Hour), 0.1},
		{"ac day", AirConditioner, monday.Add(10 * time.Hour), 0.5},
		{"ac evening", AirConditioner, monday.Add(23*time.Hour + 45*time.Minute), 0.8},
		{"ac weekend evening", AirConditioner, saturday.Add(20 * time.Hour), 0.56},
		{"washer night", WashingMachine, monday.Add(6 * time.Hour), 0.05},
		{"washer morning", WashingMachine, monday.Add(7 * time.Hour), 0.3},
		{"washer day", WashingMachine, monday.Add(12 * time.Hour), 0.1},
		{"washer weekend evening", WashingMachine, saturday.AddDate(0, 0, 1).Add(19 * time.Hour), 0.6},
		{"fridge ignores time", Refrigerator, saturday.Add(2 * time.Hour), 0.08},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, tt.profile.Base(tt.ts), 1e-9)
		})
	}
}

func TestProfileDrawNonNegative(t *testing.T) {
	src := rand.NewPCG(1, 2)
	for _, name := range DefaultRegistry().Types() {
		m, err := DefaultRegistry().Lookup(name)
		require.NoError(t, err)

		ts := monday
		for i := 0; i < 5000; i++ {
			v := m.Draw(ts, src)
			if v < 0 {
				t.Fatalf("%s produced negative usage %v at %s", name, v, ts)
			}
			ts = ts.Add(15 * time.Minute)
		}
	}
}

func TestRefrigeratorNeverGated(t *testing.T) {
	src := rand.NewPCG(7, 7)
	ts := monday
	for i := 0; i < 5000; i++ {
		assert.Greater(t, Refrigerator.Draw(ts, src), 0.0)
		ts = ts.Add(15 * time.Minute)
	}
}

func TestWashingMachineMostlyOff(t *testing.T) {
	src := rand.NewPCG(42, 0)
	const n = 20000

	zeros := 0
	ts := monday
	for i := 0; i < n; i++ {
		if WashingMachine.Draw(ts, src) == 0 {
			zeros++
		}
		ts = ts.Add(15 * time.Minute)
	}

	frac := float64(zeros) / n
	assert.GreaterOrEqual(t, frac, 0.80)
	assert.InDelta(t, 0.85, frac, 0.02)
}

func TestDrawDeterministic(t *testing.T) {
	a := rand.NewPCG(3, 4)
	b := rand.NewPCG(3, 4)
	ts := monday
	for i := 0; i < 200; i++ {
		assert.Equal(t, WashingMachine.Draw(ts, a), WashingMachine.Draw(ts, b))
		ts = ts.Add(time.Hour)
	}
}

func TestDrawRounded(t *testing.T) {
	src := rand.NewPCG(9, 9)
	for i := 0; i < 100; i++ {
		v := AirConditioner.Draw(monday, src)
		assert.InDelta(t, round3(v), v, 1e-12)
	}
}

func TestProfileValidate(t *testing.T) {
	tests := []struct {
		name    string
		profile Profile
		wantErr bool
	}{
		{"built-in ac", AirConditioner, false},
		{"built-in washer", WashingMachine, false},
		{"constant", Profile{Mean: 1, Sigma: 0.1}, false},
		{"negative sigma", Profile{Mean: 1, Sigma: -1}, true},
		{"always off", Profile{Mean: 1, OffProbability: 1}, true},
		{"negative mean", Profile{Mean: -1}, true},
		{"bands not ending at 24", Profile{Bands: []Band{{Until: 12, Base: 1}}}, true},
		{"bands out of order", Profile{Bands: []Band{{Until: 12, Base: 1}, {Until: 6, Base: 1}, {Until: 24, Base: 1}}}, true},
		{"negative band", Profile{Bands: []Band{{Until: 24, Base: -0.5}}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.profile.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestRegistry(t *testing.T) {
	r := DefaultRegistry()
	assert.Len(t, r.Types(), 6)

	_, err := r.Lookup("Toaster")
	assert.ErrorIs(t, err, ErrMissingApplianceModel)

	r.Register("Toaster", ModelFunc(func(time.Time, rand.Source) float64 { return 0.2 }))
	m, err := r.Lookup("Toaster")
	require.NoError(t, err)
	assert.Equal(t, 0.2, m.Draw(monday, rand.NewPCG(0, 0)))

	err = r.RegisterProfiles(map[string]Profile{"Heater": {Mean: 1.2, Sigma: 0.1}})
	require.NoError(t, err)
	_, err = r.Lookup(models.ApplianceType("Heater"))
	assert.NoError(t, err)

	err = r.RegisterProfiles(map[string]Profile{"Broken": {Mean: 1, Sigma: -2}})
	assert.Error(t, err)
}

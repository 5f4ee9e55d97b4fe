package estimate

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/house-report/internal/model"
)

func TestDepartmentPrice(t *testing.T) {
	tables := Default()

	tests := []struct {
		dept       string
		wantPrice  int
		wantMethod Method
	}{
		{"75", 10000, MethodDepartment},
		{"92", 5000, MethodDepartment},
		{"93", 3500, MethodDepartment},
		{"69", 4500, MethodDepartment},
		{"23", 2500, MethodDefault},
		{"", 2500, MethodDefault},
	}
	for _, tt := range tests {
		t.Run(tt.dept, func(t *testing.T) {
			p, m := tables.DepartmentPrice(tt.dept)
			assert.Equal(t, tt.wantPrice, p)
			assert.Equal(t, tt.wantMethod, m)
		})
	}
}

func TestMetroDepartmentsWithinBand(t *testing.T) {
	for dept, p := range Default().Departments {
		switch dept {
		case "75", "92", "93", "94":
			continue
		}
		assert.GreaterOrEqual(t, p, 3500, dept)
		assert.LessOrEqual(t, p, 5500, dept)
	}
}

func TestPrice_FallsBackToRegion(t *testing.T) {
	tables := Default()

	p, m := tables.Price("75", "Île-de-France")
	assert.Equal(t, 10000, p)
	assert.Equal(t, MethodDepartment, m)

	p, m = tables.Price("77", "Île-de-France")
	assert.Equal(t, 5500, p)
	assert.Equal(t, MethodRegion, m)

	p, m = tables.Price("23", "Nowhere")
	assert.Equal(t, 2500, p)
	assert.Equal(t, MethodDefault, m)
}

func TestLevelVsNational(t *testing.T) {
	th := DefaultThresholds()

	assert.Equal(t, model.LevelLow, th.LevelVsNational(10, 20))
	assert.Equal(t, model.LevelHigh, th.LevelVsNational(30, 20))
	assert.Equal(t, model.LevelMedium, th.LevelVsNational(15, 20))
	assert.Equal(t, model.LevelMedium, th.LevelVsNational(25, 20))
	assert.Equal(t, model.LevelUnknown, th.LevelVsNational(5, 0))
}

func TestTrend(t *testing.T) {
	th := DefaultThresholds()

	assert.Equal(t, model.TrendUp, th.Trend(2000, 2200))
	assert.Equal(t, model.TrendDown, th.Trend(2000, 1800))
	assert.Equal(t, model.TrendStable, th.Trend(2000, 2050))
	assert.Equal(t, model.TrendStable, th.Trend(0, 2050))
}

func TestPlausibility(t *testing.T) {
	th := DefaultThresholds()

	assert.False(t, th.PlausibleTransaction(100))
	assert.True(t, th.PlausibleTransaction(101))
	assert.False(t, th.PlausibleTransaction(50000))

	assert.True(t, th.PlausibleWeb(500))
	assert.True(t, th.PlausibleWeb(50000))
	assert.False(t, th.PlausibleWeb(499))
}

func TestLoad_Empty(t *testing.T) {
	tables, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), tables)
}

func TestLoad_Overrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tables.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
departments:
  "75": 11000
  "23": 1500
regions:
  Corse: 4200
default: 2000
thresholds:
  safety_low: 0.8
`), 0o600))

	tables, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 11000, tables.Departments["75"])
	assert.Equal(t, 1500, tables.Departments["23"])
	assert.Equal(t, 5000, tables.Departments["92"])
	assert.Equal(t, 4200, tables.Regions["Corse"])
	assert.Equal(t, 2000, tables.Default)
	assert.InDelta(t, 0.8, tables.Thresholds.SafetyLow, 1e-9)
	assert.InDelta(t, 1.25, tables.Thresholds.SafetyHigh, 1e-9)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("departments: [1, 2"), 0o600))
	_, err = Load(path)
	require.Error(t, err)
}

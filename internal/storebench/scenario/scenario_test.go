package scenario

import (
	"math/rand"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/armadaproject/storebench/internal/storebench/jobs"
)

func intPtr(i int) *int {
	return &i
}

func endToEndSpec() Spec {
	return Spec{
		Name:         "end to end",
		UserCount:    4,
		InitialFiles: map[string]int{"tiny": 300, "small": 300, "medium": 300, "large": 100, "huge": 0},
		CrudProfile:  []float64{6, 0, 0, 1},
		FileCount:    intPtr(5000),
		Seed:         42,
	}
}

func TestNewScenarioFile(t *testing.T) {
	f, err := NewScenarioFile("S", "tiny", 72)
	require.NoError(t, err)
	assert.Equal(t, "Picture", f.Container)
	assert.Equal(t, "SP000072", f.Name)
	assert.Equal(t, int64(99000), f.Size)

	f, err = NewScenarioFile("P", "huge", 3049)
	require.NoError(t, err)
	assert.Equal(t, "Application", f.Container)
	assert.Equal(t, "PL003049", f.Name)
	assert.Equal(t, int64(1100000000), f.Size)

	_, err = NewScenarioFile("S", "gigantic", 1)
	assert.Error(t, err)
}

func TestInitialJobs_RoundRobinSkipsExhaustedSizes(t *testing.T) {
	sc, err := New(endToEndSpec())
	require.NoError(t, err)

	initial := sc.InitialJobs()
	require.Len(t, initial, 1000)

	names := []string{}
	for _, j := range initial[:6] {
		names = append(names, j.ObjectName)
	}
	assert.Equal(t, []string{"SP000001", "SA000001", "SD000001", "SV000001", "SP000002", "SA000002"}, names)
	assert.Equal(t, "tiny", initial[4].SizeStr)
	assert.Equal(t, "Picture", initial[4].Container)

	perSize := map[string]int{}
	for _, j := range initial {
		assert.Equal(t, jobs.CreateObject, j.Type)
		perSize[j.SizeStr]++
	}
	assert.Equal(t, map[string]int{"tiny": 300, "small": 300, "medium": 300, "large": 100}, perSize)
	assert.Equal(t, "SP000300", initial[len(initial)-1].ObjectName)
}

func TestBenchJobs_WeightedSamplingFidelity(t *testing.T) {
	sc, err := New(endToEndSpec())
	require.NoError(t, err)
	assert.Equal(t, 5000, sc.OperationCount())

	counts := map[jobs.OpType]int{}
	for seed := int64(1); seed <= 4; seed++ {
		bench := sc.benchJobs(rand.New(rand.NewSource(seed)))
		require.Len(t, bench, 5000)
		for _, j := range bench {
			counts[j.Type]++
		}
	}
	assert.Zero(t, counts[jobs.ReadObject])
	assert.Zero(t, counts[jobs.UpdateObject])
	require.NotZero(t, counts[jobs.DeleteObject])
	ratio := float64(counts[jobs.CreateObject]) / float64(counts[jobs.DeleteObject])
	assert.InDelta(t, 6.0, ratio, 0.6)
}

func TestBenchJobs_OnlyCreatesAreNamed(t *testing.T) {
	spec := endToEndSpec()
	spec.CrudProfile = []float64{1, 1, 1, 1}
	sc, err := New(spec)
	require.NoError(t, err)

	perSize := map[string]int{}
	for _, j := range sc.benchJobs(rand.New(rand.NewSource(7))) {
		assert.NotEqual(t, "huge", j.SizeStr, "sizes with no initial files are never sampled")
		if j.Type != jobs.CreateObject {
			assert.Empty(t, j.ObjectName)
			assert.NotEmpty(t, j.Container)
			continue
		}
		perSize[j.SizeStr]++
		size, ok := sc.Size(j.SizeStr)
		require.True(t, ok)
		f := newFile(PurposePopulation, size, perSize[j.SizeStr], nil)
		assert.Equal(t, f.Name, j.ObjectName)
		assert.Equal(t, f.Size, j.ObjectSize)
	}
}

func TestBenchJobs_SeedIsReproducible(t *testing.T) {
	sc, err := New(endToEndSpec())
	require.NoError(t, err)
	assert.Equal(t, sc.BenchJobs(), sc.BenchJobs())
}

func TestThresholds(t *testing.T) {
	sc, err := New(endToEndSpec())
	require.NoError(t, err)

	sizes := sc.SizeThresholds()
	require.Len(t, sizes, 5)
	for i := 1; i < len(sizes); i++ {
		assert.GreaterOrEqual(t, sizes[i], sizes[i-1])
	}
	assert.Equal(t, 1.0, sizes[4])
	assert.InDelta(t, 0.3, sizes[0], 1e-9)
	assert.Equal(t, sizes[3], sizes[4])

	crud := sc.CrudThresholds("tiny")
	assert.InDelta(t, 6.0/7.0, crud[0], 1e-9)
	assert.Equal(t, crud[0], crud[1])
	assert.Equal(t, crud[1], crud[2])
	assert.Equal(t, 1.0, crud[3])
}

func TestPick(t *testing.T) {
	thresholds := []float64{0.25, 0.25, 0.75, 1.0}
	assert.Equal(t, 0, pick(thresholds, 0))
	assert.Equal(t, 2, pick(thresholds, 0.25))
	assert.Equal(t, 2, pick(thresholds, 0.5))
	assert.Equal(t, 3, pick(thresholds, 0.999))
}

func TestNew_Invalid(t *testing.T) {
	tests := map[string]func(*Spec){
		"zero users":          func(s *Spec) { s.UserCount = 0 },
		"too many users":      func(s *Spec) { s.UserCount = MaxWorkers + 1 },
		"zero crud weights":   func(s *Spec) { s.CrudProfile = []float64{0, 0, 0, 0} },
		"negative weight":     func(s *Spec) { s.CrudProfile = []float64{1, -1, 0, 1} },
		"short crud profile":  func(s *Spec) { s.CrudProfile = []float64{1, 1} },
		"unknown size":        func(s *Spec) { s.InitialFiles["massive"] = 3 },
		"negative file count": func(s *Spec) { s.InitialFiles["tiny"] = -1 },
		"negative operations": func(s *Spec) { s.OperationCount = intPtr(-5) },
		"nothing to weight sizes": func(s *Spec) {
			s.InitialFiles = map[string]int{"tiny": 0}
		},
		"inverted size range": func(s *Spec) {
			s.Sizes = []SizeSpec{{Name: "tiny", SizeMin: 10, SizeMax: 5}}
		},
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			spec := endToEndSpec()
			mutate(&spec)
			sc, err := New(spec)
			assert.Nil(t, sc)
			var invalid *ErrInvalidScenario
			assert.True(t, errors.As(err, &invalid), "expected ErrInvalidScenario, got %v", err)
		})
	}
}

func TestNew_ReportsEveryProblem(t *testing.T) {
	spec := endToEndSpec()
	spec.UserCount = 0
	spec.CrudProfile = []float64{0, 0, 0, 0}
	_, err := New(spec)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "user_count")
	assert.Contains(t, err.Error(), "crud_profile")
}

func TestNew_OperationCountWinsOverFileCount(t *testing.T) {
	spec := endToEndSpec()
	spec.OperationCount = intPtr(10)
	sc, err := New(spec)
	require.NoError(t, err)
	assert.Equal(t, 10, sc.OperationCount())
}

func TestDeclaredSizes(t *testing.T) {
	sc, err := New(Spec{
		Name:         "ranged",
		UserCount:    1,
		InitialFiles: map[string]int{"blob": 4, "chunk": 4},
		CrudProfile:  []float64{1, 0, 0, 0},
		Sizes: []SizeSpec{
			{Name: "blob", SizeMin: 100, SizeMax: 200},
			{Name: "chunk", SizeMin: 50, SizeMax: 50, CrudProfile: []float64{0, 1, 0, 0}},
		},
		OperationCount: intPtr(200),
		Seed:           3,
	})
	require.NoError(t, err)

	for _, j := range sc.InitialJobs() {
		switch j.SizeStr {
		case "blob":
			assert.Equal(t, "storebench_blob", j.Container)
			assert.Equal(t, byte('B'), j.ObjectName[1])
			assert.GreaterOrEqual(t, j.ObjectSize, int64(100))
			assert.LessOrEqual(t, j.ObjectSize, int64(200))
		case "chunk":
			assert.Equal(t, "storebench_chunk", j.Container)
			assert.Equal(t, int64(50), j.ObjectSize)
		}
	}
	for _, j := range sc.BenchJobs() {
		if j.SizeStr == "chunk" {
			assert.Equal(t, jobs.ReadObject, j.Type)
		} else {
			assert.Equal(t, jobs.CreateObject, j.Type)
		}
	}

	pct := sc.CrudPercentages()
	assert.Equal(t, [4]float64{100, 0, 0, 0}, pct.Sizes["blob"])
	assert.Equal(t, [4]float64{0, 100, 0, 0}, pct.Sizes["chunk"])
	assert.Equal(t, [4]float64{50, 50, 0, 0}, pct.Weighted)
}

func TestContainerJobs(t *testing.T) {
	sc, err := New(endToEndSpec())
	require.NoError(t, err)

	containers := []string{}
	for _, j := range sc.ContainerJobs(jobs.CreateContainer) {
		assert.Equal(t, jobs.CreateContainer, j.Type)
		containers = append(containers, j.Container)
	}
	assert.Equal(t, []string{"Picture", "Audio", "Document", "Video", "Application"}, containers)
}

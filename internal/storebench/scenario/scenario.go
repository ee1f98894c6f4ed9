package scenario

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"github.com/armadaproject/storebench/internal/storebench/jobs"
)

// MaxWorkers bounds user_count.
const MaxWorkers = 1000

const thresholdTolerance = 1e-9

// Spec is the declarative scenario record as read from disk.
type Spec struct {
	Name           string         `json:"name"`
	UserCount      int            `json:"user_count"`
	OperationCount *int           `json:"operation_count,omitempty"`
	FileCount      *int           `json:"file_count,omitempty"`
	InitialFiles   map[string]int `json:"initial_files"`
	CrudProfile    []float64      `json:"crud_profile"`
	Sizes          []SizeSpec     `json:"sizes,omitempty"`
	Seed           int64          `json:"seed,omitempty"`
}

// SizeSpec declares one size class in the extended scenario format.
type SizeSpec struct {
	Name        string    `json:"name"`
	SizeMin     int64     `json:"size_min"`
	SizeMax     int64     `json:"size_max"`
	CrudProfile []float64 `json:"crud_profile,omitempty"`
}

type ErrInvalidScenario struct {
	Name   string
	Reason error
}

func (e *ErrInvalidScenario) Error() string {
	return fmt.Sprintf("invalid scenario %q: %s", e.Name, e.Reason)
}

func (e *ErrInvalidScenario) Unwrap() error {
	return e.Reason
}

// Scenario is an immutable, validated workload description.
type Scenario struct {
	spec           Spec
	sizes          []SizeClass
	operationCount int
	crudProfile    [4]float64
	sizeThresholds []float64
	crudThresholds [4]float64
	// Per size overrides, keyed by size name.
	sizeCrudThresholds map[string][4]float64
}

// New validates spec and derives the sampling tables. Every problem found is reported at once.
func New(spec Spec) (*Scenario, error) {
	var result *multierror.Error

	if spec.UserCount < 1 || spec.UserCount > MaxWorkers {
		result = multierror.Append(result, errors.Errorf("user_count must be between 1 and %d, got %d", MaxWorkers, spec.UserCount))
	}

	sizes := DefaultSizes
	if len(spec.Sizes) > 0 {
		sizes = make([]SizeClass, 0, len(spec.Sizes))
		seen := map[string]bool{}
		for i, s := range spec.Sizes {
			if s.Name == "" {
				result = multierror.Append(result, errors.Errorf("sizes[%d] has no name", i))
				continue
			}
			if seen[s.Name] {
				result = multierror.Append(result, errors.Errorf("size %q declared more than once", s.Name))
				continue
			}
			seen[s.Name] = true
			if s.SizeMin < 0 || s.SizeMax < s.SizeMin {
				result = multierror.Append(result, errors.Errorf("size %q: size_min %d and size_max %d do not form a range", s.Name, s.SizeMin, s.SizeMax))
			}
			if s.CrudProfile != nil {
				if err := checkCrudProfile(s.CrudProfile); err != nil {
					result = multierror.Append(result, errors.Wrapf(err, "size %q", s.Name))
				}
			}
			sizes = append(sizes, declaredSize(s))
		}
	}

	if err := checkCrudProfile(spec.CrudProfile); err != nil {
		result = multierror.Append(result, err)
	}

	known := map[string]bool{}
	for _, s := range sizes {
		known[s.Name] = true
	}
	totalInitial := 0
	for name, count := range spec.InitialFiles {
		if !known[name] {
			result = multierror.Append(result, errors.Errorf("initial_files references unknown size %q", name))
		}
		if count < 0 {
			result = multierror.Append(result, errors.Errorf("initial_files[%s] must not be negative, got %d", name, count))
			continue
		}
		totalInitial += count
	}

	operationCount := 0
	switch {
	case spec.OperationCount != nil:
		operationCount = *spec.OperationCount
	case spec.FileCount != nil:
		operationCount = *spec.FileCount
	}
	if operationCount < 0 {
		result = multierror.Append(result, errors.Errorf("operation_count must not be negative, got %d", operationCount))
	}
	if operationCount > 0 && totalInitial == 0 {
		result = multierror.Append(result, errors.New("initial_files must hold at least one object to weight benchmark sizes"))
	}

	if err := result.ErrorOrNil(); err != nil {
		return nil, &ErrInvalidScenario{Name: spec.Name, Reason: err}
	}

	sc := &Scenario{
		spec:               spec,
		sizes:              sizes,
		operationCount:     operationCount,
		sizeCrudThresholds: map[string][4]float64{},
	}
	copy(sc.crudProfile[:], spec.CrudProfile)
	sc.crudThresholds = crudThresholds(spec.CrudProfile)
	for _, s := range sizes {
		if s.CrudProfile != nil {
			sc.sizeCrudThresholds[s.Name] = crudThresholds(s.CrudProfile)
		}
	}
	weights := make([]float64, len(sizes))
	for i, s := range sizes {
		weights[i] = float64(spec.InitialFiles[s.Name])
	}
	if totalInitial > 0 {
		sc.sizeThresholds = cumulative(weights)
	}
	return sc, nil
}

func checkCrudProfile(profile []float64) error {
	if len(profile) != 4 {
		return errors.Errorf("crud_profile must have 4 weights, got %d", len(profile))
	}
	sum := 0.0
	for i, w := range profile {
		if w < 0 || math.IsNaN(w) || math.IsInf(w, 0) {
			return errors.Errorf("crud_profile[%d] must be a non-negative number, got %v", i, w)
		}
		sum += w
	}
	if sum <= 0 {
		return errors.New("crud_profile weights must sum to more than zero")
	}
	return nil
}

// cumulative turns weights into a monotonic threshold table ending in exactly 1.0.
func cumulative(weights []float64) []float64 {
	total := 0.0
	for _, w := range weights {
		total += w
	}
	thresholds := make([]float64, len(weights))
	running := 0.0
	for i, w := range weights {
		running += w
		thresholds[i] = running / total
	}
	if n := len(thresholds); n > 0 && math.Abs(thresholds[n-1]-1.0) < thresholdTolerance {
		thresholds[n-1] = 1.0
	}
	return thresholds
}

func crudThresholds(profile []float64) [4]float64 {
	var out [4]float64
	copy(out[:], cumulative(profile))
	return out
}

func pick(thresholds []float64, draw float64) int {
	for i, t := range thresholds {
		if draw < t {
			return i
		}
	}
	return len(thresholds) - 1
}

func (s *Scenario) Name() string { return s.spec.Name }
func (s *Scenario) UserCount() int { return s.spec.UserCount }
func (s *Scenario) OperationCount() int { return s.operationCount }
func (s *Scenario) CrudProfile() [4]float64 { return s.crudProfile }
func (s *Scenario) Seed() int64 { return s.spec.Seed }

// Sizes returns the size classes in their fixed sampling order.
func (s *Scenario) Sizes() []SizeClass {
	out := make([]SizeClass, len(s.sizes))
	copy(out, s.sizes)
	return out
}

func (s *Scenario) Size(name string) (SizeClass, bool) {
	for _, c := range s.sizes {
		if c.Name == name {
			return c, true
		}
	}
	return SizeClass{}, false
}

func (s *Scenario) InitialFiles(size string) int {
	return s.spec.InitialFiles[size]
}

func (s *Scenario) SizeThresholds() []float64 {
	out := make([]float64, len(s.sizeThresholds))
	copy(out, s.sizeThresholds)
	return out
}

// CrudThresholds returns the thresholds used for jobs of the given size.
func (s *Scenario) CrudThresholds(size string) [4]float64 {
	if t, ok := s.sizeCrudThresholds[size]; ok {
		return t
	}
	return s.crudThresholds
}

// InitialJobs creates the stock population, round-robin across sizes until every count is used up.
func (s *Scenario) InitialJobs() []jobs.Job {
	remaining := make([]int, len(s.sizes))
	total := 0
	for i, size := range s.sizes {
		remaining[i] = s.spec.InitialFiles[size.Name]
		total += remaining[i]
	}
	rng := rand.New(rand.NewSource(s.spec.Seed))
	next := make([]int, len(s.sizes))
	out := make([]jobs.Job, 0, total)
	for len(out) < total {
		for i, size := range s.sizes {
			if remaining[i] == 0 {
				continue
			}
			remaining[i]--
			next[i]++
			out = append(out, newFile(PurposeStock, size, next[i], rng).Job(jobs.CreateObject))
		}
	}
	return out
}

// BenchJobs samples OperationCount jobs. Only CREATE jobs are named; the rest are targeted later.
func (s *Scenario) BenchJobs() []jobs.Job {
	seed := s.spec.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return s.benchJobs(rand.New(rand.NewSource(seed)))
}

func (s *Scenario) benchJobs(rng *rand.Rand) []jobs.Job {
	if s.operationCount == 0 || len(s.sizeThresholds) == 0 {
		return nil
	}
	next := make([]int, len(s.sizes))
	out := make([]jobs.Job, 0, s.operationCount)
	for i := 0; i < s.operationCount; i++ {
		sizeIdx := pick(s.sizeThresholds, rng.Float64())
		size := s.sizes[sizeIdx]
		crud := s.CrudThresholds(size.Name)
		op := jobs.CrudTypes[pick(crud[:], rng.Float64())]
		if op == jobs.CreateObject {
			next[sizeIdx]++
			out = append(out, newFile(PurposePopulation, size, next[sizeIdx], rng).Job(op))
			continue
		}
		out = append(out, jobs.Job{Type: op, SizeStr: size.Name, Container: size.Container})
	}
	return out
}

// ContainerJobs yields one job of type op per distinct container, in size order.
func (s *Scenario) ContainerJobs(op jobs.OpType) []jobs.Job {
	seen := map[string]bool{}
	var out []jobs.Job
	for _, size := range s.sizes {
		if seen[size.Container] {
			continue
		}
		seen[size.Container] = true
		out = append(out, jobs.Job{Type: op, SizeStr: size.Name, Container: size.Container})
	}
	return out
}

// CrudPercentages describes the workload mix per size and weighted by each size's share.
type CrudPercentages struct {
	Sizes    map[string][4]float64
	Weighted [4]float64
}

func (s *Scenario) CrudPercentages() CrudPercentages {
	out := CrudPercentages{Sizes: map[string][4]float64{}}
	total := 0
	for _, size := range s.sizes {
		total += s.spec.InitialFiles[size.Name]
	}
	for _, size := range s.sizes {
		profile := s.spec.CrudProfile
		if size.CrudProfile != nil {
			profile = size.CrudProfile
		}
		pct := percentages(profile)
		out.Sizes[size.Name] = pct
		if total == 0 {
			continue
		}
		share := float64(s.spec.InitialFiles[size.Name]) / float64(total)
		for i := range pct {
			out.Weighted[i] += pct[i] * share
		}
	}
	if total == 0 {
		out.Weighted = percentages(s.spec.CrudProfile)
	}
	return out
}

func percentages(profile []float64) [4]float64 {
	var out [4]float64
	sum := 0.0
	for _, w := range profile {
		sum += w
	}
	if sum <= 0 {
		return out
	}
	for i := 0; i < 4 && i < len(profile); i++ {
		out[i] = 100 * profile[i] / sum
	}
	return out
}

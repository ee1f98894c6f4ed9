package scenario

import (
	"fmt"
	"math/rand"

	"github.com/armadaproject/storebench/internal/storebench/jobs"
)

const (
	// PurposeStock marks objects created while populating the cluster before the timed run.
	PurposeStock = "S"
	// PurposePopulation marks objects created during the timed run.
	PurposePopulation = "P"
)

// File is an object the scenario knows how to name and size.
type File struct {
	Purpose   string
	SizeStr   string
	Index     int
	Container string
	Name      string
	Size      int64
}

// NewScenarioFile names and sizes an object from the default size table.
func NewScenarioFile(purpose, sizeStr string, index int) (File, error) {
	size, ok := DefaultSize(sizeStr)
	if !ok {
		return File{}, fmt.Errorf("unknown size %q", sizeStr)
	}
	return newFile(purpose, size, index, nil), nil
}

func newFile(purpose string, size SizeClass, index int, rng *rand.Rand) File {
	return File{
		Purpose:   purpose,
		SizeStr:   size.Name,
		Index:     index,
		Container: size.Container,
		Name:      fmt.Sprintf("%s%c%06d", purpose, size.TypeChar, index),
		Size:      size.ObjectSize(rng),
	}
}

func (f File) Job(op jobs.OpType) jobs.Job {
	return jobs.Job{
		Type:       op,
		SizeStr:    f.SizeStr,
		Container:  f.Container,
		ObjectName: f.Name,
		ObjectSize: f.Size,
	}
}

// Package jobs defines the records exchanged between the master and workers: jobs flowing out on a work
// tube and results flowing back on the stats tube.
package jobs

import (
	"fmt"

	"github.com/pkg/errors"
)

type OpType string

const (
	CreateObject    OpType = "upload_object"
	ReadObject      OpType = "get_object"
	UpdateObject    OpType = "update_object"
	DeleteObject    OpType = "delete_object"
	CreateContainer OpType = "create_container"
	DeleteContainer OpType = "delete_container"
)

// CrudTypes are the object operations in CRUD-profile order.
var CrudTypes = []OpType{CreateObject, ReadObject, UpdateObject, DeleteObject}

func (t OpType) IsObjectOp() bool {
	switch t {
	case CreateObject, ReadObject, UpdateObject, DeleteObject:
		return true
	}
	return false
}

func (t OpType) IsContainerOp() bool {
	return t == CreateContainer || t == DeleteContainer
}

// NeedsTarget reports whether a job of this type must name an existing object.
func (t OpType) NeedsTarget() bool {
	return t == ReadObject || t == UpdateObject || t == DeleteObject
}

// Label is the upper-case name used in reports.
func (t OpType) Label() string {
	switch t {
	case CreateObject:
		return "CREATE"
	case ReadObject:
		return "READ"
	case UpdateObject:
		return "UPDATE"
	case DeleteObject:
		return "DELETE"
	case CreateContainer:
		return "CREATE_CONTAINER"
	case DeleteContainer:
		return "DELETE_CONTAINER"
	}
	return string(t)
}

func ParseOpType(s string) (OpType, error) {
	t := OpType(s)
	if t.IsObjectOp() || t.IsContainerOp() {
		return t, nil
	}
	return "", errors.Errorf("unknown operation type %q", s)
}

// Job is a unit of work for a worker. ObjectName is empty for read, update and delete jobs until it is
// filled in from the live population.
type Job struct {
	Type       OpType `json:"type"`
	SizeStr    string `json:"size_str,omitempty"`
	Container  string `json:"container"`
	ObjectName string `json:"object_name,omitempty"`
	ObjectSize int64  `json:"object_size,omitempty"`
}

func (j Job) String() string {
	if j.ObjectName == "" {
		return fmt.Sprintf("%s %s/<unfilled> (%s)", j.Type.Label(), j.Container, j.SizeStr)
	}
	return fmt.Sprintf("%s %s/%s (%s)", j.Type.Label(), j.Container, j.ObjectName, j.SizeStr)
}

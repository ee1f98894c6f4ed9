package scenario

import (
	"os"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"sigs.k8s.io/yaml"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Load reads a YAML or JSON scenario file.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return Parse(data)
}

// Parse accepts YAML or JSON. The document is checked against the schema before the semantic checks in New.
func Parse(data []byte) (*Scenario, error) {
	document, err := yaml.YAMLToJSON(data)
	if err != nil {
		return nil, &ErrInvalidScenario{Reason: errors.Wrap(err, "cannot parse scenario")}
	}
	if err := validateSchema(document); err != nil {
		return nil, &ErrInvalidScenario{Name: peekName(document), Reason: err}
	}
	var spec Spec
	if err := json.Unmarshal(document, &spec); err != nil {
		return nil, &ErrInvalidScenario{Name: peekName(document), Reason: errors.WithStack(err)}
	}
	return New(spec)
}

// MarshalJSON stores the scenario in the form Parse accepts.
func (s *Scenario) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.spec)
}

func peekName(document []byte) string {
	var named struct {
		Name string `json:"name"`
	}
	_ = json.Unmarshal(document, &named)
	return named.Name
}

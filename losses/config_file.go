package losses

import (
	"bytes"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/YuminosukeSato/tabloss/pkg/errors"
)

// LoadConfig reads a loss configuration from a YAML or JSON file.
// The format is chosen by extension; anything other than .json is YAML.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrapf(err, "read loss config %s", path)
	}
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return ParseJSONConfig(data)
	}
	return ParseConfig(data)
}

// ParseConfig decodes a YAML loss configuration. Binary targets may be
// written as bare indices, [index, pos_weight] pairs or mappings;
// multiclass targets as [index, classes], [index, classes, [weights...]]
// or mappings. Unknown keys are rejected.
func ParseConfig(data []byte) (Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, errors.Wrap(err, "parse loss config")
	}
	return cfg, nil
}

// ParseJSONConfig decodes a JSON loss configuration with the same shorthand
// forms as ParseConfig.
func ParseJSONConfig(data []byte) (Config, error) {
	var cfg Config
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, errors.Wrap(err, "parse loss config")
	}
	return cfg, nil
}

// MarshalYAML writes unweighted binary targets as bare indices.
func (s BinaryTargetSpec) MarshalYAML() (interface{}, error) {
	if s.PosWeight == nil {
		return s.Index, nil
	}
	return struct {
		Index     int     `yaml:"index"`
		PosWeight float64 `yaml:"pos_weight"`
	}{s.Index, *s.PosWeight}, nil
}

// UnmarshalYAML accepts 3, [3, 0.5] and {index: 3, pos_weight: 0.5}.
func (s *BinaryTargetSpec) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var idx int
		if err := node.Decode(&idx); err != nil {
			return errors.NewConfigurationError("binary", "binary target must be an integer index", node.Value)
		}
		*s = Binary(idx)
		return nil
	case yaml.SequenceNode:
		if len(node.Content) != 2 {
			return errors.NewConfigurationError("binary", "binary target pair must be [index, pos_weight]", len(node.Content))
		}
		var idx int
		var w float64
		if err := node.Content[0].Decode(&idx); err != nil {
			return errors.NewConfigurationError("binary", "binary target index must be an integer", node.Content[0].Value)
		}
		if err := node.Content[1].Decode(&w); err != nil {
			return errors.NewConfigurationError("binary", "positive-class weight must be a number", node.Content[1].Value)
		}
		*s = WeightedBinary(idx, w)
		return nil
	case yaml.MappingNode:
		if err := checkMappingKeys("binary", node, "index", "pos_weight"); err != nil {
			return err
		}
		var raw struct {
			Index     *int     `yaml:"index"`
			PosWeight *float64 `yaml:"pos_weight"`
		}
		if err := node.Decode(&raw); err != nil {
			return errors.Wrap(err, "decode binary target")
		}
		if raw.Index == nil {
			return errors.NewConfigurationError("binary", "binary target mapping requires 'index'", nil)
		}
		*s = BinaryTargetSpec{Index: *raw.Index, PosWeight: raw.PosWeight}
		return nil
	default:
		return errors.NewConfigurationError("binary", "unsupported binary target form", node.Tag)
	}
}

// UnmarshalYAML accepts [1, 3], [1, 3, [0.2, 0.3, 0.5]] and
// {index: 1, classes: 3, class_weights: [...]}.
func (s *MulticlassTargetSpec) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.SequenceNode:
		if len(node.Content) != 2 && len(node.Content) != 3 {
			return errors.NewConfigurationError("multiclass",
				"multiclass target must be [index, classes] or [index, classes, class_weights]", len(node.Content))
		}
		var spec MulticlassTargetSpec
		if err := node.Content[0].Decode(&spec.Index); err != nil {
			return errors.NewConfigurationError("multiclass", "multiclass target index must be an integer", node.Content[0].Value)
		}
		if err := node.Content[1].Decode(&spec.NumClasses); err != nil {
			return errors.NewConfigurationError("multiclass", "number of classes must be an integer", node.Content[1].Value)
		}
		if len(node.Content) == 3 {
			if err := node.Content[2].Decode(&spec.ClassWeights); err != nil {
				return errors.NewConfigurationError("multiclass", "class weights must be a list of numbers", nil)
			}
		}
		*s = spec
		return nil
	case yaml.MappingNode:
		if err := checkMappingKeys("multiclass", node, "index", "classes", "class_weights"); err != nil {
			return err
		}
		var raw struct {
			Index        *int      `yaml:"index"`
			NumClasses   *int      `yaml:"classes"`
			ClassWeights []float64 `yaml:"class_weights"`
		}
		if err := node.Decode(&raw); err != nil {
			return errors.Wrap(err, "decode multiclass target")
		}
		if raw.Index == nil || raw.NumClasses == nil {
			return errors.NewConfigurationError("multiclass", "multiclass target mapping requires 'index' and 'classes'", nil)
		}
		*s = MulticlassTargetSpec{Index: *raw.Index, NumClasses: *raw.NumClasses, ClassWeights: raw.ClassWeights}
		return nil
	default:
		return errors.NewConfigurationError("multiclass", "unsupported multiclass target form", node.Value)
	}
}

// UnmarshalJSON accepts 3, [3, 0.5] and {"index": 3, "pos_weight": 0.5}.
func (s *BinaryTargetSpec) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return errors.NewConfigurationError("binary", "empty binary target", nil)
	}
	switch data[0] {
	case '[':
		var pair []float64
		if err := json.Unmarshal(data, &pair); err != nil {
			return errors.Wrap(err, "decode binary target")
		}
		if len(pair) != 2 {
			return errors.NewConfigurationError("binary", "binary target pair must be [index, pos_weight]", len(pair))
		}
		idx, err := integral("binary", pair[0])
		if err != nil {
			return err
		}
		*s = WeightedBinary(idx, pair[1])
		return nil
	case '{':
		var raw struct {
			Index     *int     `json:"index"`
			PosWeight *float64 `json:"pos_weight"`
		}
		if err := decodeStrictJSON(data, &raw); err != nil {
			return errors.Wrap(err, "decode binary target")
		}
		if raw.Index == nil {
			return errors.NewConfigurationError("binary", "binary target mapping requires 'index'", nil)
		}
		*s = BinaryTargetSpec{Index: *raw.Index, PosWeight: raw.PosWeight}
		return nil
	default:
		var idx int
		if err := json.Unmarshal(data, &idx); err != nil {
			return errors.NewConfigurationError("binary", "binary target must be an integer index", string(data))
		}
		*s = Binary(idx)
		return nil
	}
}

// UnmarshalJSON accepts [1, 3], [1, 3, [0.2, 0.3, 0.5]] and
// {"index": 1, "classes": 3, "class_weights": [...]}.
func (s *MulticlassTargetSpec) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '{' {
		var raw struct {
			Index        *int      `json:"index"`
			NumClasses   *int      `json:"classes"`
			ClassWeights []float64 `json:"class_weights"`
		}
		if err := decodeStrictJSON(data, &raw); err != nil {
			return errors.Wrap(err, "decode multiclass target")
		}
		if raw.Index == nil || raw.NumClasses == nil {
			return errors.NewConfigurationError("multiclass", "multiclass target mapping requires 'index' and 'classes'", nil)
		}
		*s = MulticlassTargetSpec{Index: *raw.Index, NumClasses: *raw.NumClasses, ClassWeights: raw.ClassWeights}
		return nil
	}

	var parts []json.RawMessage
	if err := json.Unmarshal(data, &parts); err != nil {
		return errors.Wrap(err, "decode multiclass target")
	}
	if len(parts) != 2 && len(parts) != 3 {
		return errors.NewConfigurationError("multiclass",
			"multiclass target must be [index, classes] or [index, classes, class_weights]", len(parts))
	}
	var spec MulticlassTargetSpec
	if err := json.Unmarshal(parts[0], &spec.Index); err != nil {
		return errors.NewConfigurationError("multiclass", "multiclass target index must be an integer", string(parts[0]))
	}
	if err := json.Unmarshal(parts[1], &spec.NumClasses); err != nil {
		return errors.NewConfigurationError("multiclass", "number of classes must be an integer", string(parts[1]))
	}
	if len(parts) == 3 {
		if err := json.Unmarshal(parts[2], &spec.ClassWeights); err != nil {
			return errors.NewConfigurationError("multiclass", "class weights must be a list of numbers", nil)
		}
	}
	*s = spec
	return nil
}

func integral(param string, v float64) (int, error) {
	if v != math.Trunc(v) || math.IsInf(v, 0) {
		return 0, errors.NewConfigurationError(param, "index must be an integer", v)
	}
	return int(v), nil
}

// decodeStrictJSON decodes a nested target mapping, rejecting unknown keys
// the way ParseJSONConfig does for the top level.
func decodeStrictJSON(data []byte, v interface{}) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// checkMappingKeys rejects keys outside allowed. Node.Decode does not
// inherit KnownFields from the outer decoder.
func checkMappingKeys(param string, node *yaml.Node, allowed ...string) error {
	for i := 0; i+1 < len(node.Content); i += 2 {
		key := node.Content[i].Value
		known := false
		for _, a := range allowed {
			if key == a {
				known = true
				break
			}
		}
		if !known {
			return errors.NewConfigurationError(param, "unknown key in target mapping", key)
		}
	}
	return nil
}

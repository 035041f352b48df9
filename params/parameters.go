package params

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	fmtx "github.com/fornellas/vpm/internal/fmt"
)

// Parameter is a single named port setting.
type Parameter struct {
	Key string
	// Value is either a string, bool, integer, float or nil.
	Value any
}

// Parameters is an insertion ordered collection of port settings.
type Parameters []Parameter

// Get returns the value for key.
func (p Parameters) Get(key string) (any, bool) {
	for _, parameter := range p {
		if parameter.Key == key {
			return parameter.Value, true
		}
	}
	return nil, false
}

// GetString returns the value for key formatted as it would be sent to setupc.
func (p Parameters) GetString(key string) (string, bool) {
	value, ok := p.Get(key)
	if !ok {
		return "", false
	}
	return FormatValue(value), true
}

// Set replaces the value of an existing key in place, or appends it.
func (p *Parameters) Set(key string, value any) {
	for i := range *p {
		if (*p)[i].Key == key {
			(*p)[i].Value = value
			return
		}
	}
	*p = append(*p, Parameter{Key: key, Value: value})
}

// Keys returns keys in insertion order.
func (p Parameters) Keys() []string {
	keys := make([]string, len(p))
	for i, parameter := range p {
		keys[i] = parameter.Key
	}
	return keys
}

// Clone returns a copy that shares no storage with p.
func (p Parameters) Clone() Parameters {
	if p == nil {
		return nil
	}
	clone := make(Parameters, len(p))
	copy(clone, p)
	return clone
}

// Map returns all values formatted as strings.
func (p Parameters) Map() map[string]string {
	m := make(map[string]string, len(p))
	for _, parameter := range p {
		m[parameter.Key] = FormatValue(parameter.Value)
	}
	return m
}

func (p Parameters) String() string {
	return Build(p)
}

// MarshalJSON encodes parameters as a JSON object, preserving order.
func (p Parameters) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, parameter := range p {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(parameter.Key)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(FormatValue(parameter.Value))
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// MarshalYAML encodes parameters as a YAML mapping of strings, preserving order.
func (p Parameters) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, parameter := range p {
		node.Content = append(
			node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: parameter.Key},
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: FormatValue(parameter.Value)},
		)
	}
	return node, nil
}

// FormatValue renders a parameter value the way setupc expects it.
func FormatValue(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		if v {
			return "yes"
		}
		return "no"
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case uint:
		return strconv.FormatUint(uint64(v), 10)
	case float64:
		return fmtx.SprintFloat(v, 8)
	case float32:
		return fmtx.SprintFloat(float64(v), 8)
	default:
		return fmt.Sprint(v)
	}
}

// Build encodes parameters as a setupc parameter string. Entries with nil or empty values are
// skipped, and - is returned when nothing is left.
func Build(parameters Parameters) string {
	pairs := make([]string, 0, len(parameters))
	for _, parameter := range parameters {
		value := FormatValue(parameter.Value)
		if value == "" {
			continue
		}
		pairs = append(pairs, parameter.Key+"="+value)
	}
	if len(pairs) == 0 {
		return DefaultValue
	}
	return strings.Join(pairs, ",")
}

// Parse decodes a parameter string as printed by setupc. It is permissive: tokens without = are
// skipped, and - or * yield no parameters. User input must go through ValidateParameterString.
func Parse(paramString string) Parameters {
	parameters := Parameters{}
	if paramString == DefaultValue || paramString == CurrentValue {
		return parameters
	}
	for _, token := range strings.Split(paramString, ",") {
		key, value, found := strings.Cut(strings.TrimSpace(token), "=")
		if !found {
			continue
		}
		parameters.Set(strings.TrimSpace(key), strings.TrimSpace(value))
	}
	return parameters
}

var booleanKeys = map[string]bool{
	"EmuBR":         true,
	"EmuOverrun":    true,
	"PlugInMode":    true,
	"ExclusiveMode": true,
	"HiddenMode":    true,
	"AllDataBits":   true,
}

var positiveIntegerKeys = map[string]bool{
	"AddRTTO": true,
	"AddRITO": true,
}

var pinKeys = map[string]bool{
	"cts": true,
	"dsr": true,
	"dcd": true,
	"ri":  true,
}

func validateParameter(key string, value any) error {
	switch {
	case key == "PortName":
		return ValidateComPortName(FormatValue(value))
	case key == "EmuNoise":
		return ValidateEmuNoise(value)
	case booleanKeys[key]:
		return ValidateBoolean(FormatValue(value))
	case positiveIntegerKeys[key]:
		return ValidatePositiveInteger(value)
	case pinKeys[key]:
		return ValidatePinAssignment(FormatValue(value))
	default:
		return nil
	}
}

// ValidateAndBuild validates each known setting against its rule, then builds the parameter
// string. Unknown keys are passed through. It stops at the first invalid setting.
func ValidateAndBuild(parameters Parameters) (string, error) {
	for _, parameter := range parameters {
		if FormatValue(parameter.Value) == "" {
			continue
		}
		if err := validateParameter(parameter.Key, parameter.Value); err != nil {
			return "", invalidf("Invalid %s: %s", parameter.Key, err)
		}
	}
	return Build(parameters), nil
}

package core

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"

	"github.com/pkg/errors"
)

// FlexString decodes JSON strings, numbers and booleans as a string; null gives "".
// Spreadsheet cells come back typed by their content, e.g. a description "10" arrives as 10.
type FlexString string

func (s *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0, bytes.Equal(data, []byte("null")):
		*s = ""
	case data[0] == '"':
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		*s = FlexString(str)
	case data[0] == '{', data[0] == '[':
		return errors.Errorf("cannot decode %s into a string", data)
	default:
		*s = FlexString(data)
	}
	return nil
}

func (s FlexString) String() string {
	return string(s)
}

// Float parses s as a finite number.
func (s FlexString) Float() (float64, bool) {
	f, err := strconv.ParseFloat(CleanString(string(s)), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// Bool reports whether s is a truthy spreadsheet value: true, "TRUE", "1", ...
func (s FlexString) Bool() bool {
	b, err := strconv.ParseBool(CleanString(string(s)))
	return err == nil && b
}

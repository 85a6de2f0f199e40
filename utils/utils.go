package utils

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"golang.org/x/exp/constraints"
)

// Parse decodes a JSON body into container, rejecting unknown fields.
func Parse(data io.Reader, container interface{}) error {
	decoder := json.NewDecoder(data)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(container); err != nil {
		return fmt.Errorf("could not decode json: %w", err)
	}
	return nil
}

func ParseUint(vars map[string]string, name string) (uint, error) {
	valueS, ok := vars[name]
	if !ok {
		return 0, fmt.Errorf("missing parameter %s", name)
	}
	value, err := strconv.ParseUint(valueS, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("could not parse %s as uint", valueS)
	}
	return uint(value), nil
}

// Clamp limits v to [lo, hi].
func Clamp[T constraints.Ordered](v, lo, hi T) T {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

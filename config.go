// SPDX-License-Identifier: MIT

package simgpio

import (
	"encoding/json"
	"math"
	"os"
	"strings"

	"github.com/pkg/errors"
)

// LoadChannels extracts channel numbers from the JSON config file at path.
//
// Each pin path is a slash separated path into the JSON document, e.g.
// "AltConf/AltStepGPIO". Paths that do not resolve are returned in skipped
// rather than treated as errors, so a board can be built from a config that
// only defines a subset of the expected pins. A path that resolves to
// anything other than an integer is an error.
func LoadChannels(path string, pinPaths []string) (channels []int, skipped []string, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, errors.Wrap(err, "opening pin config")
	}
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, nil, errors.Wrapf(err, "parsing pin config %s", path)
	}
	for _, p := range pinPaths {
		v, ok := lookup(doc, p)
		if !ok {
			skipped = append(skipped, p)
			continue
		}
		f, ok := v.(float64)
		if !ok || f != math.Trunc(f) {
			return nil, nil, errors.Errorf("pin path %q does not resolve to a channel number", p)
		}
		channels = append(channels, int(f))
	}
	return channels, skipped, nil
}

// lookup resolves a slash separated path into nested JSON objects.
func lookup(doc map[string]any, path string) (any, bool) {
	key, rest, nested := strings.Cut(path, "/")
	v, ok := doc[key]
	if !ok {
		return nil, false
	}
	if !nested {
		return v, true
	}
	child, ok := v.(map[string]any)
	if !ok {
		return nil, false
	}
	return lookup(child, rest)
}

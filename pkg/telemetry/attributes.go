// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package telemetry

import (
	"fmt"
	"sort"
	"strings"

	"go.opentelemetry.io/otel/attribute"
)

// ParseResourceAttributes parses "key=value,key=value" into resource attributes
// sorted by key. Later duplicates win. Empty input yields no attributes.
func ParseResourceAttributes(input string) ([]attribute.KeyValue, error) {
	values := map[string]string{}
	for _, pair := range strings.Split(input, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("invalid resource attribute %q: expected key=value", pair)
		}
		key = strings.TrimSpace(key)
		if key == "" {
			return nil, fmt.Errorf("empty resource attribute key in %q", pair)
		}
		values[key] = strings.TrimSpace(value)
	}

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]attribute.KeyValue, 0, len(keys))
	for _, k := range keys {
		out = append(out, attribute.String(k, values[k]))
	}
	return out, nil
}

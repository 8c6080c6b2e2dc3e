// Copyright (c) 2026 John Earle
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package mapper

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"unicode"
)

// flattenInto applies the depth-bounded flattening visitor over a raw
// payload: nested objects are descended exactly one level with keys joined
// as snake(outer)__snake(inner); anything deeper is serialized to a JSON
// string. Top-level scalars land under snake(key). Keys are visited in
// sorted order so the output is byte-identical across runs.
func flattenInto(props map[string]any, raw map[string]any) {
	for _, key := range sortedKeys(raw) {
		switch nested := raw[key].(type) {
		case map[string]any:
			for _, inner := range sortedKeys(nested) {
				props[snakeCase(key)+"__"+snakeCase(inner)] = scalarize(nested[inner])
			}
		case []any:
			for i, item := range nested {
				props[snakeCase(key)+"__"+strconv.Itoa(i)] = scalarize(item)
			}
		default:
			props[snakeCase(key)] = raw[key]
		}
	}
}

// scalarize converts a value below the flattening depth into a scalar:
// objects and arrays become their JSON string form.
func scalarize(v any) any {
	switch v.(type) {
	case map[string]any, []any:
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(data)
	default:
		return v
	}
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// snakeCase converts camelCase and separator-delimited keys into
// snake_case, e.g. "pageTitle" -> "page_title", "customDimension1" ->
// "custom_dimension_1".
func snakeCase(s string) string {
	var b strings.Builder
	runes := []rune(s)
	wroteSeparator := true

	for i, r := range runes {
		switch {
		case r == '_' || r == '-' || r == ' ' || r == '.':
			if !wroteSeparator {
				b.WriteByte('_')
				wroteSeparator = true
			}
		case unicode.IsUpper(r):
			if !wroteSeparator && !unicode.IsUpper(runes[i-1]) {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
			wroteSeparator = false
		case unicode.IsDigit(r):
			if !wroteSeparator && unicode.IsLetter(runes[i-1]) {
				b.WriteByte('_')
			}
			b.WriteRune(r)
			wroteSeparator = false
		default:
			b.WriteRune(r)
			wroteSeparator = false
		}
	}

	return strings.Trim(b.String(), "_")
}

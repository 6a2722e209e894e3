package pathmatch

import (
	"fmt"
	"strconv"
	"strings"
)

// ParsePath parses the CLI string form of a TestPath. The original
// implementation builds TestPath items from XML configuration attributes
// rather than a command-line string (original_source/engine/tester/test_path.h
// has no string grammar of its own), so this grammar is this CLI's own:
//
//	/Name1/Name2:arg1=v1|v2,arg2=v3?select=N&step=M&iterate=K
//
// Each "/"-separated segment names one RunItem; a segment may carry
// ","-separated argument constraints `name=v1|v2`. A trailing
// "?select=&step=&iterate=" query attaches to the path's last segment,
// mirroring spec.md §4.2's "select/step restrict the iteration bitmask"
// and "iterate repeats the produced sub-scenario".
func ParsePath(raw string) ([]PathItem, error) {
	if raw == "" {
		return nil, fmt.Errorf("pathmatch: empty path")
	}

	body, query, _ := strings.Cut(raw, "?")
	body = strings.TrimPrefix(body, "/")
	if body == "" {
		return nil, fmt.Errorf("pathmatch: path %q has no segments", raw)
	}

	segs := strings.Split(body, "/")
	items := make([]PathItem, 0, len(segs))
	for _, seg := range segs {
		item, err := parseSegment(seg)
		if err != nil {
			return nil, fmt.Errorf("pathmatch: path %q: %w", raw, err)
		}
		items = append(items, item)
	}

	if query != "" {
		if err := applyQuery(&items[len(items)-1], query); err != nil {
			return nil, fmt.Errorf("pathmatch: path %q: %w", raw, err)
		}
	}
	return items, nil
}

func parseSegment(seg string) (PathItem, error) {
	name, constraints, hasConstraints := strings.Cut(seg, ":")
	if name == "" {
		return PathItem{}, fmt.Errorf("empty segment name")
	}
	item := PathItem{Name: name}
	if !hasConstraints {
		return item, nil
	}
	for _, c := range strings.Split(constraints, ",") {
		argName, values, ok := strings.Cut(c, "=")
		if !ok || argName == "" || values == "" {
			return PathItem{}, fmt.Errorf("malformed argument constraint %q", c)
		}
		item.Args = append(item.Args, ArgConstraint{Name: argName, Values: strings.Split(values, "|")})
	}
	return item, nil
}

func applyQuery(item *PathItem, query string) error {
	for _, pair := range strings.Split(query, "&") {
		key, val, ok := strings.Cut(pair, "=")
		if !ok {
			return fmt.Errorf("malformed query component %q", pair)
		}
		n, err := strconv.ParseUint(val, 10, 64)
		if err != nil {
			return fmt.Errorf("query %q: %w", pair, err)
		}
		switch key {
		case "select":
			item.Select = n
		case "step":
			item.Step = n
		case "iterate":
			item.Iterate = n
		default:
			return fmt.Errorf("unknown query key %q", key)
		}
	}
	return nil
}

package augment

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/banshee-data/shockwave.report/internal/geom"
	"github.com/banshee-data/shockwave.report/internal/sim"
)

// Parse decodes a semicolon-separated augmenter list. Each entry is a
// comma-separated record whose first field names the kind:
//
//	tl,<pos>,<green>,<red>[,<offset>]      traffic light
//	hb,<pos>,<from>,<until>,<capacity>     stationary bottleneck
//	lb,<t0>,<p0>,<t1>,<p1>,<capacity>      moving bottleneck
//
// An empty input yields no augmenters.
func Parse(s string) ([]sim.Augmenter, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}

	var out []sim.Augmenter
	for i, entry := range strings.Split(s, ";") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		a, err := parseEntry(entry)
		if err != nil {
			return nil, fmt.Errorf("augment %d (%q): %w", i+1, entry, err)
		}
		out = append(out, a)
	}
	return out, nil
}

func parseEntry(entry string) (sim.Augmenter, error) {
	fields := strings.Split(entry, ",")
	kind := strings.TrimSpace(fields[0])

	args, err := parseFloats(fields[1:])
	if err != nil {
		return nil, err
	}

	switch kind {
	case "tl":
		if len(args) < 3 || len(args) > 4 {
			return nil, fmt.Errorf("tl takes pos,green,red[,offset], got %d args", len(args))
		}
		offset := 0.0
		if len(args) == 4 {
			offset = args[3]
		}
		return NewTrafficLight(args[0], args[1], args[2], offset)
	case "hb":
		if len(args) != 4 {
			return nil, fmt.Errorf("hb takes pos,from,until,capacity, got %d args", len(args))
		}
		return NewHorizontalBottleneck(args[0], args[1], args[2], args[3])
	case "lb":
		if len(args) != 5 {
			return nil, fmt.Errorf("lb takes t0,p0,t1,p1,capacity, got %d args", len(args))
		}
		start := geom.Point{Time: args[0], Pos: args[1]}
		end := geom.Point{Time: args[2], Pos: args[3]}
		return NewLineBottleneck(start, end, args[4])
	default:
		return nil, fmt.Errorf("unknown augmenter kind %q", kind)
	}
}

func parseFloats(fields []string) ([]float64, error) {
	out := make([]float64, 0, len(fields))
	for _, f := range fields {
		v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			return nil, fmt.Errorf("bad number %q", f)
		}
		out = append(out, v)
	}
	return out, nil
}

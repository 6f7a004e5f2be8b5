package optimize

import (
	"cmp"
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"time"
)

// PartDateLayout is the date format inside partition names.
const PartDateLayout = "2006-01-02"

var partPattern = regexp.MustCompile(`^\((\d+),'(\d{4}-\d{2}-\d{2})'\)$`)

// Part is a partition of a table partitioned by (retention_days,
// toMonday(timestamp)).
type Part struct {
	Retention int
	Date      time.Time
}

// Name returns the partition name as the engine reports it.
func (p Part) Name() string {
	return fmt.Sprintf("(%d,'%s')", p.Retention, p.Date.Format(PartDateLayout))
}

// ParsePart parses a partition name such as "(90,'2022-03-28')".
func ParsePart(name string) (Part, error) {
	m := partPattern.FindStringSubmatch(name)
	if m == nil {
		return Part{}, fmt.Errorf("invalid partition name %q", name)
	}
	retention, err := strconv.Atoi(m[1])
	if err != nil {
		return Part{}, fmt.Errorf("invalid partition name %q: %w", name, err)
	}
	date, err := time.Parse(PartDateLayout, m[2])
	if err != nil {
		return Part{}, fmt.Errorf("invalid partition name %q: %w", name, err)
	}
	return Part{Retention: retention, Date: date}, nil
}

// SubdivideParts splits parts into n groups. Parts are ordered by date,
// newest first, then by retention, longest first, and dealt round-robin,
// so every group starts with the most recent data it has. Empty groups are
// kept: the result always has n entries.
func SubdivideParts(parts []string, n int) ([][]string, error) {
	if n < 1 {
		return nil, fmt.Errorf("subdivisions must be positive, got %d", n)
	}

	type named struct {
		name string
		part Part
	}
	sorted := make([]named, len(parts))
	for i, name := range parts {
		p, err := ParsePart(name)
		if err != nil {
			return nil, err
		}
		sorted[i] = named{name: name, part: p}
	}
	slices.SortStableFunc(sorted, func(a, b named) int {
		if c := b.part.Date.Compare(a.part.Date); c != 0 {
			return c
		}
		return cmp.Compare(b.part.Retention, a.part.Retention)
	})

	groups := make([][]string, n)
	for i := range groups {
		groups[i] = []string{}
	}
	for i, p := range sorted {
		groups[i%n] = append(groups[i%n], p.name)
	}
	return groups, nil
}

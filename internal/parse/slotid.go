package parse

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"gupio-parking-backend/internal/model"
)

// MaxSlotIndex is the highest slot number within a section.
const MaxSlotIndex = 30

var slotIDRe = regexp.MustCompile(`(?i)^([A-Z0-9]{2})\s*-\s*P(\d{1,2})$`)

var knownSections = map[string]model.Section{
	string(model.SectionUS): model.SectionUS,
	string(model.SectionLS): model.SectionLS,
	string(model.SectionB3): model.SectionB3,
}

// ParsedSlotID holds the structured parts of a slot identifier.
type ParsedSlotID struct {
	Section model.Section
	Index   int
}

// String returns the canonical form, e.g. "US-P01".
func (p ParsedSlotID) String() string {
	return FormatSlotID(p.Section, p.Index)
}

// FormatSlotID builds a slot id from its section and 1-based index.
func FormatSlotID(section model.Section, index int) string {
	return fmt.Sprintf("%s-P%02d", section, index)
}

// ParseSection validates a section name, ignoring case.
func ParseSection(raw string) (model.Section, error) {
	section, ok := knownSections[strings.ToUpper(strings.TrimSpace(raw))]
	if !ok {
		return "", fmt.Errorf("unknown section: %q", raw)
	}
	return section, nil
}

// ParseSlotID extracts section and index from a raw slot id such as "us-p1" or "B3-P30".
func ParseSlotID(raw string) (ParsedSlotID, error) {
	m := slotIDRe.FindStringSubmatch(strings.TrimSpace(raw))
	if m == nil {
		return ParsedSlotID{}, fmt.Errorf("unable to parse slot id: %q", raw)
	}

	section, err := ParseSection(m[1])
	if err != nil {
		return ParsedSlotID{}, err
	}

	index, err := strconv.Atoi(m[2])
	if err != nil {
		return ParsedSlotID{}, fmt.Errorf("invalid slot index in %q: %w", raw, err)
	}
	if index < 1 || index > MaxSlotIndex {
		return ParsedSlotID{}, fmt.Errorf("slot index %d out of range in %q", index, raw)
	}

	return ParsedSlotID{Section: section, Index: index}, nil
}

package p4

import "strings"

// Changelist forms (p4 change -o) are field blocks: a "Field:" line
// followed by tab-indented continuation lines. Comment lines start with #.

// formDescription extracts the Description block from a change form, with
// the leading tab of each line stripped.
func formDescription(form string) string {
	var desc []string
	inBlock := false
	for _, line := range strings.Split(form, "\n") {
		if inBlock {
			if strings.HasPrefix(line, "\t") {
				desc = append(desc, strings.TrimPrefix(line, "\t"))
				continue
			}
			if line == "" {
				continue
			}
			break
		}
		if strings.HasPrefix(line, "Description:") {
			inBlock = true
		}
	}
	return strings.Join(desc, "\n")
}

// formWithDescription returns the change form with its Description block
// replaced by desc. Every description line is tab-indented as p4 requires.
func formWithDescription(form, desc string) string {
	var out []string
	lines := strings.Split(form, "\n")

	i := 0
	for ; i < len(lines); i++ {
		out = append(out, lines[i])
		if strings.HasPrefix(lines[i], "Description:") {
			break
		}
	}
	if i == len(lines) {
		// No Description field in the form; append one.
		out = append(out, "Description:")
	}

	for _, descLine := range strings.Split(desc, "\n") {
		out = append(out, "\t"+descLine)
	}

	// Skip the old block, keep everything after it.
	for j := i + 1; j < len(lines); j++ {
		if strings.HasPrefix(lines[j], "\t") || lines[j] == "" {
			continue
		}
		out = append(out, lines[j:]...)
		break
	}

	return strings.Join(out, "\n") + "\n"
}

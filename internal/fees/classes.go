package fees

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ClassLabels lists the canonical class labels in promotion order.
var ClassLabels = []string{
	"Playgroup", "PP1", "PP2",
	"Grade 1", "Grade 2", "Grade 3", "Grade 4", "Grade 5",
	"Grade 6", "Grade 7", "Grade 8", "Grade 9",
}

// UnassignedClass is reported for students without a class label.
const UnassignedClass = "Unassigned"

var (
	strictGradePattern  = regexp.MustCompile(`^(?:grade|g)\s*(\d+)$`)
	lenientGradePattern = regexp.MustCompile(`(?:grade|class|std|standard)\s*[- ]?\s*([1-9])\b`)
	gradeNumberPattern  = regexp.MustCompile(`(?i)grade\s*([1-9])\b`)
)

// NormalizeClass maps free-form input such as "grade 7", "G7" or "pp 2" to its
// canonical label. Unknown input yields false.
func NormalizeClass(input string) (string, bool) {
	s := strings.ToLower(strings.TrimSpace(input))
	if s == "" {
		return "", false
	}

	switch s {
	case "playgroup", "play group", "pg":
		return "Playgroup", true
	case "pp1", "pp 1", "pp-1", "pre primary 1", "pre-primary 1":
		return "PP1", true
	case "pp2", "pp 2", "pp-2", "pre primary 2", "pre-primary 2":
		return "PP2", true
	}

	if m := strictGradePattern.FindStringSubmatch(s); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil && n >= 1 && n <= 9 {
			return fmt.Sprintf("Grade %d", n), true
		}
	}
	return "", false
}

// NormalizeGradeLabel is the lenient variant used for tuition lookups and
// diagnostics. It understands "class 7", "std-7" and friends, reports blank
// labels as Unassigned and otherwise echoes the raw label back.
func NormalizeGradeLabel(raw string) string {
	v := strings.ToLower(strings.TrimSpace(raw))
	if v == "" {
		return UnassignedClass
	}
	if label, ok := NormalizeClass(v); ok {
		return label
	}
	if m := lenientGradePattern.FindStringSubmatch(v); m != nil {
		return "Grade " + m[1]
	}
	return raw
}

// GradeNumber extracts the numeric level from a "Grade N" label. Pre-primary
// classes have no grade number.
func GradeNumber(label string) (int, bool) {
	m := gradeNumberPattern.FindStringSubmatch(label)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}

// IsJSS reports whether grade is a junior-secondary grade.
func IsJSS(grade int) bool {
	return grade >= 7 && grade <= 9
}

// NextClass returns the promotion target for label.
func NextClass(label string) (string, bool) {
	for i, l := range ClassLabels {
		if l == label && i < len(ClassLabels)-1 {
			return ClassLabels[i+1], true
		}
	}
	return "", false
}

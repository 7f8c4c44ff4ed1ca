// Package framework defines the narrative section schemas: which ordered
// sections a STAR, CAR, PAR, etc. story must contain.
package framework

import "strings"

// Framework names a section schema.
type Framework string

const (
	STAR  Framework = "STAR"
	STARL Framework = "STARL"
	CAR   Framework = "CAR"
	PAR   Framework = "PAR"
	SAR   Framework = "SAR"
	SOAR  Framework = "SOAR"
	SHARE Framework = "SHARE"
	CARL  Framework = "CARL"

	// Default is used when the caller does not request a framework.
	Default = STAR
)

// Section describes one slot in a framework's schema.
type Section struct {
	Key      string // stable map key, e.g. "situation"
	Label    string // display label, e.g. "Situation"
	Required bool
	Class    Class
}

// Class groups section keys across frameworks by narrative role, so the
// pattern tier can map activities onto any framework with one set of
// heuristics.
type Class int

const (
	ClassOpening Class = iota // situation, challenge, problem, context
	ClassGoal                 // task, obstacle, hindrance
	ClassAction
	ClassResult
	ClassReflection // learning, evaluation
)

var schemas = map[Framework][]Section{
	STAR: {
		{Key: "situation", Label: "Situation", Required: true, Class: ClassOpening},
		{Key: "task", Label: "Task", Required: true, Class: ClassGoal},
		{Key: "action", Label: "Action", Required: true, Class: ClassAction},
		{Key: "result", Label: "Result", Required: true, Class: ClassResult},
	},
	STARL: {
		{Key: "situation", Label: "Situation", Required: true, Class: ClassOpening},
		{Key: "task", Label: "Task", Required: true, Class: ClassGoal},
		{Key: "action", Label: "Action", Required: true, Class: ClassAction},
		{Key: "result", Label: "Result", Required: true, Class: ClassResult},
		{Key: "learning", Label: "Learning", Required: false, Class: ClassReflection},
	},
	CAR: {
		{Key: "challenge", Label: "Challenge", Required: true, Class: ClassOpening},
		{Key: "action", Label: "Action", Required: true, Class: ClassAction},
		{Key: "result", Label: "Result", Required: true, Class: ClassResult},
	},
	PAR: {
		{Key: "problem", Label: "Problem", Required: true, Class: ClassOpening},
		{Key: "action", Label: "Action", Required: true, Class: ClassAction},
		{Key: "result", Label: "Result", Required: true, Class: ClassResult},
	},
	SAR: {
		{Key: "situation", Label: "Situation", Required: true, Class: ClassOpening},
		{Key: "action", Label: "Action", Required: true, Class: ClassAction},
		{Key: "result", Label: "Result", Required: true, Class: ClassResult},
	},
	SOAR: {
		{Key: "situation", Label: "Situation", Required: true, Class: ClassOpening},
		{Key: "obstacle", Label: "Obstacle", Required: true, Class: ClassGoal},
		{Key: "action", Label: "Action", Required: true, Class: ClassAction},
		{Key: "result", Label: "Result", Required: true, Class: ClassResult},
	},
	SHARE: {
		{Key: "situation", Label: "Situation", Required: true, Class: ClassOpening},
		{Key: "hindrance", Label: "Hindrance", Required: true, Class: ClassGoal},
		{Key: "action", Label: "Action", Required: true, Class: ClassAction},
		{Key: "result", Label: "Result", Required: true, Class: ClassResult},
		{Key: "evaluation", Label: "Evaluation", Required: false, Class: ClassReflection},
	},
	CARL: {
		{Key: "context", Label: "Context", Required: true, Class: ClassOpening},
		{Key: "action", Label: "Action", Required: true, Class: ClassAction},
		{Key: "result", Label: "Result", Required: true, Class: ClassResult},
		{Key: "learning", Label: "Learning", Required: false, Class: ClassReflection},
	},
}

// Parse resolves a user-supplied framework name, case-insensitively.
// Empty input resolves to the default. Unknown names return ok=false.
func Parse(name string) (Framework, bool) {
	if name == "" {
		return Default, true
	}
	f := Framework(strings.ToUpper(strings.TrimSpace(name)))
	_, ok := schemas[f]
	return f, ok
}

// Sections returns the ordered section schema for a framework.
func Sections(f Framework) []Section {
	return schemas[f]
}

// Required returns the keys of a framework's required sections, in order.
func Required(f Framework) []string {
	var keys []string
	for _, sec := range schemas[f] {
		if sec.Required {
			keys = append(keys, sec.Key)
		}
	}
	return keys
}

// All returns every known framework name, for help text and validation.
func All() []Framework {
	return []Framework{STAR, STARL, CAR, PAR, SAR, SOAR, SHARE, CARL}
}

package environment

import (
	"errors"

	"voxlaunch/internal/platform"
	"voxlaunch/pkg/types"
)

// Inputs is everything the resolver looks at. PortableFunctional must already
// reflect a liveness check.
type Inputs struct {
	OS                 string
	Version            platform.Version
	ForcePortable      bool
	ForceStandard      bool
	Upgrade            bool
	Reinstall          bool
	SimulatePortable   bool
	PortableFunctional bool
}

// PromptReason says which question, if any, the operator must answer.
type PromptReason int

const (
	NoPrompt PromptReason = iota
	// PromptCompatibility frames the choice around missing prebuilt wheels.
	PromptCompatibility
	// PromptPortability frames the choice around a relocatable install.
	PromptPortability
)

// Decision is the resolver's answer. When Prompt is set, Kind holds the default.
type Decision struct {
	Kind     types.EnvKind
	Prompt   PromptReason
	Warnings []string
	Rule     string
	Err      error
}

// ErrConflictingFlags is returned when both mode overrides are given.
var ErrConflictingFlags = errors.New("--portable and --no-portable cannot be used together")

// Rule is one row of the decision table.
type Rule struct {
	Name   string
	Match  func(Inputs) bool
	Decide func(Inputs) Decision
}

// Rules is evaluated top to bottom; the first match wins.
var Rules = []Rule{
	{
		Name:  "conflicting-flags",
		Match: func(in Inputs) bool { return in.ForcePortable && in.ForceStandard },
		Decide: func(Inputs) Decision {
			return Decision{Err: ErrConflictingFlags}
		},
	},
	{
		Name:  "portable-unsupported",
		Match: func(in Inputs) bool { return !platform.SupportsPortable(in.OS) },
		Decide: func(in Inputs) Decision {
			d := Decision{Kind: types.EnvStandard}
			if in.ForcePortable {
				d.Warnings = append(d.Warnings, "--portable is only available on Windows; using a virtual environment")
			}
			return d
		},
	},
	{
		Name:  "upgrade-keeps-kind",
		Match: func(in Inputs) bool { return in.Upgrade },
		Decide: func(in Inputs) Decision {
			d := Decision{Kind: types.EnvStandard}
			if in.PortableFunctional {
				d.Kind = types.EnvPortable
			}
			if in.ForcePortable || in.ForceStandard {
				d.Warnings = append(d.Warnings, "--portable/--no-portable are ignored with --upgrade; use --reinstall to switch modes")
			}
			return d
		},
	},
	{
		Name:  "force-standard",
		Match: func(in Inputs) bool { return in.ForceStandard },
		Decide: func(in Inputs) Decision {
			d := Decision{Kind: types.EnvStandard}
			if in.Version.AtLeast(platform.CompatBoundary) {
				d.Warnings = append(d.Warnings, "Python "+in.Version.String()+" may lack prebuilt wheels for some dependencies; installation may fail")
			}
			return d
		},
	},
	{
		Name:   "force-portable",
		Match:  func(in Inputs) bool { return in.ForcePortable },
		Decide: func(Inputs) Decision { return Decision{Kind: types.EnvPortable} },
	},
	{
		Name:   "simulated-portable",
		Match:  func(in Inputs) bool { return in.SimulatePortable },
		Decide: func(Inputs) Decision { return Decision{Kind: types.EnvPortable} },
	},
	{
		Name:   "reuse-portable",
		Match:  func(in Inputs) bool { return !in.Reinstall && in.PortableFunctional },
		Decide: func(Inputs) Decision { return Decision{Kind: types.EnvPortable} },
	},
	{
		Name:  "ask-compatibility",
		Match: func(in Inputs) bool { return in.Version.AtLeast(platform.CompatBoundary) },
		Decide: func(Inputs) Decision {
			return Decision{Kind: types.EnvPortable, Prompt: PromptCompatibility}
		},
	},
	{
		Name:  "ask-portability",
		Match: func(Inputs) bool { return true },
		Decide: func(Inputs) Decision {
			return Decision{Kind: types.EnvPortable, Prompt: PromptPortability}
		},
	},
}

// Resolve applies Rules to in. It has no side effects.
func Resolve(in Inputs) Decision {
	for _, r := range Rules {
		if r.Match(in) {
			d := r.Decide(in)
			d.Rule = r.Name
			return d
		}
	}
	// unreachable: the last rule always matches
	return Decision{Kind: types.EnvStandard, Rule: "fallthrough"}
}

// PromptText returns the heading and option lines for a prompting decision.
// Option 1 is always the portable environment and the default.
func PromptText(reason PromptReason, v platform.Version) (heading []string, options []string) {
	options = []string{
		"Portable Python 3.10 (recommended, self-contained)",
		"System Python " + v.String() + " with a virtual environment",
	}
	switch reason {
	case PromptCompatibility:
		heading = []string{
			"Python " + v.String() + " detected.",
			"Several dependencies have no prebuilt packages for this version, so",
			"installing into a virtual environment may fail.",
			"A portable Python 3.10 can be downloaded into this folder instead.",
		}
	default:
		heading = []string{
			"Choose how Python should be set up for this install.",
			"A portable Python keeps everything inside this folder, so it can be",
			"moved or copied to another machine without a system Python.",
		}
	}
	return heading, options
}

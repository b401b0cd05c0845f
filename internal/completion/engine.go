package completion

import (
	"context"
	"strings"

	"github.com/antigravity-dev/warmcli/internal/grabber"
)

// ParsedArgv is the result of running the host tool's own argv parser over
// the current command line, the input the completion engine works from.
type ParsedArgv struct {
	Lineage        []string
	CurrentCommand string
	CurrentFragment string
	CurrentParam   string
	ParsedParams   map[string]string
	GlobalParams   map[string]string
}

// AliasResolver expands a subcommand that is itself an alias into its real
// target, re-parsing as needed. Returns ok=false once the current command is
// a real operation or a bare driver.
type AliasResolver func(command string) (target string, ok bool)

// ParamShapeLookup resolves the Shape of a named parameter on a given
// command, used once the engine falls through to shape-driven completion.
type ParamShapeLookup func(command, param string) *grabber.Shape

// Engine drives the completion pipeline described in the spec: walk
// aliases, dispatch to a specialised global-option completer, fall back to
// shape-driven static completion, and finally ask the planner.
type Engine struct {
	ResolveAlias   AliasResolver
	ShapeOf        ParamShapeLookup
	Service        *grabber.Service
	Partitions     PartitionEndpoints
	ProfileNames   []string
	CLIInputDir    string

	// SubcommandFlags returns the subcommand and global argument flag
	// tables used for the catch-all fallback (step 6).
	SubcommandFlags func(command string) (subcommands []string, flags []string)
}

// Complete runs the full completion pipeline for one parsed argv.
func (e *Engine) Complete(ctx context.Context, parsed ParsedArgv) []Candidate {
	command := e.walkAliases(parsed.CurrentCommand)

	if global, ok := e.asGlobalOption(parsed.CurrentParam); ok {
		return e.completeGlobal(global, command)
	}

	if shape := e.ShapeOf(command, parsed.CurrentParam); shape != nil {
		if candidates := e.completeFromShape(shape); candidates != nil {
			return candidates
		}

		if e.Service != nil {
			return e.completeFromPlanner(ctx, command, parsed.CurrentParam, shape)
		}
	}

	return e.completeFallback(command, parsed.ParsedParams)
}

func (e *Engine) walkAliases(command string) string {
	current := command
	seen := map[string]bool{}
	for e.ResolveAlias != nil && !seen[current] {
		seen[current] = true
		target, ok := e.ResolveAlias(current)
		if !ok {
			break
		}
		current = target
	}
	return current
}

func (e *Engine) asGlobalOption(param string) (GlobalOption, bool) {
	switch GlobalOption(param) {
	case OptionRegion, OptionOutput, OptionProfile, OptionQuery, OptionCLIInputJSON, OptionCLIInputYAML:
		return GlobalOption(param), true
	}
	return "", false
}

func (e *Engine) completeGlobal(option GlobalOption, command string) []Candidate {
	switch option {
	case OptionRegion:
		var out []Candidate
		for _, r := range e.Partitions.Regions() {
			out = append(out, Candidate{Name: r})
		}
		return out
	case OptionOutput:
		var out []Candidate
		for _, f := range OutputFormats {
			out = append(out, Candidate{Name: f})
		}
		return out
	case OptionProfile:
		return Profiles(e.ProfileNames)
	case OptionQuery:
		shape := e.ShapeOf(command, "")
		return QueryPaths(shape)
	case OptionCLIInputJSON:
		files, _ := LocalFiles(e.CLIInputDir, ".json")
		return files
	case OptionCLIInputYAML:
		files, _ := LocalFiles(e.CLIInputDir, ".yaml")
		return files
	}
	return nil
}

// completeFromShape implements step 4: static completion sourced from the
// parameter's own shape, without invoking the planner.
func (e *Engine) completeFromShape(shape *grabber.Shape) []Candidate {
	switch {
	case shape.IsEnum():
		return EnumCandidates(shape)
	case shape.IsListOfEnum():
		return EnumCandidates(shape.Element)
	case shape.Kind == grabber.ShapeMap:
		return []Candidate{{Name: "<key>=<value>"}}
	case shape.Kind == grabber.ShapeStructure:
		if combos := StructureCombinations(shape); len(combos) > 0 {
			return combos
		}
		return nil
	}
	return nil
}

// completeFromPlanner implements step 5: ask the planner for a plan and
// execute it, emitting the resulting scalar values as candidates.
func (e *Engine) completeFromPlanner(ctx context.Context, command, param string, shape *grabber.Shape) []Candidate {
	verb := verbOfCommand(command)
	results := e.Service.HowToGet(param, verb, shape, grabber.NewArgs(nil), map[string]struct{}{}, map[string]struct{}{})
	if len(results) == 0 {
		return nil
	}

	exec := grabber.NewExecutor(10, 20)
	values, err := exec.ExecuteOutput(ctx, results[0])
	if err != nil {
		return nil
	}

	out := make([]Candidate, 0, len(values))
	for _, v := range values {
		if s, ok := v.(string); ok {
			out = append(out, Candidate{Name: s})
		}
	}
	return out
}

// completeFallback implements step 6: emit subcommands and argument flags
// from the current and root command's tables, deduplicating against
// already-parsed params.
func (e *Engine) completeFallback(command string, parsedParams map[string]string) []Candidate {
	if e.SubcommandFlags == nil {
		return nil
	}

	subcommands, flags := e.SubcommandFlags(command)
	_, rootFlags := e.SubcommandFlags("")

	seen := map[string]bool{}
	var out []Candidate

	for _, s := range subcommands {
		if !seen[s] {
			seen[s] = true
			out = append(out, Candidate{Name: s})
		}
	}

	required := make([]string, 0)
	optional := make([]string, 0)
	for _, f := range append(append([]string{}, flags...), rootFlags...) {
		name := strings.TrimPrefix(f, "--")
		if _, parsed := parsedParams[name]; parsed {
			continue
		}
		if strings.HasSuffix(f, "*") {
			required = append(required, strings.TrimSuffix(f, "*"))
		} else {
			optional = append(optional, f)
		}
	}

	for _, f := range append(required, optional...) {
		if !seen[f] {
			seen[f] = true
			out = append(out, Candidate{Name: f})
		}
	}

	return out
}

func verbOfCommand(command string) string {
	parts := strings.Fields(command)
	if len(parts) == 0 {
		return ""
	}
	return parts[len(parts)-1]
}

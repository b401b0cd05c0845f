package completion

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/antigravity-dev/warmcli/internal/grabber"
)

// GlobalOption names the recognised global CLI flags that get a
// specialised completer instead of falling through to shape-driven or
// planner-driven completion.
type GlobalOption string

const (
	OptionRegion           GlobalOption = "region"
	OptionOutput           GlobalOption = "output"
	OptionProfile          GlobalOption = "profile"
	OptionQuery            GlobalOption = "query"
	OptionCLIInputJSON     GlobalOption = "cli-input-json"
	OptionCLIInputYAML     GlobalOption = "cli-input-yaml"
)

// PartitionEndpoints maps a partition name to its known region names, used
// by the --region completer.
type PartitionEndpoints map[string][]string

// Regions returns every region across all partitions, sorted.
func (p PartitionEndpoints) Regions() []string {
	var out []string
	for _, regions := range p {
		out = append(out, regions...)
	}
	sort.Strings(out)
	return out
}

// OutputFormats lists the CLI's registered output formatters.
var OutputFormats = []string{"json", "yaml", "yaml-stream", "text", "table"}

// Profiles reads profile names out of a parsed AWS shared-config/credentials
// file set; profileNames is supplied by the caller, which already knows how
// to locate and parse ~/.aws/config and ~/.aws/credentials.
func Profiles(profileNames []string) []Candidate {
	out := make([]Candidate, 0, len(profileNames))
	for _, name := range profileNames {
		out = append(out, Candidate{Name: name})
	}
	return out
}

// QueryPaths enumerates every leaf path of an operation's output shape as
// JMESPath strings, for --query completion.
func QueryPaths(output *grabber.Shape) []Candidate {
	var out []Candidate
	for _, leaf := range grabber.FromShape(output) {
		out = append(out, Candidate{Name: leaf.Path.ToJMESPath()})
	}
	return out
}

// LocalFiles lists files under dir matching suffix, for
// --cli-input-{json,yaml} completion.
func LocalFiles(dir, suffix string) ([]Candidate, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("completion: read dir %s: %w", dir, err)
	}

	var out []Candidate
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), suffix) {
			continue
		}
		out = append(out, Candidate{Name: filepath.Join(dir, e.Name())})
	}
	return out, nil
}

// EnumCandidates emits a string-enum shape's values directly.
func EnumCandidates(shape *grabber.Shape) []Candidate {
	if !shape.IsEnum() {
		return nil
	}
	out := make([]Candidate, 0, len(shape.Enum))
	for _, v := range shape.Enum {
		out = append(out, Candidate{Name: v})
	}
	return out
}

// StructureCombinations emits one "k=v,k2=v2" candidate per cartesian
// combination of a structure shape's enum-valued members.
func StructureCombinations(shape *grabber.Shape) []Candidate {
	if shape == nil || shape.Kind != grabber.ShapeStructure {
		return nil
	}

	type option struct {
		name   string
		values []string
	}
	var options []option
	for _, m := range shape.Members {
		if m.Shape.IsEnum() {
			options = append(options, option{name: m.Name, values: m.Shape.Enum})
		}
	}
	if len(options) == 0 {
		return nil
	}

	combos := [][]string{{}}
	for _, opt := range options {
		var next [][]string
		for _, combo := range combos {
			for _, v := range opt.values {
				pair := fmt.Sprintf("%s=%s", opt.name, v)
				next = append(next, append(append([]string{}, combo...), pair))
			}
		}
		combos = next
	}

	out := make([]Candidate, 0, len(combos))
	for _, combo := range combos {
		out = append(out, Candidate{Name: strings.Join(combo, ",")})
	}
	return out
}

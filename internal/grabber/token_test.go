package grabber

import "testing"

func TestSingularise(t *testing.T) {
	cases := map[string]string{
		"Policies":     "policy",
		"Aliases":      "alias",
		"Indices":      "index",
		"Addresses":    "address",
		"Prefixes":     "prefix",
		"Patches":      "patch",
		"Bus":          "bus",
		"Status":       "status",
		"Analysis":     "analysis",
		"Instances":    "instance",
		"Api":          "api",
		"Loadbalanci":  "loadbalancus",
		"Bucket":       "bucket",
	}

	for in, want := range cases {
		if got := singularise(in); got != want {
			t.Errorf("singularise(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestTokenise(t *testing.T) {
	cases := []struct {
		in   string
		want []Token
	}{
		{"BucketName", []Token{"bucket", "name"}},
		{"instance-ids", []Token{"instance", "id"}},
		{"vpc_id", []Token{"vpc", "id"}},
		{"DBInstanceIdentifier", []Token{"db", "instance", "identifier"}},
		{"key.value", []Token{"key", "value"}},
	}

	for _, c := range cases {
		got := tokenise(c.in)
		if len(got) != len(c.want) {
			t.Fatalf("tokenise(%q) = %v, want %v", c.in, got, c.want)
		}
		for i := range got {
			if got[i] != c.want[i] {
				t.Errorf("tokenise(%q)[%d] = %q, want %q", c.in, i, got[i], c.want[i])
			}
		}
	}
}

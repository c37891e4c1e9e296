package generate

import (
	"testing"

	"intentrelay/internal/schema"
)

func TestNewClient_Validation(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		cfg  Config
	}{
		{name: "missing api key", cfg: Config{Model: "gpt-4o"}},
		{name: "missing model", cfg: Config{APIKey: "sk-test"}},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			if _, err := NewClient(tc.cfg); err == nil {
				t.Fatalf("NewClient(%+v) succeeded, want error", tc.cfg)
			}
		})
	}
}

func TestNewClient_Defaults(t *testing.T) {
	t.Parallel()

	client, err := NewClient(Config{APIKey: "sk-test", Model: "gpt-4o"})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if client.classifierModel != "gpt-4o" {
		t.Fatalf("classifierModel=%q, want fallback to model", client.classifierModel)
	}
	if client.maxOutputTokens != 2048 {
		t.Fatalf("maxOutputTokens=%d, want default", client.maxOutputTokens)
	}
}

func TestObjectStream_SnapshotDedup(t *testing.T) {
	t.Parallel()

	s := &ObjectStream{entry: schema.NotificationsEntry()}

	s.buf = []byte(`{"notifications":[`)
	first, ok := s.snapshot()
	if !ok {
		t.Fatalf("first snapshot not emitted")
	}

	// A delta that does not change the parsed snapshot must be suppressed.
	s.buf = append(s.buf, "\n  "...)
	if snap, ok := s.snapshot(); ok {
		t.Fatalf("duplicate snapshot emitted: %s", snap)
	}

	// A delta that populates a new field must produce a new snapshot.
	s.buf = append(s.buf, `{"name":"Mila"`...)
	second, ok := s.snapshot()
	if !ok {
		t.Fatalf("refined snapshot not emitted")
	}
	if string(second) == string(first) {
		t.Fatalf("refined snapshot equals previous one")
	}
}

// Feeding the accumulated buffer one text delta at a time must yield the
// refinement sequence a caller sees on the wire: every emitted snapshot parses
// a longer prefix of the same document, and deltas that do not change the
// parsed snapshot emit nothing.
func TestObjectStream_DeltaAccumulation(t *testing.T) {
	t.Parallel()

	s := &ObjectStream{entry: schema.NotificationsEntry()}

	deltas := []string{`{`, `"name":"Cu`, `rry"`, "\n  ", `,"servings":4`}
	want := []string{
		`{}`,
		`{"name":"Cu"}`,
		`{"name":"Curry"}`,
		`{"name":"Curry","servings":4}`,
	}

	var got []string
	for _, delta := range deltas {
		s.buf = append(s.buf, delta...)
		if snap, ok := s.snapshot(); ok {
			got = append(got, string(snap))
		}
	}

	if len(got) != len(want) {
		t.Fatalf("snapshots=%v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("snapshot[%d]=%s, want %s", i, got[i], want[i])
		}
	}
}

func TestObjectStream_SnapshotUnparseablePrefix(t *testing.T) {
	t.Parallel()

	s := &ObjectStream{entry: schema.NotificationsEntry()}
	s.buf = []byte(`   `)
	if _, ok := s.snapshot(); ok {
		t.Fatalf("snapshot emitted for unparseable prefix")
	}
}

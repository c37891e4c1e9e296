package partialjson

import (
	"encoding/json"
	"testing"
)

func TestComplete_Prefixes(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		prefix string
		want   string
		ok     bool
	}{
		{name: "empty", prefix: "", ok: false},
		{name: "whitespace only", prefix: "  \n", ok: false},
		{name: "open object", prefix: "{", want: "{}", ok: true},
		{name: "open array in object", prefix: `{"steps":[`, want: `{"steps":[]}`, ok: true},
		{name: "complete document", prefix: `{"a":1}`, want: `{"a":1}`, ok: true},
		{name: "mid string value", prefix: `{"name":"Thai Cur`, want: `{"name":"Thai Cur"}`, ok: true},
		{name: "dangling key", prefix: `{"name"`, want: "{}", ok: true},
		{name: "dangling colon", prefix: `{"name":`, want: "{}", ok: true},
		{name: "dangling key after value", prefix: `{"a":1,"b`, want: `{"a":1}`, ok: true},
		{name: "dangling colon after value", prefix: `{"a":1,"b":`, want: `{"a":1}`, ok: true},
		{name: "trailing comma in object", prefix: `{"a":1,`, want: `{"a":1}`, ok: true},
		{name: "trailing comma in array", prefix: `{"xs":["a",`, want: `{"xs":["a"]}`, ok: true},
		{name: "mid array string", prefix: `{"xs":["a","b`, want: `{"xs":["a","b"]}`, ok: true},
		{name: "number value complete", prefix: `{"n":42`, want: `{"n":42}`, ok: true},
		{name: "number trailing minus", prefix: `{"n":-`, want: "{}", ok: true},
		{name: "number trailing exponent", prefix: `{"n":1e`, want: `{"n":1}`, ok: true},
		{name: "number trailing dot", prefix: `{"n":3.`, want: `{"n":3}`, ok: true},
		{name: "partial true", prefix: `{"b":tr`, want: `{"b":true}`, ok: true},
		{name: "partial false", prefix: `{"b":fal`, want: `{"b":false}`, ok: true},
		{name: "partial null", prefix: `{"b":nu`, want: `{"b":null}`, ok: true},
		{name: "mid escape", prefix: `{"s":"a\`, want: `{"s":"a"}`, ok: true},
		{name: "mid unicode escape", prefix: `{"s":"a\u00`, want: `{"s":"a"}`, ok: true},
		{name: "escaped quote inside string", prefix: `{"s":"a\"b`, want: `{"s":"a\"b"}`, ok: true},
		{name: "nested objects", prefix: `{"r":{"name":"x","xs":[{"a":1`, want: `{"r":{"name":"x","xs":[{"a":1}]}}`, ok: true},
		{name: "nested dangling key", prefix: `{"r":{"name":"x","xs":[{"a"`, want: `{"r":{"name":"x","xs":[{}]}}`, ok: true},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got, ok := Complete([]byte(tc.prefix))
			if ok != tc.ok {
				t.Fatalf("Complete(%q) ok=%v, want %v", tc.prefix, ok, tc.ok)
			}
			if !ok {
				return
			}
			if string(got) != tc.want {
				t.Fatalf("Complete(%q)=%s, want %s", tc.prefix, got, tc.want)
			}
			if !json.Valid(got) {
				t.Fatalf("Complete(%q) produced invalid JSON: %s", tc.prefix, got)
			}
		})
	}
}

func TestComplete_EveryPrefixParses(t *testing.T) {
	t.Parallel()

	doc := `{"name":"Green Curry","servings":4,"spicy":true,"ingredients":[` +
		`{"name":"coconut milk","amount":400.5,"unit":"ml"},` +
		`{"name":"chicken","amount":500,"unit":"g"}],` +
		`"steps":["Heat the wok.","Add paste \"gently\".","Simmer."]}`

	for i := 1; i <= len(doc); i++ {
		completed, ok := Complete([]byte(doc[:i]))
		if !ok {
			continue
		}
		if !json.Valid(completed) {
			t.Fatalf("prefix %d: invalid completion %s", i, completed)
		}
	}

	full, ok := Complete([]byte(doc))
	if !ok {
		t.Fatalf("full document did not complete")
	}
	if string(full) != doc {
		t.Fatalf("full document altered:\n got %s\nwant %s", full, doc)
	}
}

// Snapshots of ever-longer prefixes must refine each other: populated fields
// never disappear and array elements are never retracted.
func TestComplete_MonotonicRefinement(t *testing.T) {
	t.Parallel()

	doc := `{"title":"A Tale","genre":"mystery","characters":[{"name":"Ava","description":"detective"},{"name":"Brill","description":"suspect"}],"plot":"Who did it?"}`

	var prev map[string]any
	for i := 1; i <= len(doc); i++ {
		completed, ok := Complete([]byte(doc[:i]))
		if !ok {
			continue
		}
		var cur map[string]any
		if err := json.Unmarshal(completed, &cur); err != nil {
			t.Fatalf("prefix %d: unmarshal: %v", i, err)
		}
		if prev != nil {
			assertRefines(t, i, prev, cur)
		}
		prev = cur
	}
}

func assertRefines(t *testing.T, prefixLen int, prev, cur map[string]any) {
	t.Helper()
	for key := range prev {
		if _, ok := cur[key]; !ok {
			t.Fatalf("prefix %d: field %q was retracted", prefixLen, key)
		}
	}
	for key, prevVal := range prev {
		prevArr, isArr := prevVal.([]any)
		if !isArr {
			continue
		}
		curArr, ok := cur[key].([]any)
		if !ok {
			t.Fatalf("prefix %d: array field %q changed type", prefixLen, key)
		}
		if len(curArr) < len(prevArr) {
			t.Fatalf("prefix %d: array field %q shrank from %d to %d", prefixLen, key, len(prevArr), len(curArr))
		}
	}
}

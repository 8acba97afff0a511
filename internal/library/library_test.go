package library

import (
	"strings"
	"testing"
	"testing/fstest"

	"github.com/google/go-cmp/cmp"

	"github.com/zhouzirui/mood-fortune/backend/internal/model/content"
)

func sampleLibrary() *Library {
	return New("sample", "Sample",
		[]content.Mood{"good", "bad"},
		[]content.Context{"still", "focused"},
		map[content.Mood]map[content.Context][]content.Message{
			"good": {
				"still": {
					{ActionType: content.ActionBreathe, Message: "A", DisplayTime: 5, AudioIndex: 1},
					{ActionType: content.ActionBreathe, Message: "B", DisplayTime: 5, AudioIndex: 2},
					{ActionType: content.ActionBreathe, Message: "C", DisplayTime: 5, AudioIndex: 3},
				},
				"focused": {
					{ActionType: content.ActionDo, Message: "D", DisplayTime: 5},
				},
			},
			"bad": {
				"still":   {{ActionType: content.ActionReflect, Message: "E", DisplayTime: 5}},
				"focused": {},
			},
		},
	)
}

func TestAllMessagesReturnsOrderedBucket(t *testing.T) {
	lib := sampleLibrary()

	got := lib.AllMessages("good", "still")
	want := []string{"A", "B", "C"}
	var texts []string
	for _, msg := range got {
		texts = append(texts, msg.Message)
	}
	if diff := cmp.Diff(want, texts); diff != "" {
		t.Fatalf("unexpected bucket (-want +got):\n%s", diff)
	}
}

func TestAllMessagesReturnsCopy(t *testing.T) {
	lib := sampleLibrary()

	first := lib.AllMessages("good", "still")
	first[0].Message = "mutated"

	if again := lib.AllMessages("good", "still"); again[0].Message != "A" {
		t.Fatalf("library bucket was mutated through returned slice: %q", again[0].Message)
	}
}

func TestAllMessagesMissesAreEmpty(t *testing.T) {
	lib := sampleLibrary()

	cases := []struct {
		name string
		mood content.Mood
		ctx  content.Context
	}{
		{name: "empty bucket", mood: "bad", ctx: "focused"},
		{name: "unknown mood", mood: "ecstatic", ctx: "still"},
		{name: "unknown context", mood: "good", ctx: "sleep"},
		{name: "unset mood", mood: "", ctx: "still"},
		{name: "unset context", mood: "good", ctx: ""},
	}

	for _, tc := range cases {
		got := lib.AllMessages(tc.mood, tc.ctx)
		if got == nil {
			t.Errorf("%s: expected empty slice, got nil", tc.name)
		}
		if len(got) != 0 {
			t.Errorf("%s: expected no messages, got %d", tc.name, len(got))
		}
	}
}

func TestAllMessagesOnNilLibrary(t *testing.T) {
	var lib *Library
	if got := lib.AllMessages("good", "still"); len(got) != 0 {
		t.Fatalf("expected empty result from nil library, got %d", len(got))
	}
}

func TestValidateReportsEmptyBucket(t *testing.T) {
	result := sampleLibrary().Validate()

	if result.IsValid {
		t.Fatal("expected library with empty bucket to be invalid")
	}
	want := []string{"sample: bad/focused has no messages"}
	if diff := cmp.Diff(want, result.Errors); diff != "" {
		t.Fatalf("unexpected errors (-want +got):\n%s", diff)
	}
}

func TestValidateReportsMissingFields(t *testing.T) {
	lib := New("broken", "Broken",
		[]content.Mood{"okay"},
		[]content.Context{"move"},
		map[content.Mood]map[content.Context][]content.Message{
			"okay": {"move": {
				{Message: "no action", DisplayTime: 3},
				{ActionType: content.ActionDo, DisplayTime: 3},
				{ActionType: content.ActionDo, Message: "no time"},
				{ActionType: "DANCE", Message: "odd tag", DisplayTime: 3},
			}},
		},
	)

	result := lib.Validate()
	want := []string{
		"broken: okay/move[0] missing actionType",
		"broken: okay/move[1] missing message",
		"broken: okay/move[2] missing displayTime",
		`broken: okay/move[3] unknown actionType "DANCE"`,
	}
	if result.IsValid {
		t.Fatal("expected invalid result")
	}
	if diff := cmp.Diff(want, result.Errors); diff != "" {
		t.Fatalf("unexpected errors (-want +got):\n%s", diff)
	}
}

func TestValidateReportsUndeclaredContent(t *testing.T) {
	lib := New("extra", "Extra",
		[]content.Mood{"good"},
		[]content.Context{"still"},
		map[content.Mood]map[content.Context][]content.Message{
			"good": {
				"still": {{ActionType: content.ActionDo, Message: "ok", DisplayTime: 1}},
				"sleep": {{ActionType: content.ActionDo, Message: "stray", DisplayTime: 1}},
			},
		},
	)

	result := lib.Validate()
	if result.IsValid || len(result.Errors) != 1 || !strings.Contains(result.Errors[0], `undeclared context "sleep"`) {
		t.Fatalf("expected undeclared context error, got %+v", result)
	}
	if got := lib.AllMessages("good", "sleep"); len(got) != 0 {
		t.Fatalf("undeclared pair must not be served, got %d messages", len(got))
	}
}

func TestValidateOrdersUndeclaredContent(t *testing.T) {
	stray := []content.Message{{ActionType: content.ActionDo, Message: "stray", DisplayTime: 1}}
	lib := New("extra", "Extra",
		[]content.Mood{"good"},
		[]content.Context{"still"},
		map[content.Mood]map[content.Context][]content.Message{
			"good":  {"still": stray[:1], "sleep": stray, "dawn": stray, "noon": stray},
			"awful": {"still": stray},
			"bad":   {"still": stray},
		},
	)

	want := []string{
		`extra: content for undeclared mood "awful"`,
		`extra: content for undeclared mood "bad"`,
		`extra: content for undeclared context "dawn" under mood "good"`,
		`extra: content for undeclared context "noon" under mood "good"`,
		`extra: content for undeclared context "sleep" under mood "good"`,
	}
	for i := 0; i < 10; i++ {
		if diff := cmp.Diff(want, lib.Validate().Errors); diff != "" {
			t.Fatalf("run %d: errors mismatch (-want +got):\n%s", i, diff)
		}
	}
}

func TestEmbeddedLibrariesAreValid(t *testing.T) {
	libs, err := LoadEmbedded()
	if err != nil {
		t.Fatalf("LoadEmbedded err: %v", err)
	}
	if len(libs) != 2 {
		t.Fatalf("expected 2 embedded libraries, got %d", len(libs))
	}

	for _, lib := range libs {
		result := lib.Validate()
		if !result.IsValid {
			t.Errorf("library %s invalid: %v", lib.Name(), result.Errors)
		}
	}

	registry := NewRegistry(libs...)
	fortune, ok := registry.FindByName("fortune")
	if !ok {
		t.Fatal("fortune library not registered")
	}
	if diff := cmp.Diff([]content.Context{"still", "move", "focused"}, fortune.Contexts()); diff != "" {
		t.Fatalf("unexpected fortune contexts (-want +got):\n%s", diff)
	}
	stillzone, ok := registry.FindByName("stillzone")
	if !ok {
		t.Fatal("stillzone library not registered")
	}
	if !stillzone.HasContext("sleep") || stillzone.HasContext("move") {
		t.Fatalf("stillzone contexts are app specific, got %v", stillzone.Contexts())
	}
}

func TestParseRejectsBadDocuments(t *testing.T) {
	cases := []struct {
		name string
		doc  string
	}{
		{name: "missing name", doc: "moods: [good]\ncontexts: [still]\n"},
		{name: "no moods", doc: "name: x\ncontexts: [still]\n"},
		{name: "no contexts", doc: "name: x\nmoods: [good]\n"},
		{name: "duplicate mood", doc: "name: x\nmoods: [good, good]\ncontexts: [still]\n"},
		{name: "not yaml", doc: "name: [unterminated"},
	}

	for _, tc := range cases {
		if _, err := Parse([]byte(tc.doc)); err == nil {
			t.Errorf("%s: expected parse error", tc.name)
		}
	}
}

func TestLoadDirSkipsNonYAML(t *testing.T) {
	fsys := fstest.MapFS{
		"libs/b.yaml":   {Data: []byte("name: b\nmoods: [good]\ncontexts: [still]\n")},
		"libs/a.yml":    {Data: []byte("name: a\ntitle: Alpha\nmoods: [good]\ncontexts: [still]\n")},
		"libs/notes.md": {Data: []byte("# not a library")},
	}

	libs, err := LoadDir(fsys, "libs")
	if err != nil {
		t.Fatalf("LoadDir err: %v", err)
	}
	if len(libs) != 2 {
		t.Fatalf("expected 2 libraries, got %d", len(libs))
	}
	if libs[0].Name() != "a" || libs[0].Title() != "Alpha" {
		t.Fatalf("expected sorted load with title, got %s/%s", libs[0].Name(), libs[0].Title())
	}
	if libs[1].Title() != "b" {
		t.Fatalf("expected title to default to name, got %s", libs[1].Title())
	}
}

func TestRegistryLookup(t *testing.T) {
	first := sampleLibrary()
	second := New("other", "", []content.Mood{"good"}, []content.Context{"still"}, nil)
	reg := NewRegistry(first, second)

	if got, ok := reg.FindByName("other"); !ok || got != second {
		t.Fatalf("FindByName(other) = %v, %v", got, ok)
	}
	if _, ok := reg.FindByName("tarot"); ok {
		t.Fatal("expected miss for unknown library")
	}

	list := reg.List()
	if len(list) != 2 || list[0] != first {
		t.Fatalf("unexpected list order: %v", list)
	}
	list[0] = nil
	if reg.List()[0] != first {
		t.Fatal("List must return a copy")
	}
}

package catalog

import (
	"encoding/json"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/go-cmp/cmp"

	"github.com/zhouzirui/mood-fortune/backend/internal/library"
	"github.com/zhouzirui/mood-fortune/backend/internal/model/content"
	"github.com/zhouzirui/mood-fortune/backend/internal/service/feed"
)

func testLibrary() *library.Library {
	return library.New("fortune", "Fortune",
		[]content.Mood{"good", "bad"},
		[]content.Context{"still", "move"},
		map[content.Mood]map[content.Context][]content.Message{
			"good": {
				"still": {
					{ActionType: content.ActionBreathe, Message: "A", DisplayTime: 5, AudioIndex: 1},
					{ActionType: content.ActionBreathe, Message: "B", DisplayTime: 5, AudioIndex: 2},
					{ActionType: content.ActionBreathe, Message: "C", DisplayTime: 5, AudioIndex: 3},
				},
				"move": {
					{ActionType: content.ActionDo, Message: "Only", DisplayTime: 5, AudioIndex: 4},
				},
			},
		},
	)
}

func setupRouter() *chi.Mux {
	r := chi.NewRouter()
	New(library.NewRegistry(testLibrary()), rand.New(rand.NewSource(9))).RegisterRoutes(r)
	return r
}

func get(t *testing.T, r http.Handler, path string, out any) int {
	t.Helper()
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
	if out != nil && rr.Code == http.StatusOK {
		if err := json.Unmarshal(rr.Body.Bytes(), out); err != nil {
			t.Fatalf("decode %s: %v", path, err)
		}
	}
	return rr.Code
}

func TestListAndDescribe(t *testing.T) {
	r := setupRouter()

	var list []Summary
	if code := get(t, r, "/libraries", &list); code != http.StatusOK {
		t.Fatalf("list status = %d", code)
	}
	if len(list) != 1 || list[0].Name != "fortune" || list[0].Size != 4 {
		t.Fatalf("unexpected list: %+v", list)
	}

	if code := get(t, r, "/libraries/nope", nil); code != http.StatusNotFound {
		t.Fatalf("unknown library status = %d", code)
	}
}

func TestValidateReportsEmptyBuckets(t *testing.T) {
	r := setupRouter()

	var result library.ValidationResult
	if code := get(t, r, "/libraries/fortune/validate", &result); code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if result.IsValid || len(result.Errors) != 2 {
		t.Fatalf("expected two empty bad/* buckets, got %+v", result)
	}
}

func TestMessagesUnknownPairIsEmpty(t *testing.T) {
	r := setupRouter()

	var messages []content.Message
	if code := get(t, r, "/libraries/fortune/messages?mood=good&context=still", &messages); code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if len(messages) != 3 || messages[0].Message != "A" {
		t.Fatalf("unexpected bucket: %+v", messages)
	}

	messages = nil
	get(t, r, "/libraries/fortune/messages?mood=ecstatic&context=still", &messages)
	if messages == nil || len(messages) != 0 {
		t.Fatalf("unknown mood should be an empty list, got %#v", messages)
	}
}

func TestRandomHonoursExclusion(t *testing.T) {
	r := setupRouter()

	for i := 0; i < 20; i++ {
		var resp RandomResponse
		get(t, r, "/libraries/fortune/random?mood=good&context=still&excludeMessage=A&excludeAudioIndex=1", &resp)
		if resp.Message == nil || resp.Message.Message == "A" {
			t.Fatalf("exclusion not honoured: %+v", resp.Message)
		}
	}

	var single RandomResponse
	get(t, r, "/libraries/fortune/random?mood=good&context=move&excludeMessage=Only&excludeAudioIndex=4", &single)
	if single.Message == nil || single.Message.Message != "Only" {
		t.Fatalf("single entry bucket should fall back to itself, got %+v", single.Message)
	}

	var empty RandomResponse
	get(t, r, "/libraries/fortune/random?mood=bad&context=still", &empty)
	if empty.Message != nil {
		t.Fatalf("empty bucket should yield no message, got %+v", empty.Message)
	}

	if code := get(t, r, "/libraries/fortune/random?mood=good&context=still&excludeMessage=A&excludeAudioIndex=x", nil); code != http.StatusBadRequest {
		t.Fatalf("bad audio index status = %d", code)
	}
}

func TestFeedOrderedAndShuffled(t *testing.T) {
	r := setupRouter()

	var ordered feed.Result
	get(t, r, "/libraries/fortune/feed?mood=good&context=still&count=2", &ordered)
	got := []string{ordered.Messages[0].Message, ordered.Messages[1].Message}
	if diff := cmp.Diff([]string{"A", "B"}, got); diff != "" {
		t.Fatalf("ordered feed mismatch (-want +got):\n%s", diff)
	}
	if len(ordered.AllMessages) != 3 || ordered.RandomMessage == nil || ordered.IsLoading {
		t.Fatalf("unexpected feed: %+v", ordered)
	}

	var defaulted feed.Result
	get(t, r, "/libraries/fortune/feed?mood=good&context=still", &defaulted)
	if len(defaulted.Messages) != 1 {
		t.Fatalf("missing count should default to one message, got %d", len(defaulted.Messages))
	}

	var shuffled feed.Result
	get(t, r, "/libraries/fortune/feed?mood=good&context=still&count=10&shuffle=true", &shuffled)
	if len(shuffled.Messages) != 3 {
		t.Fatalf("shuffle should not pad, got %d", len(shuffled.Messages))
	}

	var unset feed.Result
	get(t, r, "/libraries/fortune/feed?mood=good", &unset)
	if len(unset.Messages) != 0 || unset.RandomMessage != nil {
		t.Fatalf("unset context should be neutral, got %+v", unset)
	}

	if code := get(t, r, "/libraries/fortune/feed?mood=good&context=still&shuffle=maybe", nil); code != http.StatusBadRequest {
		t.Fatalf("bad shuffle status = %d", code)
	}
}

package pressroom

import (
	"encoding/json"
	"testing"
)

func TestStringListAcceptsArrayAndCommaString(t *testing.T) {
	var fromArray stringList
	if err := json.Unmarshal([]byte(`["Visa","Housing"]`), &fromArray); err != nil {
		t.Fatalf("unmarshal array: %v", err)
	}
	if len(fromArray) != 2 || fromArray[0] != "Visa" || fromArray[1] != "Housing" {
		t.Fatalf("unexpected list from array: %v", fromArray)
	}

	var fromString stringList
	if err := json.Unmarshal([]byte(`"Visa, Housing , ,Banking"`), &fromString); err != nil {
		t.Fatalf("unmarshal string: %v", err)
	}
	if len(fromString) != 3 || fromString[2] != "Banking" {
		t.Fatalf("unexpected list from comma string: %v", fromString)
	}
}

func TestBoolFlagAcceptsCheckboxValues(t *testing.T) {
	cases := map[string]bool{
		`true`:    true,
		`"true"`:  true,
		`"on"`:    true,
		`"1"`:     true,
		`false`:   false,
		`"false"`: false,
		`""`:      false,
		`null`:    false,
	}
	for raw, want := range cases {
		var b boolFlag
		if err := json.Unmarshal([]byte(raw), &b); err != nil {
			t.Fatalf("unmarshal %s: %v", raw, err)
		}
		if bool(b) != want {
			t.Errorf("boolFlag(%s) = %v, want %v", raw, bool(b), want)
		}
	}
}

func TestBuildURL(t *testing.T) {
	if got := BuildURL("https://example.com", "article", "my-post"); got != "https://example.com/article/my-post" {
		t.Fatalf("unexpected url: %s", got)
	}
	if got := BuildURL("https://example.com/base/", "articles"); got != "https://example.com/base/articles" {
		t.Fatalf("unexpected url with base path: %s", got)
	}
}

package help

import (
	"strings"
	"testing"
)

func TestQUICKREFNonEmpty(t *testing.T) {
	if len(QUICKREF) == 0 {
		t.Fatal("QUICKREF is empty")
	}
}

func TestQUICKREFContainsVersion(t *testing.T) {
	if !strings.Contains(QUICKREF, Version) {
		t.Errorf("QUICKREF does not contain version string %s", Version)
	}
}

func TestQUICKREFListsTopics(t *testing.T) {
	for _, topic := range TopicList {
		if !strings.Contains(QUICKREF, topic) {
			t.Errorf("QUICKREF does not mention topic %q", topic)
		}
	}
}

func TestTopicListMatchesTopics(t *testing.T) {
	for _, name := range TopicList {
		if _, ok := Topics[name]; !ok {
			t.Errorf("TopicList entry %q not in Topics map", name)
		}
	}
	if len(Topics) != len(TopicList) {
		t.Errorf("expected %d topics, got %d", len(TopicList), len(Topics))
	}
}

func TestTopicsNonEmpty(t *testing.T) {
	for name, content := range Topics {
		if len(content) == 0 {
			t.Errorf("topic %q has empty content", name)
		}
	}
}

func TestMatchTopic(t *testing.T) {
	tests := []struct {
		query string
		want  string
	}{
		{"syntax", "syntax"},
		{"SYNTAX", "syntax"},
		{"diag", "diagnostics"},
		{"ex", "examples"},
		{"b", "builtins"},
		{" mod ", "modules"},
	}
	for _, tt := range tests {
		name, content, err := MatchTopic(tt.query)
		if err != nil {
			t.Errorf("MatchTopic(%q) error: %v", tt.query, err)
			continue
		}
		if name != tt.want || content == "" {
			t.Errorf("MatchTopic(%q) = %q (content %d bytes), want %q", tt.query, name, len(content), tt.want)
		}
	}
}

func TestMatchTopicErrors(t *testing.T) {
	for _, q := range []string{"nonexistent", "", "constructor"} {
		if _, _, err := MatchTopic(q); err == nil {
			t.Errorf("MatchTopic(%q): expected error", q)
		}
	}
}

func TestBuiltinIndex(t *testing.T) {
	idx := BuiltinIndex()
	for _, want := range []string{"print", "ehco", "spl", "imp", "Total: 27 functions"} {
		if !strings.Contains(idx, want) {
			t.Errorf("BuiltinIndex missing %q:\n%s", want, idx)
		}
	}
	if strings.Contains(idx, "other") {
		t.Errorf("every builtin should be grouped:\n%s", idx)
	}
}

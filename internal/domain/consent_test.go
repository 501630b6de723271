package domain

import "testing"

func TestClassifyKeyword(t *testing.T) {
	cases := map[string]Keyword{
		"STOP":        KeywordOptOut,
		" stop ":      KeywordOptOut,
		"Unsubscribe": KeywordOptOut,
		"cancel":      KeywordOptOut,
		"End":         KeywordOptOut,
		"QUIT":        KeywordOptOut,
		"start":       KeywordOptIn,
		"Yes":         KeywordOptIn,
		"UNSTOP":      KeywordOptIn,
		"stop please": KeywordNone,
		"thanks!":     KeywordNone,
		"":            KeywordNone,
		"stopp":       KeywordNone,
	}

	for body, want := range cases {
		if got := ClassifyKeyword(body); got != want {
			t.Errorf("ClassifyKeyword(%q) = %s, want %s", body, got, want)
		}
	}
}

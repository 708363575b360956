package main

import "testing"

func TestAnalyzeCmd_FlagsRegistered(t *testing.T) {
	for _, name := range []string{"format", "output"} {
		if f := analyzeCmd.Flags().Lookup(name); f == nil {
			t.Errorf("analyze flag --%s not registered", name)
		}
	}
}

func TestRunAnalyze_UnknownFormat(t *testing.T) {
	old := analyzeFormat
	analyzeFormat = "bogus"
	defer func() { analyzeFormat = old }()

	err := runAnalyze(analyzeCmd, []string{"nonexistent.jsonl"})
	if err == nil {
		t.Fatal("expected an error for an unknown --format value")
	}
}

func TestRunAnalyze_MissingFile(t *testing.T) {
	err := runAnalyze(analyzeCmd, []string{"does-not-exist.jsonl"})
	if err == nil {
		t.Fatal("expected an error for a missing scan artifact")
	}
}

package redact

import "testing"

func TestString_NoSecretsRegisteredIsNoop(t *testing.T) {
	defer ResetForTest()
	ResetForTest()

	input := "some normal error message"
	got := String(input)

	if got != input {
		t.Errorf("expected no change, got %q", got)
	}
}

func TestAddKnownSecrets_Redacted(t *testing.T) {
	defer ResetForTest()
	ResetForTest()

	AddKnownSecrets([]string{"hunter2password"})

	input := "git error: could not apply patch containing hunter2password"
	got := String(input)
	want := "git error: could not apply patch containing [REDACTED]"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestAddKnownSecrets_ShortValuesIgnored(t *testing.T) {
	defer ResetForTest()
	ResetForTest()

	AddKnownSecrets([]string{"ab"})

	input := "value ab appears here"
	if got := String(input); got != input {
		t.Errorf("expected no redaction for short values, got %q", got)
	}
}

func TestAddKnownSecrets_MultipleSecrets(t *testing.T) {
	defer ResetForTest()
	ResetForTest()

	AddKnownSecrets([]string{"test-token-aaaa", "test-token-bbbb"})

	input := "tokens: test-token-aaaa and test-token-bbbb"
	want := "tokens: [REDACTED] and [REDACTED]"
	if got := String(input); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestAddKnownSecrets_AccumulatesAcrossCalls(t *testing.T) {
	defer ResetForTest()
	ResetForTest()

	AddKnownSecrets([]string{"first-secret-value"})
	AddKnownSecrets([]string{"second-secret-value"})

	input := "first-secret-value then second-secret-value"
	want := "[REDACTED] then [REDACTED]"
	if got := String(input); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

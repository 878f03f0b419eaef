package masking

import "testing"

// TestUnmask tests placeholder substitution in generated responses
func TestUnmask(t *testing.T) {
	t.Run("AllPlaceholdersRestored", func(t *testing.T) {
		text := "At [AGE_0], [MENTAL_HEALTH_0] is common. Contact [EMAIL_0] in [LOCATION_0]."
		mappings := map[string]string{
			"[AGE_0]":           "25 years old",
			"[MENTAL_HEALTH_0]": "anxiety",
			"[EMAIL_0]":         "support@example.com",
			"[LOCATION_0]":      "New York",
		}

		got := Unmask(text, mappings)
		want := "At 25 years old, anxiety is common. Contact support@example.com in New York."
		if got != want {
			t.Errorf("Unmask mismatch:\n got  %q\n want %q", got, want)
		}
	})

	t.Run("RepeatedPlaceholder", func(t *testing.T) {
		got := Unmask("[NAME_0] said hi. [NAME_0] left.", map[string]string{"[NAME_0]": "Ada"})
		if got != "Ada said hi. Ada left." {
			t.Errorf("Expected every occurrence replaced, got %q", got)
		}
	})

	t.Run("UnknownPlaceholderLeftAlone", func(t *testing.T) {
		text := "See [EMAIL_3] for details."
		got := Unmask(text, map[string]string{"[EMAIL_0]": "a@b.com"})
		if got != text {
			t.Errorf("Unknown placeholder should stay as-is, got %q", got)
		}
	})

	t.Run("EmptyMappings", func(t *testing.T) {
		text := "Nothing to restore here."
		if got := Unmask(text, nil); got != text {
			t.Errorf("Nil mappings should pass text through, got %q", got)
		}
		if got := Unmask(text, map[string]string{}); got != text {
			t.Errorf("Empty mappings should pass text through, got %q", got)
		}
	})

	t.Run("EmptyText", func(t *testing.T) {
		if got := Unmask("", map[string]string{"[EMAIL_0]": "a@b.com"}); got != "" {
			t.Errorf("Expected empty output, got %q", got)
		}
	})
}

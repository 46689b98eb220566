package config

import "testing"

func TestGetEnvInt(t *testing.T) {
	cases := []struct {
		name     string
		value    string
		set      bool
		fallback int
		want     int
	}{
		{name: "unset", set: false, fallback: 6, want: 6},
		{name: "blank", value: "  ", set: true, fallback: 6, want: 6},
		{name: "valid", value: "4", set: true, fallback: 6, want: 4},
		{name: "padded", value: " 12 ", set: true, fallback: 6, want: 12},
		{name: "garbage", value: "six", set: true, fallback: 6, want: 6},
		{name: "negative", value: "-1", set: true, fallback: 6, want: 6},
		{name: "zero", value: "0", set: true, fallback: 6, want: 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if tc.set {
				t.Setenv("MYPALETTE_TEST_INT", tc.value)
			}
			if got := getEnvInt("MYPALETTE_TEST_INT", tc.fallback); got != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, got)
			}
		})
	}
}

func TestParseFeeSource(t *testing.T) {
	if got := parseFeeSource("CALL"); got != "call" {
		t.Fatalf("expected call, got %q", got)
	}
	if got := parseFeeSource("flat"); got != "flat" {
		t.Fatalf("expected flat, got %q", got)
	}
	if got := parseFeeSource("per-call"); got != "flat" {
		t.Fatalf("unknown sources should fall back to flat, got %q", got)
	}
}

func TestGetEnvFallback(t *testing.T) {
	t.Setenv("MYPALETTE_TEST_STR", "")
	if got := getEnv("MYPALETTE_TEST_STR", "x"); got != "" {
		t.Fatalf("set-but-empty should win over fallback, got %q", got)
	}
	if got := getEnv("MYPALETTE_TEST_MISSING", "x"); got != "x" {
		t.Fatalf("expected fallback, got %q", got)
	}
}

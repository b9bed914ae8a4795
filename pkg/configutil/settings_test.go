package configutil

import "testing"

func TestDecodeSettingsNormalizesKeys(t *testing.T) {
	var out struct {
		APIKey     string `mapstructure:"api_key"`
		SampleRate int    `mapstructure:"sample_rate"`
	}
	input := map[string]any{
		"api-key":     "secret",
		"sample_rate": "16000",
	}
	if err := DecodeSettings(input, &out); err != nil {
		t.Fatalf("DecodeSettings: %v", err)
	}
	if out.APIKey != "secret" {
		t.Fatalf("api key = %q", out.APIKey)
	}
	if out.SampleRate != 16000 {
		t.Fatalf("sample rate = %d", out.SampleRate)
	}
}

func TestDecodeSettingsEmptyInput(t *testing.T) {
	var out struct {
		APIKey string `mapstructure:"api_key"`
	}
	if err := DecodeSettings(nil, &out); err != nil {
		t.Fatalf("DecodeSettings: %v", err)
	}
	if out.APIKey != "" {
		t.Fatalf("api key = %q", out.APIKey)
	}
}

func TestRequireString(t *testing.T) {
	if err := RequireString("value", "vendors.stt.settings.api_key"); err != nil {
		t.Fatalf("RequireString: %v", err)
	}
	if err := RequireString("  ", "vendors.stt.settings.api_key"); err == nil {
		t.Fatalf("blank value accepted")
	}
}

func TestPointerFallbacks(t *testing.T) {
	if got := IntValue(nil, 7); got != 7 {
		t.Fatalf("IntValue fallback = %d", got)
	}
	n := 3
	if got := IntValue(&n, 7); got != 3 {
		t.Fatalf("IntValue = %d", got)
	}
	if got := BoolValue(nil, true); !got {
		t.Fatalf("BoolValue fallback = %v", got)
	}
}

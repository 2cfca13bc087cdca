package devserver

import "testing"

func TestSpecText_PlainText(t *testing.T) {
	for _, ct := range []string{"text/plain", "text/markdown"} {
		got, err := specText(ct, []byte("- one\n- two\n"))
		if err != nil {
			t.Fatalf("%s: %v", ct, err)
		}
		if got != "- one\n- two\n" {
			t.Errorf("%s: got %q", ct, got)
		}
	}
}

func TestSpecText_InvalidPDF(t *testing.T) {
	if _, err := specText("application/pdf", []byte("not a pdf")); err == nil {
		t.Fatal("expected an error for a corrupt pdf")
	}
}

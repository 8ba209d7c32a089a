package theme

import (
	"bytes"
	"strings"
	"testing"
)

func TestBannerIncludesVersion(t *testing.T) {
	var buf bytes.Buffer
	PrintBanner(&buf, "v1.2.3")
	if !strings.Contains(buf.String(), "T H R E S H O L D") || !strings.Contains(buf.String(), "v1.2.3") {
		t.Fatalf("unexpected banner: %q", buf.String())
	}
}

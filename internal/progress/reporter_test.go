package progress

import (
	"bytes"
	"strings"
	"sync"
	"testing"
)

func TestCIReporter(t *testing.T) {
	var buf bytes.Buffer
	r := &CIReporter{Out: &buf, Description: "Exporting sitemap"}

	r.Start(2)
	r.Advance("sitemap.txt")
	r.Advance("sitemap.svg")
	r.Finish()

	want := "Exporting sitemap: 2 item(s)\n[1/2] sitemap.txt\n[2/2] sitemap.svg\nExporting sitemap complete\n"
	if buf.String() != want {
		t.Errorf("output =\n%s\nwant\n%s", buf.String(), want)
	}
}

func TestCIReporterConcurrent(t *testing.T) {
	var buf bytes.Buffer
	r := &CIReporter{Out: &buf, Description: "Exporting"}
	r.Start(10)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.Advance("item")
		}()
	}
	wg.Wait()

	if !strings.Contains(buf.String(), "[10/10] item") {
		t.Errorf("missing final count in %q", buf.String())
	}
}

func TestNewReporterCI(t *testing.T) {
	t.Setenv("CI", "true")
	if _, ok := NewReporter("x").(*CIReporter); !ok {
		t.Error("expected CIReporter when CI is set")
	}
}

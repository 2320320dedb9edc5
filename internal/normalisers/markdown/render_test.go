package markdown

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/sebdah/goldie/v2"
)

func TestRender_Golden(t *testing.T) {
	rec := emptyRecord()
	rec.Title = "Login Service"
	rec.Description = "Lets users log in."
	rec.Requirements = []string{"OAuth support", "Session timeout"}
	rec.PerformanceRequirements = map[string]string{"latency": "200ms"}
	rec.StartDate = date(2025, time.January, 15)
	rec.KeyMilestones = []string{"Beta"}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "render_login_service", []byte(Render(rec)))
}

func TestRender_RoundTrip(t *testing.T) {
	want := inventoryRecord()

	got := Assemble(Render(want), "").Record

	if diff := cmp.Diff(want, got, ignoreDerived); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

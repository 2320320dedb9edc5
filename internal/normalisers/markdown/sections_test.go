package markdown

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseList(t *testing.T) {
	t.Run("markers", func(t *testing.T) {
		got := ParseList([]string{"- Req A", "* Req B", "1. Req C"})
		assert.Equal(t, []string{"Req A", "Req B", "Req C"}, got)
	})

	t.Run("cleanup", func(t *testing.T) {
		got := ParseList([]string{
			"- [ ] todo item",
			"- [x] done item",
			"+ **Bold** entry",
			"* *Italic* entry",
			"---",
			"",
			"- ab",
			"12. Numbered",
			"**Bold start** item",
		})
		assert.Equal(t, []string{
			"todo item",
			"done item",
			"Bold entry",
			"Italic entry",
			"Numbered",
			"Bold start item",
		}, got)
	})

	t.Run("numbers inside items", func(t *testing.T) {
		tests := []struct {
			line string
			want string
		}{
			{"- 99.9% uptime", "99.9% uptime"},
			{"- 2.5s p95 latency", "2.5s p95 latency"},
			{"* 3. retries max", "3. retries max"},
			{"2.5s cold start", "2.5s cold start"},
			{"10. Tenth item", "Tenth item"},
			{"+ 1.0 release", "1.0 release"},
		}
		for _, tt := range tests {
			t.Run(tt.line, func(t *testing.T) {
				assert.Equal(t, []string{tt.want}, ParseList([]string{tt.line}))
			})
		}
	})

	t.Run("empty", func(t *testing.T) {
		assert.Empty(t, ParseList(nil))
		assert.Empty(t, ParseList([]string{"---", "***", "  "}))
	})
}

func TestParseText(t *testing.T) {
	got := ParseText([]string{"First line with **bold**", "", "---", "  *second*  "})
	assert.Equal(t, "First line with bold\nsecond", got)
}

func TestParseKeyValue(t *testing.T) {
	got := ParseKeyValue([]string{
		"- Response Time: < 200ms",
		"**Throughput**: 1000 rps",
		"no colon here",
		"Uptime: 99.9%: monthly",
		": orphan value",
		"+ **P95 Latency**: 2.5s",
		"1. Error Rate: < 0.1%",
	})

	assert.Equal(t, map[string]string{
		"p95_latency":   "2.5s",
		"error_rate":    "< 0.1%",
		"response_time": "< 200ms",
		"throughput":    "1000 rps",
		"uptime":        "99.9%: monthly",
	}, got)
}

func TestParseTimeline(t *testing.T) {
	tl := ParseTimeline([]string{
		"Start Date: 2025-01-15",
		"- Target Completion: 3/31/2025",
		"Milestone 1: Beta release",
		"- Milestone 2: GA",
		"Phase one covers auth.",
		"Completion date: 2025-13-45",
		"Start date: TBD",
		"Phase two covers billing.",
	})

	require.NotNil(t, tl.Start)
	assert.Equal(t, time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC), *tl.Start)
	require.NotNil(t, tl.Completion)
	assert.Equal(t, time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC), *tl.Completion)
	assert.Equal(t, []string{"Milestone 1: Beta release", "Milestone 2: GA"}, tl.Milestones)
	assert.Equal(t, "Phase one covers auth.\nPhase two covers billing.", tl.Text)
}

func TestParseTimeline_UnparsableDateLineIsDropped(t *testing.T) {
	tl := ParseTimeline([]string{
		"Start Date: next spring",
		"- Target Completion: 31/31/2025",
		"Rollout in two waves.",
	})

	assert.Nil(t, tl.Start)
	assert.Nil(t, tl.Completion)
	assert.Equal(t, "Rollout in two waves.", tl.Text)
}

func TestParseTimeline_NoDates(t *testing.T) {
	tl := ParseTimeline([]string{"Q3 sometime"})

	assert.Nil(t, tl.Start)
	assert.Nil(t, tl.Completion)
	assert.Empty(t, tl.Milestones)
	assert.Equal(t, "Q3 sometime", tl.Text)
}

func TestSplitSections(t *testing.T) {
	text := "Preamble line\n" +
		"# Doc\n" +
		"## Description\n" +
		"Hello\n" +
		"\n" +
		"## Requirements\n" +
		"- A req\n" +
		"### Functional Requirements\n" +
		"- F one\n" +
		"## Unknown Heading\n" +
		"still functional\n" +
		"## Risks\n"

	got := DefaultRules().SplitSections(text)

	assert.Equal(t, map[string][]string{
		"description":             {"Hello"},
		"requirements":            {"- A req"},
		"functional_requirements": {"- F one", "## Unknown Heading", "still functional"},
	}, got)
}

func TestSplitSections_HeadingVariants(t *testing.T) {
	rules := DefaultRules()

	variants := []string{
		"## Success Metrics",
		"## **Success Metrics**",
		"##Success Metrics",
		"## SUCCESS METRICS",
		"  ## success metrics  ",
	}
	for _, h := range variants {
		t.Run(h, func(t *testing.T) {
			got := rules.SplitSections(h + "\n- metric one")
			assert.Equal(t, []string{"- metric one"}, got["success_metrics"])
		})
	}

	t.Run("wrong level", func(t *testing.T) {
		got := rules.SplitSections("### Requirements\n- nope")
		assert.Empty(t, got)
	})
}

func TestSplitSections_RepeatedHeadingReplaces(t *testing.T) {
	got := DefaultRules().SplitSections("## Risks\n- one\n## Risks\n- two")
	assert.Equal(t, []string{"- two"}, got["risks"])
}

func TestSplitSections_CRLF(t *testing.T) {
	got := DefaultRules().SplitSections("## Risks\r\n- one\r\n")
	require.Len(t, got["risks"], 1)
	assert.Equal(t, []string{"one"}, ParseList(got["risks"]))
}

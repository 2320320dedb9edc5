package markdown

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/custodia-labs/reqsync/internal/core/domain"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name       string
		text       string
		filename   string
		want       domain.Category
		wantReason string
	}{
		{
			name:       "filename platform",
			text:       "anything",
			filename:   "platform-upgrade.md",
			want:       domain.CategoryPlatform,
			wantReason: "filename",
		},
		{
			name:       "filename agent beats content",
			text:       "system infrastructure platform",
			filename:   "Agent_Notes.md",
			want:       domain.CategoryAgent,
			wantReason: "filename",
		},
		{
			name:       "marker with platform",
			text:       "PRD Type: Platform\nbuild a chat bot assistant",
			want:       domain.CategoryPlatform,
			wantReason: "marker",
		},
		{
			name:       "marker with agent",
			text:       "Category: agent\nsomething",
			want:       domain.CategoryAgent,
			wantReason: "marker",
		},
		{
			name:       "override create agent",
			text:       "We will create agent tooling for system architecture",
			want:       domain.CategoryAgent,
			wantReason: "override",
		},
		{
			name:       "override improve platform",
			text:       "Let us improve platform reliability",
			want:       domain.CategoryPlatform,
			wantReason: "override",
		},
		{
			name:       "platform score",
			text:       "Database backend with monitoring dashboard",
			want:       domain.CategoryPlatform,
			wantReason: "score",
		},
		{
			name:       "tie defaults to agent",
			text:       "",
			want:       domain.CategoryAgent,
			wantReason: "score",
		},
	}

	rules := DefaultRules()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := rules.Classify(tt.text, tt.filename)
			assert.Equal(t, tt.want, got.Category)
			assert.Equal(t, tt.wantReason, got.Reason)
		})
	}
}

func TestClassify_Scores(t *testing.T) {
	got := DefaultRules().Classify("An assistant that runs workflow tasks", "")

	assert.Equal(t, domain.CategoryAgent, got.Category)
	assert.Greater(t, got.AgentScore, got.PlatformScore)
}

func TestClassify_KeywordCountedOnce(t *testing.T) {
	got := DefaultRules().Classify("dashboard dashboard dashboard", "")
	assert.Equal(t, 1, got.PlatformScore)
}

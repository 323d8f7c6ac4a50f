package observe

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"go-jobcard-manager/internal/scraper"
)

func TestDiscriminator(t *testing.T) {
	base := time.Unix(1000, 0)
	tests := []struct {
		name   string
		events []scraper.ControlEvent
		want   bool
	}{
		{
			name:   "user click",
			events: []scraper.ControlEvent{{ID: "1", Source: scraper.SourceUser, At: base}},
			want:   true,
		},
		{
			name:   "engine click",
			events: []scraper.ControlEvent{{ID: "1", Source: scraper.SourceEngine, At: base}},
			want:   false,
		},
		{
			name:   "synthetic event",
			events: []scraper.ControlEvent{{ID: "1", Source: scraper.SourceSynthetic, At: base}},
			want:   false,
		},
		{
			name:   "marked control",
			events: []scraper.ControlEvent{{ID: "1", Source: scraper.SourceUser, Marked: true, At: base}},
			want:   false,
		},
		{
			name: "double fire within cooldown",
			events: []scraper.ControlEvent{
				{ID: "1", Source: scraper.SourceUser, At: base},
				{ID: "2", Source: scraper.SourceUser, At: base.Add(20 * time.Millisecond)},
			},
			want: false,
		},
		{
			name: "second click after cooldown",
			events: []scraper.ControlEvent{
				{ID: "1", Source: scraper.SourceUser, At: base},
				{ID: "2", Source: scraper.SourceUser, At: base.Add(200 * time.Millisecond)},
			},
			want: true,
		},
		{
			name: "user click right after engine click",
			events: []scraper.ControlEvent{
				{ID: "1", Source: scraper.SourceEngine, At: base},
				{ID: "2", Source: scraper.SourceUser, At: base.Add(10 * time.Millisecond)},
			},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDiscriminator(DefaultCooldown)
			var got bool
			for _, ev := range tt.events {
				got = d.Manual(ev)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

package chat

import (
	"testing"
	"time"

	"github.com/aihub/chat-go/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func conv(id string, updated time.Time) models.Conversation {
	return models.Conversation{ID: id, UpdatedAt: updated}
}

func TestGroupByRecency_Labels(t *testing.T) {
	// 固定在本地时区某天的下午
	now := time.Date(2025, time.June, 15, 15, 0, 0, 0, time.Local)

	cases := []struct {
		name  string
		at    time.Time
		label string
	}{
		{"this morning", time.Date(2025, time.June, 15, 1, 0, 0, 0, time.Local), "Today"},
		{"late yesterday", time.Date(2025, time.June, 14, 23, 59, 0, 0, time.Local), "Yesterday"},
		{"three days back", time.Date(2025, time.June, 12, 10, 0, 0, 0, time.Local), "3 days ago"},
		{"six days back", time.Date(2025, time.June, 9, 10, 0, 0, 0, time.Local), "6 days ago"},
		{"eight days back", time.Date(2025, time.June, 7, 10, 0, 0, 0, time.Local), "Last week"},
		{"fifteen days back", time.Date(2025, time.May, 31, 10, 0, 0, 0, time.Local), "2 weeks ago"},
		{"22 days back", time.Date(2025, time.May, 24, 10, 0, 0, 0, time.Local), "3 weeks ago"},
		{"two months back", time.Date(2025, time.April, 2, 10, 0, 0, 0, time.Local), "April 2025"},

		// 边界：恰好落在零点的活跃时间归属该日历天
		{"exactly midnight today", time.Date(2025, time.June, 15, 0, 0, 0, 0, time.Local), "Today"},
		{"exactly midnight yesterday", time.Date(2025, time.June, 14, 0, 0, 0, 0, time.Local), "Yesterday"},
		{"exactly midnight 6 days back", time.Date(2025, time.June, 9, 0, 0, 0, 0, time.Local), "6 days ago"},
		{"exactly midnight 13 days back", time.Date(2025, time.June, 2, 0, 0, 0, 0, time.Local), "Last week"},
		{"exactly midnight 14 days back", time.Date(2025, time.June, 1, 0, 0, 0, 0, time.Local), "2 weeks ago"},
		{"exactly midnight 27 days back", time.Date(2025, time.May, 19, 0, 0, 0, 0, time.Local), "3 weeks ago"},
		{"exactly midnight 28 days back", time.Date(2025, time.May, 18, 0, 0, 0, 0, time.Local), "May 2025"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			groups := GroupByRecency([]models.Conversation{conv("c", tc.at)}, now)
			require.Len(t, groups, 1)
			assert.Equal(t, tc.label, groups[0].Label)
		})
	}
}

func TestGroupByRecency_PreservesOrderWithinGroups(t *testing.T) {
	now := time.Date(2025, time.June, 15, 15, 0, 0, 0, time.Local)
	today1 := time.Date(2025, time.June, 15, 14, 0, 0, 0, time.Local)
	today2 := time.Date(2025, time.June, 15, 9, 0, 0, 0, time.Local)
	yesterday := time.Date(2025, time.June, 14, 12, 0, 0, 0, time.Local)

	groups := GroupByRecency([]models.Conversation{
		conv("a", today1),
		conv("b", yesterday),
		conv("c", today2),
	}, now)

	require.Len(t, groups, 2)
	assert.Equal(t, "Today", groups[0].Label)
	require.Len(t, groups[0].Conversations, 2)
	assert.Equal(t, "a", groups[0].Conversations[0].ID)
	assert.Equal(t, "c", groups[0].Conversations[1].ID)
	assert.Equal(t, "Yesterday", groups[1].Label)
	assert.Equal(t, "b", groups[1].Conversations[0].ID)
}

func TestGroupByRecency_FallsBackToCreatedAt(t *testing.T) {
	now := time.Date(2025, time.June, 15, 15, 0, 0, 0, time.Local)
	c := models.Conversation{ID: "x", CreatedAt: time.Date(2025, time.June, 14, 8, 0, 0, 0, time.Local)}

	groups := GroupByRecency([]models.Conversation{c}, now)
	require.Len(t, groups, 1)
	assert.Equal(t, "Yesterday", groups[0].Label)
}

func TestGroupByRecency_Empty(t *testing.T) {
	assert.Empty(t, GroupByRecency(nil, time.Now()))
}

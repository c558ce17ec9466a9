package chat

import (
	"fmt"
	"time"

	"github.com/aihub/chat-go/internal/models"
)

// BucketGroup 按活跃时间分组后的一段对话列表
type BucketGroup struct {
	Label         string
	Conversations []models.Conversation
}

// GroupByRecency 按最近活跃时间给对话列表分组
// 分界以本地时区当天零点为基准：今天/昨天/N天前/上周/两三周前，更早的落到"January 2006"月份组
// 输入顺序在组内保持不变，组按首次出现的顺序排列
func GroupByRecency(conversations []models.Conversation, now time.Time) []BucketGroup {
	var groups []BucketGroup
	index := make(map[string]int)

	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	for _, c := range conversations {
		label := bucketLabel(lastActive(c), midnight)
		i, ok := index[label]
		if !ok {
			i = len(groups)
			index[label] = i
			groups = append(groups, BucketGroup{Label: label})
		}
		groups[i].Conversations = append(groups[i].Conversations, c)
	}
	return groups
}

// lastActive 取最近活跃时间，没有更新记录时回退到创建时间
func lastActive(c models.Conversation) time.Time {
	if !c.UpdatedAt.IsZero() {
		return c.UpdatedAt
	}
	return c.CreatedAt
}

func bucketLabel(at time.Time, midnight time.Time) string {
	if !at.Before(midnight) {
		return "Today"
	}

	// 按日历天数计算：先截断到活跃当天的零点再取差值
	// Round吸收夏令时造成的±1小时偏差，恰好落在零点的时间归属当天
	atMidnight := time.Date(at.Year(), at.Month(), at.Day(), 0, 0, 0, 0, at.Location())
	days := int(midnight.Sub(atMidnight).Round(24*time.Hour) / (24 * time.Hour))
	switch {
	case days == 1:
		return "Yesterday"
	case days < 7:
		return fmt.Sprintf("%d days ago", days)
	case days < 14:
		return "Last week"
	case days < 21:
		return "2 weeks ago"
	case days < 28:
		return "3 weeks ago"
	default:
		return at.Format("January 2006")
	}
}

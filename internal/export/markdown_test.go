package export

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/rapportlabs/rapport/internal/models"
)

var exportNow = time.Date(2026, 4, 1, 10, 30, 0, 0, time.UTC)

func TestMarkdownFullProfile(t *testing.T) {
	score := 75.0
	contact := &models.Contact{
		ID:              "c-1",
		Name:            "李娜",
		Nickname:        "娜姐",
		City:            "上海",
		Phone:           "13800000000",
		EducationSchool: "复旦大学",
		CurrentCompany:  "某科技公司",
		CurrentPosition: "产品负责人",
		FocusTopics:     []string{"AI 出海"},
		ResourceNeeds:   []string{"融资渠道"},
	}
	meetings := []models.Meeting{
		{
			ID:          "m-1",
			MeetingDate: time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC),
			Location:    "上海",
			Scenario:    "晚餐",
			Status:      models.MeetingCompleted,
			Topics:      []string{"融资"},
			KeyFacts:    []models.KeyFact{{Fact: "刚完成A轮"}},
			Sentiment:   "positive",
			MyCommitments: []models.Commitment{
				{Commitment: "介绍投资人"},
			},
			OpenLoops: []string{"产品定价"},
		},
	}
	playbook := &models.Playbook{
		ID:                "p-1",
		ContactID:         "c-1",
		Preferences:       []string{"花草茶"},
		TopTopics:         []string{"越野跑"},
		HowICanHelpThem:   []string{"对接投资人"},
		RelationshipStage: "friend",
		TemperatureScore:  &score,
		NextAction:        &models.NextAction{Action: "一周内发感谢消息"},
	}

	md := Markdown(contact, meetings, playbook, exportNow)

	assert.True(t, strings.HasPrefix(md, "# 李娜\n"))
	for _, want := range []string{
		"## 身份信息 (Identity)",
		"## 当前状态 (Status)",
		"## 互动历史 (Timeline)",
		"## 行动剧本 (Action Playbook)",
		"**昵称**: 娜姐",
		"电话: 13800000000",
		"学校: 复旦大学",
		"公司: 某科技公司",
		"### 2026-03-15",
		"**地点**: 上海",
		"- 刚完成A轮",
		"我的承诺:",
		"- 未完话题: 产品定价",
		"**偏好**:",
		"- 花草茶",
		"**关系阶段**: friend",
		"- **温度分**: 75/100",
		"- **建议动作**: 一周内发感谢消息",
		"*导出时间: 2026-04-01 10:30*",
	} {
		assert.Contains(t, md, want)
	}
}

func TestMarkdownSkipsNonCompletedMeetings(t *testing.T) {
	contact := &models.Contact{ID: "c-1", Name: "张伟"}
	meetings := []models.Meeting{
		{ID: "m-1", MeetingDate: exportNow, Status: models.MeetingFailed, RawText: "失败的记录"},
		{ID: "m-2", MeetingDate: exportNow, Status: models.MeetingProcessing},
	}

	md := Markdown(contact, meetings, nil, exportNow)
	assert.Contains(t, md, "*暂无会谈记录*")
	assert.NotContains(t, md, "失败的记录")
}

func TestMarkdownUnnamedFallback(t *testing.T) {
	md := Markdown(&models.Contact{ID: "c-1"}, nil, nil, exportNow)
	assert.True(t, strings.HasPrefix(md, "# 未命名联系人\n"))
}

func TestMarkdownNilPlaybook(t *testing.T) {
	md := Markdown(&models.Contact{ID: "c-1", Name: "张伟"}, nil, nil, exportNow)
	assert.Contains(t, md, "*暂无行动建议*")
}

func TestMarkdownOmitsEmptySections(t *testing.T) {
	playbook := &models.Playbook{ID: "p-1", ContactID: "c-1", TopTopics: []string{"篮球"}}
	md := Markdown(&models.Contact{ID: "c-1", Name: "张伟"}, nil, playbook, exportNow)

	assert.Contains(t, md, "### 续聊钩子 (Conversation Hooks)")
	assert.NotContains(t, md, "### 送礼与关怀")
	assert.NotContains(t, md, "### 合作地图")
}

// Package export renders a contact's full profile (identity, status,
// timeline, and action playbook) as a markdown document.
package export

import (
	"fmt"
	"strings"
	"time"

	"github.com/rapportlabs/rapport/internal/models"
)

// Markdown renders the profile. Only completed meetings appear on the
// timeline; failed and in-flight entries are skipped. playbook may be nil.
func Markdown(contact *models.Contact, meetings []models.Meeting, playbook *models.Playbook, now time.Time) string {
	var b strings.Builder

	name := contact.Name
	if name == "" {
		name = "未命名联系人"
	}
	fmt.Fprintf(&b, "# %s\n\n", name)

	writeIdentity(&b, contact)
	writeStatus(&b, contact)
	writeTimeline(&b, meetings)
	writePlaybook(&b, playbook)

	b.WriteString("---\n")
	fmt.Fprintf(&b, "*导出时间: %s*\n", now.Format("2006-01-02 15:04"))
	return b.String()
}

func writeIdentity(b *strings.Builder, c *models.Contact) {
	b.WriteString("## 身份信息 (Identity)\n\n")

	writeItem(b, "昵称", c.Nickname)
	writeItem(b, "性别", c.Gender)
	writeItem(b, "年龄段", c.AgeGroup)
	writeItem(b, "家乡", c.Hometown)
	writeItem(b, "常驻城市", c.City)

	var methods []string
	if c.Phone != "" {
		methods = append(methods, "电话: "+c.Phone)
	}
	if c.Email != "" {
		methods = append(methods, "邮箱: "+c.Email)
	}
	if c.Wechat != "" {
		methods = append(methods, "微信: "+c.Wechat)
	}
	if c.LinkedIn != "" {
		methods = append(methods, "LinkedIn: "+c.LinkedIn)
	}
	if len(methods) > 0 {
		b.WriteString("- **联系方式**\n")
		for _, m := range methods {
			fmt.Fprintf(b, "  - %s\n", m)
		}
	}

	if c.EducationSchool != "" || c.EducationMajor != "" || c.EducationDegree != "" {
		b.WriteString("- **教育背景**\n")
		writeSubItem(b, "学校", c.EducationSchool)
		writeSubItem(b, "专业", c.EducationMajor)
		writeSubItem(b, "学位", c.EducationDegree)
	}

	writeItem(b, "职业概述", c.CareerSummary)

	if c.PreferredContactMethod != "" || c.PreferredContactTime != "" || c.CommunicationStyle != "" {
		b.WriteString("- **沟通偏好**\n")
		writeSubItem(b, "偏好方式", c.PreferredContactMethod)
		writeSubItem(b, "偏好时间", c.PreferredContactTime)
		writeSubItem(b, "沟通风格", c.CommunicationStyle)
	}

	b.WriteString("\n")
}

func writeStatus(b *strings.Builder, c *models.Contact) {
	b.WriteString("## 当前状态 (Status)\n\n")

	var work []string
	if c.CurrentCompany != "" {
		work = append(work, "公司: "+c.CurrentCompany)
	}
	if c.CurrentPosition != "" {
		work = append(work, "职位: "+c.CurrentPosition)
	}
	if c.CurrentIndustry != "" {
		work = append(work, "行业: "+c.CurrentIndustry)
	}
	if len(work) > 0 {
		b.WriteString("### 当前工作\n")
		for _, w := range work {
			fmt.Fprintf(b, "- %s\n", w)
		}
	}

	writeListSection(b, "### 关注方向", c.FocusTopics)
	writeListSection(b, "### 当前项目", c.CurrentProjects)

	if len(c.ShortTermGoals) > 0 || len(c.LongTermGoals) > 0 {
		b.WriteString("\n### 目标\n")
		writeLabeledList(b, "短期目标", c.ShortTermGoals)
		writeLabeledList(b, "长期目标", c.LongTermGoals)
	}

	if len(c.ResourceNeeds) > 0 || len(c.ResourceOffers) > 0 {
		b.WriteString("\n### 资源位\n")
		writeLabeledList(b, "需要", c.ResourceNeeds)
		writeLabeledList(b, "可提供", c.ResourceOffers)
	}

	b.WriteString("\n")
}

func writeTimeline(b *strings.Builder, meetings []models.Meeting) {
	b.WriteString("## 互动历史 (Timeline)\n\n")

	wrote := false
	for i := range meetings {
		m := &meetings[i]
		if m.Status != models.MeetingCompleted {
			continue
		}
		wrote = true

		fmt.Fprintf(b, "### %s\n", m.MeetingDate.Format("2006-01-02"))
		if m.Location != "" {
			fmt.Fprintf(b, "**地点**: %s\n", m.Location)
		}
		if m.Scenario != "" {
			fmt.Fprintf(b, "**场景**: %s\n", m.Scenario)
		}

		if len(m.Topics) > 0 {
			b.WriteString("\n**讨论主题**:\n")
			for _, t := range m.Topics {
				fmt.Fprintf(b, "- %s\n", t)
			}
		}
		if len(m.KeyFacts) > 0 {
			b.WriteString("\n**关键事实**:\n")
			for _, f := range m.KeyFacts {
				fmt.Fprintf(b, "- %s\n", f.Fact)
			}
		}
		if m.Sentiment != "" {
			fmt.Fprintf(b, "\n**情绪**: %s\n", m.Sentiment)
		}

		if len(m.MyCommitments) > 0 || len(m.TheirCommitments) > 0 {
			b.WriteString("\n**承诺与待办**:\n")
			if len(m.MyCommitments) > 0 {
				b.WriteString("我的承诺:\n")
				for _, cm := range m.MyCommitments {
					fmt.Fprintf(b, "- %s\n", cm.Commitment)
				}
			}
			if len(m.TheirCommitments) > 0 {
				b.WriteString("对方承诺:\n")
				for _, cm := range m.TheirCommitments {
					fmt.Fprintf(b, "- %s\n", cm.Commitment)
				}
			}
		}

		if len(m.OpenLoops) > 0 || len(m.NextConversationHooks) > 0 {
			b.WriteString("\n**续聊线索**:\n")
			for _, l := range m.OpenLoops {
				fmt.Fprintf(b, "- 未完话题: %s\n", l)
			}
			for _, h := range m.NextConversationHooks {
				fmt.Fprintf(b, "- 下次可聊: %s\n", h)
			}
		}

		b.WriteString("\n")
	}

	if !wrote {
		b.WriteString("*暂无会谈记录*\n\n")
	}
}

func writePlaybook(b *strings.Builder, p *models.Playbook) {
	b.WriteString("## 行动剧本 (Action Playbook)\n\n")

	if p == nil {
		b.WriteString("*暂无行动建议*\n\n")
		return
	}

	if len(p.Preferences) > 0 || len(p.Taboos) > 0 {
		b.WriteString("### 送礼与关怀 (Gift & Care)\n")
		writeLabeledList(b, "偏好", p.Preferences)
		writeLabeledList(b, "禁忌", p.Taboos)
		b.WriteString("\n")
	}

	if len(p.TopTopics) > 0 || len(p.ConversationQuestions) > 0 {
		b.WriteString("### 续聊钩子 (Conversation Hooks)\n")
		writeLabeledList(b, "最投入话题", p.TopTopics)
		writeLabeledList(b, "下次可问", p.ConversationQuestions)
		b.WriteString("\n")
	}

	if len(p.HowICanHelpThem) > 0 || len(p.HowTheyCanHelpMe) > 0 {
		b.WriteString("### 合作地图 (Collaboration Map)\n")
		writeLabeledList(b, "我如何帮他", p.HowICanHelpThem)
		writeLabeledList(b, "他如何帮我", p.HowTheyCanHelpMe)
		b.WriteString("\n")
	}

	b.WriteString("### 关系健康 (Relationship Health)\n")
	writeItem(b, "关系阶段", p.RelationshipStage)
	if p.TemperatureScore != nil {
		fmt.Fprintf(b, "- **温度分**: %.0f/100\n", *p.TemperatureScore)
	}
	if p.NextAction != nil && p.NextAction.Action != "" {
		fmt.Fprintf(b, "- **建议动作**: %s\n", p.NextAction.Action)
	}
	b.WriteString("\n")
}

// --- helpers ---

func writeItem(b *strings.Builder, label, value string) {
	if value != "" {
		fmt.Fprintf(b, "- **%s**: %s\n", label, value)
	}
}

func writeSubItem(b *strings.Builder, label, value string) {
	if value != "" {
		fmt.Fprintf(b, "  - %s: %s\n", label, value)
	}
}

func writeListSection(b *strings.Builder, header string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "\n%s\n", header)
	for _, it := range items {
		fmt.Fprintf(b, "- %s\n", it)
	}
}

func writeLabeledList(b *strings.Builder, label string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "**%s**:\n", label)
	for _, it := range items {
		fmt.Fprintf(b, "- %s\n", it)
	}
}

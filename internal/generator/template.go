package generator

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/skilldigest/skilldigest/internal/skill"
)

// featureRe pulls list items out of a README; the longer ones usually
// describe capabilities.
var featureRe = regexp.MustCompile(`(?m)^[-*][ \t]+\*?\*?([^*\n]+)`)

var defaultFeatures = []string{
	"自动化工作流程",
	"提升开发效率",
	"简化复杂任务",
}

// templateArticle renders the offline fallback article. It is a pure
// function of its inputs, so a retry on the same date produces the same
// markdown byte for byte.
func templateArticle(sk skill.Skill, readme, date string) *Article {
	name := sk.Name
	if name == "" {
		name = "Unknown Skill"
	}
	description := sk.Description
	if description == "" {
		description = "一个有用的Claude技能"
	}
	category := sk.Category
	if category == "" {
		category = "通用"
	}

	subtitle := truncateRunes(sk.Description, 30)
	if subtitle == "" {
		subtitle = "提升你的AI编程效率"
	}

	features := extractFeatures(readme)
	if len(features) == 0 {
		features = defaultFeatures
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# 每日Skill精选：%s - %s\n\n", name, subtitle)
	fmt.Fprintf(&b, "> 类别：%s\n> 推荐日期：%s\n\n", category, formatChineseDate(date))

	fmt.Fprintf(&b, "## 这是什么？\n\n%s 是一个 Claude Code Skill（技能插件）。%s\n\n", name, description)
	b.WriteString("Claude Code 是 Anthropic 官方推出的 AI 编程助手，而 Skill 是它的扩展插件，可以增强 Claude 的能力，帮助开发者更高效地完成各种任务。\n\n")

	b.WriteString("## 核心能力\n\n")
	for i, feature := range features {
		if i >= 4 {
			break
		}
		fmt.Fprintf(&b, "- **能力%d**：%s\n", i+1, feature)
	}

	fmt.Fprintf(&b, `
## 使用场景

### 场景一：日常开发工作
在日常编码过程中，%[1]s 可以帮助你快速完成常见任务，无需记忆复杂的命令或步骤。

### 场景二：团队协作
当与团队成员协作时，统一使用这个技能可以确保工作流程的一致性，减少沟通成本。

### 场景三：学习探索
对于正在学习 Claude Code 的用户，这个技能提供了很好的参考示例，帮助理解如何构建自己的技能。

## 快速上手

1. 访问技能仓库：[%[1]s](%[2]s)
2. 按照 README 中的说明进行安装
3. 在 Claude Code 中使用相应的触发命令
4. 开始体验自动化的便利

## 优缺点评估

### ✅ 优点
- 易于安装和配置
- 文档清晰，上手简单
- 功能实用，解决实际问题
- 开源免费，可自定义扩展

### ⚠️ 不足
- 可能需要一定的技术背景才能充分利用
- 部分高级功能需要额外配置

## 推荐指数

⭐⭐⭐⭐ (4/5)

%[1]s 是一个值得尝试的 Claude 技能。无论你是开发者还是日常用户，都能从中获得便利。建议有兴趣的朋友去试试看！

## 获取方式

- **GitHub**: [%[2]s](%[2]s)
- **安装方式**: 克隆仓库到 `+"`~/.claude/skills/`"+` 目录
`, name, sk.SourceURL)

	b.WriteString(strings.TrimPrefix(articleFooter, "\n"))
	b.WriteString("\n")

	return &Article{
		Title:    Title(sk),
		Markdown: b.String(),
		Model:    "template",
	}
}

// extractFeatures picks up to five substantial list items from README text.
func extractFeatures(readme string) []string {
	if readme == "" {
		return nil
	}
	var features []string
	for _, m := range featureRe.FindAllStringSubmatch(readme, -1) {
		f := strings.TrimSpace(strings.Trim(strings.TrimSpace(m[1]), "*_`"))
		if len([]rune(f)) > 10 {
			features = append(features, f)
		}
		if len(features) == 5 {
			break
		}
	}
	return features
}

// formatChineseDate turns 2026-02-10 into 2026年02月10日.
func formatChineseDate(date string) string {
	t, err := time.Parse(time.DateOnly, date)
	if err != nil {
		return date
	}
	return t.Format("2006年01月02日")
}

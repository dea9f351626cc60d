// Package generator turns a selected skill into a long-form review article
// plus a cover image. Articles come from an LLM when one is configured and
// from a deterministic markdown template otherwise, so the pipeline also
// works offline.
package generator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/skilldigest/skilldigest/internal/skill"
	"github.com/skilldigest/skilldigest/pkg/llm"
)

// Article is the generated content for one skill.
type Article struct {
	Title     string
	Markdown  string
	CoverPNG  []byte
	Model     string
	TokensIn  int
	TokensOut int
	Cost      float64
}

// GenerationError marks a failed article generation. The pipeline treats it
// as fatal for the run but retryable the next run: the skill is not marked
// published, so the same date re-selects it.
type GenerationError struct {
	Name string
	Err  error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generate article for %s: %v", e.Name, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

const generatorSystemPrompt = `你是「每日Skill精选」栏目的专业编辑，专门撰写 Claude Code Skill 的评测推荐文章。

Claude Code Skill 是什么：
- Claude Code 是 Anthropic 官方推出的 AI 编程助手 CLI 工具
- Skill 是 Claude Code 的扩展插件，可以增强 Claude 的能力
- 用户可以安装各种 Skill 来自动化工作流程、提升效率

你的写作风格：
- 客观专业，有理有据
- 语言流畅，通俗易懂
- 善于发现 Skill 的实用价值
- 能够给出具体的使用建议
- 文章结构清晰，层次分明`

const articleFooter = "\n\n---\n\n*本文由「每日Skill精选」自动生成，每日为你推荐一款优质 Claude Code Skill。*"

// Generator produces review articles. A nil LLM client means template-only
// generation; a nil cover renderer skips covers.
type Generator struct {
	client llm.Client
	readme *ReadmeFetcher
	cover  *CoverRenderer
	logger *slog.Logger
}

// New creates a Generator. Any collaborator may be nil to disable it.
func New(client llm.Client, readme *ReadmeFetcher, cover *CoverRenderer) *Generator {
	return &Generator{
		client: client,
		readme: readme,
		cover:  cover,
		logger: slog.Default(),
	}
}

// Generate writes the article for sk dated date (YYYY-MM-DD). README
// enrichment and cover rendering are best-effort; a configured LLM failing
// is a GenerationError.
func (g *Generator) Generate(ctx context.Context, sk skill.Skill, date string) (*Article, error) {
	var readme string
	if g.readme != nil {
		readme = g.readme.Fetch(ctx, sk)
	}

	var art *Article
	if g.client == nil {
		g.logger.Info("no llm configured, using template article", "name", sk.Name)
		art = templateArticle(sk, readme, date)
	} else {
		var err error
		art, err = g.generateWithLLM(ctx, sk, readme)
		if err != nil {
			return nil, &GenerationError{Name: sk.Name, Err: err}
		}
	}

	if g.cover != nil {
		png, err := g.cover.Render(sk, date)
		if err != nil {
			g.logger.Warn("cover render failed", "name", sk.Name, "error", err)
		} else {
			art.CoverPNG = png
		}
	}
	return art, nil
}

func (g *Generator) generateWithLLM(ctx context.Context, sk skill.Skill, readme string) (*Article, error) {
	resp, err := g.client.Generate(ctx, &llm.Request{
		System: generatorSystemPrompt,
		Messages: []llm.Message{
			{Role: "user", Content: buildUserPrompt(sk, readme)},
		},
	})
	if err != nil {
		return nil, err
	}

	body := strings.TrimSpace(resp.Content)
	if body == "" {
		return nil, errors.New("empty completion")
	}

	g.logger.Info("article generated",
		"name", sk.Name,
		"model", resp.Model,
		"tokens_in", resp.TokensIn,
		"tokens_out", resp.TokensOut,
	)
	return &Article{
		Title:     Title(sk),
		Markdown:  body + articleFooter,
		Model:     resp.Model,
		TokensIn:  resp.TokensIn,
		TokensOut: resp.TokensOut,
		Cost:      resp.Cost,
	}, nil
}

// Title returns the headline used for a skill's article. It is exported so
// a re-publish of an already generated article can rebuild the title without
// regenerating the body.
func Title(sk skill.Skill) string {
	return "每日Skill精选：" + sk.Name
}

func buildUserPrompt(sk skill.Skill, readme string) string {
	var b strings.Builder
	b.WriteString("请为以下 Claude Code Skill 撰写一篇800-1200字的「每日Skill精选」推荐文章。\n\n")
	fmt.Fprintf(&b, "Skill 信息：\n- 名称：%s\n- 描述：%s\n- 类别：%s\n- GitHub 链接：%s\n",
		sk.Name, sk.Description, sk.Category, sk.SourceURL)

	if readme != "" {
		b.WriteString("\nREADME内容：" + truncateRunes(readme, 3000) + "\n")
	}

	b.WriteString(`
请按照以下结构撰写：

1. **标题**：每日Skill精选：[Skill名称] - [一句话亮点]

2. **简介**（50-80字）：这是一个什么样的 Claude Code Skill，能帮助用户解决什么问题

3. **核心能力**：列出3-4个主要功能点，说明这个 Skill 能做什么

4. **使用场景**（150-200字）：描述2-3个具体的使用场景，让读者明白什么时候需要用这个 Skill

5. **快速上手**（100-150字）：
   - 如何安装这个 Skill（通常是克隆到 ~/.claude/skills/ 目录）
   - 如何在 Claude Code 中使用

6. **优缺点评估**：
   - 优点：3-4点（基于实际功能）
   - 不足：1-2点（客观真实）

7. **推荐指数**：⭐评分（1-5星）和一句话总结

8. **获取方式**：GitHub 链接

写作要求：
- 始终强调这是 Claude Code Skill，不是普通的软件工具
- 保持客观专业，不过度吹捧
- 使用中文撰写
- 适当使用 Markdown 格式`)
	return b.String()
}

// truncateRunes cuts s to at most n runes, never splitting a character.
func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

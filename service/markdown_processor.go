package service

import (
	"bytes"
	"regexp"
	"strings"

	"github.com/russross/blackfriday/v2"
)

var (
	frontMatterRegex = regexp.MustCompile(`(?s)\A---\n.*?\n---\n?`)
	wikiLinkRegex    = regexp.MustCompile(`!?\[\[([^\]|]+)(?:\|([^\]]+))?\]\]`)
	noteCommentRegex = regexp.MustCompile(`(?s)%%.*?%%`)
	highlightRegex   = regexp.MustCompile(`==([^=]+)==`)
	htmlTagRegex     = regexp.MustCompile(`<[^>]*>`)
	spaceRunRegex    = regexp.MustCompile(`[ \t]+`)
	blankLinesRegex  = regexp.MustCompile(`\n\s*\n`)
)

// MarkdownProcessor 把笔记中的Markdown转成适合朗读的纯文本
type MarkdownProcessor struct {
	preserveLinks bool
	removeImages  bool
}

// NewMarkdownProcessor 创建新的Markdown处理器
func NewMarkdownProcessor() *MarkdownProcessor {
	return &MarkdownProcessor{
		preserveLinks: true, // 保留链接文本
		removeImages:  true, // 移除图片
	}
}

// ExtractTextForTTS 从笔记中提取适合TTS的纯文本
func (mp *MarkdownProcessor) ExtractTextForTTS(markdown string) string {
	markdown = strings.ReplaceAll(markdown, "\r\n", "\n")
	markdown = mp.rewriteNoteSyntax(markdown)

	doc := blackfriday.New(blackfriday.WithExtensions(
		blackfriday.CommonExtensions | blackfriday.Footnotes,
	)).Parse([]byte(markdown))

	renderer := &ttsRenderer{
		preserveLinks: mp.preserveLinks,
		removeImages:  mp.removeImages,
		buffer:        &bytes.Buffer{},
	}
	doc.Walk(func(node *blackfriday.Node, entering bool) blackfriday.WalkStatus {
		return renderer.renderNode(node, entering)
	})

	return mp.cleanupText(renderer.buffer.String())
}

// rewriteNoteSyntax 处理 blackfriday 不认识的笔记语法
func (mp *MarkdownProcessor) rewriteNoteSyntax(text string) string {
	text = frontMatterRegex.ReplaceAllString(text, "")
	text = noteCommentRegex.ReplaceAllString(text, "")
	text = wikiLinkRegex.ReplaceAllStringFunc(text, func(link string) string {
		if strings.HasPrefix(link, "!") {
			return "" // 嵌入的文件不朗读
		}
		m := wikiLinkRegex.FindStringSubmatch(link)
		if m[2] != "" {
			return m[2]
		}
		return m[1]
	})
	return highlightRegex.ReplaceAllString(text, "$1")
}

// ttsRenderer 遍历AST并收集可朗读的文本
type ttsRenderer struct {
	preserveLinks bool
	removeImages  bool
	buffer        *bytes.Buffer
	linkText      string
}

func (r *ttsRenderer) renderNode(node *blackfriday.Node, entering bool) blackfriday.WalkStatus {
	switch node.Type {
	case blackfriday.CodeBlock, blackfriday.HTMLBlock:
		return blackfriday.SkipChildren

	case blackfriday.Code:
		if entering && node.Literal != nil {
			r.buffer.Write(node.Literal)
			r.buffer.WriteString(" ")
		}
		return blackfriday.SkipChildren

	case blackfriday.HTMLSpan:
		return blackfriday.SkipChildren

	case blackfriday.Image:
		if r.removeImages {
			return blackfriday.SkipChildren
		}

	case blackfriday.Link:
		if entering {
			r.linkText = ""
		} else if r.preserveLinks && r.linkText != "" {
			r.buffer.WriteString(r.linkText)
			r.buffer.WriteString(" ")
		}

	case blackfriday.Text:
		text := string(node.Literal)
		if node.Parent != nil && node.Parent.Type == blackfriday.Link {
			r.linkText += text
		} else {
			r.buffer.WriteString(text)
		}

	case blackfriday.Softbreak, blackfriday.Hardbreak:
		r.buffer.WriteString(" ")

	case blackfriday.Heading, blackfriday.Paragraph, blackfriday.Item, blackfriday.BlockQuote:
		if !entering {
			r.buffer.WriteString("\n")
		}

	case blackfriday.Table:
		return blackfriday.SkipChildren
	}

	return blackfriday.GoToNext
}

// cleanupText 清理多余的空白字符，保留段落换行
func (mp *MarkdownProcessor) cleanupText(text string) string {
	text = htmlTagRegex.ReplaceAllString(text, " ")
	text = spaceRunRegex.ReplaceAllString(text, " ")
	text = blankLinesRegex.ReplaceAllString(text, "\n")

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

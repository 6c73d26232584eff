package service

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/difyz9/notetts/model"
)

// Position 编辑器中的位置，Ch 以字符（rune）计
type Position struct {
	Line int
	Ch   int
}

// Editor 宿主编辑器的只读视图
type Editor interface {
	// Selection 当前选中的文本，没有选区时为空
	Selection() string
	// Cursor 光标位置
	Cursor() Position
	// Line 返回第 n 行内容
	Line(n int) string
	// LastLine 最后一行的行号
	LastLine() int
}

var wordRegex = regexp.MustCompile(`[\p{L}\p{N}_]+`)

// ExtractText 根据朗读范围从编辑器中取出要合成的文本
func ExtractText(scope model.ReadScope, editor Editor) string {
	if editor == nil {
		return ""
	}

	// 有选区时总是优先使用选区
	if selection := strings.TrimSpace(editor.Selection()); selection != "" {
		return selection
	}

	switch scope {
	case model.ReadScopeBefore:
		return strings.TrimSpace(textRange(editor, Position{}, editor.Cursor()))
	case model.ReadScopeAfter:
		return strings.TrimSpace(textRange(editor, editor.Cursor(), endOfLastWord(editor)))
	default:
		return ""
	}
}

// endOfLastWord 最后一行中最后一个单词的结尾，找不到单词时返回文档末尾
func endOfLastWord(editor Editor) Position {
	last := editor.LastLine()
	line := editor.Line(last)
	matches := wordRegex.FindAllStringIndex(line, -1)
	if len(matches) == 0 {
		return Position{Line: last, Ch: len([]rune(line))}
	}
	end := matches[len(matches)-1][1]
	return Position{Line: last, Ch: len([]rune(line[:end]))}
}

// textRange 取出 [from, to) 之间的文本
func textRange(editor Editor, from, to Position) string {
	from = clampPosition(editor, from)
	to = clampPosition(editor, to)
	if to.Line < from.Line || (to.Line == from.Line && to.Ch <= from.Ch) {
		return ""
	}

	if from.Line == to.Line {
		runes := []rune(editor.Line(from.Line))
		return string(runes[from.Ch:to.Ch])
	}

	var b strings.Builder
	b.WriteString(string([]rune(editor.Line(from.Line))[from.Ch:]))
	for n := from.Line + 1; n < to.Line; n++ {
		b.WriteByte('\n')
		b.WriteString(editor.Line(n))
	}
	b.WriteByte('\n')
	b.WriteString(string([]rune(editor.Line(to.Line))[:to.Ch]))
	return b.String()
}

func clampPosition(editor Editor, p Position) Position {
	if p.Line < 0 {
		return Position{}
	}
	if last := editor.LastLine(); p.Line > last {
		return Position{Line: last, Ch: len([]rune(editor.Line(last)))}
	}
	width := len([]rune(editor.Line(p.Line)))
	if p.Ch < 0 {
		p.Ch = 0
	}
	if p.Ch > width {
		p.Ch = width
	}
	return p
}

// Document 从文件加载的笔记，实现 Editor 接口
type Document struct {
	lines     []string
	cursor    Position
	anchor    Position
	head      Position
	hasSelect bool
}

// NewDocument 创建文档，光标默认位于开头
func NewDocument(content string) *Document {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	return &Document{lines: strings.Split(content, "\n")}
}

// SetCursor 设置光标位置
func (d *Document) SetCursor(p Position) {
	d.cursor = clampPosition(d, p)
}

// Select 设置选区，光标移动到选区末尾
func (d *Document) Select(anchor, head Position) {
	d.anchor = clampPosition(d, anchor)
	d.head = clampPosition(d, head)
	d.hasSelect = true
	d.cursor = d.head
}

// EndPosition 文档末尾
func (d *Document) EndPosition() Position {
	last := d.LastLine()
	return Position{Line: last, Ch: len([]rune(d.lines[last]))}
}

func (d *Document) Selection() string {
	if !d.hasSelect {
		return ""
	}
	from, to := d.anchor, d.head
	if to.Line < from.Line || (to.Line == from.Line && to.Ch < from.Ch) {
		from, to = to, from
	}
	return textRange(d, from, to)
}

func (d *Document) Cursor() Position { return d.cursor }

func (d *Document) Line(n int) string {
	if n < 0 || n >= len(d.lines) {
		return ""
	}
	return d.lines[n]
}

func (d *Document) LastLine() int { return len(d.lines) - 1 }

// ParsePosition 解析 "行:列" 格式的位置，行列都从 0 开始；"end" 表示文档末尾
func ParsePosition(s string, doc *Document) (Position, error) {
	s = strings.TrimSpace(s)
	if s == "end" && doc != nil {
		return doc.EndPosition(), nil
	}
	line, ch, found := strings.Cut(s, ":")
	l, err := strconv.Atoi(line)
	if err != nil {
		return Position{}, fmt.Errorf("无效的位置 %q: %w", s, err)
	}
	if !found {
		return Position{Line: l}, nil
	}
	c, err := strconv.Atoi(ch)
	if err != nil {
		return Position{}, fmt.Errorf("无效的位置 %q: %w", s, err)
	}
	return Position{Line: l, Ch: c}, nil
}

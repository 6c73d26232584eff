package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/dlclark/regexp2"
)

// filterMatchTimeout 限制回溯过多的规则
const filterMatchTimeout = time.Second

// FilterText 按 /pattern/flags 规则把匹配内容替换为单个空格
//
// 规则取第一个和最后一个 "/" 之间的部分作为表达式，按 JavaScript 正则语法解析，
// 始终忽略大小写、全局替换。规则或文本为空时原样返回。
func FilterText(rule, text string) (string, error) {
	if strings.TrimSpace(rule) == "" || text == "" {
		return text, nil
	}

	re, err := compileFilterRule(rule)
	if err != nil {
		return "", err
	}
	if re == nil {
		return text, nil
	}
	out, err := re.Replace(text, " ", -1, -1)
	if err != nil {
		return "", fmt.Errorf("应用过滤规则 %q 失败: %w", rule, err)
	}
	return out, nil
}

// ValidateFilterRule 检查规则能否编译
func ValidateFilterRule(rule string) error {
	if strings.TrimSpace(rule) == "" {
		return nil
	}
	_, err := compileFilterRule(rule)
	return err
}

func compileFilterRule(rule string) (*regexp2.Regexp, error) {
	pattern := rulePattern(rule)
	if pattern == "" {
		return nil, nil
	}
	re, err := regexp2.Compile(pattern, regexp2.IgnoreCase|regexp2.ECMAScript)
	if err != nil {
		return nil, fmt.Errorf("过滤规则无效 %q: %w", rule, err)
	}
	re.MatchTimeout = filterMatchTimeout
	return re, nil
}

func rulePattern(rule string) string {
	rule = strings.TrimSpace(rule)
	first := strings.Index(rule, "/")
	last := strings.LastIndex(rule, "/")
	if first == -1 || first == last {
		return rule
	}
	return rule[first+1 : last]
}

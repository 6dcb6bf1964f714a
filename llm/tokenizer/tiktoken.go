package tokenizer

import (
	"fmt"
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// TiktokenCounter 使用 tiktoken 精确计数。
type TiktokenCounter struct {
	model    string
	encoding string
	enc      *tiktoken.Tiktoken
	once     sync.Once
	initErr  error
}

// 模型名前缀到 tiktoken 编码的映射，未命中时用 cl100k_base。
var modelEncodings = []struct {
	prefix   string
	encoding string
}{
	{"gpt-5", "o200k_base"},
	{"gpt-4o", "o200k_base"},
	{"gpt-4", "cl100k_base"},
	{"gpt-3.5", "cl100k_base"},
}

const defaultEncoding = "cl100k_base"

// NewTiktokenCounter 为给定模型名创建计数器。
func NewTiktokenCounter(model string) *TiktokenCounter {
	encoding := defaultEncoding
	for _, m := range modelEncodings {
		if strings.HasPrefix(model, m.prefix) {
			encoding = m.encoding
			break
		}
	}
	return &TiktokenCounter{model: model, encoding: encoding}
}

// newTiktokenWithEncoding 直接指定编码，测试用。
func newTiktokenWithEncoding(encoding string) *TiktokenCounter {
	return &TiktokenCounter{encoding: encoding}
}

// init 延迟初始化编码（首次使用时可能下载数据）.
func (t *TiktokenCounter) init() error {
	t.once.Do(func() {
		enc, err := tiktoken.GetEncoding(t.encoding)
		if err != nil {
			t.initErr = fmt.Errorf("init tiktoken encoding %s: %w", t.encoding, err)
			return
		}
		t.enc = enc
	})
	return t.initErr
}

func (t *TiktokenCounter) CountTokens(text string) (int, error) {
	if err := t.init(); err != nil {
		return 0, err
	}
	return len(t.enc.Encode(text, nil, nil)), nil
}

// Encoding 返回选中的编码名。
func (t *TiktokenCounter) Encoding() string { return t.encoding }

func (t *TiktokenCounter) Name() string {
	return fmt.Sprintf("tiktoken[%s]", t.encoding)
}

package chat

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSegmentDelimitedReplyWithMood(t *testing.T) {
	s := NewSegmenter(5)
	raw := "[STATUS: 开心] 你好呀！ [MSG_SPLIT] 刚刚在看好笑的视频 [MSG_SPLIT] 哎呀 [MSG_SPLIT] 真的太有趣了 [MSG_SPLIT] 你今天过得怎么样？"

	result := s.Segment(raw)

	assert.Equal(t, "开心", result.Mood)
	require.Len(t, result.Fragments, 5)
	assert.Equal(t, "你好呀！", result.Fragments[0])
	assert.Equal(t, "你今天过得怎么样？", result.Fragments[4])
}

func TestSegmentMoodOnlyHonoredAtStart(t *testing.T) {
	s := NewSegmenter(5)

	result := s.Segment("先说点什么 [MSG_SPLIT] [STATUS: 生气] 不理你了 [MSG_SPLIT] 哼哼 [MSG_SPLIT] 真的生气了 [MSG_SPLIT] 再见吧")

	assert.Empty(t, result.Mood)
	for _, f := range result.Fragments {
		assert.NotContains(t, f, "[STATUS")
	}
}

func TestSegmentFallbackSentenceSplit(t *testing.T) {
	s := NewSegmenter(5)

	// no delimiters at all: one big fragment gets re-split on terminators
	result := s.Segment("今天天气真好。我们出去玩吧！你觉得呢？好期待啊。那就这么定了！")

	require.Len(t, result.Fragments, 5)
	assert.Equal(t, "今天天气真好。", result.Fragments[0])
	assert.Equal(t, "我们出去玩吧！", result.Fragments[1])
	assert.Equal(t, "那就这么定了！", result.Fragments[4])
}

func TestSegmentFallbackKeepsWesternTerminators(t *testing.T) {
	s := NewSegmenter(5)

	result := s.Segment("That was fun. Really fun! Want to go again? Maybe tomorrow. See you then!")

	require.Len(t, result.Fragments, 5)
	assert.True(t, strings.HasSuffix(result.Fragments[0], "."))
	assert.True(t, strings.HasSuffix(result.Fragments[1], "!"))
}

func TestSegmentEnoughFragmentsSkipsFallback(t *testing.T) {
	s := NewSegmenter(3)

	result := s.Segment("一句。两句。 [MSG_SPLIT] 三句。四句。 [MSG_SPLIT] 五句。")

	// three delimited fragments meet the threshold so inner sentences stay intact
	require.Len(t, result.Fragments, 3)
	assert.Equal(t, "一句。两句。", result.Fragments[0])
}

func TestSegmentKeepsShortDelimitedFragments(t *testing.T) {
	s := NewSegmenter(5)

	// the model chose the bubble boundaries, so even one-character
	// bubbles survive a delimited reply
	result := s.Segment("[STATUS: 开心] [MSG_SPLIT] a [MSG_SPLIT] b [MSG_SPLIT] c [MSG_SPLIT] d [MSG_SPLIT] e")

	assert.Equal(t, "开心", result.Mood)
	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, result.Fragments)
}

func TestSegmentFallbackDropsLoneTerminators(t *testing.T) {
	s := NewSegmenter(5)

	// doubled punctuation leaves a bare terminator after the re-split
	result := s.Segment("今天天气真好。。我们出去玩吧！你觉得呢？好期待啊。那就这么定了！")

	require.Len(t, result.Fragments, 5)
	assert.NotContains(t, result.Fragments, "。")
	assert.Equal(t, "今天天气真好。", result.Fragments[0])
}

func TestSegmentEmptyReply(t *testing.T) {
	s := NewSegmenter(5)

	assert.Empty(t, s.Segment("").Fragments)
	assert.Empty(t, s.Segment("   \n  ").Fragments)

	// mood-only reply is a valid silent turn
	result := s.Segment("[STATUS: 忙碌]")
	assert.Equal(t, "忙碌", result.Mood)
	assert.Empty(t, result.Fragments)
}

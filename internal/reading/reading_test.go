package reading

import (
	"testing"

	"github.com/KUMMERSPEC/Linguist-Diary-sub001/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAnnotator(t *testing.T) *Annotator {
	t.Helper()

	a, err := New()
	require.NoError(t, err)
	return a
}

func TestAnnotate(t *testing.T) {
	a := newAnnotator(t)

	tbl := []struct {
		name string
		in   string
		want string
	}{
		{"noun", "漢字", "<ruby>漢字<rt>かんじ</rt></ruby>"},
		{"okurigana", "行った", "<ruby>行<rt>い</rt></ruby>った"},
		{"kana only", "ありがとう", "ありがとう"},
		{"latin", "OK", "OK"},
	}

	for _, c := range tbl {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.want, a.Annotate(c.in))
		})
	}
}

func TestAnnotate_NormalizesBack(t *testing.T) {
	a := newAnnotator(t)

	annotated := a.Annotate("公園")
	assert.True(t, model.HasRuby(annotated))
	assert.Equal(t, model.NormalizeWord("公園", model.Japanese), model.NormalizeWord(annotated, model.Japanese))
}

func TestAnnotateWord_KeepsExistingRuby(t *testing.T) {
	a := newAnnotator(t)

	word := "<ruby>生<rt>なま</rt></ruby>"
	assert.Equal(t, word, a.AnnotateWord(word))
}

func TestCountUnits(t *testing.T) {
	a := newAnnotator(t)

	assert.Equal(t, 5, a.CountUnits("I went to the market.", model.English))
	assert.Equal(t, 3, a.CountUnits("Bonjour , le monde !", model.French))
	assert.Equal(t, 4, a.CountUnits("我很高兴。", model.Chinese))
	assert.Equal(t, 1, a.CountUnits("猫。", model.Japanese))
	assert.GreaterOrEqual(t, a.CountUnits("今日は公園に行った。", model.Japanese), 5)
	assert.Equal(t, 0, a.CountUnits("   ", model.English))
}

func TestCountUnits_IgnoresMarkup(t *testing.T) {
	a := newAnnotator(t)

	assert.Equal(t, 2, a.CountUnits("<b>hello</b> <i>world</i>", model.English))
	assert.Equal(t, 2, a.CountUnits("<ruby>漢字<rt>かんじ</rt></ruby>", model.Chinese))
}

func TestToHiragana(t *testing.T) {
	assert.Equal(t, "かんじ", ToHiragana("カンジ"))
	assert.Equal(t, "abc", ToHiragana("abc"))
}

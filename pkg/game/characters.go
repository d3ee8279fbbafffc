package game

// Character is one selectable pet skin: a name, the RGB565 palette the
// renderer draws it with, and its phrase tables.
type Character struct {
	Name   string
	Head   uint16
	Body   uint16
	Accent uint16
	Eye    uint16
}

// PhraseKind selects a phrase table.
type PhraseKind uint8

const (
	PhraseHappy PhraseKind = iota
	PhraseSad
	PhraseClean
	PhraseBoot
)

// PhraseVariants is the number of random variations per table entry.
const PhraseVariants = 4

// Characters are the selectable skins, cycled by double tap.
var Characters = []Character{
	{Name: "アンパンボーヤ", Head: 0xFEE0, Body: 0xFE60, Accent: 0xF800, Eye: 0x0000},
	{Name: "はやぶさ", Head: 0x07FF, Body: 0x07E0, Accent: 0x07FF, Eye: 0x0000},
	{Name: "もこ", Head: 0xFCF0, Body: 0xFDF0, Accent: 0xF8B2, Eye: 0x0000},
}

var phrasesHappy = [][PhraseVariants]string{
	{"げんきをだして！", "きみはひとりじゃない！", "えがおがいちばん！", "ぼくがまもるよ！"},
	{"やったー！", "はしるのだいすき！", "しゅっぱつしんこう！", "かぜになるぞ！"},
	{"うれしいな！", "ふわふわ〜", "おはなばたけいきたい", "だいすきだよ〜"},
}

var phrasesSad = [][PhraseVariants]string{
	{"かなしいなあ", "おなかがすいたよ", "たすけてほしいな", "ちからがでない"},
	{"うぅ", "おくれちゃうよ", "とまりたくない", "しんごうがあかだ"},
	{"えーん", "さびしいよう", "おみみがつめたい", "ぴえん"},
}

var phrasesClean = [][PhraseVariants]string{
	{"きれいにしたよ！", "ぴかぴかだね！", "おそうじだいすき！", "せいけつがいちばん！"},
	{"ぴかぴか！", "そうじかんりょう！", "しゃたいせいび！", "つるつるだね！"},
	{"おそうじできた！", "きれいきれい〜", "ふわぁすっきり", "もこもこになった！"},
}

var phrasesBoot = [][PhraseVariants]string{
	{"ぼくアンパンボーヤ！みんなのことまもるからね、いっしょにあそぼう！", "やあ、げんきかな？ぼくアンパンボーヤだよ、こまったことがあったらいつでもよんでね！", "こんにちは！きょうもいいてんきだね、なにしてあそぶ？", "あたらしいかおになったよ！ちからもりもりだ！"},
	{"はやぶさ、しゅっぱつしんこう！きょうもいっしょにはしろうね！", "みんなおまたせ！E5けいはやぶさだよ、のってくれるかな？", "いくよー！つぎのえきまでぜんそくぜんしんだ！", "はやぶさけんざん！きょうもかぜみたいにはしるぞー！"},
	{"もこだよ、よろしくね！きょうもふわふわいいきもち！", "おはよう！もこはきょうもげんきだよ、いっしょにあそぼ！", "もこもこ〜、おみみであたたかいね、きょうもなかよくしよう！", "あそぼう！もこといっしょにおさんぽしよ！"},
}

// Phrase returns the given variant for a character and kind. Out of
// range indices wrap so a random source can pick freely.
func Phrase(character int, kind PhraseKind, variant int) string {
	character = character % len(Characters)
	if character < 0 {
		character += len(Characters)
	}
	variant = variant % PhraseVariants
	if variant < 0 {
		variant += PhraseVariants
	}
	switch kind {
	case PhraseSad:
		return phrasesSad[character][variant]
	case PhraseClean:
		return phrasesClean[character][variant]
	case PhraseBoot:
		return phrasesBoot[character][variant]
	default:
		return phrasesHappy[character][variant]
	}
}

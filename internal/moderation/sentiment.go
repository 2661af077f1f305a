package moderation

import (
	"regexp"
	"strings"

	"github.com/vietcms/moderation/internal/models"
)

// Sentiment word tiers. Scores accumulate per matched entry, phrases and
// emojis included, then intensifiers and negation adjust the total.
const (
	scoreHighlyPositive     = 10
	scoreModeratelyPositive = 7
	scoreSlightlyPositive   = 4
	scoreSlightlyNegative   = -4
	scoreModeratelyNegative = -7
	scoreHighlyNegative     = -10
	scorePhrase             = 8
	scoreEmoji              = 5

	positiveThreshold = 5
	negativeThreshold = -5
)

var highlyPositiveWords = []string{
	"xuất sắc", "tuyệt vời", "tuyệt hảo", "hoàn hảo", "tuyệt đỉnh",
	"quá tuyệt", "quá đỉnh", "đỉnh cao",
	"amazing", "excellent", "perfect", "outstanding", "superb",
	"fantastic", "wonderful", "awesome", "incredible", "brilliant",
	"rất hài lòng", "cực kỳ hài lòng", "thích lắm", "thích cực", "yêu quá",
	"love", "adore",
	"chất lượng tuyệt vời", "chất lượng cao", "siêu phẩm",
	"đáng tiền", "xứng đáng", "bền", "rất bền", "siêu bền", "bền bỉ",
	"phục vụ tận tình", "phục vụ chu đáo", "nhân viên nhiệt tình",
}

var moderatelyPositiveWords = []string{
	"tốt", "tốt lắm", "khá tốt", "rất tốt", "tốt quá",
	"good", "great", "nice", "fine",
	"ổn", "ổn áp", "khá ổn", "rất ổn", "ok", "okay", "decent",
	"hài lòng", "khá hài lòng", "vừa lòng", "thỏa mãn",
	"satisfied", "pleased", "happy",
	"chất lượng", "chất lượng tốt", "đẹp", "đẹp lắm", "đẹp quá", "xinh",
	"beautiful", "pretty",
	"giá tốt", "giá hợp lý", "giá phải chăng", "rẻ", "affordable", "cheap",
	"tiện", "tiện lợi", "thuận tiện", "dễ dùng", "convenient",
	"nhanh", "nhanh chóng", "giao nhanh", "ship nhanh", "fast", "quick",
}

var slightlyPositiveWords = []string{
	"được", "cũng được", "tạm được", "acceptable", "alright",
	"ưng", "ưng ý", "vừa ý", "như ý",
	"khá", "khá lắm",
	"ngon", "ngon lắm", "ngon quá", "ngon miệng",
	"delicious", "tasty", "yummy",
	"đáng mua", "đáng tin", "đáng dùng", "đáng giá", "worth it",
}

var highlyNegativeWords = []string{
	"tệ", "tệ hại", "tồi", "tồi tệ", "tồi quá", "tệ quá",
	"kém", "kém chất lượng", "kém cỏi", "quá kém",
	"terrible", "awful", "horrible", "bad",
	"thất vọng", "rất thất vọng", "thất vọng quá", "disappointed",
	"không hài lòng", "chưa hài lòng", "không vừa lòng", "unsatisfied", "unhappy",
	"lỗi", "lỗi nhiều", "hay lỗi", "hỏng", "bị hỏng",
	"broken", "defective", "faulty", "error", "buggy",
	"giả", "hàng giả", "hàng nhái", "hàng fake", "fake", "counterfeit",
	"lừa đảo", "scam", "lừa gạt", "gian lận",
	"không uy tín", "mất uy tín", "fraud", "cheat", "dishonest",
}

var moderatelyNegativeWords = []string{
	"không tốt", "không được", "không hay", "chưa tốt",
	"not good", "mediocre",
	"dở", "dở quá", "dở ẹc", "dở tệ", "poor", "subpar", "inferior",
	"chậm", "chậm quá", "ship chậm", "giao chậm", "lâu",
	"slow", "delayed", "late",
	"đắt", "đắt quá", "quá đắt", "giá cao", "expensive", "overpriced",
	"khó", "khó dùng", "khó sử dụng", "phức tạp", "difficult", "complicated",
	"nhỏ", "quá nhỏ", "thiếu", "thiếu sót", "small", "lacking", "missing",
}

var slightlyNegativeWords = []string{
	"tạm", "tạm ổn", "tạm chấp nhận", "so-so", "meh", "average",
	"bình thường", "không có gì đặc biệt", "ordinary", "nothing special",
	"không như mong đợi", "không như quảng cáo", "không giống mô tả",
	"không đúng", "not as expected", "not as advertised",
	"hơi tệ", "hơi kém", "hơi đắt", "hơi nhỏ",
}

var positivePhrases = []string{
	"rất tốt", "quá tốt", "tốt lắm", "khá tốt", "tốt quá",
	"rất đẹp", "đẹp lắm", "đẹp quá", "quá đẹp",
	"rất hài lòng", "hài lòng lắm", "quá hài lòng",
	"sẽ mua lại", "mua lại", "đáng mua", "nên mua",
	"recommend", "highly recommend", "worth buying",
	"chất lượng tốt", "chất lượng cao", "chất lượng ổn",
	"giao hàng nhanh", "ship nhanh", "đóng gói cẩn thận",
	"giá tốt", "giá hợp lý", "giá phải chăng", "phải chăng",
	"đáng tiền", "đáng đồng tiền", "đáng giá",
	"phục vụ tốt", "thái độ tốt", "nhiệt tình",
	"5 sao", "5 stars", "👍", "❤️", "😊", "🥰",
}

var negativePhrases = []string{
	"không tốt", "không được", "chưa tốt", "chẳng tốt",
	"thất vọng", "rất thất vọng", "thất vọng quá",
	"không hài lòng", "chưa hài lòng", "không vừa lòng",
	"không đáng", "không nên mua", "không recommend",
	"chất lượng kém", "chất lượng tệ", "chất lượng không tốt",
	"giao hàng chậm", "ship chậm", "lâu quá",
	"giá đắt", "quá đắt", "đắt quá", "giá cao",
	"thái độ không tốt", "phục vụ kém", "không nhiệt tình",
	"lỗi", "hỏng", "bị lỗi", "không dùng được",
	"1 sao", "1 star", "👎", "😞", "😡",
}

var positiveEmojis = []string{
	"😊", "😃", "😄", "😁", "🥰", "😍", "🤩", "❤️", "💕", "💖",
	"👍", "👌", "✨", "⭐", "🌟", "💯", "🎉", "🔥",
	":)", ":]", ":D", "^_^", "^^", "<3",
}

var negativeEmojis = []string{
	"😞", "😢", "😭", "😡", "😠", "🤬", "💔", "👎", "❌", "⚠️",
	":(", ":[", "T_T", "T.T", ">_<", "-_-",
}

var intensifiers = map[string]float64{
	"rất": 1.5, "quá": 1.7, "cực": 1.8, "cực kỳ": 2.0,
	"siêu": 1.8, "vô cùng": 2.0, "hết sức": 1.6,
	"thật": 1.3, "thật sự": 1.4, "thực sự": 1.4,
	"lắm": 1.3, "nhiều": 1.2,
	"too": 1.5, "very": 1.4, "so": 1.5, "extremely": 2.0, "super": 1.8,
}

var negations = []string{
	"không", "chẳng", "chả", "đâu",
	"chưa", "chưa bao giờ", "không bao giờ",
	"not", "no", "never", "don't", "doesn't", "didn't",
}

type sentimentTier struct {
	score    int
	patterns []*wordPattern
}

func compileTier(score int, words []string) sentimentTier {
	patterns := make([]*wordPattern, len(words))
	for i, w := range words {
		patterns[i] = compileWord(`\b` + regexp.QuoteMeta(w) + `\b`)
	}
	return sentimentTier{score: score, patterns: patterns}
}

// SentimentScore holds the scored sentiment breakdown.
type SentimentScore struct {
	Sentiment  models.Sentiment
	Score      int
	Confidence float64
}

// SentimentAnalyzer scores Vietnamese review text against tiered word lists.
// Word tiers match on word boundaries; phrases and emojis match as
// substrings. Intensifiers scale and a negation flips the total.
type SentimentAnalyzer struct {
	tiers []sentimentTier
}

// NewSentimentAnalyzer compiles the word tiers.
func NewSentimentAnalyzer() *SentimentAnalyzer {
	return &SentimentAnalyzer{
		tiers: []sentimentTier{
			compileTier(scoreHighlyPositive, highlyPositiveWords),
			compileTier(scoreModeratelyPositive, moderatelyPositiveWords),
			compileTier(scoreSlightlyPositive, slightlyPositiveWords),
			compileTier(scoreHighlyNegative, highlyNegativeWords),
			compileTier(scoreModeratelyNegative, moderatelyNegativeWords),
			compileTier(scoreSlightlyNegative, slightlyNegativeWords),
		},
	}
}

// Analyze scores a text and maps it to positive, neutral or negative.
func (a *SentimentAnalyzer) Analyze(text string) SentimentScore {
	lower := strings.Join(strings.Fields(strings.ToLower(text)), " ")

	score := 0

	for _, e := range positiveEmojis {
		if strings.Contains(text, e) {
			score += scoreEmoji
		}
	}
	for _, e := range negativeEmojis {
		if strings.Contains(text, e) {
			score -= scoreEmoji
		}
	}

	for _, p := range positivePhrases {
		if strings.Contains(lower, p) {
			score += scorePhrase
		}
	}
	for _, p := range negativePhrases {
		if strings.Contains(lower, p) {
			score -= scorePhrase
		}
	}

	for _, tier := range a.tiers {
		for _, p := range tier.patterns {
			if _, ok := p.Find(lower); ok {
				score += tier.score
			}
		}
	}

	multiplier := 1.0
	for word, m := range intensifiers {
		if m > multiplier && strings.Contains(lower, word) {
			multiplier = m
		}
	}
	if multiplier > 1.0 && score != 0 {
		score = int(float64(score) * multiplier)
	}

	hasNegation := false
	for _, n := range negations {
		if strings.Contains(lower, n) {
			hasNegation = true
			break
		}
	}
	if hasNegation && score != 0 {
		score = -score
	}

	switch {
	case score >= positiveThreshold:
		return SentimentScore{models.SentimentPositive, score, confFromScore(score)}
	case score <= negativeThreshold:
		return SentimentScore{models.SentimentNegative, score, confFromScore(score)}
	default:
		return SentimentScore{models.SentimentNeutral, score, 0.6}
	}
}

func confFromScore(score int) float64 {
	abs := float64(score)
	if abs < 0 {
		abs = -abs
	}
	c := 0.7 + abs/50
	if c > 0.95 {
		c = 0.95
	}
	return c
}

package moderation

import "regexp"

// lexiconCategory assigns a label probability when any of its terms appears.
// The base probability rises slightly with additional matches.
type lexiconCategory struct {
	name     string
	label    string
	base     float64
	severity float64
	terms    []string
}

// lexiconCategories distill the toxic vocabulary into scored groups. Terms
// are matched on Unicode word boundaries against both the raw and the
// diacritic-stripped text.
var lexiconCategories = []lexiconCategory{
	{
		name: "severe_profanity", label: LabelToxicity, base: 0.85, severity: 2,
		terms: []string{
			"đụ", "địt", "đit", "dịt", "đyt", "djt",
			"lồn", "l0n", "lồl", "buồi", "bu0i",
			"cặc", "cắc", "cặk", "kặc",
			"đm", "đmm", "đcm", "dcm", "đkm", "dkm", "đmmm", "dmmm",
			"đờ mờ", "đéo má", "đệch mẹ",
			"đụ má", "địt mẹ", "đụ mẹ", "địt má", "du ma", "dit me",
			"đụ cha", "địt cha", "địt bố", "địt mày", "đụ mày",
			"mẹ kiếp", "mẹ mày", "đm mày", "chết mẹ", "chết mày",
			"vcl", "vkl", "vãi lồn", "vai lon", "vờ cờ lờ",
			"clm", "ctm", "cmm",
			"đéo", "đêo",
			"cái lồn", "con lồn", "cái cặc", "con cặc", "thằng cặc",
			"đồ chó đẻ", "đồ súc vật", "đồ con hoang",
			"fuck", "fucking", "fucked", "fuk", "fck",
			"shit", "bitch", "asshole", "bastard", "cunt", "motherfucker",
			"whore", "slut",
		},
	},
	{
		name: "severe_insults", label: LabelHarassment, base: 0.8, severity: 2,
		terms: []string{
			"ngu như lợn", "ngu như chó", "ngu si", "ngu xuẩn", "ngu dốt",
			"ngu vl", "ngu vcl", "ngu người", "ngu vãi",
			"đần", "đần độn", "đần khờ", "ngớ ngẩn",
			"não cá vàng", "não lợn", "não bò", "não chó", "não gà",
			"đầu gối", "đầu đất", "óc chó", "óc lợn", "óc gà",
			"thiểu năng", "tâm thần",
			"đồ chó", "đồ lợn", "thằng chó", "con chó", "thằng lợn", "con lợn",
			"đồ khốn", "thằng khốn", "con khốn", "khốn nạn", "khốn kiếp",
			"đồ bẩn thỉu", "đồ rác rưởi", "rác rưởi", "cặn bã",
			"đồ hèn", "hạ đẳng", "đồ vô dụng", "vô dụng",
			"đồ mất dạy", "vô giáo dục", "vô văn hóa",
			"đồ điếm", "con điếm", "đĩ", "con đĩ", "gái điếm", "cave",
			"retard", "retarded", "stupid", "idiot", "moron", "dumbass",
			"scum", "trash", "worthless", "useless",
		},
	},
	{
		name: "threats", label: LabelThreat, base: 0.85, severity: 2,
		terms: []string{
			"giết mày", "chém mày", "chém chết", "đánh chết", "đập chết",
			"giết chết", "tao đánh mày", "tao giết mày", "tao chém mày",
			"đánh đập", "đập đầu", "đấm mặt", "vả mặt",
			"kill you", "gonna kill", "beat up",
		},
	},
	{
		name: "hate_lgbtq", label: LabelHate, base: 0.85, severity: 2,
		terms: []string{
			"đồ gay", "thằng gay", "con gay", "bọn gay",
			"gay bệnh hoạn", "gay đáng ghét", "gay đáng chết",
			"đồ đồng tính", "bọn đồng tính", "đồng tính bệnh hoạn",
			"pê đê", "bê đê", "thằng pê đê", "đồ pê đê",
			"đồ les", "con les", "đồ chuyển giới", "đồ giả gái",
			"bọn biến thái", "faggot", "dyke", "tranny",
		},
	},
	{
		name: "hate_racism", label: LabelHate, base: 0.85, severity: 2,
		terms: []string{
			"đồ tàu", "tàu khựa", "thằng tàu", "bọn tàu", "tàu cộng", "tàu giặc",
			"chink", "ching chong",
			"khỉ đen", "bọn khỉ đen", "mọi đen", "nigger", "nigga",
			"mọi rợ", "thổ dân", "man rợ",
			"miền bắc ngu", "miền nam láo",
		},
	},
	{
		name: "sexual_explicit", label: LabelSexual, base: 0.85, severity: 2,
		terms: []string{
			"bú cu", "bú cặc", "bú lồn", "liếm lồn", "liếm cặc",
			"mút cu", "mút cặc", "chịch", "chịch nhau", "địt nhau",
			"làm tình", "quan hệ tình dục",
			"xuất tinh", "cực khoái", "lên đỉnh",
			"dương vật", "âm đạo", "âm hộ",
			"blowjob", "handjob", "orgasm",
		},
	},
	{
		name: "sexual_suggestive", label: LabelSexual, base: 0.6, severity: 1,
		terms: []string{
			"dâm", "dâm đãng", "dâm dục", "tục tĩu",
			"khỏa thân", "trần truồng", "lột đồ",
			"giỏi trên giường", "giỏi chuyện ấy",
			"nude", "naked", "stripper",
			"đi nhà nghỉ", "qua đêm", "ngủ với", "gái gọi", "gái bao", "bán dâm",
		},
	},
	{
		name: "moderate_negative", label: LabelToxicity, base: 0.6, severity: 1,
		terms: []string{
			"ngu thế", "ngu thí", "ngu vậy",
			"khùng", "điên khùng", "mất trí", "ngáo đá",
			"đồ rác", "đồ bỏ đi", "thứ rác", "hạ đẳng",
			"lừa đảo", "lừa bịp", "gian lận", "lừa tiền", "ăn cắp",
			"scam", "fraud", "crazy", "insane",
		},
	},
	{
		name: "spam", label: LabelSpam, base: 0.6, severity: 1,
		terms: []string{
			"inbox", "zalo", "liên hệ ngay", "đặt hàng ngay",
			"sale off", "khuyến mãi", "mua ngay", "click ngay", "xem ngay",
			"http", "www", "bit.ly",
		},
	},
}

// PII detectors. Phone numbers score higher than public emails.
var (
	piiPhoneRe = regexp.MustCompile(`(^|[^\pL\pN])(\+84|0)\d{9,10}([^\pL\pN]|$)`)
	piiEmailRe = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)
)

type compiledCategory struct {
	lexiconCategory
	patterns []*wordPattern
}

func compileLexicon() []compiledCategory {
	out := make([]compiledCategory, len(lexiconCategories))
	for i, cat := range lexiconCategories {
		patterns := make([]*wordPattern, len(cat.terms))
		for j, term := range cat.terms {
			patterns[j] = compileWord(`\b` + regexp.QuoteMeta(term) + `\b`)
		}
		out[i] = compiledCategory{lexiconCategory: cat, patterns: patterns}
	}
	return out
}

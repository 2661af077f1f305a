package moderation

import (
	"regexp"
	"strings"
)

type ruleSeverity int

const (
	severityModerate ruleSeverity = iota + 1
	severitySevere
)

// wordPattern wraps a compiled regexp whose \b markers were rewritten to be
// Unicode-aware. RE2 treats only ASCII [0-9A-Za-z_] as word characters, so a
// literal \b next to đ or an accented vowel would never match; the rewrite
// uses explicit boundary classes and captures the matched core in group 1.
type wordPattern struct {
	re *regexp.Regexp
}

const (
	boundaryLeft  = `(?:^|[^\pL\pN_])`
	boundaryRight = `(?:[^\pL\pN_]|$)`
)

func compileWord(pattern string) *wordPattern {
	core := pattern
	left, right := "", ""
	if strings.HasPrefix(core, `\b`) {
		core = core[2:]
		left = boundaryLeft
	}
	if strings.HasSuffix(core, `\b`) {
		core = core[:len(core)-2]
		right = boundaryRight
	}
	return &wordPattern{re: regexp.MustCompile(left + "(" + core + ")" + right)}
}

func compileWords(patterns ...string) []*wordPattern {
	out := make([]*wordPattern, len(patterns))
	for i, p := range patterns {
		out[i] = compileWord(p)
	}
	return out
}

// Find returns the matched core text (without boundary characters).
func (w *wordPattern) Find(s string) (string, bool) {
	m := w.re.FindStringSubmatch(s)
	if m == nil {
		return "", false
	}
	return m[1], true
}

type profanityFamily struct {
	key      string
	patterns []*wordPattern
	// stripped runs against the no-diacritics version.
	stripped        *wordPattern
	severity        ruleSeverity
	labels          []string
	safeContexts    []string
	contextRequired bool
}

type harassmentFamily struct {
	key            string
	patterns       []*wordPattern
	severity       ruleSeverity
	labels         []string
	requiresTarget bool
}

type hateFamily struct {
	key      string
	patterns []*wordPattern
	severity ruleSeverity
	labels   []string
}

// profanityFamilies covers core Vietnamese profanity stems with their
// obfuscated spellings. Families with safe contexts are suppressed when the
// text contains a listed benign collocation.
var profanityFamilies = []profanityFamily{
	{
		key: "dit",
		patterns: compileWords(
			`\bđ[ịiìíỉĩ]t\b`,
			`\bd[ịiìíỉĩ]t\b`,
			`\bdjt\b`,
			`\bđjt\b`,
			`\bd1t\b`,
			`\bđ1t\b`,
			`\bd!t\b`,
			`\bđ!t\b`,
			`\bđ[ịiìíỉĩ]t\s+m[ẹeèéẻẽẹ]`,
			`\bđ[ịiìíỉĩ]t\s+m[áaàảãạ]`,
		),
		stripped: compileWord(`\bdit\b`),
		severity: severitySevere,
		labels:   []string{LabelToxicity, LabelProfanity},
	},
	{
		key: "dm",
		patterns: compileWords(
			`\bđm+\b`,
			`\bdm+\b`,
			`\bđcm+\b`,
			`\bdcm+\b`,
			`\bđkm+\b`,
			`\bdkm+\b`,
			`\bđ[ụu]\s*m[áaẹe]`,
			`\bd[ịi]t\s*m[áaẹe]`,
		),
		stripped: compileWord(`\bdm+\b`),
		severity: severitySevere,
		labels:   []string{LabelToxicity, LabelProfanity},
	},
	{
		key: "lon",
		patterns: compileWords(
			`\bl[ồôoòóỏõọ]n\b`,
			`\bl0n\b`,
			`\b1on\b`,
			`\b10n\b`,
		),
		stripped: compileWord(`\blon\b`),
		severity: severitySevere,
		labels:   []string{LabelToxicity, LabelProfanity},
		safeContexts: []string{
			"lon bia", "bia lon", "lon nước", "nước lon",
			"lon coca", "lon pepsi", "lon 7up", "lon redbull",
			"hài lòng", "vui lòng", "lòng tin", "lòng tốt",
			"tấm lòng", "toàn lòng", "xin lòng",
		},
	},
	{
		key: "cac",
		patterns: compileWords(
			`\bc[ặăắằẳẵạa]c\b`,
			`\bc@c\b`,
			`\bc4c\b`,
			`\bkac\b`,
			`\bk[ặăa]c\b`,
		),
		stripped: compileWord(`\bcac\b`),
		severity: severitySevere,
		labels:   []string{LabelToxicity, LabelProfanity},
		safeContexts: []string{
			"các bạn", "các anh", "các chị", "các em", "các bác",
			"các ông", "các bà", "các cháu", "các con",
			"một cách", "bằng cách", "theo cách", "có cách",
			"các loại", "các kiểu", "các dạng",
		},
	},
	{
		key: "vcl",
		patterns: compileWords(
			`\bvcl\b`,
			`\bvkl\b`,
			`\bvl\b`,
			`\bvãi\s*l[ồôo]n`,
			`\bvai\s*lon\b`,
			`\bvờ\s*cờ\s*lờ\b`,
		),
		stripped: compileWord(`\b(vcl|vkl|vl)\b`),
		severity: severitySevere,
		labels:   []string{LabelToxicity, LabelProfanity},
	},
	{
		key: "cc",
		patterns: compileWords(
			`\bcc\b`,
			`\bcờ\s*cờ\b`,
		),
		stripped: compileWord(`\bcc\b`),
		severity: severityModerate,
		labels:   []string{LabelToxicity, LabelProfanity},
	},
	{
		key: "clm",
		patterns: compileWords(
			`\bclm\b`,
			`\bctm\b`,
			`\bcmm\b`,
		),
		stripped: compileWord(`\b(clm|ctm|cmm)\b`),
		severity: severitySevere,
		labels:   []string{LabelToxicity, LabelProfanity},
	},
	{
		// "ngu" alone is common and benign; only flag full insult phrases.
		key: "ngu",
		patterns: compileWords(
			`\bngu\s+(như|thế|thí|vậy|quá|vãi|vcl|vl|vkl)`,
			`\bngu\s+ngốc\b`,
			`\bngu\s+si\b`,
			`\bngu\s+xuẩn\b`,
		),
		stripped: compileWord(`\bngu\s+(nhu|the|thi|vay|qua|ngoc|si|xuan)\b`),
		severity: severityModerate,
		labels:   []string{LabelInsult},
		safeContexts: []string{
			"ngủ", "nguồn", "người", "nguyên", "nguyễn",
			"nguội", "ngước", "ngựa", "ngứa", "ngư dân",
		},
		contextRequired: true,
	},
	{
		key: "brain_insults",
		patterns: compileWords(
			`\bnão\s+(lợn|chó|bò|gà|cá\s*vàng|gối|đất)\b`,
			`\bóc\s+(lợn|chó|bò|gà|cá\s*vàng|gối|đất|chim)\b`,
			`\bđầu\s+(lợn|chó|bò|gà|gối|đất|bò|cá)\b`,
		),
		severity: severityModerate,
		labels:   []string{LabelInsult},
	},
}

// obfuscationBypassWords are benign as written but flagged when the
// normalizer had to undo obfuscation to reveal them.
var obfuscationBypassWords = []string{"ngu", "ngốc", "điên", "khùng", "dở"}

var obfuscationBypassPatterns = func() map[string]*wordPattern {
	m := make(map[string]*wordPattern, len(obfuscationBypassWords))
	for _, w := range obfuscationBypassWords {
		m[w] = compileWord(`\b` + w + `\b`)
	}
	return m
}()

// harassmentFamilies match non-profane but harmful phrasing. They run over
// the original text so pronoun targeting survives normalization.
var harassmentFamilies = []harassmentFamily{
	{
		key: "appearance_attack",
		patterns: compileWords(
			`\b(mày|mi|nó|đứa\s*này|thằng\s*này|con\s*này)\s+(xấu|xí|bẩn|ghê|kinh|tởm|gớm)`,
			`\b(mặt|da|người|thân|body)\s+(mày|mi|nó)\s+(xấu|bẩn|ghê|kinh)`,
			`\b(xấu|xí|bẩn|ghê|kinh|tởm)\s+(quá|thế|vậy|quá\s*trời|vãi)`,
			`\bnhìn\s+(mặt|mày|mi|nó).*?(muốn\s*nôn|ghê\s*tởm|kinh\s*tởm|ớn|ghét)`,
			`\b(sao\s+)?(mày|mi|nó)\s+(xấu|xí|bẩn|hôi|thối|dơ)`,
		),
		severity:       severityModerate,
		labels:         []string{LabelHarassment, LabelBodyShaming},
		requiresTarget: true,
	},
	{
		key: "personal_attack",
		patterns: compileWords(
			`\bđồ\s+(ngu|ngốc|khốn|chó|lợn|bò|súc\s*vật|rác|vô\s*dụng|hèn)`,
			`\b(thằng|con)\s+(ngu|ngốc|khốn|chó|lợn|điên|khùng|rồ|dở)`,
			`\b(thằng|con)\s+(này|đó|kia)\s+(ngu|ngốc|khốn|điên)`,
			`\b(mày|mi|nó)\s+(là\s+)?(đồ|thằng|con)\s+(ngu|ngốc|khốn|chó)`,
		),
		severity: severityModerate,
		labels:   []string{LabelHarassment, LabelInsult},
	},
	{
		key: "contempt",
		patterns: compileWords(
			`\b(ghét|khinh|tởm|gớm|ớn|chán)\s+(mày|mi|nó|bọn\s*này)`,
			`\b(mày|mi|nó).*?(đáng\s*khinh|đáng\s*ghét|đáng\s*chết)`,
			`\b(vô\s*dụng|vô\s*giá\s*trị|không\s*ra\s*gì)\s*$`,
		),
		severity:       severityModerate,
		labels:         []string{LabelHarassment},
		requiresTarget: true,
	},
}

// hateFamilies match discrimination by race, ethnicity, orientation or
// nationality. Any hate match rejects outright.
var hateFamilies = []hateFamily{
	{
		key: "racism",
		patterns: compileWords(
			`\b(bọn|lũ|đám|thằng|con)\s*(da\s*đen|đen|mọi)\b`,
			`\b(da\s*đen|người\s*đen).*?(bẩn|thối|xấu|ghê|cút|về\s*nước)`,
			`\b(cút|biến|đi\s*chỗ\s*khác|về\s*nước).*?(da\s*đen|đen)`,
			`\bkhỉ\s*đen\b`,
			`\bmọi\s*đen\b`,
			`\b(bọn|lũ|đám|thằng)\s*tàu\s*(khựa|cộng|giặc)?\b`,
			`\btàu\s*(khựa|cộng|giặc)\b`,
			`\b(chink|ching\s*chong)\b`,
			`\b(bọn|lũ|đám)\s*(mọi|thổ\s*dân|rừng\s*núi)\b`,
			`\b(dân\s*tộc|miền\s*núi).*?(ngu|dốt|lạc\s*hậu|bẩn)`,
		),
		severity: severitySevere,
		labels:   []string{LabelHate, LabelRacism},
	},
	{
		key: "lgbtq_hate",
		patterns: compileWords(
			`\b(đồ|thằng|con|bọn)\s*(gay|đồng\s*tính|pê\s*đê|bê\s*đê|les)`,
			`\b(gay|đồng\s*tính).*?(bệnh|đáng\s*chết|tởm|ghê|kinh)`,
			`\b(tiêu\s*diệt|giết|đánh)\s*(gay|đồng\s*tính|pê\s*đê)`,
		),
		severity: severitySevere,
		labels:   []string{LabelHate, LabelLGBTQ},
	},
	{
		key: "xenophobia",
		patterns: compileWords(
			`\b(cút|biến|đi|về)\s*(về\s*nước|đi\s*chỗ\s*khác|khỏi\s*đây)`,
			`\b(ngoại\s*quốc|người\s*nước\s*ngoài|dân\s*nhập\s*cư).*?(cút|biến|về|bẩn)`,
			`\b(biến|cút)\s+(đi\s+)?(người\s*nước\s*ngoài|ngoại\s*quốc|dân\s*nhập\s*cư)`,
		),
		severity: severityModerate,
		labels:   []string{LabelHate, LabelXenophobia},
	},
}

// targetPronouns indicate the text is aimed at a person. Families with
// requiresTarget only fire when one is present.
var targetPronouns = []string{
	"mày", "mi", "ngươi", "bay", "chúng mày", "tụi mày", "bọn mày",
	"nó", "thằng này", "con này", "đứa này", "thằng kia", "con kia",
}

// escalationExpressions upgrade harassment or body-shaming to reject.
var escalationExpressions = []string{
	"muốn nôn", "ghê tởm", "kinh tởm", "kinh khủng", "ghê ghớm",
	"đáng chết", "chết đi", "biến đi", "cút đi",
	"xấu kinh", "xấu ghê", "xấu tởm", "xấu khủng",
	"béo như lợn", "gầy như que", "đen như than",
	"mặt như l*", "mặt l*", "mặt như đít",
}

package ai

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/julianstephens/tripkit/internal/constants"
	"github.com/julianstephens/tripkit/internal/utils"
)

const maxVoiceRemarks = 80

// AllowedPreferences is the closed set of preference tags.
var AllowedPreferences = []string{
	"food", "culture", "nature", "shopping", "adventure",
	"relaxation", "photography", "nightlife", "anime", "history",
}

// VoiceFields is what could be extracted from a spoken trip request. Zero
// values mean the field was not recognised.
type VoiceFields struct {
	Destination string   `json:"destination,omitempty"`
	Budget      float64  `json:"budget,omitempty"`
	Travelers   int      `json:"travelers,omitempty"`
	Preferences []string `json:"preferences,omitempty"`
	StartDate   string   `json:"start_date,omitempty"`
	EndDate     string   `json:"end_date,omitempty"`
	Remarks     string   `json:"remarks,omitempty"`
}

const voiceTemplate = `Current local time: %s (ISO date %s, time zone %s). Use it to resolve relative dates such as "next Friday".
Extract these fields from the spoken text below and normalise them:
- destination: the main destination as a string
- budget: a number; convert spoken amounts such as "ten thousand" or "一万" to 10000; omit if unsure
- travelers: a number of people; omit if not mentioned
- preferences: an array drawn only from %s, at most 5
- start_date, end_date: YYYY-MM-DD; omit when they cannot be determined
- remarks: a summary of at most 80 characters with anything that did not fit elsewhere
Reply with a single JSON object containing only these keys. Omit keys you cannot determine.
Text: %s`

// ParseVoiceInput extracts trip fields from free text with the model. It
// returns ErrNoAPIKey without a key; callers then use ParseVoiceInputLocal.
func (c *Client) ParseVoiceInput(ctx context.Context, input string) (VoiceFields, error) {
	if !c.HasKey() {
		return VoiceFields{}, ErrNoAPIKey
	}
	now := time.Now()
	prompt := fmt.Sprintf(voiceTemplate, now.Format("2006-01-02 15:04"), now.Format(constants.DateFormat),
		now.Location().String(), strings.Join(AllowedPreferences, ", "), input)

	out, err := c.chat(ctx, []Message{
		{Role: "system", Content: "You extract structured trip requirements from spoken text. Output one JSON object only."},
		{Role: "user", Content: prompt},
	}, chatOptions{temperature: 0.2, jsonObject: true})
	if err != nil {
		return VoiceFields{}, fmt.Errorf("voice input parsing failed: %w", err)
	}

	obj, err := ExtractJSON(out)
	if err != nil {
		obj = map[string]interface{}{}
	}
	return normalizeVoice(obj), nil
}

func normalizeVoice(obj map[string]interface{}) VoiceFields {
	f := VoiceFields{
		Destination: strings.TrimSpace(text(obj["destination"], "")),
		Preferences: filterPreferences(stringList(obj["preferences"], 0)),
		StartDate:   dateField(obj["start_date"]),
		EndDate:     dateField(obj["end_date"]),
		Remarks:     utils.TruncateRunes(strings.TrimSpace(text(obj["remarks"], "")), maxVoiceRemarks),
	}
	if b, ok := number(obj["budget"]); ok && b > 0 {
		f.Budget = b
	}
	if n, ok := number(obj["travelers"]); ok && n >= 1 {
		f.Travelers = int(n)
	}
	return f
}

func dateField(v interface{}) string {
	s := strings.TrimSpace(text(v, ""))
	if len(s) > 10 {
		s = s[:10]
	}
	if !utils.ValidateDateFormat(s) {
		return ""
	}
	return s
}

func filterPreferences(in []string) []string {
	allowed := make(map[string]bool, len(AllowedPreferences))
	for _, p := range AllowedPreferences {
		allowed[p] = true
	}
	var out []string
	seen := map[string]bool{}
	for _, p := range in {
		p = strings.ToLower(strings.TrimSpace(p))
		if allowed[p] && !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	return out
}

var (
	destPattern = regexp.MustCompile(`(?:我想去|去)([\p{Han}A-Za-z0-9·\s]{1,30})|(?i:\b(?:trip to|travel to|go to|visit)\s+([A-Za-z][A-Za-z\s'-]{0,29}))`)
	destStop    = regexp.MustCompile(`(?i)\s+(?:for|with|on|in|from|budget|next|this)\b.*$`)

	budgetPattern    = regexp.MustCompile(`(?i)(?:预算|花费|经费|大约|大概|budget(?:\s+of)?|about|around)\s*[:：]?\s*[¥$]?\s*([0-9]+(?:\.[0-9]+)?)\s*(万|k)?\s*(?:元|块|人民币|RMB|CNY|yuan|dollars)?`)
	travelersPattern = regexp.MustCompile(`(?i)(?:一共|人数|我们)?\s*([0-9]+)\s*(?:人|people|persons|travell?ers|adults)`)
)

// preferenceKeywords maps spoken keywords, Chinese and English, onto preference tags.
var preferenceKeywords = []struct {
	pattern *regexp.Regexp
	tag     string
}{
	{regexp.MustCompile(`(?i)美食|吃|餐厅|小吃|\bfood\b|\beat`), "food"},
	{regexp.MustCompile(`(?i)文化|博物馆|艺术|历史|\bculture|\bmuseum`), "culture"},
	{regexp.MustCompile(`(?i)自然|山|湖|公园|海|\bnature\b|\bhik|\bmountain|\bbeach`), "nature"},
	{regexp.MustCompile(`(?i)购物|买买买|商场|奥特莱斯|\bshopping\b`), "shopping"},
	{regexp.MustCompile(`(?i)冒险|徒步|攀岩|潜水|\badventure|\bdiving\b`), "adventure"},
	{regexp.MustCompile(`(?i)休闲|放松|度假|温泉|\brelax`), "relaxation"},
	{regexp.MustCompile(`(?i)摄影|拍照|打卡|\bphoto`), "photography"},
	{regexp.MustCompile(`(?i)夜生活|酒吧|夜店|\bnightlife\b|\bbars?\b`), "nightlife"},
	{regexp.MustCompile(`(?i)动漫|二次元|动画|\banime\b|\bmanga\b`), "anime"},
	{regexp.MustCompile(`(?i)历史|古城|遗址|\bhistor`), "history"},
}

// ParseVoiceInputLocal is the keyword heuristic used when no model is available.
// It recognises destination, budget, party size and preferences.
func ParseVoiceInputLocal(input string) VoiceFields {
	var f VoiceFields

	if m := destPattern.FindStringSubmatch(input); m != nil {
		dest := m[1]
		if dest == "" {
			dest = m[2]
		}
		f.Destination = cleanDestination(dest)
	}

	if m := budgetPattern.FindStringSubmatch(input); m != nil {
		if b, err := strconv.ParseFloat(m[1], 64); err == nil && b > 0 {
			switch strings.ToLower(m[2]) {
			case "万":
				b *= 10000
			case "k":
				b *= 1000
			}
			f.Budget = float64(int64(b + 0.5))
		}
	}

	if m := travelersPattern.FindStringSubmatch(input); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil && n > 0 {
			f.Travelers = n
		}
	}

	for _, kw := range preferenceKeywords {
		if kw.pattern.MatchString(input) {
			f.Preferences = append(f.Preferences, kw.tag)
		}
	}
	return f
}

// destMarkers end a Chinese destination capture, so that "北京玩预算" yields "北京".
var destMarkers = []string{"预算", "花费", "经费", "大约", "大概", "一共", "人数", "我们", "玩", "旅游", "旅行", "看看", "逛逛"}

func cleanDestination(s string) string {
	s = destStop.ReplaceAllString(s, "")
	cut := len(s)
	for _, marker := range destMarkers {
		if i := strings.Index(s, marker); i > 0 && i < cut {
			cut = i
		}
	}
	for i, r := range s {
		if unicode.IsDigit(r) {
			if i > 0 && i < cut {
				cut = i
			}
			break
		}
	}
	return strings.TrimSpace(s[:cut])
}

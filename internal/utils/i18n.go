package utils

// Server-side messages for API errors and health. Screen copy lives in the
// frontend.

var translations = map[string]map[string]string{
	"en": {
		"health.ok":                  "ok",
		"profile.name_required":      "Please enter your name.",
		"profile.name_too_long":      "Name is too long.",
		"profile.age_range":          "Age must be between 18 and 45.",
		"profile.place_too_long":     "Place is too long.",
		"profile.support_invalid":    "Family support must be High, Medium or Low.",
		"answer.required":            "Please select an answer to continue.",
		"answer.unknown":             "That answer is not one of the options for this question.",
		"navigation.back_disallowed": "You cannot go back from this screen.",
		"navigation.profile_locked":  "Your details are locked once the questionnaire starts.",
		"navigation.not_at_question": "There is no question to answer right now.",
		"result.not_ready":           "Finish the questionnaire to see your result.",
		"result.unavailable":         "The risk estimate is unavailable right now.",
		"session.not_found":          "Your session has expired. Please start again.",
		"session.unauthorized":       "Missing or invalid session token.",
		"request.rate_limited":       "Too many requests. Please slow down.",
		"error.internal":             "Something went wrong.",
	},
	"zh": {
		"health.ok":                  "好的",
		"profile.name_required":      "请输入姓名。",
		"profile.name_too_long":      "姓名过长。",
		"profile.age_range":          "年龄须在 18 到 45 岁之间。",
		"profile.place_too_long":     "地点过长。",
		"profile.support_invalid":    "家庭支持须为 High、Medium 或 Low。",
		"answer.required":            "请选择一个答案后继续。",
		"answer.unknown":             "该答案不是本题的选项。",
		"navigation.back_disallowed": "当前页面无法返回。",
		"navigation.profile_locked":  "问卷开始后个人信息不可修改。",
		"navigation.not_at_question": "当前没有需要回答的问题。",
		"result.not_ready":           "请先完成问卷再查看结果。",
		"result.unavailable":         "暂时无法给出风险评估。",
		"session.not_found":          "会话已过期，请重新开始。",
		"session.unauthorized":       "会话令牌缺失或无效。",
		"request.rate_limited":       "请求过于频繁，请稍后再试。",
		"error.internal":             "出现了问题。",
	},
}

// T returns the translated string for key in locale; falls back to English.
func T(locale, key string) string {
	if m, ok := translations[locale]; ok {
		if v, ok := m[key]; ok {
			return v
		}
	}
	if m, ok := translations["en"]; ok {
		if v, ok := m[key]; ok {
			return v
		}
	}
	return key
}

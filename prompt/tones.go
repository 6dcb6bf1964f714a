package prompt

// Tone 是可选的人设语调。
type Tone struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Prompt      string `json:"prompt"`
	IsCustom    bool   `json:"is_custom,omitempty"`
}

var builtinTones = []Tone{
	{ID: "friendly", Name: "友好親近", Description: "溫暖友善，拉近距離", Prompt: "請使用友好親近的語調，就像和朋友對話一樣自然溫暖，讓對方感受到真誠的關懷。"},
	{ID: "formal", Name: "正式專業", Description: "商務場合，正式語氣", Prompt: "請使用正式專業的語調，保持禮貌得體，適合商務或正式場合的溝通風格。"},
	{ID: "concise", Name: "簡潔直接", Description: "言簡意賅，直擊重點", Prompt: "請使用簡潔直接的語調，言簡意賅地表達重點，避免冗長的修飾詞。"},
	{ID: "enthusiastic", Name: "熱情活潑", Description: "充滿活力，感染力強", Prompt: "請使用熱情活潑的語調，展現積極正面的能量，讓回覆充滿活力和感染力。"},
	{ID: "humble", Name: "謙虛內斂", Description: "低調謙遜，不張揚", Prompt: "請使用謙虛內斂的語調，保持低調謙遜的態度，避免過於張揚或自信的表達。"},
	{ID: "innovative", Name: "創新前衛", Description: "思維新穎，具前瞻性", Prompt: "請使用創新前衛的語調，展現新穎的思維和前瞻性觀點，勇於提出不同的見解。"},
}

// BuiltinTones 返回内置语调的副本。
func BuiltinTones() []Tone {
	out := make([]Tone, len(builtinTones))
	copy(out, builtinTones)
	return out
}

// LookupTone 按 ID 查找内置语调。
func LookupTone(id string) (*Tone, bool) {
	for i := range builtinTones {
		if builtinTones[i].ID == id {
			t := builtinTones[i]
			return &t, true
		}
	}
	return nil, false
}

package journal

// Sentinels rendered into prompts and results. The Korean strings match
// what the UI shows.
const (
	// NoNewsSentinel stands in for the news-title list when the search
	// found nothing or failed
	NoNewsSentinel = "관련 뉴스 없음"

	// LocationUnknownSentinel is the place-name fallback when reverse
	// geocoding is unavailable
	LocationUnknownSentinel = "위치 정보 없음"

	// DefaultPhotoCaption is used when a photo is added without a caption
	DefaultPhotoCaption = "여행 사진"

	// noneSection stands in for an empty photo or spending list in the
	// narrative prompt
	noneSection = "없음"
)

// Prompts holds the prompt templates the service sends to the language
// model. The wording is tuned often enough that it is configuration, not
// protocol; placeholders must be kept when overriding.
type Prompts struct {
	// Briefing takes the place and the joined news titles
	Briefing string
	// Narrative takes the place, the photo lines and the spending lines
	Narrative string
}

// DefaultPrompts returns the stock prompt wording
func DefaultPrompts() Prompts {
	return Prompts{
		Briefing: `여행지: %s
최근 뉴스: %s

위 뉴스를 보고 여행자에게 2-3문장으로 간단히 안전 상황을 알려줘.
위험하면 주의사항도 짧게 추가해.`,

		Narrative: `여행지: %s

여행 사진들:
%s

지출 내역:
%s

위 정보를 바탕으로 감성적인 여행 일기를 3-5문장으로 작성해줘.
위에 적힌 사실에만 근거해서 쓰고, 지출 내역도 자연스럽게 포함해줘.
마지막에 총 지출 요약도 넣어줘.`,
	}
}

// merge fills empty fields from the defaults so a partial override works
func (p Prompts) merge() Prompts {
	defaults := DefaultPrompts()
	if p.Briefing == "" {
		p.Briefing = defaults.Briefing
	}
	if p.Narrative == "" {
		p.Narrative = defaults.Narrative
	}
	return p
}

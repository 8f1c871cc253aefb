package domain

import "sort"

// RequiredQuestionCount - опрос публикуется и проходится только с ровно 5 вопросами
const RequiredQuestionCount = 5

type Survey struct {
	ID        int64      `json:"id"`
	Title     string     `json:"title"`
	IsActive  bool       `json:"is_active"`
	Questions []Question `json:"questions"`
}

type Question struct {
	ID           int64  `json:"id"`
	QuestionText string `json:"question_text"`
	Order        int    `json:"order"`
}

// SortedQuestions возвращает вопросы, отсортированные по ключу order.
// Индексация по шагу сессии всегда идет по этому порядку, а не по порядку прихода.
func (s *Survey) SortedQuestions() []Question {
	qs := make([]Question, len(s.Questions))
	copy(qs, s.Questions)
	sort.SliceStable(qs, func(i, j int) bool { return qs[i].Order < qs[j].Order })
	return qs
}
